package keylocker

import "testing"

func TestCipherSuiteString(t *testing.T) {
	tests := []struct {
		suite CipherSuite
		want  string
	}{
		{CipherAESCTR, "aes-256-ctr"},
		{CipherChaCha20, "chacha20"},
		{CipherSuite(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.suite.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestKDFSuiteString(t *testing.T) {
	tests := []struct {
		suite KDFSuite
		want  string
	}{
		{KDFArgon2id, "argon2id"},
		{KDFPBKDF2SHA256, "pbkdf2-sha256"},
		{KDFSuite(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.suite.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestDefaultParamsUsesArgon2id(t *testing.T) {
	if got := DefaultParams().KDF; got != KDFArgon2id {
		t.Errorf("DefaultParams().KDF = %v, want KDFArgon2id", got)
	}
	if got := ExtendedParams().KDF; got != KDFArgon2id {
		t.Errorf("ExtendedParams().KDF = %v, want KDFArgon2id", got)
	}
}

func TestModeValidate(t *testing.T) {
	tests := []struct {
		name    string
		mode    Mode
		wantErr bool
	}{
		{"default shamir", DefaultMode(), false},
		{"shamir threshold too low", ShamirMode(5, 1), true},
		{"shamir n less than t", ShamirMode(3, 4), true},
		{"shamir n too large", ShamirMode(256, 2), true},
		{"plain ok", PlainMode(3), false},
		{"plain zero copies", PlainMode(0), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.mode.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestModeSlotCount(t *testing.T) {
	if got := ShamirMode(7, 4).SlotCount(); got != 7 {
		t.Errorf("ShamirMode(7,4).SlotCount() = %d, want 7", got)
	}
	if got := PlainMode(3).SlotCount(); got != 3 {
		t.Errorf("PlainMode(3).SlotCount() = %d, want 3", got)
	}
}

func TestParamsValidate(t *testing.T) {
	p := DefaultParams()
	if err := p.Validate(); err != nil {
		t.Fatalf("DefaultParams should validate: %v", err)
	}
	p.SlotSize = slotOverheadBytes
	if err := p.Validate(); err == nil {
		t.Error("expected an error for a slot size at the overhead floor")
	}
	p = DefaultParams()
	p.SaltSize = 0
	if err := p.Validate(); err == nil {
		t.Error("expected an error for a zero salt size")
	}
}

func TestParamsSlotCountAndUsableLength(t *testing.T) {
	p := DefaultParams()
	// region = 2 salts + 10 slots, exactly
	region := int64(2*p.SaltSize + 10*p.SlotSize)
	if got := p.SlotCount(region); got != 10 {
		t.Errorf("SlotCount() = %d, want 10", got)
	}
	if got := p.UsableLength(region); got != region {
		t.Errorf("UsableLength() = %d, want %d (already aligned)", got, region)
	}

	// a few extra stray bytes should be rounded down and dropped
	padded := region + 17
	if got := p.SlotCount(padded); got != 10 {
		t.Errorf("SlotCount() with slack = %d, want 10", got)
	}
	if got := p.UsableLength(padded); got != region {
		t.Errorf("UsableLength() with slack = %d, want %d", got, region)
	}
}

func TestParamsSlotCountTooSmall(t *testing.T) {
	p := DefaultParams()
	if got := p.SlotCount(int64(p.SaltSize)); got != 0 {
		t.Errorf("SlotCount() on an undersized region = %d, want 0", got)
	}
}

func TestExtendedParamsDoublesSlotSize(t *testing.T) {
	p := ExtendedParams()
	if p.SlotSize != ExtendedSlotSize {
		t.Errorf("ExtendedParams().SlotSize = %d, want %d", p.SlotSize, ExtendedSlotSize)
	}
	if p.SaltSize != ExtendedSlotSize {
		t.Errorf("ExtendedParams().SaltSize = %d, want %d", p.SaltSize, ExtendedSlotSize)
	}
}
