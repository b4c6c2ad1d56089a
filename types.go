package keylocker

import "fmt"

// CipherSuite selects the stream cipher used to encrypt slot payloads.
// Unlike an AEAD suite, every option here produces ciphertext exactly as
// long as its plaintext: slot opacity requires no expansion.
type CipherSuite uint8

const (
	// CipherAESCTR uses AES-256 in CTR mode (default).
	CipherAESCTR CipherSuite = iota
	// CipherChaCha20 uses the unauthenticated ChaCha20 stream cipher.
	CipherChaCha20
)

// String returns the name of the cipher suite.
func (c CipherSuite) String() string {
	switch c {
	case CipherAESCTR:
		return "aes-256-ctr"
	case CipherChaCha20:
		return "chacha20"
	default:
		return "unknown"
	}
}

// KDFSuite selects the password hash used for master-key derivation.
// Like CipherSuite, this is a build-time parameter of a Vault, never
// recorded in the KeyFile: a reader must already know which one to try.
type KDFSuite uint8

const (
	// KDFArgon2id is the default, memory-hard derivation.
	KDFArgon2id KDFSuite = iota
	// KDFPBKDF2SHA256 is a software-only fallback for environments where
	// Argon2id's memory requirement is impractical (e.g. a recovery
	// environment with a few megabytes of RAM). It costs iterations
	// instead of memory, so it resists GPU attack far less well than
	// Argon2id and should only be chosen deliberately.
	KDFPBKDF2SHA256
)

// String returns the name of the KDF suite.
func (k KDFSuite) String() string {
	switch k {
	case KDFArgon2id:
		return "argon2id"
	case KDFPBKDF2SHA256:
		return "pbkdf2-sha256"
	default:
		return "unknown"
	}
}

// Argon2Params tunes the memory-hard password hash (spec §4.3), and
// doubles as the cost knobs for the KDFPBKDF2SHA256 fallback (Time and
// Memory are multiplied together into an iteration count there, since
// PBKDF2 has no separate memory parameter). Defaults are chosen so a
// single Argon2id derivation takes at least half a second and consumes
// at least 256 MiB on a modern CPU.
type Argon2Params struct {
	Memory      uint32 // KiB
	Time        uint32 // iterations
	Parallelism uint8
	KeySize     uint32 // derived dkey length in bytes
}

// DefaultArgon2Params returns the build-time default KDF cost.
func DefaultArgon2Params() Argon2Params {
	return Argon2Params{
		Memory:      256 * 1024, // 256 MiB
		Time:        3,
		Parallelism: 4,
		KeySize:     32,
	}
}

// Mode captures how an entry is split across slots: either Shamir
// secret-sharing with a threshold, or plain redundant copies. Exactly one
// of the two is active, mirroring spec §9's tagged-variant guidance.
type Mode struct {
	shamir bool
	n, t   int // Shamir: parts, threshold
	copies int // Plain: redundant copy count
}

// ShamirMode splits an entry into n shares, any t of which reconstruct it.
func ShamirMode(n, t int) Mode {
	return Mode{shamir: true, n: n, t: t}
}

// PlainMode stores copies independent, fully-formed slot-encrypted copies
// of the entry; any single surviving copy recovers it.
func PlainMode(copies int) Mode {
	return Mode{shamir: false, copies: copies}
}

// DefaultMode is Shamir(7,4), the default named in spec §4.6.
func DefaultMode() Mode {
	return ShamirMode(7, 4)
}

// IsShamir reports whether the mode is Shamir secret sharing.
func (m Mode) IsShamir() bool { return m.shamir }

// N returns the Shamir share count (meaningless for plain mode).
func (m Mode) N() int { return m.n }

// T returns the Shamir threshold (meaningless for plain mode).
func (m Mode) T() int { return m.t }

// Copies returns the plain-mode copy count (meaningless for Shamir mode).
func (m Mode) Copies() int { return m.copies }

// SlotCount returns how many slots this mode occupies per entry.
func (m Mode) SlotCount() int {
	if m.shamir {
		return m.n
	}
	return m.copies
}

// Validate checks that the mode's parameters are internally consistent.
func (m Mode) Validate() error {
	if m.shamir {
		if m.t < 2 {
			return fmt.Errorf("keylocker: shamir threshold must be at least 2, got %d", m.t)
		}
		if m.n < m.t {
			return fmt.Errorf("keylocker: shamir parts (%d) cannot be less than threshold (%d)", m.n, m.t)
		}
		if m.n > 255 {
			return fmt.Errorf("keylocker: shamir parts cannot exceed 255, got %d", m.n)
		}
		return nil
	}
	if m.copies < 1 {
		return fmt.Errorf("keylocker: plain mode requires at least 1 copy, got %d", m.copies)
	}
	return nil
}

const (
	// DefaultSlotSize is the size in bytes of one slot in standard mode.
	DefaultSlotSize = 64
	// ExtendedSlotSize is the slot size used when the extended variant is
	// selected (spec §6, §9: double the default, fixed and documented so
	// a KeyFile's layout stays reproducible across versions).
	ExtendedSlotSize = 128
	// DefaultSaltSize is the size in bytes of each of the head and tail
	// salt regions; defaults to one slot per spec §6.
	DefaultSaltSize = DefaultSlotSize
)

// Params fixes the build-time KeyFile layout constants (spec §6): slot
// size, salt size, the cipher suite, and the KDF cost. None of these are
// written to the KeyFile itself — a reader must already know them.
type Params struct {
	SlotSize int
	SaltSize int
	Cipher   CipherSuite
	KDF      KDFSuite
	Argon2   Argon2Params
}

// DefaultParams returns the standard (non-extended) KeyFile parameters.
func DefaultParams() Params {
	return Params{
		SlotSize: DefaultSlotSize,
		SaltSize: DefaultSaltSize,
		Cipher:   CipherAESCTR,
		KDF:      KDFArgon2id,
		Argon2:   DefaultArgon2Params(),
	}
}

// ExtendedParams returns the double-slot-size variant selected by the
// orchestrator's --extended flag.
func ExtendedParams() Params {
	p := DefaultParams()
	p.SlotSize = ExtendedSlotSize
	p.SaltSize = ExtendedSlotSize
	return p
}

// Validate checks the parameter set for internal consistency.
func (p Params) Validate() error {
	if p.SlotSize <= slotOverheadBytes {
		return fmt.Errorf("keylocker: slot size %d too small, must exceed %d bytes of codec overhead", p.SlotSize, slotOverheadBytes)
	}
	if p.SaltSize <= 0 {
		return fmt.Errorf("keylocker: salt size must be positive, got %d", p.SaltSize)
	}
	return nil
}

// SlotCount computes K, the number of slots that fit a region of length L
// given these parameters (spec §6): K = floor((L - 2*S) / slot_size).
func (p Params) SlotCount(regionLen int64) int {
	usable := regionLen - 2*int64(p.SaltSize)
	if usable < int64(p.SlotSize) {
		return 0
	}
	return int(usable / int64(p.SlotSize))
}

// UsableLength rounds a region length down to exactly fit whole slots plus
// the two salt regions, per spec §6 ("round L down accordingly").
func (p Params) UsableLength(regionLen int64) int64 {
	k := p.SlotCount(regionLen)
	return 2*int64(p.SaltSize) + int64(k)*int64(p.SlotSize)
}
