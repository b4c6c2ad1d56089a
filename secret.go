package keylocker

// SecretBuffer wraps a byte slice that holds key material, passwords, or
// share fragments, and guarantees the caller can wipe it deterministically.
// Derived master keys and per-slot keys are returned through a
// SecretBuffer and wiped with the defer-Clear pattern below (spec §5).
// Serialized entries, Shamir shares and decrypted slot payloads are plain
// byte slices and are not zeroized.
//
//	sb := keylocker.NewSecretBuffer(derivedKey)
//	defer sb.Clear()
type SecretBuffer struct {
	data []byte
}

// NewSecretBuffer takes ownership of b. The caller must not retain or
// reuse b after this call; all access should go through the returned
// SecretBuffer.
func NewSecretBuffer(b []byte) *SecretBuffer {
	return &SecretBuffer{data: b}
}

// ZeroSecretBuffer allocates a new all-zero SecretBuffer of length n.
func ZeroSecretBuffer(n int) *SecretBuffer {
	return &SecretBuffer{data: make([]byte, n)}
}

// Bytes returns the underlying slice. The slice is only valid until
// Clear is called; callers must not retain it past that point.
func (s *SecretBuffer) Bytes() []byte {
	if s == nil {
		return nil
	}
	return s.data
}

// Len returns the length of the secret.
func (s *SecretBuffer) Len() int {
	if s == nil {
		return 0
	}
	return len(s.data)
}

// Clear overwrites the buffer with zeros. Safe to call multiple times and
// on a nil receiver.
func (s *SecretBuffer) Clear() {
	if s == nil {
		return
	}
	clearBytes(s.data)
}

// clearBytes zeroizes b in place. Declared as its own helper, rather than
// inlined at every call site, so every secret-wipe in this package goes
// through one auditable function.
func clearBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
