// Package entropy supplies the random bytes used for salts, padding, and
// share polynomial coefficients, with an optional path to mix in
// caller-supplied extra entropy (e.g. keyboard/mouse jitter samples
// collected outside this package) without ever trusting that extra
// entropy alone.
package entropy

import (
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// Source produces random bytes for one KeyLocker operation. The zero
// value reads directly from crypto/rand; calling Mix folds in additional
// material that influences, but never replaces, that baseline.
type Source struct {
	extra io.Reader
	pool  [32]byte
	mixed bool
}

// NewSource returns a Source backed by crypto/rand.
func NewSource() *Source {
	return &Source{}
}

// Mix folds extra bytes (e.g. jitter samples from an external collector)
// into the source's internal pool via SHA-256, the way drand's
// entropy.GetRandom falls back to crypto/rand on a bad external reader:
// a malicious or low-quality extra source can only help, never hurt,
// because the pool always also contains fresh crypto/rand output.
func (s *Source) Mix(extra []byte) {
	seed := make([]byte, 0, len(s.pool)+len(extra)+32)
	if s.mixed {
		seed = append(seed, s.pool[:]...)
	}
	fresh := make([]byte, 32)
	if _, err := rand.Read(fresh); err == nil {
		seed = append(seed, fresh...)
	}
	seed = append(seed, extra...)
	s.pool = sha256.Sum256(seed)
	s.mixed = true
}

// Random returns n bytes of randomness. If Mix has been called, the
// returned bytes are HKDF-expanded from the mixed pool; otherwise they
// come directly from crypto/rand.
func (s *Source) Random(n int) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("entropy: negative length %d", n)
	}
	if !s.mixed {
		buf := make([]byte, n)
		if _, err := rand.Read(buf); err != nil {
			return nil, fmt.Errorf("entropy: reading crypto/rand: %w", err)
		}
		return buf, nil
	}

	r := hkdf.New(sha256.New, s.pool[:], nil, []byte("keylocker-entropy-mix"))
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, fmt.Errorf("entropy: expanding mixed pool: %w", err)
	}
	// Re-mix so repeated calls don't return the same stream.
	s.Mix(nil)
	return buf, nil
}

// Fill reads len(b) random bytes into b via Random.
func (s *Source) Fill(b []byte) error {
	buf, err := s.Random(len(b))
	if err != nil {
		return err
	}
	copy(b, buf)
	return nil
}
