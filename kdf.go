package keylocker

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"io"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/pbkdf2"
)

// deriveKey runs the master-key derivation once per (password, KeyFile,
// device) triple, grounded on the teacher's PasswordKeyProvider.DeriveKey
// Argon2id branch but folding in both salt regions and the device
// identifier as the derivation's salt material, rather than narrowing a
// password-only key afterward. Binding the device into the expensive call
// itself is what prevents an attacker who has already paid the KDF cost
// for one device from testing the same password against other devices for
// the price of a cheap hash: every device id requires its own full
// derivation.
func deriveKey(password, headSalt, tailSalt []byte, device string, suite KDFSuite, p Argon2Params) (*SecretBuffer, error) {
	deviceHash := sha256.Sum256([]byte(device))
	salt := make([]byte, 0, len(headSalt)+len(tailSalt)+len(deviceHash))
	salt = append(salt, headSalt...)
	salt = append(salt, tailSalt...)
	salt = append(salt, deviceHash[:]...)

	switch suite {
	case KDFArgon2id:
		return NewSecretBuffer(argon2.IDKey(password, salt, p.Time, p.Memory, p.Parallelism, p.KeySize)), nil
	case KDFPBKDF2SHA256:
		iterations := int(p.Time) * int(p.Memory)
		if iterations < 1 {
			iterations = 1
		}
		return NewSecretBuffer(pbkdf2.Key(password, salt, iterations, int(p.KeySize), sha256.New)), nil
	default:
		return nil, fmt.Errorf("keylocker: unsupported kdf suite %v", suite)
	}
}

// slotSelector derives the deterministic, reject-and-retry sequence of
// slot indices an entry occupies within a KeyFile of size slotCount, given
// that entry's derived master key. Two different (password, device)
// pairs land on different slot sequences with overwhelming probability;
// collisions are tolerated by the Shamir threshold, not avoided entirely.
type slotSelector struct {
	stream io.Reader
}

// newSlotSelector builds an HKDF stream over dkey, labeled by purpose so
// the same master key never produces the same index sequence for two
// different uses (e.g. slot selection versus per-slot key derivation).
func newSlotSelector(dkey []byte) *slotSelector {
	r := hkdf.New(sha256.New, dkey, nil, []byte("keylocker-slot-select"))
	return &slotSelector{stream: r}
}

// next reads a uniformly-distributed slot index in [0, slotCount) from
// the stream, by rejection sampling a 4-byte big-endian word.
func (s *slotSelector) next(slotCount int) (int, error) {
	if slotCount <= 0 {
		return 0, fmt.Errorf("keylocker: slot count must be positive, got %d", slotCount)
	}
	limit := uint32(slotCount)
	// largest multiple of limit that fits in uint32, to avoid modulo bias
	ceiling := (^uint32(0) / limit) * limit
	buf := make([]byte, 4)
	for {
		if _, err := io.ReadFull(s.stream, buf); err != nil {
			return 0, fmt.Errorf("keylocker: expanding slot-selection stream: %w", err)
		}
		v := binary.BigEndian.Uint32(buf)
		if v < ceiling {
			return int(v % limit), nil
		}
	}
}

// chooseSlots picks `count` distinct slot indices out of slotCount,
// retrying on duplicates, per spec §4.4. If slotCount is smaller than
// count the call fails: the KeyFile is too small for this mode.
func chooseSlots(dkey []byte, slotCount, count int) ([]int, error) {
	if count > slotCount {
		return nil, NewUsageError("chooseSlots", fmt.Sprintf("need %d distinct slots but KeyFile only has %d", count, slotCount))
	}
	sel := newSlotSelector(dkey)
	seen := make(map[int]bool, count)
	indices := make([]int, 0, count)
	for len(indices) < count {
		idx, err := sel.next(slotCount)
		if err != nil {
			return nil, err
		}
		if seen[idx] {
			continue
		}
		seen[idx] = true
		indices = append(indices, idx)
	}
	return indices, nil
}

// slotCipherMaterial is the per-slot key and nonce used to encrypt or
// decrypt one slot's payload.
type slotCipherMaterial struct {
	key   *SecretBuffer
	nonce []byte
}

// deriveSlotMaterial computes the key/nonce pair for one slot of one
// share: SHA-256(dkey || label || shareIndex) is HKDF-expanded into the
// engine's key followed by its nonce. Using a single hash keeps the relationship between
// key and nonce deterministic and reproducible without storing either
// anywhere in the KeyFile.
func deriveSlotMaterial(dkey []byte, label string, shareIndex int, engine streamEngine) slotCipherMaterial {
	h := sha256.New()
	h.Write(dkey)
	h.Write([]byte(label))
	var idxBuf [4]byte
	binary.BigEndian.PutUint32(idxBuf[:], uint32(shareIndex))
	h.Write(idxBuf[:])
	digest := h.Sum(nil)

	r := hkdf.New(sha256.New, digest, nil, []byte("keylocker-slot-material"))
	key := make([]byte, engine.KeySize())
	nonce := make([]byte, engine.NonceSize())
	io.ReadFull(r, key)
	io.ReadFull(r, nonce)
	return slotCipherMaterial{key: NewSecretBuffer(key), nonce: nonce}
}
