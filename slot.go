package keylocker

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	"github.com/cryptostash/keylocker/internal/entropy"
)

// slotOverheadBytes is the fixed cost, inside every slot's plaintext, of
// the length prefix and checksum tag that make a successful decrypt
// distinguishable from a random one. It must be well under the default
// slot size so plenty of room remains for the payload.
const (
	slotLengthPrefixBytes = 2
	slotChecksumBytes     = 4
	slotOverheadBytes     = slotLengthPrefixBytes + slotChecksumBytes
)

// slotChecksum produces a short, intentionally truncated integrity tag.
// Truncation is deliberate (spec §4.5): a full SHA-256 tag would make
// false-positive validation for the wrong password astronomically
// unlikely, which sounds good until you realize a KeyFile scanner could
// then also identify the *cipher suite* by its tag length distribution.
// A 4-byte tag still rejects wrong passwords well over 99.9999% of the
// time while keeping that distinguishing signal small.
func slotChecksum(payload []byte) []byte {
	sum := sha256.Sum256(payload)
	return sum[:slotChecksumBytes]
}

// writeSlot encodes payload into exactly slotSize bytes of ciphertext:
// [2-byte length][payload][4-byte checksum][random padding to slotSize],
// then encrypts that whole buffer with the stream cipher so the result is
// indistinguishable from the slot's previous contents or from noise.
func writeSlot(engine streamEngine, mat slotCipherMaterial, payload []byte, slotSize int, src *entropy.Source) ([]byte, error) {
	if len(payload) > 0xFFFF {
		return nil, fmt.Errorf("keylocker: slot payload too large: %d bytes", len(payload))
	}
	plain := make([]byte, slotLengthPrefixBytes+len(payload)+slotChecksumBytes)
	binary.BigEndian.PutUint16(plain[:2], uint16(len(payload)))
	copy(plain[2:], payload)
	checksum := slotChecksum(plain[:2+len(payload)])
	copy(plain[2+len(payload):], checksum)

	if len(plain) > slotSize {
		return nil, fmt.Errorf("keylocker: slot payload %d bytes exceeds slot size %d", len(plain), slotSize)
	}
	padded := make([]byte, slotSize)
	copy(padded, plain)
	if pad := slotSize - len(plain); pad > 0 {
		padding, err := src.Random(pad)
		if err != nil {
			return nil, fmt.Errorf("keylocker: padding slot: %w", err)
		}
		copy(padded[len(plain):], padding)
	}

	ct, err := engine.XORKeyStream(mat.key.Bytes(), mat.nonce, padded)
	if err != nil {
		return nil, fmt.Errorf("keylocker: encrypting slot: %w", err)
	}
	return ct, nil
}

// readSlot decrypts a slot's ciphertext and attempts to validate it as a
// genuine payload. ok is false whenever the checksum fails to validate —
// which is the expected, common case when trying a slot derived from the
// wrong password or the wrong index, and must never itself be treated as
// an error.
func readSlot(engine streamEngine, mat slotCipherMaterial, ciphertext []byte) (payload []byte, ok bool, err error) {
	plain, err := engine.XORKeyStream(mat.key.Bytes(), mat.nonce, ciphertext)
	if err != nil {
		return nil, false, fmt.Errorf("keylocker: decrypting slot: %w", err)
	}
	if len(plain) < slotOverheadBytes {
		return nil, false, nil
	}
	length := int(binary.BigEndian.Uint16(plain[:2]))
	if length < 0 || 2+length+slotChecksumBytes > len(plain) {
		return nil, false, nil
	}
	payload = plain[2 : 2+length]
	wantChecksum := plain[2+length : 2+length+slotChecksumBytes]
	gotChecksum := slotChecksum(plain[:2+length])
	if !bytesEqual(wantChecksum, gotChecksum) {
		return nil, false, nil
	}
	out := make([]byte, length)
	copy(out, payload)
	return out, true, nil
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
