package keylocker

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"

	"golang.org/x/crypto/chacha20"
)

// streamEngine encrypts and decrypts slot payloads with a pure stream
// cipher: output length always equals input length, with no
// authentication tag. That no-expansion property is what lets a slot's
// ciphertext look like any other random 64 (or 128) bytes in the
// KeyFile (spec §4.3).
//
// Because encryption and decryption of a stream cipher are the same
// XOR-with-keystream operation, a single method covers both directions.
type streamEngine interface {
	// XORKeyStream returns dst = src XOR keystream(key, nonce), computed
	// fresh from the start of the stream every call.
	XORKeyStream(key, nonce, src []byte) ([]byte, error)

	// KeySize and NonceSize report what XORKeyStream expects.
	KeySize() int
	NonceSize() int
}

// aesCTREngine implements streamEngine with AES-256 in CTR mode, mirroring
// the raw ctrMode construction the teacher's SIV implementation builds on
// top of, but exposed directly rather than wrapped in S2V/CMAC.
type aesCTREngine struct{}

func (aesCTREngine) KeySize() int   { return 32 }
func (aesCTREngine) NonceSize() int { return aes.BlockSize }

func (aesCTREngine) XORKeyStream(key, nonce, src []byte) ([]byte, error) {
	if len(key) != 32 {
		return nil, fmt.Errorf("keylocker: aes-ctr requires a 32-byte key, got %d", len(key))
	}
	if len(nonce) != aes.BlockSize {
		return nil, fmt.Errorf("keylocker: aes-ctr requires a %d-byte nonce, got %d", aes.BlockSize, len(nonce))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("keylocker: aes-ctr: %w", err)
	}
	out := make([]byte, len(src))
	cipher.NewCTR(block, nonce).XORKeyStream(out, src)
	return out, nil
}

// chacha20Engine implements streamEngine with unauthenticated ChaCha20,
// offered as a software-only alternative to AES-CTR on platforms without
// AES-NI.
type chacha20Engine struct{}

func (chacha20Engine) KeySize() int   { return chacha20.KeySize }
func (chacha20Engine) NonceSize() int { return chacha20.NonceSize }

func (chacha20Engine) XORKeyStream(key, nonce, src []byte) ([]byte, error) {
	c, err := chacha20.NewUnauthenticatedCipher(key, nonce)
	if err != nil {
		return nil, fmt.Errorf("keylocker: chacha20: %w", err)
	}
	out := make([]byte, len(src))
	c.XORKeyStream(out, src)
	return out, nil
}

// newStreamEngine resolves a CipherSuite to its streamEngine.
func newStreamEngine(suite CipherSuite) (streamEngine, error) {
	switch suite {
	case CipherAESCTR:
		return aesCTREngine{}, nil
	case CipherChaCha20:
		return chacha20Engine{}, nil
	default:
		return nil, fmt.Errorf("keylocker: unsupported slot cipher suite %v", suite)
	}
}
