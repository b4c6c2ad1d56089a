package keylocker

import (
	"bytes"
	"testing"

	"github.com/cryptostash/keylocker/internal/entropy"
)

func TestWriteReadSlotRoundTrip(t *testing.T) {
	engine := aesCTREngine{}
	mat := slotCipherMaterial{
		key:   NewSecretBuffer(bytes.Repeat([]byte{0x01}, engine.KeySize())),
		nonce: bytes.Repeat([]byte{0x02}, engine.NonceSize()),
	}
	payload := []byte("a small secret")
	src := entropy.NewSource()

	ct, err := writeSlot(engine, mat, payload, DefaultSlotSize, src)
	if err != nil {
		t.Fatalf("writeSlot: %v", err)
	}
	if len(ct) != DefaultSlotSize {
		t.Fatalf("ciphertext length = %d, want %d", len(ct), DefaultSlotSize)
	}

	got, ok, err := readSlot(engine, mat, ct)
	if err != nil {
		t.Fatalf("readSlot: %v", err)
	}
	if !ok {
		t.Fatal("readSlot reported ok=false for a freshly written slot")
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("readSlot payload = %q, want %q", got, payload)
	}
}

func TestReadSlotWrongKeyIsNotAnError(t *testing.T) {
	engine := aesCTREngine{}
	mat := slotCipherMaterial{
		key:   NewSecretBuffer(bytes.Repeat([]byte{0x01}, engine.KeySize())),
		nonce: bytes.Repeat([]byte{0x02}, engine.NonceSize()),
	}
	src := entropy.NewSource()
	ct, err := writeSlot(engine, mat, []byte("payload"), DefaultSlotSize, src)
	if err != nil {
		t.Fatalf("writeSlot: %v", err)
	}

	wrongMat := slotCipherMaterial{
		key:   NewSecretBuffer(bytes.Repeat([]byte{0x09}, engine.KeySize())),
		nonce: mat.nonce,
	}
	_, ok, err := readSlot(engine, wrongMat, ct)
	if err != nil {
		t.Fatalf("readSlot with the wrong key should not return an error: %v", err)
	}
	if ok {
		t.Error("readSlot reported ok=true for a slot decrypted with the wrong key")
	}
}

func TestReadSlotRejectsRandomNoise(t *testing.T) {
	engine := aesCTREngine{}
	mat := slotCipherMaterial{
		key:   NewSecretBuffer(bytes.Repeat([]byte{0x03}, engine.KeySize())),
		nonce: bytes.Repeat([]byte{0x04}, engine.NonceSize()),
	}
	noise := bytes.Repeat([]byte{0xFE}, DefaultSlotSize)
	_, ok, err := readSlot(engine, mat, noise)
	if err != nil {
		t.Fatalf("readSlot on noise should not error: %v", err)
	}
	if ok {
		t.Error("readSlot validated random noise as a genuine payload")
	}
}

func TestWriteSlotRejectsOversizedPayload(t *testing.T) {
	engine := aesCTREngine{}
	mat := slotCipherMaterial{
		key:   NewSecretBuffer(bytes.Repeat([]byte{0x05}, engine.KeySize())),
		nonce: bytes.Repeat([]byte{0x06}, engine.NonceSize()),
	}
	src := entropy.NewSource()
	tooBig := make([]byte, DefaultSlotSize)
	if _, err := writeSlot(engine, mat, tooBig, DefaultSlotSize, src); err == nil {
		t.Error("expected an error when the payload plus overhead exceeds the slot size")
	}
}
