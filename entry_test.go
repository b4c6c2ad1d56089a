package keylocker

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"testing"

	"github.com/klauspost/compress/flate"
)

// frameRawBody compresses and checksums body exactly as serializeEntry
// does, without first packing it through packEntry — used to exercise
// deserializeEntry against a body that isn't valid packed Entry data.
func frameRawBody(t *testing.T, body []byte) []byte {
	t.Helper()
	var compressed bytes.Buffer
	w, err := flate.NewWriter(&compressed, flate.BestCompression)
	if err != nil {
		t.Fatalf("flate.NewWriter: %v", err)
	}
	if _, err := w.Write(body); err != nil {
		t.Fatalf("compress: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("flate close: %v", err)
	}
	buf := make([]byte, 4+compressed.Len()+entryChecksumBytes)
	binary.BigEndian.PutUint32(buf[:4], uint32(len(body)))
	copy(buf[4:], compressed.Bytes())
	sum := sha256.Sum256(buf[:4+compressed.Len()])
	copy(buf[4+compressed.Len():], sum[:entryChecksumBytes])
	return buf
}

func sampleEntry() Entry {
	return Entry{
		DeviceID:  "/dev/sdb3",
		Start:     1 << 20,
		Length:    64 << 20,
		CipherKey: bytes.Repeat([]byte{0xAB}, 32),
		Text:      "hidden volume, summer backup",
	}
}

func TestPackUnpackEntryRoundTrip(t *testing.T) {
	entry := sampleEntry()
	got, err := unpackEntry(packEntry(entry))
	if err != nil {
		t.Fatalf("unpackEntry: %v", err)
	}
	if got.DeviceID != entry.DeviceID || got.Start != entry.Start || got.Length != entry.Length || got.Text != entry.Text {
		t.Errorf("round trip = %+v, want %+v", got, entry)
	}
	if !bytes.Equal(got.CipherKey, entry.CipherKey) {
		t.Errorf("CipherKey round trip = %x, want %x", got.CipherKey, entry.CipherKey)
	}
}

func TestSerializeDeserializeEntryRoundTrip(t *testing.T) {
	entry := sampleEntry()
	buf, err := serializeEntry(entry)
	if err != nil {
		t.Fatalf("serializeEntry: %v", err)
	}
	got, err := deserializeEntry(buf, "label")
	if err != nil {
		t.Fatalf("deserializeEntry: %v", err)
	}
	if got.DeviceID != entry.DeviceID || got.Start != entry.Start || got.Length != entry.Length || got.Text != entry.Text {
		t.Errorf("round trip = %+v, want %+v", got, entry)
	}
	if !bytes.Equal(got.CipherKey, entry.CipherKey) {
		t.Errorf("CipherKey round trip = %x, want %x", got.CipherKey, entry.CipherKey)
	}
}

func TestSerializeEntryCompressesRedundantData(t *testing.T) {
	entry := Entry{
		DeviceID:  "/dev/sdz9",
		Start:     0,
		Length:    1 << 30,
		CipherKey: bytes.Repeat([]byte{0x42}, 32),
		Text:      string(bytes.Repeat([]byte("aaaaaaaaaa"), 200)),
	}
	buf, err := serializeEntry(entry)
	if err != nil {
		t.Fatalf("serializeEntry: %v", err)
	}
	if len(buf) >= len(entry.Text) {
		t.Errorf("serialized length %d did not shrink highly redundant input of length %d", len(buf), len(entry.Text))
	}
}

func TestDeserializeEntryRejectsCorruption(t *testing.T) {
	entry := sampleEntry()
	buf, err := serializeEntry(entry)
	if err != nil {
		t.Fatalf("serializeEntry: %v", err)
	}
	buf[len(buf)-1] ^= 0xFF

	if _, err := deserializeEntry(buf, "label"); err == nil {
		t.Error("expected an error for a tampered checksum")
	}
}

func TestDeserializeEntryRejectsTooShortBuffer(t *testing.T) {
	if _, err := deserializeEntry([]byte{0x01, 0x02}, "label"); err == nil {
		t.Error("expected an error for a buffer shorter than the header")
	}
}

func TestDeserializeEntryRejectsMalformedPackedFields(t *testing.T) {
	// A structurally valid frame (checksum matches the body) whose body
	// is not valid packed Entry data: a device-id length prefix claiming
	// far more bytes than follow it.
	malformed := []byte{0xFF, 0xFF, 0x00, 0x01}
	buf := frameRawBody(t, malformed)
	if _, err := deserializeEntry(buf, "label"); err == nil {
		t.Error("expected an error for a malformed packed body")
	}
}

func TestDeserializeEntryHandlesEmptyFields(t *testing.T) {
	buf, err := serializeEntry(Entry{})
	if err != nil {
		t.Fatalf("serializeEntry: %v", err)
	}
	got, err := deserializeEntry(buf, "label")
	if err != nil {
		t.Fatalf("deserializeEntry: %v", err)
	}
	if got.DeviceID != "" || got.Start != 0 || got.Length != 0 || got.Text != "" || len(got.CipherKey) != 0 {
		t.Errorf("got %+v, want all-zero Entry", got)
	}
}
