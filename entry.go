package keylocker

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/klauspost/compress/flate"
)

// entryChecksumBytes is the number of checksum bytes carried at the tail
// of a serialized entry, used to reject a reconstruction produced from a
// colliding or below-threshold share set (spec §4.8).
const entryChecksumBytes = 8

// entryFieldPrefixBytes is the width of the length prefix in front of
// each variable-length packed field.
const entryFieldPrefixBytes = 2

// Entry is the plaintext record stored behind a KeyFile label: a
// descriptor of one hidden encrypted partition (spec §3) rather than an
// opaque blob, since the partition descriptor itself — its device, byte
// range, and cipher key — is what a KeyFile exists to protect.
type Entry struct {
	// DeviceID names the device the described partition lives on. This
	// is independent of the device identifier bound into the KDF
	// derivation (Put/Get's device argument): a KeyFile stored on one
	// device can describe a hidden partition living on another.
	DeviceID string
	// Start is the byte offset, within DeviceID, where the hidden
	// partition begins.
	Start int64
	// Length is the size in bytes of the hidden partition.
	Length int64
	// CipherKey is the key that decrypts the hidden partition itself,
	// independent of any key used by this KeyFile.
	CipherKey []byte
	// Text is an optional free-form note (spec §3: "an optional text
	// payload"), e.g. a reminder of what the partition holds.
	Text string
}

// packEntry packs an Entry's fields into a variable-length byte string
// by writing each field with a length prefix (spec §4.8), in declaration
// order. Start and Length are fixed-width 8-byte big-endian integers;
// DeviceID, CipherKey, and Text each carry a 2-byte length prefix.
func packEntry(e Entry) []byte {
	var buf bytes.Buffer
	writeLengthPrefixed(&buf, []byte(e.DeviceID))
	var fixed [16]byte
	binary.BigEndian.PutUint64(fixed[:8], uint64(e.Start))
	binary.BigEndian.PutUint64(fixed[8:], uint64(e.Length))
	buf.Write(fixed[:])
	writeLengthPrefixed(&buf, e.CipherKey)
	writeLengthPrefixed(&buf, []byte(e.Text))
	return buf.Bytes()
}

// unpackEntry reverses packEntry. It returns an error if the buffer is
// truncated or a length prefix claims more bytes than remain, which
// deserializeEntry treats the same as a checksum failure: indistinguishable
// from the outside from a wrong password.
func unpackEntry(buf []byte) (Entry, error) {
	r := bytes.NewReader(buf)
	deviceID, err := readLengthPrefixed(r)
	if err != nil {
		return Entry{}, fmt.Errorf("keylocker: unpacking entry device id: %w", err)
	}
	var fixed [16]byte
	if _, err := io.ReadFull(r, fixed[:]); err != nil {
		return Entry{}, fmt.Errorf("keylocker: unpacking entry start/length: %w", err)
	}
	start := int64(binary.BigEndian.Uint64(fixed[:8]))
	length := int64(binary.BigEndian.Uint64(fixed[8:]))
	cipherKey, err := readLengthPrefixed(r)
	if err != nil {
		return Entry{}, fmt.Errorf("keylocker: unpacking entry cipher key: %w", err)
	}
	text, err := readLengthPrefixed(r)
	if err != nil {
		return Entry{}, fmt.Errorf("keylocker: unpacking entry text: %w", err)
	}
	return Entry{
		DeviceID:  string(deviceID),
		Start:     start,
		Length:    length,
		CipherKey: cipherKey,
		Text:      string(text),
	}, nil
}

// writeLengthPrefixed appends field prefixed by its 2-byte big-endian
// length, matching the length-prefix convention slot.go uses for its own
// payload framing.
func writeLengthPrefixed(buf *bytes.Buffer, field []byte) {
	var prefix [entryFieldPrefixBytes]byte
	binary.BigEndian.PutUint16(prefix[:], uint16(len(field)))
	buf.Write(prefix[:])
	buf.Write(field)
}

// readLengthPrefixed reads one length-prefixed field from r.
func readLengthPrefixed(r *bytes.Reader) ([]byte, error) {
	var prefix [entryFieldPrefixBytes]byte
	if _, err := io.ReadFull(r, prefix[:]); err != nil {
		return nil, err
	}
	length := int(binary.BigEndian.Uint16(prefix[:]))
	field := make([]byte, length)
	if _, err := io.ReadFull(r, field); err != nil {
		return nil, err
	}
	return field, nil
}

// serializeEntry packs, compresses, and frames an Entry for splitting
// across slots: [4-byte uncompressed-length][flate-compressed packed
// fields][8-byte checksum]. Compression shrinks the common case (short
// device ids and keys with redundant structure) so more fits in the
// Shamir share's fixed-size slots; the checksum, unlike the per-slot
// checksum in slot.go, guards against a *reconstructed* entry that came
// from enough matching shares but the wrong ones — the "corrupted" case
// the Shamir threshold wasn't able to reject on its own.
func serializeEntry(e Entry) ([]byte, error) {
	packed := packEntry(e)

	var compressed bytes.Buffer
	w, err := flate.NewWriter(&compressed, flate.BestCompression)
	if err != nil {
		return nil, fmt.Errorf("keylocker: creating compressor: %w", err)
	}
	if _, err := w.Write(packed); err != nil {
		return nil, fmt.Errorf("keylocker: compressing entry: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("keylocker: flushing compressor: %w", err)
	}

	buf := make([]byte, 4+compressed.Len()+entryChecksumBytes)
	binary.BigEndian.PutUint32(buf[:4], uint32(len(packed)))
	copy(buf[4:], compressed.Bytes())

	sum := sha256.Sum256(buf[:4+compressed.Len()])
	copy(buf[4+compressed.Len():], sum[:entryChecksumBytes])
	return buf, nil
}

// deserializeEntry reverses serializeEntry and validates the checksum.
// A checksum mismatch, or a malformed packed buffer, returns
// corruptEntryError, which collapseRecoveryError maps to ErrNoEntry at
// the public boundary — it is indistinguishable, from the outside, from
// "wrong password".
func deserializeEntry(buf []byte, label string) (Entry, error) {
	if len(buf) < 4+entryChecksumBytes {
		return Entry{}, &corruptEntryError{label: label}
	}
	uncompressedLen := binary.BigEndian.Uint32(buf[:4])
	body := buf[4 : len(buf)-entryChecksumBytes]
	wantSum := buf[len(buf)-entryChecksumBytes:]

	gotSum := sha256.Sum256(buf[:len(buf)-entryChecksumBytes])
	if !bytesEqual(wantSum, gotSum[:entryChecksumBytes]) {
		return Entry{}, &corruptEntryError{label: label}
	}

	r := flate.NewReader(bytes.NewReader(body))
	defer r.Close()
	packed := make([]byte, uncompressedLen)
	if _, err := io.ReadFull(r, packed); err != nil {
		return Entry{}, &corruptEntryError{label: label}
	}

	entry, err := unpackEntry(packed)
	if err != nil {
		return Entry{}, &corruptEntryError{label: label}
	}
	return entry, nil
}
