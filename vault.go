package keylocker

import (
	"fmt"

	"github.com/cryptostash/keylocker/internal/entropy"
)

// Vault is the KeyFile engine: Create lays out a fresh region, Put
// installs an entry under a password, Get attempts to recover one (spec
// §4.7). A Vault is parameterized once (slot size, salt size, cipher,
// Argon2 cost) and then used across many KeyFiles that share those
// parameters — the parameters themselves are never written to disk.
type Vault struct {
	params Params
}

// New constructs a Vault with the given Params, validating them.
func New(params Params) (*Vault, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &Vault{params: params}, nil
}

// Create overwrites region with uniform random bytes, establishing a
// KeyFile with no entries. A freshly created KeyFile and one holding
// several entries are statistically identical (spec §8, E1): Create does
// nothing structurally different from what Put does to unused slots.
func (v *Vault) Create(region Region) error {
	size := region.Size()
	if v.params.SlotCount(size) == 0 {
		return NewUsageError("Create", fmt.Sprintf("region of %d bytes too small for slot size %d", size, v.params.SlotSize))
	}
	src := entropy.NewSource()
	const chunk = 1 << 20
	buf := make([]byte, chunk)
	var off int64
	for off < size {
		n := chunk
		if remaining := size - off; remaining < int64(chunk) {
			n = int(remaining)
		}
		if err := src.Fill(buf[:n]); err != nil {
			return fmt.Errorf("keylocker: filling region with random bytes: %w", err)
		}
		if _, err := region.WriteAt(buf[:n], off); err != nil {
			return err
		}
		off += int64(n)
	}
	return nil
}

// layout describes the derived geometry of a region under v.params.
type layout struct {
	saltSize   int64
	slotSize   int64
	slotCount  int
	headOffset int64
	tailOffset int64
}

func (v *Vault) layoutFor(region Region) layout {
	k := v.params.SlotCount(region.Size())
	return layout{
		saltSize:   int64(v.params.SaltSize),
		slotSize:   int64(v.params.SlotSize),
		slotCount:  k,
		headOffset: 0,
		tailOffset: int64(v.params.SaltSize) + int64(k)*int64(v.params.SlotSize),
	}
}

func (l layout) slotOffset(i int) int64 {
	return l.saltSize + int64(i)*l.slotSize
}

// readHeadSalt reads the head salt region, which anchors every
// derivation against this specific KeyFile.
func (v *Vault) readHeadSalt(region Region, l layout) ([]byte, error) {
	salt := make([]byte, l.saltSize)
	if _, err := region.ReadAt(salt, 0); err != nil {
		return nil, err
	}
	return salt, nil
}

// readTailSalt reads the tail salt region. Mixing both salts into the
// master-key derivation (spec §3, §4.4) means truncating or tail-clipping
// the KeyFile — not just corrupting its head — invalidates every entry.
func (v *Vault) readTailSalt(region Region, l layout) ([]byte, error) {
	salt := make([]byte, l.saltSize)
	if _, err := region.ReadAt(salt, l.tailOffset); err != nil {
		return nil, err
	}
	return salt, nil
}

// Put installs entry under label, visible only to callers who know both
// password and label. mode controls whether the entry is Shamir-split or
// stored as plain redundant copies (spec §4.6).
func (v *Vault) Put(region Region, password []byte, label string, entry Entry, mode Mode) error {
	if err := mode.Validate(); err != nil {
		return err
	}
	l := v.layoutFor(region)
	if l.slotCount == 0 {
		return NewUsageError("Put", "region too small to hold any slots")
	}

	headSalt, err := v.readHeadSalt(region, l)
	if err != nil {
		return err
	}
	tailSalt, err := v.readTailSalt(region, l)
	if err != nil {
		return err
	}

	dkey, err := deriveKey(password, headSalt, tailSalt, label, v.params.KDF, v.params.Argon2)
	if err != nil {
		return err
	}
	defer dkey.Clear()

	engine, err := newStreamEngine(v.params.Cipher)
	if err != nil {
		return err
	}

	serialized, err := serializeEntry(entry)
	if err != nil {
		return err
	}

	var shares [][]byte
	if mode.IsShamir() {
		shares, err = splitShamir(serialized, mode.N(), mode.T())
	} else {
		shares = splitPlain(serialized, mode.Copies())
	}
	if err != nil {
		return err
	}

	indices, err := chooseSlots(dkey.Bytes(), l.slotCount, mode.SlotCount())
	if err != nil {
		return err
	}

	src := entropy.NewSource()
	for shareIdx, slotIdx := range indices {
		mat := deriveSlotMaterial(dkey.Bytes(), label, shareIdx, engine)
		ciphertext, err := writeSlot(engine, mat, shares[shareIdx], v.params.SlotSize, src)
		mat.key.Clear()
		if err != nil {
			return err
		}
		if _, err := region.WriteAt(ciphertext, l.slotOffset(slotIdx)); err != nil {
			return err
		}
	}
	return nil
}

// Get attempts to recover the entry stored under (password, label). On
// any failure short of an I/O or usage error it returns ErrNoEntry: it is
// impossible for a caller to distinguish "wrong password", "wrong
// label", "entry never existed", and "too many colliding overwrites"
// (spec §7) — that ambiguity is the point.
func (v *Vault) Get(region Region, password []byte, label string) (Entry, error) {
	entry, err := v.get(region, password, label)
	if err != nil {
		return Entry{}, collapseRecoveryError(err)
	}
	return entry, nil
}

func (v *Vault) get(region Region, password []byte, label string) (Entry, error) {
	l := v.layoutFor(region)
	if l.slotCount == 0 {
		return Entry{}, NewUsageError("Get", "region too small to hold any slots")
	}

	headSalt, err := v.readHeadSalt(region, l)
	if err != nil {
		return Entry{}, err
	}
	tailSalt, err := v.readTailSalt(region, l)
	if err != nil {
		return Entry{}, err
	}

	dkey, err := deriveKey(password, headSalt, tailSalt, label, v.params.KDF, v.params.Argon2)
	if err != nil {
		return Entry{}, err
	}
	defer dkey.Clear()

	engine, err := newStreamEngine(v.params.Cipher)
	if err != nil {
		return Entry{}, err
	}

	// Try both modes' slot counts since Get has no record of which mode
	// Put used; this mirrors the deniability requirement that nothing on
	// disk marks which mode an entry was stored with.
	if entry, err := v.tryShamirRecover(region, l, dkey.Bytes(), label, engine); err == nil {
		return entry, nil
	}
	return v.tryPlainRecover(region, l, dkey.Bytes(), label, engine)
}

// candidateShares reads up to maxSlots deterministically-chosen slots and
// returns the ones whose per-slot checksum validated, tagged with their
// share index (position in the selection sequence, which is also each
// share's Shamir x-coordinate minus one).
func (v *Vault) candidateShares(region Region, l layout, dkey []byte, label string, engine streamEngine, maxSlots int) (map[int][]byte, error) {
	indices, err := chooseSlots(dkey, l.slotCount, maxSlots)
	if err != nil {
		return nil, err
	}
	found := make(map[int][]byte)
	ciphertext := make([]byte, l.slotSize)
	for shareIdx, slotIdx := range indices {
		if _, err := region.ReadAt(ciphertext, l.slotOffset(slotIdx)); err != nil {
			return nil, err
		}
		mat := deriveSlotMaterial(dkey, label, shareIdx, engine)
		payload, ok, err := readSlot(engine, mat, ciphertext)
		mat.key.Clear()
		if err != nil {
			return nil, err
		}
		if ok {
			found[shareIdx] = payload
		}
	}
	return found, nil
}

// shamirTrialNT is the (n, t) pair Get assumes when attempting Shamir
// recovery, since DefaultMode is Shamir(7,4) and the KeyFile carries no
// mode marker for Get to consult.
var shamirTrialNT = [2]int{7, 4}

func (v *Vault) tryShamirRecover(region Region, l layout, dkey []byte, label string, engine streamEngine) (Entry, error) {
	n, t := shamirTrialNT[0], shamirTrialNT[1]
	found, err := v.candidateShares(region, l, dkey, label, engine, n)
	if err != nil {
		return Entry{}, err
	}
	if len(found) < t {
		return Entry{}, &insufficientSharesError{found: len(found), needed: t}
	}

	available := make([]int, 0, len(found))
	for idx := range found {
		available = append(available, idx)
	}

	for _, subset := range shamirSubsets(available, t) {
		shares := make([][]byte, 0, t)
		for _, idx := range subset {
			// found[idx] is the full share produced by splitShamir,
			// including its trailing x-coordinate byte.
			shares = append(shares, found[idx])
		}
		data, err := combineShamir(shares)
		if err != nil {
			continue
		}
		entry, err := deserializeEntry(data, label)
		if err == nil {
			return entry, nil
		}
	}
	return Entry{}, &corruptEntryError{label: label}
}

// plainTrialCopies is the copy count Get assumes when attempting plain
// mode recovery.
const plainTrialCopies = 7

func (v *Vault) tryPlainRecover(region Region, l layout, dkey []byte, label string, engine streamEngine) (Entry, error) {
	found, err := v.candidateShares(region, l, dkey, label, engine, plainTrialCopies)
	if err != nil {
		return Entry{}, err
	}
	for _, payload := range found {
		entry, err := deserializeEntry(payload, label)
		if err == nil {
			return entry, nil
		}
	}
	return Entry{}, &badPasswordError{label: label}
}
