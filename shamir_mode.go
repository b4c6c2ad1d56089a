package keylocker

import (
	"fmt"

	"github.com/cryptostash/keylocker/internal/shamir"
)

// shamirShareOverhead mirrors shamir.ShareOverhead, kept as its own name
// in this package's public vocabulary so callers never need to import
// internal/shamir directly.
const shamirShareOverhead = shamir.ShareOverhead

// splitShamir splits serialized entry bytes into n shares, any t of
// which reconstruct the original, per spec §4.6. Each returned share
// already carries its x-coordinate byte (shamir.Split's format) and is
// ready to be handed to writeSlot as that share's payload.
func splitShamir(data []byte, n, t int) ([][]byte, error) {
	shares, err := shamir.Split(data, n, t)
	if err != nil {
		return nil, fmt.Errorf("keylocker: splitting entry into %d-of-%d shares: %w", t, n, err)
	}
	return shares, nil
}

// combineShamir attempts reconstruction from the given shares. It does
// not itself know whether the result is correct — that is the entry
// checksum's job (entry.go) — only that shamir.Combine ran without a
// structural error (mismatched lengths, duplicate x-coordinates).
func combineShamir(shares [][]byte) ([]byte, error) {
	data, err := shamir.Combine(shares)
	if err != nil {
		return nil, fmt.Errorf("keylocker: combining shares: %w", err)
	}
	return data, nil
}

// shamirSubsets enumerates candidate t-element subsets of the available
// share indices, in a stable order, for the vault's recovery search.
// Every subset is returned; no cap is applied here. The search stays
// small because the caller passes at most the slots it read, which for
// the default Shamir(7,4) trial gives at most C(7,4) = 35 subsets.
func shamirSubsets(available []int, t int) [][]int {
	var subsets [][]int
	n := len(available)
	var combo []int
	var recurse func(start int)
	recurse = func(start int) {
		if len(combo) == t {
			sub := make([]int, t)
			copy(sub, combo)
			subsets = append(subsets, sub)
			return
		}
		for i := start; i < n; i++ {
			combo = append(combo, available[i])
			recurse(i + 1)
			combo = combo[:len(combo)-1]
		}
	}
	recurse(0)
	return subsets
}
