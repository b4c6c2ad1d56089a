package keylocker

// splitPlain returns copies independent, identical copies of data, one
// per slot the plain mode occupies. Unlike Shamir mode, any single
// surviving copy is sufficient to recover the entry: there is no
// threshold, only redundancy against a colliding overwrite of some of
// the copies' slots.
func splitPlain(data []byte, copies int) [][]byte {
	out := make([][]byte, copies)
	for i := range out {
		cp := make([]byte, len(data))
		copy(cp, data)
		out[i] = cp
	}
	return out
}
