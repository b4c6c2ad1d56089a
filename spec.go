package keylocker

import (
	"fmt"
	"strconv"
	"strings"
)

// PartitionResolver resolves a named partition to its (offset, length) in
// bytes on some underlying device. Parsing a partition table is an
// external concern (spec §4.1 notes offset/length specs may be
// partition-relative); this package only depends on the interface.
type PartitionResolver interface {
	// ResolvePartition returns the byte offset and length of the named
	// partition (e.g. "1", "sda2", a GPT label).
	ResolvePartition(name string) (offset, length int64, err error)
}

// ParseOffsetSpec parses an offset expression against a region/device of
// the given total size:
//
//	"0"            -> 0
//	"4096"         -> 4096
//	"4K"           -> 4096
//	"-1M"          -> totalSize - 1048576
//	"part1+512"    -> resolver.ResolvePartition("part1") offset + 512
//
// K/M/G suffixes are binary (1024-based), matching spec §4.1's
// size-grammar requirement. A bare negative number is end-relative.
func ParseOffsetSpec(spec string, totalSize int64, resolver PartitionResolver) (int64, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return 0, NewUsageError("ParseOffsetSpec", "empty offset spec")
	}

	if base, delta, ok := splitPartitionDelta(spec); ok {
		if resolver == nil {
			return 0, NewUsageError("ParseOffsetSpec", "partition-relative spec given but no PartitionResolver configured")
		}
		partOffset, _, err := resolver.ResolvePartition(base)
		if err != nil {
			return 0, fmt.Errorf("keylocker: resolving partition %q: %w", base, err)
		}
		d, err := parseSizeLiteral(delta)
		if err != nil {
			return 0, err
		}
		return partOffset + d, nil
	}

	n, err := parseSizeLiteral(spec)
	if err != nil {
		return 0, err
	}
	if strings.HasPrefix(spec, "-") {
		return totalSize + n, nil
	}
	return n, nil
}

// ParseLengthSpec parses a length expression. Semantics mirror
// ParseOffsetSpec except a leading '-' means "up to N bytes before the
// end of the region", resolved relative to a given starting offset.
// "-0" is therefore the idiom for "everything to the end of the region".
func ParseLengthSpec(spec string, totalSize, fromOffset int64) (int64, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return 0, NewUsageError("ParseLengthSpec", "empty length spec")
	}
	n, err := parseSizeLiteral(spec)
	if err != nil {
		return 0, err
	}
	if strings.HasPrefix(spec, "-") {
		return totalSize + n - fromOffset, nil
	}
	return n, nil
}

// splitPartitionDelta splits "name+delta" into its parts. Returns ok=false
// if spec has no '+', i.e. it's a plain size literal.
func splitPartitionDelta(spec string) (base, delta string, ok bool) {
	idx := strings.IndexByte(spec, '+')
	if idx < 0 {
		return "", "", false
	}
	return spec[:idx], spec[idx+1:], true
}

// parseSizeLiteral parses an integer with an optional K/M/G suffix
// (binary, case-insensitive) and optional leading '-'.
func parseSizeLiteral(s string) (int64, error) {
	if s == "" {
		return 0, NewUsageError("parseSizeLiteral", "empty size literal")
	}
	negative := false
	if s[0] == '-' {
		negative = true
		s = s[1:]
	}
	if s == "" {
		return 0, NewUsageError("parseSizeLiteral", "size literal has sign but no digits")
	}

	multiplier := int64(1)
	switch last := s[len(s)-1]; last {
	case 'k', 'K':
		multiplier = 1024
		s = s[:len(s)-1]
	case 'm', 'M':
		multiplier = 1024 * 1024
		s = s[:len(s)-1]
	case 'g', 'G':
		multiplier = 1024 * 1024 * 1024
		s = s[:len(s)-1]
	}

	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, NewUsageError("parseSizeLiteral", fmt.Sprintf("invalid size literal %q", s))
	}
	n *= multiplier
	if negative {
		n = -n
	}
	return n, nil
}
