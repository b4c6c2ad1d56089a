package shamir

import (
	"crypto/rand"
	"fmt"
)

// ShareOverhead is the number of bytes a share carries beyond the secret
// length: one byte for the x-coordinate.
const ShareOverhead = 1

// polynomial represents a degree-(t-1) polynomial over GF(2^8) whose
// coefficients are fixed once per secret byte. coefficients[0] is always
// the secret byte itself.
type polynomial struct {
	coefficients []uint8
}

// makePolynomial builds a random polynomial of the given degree whose
// constant term is the secret byte.
func makePolynomial(secretByte uint8, degree int, randSource func([]byte) error) (polynomial, error) {
	p := polynomial{coefficients: make([]uint8, degree+1)}
	p.coefficients[0] = secretByte

	buf := make([]byte, degree)
	if err := randSource(buf); err != nil {
		return polynomial{}, err
	}
	copy(p.coefficients[1:], buf)
	return p, nil
}

// evaluate computes p(x) via Horner's method.
func (p polynomial) evaluate(x uint8) uint8 {
	if x == 0 {
		return p.coefficients[0]
	}
	result := p.coefficients[len(p.coefficients)-1]
	for i := len(p.coefficients) - 2; i >= 0; i-- {
		result = add(mult(result, x), p.coefficients[i])
	}
	return result
}

// Split divides secret into n shares such that any t of them reconstruct
// it, and fewer reveal nothing. Each returned share is len(secret)+1
// bytes: the y-values for every byte position followed by a trailing
// one-byte x-coordinate (1..n, never 0).
func Split(secret []byte, n, t int) ([][]byte, error) {
	if n < 2 || n > 255 {
		return nil, fmt.Errorf("shamir: parts must be between 2 and 255, got %d", n)
	}
	if t < 2 || t > n {
		return nil, fmt.Errorf("shamir: threshold must be between 2 and parts (%d), got %d", n, t)
	}
	if len(secret) == 0 {
		return nil, fmt.Errorf("shamir: cannot split an empty secret")
	}

	xCoords := make([]uint8, n)
	for i := 0; i < n; i++ {
		xCoords[i] = uint8(i + 1)
	}

	shares := make([][]byte, n)
	for i := range shares {
		shares[i] = make([]byte, len(secret)+ShareOverhead)
		shares[i][len(secret)] = xCoords[i]
	}

	randSource := func(buf []byte) error {
		_, err := rand.Read(buf)
		return err
	}

	for byteIdx, secretByte := range secret {
		p, err := makePolynomial(secretByte, t-1, randSource)
		if err != nil {
			return nil, fmt.Errorf("shamir: generating polynomial: %w", err)
		}
		for i, x := range xCoords {
			shares[i][byteIdx] = p.evaluate(x)
		}
	}

	return shares, nil
}

// Combine reconstructs the secret from a set of shares, each produced by
// Split with the same n. Fewer than t shares produce a random-looking
// but wrong result rather than an error: Combine has no way to tell
// threshold failure apart from a correct reconstruction, by design
// (callers verify the result some other way, e.g. entry.go's checksum).
func Combine(shares [][]byte) ([]byte, error) {
	if len(shares) < 2 {
		return nil, fmt.Errorf("shamir: need at least 2 shares to combine, got %d", len(shares))
	}

	shareLen := len(shares[0])
	if shareLen < ShareOverhead+1 {
		return nil, fmt.Errorf("shamir: share too short")
	}
	for _, s := range shares {
		if len(s) != shareLen {
			return nil, fmt.Errorf("shamir: shares have inconsistent length")
		}
	}

	xCoords := make([]uint8, len(shares))
	seen := make(map[uint8]bool, len(shares))
	for i, s := range shares {
		x := s[shareLen-1]
		if x == 0 {
			return nil, fmt.Errorf("shamir: invalid share x-coordinate 0")
		}
		if seen[x] {
			return nil, fmt.Errorf("shamir: duplicate share x-coordinate %d", x)
		}
		seen[x] = true
		xCoords[i] = x
	}

	secretLen := shareLen - ShareOverhead
	secret := make([]byte, secretLen)

	for byteIdx := 0; byteIdx < secretLen; byteIdx++ {
		yValues := make([]uint8, len(shares))
		for i, s := range shares {
			yValues[i] = s[byteIdx]
		}
		secret[byteIdx] = interpolateAtZero(xCoords, yValues)
	}

	return secret, nil
}

// interpolateAtZero evaluates the Lagrange interpolation polynomial
// through the points (xCoords[i], yValues[i]) at x=0, which recovers the
// polynomial's constant term: the original secret byte.
func interpolateAtZero(xCoords, yValues []uint8) uint8 {
	var result uint8
	for i := range xCoords {
		var num, den uint8 = 1, 1
		for j := range xCoords {
			if i == j {
				continue
			}
			num = mult(num, xCoords[j])
			den = mult(den, add(xCoords[i], xCoords[j]))
		}
		term := mult(yValues[i], div(num, den))
		result = add(result, term)
	}
	return result
}
