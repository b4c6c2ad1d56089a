package shamir

import (
	"bytes"
	"testing"
)

func TestSplitCombineRoundTrip(t *testing.T) {
	secret := []byte("a reasonably long secret payload, several blocks long")

	shares, err := Split(secret, 7, 4)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if len(shares) != 7 {
		t.Fatalf("got %d shares, want 7", len(shares))
	}
	for _, s := range shares {
		if len(s) != len(secret)+ShareOverhead {
			t.Fatalf("share length = %d, want %d", len(s), len(secret)+ShareOverhead)
		}
	}

	got, err := Combine(shares[1:5])
	if err != nil {
		t.Fatalf("Combine: %v", err)
	}
	if !bytes.Equal(got, secret) {
		t.Errorf("Combine() = %q, want %q", got, secret)
	}
}

func TestCombineAnyThresholdSubset(t *testing.T) {
	secret := []byte("short")
	shares, err := Split(secret, 5, 3)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}

	subsets := [][]int{{0, 1, 2}, {0, 2, 4}, {1, 3, 4}, {2, 3, 4}}
	for _, idxs := range subsets {
		subset := make([][]byte, len(idxs))
		for i, idx := range idxs {
			subset[i] = shares[idx]
		}
		got, err := Combine(subset)
		if err != nil {
			t.Fatalf("Combine(%v): %v", idxs, err)
		}
		if !bytes.Equal(got, secret) {
			t.Errorf("Combine(%v) = %q, want %q", idxs, got, secret)
		}
	}
}

func TestCombineBelowThresholdDoesNotMatchSecret(t *testing.T) {
	secret := []byte("top secret material")
	shares, err := Split(secret, 7, 5)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}

	got, err := Combine(shares[:2])
	if err != nil {
		t.Fatalf("Combine with too few shares errored instead of returning junk: %v", err)
	}
	if bytes.Equal(got, secret) {
		t.Error("combining fewer than the threshold reproduced the exact secret, which should be astronomically unlikely")
	}
}

func TestSplitRejectsBadParameters(t *testing.T) {
	tests := []struct {
		name string
		n, t int
	}{
		{"threshold exceeds parts", 3, 4},
		{"threshold too low", 5, 1},
		{"parts too low", 1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Split([]byte("x"), tt.n, tt.t); err == nil {
				t.Errorf("Split(n=%d, t=%d) should have failed", tt.n, tt.t)
			}
		})
	}
}

func TestCombineRejectsDuplicateXCoordinates(t *testing.T) {
	secret := []byte("abc")
	shares, err := Split(secret, 4, 2)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	dup := [][]byte{shares[0], shares[0]}
	if _, err := Combine(dup); err == nil {
		t.Error("expected an error combining duplicate shares")
	}
}

func TestDistinctSecretsProduceDistinctShares(t *testing.T) {
	s1, err := Split([]byte("secret-one"), 3, 2)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	s2, err := Split([]byte("secret-two"), 3, 2)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if bytes.Equal(s1[0], s2[0]) {
		t.Error("shares of two different secrets collided, which should never happen")
	}
}
