package dice

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"math/rand"
)

// NewSeed generates a random seed using crypto/rand.
func NewSeed() (int64, error) {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("read random seed: %w", err)
	}
	return int64(binary.LittleEndian.Uint64(b[:])), nil
}

// NewSource returns a deterministic [0,1) source for seed.
// The source is not safe for concurrent use.
func NewSource(seed int64) func() float64 {
	return rand.New(rand.NewSource(seed)).Float64
}
