package service

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// WinnerPicker draws n distinct winners from candidates
type WinnerPicker interface {
	Pick(candidates []int64, n int) ([]int64, error)
}

// CryptoPicker samples uniformly without replacement using crypto/rand
type CryptoPicker struct{}

// Pick runs a partial Fisher-Yates shuffle over a copy of candidates
func (CryptoPicker) Pick(candidates []int64, n int) ([]int64, error) {
	if n < 0 {
		return nil, fmt.Errorf("cannot pick %d winners", n)
	}
	pool := make([]int64, len(candidates))
	copy(pool, candidates)
	if n > len(pool) {
		n = len(pool)
	}

	for i := 0; i < n; i++ {
		j, err := rand.Int(rand.Reader, big.NewInt(int64(len(pool)-i)))
		if err != nil {
			return nil, fmt.Errorf("random generation failed: %w", err)
		}
		k := i + int(j.Int64())
		pool[i], pool[k] = pool[k], pool[i]
	}
	return pool[:n], nil
}
