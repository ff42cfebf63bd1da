package training

import (
	"math"
	"math/rand"
)

// Split shuffles indices with a fixed seed and holds out round(n*testFraction)
// of them, at least one when testFraction > 0, always leaving one for training.
func Split(n int, testFraction float64, seed int64) (train, test []int) {
	if n == 0 {
		return nil, nil
	}
	k := int(math.Round(float64(n) * testFraction))
	if testFraction > 0 && k == 0 {
		k = 1
	}
	if k > n-1 {
		k = n - 1
	}
	if k < 0 {
		k = 0
	}
	perm := rand.New(rand.NewSource(seed)).Perm(n)
	return perm[k:], perm[:k]
}
