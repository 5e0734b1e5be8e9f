package distribution

import (
	"errors"
	"math"
)

// ErrAmountOverflow is returned when an amount does not fit in uint64 smallest units.
var ErrAmountOverflow = errors.New("amount overflows uint64")

// Chunk partitions items into consecutive batches of at most size, preserving order.
func Chunk[T any](items []T, size int) [][]T {
	if size <= 0 {
		size = 1
	}
	batches := make([][]T, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		batches = append(batches, items[start:end])
	}
	return batches
}

// Amount converts a whole token quantity to smallest units: tokens x 10^decimals.
func Amount(tokens uint64, decimals uint8) (uint64, error) {
	amount := tokens
	for range decimals {
		if amount > math.MaxUint64/10 {
			return 0, ErrAmountOverflow
		}
		amount *= 10
	}
	return amount, nil
}
