package model

import (
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"
)

// checkXY validates a training set: non-empty, rectangular, aligned labels.
func checkXY(prefix string, X [][]float64, y []int) error {
	if len(X) == 0 {
		return fmt.Errorf("%s: empty X", prefix)
	}
	if len(y) != len(X) {
		return fmt.Errorf("%s: X and y length mismatch (%d vs %d)", prefix, len(X), len(y))
	}
	p := len(X[0])
	if p == 0 {
		return fmt.Errorf("%s: X has no features", prefix)
	}
	for i := range X {
		if len(X[i]) != p {
			return fmt.Errorf("%s: inconsistent number of features in X rows", prefix)
		}
	}
	return nil
}

// uniqueSorted returns the distinct labels of y in ascending order.
func uniqueSorted(y []int) []int {
	seen := make(map[int]struct{}, 2)
	out := make([]int, 0, 2)
	for _, v := range y {
		if _, ok := seen[v]; !ok {
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	sort.Ints(out)
	return out
}

// predictRows calls fn for every row index in [0, n), from at most jobs
// goroutines that each take one contiguous chunk. jobs <= 1 runs inline. fn
// must only write to row-indexed outputs.
func predictRows(n, jobs int, fn func(i int)) {
	if jobs <= 1 || n < 2 {
		for i := 0; i < n; i++ {
			fn(i)
		}
		return
	}
	jobs = min(jobs, n)
	chunk := (n + jobs - 1) / jobs

	var g errgroup.Group
	g.SetLimit(jobs)
	for start := 0; start < n; start += chunk {
		end := min(start+chunk, n)
		g.Go(func() error {
			for i := start; i < end; i++ {
				fn(i)
			}
			return nil
		})
	}
	_ = g.Wait()
}

// argmax returns the first index holding the largest value, so ties resolve
// to the lowest class.
func argmax(v []float64) int {
	best := 0
	for i := 1; i < len(v); i++ {
		if v[i] > v[best] {
			best = i
		}
	}
	return best
}
