// Package model_selection provides dataset splitting and cross-validation
// helpers in the style of scikit-learn's sklearn.model_selection.
package model_selection

import (
	"fmt"
	"math"
	"math/rand/v2"
	"slices"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/ventureml/pkg/errors"
)

// Split is the result of TrainTestSplit. Index slices refer to rows of the
// original matrix and are sorted ascending.
type Split struct {
	XTrain, XTest *mat.Dense
	YTrain, YTest *mat.VecDense

	TrainIndex []int
	TestIndex  []int
}

type splitConfig struct {
	testSize    float64
	randomState uint64
	stratify    bool
}

// SplitOption is a functional option for TrainTestSplit.
type SplitOption func(*splitConfig)

// WithTestSize sets the fraction of rows held out for testing (default 0.2).
func WithTestSize(size float64) SplitOption {
	return func(c *splitConfig) { c.testSize = size }
}

// WithRandomState sets the shuffle seed (default 42).
func WithRandomState(seed uint64) SplitOption {
	return func(c *splitConfig) { c.randomState = seed }
}

// WithStratify toggles class-proportional splitting (default true).
func WithStratify(stratify bool) SplitOption {
	return func(c *splitConfig) { c.stratify = stratify }
}

// TrainTestSplit partitions X and y into train and test sets.
//
// The test set has ceil(testSize·n) rows. With stratification (the default)
// the per-class test counts are proportional to class frequencies, rounded by
// largest remainder, and y must be binary 0/1 with at least two rows per class.
// The same inputs and seed always yield the same partition.
func TrainTestSplit(X mat.Matrix, y mat.Vector, opts ...SplitOption) (*Split, error) {
	cfg := splitConfig{testSize: 0.2, randomState: 42, stratify: true}
	for _, opt := range opts {
		opt(&cfg)
	}

	n, _ := X.Dims()
	if n == 0 {
		return nil, errors.NewModelError("TrainTestSplit", "empty data", errors.ErrEmptyData)
	}
	if y.Len() != n {
		return nil, errors.NewDimensionError("TrainTestSplit", n, y.Len(), 0)
	}
	if cfg.testSize <= 0 || cfg.testSize >= 1 {
		return nil, errors.NewValidationError("test_size", "must be in (0, 1)", cfg.testSize)
	}

	nTest := int(math.Ceil(cfg.testSize * float64(n)))
	rng := rand.New(rand.NewPCG(cfg.randomState, cfg.randomState))

	var test []int
	if cfg.stratify {
		groups, err := binaryGroups(y)
		if err != nil {
			return nil, err
		}
		alloc, err := allocate(nTest, n, []int{len(groups[0]), len(groups[1])})
		if err != nil {
			return nil, err
		}
		for k, idx := range groups {
			rng.Shuffle(len(idx), func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })
			test = append(test, idx[:alloc[k]]...)
		}
	} else {
		if nTest >= n {
			return nil, errors.NewValueError("TrainTestSplit", "test set would leave no training rows")
		}
		perm := rng.Perm(n)
		test = perm[:nTest]
	}

	sort.Ints(test)
	train := complement(n, test)

	return &Split{
		XTrain:     SelectRows(X, train),
		XTest:      SelectRows(X, test),
		YTrain:     SelectVec(y, train),
		YTest:      SelectVec(y, test),
		TrainIndex: train,
		TestIndex:  test,
	}, nil
}

// binaryGroups returns the row indices of class 0 and class 1.
func binaryGroups(y mat.Vector) ([2][]int, error) {
	var groups [2][]int
	for i := 0; i < y.Len(); i++ {
		switch y.AtVec(i) {
		case 0:
			groups[0] = append(groups[0], i)
		case 1:
			groups[1] = append(groups[1], i)
		default:
			return groups, errors.Wrapf(errors.ErrNotBinary, "row %d has label %v", i, y.AtVec(i))
		}
	}
	for k, g := range groups {
		if len(g) < 2 {
			return groups, errors.NewValueError("TrainTestSplit",
				fmt.Sprintf("the least populated class in y has only %d member(s) (class %d), need at least 2", len(g), k))
		}
	}
	return groups, nil
}

// allocate splits nTest test rows across classes in proportion to counts
// using the largest remainder method. Every class keeps at least one row on
// each side of the split.
func allocate(nTest, n int, counts []int) ([]int, error) {
	if nTest < len(counts) || n-nTest < len(counts) {
		return nil, errors.NewValueError("TrainTestSplit",
			"test_size leaves fewer rows than classes on one side of the split")
	}

	alloc := make([]int, len(counts))
	type rem struct {
		class int
		frac  float64
	}
	rems := make([]rem, len(counts))
	assigned := 0
	for k, c := range counts {
		exact := float64(nTest) * float64(c) / float64(n)
		alloc[k] = int(math.Floor(exact))
		rems[k] = rem{class: k, frac: exact - float64(alloc[k])}
		assigned += alloc[k]
	}
	slices.SortStableFunc(rems, func(a, b rem) int {
		switch {
		case a.frac > b.frac:
			return -1
		case a.frac < b.frac:
			return 1
		default:
			return 0
		}
	})
	for i := 0; assigned < nTest; i++ {
		alloc[rems[i%len(rems)].class]++
		assigned++
	}

	// keep both sides non-empty for every class
	for k := range alloc {
		for alloc[k] < 1 {
			alloc[k]++
			alloc[largest(alloc, k)]--
		}
		for alloc[k] > counts[k]-1 {
			alloc[k]--
			alloc[smallestShare(alloc, counts, k)]++
		}
	}
	return alloc, nil
}

func largest(alloc []int, skip int) int {
	best := -1
	for k := range alloc {
		if k == skip || alloc[k] <= 1 {
			continue
		}
		if best < 0 || alloc[k] > alloc[best] {
			best = k
		}
	}
	if best < 0 {
		return skip
	}
	return best
}

func smallestShare(alloc, counts []int, skip int) int {
	best := -1
	for k := range alloc {
		if k == skip || alloc[k] >= counts[k]-1 {
			continue
		}
		if best < 0 || alloc[k] < alloc[best] {
			best = k
		}
	}
	if best < 0 {
		return skip
	}
	return best
}

func complement(n int, sorted []int) []int {
	out := make([]int, 0, n-len(sorted))
	j := 0
	for i := 0; i < n; i++ {
		if j < len(sorted) && sorted[j] == i {
			j++
			continue
		}
		out = append(out, i)
	}
	return out
}

// SelectRows copies the given rows of X into a new matrix.
func SelectRows(X mat.Matrix, rows []int) *mat.Dense {
	_, c := X.Dims()
	if len(rows) == 0 {
		return &mat.Dense{}
	}
	out := mat.NewDense(len(rows), c, nil)
	for i, r := range rows {
		for j := 0; j < c; j++ {
			out.Set(i, j, X.At(r, j))
		}
	}
	return out
}

// SelectVec copies the given elements of y into a new vector.
func SelectVec(y mat.Vector, idx []int) *mat.VecDense {
	if len(idx) == 0 {
		return &mat.VecDense{}
	}
	out := mat.NewVecDense(len(idx), nil)
	for i, r := range idx {
		out.SetVec(i, y.AtVec(r))
	}
	return out
}
