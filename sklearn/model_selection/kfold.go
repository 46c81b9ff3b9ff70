package model_selection

import (
	"math/rand/v2"
	"slices"

	"gonum.org/v1/gonum/mat"
)

// CVFold represents a single fold in cross-validation
type CVFold struct {
	TrainIndices []int
	TestIndices  []int
}

// StratifiedKFold implements stratified k-fold cross-validation
type StratifiedKFold struct {
	NSplits    int
	Shuffle    bool
	RandomSeed uint64
}

// NewStratifiedKFold creates a new stratified k-fold splitter
func NewStratifiedKFold(nSplits int, shuffle bool, randomSeed uint64) *StratifiedKFold {
	if nSplits < 2 {
		nSplits = 5
	}
	return &StratifiedKFold{
		NSplits:    nSplits,
		Shuffle:    shuffle,
		RandomSeed: randomSeed,
	}
}

// GetNSplits returns the number of splits
func (skf *StratifiedKFold) GetNSplits() int {
	return skf.NSplits
}

// Split generates stratified train/test indices for each fold.
// Classes are visited in ascending label order so the result only depends on
// the data and the seed.
func (skf *StratifiedKFold) Split(y mat.Vector) []CVFold {
	nSamples := y.Len()

	// Group indices by class
	classIndices := make(map[float64][]int)
	for i := 0; i < nSamples; i++ {
		label := y.AtVec(i)
		classIndices[label] = append(classIndices[label], i)
	}
	labels := make([]float64, 0, len(classIndices))
	for label := range classIndices {
		labels = append(labels, label)
	}
	slices.Sort(labels)

	if skf.Shuffle {
		r := rand.New(rand.NewPCG(skf.RandomSeed, skf.RandomSeed))
		for _, label := range labels {
			indices := classIndices[label]
			r.Shuffle(len(indices), func(i, j int) {
				indices[i], indices[j] = indices[j], indices[i]
			})
		}
	}

	folds := make([]CVFold, skf.NSplits)

	// Distribute each class across folds; the remainder of one class
	// continues where the previous class stopped so fold sizes stay balanced.
	next := 0
	for _, label := range labels {
		for _, idx := range classIndices[label] {
			folds[next].TestIndices = append(folds[next].TestIndices, idx)
			next = (next + 1) % skf.NSplits
		}
	}

	// Build train sets (all samples not in test)
	for i := range folds {
		slices.Sort(folds[i].TestIndices)
		folds[i].TrainIndices = complement(nSamples, folds[i].TestIndices)
	}

	return folds
}
