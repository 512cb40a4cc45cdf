package battery

import (
	"math"
	"math/rand"
	"sort"

	"goregime/domain/core"
	"goregime/internal/numeric"
)

// PermutationParams configures a blocked label-permutation test. There are
// no defaults here; the config layer supplies every value.
type PermutationParams struct {
	Permutations int
	BlockSize    int // 0 means one global block
	GroupA       string
	GroupB       string
}

// NullSummary is the observed statistic against its permutation null
type NullSummary struct {
	Observed core.OptFloat
	Mean     core.OptFloat
	Std      core.OptFloat // population std of the null draws
	Z        core.OptFloat
	P        core.OptFloat
	Draws    int
}

// MissingBlockKey is the block of observations without a block key
const MissingBlockKey = -1

// Block is the set of observation indices whose labels are shuffled together
type Block struct {
	Key     int
	Indices []int
}

// BuildBlocks buckets observations by (key - min key) / blockSize. With
// blockSize <= 0 every observation lands in block 0. Observations without a
// key share block -1 and never mix with keyed blocks. Blocks come back in
// ascending key order, which fixes the order of random draws.
func BuildBlocks(keys []core.OptInt, blockSize int) []Block {
	if blockSize <= 0 {
		all := make([]int, len(keys))
		for i := range all {
			all[i] = i
		}
		return []Block{{Key: 0, Indices: all}}
	}

	anchor, found := 0, false
	for _, k := range keys {
		if k.Valid && (!found || k.Value < anchor) {
			anchor, found = k.Value, true
		}
	}

	byKey := make(map[int][]int)
	for i, k := range keys {
		b := MissingBlockKey
		if k.Valid {
			b = (k.Value - anchor) / blockSize
		}
		byKey[b] = append(byKey[b], i)
	}

	blocks := make([]Block, 0, len(byKey))
	for key, idx := range byKey {
		blocks = append(blocks, Block{Key: key, Indices: idx})
	}
	sort.Slice(blocks, func(i, j int) bool { return blocks[i].Key < blocks[j].Key })
	return blocks
}

// DiffAMinusB returns mean(values labeled a) - mean(values labeled b), or
// missing when either group is empty. Other labels are ignored.
func DiffAMinusB(values []float64, labels []string, a, b string) core.OptFloat {
	var sumA, sumB float64
	var nA, nB int
	for i, v := range values {
		switch labels[i] {
		case a:
			sumA += v
			nA++
		case b:
			sumB += v
			nB++
		}
	}
	if nA == 0 || nB == 0 {
		return core.Missing()
	}
	return core.Some(sumA/float64(nA) - sumB/float64(nB))
}

// PTwoSided is the add-one Monte Carlo p-value
// (1 + #{|null| >= |observed|}) / (1 + len(null)). It is never zero and is
// missing when there are no null draws.
func PTwoSided(observed float64, null []float64) core.OptFloat {
	if len(null) == 0 {
		return core.Missing()
	}
	extreme := 0
	for _, d := range null {
		if math.Abs(d) >= math.Abs(observed) {
			extreme++
		}
	}
	return core.Some(float64(1+extreme) / float64(1+len(null)))
}

// SummarizeNull reports mean/std/z/p of null draws against observed
func SummarizeNull(observed core.OptFloat, null []float64) NullSummary {
	s := NullSummary{Observed: observed, Draws: len(null)}
	s.Mean = numeric.Mean(null)
	s.Std = numeric.StdPopulation(null)
	if !observed.Valid {
		return s
	}
	if s.Mean.Valid && s.Std.Valid && s.Std.Value > 0 {
		s.Z = core.Some((observed.Value - s.Mean.Value) / s.Std.Value)
	}
	s.P = PTwoSided(observed.Value, null)
	return s
}

// PermutationReferee runs the term-level group-difference permutation test
type PermutationReferee struct {
	params PermutationParams
}

// NewPermutationReferee creates a referee for the given parameters
func NewPermutationReferee(params PermutationParams) *PermutationReferee {
	return &PermutationReferee{params: params}
}

// Params returns the referee configuration
func (pr *PermutationReferee) Params() PermutationParams {
	return pr.params
}

// Test computes the observed difference and its blocked permutation null.
// Labels are shuffled within each block, blocks visited in ascending key
// order, permutation by permutation, all from rng. When the observed
// statistic is undefined no draws are consumed.
func (pr *PermutationReferee) Test(values []float64, labels []string, keys []core.OptInt, rng *rand.Rand) NullSummary {
	observed := DiffAMinusB(values, labels, pr.params.GroupA, pr.params.GroupB)
	if !observed.Valid || pr.params.Permutations <= 0 {
		return NullSummary{Observed: observed}
	}

	blocks := BuildBlocks(keys, pr.params.BlockSize)
	perm := make([]string, len(labels))
	null := make([]float64, 0, pr.params.Permutations)

	for iter := 0; iter < pr.params.Permutations; iter++ {
		copy(perm, labels)
		for _, b := range blocks {
			shuffleAt(perm, b.Indices, rng)
		}
		if d := DiffAMinusB(values, perm, pr.params.GroupA, pr.params.GroupB); d.Valid {
			null = append(null, d.Value)
		}
	}

	return SummarizeNull(observed, null)
}

// shuffleAt Fisher-Yates shuffles labels at the given positions
func shuffleAt(labels []string, idx []int, rng *rand.Rand) {
	for i := len(idx) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		labels[idx[i]], labels[idx[j]] = labels[idx[j]], labels[idx[i]]
	}
}
