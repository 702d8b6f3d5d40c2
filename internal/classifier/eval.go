package classifier

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
)

// StratifiedSplit returns train/test index sets that keep the label proportions.
// The same labels, testSize and seed always give the same split. Every class keeps
// at least one row in the train set.
func StratifiedSplit(labels []int, testSize float64, seed int64) (train, test []int, err error) {
	if testSize <= 0 || testSize >= 1 {
		return nil, nil, fmt.Errorf("test size must be in (0,1), got %v", testSize)
	}
	n := len(labels)
	if n < 2 {
		return nil, nil, errors.New("need at least 2 rows to split")
	}

	byClass := make(map[int][]int)
	for i, y := range labels {
		byClass[y] = append(byClass[y], i)
	}
	classes := make([]int, 0, len(byClass))
	for c := range byClass {
		classes = append(classes, c)
	}
	sort.Ints(classes)

	// largest remainder allocation of ceil(testSize*n) test rows
	nTest := int(math.Ceil(testSize*float64(n) - 1e-9))
	alloc := make(map[int]int, len(classes))
	type rem struct {
		class int
		frac  float64
	}
	rems := make([]rem, 0, len(classes))
	given := 0
	for _, c := range classes {
		exact := float64(nTest) * float64(len(byClass[c])) / float64(n)
		alloc[c] = int(math.Floor(exact))
		given += alloc[c]
		rems = append(rems, rem{class: c, frac: exact - math.Floor(exact)})
	}
	sort.SliceStable(rems, func(i, j int) bool { return rems[i].frac > rems[j].frac })
	for i := 0; given < nTest && i < len(rems); i++ {
		alloc[rems[i].class]++
		given++
	}

	rng := rand.New(rand.NewPCG(uint64(seed), 0x9e3779b97f4a7c15))
	for _, c := range classes {
		idx := byClass[c]
		rng.Shuffle(len(idx), func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })
		k := min(alloc[c], len(idx)-1)
		test = append(test, idx[:k]...)
		train = append(train, idx[k:]...)
	}
	if len(test) == 0 {
		return nil, nil, errors.New("test split is empty")
	}
	sort.Ints(train)
	sort.Ints(test)
	return train, test, nil
}

// Score computes precision, recall and F1 for the positive class (1).
// Undefined ratios are reported as 0.
func Score(yTrue, yPred []int) (precision, recall, f1 float64) {
	var tp, fp, fn float64
	for i := range yTrue {
		switch {
		case yPred[i] == 1 && yTrue[i] == 1:
			tp++
		case yPred[i] == 1:
			fp++
		case yTrue[i] == 1:
			fn++
		}
	}
	if tp+fp > 0 {
		precision = tp / (tp + fp)
	}
	if tp+fn > 0 {
		recall = tp / (tp + fn)
	}
	if precision+recall > 0 {
		f1 = 2 * precision * recall / (precision + recall)
	}
	return precision, recall, f1
}
