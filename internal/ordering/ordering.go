// Package ordering partitions a question list into groups and computes the
// order in which each group's questions are presented.
package ordering

import (
	"fmt"
	"math/rand"
	"sort"
	"strconv"
	"unicode"

	"quiz-runner/internal/domain"
)

// Partition splits questions into contiguous groups of groupSize. The last
// group may be shorter. Names use 1-based positions in the input list.
func Partition(questions []domain.Question, groupSize int) ([]*domain.QuestionGroup, error) {
	if groupSize < 1 {
		return nil, fmt.Errorf("partition: group size %d must be at least 1", groupSize)
	}
	groups := make([]*domain.QuestionGroup, 0, (len(questions)+groupSize-1)/groupSize)
	for start := 0; start < len(questions); start += groupSize {
		end := start + groupSize
		if end > len(questions) {
			end = len(questions)
		}
		name := fmt.Sprintf("Questions %d-%d", start+1, end)
		groups = append(groups, domain.NewQuestionGroup(name, questions[start:end]))
	}
	return groups, nil
}

// ComputeWorkingOrder returns a Fisher-Yates permutation when shuffle is set,
// otherwise the questions stably sorted by display ID prefix then number.
func ComputeWorkingOrder(questions []domain.Question, shuffle bool, rnd *rand.Rand) []domain.Question {
	out := make([]domain.Question, len(questions))
	copy(out, questions)
	if shuffle {
		for i := len(out) - 1; i > 0; i-- {
			j := rnd.Intn(i + 1)
			out[i], out[j] = out[j], out[i]
		}
		return out
	}
	sort.SliceStable(out, func(i, j int) bool {
		return Less(out[i].SortKey(), out[j].SortKey())
	})
	return out
}

// Apply recomputes the whole working order of g.
func Apply(g *domain.QuestionGroup, shuffle bool, rnd *rand.Rand) {
	ordered := ComputeWorkingOrder(g.Questions, shuffle, rnd)
	g.WorkingOrder = g.WorkingOrder[:0]
	for _, q := range ordered {
		g.WorkingOrder = append(g.WorkingOrder, q.ID)
	}
}

// ReorderSuffix reorders the unattempted questions strictly after
// CurrentIndex. The prefix, the current question, and any question that
// already holds an attempt keep their positions.
func ReorderSuffix(g *domain.QuestionGroup, shuffle bool, rnd *rand.Rand) {
	var slots []int
	var pending []domain.Question
	for i := g.CurrentIndex + 1; i < len(g.WorkingOrder); i++ {
		id := g.WorkingOrder[i]
		if g.Attempts.Has(id) {
			continue
		}
		q, ok := g.Question(id)
		if !ok {
			continue
		}
		slots = append(slots, i)
		pending = append(pending, q)
	}
	reordered := ComputeWorkingOrder(pending, shuffle, rnd)
	for k, slot := range slots {
		g.WorkingOrder[slot] = reordered[k].ID
	}
}

// Less compares exam-paper style IDs such as "HIS1" and "POL72": alphabetic
// prefix first, then the numeric part.
func Less(a, b string) bool {
	pa, na := SplitKey(a)
	pb, nb := SplitKey(b)
	if pa != pb {
		return pa < pb
	}
	return na < nb
}

// SplitKey returns the leading letters of id and the first number after them.
// A missing number yields 0.
func SplitKey(id string) (string, int) {
	runes := []rune(id)
	i := 0
	for i < len(runes) && unicode.IsLetter(runes[i]) {
		i++
	}
	prefix := string(runes[:i])
	for i < len(runes) && !unicode.IsDigit(runes[i]) {
		i++
	}
	j := i
	for j < len(runes) && unicode.IsDigit(runes[j]) {
		j++
	}
	n, err := strconv.Atoi(string(runes[i:j]))
	if err != nil {
		n = 0
	}
	return prefix, n
}
