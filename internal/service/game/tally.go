package game

import (
	"maps"
	"slices"
)

// Tally 是某个行动的计票结果：目标 -> 票数
type Tally struct {
	Counts map[int]int `json:"counts"`
}

func newTally() *Tally {
	return &Tally{Counts: make(map[int]int)}
}

func (t *Tally) add(target int) {
	t.Counts[target]++
}

func (t *Tally) Total() int {
	total := 0
	for _, c := range t.Counts {
		total += c
	}

	return total
}

// Highest 返回得票最多的所有目标（升序），没有任何输入时返回空切片
func (t *Tally) Highest() []int {
	top := 0
	for _, c := range t.Counts {
		if c > top {
			top = c
		}
	}

	if top == 0 {
		return []int{}
	}

	highest := make([]int, 0, 1)
	for _, target := range slices.Sorted(maps.Keys(t.Counts)) {
		if t.Counts[target] == top {
			highest = append(highest, target)
		}
	}

	return highest
}
