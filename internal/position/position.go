// Package position implements the ordering policies shared by every
// positioned entity: sprint templates, goal templates, sprints and goals.
// Positions are 1-based and unique within their scope.
package position

import (
	"errors"
	"fmt"
)

// Policy selects how positions are assigned
type Policy int

const (
	// Batch numbers new items 1..n in input order
	Batch Policy = iota
	// Append places a single item after the current maximum
	Append
	// Explicit renumbers existing items to match a caller-supplied order
	Explicit
)

// ErrInvalidOrder is returned when a reorder list does not describe exactly
// the current children of a scope
var ErrInvalidOrder = errors.New("invalid order")

// Assignment is a computed position for one item
type Assignment struct {
	ID       int64
	Position int
}

// Sequence returns positions 1..n
func Sequence(n int) []int {
	if n <= 0 {
		return nil
	}
	out := make([]int, n)
	for i := range out {
		out[i] = i + 1
	}
	return out
}

// Next returns the position for an item appended to a scope whose highest
// position is maxExisting (0 for an empty scope).
func Next(maxExisting int) int {
	if maxExisting < 0 {
		maxExisting = 0
	}
	return maxExisting + 1
}

// Reorder validates that ordered is a permutation of current and returns each
// id's new position (index + 1).
func Reorder(current, ordered []int64) ([]Assignment, error) {
	if len(ordered) == 0 {
		return nil, fmt.Errorf("%w: ordered list is empty", ErrInvalidOrder)
	}

	known := make(map[int64]bool, len(current))
	for _, id := range current {
		known[id] = true
	}

	seen := make(map[int64]bool, len(ordered))
	out := make([]Assignment, 0, len(ordered))
	for i, id := range ordered {
		if seen[id] {
			return nil, fmt.Errorf("%w: id %d listed more than once", ErrInvalidOrder, id)
		}
		if !known[id] {
			return nil, fmt.Errorf("%w: id %d does not belong to this scope", ErrInvalidOrder, id)
		}
		seen[id] = true
		out = append(out, Assignment{ID: id, Position: i + 1})
	}

	if len(seen) != len(known) {
		return nil, fmt.Errorf("%w: expected %d ids, got %d", ErrInvalidOrder, len(known), len(seen))
	}
	return out, nil
}

// Assign applies policy to items. For Batch the ids are numbered in order; for
// Append only the first id is placed, after maxExisting; for Explicit, current
// must hold the scope's existing ids and items the requested order.
func Assign(policy Policy, items []int64, maxExisting int, current []int64) ([]Assignment, error) {
	switch policy {
	case Batch:
		positions := Sequence(len(items))
		out := make([]Assignment, len(items))
		for i, id := range items {
			out[i] = Assignment{ID: id, Position: positions[i]}
		}
		return out, nil
	case Append:
		if len(items) != 1 {
			return nil, fmt.Errorf("append places exactly one item, got %d", len(items))
		}
		return []Assignment{{ID: items[0], Position: Next(maxExisting)}}, nil
	case Explicit:
		return Reorder(current, items)
	}
	return nil, fmt.Errorf("unknown position policy %d", policy)
}
