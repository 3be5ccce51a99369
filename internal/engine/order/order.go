// Package order plans position changes inside one sibling set.
//
// Planning never touches storage. Callers apply the returned shifts, stamp
// the touched entities, and persist them in the same transaction as the
// primary change. Shifts are returned in write-safe order: each one targets
// a slot that is free once every earlier shift has been written, so a
// unique (parent, order) index never sees a transient duplicate.
package order

import (
	"fmt"
	"sort"

	"courseline/internal/domain"
)

// Accessor adapts a sibling type to the planner.
type Accessor[T any] struct {
	Order    func(T) int
	SetOrder func(T, int)
	Touch    func(T)
}

// Shift moves one sibling from From to To.
type Shift[T any] struct {
	Item T
	From int
	To   int
}

// PlanInsert returns the order for a new sibling and the shifts that make room for it.
// A nil requested order appends after the current maximum.
func PlanInsert[T any](siblings []T, requested *int, acc Accessor[T]) (int, []Shift[T], error) {
	if requested == nil {
		next := 0
		for i, s := range siblings {
			if o := acc.Order(s); i == 0 || o+1 > next {
				next = o + 1
			}
		}
		return next, nil, nil
	}
	k := *requested
	if k < 0 {
		return 0, nil, negative(k)
	}
	var shifts []Shift[T]
	for _, s := range siblings {
		if o := acc.Order(s); o >= k {
			shifts = append(shifts, Shift[T]{Item: s, From: o, To: o + 1})
		}
	}
	sortShifts(shifts, +1)
	return k, shifts, nil
}

// PlanMove returns the shifts for moving one sibling from oldOrder to newOrder.
// siblings must exclude the moving entity.
func PlanMove[T any](siblings []T, oldOrder, newOrder int, acc Accessor[T]) ([]Shift[T], error) {
	if newOrder < 0 {
		return nil, negative(newOrder)
	}
	var (
		shifts []Shift[T]
		dir    int
	)
	switch {
	case newOrder > oldOrder:
		dir = -1
		for _, s := range siblings {
			if o := acc.Order(s); o > oldOrder && o <= newOrder {
				shifts = append(shifts, Shift[T]{Item: s, From: o, To: o - 1})
			}
		}
	case newOrder < oldOrder:
		dir = +1
		for _, s := range siblings {
			if o := acc.Order(s); o >= newOrder && o < oldOrder {
				shifts = append(shifts, Shift[T]{Item: s, From: o, To: o + 1})
			}
		}
	default:
		return nil, nil
	}
	sortShifts(shifts, dir)
	return shifts, nil
}

// PlanDelete returns the shifts that close the gap left by a removed sibling.
// siblings must exclude the removed entity.
func PlanDelete[T any](siblings []T, deletedOrder int, acc Accessor[T]) []Shift[T] {
	var shifts []Shift[T]
	for _, s := range siblings {
		if o := acc.Order(s); o > deletedOrder {
			shifts = append(shifts, Shift[T]{Item: s, From: o, To: o - 1})
		}
	}
	sortShifts(shifts, -1)
	return shifts
}

// Apply writes each shift into its item and stamps it.
func Apply[T any](shifts []Shift[T], acc Accessor[T]) {
	for _, sh := range shifts {
		acc.SetOrder(sh.Item, sh.To)
		if acc.Touch != nil {
			acc.Touch(sh.Item)
		}
	}
}

// Normalize assigns dense orders 0..n-1 following the current relative order.
// Ties keep their input position.
func Normalize[T any](items []T, acc Accessor[T]) {
	sort.SliceStable(items, func(i, j int) bool { return acc.Order(items[i]) < acc.Order(items[j]) })
	for i, it := range items {
		acc.SetOrder(it, i)
	}
}

// sortShifts orders +1 shifts from the top down and -1 shifts from the bottom up.
func sortShifts[T any](shifts []Shift[T], dir int) {
	sort.Slice(shifts, func(i, j int) bool {
		if dir > 0 {
			return shifts[i].From > shifts[j].From
		}
		return shifts[i].From < shifts[j].From
	})
}

func negative(k int) error {
	return domain.BadRequest(domain.CodeOrderNegative, fmt.Sprintf("order must be zero or greater, got %d", k))
}
