package order

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"

	"courseline/internal/domain"
)

type item struct {
	id      string
	order   int
	touched int
}

var acc = Accessor[*item]{
	Order:    func(i *item) int { return i.order },
	SetOrder: func(i *item, o int) { i.order = o },
	Touch:    func(i *item) { i.touched++ },
}

func items(orders ...int) []*item {
	out := make([]*item, len(orders))
	for i, o := range orders {
		out[i] = &item{id: string(rune('a' + i)), order: o}
	}
	return out
}

func orders(in []*item) []int {
	out := make([]int, 0, len(in))
	for _, it := range in {
		out = append(out, it.order)
	}
	sort.Ints(out)
	return out
}

func without(in []*item, drop *item) []*item {
	var out []*item
	for _, it := range in {
		if it != drop {
			out = append(out, it)
		}
	}
	return out
}

func TestPlanInsertAppends(t *testing.T) {
	got, shifts, err := PlanInsert[*item](nil, nil, acc)
	require.NoError(t, err)
	require.Equal(t, 0, got)
	require.Empty(t, shifts)

	got, shifts, err = PlanInsert(items(2, 0, 1), nil, acc)
	require.NoError(t, err)
	require.Equal(t, 3, got)
	require.Empty(t, shifts)
}

func TestPlanInsertAtPositionShiftsTail(t *testing.T) {
	sibs := items(0, 1, 2)
	k := 1
	got, shifts, err := PlanInsert(sibs, &k, acc)
	require.NoError(t, err)
	require.Equal(t, 1, got)
	require.Len(t, shifts, 2)
	// top-down so the unique slot is always free
	require.Equal(t, 2, shifts[0].From)
	require.Equal(t, 1, shifts[1].From)

	Apply(shifts, acc)
	require.Equal(t, []int{0, 2, 3}, orders(sibs))
	require.Equal(t, 0, sibs[0].touched)
	require.Equal(t, 1, sibs[1].touched)
}

func TestPlanInsertBeyondEndLeavesGap(t *testing.T) {
	k := 7
	got, shifts, err := PlanInsert(items(0, 1), &k, acc)
	require.NoError(t, err)
	require.Equal(t, 7, got)
	require.Empty(t, shifts)
}

func TestNegativeOrderRejected(t *testing.T) {
	k := -1
	_, _, err := PlanInsert(items(0), &k, acc)
	require.Equal(t, domain.CodeOrderNegative, domain.BadRequestCode(err))

	_, err = PlanMove(items(0), 1, -3, acc)
	require.Equal(t, domain.CodeOrderNegative, domain.BadRequestCode(err))
}

func TestPlanMoveDown(t *testing.T) {
	sibs := items(0, 1, 2, 3)
	moving := sibs[0]
	shifts, err := PlanMove(without(sibs, moving), 0, 2, acc)
	require.NoError(t, err)
	Apply(shifts, acc)
	moving.order = 2
	require.Equal(t, []int{0, 1, 2, 3}, orders(sibs))
	require.Equal(t, 0, sibs[1].order)
	require.Equal(t, 1, sibs[2].order)
	require.Equal(t, 3, sibs[3].order)
	require.Equal(t, 0, sibs[3].touched)
}

func TestPlanMoveUp(t *testing.T) {
	sibs := items(0, 1, 2, 3)
	moving := sibs[3]
	shifts, err := PlanMove(without(sibs, moving), 3, 1, acc)
	require.NoError(t, err)
	require.Equal(t, 2, shifts[0].From)
	Apply(shifts, acc)
	moving.order = 1
	require.Equal(t, []int{0, 1, 2, 3}, orders(sibs))
	require.Equal(t, 0, sibs[0].order)
	require.Equal(t, 2, sibs[1].order)
	require.Equal(t, 3, sibs[2].order)
}

func TestPlanMoveSameOrderIsNoop(t *testing.T) {
	sibs := items(0, 1, 2)
	shifts, err := PlanMove(without(sibs, sibs[1]), 1, 1, acc)
	require.NoError(t, err)
	require.Empty(t, shifts)
	for _, s := range sibs {
		require.Zero(t, s.touched)
	}
}

func TestPlanDeleteClosesGap(t *testing.T) {
	sibs := items(0, 1, 2)
	rest := without(sibs, sibs[1])
	shifts := PlanDelete(rest, 1, acc)
	Apply(shifts, acc)
	require.Equal(t, []int{0, 1}, orders(rest))

	require.Empty(t, PlanDelete[*item](nil, 0, acc))
}

func TestNormalize(t *testing.T) {
	in := items(5, 2, 2, 9)
	Normalize(in, acc)
	require.Equal(t, []int{0, 1, 2, 3}, orders(in))
	require.Equal(t, "b", in[0].id)
	require.Equal(t, "c", in[1].id)
}

func TestDensityHoldsUnderRandomOperations(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	var sibs []*item
	next := 0
	for step := 0; step < 2000; step++ {
		n := len(sibs)
		switch op := rng.Intn(3); {
		case op == 0 || n == 0:
			var req *int
			if rng.Intn(2) == 0 {
				k := rng.Intn(n + 1)
				req = &k
			}
			assigned, shifts, err := PlanInsert(sibs, req, acc)
			require.NoError(t, err)
			Apply(shifts, acc)
			sibs = append(sibs, &item{id: string(rune(next)), order: assigned})
			next++
		case op == 1:
			moving := sibs[rng.Intn(n)]
			to := rng.Intn(n)
			shifts, err := PlanMove(without(sibs, moving), moving.order, to, acc)
			require.NoError(t, err)
			Apply(shifts, acc)
			moving.order = to
		default:
			gone := sibs[rng.Intn(n)]
			sibs = without(sibs, gone)
			Apply(PlanDelete(sibs, gone.order, acc), acc)
		}
		got := orders(sibs)
		for i, o := range got {
			require.Equal(t, i, o, "step %d: orders %v", step, got)
		}
	}
}
