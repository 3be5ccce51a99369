package engine

import (
	"context"
	"database/sql"

	"courseline/internal/domain"
	"courseline/internal/engine/order"
)

// siblings binds one ordered child type to its storage writes so the same
// insert, move and delete flow serves sections, lessons and content blocks.
type siblings[T any] struct {
	acc   order.Accessor[T]
	id    func(T) string
	write func(ctx context.Context, tx *sql.Tx, id string, order int, ts string) error
	park  func(ctx context.Context, tx *sql.Tx, id string) error
}

func (e Engine) sectionSiblings(ts string) siblings[*domain.Section] {
	return siblings[*domain.Section]{
		acc: order.Accessor[*domain.Section]{
			Order:    func(s *domain.Section) int { return s.Order },
			SetOrder: func(s *domain.Section, o int) { s.Order = o },
			Touch:    func(s *domain.Section) { s.UpdatedAt = ts },
		},
		id:    func(s *domain.Section) string { return s.ID },
		write: e.Repo.SetSectionOrder,
		park:  e.Repo.ParkSection,
	}
}

func (e Engine) lessonSiblings(ts string) siblings[*domain.Lesson] {
	return siblings[*domain.Lesson]{
		acc: order.Accessor[*domain.Lesson]{
			Order:    func(l *domain.Lesson) int { return l.Order },
			SetOrder: func(l *domain.Lesson, o int) { l.Order = o },
			Touch:    func(l *domain.Lesson) { l.UpdatedAt = ts },
		},
		id:    func(l *domain.Lesson) string { return l.ID },
		write: e.Repo.SetLessonOrder,
		park:  e.Repo.ParkLesson,
	}
}

func (e Engine) blockSiblings(ts string) siblings[*domain.ContentBlock] {
	return siblings[*domain.ContentBlock]{
		acc: order.Accessor[*domain.ContentBlock]{
			Order:    func(b *domain.ContentBlock) int { return b.Order },
			SetOrder: func(b *domain.ContentBlock, o int) { b.Order = o },
			Touch:    func(b *domain.ContentBlock) { b.UpdatedAt = ts },
		},
		id:    func(b *domain.ContentBlock) string { return b.ID },
		write: e.Repo.SetBlockOrder,
		park:  e.Repo.ParkBlock,
	}
}

func (s siblings[T]) persist(ctx context.Context, tx *sql.Tx, shifts []order.Shift[T], ts string) error {
	order.Apply(shifts, s.acc)
	for _, sh := range shifts {
		if err := s.write(ctx, tx, s.id(sh.Item), sh.To, ts); err != nil {
			return err
		}
	}
	return nil
}

// makeRoom plans an insert and writes the shifts. The new row is written by the caller.
func (s siblings[T]) makeRoom(ctx context.Context, tx *sql.Tx, all []T, requested *int, ts string) (int, int, error) {
	assigned, shifts, err := order.PlanInsert(all, requested, s.acc)
	if err != nil {
		return 0, 0, err
	}
	if err := s.persist(ctx, tx, shifts, ts); err != nil {
		return 0, 0, err
	}
	return assigned, len(shifts), nil
}

// move relocates item among others (which exclude item). Targets past the last
// position land on the last position. It reports false when nothing moved.
func (s siblings[T]) move(ctx context.Context, tx *sql.Tx, item T, others []T, newOrder int, ts string) (bool, int, error) {
	old := s.acc.Order(item)
	if newOrder > len(others) {
		newOrder = len(others)
	}
	shifts, err := order.PlanMove(others, old, newOrder, s.acc)
	if err != nil {
		return false, 0, err
	}
	if newOrder == old {
		return false, 0, nil
	}
	if err := s.park(ctx, tx, s.id(item)); err != nil {
		return false, 0, err
	}
	if err := s.persist(ctx, tx, shifts, ts); err != nil {
		return false, 0, err
	}
	s.acc.SetOrder(item, newOrder)
	s.acc.Touch(item)
	if err := s.write(ctx, tx, s.id(item), newOrder, ts); err != nil {
		return false, 0, err
	}
	return true, len(shifts), nil
}

// closeGap compacts the survivors after the row at deletedOrder is gone.
func (s siblings[T]) closeGap(ctx context.Context, tx *sql.Tx, remaining []T, deletedOrder int, ts string) (int, error) {
	shifts := order.PlanDelete(remaining, deletedOrder, s.acc)
	return len(shifts), s.persist(ctx, tx, shifts, ts)
}

// without returns pointers to every item except the one with id.
func without[T any](items []T, id string, idOf func(*T) string) []*T {
	out := make([]*T, 0, len(items))
	for i := range items {
		if idOf(&items[i]) != id {
			out = append(out, &items[i])
		}
	}
	return out
}

// find returns a pointer to the item with id, or nil.
func find[T any](items []T, id string, idOf func(*T) string) *T {
	for i := range items {
		if idOf(&items[i]) == id {
			return &items[i]
		}
	}
	return nil
}

func sectionKey(s *domain.Section) string    { return s.ID }
func lessonKey(l *domain.Lesson) string      { return l.ID }
func blockKey(b *domain.ContentBlock) string { return b.ID }
