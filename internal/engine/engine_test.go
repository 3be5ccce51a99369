package engine_test

import (
	"context"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"courseline/internal/config"
	"courseline/internal/db"
	"courseline/internal/domain"
	"courseline/internal/engine"
	"courseline/internal/migrate"
	"courseline/internal/repo"
)

var (
	admin   = domain.Principal{UserID: "admin-1", Roles: []string{domain.RoleAdmin}}
	owner   = domain.Principal{UserID: "inst-1", Roles: []string{domain.RoleInstructor}}
	rival   = domain.Principal{UserID: "inst-2", Roles: []string{domain.RoleInstructor}}
	student = domain.Principal{UserID: "stu-1", Roles: []string{domain.RoleStudent}}
	other   = domain.Principal{UserID: "stu-2", Roles: []string{domain.RoleStudent}}
	anon    = domain.Principal{}
)

type testEnv struct {
	Engine engine.Engine
	Ctx    context.Context
	clock  *time.Time
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, migrate.Migrate(conn))

	log := logrus.New()
	log.SetOutput(io.Discard)
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	eng := engine.New(conn, config.Default())
	eng.Log = log
	eng.Now = func() time.Time { return clock }
	return testEnv{Engine: eng, Ctx: context.Background(), clock: &clock}
}

func (env testEnv) tick() {
	*env.clock = env.clock.Add(time.Minute)
}

func intp(v int) *int { return &v }

func (env testEnv) course(t *testing.T) domain.Course {
	t.Helper()
	c, err := env.Engine.CreateCourse(env.Ctx, owner, engine.CourseInput{Title: "Go in practice", Price: decimal.RequireFromString("49.90")})
	require.NoError(t, err)
	return c
}

func (env testEnv) section(t *testing.T, courseID, title string, at *int) domain.Section {
	t.Helper()
	s, err := env.Engine.CreateSection(env.Ctx, owner, courseID, engine.SectionInput{Title: title, Order: at})
	require.NoError(t, err)
	return s
}

// sectionOrders maps titles to stored orders.
func (env testEnv) sectionOrders(t *testing.T, courseID string) map[string]int {
	t.Helper()
	sections, err := env.Engine.Repo.ListSections(env.Ctx, nil, courseID)
	require.NoError(t, err)
	out := map[string]int{}
	for _, s := range sections {
		out[s.Title] = s.Order
	}
	return out
}

func requireDense(t *testing.T, orders map[string]int) {
	t.Helper()
	seen := make([]bool, len(orders))
	for title, o := range orders {
		require.Truef(t, o >= 0 && o < len(orders), "%s has order %d outside 0..%d", title, o, len(orders)-1)
		require.Falsef(t, seen[o], "order %d used twice", o)
		seen[o] = true
	}
}

func TestSectionOrdering(t *testing.T) {
	env := newTestEnv(t)
	c := env.course(t)
	a := env.section(t, c.ID, "a", nil)
	b := env.section(t, c.ID, "b", nil)
	env.section(t, c.ID, "c", nil)
	require.Equal(t, 0, a.Order)
	require.Equal(t, 1, b.Order)

	x := env.section(t, c.ID, "x", intp(1))
	require.Equal(t, 1, x.Order)
	require.Equal(t, map[string]int{"a": 0, "x": 1, "b": 2, "c": 3}, env.sectionOrders(t, c.ID))

	require.NoError(t, env.Engine.DeleteSection(env.Ctx, owner, c.ID, x.ID))
	require.Equal(t, map[string]int{"a": 0, "b": 1, "c": 2}, env.sectionOrders(t, c.ID))

	_, err := env.Engine.UpdateSection(env.Ctx, owner, c.ID, a.ID, engine.SectionUpdate{Order: intp(2)})
	require.NoError(t, err)
	require.Equal(t, map[string]int{"b": 0, "c": 1, "a": 2}, env.sectionOrders(t, c.ID))

	moved, err := env.Engine.UpdateSection(env.Ctx, owner, c.ID, a.ID, engine.SectionUpdate{Order: intp(0)})
	require.NoError(t, err)
	require.Equal(t, 0, moved.Order)
	require.Equal(t, map[string]int{"a": 0, "b": 1, "c": 2}, env.sectionOrders(t, c.ID))

	// Past the end lands on the last position.
	moved, err = env.Engine.UpdateSection(env.Ctx, owner, c.ID, a.ID, engine.SectionUpdate{Order: intp(40)})
	require.NoError(t, err)
	require.Equal(t, 2, moved.Order)
	requireDense(t, env.sectionOrders(t, c.ID))
}

func TestDeleteOnlySectionLeavesEmptySet(t *testing.T) {
	env := newTestEnv(t)
	c := env.course(t)
	s := env.section(t, c.ID, "only", nil)
	require.NoError(t, env.Engine.DeleteSection(env.Ctx, owner, c.ID, s.ID))
	require.Empty(t, env.sectionOrders(t, c.ID))

	again := env.section(t, c.ID, "again", nil)
	require.Equal(t, 0, again.Order)
}

func TestNegativeOrderRejected(t *testing.T) {
	env := newTestEnv(t)
	c := env.course(t)
	s := env.section(t, c.ID, "a", nil)

	_, err := env.Engine.CreateSection(env.Ctx, owner, c.ID, engine.SectionInput{Title: "neg", Order: intp(-1)})
	require.Equal(t, domain.CodeOrderNegative, domain.BadRequestCode(err))

	_, err = env.Engine.UpdateSection(env.Ctx, owner, c.ID, s.ID, engine.SectionUpdate{Order: intp(-3)})
	require.Equal(t, domain.CodeOrderNegative, domain.BadRequestCode(err))
	require.Equal(t, map[string]int{"a": 0}, env.sectionOrders(t, c.ID))
}

func TestMoveToCurrentOrderTouchesNothing(t *testing.T) {
	env := newTestEnv(t)
	c := env.course(t)
	env.section(t, c.ID, "a", nil)
	b := env.section(t, c.ID, "b", nil)
	env.section(t, c.ID, "c", nil)

	before, err := env.Engine.Repo.ListSections(env.Ctx, nil, c.ID)
	require.NoError(t, err)
	stored, err := env.Engine.Repo.GetCourse(env.Ctx, nil, c.ID)
	require.NoError(t, err)

	env.tick()
	_, err = env.Engine.UpdateSection(env.Ctx, owner, c.ID, b.ID, engine.SectionUpdate{Order: intp(1)})
	require.NoError(t, err)

	after, err := env.Engine.Repo.ListSections(env.Ctx, nil, c.ID)
	require.NoError(t, err)
	require.Equal(t, before, after)
	unchanged, err := env.Engine.Repo.GetCourse(env.Ctx, nil, c.ID)
	require.NoError(t, err)
	require.Equal(t, stored.Version, unchanged.Version)

	moves, err := env.Engine.Repo.LatestEvents(env.Ctx, repo.EventFilter{Type: "section.moved"})
	require.NoError(t, err)
	require.Empty(t, moves)
}

func TestMoveStampsShiftedSiblings(t *testing.T) {
	env := newTestEnv(t)
	c := env.course(t)
	a := env.section(t, c.ID, "a", nil)
	env.section(t, c.ID, "b", nil)
	env.section(t, c.ID, "c", nil)

	env.tick()
	_, err := env.Engine.UpdateSection(env.Ctx, owner, c.ID, a.ID, engine.SectionUpdate{Order: intp(1)})
	require.NoError(t, err)

	sections, err := env.Engine.Repo.ListSections(env.Ctx, nil, c.ID)
	require.NoError(t, err)
	stamped := env.clock.UTC().Format(time.RFC3339)
	for _, s := range sections {
		if s.Title == "c" {
			require.Equal(t, a.UpdatedAt, s.UpdatedAt)
			continue
		}
		require.Equal(t, stamped, s.UpdatedAt, s.Title)
	}
}

func TestConcurrentInsertsStayDense(t *testing.T) {
	env := newTestEnv(t)
	c := env.course(t)
	const n = 16
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			var at *int
			if i%2 == 0 {
				at = intp(0)
			}
			_, err := env.Engine.CreateSection(env.Ctx, owner, c.ID, engine.SectionInput{Title: fmt.Sprintf("s%02d", i), Order: at})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}
	orders := env.sectionOrders(t, c.ID)
	require.Len(t, orders, n)
	requireDense(t, orders)

	stored, err := env.Engine.Repo.GetCourse(env.Ctx, nil, c.ID)
	require.NoError(t, err)
	require.EqualValues(t, n, stored.Version)
}

func TestCanceledContextWritesNothing(t *testing.T) {
	env := newTestEnv(t)
	c := env.course(t)
	ctx, cancel := context.WithCancel(env.Ctx)
	cancel()
	_, err := env.Engine.CreateSection(ctx, owner, c.ID, engine.SectionInput{Title: "late"})
	require.ErrorIs(t, err, context.Canceled)
	require.Empty(t, env.sectionOrders(t, c.ID))
}

func TestArchivingCourseCascadesToPublishedDescendants(t *testing.T) {
	env := newTestEnv(t)
	c := env.course(t)
	pub := env.section(t, c.ID, "published", nil)
	draft := env.section(t, c.ID, "draft", nil)
	l1, err := env.Engine.CreateLesson(env.Ctx, owner, pub.ID, engine.LessonInput{Title: "live"})
	require.NoError(t, err)
	l2, err := env.Engine.CreateLesson(env.Ctx, owner, pub.ID, engine.LessonInput{Title: "wip"})
	require.NoError(t, err)

	_, err = env.Engine.UpdateCourseStatus(env.Ctx, owner, c.ID, "Published")
	require.NoError(t, err)
	_, err = env.Engine.UpdateSectionStatus(env.Ctx, owner, c.ID, pub.ID, "Published")
	require.NoError(t, err)
	_, err = env.Engine.UpdateLessonStatus(env.Ctx, owner, pub.ID, l1.ID, "Published")
	require.NoError(t, err)

	plan, err := env.Engine.UpdateCourseStatus(env.Ctx, owner, c.ID, "archived")
	require.NoError(t, err)
	require.Equal(t, domain.StatusArchived, plan.Target.To)
	require.Len(t, plan.Cascade, 2)

	r := env.Engine.Repo
	got, err := r.GetSection(env.Ctx, nil, pub.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusArchived, got.Status)
	got, err = r.GetSection(env.Ctx, nil, draft.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusDraft, got.Status)
	lesson, err := r.GetLesson(env.Ctx, nil, l1.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusArchived, lesson.Status)
	lesson, err = r.GetLesson(env.Ctx, nil, l2.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusDraft, lesson.Status)
}

func TestPublishingUnderDraftParentRollsBack(t *testing.T) {
	env := newTestEnv(t)
	c := env.course(t)
	s := env.section(t, c.ID, "intro", nil)
	l, err := env.Engine.CreateLesson(env.Ctx, owner, s.ID, engine.LessonInput{Title: "hello"})
	require.NoError(t, err)

	_, err = env.Engine.UpdateSectionStatus(env.Ctx, owner, c.ID, s.ID, "Published")
	require.True(t, domain.IsBadRequest(err))
	require.Equal(t, domain.CodeParentNotPublished, domain.BadRequestCode(err))

	_, err = env.Engine.UpdateCourseStatus(env.Ctx, owner, c.ID, "Published")
	require.NoError(t, err)
	_, err = env.Engine.UpdateLessonStatus(env.Ctx, owner, s.ID, l.ID, "Published")
	require.Equal(t, domain.CodeParentNotPublished, domain.BadRequestCode(err))

	got, err := env.Engine.Repo.GetSection(env.Ctx, nil, s.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusDraft, got.Status)
	lesson, err := env.Engine.Repo.GetLesson(env.Ctx, nil, l.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusDraft, lesson.Status)
	changes, err := env.Engine.Repo.LatestEvents(env.Ctx, repo.EventFilter{EntityKind: "section", Type: "section.status.changed"})
	require.NoError(t, err)
	require.Empty(t, changes)
}

func TestInvalidStatusListsValidValues(t *testing.T) {
	env := newTestEnv(t)
	c := env.course(t)
	_, err := env.Engine.UpdateCourseStatus(env.Ctx, owner, c.ID, "Live")
	require.Equal(t, domain.CodeInvalidStatus, domain.BadRequestCode(err))
	require.Contains(t, err.Error(), "Draft, Published, Archived")
}

func TestDraftCourseIsMaskedAsNotFound(t *testing.T) {
	env := newTestEnv(t)
	c := env.course(t)
	s := env.section(t, c.ID, "intro", nil)

	for _, p := range []domain.Principal{anon, student, rival} {
		_, err := env.Engine.GetCourse(env.Ctx, p, c.ID)
		require.True(t, domain.IsNotFound(err), p.UserID)
		require.False(t, domain.IsForbidden(err))
		_, err = env.Engine.GetLessonsBySection(env.Ctx, p, s.ID)
		require.True(t, domain.IsNotFound(err))
	}
	for _, p := range []domain.Principal{owner, admin} {
		got, err := env.Engine.GetCourse(env.Ctx, p, c.ID)
		require.NoError(t, err)
		require.Len(t, got.Sections, 1)
	}

	_, err := env.Engine.UpdateCourseStatus(env.Ctx, owner, c.ID, "Published")
	require.NoError(t, err)
	got, err := env.Engine.GetCourse(env.Ctx, student, c.ID)
	require.NoError(t, err)
	require.Empty(t, got.Sections)
	sections, err := env.Engine.GetSections(env.Ctx, student, c.ID)
	require.NoError(t, err)
	require.Empty(t, sections)
	_, err = env.Engine.GetSection(env.Ctx, student, c.ID, s.ID)
	require.True(t, domain.IsNotFound(err))
}

func TestListCoursesFiltersByVisibility(t *testing.T) {
	env := newTestEnv(t)
	draft := env.course(t)
	env.tick()
	published := env.course(t)
	_, err := env.Engine.UpdateCourseStatus(env.Ctx, owner, published.ID, "Published")
	require.NoError(t, err)

	page, err := env.Engine.ListCourses(env.Ctx, anon, engine.CourseQuery{})
	require.NoError(t, err)
	require.Equal(t, 1, page.Total)
	require.Equal(t, published.ID, page.Items[0].ID)

	page, err = env.Engine.ListCourses(env.Ctx, owner, engine.CourseQuery{})
	require.NoError(t, err)
	require.Equal(t, 2, page.Total)

	page, err = env.Engine.ListCourses(env.Ctx, rival, engine.CourseQuery{})
	require.NoError(t, err)
	require.Equal(t, 1, page.Total)

	page, err = env.Engine.ListCourses(env.Ctx, admin, engine.CourseQuery{PageSize: 1, Page: 2, SortBy: "created"})
	require.NoError(t, err)
	require.Equal(t, 2, page.Total)
	require.Len(t, page.Items, 1)
	require.Equal(t, published.ID, page.Items[0].ID)

	page, err = env.Engine.ListCourses(env.Ctx, admin, engine.CourseQuery{SortBy: "created", Desc: true})
	require.NoError(t, err)
	require.Equal(t, published.ID, page.Items[0].ID)
	require.Equal(t, draft.ID, page.Items[1].ID)

	_, err = env.Engine.ListCourses(env.Ctx, anon, engine.CourseQuery{SortBy: "popularity"})
	require.Equal(t, domain.CodeInvalidInput, domain.BadRequestCode(err))
}

func TestStudentCannotChangeSectionStatus(t *testing.T) {
	env := newTestEnv(t)
	c := env.course(t)
	s := env.section(t, c.ID, "intro", nil)
	before, err := env.Engine.Repo.GetCourse(env.Ctx, nil, c.ID)
	require.NoError(t, err)

	_, err = env.Engine.UpdateSectionStatus(env.Ctx, student, c.ID, s.ID, "Archived")
	require.True(t, domain.IsForbidden(err))

	_, err = env.Engine.UpdateSection(env.Ctx, rival, c.ID, s.ID, engine.SectionUpdate{Order: intp(0)})
	require.True(t, domain.IsForbidden(err))
	_, err = env.Engine.CreateCourse(env.Ctx, student, engine.CourseInput{Title: "mine"})
	require.True(t, domain.IsForbidden(err))

	got, err := env.Engine.Repo.GetSection(env.Ctx, nil, s.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusDraft, got.Status)
	require.Equal(t, s.UpdatedAt, got.UpdatedAt)
	after, err := env.Engine.Repo.GetCourse(env.Ctx, nil, c.ID)
	require.NoError(t, err)
	require.Equal(t, before.Version, after.Version)

	// Admins act on any course.
	_, err = env.Engine.UpdateSectionStatus(env.Ctx, admin, c.ID, s.ID, "Archived")
	require.NoError(t, err)
}

func TestUpdateCourseKeepsInstructor(t *testing.T) {
	env := newTestEnv(t)
	c := env.course(t)
	title := "  Go, revised  "
	price := decimal.RequireFromString("19.00")
	got, err := env.Engine.UpdateCourse(env.Ctx, admin, c.ID, engine.CourseUpdate{Title: &title, Price: &price})
	require.NoError(t, err)
	require.Equal(t, "Go, revised", got.Title)
	require.Equal(t, owner.UserID, got.InstructorID)
	require.True(t, price.Equal(got.Price))

	negative := decimal.RequireFromString("-1")
	_, err = env.Engine.UpdateCourse(env.Ctx, owner, c.ID, engine.CourseUpdate{Price: &negative})
	require.Equal(t, domain.CodeInvalidInput, domain.BadRequestCode(err))

	require.NoError(t, env.Engine.DeleteCourse(env.Ctx, owner, c.ID))
	_, err = env.Engine.GetCourse(env.Ctx, admin, c.ID)
	require.True(t, domain.IsNotFound(err))
}

func TestCourseCategories(t *testing.T) {
	env := newTestEnv(t)
	cat, err := env.Engine.CreateCategory(env.Ctx, admin, engine.CategoryInput{Name: "Backend"})
	require.NoError(t, err)
	_, err = env.Engine.CreateCategory(env.Ctx, admin, engine.CategoryInput{Name: "backend"})
	require.Equal(t, domain.CodeDuplicateCategory, domain.BadRequestCode(err))
	_, err = env.Engine.CreateCategory(env.Ctx, owner, engine.CategoryInput{Name: "Frontend"})
	require.True(t, domain.IsForbidden(err))

	_, err = env.Engine.CreateCourse(env.Ctx, owner, engine.CourseInput{Title: "x", CategoryIDs: []string{"nope"}})
	require.Equal(t, domain.CodeUnknownCategory, domain.BadRequestCode(err))

	c, err := env.Engine.CreateCourse(env.Ctx, owner, engine.CourseInput{Title: "APIs", CategoryIDs: []string{cat.ID, cat.ID}})
	require.NoError(t, err)
	require.Equal(t, []string{cat.ID}, c.CategoryIDs)

	page, err := env.Engine.ListCourses(env.Ctx, owner, engine.CourseQuery{CategoryID: cat.ID})
	require.NoError(t, err)
	require.Equal(t, 1, page.Total)

	require.NoError(t, env.Engine.DeleteCategory(env.Ctx, admin, cat.ID))
	stored, err := env.Engine.Repo.GetCourse(env.Ctx, nil, c.ID)
	require.NoError(t, err)
	require.Empty(t, stored.CategoryIDs)
}

func TestLessonBlocksStayDense(t *testing.T) {
	env := newTestEnv(t)
	c := env.course(t)
	s := env.section(t, c.ID, "intro", nil)
	minutes := 12
	l, err := env.Engine.CreateLesson(env.Ctx, owner, s.ID, engine.LessonInput{
		Title: "welcome",
		Blocks: []domain.ContentBlock{
			{Order: 7, Content: domain.VideoContent{VideoURL: "https://cdn.example.com/a.mp4", DurationMinutes: &minutes}},
			{Order: 3, Content: domain.TextContent{Text: "read me"}},
		},
	})
	require.NoError(t, err)
	require.Len(t, l.Blocks, 2)
	require.Equal(t, domain.ContentText, l.Blocks[0].Kind())
	require.Equal(t, 0, l.Blocks[0].Order)
	require.Equal(t, 1, l.Blocks[1].Order)

	first, err := env.Engine.AddContentBlock(env.Ctx, owner, l.ID, domain.TextContent{Text: "first"}, intp(0))
	require.NoError(t, err)
	require.Equal(t, 0, first.Order)

	_, err = env.Engine.AddContentBlock(env.Ctx, owner, l.ID, domain.VideoContent{VideoURL: "nope"}, nil)
	require.Equal(t, domain.CodeInvalidInput, domain.BadRequestCode(err))
	_, err = env.Engine.AddContentBlock(env.Ctx, student, l.ID, domain.TextContent{Text: "x"}, nil)
	require.True(t, domain.IsForbidden(err))

	updated, err := env.Engine.UpdateContentBlock(env.Ctx, owner, l.ID, first.ID, engine.BlockUpdate{
		Order:   intp(2),
		Content: domain.VideoContent{VideoURL: "https://cdn.example.com/b.mp4"},
	})
	require.NoError(t, err)
	require.Equal(t, 2, updated.Order)
	require.Equal(t, domain.ContentVideo, updated.Kind())

	blocks, err := env.Engine.Repo.ListBlocks(env.Ctx, nil, l.ID)
	require.NoError(t, err)
	require.Len(t, blocks, 3)
	for i, b := range blocks {
		require.Equal(t, i, b.Order)
	}
	require.NoError(t, env.Engine.DeleteContentBlock(env.Ctx, owner, l.ID, blocks[0].ID))
	blocks, err = env.Engine.Repo.ListBlocks(env.Ctx, nil, l.ID)
	require.NoError(t, err)
	require.Len(t, blocks, 2)
	for i, b := range blocks {
		require.Equal(t, i, b.Order)
	}

	got, err := env.Engine.GetLesson(env.Ctx, owner, s.ID, l.ID)
	require.NoError(t, err)
	require.Len(t, got.Blocks, 2)
}

func TestLessonOrderingWithinSection(t *testing.T) {
	env := newTestEnv(t)
	c := env.course(t)
	s := env.section(t, c.ID, "intro", nil)
	var ids []string
	for _, title := range []string{"a", "b", "c"} {
		l, err := env.Engine.CreateLesson(env.Ctx, owner, s.ID, engine.LessonInput{Title: title})
		require.NoError(t, err)
		ids = append(ids, l.ID)
	}
	_, err := env.Engine.UpdateLesson(env.Ctx, owner, s.ID, ids[2], engine.LessonUpdate{Order: intp(0)})
	require.NoError(t, err)
	require.NoError(t, env.Engine.DeleteLesson(env.Ctx, owner, s.ID, ids[1]))

	lessons, err := env.Engine.GetLessonsBySection(env.Ctx, owner, s.ID)
	require.NoError(t, err)
	require.Len(t, lessons, 2)
	require.Equal(t, "c", lessons[0].Title)
	require.Equal(t, 0, lessons[0].Order)
	require.Equal(t, "a", lessons[1].Title)
	require.Equal(t, 1, lessons[1].Order)

	_, err = env.Engine.GetLesson(env.Ctx, owner, s.ID, ids[1])
	require.True(t, domain.IsNotFound(err))
}

func TestEnrollmentAndReviews(t *testing.T) {
	env := newTestEnv(t)
	c := env.course(t)

	_, err := env.Engine.Enroll(env.Ctx, student, c.ID, student.UserID)
	require.True(t, domain.IsNotFound(err))
	_, err = env.Engine.Enroll(env.Ctx, admin, c.ID, student.UserID)
	require.Equal(t, domain.CodeCourseNotPublished, domain.BadRequestCode(err))
	_, err = env.Engine.UpdateCourseStatus(env.Ctx, owner, c.ID, "Published")
	require.NoError(t, err)

	_, err = env.Engine.Enroll(env.Ctx, student, c.ID, other.UserID)
	require.True(t, domain.IsForbidden(err))
	_, err = env.Engine.Enroll(env.Ctx, student, c.ID, student.UserID)
	require.NoError(t, err)
	_, err = env.Engine.Enroll(env.Ctx, student, c.ID, student.UserID)
	require.Equal(t, domain.CodeAlreadyEnrolled, domain.BadRequestCode(err))

	_, err = env.Engine.CreateReview(env.Ctx, other, c.ID, engine.ReviewInput{Rating: 4})
	require.Equal(t, domain.CodeNotEnrolled, domain.BadRequestCode(err))
	_, err = env.Engine.CreateReview(env.Ctx, student, c.ID, engine.ReviewInput{Rating: 9})
	require.Equal(t, domain.CodeInvalidInput, domain.BadRequestCode(err))
	rv, err := env.Engine.CreateReview(env.Ctx, student, c.ID, engine.ReviewInput{Rating: 4, Comment: "solid"})
	require.NoError(t, err)
	require.True(t, rv.CanEdit)
	_, err = env.Engine.CreateReview(env.Ctx, student, c.ID, engine.ReviewInput{Rating: 5})
	require.Equal(t, domain.CodeAlreadyReviewed, domain.BadRequestCode(err))

	page, err := env.Engine.ListReviews(env.Ctx, anon, c.ID, 0, 0)
	require.NoError(t, err)
	require.Equal(t, 1, page.Total)
	require.False(t, page.Items[0].CanEdit)
	require.False(t, page.Items[0].CanDelete)

	_, err = env.Engine.UpdateReview(env.Ctx, other, c.ID, rv.ID, engine.ReviewInput{Rating: 1})
	require.True(t, domain.IsForbidden(err))
	updated, err := env.Engine.UpdateReview(env.Ctx, student, c.ID, rv.ID, engine.ReviewInput{Rating: 5})
	require.NoError(t, err)
	require.Equal(t, 5, updated.Rating)

	dash, err := env.Engine.InstructorDashboard(env.Ctx, owner)
	require.NoError(t, err)
	require.Equal(t, 1, dash.TotalEnrollments)
	require.Equal(t, 1, dash.TotalReviews)
	require.InDelta(t, 5.0, dash.AverageRating, 0.001)

	sd, err := env.Engine.StudentDashboard(env.Ctx, student)
	require.NoError(t, err)
	require.Len(t, sd.Enrollments, 1)

	require.NoError(t, env.Engine.DeleteReview(env.Ctx, admin, c.ID, rv.ID))
	require.NoError(t, env.Engine.Unenroll(env.Ctx, student, c.ID, student.UserID))
	err = env.Engine.Unenroll(env.Ctx, student, c.ID, student.UserID)
	require.Equal(t, domain.CodeNotEnrolled, domain.BadRequestCode(err))

	// Hidden courses hide their reviews too.
	_, err = env.Engine.UpdateCourseStatus(env.Ctx, owner, c.ID, "Draft")
	require.NoError(t, err)
	_, err = env.Engine.ListReviews(env.Ctx, student, c.ID, 1, 10)
	require.True(t, domain.IsNotFound(err))
}

func TestEventsAreAdminOnly(t *testing.T) {
	env := newTestEnv(t)
	c := env.course(t)
	env.section(t, c.ID, "a", nil)

	_, err := env.Engine.ListEvents(env.Ctx, owner, repo.EventFilter{})
	require.True(t, domain.IsForbidden(err))
	evts, err := env.Engine.ListEvents(env.Ctx, admin, repo.EventFilter{CourseID: c.ID})
	require.NoError(t, err)
	require.Len(t, evts, 2)
	require.Equal(t, "section.created", evts[0].Type)
	require.Equal(t, owner.UserID, evts[0].ActorID)
}

func TestStaleCourseVersionConflicts(t *testing.T) {
	env := newTestEnv(t)
	c := env.course(t)
	before, err := env.Engine.Repo.GetCourse(env.Ctx, nil, c.ID)
	require.NoError(t, err)

	env.section(t, c.ID, "a", nil)
	after, err := env.Engine.Repo.GetCourse(env.Ctx, nil, c.ID)
	require.NoError(t, err)
	require.Equal(t, before.Version+1, after.Version)

	err = env.Engine.Repo.BumpCourseVersion(env.Ctx, nil, c.ID, before.Version)
	require.ErrorIs(t, err, domain.ErrConflict)

	current, err := env.Engine.Repo.GetCourse(env.Ctx, nil, c.ID)
	require.NoError(t, err)
	require.Equal(t, after.Version, current.Version)
}
