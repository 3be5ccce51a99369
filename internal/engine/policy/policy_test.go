package policy

import (
	"testing"

	"github.com/stretchr/testify/require"

	"courseline/internal/domain"
)

var (
	admin     = domain.Principal{UserID: "admin", Roles: []string{domain.RoleAdmin}}
	owner     = domain.Principal{UserID: "inst-1", Roles: []string{domain.RoleInstructor}}
	otherInst = domain.Principal{UserID: "inst-2", Roles: []string{domain.RoleInstructor}}
	student   = domain.Principal{UserID: "stud-1", Roles: []string{domain.RoleStudent}}
	anonymous = domain.Principal{}
)

const (
	draft     = domain.StatusDraft
	published = domain.StatusPublished
	archived  = domain.StatusArchived
)

func TestCanViewCourse(t *testing.T) {
	cases := []struct {
		name  string
		p     domain.Principal
		chain Chain
		want  bool
	}{
		{"admin sees draft", admin, Chain{InstructorID: "inst-1", Course: draft}, true},
		{"owner sees draft", owner, Chain{InstructorID: "inst-1", Course: draft}, true},
		{"other instructor blocked from draft", otherInst, Chain{InstructorID: "inst-1", Course: draft}, false},
		{"student sees published", student, Chain{InstructorID: "inst-1", Course: published}, true},
		{"anonymous blocked from archived", anonymous, Chain{InstructorID: "inst-1", Course: archived}, false},
		{"student with matching id is not owner", domain.Principal{UserID: "inst-1", Roles: []string{domain.RoleStudent}}, Chain{InstructorID: "inst-1", Course: draft}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, CanViewCourse(tc.p, tc.chain))
			require.Equal(t, tc.want, CanViewReviewListForCourse(tc.p, tc.chain))
		})
	}
}

func TestCanViewSectionRequiresWholeChain(t *testing.T) {
	require.False(t, CanViewSection(student, Chain{InstructorID: "inst-1", Course: draft, Section: published}))
	require.False(t, CanViewSection(student, Chain{InstructorID: "inst-1", Course: published, Section: draft}))
	require.True(t, CanViewSection(student, Chain{InstructorID: "inst-1", Course: published, Section: published}))
	require.True(t, CanViewSection(owner, Chain{InstructorID: "inst-1", Course: draft, Section: draft}))
}

func TestCanViewLessonRequiresWholeChain(t *testing.T) {
	full := Chain{InstructorID: "inst-1", Course: published, Section: published, Lesson: published}
	require.True(t, CanViewLesson(anonymous, full))

	hidden := full
	hidden.Section = archived
	require.False(t, CanViewLesson(anonymous, hidden))
	require.True(t, CanViewLesson(admin, hidden))

	hidden = full
	hidden.Lesson = draft
	require.False(t, CanViewLesson(otherInst, hidden))
	require.True(t, CanViewLesson(owner, hidden))
}

func TestCanEditDelegatesToCourseInstructor(t *testing.T) {
	require.True(t, CanEditCourse(admin, "inst-1"))
	require.True(t, CanEditSection(owner, "inst-1"))
	require.True(t, CanEditLesson(owner, "inst-1"))
	require.False(t, CanEditSection(otherInst, "inst-1"))
	require.False(t, CanEditLesson(student, "inst-1"))
	require.False(t, CanEditCourse(anonymous, ""))
}

func TestCanPerformEnrollmentAction(t *testing.T) {
	require.True(t, CanPerformEnrollmentAction(student, "stud-1"))
	require.False(t, CanPerformEnrollmentAction(student, "stud-2"))
	require.False(t, CanPerformEnrollmentAction(owner, "inst-1"))
	require.True(t, CanPerformEnrollmentAction(admin, "stud-2"))
}

func TestReviewPredicates(t *testing.T) {
	require.True(t, CanModifyReview(student, "stud-1"))
	require.False(t, CanModifyReview(student, "stud-2"))
	require.True(t, CanModifyReview(admin, "stud-2"))
	require.True(t, CanPerformReviewAction(student))
	require.False(t, CanPerformReviewAction(owner))
	require.False(t, CanPerformReviewAction(anonymous))
}

func TestCourseCreationAndCategories(t *testing.T) {
	require.True(t, CanCreateCourse(owner))
	require.True(t, CanCreateCourse(admin))
	require.False(t, CanCreateCourse(student))
	require.True(t, CanManageCategories(admin))
	require.False(t, CanManageCategories(owner))
}
