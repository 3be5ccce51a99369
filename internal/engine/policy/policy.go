// Package policy holds the read-visibility and write-authorization predicates.
// Every function here is pure.
package policy

import "courseline/internal/domain"

// Chain is the status of an entity and its ancestors, plus the owning course's instructor.
// Levels that do not apply are left empty.
type Chain struct {
	InstructorID string
	Course       domain.Status
	Section      domain.Status
	Lesson       domain.Status
}

func isOwner(p domain.Principal, instructorID string) bool {
	return p.IsInstructor() && p.UserID != "" && p.UserID == instructorID
}

func CanViewCourse(p domain.Principal, c Chain) bool {
	if p.IsAdmin() || isOwner(p, c.InstructorID) {
		return true
	}
	return c.Course == domain.StatusPublished
}

func CanViewSection(p domain.Principal, c Chain) bool {
	if p.IsAdmin() || isOwner(p, c.InstructorID) {
		return true
	}
	return c.Section == domain.StatusPublished && c.Course == domain.StatusPublished
}

func CanViewLesson(p domain.Principal, c Chain) bool {
	if p.IsAdmin() || isOwner(p, c.InstructorID) {
		return true
	}
	return c.Lesson == domain.StatusPublished &&
		c.Section == domain.StatusPublished &&
		c.Course == domain.StatusPublished
}

func CanViewReviewListForCourse(p domain.Principal, c Chain) bool {
	return CanViewCourse(p, c)
}

// CanEditCourse also gates sections and lessons; pass the course's instructor id.
func CanEditCourse(p domain.Principal, instructorID string) bool {
	if p.IsAdmin() {
		return true
	}
	return p.UserID != "" && p.UserID == instructorID
}

func CanEditSection(p domain.Principal, courseInstructorID string) bool {
	return CanEditCourse(p, courseInstructorID)
}

func CanEditLesson(p domain.Principal, courseInstructorID string) bool {
	return CanEditCourse(p, courseInstructorID)
}

func CanCreateCourse(p domain.Principal) bool {
	return p.UserID != "" && (p.IsAdmin() || p.IsInstructor())
}

func CanPerformEnrollmentAction(p domain.Principal, targetUserID string) bool {
	if p.IsAdmin() {
		return true
	}
	return p.IsStudent() && p.UserID != "" && p.UserID == targetUserID
}

func CanPerformReviewAction(p domain.Principal) bool {
	return p.UserID != "" && p.IsStudent()
}

func CanModifyReview(p domain.Principal, reviewOwnerID string) bool {
	if p.IsAdmin() {
		return true
	}
	return p.UserID != "" && p.UserID == reviewOwnerID
}

func CanManageCategories(p domain.Principal) bool {
	return p.IsAdmin()
}
