// Package lifecycle validates publish-state transitions and plans their cascades.
package lifecycle

import (
	"fmt"

	"courseline/internal/domain"
)

type Level string

const (
	LevelCourse  Level = "course"
	LevelSection Level = "section"
	LevelLesson  Level = "lesson"
)

// Change is one status write.
type Change struct {
	Level Level         `json:"level"`
	ID    string        `json:"id"`
	From  domain.Status `json:"from"`
	To    domain.Status `json:"to"`
}

// Plan holds the primary change and every descendant forced along with it.
type Plan struct {
	Target  Change   `json:"target"`
	Cascade []Change `json:"cascade"`
}

// Noop reports whether applying the plan would write nothing.
func (p Plan) Noop() bool {
	return p.Target.From == p.Target.To && len(p.Cascade) == 0
}

// Changes lists every write in top-down order, skipping an unchanged target.
func (p Plan) Changes() []Change {
	out := make([]Change, 0, len(p.Cascade)+1)
	if p.Target.From != p.Target.To {
		out = append(out, p.Target)
	}
	return append(out, p.Cascade...)
}

// PlanCourse plans a course transition. Courses have no ancestors, so it cannot fail.
// c must carry its sections and their lessons.
func PlanCourse(c domain.Course, to domain.Status) Plan {
	p := Plan{Target: Change{Level: LevelCourse, ID: c.ID, From: c.Status, To: to}}
	if forces(to) {
		p.Cascade = cascadeSections(c.Sections, to)
	}
	return p
}

// PlanSection plans a section transition under a course in courseStatus.
// s must carry its lessons.
func PlanSection(courseStatus domain.Status, s domain.Section, to domain.Status) (Plan, error) {
	if to == domain.StatusPublished && courseStatus != domain.StatusPublished {
		return Plan{}, notPublished("section", "course", courseStatus)
	}
	p := Plan{Target: Change{Level: LevelSection, ID: s.ID, From: s.Status, To: to}}
	if forces(to) {
		p.Cascade = cascadeLessons(s.Lessons, to)
	}
	return p, nil
}

// PlanLesson plans a lesson transition. Lessons are leaves of the status tree.
func PlanLesson(courseStatus, sectionStatus domain.Status, l domain.Lesson, to domain.Status) (Plan, error) {
	if to == domain.StatusPublished {
		if courseStatus != domain.StatusPublished {
			return Plan{}, notPublished("lesson", "course", courseStatus)
		}
		if sectionStatus != domain.StatusPublished {
			return Plan{}, notPublished("lesson", "section", sectionStatus)
		}
	}
	return Plan{Target: Change{Level: LevelLesson, ID: l.ID, From: l.Status, To: to}}, nil
}

// forces reports whether a transition to target pulls Published descendants along.
func forces(target domain.Status) bool {
	return target == domain.StatusDraft || target == domain.StatusArchived
}

func cascadeSections(sections []domain.Section, to domain.Status) []Change {
	var out []Change
	for _, s := range sections {
		if s.Status == domain.StatusPublished {
			out = append(out, Change{Level: LevelSection, ID: s.ID, From: s.Status, To: to})
		}
		out = append(out, cascadeLessons(s.Lessons, to)...)
	}
	return out
}

func cascadeLessons(lessons []domain.Lesson, to domain.Status) []Change {
	var out []Change
	for _, l := range lessons {
		if l.Status == domain.StatusPublished {
			out = append(out, Change{Level: LevelLesson, ID: l.ID, From: l.Status, To: to})
		}
	}
	return out
}

func notPublished(child, parent string, parentStatus domain.Status) error {
	return domain.BadRequest(domain.CodeParentNotPublished,
		fmt.Sprintf("cannot publish %s: parent %s is %s, not Published", child, parent, parentStatus))
}
