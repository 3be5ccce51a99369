package domain

import (
	"fmt"
	"strings"
)

// Status is the publish state shared by courses, sections and lessons.
type Status string

const (
	StatusDraft     Status = "Draft"
	StatusPublished Status = "Published"
	StatusArchived  Status = "Archived"
)

var statuses = []Status{StatusDraft, StatusPublished, StatusArchived}

// Statuses returns the valid values in declaration order.
func Statuses() []Status {
	out := make([]Status, len(statuses))
	copy(out, statuses)
	return out
}

// ParseStatus matches s case-insensitively against the three known values.
// Anything else is rejected with CodeInvalidStatus; there is no default.
func ParseStatus(s string) (Status, error) {
	trimmed := strings.TrimSpace(s)
	for _, st := range statuses {
		if strings.EqualFold(trimmed, string(st)) {
			return st, nil
		}
	}
	names := make([]string, len(statuses))
	for i, st := range statuses {
		names[i] = string(st)
	}
	return "", BadRequest(CodeInvalidStatus, fmt.Sprintf("invalid status %q; valid values are: %s", s, strings.Join(names, ", ")))
}

func (s Status) Valid() bool {
	for _, st := range statuses {
		if s == st {
			return true
		}
	}
	return false
}

func (s Status) String() string { return string(s) }
