package domain

import (
	"errors"
	"fmt"
)

// BadRequest codes.
const (
	CodeOrderNegative      = "order_negative"
	CodeInvalidStatus      = "invalid_status"
	CodeParentNotPublished = "parent_not_published"
	CodeCourseNotPublished = "course_not_published"
	CodeAlreadyEnrolled    = "already_enrolled"
	CodeNotEnrolled        = "not_enrolled"
	CodeAlreadyReviewed    = "already_reviewed"
	CodeInvalidInput       = "invalid_input"
	CodeUnknownCategory    = "unknown_category"
	CodeDuplicateCategory  = "duplicate_category"
	CodeInvalidContent     = "invalid_content"
)

// ErrConflict reports a lost race on a course aggregate.
var ErrConflict = errors.New("course was modified concurrently; retry the request")

// NotFoundError covers both absent entities and entities the caller may not see.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// BadRequestError is invalid input to the engine itself.
type BadRequestError struct {
	Code    string
	Message string
}

func (e BadRequestError) Error() string {
	return e.Message
}

// AuthorizationError is raised when an identified principal lacks permission to write.
type AuthorizationError struct {
	Action string
}

func (e AuthorizationError) Error() string {
	return fmt.Sprintf("not authorized to %s", e.Action)
}

func NotFound(entity, id string) error {
	return NotFoundError{Entity: entity, ID: id}
}

func BadRequest(code, message string) error {
	return BadRequestError{Code: code, Message: message}
}

func Forbidden(action string) error {
	return AuthorizationError{Action: action}
}

func IsNotFound(err error) bool {
	var nf NotFoundError
	return errors.As(err, &nf)
}

func IsBadRequest(err error) bool {
	var br BadRequestError
	return errors.As(err, &br)
}

func IsForbidden(err error) bool {
	var ae AuthorizationError
	return errors.As(err, &ae)
}

// BadRequestCode returns the code of a wrapped BadRequestError, or "".
func BadRequestCode(err error) string {
	var br BadRequestError
	if errors.As(err, &br) {
		return br.Code
	}
	return ""
}
