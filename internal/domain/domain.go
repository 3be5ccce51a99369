package domain

import "github.com/shopspring/decimal"

type Course struct {
	ID            string          `json:"id"`
	Title         string          `json:"title"`
	Description   string          `json:"description,omitempty"`
	Price         decimal.Decimal `json:"price"`
	Status        Status          `json:"status" enum:"Draft,Published,Archived"`
	DurationWeeks *int            `json:"duration_weeks,omitempty"`
	ImageURL      string          `json:"image_url,omitempty"`
	InstructorID  string          `json:"instructor_id"`
	CategoryIDs   []string        `json:"category_ids,omitempty"`
	Sections      []Section       `json:"sections,omitempty"`
	Version       int64           `json:"-"`
	CreatedAt     string          `json:"created_at" format:"date-time"`
	UpdatedAt     string          `json:"updated_at" format:"date-time"`
}

// CourseSummary is a list row with review aggregates.
type CourseSummary struct {
	Course
	AverageRating   float64 `json:"average_rating"`
	ReviewCount     int     `json:"review_count"`
	SectionCount    int     `json:"section_count"`
	EnrollmentCount int     `json:"enrollment_count"`
}

// EnrolledCourse is an enrollment joined with the course it points at.
type EnrolledCourse struct {
	Enrollment
	CourseTitle  string `json:"course_title"`
	CourseStatus Status `json:"course_status"`
	InstructorID string `json:"instructor_id"`
}

type Section struct {
	ID        string   `json:"id"`
	CourseID  string   `json:"course_id"`
	Title     string   `json:"title"`
	Order     int      `json:"order"`
	Status    Status   `json:"status" enum:"Draft,Published,Archived"`
	Lessons   []Lesson `json:"lessons,omitempty"`
	CreatedAt string   `json:"created_at" format:"date-time"`
	UpdatedAt string   `json:"updated_at" format:"date-time"`
}

type Lesson struct {
	ID        string         `json:"id"`
	SectionID string         `json:"section_id"`
	Title     string         `json:"title"`
	Order     int            `json:"order"`
	Status    Status         `json:"status" enum:"Draft,Published,Archived"`
	Blocks    []ContentBlock `json:"content_blocks,omitempty"`
	CreatedAt string         `json:"created_at" format:"date-time"`
	UpdatedAt string         `json:"updated_at" format:"date-time"`
}

type Category struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	CreatedAt   string `json:"created_at" format:"date-time"`
}

type Enrollment struct {
	ID                 string `json:"id"`
	UserID             string `json:"user_id"`
	CourseID           string `json:"course_id"`
	ProgressPercentage int    `json:"progress_percentage"`
	EnrolledAt         string `json:"enrolled_at" format:"date-time"`
}

type Review struct {
	ID           string `json:"id"`
	CourseID     string `json:"course_id"`
	UserID       string `json:"user_id"`
	UserFullName string `json:"user_full_name,omitempty"`
	Rating       int    `json:"rating"`
	Comment      string `json:"comment,omitempty"`
	CreatedAt    string `json:"created_at" format:"date-time"`
	UpdatedAt    string `json:"updated_at" format:"date-time"`
}

type User struct {
	ID        string   `json:"id"`
	FullName  string   `json:"full_name"`
	Email     string   `json:"email,omitempty"`
	Roles     []string `json:"roles"`
	CreatedAt string   `json:"created_at" format:"date-time"`
}

type APIKey struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	Name      string `json:"name,omitempty"`
	KeyHash   string `json:"-"`
	CreatedAt string `json:"created_at" format:"date-time"`
}

type Event struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts" format:"date-time"`
	Type       string `json:"type"`
	CourseID   string `json:"course_id,omitempty"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id,omitempty"`
	ActorID    string `json:"actor_id"`
	Payload    string `json:"payload"`
}

// Page is one slice of a paged listing.
type Page[T any] struct {
	Items    []T `json:"items"`
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
	Total    int `json:"total"`
}
