package courselinesdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Client is a minimal Courseline HTTP API client.
type Client struct {
	BaseURL     string
	BasePath    string
	APIKey      string
	BearerToken string
	HTTPClient  *http.Client
	Timeout     time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL:  baseURL,
		BasePath: "/v1",
		Timeout:  10 * time.Second,
	}
}

// Course represents the API course model (partial).
type Course struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Description   string    `json:"description,omitempty"`
	Price         string    `json:"price"`
	Status        string    `json:"status"`
	InstructorID  string    `json:"instructor_id"`
	CategoryIDs   []string  `json:"category_ids"`
	Sections      []Section `json:"sections,omitempty"`
	AverageRating *float64  `json:"average_rating,omitempty"`
	ReviewCount   *int      `json:"review_count,omitempty"`
}

// CoursePage is one page of a course listing.
type CoursePage struct {
	Items    []Course `json:"items"`
	Page     int      `json:"page"`
	PageSize int      `json:"page_size"`
	Total    int      `json:"total"`
}

// Section represents an ordered section of a course.
type Section struct {
	ID       string   `json:"id"`
	CourseID string   `json:"course_id"`
	Title    string   `json:"title"`
	Order    int      `json:"order"`
	Status   string   `json:"status"`
	Lessons  []Lesson `json:"lessons,omitempty"`
}

// Lesson represents an ordered lesson of a section.
type Lesson struct {
	ID        string         `json:"id"`
	SectionID string         `json:"section_id"`
	Title     string         `json:"title"`
	Order     int            `json:"order"`
	Status    string         `json:"status"`
	Blocks    []ContentBlock `json:"content_blocks,omitempty"`
}

// ContentBlock is a Text or Video block; Type selects which fields are set.
type ContentBlock struct {
	ID              string `json:"id"`
	LessonID        string `json:"lesson_id"`
	Order           int    `json:"order"`
	Type            string `json:"type"`
	Text            string `json:"text,omitempty"`
	VideoURL        string `json:"video_url,omitempty"`
	ThumbnailURL    string `json:"thumbnail_url,omitempty"`
	Transcription   string `json:"transcription,omitempty"`
	DurationMinutes *int   `json:"duration_minutes,omitempty"`
}

// StatusChange is one entity moved by a status transition.
type StatusChange struct {
	Level string `json:"level"`
	ID    string `json:"id"`
	From  string `json:"from"`
	To    string `json:"to"`
}

// StatusResult lists the target change and its cascade.
type StatusResult struct {
	Target  StatusChange   `json:"target"`
	Cascade []StatusChange `json:"cascade"`
}

// Enrollment represents a user's enrollment in a course.
type Enrollment struct {
	ID                 string `json:"id"`
	UserID             string `json:"user_id"`
	CourseID           string `json:"course_id"`
	ProgressPercentage int    `json:"progress_percentage"`
}

// Review represents a course review.
type Review struct {
	ID       string `json:"id"`
	CourseID string `json:"course_id"`
	UserID   string `json:"user_id"`
	Rating   int    `json:"rating"`
	Comment  string `json:"comment,omitempty"`
	CanEdit  bool   `json:"can_edit"`
}

// Event represents an audit log entry.
type Event struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts"`
	Type       string `json:"type"`
	CourseID   string `json:"course_id,omitempty"`
	EntityID   string `json:"entity_id"`
	EntityKind string `json:"entity_kind"`
	ActorID    string `json:"actor_id"`
}

// ErrorBody is the error envelope returned by the API.
type ErrorBody struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
	Err        ErrorBody
}

func (e *APIError) Error() string {
	if e.Err.Code != "" {
		return fmt.Sprintf("api error: status=%d code=%s message=%s", e.StatusCode, e.Err.Code, e.Err.Message)
	}
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// CreateCourse creates a draft course owned by the caller.
func (c *Client) CreateCourse(ctx context.Context, title, description, price string) (Course, error) {
	body := map[string]any{
		"title":       title,
		"description": description,
		"price":       price,
	}
	var resp Course
	err := c.do(ctx, http.MethodPost, "courses", body, &resp)
	return resp, err
}

// GetCourse fetches a course with its visible hierarchy.
func (c *Client) GetCourse(ctx context.Context, id string) (Course, error) {
	var resp Course
	err := c.do(ctx, http.MethodGet, "courses/"+url.PathEscape(id), nil, &resp)
	return resp, err
}

// ListCourses returns one page of visible courses matching search.
func (c *Client) ListCourses(ctx context.Context, search string, page, pageSize int) (CoursePage, error) {
	q := url.Values{}
	if search != "" {
		q.Set("search", search)
	}
	if page > 0 {
		q.Set("page", strconv.Itoa(page))
	}
	if pageSize > 0 {
		q.Set("page_size", strconv.Itoa(pageSize))
	}
	endpoint := "courses"
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}
	var resp CoursePage
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

// SetCourseStatus transitions a course and returns the applied changes.
func (c *Client) SetCourseStatus(ctx context.Context, id, status string) (StatusResult, error) {
	var resp StatusResult
	err := c.do(ctx, http.MethodPatch, fmt.Sprintf("courses/%s/status", url.PathEscape(id)), map[string]any{"status": status}, &resp)
	return resp, err
}

// CreateSection inserts a section; a nil order appends it.
func (c *Client) CreateSection(ctx context.Context, courseID, title string, order *int) (Section, error) {
	body := map[string]any{"title": title}
	if order != nil {
		body["order"] = *order
	}
	var resp Section
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("courses/%s/sections", url.PathEscape(courseID)), body, &resp)
	return resp, err
}

// MoveSection moves a section to order, shifting its siblings.
func (c *Client) MoveSection(ctx context.Context, courseID, sectionID string, order int) (Section, error) {
	var resp Section
	endpoint := fmt.Sprintf("courses/%s/sections/%s", url.PathEscape(courseID), url.PathEscape(sectionID))
	err := c.do(ctx, http.MethodPut, endpoint, map[string]any{"order": order}, &resp)
	return resp, err
}

// ListSections returns the visible sections of a course in order.
func (c *Client) ListSections(ctx context.Context, courseID string) ([]Section, error) {
	var resp []Section
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("courses/%s/sections", url.PathEscape(courseID)), nil, &resp)
	return resp, err
}

// SetSectionStatus transitions a section.
func (c *Client) SetSectionStatus(ctx context.Context, courseID, sectionID, status string) (StatusResult, error) {
	var resp StatusResult
	endpoint := fmt.Sprintf("courses/%s/sections/%s/status", url.PathEscape(courseID), url.PathEscape(sectionID))
	err := c.do(ctx, http.MethodPatch, endpoint, map[string]any{"status": status}, &resp)
	return resp, err
}

// CreateLesson inserts a lesson into a section; a nil order appends it.
func (c *Client) CreateLesson(ctx context.Context, sectionID, title string, order *int) (Lesson, error) {
	body := map[string]any{"title": title}
	if order != nil {
		body["order"] = *order
	}
	var resp Lesson
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("sections/%s/lessons", url.PathEscape(sectionID)), body, &resp)
	return resp, err
}

// AddTextBlock appends a Text block to a lesson, or inserts it at order.
func (c *Client) AddTextBlock(ctx context.Context, lessonID, text string, order *int) (ContentBlock, error) {
	body := map[string]any{"type": "Text", "text": text}
	if order != nil {
		body["order"] = *order
	}
	var resp ContentBlock
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("lessons/%s/blocks", url.PathEscape(lessonID)), body, &resp)
	return resp, err
}

// Enroll enrolls the caller in a published course.
func (c *Client) Enroll(ctx context.Context, courseID string) (Enrollment, error) {
	var resp Enrollment
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("courses/%s/enrollment", url.PathEscape(courseID)), map[string]any{}, &resp)
	return resp, err
}

// CreateReview reviews a course as the caller.
func (c *Client) CreateReview(ctx context.Context, courseID string, rating int, comment string) (Review, error) {
	body := map[string]any{"rating": rating, "comment": comment}
	var resp Review
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("courses/%s/reviews", url.PathEscape(courseID)), body, &resp)
	return resp, err
}

// Events returns recent audit events, optionally scoped to a course.
func (c *Client) Events(ctx context.Context, courseID string, limit int) ([]Event, error) {
	q := url.Values{}
	if courseID != "" {
		q.Set("course_id", courseID)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	endpoint := "events"
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}
	var resp []Event
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	target := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, target, &buf)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	switch {
	case c.BearerToken != "":
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	case c.APIKey != "":
		req.Header.Set("X-Api-Key", c.APIKey)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		apiErr := &APIError{StatusCode: resp.StatusCode, Body: string(b)}
		var envelope struct {
			Error ErrorBody `json:"error"`
		}
		if json.Unmarshal(b, &envelope) == nil {
			apiErr.Err = envelope.Error
		}
		return apiErr
	}
	if out != nil && resp.StatusCode != http.StatusNoContent {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) base() string {
	base := strings.TrimRight(c.BaseURL, "/")
	if p := strings.Trim(c.BasePath, "/"); p != "" {
		base += "/" + p
	}
	return base
}
