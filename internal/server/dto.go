package server

import (
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"courseline/internal/domain"
	"courseline/internal/engine"
	"courseline/internal/engine/lifecycle"
)

// Request payloads

type CategoryRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

type CreateCourseRequest struct {
	Title         string   `json:"title"`
	Description   string   `json:"description,omitempty"`
	Price         string   `json:"price,omitempty" example:"49.90"`
	DurationWeeks *int     `json:"duration_weeks,omitempty"`
	ImageURL      string   `json:"image_url,omitempty"`
	CategoryIDs   []string `json:"category_ids,omitempty"`
}

type UpdateCourseRequest struct {
	Title         *string   `json:"title,omitempty"`
	Description   *string   `json:"description,omitempty"`
	Price         *string   `json:"price,omitempty" example:"49.90"`
	DurationWeeks *int      `json:"duration_weeks,omitempty"`
	ImageURL      *string   `json:"image_url,omitempty"`
	CategoryIDs   *[]string `json:"category_ids,omitempty"`
}

type StatusRequest struct {
	Status string `json:"status" example:"Published"`
}

type SectionRequest struct {
	Title string `json:"title"`
	Order *int   `json:"order,omitempty"`
}

type UpdateOrderedRequest struct {
	Title *string `json:"title,omitempty"`
	Order *int    `json:"order,omitempty"`
}

// BlockRequest is a content block in its flat wire form.
type BlockRequest struct {
	Type            string `json:"type" enum:"Text,Video"`
	Order           *int   `json:"order,omitempty"`
	Text            string `json:"text,omitempty"`
	VideoURL        string `json:"video_url,omitempty"`
	ThumbnailURL    string `json:"thumbnail_url,omitempty"`
	Transcription   string `json:"transcription,omitempty"`
	DurationMinutes *int   `json:"duration_minutes,omitempty"`
}

type UpdateBlockRequest struct {
	Type            *string `json:"type,omitempty" enum:"Text,Video"`
	Order           *int    `json:"order,omitempty"`
	Text            string  `json:"text,omitempty"`
	VideoURL        string  `json:"video_url,omitempty"`
	ThumbnailURL    string  `json:"thumbnail_url,omitempty"`
	Transcription   string  `json:"transcription,omitempty"`
	DurationMinutes *int    `json:"duration_minutes,omitempty"`
}

type LessonRequest struct {
	Title  string         `json:"title"`
	Order  *int           `json:"order,omitempty"`
	Blocks []BlockRequest `json:"content_blocks,omitempty"`
}

type EnrollmentRequest struct {
	UserID string `json:"user_id,omitempty"`
}

type ReviewRequest struct {
	Rating  int    `json:"rating" minimum:"1" maximum:"5"`
	Comment string `json:"comment,omitempty"`
}

// Responses

type CourseResponse struct {
	ID              string           `json:"id"`
	Title           string           `json:"title"`
	Description     string           `json:"description,omitempty"`
	Price           string           `json:"price" example:"49.90"`
	Status          domain.Status    `json:"status" enum:"Draft,Published,Archived"`
	DurationWeeks   *int             `json:"duration_weeks,omitempty"`
	ImageURL        string           `json:"image_url,omitempty"`
	InstructorID    string           `json:"instructor_id"`
	CategoryIDs     []string         `json:"category_ids"`
	Sections        []SectionResponse `json:"sections,omitempty"`
	AverageRating   *float64         `json:"average_rating,omitempty"`
	ReviewCount     *int             `json:"review_count,omitempty"`
	SectionCount    *int             `json:"section_count,omitempty"`
	EnrollmentCount *int             `json:"enrollment_count,omitempty"`
	CreatedAt       string           `json:"created_at" format:"date-time"`
	UpdatedAt       string           `json:"updated_at" format:"date-time"`
}

type SectionResponse struct {
	ID        string           `json:"id"`
	CourseID  string           `json:"course_id"`
	Title     string           `json:"title"`
	Order     int              `json:"order"`
	Status    domain.Status    `json:"status" enum:"Draft,Published,Archived"`
	Lessons   []LessonResponse `json:"lessons,omitempty"`
	CreatedAt string           `json:"created_at" format:"date-time"`
	UpdatedAt string           `json:"updated_at" format:"date-time"`
}

type LessonResponse struct {
	ID        string          `json:"id"`
	SectionID string          `json:"section_id"`
	Title     string          `json:"title"`
	Order     int             `json:"order"`
	Status    domain.Status   `json:"status" enum:"Draft,Published,Archived"`
	Blocks    []BlockResponse `json:"content_blocks,omitempty"`
	CreatedAt string          `json:"created_at" format:"date-time"`
	UpdatedAt string          `json:"updated_at" format:"date-time"`
}

// BlockResponse is a content block in the same flat form BlockRequest accepts.
type BlockResponse struct {
	ID              string             `json:"id"`
	LessonID        string             `json:"lesson_id"`
	Order           int                `json:"order"`
	Type            domain.ContentKind `json:"type" enum:"Text,Video"`
	Text            string             `json:"text,omitempty"`
	VideoURL        string             `json:"video_url,omitempty"`
	ThumbnailURL    string             `json:"thumbnail_url,omitempty"`
	Transcription   string             `json:"transcription,omitempty"`
	DurationMinutes *int               `json:"duration_minutes,omitempty"`
	CreatedAt       string             `json:"created_at" format:"date-time"`
	UpdatedAt       string             `json:"updated_at" format:"date-time"`
}

type CoursePage struct {
	Items    []CourseResponse `json:"items"`
	Page     int              `json:"page"`
	PageSize int              `json:"page_size"`
	Total    int              `json:"total"`
}

type ReviewPage struct {
	Items    []engine.ReviewView `json:"items"`
	Page     int                 `json:"page"`
	PageSize int                 `json:"page_size"`
	Total    int                 `json:"total"`
}

type StatusResponse struct {
	Target  lifecycle.Change   `json:"target"`
	Cascade []lifecycle.Change `json:"cascade"`
}

type InstructorDashboardResponse struct {
	UserID           string           `json:"user_id"`
	Courses          []CourseResponse `json:"courses"`
	TotalEnrollments int              `json:"total_enrollments"`
	TotalReviews     int              `json:"total_reviews"`
	AverageRating    float64          `json:"average_rating"`
}

type MeResponse struct {
	UserID        string   `json:"user_id,omitempty"`
	Roles         []string `json:"roles"`
	Authenticated bool     `json:"authenticated"`
}

func courseResponse(c domain.Course) CourseResponse {
	return CourseResponse{
		ID:            c.ID,
		Title:         c.Title,
		Description:   c.Description,
		Price:         c.Price.StringFixed(2),
		Status:        c.Status,
		DurationWeeks: c.DurationWeeks,
		ImageURL:      c.ImageURL,
		InstructorID:  c.InstructorID,
		CategoryIDs:   nonNilSlice(c.CategoryIDs),
		Sections:      mapSections(c.Sections),
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     c.UpdatedAt,
	}
}

func sectionResponse(s domain.Section) SectionResponse {
	out := SectionResponse{
		ID:        s.ID,
		CourseID:  s.CourseID,
		Title:     s.Title,
		Order:     s.Order,
		Status:    s.Status,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
	if len(s.Lessons) > 0 {
		out.Lessons = mapLessons(s.Lessons)
	}
	return out
}

func mapSections(items []domain.Section) []SectionResponse {
	if len(items) == 0 {
		return nil
	}
	out := make([]SectionResponse, 0, len(items))
	for _, s := range items {
		out = append(out, sectionResponse(s))
	}
	return out
}

func lessonResponse(l domain.Lesson) LessonResponse {
	out := LessonResponse{
		ID:        l.ID,
		SectionID: l.SectionID,
		Title:     l.Title,
		Order:     l.Order,
		Status:    l.Status,
		CreatedAt: l.CreatedAt,
		UpdatedAt: l.UpdatedAt,
	}
	for _, b := range l.Blocks {
		out.Blocks = append(out.Blocks, blockResponse(b))
	}
	return out
}

func mapLessons(items []domain.Lesson) []LessonResponse {
	out := make([]LessonResponse, 0, len(items))
	for _, l := range items {
		out = append(out, lessonResponse(l))
	}
	return out
}

func blockResponse(b domain.ContentBlock) BlockResponse {
	out := BlockResponse{
		ID:        b.ID,
		LessonID:  b.LessonID,
		Order:     b.Order,
		Type:      b.Kind(),
		CreatedAt: b.CreatedAt,
		UpdatedAt: b.UpdatedAt,
	}
	switch c := b.Content.(type) {
	case domain.TextContent:
		out.Text = c.Text
	case domain.VideoContent:
		out.VideoURL = c.VideoURL
		out.ThumbnailURL = c.ThumbnailURL
		out.Transcription = c.Transcription
		out.DurationMinutes = c.DurationMinutes
	}
	return out
}

func summaryResponse(s domain.CourseSummary) CourseResponse {
	out := courseResponse(s.Course)
	out.AverageRating = &s.AverageRating
	out.ReviewCount = &s.ReviewCount
	out.SectionCount = &s.SectionCount
	out.EnrollmentCount = &s.EnrollmentCount
	return out
}

func mapSummaries(items []domain.CourseSummary) []CourseResponse {
	out := make([]CourseResponse, 0, len(items))
	for _, s := range items {
		out = append(out, summaryResponse(s))
	}
	return out
}

func statusResponse(p lifecycle.Plan) StatusResponse {
	return StatusResponse{Target: p.Target, Cascade: nonNilSlice(p.Cascade)}
}

// parsePrice reads a decimal price; an empty string is zero.
func parsePrice(raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, newAPIError(http.StatusBadRequest, domain.CodeInvalidInput, "price must be a decimal number", map[string]any{"price": raw})
	}
	return d, nil
}

func (r CreateCourseRequest) input() (engine.CourseInput, error) {
	price, err := parsePrice(r.Price)
	if err != nil {
		return engine.CourseInput{}, err
	}
	return engine.CourseInput{
		Title:         r.Title,
		Description:   r.Description,
		Price:         price,
		DurationWeeks: r.DurationWeeks,
		ImageURL:      r.ImageURL,
		CategoryIDs:   r.CategoryIDs,
	}, nil
}

func (r UpdateCourseRequest) update() (engine.CourseUpdate, error) {
	upd := engine.CourseUpdate{
		Title:         r.Title,
		Description:   r.Description,
		DurationWeeks: r.DurationWeeks,
		ImageURL:      r.ImageURL,
		CategoryIDs:   r.CategoryIDs,
	}
	if r.Price != nil {
		price, err := parsePrice(*r.Price)
		if err != nil {
			return engine.CourseUpdate{}, err
		}
		upd.Price = &price
	}
	return upd, nil
}

func contentFor(kind string, text, videoURL, thumb, transcription string, minutes *int) (domain.Content, error) {
	k, err := domain.ParseContentKind(kind)
	if err != nil {
		return nil, err
	}
	if k == domain.ContentText {
		return domain.TextContent{Text: text}, nil
	}
	return domain.VideoContent{
		VideoURL:        videoURL,
		ThumbnailURL:    thumb,
		Transcription:   transcription,
		DurationMinutes: minutes,
	}, nil
}

func (b BlockRequest) content() (domain.Content, error) {
	return contentFor(b.Type, b.Text, b.VideoURL, b.ThumbnailURL, b.Transcription, b.DurationMinutes)
}

func (b UpdateBlockRequest) update() (engine.BlockUpdate, error) {
	upd := engine.BlockUpdate{Order: b.Order}
	if b.Type == nil {
		return upd, nil
	}
	c, err := contentFor(*b.Type, b.Text, b.VideoURL, b.ThumbnailURL, b.Transcription, b.DurationMinutes)
	if err != nil {
		return engine.BlockUpdate{}, err
	}
	upd.Content = c
	return upd, nil
}

func (r LessonRequest) input() (engine.LessonInput, error) {
	in := engine.LessonInput{Title: r.Title, Order: r.Order}
	for i, b := range r.Blocks {
		c, err := b.content()
		if err != nil {
			return engine.LessonInput{}, err
		}
		order := i
		if b.Order != nil {
			order = *b.Order
		}
		in.Blocks = append(in.Blocks, domain.ContentBlock{Order: order, Content: c})
	}
	return in, nil
}

func nonNilSlice[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	return in
}
