package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ContentKind is the discriminator persisted and serialized as "type".
type ContentKind string

const (
	ContentText  ContentKind = "Text"
	ContentVideo ContentKind = "Video"
)

// ParseContentKind matches case-insensitively.
func ParseContentKind(s string) (ContentKind, error) {
	switch {
	case strings.EqualFold(s, string(ContentText)):
		return ContentText, nil
	case strings.EqualFold(s, string(ContentVideo)):
		return ContentVideo, nil
	}
	return "", BadRequest(CodeInvalidContent, fmt.Sprintf("unsupported content type %q; valid types are: Text, Video", s))
}

// Content is the closed set of block payloads. Only this package implements it.
type Content interface {
	Kind() ContentKind
	sealed()
}

type TextContent struct {
	Text string `json:"text" validate:"required"`
}

func (TextContent) Kind() ContentKind { return ContentText }
func (TextContent) sealed()           {}

type VideoContent struct {
	VideoURL        string `json:"video_url" validate:"required,url,max=2048"`
	ThumbnailURL    string `json:"thumbnail_url,omitempty" validate:"omitempty,url,max=2048"`
	Transcription   string `json:"transcription,omitempty"`
	DurationMinutes *int   `json:"duration_minutes,omitempty" validate:"omitempty,min=0"`
}

func (VideoContent) Kind() ContentKind { return ContentVideo }
func (VideoContent) sealed()           {}

type ContentBlock struct {
	ID        string
	LessonID  string
	Order     int
	Content   Content
	CreatedAt string
	UpdatedAt string
}

// Kind returns the variant discriminator, or "" when no payload is set.
func (b ContentBlock) Kind() ContentKind {
	if b.Content == nil {
		return ""
	}
	return b.Content.Kind()
}

type contentBlockJSON struct {
	ID              string      `json:"id,omitempty"`
	LessonID        string      `json:"lesson_id,omitempty"`
	Order           int         `json:"order"`
	Type            ContentKind `json:"type"`
	Text            *string     `json:"text,omitempty"`
	VideoURL        *string     `json:"video_url,omitempty"`
	ThumbnailURL    *string     `json:"thumbnail_url,omitempty"`
	Transcription   *string     `json:"transcription,omitempty"`
	DurationMinutes *int        `json:"duration_minutes,omitempty"`
	CreatedAt       string      `json:"created_at,omitempty"`
	UpdatedAt       string      `json:"updated_at,omitempty"`
}

func (b ContentBlock) MarshalJSON() ([]byte, error) {
	out := contentBlockJSON{
		ID:        b.ID,
		LessonID:  b.LessonID,
		Order:     b.Order,
		CreatedAt: b.CreatedAt,
		UpdatedAt: b.UpdatedAt,
	}
	switch c := b.Content.(type) {
	case TextContent:
		out.Type = ContentText
		out.Text = &c.Text
	case VideoContent:
		out.Type = ContentVideo
		out.VideoURL = &c.VideoURL
		out.ThumbnailURL = optional(c.ThumbnailURL)
		out.Transcription = optional(c.Transcription)
		out.DurationMinutes = c.DurationMinutes
	default:
		return nil, fmt.Errorf("content block %s has no payload", b.ID)
	}
	return json.Marshal(out)
}

func (b *ContentBlock) UnmarshalJSON(data []byte) error {
	var in contentBlockJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	kind, err := ParseContentKind(string(in.Type))
	if err != nil {
		return err
	}
	b.ID = in.ID
	b.LessonID = in.LessonID
	b.Order = in.Order
	b.CreatedAt = in.CreatedAt
	b.UpdatedAt = in.UpdatedAt
	switch kind {
	case ContentText:
		b.Content = TextContent{Text: deref(in.Text)}
	case ContentVideo:
		b.Content = VideoContent{
			VideoURL:        deref(in.VideoURL),
			ThumbnailURL:    deref(in.ThumbnailURL),
			Transcription:   deref(in.Transcription),
			DurationMinutes: in.DurationMinutes,
		}
	}
	return nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
