package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseStatus(t *testing.T) {
	for in, want := range map[string]Status{
		"Draft":      StatusDraft,
		"published":  StatusPublished,
		" ARCHIVED ": StatusArchived,
	} {
		got, err := ParseStatus(in)
		require.NoError(t, err, in)
		require.Equal(t, want, got)
	}
}

func TestParseStatusRejectsUnknown(t *testing.T) {
	_, err := ParseStatus("Live")
	require.Error(t, err)
	require.True(t, IsBadRequest(err))
	require.Equal(t, CodeInvalidStatus, BadRequestCode(err))
	require.Contains(t, err.Error(), "Draft, Published, Archived")

	_, err = ParseStatus("")
	require.Equal(t, CodeInvalidStatus, BadRequestCode(err))
}

func TestPrincipalRoles(t *testing.T) {
	p := Principal{UserID: "u1", Roles: []string{"instructor"}}
	require.True(t, p.Authenticated())
	require.True(t, p.IsInstructor())
	require.False(t, p.IsAdmin())
	require.False(t, Principal{}.Authenticated())

	role, err := ParseRole("student")
	require.NoError(t, err)
	require.Equal(t, RoleStudent, role)
	_, err = ParseRole("owner")
	require.True(t, IsBadRequest(err))
}

func TestContentBlockJSONDiscriminator(t *testing.T) {
	minutes := 12
	video := ContentBlock{ID: "b1", LessonID: "l1", Order: 1, Content: VideoContent{VideoURL: "https://cdn.example.com/v.mp4", DurationMinutes: &minutes}}
	data, err := json.Marshal(video)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	require.Equal(t, "Video", raw["type"])
	require.NotContains(t, raw, "text")

	var back ContentBlock
	require.NoError(t, json.Unmarshal(data, &back))
	require.Equal(t, ContentVideo, back.Kind())
	require.Equal(t, video.Content, back.Content)
}

func TestContentBlockUnknownType(t *testing.T) {
	var b ContentBlock
	err := json.Unmarshal([]byte(`{"type":"Quiz","order":0}`), &b)
	require.Error(t, err)
	require.Equal(t, CodeInvalidContent, BadRequestCode(err))

	_, err = json.Marshal(ContentBlock{ID: "empty"})
	require.Error(t, err)
}
