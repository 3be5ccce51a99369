package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"courseline/internal/config"
	"courseline/internal/db"
	"courseline/internal/domain"
	"courseline/internal/engine"
	"courseline/internal/migrate"
	courselinesdk "courseline/sdk/go"
)

const testSecret = "test-secret"

type testServer struct {
	URL    string
	Engine engine.Engine
	client *http.Client
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	return newTestServerWithConfig(t, config.Default())
}

func newTestServerWithConfig(t *testing.T, cfg *config.Config) *testServer {
	t.Helper()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	require.NoError(t, err)
	require.NoError(t, migrate.Migrate(conn))

	log := logrus.New()
	log.SetOutput(io.Discard)
	e := engine.New(conn, cfg)
	e.Log = log

	handler, err := New(Config{Engine: e, Auth: AuthConfig{JWTSecret: testSecret}, Log: log})
	require.NoError(t, err)
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	require.NoError(t, err)
	srv := &http.Server{Handler: handler}
	go srv.Serve(ln)
	t.Cleanup(func() {
		srv.Shutdown(context.Background())
		ln.Close()
		conn.Close()
	})
	return &testServer{URL: "http://" + ln.Addr().String(), Engine: e, client: &http.Client{}}
}

func token(t *testing.T, userID string, roles ...string) map[string]string {
	t.Helper()
	tok, err := SignToken(testSecret, userID, roles, time.Hour)
	require.NoError(t, err)
	return map[string]string{"Authorization": "Bearer " + tok}
}

func (s *testServer) doJSON(t *testing.T, method, path string, body any, headers map[string]string) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader = http.NoBody
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, s.URL+path, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	res, err := s.client.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	return res, data
}

func decode[T any](t *testing.T, data []byte) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(data, &out), string(data))
	return out
}

func errorCode(t *testing.T, data []byte) string {
	t.Helper()
	env := decode[struct {
		Error apiErrorBody `json:"error"`
	}](t, data)
	return env.Error.Code
}

func TestHealthAndMetrics(t *testing.T) {
	srv := newTestServer(t)

	res, data := srv.doJSON(t, http.MethodGet, "/v1/health", nil, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Equal(t, "ok", decode[map[string]string](t, data)["status"])

	res, data = srv.doJSON(t, http.MethodGet, "/metrics", nil, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Contains(t, string(data), "courseline_api_requests_total")
}

func TestOpenAPIDocumentsAuthSchemes(t *testing.T) {
	srv := newTestServer(t)
	res, data := srv.doJSON(t, http.MethodGet, "/v1/openapi.json", nil, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Contains(t, string(data), "bearerAuth")
	require.Contains(t, string(data), "apiKeyAuth")
	require.Contains(t, string(data), "/courses/{course_id}/sections")

	var doc struct {
		Components struct {
			Schemas map[string]struct {
				Properties map[string]any `json:"properties"`
			} `json:"schemas"`
		} `json:"components"`
	}
	require.NoError(t, json.Unmarshal(data, &doc))
	block, ok := doc.Components.Schemas["BlockResponse"]
	require.True(t, ok)
	require.Contains(t, block.Properties, "type")
	require.Contains(t, block.Properties, "video_url")
}

func TestOpenAPIDocumentIsStableUnderConcurrentReads(t *testing.T) {
	srv := newTestServer(t)
	const readers = 8
	bodies := make([][]byte, readers)
	statuses := make([]int, readers)
	var wg sync.WaitGroup
	for i := 0; i < readers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := srv.client.Get(srv.URL + "/v1/openapi.json")
			if err != nil {
				return
			}
			defer res.Body.Close()
			statuses[i] = res.StatusCode
			bodies[i], _ = io.ReadAll(res.Body)
		}(i)
	}
	wg.Wait()
	for i := 0; i < readers; i++ {
		require.Equal(t, http.StatusOK, statuses[i])
		require.Equal(t, string(bodies[0]), string(bodies[i]))
	}
}

func TestConflictMapsTo409(t *testing.T) {
	err := handleError(context.Background(), fmt.Errorf("update section: %w", domain.ErrConflict))
	require.Equal(t, http.StatusConflict, err.GetStatus())
	var ae *apiError
	require.ErrorAs(t, err, &ae)
	require.Equal(t, "conflict", ae.Body.Code)
}

func TestInvalidTokenIsRejected(t *testing.T) {
	srv := newTestServer(t)
	res, data := srv.doJSON(t, http.MethodGet, "/v1/courses", nil, map[string]string{"Authorization": "Bearer nope"})
	require.Equal(t, http.StatusUnauthorized, res.StatusCode)
	require.Equal(t, "invalid_credentials", errorCode(t, data))

	res, _ = srv.doJSON(t, http.MethodGet, "/v1/me", nil, token(t, "inst-1", "Instructor"))
	require.Equal(t, http.StatusOK, res.StatusCode)
}

func TestCourseHierarchyOverHTTP(t *testing.T) {
	srv := newTestServer(t)
	inst := token(t, "inst-1", domain.RoleInstructor)
	stu := token(t, "stu-1", domain.RoleStudent)

	res, data := srv.doJSON(t, http.MethodPost, "/v1/courses", map[string]any{"title": "Go in Practice", "price": "49.9"}, inst)
	require.Equal(t, http.StatusCreated, res.StatusCode, string(data))
	course := decode[CourseResponse](t, data)
	require.Equal(t, domain.StatusDraft, course.Status)
	require.Equal(t, "49.90", course.Price)
	require.Equal(t, "inst-1", course.InstructorID)

	res, data = srv.doJSON(t, http.MethodPost, "/v1/courses", map[string]any{"title": "x", "price": "cheap"}, inst)
	require.Equal(t, http.StatusBadRequest, res.StatusCode)
	require.Equal(t, domain.CodeInvalidInput, errorCode(t, data))

	base := "/v1/courses/" + course.ID + "/sections"
	for _, title := range []string{"Basics", "Concurrency", "Testing"} {
		res, data = srv.doJSON(t, http.MethodPost, base, map[string]any{"title": title}, inst)
		require.Equal(t, http.StatusCreated, res.StatusCode, string(data))
	}
	res, data = srv.doJSON(t, http.MethodPost, base, map[string]any{"title": "Intro", "order": 0}, inst)
	require.Equal(t, http.StatusCreated, res.StatusCode, string(data))
	intro := decode[domain.Section](t, data)

	res, data = srv.doJSON(t, http.MethodGet, base, nil, inst)
	require.Equal(t, http.StatusOK, res.StatusCode)
	sections := decode[[]domain.Section](t, data)
	require.Len(t, sections, 4)
	for i, s := range sections {
		require.Equal(t, i, s.Order)
	}
	require.Equal(t, intro.ID, sections[0].ID)

	res, data = srv.doJSON(t, http.MethodPost, base, map[string]any{"title": "Bad", "order": -1}, inst)
	require.Equal(t, http.StatusBadRequest, res.StatusCode)

	// Publishing a section under a draft course is refused.
	res, data = srv.doJSON(t, http.MethodPatch, base+"/"+intro.ID+"/status", map[string]any{"status": "Published"}, inst)
	require.Equal(t, http.StatusBadRequest, res.StatusCode)
	require.Equal(t, domain.CodeParentNotPublished, errorCode(t, data))

	res, data = srv.doJSON(t, http.MethodPatch, base+"/"+intro.ID+"/status", map[string]any{"status": "Live"}, inst)
	require.Equal(t, http.StatusBadRequest, res.StatusCode)
	require.Equal(t, domain.CodeInvalidStatus, errorCode(t, data))

	// Drafts are invisible to students and anonymous callers.
	res, data = srv.doJSON(t, http.MethodGet, "/v1/courses/"+course.ID, nil, stu)
	require.Equal(t, http.StatusNotFound, res.StatusCode)
	res, _ = srv.doJSON(t, http.MethodGet, "/v1/courses/"+course.ID, nil, nil)
	require.Equal(t, http.StatusNotFound, res.StatusCode)

	// Writes by the wrong caller.
	res, data = srv.doJSON(t, http.MethodPatch, "/v1/courses/"+course.ID+"/status", map[string]any{"status": "Published"}, nil)
	require.Equal(t, http.StatusUnauthorized, res.StatusCode)
	res, data = srv.doJSON(t, http.MethodPatch, "/v1/courses/"+course.ID+"/status", map[string]any{"status": "Published"}, token(t, "inst-2", domain.RoleInstructor))
	require.Equal(t, http.StatusForbidden, res.StatusCode)
	require.Equal(t, "forbidden", errorCode(t, data))

	res, data = srv.doJSON(t, http.MethodPatch, "/v1/courses/"+course.ID+"/status", map[string]any{"status": "Published"}, inst)
	require.Equal(t, http.StatusOK, res.StatusCode, string(data))
	res, data = srv.doJSON(t, http.MethodPatch, base+"/"+intro.ID+"/status", map[string]any{"status": "Published"}, inst)
	require.Equal(t, http.StatusOK, res.StatusCode, string(data))

	res, data = srv.doJSON(t, http.MethodGet, "/v1/courses/"+course.ID, nil, stu)
	require.Equal(t, http.StatusOK, res.StatusCode)
	visible := decode[CourseResponse](t, data)
	require.Len(t, visible.Sections, 1)
	require.Equal(t, intro.ID, visible.Sections[0].ID)

	res, data = srv.doJSON(t, http.MethodPatch, "/v1/courses/"+course.ID+"/status", map[string]any{"status": "Archived"}, inst)
	require.Equal(t, http.StatusOK, res.StatusCode)
	plan := decode[StatusResponse](t, data)
	require.Len(t, plan.Cascade, 1)
	require.Equal(t, domain.StatusArchived, plan.Cascade[0].To)
}

func TestLessonsAndBlocksOverHTTP(t *testing.T) {
	srv := newTestServer(t)
	inst := token(t, "inst-1", domain.RoleInstructor)

	_, data := srv.doJSON(t, http.MethodPost, "/v1/courses", map[string]any{"title": "Video course"}, inst)
	course := decode[CourseResponse](t, data)
	_, data = srv.doJSON(t, http.MethodPost, "/v1/courses/"+course.ID+"/sections", map[string]any{"title": "One"}, inst)
	section := decode[domain.Section](t, data)

	res, data := srv.doJSON(t, http.MethodPost, "/v1/sections/"+section.ID+"/lessons", map[string]any{
		"title": "Welcome",
		"content_blocks": []map[string]any{
			{"type": "Text", "text": "hello"},
			{"type": "Video", "video_url": "https://cdn.example.com/intro.mp4", "duration_minutes": 4},
		},
	}, inst)
	require.Equal(t, http.StatusCreated, res.StatusCode, string(data))
	lesson := decode[LessonResponse](t, data)
	require.Len(t, lesson.Blocks, 2)
	require.Equal(t, domain.ContentText, lesson.Blocks[0].Type)
	require.Equal(t, "hello", lesson.Blocks[0].Text)
	require.Equal(t, domain.ContentVideo, lesson.Blocks[1].Type)
	require.Equal(t, 4, *lesson.Blocks[1].DurationMinutes)

	res, data = srv.doJSON(t, http.MethodPost, "/v1/lessons/"+lesson.ID+"/blocks", map[string]any{"type": "Text", "text": "first", "order": 0}, inst)
	require.Equal(t, http.StatusCreated, res.StatusCode, string(data))
	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	require.Equal(t, "Text", raw["type"])
	require.Equal(t, "first", raw["text"])
	require.Equal(t, lesson.ID, raw["lesson_id"])
	require.NotContains(t, raw, "Content")
	first := decode[BlockResponse](t, data)
	require.Equal(t, 0, first.Order)

	res, data = srv.doJSON(t, http.MethodPut, "/v1/lessons/"+lesson.ID+"/blocks/"+first.ID, map[string]any{
		"type": "Video", "video_url": "https://cdn.example.com/first.mp4", "order": 2,
	}, inst)
	require.Equal(t, http.StatusOK, res.StatusCode, string(data))
	moved := decode[BlockResponse](t, data)
	require.Equal(t, domain.ContentVideo, moved.Type)
	require.Equal(t, "https://cdn.example.com/first.mp4", moved.VideoURL)
	require.Equal(t, 2, moved.Order)

	res, data = srv.doJSON(t, http.MethodPost, "/v1/lessons/"+lesson.ID+"/blocks", map[string]any{"type": "Video", "video_url": "not a url"}, inst)
	require.Equal(t, http.StatusBadRequest, res.StatusCode, string(data))

	res, _ = srv.doJSON(t, http.MethodDelete, "/v1/lessons/"+lesson.ID+"/blocks/"+first.ID, nil, inst)
	require.Equal(t, http.StatusNoContent, res.StatusCode)

	res, data = srv.doJSON(t, http.MethodGet, "/v1/sections/"+section.ID+"/lessons/"+lesson.ID, nil, inst)
	require.Equal(t, http.StatusOK, res.StatusCode)
	got := decode[LessonResponse](t, data)
	require.Len(t, got.Blocks, 2)
	for i, b := range got.Blocks {
		require.Equal(t, i, b.Order)
		require.NotEmpty(t, b.Type)
	}
}

func TestEnrollReviewAndDashboards(t *testing.T) {
	srv := newTestServer(t)
	inst := token(t, "inst-1", domain.RoleInstructor)
	stu := token(t, "stu-1", domain.RoleStudent)

	_, data := srv.doJSON(t, http.MethodPost, "/v1/courses", map[string]any{"title": "Databases"}, inst)
	course := decode[CourseResponse](t, data)

	res, data := srv.doJSON(t, http.MethodPost, "/v1/courses/"+course.ID+"/enrollment", map[string]any{}, stu)
	require.Equal(t, http.StatusNotFound, res.StatusCode, string(data))

	srv.doJSON(t, http.MethodPatch, "/v1/courses/"+course.ID+"/status", map[string]any{"status": "Published"}, inst)

	res, data = srv.doJSON(t, http.MethodPost, "/v1/courses/"+course.ID+"/enrollment", nil, stu)
	require.Equal(t, http.StatusCreated, res.StatusCode, string(data))
	require.Equal(t, "stu-1", decode[domain.Enrollment](t, data).UserID)

	res, data = srv.doJSON(t, http.MethodPost, "/v1/courses/"+course.ID+"/enrollment", map[string]any{}, stu)
	require.Equal(t, http.StatusBadRequest, res.StatusCode)
	require.Equal(t, domain.CodeAlreadyEnrolled, errorCode(t, data))

	res, data = srv.doJSON(t, http.MethodPost, "/v1/courses/"+course.ID+"/reviews", map[string]any{"rating": 4, "comment": "solid"}, stu)
	require.Equal(t, http.StatusCreated, res.StatusCode, string(data))
	rv := decode[map[string]any](t, data)
	require.Equal(t, true, rv["can_edit"])

	res, data = srv.doJSON(t, http.MethodPost, "/v1/courses/"+course.ID+"/reviews", map[string]any{"rating": 9}, stu)
	require.Equal(t, http.StatusBadRequest, res.StatusCode, string(data))

	res, data = srv.doJSON(t, http.MethodGet, "/v1/courses/"+course.ID+"/reviews", nil, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	page := decode[map[string]any](t, data)
	require.EqualValues(t, 1, page["total"])

	res, data = srv.doJSON(t, http.MethodGet, "/v1/dashboard/student", nil, stu)
	require.Equal(t, http.StatusOK, res.StatusCode, string(data))
	require.Contains(t, string(data), course.ID)

	res, data = srv.doJSON(t, http.MethodGet, "/v1/dashboard/instructor", nil, inst)
	require.Equal(t, http.StatusOK, res.StatusCode, string(data))
	dash := decode[InstructorDashboardResponse](t, data)
	require.Equal(t, 1, dash.TotalEnrollments)
	require.Equal(t, 1, dash.TotalReviews)
	require.InDelta(t, 4.0, dash.AverageRating, 0.001)

	res, _ = srv.doJSON(t, http.MethodGet, "/v1/dashboard/student", nil, nil)
	require.Equal(t, http.StatusUnauthorized, res.StatusCode)

	res, _ = srv.doJSON(t, http.MethodDelete, "/v1/courses/"+course.ID+"/enrollment", nil, stu)
	require.Equal(t, http.StatusNoContent, res.StatusCode)
}

func TestAPIKeyAuthenticatesAsOwner(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()
	_, err := srv.Engine.Auth.Bootstrap(ctx, "admin-1")
	require.NoError(t, err)
	adminP := domain.Principal{UserID: "admin-1", Roles: []string{domain.RoleAdmin}}
	_, err = srv.Engine.Auth.UpsertUser(ctx, adminP, domain.User{ID: "inst-9", FullName: "Ada"}, []string{domain.RoleInstructor})
	require.NoError(t, err)
	_, raw, err := srv.Engine.Auth.IssueAPIKey(ctx, adminP, "inst-9", "ci")
	require.NoError(t, err)

	res, data := srv.doJSON(t, http.MethodGet, "/v1/me", nil, map[string]string{"X-Api-Key": raw})
	require.Equal(t, http.StatusOK, res.StatusCode)
	me := decode[MeResponse](t, data)
	require.Equal(t, "inst-9", me.UserID)
	require.Equal(t, []string{domain.RoleInstructor}, me.Roles)

	res, _ = srv.doJSON(t, http.MethodGet, "/v1/me", nil, map[string]string{"X-Api-Key": "cl_wrong"})
	require.Equal(t, http.StatusUnauthorized, res.StatusCode)
}

func TestEventsRequireAdmin(t *testing.T) {
	srv := newTestServer(t)
	inst := token(t, "inst-1", domain.RoleInstructor)
	srv.doJSON(t, http.MethodPost, "/v1/courses", map[string]any{"title": "Audited"}, inst)

	res, _ := srv.doJSON(t, http.MethodGet, "/v1/events", nil, inst)
	require.Equal(t, http.StatusForbidden, res.StatusCode)

	res, data := srv.doJSON(t, http.MethodGet, "/v1/events?entity_kind=course", nil, token(t, "admin-1", domain.RoleAdmin))
	require.Equal(t, http.StatusOK, res.StatusCode, string(data))
	events := decode[[]domain.Event](t, data)
	require.Len(t, events, 1)
	require.Equal(t, "course.created", events[0].Type)
}

func TestSDKRoundTrip(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()
	tok, err := SignToken(testSecret, "inst-1", []string{domain.RoleInstructor}, time.Hour)
	require.NoError(t, err)
	client := courselinesdk.New(srv.URL)
	client.BearerToken = tok

	course, err := client.CreateCourse(ctx, "SDK course", "from the client", "10")
	require.NoError(t, err)
	require.Equal(t, "10.00", course.Price)

	a, err := client.CreateSection(ctx, course.ID, "A", nil)
	require.NoError(t, err)
	_, err = client.CreateSection(ctx, course.ID, "B", nil)
	require.NoError(t, err)
	moved, err := client.MoveSection(ctx, course.ID, a.ID, 1)
	require.NoError(t, err)
	require.Equal(t, 1, moved.Order)

	sections, err := client.ListSections(ctx, course.ID)
	require.NoError(t, err)
	require.Equal(t, []string{"B", "A"}, []string{sections[0].Title, sections[1].Title})

	_, err = client.SetSectionStatus(ctx, course.ID, a.ID, "Published")
	var apiErr *courselinesdk.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	require.Equal(t, domain.CodeParentNotPublished, apiErr.Err.Code)

	lesson, err := client.CreateLesson(ctx, a.ID, "Intro", nil)
	require.NoError(t, err)
	block, err := client.AddTextBlock(ctx, lesson.ID, "welcome", nil)
	require.NoError(t, err)
	require.Equal(t, "Text", block.Type)
	require.Equal(t, "welcome", block.Text)
	require.Equal(t, lesson.ID, block.LessonID)

	anon := courselinesdk.New(srv.URL)
	page, err := anon.ListCourses(ctx, "", 0, 0)
	require.NoError(t, err)
	require.Equal(t, 0, page.Total)
}

func TestWebhookDeliversSignedEvents(t *testing.T) {
	var (
		mu       sync.Mutex
		received []string
		bodies   [][]byte
		sigs     []string
	)
	hook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		received = append(received, r.Header.Get("X-Courseline-Event"))
		bodies = append(bodies, body)
		sigs = append(sigs, r.Header.Get("X-Courseline-Signature"))
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer hook.Close()

	cfg := config.Default()
	cfg.Webhooks = []config.WebhookConfig{{URL: hook.URL, Events: []string{"course.created"}, Secret: "s3cret"}}
	srv := newTestServerWithConfig(t, cfg)

	d := newWebhookDispatcher(srv.Engine, nil)
	require.NotNil(t, d)
	ctx := context.Background()
	d.dispatchAll(ctx)

	inst := token(t, "inst-1", domain.RoleInstructor)
	_, data := srv.doJSON(t, http.MethodPost, "/v1/courses", map[string]any{"title": "Hooked"}, inst)
	course := decode[CourseResponse](t, data)
	srv.doJSON(t, http.MethodPost, "/v1/courses/"+course.ID+"/sections", map[string]any{"title": "S"}, inst)

	d.dispatchAll(ctx)
	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []string{"course.created"}, received)
	require.Equal(t, "sha256="+signPayload("s3cret", bodies[0]), sigs[0])
	evt := decode[webhookEvent](t, bodies[0])
	require.Equal(t, course.ID, evt.CourseID)
}
