package controller

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"content-studio-be/internal/dto"
	"content-studio-be/internal/pkg/serverutils"
	"content-studio-be/internal/repository/memory"
	"content-studio-be/internal/service"
	"content-studio-be/pkg/capability/capabilitytest"
	"content-studio-be/pkg/dispatcher"
	"content-studio-be/pkg/session"
	"content-studio-be/pkg/stream"
	"content-studio-be/pkg/workflow"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "controller-secret"

type envelope[T any] struct {
	Success bool   `json:"success"`
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    T      `json:"data"`
}

func setupApp(t *testing.T) (*fiber.App, service.IGalleryService) {
	t.Helper()
	st := memory.NewSessionStore(memory.DefaultRetention)
	t.Cleanup(func() { _ = st.Close() })

	cfg := dispatcher.DefaultConfig()
	cfg.InitialInterval = time.Millisecond
	cfg.MaxInterval = 2 * time.Millisecond
	d := dispatcher.New(capabilitytest.NewFake().Suite(), dispatcher.WithConfig(cfg))

	sessions := session.NewManager(st, session.DefaultTimeout)
	coordinator := stream.NewCoordinator(sessions, session.NewLocalLocker(session.LockModeQueue), d, st)
	gallery, err := service.NewGalleryService(10)
	require.NoError(t, err)

	app := fiber.New()
	app.Use(serverutils.ErrorHandlerMiddleware())
	NewStudioController(service.NewStudioService(sessions, st, coordinator, gallery), testSecret).RegisterRoutes(app.Group("/api"))
	return app, gallery
}

func bearer(t *testing.T, userId string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userId,
		"exp":     time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return "Bearer " + token
}

func do(t *testing.T, app *fiber.App, method, path, auth string, body any) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) envelope[T] {
	t.Helper()
	var out envelope[T]
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func chat(t *testing.T, app *fiber.App, auth string, req map[string]any) dto.ChatResponse {
	t.Helper()
	resp := do(t, app, "POST", "/api/studio/v1/chat", auth, req)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	return decode[dto.ChatResponse](t, resp).Data
}

func TestStudioController_ChatFlow(t *testing.T) {
	app, _ := setupApp(t)
	auth := bearer(t, "alice")

	first := chat(t, app, auth, map[string]any{
		"message":     "",
		"attachments": []map[string]any{{"type": "company_overview", "company_name": "Kopi Senja", "overview": "Coffee bar"}},
	})
	assert.True(t, first.IsNew)
	assert.Equal(t, workflow.StageIdeaSelection, first.Stage)
	sessionId := first.SessionId.String()

	image := chat(t, app, auth, map[string]any{"session_id": sessionId, "message": "Generate an image of a latte"})
	assert.False(t, image.IsNew)
	assert.Equal(t, "applied", image.Outcome)
	require.Len(t, image.Assets, 1)

	resp := do(t, app, "GET", "/api/studio/v1/sessions/"+sessionId, auth, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	show := decode[dto.SessionResponse](t, resp).Data
	assert.Equal(t, workflow.StageReviewEdit, show.Stage)
	assert.Len(t, show.History, 4)

	resp = do(t, app, "GET", "/api/studio/v1/sessions/"+sessionId+"/assets", auth, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assets := decode[[]dto.AssetResponse](t, resp).Data
	require.Len(t, assets, 1)
	assert.Equal(t, image.Assets[0].Path, assets[0].Path)

	resp = do(t, app, "GET", "/api/studio/v1/sessions", auth, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	list := decode[[]dto.SessionSummaryResponse](t, resp).Data
	require.Len(t, list, 1)
	assert.Equal(t, "Kopi Senja", list[0].CompanyName)
}

func TestStudioController_SessionsAreScopedToCaller(t *testing.T) {
	app, _ := setupApp(t)

	resp := do(t, app, "POST", "/api/studio/v1/sessions", bearer(t, "alice"), nil)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	created := decode[dto.CreateSessionResponse](t, resp).Data
	path := "/api/studio/v1/sessions/" + created.SessionId.String()

	assert.Equal(t, fiber.StatusNotFound, do(t, app, "GET", path, bearer(t, "bob"), nil).StatusCode)
	assert.Equal(t, fiber.StatusNotFound, do(t, app, "DELETE", path, bearer(t, "bob"), nil).StatusCode)

	assert.Equal(t, fiber.StatusOK, do(t, app, "DELETE", path, bearer(t, "alice"), nil).StatusCode)
	assert.Equal(t, fiber.StatusNotFound, do(t, app, "GET", path, bearer(t, "alice"), nil).StatusCode)
}

func TestStudioController_RejectsBadInput(t *testing.T) {
	app, _ := setupApp(t)

	tests := []struct {
		name   string
		method string
		path   string
		auth   string
		body   any
		code   int
	}{
		{"invalid session id", "GET", "/api/studio/v1/sessions/not-a-uuid", "", nil, fiber.StatusBadRequest},
		{"unknown session", "GET", "/api/studio/v1/sessions/" + uuid.NewString(), "", nil, fiber.StatusNotFound},
		{"empty turn", "POST", "/api/studio/v1/chat", "", map[string]any{"message": "  "}, fiber.StatusBadRequest},
		{"message too long", "POST", "/api/studio/v1/chat", "", map[string]any{"message": strings.Repeat("a", 4001)}, fiber.StatusBadRequest},
		{"malformed attachment", "POST", "/api/studio/v1/chat", "", map[string]any{
			"message":     "hi",
			"attachments": []map[string]any{{"type": "logo"}},
		}, fiber.StatusBadRequest},
		{"bad token", "GET", "/api/studio/v1/sessions", "Bearer nope", nil, fiber.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := do(t, app, tt.method, tt.path, tt.auth, tt.body)
			assert.Equal(t, tt.code, resp.StatusCode)
		})
	}
}

func TestStudioController_ChatStream(t *testing.T) {
	app, _ := setupApp(t)

	resp := do(t, app, "POST", "/api/studio/v1/chat/stream", "", map[string]any{
		"message":     "Generate an image of a latte",
		"attachments": []map[string]any{{"type": "company_overview", "company_name": "Kopi Senja"}},
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	var frames []stream.Event
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var ev stream.Event
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &ev))
		frames = append(frames, ev)
	}
	require.NoError(t, scanner.Err())

	require.NotEmpty(t, frames)
	assert.Equal(t, stream.EventSession, frames[0].Type)
	assert.True(t, frames[0].New)
	last := frames[len(frames)-1]
	assert.Contains(t, []stream.EventType{stream.EventDone, stream.EventError}, last.Type)
}

func TestStudioController_Gallery(t *testing.T) {
	app, gallery := setupApp(t)
	gallery.Record(service.GalleryItem{
		AssetId:   uuid.New(),
		SessionId: uuid.New(),
		UserId:    "alice",
		Kind:      workflow.AssetImage,
		Path:      "generated/image_001.png",
		CreatedAt: time.Now(),
	})

	resp := do(t, app, "GET", "/api/gallery", bearer(t, "alice"), nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]dto.GalleryItemResponse](t, resp).Data, 1)

	resp = do(t, app, "GET", "/api/gallery", bearer(t, "bob"), nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Empty(t, decode[[]dto.GalleryItemResponse](t, resp).Data)
}
