package serverutils

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"content-studio-be/internal/entity"
	"content-studio-be/pkg/dispatcher"
	"content-studio-be/pkg/session"
	"content-studio-be/pkg/store"
	"content-studio-be/pkg/stream"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func signedToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func TestErrorStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"fiber error", fiber.NewError(fiber.StatusTeapot, "teapot"), fiber.StatusTeapot},
		{"validation", &ValidationError{Fields: map[string]string{"message": "max"}}, fiber.StatusBadRequest},
		{"attachment", &dispatcher.AttachmentError{Kind: "reference_image", Reason: "missing data"}, fiber.StatusBadRequest},
		{"empty turn", stream.ErrEmptyTurn, fiber.StatusBadRequest},
		{"not found", fmt.Errorf("load: %w", store.ErrSessionNotFound), fiber.StatusNotFound},
		{"busy", session.ErrSessionBusy, fiber.StatusConflict},
		{"store down", fmt.Errorf("%w: dial tcp", store.ErrStoreUnavailable), fiber.StatusServiceUnavailable},
		{"anything else", errors.New("boom"), fiber.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, message := ErrorStatus(tt.err)
			assert.Equal(t, tt.code, code)
			assert.NotEmpty(t, message)
		})
	}
}

func TestErrorHandlerMiddleware_WritesEnvelope(t *testing.T) {
	app := fiber.New()
	app.Use(ErrorHandlerMiddleware())
	app.Get("/missing", func(ctx *fiber.Ctx) error {
		return store.ErrSessionNotFound
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/missing", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	var body Response[any]
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.False(t, body.Success)
	assert.Equal(t, fiber.StatusNotFound, body.Code)
}

func TestJwtMiddleware(t *testing.T) {
	app := fiber.New()
	app.Get("/whoami", JwtMiddleware(testSecret), func(ctx *fiber.Ctx) error {
		return ctx.SendString(UserID(ctx))
	})

	valid := signedToken(t, testSecret, jwt.MapClaims{"user_id": "alice", "exp": time.Now().Add(time.Hour).Unix()})
	expired := signedToken(t, testSecret, jwt.MapClaims{"user_id": "alice", "exp": time.Now().Add(-time.Hour).Unix()})
	forged := signedToken(t, "other-secret", jwt.MapClaims{"user_id": "mallory"})
	noUser := signedToken(t, testSecret, jwt.MapClaims{"role": "user"})

	tests := []struct {
		name   string
		header string
		code   int
		user   string
	}{
		{"anonymous", "", fiber.StatusOK, entity.DefaultUserId},
		{"valid token", "Bearer " + valid, fiber.StatusOK, "alice"},
		{"expired token", "Bearer " + expired, fiber.StatusUnauthorized, ""},
		{"wrong secret", "Bearer " + forged, fiber.StatusUnauthorized, ""},
		{"missing claim", "Bearer " + noUser, fiber.StatusUnauthorized, ""},
		{"not bearer", "Basic abc", fiber.StatusUnauthorized, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/whoami", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.code, resp.StatusCode)
			if tt.user != "" {
				body, _ := io.ReadAll(resp.Body)
				assert.Equal(t, tt.user, string(body))
			}
		})
	}
}

func TestValidateRequest(t *testing.T) {
	type payload struct {
		Message string `validate:"max=5"`
	}
	assert.NoError(t, ValidateRequest(payload{Message: "hi"}))

	err := ValidateRequest(payload{Message: "far too long"})
	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Contains(t, validationErr.Fields, "Message")
}
