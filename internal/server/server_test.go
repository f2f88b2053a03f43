package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/farellandr/rollcall/config"
	"github.com/farellandr/rollcall/internal/store/storetest"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type client struct {
	t      *testing.T
	router *gin.Engine
}

func newClient(t *testing.T) *client {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		JWTSecret:          "test-secret",
		CardSecret:         "test-card",
		TokenTTL:           time.Hour,
		UploadDir:          t.TempDir(),
		CORSAllowedOrigins: []string{"http://localhost:3000"},
	}
	return &client{t: t, router: NewRouter(cfg, storetest.Open(t), zaptest.NewLogger(t))}
}

func (c *client) do(method, path, token string, body interface{}) (int, map[string]interface{}) {
	c.t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(c.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	c.router.ServeHTTP(w, req)

	out := map[string]interface{}{}
	if w.Header().Get("Content-Type") == "application/json; charset=utf-8" && w.Body.Len() > 0 {
		require.NoError(c.t, json.Unmarshal(w.Body.Bytes(), &out))
	}
	return w.Code, out
}

func (c *client) signUpAndLogin(name string) string {
	c.t.Helper()
	email := name + "@example.com"

	code, _ := c.do(http.MethodPost, "/v1/auth/signup", "", gin.H{"name": name, "email": email, "password": "secret123"})
	require.Equal(c.t, http.StatusCreated, code)

	code, body := c.do(http.MethodPost, "/v1/auth/login", "", gin.H{"email": email, "password": "secret123"})
	require.Equal(c.t, http.StatusOK, code)
	token, ok := body["token"].(string)
	require.True(c.t, ok)
	return token
}

func TestHealth(t *testing.T) {
	c := newClient(t)
	code, body := c.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "healthy", body["status"])
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	c := newClient(t)
	code, _ := c.do(http.MethodGet, "/v1/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, body := c.do(http.MethodPost, "/v1/auth/login", "", gin.H{"email": "nobody@example.com", "password": "x"})
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "UNAUTHORIZED", body["code"])
}

func TestRegistrationFlow(t *testing.T) {
	c := newClient(t)
	organizer := c.signUpAndLogin("organizer")
	participant := c.signUpAndLogin("participant")

	start := time.Now().UTC().Add(72 * time.Hour).Truncate(time.Second)
	code, body := c.do(http.MethodPost, "/v1/events", organizer, gin.H{
		"title":       "Go Meetup",
		"description": "Monthly gathering of gophers.",
		"start_date":  start.Format(time.RFC3339),
		"end_date":    start.Add(2 * time.Hour).Format(time.RFC3339),
	})
	require.Equal(t, http.StatusCreated, code)
	event := body["event"].(map[string]interface{})
	eventID := event["id"].(string)
	assert.Equal(t, "draft", event["status"])

	code, body = c.do(http.MethodPost, "/v1/events/00000000-0000-0000-0000-000000000000/register", participant, nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "NOT_FOUND", body["code"])

	code, _ = c.do(http.MethodPost, "/v1/events/"+eventID+"/publish", participant, nil)
	assert.Equal(t, http.StatusForbidden, code)
	code, body = c.do(http.MethodPost, "/v1/events/"+eventID+"/publish", organizer, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "published", body["status"])

	code, body = c.do(http.MethodPost, "/v1/events/"+eventID+"/register", participant, nil)
	require.Equal(t, http.StatusCreated, code)
	registrationID := body["id"].(string)
	assert.Equal(t, "approved", body["status"])

	code, body = c.do(http.MethodGet, "/v1/events/"+eventID+"/registration", participant, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "approved", body["status"])

	code, body = c.do(http.MethodGet, "/v1/registrations/"+registrationID+"/card", participant, nil)
	require.Equal(t, http.StatusOK, code)
	qrData := body["qr_code_data"].(string)

	code, body = c.do(http.MethodPost, "/v1/checkin/qr", organizer, gin.H{"qr_data": qrData})
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 1, body["checkins_count"])
	assert.Equal(t, "qr", body["method"])

	code, body = c.do(http.MethodPost, "/v1/registrations/"+registrationID+"/checkin", organizer, nil)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "CAPACITY_EXCEEDED", body["code"])

	code, body = c.do(http.MethodPost, "/v1/registrations/"+registrationID+"/cancel", participant, nil)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "ALREADY_CHECKED_IN", body["code"])

	code, body = c.do(http.MethodGet, "/v1/events/"+eventID+"/participants", "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, body["participants"], 1)

	code, body = c.do(http.MethodGet, "/v1/dashboard/stats", organizer, nil)
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 1, body["total_events"])
	assert.EqualValues(t, 1, body["total_registrations"])

	code, body = c.do(http.MethodPut, "/v1/me", participant, gin.H{"city": "Recife"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Recife", body["city"])

	code, _ = c.do(http.MethodGet, "/v1/registrations/not-a-uuid/card", participant, nil)
	assert.Equal(t, http.StatusBadRequest, code)
}
