package helpers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/farellandr/rollcall/internal/apperror"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func respond(err error) (*httptest.ResponseRecorder, ErrorResponse) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	RespondWithAppError(c, zap.NewNop(), err)

	var body ErrorResponse
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	return w, body
}

func TestRespondWithAppError(t *testing.T) {
	w, body := respond(apperror.WithMetadata(apperror.CodeEventFull, "Event is full.", map[string]string{"max_attendees": "2"}))
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "EVENT_FULL", body.Code)
	assert.Equal(t, "Event is full.", body.Message)
	assert.Equal(t, "2", body.Metadata["max_attendees"])

	w, body = respond(errors.New("load event: connection refused"))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Empty(t, body.Code)
	assert.NotContains(t, body.Message, "connection refused")
}

func TestDeleteFileStaysInsideBase(t *testing.T) {
	base := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(base, "event_banners"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(base, "event_banners", "a.png"), []byte("x"), 0o644))

	assert.Error(t, DeleteFile(base, "../outside.png"))
	require.NoError(t, DeleteFile(base, "event_banners/a.png"))
	_, err := os.Stat(filepath.Join(base, "event_banners", "a.png"))
	assert.True(t, os.IsNotExist(err))
}
