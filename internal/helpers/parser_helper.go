package helpers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func StringToInt(s string) (int, error) {
	return strconv.Atoi(s)
}

// QueryInt reads an integer query parameter, falling back to def when it is
// missing or malformed.
func QueryInt(c *gin.Context, key string, def int) int {
	raw, ok := c.GetQuery(key)
	if !ok {
		return def
	}
	v, err := StringToInt(raw)
	if err != nil {
		return def
	}
	return v
}

// QueryTime reads an RFC 3339 query parameter. A missing parameter yields nil.
func QueryTime(c *gin.Context, key string) (*time.Time, bool) {
	raw := c.Query(key)
	if raw == "" {
		return nil, true
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		RespondWithError(c, http.StatusBadRequest, "Invalid "+key+" format. Use RFC 3339.")
		return nil, false
	}
	return &t, true
}

// ParamUUID parses a path parameter and writes a 400 when it is not a UUID.
func ParamUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		RespondWithError(c, http.StatusBadRequest, "Invalid "+name+".")
		return uuid.Nil, false
	}
	return id, true
}
