package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	maxTitleLen   = 500
	maxContentLen = 10000
)

// oneOf reports whether value is in allowed. Empty values pass; required
// checks happen separately.
func oneOf(value string, allowed []string) bool {
	if value == "" {
		return true
	}
	for _, a := range allowed {
		if value == a {
			return true
		}
	}
	return false
}

// validDate reports whether s is an ISO calendar date (YYYY-MM-DD).
func validDate(s string) bool {
	if s == "" {
		return true
	}
	_, err := time.Parse("2006-01-02", s)
	return err == nil
}

// queryInt parses an integer query parameter, falling back to def for
// missing or malformed values.
func queryInt(r *http.Request, key string, def int) int {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

// pagination extracts limit/offset with sane bounds.
func pagination(r *http.Request, defLimit, maxLimit int) (limit, offset int) {
	limit = queryInt(r, "limit", defLimit)
	if limit <= 0 || limit > maxLimit {
		limit = defLimit
	}
	offset = queryInt(r, "offset", 0)
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func validEmail(s string) bool {
	at := strings.Index(s, "@")
	return at > 0 && at < len(s)-1 && len(s) <= 254
}
