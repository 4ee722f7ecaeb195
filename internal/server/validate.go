package server

import (
	"net/http"
	"regexp"
	"strconv"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
	maxContentLength = 1000
)

var (
	businessIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
	uuidPattern       = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[1-5][0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}$`)
)

func validBusinessID(id string) bool {
	return id != "" && businessIDPattern.MatchString(id)
}

// parseConversationID accepts numeric ids. UUID-shaped ids pass format
// validation but can never match a stored row, so they resolve to 0 and
// the lookup reports not found.
func parseConversationID(raw string) (int64, bool) {
	if raw == "" {
		return 0, false
	}
	if id, err := strconv.ParseInt(raw, 10, 64); err == nil && id > 0 {
		return id, true
	}
	if uuidPattern.MatchString(raw) {
		return 0, true
	}
	return 0, false
}

// parsePagination reads limit/offset query params, reporting ok=false with a
// reason when a supplied value is out of range.
func parsePagination(r *http.Request) (limit, offset int, reason string, ok bool) {
	limit = defaultPageLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxPageLimit {
			return 0, 0, "Limit must be a number between 1 and 100", false
		}
		limit = n
	}
	if raw := r.URL.Query().Get("offset"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return 0, 0, "Offset must be a non-negative number", false
		}
		offset = n
	}
	return limit, offset, "", true
}
