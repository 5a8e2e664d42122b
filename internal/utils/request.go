package utils

import (
	"net/http"
	"strings"
)

// HeaderUserID carries the caller's identity. Authentication happens upstream.
const HeaderUserID = "X-User-ID"

// UserID returns the trimmed user id from the request, or "" when absent.
func UserID(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(HeaderUserID))
}
