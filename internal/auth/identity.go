package auth

import "net/http"

// The edge proxy validates the session and forwards the user identity in
// this header; an absent header means unauthenticated.
const userIDHeader = "X-User-ID"

// UserID returns the authenticated user identity for the request, or the
// empty string when there is none.
func UserID(r *http.Request) string {
	return r.Header.Get(userIDHeader)
}
