package testutil

import (
	"net/http"

	id "passport/pkg/domain"
	"passport/pkg/requestcontext"
)

// AsActor attaches the identity and claimed role the auth middleware would
// have set for an authenticated request.
func AsActor(req *http.Request, userID id.UserID, role string) *http.Request {
	return req.WithContext(requestcontext.WithActor(req.Context(), userID, role))
}
