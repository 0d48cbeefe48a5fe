package testutil

import (
	"net/http"

	"caseflow/pkg/requestcontext"
)

// AsActor attaches an authenticated actor to the request context, simulating
// what the auth middleware does for a valid bearer token.
func AsActor(req *http.Request, actorID string, roles ...string) *http.Request {
	return req.WithContext(requestcontext.WithActor(req.Context(), actorID, roles))
}
