// Package authenticator declares what the router needs from the session layer.
package authenticator

import (
	"context"
	"net/http"
)

type Authenticator interface {
	// Login opens a session for the credentials of a Basic Authorization header.
	Login(ctx context.Context, authorizationHeader string) (string, error)

	Logout(ctx context.Context, token string) error

	// RequireUser rejects requests without a valid session with 401.
	RequireUser(h http.Handler) http.Handler

	// OptionalUser degrades requests without a valid session to anonymous.
	OptionalUser(h http.Handler) http.Handler
}
