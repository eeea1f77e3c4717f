// Package auth issues and resolves session tokens. A token is an opaque
// random string; its only state is the cache entry mapping it to a user id,
// which expires after the configured session TTL.
package auth

import (
	"context"
	"crypto/sha1"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/patric-chuzhbe/filesmanager/internal/logger"
	"github.com/patric-chuzhbe/filesmanager/internal/models"
	"github.com/patric-chuzhbe/filesmanager/internal/user"
)

// TokenHeader carries the session token on every authenticated request.
const TokenHeader = "X-Token"

const sessionKeyPrefix = "auth_"

type userKeeper interface {
	GetUserByCredentials(ctx context.Context, email, passwordDigest string) (*user.User, bool, error)
}

type sessionStore interface {
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, bool, error)
	Delete(ctx context.Context, key string) error
}

// Auth handles login, logout and caller resolution.
type Auth struct {
	db         userKeeper
	sessions   sessionStore
	sessionTTL time.Duration
}

// ContextKey is a custom type for storing values in context to avoid collisions.
type ContextKey string

// UserIDKey is the context key used to store and retrieve the authenticated user's ID.
const UserIDKey ContextKey = "userID"

func New(db userKeeper, sessions sessionStore, sessionTTL time.Duration) *Auth {
	return &Auth{
		db:         db,
		sessions:   sessions,
		sessionTTL: sessionTTL,
	}
}

// HashPassword returns the stored form of a password: its hex SHA-1 digest.
func HashPassword(password string) string {
	sum := sha1.Sum([]byte(password))
	return hex.EncodeToString(sum[:])
}

func sessionKey(token string) string {
	return sessionKeyPrefix + token
}

// parseBasic extracts the credentials of a "Basic base64(email:password)" header.
func parseBasic(header string) (email, password string, ok bool) {
	scheme, encoded, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Basic") {
		return "", "", false
	}

	decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		return "", "", false
	}

	parts := strings.SplitN(string(decoded), ":", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}

	return parts[0], parts[1], true
}

// Login checks the credentials from an Authorization header and opens a session.
func (a *Auth) Login(ctx context.Context, authorizationHeader string) (string, error) {
	email, password, ok := parseBasic(authorizationHeader)
	if !ok {
		return "", models.ErrUnauthorized
	}

	usr, found, err := a.db.GetUserByCredentials(ctx, email, HashPassword(password))
	if err != nil {
		return "", fmt.Errorf("in internal/auth/auth.go/Login(): error while `a.db.GetUserByCredentials()` calling: %w", err)
	}
	if !found {
		return "", models.ErrUnauthorized
	}

	token := uuid.NewString()
	if err := a.sessions.Set(ctx, sessionKey(token), strconv.FormatInt(usr.ID, 10), a.sessionTTL); err != nil {
		return "", fmt.Errorf("in internal/auth/auth.go/Login(): error while `a.sessions.Set()` calling: %w", err)
	}

	return token, nil
}

// Logout ends the session. Unknown and expired tokens are unauthorized.
func (a *Auth) Logout(ctx context.Context, token string) error {
	if _, err := a.ResolveCaller(ctx, token); err != nil {
		return err
	}

	if err := a.sessions.Delete(ctx, sessionKey(token)); err != nil {
		return fmt.Errorf("in internal/auth/auth.go/Logout(): error while `a.sessions.Delete()` calling: %w", err)
	}

	return nil
}

// ResolveCaller returns the user id a token was issued to.
func (a *Auth) ResolveCaller(ctx context.Context, token string) (int64, error) {
	if token == "" {
		return 0, models.ErrUnauthorized
	}

	value, found, err := a.sessions.Get(ctx, sessionKey(token))
	if err != nil {
		return 0, fmt.Errorf("in internal/auth/auth.go/ResolveCaller(): error while `a.sessions.Get()` calling: %w", err)
	}
	if !found {
		return 0, models.ErrUnauthorized
	}

	userID, err := strconv.ParseInt(value, 10, 64)
	if err != nil || userID <= 0 {
		logger.Log.Warnw("malformed session entry", "value", value)
		return 0, models.ErrUnauthorized
	}

	return userID, nil
}

// UserIDFromContext returns the caller put into the context by the middlewares.
// Anonymous callers yield models.Anonymous.
func UserIDFromContext(ctx context.Context) int64 {
	userID, ok := ctx.Value(UserIDKey).(int64)
	if !ok {
		return models.Anonymous
	}

	return userID
}

func writeError(response http.ResponseWriter, status int, message string) {
	response.Header().Set("Content-Type", "application/json")
	response.WriteHeader(status)
	if err := json.NewEncoder(response).Encode(models.ErrorResponse{Error: message}); err != nil {
		logger.Log.Debugln("Error calling the `json.NewEncoder(response).Encode()`: ", zap.Error(err))
	}
}

// RequireUser is an HTTP middleware that rejects requests without a valid
// session token and stores the caller's id in the request context.
func (a *Auth) RequireUser(h http.Handler) http.Handler {
	middleware := func(response http.ResponseWriter, request *http.Request) {
		userID, err := a.ResolveCaller(request.Context(), request.Header.Get(TokenHeader))
		if err != nil {
			if errors.Is(err, models.ErrUnauthorized) {
				writeError(response, http.StatusUnauthorized, "Unauthorized")
				return
			}
			logger.Log.Errorw("session lookup failed", "error", err)
			writeError(response, http.StatusInternalServerError, "Internal server error")
			return
		}

		ctx := context.WithValue(request.Context(), UserIDKey, userID)
		h.ServeHTTP(response, request.WithContext(ctx))
	}

	return http.HandlerFunc(middleware)
}

// OptionalUser is an HTTP middleware that resolves the caller when it can
// and lets the request through as anonymous otherwise.
func (a *Auth) OptionalUser(h http.Handler) http.Handler {
	middleware := func(response http.ResponseWriter, request *http.Request) {
		userID, err := a.ResolveCaller(request.Context(), request.Header.Get(TokenHeader))
		if err != nil {
			if !errors.Is(err, models.ErrUnauthorized) {
				logger.Log.Warnw("session lookup failed, serving as anonymous", "error", err)
			}
			userID = models.Anonymous
		}

		ctx := context.WithValue(request.Context(), UserIDKey, userID)
		h.ServeHTTP(response, request.WithContext(ctx))
	}

	return http.HandlerFunc(middleware)
}
