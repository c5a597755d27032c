// Package auth resolves the caller's identity from a signed session
// cookie and enforces the authentication precondition on mutating routes.
// It also assigns the anonymous visitor identifier used by the redirect
// analytics.
package auth

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"

	"github.com/ArcaneCipher/tinyapp/internal/models"
	"github.com/ArcaneCipher/tinyapp/internal/user"
)

type userFinder interface {
	FindByID(id string) *user.User
}

// Claims are the JWT claims carried by the session cookie.
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"user_id"`
}

// ContextKey is a custom type for request context values to avoid collisions.
type ContextKey string

// UserIDKey holds the authenticated user's id in the request context.
const UserIDKey ContextKey = "userID"

// VisitorIDKey holds the anonymous visitor id in the request context.
const VisitorIDKey ContextKey = "visitorID"

// Gate interprets session state supplied by the transport layer. It keeps
// no state of its own; credentials are never re-validated per request.
type Gate struct {
	users             userFinder
	sessionCookieName string
	visitorCookieName string
	signingSecretKey  []byte
	sessionTTL        time.Duration
}

func New(
	users userFinder,
	sessionCookieName string,
	visitorCookieName string,
	signingSecretKey []byte,
	sessionTTL time.Duration,
) *Gate {
	return &Gate{
		users:             users,
		sessionCookieName: sessionCookieName,
		visitorCookieName: visitorCookieName,
		signingSecretKey:  signingSecretKey,
		sessionTTL:        sessionTTL,
	}
}

// CurrentUser resolves sessionUserID to a registered account, or nil when
// the id is empty or unknown.
func (g *Gate) CurrentUser(sessionUserID string) *user.User {
	if sessionUserID == "" {
		return nil
	}
	return g.users.FindByID(sessionUserID)
}

// RequireAuthenticated returns the account behind sessionUserID or
// ErrUnauthenticated. Every mutating URL operation checks this before
// proceeding; ownership itself is enforced by the store.
func (g *Gate) RequireAuthenticated(sessionUserID string) (*user.User, error) {
	usr := g.CurrentUser(sessionUserID)
	if usr == nil {
		return nil, models.ErrUnauthenticated
	}
	return usr, nil
}

// IssueSession sets a signed session cookie identifying userID.
func (g *Gate) IssueSession(response http.ResponseWriter, userID string) error {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(g.sessionTTL)),
		},
		UserID: userID,
	})

	tokenString, err := token.SignedString(g.signingSecretKey)
	if err != nil {
		return fmt.Errorf("signing session token: %w", err)
	}

	http.SetCookie(response, &http.Cookie{
		Name:     g.sessionCookieName,
		Value:    tokenString,
		Path:     "/",
		HttpOnly: true,
		MaxAge:   int(g.sessionTTL.Seconds()),
	})

	return nil
}

// ClearSession expires the session cookie.
func (g *Gate) ClearSession(response http.ResponseWriter) {
	http.SetCookie(response, &http.Cookie{
		Name:     g.sessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
}

// Authenticate is an HTTP middleware that parses the session cookie or
// Authorization header and stores the resolved user id in the request
// context. Requests without a valid session pass through with an empty id;
// RequireUser decides whether that is acceptable per route.
func (g *Gate) Authenticate(h http.Handler) http.Handler {
	middleware := func(response http.ResponseWriter, request *http.Request) {
		userID := g.userIDFromRequest(request)

		ctx := context.WithValue(request.Context(), UserIDKey, userID)
		h.ServeHTTP(response, request.WithContext(ctx))
	}

	return http.HandlerFunc(middleware)
}

// RequireUser is an HTTP middleware that rejects requests whose session
// does not resolve to a registered account.
func (g *Gate) RequireUser(h http.Handler) http.Handler {
	middleware := func(response http.ResponseWriter, request *http.Request) {
		userID, _ := request.Context().Value(UserIDKey).(string)
		if _, err := g.RequireAuthenticated(userID); err != nil {
			http.Error(response, models.ErrUnauthenticated.Error(), http.StatusUnauthorized)
			return
		}

		h.ServeHTTP(response, request)
	}

	return http.HandlerFunc(middleware)
}

// AssignVisitorID is an HTTP middleware that gives every browsing session
// a stable anonymous visitor id via a cookie, separate from the
// authenticated account identity.
func (g *Gate) AssignVisitorID(h http.Handler) http.Handler {
	middleware := func(response http.ResponseWriter, request *http.Request) {
		visitorID := ""
		if cookie, err := request.Cookie(g.visitorCookieName); err == nil {
			visitorID = cookie.Value
		}
		if visitorID == "" {
			visitorID = uuid.New().String()
			http.SetCookie(response, &http.Cookie{
				Name:  g.visitorCookieName,
				Value: visitorID,
				Path:  "/",
			})
		}

		ctx := context.WithValue(request.Context(), VisitorIDKey, visitorID)
		h.ServeHTTP(response, request.WithContext(ctx))
	}

	return http.HandlerFunc(middleware)
}

func (g *Gate) userIDFromRequest(request *http.Request) string {
	tokenString := request.Header.Get("Authorization")
	if tokenString == "" {
		cookie, err := request.Cookie(g.sessionCookieName)
		if err != nil {
			return ""
		}
		tokenString = cookie.Value
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(
		tokenString,
		claims,
		func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return g.signingSecretKey, nil
		},
	)
	if err != nil || !token.Valid {
		return ""
	}

	return claims.UserID
}
