// Package auth turns request credentials into a user identity. Sessions are
// issued elsewhere; this service only trusts a user id that an identity
// provider or gateway already vouched for.
package auth

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gamemaster-scheduling/pickup/internal/apperr"
)

// Identity is the authenticated caller. Name and Email are optional and, when
// present, are mirrored into the users table.
type Identity struct {
	UserID int64
	Name   string
	Email  string
}

// Authenticator extracts an Identity from a request. It returns (nil, nil)
// when the request carries no credentials at all, and an Unauthenticated
// error when credentials are present but invalid.
type Authenticator interface {
	Authenticate(r *http.Request) (*Identity, error)
}

// Headers set by a trusted gateway in header mode.
const (
	HeaderUserID    = "X-User-ID"
	HeaderUserName  = "X-User-Name"
	HeaderUserEmail = "X-User-Email"
)

// HeaderAuthenticator trusts the X-User-* headers. Only deploy it behind a
// gateway that strips these headers from client requests.
type HeaderAuthenticator struct{}

func (HeaderAuthenticator) Authenticate(r *http.Request) (*Identity, error) {
	raw := strings.TrimSpace(r.Header.Get(HeaderUserID))
	if raw == "" {
		return nil, nil
	}
	id, err := parseUserID(raw)
	if err != nil {
		return nil, err
	}
	return &Identity{
		UserID: id,
		Name:   strings.TrimSpace(r.Header.Get(HeaderUserName)),
		Email:  strings.TrimSpace(r.Header.Get(HeaderUserEmail)),
	}, nil
}

func parseUserID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.Unauthenticated("invalid user id %q", s)
	}
	return id, nil
}

type ctxKey struct{}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext returns the caller's identity, or nil for anonymous requests.
func FromContext(ctx context.Context) *Identity {
	id, _ := ctx.Value(ctxKey{}).(*Identity)
	return id
}
