package httpapi

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/Kaushal-jain01/TaskFlow-Marketplace/internal/store"
	"github.com/Kaushal-jain01/TaskFlow-Marketplace/pkg/tasks"
)

var errUnauthenticated = errors.New("authentication required")

// Authenticator resolves a request to an authenticated actor and their
// role. Authentication mechanics live outside this service; the core only
// consumes the resolved identity.
type Authenticator interface {
	Resolve(r *http.Request) (tasks.Actor, error)
}

// HeaderAuth trusts the X-User-ID header injected by the fronting identity
// layer and looks the role up in the profile store.
type HeaderAuth struct {
	Profiles store.ProfileStore
}

func (a HeaderAuth) Resolve(r *http.Request) (tasks.Actor, error) {
	raw := r.Header.Get("X-User-ID")
	if raw == "" {
		return tasks.Actor{}, errUnauthenticated
	}

	userID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || userID <= 0 {
		return tasks.Actor{}, errUnauthenticated
	}

	profile, err := a.Profiles.GetProfile(r.Context(), userID)
	if errors.Is(err, store.ErrNotFound) {
		return tasks.Actor{}, errUnauthenticated
	}
	if err != nil {
		return tasks.Actor{}, err
	}

	return tasks.Actor{ID: profile.UserID, Role: profile.Role}, nil
}
