package main

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/ovalledev/sigex/internal/domain"
)

// actorKey is the context key for the authenticated actor. A struct
// key cannot collide with keys from other packages.
type actorKey struct{}

// actorMiddleware resolves the X-User-ID header to an active user and
// places a domain.Actor in the request context. Authentication proper
// (sessions, tokens) sits in front of this service; the header is the
// identity contract with that layer.
func (app *application) actorMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		idStr := r.Header.Get("X-User-ID")
		if idStr == "" {
			writeJSONError(w, http.StatusUnauthorized, "missing X-User-ID header")
			return
		}

		id, err := strconv.ParseInt(idStr, 10, 64)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid X-User-ID header")
			return
		}

		u, err := app.store.Usuarios.GetByID(r.Context(), id)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				writeJSONError(w, http.StatusUnauthorized, "unknown user")
				return
			}
			writeJSONError(w, http.StatusInternalServerError, "failed to resolve user")
			return
		}
		if !u.Activo {
			writeJSONError(w, http.StatusForbidden, "user is deactivated")
			return
		}

		actor := domain.Actor{
			ID:           u.ID,
			Rol:          u.Rol,
			MunicipioIDs: u.MunicipioIDs,
		}

		ctx := context.WithValue(r.Context(), actorKey{}, actor)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// actorFrom extracts the acting user placed by actorMiddleware.
func actorFrom(ctx context.Context) (domain.Actor, bool) {
	a, ok := ctx.Value(actorKey{}).(domain.Actor)
	return a, ok
}

// mustActor is used at the top of every handler behind the middleware.
func (app *application) mustActor(w http.ResponseWriter, r *http.Request) (domain.Actor, bool) {
	a, ok := actorFrom(r.Context())
	if !ok {
		writeJSONError(w, http.StatusUnauthorized, "no authenticated user")
	}
	return a, ok
}
