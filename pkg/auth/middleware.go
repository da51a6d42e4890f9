package auth

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"

	"github.com/ghuser/stockledger/pkg/httpx"
	"github.com/ghuser/stockledger/pkg/logger"
)

const sessionName = "stockledger_session"
const (
	sessionOrgIDKey   = "org_id"
	sessionActorIDKey = "actor_id"
)

// RequireAuth is a chi middleware that enforces authentication via session cookies.
// It reads the session cookie, extracts the OrgID and ActorID, and injects both
// into the request context. Returns 401 Unauthorized if the session is missing,
// invalid, or lacks valid identity values.
//
// After this middleware, handlers can safely call auth.OrgIDFromCtx(r.Context())
// and auth.ActorIDFromCtx(r.Context()).
func RequireAuth(store sessions.Store, log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session, err := store.Get(r, sessionName)
			if err != nil {
				log.WarnContext(r.Context(), "invalid session cookie", "error", err)
				httpx.JSON(w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
				return
			}

			orgID, ok := parseSessionUUID(session, sessionOrgIDKey)
			if !ok {
				log.WarnContext(r.Context(), "session missing or invalid org_id")
				httpx.JSON(w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
				return
			}

			actorID, ok := parseSessionUUID(session, sessionActorIDKey)
			if !ok {
				log.WarnContext(r.Context(), "session missing or invalid actor_id")
				httpx.JSON(w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
				return
			}

			ctx := WithActorID(WithOrgID(r.Context(), orgID), actorID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func parseSessionUUID(session *sessions.Session, key string) (uuid.UUID, bool) {
	raw, ok := session.Values[key].(string)
	if !ok || raw == "" {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}
