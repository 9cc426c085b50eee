package middleware

import (
	"context"
	"net/http"
	"time"

	"storefront/internal/config"
	"storefront/internal/domain"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultSessionCookie = "storefront_session"
	defaultSessionMaxAge = 30 * 24 * time.Hour
)

// SessionMiddleware gives every visitor an anonymous session id carried in a
// cookie. A missing or malformed cookie is replaced with a fresh UUID.
func SessionMiddleware(cfg config.SessionConfig, logger *zap.Logger) func(http.Handler) http.Handler {
	name := cfg.CookieName
	if name == "" {
		name = defaultSessionCookie
	}
	maxAge := time.Duration(cfg.MaxAgeDays) * 24 * time.Hour
	if maxAge <= 0 {
		maxAge = defaultSessionMaxAge
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var sessionID string
			if cookie, err := r.Cookie(name); err == nil {
				if id, err := uuid.Parse(cookie.Value); err == nil {
					sessionID = id.String()
				}
			}

			if sessionID == "" {
				sessionID = uuid.NewString()
				http.SetCookie(w, &http.Cookie{
					Name:     name,
					Value:    sessionID,
					Path:     "/",
					MaxAge:   int(maxAge.Seconds()),
					HttpOnly: true,
					Secure:   cfg.Secure,
					SameSite: http.SameSiteLaxMode,
				})
				logger.Debug("Issued anonymous session", zap.String("session_id", sessionID))
			}

			ctx := context.WithValue(r.Context(), SessionIDKey, sessionID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetSessionID extracts the anonymous session id from request context
func GetSessionID(ctx context.Context) (string, bool) {
	sessionID, ok := ctx.Value(SessionIDKey).(string)
	return sessionID, ok && sessionID != ""
}

// ResolveOwner returns the cart owner for the request: the authenticated user
// when there is one, otherwise the anonymous session.
func ResolveOwner(ctx context.Context) (domain.Owner, bool) {
	if userID, ok := GetUserID(ctx); ok {
		return domain.UserOwner(userID), true
	}
	if sessionID, ok := GetSessionID(ctx); ok {
		return domain.SessionOwner(sessionID), true
	}
	return domain.Owner{}, false
}
