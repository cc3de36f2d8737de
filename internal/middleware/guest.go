package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
)

const guestIDKey contextKey = "guestID"

const (
	guestCookieName = "guest_session"
	guestCookieTTL  = 30 * 24 * time.Hour
)

// GuestSession выдаёт каждому клиенту идентификатор гостевой сессии и кладёт его в контекст.
// Гостевая корзина и выбранный регион привязаны к этому идентификатору.
func GuestSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var guestID string
		if cookie, err := r.Cookie(guestCookieName); err == nil {
			if id, err := uuid.Parse(cookie.Value); err == nil {
				guestID = id.String()
			}
		}

		if guestID == "" {
			guestID = uuid.NewString()
			http.SetCookie(w, &http.Cookie{
				Name:     guestCookieName,
				Value:    guestID,
				Path:     "/",
				Expires:  time.Now().Add(guestCookieTTL),
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}

		ctx := context.WithValue(r.Context(), guestIDKey, guestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetGuestIDFromContext извлекает идентификатор гостевой сессии из контекста запроса.
func GetGuestIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(guestIDKey).(string)
	return id, ok
}
