// Package middleware содержит HTTP middleware витрины: аутентификацию, гостевые сессии, сжатие и журнал запросов.
package middleware

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"
	"time"
)

type contextKey string

const userIDKey contextKey = "userID"

const (
	authCookieName = "auth_token"
	authCookieTTL  = 365 * 24 * time.Hour
)

// AuthMiddleware выполняет проверку аутентификации пользователя по подписанному cookie.
type AuthMiddleware struct {
	secretKey []byte
}

// NewAuthMiddleware создаёт новый экземпляр AuthMiddleware с указанным секретным ключом.
// Пустой ключ заменяется случайным, и cookie перестают быть действительными после перезапуска.
func NewAuthMiddleware(secret string) *AuthMiddleware {
	key := []byte(secret)
	if len(key) == 0 {
		randomKey := make([]byte, 32)
		if _, err := rand.Read(randomKey); err == nil {
			key = randomKey
		} else {
			key = []byte("default-secret-key")
		}
	}

	return &AuthMiddleware{
		secretKey: key,
	}
}

// Middleware пропускает только запросы с действительным cookie авторизации.
func (a *AuthMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := a.userFromRequest(r)
		if !ok {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Optional добавляет идентификатор пользователя в контекст, если cookie действителен,
// и пропускает анонимные запросы без изменений.
func (a *AuthMiddleware) Optional(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if userID, ok := a.userFromRequest(r); ok {
			r = r.WithContext(context.WithValue(r.Context(), userIDKey, userID))
		}
		next.ServeHTTP(w, r)
	})
}

func (a *AuthMiddleware) userFromRequest(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(authCookieName)
	if err != nil {
		return "", false
	}
	return a.parseCookie(cookie.Value)
}

// SetAuthCookie устанавливает cookie авторизации для указанного идентификатора пользователя.
func (a *AuthMiddleware) SetAuthCookie(w http.ResponseWriter, userID string) {
	cookie := &http.Cookie{
		Name:     authCookieName,
		Value:    a.sign(userID),
		Path:     "/",
		Expires:  time.Now().Add(authCookieTTL),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}

	http.SetCookie(w, cookie)
}

// ClearAuthCookie удаляет cookie авторизации.
func (a *AuthMiddleware) ClearAuthCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     authCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (a *AuthMiddleware) signature(userID string) string {
	mac := hmac.New(sha256.New, a.secretKey)
	mac.Write([]byte(userID))
	return hex.EncodeToString(mac.Sum(nil))
}

func (a *AuthMiddleware) sign(userID string) string {
	return userID + "." + a.signature(userID)
}

func (a *AuthMiddleware) parseCookie(cookieValue string) (string, bool) {
	userID, signature, ok := strings.Cut(cookieValue, ".")
	if !ok || userID == "" || strings.Contains(signature, ".") {
		return "", false
	}

	if !hmac.Equal([]byte(signature), []byte(a.signature(userID))) {
		return "", false
	}

	return userID, true
}

// GetUserIDFromContext извлекает идентификатор пользователя из контекста запроса.
func GetUserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok
}
