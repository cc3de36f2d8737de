package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestAuthMiddleware_WithValidCookie(t *testing.T) {
	m := NewAuthMiddleware("test-secret")

	nextCalled := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		nextCalled = true
		id, ok := GetUserIDFromContext(r.Context())
		if !ok {
			t.Fatalf("user id not in context")
		}
		if id != "user-42" {
			t.Fatalf("user id from context = %q, want %q", id, "user-42")
		}
	})

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/protected", nil)

	m.SetAuthCookie(w, "user-42")
	res := w.Result()
	resCookies := res.Cookies()
	if len(resCookies) == 0 {
		t.Fatalf("no cookies set by SetAuthCookie")
	}

	r.AddCookie(resCookies[0])

	handler := m.Middleware(next)
	handler.ServeHTTP(httptest.NewRecorder(), r)

	if !nextCalled {
		t.Fatalf("next handler was not called")
	}
}

func TestAuthMiddleware_WithoutCookie(t *testing.T) {
	m := NewAuthMiddleware("test-secret")

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("next handler should not be called")
	})

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/protected", nil)

	handler := m.Middleware(next)
	handler.ServeHTTP(w, r)

	res := w.Result()
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusUnauthorized)
	}
}

func TestAuthMiddleware_RejectsForeignSignature(t *testing.T) {
	issuer := NewAuthMiddleware("other-secret")
	m := NewAuthMiddleware("test-secret")

	w := httptest.NewRecorder()
	issuer.SetAuthCookie(w, "user-42")

	r := httptest.NewRequest(http.MethodGet, "/protected", nil)
	r.AddCookie(w.Result().Cookies()[0])

	rec := httptest.NewRecorder()
	m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("next handler should not be called")
	})).ServeHTTP(rec, r)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestAuthMiddleware_OptionalPassesAnonymous(t *testing.T) {
	m := NewAuthMiddleware("test-secret")

	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		if _, ok := GetUserIDFromContext(r.Context()); ok {
			t.Fatalf("anonymous request must not carry a user id")
		}
	})

	r := httptest.NewRequest(http.MethodGet, "/api/menu", nil)
	r.AddCookie(&http.Cookie{Name: authCookieName, Value: "forged.deadbeef"})
	m.Optional(next).ServeHTTP(httptest.NewRecorder(), r)

	if !called {
		t.Fatalf("next handler was not called")
	}
}

func TestAuthMiddleware_ClearAuthCookieExpires(t *testing.T) {
	m := NewAuthMiddleware("test-secret")

	w := httptest.NewRecorder()
	m.ClearAuthCookie(w)

	cookies := w.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("cookies = %d, want 1", len(cookies))
	}
	if cookies[0].Name != authCookieName || cookies[0].MaxAge >= 0 {
		t.Fatalf("cookie %q MaxAge = %d, want an expiring auth cookie", cookies[0].Name, cookies[0].MaxAge)
	}
}

func TestGuestSession_IssuesAndKeepsID(t *testing.T) {
	var seen string
	handler := GuestSession(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := GetGuestIDFromContext(r.Context())
		if !ok || id == "" {
			t.Fatalf("guest id not in context")
		}
		seen = id
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/cart", nil))

	cookies := w.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Value != seen {
		t.Fatalf("guest cookie not issued for %q", seen)
	}
	first := seen

	r := httptest.NewRequest(http.MethodGet, "/api/cart", nil)
	r.AddCookie(cookies[0])
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	if seen != first {
		t.Fatalf("guest id = %q, want %q", seen, first)
	}
	if len(w.Result().Cookies()) != 0 {
		t.Fatalf("existing session must not be reissued")
	}
}
