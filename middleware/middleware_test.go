package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"stationdesk/auth"
	"stationdesk/models"
	"stationdesk/store"
)

func okHandler(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := GetUserFromContext(r.Context())
		if !ok {
			t.Errorf("user missing from context")
		}
		if sid, ok := GetSessionFromContext(r.Context()); !ok || sid != "sid-1" {
			t.Errorf("unexpected session %q", sid)
		}
		w.Write([]byte(user.Email))
	})
}

func TestAuthMiddleware(t *testing.T) {
	ctx := context.Background()
	accounts := store.NewMemory()
	accounts.CreateUser(ctx, &models.User{Email: "op@example.com", Role: models.RoleOperator, IsActive: true})
	accounts.CreateUser(ctx, &models.User{Email: "new@example.com", Role: models.RolePending})
	accounts.CreateUser(ctx, &models.User{Email: "off@example.com", Role: models.RoleOperator})

	jwtManager := auth.NewJWTManager("secret", time.Minute, time.Hour)
	h := AuthMiddleware(jwtManager, accounts)(okHandler(t))

	token := func(email string, refresh bool) string {
		u := &models.User{Email: email}
		if refresh {
			s, _ := jwtManager.GenerateRefreshToken(u, "sid-1")
			return s
		}
		s, _ := jwtManager.GenerateToken(u, "sid-1")
		return s
	}

	cases := []struct {
		name   string
		header string
		want   int
	}{
		{"no header", "", http.StatusUnauthorized},
		{"bad scheme", "Basic x", http.StatusUnauthorized},
		{"garbage token", "Bearer nope", http.StatusUnauthorized},
		{"refresh token", "Bearer " + token("op@example.com", true), http.StatusUnauthorized},
		{"unknown user", "Bearer " + token("ghost@example.com", false), http.StatusUnauthorized},
		{"pending user", "Bearer " + token("new@example.com", false), http.StatusForbidden},
		{"inactive user", "Bearer " + token("off@example.com", false), http.StatusForbidden},
		{"active user", "Bearer " + token("op@example.com", false), http.StatusOK},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/api/dashboard", nil)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != tc.want {
			t.Fatalf("%s: expected %d, got %d (%s)", tc.name, tc.want, rec.Code, rec.Body.String())
		}
	}
}

func TestRequireRole(t *testing.T) {
	h := RequireRole(models.RoleAdmin)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(WithViewer(req.Context(), &models.User{Role: models.RoleOperator}, "s"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}

	req = req.WithContext(WithViewer(req.Context(), &models.User{Role: models.RoleAdmin}, "s"))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)
	h := rl.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	codes := []int{}
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Forwarded-For", "10.0.0.1, 172.16.0.1")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Fatalf("unexpected codes %v", codes)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.2:5555"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("other client must have its own budget, got %d", rec.Code)
	}
	if n := rl.Cleanup(-time.Second); n != 2 {
		t.Fatalf("expected 2 visitors cleaned up, got %d", n)
	}
}

func TestCORS(t *testing.T) {
	h := CORSMiddleware([]string{"http://localhost:5173"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodOptions, "/api/login", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent || rec.Header().Get("Access-Control-Allow-Origin") != "http://localhost:5173" {
		t.Fatalf("preflight not answered: %d %v", rec.Code, rec.Header())
	}

	req = httptest.NewRequest(http.MethodGet, "/api/login", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Fatalf("unexpected origin allowed")
	}
}
