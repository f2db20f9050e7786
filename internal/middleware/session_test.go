package middleware

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/matchup/internal/model"
)

// mockVerifier はTokenVerifierのテスト用実装。
type mockVerifier struct {
	verifyFunc func(ctx context.Context, token string) (*model.User, error)
}

func (m *mockVerifier) Verify(ctx context.Context, token string) (*model.User, error) {
	return m.verifyFunc(ctx, token)
}

// 有効なCookieを持つリクエストが通過し、ユーザー名がコンテキストに注入されることを確認する。
func TestSessionMiddleware_ValidCookie_InjectsUser(t *testing.T) {
	verifier := &mockVerifier{
		verifyFunc: func(ctx context.Context, token string) (*model.User, error) {
			if token != "valid-token" {
				t.Errorf("token = %q, want %q", token, "valid-token")
			}
			return &model.User{Name: "Alice", Normalized: "alice"}, nil
		},
	}

	var gotName string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name, err := UserFromContext(r.Context())
		if err != nil {
			t.Fatalf("UserFromContext returned error: %v", err)
		}
		gotName = name
		w.WriteHeader(http.StatusOK)
	})

	handler := NewSessionMiddleware(verifier)(next)

	req := httptest.NewRequest(http.MethodGet, "/api/sessions", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "valid-token"})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if gotName != "Alice" {
		t.Errorf("injected user = %q, want %q", gotName, "Alice")
	}
}

// Cookieがないリクエストには401を返すことを確認する。
func TestSessionMiddleware_MissingCookie_Unauthorized(t *testing.T) {
	verifier := &mockVerifier{
		verifyFunc: func(ctx context.Context, token string) (*model.User, error) {
			t.Fatal("Verify should not be called without a cookie")
			return nil, nil
		},
	}

	handler := NewSessionMiddleware(verifier)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("next handler should not be called")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/sessions", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

// トークン検証に失敗したリクエストには401を返すことを確認する。
func TestSessionMiddleware_InvalidToken_Unauthorized(t *testing.T) {
	verifier := &mockVerifier{
		verifyFunc: func(ctx context.Context, token string) (*model.User, error) {
			return nil, fmt.Errorf("invalid token")
		},
	}

	handler := NewSessionMiddleware(verifier)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("next handler should not be called")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/sessions", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "tampered"})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

// UserFromContext と ContextWithUser の往復を確認する。
func TestUserFromContext(t *testing.T) {
	ctx := ContextWithUser(context.Background(), "bob")
	name, err := UserFromContext(ctx)
	if err != nil {
		t.Fatalf("UserFromContext returned error: %v", err)
	}
	if name != "bob" {
		t.Errorf("name = %q, want %q", name, "bob")
	}

	if _, err := UserFromContext(context.Background()); err == nil {
		t.Error("expected error for context without user")
	}
}
