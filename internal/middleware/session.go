// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"fmt"
	"net/http"

	"github.com/hitoshi/matchup/internal/model"
)

// SessionCookieName は認証トークンを保持するCookieの名前。
const SessionCookieName = "auth_token"

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// userNameContextKey はリクエストコンテキストにユーザー表示名を格納するためのキー。
var userNameContextKey = contextKey("user_name")

// TokenVerifier は認証トークンの検証に必要なインターフェース。
// auth.Serviceの部分集合として定義する。
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*model.User, error)
}

// NewSessionMiddleware はHTTP Only Cookieから認証トークンを読み取り、
// 署名とユーザーの存在を検証するミドルウェアを返す。
// 認証済みユーザーの表示名をリクエストコンテキストに注入する。
// 未認証リクエストには401 Unauthorizedを返す。
func NewSessionMiddleware(verifier TokenVerifier) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(SessionCookieName)
			if err != nil || cookie.Value == "" {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			user, err := verifier.Verify(r.Context(), cookie.Value)
			if err != nil || user == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), userNameContextKey, user.Name)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserFromContext はリクエストコンテキストからユーザー表示名を取得する。
// セッションミドルウェアを通過したリクエストでのみ有効。
func UserFromContext(ctx context.Context) (string, error) {
	name, ok := ctx.Value(userNameContextKey).(string)
	if !ok || name == "" {
		return "", fmt.Errorf("user not found in context")
	}
	return name, nil
}

// ContextWithUser はコンテキストにユーザー表示名を注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithUser(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, userNameContextKey, name)
}
