package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/hitoshi/matchup/internal/middleware"
	"github.com/hitoshi/matchup/internal/model"
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	// Signup は新規ユーザーを登録する。
	Signup(ctx context.Context, name, password string) (*model.User, error)
	// Login は認証情報を検証し、ユーザーと署名付きトークンを返す。
	Login(ctx context.Context, name, password string) (*model.User, string, error)
	// Token は指定ユーザーの署名付きトークンを発行する。
	Token(user *model.User) string
	// Verify はトークンを検証し、対応するユーザーを返す。
	Verify(ctx context.Context, token string) (*model.User, error)
}

// AuthHandlerConfig は認証ハンドラーのCookie設定。
type AuthHandlerConfig struct {
	CookieDomain  string
	CookieSecure  bool
	SessionMaxAge int
}

// AuthHandler は認証のHTTPハンドラー。
type AuthHandler struct {
	service AuthServiceInterface
	config  AuthHandlerConfig
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface, config AuthHandlerConfig) *AuthHandler {
	return &AuthHandler{
		service: service,
		config:  config,
	}
}

// credentialsRequest はサインアップ・ログインリクエストのボディ。
type credentialsRequest struct {
	Name     string `json:"name"`
	Password string `json:"password"`
}

// userResponse はユーザー情報のAPIレスポンス。
// パスワードハッシュと購読情報は含めない。
type userResponse struct {
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Signup は新規ユーザーを登録し、ログイン状態にする。
// POST /auth/signup
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequest(w)
		return
	}

	user, err := h.service.Signup(r.Context(), req.Name, req.Password)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	h.setSessionCookie(w, h.service.Token(user))
	writeJSON(w, http.StatusCreated, userResponse{Name: user.Name, CreatedAt: user.CreatedAt})
}

// Login は認証情報を検証し、Cookieセッションを発行する。
// POST /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequest(w)
		return
	}

	user, token, err := h.service.Login(r.Context(), req.Name, req.Password)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	h.setSessionCookie(w, token)
	writeJSON(w, http.StatusOK, userResponse{Name: user.Name, CreatedAt: user.CreatedAt})
}

// Logout はCookieセッションを破棄する。
// POST /auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteStrictMode,
	})
	w.WriteHeader(http.StatusNoContent)
}

// Me は現在のログインユーザーを返す。
// GET /auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(middleware.SessionCookieName)
	if err != nil || cookie.Value == "" {
		writeUnauthorized(w)
		return
	}

	user, err := h.service.Verify(r.Context(), cookie.Value)
	if err != nil || user == nil {
		writeUnauthorized(w)
		return
	}

	writeJSON(w, http.StatusOK, userResponse{Name: user.Name, CreatedAt: user.CreatedAt})
}

// setSessionCookie はHTTP Onlyの認証Cookieを設定する。
// Cookie認証のCSRF緩和としてSameSite=Strictを使用する。
func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    token,
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   h.config.SessionMaxAge,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteStrictMode,
	})
}
