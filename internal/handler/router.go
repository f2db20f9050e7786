package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/matchup/internal/metrics"
	"github.com/hitoshi/matchup/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	TokenVerifier     middleware.TokenVerifier
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// セッション
	SessionService SessionServiceInterface

	// プッシュ購読
	PushService    PushServiceInterface
	VAPIDPublicKey string

	// クラブ
	ClubService ClubServiceInterface

	// メトリクス
	Gatherer prometheus.Gatherer
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RecoveryMiddleware → SecurityHeadersMiddleware → CORSMiddleware
//	→ SessionMiddleware → RateLimitMiddleware(GeneralMiddleware)
//
// 認証ルート（/auth/*）、/health、/metricsはセッションミドルウェアの外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	// 全ルートに効くミドルウェアを最上位に適用
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	authHandler := NewAuthHandler(deps.AuthService, deps.AuthConfig)
	sessionHandler := NewSessionHandler(deps.SessionService)
	pushHandler := NewPushHandler(deps.PushService, deps.VAPIDPublicKey)
	clubHandler := NewClubHandler(deps.ClubService)

	// --- 認証不要のルート ---

	// ヘルスチェック（Dockerヘルスチェック・死活監視用）
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	// Prometheusメトリクス公開
	r.Handle("/metrics", metrics.Handler(deps.Gatherer))

	// 認証ルート
	r.Route("/auth", func(r chi.Router) {
		// POST /auth/signup - ユーザー登録（登録専用レート制限を追加）
		r.With(deps.RateLimiter.SignupMiddleware()).Post("/signup", authHandler.Signup)

		r.Post("/login", authHandler.Login)
		r.Post("/logout", authHandler.Logout)
		r.Get("/me", authHandler.Me)
	})

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Session → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.TokenVerifier))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// セッション管理
		r.Route("/api/sessions", func(r chi.Router) {
			r.Get("/", sessionHandler.List)
			r.Post("/", sessionHandler.Create)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", sessionHandler.Get)
				r.Put("/", sessionHandler.Edit)
				r.Delete("/", sessionHandler.Delete)

				// 参加・フォロー操作
				r.Post("/join", sessionHandler.Join)
				r.Post("/leave", sessionHandler.Leave)
				r.Post("/follow", sessionHandler.Follow)
				r.Post("/unfollow", sessionHandler.Unfollow)
				r.Put("/participants", sessionHandler.UpdateParticipants)

				// チャット
				r.Post("/messages", sessionHandler.SendMessage)
			})
		})

		// プッシュ購読管理
		r.Route("/api/push", func(r chi.Router) {
			r.Get("/key", pushHandler.VAPIDKey)
			r.Post("/subscribe", pushHandler.Subscribe)
			r.Post("/unsubscribe", pushHandler.Unsubscribe)
		})

		// クラブ参照
		r.Get("/api/clubs", clubHandler.List)
	})

	return r
}
