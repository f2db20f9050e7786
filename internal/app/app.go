// Package app はアプリケーションの起動とワイヤリングを提供する。
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/matchup/internal/auth"
	"github.com/hitoshi/matchup/internal/config"
	"github.com/hitoshi/matchup/internal/handler"
	"github.com/hitoshi/matchup/internal/logger"
	"github.com/hitoshi/matchup/internal/metrics"
	"github.com/hitoshi/matchup/internal/middleware"
	"github.com/hitoshi/matchup/internal/notification"
	"github.com/hitoshi/matchup/internal/push"
	"github.com/hitoshi/matchup/internal/repository"
	"github.com/hitoshi/matchup/internal/security"
	"github.com/hitoshi/matchup/internal/session"
	"github.com/hitoshi/matchup/internal/worker/reminder"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("base_url", cfg.BaseURL),
	)

	return runServe(cfg)
}

// runServe はAPIサーバーモードで起動する。
// データディレクトリを確保し、全依存関係をワイヤリングし、
// 通知ワーカーとリマインダースケジューラをバックグラウンドで起動してから
// HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. データディレクトリの確保
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	slog.Info("data directory ready", slog.String("dir", cfg.DataDir))

	// 2. リポジトリの初期化
	userRepo := repository.NewFileUserRepo(cfg.DataDir)
	sessionRepo := repository.NewFileSessionRepo(cfg.DataDir)
	clubRepo := repository.NewFileClubRepo(cfg.DataDir)

	// 3. セキュリティサービスの初期化
	endpointGuard := security.NewEndpointGuard()
	sanitizer := security.NewMessageSanitizer()

	// 4. メトリクスの初期化
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	userRepo.SetRecoveryHook(collector.RecordStoreRecovery)
	sessionRepo.SetRecoveryHook(collector.RecordStoreRecovery)
	clubRepo.SetRecoveryHook(collector.RecordStoreRecovery)

	// 5. 通知パイプラインの初期化
	transport := notification.NewWebPushTransport(endpointGuard, notification.WebPushConfig{
		VAPIDPublicKey:  cfg.VAPIDPublicKey,
		VAPIDPrivateKey: cfg.VAPIDPrivateKey,
		Subject:         cfg.VAPIDSubject,
		Timeout:         cfg.PushTimeout,
	})
	dispatcher := notification.NewDispatcher(userRepo, transport, collector, slog.Default())
	pushWorker := notification.NewWorker(cfg.PushQueueSize, slog.Default())
	intents := notification.NewIntents(dispatcher, pushWorker, slog.Default())

	// 6. ドメインサービスの初期化
	authService := auth.NewService(userRepo, auth.ServiceConfig{
		Secret:        []byte(cfg.SessionSecret),
		SessionMaxAge: cfg.SessionMaxAge,
	})
	sessionService := session.NewService(sessionRepo, clubRepo, intents, sanitizer, session.Config{
		MaxSessions: cfg.MaxSessions,
		SuperUser:   cfg.SuperUser,
	})
	pushService := push.NewService(userRepo, endpointGuard)

	// 7. リマインダースケジューラの初期化
	scheduler := reminder.NewScheduler(sessionRepo, intents, collector, slog.Default(), cfg.ReminderLead)

	// 8. ルーターの構築
	rateLimiter := middleware.NewRateLimiter(middleware.NewRateLimiterConfig(cfg.RateLimitGeneral, cfg.RateLimitSignup))
	defer rateLimiter.Stop()

	deps := &handler.RouterDeps{
		TokenVerifier:     authService,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rateLimiter,

		AuthService: authService,
		AuthConfig: handler.AuthHandlerConfig{
			CookieDomain:  cfg.CookieDomain,
			CookieSecure:  cfg.CookieSecure,
			SessionMaxAge: cfg.SessionMaxAge,
		},

		SessionService: sessionService,

		PushService:    pushService,
		VAPIDPublicKey: cfg.VAPIDPublicKey,

		ClubService: clubRepo,

		Gatherer: registry,
	}

	router := handler.NewRouter(deps)

	// 9. バックグラウンドジョブの起動
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go pushWorker.Start(ctx)
	go scheduler.Start(ctx, cfg.ReminderInterval)

	// 10. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down API server...")

	// バックグラウンドジョブを停止してからHTTPサーバーを閉じる
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}
