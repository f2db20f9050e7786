package notification

import (
	"context"
	"io"
	"net/http"
	"time"

	webpush "github.com/SherClockHolmes/webpush-go"
	"github.com/hitoshi/matchup/internal/model"
	"github.com/hitoshi/matchup/internal/security"
)

// WebPushConfig はWeb Pushトランスポートの設定。
type WebPushConfig struct {
	VAPIDPublicKey  string
	VAPIDPrivateKey string
	Subject         string // VAPID sub クレーム（mailto: または https: URL）
	Timeout         time.Duration
	TTL             int // Pushサービス側の保持秒数
}

// WebPushTransport はwebpush-goによるWeb Push Protocol実装のTransport。
// 送信にはSSRF防止機能付きのHTTPクライアントを使用し、
// ユーザーが登録した任意のエンドポイントURLへの内部ネットワークアクセスを防ぐ。
type WebPushTransport struct {
	client *http.Client
	config WebPushConfig
}

// NewWebPushTransport はWebPushTransportの新しいインスタンスを生成する。
func NewWebPushTransport(guard security.EndpointGuardService, config WebPushConfig) *WebPushTransport {
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}
	if config.TTL <= 0 {
		config.TTL = 3600
	}
	return &WebPushTransport{
		client: guard.NewSafeClient(config.Timeout),
		config: config,
	}
}

// Send はペイロードを指定購読のエンドポイントへ暗号化して配信する。
// Pushサービスのステータスコードを返す。応答本文は読み捨てる。
func (t *WebPushTransport) Send(ctx context.Context, sub model.PushSubscription, payload []byte) (int, error) {
	resp, err := webpush.SendNotificationWithContext(ctx, payload, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			Auth:   sub.Keys.Auth,
			P256dh: sub.Keys.P256dh,
		},
	}, &webpush.Options{
		HTTPClient:      t.client,
		Subscriber:      t.config.Subject,
		VAPIDPublicKey:  t.config.VAPIDPublicKey,
		VAPIDPrivateKey: t.config.VAPIDPrivateKey,
		TTL:             t.config.TTL,
	})
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, nil
}
