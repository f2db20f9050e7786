// Package notification はWeb Push通知の配信と無効購読の整理を提供する。
// ファンアウト、配信失敗の分類、410/404エンドポイントの刈り込み、
// ライフサイクル操作が発火する名前付きインテントを含む。
package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/matchup/internal/metrics"
	"github.com/hitoshi/matchup/internal/model"
	"github.com/hitoshi/matchup/internal/repository"
)

// Transport は1購読への1メッセージ送信を抽象化する。
// 戻り値のステータスコードはPushサービスのHTTP応答に対応する。
type Transport interface {
	// Send はペイロードを指定購読に配信し、Pushサービスのステータスコードを返す。
	Send(ctx context.Context, sub model.PushSubscription, payload []byte) (int, error)
}

// Filter は通知の受信者絞り込み条件。
// Targetが非空の場合はそのユーザーのみに送る（大文字小文字を無視）。
// Excludeに含まれるユーザーは常に除外される。
type Filter struct {
	Target  string
	Exclude []string
}

// pushPayload はトランスポートに渡すメッセージ本体。
// tagは同一セッション・同一イベントの重複通知をクライアント側で畳むために使う。
type pushPayload struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Tag   string `json:"tag"`
	URL   string `json:"url"`
}

// Dispatcher はPush通知のファンアウトと購読の刈り込みを行う。
// 配信は購読ごとに独立しており、1件の失敗が他の配信を妨げることはない。
// 410 Goneまたは404 Not Foundで失敗した購読はファンアウト完了後に
// 所有ユーザーから削除され、ユーザーコレクションが1回だけ永続化される。
type Dispatcher struct {
	userRepo  repository.UserRepository
	transport Transport
	collector metrics.MetricsCollector
	logger    *slog.Logger
}

// NewDispatcher はDispatcherの新しいインスタンスを生成する。
func NewDispatcher(
	userRepo repository.UserRepository,
	transport Transport,
	collector metrics.MetricsCollector,
	logger *slog.Logger,
) *Dispatcher {
	return &Dispatcher{
		userRepo:  userRepo,
		transport: transport,
		collector: collector,
		logger:    logger,
	}
}

// Send はフィルタに合致する全ユーザーの全購読へ通知をファンアウトする。
// 恒久的に無効と分類された購読（410/404）を削除した件数を返す。
// その他の配信失敗はログに残し、購読は保持する（次回の配信で再試行される）。
func (d *Dispatcher) Send(ctx context.Context, title, body, tag string, filter Filter) (int, error) {
	start := time.Now()

	users, err := d.userRepo.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("ユーザーコレクションの読み込みに失敗しました: %w", err)
	}

	payload, err := json.Marshal(pushPayload{
		Title: title,
		Body:  body,
		Tag:   tag,
		URL:   "/",
	})
	if err != nil {
		return 0, fmt.Errorf("ペイロードのシリアライズに失敗しました: %w", err)
	}

	excluded := make(map[string]bool, len(filter.Exclude))
	for _, name := range filter.Exclude {
		excluded[model.NormalizeName(name)] = true
	}
	target := model.NormalizeName(filter.Target)

	var pruneTargets []string

	for _, user := range users {
		if target != "" && user.Normalized != target {
			continue
		}
		if excluded[user.Normalized] {
			continue
		}

		for _, sub := range user.PushSubscriptions {
			status, err := d.transport.Send(ctx, sub, payload)
			if err == nil && status < 400 {
				d.collector.RecordPushSent()
				continue
			}

			if status == 404 || status == 410 {
				// 恒久的に無効: ファンアウト後に刈り込む
				pruneTargets = append(pruneTargets, sub.Endpoint)
				d.logger.Info("無効な購読を検出しました",
					slog.String("user", user.Name),
					slog.Int("status", status),
				)
				continue
			}

			reason := "transport"
			if err == nil {
				reason = fmt.Sprintf("status_%d", status)
			}
			d.collector.RecordPushFailure(reason)
			d.logger.Warn("Push配信に失敗しました",
				slog.String("user", user.Name),
				slog.String("tag", tag),
				slog.Int("status", status),
				slog.Any("error", err),
			)
		}
	}

	pruned := 0
	if len(pruneTargets) > 0 {
		pruned, err = d.prune(ctx, pruneTargets)
		if err != nil {
			return 0, err
		}
	}

	d.collector.RecordDispatchLatency(time.Since(start))
	return pruned, nil
}

// prune は無効と判定されたエンドポイントを所有ユーザーの購読リストから削除し、
// 更新後のユーザーコレクションを1回だけ永続化する。
func (d *Dispatcher) prune(ctx context.Context, endpoints []string) (int, error) {
	dead := make(map[string]bool, len(endpoints))
	for _, e := range endpoints {
		dead[e] = true
	}

	pruned := 0
	_, err := d.userRepo.Update(ctx, func(users []model.User) ([]model.User, error) {
		for i := range users {
			kept := users[i].PushSubscriptions[:0:0]
			for _, sub := range users[i].PushSubscriptions {
				if dead[sub.Endpoint] {
					pruned++
					continue
				}
				kept = append(kept, sub)
			}
			users[i].PushSubscriptions = kept
		}
		if pruned == 0 {
			return nil, nil
		}
		return users, nil
	})
	if err != nil {
		return 0, fmt.Errorf("無効購読の削除に失敗しました: %w", err)
	}

	if pruned > 0 {
		d.collector.RecordPushPruned(pruned)
		d.logger.Info("無効な購読を削除しました",
			slog.Int("pruned", pruned),
		)
	}
	return pruned, nil
}
