// Package reminder はセッション開始前リマインダーのバックグラウンドスキャンを提供する。
// 固定間隔のティッカーでセッション一覧を走査し、リード時間内に開始する
// 未通知セッションに対して1回だけリマインダーを発火する。
package reminder

import (
	"context"
	"log/slog"
	"time"

	"github.com/hitoshi/matchup/internal/metrics"
	"github.com/hitoshi/matchup/internal/model"
	"github.com/hitoshi/matchup/internal/repository"
)

// initialDelay はプロセス起動から初回スキャンまでの遅延。
const initialDelay = 10 * time.Second

// ReminderNotifier はリマインダー通知の発火インターフェース。
type ReminderNotifier interface {
	// Reminder は開始前リマインダーを主催者と参加者に送る。
	Reminder(s model.Session)
}

// Scheduler はリマインダーのスキャンと発火を行う。
// セッションごとの状態遷移は pending -> reminded の一方向で、
// reminderSentフラグが終端状態を表す。フラグが立った後の再スキャンは
// 同一セッションに対して二度と発火しない（冪等）。
// 開催日時の編集はフラグをリセットし、ちょうど1回の再発火を許す。
type Scheduler struct {
	sessionRepo repository.SessionRepository
	notifier    ReminderNotifier
	collector   metrics.MetricsCollector
	logger      *slog.Logger
	lead        time.Duration
	now         func() time.Time
}

// NewScheduler はSchedulerの新しいインスタンスを生成する。
// leadが0以下の場合はデフォルト値45分を使用する。
func NewScheduler(
	sessionRepo repository.SessionRepository,
	notifier ReminderNotifier,
	collector metrics.MetricsCollector,
	logger *slog.Logger,
	lead time.Duration,
) *Scheduler {
	if lead <= 0 {
		lead = 45 * time.Minute
	}
	return &Scheduler{
		sessionRepo: sessionRepo,
		notifier:    notifier,
		collector:   collector,
		logger:      logger,
		lead:        lead,
		now:         time.Now,
	}
}

// Start は固定間隔のティッカーでスケジューラを起動する。
// 起動直後に短い遅延を挟んで初回スキャンを実行し、
// 以降はコンテキストがキャンセルされるまで実行を継続する。
func (s *Scheduler) Start(ctx context.Context, interval time.Duration) {
	s.logger.Info("リマインダースケジューラを開始しました",
		slog.Duration("interval", interval),
		slog.Duration("lead", s.lead),
	)

	select {
	case <-ctx.Done():
		s.logger.Info("リマインダースケジューラを停止しました")
		return
	case <-time.After(initialDelay):
	}

	if err := s.RunOnce(ctx); err != nil {
		s.logger.Error("リマインダースキャンの実行に失敗しました",
			slog.String("error", err.Error()),
		)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("リマインダースケジューラを停止しました")
			return
		case <-ticker.C:
			if err := s.RunOnce(ctx); err != nil {
				s.logger.Error("リマインダースキャンの実行に失敗しました",
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

// RunOnce はセッション一覧を1回走査する。
// 未通知かつ未開始で、開始までの残り時間がリード時間内のセッションに
// reminderSentフラグを立て、変更があった場合のみ一覧を1回永続化する。
// 永続化成功後にリマインダー通知を発火する。
func (s *Scheduler) RunOnce(ctx context.Context) error {
	now := s.now()
	var due []model.Session

	_, err := s.sessionRepo.Update(ctx, func(sessions []model.Session) ([]model.Session, error) {
		due = due[:0]
		for i := range sessions {
			sess := sessions[i]
			if sess.ReminderSent || sess.Started(now) {
				continue
			}
			untilStart := sess.Datetime.Sub(now)
			if untilStart > 0 && untilStart <= s.lead {
				sessions[i].ReminderSent = true
				due = append(due, sessions[i])
			}
		}
		if len(due) == 0 {
			// 変更なし: 書き込みをスキップする
			return nil, nil
		}
		return sessions, nil
	})
	if err != nil {
		return err
	}

	for _, sess := range due {
		s.notifier.Reminder(sess)
		s.collector.RecordReminderFired()
		s.logger.Info("リマインダーを発火しました",
			slog.String("session_id", sess.ID),
			slog.Time("datetime", sess.Datetime),
		)
	}

	return nil
}
