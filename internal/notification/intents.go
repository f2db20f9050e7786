package notification

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hitoshi/matchup/internal/model"
)

// Intents はライフサイクル操作が消費する名前付き通知インテント群。
// 各インテントは固定のタイトル・本文テンプレートと受信者フィルタの組で、
// 実際の配信はWorker経由のfire-and-forgetで行われる。
type Intents struct {
	dispatcher *Dispatcher
	worker     *Worker
	logger     *slog.Logger
}

// NewIntents はIntentsの新しいインスタンスを生成する。
func NewIntents(dispatcher *Dispatcher, worker *Worker, logger *slog.Logger) *Intents {
	return &Intents{
		dispatcher: dispatcher,
		worker:     worker,
		logger:     logger,
	}
}

// SessionCreated は新規セッション通知を主催者以外の全員に送る。
func (i *Intents) SessionCreated(s model.Session) {
	title := "新しいセッション"
	body := fmt.Sprintf("%sが%sでセッションを募集しています。", s.Organizer, s.Club)
	tag := sessionTag(s.ID, "")

	i.enqueue("new-session", title, body, tag, Filter{Exclude: []string{s.Organizer}})
}

// SpotAvailable は空き枠発生通知を全購読者に送る。
func (i *Intents) SpotAvailable(s model.Session) {
	title := "空き枠が出ました"
	body := fmt.Sprintf("%sのセッションに空きが出ました。", s.Club)
	tag := sessionTag(s.ID, "spot")

	i.enqueue("spot-available", title, body, tag, Filter{})
}

// ParticipantJoined は参加通知を主催者とフォロワーに送る。
func (i *Intents) ParticipantJoined(s model.Session, name string) {
	title := "参加者が増えました"
	body := fmt.Sprintf("%sがセッションに参加しました。", name)
	tag := sessionTag(s.ID, "joined")

	i.enqueueEach("participant-joined", title, body, tag, watcherNames(s))
}

// ParticipantLeft は離脱通知を主催者とフォロワーに送る。
func (i *Intents) ParticipantLeft(s model.Session, name string) {
	title := "参加者が減りました"
	body := fmt.Sprintf("%sがセッションから離脱しました。", name)
	tag := sessionTag(s.ID, "left")

	i.enqueueEach("participant-left", title, body, tag, watcherNames(s))
}

// Reminder は開始前リマインダーを主催者と参加者に送る。
func (i *Intents) Reminder(s model.Session) {
	title := "まもなく開始します"
	body := fmt.Sprintf("%sのセッションが%sに開始します。", s.Club, s.Datetime.Format("15:04"))
	tag := sessionTag(s.ID, "reminder")

	recipients := append([]string{s.Organizer}, s.Participants...)
	i.enqueueEach("reminder", title, body, tag, recipients)
}

// ChatMessage はチャット通知を送信者以外の関係者
// （主催者、参加者、フォロワーの重複排除済み集合）に送る。
func (i *Intents) ChatMessage(s model.Session, sender, text string) {
	title := fmt.Sprintf("%sからのメッセージ", sender)
	body := text
	tag := sessionTag(s.ID, "chat")

	members := append([]string{s.Organizer}, s.Participants...)
	members = append(members, s.Followers...)

	recipients := make([]string, 0, len(members))
	seen := map[string]bool{model.NormalizeName(sender): true}
	for _, name := range members {
		key := model.NormalizeName(name)
		if seen[key] {
			continue
		}
		seen[key] = true
		recipients = append(recipients, name)
	}

	i.enqueueEach("chat-message", title, body, tag, recipients)
}

// enqueue は1回のファンアウトをワーカーに投入する。
func (i *Intents) enqueue(name, title, body, tag string, filter Filter) {
	i.worker.Enqueue(name, func(ctx context.Context) {
		if _, err := i.dispatcher.Send(ctx, title, body, tag, filter); err != nil {
			i.logger.Error("通知の配信に失敗しました",
				slog.String("intent", name),
				slog.String("tag", tag),
				slog.String("error", err.Error()),
			)
		}
	})
}

// enqueueEach は指定した受信者それぞれへの配信を1タスクとして投入する。
func (i *Intents) enqueueEach(name, title, body, tag string, recipients []string) {
	if len(recipients) == 0 {
		return
	}
	targets := append([]string(nil), recipients...)

	i.worker.Enqueue(name, func(ctx context.Context) {
		for _, target := range targets {
			if _, err := i.dispatcher.Send(ctx, title, body, tag, Filter{Target: target}); err != nil {
				i.logger.Error("通知の配信に失敗しました",
					slog.String("intent", name),
					slog.String("tag", tag),
					slog.String("target", target),
					slog.String("error", err.Error()),
				)
			}
		}
	})
}

// watcherNames は主催者とフォロワーを重複排除して返す。
func watcherNames(s model.Session) []string {
	names := make([]string, 0, len(s.Followers)+1)
	seen := map[string]bool{}
	for _, name := range append([]string{s.Organizer}, s.Followers...) {
		key := model.NormalizeName(name)
		if seen[key] {
			continue
		}
		seen[key] = true
		names = append(names, name)
	}
	return names
}

// sessionTag は通知タグを生成する。形式: session-<id>[-<event>]
func sessionTag(id, event string) string {
	if event == "" {
		return fmt.Sprintf("session-%s", id)
	}
	return fmt.Sprintf("session-%s-%s", id, event)
}
