// Package session はアクティビティセッションのライフサイクルを司るドメインロジックを提供する。
// 作成・編集時のバリデーション、定員・時間帯・一意性の不変条件、
// 参加・離脱・フォロー・メッセージの状態遷移を1箇所に集約する。
package session

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/matchup/internal/model"
	"github.com/hitoshi/matchup/internal/repository"
	"github.com/hitoshi/matchup/internal/security"
)

// clockSkewTolerance は作成・編集時に許容する過去方向の時刻ずれ。
const clockSkewTolerance = 5 * time.Minute

// Notifier はライフサイクル操作が発火させる通知インテントのインターフェース。
// 実装はfire-and-forgetで配信し、失敗を呼び出し元に伝播させてはならない。
type Notifier interface {
	// SessionCreated は新規セッション通知を主催者以外の全員に送る。
	SessionCreated(s model.Session)
	// SpotAvailable は空き枠発生通知を全購読者に送る。
	SpotAvailable(s model.Session)
	// ParticipantJoined は参加通知を主催者とフォロワーに送る。
	ParticipantJoined(s model.Session, name string)
	// ParticipantLeft は離脱通知を主催者とフォロワーに送る。
	ParticipantLeft(s model.Session, name string)
	// ChatMessage はチャット通知を送信者以外の関係者に送る。
	ChatMessage(s model.Session, sender, text string)
}

// Input はセッション作成・編集のリクエスト内容を表す。
// DatetimeはRFC 3339形式の文字列として受け取り、バリデーション時に解析する。
type Input struct {
	Datetime            string
	DurationMinutes     int
	Club                string
	Level               string
	Capacity            int
	PricePerParticipant float64
}

// Config はセッションサービスの設定。
type Config struct {
	// MaxSessions は保持するセッション数の上限（作成時のみ検査）。
	MaxSessions int
	// SuperUser は任意セッションの削除を許可する特権ユーザーの正規化名。
	// 空の場合は特権ユーザーなし。
	SuperUser string
}

// Service はセッションライフサイクルのサービス層。
// 全ての変更はリポジトリのUpdateによるread-modify-writeで行い、
// 成功した変更のみが通知インテントを発火する。
type Service struct {
	sessionRepo repository.SessionRepository
	clubRepo    repository.ClubRepository
	notifier    Notifier
	sanitizer   security.MessageSanitizerService
	config      Config
	now         func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	sessionRepo repository.SessionRepository,
	clubRepo repository.ClubRepository,
	notifier Notifier,
	sanitizer security.MessageSanitizerService,
	config Config,
) *Service {
	if config.MaxSessions <= 0 {
		config.MaxSessions = 100
	}
	return &Service{
		sessionRepo: sessionRepo,
		clubRepo:    clubRepo,
		notifier:    notifier,
		sanitizer:   sanitizer,
		config:      config,
		now:         time.Now,
	}
}

// List はセッション一覧を返す。
// 終了済みセッションは一覧から除外され、除外が発生した場合は
// フィルタ済みリストがそのまま永続化される（レガシー互換の破壊的パージ）。
func (s *Service) List(ctx context.Context) ([]model.Session, error) {
	now := s.now()

	return s.sessionRepo.Update(ctx, func(sessions []model.Session) ([]model.Session, error) {
		alive := make([]model.Session, 0, len(sessions))
		for _, sess := range sessions {
			if !sess.Expired(now) {
				alive = append(alive, sess)
			}
		}
		if len(alive) == len(sessions) {
			// 変更なし: 書き込みをスキップする
			return nil, nil
		}
		return alive, nil
	})
}

// Get は指定IDのセッションを返す。見つからない場合はNotFoundエラーを返す。
func (s *Service) Get(ctx context.Context, id string) (*model.Session, error) {
	sessions, err := s.sessionRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range sessions {
		if sessions[i].ID == id {
			return &sessions[i], nil
		}
	}
	return nil, model.NewSessionNotFoundError(id)
}

// Create は新規セッションを作成する。
// バリデーションは仕様順に適用され、それぞれが固有のエラーになる。
// 成功時は新規セッション通知を発火する。
func (s *Service) Create(ctx context.Context, organizer string, in Input) (*model.Session, error) {
	clubs, err := s.clubRepo.List(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()
	var created model.Session

	_, err = s.sessionRepo.Update(ctx, func(sessions []model.Session) ([]model.Session, error) {
		validated, err := validateInput(in, clubs, sessions, "", now)
		if err != nil {
			return nil, err
		}

		if len(sessions) >= s.config.MaxSessions {
			return nil, model.NewSessionLimitError(s.config.MaxSessions)
		}

		created = model.Session{
			ID:                  uuid.New().String(),
			Datetime:            validated.datetime,
			DurationMinutes:     in.DurationMinutes,
			Club:                in.Club,
			Level:               model.Level(in.Level),
			Capacity:            in.Capacity,
			PricePerParticipant: validated.price,
			Organizer:           organizer,
			Participants:        []string{},
			Followers:           []string{},
			Messages:            []model.Message{},
			CreatedAt:           now,
			ReminderSent:        false,
		}
		return append(sessions, created), nil
	})
	if err != nil {
		return nil, err
	}

	s.notifier.SessionCreated(created)
	return &created, nil
}

// Edit は既存セッションを編集する。主催者のみ実行できる。
// 新しい定員は現在の占有人数以上でなければならない。
// 開催日時の変更はreminderSentをfalseにリセットし、リマインダーを再武装する。
func (s *Service) Edit(ctx context.Context, actor, id string, in Input) (*model.Session, error) {
	clubs, err := s.clubRepo.List(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()
	var edited model.Session

	_, err = s.sessionRepo.Update(ctx, func(sessions []model.Session) ([]model.Session, error) {
		idx := findSession(sessions, id)
		if idx < 0 {
			return nil, model.NewSessionNotFoundError(id)
		}
		sess := sessions[idx]

		if !sameUser(sess.Organizer, actor) {
			return nil, model.NewNotOrganizerError()
		}

		validated, err := validateInput(in, clubs, sessions, id, now)
		if err != nil {
			return nil, err
		}

		if in.Capacity < sess.OccupiedCount() {
			return nil, model.NewCapacityBelowOccupiedError(sess.OccupiedCount())
		}

		if !validated.datetime.Equal(sess.Datetime) {
			sess.ReminderSent = false
		}

		sess.Datetime = validated.datetime
		sess.DurationMinutes = in.DurationMinutes
		sess.Club = in.Club
		sess.Level = model.Level(in.Level)
		sess.Capacity = in.Capacity
		sess.PricePerParticipant = validated.price

		sessions[idx] = sess
		edited = sess
		return sessions, nil
	})
	if err != nil {
		return nil, err
	}

	return &edited, nil
}

// Delete はセッションを削除する。主催者と特権ユーザーのみ実行できる。
// 時間帯の状態に関わらず無条件に削除する。
func (s *Service) Delete(ctx context.Context, actor, id string) error {
	_, err := s.sessionRepo.Update(ctx, func(sessions []model.Session) ([]model.Session, error) {
		idx := findSession(sessions, id)
		if idx < 0 {
			return nil, model.NewSessionNotFoundError(id)
		}

		if !sameUser(sessions[idx].Organizer, actor) && !s.isSuperUser(actor) {
			return nil, model.NewNotOrganizerError()
		}

		return append(sessions[:idx], sessions[idx+1:]...), nil
	})
	return err
}

// Join はセッションに参加する。
// 開始済み、主催者本人、参加済み、満員の場合は拒否される。
// 成功時は参加通知を主催者とフォロワーに発火する。
func (s *Service) Join(ctx context.Context, actor, id string) (*model.Session, error) {
	now := s.now()
	var joined model.Session

	_, err := s.sessionRepo.Update(ctx, func(sessions []model.Session) ([]model.Session, error) {
		idx := findSession(sessions, id)
		if idx < 0 {
			return nil, model.NewSessionNotFoundError(id)
		}
		sess := sessions[idx]

		if sess.Started(now) {
			return nil, model.NewSessionStartedError()
		}
		if sameUser(sess.Organizer, actor) {
			return nil, model.NewOrganizerSelfError()
		}
		if sess.HasParticipant(actor) {
			return nil, model.NewAlreadyParticipantError()
		}
		if sess.IsFull() {
			return nil, model.NewSessionFullError()
		}

		sess.Participants = append(sess.Participants, actor)
		sessions[idx] = sess
		joined = sess
		return sessions, nil
	})
	if err != nil {
		return nil, err
	}

	s.notifier.ParticipantJoined(joined, actor)
	return &joined, nil
}

// Leave はセッションから離脱する。
// 主催者本人、未参加、開始済みの場合は拒否される。
// 離脱前に満員だった場合は空き枠発生通知を全購読者に発火し、
// 併せて離脱通知を主催者とフォロワーに発火する。
func (s *Service) Leave(ctx context.Context, actor, id string) (*model.Session, error) {
	now := s.now()
	var left model.Session
	var wasFull bool

	_, err := s.sessionRepo.Update(ctx, func(sessions []model.Session) ([]model.Session, error) {
		idx := findSession(sessions, id)
		if idx < 0 {
			return nil, model.NewSessionNotFoundError(id)
		}
		sess := sessions[idx]

		if sameUser(sess.Organizer, actor) {
			return nil, model.NewOrganizerSelfError()
		}
		if !sess.HasParticipant(actor) {
			return nil, model.NewNotParticipantError()
		}
		if sess.Started(now) {
			return nil, model.NewSessionStartedError()
		}

		// 満員判定は除去前に行う
		wasFull = sess.IsFull()

		sess.Participants = removeName(sess.Participants, actor)
		sessions[idx] = sess
		left = sess
		return sessions, nil
	})
	if err != nil {
		return nil, err
	}

	if wasFull {
		s.notifier.SpotAvailable(left)
	}
	s.notifier.ParticipantLeft(left, actor)
	return &left, nil
}

// UpdateParticipants は参加者リストを一括置換する。主催者のみ実行できる。
// 各参加者名は1〜20文字で、主催者と同名（大文字小文字を無視）は指定できない。
// 満員から空きありに遷移した場合は空き枠発生通知を発火する。
func (s *Service) UpdateParticipants(ctx context.Context, actor, id string, names []string) (*model.Session, error) {
	var updated model.Session
	var becameOpen bool

	_, err := s.sessionRepo.Update(ctx, func(sessions []model.Session) ([]model.Session, error) {
		idx := findSession(sessions, id)
		if idx < 0 {
			return nil, model.NewSessionNotFoundError(id)
		}
		sess := sessions[idx]

		if !sameUser(sess.Organizer, actor) {
			return nil, model.NewNotOrganizerError()
		}

		cleaned := make([]string, 0, len(names))
		for _, name := range names {
			trimmed := strings.TrimSpace(name)
			if trimmed == "" || len([]rune(trimmed)) > model.MaxNameLength {
				return nil, model.NewInvalidParticipantError(name)
			}
			if sameUser(sess.Organizer, trimmed) {
				return nil, model.NewInvalidParticipantError(trimmed)
			}
			cleaned = append(cleaned, trimmed)
		}

		if len(cleaned)+1 > sess.Capacity {
			return nil, model.NewSessionFullError()
		}

		wasFull := sess.IsFull()
		sess.Participants = cleaned
		becameOpen = wasFull && !sess.IsFull()

		sessions[idx] = sess
		updated = sess
		return sessions, nil
	})
	if err != nil {
		return nil, err
	}

	if becameOpen {
		s.notifier.SpotAvailable(updated)
	}
	return &updated, nil
}

// Follow はセッションをフォローする。
// 主催者は自分のセッションをフォローできない。フォロー済みの場合は拒否される。
func (s *Service) Follow(ctx context.Context, actor, id string) (*model.Session, error) {
	var followed model.Session

	_, err := s.sessionRepo.Update(ctx, func(sessions []model.Session) ([]model.Session, error) {
		idx := findSession(sessions, id)
		if idx < 0 {
			return nil, model.NewSessionNotFoundError(id)
		}
		sess := sessions[idx]

		if sameUser(sess.Organizer, actor) {
			return nil, model.NewOrganizerSelfError()
		}
		if sess.HasFollower(actor) {
			return nil, model.NewAlreadyFollowingError()
		}

		sess.Followers = append(sess.Followers, actor)
		sessions[idx] = sess
		followed = sess
		return sessions, nil
	})
	if err != nil {
		return nil, err
	}

	return &followed, nil
}

// Unfollow はセッションのフォローを解除する。
// フォローしていない場合は拒否される。
func (s *Service) Unfollow(ctx context.Context, actor, id string) (*model.Session, error) {
	var unfollowed model.Session

	_, err := s.sessionRepo.Update(ctx, func(sessions []model.Session) ([]model.Session, error) {
		idx := findSession(sessions, id)
		if idx < 0 {
			return nil, model.NewSessionNotFoundError(id)
		}
		sess := sessions[idx]

		if !sess.HasFollower(actor) {
			return nil, model.NewNotFollowingError()
		}

		sess.Followers = removeName(sess.Followers, actor)
		sessions[idx] = sess
		unfollowed = sess
		return sessions, nil
	})
	if err != nil {
		return nil, err
	}

	return &unfollowed, nil
}

// SendMessage はセッションにチャットメッセージを投稿する。
// 主催者、参加者、フォロワーのみが、開始前のセッションに対してのみ送信できる。
// 本文はサニタイズとトリム後に1〜500文字であること。
// 保持するメッセージはセッションあたり50件までで、超過分は古いものから切り捨てる。
func (s *Service) SendMessage(ctx context.Context, actor, id, text string) (*model.Message, error) {
	now := s.now()
	var msg model.Message
	var sess model.Session

	_, err := s.sessionRepo.Update(ctx, func(sessions []model.Session) ([]model.Session, error) {
		idx := findSession(sessions, id)
		if idx < 0 {
			return nil, model.NewSessionNotFoundError(id)
		}
		current := sessions[idx]

		if !sameUser(current.Organizer, actor) && !current.HasParticipant(actor) && !current.HasFollower(actor) {
			return nil, model.NewNotMemberError()
		}
		if current.Started(now) {
			return nil, model.NewSessionStartedError()
		}

		cleaned := strings.TrimSpace(s.sanitizer.Sanitize(text))
		if cleaned == "" || len([]rune(cleaned)) > model.MaxMessageLength {
			return nil, model.NewInvalidMessageError()
		}

		msg = model.Message{
			ID:        uuid.New().String(),
			Sender:    actor,
			Text:      cleaned,
			Timestamp: now,
		}

		current.Messages = append(current.Messages, msg)
		if len(current.Messages) > model.MaxMessages {
			current.Messages = current.Messages[len(current.Messages)-model.MaxMessages:]
		}

		sessions[idx] = current
		sess = current
		return sessions, nil
	})
	if err != nil {
		return nil, err
	}

	s.notifier.ChatMessage(sess, actor, msg.Text)
	return &msg, nil
}

// isSuperUser は指定ユーザーが特権ユーザーかを返す。
func (s *Service) isSuperUser(name string) bool {
	return s.config.SuperUser != "" && sameUser(name, s.config.SuperUser)
}

// validatedInput はバリデーション済みの正規化値を保持する。
type validatedInput struct {
	datetime time.Time
	price    float64
}

// validateInput は作成・編集共通のバリデーションを仕様順に適用する。
// excludeIDが空でない場合、一意性検査からそのセッション自身を除外する（編集時）。
func validateInput(in Input, clubs []model.Club, sessions []model.Session, excludeID string, now time.Time) (*validatedInput, error) {
	// 1. 開催日時: 解析可能で、5分以上過去でないこと
	datetime, err := time.Parse(time.RFC3339, in.Datetime)
	if err != nil {
		return nil, model.NewInvalidDatetimeError(fmt.Sprintf("解析できない形式です: %s", in.Datetime))
	}
	datetime = datetime.UTC().Truncate(time.Minute)
	if datetime.Before(now.Add(-clockSkewTolerance)) {
		return nil, model.NewInvalidDatetimeError("過去の日時は指定できません")
	}

	// 2. セッション時間
	if in.DurationMinutes <= 0 || in.DurationMinutes > model.MaxDurationMinutes {
		return nil, model.NewInvalidDurationError(in.DurationMinutes)
	}

	// 3. クラブ: 非空で、参照リストが非空ならそこに含まれること
	if strings.TrimSpace(in.Club) == "" {
		return nil, model.NewUnknownClubError(in.Club)
	}
	if len(clubs) > 0 && !containsClub(clubs, in.Club) {
		return nil, model.NewUnknownClubError(in.Club)
	}

	// 4. レベル
	if !model.ValidLevel(model.Level(in.Level)) {
		return nil, model.NewInvalidLevelError(in.Level)
	}

	// 5. 定員
	if in.Capacity < 1 || in.Capacity > model.MaxCapacity {
		return nil, model.NewInvalidCapacityError(in.Capacity)
	}

	// 6. 参加費: 0以上、小数2桁に丸める
	if in.PricePerParticipant < 0 || math.IsNaN(in.PricePerParticipant) || math.IsInf(in.PricePerParticipant, 0) {
		return nil, model.NewInvalidPriceError()
	}
	price := math.Round(in.PricePerParticipant*100) / 100

	// 7. (クラブ, 日時) の一意性
	for _, sess := range sessions {
		if sess.ID == excludeID {
			continue
		}
		if sess.Club == in.Club && sess.Datetime.Equal(datetime) {
			return nil, model.NewDuplicateSlotError(in.Club)
		}
	}

	return &validatedInput{datetime: datetime, price: price}, nil
}

// findSession はセッションIDでインデックスを検索する。見つからない場合は-1を返す。
func findSession(sessions []model.Session, id string) int {
	for i := range sessions {
		if sessions[i].ID == id {
			return i
		}
	}
	return -1
}

// sameUser は2つのユーザー名が正規化後に一致するかを返す。
func sameUser(a, b string) bool {
	return model.NormalizeName(a) == model.NormalizeName(b)
}

// removeName はリストから指定名を除去した新しいリストを返す。
func removeName(names []string, target string) []string {
	result := make([]string, 0, len(names))
	for _, n := range names {
		if !sameUser(n, target) {
			result = append(result, n)
		}
	}
	return result
}

// containsClub はクラブ参照リストに指定ラベルが含まれるかを返す。
func containsClub(clubs []model.Club, club string) bool {
	for _, c := range clubs {
		if string(c) == club {
			return true
		}
	}
	return false
}
