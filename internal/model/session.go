// Package model はドメインモデルを定義する。
package model

import "time"

// セッションに関するドメイン定数。
const (
	// MaxCapacity はセッション定員の上限（主催者を含む）。
	MaxCapacity = 12
	// MaxDurationMinutes はセッション時間の上限（分）。
	MaxDurationMinutes = 300
	// MaxMessages は1セッションに保持するメッセージ数の上限。
	// 超過時は古いものから切り捨てる。
	MaxMessages = 50
	// MaxMessageLength はメッセージ本文の最大文字数。
	MaxMessageLength = 500
	// MaxNameLength は参加者名の最大文字数。
	MaxNameLength = 20
)

// Session は予定されたアクティビティセッションを表す。
// 主催者は定員1枠を常に占有し、participantsには含まれない。
// 不変条件: len(Participants)+1 <= Capacity が全ての変更後に成立する。
// 不変条件: (Club, Datetime) の組は全セッションを通じて一意。
type Session struct {
	ID                  string    `json:"id"`
	Datetime            time.Time `json:"datetime"`
	DurationMinutes     int       `json:"durationMinutes"`
	Club                string    `json:"club"`
	Level               Level     `json:"level"`
	Capacity            int       `json:"capacity"`
	PricePerParticipant float64   `json:"pricePerParticipant"`
	Organizer           string    `json:"organizer"`
	Participants        []string  `json:"participants"`
	Followers           []string  `json:"followers"`
	Messages            []Message `json:"messages"`
	CreatedAt           time.Time `json:"createdAt"`
	ReminderSent        bool      `json:"reminderSent"`
}

// Message はセッション内のチャットメッセージを表す。
type Message struct {
	ID        string    `json:"id"`
	Sender    string    `json:"sender"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// Level はセッションの想定レベルを表す。
type Level string

const (
	// LevelBeginner は初心者向けレベル。
	LevelBeginner Level = "beginner"
	// LevelIntermediate は中級者向けレベル。
	LevelIntermediate Level = "intermediate"
	// LevelAdvanced は上級者向けレベル。
	LevelAdvanced Level = "advanced"
	// LevelOpen はレベル不問。
	LevelOpen Level = "open"
)

// ValidLevel は指定レベルが定義済みのいずれかであるかを返す。
func ValidLevel(l Level) bool {
	switch l {
	case LevelBeginner, LevelIntermediate, LevelAdvanced, LevelOpen:
		return true
	}
	return false
}

// End はセッションの終了時刻を返す。
func (s *Session) End() time.Time {
	return s.Datetime.Add(time.Duration(s.DurationMinutes) * time.Minute)
}

// Started はセッションが開始済みか（開始時刻を過ぎたか）を返す。
func (s *Session) Started(now time.Time) bool {
	return !now.Before(s.Datetime)
}

// Expired はセッションが終了済みかを返す。
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.End())
}

// OccupiedCount は主催者を含む現在の占有人数を返す。
func (s *Session) OccupiedCount() int {
	return len(s.Participants) + 1
}

// IsFull はセッションが満員かを返す。
func (s *Session) IsFull() bool {
	return s.OccupiedCount() >= s.Capacity
}

// HasParticipant は指定ユーザー名が参加者に含まれるかを返す。
// 比較は正規化名（小文字化・トリム後）で行う。
func (s *Session) HasParticipant(name string) bool {
	normalized := NormalizeName(name)
	for _, p := range s.Participants {
		if NormalizeName(p) == normalized {
			return true
		}
	}
	return false
}

// HasFollower は指定ユーザー名がフォロワーに含まれるかを返す。
// 比較は正規化名（小文字化・トリム後）で行う。
func (s *Session) HasFollower(name string) bool {
	normalized := NormalizeName(name)
	for _, f := range s.Followers {
		if NormalizeName(f) == normalized {
			return true
		}
	}
	return false
}
