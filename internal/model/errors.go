// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, conflict, permission, not_found, push, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeInvalidDatetime       = "INVALID_DATETIME"
	ErrCodeInvalidDuration       = "INVALID_DURATION"
	ErrCodeUnknownClub           = "UNKNOWN_CLUB"
	ErrCodeInvalidLevel          = "INVALID_LEVEL"
	ErrCodeInvalidCapacity       = "INVALID_CAPACITY"
	ErrCodeInvalidPrice          = "INVALID_PRICE"
	ErrCodeInvalidParticipant    = "INVALID_PARTICIPANT"
	ErrCodeInvalidMessage        = "INVALID_MESSAGE"
	ErrCodeInvalidUserName       = "INVALID_USER_NAME"
	ErrCodeInvalidEndpoint       = "INVALID_ENDPOINT"
	ErrCodeDuplicateSlot         = "DUPLICATE_SLOT"
	ErrCodeSessionFull           = "SESSION_FULL"
	ErrCodeSessionStarted        = "SESSION_STARTED"
	ErrCodeSessionLimit          = "SESSION_LIMIT"
	ErrCodeAlreadyParticipant    = "ALREADY_PARTICIPANT"
	ErrCodeNotParticipant        = "NOT_PARTICIPANT"
	ErrCodeAlreadyFollowing      = "ALREADY_FOLLOWING"
	ErrCodeNotFollowing          = "NOT_FOLLOWING"
	ErrCodeCapacityBelowOccupied = "CAPACITY_BELOW_OCCUPIED"
	ErrCodeNotOrganizer          = "NOT_ORGANIZER"
	ErrCodeOrganizerSelf         = "ORGANIZER_SELF"
	ErrCodeNotMember             = "NOT_MEMBER"
	ErrCodeSessionNotFound       = "SESSION_NOT_FOUND"
	ErrCodeUserNotFound          = "USER_NOT_FOUND"
	ErrCodeNameTaken             = "NAME_TAKEN"
	ErrCodeBadCredentials        = "BAD_CREDENTIALS"
	ErrCodeInvalidPassword       = "INVALID_PASSWORD"
)

// NewInvalidPasswordError はパスワードが要件を満たさない場合のエラーを生成する。
func NewInvalidPasswordError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidPassword,
		Message:  "パスワードが要件を満たしていません。",
		Category: "validation",
		Action:   "パスワードは8文字以上で入力してください。",
	}
}

// NewInvalidDatetimeError は開催日時が不正な場合のエラーを生成する。
func NewInvalidDatetimeError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidDatetime,
		Message:  fmt.Sprintf("開催日時が不正です: %s", reason),
		Category: "validation",
		Action:   "現在時刻より後の有効な日時を指定してください。",
	}
}

// NewInvalidDurationError はセッション時間が範囲外の場合のエラーを生成する。
func NewInvalidDurationError(minutes int) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidDuration,
		Message:  fmt.Sprintf("セッション時間が不正です: %d分", minutes),
		Category: "validation",
		Action:   "セッション時間は1分から300分の範囲で指定してください。",
	}
}

// NewUnknownClubError はクラブが参照リストに存在しない場合のエラーを生成する。
func NewUnknownClubError(club string) *APIError {
	return &APIError{
		Code:     ErrCodeUnknownClub,
		Message:  fmt.Sprintf("クラブが見つかりません: %s", club),
		Category: "validation",
		Action:   "登録済みのクラブから選択してください。",
	}
}

// NewInvalidLevelError はレベルが定義外の場合のエラーを生成する。
func NewInvalidLevelError(level string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidLevel,
		Message:  fmt.Sprintf("レベルが不正です: %s", level),
		Category: "validation",
		Action:   "レベルには beginner、intermediate、advanced、open のいずれかを指定してください。",
	}
}

// NewInvalidCapacityError は定員が範囲外の場合のエラーを生成する。
func NewInvalidCapacityError(capacity int) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCapacity,
		Message:  fmt.Sprintf("定員が不正です: %d人", capacity),
		Category: "validation",
		Action:   "定員は1人から12人の範囲で指定してください。",
	}
}

// NewInvalidPriceError は参加費が不正な場合のエラーを生成する。
func NewInvalidPriceError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidPrice,
		Message:  "参加費が不正です。",
		Category: "validation",
		Action:   "参加費は0以上の金額を指定してください。",
	}
}

// NewInvalidParticipantError は参加者名が不正な場合のエラーを生成する。
func NewInvalidParticipantError(name string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidParticipant,
		Message:  fmt.Sprintf("参加者名が不正です: %s", name),
		Category: "validation",
		Action:   "参加者名は1〜20文字で、主催者と同名にはできません。",
	}
}

// NewInvalidMessageError はメッセージ本文が不正な場合のエラーを生成する。
func NewInvalidMessageError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidMessage,
		Message:  "メッセージ本文が不正です。",
		Category: "validation",
		Action:   "メッセージは1〜500文字で入力してください。",
	}
}

// NewInvalidUserNameError はユーザー名が不正な場合のエラーを生成する。
func NewInvalidUserNameError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidUserName,
		Message:  "ユーザー名が不正です。",
		Category: "validation",
		Action:   "ユーザー名は1〜20文字で入力してください。",
	}
}

// NewInvalidEndpointError は購読エンドポイントが不正な場合のエラーを生成する。
func NewInvalidEndpointError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidEndpoint,
		Message:  fmt.Sprintf("購読エンドポイントが不正です: %s", reason),
		Category: "validation",
		Action:   "ブラウザが発行した正しいPush購読情報を送信してください。",
	}
}

// NewDuplicateSlotError は同一クラブ・同一日時のセッションが既に存在する場合のエラーを生成する。
func NewDuplicateSlotError(club string) *APIError {
	return &APIError{
		Code:     ErrCodeDuplicateSlot,
		Message:  fmt.Sprintf("同じ日時に%sのセッションが既に存在します。", club),
		Category: "conflict",
		Action:   "日時またはクラブを変更してください。",
	}
}

// NewSessionFullError はセッションが満員の場合のエラーを生成する。
func NewSessionFullError() *APIError {
	return &APIError{
		Code:     ErrCodeSessionFull,
		Message:  "セッションは満員です。",
		Category: "conflict",
		Action:   "空きが出るのを待つか、別のセッションに参加してください。",
	}
}

// NewSessionStartedError は開始済みセッションへの操作エラーを生成する。
func NewSessionStartedError() *APIError {
	return &APIError{
		Code:     ErrCodeSessionStarted,
		Message:  "セッションは既に開始しています。",
		Category: "conflict",
		Action:   "開始前のセッションに対してのみ実行できます。",
	}
}

// NewSessionLimitError はセッション数が上限に達した場合のエラーを生成する。
func NewSessionLimitError(limit int) *APIError {
	return &APIError{
		Code:     ErrCodeSessionLimit,
		Message:  fmt.Sprintf("セッション数が上限（%d件）に達しています。", limit),
		Category: "conflict",
		Action:   "不要なセッションを削除してから作成してください。",
	}
}

// NewAlreadyParticipantError は既に参加済みの場合のエラーを生成する。
func NewAlreadyParticipantError() *APIError {
	return &APIError{
		Code:     ErrCodeAlreadyParticipant,
		Message:  "既にこのセッションに参加しています。",
		Category: "conflict",
		Action:   "参加状況を確認してください。",
	}
}

// NewNotParticipantError は参加していないセッションからの離脱エラーを生成する。
func NewNotParticipantError() *APIError {
	return &APIError{
		Code:     ErrCodeNotParticipant,
		Message:  "このセッションには参加していません。",
		Category: "conflict",
		Action:   "参加状況を確認してください。",
	}
}

// NewAlreadyFollowingError は既にフォロー済みの場合のエラーを生成する。
func NewAlreadyFollowingError() *APIError {
	return &APIError{
		Code:     ErrCodeAlreadyFollowing,
		Message:  "既にこのセッションをフォローしています。",
		Category: "conflict",
		Action:   "フォロー状況を確認してください。",
	}
}

// NewNotFollowingError はフォローしていないセッションの解除エラーを生成する。
func NewNotFollowingError() *APIError {
	return &APIError{
		Code:     ErrCodeNotFollowing,
		Message:  "このセッションはフォローしていません。",
		Category: "conflict",
		Action:   "フォロー状況を確認してください。",
	}
}

// NewCapacityBelowOccupiedError は定員を現在の占有人数未満に変更しようとした場合のエラーを生成する。
func NewCapacityBelowOccupiedError(occupied int) *APIError {
	return &APIError{
		Code:     ErrCodeCapacityBelowOccupied,
		Message:  fmt.Sprintf("定員を現在の参加人数（%d人）未満にはできません。", occupied),
		Category: "conflict",
		Action:   "参加人数以上の定員を指定してください。",
	}
}

// NewNotOrganizerError は主催者以外による操作エラーを生成する。
func NewNotOrganizerError() *APIError {
	return &APIError{
		Code:     ErrCodeNotOrganizer,
		Message:  "この操作はセッションの主催者のみ実行できます。",
		Category: "permission",
		Action:   "主催者に依頼してください。",
	}
}

// NewOrganizerSelfError は主催者が自身のセッションに参加・フォローしようとした場合のエラーを生成する。
func NewOrganizerSelfError() *APIError {
	return &APIError{
		Code:     ErrCodeOrganizerSelf,
		Message:  "主催者は自分のセッションに参加・フォローできません。",
		Category: "permission",
		Action:   "主催者は常に参加者として扱われます。",
	}
}

// NewNotMemberError はセッションの関係者以外によるメッセージ送信エラーを生成する。
func NewNotMemberError() *APIError {
	return &APIError{
		Code:     ErrCodeNotMember,
		Message:  "メッセージは主催者、参加者、フォロワーのみ送信できます。",
		Category: "permission",
		Action:   "セッションに参加またはフォローしてください。",
	}
}

// NewSessionNotFoundError はセッション未検出エラーを生成する。
func NewSessionNotFoundError(id string) *APIError {
	return &APIError{
		Code:     ErrCodeSessionNotFound,
		Message:  fmt.Sprintf("指定されたセッションが見つかりません: %s", id),
		Category: "not_found",
		Action:   "セッション一覧を再読み込みしてください。",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "ユーザーが見つかりません。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}

// NewNameTakenError はユーザー名が既に使用されている場合のエラーを生成する。
func NewNameTakenError(name string) *APIError {
	return &APIError{
		Code:     ErrCodeNameTaken,
		Message:  fmt.Sprintf("このユーザー名は既に使用されています: %s", name),
		Category: "conflict",
		Action:   "別のユーザー名を指定してください。",
	}
}

// NewBadCredentialsError は認証情報が一致しない場合のエラーを生成する。
func NewBadCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeBadCredentials,
		Message:  "ユーザー名またはパスワードが正しくありません。",
		Category: "auth",
		Action:   "入力内容を確認してください。",
	}
}
