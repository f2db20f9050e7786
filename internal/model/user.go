// Package model はドメインモデルを定義する。
package model

import (
	"strings"
	"time"
)

// User はサービス利用ユーザーを表す。
// Normalizedは小文字正規化した一意キーで、表示用のNameとは別に保持する。
type User struct {
	Name              string             `json:"name"`
	Normalized        string             `json:"normalized"`
	PasswordHash      string             `json:"passwordHash"`
	CreatedAt         time.Time          `json:"createdAt"`
	PushSubscriptions []PushSubscription `json:"pushSubscriptions"`
}

// NormalizeName はユーザー名を正規化キーに変換する。
// 前後の空白を除去し小文字化する。
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// FindSubscription は指定エンドポイントの購読のインデックスを返す。
// 見つからない場合は-1を返す。
func (u *User) FindSubscription(endpoint string) int {
	for i, sub := range u.PushSubscriptions {
		if sub.Endpoint == endpoint {
			return i
		}
	}
	return -1
}

// PushSubscription はブラウザのWeb Push購読を表す。
// エンドポイントはユーザー内で一意であり、全ユーザーを通じても
// 同一エンドポイントは高々1ユーザーにのみ紐付く。
type PushSubscription struct {
	Endpoint       string           `json:"endpoint"`
	Keys           SubscriptionKeys `json:"keys"`
	ExpirationTime *time.Time       `json:"expirationTime"`
	CreatedAt      time.Time        `json:"createdAt"`
	UpdatedAt      time.Time        `json:"updatedAt"`
}

// SubscriptionKeys はWeb Push暗号化用の鍵素材を表す。
// サーバー側では不透明な値として扱い、送信時にそのまま渡す。
type SubscriptionKeys struct {
	P256dh string `json:"p256dh"`
	Auth   string `json:"auth"`
}
