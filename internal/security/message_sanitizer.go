// Package security はアプリケーションのセキュリティ機能を提供する。
package security

import (
	"html"

	"github.com/microcosm-cc/bluemonday"
)

// MessageSanitizerService はチャットメッセージ本文のサニタイズ機能のインターフェースを定義する。
// メッセージ保存前に使用され、XSS攻撃などのセキュリティリスクからユーザーを保護する。
type MessageSanitizerService interface {
	// Sanitize はメッセージ本文から全てのHTMLマークアップを除去して返す。
	// チャットメッセージはプレーンテキストとして扱うため、許可タグは存在しない。
	// 空文字列の入力には空文字列を返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	Sanitize(text string) string
}

// messageSanitizer はMessageSanitizerServiceの実装。
// bluemondayのStrictPolicyを保持し、スレッドセーフにサニタイズ処理を行う。
type messageSanitizer struct {
	policy *bluemonday.Policy
}

// NewMessageSanitizer はMessageSanitizerServiceの新しいインスタンスを生成する。
// StrictPolicyにより全てのタグと属性が除去される。
func NewMessageSanitizer() *messageSanitizer {
	return &messageSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// Sanitize はメッセージ本文から全てのHTMLマークアップを除去して返す。
// StrictPolicyはタグ除去後にHTMLエンティティへエスケープするため、
// プレーンテキストとして保存できるようアンエスケープして返す。
func (s *messageSanitizer) Sanitize(text string) string {
	if text == "" {
		return ""
	}
	return html.UnescapeString(s.policy.Sanitize(text))
}
