// Package repository はエンティティコレクションの永続化インターフェースを定義する。
// コレクションはエンティティ種別ごとに1つのJSON配列ファイルとして保存され、
// 書き込みは常にコレクション全体の置換で行う。
package repository

import (
	"context"

	"github.com/hitoshi/matchup/internal/model"
)

// UserRepository はユーザーコレクションの永続化インターフェース。
type UserRepository interface {
	// List はユーザーコレクション全体を返す。
	List(ctx context.Context) ([]model.User, error)

	// FindByName は正規化名でユーザーを検索する。見つからない場合はnilを返す。
	FindByName(ctx context.Context, name string) (*model.User, error)

	// Update はコレクションへのread-modify-writeを直列化して実行する。
	// fnが返したリストが永続化される。fnがnilリストを返した場合は書き込みを行わない。
	Update(ctx context.Context, fn func(users []model.User) ([]model.User, error)) ([]model.User, error)
}

// SessionRepository はセッションコレクションの永続化インターフェース。
type SessionRepository interface {
	// List はセッションコレクション全体を返す。
	List(ctx context.Context) ([]model.Session, error)

	// Update はコレクションへのread-modify-writeを直列化して実行する。
	// fnが返したリストが永続化される。fnがnilリストを返した場合は書き込みを行わない。
	Update(ctx context.Context, fn func(sessions []model.Session) ([]model.Session, error)) ([]model.Session, error)
}

// ClubRepository はクラブ参照リストの読み取りインターフェース。
// コアからは読み取り専用として扱う。
type ClubRepository interface {
	// List はクラブ参照リスト全体を返す。
	List(ctx context.Context) ([]model.Club, error)
}
