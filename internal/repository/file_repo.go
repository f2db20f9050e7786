// Package repository はエンティティコレクションの永続化インターフェースを定義する。
package repository

import (
	"context"
	"path/filepath"

	"github.com/hitoshi/matchup/internal/model"
	"github.com/hitoshi/matchup/internal/store"
)

// コレクションファイル名。データディレクトリ直下に配置する。
const (
	usersFile    = "users.json"
	sessionsFile = "sessions.json"
	clubsFile    = "clubs.json"
)

// FileUserRepo はフラットファイル実装のUserRepository。
type FileUserRepo struct {
	store *store.Store[model.User]
}

// NewFileUserRepo は指定データディレクトリのFileUserRepoを生成する。
func NewFileUserRepo(dataDir string) *FileUserRepo {
	return &FileUserRepo{
		store: store.New[model.User](filepath.Join(dataDir, usersFile)),
	}
}

// SetRecoveryHook はバックアップ復旧時のメトリクスフックを設定する。
func (r *FileUserRepo) SetRecoveryHook(fn func()) {
	r.store.SetRecoveryHook(fn)
}

// List はユーザーコレクション全体を返す。
func (r *FileUserRepo) List(ctx context.Context) ([]model.User, error) {
	return r.store.Load(ctx)
}

// FindByName は正規化名でユーザーを検索する。見つからない場合はnilを返す。
func (r *FileUserRepo) FindByName(ctx context.Context, name string) (*model.User, error) {
	users, err := r.store.Load(ctx)
	if err != nil {
		return nil, err
	}

	normalized := model.NormalizeName(name)
	for i := range users {
		if users[i].Normalized == normalized {
			return &users[i], nil
		}
	}
	return nil, nil
}

// Update はユーザーコレクションへのread-modify-writeを直列化して実行する。
func (r *FileUserRepo) Update(ctx context.Context, fn func(users []model.User) ([]model.User, error)) ([]model.User, error) {
	return r.store.Update(ctx, fn)
}

// FileSessionRepo はフラットファイル実装のSessionRepository。
type FileSessionRepo struct {
	store *store.Store[model.Session]
}

// NewFileSessionRepo は指定データディレクトリのFileSessionRepoを生成する。
func NewFileSessionRepo(dataDir string) *FileSessionRepo {
	return &FileSessionRepo{
		store: store.New[model.Session](filepath.Join(dataDir, sessionsFile)),
	}
}

// SetRecoveryHook はバックアップ復旧時のメトリクスフックを設定する。
func (r *FileSessionRepo) SetRecoveryHook(fn func()) {
	r.store.SetRecoveryHook(fn)
}

// List はセッションコレクション全体を返す。
func (r *FileSessionRepo) List(ctx context.Context) ([]model.Session, error) {
	return r.store.Load(ctx)
}

// Update はセッションコレクションへのread-modify-writeを直列化して実行する。
func (r *FileSessionRepo) Update(ctx context.Context, fn func(sessions []model.Session) ([]model.Session, error)) ([]model.Session, error) {
	return r.store.Update(ctx, fn)
}

// FileClubRepo はフラットファイル実装のClubRepository。
type FileClubRepo struct {
	store *store.Store[model.Club]
}

// NewFileClubRepo は指定データディレクトリのFileClubRepoを生成する。
func NewFileClubRepo(dataDir string) *FileClubRepo {
	return &FileClubRepo{
		store: store.New[model.Club](filepath.Join(dataDir, clubsFile)),
	}
}

// SetRecoveryHook はバックアップ復旧時のメトリクスフックを設定する。
func (r *FileClubRepo) SetRecoveryHook(fn func()) {
	r.store.SetRecoveryHook(fn)
}

// List はクラブ参照リスト全体を返す。
func (r *FileClubRepo) List(ctx context.Context) ([]model.Club, error) {
	return r.store.Load(ctx)
}
