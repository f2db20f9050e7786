// Package auth はユーザー登録、ログイン、Cookieセッションを提供する。
package auth

import (
	"context"
	"strings"
	"time"

	"github.com/hitoshi/matchup/internal/model"
	"github.com/hitoshi/matchup/internal/repository"
	"golang.org/x/crypto/bcrypt"
)

// minPasswordLength はパスワードの最小文字数。
const minPasswordLength = 8

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	Secret        []byte // Cookieトークンの署名鍵
	SessionMaxAge int    // セッション有効期間（秒）
}

// Service は認証に関するビジネスロジックを提供する。
// ログインセッションはHMAC署名付きCookieトークンで表現し、
// サーバー側のセッションコレクションは持たない。
type Service struct {
	userRepo repository.UserRepository
	config   ServiceConfig
	now      func() time.Time
}

// NewService はServiceを生成する。
func NewService(userRepo repository.UserRepository, config ServiceConfig) *Service {
	return &Service{
		userRepo: userRepo,
		config:   config,
		now:      time.Now,
	}
}

// Signup は新規ユーザーを登録する。
// 表示名は前後の空白を除去した1〜20文字で、正規化名が一意であること。
// パスワードはbcryptでハッシュ化して保存する。
func (s *Service) Signup(ctx context.Context, name, password string) (*model.User, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" || len([]rune(trimmed)) > model.MaxNameLength {
		return nil, model.NewInvalidUserNameError()
	}
	if len(password) < minPasswordLength {
		return nil, model.NewInvalidPasswordError()
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	normalized := model.NormalizeName(trimmed)
	user := model.User{
		Name:              trimmed,
		Normalized:        normalized,
		PasswordHash:      string(hash),
		CreatedAt:         s.now(),
		PushSubscriptions: []model.PushSubscription{},
	}

	_, err = s.userRepo.Update(ctx, func(users []model.User) ([]model.User, error) {
		for _, u := range users {
			if u.Normalized == normalized {
				return nil, model.NewNameTakenError(trimmed)
			}
		}
		return append(users, user), nil
	})
	if err != nil {
		return nil, err
	}

	return &user, nil
}

// Login は認証情報を検証し、署名付きCookieトークンを発行する。
// ユーザーが存在しない場合とパスワード不一致の場合は同じエラーを返し、
// ユーザー名の存在を外部に漏らさない。
func (s *Service) Login(ctx context.Context, name, password string) (*model.User, string, error) {
	user, err := s.userRepo.FindByName(ctx, name)
	if err != nil {
		return nil, "", err
	}
	if user == nil {
		return nil, "", model.NewBadCredentialsError()
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, "", model.NewBadCredentialsError()
	}

	expires := s.now().Add(time.Duration(s.config.SessionMaxAge) * time.Second)
	token := IssueToken(s.config.Secret, user.Normalized, expires)
	return user, token, nil
}

// Token は指定ユーザーの署名付きCookieトークンを発行する。
// サインアップ直後に再ログインなしでセッションを開始するために使う。
func (s *Service) Token(user *model.User) string {
	expires := s.now().Add(time.Duration(s.config.SessionMaxAge) * time.Second)
	return IssueToken(s.config.Secret, user.Normalized, expires)
}

// Verify はCookieトークンを検証し、対応するユーザーを返す。
// トークンが無効・期限切れ、またはユーザーが既に存在しない場合はエラーを返す。
func (s *Service) Verify(ctx context.Context, token string) (*model.User, error) {
	name, err := VerifyToken(s.config.Secret, token, s.now())
	if err != nil {
		return nil, model.NewUserNotFoundError()
	}

	user, err := s.userRepo.FindByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}
	return user, nil
}
