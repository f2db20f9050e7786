// Package push はWeb Push購読の登録・解除のドメインロジックを提供する。
package push

import (
	"context"
	"time"

	"github.com/hitoshi/matchup/internal/model"
	"github.com/hitoshi/matchup/internal/repository"
	"github.com/hitoshi/matchup/internal/security"
)

// Service はPush購読管理のサービス層。
// 不変条件: 1つのエンドポイントは全ユーザーを通じて高々1ユーザーにのみ紐付く。
type Service struct {
	userRepo repository.UserRepository
	guard    security.EndpointGuardService
	now      func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(userRepo repository.UserRepository, guard security.EndpointGuardService) *Service {
	return &Service{
		userRepo: userRepo,
		guard:    guard,
		now:      time.Now,
	}
}

// Subscribe は購読を登録する。
// 同一ユーザーの同一エンドポイントは鍵素材を上書き更新する。
// 別ユーザーが所有していた同一エンドポイントは旧所有者から削除される
// （同一ブラウザでのアカウント切り替え）。
// エンドポイントURLは保存前にSSRF防止の事前検証を通すこと。
func (s *Service) Subscribe(ctx context.Context, userName string, sub model.PushSubscription) error {
	if err := s.guard.ValidateEndpoint(sub.Endpoint); err != nil {
		return model.NewInvalidEndpointError(err.Error())
	}
	if sub.Keys.P256dh == "" || sub.Keys.Auth == "" {
		return model.NewInvalidEndpointError("鍵素材がありません")
	}

	normalized := model.NormalizeName(userName)
	now := s.now()

	_, err := s.userRepo.Update(ctx, func(users []model.User) ([]model.User, error) {
		ownerIdx := -1
		for i := range users {
			if users[i].Normalized == normalized {
				ownerIdx = i
			}
		}
		if ownerIdx < 0 {
			return nil, model.NewUserNotFoundError()
		}

		// 所有者の確定後に、別ユーザーが持つ同一エンドポイントを削除する。
		// 未知のユーザーによる登録失敗時に他ユーザーの購読が変わってはならない。
		for i := range users {
			if i == ownerIdx {
				continue
			}
			if users[i].FindSubscription(sub.Endpoint) >= 0 {
				users[i].PushSubscriptions = withoutEndpoint(users[i].PushSubscriptions, sub.Endpoint)
			}
		}

		owner := &users[ownerIdx]
		// 購読スライスのバッキング配列はLoadが返した過去のスナップショットと
		// 共有されているため、要素の書き換えも必ずコピーに対して行う。
		updated := owner.PushSubscriptions[:0:0]
		replaced := false
		for _, existing := range owner.PushSubscriptions {
			if existing.Endpoint == sub.Endpoint {
				existing.Keys = sub.Keys
				existing.ExpirationTime = sub.ExpirationTime
				existing.UpdatedAt = now
				replaced = true
			}
			updated = append(updated, existing)
		}
		if !replaced {
			updated = append(updated, model.PushSubscription{
				Endpoint:       sub.Endpoint,
				Keys:           sub.Keys,
				ExpirationTime: sub.ExpirationTime,
				CreatedAt:      now,
				UpdatedAt:      now,
			})
		}
		owner.PushSubscriptions = updated
		return users, nil
	})
	return err
}

// Unsubscribe は購読を解除する。
// 該当エンドポイントが存在しない場合も成功として扱う（冪等）。
func (s *Service) Unsubscribe(ctx context.Context, userName string, endpoint string) error {
	normalized := model.NormalizeName(userName)

	_, err := s.userRepo.Update(ctx, func(users []model.User) ([]model.User, error) {
		for i := range users {
			if users[i].Normalized != normalized {
				continue
			}
			if users[i].FindSubscription(endpoint) < 0 {
				return nil, nil
			}
			users[i].PushSubscriptions = withoutEndpoint(users[i].PushSubscriptions, endpoint)
			return users, nil
		}
		return nil, model.NewUserNotFoundError()
	})
	return err
}

// withoutEndpoint は該当エンドポイントを除いた購読リストの新しいコピーを返す。
// 元のバッキング配列はキャッシュや読み手のスナップショットと共有されているため、
// その場での詰め替えは行わない。
func withoutEndpoint(subs []model.PushSubscription, endpoint string) []model.PushSubscription {
	kept := subs[:0:0]
	for _, sub := range subs {
		if sub.Endpoint != endpoint {
			kept = append(kept, sub)
		}
	}
	return kept
}
