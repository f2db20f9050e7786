package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/hitoshi/matchup/internal/middleware"
	"github.com/hitoshi/matchup/internal/model"
)

// PushServiceInterface はプッシュ購読ハンドラーが必要とするサービスインターフェース。
type PushServiceInterface interface {
	Subscribe(ctx context.Context, userName string, sub model.PushSubscription) error
	Unsubscribe(ctx context.Context, userName string, endpoint string) error
}

// PushHandler はWeb Push購読のHTTPハンドラー。
type PushHandler struct {
	service        PushServiceInterface
	vapidPublicKey string
}

// NewPushHandler はPushHandlerを生成する。
func NewPushHandler(service PushServiceInterface, vapidPublicKey string) *PushHandler {
	return &PushHandler{
		service:        service,
		vapidPublicKey: vapidPublicKey,
	}
}

// subscribeRequest はブラウザのPushSubscription.toJSON()と同じ形。
type subscribeRequest struct {
	Endpoint       string                 `json:"endpoint"`
	ExpirationTime *float64               `json:"expirationTime"`
	Keys           model.SubscriptionKeys `json:"keys"`
}

// unsubscribeRequest は購読解除リクエストのボディ。
type unsubscribeRequest struct {
	Endpoint string `json:"endpoint"`
}

// vapidKeyResponse は公開鍵配布レスポンス。
type vapidKeyResponse struct {
	PublicKey string `json:"publicKey"`
}

// Subscribe はログインユーザーのプッシュ購読を登録・更新する。
// POST /api/push/subscribe
func (h *PushHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	actor, err := middleware.UserFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	var req subscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequest(w)
		return
	}

	sub := model.PushSubscription{
		Endpoint:       req.Endpoint,
		ExpirationTime: epochMillisToTime(req.ExpirationTime),
		Keys:           req.Keys,
	}
	if err := h.service.Subscribe(r.Context(), actor, sub); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// epochMillisToTime はPushSubscription.toJSON()のexpirationTime（エポックミリ秒）を
// time.Timeに変換する。nullのままなら期限なしとしてnilを返す。
func epochMillisToTime(millis *float64) *time.Time {
	if millis == nil {
		return nil
	}
	t := time.UnixMilli(int64(*millis)).UTC()
	return &t
}

// Unsubscribe はログインユーザーの指定エンドポイントの購読を解除する。
// 既に存在しない場合も成功として扱う。
// POST /api/push/unsubscribe
func (h *PushHandler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	actor, err := middleware.UserFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	var req unsubscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequest(w)
		return
	}

	if err := h.service.Unsubscribe(r.Context(), actor, req.Endpoint); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// VAPIDKey はブラウザ側の購読登録に使う公開鍵を返す。
// GET /api/push/key
func (h *PushHandler) VAPIDKey(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, vapidKeyResponse{PublicKey: h.vapidPublicKey})
}
