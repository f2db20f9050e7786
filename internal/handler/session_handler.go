package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/matchup/internal/middleware"
	"github.com/hitoshi/matchup/internal/model"
	"github.com/hitoshi/matchup/internal/session"
)

// SessionServiceInterface はセッションハンドラーが必要とするサービスインターフェース。
type SessionServiceInterface interface {
	List(ctx context.Context) ([]model.Session, error)
	Get(ctx context.Context, id string) (*model.Session, error)
	Create(ctx context.Context, organizer string, input session.Input) (*model.Session, error)
	Edit(ctx context.Context, actor, id string, input session.Input) (*model.Session, error)
	Delete(ctx context.Context, actor, id string) error
	Join(ctx context.Context, actor, id string) (*model.Session, error)
	Leave(ctx context.Context, actor, id string) (*model.Session, error)
	UpdateParticipants(ctx context.Context, actor, id string, participants []string) (*model.Session, error)
	Follow(ctx context.Context, actor, id string) (*model.Session, error)
	Unfollow(ctx context.Context, actor, id string) (*model.Session, error)
	SendMessage(ctx context.Context, actor, id, text string) (*model.Message, error)
}

// SessionHandler はセッションのHTTPハンドラー。
type SessionHandler struct {
	service SessionServiceInterface
}

// NewSessionHandler はSessionHandlerを生成する。
func NewSessionHandler(service SessionServiceInterface) *SessionHandler {
	return &SessionHandler{service: service}
}

// sessionInputRequest はセッション作成・編集リクエストのボディ。
type sessionInputRequest struct {
	Datetime            string  `json:"datetime"`
	DurationMinutes     int     `json:"durationMinutes"`
	Club                string  `json:"club"`
	Level               string  `json:"level"`
	Capacity            int     `json:"capacity"`
	PricePerParticipant float64 `json:"pricePerParticipant"`
}

func (r sessionInputRequest) toInput() session.Input {
	return session.Input{
		Datetime:            r.Datetime,
		DurationMinutes:     r.DurationMinutes,
		Club:                r.Club,
		Level:               r.Level,
		Capacity:            r.Capacity,
		PricePerParticipant: r.PricePerParticipant,
	}
}

// participantsRequest は参加者リスト置換リクエストのボディ。
type participantsRequest struct {
	Participants []string `json:"participants"`
}

// messageRequest はチャットメッセージ投稿リクエストのボディ。
type messageRequest struct {
	Text string `json:"text"`
}

// List は期限切れを除いたセッション一覧を返す。
// GET /api/sessions
func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.service.List(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessions)
}

// Get は単一セッションを返す。
// GET /api/sessions/{id}
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	s, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// Create は新規セッションを作成する。ログインユーザーが主催者になる。
// POST /api/sessions
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, err := middleware.UserFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	var req sessionInputRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequest(w)
		return
	}

	created, err := h.service.Create(r.Context(), actor, req.toInput())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// Edit はセッションの属性を更新する。主催者のみ可能。
// PUT /api/sessions/{id}
func (h *SessionHandler) Edit(w http.ResponseWriter, r *http.Request) {
	actor, err := middleware.UserFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	var req sessionInputRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequest(w)
		return
	}

	updated, err := h.service.Edit(r.Context(), actor, chi.URLParam(r, "id"), req.toInput())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// Delete はセッションを削除する。主催者または管理ユーザーのみ可能。
// DELETE /api/sessions/{id}
func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, err := middleware.UserFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	if err := h.service.Delete(r.Context(), actor, chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Join はログインユーザーを参加者に追加する。
// POST /api/sessions/{id}/join
func (h *SessionHandler) Join(w http.ResponseWriter, r *http.Request) {
	h.memberAction(w, r, h.service.Join)
}

// Leave はログインユーザーを参加者から除外する。
// POST /api/sessions/{id}/leave
func (h *SessionHandler) Leave(w http.ResponseWriter, r *http.Request) {
	h.memberAction(w, r, h.service.Leave)
}

// Follow はログインユーザーをフォロワーに追加する。
// POST /api/sessions/{id}/follow
func (h *SessionHandler) Follow(w http.ResponseWriter, r *http.Request) {
	h.memberAction(w, r, h.service.Follow)
}

// Unfollow はログインユーザーをフォロワーから除外する。
// POST /api/sessions/{id}/unfollow
func (h *SessionHandler) Unfollow(w http.ResponseWriter, r *http.Request) {
	h.memberAction(w, r, h.service.Unfollow)
}

// UpdateParticipants は参加者リストを置換する。主催者のみ可能。
// PUT /api/sessions/{id}/participants
func (h *SessionHandler) UpdateParticipants(w http.ResponseWriter, r *http.Request) {
	actor, err := middleware.UserFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	var req participantsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequest(w)
		return
	}

	updated, err := h.service.UpdateParticipants(r.Context(), actor, chi.URLParam(r, "id"), req.Participants)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// SendMessage はセッションチャットへメッセージを投稿する。
// POST /api/sessions/{id}/messages
func (h *SessionHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	actor, err := middleware.UserFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	var req messageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequest(w)
		return
	}

	msg, err := h.service.SendMessage(r.Context(), actor, chi.URLParam(r, "id"), req.Text)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, msg)
}

// memberAction はID指定のユーザー操作（参加・離脱・フォロー等）の共通処理。
func (h *SessionHandler) memberAction(w http.ResponseWriter, r *http.Request, action func(ctx context.Context, actor, id string) (*model.Session, error)) {
	actor, err := middleware.UserFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	updated, err := action(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}
