package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/matchup/internal/model"
)

// ClubServiceInterface はクラブハンドラーが必要とするリポジトリインターフェース。
type ClubServiceInterface interface {
	List(ctx context.Context) ([]model.Club, error)
}

// ClubHandler はクラブ参照リストのHTTPハンドラー。
type ClubHandler struct {
	repo ClubServiceInterface
}

// NewClubHandler はClubHandlerを生成する。
func NewClubHandler(repo ClubServiceInterface) *ClubHandler {
	return &ClubHandler{repo: repo}
}

// List は開催場所として選択可能なクラブの一覧を返す。
// GET /api/clubs
func (h *ClubHandler) List(w http.ResponseWriter, r *http.Request) {
	clubs, err := h.repo.List(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, clubs)
}
