// Package handler はHTTP APIのハンドラーとルーティングを提供する。
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/matchup/internal/middleware"
	"github.com/hitoshi/matchup/internal/model"
	"github.com/hitoshi/matchup/internal/store"
)

// writeJSON はJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(v)
}

// writeAPIErrorResponse は統一エラーフォーマットでエラーレスポンスを書き込む。
func writeAPIErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	middleware.WriteErrorResponse(w, statusCode, apiErr)
}

// writeUnauthorized は認証エラーの統一レスポンスを書き込む。
func writeUnauthorized(w http.ResponseWriter) {
	writeAPIErrorResponse(w, http.StatusUnauthorized, &model.APIError{
		Code:     "UNAUTHORIZED",
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "ログインしてください。",
	})
}

// writeInvalidRequest はリクエストボディ解析エラーの統一レスポンスを書き込む。
func writeInvalidRequest(w http.ResponseWriter) {
	writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
		Code:     "INVALID_REQUEST",
		Message:  "リクエストボディの解析に失敗しました。",
		Category: "validation",
		Action:   "正しいJSON形式でリクエストしてください。",
	})
}

// handleServiceError はサービス層のエラーをHTTPステータスコードにマッピングする。
// APIErrorはカテゴリに応じたステータスで返し、
// ストレージ破損を含むその他のエラーはログに記録して500を返す。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		writeAPIErrorResponse(w, statusForCategory(apiErr.Category), apiErr)
		return
	}

	var corruption *store.CorruptionError
	if errors.As(err, &corruption) {
		slog.Error("ストレージ破損を検出しました",
			slog.String("path", corruption.Path),
			slog.String("error", corruption.Error()),
		)
		middleware.WriteInternalServerError(w)
		return
	}

	slog.Error("サービス層でエラーが発生しました",
		slog.String("error", err.Error()),
	)
	middleware.WriteInternalServerError(w)
}

// statusForCategory はエラーカテゴリをHTTPステータスコードに変換する。
func statusForCategory(category string) int {
	switch category {
	case "validation":
		return http.StatusBadRequest
	case "conflict":
		return http.StatusConflict
	case "permission":
		return http.StatusForbidden
	case "not_found":
		return http.StatusNotFound
	case "auth":
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
