package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/coursegit/internal/middleware"
	"github.com/hitoshi/coursegit/internal/model"
)

// writeJSON はステータスコードとともにJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(v)
}

// decodeJSON はリクエストボディをvにデコードする。失敗した場合は400を書き込みfalseを返す。
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest,
			model.NewInvalidRequestError("リクエストボディの解析に失敗しました"))
		return false
	}
	return true
}

// writeInvalidRequest は入力検証エラーを400で書き込む。
func writeInvalidRequest(w http.ResponseWriter, reason string) {
	middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError(reason))
}

// handleServiceError はサービス層から返されたエラーをHTTPレスポンスに変換する。
// NotFoundのみ404とし、それ以外は詳細を含まない500とする。
func handleServiceError(w http.ResponseWriter, logger *slog.Logger, err error) {
	if errors.Is(err, model.ErrNotFound) {
		ref := ""
		var opErr *model.OpError
		if errors.As(err, &opErr) {
			ref = opErr.Ref
		}
		middleware.WriteErrorResponse(w, http.StatusNotFound, model.NewNotFoundError(ref))
		return
	}

	logger.Error("internal server error",
		slog.String("kind", string(model.KindOf(err))),
		slog.String("error", err.Error()),
	)
	middleware.WriteInternalServerError(w)
}
