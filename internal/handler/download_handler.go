package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/hitoshi/storyslide/internal/download"
	"github.com/hitoshi/storyslide/internal/model"
)

// DownloadHandler はスライドのメディアを中継するHTTPハンドラー。
// ブラウザから直接取得できないクロスオリジンのメディアを保存するために使う。
type DownloadHandler struct {
	fetcher download.Fetcher
}

// NewDownloadHandler はDownloadHandlerを生成する。
func NewDownloadHandler(fetcher download.Fetcher) *DownloadHandler {
	return &DownloadHandler{fetcher: fetcher}
}

// DownloadImage はurlクエリのメディアを取得し、取得元のContent-Typeで返す。
// GET /download-image?url=
func (h *DownloadHandler) DownloadImage(w http.ResponseWriter, r *http.Request) {
	rawURL := strings.TrimSpace(r.URL.Query().Get("url"))
	if rawURL == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewMissingFieldsError("url"))
		return
	}

	m, err := h.fetcher.Fetch(r.Context(), rawURL)
	if err != nil {
		status, apiErr := mapDownloadError(err)
		writeAPIErrorResponse(w, status, apiErr)
		return
	}

	w.Header().Set("Content-Type", m.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(m.Body)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(m.Body); err != nil {
		slog.Warn("failed to write media response", slog.String("error", err.Error()))
	}
}

// mapDownloadError はプロキシのエラーをステータスコードとAPIErrorに変換する。
func mapDownloadError(err error) (int, *model.APIError) {
	switch {
	case errors.Is(err, download.ErrInvalidURL):
		return http.StatusBadRequest, model.NewInvalidURLError(err.Error())
	case errors.Is(err, download.ErrBlocked):
		return http.StatusForbidden, model.NewSSRFBlockedError()
	case errors.Is(err, download.ErrTooLarge):
		return http.StatusBadGateway, model.NewFetchFailedError("response too large")
	case errors.Is(err, download.ErrUpstream):
		return http.StatusBadGateway, model.NewFetchFailedError("upstream error")
	default:
		slog.Error("unexpected download error", slog.String("error", err.Error()))
		return http.StatusInternalServerError, model.NewInternalError()
	}
}
