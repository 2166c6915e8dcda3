package handler

import (
	"context"
	"errors"
	"log/slog"
	"mime"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/storyslide/internal/model"
	"github.com/hitoshi/storyslide/internal/presenter"
)

// SlideViewServiceInterface はストーリーのスライド表示情報を組み立てるインターフェース。
type SlideViewServiceInterface interface {
	RenderSlides(ctx context.Context, storyID string, view presenter.ViewContext) ([]presenter.SlideView, error)
	// DownloadSlide は指定インデックスのスライドをアクティブにしてメディアを取得する。
	DownloadSlide(ctx context.Context, storyID string, index int) (*presenter.File, error)
}

// SlideHandler はスライド表示情報のHTTPハンドラー。
type SlideHandler struct {
	service SlideViewServiceInterface
}

// NewSlideHandler はSlideHandlerを生成する。
func NewSlideHandler(service SlideViewServiceInterface) *SlideHandler {
	return &SlideHandler{service: service}
}

// GetSlides は保存済みストーリーの全スライドの表示情報を返す。
// GET /api/story/slides/{storyId}?small=true
func (h *SlideHandler) GetSlides(w http.ResponseWriter, r *http.Request) {
	small, _ := strconv.ParseBool(r.URL.Query().Get("small"))

	views, err := h.service.RenderSlides(r.Context(), chi.URLParam(r, "storyId"), presenter.ViewContext{SmallScreen: small})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"slides":  views,
	})
}

// DownloadSlide は保存済みストーリーのスライドのメディアを添付ファイルとして返す。
// ファイル名は見出し（なければ slide_<番号>）と拡張子から決まる。
// GET /api/story/slides/{storyId}/download?index=0
func (h *SlideHandler) DownloadSlide(w http.ResponseWriter, r *http.Request) {
	index := 0
	if raw := r.URL.Query().Get("index"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("index must be an integer"))
			return
		}
		index = n
	}

	file, err := h.service.DownloadSlide(r.Context(), chi.URLParam(r, "storyId"), index)
	if err != nil {
		var apiErr *model.APIError
		switch {
		case errors.As(err, &apiErr):
			handleServiceError(w, err)
		case errors.Is(err, presenter.ErrIndexOutOfRange):
			writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("slide index out of range"))
		case errors.Is(err, presenter.ErrNoMedia):
			writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("slide has no downloadable media"))
		default:
			status, apiErr := mapDownloadError(err)
			writeAPIErrorResponse(w, status, apiErr)
		}
		return
	}

	w.Header().Set("Content-Type", file.Media.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(file.Media.Body)))
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": file.Name}))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(file.Media.Body); err != nil {
		slog.Warn("failed to write slide media", slog.String("error", err.Error()))
	}
}
