package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/storyslide/internal/model"
	"github.com/hitoshi/storyslide/internal/story"
)

// StoryServiceInterface はストーリーハンドラーが必要とするサービスインターフェース。
type StoryServiceInterface interface {
	Create(ctx context.Context, slides []story.SlideInput, addedBy string) (*model.Story, error)
	Update(ctx context.Context, storyID string, slides []story.SlideInput, addedBy string) (*model.Story, error)
	List(ctx context.Context, q story.ListQuery) (*story.ListResult, error)
	GetByID(ctx context.Context, storyID, viewerID string) (*model.StoryView, error)
	ToggleLike(ctx context.Context, storyID, userID string) (bool, int, error)
}

// StoryImporterInterface はフィードからストーリーを作成するインターフェース。
type StoryImporterInterface interface {
	Import(ctx context.Context, feedURL, category, addedBy string) (*model.Story, error)
}

// StoryHandler はストーリー関連のHTTPハンドラー。
type StoryHandler struct {
	service  StoryServiceInterface
	importer StoryImporterInterface
}

// NewStoryHandler はStoryHandlerを生成する。
func NewStoryHandler(service StoryServiceInterface, importer StoryImporterInterface) *StoryHandler {
	return &StoryHandler{
		service:  service,
		importer: importer,
	}
}

// slideRequest はリクエスト内のスライド。
// 編集画面は保存済みスライドをそのまま送り返すため、_idとmediaTypeも受け付けるが使用しない。
// mediaTypeは常にサーバー側で判定し直す。
type slideRequest struct {
	ID          string `json:"_id,omitempty"`
	ImageURL    string `json:"imageUrl"`
	MediaType   string `json:"mediaType,omitempty"`
	Heading     string `json:"heading"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

// storyRequest はストーリー作成・更新リクエストのボディ。
type storyRequest struct {
	Slides  []slideRequest `json:"slides"`
	AddedBy string         `json:"addedBy"`
}

// importRequest はフィードインポートリクエストのボディ。
type importRequest struct {
	FeedURL  string `json:"feedUrl"`
	Category string `json:"category"`
}

// storyResponse はストーリーのAPIレスポンス。
// 既存クライアントとの互換のため、IDは_idとして返す。
type storyResponse struct {
	ID        string        `json:"_id"`
	Slides    []model.Slide `json:"slides"`
	AddedBy   string        `json:"addedBy"`
	Likes     []string      `json:"likes"`
	CreatedAt time.Time     `json:"createdAt"`
	UpdatedAt time.Time     `json:"updatedAt"`
}

func toStoryResponse(s *model.Story) storyResponse {
	likes := s.Likes
	if likes == nil {
		likes = []string{}
	}
	return storyResponse{
		ID:        s.ID,
		Slides:    s.Slides,
		AddedBy:   s.AddedBy,
		Likes:     likes,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
}

func toStoryResponses(stories []*model.Story) []storyResponse {
	out := make([]storyResponse, len(stories))
	for i, s := range stories {
		out[i] = toStoryResponse(s)
	}
	return out
}

// toSlideInputs はリクエストのスライドを検証してサービス層の入力に変換する。
func (req *storyRequest) toSlideInputs() ([]story.SlideInput, *model.APIError) {
	if len(req.Slides) == 0 || strings.TrimSpace(req.AddedBy) == "" {
		return nil, model.NewMissingFieldsError("slides", "addedBy")
	}
	inputs := make([]story.SlideInput, len(req.Slides))
	for i, s := range req.Slides {
		if strings.TrimSpace(s.ImageURL) == "" {
			return nil, model.NewMissingFieldsError("slides[].imageUrl")
		}
		inputs[i] = story.SlideInput{
			ImageURL:    strings.TrimSpace(s.ImageURL),
			Heading:     s.Heading,
			Description: s.Description,
			Category:    strings.ToLower(strings.TrimSpace(s.Category)),
		}
	}
	return inputs, nil
}

// decodeStoryRequest はボディをデコードし、addedByがログインユーザーであることを確認する。
func decodeStoryRequest(w http.ResponseWriter, r *http.Request, userID string) ([]story.SlideInput, string, bool) {
	var req storyRequest
	if apiErr := decodeJSONBody(w, r, &req); apiErr != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, apiErr)
		return nil, "", false
	}
	inputs, apiErr := req.toSlideInputs()
	if apiErr != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, apiErr)
		return nil, "", false
	}
	if req.AddedBy != userID {
		writeAPIErrorResponse(w, http.StatusForbidden, model.NewForbiddenError("addedByがログインユーザーと一致しません"))
		return nil, "", false
	}
	return inputs, req.AddedBy, true
}

// Create はストーリーを作成する。
// POST /api/story/create
func (h *StoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	inputs, addedBy, ok := decodeStoryRequest(w, r, userID)
	if !ok {
		return
	}

	created, err := h.service.Create(r.Context(), inputs, addedBy)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"story":   toStoryResponse(created),
	})
}

// Update はストーリーのスライドを丸ごと置き換える。
// PUT /api/story/update/{id}
func (h *StoryHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	inputs, addedBy, ok := decodeStoryRequest(w, r, userID)
	if !ok {
		return
	}

	updated, err := h.service.Update(r.Context(), chi.URLParam(r, "id"), inputs, addedBy)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"story":   toStoryResponse(updated),
	})
}

// GetAll はストーリー一覧を取得する。
// GET /api/story/getAll?userId|category|catLimit|cat|page
// category=all の場合はstoriesがカテゴリ名をキーとするオブジェクトになる。
func (h *StoryHandler) GetAll(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.List(r.Context(), story.ParseListQuery(r.URL.Query()))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	var stories any
	if result.Mode == model.StoryListAllCategories {
		grouped := make(map[string][]storyResponse, len(result.Grouped))
		for category, list := range result.Grouped {
			grouped[category] = toStoryResponses(list)
		}
		stories = grouped
	} else {
		stories = toStoryResponses(result.Stories)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"stories": stories,
		"page":    result.Page,
	})
}

// GetByID はストーリー詳細を取得する。
// GET /api/story/getById/{storyId}?userId
// userIdが指定されない場合はログイン中のユーザーを閲覧者とする。
func (h *StoryHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	viewerID := r.URL.Query().Get("userId")
	if viewerID == "" {
		viewerID, _ = userIDFromRequest(r)
	}

	view, err := h.service.GetByID(r.Context(), chi.URLParam(r, "storyId"), viewerID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	body := map[string]any{
		"success":    true,
		"story":      toStoryResponse(view.Story),
		"totalLikes": view.TotalLikes,
	}
	if view.Liked != nil {
		body["liked"] = *view.Liked
	}
	if view.Bookmarked != nil {
		body["bookmarked"] = *view.Bookmarked
	}
	writeJSON(w, http.StatusOK, body)
}

// Like はログインユーザーのいいねを反転する。
// PUT /api/story/like/{id}
func (h *StoryHandler) Like(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	liked, total, err := h.service.ToggleLike(r.Context(), chi.URLParam(r, "id"), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"liked":      liked,
		"totalLikes": total,
	})
}

// Import はRSS/Atom/JSONフィードからストーリーを作成する。
// POST /api/story/import
func (h *StoryHandler) Import(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req importRequest
	if apiErr := decodeJSONBody(w, r, &req); apiErr != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, apiErr)
		return
	}
	if strings.TrimSpace(req.FeedURL) == "" || strings.TrimSpace(req.Category) == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewMissingFieldsError("feedUrl", "category"))
		return
	}

	created, err := h.importer.Import(r.Context(), strings.TrimSpace(req.FeedURL), req.Category, userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"story":   toStoryResponse(created),
	})
}
