package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/storyslide/internal/download"
	"github.com/hitoshi/storyslide/internal/middleware"
	"github.com/hitoshi/storyslide/internal/model"
	"github.com/hitoshi/storyslide/internal/presenter"
	"github.com/hitoshi/storyslide/internal/story"
)

// --- モック ---

type mockStoryService struct {
	createFn     func(ctx context.Context, slides []story.SlideInput, addedBy string) (*model.Story, error)
	updateFn     func(ctx context.Context, storyID string, slides []story.SlideInput, addedBy string) (*model.Story, error)
	listFn       func(ctx context.Context, q story.ListQuery) (*story.ListResult, error)
	getByIDFn    func(ctx context.Context, storyID, viewerID string) (*model.StoryView, error)
	toggleLikeFn func(ctx context.Context, storyID, userID string) (bool, int, error)
}

func (m *mockStoryService) Create(ctx context.Context, slides []story.SlideInput, addedBy string) (*model.Story, error) {
	return m.createFn(ctx, slides, addedBy)
}

func (m *mockStoryService) Update(ctx context.Context, storyID string, slides []story.SlideInput, addedBy string) (*model.Story, error) {
	return m.updateFn(ctx, storyID, slides, addedBy)
}

func (m *mockStoryService) List(ctx context.Context, q story.ListQuery) (*story.ListResult, error) {
	return m.listFn(ctx, q)
}

func (m *mockStoryService) GetByID(ctx context.Context, storyID, viewerID string) (*model.StoryView, error) {
	return m.getByIDFn(ctx, storyID, viewerID)
}

func (m *mockStoryService) ToggleLike(ctx context.Context, storyID, userID string) (bool, int, error) {
	return m.toggleLikeFn(ctx, storyID, userID)
}

type mockImporter struct {
	importFn func(ctx context.Context, feedURL, category, addedBy string) (*model.Story, error)
}

func (m *mockImporter) Import(ctx context.Context, feedURL, category, addedBy string) (*model.Story, error) {
	return m.importFn(ctx, feedURL, category, addedBy)
}

type mockAuthService struct {
	registerFn       func(ctx context.Context, username, password string) (*model.User, error)
	loginFn          func(ctx context.Context, username, password string) (*model.User, *model.Session, error)
	logoutFn         func(ctx context.Context, sessionID string) error
	getCurrentUserFn func(ctx context.Context, sessionID string) (*model.User, error)
}

func (m *mockAuthService) Register(ctx context.Context, username, password string) (*model.User, error) {
	return m.registerFn(ctx, username, password)
}

func (m *mockAuthService) Login(ctx context.Context, username, password string) (*model.User, *model.Session, error) {
	return m.loginFn(ctx, username, password)
}

func (m *mockAuthService) Logout(ctx context.Context, sessionID string) error {
	if m.logoutFn == nil {
		return nil
	}
	return m.logoutFn(ctx, sessionID)
}

func (m *mockAuthService) GetCurrentUser(ctx context.Context, sessionID string) (*model.User, error) {
	return m.getCurrentUserFn(ctx, sessionID)
}

type mockUserService struct {
	loadProfileFn    func(ctx context.Context, username string) (*userProfileResponse, error)
	toggleBookmarkFn func(ctx context.Context, storyID, userID string) (bool, error)
	listBookmarksFn  func(ctx context.Context, requesterID, userID string) ([]storyResponse, error)
}

func (m *mockUserService) LoadProfile(ctx context.Context, username string) (*userProfileResponse, error) {
	return m.loadProfileFn(ctx, username)
}

func (m *mockUserService) ToggleBookmark(ctx context.Context, storyID, userID string) (bool, error) {
	return m.toggleBookmarkFn(ctx, storyID, userID)
}

func (m *mockUserService) ListBookmarks(ctx context.Context, requesterID, userID string) ([]storyResponse, error) {
	return m.listBookmarksFn(ctx, requesterID, userID)
}

type mockSlideViewService struct {
	renderSlidesFn  func(ctx context.Context, storyID string, view presenter.ViewContext) ([]presenter.SlideView, error)
	downloadSlideFn func(ctx context.Context, storyID string, index int) (*presenter.File, error)
}

func (m *mockSlideViewService) RenderSlides(ctx context.Context, storyID string, view presenter.ViewContext) ([]presenter.SlideView, error) {
	return m.renderSlidesFn(ctx, storyID, view)
}

func (m *mockSlideViewService) DownloadSlide(ctx context.Context, storyID string, index int) (*presenter.File, error) {
	return m.downloadSlideFn(ctx, storyID, index)
}

type mockFetcher struct {
	fetchFn func(ctx context.Context, rawURL string) (*download.Media, error)
}

func (m *mockFetcher) Fetch(ctx context.Context, rawURL string) (*download.Media, error) {
	return m.fetchFn(ctx, rawURL)
}

// mockSessionFinder はセッションIDからセッションを引くモック。
type mockSessionFinder struct {
	sessions map[string]*model.Session
}

func (m *mockSessionFinder) FindByID(ctx context.Context, id string) (*model.Session, error) {
	if s, ok := m.sessions[id]; ok {
		return s, nil
	}
	return nil, nil
}

// --- ヘルパー ---

// withUserID はセッションミドルウェアを通過した状態のリクエストを作る。
func withUserID(r *http.Request, userID string) *http.Request {
	return r.WithContext(middleware.ContextWithUserID(r.Context(), userID))
}

// withChiURLParam はchiのURLパラメータを設定したリクエストを作る。
func withChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		rctx = chi.NewRouteContext()
	}
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// --- compile-time interface checks ---

var (
	_ StoryServiceInterface     = (*mockStoryService)(nil)
	_ StoryImporterInterface    = (*mockImporter)(nil)
	_ AuthServiceInterface      = (*mockAuthService)(nil)
	_ UserServiceInterface      = (*mockUserService)(nil)
	_ SlideViewServiceInterface = (*mockSlideViewService)(nil)
	_ download.Fetcher          = (*mockFetcher)(nil)
)
