package handler

import (
	"context"
	"log/slog"

	"github.com/hitoshi/storyslide/internal/download"
	"github.com/hitoshi/storyslide/internal/model"
	"github.com/hitoshi/storyslide/internal/presenter"
	"github.com/hitoshi/storyslide/internal/user"
)

// UserServiceAdapter は user.Service を UserServiceInterface に適合させるアダプタ。
type UserServiceAdapter struct {
	svc *user.Service
}

// NewUserServiceAdapter はUserServiceAdapterを生成する。
func NewUserServiceAdapter(svc *user.Service) *UserServiceAdapter {
	return &UserServiceAdapter{svc: svc}
}

// LoadProfile はプロフィールをhandlerレスポンス型で返す。
func (a *UserServiceAdapter) LoadProfile(ctx context.Context, username string) (*userProfileResponse, error) {
	profile, err := a.svc.LoadProfile(ctx, username)
	if err != nil {
		return nil, err
	}
	resp := toUserProfileResponse(profile)
	return &resp, nil
}

// ToggleBookmark はブックマークを反転する。
func (a *UserServiceAdapter) ToggleBookmark(ctx context.Context, storyID, userID string) (bool, error) {
	return a.svc.ToggleBookmark(ctx, storyID, userID)
}

// ListBookmarks はブックマーク済みストーリーをhandlerレスポンス型で返す。
func (a *UserServiceAdapter) ListBookmarks(ctx context.Context, requesterID, userID string) ([]storyResponse, error) {
	stories, err := a.svc.ListBookmarks(ctx, requesterID, userID)
	if err != nil {
		return nil, err
	}
	return toStoryResponses(stories), nil
}

// toUserProfileResponse はドメインのUserProfileをレスポンス型に変換する。
// 空の集合はnullではなく空配列として返す。
func toUserProfileResponse(p *model.UserProfile) userProfileResponse {
	likes, bookmarks := p.Likes, p.Bookmarks
	if likes == nil {
		likes = []string{}
	}
	if bookmarks == nil {
		bookmarks = []string{}
	}
	return userProfileResponse{
		userResponse: toUserResponse(&p.User),
		Likes:        likes,
		Bookmarks:    bookmarks,
	}
}

// storyGetter はスライド表示に必要なストーリー取得インターフェース。
type storyGetter interface {
	GetByID(ctx context.Context, storyID, viewerID string) (*model.StoryView, error)
}

// SlideViewAdapter はストーリーサービスとプレゼンターを SlideViewServiceInterface に適合させるアダプタ。
// リクエストごとに新しいプレゼンターを生成するため、ダウンロード状態は共有されない。
type SlideViewAdapter struct {
	stories storyGetter
	fetcher download.Fetcher
	logger  *slog.Logger
}

// NewSlideViewAdapter はSlideViewAdapterを生成する。
func NewSlideViewAdapter(stories storyGetter, fetcher download.Fetcher, logger *slog.Logger) *SlideViewAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlideViewAdapter{stories: stories, fetcher: fetcher, logger: logger}
}

// RenderSlides はストーリーの全スライドを表示情報に変換する。
func (a *SlideViewAdapter) RenderSlides(ctx context.Context, storyID string, view presenter.ViewContext) ([]presenter.SlideView, error) {
	sv, err := a.stories.GetByID(ctx, storyID, "")
	if err != nil {
		return nil, err
	}
	return presenter.New(sv.Story.Slides, a.fetcher, view, a.logger).RenderAll(), nil
}

// DownloadSlide は指定スライドをアクティブにし、プレゼンター経由でメディアを取得する。
func (a *SlideViewAdapter) DownloadSlide(ctx context.Context, storyID string, index int) (*presenter.File, error) {
	sv, err := a.stories.GetByID(ctx, storyID, "")
	if err != nil {
		return nil, err
	}
	p := presenter.New(sv.Story.Slides, a.fetcher, presenter.ViewContext{}, a.logger)
	if err := p.SetActive(index); err != nil {
		return nil, err
	}
	return p.Download(ctx)
}

// --- compile-time interface checks ---

var _ UserServiceInterface = (*UserServiceAdapter)(nil)
var _ SlideViewServiceInterface = (*SlideViewAdapter)(nil)
