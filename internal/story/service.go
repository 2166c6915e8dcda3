// Package story はストーリーの作成・更新・フィード取得のドメインロジックを提供する。
package story

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/storyslide/internal/media"
	"github.com/hitoshi/storyslide/internal/metrics"
	"github.com/hitoshi/storyslide/internal/model"
	"github.com/hitoshi/storyslide/internal/repository"
)

// pageSize はフィード1ページあたりの件数。取得上限は pageSize × page の累積ウィンドウになる。
const pageSize = 4

// SlideInput はクライアントから受け取るスライド。mediaTypeはサーバー側で判定する。
type SlideInput struct {
	ImageURL    string
	Heading     string
	Description string
	Category    string
}

// Service はストーリーのサービス層。
type Service struct {
	storyRepo    repository.StoryRepository
	reactionRepo repository.ReactionRepository
	userRepo     repository.UserRepository
	metrics      metrics.MetricsCollector
	now          func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	storyRepo repository.StoryRepository,
	reactionRepo repository.ReactionRepository,
	userRepo repository.UserRepository,
	mc metrics.MetricsCollector,
) *Service {
	if mc == nil {
		mc = metrics.NopCollector{}
	}
	return &Service{
		storyRepo:    storyRepo,
		reactionRepo: reactionRepo,
		userRepo:     userRepo,
		metrics:      mc,
		now:          time.Now,
	}
}

// Create はスライドを判定してストーリーを作成する。
// 1枚でも判定できないスライドがあれば何も保存せずにエラーを返す。
func (s *Service) Create(ctx context.Context, slides []SlideInput, addedBy string) (*model.Story, error) {
	return s.create(ctx, slides, addedBy, metrics.SourceAPI)
}

func (s *Service) create(ctx context.Context, slides []SlideInput, addedBy, source string) (*model.Story, error) {
	if len(slides) == 0 || addedBy == "" {
		return nil, model.NewMissingFieldsError("slides", "addedBy")
	}

	classified, err := s.classifySlides(slides)
	if err != nil {
		return nil, err
	}

	now := s.now()
	story := &model.Story{
		ID:        uuid.NewString(),
		Slides:    classified,
		AddedBy:   addedBy,
		Likes:     []string{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.storyRepo.Create(ctx, story); err != nil {
		return nil, fmt.Errorf("ストーリーの作成に失敗しました: %w", err)
	}

	s.metrics.RecordStoryCreated(source)
	return story, nil
}

// Update はストーリーのスライドを丸ごと置き換える。部分更新は行わない。
// 他ユーザーのストーリーは更新できない。
func (s *Service) Update(ctx context.Context, storyID string, slides []SlideInput, addedBy string) (*model.Story, error) {
	if len(slides) == 0 || addedBy == "" {
		return nil, model.NewMissingFieldsError("slides", "addedBy")
	}

	existing, err := s.findStory(ctx, storyID)
	if err != nil {
		return nil, err
	}
	if existing.AddedBy != addedBy {
		return nil, model.NewForbiddenError("他のユーザーのストーリーは更新できません")
	}

	classified, err := s.classifySlides(slides)
	if err != nil {
		return nil, err
	}

	existing.Slides = classified
	existing.UpdatedAt = s.now()
	if err := s.storyRepo.UpdateSlides(ctx, existing); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, model.NewStoryNotFoundError(storyID)
		}
		return nil, fmt.Errorf("ストーリーの更新に失敗しました: %w", err)
	}
	return existing, nil
}

// classifySlides は全スライドのメディア種別を判定する。
func (s *Service) classifySlides(slides []SlideInput) ([]model.Slide, error) {
	classified := make([]model.Slide, len(slides))
	for i, in := range slides {
		mt := media.Classify(in.ImageURL)
		s.metrics.RecordClassification(mt)
		if mt == model.MediaTypeUnknown {
			return nil, model.NewInvalidMediaURLError(in.ImageURL)
		}
		classified[i] = model.Slide{
			ImageURL:    in.ImageURL,
			MediaType:   mt,
			Heading:     in.Heading,
			Description: in.Description,
			Category:    in.Category,
		}
	}
	return classified, nil
}

// GetByID はストーリーと総いいね数を返す。
// viewerIDが実在するユーザーの場合のみ、いいね・ブックマーク状態を付与する。
func (s *Service) GetByID(ctx context.Context, storyID, viewerID string) (*model.StoryView, error) {
	story, err := s.findStory(ctx, storyID)
	if err != nil {
		return nil, err
	}

	view := &model.StoryView{
		Story:      story,
		TotalLikes: len(story.Likes),
	}

	if viewerID == "" || !isUUID(viewerID) {
		return view, nil
	}

	viewer, err := s.userRepo.FindByID(ctx, viewerID)
	if err != nil {
		return nil, fmt.Errorf("閲覧ユーザーの取得に失敗しました: %w", err)
	}
	if viewer == nil {
		return view, nil
	}

	liked, bookmarked, err := s.reactionRepo.ViewerState(ctx, story.ID, viewer.ID)
	if err != nil {
		return nil, fmt.Errorf("いいね・ブックマーク状態の取得に失敗しました: %w", err)
	}
	view.Liked = &liked
	view.Bookmarked = &bookmarked
	return view, nil
}

// ToggleLike はユーザーのいいねを反転し、反転後の状態と総いいね数を返す。
func (s *Service) ToggleLike(ctx context.Context, storyID, userID string) (bool, int, error) {
	if !isUUID(storyID) {
		return false, 0, model.NewStoryNotFoundError(storyID)
	}

	liked, total, err := s.reactionRepo.ToggleLike(ctx, storyID, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return false, 0, model.NewStoryNotFoundError(storyID)
	}
	if err != nil {
		return false, 0, fmt.Errorf("いいねの更新に失敗しました: %w", err)
	}
	return liked, total, nil
}

// findStory はIDでストーリーを取得し、存在しなければSTORY_NOT_FOUNDを返す。
// UUID形式でないIDはDBに問い合わせずに未検出として扱う。
func (s *Service) findStory(ctx context.Context, storyID string) (*model.Story, error) {
	if !isUUID(storyID) {
		return nil, model.NewStoryNotFoundError(storyID)
	}
	story, err := s.storyRepo.FindByID(ctx, storyID)
	if err != nil {
		return nil, fmt.Errorf("ストーリーの取得に失敗しました: %w", err)
	}
	if story == nil {
		return nil, model.NewStoryNotFoundError(storyID)
	}
	return story, nil
}

func isUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
