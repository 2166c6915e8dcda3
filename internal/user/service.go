// Package user はユーザープロフィールとブックマークのドメインロジックを提供する。
package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/hitoshi/storyslide/internal/model"
	"github.com/hitoshi/storyslide/internal/repository"
)

// Service はユーザー管理のサービス層。
type Service struct {
	userRepo     repository.UserRepository
	storyRepo    repository.StoryRepository
	reactionRepo repository.ReactionRepository
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	userRepo repository.UserRepository,
	storyRepo repository.StoryRepository,
	reactionRepo repository.ReactionRepository,
) *Service {
	return &Service{
		userRepo:     userRepo,
		storyRepo:    storyRepo,
		reactionRepo: reactionRepo,
	}
}

// LoadProfile はユーザー名でユーザーを取得し、いいね・ブックマーク済みストーリーIDを付与する。
func (s *Service) LoadProfile(ctx context.Context, username string) (*model.UserProfile, error) {
	if username == "" {
		return nil, model.NewMissingFieldsError("username")
	}

	user, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}

	likes, err := s.reactionRepo.ListLikedStoryIDs(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("いいね一覧の取得に失敗しました: %w", err)
	}
	bookmarks, err := s.reactionRepo.ListBookmarkedStoryIDs(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("ブックマーク一覧の取得に失敗しました: %w", err)
	}

	return &model.UserProfile{User: *user, Likes: likes, Bookmarks: bookmarks}, nil
}

// ToggleBookmark はブックマークを反転し、反転後の状態を返す。
func (s *Service) ToggleBookmark(ctx context.Context, storyID, userID string) (bool, error) {
	if _, err := uuid.Parse(storyID); err != nil {
		return false, model.NewStoryNotFoundError(storyID)
	}

	bookmarked, err := s.reactionRepo.ToggleBookmark(ctx, storyID, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return false, model.NewStoryNotFoundError(storyID)
	}
	if err != nil {
		return false, fmt.Errorf("ブックマークの更新に失敗しました: %w", err)
	}

	slog.Debug("ブックマークを更新しました",
		slog.String("user_id", userID),
		slog.String("story_id", storyID),
		slog.Bool("bookmarked", bookmarked),
	)
	return bookmarked, nil
}

// ListBookmarks はユーザーのブックマーク済みストーリーを新しい順に返す。
// 本人以外のブックマークは参照できない。
func (s *Service) ListBookmarks(ctx context.Context, requesterID, userID string) ([]*model.Story, error) {
	if requesterID != userID {
		return nil, model.NewForbiddenError("他のユーザーのブックマークは参照できません")
	}

	stories, err := s.storyRepo.ListBookmarkedBy(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("ブックマークの取得に失敗しました: %w", err)
	}
	return stories, nil
}
