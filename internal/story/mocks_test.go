package story

import (
	"context"

	"github.com/hitoshi/storyslide/internal/model"
)

// --- モック ---

type mockStoryRepo struct {
	createFn           func(ctx context.Context, story *model.Story) error
	findByIDFn         func(ctx context.Context, id string) (*model.Story, error)
	updateSlidesFn     func(ctx context.Context, story *model.Story) error
	listFn             func(ctx context.Context, filter model.StoryFilter) ([]*model.Story, error)
	listBookmarkedByFn func(ctx context.Context, userID string) ([]*model.Story, error)
}

func (m *mockStoryRepo) Create(ctx context.Context, story *model.Story) error {
	if m.createFn != nil {
		return m.createFn(ctx, story)
	}
	return nil
}
func (m *mockStoryRepo) FindByID(ctx context.Context, id string) (*model.Story, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}
func (m *mockStoryRepo) UpdateSlides(ctx context.Context, story *model.Story) error {
	if m.updateSlidesFn != nil {
		return m.updateSlidesFn(ctx, story)
	}
	return nil
}
func (m *mockStoryRepo) List(ctx context.Context, filter model.StoryFilter) ([]*model.Story, error) {
	if m.listFn != nil {
		return m.listFn(ctx, filter)
	}
	return []*model.Story{}, nil
}
func (m *mockStoryRepo) ListBookmarkedBy(ctx context.Context, userID string) ([]*model.Story, error) {
	if m.listBookmarkedByFn != nil {
		return m.listBookmarkedByFn(ctx, userID)
	}
	return []*model.Story{}, nil
}

type mockReactionRepo struct {
	toggleLikeFn  func(ctx context.Context, storyID, userID string) (bool, int, error)
	viewerStateFn func(ctx context.Context, storyID, userID string) (bool, bool, error)
}

func (m *mockReactionRepo) ToggleLike(ctx context.Context, storyID, userID string) (bool, int, error) {
	return m.toggleLikeFn(ctx, storyID, userID)
}
func (m *mockReactionRepo) ToggleBookmark(ctx context.Context, storyID, userID string) (bool, error) {
	return false, nil
}
func (m *mockReactionRepo) ViewerState(ctx context.Context, storyID, userID string) (bool, bool, error) {
	return m.viewerStateFn(ctx, storyID, userID)
}
func (m *mockReactionRepo) ListLikedStoryIDs(ctx context.Context, userID string) ([]string, error) {
	return []string{}, nil
}
func (m *mockReactionRepo) ListBookmarkedStoryIDs(ctx context.Context, userID string) ([]string, error) {
	return []string{}, nil
}

type mockUserRepo struct {
	findByIDFn func(ctx context.Context, id string) (*model.User, error)
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}
func (m *mockUserRepo) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	return nil, nil
}
func (m *mockUserRepo) Create(ctx context.Context, user *model.User) error {
	return nil
}
