package story

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/hitoshi/storyslide/internal/model"
)

// ListQuery はフィード取得の条件。
type ListQuery struct {
	UserID   string
	Category string
	Cat      string // CatLimitを適用するカテゴリ（category=all のときのみ有効）
	CatLimit int
	Page     int
}

// ListResult はフィード取得の結果。
// ModeがStoryListAllCategoriesの場合はGrouped、それ以外はStoriesに結果が入る。
type ListResult struct {
	Mode    model.StoryListMode
	Stories []*model.Story
	Grouped map[string][]*model.Story
	Page    int
}

// ParseListQuery はクエリパラメータからListQueryを組み立てる。
// pageが未指定・不正・1未満の場合は1、catLimitが未指定・不正・1未満の場合は4として扱う。
// categoryとcatは保存時と同じく小文字に正規化する。
func ParseListQuery(values url.Values) ListQuery {
	return ListQuery{
		UserID:   values.Get("userId"),
		Category: normalizeCategory(values.Get("category")),
		Cat:      normalizeCategory(values.Get("cat")),
		CatLimit: positiveOr(values.Get("catLimit"), pageSize),
		Page:     positiveOr(values.Get("page"), 1),
	}
}

func normalizeCategory(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

func positiveOr(raw string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 1 {
		return fallback
	}
	return n
}

// List はクエリに応じて3つのモードのいずれかでストーリーを取得する。
//   - userIdあり: そのユーザーのストーリー
//   - category=all（大文字小文字を区別しない）: 固定カテゴリごとのグルーピング
//   - それ以外: 単一カテゴリ（categoryが空なら全件）
func (s *Service) List(ctx context.Context, q ListQuery) (*ListResult, error) {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.CatLimit < 1 {
		q.CatLimit = pageSize
	}
	q.Category = normalizeCategory(q.Category)
	q.Cat = normalizeCategory(q.Cat)
	limit := pageSize * q.Page

	switch {
	case q.UserID != "":
		stories, err := s.listByUser(ctx, q.UserID, limit)
		if err != nil {
			return nil, err
		}
		return &ListResult{Mode: model.StoryListByUser, Stories: stories, Page: q.Page}, nil

	case q.Category == "all":
		grouped := make(map[string][]*model.Story, len(model.Categories))
		for _, c := range model.Categories {
			catLimit := pageSize
			if q.Cat == c {
				catLimit = q.CatLimit
			}
			stories, err := s.storyRepo.List(ctx, model.StoryFilter{Category: c, Limit: catLimit})
			if err != nil {
				return nil, fmt.Errorf("カテゴリ %q のストーリー取得に失敗しました: %w", c, err)
			}
			grouped[c] = stories
		}
		return &ListResult{Mode: model.StoryListAllCategories, Grouped: grouped, Page: q.Page}, nil

	default:
		stories, err := s.storyRepo.List(ctx, model.StoryFilter{Category: q.Category, Limit: limit})
		if err != nil {
			return nil, fmt.Errorf("ストーリー一覧の取得に失敗しました: %w", err)
		}
		return &ListResult{Mode: model.StoryListByCategory, Stories: stories, Page: q.Page}, nil
	}
}

// listByUser はユーザーのストーリーを新しい順に取得する。
// UUID形式でないユーザーIDは該当なしとして空リストを返す。
func (s *Service) listByUser(ctx context.Context, userID string, limit int) ([]*model.Story, error) {
	if !isUUID(userID) {
		return []*model.Story{}, nil
	}
	stories, err := s.storyRepo.List(ctx, model.StoryFilter{AddedBy: userID, Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("ユーザーのストーリー取得に失敗しました: %w", err)
	}
	return stories, nil
}
