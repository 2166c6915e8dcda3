package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"github.com/hitoshi/storyslide/internal/model"
)

// storyColumns はストーリー取得時のカラム一覧。
// いいねはstory_likesからいいね順のID配列として集約する。
var storyColumns = []string{
	"s.id",
	"s.added_by",
	"s.slides",
	"s.created_at",
	"s.updated_at",
	"COALESCE((SELECT array_agg(l.user_id::text ORDER BY l.created_at) FROM story_likes l WHERE l.story_id = s.id), '{}') AS likes",
}

// PostgresStoryRepo はPostgreSQLを使用したストーリーリポジトリ。
type PostgresStoryRepo struct {
	db *sql.DB
}

// NewPostgresStoryRepo はPostgresStoryRepoを生成する。
func NewPostgresStoryRepo(db *sql.DB) *PostgresStoryRepo {
	return &PostgresStoryRepo{db: db}
}

// Create はストーリーを作成する。
func (r *PostgresStoryRepo) Create(ctx context.Context, story *model.Story) error {
	slides, err := json.Marshal(story.Slides)
	if err != nil {
		return fmt.Errorf("failed to encode slides: %w", err)
	}

	query, args, err := sqBuilder.
		Insert("stories").
		Columns("id", "added_by", "slides", "created_at", "updated_at").
		Values(story.ID, story.AddedBy, string(slides), story.CreatedAt, story.UpdatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build insert story query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to insert story: %w", err)
	}
	return nil
}

// FindByID は指定IDのストーリーを取得する。見つからない場合はnilを返す。
func (r *PostgresStoryRepo) FindByID(ctx context.Context, id string) (*model.Story, error) {
	query, args, err := sqBuilder.
		Select(storyColumns...).
		From("stories s").
		Where(squirrel.Eq{"s.id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build find story query: %w", err)
	}

	story, err := scanStory(r.db.QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find story: %w", err)
	}
	return story, nil
}

// UpdateSlides はスライドと投稿者を丸ごと置き換える。
func (r *PostgresStoryRepo) UpdateSlides(ctx context.Context, story *model.Story) error {
	slides, err := json.Marshal(story.Slides)
	if err != nil {
		return fmt.Errorf("failed to encode slides: %w", err)
	}

	query, args, err := sqBuilder.
		Update("stories").
		Set("slides", string(slides)).
		Set("added_by", story.AddedBy).
		Set("updated_at", story.UpdatedAt).
		Where(squirrel.Eq{"id": story.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update story query: %w", err)
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update story: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// List は条件に一致するストーリーをcreated_at降順で取得する。
func (r *PostgresStoryRepo) List(ctx context.Context, filter model.StoryFilter) ([]*model.Story, error) {
	query, args, err := buildListQuery(filter)
	if err != nil {
		return nil, err
	}
	return r.queryStories(ctx, query, args...)
}

// buildListQuery はフィルタ条件からSELECT文を組み立てる。
// カテゴリ条件は slides 配列のいずれかの要素が一致するかをJSONB包含演算子で判定する。
func buildListQuery(filter model.StoryFilter) (string, []interface{}, error) {
	q := sqBuilder.
		Select(storyColumns...).
		From("stories s").
		OrderBy("s.created_at DESC", "s.id DESC")

	if filter.AddedBy != "" {
		q = q.Where(squirrel.Eq{"s.added_by": filter.AddedBy})
	}
	if filter.Category != "" {
		probe, err := json.Marshal([]map[string]string{{"category": filter.Category}})
		if err != nil {
			return "", nil, fmt.Errorf("failed to encode category filter: %w", err)
		}
		q = q.Where(squirrel.Expr("s.slides @> ?::jsonb", string(probe)))
	}
	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}

	query, args, err := q.ToSql()
	if err != nil {
		return "", nil, fmt.Errorf("failed to build list stories query: %w", err)
	}
	return query, args, nil
}

// ListBookmarkedBy はユーザーがブックマークしたストーリーをブックマーク日時の降順で取得する。
func (r *PostgresStoryRepo) ListBookmarkedBy(ctx context.Context, userID string) ([]*model.Story, error) {
	query, args, err := sqBuilder.
		Select(storyColumns...).
		From("stories s").
		Join("bookmarks b ON b.story_id = s.id").
		Where(squirrel.Eq{"b.user_id": userID}).
		OrderBy("b.created_at DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build bookmarked stories query: %w", err)
	}
	return r.queryStories(ctx, query, args...)
}

func (r *PostgresStoryRepo) queryStories(ctx context.Context, query string, args ...interface{}) ([]*model.Story, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list stories: %w", err)
	}
	defer rows.Close()

	stories := make([]*model.Story, 0)
	for rows.Next() {
		story, err := scanStory(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan story: %w", err)
		}
		stories = append(stories, story)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate stories: %w", err)
	}
	return stories, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanStory(row rowScanner) (*model.Story, error) {
	story := &model.Story{}
	var slides []byte
	var likes []string
	if err := row.Scan(&story.ID, &story.AddedBy, &slides, &story.CreatedAt, &story.UpdatedAt, pq.Array(&likes)); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(slides, &story.Slides); err != nil {
		return nil, fmt.Errorf("failed to decode slides: %w", err)
	}
	story.Likes = likes
	if story.Likes == nil {
		story.Likes = []string{}
	}
	return story, nil
}

// compile-time interface check
var _ StoryRepository = (*PostgresStoryRepo)(nil)
