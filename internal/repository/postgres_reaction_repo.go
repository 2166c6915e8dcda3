package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
)

// PostgresReactionRepo はPostgreSQLを使用したいいね・ブックマークリポジトリ。
type PostgresReactionRepo struct {
	db *sql.DB
}

// NewPostgresReactionRepo はPostgresReactionRepoを生成する。
func NewPostgresReactionRepo(db *sql.DB) *PostgresReactionRepo {
	return &PostgresReactionRepo{db: db}
}

// ToggleLike はいいねを反転し、反転後の状態と総いいね数を返す。
// 対象ストーリー行をFOR UPDATEでロックし、同一ストーリーへの同時トグルを直列化する。
func (r *PostgresReactionRepo) ToggleLike(ctx context.Context, storyID, userID string) (bool, int, error) {
	var liked bool
	var total int
	err := r.inTx(ctx, storyID, func(tx *sql.Tx) error {
		var err error
		liked, err = toggleRow(ctx, tx,
			`DELETE FROM story_likes WHERE story_id = $1 AND user_id = $2`,
			`INSERT INTO story_likes (story_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			storyID, userID,
		)
		if err != nil {
			return fmt.Errorf("failed to toggle like: %w", err)
		}
		if err := tx.QueryRowContext(ctx,
			`SELECT count(*) FROM story_likes WHERE story_id = $1`, storyID,
		).Scan(&total); err != nil {
			return fmt.Errorf("failed to count likes: %w", err)
		}
		return nil
	})
	return liked, total, err
}

// ToggleBookmark はブックマークを反転し、反転後の状態を返す。
func (r *PostgresReactionRepo) ToggleBookmark(ctx context.Context, storyID, userID string) (bool, error) {
	var bookmarked bool
	err := r.inTx(ctx, storyID, func(tx *sql.Tx) error {
		var err error
		bookmarked, err = toggleRow(ctx, tx,
			`DELETE FROM bookmarks WHERE story_id = $1 AND user_id = $2`,
			`INSERT INTO bookmarks (story_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			storyID, userID,
		)
		if err != nil {
			return fmt.Errorf("failed to toggle bookmark: %w", err)
		}
		return nil
	})
	return bookmarked, err
}

// inTx はストーリー行をロックしたトランザクション内でfnを実行する。
// ストーリーが存在しない場合はErrNotFoundを返す。
func (r *PostgresReactionRepo) inTx(ctx context.Context, storyID string, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var locked string
	err = tx.QueryRowContext(ctx, `SELECT id FROM stories WHERE id = $1 FOR UPDATE`, storyID).Scan(&locked)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to lock story: %w", err)
	}

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// toggleRow は行が存在すれば削除してfalseを、存在しなければ挿入してtrueを返す。
func toggleRow(ctx context.Context, tx *sql.Tx, deleteSQL, insertSQL, storyID, userID string) (bool, error) {
	result, err := tx.ExecContext(ctx, deleteSQL, storyID, userID)
	if err != nil {
		return false, err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	if n > 0 {
		return false, nil
	}
	if _, err := tx.ExecContext(ctx, insertSQL, storyID, userID); err != nil {
		return false, err
	}
	return true, nil
}

// ViewerState は閲覧ユーザーがストーリーにいいね・ブックマークしているかを返す。
func (r *PostgresReactionRepo) ViewerState(ctx context.Context, storyID, userID string) (bool, bool, error) {
	var liked, bookmarked bool
	err := r.db.QueryRowContext(ctx,
		`SELECT
			EXISTS (SELECT 1 FROM story_likes WHERE story_id = $1 AND user_id = $2),
			EXISTS (SELECT 1 FROM bookmarks WHERE story_id = $1 AND user_id = $2)`,
		storyID, userID,
	).Scan(&liked, &bookmarked)
	if err != nil {
		return false, false, fmt.Errorf("failed to get viewer state: %w", err)
	}
	return liked, bookmarked, nil
}

// ListLikedStoryIDs はユーザーがいいねしたストーリーIDをいいね順に返す。
func (r *PostgresReactionRepo) ListLikedStoryIDs(ctx context.Context, userID string) ([]string, error) {
	return r.listIDs(ctx,
		`SELECT COALESCE(array_agg(story_id::text ORDER BY created_at), '{}') FROM story_likes WHERE user_id = $1`,
		userID,
	)
}

// ListBookmarkedStoryIDs はユーザーがブックマークしたストーリーIDをブックマーク順に返す。
func (r *PostgresReactionRepo) ListBookmarkedStoryIDs(ctx context.Context, userID string) ([]string, error) {
	return r.listIDs(ctx,
		`SELECT COALESCE(array_agg(story_id::text ORDER BY created_at), '{}') FROM bookmarks WHERE user_id = $1`,
		userID,
	)
}

func (r *PostgresReactionRepo) listIDs(ctx context.Context, query, userID string) ([]string, error) {
	var ids []string
	if err := r.db.QueryRowContext(ctx, query, userID).Scan(pq.Array(&ids)); err != nil {
		return nil, fmt.Errorf("failed to list story ids: %w", err)
	}
	if ids == nil {
		ids = []string{}
	}
	return ids, nil
}

// compile-time interface check
var _ ReactionRepository = (*PostgresReactionRepo)(nil)
