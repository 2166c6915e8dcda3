// Package repository はデータ永続化のインターフェースとPostgreSQL実装を提供する。
package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/hitoshi/storyslide/internal/model"
)

// ErrNotFound は更新・トグル対象のレコードが存在しない場合に返る。
// 取得系メソッドは従来どおり nil, nil を返す。
var ErrNotFound = errors.New("repository: record not found")

// ErrDuplicate は一意制約に違反した場合に返る。
var ErrDuplicate = errors.New("repository: duplicate record")

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByUsername はユーザー名でユーザーを取得する。見つからない場合はnilを返す。
	FindByUsername(ctx context.Context, username string) (*model.User, error)

	// Create はユーザーを作成する。ユーザー名が重複する場合はErrDuplicateを返す。
	Create(ctx context.Context, user *model.User) error
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
}

// StoryRepository はストーリーデータの永続化インターフェース。
type StoryRepository interface {
	// Create はストーリーを作成する。
	Create(ctx context.Context, story *model.Story) error

	// FindByID は指定IDのストーリーをいいねユーザーID付きで取得する。
	// 見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Story, error)

	// UpdateSlides はスライドと投稿者を丸ごと置き換える。
	// 対象が存在しない場合はErrNotFoundを返す。
	UpdateSlides(ctx context.Context, story *model.Story) error

	// List は条件に一致するストーリーをcreated_at降順で取得する。
	List(ctx context.Context, filter model.StoryFilter) ([]*model.Story, error)

	// ListBookmarkedBy はユーザーがブックマークしたストーリーをブックマーク日時の降順で取得する。
	ListBookmarkedBy(ctx context.Context, userID string) ([]*model.Story, error)
}

// ReactionRepository はいいね・ブックマークの永続化インターフェース。
// いいねはstory_likesテーブルのみで管理し、ストーリー側・ユーザー側の双方から参照する。
type ReactionRepository interface {
	// ToggleLike はいいねを同一トランザクション内で反転し、反転後の状態と総いいね数を返す。
	// ストーリーが存在しない場合はErrNotFoundを返す。
	ToggleLike(ctx context.Context, storyID, userID string) (liked bool, totalLikes int, err error)

	// ToggleBookmark はブックマークを同一トランザクション内で反転し、反転後の状態を返す。
	// ストーリーが存在しない場合はErrNotFoundを返す。
	ToggleBookmark(ctx context.Context, storyID, userID string) (bookmarked bool, err error)

	// ViewerState は閲覧ユーザーがストーリーにいいね・ブックマークしているかを返す。
	ViewerState(ctx context.Context, storyID, userID string) (liked, bookmarked bool, err error)

	// ListLikedStoryIDs はユーザーがいいねしたストーリーIDを返す。
	ListLikedStoryIDs(ctx context.Context, userID string) ([]string, error)

	// ListBookmarkedStoryIDs はユーザーがブックマークしたストーリーIDを返す。
	ListBookmarkedStoryIDs(ctx context.Context, userID string) ([]string, error)
}

// TxBeginner はトランザクション開始用のインターフェース。
type TxBeginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}
