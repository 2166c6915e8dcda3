// Package model はドメインモデルを定義する。
package model

import "time"

// MediaType はスライドのメディア種別を表す。
type MediaType string

const (
	// MediaTypeImage は画像スライド。
	MediaTypeImage MediaType = "image"
	// MediaTypeVideo は動画スライド（自前ホスティングまたはYouTube）。
	MediaTypeVideo MediaType = "video"
	// MediaTypeUnknown は判定できなかったメディア。永続化されることはない。
	MediaTypeUnknown MediaType = "unknown"
)

// Categories はフィードで使用する固定カテゴリ一覧。
// category=all のグルーピング順序もこの順になる。
var Categories = []string{
	"food",
	"health and fitness",
	"travel",
	"movie",
	"education",
}

// Slide はストーリーを構成する1枚のスライドを表す。
// 独立したIDを持たず、親Storyのslides配列内の位置で識別される。
type Slide struct {
	ImageURL    string    `json:"imageUrl"`
	MediaType   MediaType `json:"mediaType"`
	Heading     string    `json:"heading"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
}

// Story はユーザーが投稿した複数スライドのストーリーを表す。
type Story struct {
	ID        string
	Slides    []Slide
	AddedBy   string
	Likes     []string // いいねしたユーザーID（いいね順）
	CreatedAt time.Time
	UpdatedAt time.Time
}

// StoryView は閲覧ユーザー視点のストーリー詳細。
// Viewerが指定されない場合、LikedとBookmarkedはnilのまま。
type StoryView struct {
	Story      *Story
	TotalLikes int
	Liked      *bool
	Bookmarked *bool
}

// StoryListMode はストーリー一覧の取得モードを表す。
type StoryListMode string

const (
	// StoryListByUser は投稿ユーザーで絞り込むモード。
	StoryListByUser StoryListMode = "user"
	// StoryListAllCategories は固定カテゴリごとにグルーピングするモード。
	StoryListAllCategories StoryListMode = "all"
	// StoryListByCategory は単一カテゴリで絞り込むモード。
	StoryListByCategory StoryListMode = "category"
)

// StoryFilter はリポジトリ層での一覧クエリ条件。
// 空文字列のフィールドは条件に含めない。
type StoryFilter struct {
	AddedBy  string
	Category string
	Limit    int
}
