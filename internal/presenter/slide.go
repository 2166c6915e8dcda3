// Package presenter はストーリーのスライド表示状態とダウンロード操作を管理する。
package presenter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/hitoshi/storyslide/internal/download"
	"github.com/hitoshi/storyslide/internal/media"
	"github.com/hitoshi/storyslide/internal/model"
)

var (
	// ErrAlreadyDownloaded はダウンロード済みのスライドを再度ダウンロードしようとした場合に返る。
	ErrAlreadyDownloaded = errors.New("presenter: slide already downloaded")
	// ErrIndexOutOfRange はスライド範囲外のインデックスが指定された場合に返る。
	ErrIndexOutOfRange = errors.New("presenter: slide index out of range")
	// ErrNoMedia は表示できないメディア種別のスライドをダウンロードしようとした場合に返る。
	ErrNoMedia = errors.New("presenter: slide has no downloadable media")
)

// ViewKind はスライドの表示方法。
type ViewKind string

const (
	ViewImage   ViewKind = "image"
	ViewVideo   ViewKind = "video"
	ViewYouTube ViewKind = "youtube"
	ViewNone    ViewKind = "none"
)

// ダウンロードボタンのアイコン
const (
	IconDownload   = "download"
	IconDownloaded = "tick"
)

// ViewContext は表示先のレイアウト情報。
type ViewContext struct {
	SmallScreen bool
}

// mediaHeight は画像・動画の表示高さを返す。
func (v ViewContext) mediaHeight() string {
	if v.SmallScreen {
		return "100vh"
	}
	return "90vh"
}

// embedHeight はYouTube埋め込みの表示高さを返す。
func (v ViewContext) embedHeight() string {
	if v.SmallScreen {
		return "100vh"
	}
	return "650vh"
}

// SlideView はスライド1枚分の描画内容。
type SlideView struct {
	Index       int      `json:"index"`
	Active      bool     `json:"active"`
	Kind        ViewKind `json:"kind"`
	Src         string   `json:"src"`
	EmbedURL    string   `json:"embedUrl,omitempty"`
	Height      string   `json:"height,omitempty"`
	Heading     string   `json:"heading"`
	Description string   `json:"description"`
	Icon        string   `json:"icon,omitempty"`
	FileName    string   `json:"fileName,omitempty"`
}

// File はダウンロードしたスライドのメディア。
type File struct {
	Name  string
	Media *download.Media
}

// Presenter はスライドの表示状態を保持する。
// ダウンロード済みの印はPresenterを破棄するまで保持される。
type Presenter struct {
	mu         sync.Mutex
	slides     []model.Slide
	active     int
	downloaded map[int]struct{}
	fetcher    download.Fetcher
	view       ViewContext
	logger     *slog.Logger
}

// New はPresenterを生成する。アクティブなスライドは先頭になる。
func New(slides []model.Slide, fetcher download.Fetcher, view ViewContext, logger *slog.Logger) *Presenter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Presenter{
		slides:     slides,
		downloaded: make(map[int]struct{}),
		fetcher:    fetcher,
		view:       view,
		logger:     logger,
	}
}

// Len はスライド数を返す。
func (p *Presenter) Len() int {
	return len(p.slides)
}

// Active はアクティブなスライドのインデックスを返す。
func (p *Presenter) Active() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active
}

// SetActive はアクティブなスライドを切り替える。
func (p *Presenter) SetActive(index int) error {
	if index < 0 || index >= len(p.slides) {
		return fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
	}
	p.mu.Lock()
	p.active = index
	p.mu.Unlock()
	return nil
}

// Downloaded は指定スライドがダウンロード済みかを返す。
func (p *Presenter) Downloaded(index int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.downloaded[index]
	return ok
}

// Render はアクティブなスライドの描画内容を返す。
func (p *Presenter) Render() (SlideView, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.slides) == 0 {
		return SlideView{}, ErrIndexOutOfRange
	}
	return p.render(p.active), nil
}

// RenderAll は全スライドの描画内容を返す。
func (p *Presenter) RenderAll() []SlideView {
	p.mu.Lock()
	defer p.mu.Unlock()
	views := make([]SlideView, len(p.slides))
	for i := range p.slides {
		views[i] = p.render(i)
	}
	return views
}

// render はロック取得済みの状態で呼ぶこと。
func (p *Presenter) render(index int) SlideView {
	slide := p.slides[index]
	v := SlideView{
		Index:       index,
		Active:      index == p.active,
		Kind:        ViewNone,
		Src:         slide.ImageURL,
		Heading:     slide.Heading,
		Description: slide.Description,
	}

	switch slide.MediaType {
	case model.MediaTypeImage:
		v.Kind = ViewImage
		v.Height = p.view.mediaHeight()
	case model.MediaTypeVideo:
		if media.IsYouTube(slide.ImageURL) {
			v.Kind = ViewYouTube
			v.EmbedURL = media.YouTubeEmbedURL(slide.ImageURL)
			v.Height = p.view.embedHeight()
		} else {
			v.Kind = ViewVideo
			v.Height = p.view.mediaHeight()
		}
	default:
		return v
	}

	v.Icon = IconDownload
	if _, ok := p.downloaded[index]; ok {
		v.Icon = IconDownloaded
	}
	v.FileName = media.DownloadFileName(slide.Heading, index, slide.MediaType)
	return v
}

// Download はアクティブなスライドのメディアを取得する。
// 成功したスライドはダウンロード済みとして記録し、以降は取得しない。
// 失敗時はログを出力して状態を変えないため、再試行できる。
func (p *Presenter) Download(ctx context.Context) (*File, error) {
	p.mu.Lock()
	if len(p.slides) == 0 {
		p.mu.Unlock()
		return nil, ErrIndexOutOfRange
	}
	index := p.active
	slide := p.slides[index]
	_, done := p.downloaded[index]
	p.mu.Unlock()

	if done {
		return nil, ErrAlreadyDownloaded
	}
	if slide.MediaType != model.MediaTypeImage && slide.MediaType != model.MediaTypeVideo {
		return nil, ErrNoMedia
	}

	m, err := p.fetcher.Fetch(ctx, slide.ImageURL)
	if err != nil {
		p.logger.Error("スライドのダウンロードに失敗しました",
			slog.Int("index", index),
			slog.String("media_type", string(slide.MediaType)),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("failed to download slide %d: %w", index, err)
	}

	p.mu.Lock()
	p.downloaded[index] = struct{}{}
	p.mu.Unlock()

	return &File{
		Name:  media.DownloadFileName(slide.Heading, index, slide.MediaType),
		Media: m,
	}, nil
}
