package story

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/mmcdole/gofeed"
	"golang.org/x/net/html"

	"github.com/hitoshi/storyslide/internal/media"
	"github.com/hitoshi/storyslide/internal/metrics"
	"github.com/hitoshi/storyslide/internal/model"
	"github.com/hitoshi/storyslide/internal/security"
)

// 設定が0以下の場合に使う上限値
const (
	defaultImportMaxBodySize = 5 * 1024 * 1024
	defaultImportMaxSlides   = 10
)

// ImportConfig はフィードインポートの上限設定。
type ImportConfig struct {
	MaxBodySize int64
	MaxSlides   int
}

// URLValidator はリクエスト前のURL検証インターフェース。
type URLValidator interface {
	ValidateURL(rawURL string) error
}

// Importer はRSS/Atom/JSONフィードの記事からストーリーを生成する。
// 各記事から最大1枚のスライドを作り、判定できないメディアの記事はスキップする。
type Importer struct {
	service   *Service
	validator URLValidator
	client    *http.Client
	sanitizer security.TextSanitizerService
	metrics   metrics.MetricsCollector
	cfg       ImportConfig
	logger    *slog.Logger
}

// NewImporter はImporterを生成する。clientにはSSRF防止付きのクライアントを渡すこと。
func NewImporter(
	service *Service,
	validator URLValidator,
	client *http.Client,
	sanitizer security.TextSanitizerService,
	mc metrics.MetricsCollector,
	cfg ImportConfig,
	logger *slog.Logger,
) *Importer {
	if mc == nil {
		mc = metrics.NopCollector{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxBodySize <= 0 {
		cfg.MaxBodySize = defaultImportMaxBodySize
	}
	if cfg.MaxSlides <= 0 {
		cfg.MaxSlides = defaultImportMaxSlides
	}
	return &Importer{
		service:   service,
		validator: validator,
		client:    client,
		sanitizer: sanitizer,
		metrics:   mc,
		cfg:       cfg,
		logger:    logger,
	}
}

// Import はフィードを取得してストーリーを作成する。
func (i *Importer) Import(ctx context.Context, feedURL, category, addedBy string) (*model.Story, error) {
	category = strings.ToLower(strings.TrimSpace(category))
	if feedURL == "" || category == "" || addedBy == "" {
		return nil, model.NewMissingFieldsError("feedUrl", "category")
	}
	if !isKnownCategory(category) {
		return nil, model.NewInvalidRequestError(fmt.Sprintf("unknown category: %s", category))
	}

	if apiErr := i.validate(feedURL); apiErr != nil {
		return nil, apiErr
	}

	body, contentType, err := i.fetch(ctx, feedURL)
	if err != nil {
		i.logger.Warn("フィードの取得に失敗しました",
			slog.String("feed_url", feedURL),
			slog.String("error", err.Error()),
		)
		return nil, model.NewFetchFailedError(err.Error())
	}

	// サイトのURLが指定された場合は、HTMLで宣言されたフィードを1回だけ辿る
	if isHTMLContent(contentType) {
		discovered := selectFeedLink(feedLinksFromHTML(body, feedURL), feedURL)
		if discovered == "" {
			return nil, model.NewParseFailedError()
		}
		if apiErr := i.validate(discovered); apiErr != nil {
			return nil, apiErr
		}
		i.logger.Info("HTMLからフィードを検出しました",
			slog.String("page_url", feedURL),
			slog.String("feed_url", discovered),
		)
		feedURL = discovered
		body, _, err = i.fetch(ctx, feedURL)
		if err != nil {
			return nil, model.NewFetchFailedError(err.Error())
		}
	}

	parsed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil {
		i.logger.Warn("フィードのパースに失敗しました",
			slog.String("feed_url", feedURL),
			slog.String("error", err.Error()),
		)
		return nil, model.NewParseFailedError()
	}

	slides := i.slidesFromFeed(parsed, feedURL, category)
	if len(slides) == 0 {
		return nil, model.NewNoMediaInFeedError(feedURL)
	}

	story, err := i.service.create(ctx, slides, addedBy, metrics.SourceImport)
	if err != nil {
		return nil, err
	}

	i.metrics.RecordSlidesImported(len(slides))
	i.logger.Info("フィードからストーリーを作成しました",
		slog.String("feed_url", feedURL),
		slog.String("story_id", story.ID),
		slog.Int("slides", len(slides)),
	)
	return story, nil
}

// validate はURLを取得前に検証し、APIErrorに変換する。
func (i *Importer) validate(rawURL string) *model.APIError {
	if err := i.validator.ValidateURL(rawURL); err != nil {
		if errors.Is(err, security.ErrBlockedURL) {
			return model.NewSSRFBlockedError()
		}
		return model.NewInvalidURLError(err.Error())
	}
	return nil
}

// fetch はフィード本体を上限サイズまで読み込み、Content-Typeとともに返す。
func (i *Importer) fetch(ctx context.Context, feedURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, "", err
	}
	req.Header.Set("User-Agent", "StorySlide/1.0 feed importer")
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/feed+json, application/xml;q=0.9, text/html;q=0.8, */*;q=0.7")

	resp, err := i.client.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	i.metrics.RecordUpstreamStatus(resp.StatusCode)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, i.cfg.MaxBodySize+1))
	if err != nil {
		return nil, "", err
	}
	if int64(len(body)) > i.cfg.MaxBodySize {
		return nil, "", fmt.Errorf("feed exceeds %d bytes", i.cfg.MaxBodySize)
	}
	return body, resp.Header.Get("Content-Type"), nil
}

// slidesFromFeed はフィードの記事をスライドに変換する。最大MaxSlides枚。
func (i *Importer) slidesFromFeed(feed *gofeed.Feed, feedURL, category string) []SlideInput {
	base, _ := url.Parse(feedURL)
	if feed.Link != "" {
		if u, err := url.Parse(feed.Link); err == nil && u.IsAbs() {
			base = u
		}
	}

	var slides []SlideInput
	for _, item := range feed.Items {
		if len(slides) >= i.cfg.MaxSlides {
			break
		}
		mediaURL := pickMediaURL(item, base)
		if mediaURL == "" {
			continue
		}
		slides = append(slides, SlideInput{
			ImageURL:    mediaURL,
			Heading:     i.sanitizer.PlainText(item.Title),
			Description: i.sanitizer.PlainText(item.Description),
			Category:    category,
		})
	}
	return slides
}

// pickMediaURL は記事からスライドにするメディアURLを選ぶ。
// 優先順位: エンクロージャ > 記事画像 > 本文・説明文中の最初のimg要素。
// 画像・動画と判定できないURLは候補から除外する。
func pickMediaURL(item *gofeed.Item, base *url.URL) string {
	var candidates []string
	for _, enc := range item.Enclosures {
		if enc != nil {
			candidates = append(candidates, enc.URL)
		}
	}
	if item.Image != nil {
		candidates = append(candidates, item.Image.URL)
	}
	candidates = append(candidates, firstImageSrc(item.Content), firstImageSrc(item.Description))

	for _, c := range candidates {
		resolved := resolveURL(base, strings.TrimSpace(c))
		if resolved == "" {
			continue
		}
		if media.Classify(resolved) != model.MediaTypeUnknown {
			return resolved
		}
	}
	return ""
}

// firstImageSrc はHTML断片から最初のimg要素のsrc属性を取り出す。
func firstImageSrc(fragment string) string {
	if !strings.Contains(fragment, "<") {
		return ""
	}
	tokenizer := html.NewTokenizer(strings.NewReader(fragment))
	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			return ""
		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := tokenizer.TagName()
			if string(name) != "img" || !hasAttr {
				continue
			}
			for {
				key, val, more := tokenizer.TagAttr()
				if string(key) == "src" && len(val) > 0 {
					return string(val)
				}
				if !more {
					break
				}
			}
		}
	}
}

// resolveURL は相対URLをベースURLを基準に絶対URLに解決する。
// 解決後がhttp/https以外の場合は空文字列を返す。
func resolveURL(base *url.URL, raw string) string {
	if raw == "" {
		return ""
	}
	ref, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	if base != nil {
		ref = base.ResolveReference(ref)
	}
	if ref.Scheme != "http" && ref.Scheme != "https" {
		return ""
	}
	return ref.String()
}

func isKnownCategory(category string) bool {
	for _, c := range model.Categories {
		if c == category {
			return true
		}
	}
	return false
}
