// Package download はスライドのメディアをリモートから取得するプロキシを提供する。
package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hitoshi/storyslide/internal/metrics"
	"github.com/hitoshi/storyslide/internal/security"
)

// defaultContentType は取得元がContent-Typeを返さなかった場合の値。
const defaultContentType = "application/octet-stream"

var (
	// ErrInvalidURL はURLが不正、またはhttp/https以外の場合に返る。
	ErrInvalidURL = errors.New("download: invalid url")
	// ErrBlocked は内部ネットワーク宛てのURLの場合に返る。
	ErrBlocked = errors.New("download: blocked url")
	// ErrUpstream は取得元への接続失敗や2xx以外の応答の場合に返る。
	ErrUpstream = errors.New("download: upstream failure")
	// ErrTooLarge は取得元の応答が上限サイズを超えた場合に返る。
	ErrTooLarge = errors.New("download: response too large")
)

// Media は取得したメディアの内容。
type Media struct {
	Body        []byte
	ContentType string
}

// Fetcher はURLからメディアを取得するインターフェース。
// HTTPハンドラーとスライドプレゼンターの両方から使われる。
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (*Media, error)
}

// URLValidator はリクエスト前のURL検証インターフェース。
type URLValidator interface {
	ValidateURL(rawURL string) error
}

// Proxy はSSRF対策済みクライアントでメディアを取得するFetcherの実装。
type Proxy struct {
	validator URLValidator
	client    *http.Client
	maxSize   int64
	metrics   metrics.MetricsCollector
}

// NewProxy はProxyを生成する。clientにはSSRF防止付きのクライアントを渡すこと。
func NewProxy(validator URLValidator, client *http.Client, maxSize int64, mc metrics.MetricsCollector) *Proxy {
	if mc == nil {
		mc = metrics.NopCollector{}
	}
	return &Proxy{
		validator: validator,
		client:    client,
		maxSize:   maxSize,
		metrics:   mc,
	}
}

// Fetch はURLのメディアを上限サイズまで読み込んで返す。
func (p *Proxy) Fetch(ctx context.Context, rawURL string) (*Media, error) {
	start := time.Now()
	media, reason, err := p.fetch(ctx, rawURL)
	p.metrics.RecordDownloadLatency(time.Since(start))

	if err != nil {
		p.metrics.RecordDownloadFailure(reason)
		slog.Warn("メディアの取得に失敗しました",
			slog.String("url", rawURL),
			slog.String("reason", reason),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	p.metrics.RecordDownloadSuccess(int64(len(media.Body)))
	return media, nil
}

// fetch は取得処理の本体。失敗時はメトリクス用の理由ラベルも返す。
func (p *Proxy) fetch(ctx context.Context, rawURL string) (*Media, string, error) {
	if err := p.validator.ValidateURL(rawURL); err != nil {
		if errors.Is(err, security.ErrBlockedURL) {
			return nil, "blocked", fmt.Errorf("%w: %v", ErrBlocked, err)
		}
		return nil, "invalid_url", fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "invalid_url", fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	req.Header.Set("User-Agent", "StorySlide/1.0 media proxy")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, "upstream", fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	p.metrics.RecordUpstreamStatus(resp.StatusCode)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, "upstream_status", fmt.Errorf("%w: status %d", ErrUpstream, resp.StatusCode)
	}
	if p.maxSize > 0 && resp.ContentLength > p.maxSize {
		return nil, "too_large", fmt.Errorf("%w: content-length %d", ErrTooLarge, resp.ContentLength)
	}

	var reader io.Reader = resp.Body
	if p.maxSize > 0 {
		reader = io.LimitReader(resp.Body, p.maxSize+1)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, "upstream", fmt.Errorf("%w: read body: %v", ErrUpstream, err)
	}
	if p.maxSize > 0 && int64(len(body)) > p.maxSize {
		return nil, "too_large", fmt.Errorf("%w: more than %d bytes", ErrTooLarge, p.maxSize)
	}

	return &Media{Body: body, ContentType: contentTypeOf(resp.Header.Get("Content-Type"))}, "", nil
}

// contentTypeOf はContent-Typeヘッダーをそのまま返し、空の場合は既定値を返す。
func contentTypeOf(header string) string {
	if strings.TrimSpace(header) == "" {
		return defaultContentType
	}
	return header
}

// compile-time interface check
var _ Fetcher = (*Proxy)(nil)
