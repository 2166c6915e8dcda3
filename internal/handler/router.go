package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/storyslide/internal/database"
	"github.com/hitoshi/storyslide/internal/download"
	"github.com/hitoshi/storyslide/internal/metrics"
	"github.com/hitoshi/storyslide/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	SessionFinder     middleware.SessionFinder
	CORSAllowedOrigin string
	CSRFConfig        middleware.CSRFConfig
	Logger            *slog.Logger

	// サービスエンドポイント
	HealthChecker   database.Pinger
	MetricsGatherer prometheus.Gatherer

	// 認証・ユーザー
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig
	UserService UserServiceInterface

	// ストーリー
	StoryService     StoryServiceInterface
	StoryImporter    StoryImporterInterface
	SlideViewService SlideViewServiceInterface

	// メディア中継
	MediaFetcher download.Fetcher
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → Logging → SecurityHeaders → CORS → (Session | OptionalSession) → CSRF
//
// CSRF検証はセッション必須のルートでのみ行う。
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware(logger))
	r.Use(middleware.NewLoggingMiddleware(logger))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	storyHandler := NewStoryHandler(deps.StoryService, deps.StoryImporter)
	slideHandler := NewSlideHandler(deps.SlideViewService)
	userHandler := NewUserHandler(deps.AuthService, deps.UserService, deps.AuthConfig)
	downloadHandler := NewDownloadHandler(deps.MediaFetcher)

	// --- サービスエンドポイント ---
	r.Get("/", Root)
	r.Get("/health", NewHealthHandler(deps.HealthChecker))
	if deps.MetricsGatherer != nil {
		r.Handle("/metrics", metrics.Handler(deps.MetricsGatherer))
	}
	r.Method(http.MethodGet, "/api/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRFConfig))

	// --- 認証不要のルート ---
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewOptionalSessionMiddleware(deps.SessionFinder))

		r.Get("/api/story/getAll", storyHandler.GetAll)
		r.Get("/api/story/getById/{storyId}", storyHandler.GetByID)
		r.Get("/api/story/slides/{storyId}", slideHandler.GetSlides)
		r.Get("/api/story/slides/{storyId}/download", slideHandler.DownloadSlide)
		r.Get("/download-image", downloadHandler.DownloadImage)

		r.Post("/api/user/register", userHandler.Register)
		r.Post("/api/user/login", userHandler.Login)
		r.Post("/api/user/logout", userHandler.Logout)
		r.Get("/api/user/me", userHandler.Me)
	})

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Session → CSRF
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.SessionFinder))
		r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))

		// ストーリー
		r.Post("/api/story/create", storyHandler.Create)
		r.Put("/api/story/update/{id}", storyHandler.Update)
		r.Put("/api/story/like/{id}", storyHandler.Like)
		r.Post("/api/story/import", storyHandler.Import)

		// ユーザー
		r.Get("/api/user/load/{username}", userHandler.Load)
		r.Post("/api/user/bookmark/{id}", userHandler.Bookmark)
		r.Get("/api/user/bookmarks/{userId}", userHandler.Bookmarks)
	})

	return r
}
