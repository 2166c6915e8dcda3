package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/storyslide/internal/download"
	"github.com/hitoshi/storyslide/internal/middleware"
	"github.com/hitoshi/storyslide/internal/model"
	"github.com/hitoshi/storyslide/internal/presenter"
	"github.com/hitoshi/storyslide/internal/story"
)

type stubPinger struct{ err error }

func (p stubPinger) PingContext(ctx context.Context) error { return p.err }

// createTestRouter はモックで構成した完全なルーターを返す。
// セッション "valid-session" はtestUserIDに紐づく。
func createTestRouter() http.Handler {
	sessions := &mockSessionFinder{sessions: map[string]*model.Session{
		"valid-session": {ID: "valid-session", UserID: testUserID, ExpiresAt: time.Now().Add(time.Hour)},
	}}

	deps := &RouterDeps{
		SessionFinder:     sessions,
		CORSAllowedOrigin: "http://localhost:5173",
		CSRFConfig:        middleware.CSRFConfig{},
		HealthChecker:     stubPinger{},
		MetricsGatherer:   prometheus.NewRegistry(),
		AuthService: &mockAuthService{
			registerFn: func(ctx context.Context, username, password string) (*model.User, error) {
				return &model.User{ID: testUserID, Username: username}, nil
			},
			loginFn: func(ctx context.Context, username, password string) (*model.User, *model.Session, error) {
				return &model.User{ID: testUserID, Username: username}, &model.Session{ID: "new-session"}, nil
			},
		},
		AuthConfig: AuthHandlerConfig{SessionMaxAge: 3600},
		UserService: &mockUserService{
			loadProfileFn: func(ctx context.Context, username string) (*userProfileResponse, error) {
				resp := toUserProfileResponse(&model.UserProfile{User: model.User{ID: testUserID, Username: username}})
				return &resp, nil
			},
			toggleBookmarkFn: func(ctx context.Context, storyID, userID string) (bool, error) {
				return true, nil
			},
			listBookmarksFn: func(ctx context.Context, requesterID, userID string) ([]storyResponse, error) {
				return []storyResponse{}, nil
			},
		},
		StoryService: &mockStoryService{
			createFn: func(ctx context.Context, slides []story.SlideInput, addedBy string) (*model.Story, error) {
				return newTestStory(addedBy), nil
			},
			updateFn: func(ctx context.Context, storyID string, slides []story.SlideInput, addedBy string) (*model.Story, error) {
				return newTestStory(addedBy), nil
			},
			listFn: func(ctx context.Context, q story.ListQuery) (*story.ListResult, error) {
				return &story.ListResult{Mode: model.StoryListByCategory, Page: q.Page}, nil
			},
			getByIDFn: func(ctx context.Context, storyID, viewerID string) (*model.StoryView, error) {
				return &model.StoryView{Story: newTestStory(testUserID)}, nil
			},
			toggleLikeFn: func(ctx context.Context, storyID, userID string) (bool, int, error) {
				return true, 1, nil
			},
		},
		StoryImporter: &mockImporter{
			importFn: func(ctx context.Context, feedURL, category, addedBy string) (*model.Story, error) {
				return newTestStory(addedBy), nil
			},
		},
		SlideViewService: &mockSlideViewService{
			renderSlidesFn: func(ctx context.Context, storyID string, view presenter.ViewContext) ([]presenter.SlideView, error) {
				return []presenter.SlideView{}, nil
			},
			downloadSlideFn: func(ctx context.Context, storyID string, index int) (*presenter.File, error) {
				return &presenter.File{Name: "slide_1.jpg", Media: &download.Media{Body: []byte("x"), ContentType: "image/jpeg"}}, nil
			},
		},
		MediaFetcher: &mockFetcher{
			fetchFn: func(ctx context.Context, rawURL string) (*download.Media, error) {
				return &download.Media{Body: []byte("x"), ContentType: "image/png"}, nil
			},
		},
	}
	return NewRouter(deps)
}

// authedRequest はセッションとCSRFトークンを付与したリクエストを作る。
func authedRequest(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(&http.Cookie{Name: middleware.SessionCookieName, Value: "valid-session"})
	req.AddCookie(&http.Cookie{Name: "csrf_token", Value: "test-token"})
	req.Header.Set(middleware.CSRFHeaderName, "test-token")
	return req
}

func TestNewRouter_ServiceEndpoints(t *testing.T) {
	router := createTestRouter()

	for _, path := range []string{"/", "/health", "/metrics"} {
		t.Run(path, func(t *testing.T) {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
			if w.Code != http.StatusOK {
				t.Errorf("GET %s status = %d, want 200", path, w.Code)
			}
		})
	}
}

func TestNewRouter_CSRFTokenEndpoint_NoAuthRequired(t *testing.T) {
	router := createTestRouter()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/csrf-token", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	var body map[string]string
	json.NewDecoder(w.Body).Decode(&body)
	if body["token"] == "" {
		t.Error("expected non-empty CSRF token")
	}
}

func TestNewRouter_PublicRoutes(t *testing.T) {
	router := createTestRouter()

	tests := []struct {
		method string
		path   string
		body   string
		want   int
	}{
		{http.MethodGet, "/api/story/getAll?category=food", "", http.StatusOK},
		{http.MethodGet, "/api/story/getById/" + testStoryID, "", http.StatusOK},
		{http.MethodGet, "/api/story/slides/" + testStoryID, "", http.StatusOK},
		{http.MethodGet, "/api/story/slides/" + testStoryID + "/download?index=0", "", http.StatusOK},
		{http.MethodGet, "/download-image?url=https://cdn.example.com/a.png", "", http.StatusOK},
		{http.MethodPost, "/api/user/register", `{"username": "alice", "password": "secret1"}`, http.StatusCreated},
		{http.MethodPost, "/api/user/login", `{"username": "alice", "password": "secret1"}`, http.StatusOK},
		{http.MethodPost, "/api/user/logout", "", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			if w.Code != tt.want {
				t.Errorf("status = %d, want %d: %s", w.Code, tt.want, w.Body.String())
			}
		})
	}
}

func TestNewRouter_ProtectedRoutes_NoSession_Returns401(t *testing.T) {
	router := createTestRouter()

	tests := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/api/story/create"},
		{http.MethodPut, "/api/story/update/" + testStoryID},
		{http.MethodPut, "/api/story/like/" + testStoryID},
		{http.MethodPost, "/api/story/import"},
		{http.MethodGet, "/api/user/load/alice"},
		{http.MethodPost, "/api/user/bookmark/" + testStoryID},
		{http.MethodGet, "/api/user/bookmarks/" + testUserID},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, nil))
			if w.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
			}
		})
	}
}

func TestNewRouter_ProtectedRoutes_WithSessionAndCSRF(t *testing.T) {
	router := createTestRouter()

	storyBody := `{"slides": [{"imageUrl": "https://cdn.example.com/a.jpg", "heading": "", "description": "", "category": "food"}], "addedBy": "` + testUserID + `"}`
	tests := []struct {
		method string
		path   string
		body   string
		want   int
	}{
		{http.MethodPost, "/api/story/create", storyBody, http.StatusCreated},
		{http.MethodPut, "/api/story/update/" + testStoryID, storyBody, http.StatusOK},
		{http.MethodPut, "/api/story/like/" + testStoryID, "", http.StatusOK},
		{http.MethodPost, "/api/story/import", `{"feedUrl": "https://example.com/feed", "category": "food"}`, http.StatusCreated},
		{http.MethodGet, "/api/user/load/alice", "", http.StatusOK},
		{http.MethodPost, "/api/user/bookmark/" + testStoryID, "", http.StatusOK},
		{http.MethodGet, "/api/user/bookmarks/" + testUserID, "", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, authedRequest(tt.method, tt.path, tt.body))
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d: %s", w.Code, tt.want, w.Body.String())
			}
		})
	}
}

func TestNewRouter_ProtectedMutation_RequiresCSRF(t *testing.T) {
	router := createTestRouter()

	req := httptest.NewRequest(http.MethodPut, "/api/story/like/"+testStoryID, nil)
	req.AddCookie(&http.Cookie{Name: middleware.SessionCookieName, Value: "valid-session"})
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusForbidden)
	}
	if body := decodeErrorBody(t, w); body.Code != model.ErrCodeCSRFTokenInvalid {
		t.Errorf("code = %q, want %q", body.Code, model.ErrCodeCSRFTokenInvalid)
	}
}

func TestNewRouter_SessionCheckedBeforeCSRF(t *testing.T) {
	router := createTestRouter()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/story/create", strings.NewReader("{}")))

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d (session check before CSRF)", w.Code, http.StatusUnauthorized)
	}
}

func TestNewRouter_CORSPreflight(t *testing.T) {
	router := createTestRouter()

	req := httptest.NewRequest(http.MethodOptions, "/api/story/create", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Errorf("Access-Control-Allow-Origin = %q", got)
	}
	if w.Code == http.StatusUnauthorized {
		t.Error("preflight must not require a session")
	}
}

func TestNewRouter_HealthUnavailable(t *testing.T) {
	deps := &RouterDeps{
		SessionFinder: &mockSessionFinder{},
		HealthChecker: stubPinger{err: context.DeadlineExceeded},
	}
	router := NewRouter(deps)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", w.Code, http.StatusServiceUnavailable)
	}
}
