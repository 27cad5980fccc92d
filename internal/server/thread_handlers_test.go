package server

import (
	"fmt"
	"math"
	"net/http"
	"testing"

	"threads/internal/cache"
	"threads/internal/config"
	"threads/internal/models"
	"threads/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateThread(t *testing.T) {
	env := newTestEnv(t)
	env.onboard(t, "ext-a", "alice")

	tests := []struct {
		name           string
		body           any
		expectedStatus int
	}{
		{"Valid", CreateThreadRequest{Text: "hello world"}, http.StatusCreated},
		{"Too Short", CreateThreadRequest{Text: "hi"}, http.StatusBadRequest},
		{"Whitespace Only", CreateThreadRequest{Text: "      "}, http.StatusBadRequest},
		{"Community Ignored", CreateThreadRequest{Text: "in a community", CommunityID: new(uint)}, http.StatusCreated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := env.do(t, http.MethodPost, "/api/threads", "ext-a", tt.body, nil)
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)
		})
	}

	var stored []models.Thread
	require.NoError(t, env.db.Find(&stored).Error)
	require.Len(t, stored, 2)
	for _, th := range stored {
		assert.Nil(t, th.ParentID)
		assert.Nil(t, th.CommunityID)
	}
}

func TestCreateThread_TrimsText(t *testing.T) {
	env := newTestEnv(t)
	env.onboard(t, "ext-a", "alice")

	var created models.Thread
	resp := env.do(t, http.MethodPost, "/api/threads", "ext-a", CreateThreadRequest{Text: "  spaced out  "}, &created)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "spaced out", created.Text)
}

func TestThreadConversation(t *testing.T) {
	env := newTestEnv(t)
	env.onboard(t, "ext-a", "alice")
	env.onboard(t, "ext-b", "bob")

	var t1 models.Thread
	resp := env.do(t, http.MethodPost, "/api/threads", "ext-a", CreateThreadRequest{Text: "first thread"}, &t1)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var c1 models.Thread
	resp = env.do(t, http.MethodPost, fmt.Sprintf("/api/threads/%d/comments", t1.ID), "ext-b",
		AddCommentRequest{Text: "nice one"}, &c1)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.NotNil(t, c1.ParentID)
	assert.Equal(t, t1.ID, *c1.ParentID)

	var detail models.Thread
	resp = env.do(t, http.MethodGet, fmt.Sprintf("/api/threads/%d", t1.ID), "ext-a", nil, &detail)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, detail.Children, 1)
	assert.Equal(t, c1.ID, detail.Children[0].ID)
	require.NotNil(t, detail.Children[0].Author)
	assert.Equal(t, "bob", detail.Children[0].Author.Username)

	var activityA struct {
		Activity []models.Thread `json:"activity"`
	}
	resp = env.do(t, http.MethodGet, "/api/activity", "ext-a", nil, &activityA)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, activityA.Activity, 1)
	assert.Equal(t, c1.ID, activityA.Activity[0].ID)
	assert.Equal(t, t1.ID, *activityA.Activity[0].ParentID)

	var activityB struct {
		Activity []models.Thread `json:"activity"`
	}
	resp = env.do(t, http.MethodGet, "/api/activity", "ext-b", nil, &activityB)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, activityB.Activity)
}

func TestAddComment_Errors(t *testing.T) {
	env := newTestEnv(t)
	env.onboard(t, "ext-a", "alice")

	var t1 models.Thread
	env.do(t, http.MethodPost, "/api/threads", "ext-a", CreateThreadRequest{Text: "first thread"}, &t1)

	tests := []struct {
		name           string
		path           string
		body           any
		expectedStatus int
		expectedCode   string
	}{
		{"Invalid ID", "/api/threads/abc/comments", AddCommentRequest{Text: "reply"}, http.StatusBadRequest, models.CodeValidation},
		{"Missing Thread", "/api/threads/999/comments", AddCommentRequest{Text: "reply"}, http.StatusNotFound, models.CodeNotFound},
		{"Too Short", fmt.Sprintf("/api/threads/%d/comments", t1.ID), AddCommentRequest{Text: "no"}, http.StatusBadRequest, models.CodeValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body models.ErrorResponse
			resp := env.do(t, http.MethodPost, tt.path, "ext-a", tt.body, &body)
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)
			assert.Equal(t, tt.expectedCode, body.Code)
		})
	}

	var count int64
	require.NoError(t, env.db.Model(&models.Thread{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestGetThread_NotFound(t *testing.T) {
	env := newTestEnv(t)
	env.onboard(t, "ext-a", "alice")

	resp := env.do(t, http.MethodGet, "/api/threads/42", "ext-a", nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.False(t, env.mr.Exists(cache.ViewKey("/thread/42")))
}

func TestGetThreads_Pagination(t *testing.T) {
	env := newTestEnv(t)
	env.onboard(t, "ext-a", "alice")
	for i := 0; i < 7; i++ {
		resp := env.do(t, http.MethodPost, "/api/threads", "ext-a",
			CreateThreadRequest{Text: fmt.Sprintf("thread %d", i)}, nil)
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	}

	var page service.PostsPage
	resp := env.do(t, http.MethodGet, "/api/threads?page=2&size=5", "ext-a", nil, &page)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, page.Posts, 2)
	assert.False(t, page.HasNext)
	assert.Equal(t, int64(7), page.Total)

	resp = env.do(t, http.MethodGet, "/api/threads?page=1&size=5", "ext-a", nil, &page)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, page.Posts, 5)
	assert.True(t, page.HasNext)
	assert.Equal(t, "thread 6", page.Posts[0].Text)

	page = service.PostsPage{}
	resp = env.do(t, http.MethodGet, fmt.Sprintf("/api/threads?page=%d&size=20", math.MaxInt/20+2), "ext-a", nil, &page)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, page.Posts)
	assert.False(t, page.HasNext)
}

func TestGetThreads_FeedViewCache(t *testing.T) {
	env := newTestEnv(t)
	env.onboard(t, "ext-a", "alice")

	resp := env.do(t, http.MethodGet, "/api/threads", "ext-a", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "miss", resp.Header.Get("X-View-Cache"))
	assert.True(t, env.mr.Exists(cache.ViewKey("/")))

	resp = env.do(t, http.MethodGet, "/api/threads", "ext-a", nil, nil)
	assert.Equal(t, "local", resp.Header.Get("X-View-Cache"))

	// Posting revalidates the feed.
	resp = env.do(t, http.MethodPost, "/api/threads", "ext-a", CreateThreadRequest{Text: "fresh post"}, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.False(t, env.mr.Exists(cache.ViewKey("/")))

	var page service.PostsPage
	resp = env.do(t, http.MethodGet, "/api/threads", "ext-a", nil, &page)
	assert.Equal(t, "miss", resp.Header.Get("X-View-Cache"))
	require.Len(t, page.Posts, 1)
	assert.Equal(t, "fresh post", page.Posts[0].Text)

	// Non-default pages bypass the cache.
	resp = env.do(t, http.MethodGet, "/api/threads?size=5", "ext-a", nil, nil)
	assert.Empty(t, resp.Header.Get("X-View-Cache"))
}

func TestGetThread_ReplyRevalidatesDetailView(t *testing.T) {
	env := newTestEnv(t)
	env.onboard(t, "ext-a", "alice")
	env.onboard(t, "ext-b", "bob")

	var t1 models.Thread
	env.do(t, http.MethodPost, "/api/threads", "ext-a", CreateThreadRequest{Text: "first thread"}, &t1)
	path := fmt.Sprintf("/api/threads/%d", t1.ID)

	var detail models.Thread
	env.do(t, http.MethodGet, path, "ext-a", nil, &detail)
	assert.Empty(t, detail.Children)
	assert.True(t, env.mr.Exists(cache.ViewKey(fmt.Sprintf("/thread/%d", t1.ID))))

	resp := env.do(t, http.MethodPost, path+"/comments", "ext-b", AddCommentRequest{Text: "first reply"}, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	detail = models.Thread{}
	resp = env.do(t, http.MethodGet, path, "ext-a", nil, &detail)
	assert.Equal(t, "miss", resp.Header.Get("X-View-Cache"))
	assert.Len(t, detail.Children, 1)
}

func TestGetThreads_ViewCacheFlagOff(t *testing.T) {
	env := newTestEnv(t, func(cfg *config.Config) { cfg.FeatureFlags = "view_cache=off" })
	env.onboard(t, "ext-a", "alice")

	resp := env.do(t, http.MethodGet, "/api/threads", "ext-a", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, resp.Header.Get("X-View-Cache"))
	assert.False(t, env.mr.Exists(cache.ViewKey("/")))
}

func TestGetThreads_FeedShowsNewReply(t *testing.T) {
	env := newTestEnv(t)
	env.onboard(t, "ext-a", "alice")
	env.onboard(t, "ext-b", "bob")

	var t1 models.Thread
	env.do(t, http.MethodPost, "/api/threads", "ext-a", CreateThreadRequest{Text: "first thread"}, &t1)

	var page service.PostsPage
	env.do(t, http.MethodGet, "/api/threads", "ext-a", nil, &page)
	require.Len(t, page.Posts, 1)
	assert.Empty(t, page.Posts[0].Children)

	// The reply names only its own detail view.
	resp := env.do(t, http.MethodPost, fmt.Sprintf("/api/threads/%d/comments", t1.ID), "ext-b",
		AddCommentRequest{Text: "first reply", Path: fmt.Sprintf("/thread/%d", t1.ID)}, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	page = service.PostsPage{}
	resp = env.do(t, http.MethodGet, "/api/threads", "ext-a", nil, &page)
	assert.Equal(t, "miss", resp.Header.Get("X-View-Cache"))
	require.Len(t, page.Posts, 1)
	require.Len(t, page.Posts[0].Children, 1)
	assert.Equal(t, "first reply", page.Posts[0].Children[0].Text)
}

func TestGetThread_NestedReplyShowsInGrandparent(t *testing.T) {
	env := newTestEnv(t)
	env.onboard(t, "ext-a", "alice")
	env.onboard(t, "ext-b", "bob")

	var t1, c1 models.Thread
	env.do(t, http.MethodPost, "/api/threads", "ext-a", CreateThreadRequest{Text: "first thread"}, &t1)
	env.do(t, http.MethodPost, fmt.Sprintf("/api/threads/%d/comments", t1.ID), "ext-b",
		AddCommentRequest{Text: "first reply"}, &c1)

	path := fmt.Sprintf("/api/threads/%d", t1.ID)
	var detail models.Thread
	env.do(t, http.MethodGet, path, "ext-a", nil, &detail)
	require.Len(t, detail.Children, 1)
	assert.Empty(t, detail.Children[0].Children)

	resp := env.do(t, http.MethodPost, fmt.Sprintf("/api/threads/%d/comments", c1.ID), "ext-a",
		AddCommentRequest{Text: "nested reply"}, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	detail = models.Thread{}
	resp = env.do(t, http.MethodGet, path, "ext-a", nil, &detail)
	assert.Equal(t, "miss", resp.Header.Get("X-View-Cache"))
	require.Len(t, detail.Children, 1)
	require.Len(t, detail.Children[0].Children, 1)
	assert.Equal(t, "nested reply", detail.Children[0].Children[0].Text)
}
