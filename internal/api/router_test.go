package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/UkralStul/school-board/internal/account"
	"github.com/UkralStul/school-board/internal/controller"
	"github.com/UkralStul/school-board/internal/domain"
	"github.com/UkralStul/school-board/internal/events"
	"github.com/UkralStul/school-board/internal/logger"
	"github.com/UkralStul/school-board/internal/marks"
	"github.com/UkralStul/school-board/internal/metrics"
	"github.com/UkralStul/school-board/internal/resource"
	"github.com/UkralStul/school-board/internal/storage/inmemory"
	"github.com/UkralStul/school-board/internal/tree"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const password = "correct-horse"

type testServer struct {
	*httptest.Server
	observer *events.Observer
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store := inmemory.New()
	reg := prometheus.NewRegistry()
	observer := events.NewObserver()
	accounts := account.NewService(store, account.WithHashCost(bcrypt.MinCost))
	engine := marks.NewEngine(store, marks.WithMetrics(metrics.New(reg)))
	resources := resource.NewService(store, engine, tree.New(store, tree.DefaultMaxDepth), resource.WithPublisher(observer))

	srv := httptest.NewServer(NewRouter(Deps{
		Accounts:   accounts,
		Resources:  resources,
		Controller: controller.New(accounts, resources),
		Observer:   observer,
		Loaders:    store,
		Gatherer:   reg,
	}))
	t.Cleanup(srv.Close)

	ts := &testServer{Server: srv, observer: observer}
	ts.register(t, "alice", map[string]any{"kind": "Student", "class": map[string]any{"num": 9, "char": "A"}})
	ts.register(t, "bob", map[string]any{"kind": "Other"})
	return ts
}

func (ts *testServer) register(t *testing.T, username string, specs map[string]any) {
	t.Helper()
	resp, _ := ts.do(t, http.MethodPost, "/users", "", map[string]any{
		"username":   username,
		"password":   password,
		"email":      username + "@school.uz",
		"first_name": username,
		"last_name":  "Test",
		"birth_date": "2009-01-01T00:00:00Z",
		"specs":      specs,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
}

// do выполняет запрос от имени user (пустая строка - без авторизации).
func (ts *testServer) do(t *testing.T, method, path, user string, body any) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, ts.URL+path, reader)
	require.NoError(t, err)
	if user != "" {
		req.SetBasicAuth(user, password)
	}
	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, raw
}

func (ts *testServer) publish(t *testing.T, user, title string, tags []string) domain.Post {
	t.Helper()
	resp, raw := ts.do(t, http.MethodPost, "/posts", user, map[string]any{"title": title, "content": "body", "tags": tags})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(raw))
	var post domain.Post
	require.NoError(t, json.Unmarshal(raw, &post))
	return post
}

func TestRegister(t *testing.T) {
	ts := newTestServer(t)

	resp, _ := ts.do(t, http.MethodPost, "/users", "", map[string]any{
		"username": "alice", "password": password, "email": "a@school.uz",
		"first_name": "A", "last_name": "B", "birth_date": "2009-01-01T00:00:00Z",
		"specs": map[string]any{"kind": "Other"},
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, raw := ts.do(t, http.MethodPost, "/users", "", map[string]any{
		"username": "carol", "password": "short", "email": "nope",
		"first_name": "C", "last_name": "D", "birth_date": "2009-01-01T00:00:00Z",
		"specs": map[string]any{"kind": "Teacher", "subject": "Alchemy"},
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var body errorBody
	require.NoError(t, json.Unmarshal(raw, &body))
	assert.ElementsMatch(t, domain.ValidationErrors{
		{Field: "password", Rule: domain.RuleTooShort},
		{Field: "email", Rule: domain.RuleInvalid},
		{Field: "subject", Rule: domain.RuleInvalid},
	}, body.Errors)

	resp, _ = ts.do(t, http.MethodPost, "/users", "", "not an object")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestMe(t *testing.T) {
	ts := newTestServer(t)

	resp, raw := ts.do(t, http.MethodGet, "/users/me", "alice", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(raw), `"username":"alice"`)
	assert.NotContains(t, string(raw), "password")

	resp, _ = ts.do(t, http.MethodGet, "/users/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp, _ = ts.do(t, http.MethodGet, "/users/me", "mallory", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestChangeFields(t *testing.T) {
	ts := newTestServer(t)

	resp, raw := ts.do(t, http.MethodPatch, "/users/me", "bob", []map[string]any{
		{"field": "class", "class": map[string]any{"num": 5, "char": "B"}},
		{"field": "about", "value": strings.Repeat("x", 501)},
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var body errorBody
	require.NoError(t, json.Unmarshal(raw, &body))
	assert.Equal(t, domain.ValidationErrors{
		{Field: "class", Rule: domain.RuleNotStudent},
		{Field: "about", Rule: domain.RuleTooLong},
	}, body.Errors)

	resp, raw = ts.do(t, http.MethodPatch, "/users/me", "alice", []map[string]any{
		{"field": "class", "class": map[string]any{"num": 10, "char": "B"}},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(raw), `"num":10`)
}

func TestMarks_AliceAndBob(t *testing.T) {
	ts := newTestServer(t)
	post := ts.publish(t, "alice", "Olympiad", []string{"math"})

	resp, raw := ts.do(t, http.MethodPost, "/resources/"+post.UUID+"/marks?liked=true", "bob", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"likes":1,"dislikes":0}`, string(raw))

	resp, raw = ts.do(t, http.MethodPost, "/resources/"+post.UUID+"/marks?liked=false", "bob", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"likes":0,"dislikes":1}`, string(raw))

	resp, raw = ts.do(t, http.MethodGet, "/resources/"+post.UUID, "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var view resourceView
	require.NoError(t, json.Unmarshal(raw, &view))
	assert.Equal(t, "post", view.Kind)
	require.NotNil(t, view.Post)
	assert.Equal(t, int64(1), view.Post.Dislikes)

	resp, raw = ts.do(t, http.MethodDelete, "/resources/"+post.UUID+"/marks", "bob", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"likes":0,"dislikes":0}`, string(raw))

	resp, _ = ts.do(t, http.MethodPost, "/resources/"+post.UUID+"/marks?liked=maybe", "bob", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp, raw = ts.do(t, http.MethodPost, "/resources/missing/marks?liked=true", "bob", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.JSONEq(t, `{"error":"not found"}`, string(raw))
}

func TestEditAndComments(t *testing.T) {
	ts := newTestServer(t)
	post := ts.publish(t, "alice", "Olympiad", nil)

	resp, _ := ts.do(t, http.MethodPatch, "/resources/"+post.UUID, "bob", map[string]any{"content": "mine now"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp, _ = ts.do(t, http.MethodPatch, "/posts/"+post.UUID+"/title", "bob", map[string]any{"title": "mine"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, raw := ts.do(t, http.MethodPatch, "/resources/"+post.UUID, "alice", map[string]any{"content": "updated"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var view resourceView
	require.NoError(t, json.Unmarshal(raw, &view))
	require.NotNil(t, view.Post)
	assert.Equal(t, "updated", view.Post.Content)
	assert.True(t, view.Post.Edited)

	resp, raw = ts.do(t, http.MethodPost, "/resources/"+post.UUID+"/comments", "bob", map[string]any{"content": "first"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var parent domain.Comment
	require.NoError(t, json.Unmarshal(raw, &parent))

	resp, _ = ts.do(t, http.MethodPost, "/resources/"+parent.UUID+"/comments", "alice", map[string]any{"content": "reply"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp, _ = ts.do(t, http.MethodPost, "/resources/"+parent.UUID+"/comments", "alice", map[string]any{"content": "  "})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, raw = ts.do(t, http.MethodGet, "/resources/"+post.UUID+"/replies", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var thread []*domain.Comment
	require.NoError(t, json.Unmarshal(raw, &thread))
	require.Len(t, thread, 1)
	require.Len(t, thread[0].Replies, 1)
	assert.Equal(t, "reply", thread[0].Replies[0].Content)
	require.NotNil(t, thread[0].AuthorProfile)
	assert.Equal(t, "bob", thread[0].AuthorProfile.Username)
	assert.Equal(t, domain.SpecsOther, thread[0].AuthorProfile.Specs.Kind)

	// Дерево отдается без авторизации, личные данные авторов в него не попадают.
	for _, private := range []string{"@school.uz", "birthDate", "firstName", "registeredAt"} {
		assert.NotContains(t, string(raw), private)
	}
}

func TestListPosts(t *testing.T) {
	ts := newTestServer(t)
	first := ts.publish(t, "alice", "First", []string{"math", "olympiad"})
	second := ts.publish(t, "alice", "Second", []string{"math"})
	ts.publish(t, "bob", "Third", []string{"history"})

	resp, _ := ts.do(t, http.MethodPost, "/resources/"+second.UUID+"/marks?liked=true", "bob", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var posts []domain.Post
	resp, raw := ts.do(t, http.MethodGet, "/posts?tags=math", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(raw, &posts))
	require.Len(t, posts, 2)
	assert.Equal(t, second.UUID, posts[0].UUID)

	resp, raw = ts.do(t, http.MethodGet, "/posts?tags=math,olympiad", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(raw, &posts))
	require.Len(t, posts, 1)
	assert.Equal(t, first.UUID, posts[0].UUID)

	resp, raw = ts.do(t, http.MethodGet, "/posts?sort_by=published_at&direction=down&limit=1&page=2", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(raw, &posts))
	require.Len(t, posts, 1)
	assert.Equal(t, second.UUID, posts[0].UUID)

	resp, _ = ts.do(t, http.MethodGet, "/posts?direction=sideways", "", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp, _ = ts.do(t, http.MethodGet, "/posts?page=0", "", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, raw = ts.do(t, http.MethodGet, "/posts?tags=math,,%20olympiad%20,", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(raw, &posts))
	require.Len(t, posts, 1)
	assert.Equal(t, first.UUID, posts[0].UUID)
}

func TestListPosts_PageBounds(t *testing.T) {
	ts := newTestServer(t)
	ts.publish(t, "alice", "Only", nil)

	resp, raw := ts.do(t, http.MethodGet, "/posts?page=4611686018427387904&limit=4", "", nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var body errorBody
	require.NoError(t, json.Unmarshal(raw, &body))
	assert.Equal(t, domain.ValidationErrors{{Field: "page", Rule: domain.RuleInvalid}}, body.Errors)

	resp, raw = ts.do(t, http.MethodGet, "/posts?limit=101", "", nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.NoError(t, json.Unmarshal(raw, &body))
	assert.Equal(t, domain.ValidationErrors{{Field: "limit", Rule: domain.RuleTooLong}}, body.Errors)

	var posts []domain.Post
	resp, raw = ts.do(t, http.MethodGet, "/posts?page=1000000&limit=100", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(raw, &posts))
	assert.Empty(t, posts)
}

func TestResources_MalformedUUID(t *testing.T) {
	ts := newTestServer(t)

	for _, path := range []string{
		"/resources/not-a-uuid",
		"/resources/not-a-uuid/replies",
		"/posts/not-a-uuid/events",
	} {
		resp, raw := ts.do(t, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, path)
		assert.JSONEq(t, `{"error":"not found"}`, string(raw), path)
	}

	resp, _ := ts.do(t, http.MethodPost, "/resources/not-a-uuid/comments", "bob", map[string]any{"content": "hi"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp, _ = ts.do(t, http.MethodPatch, "/posts/not-a-uuid/title", "alice", map[string]any{"title": "t"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestEventsStream(t *testing.T) {
	ts := newTestServer(t)
	post := ts.publish(t, "alice", "Olympiad", nil)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/posts/" + post.UUID + "/events"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return ts.observer.Subscribers(post.UUID) == 1 }, time.Second, 10*time.Millisecond)

	resp, _ := ts.do(t, http.MethodPost, "/resources/"+post.UUID+"/comments", "bob", map[string]any{"content": "hi"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var e events.Event
	require.NoError(t, conn.ReadJSON(&e))
	assert.Equal(t, events.CommentAdded, e.Type)
	require.NotNil(t, e.Comment)
	assert.Equal(t, "hi", e.Comment.Content)

	resp, _ = ts.do(t, http.MethodPost, "/resources/"+post.UUID+"/marks?liked=true", "bob", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, conn.ReadJSON(&e))
	assert.Equal(t, events.MarkChanged, e.Type)
	require.NotNil(t, e.Counts)
	assert.Equal(t, int64(1), e.Counts.Likes)

	conn.Close()
	require.Eventually(t, func() bool { return ts.observer.Subscribers(post.UUID) == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestEventsStream_UnknownPost(t *testing.T) {
	ts := newTestServer(t)
	resp, _ := ts.do(t, http.MethodGet, "/posts/missing/events", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestMetrics(t *testing.T) {
	ts := newTestServer(t)
	post := ts.publish(t, "alice", "Olympiad", nil)
	ts.do(t, http.MethodPost, "/resources/"+post.UUID+"/marks?liked=true", "bob", nil)

	resp, raw := ts.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(raw), "school_board_marks_total")
}

func TestFail_HidesStoreInternals(t *testing.T) {
	h := &handler{Deps: Deps{Logger: logger.Nop{}}}
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/posts", nil).WithContext(context.Background())

	h.fail(rec, req, &domain.StoreError{Op: "get posts", Err: io.ErrUnexpectedEOF})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"internal error"}`, rec.Body.String())
}
