package httpapi

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/dkorolev/slateboard/internal/logging"
	"github.com/dkorolev/slateboard/internal/server/config"
	"github.com/dkorolev/slateboard/internal/server/models"
	"github.com/dkorolev/slateboard/internal/server/repositories/repomanager"
	"github.com/dkorolev/slateboard/internal/server/services"
	"github.com/dkorolev/slateboard/internal/server/storage"
)

func newTestServer(t *testing.T) http.Handler {
	t.Helper()

	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()))
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	rm := repomanager.NewSQLiteRepositoryManager()
	require.NoError(t, rm.RunMigrations(context.Background(), db))

	viewsDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(viewsDir, "auth.html"), []byte("<html>auth</html>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(viewsDir, "index.html"), []byte("<html>board</html>"), 0o644))

	cfg := &config.Config{
		EndpointAddr:            ":0",
		SecretKey:               "test-secret",
		SessionValidityDuration: time.Hour,
		KeyHashCost:             bcrypt.MinCost,
		MediaDir:                t.TempDir(),
		ViewsDir:                viewsDir,
		MaxUploadBytes:          50 << 20,
		MaxFilesPerUpload:       5,
		CorsAllowedOrigins:      []string{"*"},
	}

	blobs, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)

	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	identity := services.NewIdentityService(db, rm, cfg)
	board := services.NewBoardService(db, rm, logger)
	attachments := services.NewAttachmentService(db, rm, blobs,
		cfg.MediaDir, cfg.MaxUploadBytes, cfg.MaxFilesPerUpload, logger)

	return NewServer(cfg, logger, identity, board, attachments).Routes()
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out))
}

// register creates an identity and returns its one-time private key.
func register(t *testing.T, h http.Handler, moniker string) string {
	t.Helper()
	rec := doJSON(t, h, http.MethodPost, "/api/generate-key", map[string]string{"moniker": moniker})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Success    bool   `json:"success"`
		Moniker    string `json:"moniker"`
		PublicKey  string `json:"publicKey"`
		PrivateKey string `json:"privateKey"`
	}
	decodeBody(t, rec, &resp)
	assert.True(t, resp.Success)
	assert.Equal(t, moniker, resp.Moniker)
	assert.Regexp(t, `^[A-Z0-9]{3}-[A-Z0-9]{3}-[A-Z0-9]{3}$`, resp.PublicKey)
	return resp.PrivateKey
}

// login exchanges a private key for the session cookie.
func login(t *testing.T, h http.Handler, privateKey string) *http.Cookie {
	t.Helper()
	rec := doJSON(t, h, http.MethodPost, "/api/login", map[string]string{"privateKey": privateKey})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	for _, c := range rec.Result().Cookies() {
		if c.Name == SessionCookieName {
			assert.True(t, c.HttpOnly)
			return c
		}
	}
	t.Fatal("session cookie not set")
	return nil
}

func multipartRequest(t *testing.T, path string, fields map[string]string, files map[string]string, cookie *http.Cookie) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for name, value := range fields {
		require.NoError(t, w.WriteField(name, value))
	}
	for name, content := range files {
		fw, err := w.CreateFormFile("files", name)
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	if cookie != nil {
		req.AddCookie(cookie)
	}
	return req
}

func TestRegisterLoginUserLogoutFlow(t *testing.T) {
	h := newTestServer(t)

	privateKey := register(t, h, "ghost")
	cookie := login(t, h, privateKey)

	rec := doJSON(t, h, http.MethodGet, "/api/user", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	var user struct {
		Moniker   string `json:"moniker"`
		PublicKey string `json:"publicKey"`
	}
	decodeBody(t, rec, &user)
	assert.Equal(t, "ghost", user.Moniker)
	assert.NotEmpty(t, user.PublicKey)

	rec = doJSON(t, h, http.MethodPost, "/api/logout", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	for _, c := range rec.Result().Cookies() {
		if c.Name == SessionCookieName {
			assert.Negative(t, c.MaxAge, "logout must expire the cookie")
		}
	}
}

func TestLogin_WrongKey(t *testing.T) {
	h := newTestServer(t)
	register(t, h, "ghost")

	rec := doJSON(t, h, http.MethodPost, "/api/login", map[string]string{"privateKey": "nope"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	var resp map[string]string
	decodeBody(t, rec, &resp)
	assert.Contains(t, resp, "error")
}

func TestGenerateKey_RequiresMoniker(t *testing.T) {
	h := newTestServer(t)

	rec := doJSON(t, h, http.MethodPost, "/api/generate-key", map[string]string{"moniker": " "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPIWrites_RequireSession(t *testing.T) {
	h := newTestServer(t)

	req := multipartRequest(t, "/api/post", map[string]string{"content": "hi"}, nil, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	var resp map[string]string
	decodeBody(t, rec, &resp)
	assert.Equal(t, "authentication required", resp["error"])
}

func TestBoardPage_RedirectsWithoutSession(t *testing.T) {
	h := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/board", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
}

func TestIndex_RedirectsWithSession(t *testing.T) {
	h := newTestServer(t)
	cookie := login(t, h, register(t, h, "ghost"))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/board", rec.Header().Get("Location"))
}

func TestPostCommentFeedAndFileServing(t *testing.T) {
	h := newTestServer(t)
	cookie := login(t, h, register(t, h, "ghost"))

	req := multipartRequest(t, "/api/post",
		map[string]string{"content": "hello board", "topic": "general"},
		map[string]string{"shot.png": "png bytes", "notes.txt": "text bytes"},
		cookie)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = doJSON(t, h, http.MethodGet, "/api/posts", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var feed models.Feed
	decodeBody(t, rec, &feed)
	require.Len(t, feed.Posts, 1)
	post := feed.Posts[0]
	assert.Equal(t, "hello board", post.Content)
	assert.Equal(t, "ghost", post.Moniker)
	assert.Equal(t, []string{"general"}, post.Topics)
	require.Len(t, post.Files, 2)
	assert.Equal(t, 1, feed.Total)
	assert.Equal(t, 1, feed.TotalPages)

	req = multipartRequest(t, "/api/comment",
		map[string]string{"postId": fmt.Sprintf("%d", post.ID), "content": "nice"},
		map[string]string{"reply.gif": "gif bytes"},
		cookie)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = doJSON(t, h, http.MethodGet, "/api/posts", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decodeBody(t, rec, &feed)
	require.Len(t, feed.Posts, 1)
	require.Len(t, feed.Posts[0].Comments, 1)
	comment := feed.Posts[0].Comments[0]
	assert.Equal(t, "nice", comment.Content)
	require.Len(t, comment.Files, 1)

	// Uploaded with a text/plain-free multipart writer, so everything is
	// octet-stream and streams as a named download.
	var textFile models.FeedFile
	for _, f := range feed.Posts[0].Files {
		if f.FileName == "notes.txt" {
			textFile = f
		}
	}
	require.NotZero(t, textFile.ID)

	req = httptest.NewRequest(http.MethodGet, fmt.Sprintf("/files/%d", textFile.ID), nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `attachment; filename="notes.txt"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "text bytes", rec.Body.String())
}

func TestServeFile_InlineForImages(t *testing.T) {
	h := newTestServer(t)
	cookie := login(t, h, register(t, h, "ghost"))

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.WriteField("content", "image post"))
	part, err := w.CreatePart(map[string][]string{
		"Content-Disposition": {`form-data; name="files"; filename="pic.png"`},
		"Content-Type":        {"image/png"},
	})
	require.NoError(t, err)
	_, err = part.Write([]byte("png bytes"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/post", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = doJSON(t, h, http.MethodGet, "/api/posts", nil)
	var feed models.Feed
	decodeBody(t, rec, &feed)
	require.Len(t, feed.Posts, 1)
	require.Len(t, feed.Posts[0].Files, 1)

	req = httptest.NewRequest(http.MethodGet, fmt.Sprintf("/files/%d", feed.Posts[0].Files[0].ID), nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Equal(t, "inline", rec.Header().Get("Content-Disposition"))
}

func TestServeFile_Missing(t *testing.T) {
	h := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/files/424242", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/files/not-a-number", nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListPosts_PerPageValidation(t *testing.T) {
	h := newTestServer(t)

	rec := doJSON(t, h, http.MethodGet, "/api/posts?perPage=0", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/api/posts?perPage=junk&page=junk", nil)
	assert.Equal(t, http.StatusOK, rec.Code, "unparseable values fall back to defaults")
}

func TestCreateComment_MissingPost(t *testing.T) {
	h := newTestServer(t)
	cookie := login(t, h, register(t, h, "ghost"))

	req := multipartRequest(t, "/api/comment",
		map[string]string{"postId": "999", "content": "hi"}, nil, cookie)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreatePost_TruncatesExtraFiles(t *testing.T) {
	h := newTestServer(t)
	cookie := login(t, h, register(t, h, "ghost"))

	files := map[string]string{}
	for i := 0; i < 6; i++ {
		files[fmt.Sprintf("f%d.bin", i)] = "x"
	}
	req := multipartRequest(t, "/api/post", map[string]string{"content": "six files"}, files, cookie)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = doJSON(t, h, http.MethodGet, "/api/posts", nil)
	var feed models.Feed
	decodeBody(t, rec, &feed)
	require.Len(t, feed.Posts, 1)
	assert.Len(t, feed.Posts[0].Files, 5, "sixth file is dropped")
}

func TestListGifs(t *testing.T) {
	h := newTestServer(t)

	rec := doJSON(t, h, http.MethodGet, "/api/media/gifs", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Success bool     `json:"success"`
		Gifs    []string `json:"gifs"`
	}
	decodeBody(t, rec, &resp)
	assert.True(t, resp.Success)
	assert.Empty(t, resp.Gifs)
}

func TestFeedArraysNeverNull(t *testing.T) {
	h := newTestServer(t)
	cookie := login(t, h, register(t, h, "ghost"))

	req := multipartRequest(t, "/api/post", map[string]string{"content": "bare"}, nil, cookie)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/api/posts", nil)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `"files":[]`), body)
	assert.True(t, strings.Contains(body, `"comments":[]`), body)
	assert.True(t, strings.Contains(body, `"topics":[]`), body)
}
