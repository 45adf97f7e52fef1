package controllers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/saminter22/yatube/config"
	"github.com/saminter22/yatube/models"
	"github.com/saminter22/yatube/routes"
	"github.com/saminter22/yatube/utils"
)

var mediaRoot string

func TestMain(m *testing.M) {
	tmp, err := os.MkdirTemp("", "yatube-test")
	if err != nil {
		panic(err)
	}
	mediaRoot = filepath.Join(tmp, "media")

	os.Setenv("JWT_SECRET", "test-secret")
	os.Setenv("GIN_MODE", "test")
	os.Setenv("MEDIA_ROOT", mediaRoot)
	os.Setenv("GIN_PATH", filepath.Join(tmp, "gin.log"))
	os.Setenv("RATE_LIMIT_PER_MINUTE", "100000")
	os.Setenv("ADMIN_USERNAMES", "admin")
	config.Load()
	_ = utils.InitLogger(config.Get())

	code := m.Run()
	_ = os.RemoveAll(tmp)
	os.Exit(code)
}

type testEnv struct {
	db     *gorm.DB
	cache  *utils.MemoryPageCache
	router *gin.Engine
}

var dbCounter int

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dbCounter++
	dsn := fmt.Sprintf("file:testdb%d?mode=memory&cache=shared", dbCounter)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	// A single connection keeps the shared in-memory database alive.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.AutoMigrate(
		&models.User{},
		&models.Group{},
		&models.Post{},
		&models.Comment{},
		&models.Follow{},
		&models.PageView{},
	); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	cache := utils.NewMemoryPageCache()
	return &testEnv{
		db:     db,
		cache:  cache,
		router: routes.SetupRouter(db, cache),
	}
}

func (e *testEnv) createUser(t *testing.T, username string) models.User {
	t.Helper()
	hash, err := utils.HashPassword("password123")
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}
	user := models.User{Username: username, Email: username + "@example.com", PasswordHash: hash}
	if err := e.db.Create(&user).Error; err != nil {
		t.Fatalf("failed to create user %s: %v", username, err)
	}
	return user
}

func (e *testEnv) createGroup(t *testing.T, title, slug string) models.Group {
	t.Helper()
	group := models.Group{Title: title, Slug: slug, Description: title + " description"}
	if err := e.db.Create(&group).Error; err != nil {
		t.Fatalf("failed to create group %s: %v", slug, err)
	}
	return group
}

func (e *testEnv) createPost(t *testing.T, author models.User, text string, pubDate time.Time) models.Post {
	t.Helper()
	post := models.Post{Text: text, AuthorID: author.ID, PubDate: pubDate}
	if err := e.db.Create(&post).Error; err != nil {
		t.Fatalf("failed to create post: %v", err)
	}
	return post
}

func (e *testEnv) token(t *testing.T, user models.User) string {
	t.Helper()
	token, err := utils.GenerateToken(user.ID, user.Username, time.Hour)
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}
	return token
}

// perform runs a request through the router; a non-empty token authenticates it.
func (e *testEnv) perform(method, target, token string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

func (e *testEnv) get(target, token string) *httptest.ResponseRecorder {
	return e.perform(http.MethodGet, target, token, nil, "")
}

func (e *testEnv) postForm(target, token string, form url.Values) *httptest.ResponseRecorder {
	return e.perform(http.MethodPost, target, token, strings.NewReader(form.Encode()), "application/x-www-form-urlencoded")
}

func (e *testEnv) postJSON(target, token string, payload any) *httptest.ResponseRecorder {
	b, _ := json.Marshal(payload)
	return e.perform(http.MethodPost, target, token, bytes.NewReader(b), "application/json")
}

// multipartBody builds a multipart form with the given fields and an optional file part.
func multipartBody(t *testing.T, fields map[string]string, fileField, fileName string, fileContent []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatalf("failed to write form field %s: %v", k, err)
		}
	}
	if fileField != "" {
		fw, err := w.CreateFormFile(fileField, fileName)
		if err != nil {
			t.Fatalf("failed to create file part: %v", err)
		}
		if _, err := fw.Write(fileContent); err != nil {
			t.Fatalf("failed to write file part: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("failed to close multipart writer: %v", err)
	}
	return &buf, w.FormDataContentType()
}

type envelope struct {
	Code    int                        `json:"code"`
	Message string                     `json:"message"`
	Data    map[string]json.RawMessage `json:"data"`
}

func decodeEnvelope(t *testing.T, rr *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(rr.Body.Bytes(), &env); err != nil {
		t.Fatalf("failed to decode response %q: %v", rr.Body.String(), err)
	}
	return env
}

func decodeItems(t *testing.T, env envelope) []models.Post {
	t.Helper()
	var posts []models.Post
	if err := json.Unmarshal(env.Data["items"], &posts); err != nil {
		t.Fatalf("failed to decode items: %v", err)
	}
	return posts
}

func decodePagination(t *testing.T, env envelope) utils.Page {
	t.Helper()
	var page utils.Page
	if err := json.Unmarshal(env.Data["pagination"], &page); err != nil {
		t.Fatalf("failed to decode pagination: %v", err)
	}
	return page
}
