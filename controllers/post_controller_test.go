package controllers_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/saminter22/yatube/models"
)

func TestPostDetailWithComments(t *testing.T) {
	env := newTestEnv(t)
	author := env.createUser(t, "writer")
	reader := env.createUser(t, "commenter")
	post := env.createPost(t, author, "subject", time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))

	base := time.Date(2024, 5, 2, 9, 0, 0, 0, time.UTC)
	for i, text := range []string{"first comment", "second comment"} {
		c := models.Comment{Text: text, PostID: post.ID, AuthorID: reader.ID, Created: base.Add(time.Duration(i) * time.Minute)}
		if err := env.db.Create(&c).Error; err != nil {
			t.Fatalf("failed to create comment: %v", err)
		}
	}

	rr := env.get(fmt.Sprintf("/posts/%d/", post.ID), "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	data := decodeEnvelope(t, rr).Data

	var got models.Post
	if err := json.Unmarshal(data["post"], &got); err != nil {
		t.Fatalf("failed to decode post: %v", err)
	}
	if got.Text != "subject" || got.Author.Username != "writer" {
		t.Errorf("unexpected post payload: %+v", got)
	}

	var comments []models.Comment
	if err := json.Unmarshal(data["comments"], &comments); err != nil {
		t.Fatalf("failed to decode comments: %v", err)
	}
	if len(comments) != 2 || comments[0].Text != "first comment" {
		t.Fatalf("expected comments oldest first, got %+v", comments)
	}
}

func TestPostDetailNotFound(t *testing.T) {
	env := newTestEnv(t)
	rr := env.get("/posts/12345/", "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

func TestPostCreateRequiresLogin(t *testing.T) {
	env := newTestEnv(t)

	rr := env.postForm("/create/", "", url.Values{"text": {"should not persist"}})
	if rr.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", rr.Code)
	}
	if loc := rr.Header().Get("Location"); loc != "/auth/login/?next=%2Fcreate%2F" {
		t.Errorf("unexpected redirect target %q", loc)
	}

	var count int64
	env.db.Model(&models.Post{}).Count(&count)
	if count != 0 {
		t.Errorf("expected no post rows, got %d", count)
	}
}

func TestPostCreateWithGroupAndImage(t *testing.T) {
	env := newTestEnv(t)
	author := env.createUser(t, "uploader")
	group := env.createGroup(t, "Pictures", "pictures")

	body, contentType := multipartBody(t,
		map[string]string{
			"text":  "Тестовый текст",
			"group": strconv.Itoa(int(group.ID)),
		},
		"image", "small.gif", []byte("GIF87a\x01\x00\x01\x00\x80\x00\x00"))

	rr := env.perform(http.MethodPost, "/create/", env.token(t, author), body, contentType)
	if rr.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d: %s", rr.Code, rr.Body.String())
	}
	if loc := rr.Header().Get("Location"); loc != "/profile/uploader/" {
		t.Errorf("unexpected redirect target %q", loc)
	}

	var post models.Post
	if err := env.db.Order("id DESC").First(&post).Error; err != nil {
		t.Fatalf("expected the post to exist: %v", err)
	}
	if post.Text != "Тестовый текст" {
		t.Errorf("unexpected text %q", post.Text)
	}
	if post.GroupID == nil || *post.GroupID != group.ID {
		t.Errorf("expected group %d, got %v", group.ID, post.GroupID)
	}
	if post.Image != "posts/small.gif" {
		t.Errorf("expected image posts/small.gif, got %q", post.Image)
	}
}

func TestPostCreateRejectsEmptyText(t *testing.T) {
	env := newTestEnv(t)
	author := env.createUser(t, "hasty")

	rr := env.postForm("/create/", env.token(t, author), url.Values{"text": {"   "}})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rr.Code, rr.Body.String())
	}

	var errs map[string]string
	if err := json.Unmarshal(decodeEnvelope(t, rr).Data["errors"], &errs); err != nil {
		t.Fatalf("failed to decode errors: %v", err)
	}
	if errs["text"] == "" {
		t.Errorf("expected a text error, got %v", errs)
	}

	var count int64
	env.db.Model(&models.Post{}).Count(&count)
	if count != 0 {
		t.Errorf("expected no post rows, got %d", count)
	}
}

func TestPostCreateRejectsUnknownGroup(t *testing.T) {
	env := newTestEnv(t)
	author := env.createUser(t, "chooser")

	rr := env.postForm("/create/", env.token(t, author), url.Values{
		"text":  {"valid text"},
		"group": {"999"},
	})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestPostEditByAuthor(t *testing.T) {
	env := newTestEnv(t)
	author := env.createUser(t, "owner")
	post := env.createPost(t, author, "original", time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))

	target := fmt.Sprintf("/posts/%d/edit/", post.ID)
	rr := env.postForm(target, env.token(t, author), url.Values{"text": {"rewritten"}})
	if rr.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d: %s", rr.Code, rr.Body.String())
	}
	if loc := rr.Header().Get("Location"); loc != fmt.Sprintf("/posts/%d/", post.ID) {
		t.Errorf("unexpected redirect target %q", loc)
	}

	var updated models.Post
	env.db.First(&updated, post.ID)
	if updated.Text != "rewritten" {
		t.Errorf("expected text to change, got %q", updated.Text)
	}
	if !updated.PubDate.Equal(post.PubDate) {
		t.Errorf("expected pub_date untouched, got %v", updated.PubDate)
	}
}

func TestPostEditByStrangerIsSilentRedirect(t *testing.T) {
	env := newTestEnv(t)
	author := env.createUser(t, "owner")
	stranger := env.createUser(t, "stranger")
	post := env.createPost(t, author, "original", time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))

	target := fmt.Sprintf("/posts/%d/edit/", post.ID)
	rr := env.postForm(target, env.token(t, stranger), url.Values{"text": {"hijacked"}})
	if rr.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", rr.Code)
	}
	if loc := rr.Header().Get("Location"); loc != fmt.Sprintf("/posts/%d/", post.ID) {
		t.Errorf("unexpected redirect target %q", loc)
	}

	var kept models.Post
	env.db.First(&kept, post.ID)
	if kept.Text != "original" {
		t.Errorf("expected text unchanged, got %q", kept.Text)
	}
}

func TestAddComment(t *testing.T) {
	env := newTestEnv(t)
	author := env.createUser(t, "owner")
	reader := env.createUser(t, "reader")
	post := env.createPost(t, author, "subject", time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))

	target := fmt.Sprintf("/posts/%d/comment/", post.ID)
	rr := env.postForm(target, env.token(t, reader), url.Values{"text": {"nice one"}})
	if rr.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d: %s", rr.Code, rr.Body.String())
	}
	if loc := rr.Header().Get("Location"); loc != fmt.Sprintf("/posts/%d/", post.ID) {
		t.Errorf("unexpected redirect target %q", loc)
	}

	var comment models.Comment
	if err := env.db.Where("post_id = ?", post.ID).First(&comment).Error; err != nil {
		t.Fatalf("expected the comment to exist: %v", err)
	}
	if comment.Text != "nice one" || comment.AuthorID != reader.ID {
		t.Errorf("unexpected comment row: %+v", comment)
	}
}

func TestAddCommentDropsEmptyText(t *testing.T) {
	env := newTestEnv(t)
	author := env.createUser(t, "owner")
	reader := env.createUser(t, "reader")
	post := env.createPost(t, author, "subject", time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))

	target := fmt.Sprintf("/posts/%d/comment/", post.ID)
	rr := env.postForm(target, env.token(t, reader), url.Values{"text": {"   "}})
	if rr.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", rr.Code)
	}

	var count int64
	env.db.Model(&models.Comment{}).Count(&count)
	if count != 0 {
		t.Errorf("expected no comment rows, got %d", count)
	}
}

func TestAddCommentUnknownPost(t *testing.T) {
	env := newTestEnv(t)
	reader := env.createUser(t, "reader")

	rr := env.postForm("/posts/777/comment/", env.token(t, reader), url.Values{"text": {"hello"}})
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}
