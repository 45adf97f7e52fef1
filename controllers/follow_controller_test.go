package controllers_test

import (
	"net/http"
	"testing"

	"github.com/saminter22/yatube/models"
)

func TestProfileFollow(t *testing.T) {
	env := newTestEnv(t)
	author := env.createUser(t, "author")
	reader := env.createUser(t, "reader")
	token := env.token(t, reader)

	rr := env.get("/profile/author/follow/", token)
	if rr.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d: %s", rr.Code, rr.Body.String())
	}
	if loc := rr.Header().Get("Location"); loc != "/profile/author/" {
		t.Errorf("unexpected redirect target %q", loc)
	}

	var count int64
	env.db.Model(&models.Follow{}).
		Where("user_id = ? AND author_id = ?", reader.ID, author.ID).
		Count(&count)
	if count != 1 {
		t.Fatalf("expected one follow row, got %d", count)
	}

	// Following twice stays a single row
	env.get("/profile/author/follow/", token)
	env.db.Model(&models.Follow{}).
		Where("user_id = ? AND author_id = ?", reader.ID, author.ID).
		Count(&count)
	if count != 1 {
		t.Errorf("expected follow to stay unique, got %d rows", count)
	}
}

func TestProfileFollowSelfIsNoOp(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "narcissist")

	rr := env.get("/profile/narcissist/follow/", env.token(t, user))
	if rr.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", rr.Code)
	}
	if loc := rr.Header().Get("Location"); loc != "/profile/narcissist/" {
		t.Errorf("unexpected redirect target %q", loc)
	}

	var count int64
	env.db.Model(&models.Follow{}).Count(&count)
	if count != 0 {
		t.Errorf("expected no follow rows, got %d", count)
	}
}

func TestProfileFollowUnknownAuthor(t *testing.T) {
	env := newTestEnv(t)
	reader := env.createUser(t, "reader")

	rr := env.get("/profile/ghost/follow/", env.token(t, reader))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

func TestProfileUnfollow(t *testing.T) {
	env := newTestEnv(t)
	author := env.createUser(t, "author")
	reader := env.createUser(t, "reader")
	if err := env.db.Create(&models.Follow{UserID: reader.ID, AuthorID: author.ID}).Error; err != nil {
		t.Fatalf("failed to create follow: %v", err)
	}
	token := env.token(t, reader)

	rr := env.get("/profile/author/unfollow/", token)
	if rr.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", rr.Code)
	}

	var count int64
	env.db.Model(&models.Follow{}).Count(&count)
	if count != 0 {
		t.Fatalf("expected follow row removed, got %d", count)
	}

	// Unfollowing again is harmless
	rr = env.get("/profile/author/unfollow/", token)
	if rr.Code != http.StatusFound {
		t.Errorf("expected 302 on repeat unfollow, got %d", rr.Code)
	}
}

func TestFollowRequiresLogin(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "author")

	rr := env.get("/profile/author/follow/", "")
	if rr.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", rr.Code)
	}
	if loc := rr.Header().Get("Location"); loc != "/auth/login/?next=%2Fprofile%2Fauthor%2Ffollow%2F" {
		t.Errorf("unexpected redirect target %q", loc)
	}
}
