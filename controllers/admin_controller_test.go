package controllers_test

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/saminter22/yatube/controllers"
	"github.com/saminter22/yatube/models"
)

func TestCreateGroupAsAdmin(t *testing.T) {
	env := newTestEnv(t)
	admin := env.createUser(t, "admin")

	rr := env.postJSON("/internal/groups/", env.token(t, admin), map[string]string{
		"title":       "Elm City",
		"slug":        "Elm-City",
		"description": "town gossip",
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var group models.Group
	if err := json.Unmarshal(decodeEnvelope(t, rr).Data["group"], &group); err != nil {
		t.Fatalf("failed to decode group: %v", err)
	}
	if group.Slug != "elm-city" {
		t.Errorf("expected lowercased slug, got %q", group.Slug)
	}

	rr = env.postJSON("/internal/groups/", env.token(t, admin), map[string]string{
		"title": "Elm City Again",
		"slug":  "elm-city",
	})
	if rr.Code != http.StatusConflict {
		t.Errorf("duplicate slug: expected 409, got %d", rr.Code)
	}
}

func TestCreateGroupForbiddenForNonAdmin(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "plain")

	rr := env.postJSON("/internal/groups/", env.token(t, user), map[string]string{
		"title": "Nope",
		"slug":  "nope",
	})
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rr.Code)
	}

	var count int64
	env.db.Model(&models.Group{}).Count(&count)
	if count != 0 {
		t.Errorf("expected no group rows, got %d", count)
	}
}

func TestCreateGroupRejectsAnonymous(t *testing.T) {
	env := newTestEnv(t)

	rr := env.postJSON("/internal/groups/", "", map[string]string{
		"title": "Nope",
		"slug":  "nope",
	})
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
}

func TestClearIndexCacheEndpoint(t *testing.T) {
	env := newTestEnv(t)
	admin := env.createUser(t, "admin")
	author := env.createUser(t, "author")
	env.createPost(t, author, "before purge", time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))

	// Warm the cache, then write behind it
	env.get("/", "")
	env.createPost(t, author, "after purge", time.Date(2024, 5, 1, 13, 0, 0, 0, time.UTC))

	rr := env.postJSON("/internal/cache/clear/", env.token(t, admin), nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if _, ok := env.cache.GetBytes(controllers.IndexCachePrefix + ":page=1"); ok {
		t.Error("expected the cached page to be gone")
	}

	fresh := env.get("/", "")
	items := decodeItems(t, decodeEnvelope(t, fresh))
	if len(items) != 2 || items[0].Text != "after purge" {
		t.Fatalf("expected the new post after purge, got %+v", items)
	}
}
