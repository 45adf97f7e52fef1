package controllers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/saminter22/yatube/config"
	"github.com/saminter22/yatube/middleware"
	"github.com/saminter22/yatube/models"
	"github.com/saminter22/yatube/utils"
)

// IndexCachePrefix keys every cached home feed page. The explicit purge
// clears the whole prefix.
const IndexCachePrefix = "index_page"

// FeedController builds the paginated post listings: home feed, group feed,
// author profile feed, and the followed-authors feed.
type FeedController struct {
	db    *gorm.DB
	cache utils.PageCache
}

// NewFeedController creates a FeedController. The cache is a capability the
// caller supplies; only the home feed uses it.
func NewFeedController(db *gorm.DB, cache utils.PageCache) *FeedController {
	return &FeedController{db: db, cache: cache}
}

// Index returns one page of all posts, newest first. The whole rendered
// response is cached for the configured window; within it, stale content is
// served verbatim regardless of writes.
func (f *FeedController) Index(ctx *gin.Context) {
	pageNum := 1
	if n, err := strconv.Atoi(ctx.Query("page")); err == nil && n > 0 {
		pageNum = n
	}
	cacheKey := fmt.Sprintf("%s:page=%d", IndexCachePrefix, pageNum)
	if b, ok := f.cache.GetBytes(cacheKey); ok {
		ctx.Data(http.StatusOK, "application/json", b)
		return
	}

	var total int64
	if err := f.db.Model(&models.Post{}).Count(&total).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50010, "failed to count posts")
		return
	}
	page := utils.GetPage(ctx.Query("page"), total, config.Get().PageSize)

	posts, err := f.listPosts(f.db, page)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50011, "failed to list posts")
		return
	}

	body, err := json.Marshal(utils.JSONResponse{
		Code:    0,
		Message: "success",
		Data:    gin.H{"items": posts, "pagination": page},
	})
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50012, "failed to render feed")
		return
	}

	ttl := time.Duration(config.Get().IndexCacheTTLSeconds) * time.Second
	f.cache.SetBytes(cacheKey, body, ttl)
	ctx.Data(http.StatusOK, "application/json", body)
}

// GroupPosts lists the posts of one group resolved by slug.
func (f *FeedController) GroupPosts(ctx *gin.Context) {
	slug := ctx.Param("slug")

	var group models.Group
	if err := f.db.Where("slug = ?", slug).First(&group).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.Error(ctx, http.StatusNotFound, 40410, "group not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50013, "failed to load group")
		return
	}

	scoped := f.db.Where("group_id = ?", group.ID)
	var total int64
	if err := scoped.Model(&models.Post{}).Count(&total).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50014, "failed to count group posts")
		return
	}
	page := utils.GetPage(ctx.Query("page"), total, config.Get().PageSize)

	posts, err := f.listPosts(scoped, page)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50015, "failed to list group posts")
		return
	}

	utils.Success(ctx, gin.H{"group": group, "items": posts, "pagination": page})
}

// Profile lists an author's posts and reports whether the requester already
// follows them. Anonymous viewers always see following=false.
func (f *FeedController) Profile(ctx *gin.Context) {
	username := ctx.Param("username")

	var author models.User
	if err := f.db.Where("username = ?", username).First(&author).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.Error(ctx, http.StatusNotFound, 40411, "user not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50016, "failed to load user")
		return
	}

	scoped := f.db.Where("author_id = ?", author.ID)
	var total int64
	if err := scoped.Model(&models.Post{}).Count(&total).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50017, "failed to count user posts")
		return
	}
	page := utils.GetPage(ctx.Query("page"), total, config.Get().PageSize)

	posts, err := f.listPosts(scoped, page)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50018, "failed to list user posts")
		return
	}

	following := false
	if uid, ok := getUserID(ctx); ok {
		var cnt int64
		if err := f.db.Model(&models.Follow{}).
			Where("user_id = ? AND author_id = ?", uid, author.ID).
			Count(&cnt).Error; err == nil {
			following = cnt > 0
		}
	}

	utils.Success(ctx, gin.H{
		"author":      author,
		"following":   following,
		"items":       posts,
		"pagination":  page,
		"posts_count": total,
	})
}

// FollowIndex lists posts authored by anyone the requester follows.
func (f *FeedController) FollowIndex(ctx *gin.Context) {
	uid, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	scoped := f.db.
		Joins("JOIN follows ON follows.author_id = posts.author_id").
		Where("follows.user_id = ?", uid)

	var total int64
	if err := scoped.Model(&models.Post{}).Count(&total).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50019, "failed to count followed posts")
		return
	}
	page := utils.GetPage(ctx.Query("page"), total, config.Get().PageSize)

	var posts []models.Post
	err := scoped.Model(&models.Post{}).
		Preload("Author").Preload("Group").
		Order("pub_date DESC, posts.id DESC").
		Offset(page.Offset()).Limit(page.PageSize).
		Find(&posts).Error
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50020, "failed to list followed posts")
		return
	}

	utils.Success(ctx, gin.H{"items": posts, "pagination": page})
}

// listPosts fetches one page of posts under the given scope, newest first.
func (f *FeedController) listPosts(scope *gorm.DB, page utils.Page) ([]models.Post, error) {
	var posts []models.Post
	err := scope.Model(&models.Post{}).
		Preload("Author").Preload("Group").
		Order("pub_date DESC, id DESC").
		Offset(page.Offset()).Limit(page.PageSize).
		Find(&posts).Error
	return posts, err
}

func getUserID(ctx *gin.Context) (uint, bool) {
	value, exists := ctx.Get(middleware.ContextUserIDKey)
	if !exists {
		return 0, false
	}
	uid, ok := value.(uint)
	return uid, ok
}

func currentUsername(ctx *gin.Context) string {
	value, exists := ctx.Get(middleware.ContextUsernameKey)
	if !exists {
		return ""
	}
	name, _ := value.(string)
	return name
}
