package controllers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/saminter22/yatube/config"
	"github.com/saminter22/yatube/models"
	"github.com/saminter22/yatube/utils"
)

// AdminController holds the operator-only endpoints: group management and the
// explicit home-feed cache purge.
type AdminController struct {
	db    *gorm.DB
	cache utils.PageCache
}

// NewAdminController creates an AdminController.
func NewAdminController(db *gorm.DB, cache utils.PageCache) *AdminController {
	return &AdminController{db: db, cache: cache}
}

// CreateGroup registers a new topical group.
func (a *AdminController) CreateGroup(ctx *gin.Context) {
	if !isAdmin(ctx) {
		utils.Error(ctx, http.StatusForbidden, 40310, "admin access required")
		return
	}

	var req struct {
		Title       string `json:"title" binding:"required"`
		Slug        string `json:"slug" binding:"required"`
		Description string `json:"description"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40040, "invalid request payload")
		return
	}

	slug := strings.ToLower(strings.TrimSpace(req.Slug))
	if slug == "" || strings.ContainsAny(slug, " /") {
		utils.Error(ctx, http.StatusBadRequest, 40041, "invalid slug")
		return
	}

	var existing models.Group
	if err := a.db.Where("slug = ?", slug).First(&existing).Error; err == nil {
		utils.Error(ctx, http.StatusConflict, 40902, "slug already exists")
		return
	}

	group := models.Group{
		Title:       strings.TrimSpace(req.Title),
		Slug:        slug,
		Description: req.Description,
	}
	if err := a.db.Create(&group).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50050, "failed to create group")
		return
	}

	utils.Success(ctx, gin.H{"group": group})
}

// ClearIndexCache purges every cached home feed page immediately, ahead of
// natural expiry.
func (a *AdminController) ClearIndexCache(ctx *gin.Context) {
	if !isAdmin(ctx) {
		utils.Error(ctx, http.StatusForbidden, 40311, "admin access required")
		return
	}

	a.cache.Clear(IndexCachePrefix)
	utils.Success(ctx, gin.H{"message": "index cache cleared"})
}

func isAdmin(ctx *gin.Context) bool {
	uname := currentUsername(ctx)
	if uname == "" {
		return false
	}
	for _, u := range config.Get().AdminUsernames {
		if strings.EqualFold(strings.TrimSpace(u), uname) {
			return true
		}
	}
	return false
}
