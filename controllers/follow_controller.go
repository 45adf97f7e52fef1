package controllers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/saminter22/yatube/models"
	"github.com/saminter22/yatube/utils"
)

// FollowController toggles the directed follow relationship between users.
// Both operations are idempotent and both end on the author's profile.
type FollowController struct {
	db *gorm.DB
}

// NewFollowController creates a FollowController.
func NewFollowController(db *gorm.DB) *FollowController {
	return &FollowController{db: db}
}

// ProfileFollow subscribes the requester to an author. Following yourself is
// a no-op redirect; following twice leaves a single row, guarded by the
// unique (user_id, author_id) index.
func (f *FollowController) ProfileFollow(ctx *gin.Context) {
	author, ok := f.resolveAuthor(ctx)
	if !ok {
		return
	}

	uid, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40113, "unauthorized")
		return
	}

	profilePath := "/profile/" + author.Username + "/"
	if uid == author.ID {
		ctx.Redirect(http.StatusFound, profilePath)
		return
	}

	var existing models.Follow
	err := f.db.Where("user_id = ? AND author_id = ?", uid, author.ID).First(&existing).Error
	if err == gorm.ErrRecordNotFound {
		follow := models.Follow{UserID: uid, AuthorID: author.ID}
		if createErr := f.db.Create(&follow).Error; createErr != nil && !isDuplicateKey(createErr) {
			utils.Error(ctx, http.StatusInternalServerError, 50040, "failed to follow")
			return
		}
	} else if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50041, "failed to follow")
		return
	}

	ctx.Redirect(http.StatusFound, profilePath)
}

// ProfileUnfollow removes the subscription if present; unfollowing someone
// you never followed is safe.
func (f *FollowController) ProfileUnfollow(ctx *gin.Context) {
	author, ok := f.resolveAuthor(ctx)
	if !ok {
		return
	}

	uid, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40114, "unauthorized")
		return
	}

	if err := f.db.Where("user_id = ? AND author_id = ?", uid, author.ID).
		Delete(&models.Follow{}).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50042, "failed to unfollow")
		return
	}

	ctx.Redirect(http.StatusFound, "/profile/"+author.Username+"/")
}

func (f *FollowController) resolveAuthor(ctx *gin.Context) (models.User, bool) {
	username := ctx.Param("username")

	var author models.User
	if err := f.db.Where("username = ?", username).First(&author).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.Error(ctx, http.StatusNotFound, 40412, "user not found")
			return author, false
		}
		utils.Error(ctx, http.StatusInternalServerError, 50043, "failed to load user")
		return author, false
	}
	return author, true
}

// isDuplicateKey spots unique-index violations from concurrent follow
// requests; the row already existing is exactly the desired outcome.
func isDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate") || strings.Contains(msg, "unique")
}
