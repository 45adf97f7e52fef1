package controllers

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/saminter22/yatube/config"
	"github.com/saminter22/yatube/models"
	"github.com/saminter22/yatube/utils"
)

// PostController serves the post detail page and the authoring flows.
type PostController struct {
	db *gorm.DB
}

// NewPostController creates a PostController.
func NewPostController(db *gorm.DB) *PostController {
	return &PostController{db: db}
}

// postForm carries the validated fields of a create/edit submission.
type postForm struct {
	Text     string
	GroupID  *uint
	Image    string // relative media path, empty when no file was uploaded
	HasImage bool
}

// PostDetail returns one post with its comments, oldest comment first.
func (p *PostController) PostDetail(ctx *gin.Context) {
	postID := ctx.Param("id")

	var post models.Post
	if err := p.db.Preload("Author").Preload("Group").First(&post, postID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.Error(ctx, http.StatusNotFound, 40401, "post not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50021, "failed to load post")
		return
	}

	var comments []models.Comment
	if err := p.db.Where("post_id = ?", post.ID).
		Preload("Author").
		Order("created ASC, id ASC").
		Find(&comments).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50022, "failed to load comments")
		return
	}

	utils.Success(ctx, gin.H{"post": post, "comments": comments})
}

// PostCreate renders the empty authoring form on GET and creates a post on
// POST. The author is always the requester; clients cannot supply it.
func (p *PostController) PostCreate(ctx *gin.Context) {
	if ctx.Request.Method == http.MethodGet {
		groups, err := p.groupChoices()
		if err != nil {
			utils.Error(ctx, http.StatusInternalServerError, 50023, "failed to load groups")
			return
		}
		utils.Success(ctx, gin.H{"groups": groups, "is_edit": false})
		return
	}

	uid, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	form, errs := p.bindPostForm(ctx)
	if len(errs) > 0 {
		utils.FormInvalid(ctx, 40030, errs)
		return
	}

	post := models.Post{
		Text:     form.Text,
		AuthorID: uid,
		GroupID:  form.GroupID,
		Image:    form.Image,
	}
	if err := p.db.Create(&post).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50024, "failed to create post")
		return
	}

	ctx.Redirect(http.StatusFound, "/profile/"+currentUsername(ctx)+"/")
}

// PostEdit mutates an existing post. A requester who is not the author is
// bounced to the detail view without any change; that silent redirect is the
// intended behavior, not an error.
func (p *PostController) PostEdit(ctx *gin.Context) {
	postID := ctx.Param("id")

	var post models.Post
	if err := p.db.First(&post, postID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.Error(ctx, http.StatusNotFound, 40402, "post not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50025, "failed to load post")
		return
	}

	uid, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40111, "unauthorized")
		return
	}
	detailPath := fmt.Sprintf("/posts/%d/", post.ID)
	if post.AuthorID != uid {
		ctx.Redirect(http.StatusFound, detailPath)
		return
	}

	if ctx.Request.Method == http.MethodGet {
		groups, err := p.groupChoices()
		if err != nil {
			utils.Error(ctx, http.StatusInternalServerError, 50026, "failed to load groups")
			return
		}
		utils.Success(ctx, gin.H{"post": post, "groups": groups, "is_edit": true})
		return
	}

	form, errs := p.bindPostForm(ctx)
	if len(errs) > 0 {
		utils.FormInvalid(ctx, 40031, errs)
		return
	}

	// pub_date stays untouched; only the editable columns move.
	updates := map[string]interface{}{
		"text":     form.Text,
		"group_id": form.GroupID,
	}
	if form.HasImage {
		updates["image"] = form.Image
	}
	if err := p.db.Model(&post).Updates(updates).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50027, "failed to update post")
		return
	}

	ctx.Redirect(http.StatusFound, detailPath)
}

// AddComment attaches a comment to a post and returns to its detail view.
// A syntactically invalid submission is dropped and redirected the same way,
// with no feedback to the user.
func (p *PostController) AddComment(ctx *gin.Context) {
	postID := ctx.Param("id")

	var post models.Post
	if err := p.db.First(&post, postID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.Error(ctx, http.StatusNotFound, 40403, "post not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50028, "failed to load post")
		return
	}

	uid, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40112, "unauthorized")
		return
	}

	detailPath := fmt.Sprintf("/posts/%d/", post.ID)

	text := utils.Sanitize(strings.TrimSpace(ctx.PostForm("text")))
	if text == "" {
		if utils.Sugar != nil {
			utils.Sugar.Debugf("dropping empty comment submission post=%d user=%d", post.ID, uid)
		}
		ctx.Redirect(http.StatusFound, detailPath)
		return
	}

	comment := models.Comment{
		Text:     text,
		PostID:   post.ID,
		AuthorID: uid,
	}
	if err := p.db.Create(&comment).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50029, "failed to create comment")
		return
	}

	ctx.Redirect(http.StatusFound, detailPath)
}

// bindPostForm validates a create/edit submission: required text, an optional
// existing group and an optional image upload.
func (p *PostController) bindPostForm(ctx *gin.Context) (postForm, map[string]string) {
	errs := map[string]string{}
	form := postForm{}

	form.Text = utils.Sanitize(strings.TrimSpace(ctx.PostForm("text")))
	if form.Text == "" {
		errs["text"] = "text is required"
	}

	if raw := strings.TrimSpace(ctx.PostForm("group")); raw != "" {
		gid, err := strconv.Atoi(raw)
		if err != nil || gid <= 0 {
			errs["group"] = "select a valid group"
		} else {
			var group models.Group
			if err := p.db.First(&group, gid).Error; err != nil {
				errs["group"] = "select a valid group"
			} else {
				form.GroupID = &group.ID
			}
		}
	}

	file, header, err := ctx.Request.FormFile("image")
	if err == nil {
		defer file.Close()
		form.HasImage = true
		rel, saveErr := saveImage(file, header)
		if saveErr != nil {
			errs["image"] = saveErr.Error()
		} else {
			form.Image = rel
		}
	}

	return form, errs
}

func (p *PostController) groupChoices() ([]models.Group, error) {
	var groups []models.Group
	err := p.db.Order("title ASC").Find(&groups).Error
	return groups, err
}

var imageExtensions = map[string]bool{
	".gif":  true,
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
}

const maxImageSize = 10 * 1024 * 1024

// saveImage stores an uploaded image under <media root>/posts/ keeping the
// original base name, de-duplicating on collision. It returns the relative
// media path, e.g. posts/small.gif.
func saveImage(file multipart.File, header *multipart.FileHeader) (string, error) {
	name := filepath.Base(header.Filename)
	ext := strings.ToLower(filepath.Ext(name))
	if name == "." || name == "" || !imageExtensions[ext] {
		return "", errors.New("upload a valid image")
	}
	if header.Size > maxImageSize {
		return "", errors.New("image exceeds 10MB")
	}

	baseDir := filepath.Join(config.Get().MediaRoot, "posts")
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return "", errors.New("failed to store image")
	}

	dstPath := filepath.Join(baseDir, name)
	if _, err := os.Stat(dstPath); err == nil {
		name = uuid.NewString()[:8] + "_" + name
		dstPath = filepath.Join(baseDir, name)
	}

	out, err := os.Create(dstPath)
	if err != nil {
		return "", errors.New("failed to store image")
	}
	defer out.Close()

	lr := &io.LimitedReader{R: file, N: maxImageSize + 1}
	written, err := io.Copy(out, lr)
	if err != nil || written > maxImageSize {
		_ = os.Remove(dstPath)
		return "", errors.New("failed to store image")
	}

	return "posts/" + name, nil
}
