package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jinzhu/copier"
	"github.com/pkg/errors"

	"github.com/Luismorlan/postwall/model"
	"github.com/Luismorlan/postwall/panoptic/modules"
	"github.com/Luismorlan/postwall/store"
	. "github.com/Luismorlan/postwall/utils/log"
)

const (
	ServiceTitle   = "Postwall API"
	ServiceVersion = "1.0.0"
)

// PostResponse is the public representation of a post.
type PostResponse struct {
	Id                uint64     `json:"id"`
	PostId            string     `json:"post_id"`
	Text              string     `json:"text"`
	AuthorHandle      string     `json:"author_handle"`
	AuthorName        string     `json:"author_name"`
	CreatedAtProvider time.Time  `json:"created_at_provider"`
	MediaUrl          *string    `json:"media_url"`
	Url               string     `json:"url"`
	IsDisplayed       bool       `json:"is_displayed"`
	DisplayedAt       *time.Time `json:"displayed_at"`
	FetchedAt         time.Time  `json:"fetched_at"`
}

func NewPostResponse(post *model.Post) (*PostResponse, error) {
	res := &PostResponse{}
	if err := copier.Copy(res, post); err != nil {
		return nil, errors.Wrap(err, "fail to build post response")
	}
	return res, nil
}

type createHandleRequest struct {
	Handle   string `json:"handle" binding:"required"`
	IsActive *bool  `json:"is_active"`
}

func detail(c *gin.Context, code int, msg string) {
	c.JSON(code, gin.H{"detail": msg})
}

func internalError(c *gin.Context, err error) {
	Log.WithError(err).Errorf("%s %s failed", c.Request.Method, c.FullPath())
	detail(c, http.StatusInternalServerError, "Internal server error")
}

func parseHandleId(c *gin.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		detail(c, http.StatusBadRequest, "Invalid handle id")
		return 0, false
	}
	return id, true
}

// handleAdminError maps store and validation errors of handle operations.
func handleAdminError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, store.ErrHandleNotFound):
		detail(c, http.StatusNotFound, "Handle not found")
	case errors.Is(err, store.ErrHandleExists):
		detail(c, http.StatusBadRequest, "Handle already exists")
	case errors.Is(err, ErrInvalidHandle):
		detail(c, http.StatusBadRequest, err.Error())
	default:
		internalError(c, err)
	}
}

func RootHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": ServiceTitle,
			"version": ServiceVersion,
			"endpoints": gin.H{
				"posts":   "/api/posts",
				"handles": "/api/handles",
			},
		})
	}
}

func HealthHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := svc.Ping(c.Request.Context()); err != nil {
			Log.WithError(err).Warn("health check failed")
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "database": "disconnected"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "database": "connected"})
	}
}

func NextPostHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		post, err := svc.Display.GetNextUndisplayed(c.Request.Context())
		if errors.Is(err, ErrNoPostAvailable) {
			detail(c, http.StatusNotFound, "No undisplayed posts available")
			return
		}
		if err != nil {
			internalError(c, err)
			return
		}
		res, err := NewPostResponse(post)
		if err != nil {
			internalError(c, err)
			return
		}
		c.JSON(http.StatusOK, res)
	}
}

func MarkDisplayedHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		postId := c.Param("post_id")
		_, err := svc.Display.AcknowledgeDisplayed(c.Request.Context(), postId)
		if errors.Is(err, store.ErrPostNotFound) {
			detail(c, http.StatusNotFound, "Post not found")
			return
		}
		if err != nil {
			internalError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Post marked as displayed", "post_id": postId})
	}
}

func StatsHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		stats, err := svc.Display.GetStats(c.Request.Context())
		if err != nil {
			internalError(c, err)
			return
		}
		c.JSON(http.StatusOK, stats)
	}
}

func RefreshHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		stats, err := svc.FetchAndStore(c.Request.Context())
		if err != nil {
			internalError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Post refresh completed", "stats": stats})
	}
}

func ManualRefreshHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		err := svc.TriggerManualFetch()
		switch {
		case errors.Is(err, ErrSchedulerUnavailable):
			c.JSON(http.StatusServiceUnavailable, gin.H{"message": "Scheduler not initialized"})
			return
		case errors.Is(err, modules.ErrSchedulerStopped):
			c.JSON(http.StatusServiceUnavailable, gin.H{"message": "Scheduler is shutting down"})
			return
		case err != nil:
			internalError(c, err)
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"message": "Manual refresh triggered"})
	}
}

func SchedulerStatusHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		status, err := svc.SchedulerStatus()
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"message": "Scheduler not initialized"})
			return
		}
		c.JSON(http.StatusOK, status)
	}
}

func ListHandlesHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		handles, err := svc.Handles.List(c.Request.Context())
		if err != nil {
			internalError(c, err)
			return
		}
		c.JSON(http.StatusOK, handles)
	}
}

func CreateHandleHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createHandleRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			detail(c, http.StatusBadRequest, err.Error())
			return
		}
		isActive := true
		if req.IsActive != nil {
			isActive = *req.IsActive
		}
		handle, err := svc.Handles.Create(c.Request.Context(), req.Handle, isActive)
		if err != nil {
			handleAdminError(c, err)
			return
		}
		c.JSON(http.StatusOK, handle)
	}
}

func UpdateHandleHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseHandleId(c)
		if !ok {
			return
		}
		var update HandleUpdate
		if err := c.ShouldBindJSON(&update); err != nil {
			detail(c, http.StatusBadRequest, err.Error())
			return
		}
		handle, err := svc.Handles.Update(c.Request.Context(), id, update)
		if err != nil {
			handleAdminError(c, err)
			return
		}
		c.JSON(http.StatusOK, handle)
	}
}

func DeleteHandleHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseHandleId(c)
		if !ok {
			return
		}
		if err := svc.Handles.Delete(c.Request.Context(), id); err != nil {
			handleAdminError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Handle deleted successfully", "id": id})
	}
}

func ToggleHandleHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseHandleId(c)
		if !ok {
			return
		}
		handle, err := svc.Handles.Toggle(c.Request.Context(), id)
		if err != nil {
			handleAdminError(c, err)
			return
		}
		c.JSON(http.StatusOK, handle)
	}
}
