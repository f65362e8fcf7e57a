package arcontent

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vertex-ar/backend/internal/models"
	"github.com/vertex-ar/backend/internal/selection"
	"github.com/vertex-ar/backend/pkg/events"
	"github.com/vertex-ar/backend/pkg/response"
)

// VideoStatusView is a video with its computed subscription status.
type VideoStatusView struct {
	models.Video
	Status          selection.Status `json:"status"`
	DaysRemaining   *int             `json:"days_remaining"`
	IsStoredDefault bool             `json:"is_stored_default"`
}

// SetActiveVideoRequest is the body for PATCH /ar-content/:id/active-video. A null video_id clears the default.
type SetActiveVideoRequest struct {
	VideoID *uuid.UUID `json:"video_id"`
}

// UpdateRotationRequest is the body for PATCH /videos/:id/rotation.
type UpdateRotationRequest struct {
	RotationType   *string `json:"rotation_type"`
	RotationOrder  *int    `json:"rotation_order"`
	RotationWeight *int    `json:"rotation_weight"`
}

// ListVideos handles GET /ar-content/:id/videos.
func (h *Handler) ListVideos(c *gin.Context) {
	id, ok := parseID(c, "id", "invalid ar content id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	item, err := h.content.GetARContent(ctx, id)
	if err != nil {
		h.respondStoreError(c, err, "ar content not found", "get ar content failed")
		return
	}
	videos, err := h.content.ListVideos(ctx, id)
	if err != nil {
		h.respondStoreError(c, err, "ar content not found", "list videos failed")
		return
	}
	now := h.clock.Now()
	out := make([]VideoStatusView, 0, len(videos))
	for i := range videos {
		v := &videos[i]
		out = append(out, VideoStatusView{
			Video:           *v,
			Status:          selection.VideoStatus(v, now),
			DaysRemaining:   selection.DaysRemaining(v, now),
			IsStoredDefault: item.ActiveVideoID != nil && *item.ActiveVideoID == v.ID,
		})
	}
	response.OK(c, out)
}

// SetActiveVideo handles PATCH /ar-content/:id/active-video. Resets the rotation cursor.
func (h *Handler) SetActiveVideo(c *gin.Context) {
	id, ok := parseID(c, "id", "invalid ar content id")
	if !ok {
		return
	}
	var req SetActiveVideoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	ctx := c.Request.Context()
	if err := h.content.SetActiveVideo(ctx, id, req.VideoID); err != nil {
		if errors.Is(err, ErrVideoNotOwned) {
			response.BadRequest(c, err.Error())
			return
		}
		h.respondStoreError(c, err, "ar content or video not found", "set active video failed")
		return
	}
	h.logger.Info("active video changed", zap.String("ar_content_id", id.String()), zap.Any("video_id", req.VideoID), operatorField(c))
	h.publish(ctx, id, events.EventActiveVideoChanged, gin.H{"video_id": req.VideoID})
	response.OK(c, gin.H{"ar_content_id": id, "video_id": req.VideoID, "rotation_state": 0})
}

// UpdateVideoRotation handles PATCH /videos/:id/rotation. Changing rotation_type resets the
// owning item's rotation cursor.
func (h *Handler) UpdateVideoRotation(c *gin.Context) {
	id, ok := parseID(c, "id", "invalid video id")
	if !ok {
		return
	}
	var req UpdateRotationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	var upd VideoRotationUpdate
	if req.RotationType != nil {
		t := models.VideoRotationType(*req.RotationType)
		if !t.Valid() {
			response.BadRequest(c, "rotation_type must be one of none, sequential, cyclic")
			return
		}
		upd.RotationType = &t
	}
	if req.RotationWeight != nil && *req.RotationWeight < 0 {
		response.BadRequest(c, "rotation_weight must not be negative")
		return
	}
	upd.RotationOrder = req.RotationOrder
	upd.RotationWeight = req.RotationWeight
	if upd.RotationType == nil && upd.RotationOrder == nil && upd.RotationWeight == nil {
		response.BadRequest(c, "nothing to update")
		return
	}

	ctx := c.Request.Context()
	v, err := h.content.UpdateVideoRotation(ctx, id, upd)
	if err != nil {
		h.respondStoreError(c, err, "video not found", "update video rotation failed")
		return
	}
	h.publish(ctx, v.ARContentID, events.EventVideoUpdated, gin.H{"video_id": v.ID})
	response.OK(c, v)
}

// ToggleVideo handles PATCH /videos/:id/toggle.
func (h *Handler) ToggleVideo(c *gin.Context) {
	id, ok := parseID(c, "id", "invalid video id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	v, err := h.content.GetVideo(ctx, id)
	if err != nil {
		h.respondStoreError(c, err, "video not found", "get video failed")
		return
	}
	active, err := h.content.ToggleVideoActive(ctx, id)
	if err != nil {
		h.respondStoreError(c, err, "video not found", "toggle video failed")
		return
	}
	h.publish(ctx, v.ARContentID, events.EventVideoUpdated, gin.H{"video_id": id, "is_active": active})
	response.OK(c, gin.H{"id": id, "is_active": active})
}

// DeleteVideo handles DELETE /videos/:id. The stored object is removed best-effort.
func (h *Handler) DeleteVideo(c *gin.Context) {
	id, ok := parseID(c, "id", "invalid video id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	v, err := h.content.DeleteVideo(ctx, id)
	if err != nil {
		h.respondStoreError(c, err, "video not found", "delete video failed")
		return
	}
	if h.storage != nil && v.S3Key != "" {
		if err := h.storage.DeleteVideo(ctx, v.S3Key); err != nil {
			h.logger.Warn("delete video object failed", zap.String("video_id", id.String()), zap.String("s3_key", v.S3Key), zap.Error(err))
		}
	}
	h.logger.Info("video deleted", zap.String("video_id", id.String()), zap.String("ar_content_id", v.ARContentID.String()), operatorField(c))
	h.publish(ctx, v.ARContentID, events.EventVideoUpdated, gin.H{"video_id": id, "deleted": true})
	response.NoContent(c)
}

func (h *Handler) respondStoreError(c *gin.Context, err error, notFoundMsg, logMsg string) {
	if errors.Is(err, models.ErrNotFound) {
		response.NotFound(c, notFoundMsg)
		return
	}
	h.logger.Error(logMsg, zap.String("path", c.Request.URL.Path), zap.Error(err))
	response.Internal(c, "internal error")
}
