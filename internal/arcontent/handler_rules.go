package arcontent

import (
	"errors"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vertex-ar/backend/internal/models"
	"github.com/vertex-ar/backend/internal/selection"
	"github.com/vertex-ar/backend/pkg/events"
	"github.com/vertex-ar/backend/pkg/response"
)

// RotationRuleRequest is the body for PUT /ar-content/:id/rotation-rule.
type RotationRuleRequest struct {
	Name           string            `json:"name"`
	RotationType   string            `json:"rotation_type" binding:"required"`
	DefaultVideoID *uuid.UUID        `json:"default_video_id"`
	VideoSequence  []uuid.UUID       `json:"video_sequence"`
	DateRules      []models.DateRule `json:"date_rules"`
	RandomSeed     *string           `json:"random_seed"`
}

// CreateScheduleRequest is the body for POST /videos/:id/schedules.
type CreateScheduleRequest struct {
	StartTime   time.Time `json:"start_time" binding:"required"`
	EndTime     time.Time `json:"end_time" binding:"required"`
	Status      string    `json:"status"`
	Description string    `json:"description"`
}

// ScheduleView is a schedule with whether its window contains now.
type ScheduleView struct {
	models.VideoSchedule
	Open bool `json:"open"`
}

// GetRotationRule handles GET /ar-content/:id/rotation-rule.
func (h *Handler) GetRotationRule(c *gin.Context) {
	id, ok := parseID(c, "id", "invalid ar content id")
	if !ok {
		return
	}
	rule, err := h.rules.GetActiveRotationRule(c.Request.Context(), id)
	if err != nil {
		h.respondStoreError(c, err, "ar content not found", "get rotation rule failed")
		return
	}
	if rule == nil {
		response.NotFound(c, "no active rotation rule")
		return
	}
	response.OK(c, rule)
}

// PutRotationRule handles PUT /ar-content/:id/rotation-rule. The new rule replaces any active one.
func (h *Handler) PutRotationRule(c *gin.Context) {
	id, ok := parseID(c, "id", "invalid ar content id")
	if !ok {
		return
	}
	var req RotationRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	ctx := c.Request.Context()
	if _, err := h.content.GetARContent(ctx, id); err != nil {
		h.respondStoreError(c, err, "ar content not found", "get ar content failed")
		return
	}
	videos, err := h.content.ListVideos(ctx, id)
	if err != nil {
		h.respondStoreError(c, err, "ar content not found", "list videos failed")
		return
	}

	rule := &models.RotationRule{
		ARContentID:    id,
		Name:           strings.TrimSpace(req.Name),
		RotationType:   models.RotationRuleType(req.RotationType),
		DefaultVideoID: req.DefaultVideoID,
		VideoSequence:  req.VideoSequence,
		DateRules:      req.DateRules,
		RandomSeed:     req.RandomSeed,
	}
	if err := ValidateRule(rule, videos); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if err := h.rules.ReplaceActiveRule(ctx, rule); err != nil {
		h.respondStoreError(c, err, "ar content not found", "replace rotation rule failed")
		return
	}
	h.logger.Info("rotation rule replaced", zap.String("ar_content_id", id.String()),
		zap.String("rule_id", rule.ID.String()), zap.String("rotation_type", string(rule.RotationType)), operatorField(c))
	h.publish(ctx, id, events.EventRotationRuleChanged, gin.H{"rule_id": rule.ID, "rotation_type": rule.RotationType})
	response.OK(c, rule)
}

// DeleteRotationRule handles DELETE /ar-content/:id/rotation-rule.
func (h *Handler) DeleteRotationRule(c *gin.Context) {
	id, ok := parseID(c, "id", "invalid ar content id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	n, err := h.rules.DeactivateRules(ctx, id)
	if err != nil {
		h.respondStoreError(c, err, "ar content not found", "deactivate rotation rule failed")
		return
	}
	if n == 0 {
		response.NotFound(c, "no active rotation rule")
		return
	}
	h.publish(ctx, id, events.EventRotationRuleChanged, gin.H{"rule_id": nil})
	response.NoContent(c)
}

// ListSchedules handles GET /videos/:id/schedules. With ?open=true only windows containing now are listed.
func (h *Handler) ListSchedules(c *gin.Context) {
	id, ok := parseID(c, "id", "invalid video id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	if _, err := h.content.GetVideo(ctx, id); err != nil {
		h.respondStoreError(c, err, "video not found", "get video failed")
		return
	}
	now := h.clock.Now()
	var (
		list []models.VideoSchedule
		err  error
	)
	if c.Query("open") == "true" {
		list, err = h.selector.OpenSchedulesForVideo(ctx, id, now)
	} else {
		list, err = h.rules.GetSchedulesForVideo(ctx, id)
	}
	if err != nil {
		h.respondStoreError(c, err, "video not found", "list schedules failed")
		return
	}
	out := make([]ScheduleView, 0, len(list))
	for _, s := range list {
		out = append(out, ScheduleView{VideoSchedule: s, Open: selection.ScheduleOpen(s, now)})
	}
	response.OK(c, out)
}

// CreateSchedule handles POST /videos/:id/schedules.
func (h *Handler) CreateSchedule(c *gin.Context) {
	id, ok := parseID(c, "id", "invalid video id")
	if !ok {
		return
	}
	var req CreateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if req.EndTime.Before(req.StartTime) {
		response.BadRequest(c, "end_time must not be before start_time")
		return
	}
	status := req.Status
	if status == "" {
		status = models.ScheduleStatusActive
	}
	if status != models.ScheduleStatusActive && status != models.ScheduleStatusInactive {
		response.BadRequest(c, "status must be active or inactive")
		return
	}
	ctx := c.Request.Context()
	v, err := h.content.GetVideo(ctx, id)
	if err != nil {
		h.respondStoreError(c, err, "video not found", "get video failed")
		return
	}
	start, end := req.StartTime, req.EndTime
	s := &models.VideoSchedule{
		VideoID:     id,
		StartTime:   &start,
		EndTime:     &end,
		Status:      status,
		Description: req.Description,
	}
	if err := h.rules.CreateSchedule(ctx, s); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			response.NotFound(c, "video not found")
			return
		}
		h.logger.Error("create schedule failed", zap.String("video_id", id.String()), zap.Error(err))
		response.Internal(c, "failed to create schedule")
		return
	}
	h.publish(ctx, v.ARContentID, events.EventVideoUpdated, gin.H{"video_id": id, "schedule_id": s.ID})
	response.Created(c, ScheduleView{VideoSchedule: *s, Open: selection.ScheduleOpen(*s, h.clock.Now())})
}
