package arcontent

import (
	"context"
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vertex-ar/backend/internal/middleware"
	"github.com/vertex-ar/backend/internal/models"
	"github.com/vertex-ar/backend/internal/selection"
	"github.com/vertex-ar/backend/pkg/response"
)

const dateLayout = "2006-01-02"

// VideoSelector runs the selection priority chain.
type VideoSelector interface {
	SelectActiveVideo(ctx context.Context, arContentID uuid.UUID, overrideDate *time.Time) (*selection.Selection, error)
	PreviewActiveVideo(ctx context.Context, arContentID uuid.UUID, date *time.Time) (*selection.Selection, error)
	OpenSchedulesForVideo(ctx context.Context, videoID uuid.UUID, now time.Time) ([]models.VideoSchedule, error)
}

// ContentStore is the AR content persistence used by the handlers.
type ContentStore interface {
	GetARContent(ctx context.Context, id uuid.UUID) (*models.ARContent, error)
	GetVideo(ctx context.Context, id uuid.UUID) (*models.Video, error)
	ListVideos(ctx context.Context, arContentID uuid.UUID) ([]models.Video, error)
	SetActiveVideo(ctx context.Context, arContentID uuid.UUID, videoID *uuid.UUID) error
	UpdateVideoRotation(ctx context.Context, videoID uuid.UUID, upd VideoRotationUpdate) (*models.Video, error)
	ToggleVideoActive(ctx context.Context, videoID uuid.UUID) (bool, error)
	DeleteVideo(ctx context.Context, videoID uuid.UUID) (*models.Video, error)
}

// VideoStorage resolves playback URLs and removes stored objects.
type VideoStorage interface {
	PlaybackURL(ctx context.Context, s3Key, fileURL string) (string, error)
	DeleteVideo(ctx context.Context, key string) error
}

// EventPublisher notifies listeners of content changes.
type EventPublisher interface {
	PublishContentEvent(ctx context.Context, arContentID uuid.UUID, event string, payload any) error
}

// Handler serves the viewer and operator endpoints for AR content.
type Handler struct {
	selector VideoSelector
	content  ContentStore
	rules    RuleStore
	storage  VideoStorage
	events   EventPublisher
	clock    selection.Clock
	logger   *zap.Logger
}

// NewHandler creates an AR content handler. storage and events may be nil.
func NewHandler(selector VideoSelector, content ContentStore, rules RuleStore, storage VideoStorage, events EventPublisher, clock selection.Clock, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if clock == nil {
		clock = selection.NewSystemClock(time.UTC)
	}
	return &Handler{selector: selector, content: content, rules: rules, storage: storage, events: events, clock: clock, logger: logger}
}

// VideoResponse is what a viewer receives for an AR content item.
type VideoResponse struct {
	VideoID       uuid.UUID        `json:"video_id"`
	Title         string           `json:"title"`
	PlaybackURL   string           `json:"playback_url"`
	Source        selection.Source `json:"source"`
	ScheduleID    *uuid.UUID       `json:"schedule_id,omitempty"`
	ExpiresInDays *int             `json:"expires_in_days,omitempty"`
	CheckDate     string           `json:"check_date"`
}

// GetActiveVideo handles GET /ar/:id/video (public).
func (h *Handler) GetActiveVideo(c *gin.Context) {
	id, ok := parseID(c, "id", "invalid ar content id")
	if !ok {
		return
	}
	sel, err := h.selector.SelectActiveVideo(c.Request.Context(), id, nil)
	h.respondSelection(c, id, sel, err)
}

// PreviewActiveVideo handles GET /ar-content/:id/video/preview?date=YYYY-MM-DD (operator).
// The preview never advances legacy rotation.
func (h *Handler) PreviewActiveVideo(c *gin.Context) {
	id, ok := parseID(c, "id", "invalid ar content id")
	if !ok {
		return
	}
	var date *time.Time
	if raw := c.Query("date"); raw != "" {
		d, err := time.Parse(dateLayout, raw)
		if err != nil {
			response.BadRequest(c, "invalid date: expected YYYY-MM-DD")
			return
		}
		date = &d
	}
	sel, err := h.selector.PreviewActiveVideo(c.Request.Context(), id, date)
	h.respondSelection(c, id, sel, err)
}

func (h *Handler) respondSelection(c *gin.Context, id uuid.UUID, sel *selection.Selection, err error) {
	if err != nil {
		if errors.Is(err, selection.ErrARContentNotFound) {
			response.NotFound(c, "ar content not found")
			return
		}
		h.logger.Error("select active video failed", zap.String("ar_content_id", id.String()), zap.Error(err))
		response.Internal(c, "failed to select video")
		return
	}
	if sel == nil || sel.Video == nil {
		response.NoPlayableContent(c)
		return
	}
	url, err := h.playbackURL(c.Request.Context(), sel.Video)
	if err != nil {
		h.logger.Error("playback url failed", zap.String("video_id", sel.Video.ID.String()), zap.Error(err))
		response.Internal(c, "failed to resolve playback url")
		return
	}
	response.OK(c, VideoResponse{
		VideoID:       sel.Video.ID,
		Title:         sel.Video.Title,
		PlaybackURL:   url,
		Source:        sel.Source,
		ScheduleID:    sel.ScheduleID,
		ExpiresInDays: sel.ExpiresInDays,
		CheckDate:     sel.CheckDate.Format(dateLayout),
	})
}

func (h *Handler) playbackURL(ctx context.Context, v *models.Video) (string, error) {
	if h.storage == nil {
		return v.FileURL, nil
	}
	return h.storage.PlaybackURL(ctx, v.S3Key, v.FileURL)
}

func (h *Handler) publish(ctx context.Context, arContentID uuid.UUID, event string, payload any) {
	if h.events == nil {
		return
	}
	if err := h.events.PublishContentEvent(ctx, arContentID, event, payload); err != nil {
		h.logger.Warn("publish content event failed", zap.String("ar_content_id", arContentID.String()),
			zap.String("event", event), zap.Error(err))
	}
}

func parseID(c *gin.Context, param, msg string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(param))
	if err != nil {
		response.BadRequest(c, msg)
		return uuid.Nil, false
	}
	return id, true
}

func operatorField(c *gin.Context) zap.Field {
	if v, ok := c.Get(middleware.ContextOperatorID); ok {
		if id, ok := v.(uuid.UUID); ok {
			return zap.String("operator_id", id.String())
		}
	}
	return zap.Skip()
}
