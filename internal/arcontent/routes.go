package arcontent

import "github.com/gin-gonic/gin"

// RegisterRoutes mounts the viewer endpoint on public (behind viewerMW) and the management
// endpoints on operator.
func (h *Handler) RegisterRoutes(public, operator gin.IRoutes, viewerMW ...gin.HandlerFunc) {
	public.GET("/ar/:id/video", append(viewerMW, h.GetActiveVideo)...)

	operator.GET("/ar-content/:id/video/preview", h.PreviewActiveVideo)
	operator.GET("/ar-content/:id/videos", h.ListVideos)
	operator.PATCH("/ar-content/:id/active-video", h.SetActiveVideo)
	operator.GET("/ar-content/:id/rotation-rule", h.GetRotationRule)
	operator.PUT("/ar-content/:id/rotation-rule", h.PutRotationRule)
	operator.DELETE("/ar-content/:id/rotation-rule", h.DeleteRotationRule)

	operator.PATCH("/videos/:id/rotation", h.UpdateVideoRotation)
	operator.PATCH("/videos/:id/toggle", h.ToggleVideo)
	operator.DELETE("/videos/:id", h.DeleteVideo)
	operator.GET("/videos/:id/schedules", h.ListSchedules)
	operator.POST("/videos/:id/schedules", h.CreateSchedule)
}
