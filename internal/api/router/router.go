package router

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"

	"github.com/manasdutta04/matchwise/internal/api/handler"
)

// RegisterRoutes wires the screening endpoints under /api/v1.
func RegisterRoutes(h *server.Hertz, screeningHandler *handler.ScreeningHandler) {
	api := h.Group("/api/v1")

	api.POST("/jobs", screeningHandler.CreateJob)
	api.GET("/jobs", screeningHandler.ListJobs)
	api.GET("/jobs/:job_id", screeningHandler.GetJob)

	api.POST("/cvs", screeningHandler.IngestCV)
	api.GET("/candidates", screeningHandler.ListCandidates)
	api.GET("/candidates/:candidate_id", screeningHandler.GetCandidate)

	api.POST("/jobs/:job_id/match", screeningHandler.RunMatch)
	api.GET("/jobs/:job_id/matches", screeningHandler.ListMatches)
	api.GET("/jobs/:job_id/matches/:candidate_id/report", screeningHandler.GetMatchReport)

	api.POST("/jobs/:job_id/interviews", screeningHandler.ScheduleInterviews)
	api.GET("/jobs/:job_id/interviews", screeningHandler.ListInterviews)

	api.GET("/health", func(c context.Context, ctx *app.RequestContext) {
		ctx.JSON(consts.StatusOK, utils.H{"status": "ok"})
	})
}
