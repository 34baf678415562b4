package handler

import (
	"context"
	"errors"
	"strconv"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"

	"github.com/manasdutta04/matchwise/internal/extractor"
	"github.com/manasdutta04/matchwise/internal/screening"
	"github.com/manasdutta04/matchwise/internal/storage"
)

// ScreeningHandler exposes the screening pipeline over HTTP.
type ScreeningHandler struct {
	svc *screening.Service
}

func NewScreeningHandler(svc *screening.Service) *ScreeningHandler {
	return &ScreeningHandler{svc: svc}
}

type createJobRequest struct {
	JobID       string `json:"job_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

type ingestCVRequest struct {
	SourceID string `json:"source_id"`
	Text     string `json:"text"`
}

// CreateJob ingests one job posting.
func (h *ScreeningHandler) CreateJob(c context.Context, ctx *app.RequestContext) {
	var req createJobRequest
	if err := ctx.BindJSON(&req); err != nil {
		ctx.JSON(consts.StatusBadRequest, utils.H{"error": "invalid request body"})
		return
	}

	profile, err := h.svc.IngestJob(c, req.JobID, req.Title, req.Description)
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusCreated, profile)
}

// GetJob returns one stored job profile.
func (h *ScreeningHandler) GetJob(c context.Context, ctx *app.RequestContext) {
	profile, err := h.svc.GetJob(c, ctx.Param("job_id"))
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, profile)
}

// ListJobs returns all stored job profiles.
func (h *ScreeningHandler) ListJobs(c context.Context, ctx *app.RequestContext) {
	jobs, err := h.svc.ListJobs(c)
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, utils.H{"jobs": jobs})
}

// IngestCV ingests one CV text.
func (h *ScreeningHandler) IngestCV(c context.Context, ctx *app.RequestContext) {
	var req ingestCVRequest
	if err := ctx.BindJSON(&req); err != nil {
		ctx.JSON(consts.StatusBadRequest, utils.H{"error": "invalid request body"})
		return
	}

	profile, err := h.svc.IngestCV(c, req.SourceID, req.Text)
	if err != nil {
		var dup *screening.DuplicateCVError
		if errors.As(err, &dup) {
			ctx.JSON(consts.StatusConflict, utils.H{
				"error":        "duplicate cv text",
				"first_source": dup.FirstSource,
			})
			return
		}
		writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusCreated, profile)
}

// GetCandidate returns one stored candidate profile.
func (h *ScreeningHandler) GetCandidate(c context.Context, ctx *app.RequestContext) {
	profile, err := h.svc.GetCandidate(c, ctx.Param("candidate_id"))
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, profile)
}

// ListCandidates returns all stored candidate profiles.
func (h *ScreeningHandler) ListCandidates(c context.Context, ctx *app.RequestContext) {
	candidates, err := h.svc.ListCandidates(c)
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, utils.H{"candidates": candidates})
}

// RunMatch scores every stored candidate against one job. With
// async=true the run is enqueued instead and picked up by the
// match-needed consumer.
func (h *ScreeningHandler) RunMatch(c context.Context, ctx *app.RequestContext) {
	jobID := ctx.Param("job_id")

	if async, _ := strconv.ParseBool(ctx.Query("async")); async {
		if err := h.svc.RequestMatch(c, jobID); err != nil {
			if errors.Is(err, screening.ErrNoPublisher) {
				ctx.JSON(consts.StatusServiceUnavailable, utils.H{"error": "async matching not available"})
				return
			}
			writeError(ctx, err)
			return
		}
		ctx.JSON(consts.StatusAccepted, utils.H{"status": "queued", "job_id": jobID})
		return
	}

	results, err := h.svc.RunMatch(c, jobID)
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, utils.H{"results": results})
}

// ListMatches returns stored match results, best first. The shortlisted
// query parameter restricts the list to shortlisted candidates.
func (h *ScreeningHandler) ListMatches(c context.Context, ctx *app.RequestContext) {
	shortlistedOnly, _ := strconv.ParseBool(ctx.Query("shortlisted"))

	results, err := h.svc.ListMatches(c, ctx.Param("job_id"), shortlistedOnly)
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, utils.H{"results": results})
}

// GetMatchReport renders one stored match as recruiter-readable text.
func (h *ScreeningHandler) GetMatchReport(c context.Context, ctx *app.RequestContext) {
	jobID := ctx.Param("job_id")
	candidateID := ctx.Param("candidate_id")

	job, err := h.svc.GetJob(c, jobID)
	if err != nil {
		writeError(ctx, err)
		return
	}
	results, err := h.svc.ListMatches(c, jobID, false)
	if err != nil {
		writeError(ctx, err)
		return
	}
	for _, result := range results {
		if result.CandidateID != candidateID {
			continue
		}
		candidate, err := h.svc.GetCandidate(c, candidateID)
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			writeError(ctx, err)
			return
		}
		ctx.JSON(consts.StatusOK, utils.H{
			"report": screening.BuildMatchReport(job, candidate, result),
		})
		return
	}
	ctx.JSON(consts.StatusNotFound, utils.H{"error": "no match for candidate"})
}

// ScheduleInterviews assigns interview dates to a job's shortlisted
// candidates.
func (h *ScreeningHandler) ScheduleInterviews(c context.Context, ctx *app.RequestContext) {
	assignments, err := h.svc.ScheduleInterviews(c, ctx.Param("job_id"))
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, utils.H{"interviews": assignments})
}

// ListInterviews returns stored interview assignments for a job.
func (h *ScreeningHandler) ListInterviews(c context.Context, ctx *app.RequestContext) {
	assignments, err := h.svc.ListInterviews(c, ctx.Param("job_id"))
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, utils.H{"interviews": assignments})
}

func writeError(ctx *app.RequestContext, err error) {
	var extractErr *extractor.ExtractionError
	switch {
	case errors.Is(err, storage.ErrNotFound):
		ctx.JSON(consts.StatusNotFound, utils.H{"error": err.Error()})
	case errors.As(err, &extractErr):
		ctx.JSON(consts.StatusBadRequest, utils.H{"error": err.Error()})
	default:
		ctx.JSON(consts.StatusInternalServerError, utils.H{"error": err.Error()})
	}
}
