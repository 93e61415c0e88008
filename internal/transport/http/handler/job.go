package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/erzhanbek/hooksched/internal/domain"
	"github.com/erzhanbek/hooksched/internal/usecase"
	"github.com/gin-gonic/gin"
)

type JobHandler struct {
	jobUsecase *usecase.JobUsecase
	logger     *slog.Logger
}

func NewJobHandler(jobUsecase *usecase.JobUsecase, logger *slog.Logger) *JobHandler {
	return &JobHandler{jobUsecase: jobUsecase, logger: logger.With("component", "job_handler")}
}

type targetSpec struct {
	URL    string `json:"url"    binding:"required,url,max=2048"`
	Method string `json:"method" binding:"required,oneof=GET POST PUT PATCH DELETE"`
}

type scheduleSpec struct {
	Timezone  string     `json:"timezone"`
	ExecuteAt *time.Time `json:"execute_at"`
	CronExpr  string     `json:"cron_expression" binding:"max=256"`
	StartTime *time.Time `json:"start_time"`
}

type retryPolicySpec struct {
	Enabled           bool  `json:"enabled"`
	MaxAttempts       int   `json:"max_attempts"       binding:"omitempty,min=1,max=20"`
	RetryableStatuses []int `json:"retryable_statuses" binding:"omitempty,dive,min=100,max=599"`
}

type createJobRequest struct {
	Kind        domain.Kind       `json:"kind"    binding:"required,oneof=one_off recurring"`
	Target      targetSpec        `json:"target"  binding:"required"`
	Headers     map[string]string `json:"headers"`
	QueryParams map[string]string `json:"query_params"`
	Payload     *string           `json:"payload"`
	Schedule    scheduleSpec      `json:"schedule"`
	RetryPolicy retryPolicySpec   `json:"retry_policy"`
}

type jobResponse struct {
	ID           string            `json:"id"`
	Kind         domain.Kind       `json:"kind"`
	URL          string            `json:"url"`
	Method       string            `json:"method"`
	Headers      map[string]string `json:"headers,omitempty"`
	QueryParams  map[string]string `json:"query_params,omitempty"`
	Status       domain.Status     `json:"status"`
	ExecuteAt    *time.Time        `json:"execute_at,omitempty"`
	CronExpr     string            `json:"cron_expression,omitempty"`
	StartTime    *time.Time        `json:"start_time,omitempty"`
	Timezone     string            `json:"timezone,omitempty"`
	AttemptCount int               `json:"attempt_count"`
	LastError    *string           `json:"last_error,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

func toJobResponse(j *domain.Job) jobResponse {
	return jobResponse{
		ID:           j.ID,
		Kind:         j.Kind,
		URL:          j.URL,
		Method:       j.Method,
		Headers:      j.Headers,
		QueryParams:  j.QueryParams,
		Status:       j.Status,
		ExecuteAt:    j.ExecuteAt,
		CronExpr:     j.CronExpr,
		StartTime:    j.StartTime,
		Timezone:     j.Timezone,
		AttemptCount: j.AttemptCount,
		LastError:    j.LastError,
		CreatedAt:    j.CreatedAt,
		UpdatedAt:    j.UpdatedAt,
	}
}

func (h *JobHandler) Create(ctx *gin.Context) {
	var req createJobRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	job, err := h.jobUsecase.CreateJob(ctx.Request.Context(), usecase.CreateJobInput{
		Kind:              req.Kind,
		URL:               req.Target.URL,
		Method:            req.Target.Method,
		Headers:           req.Headers,
		QueryParams:       req.QueryParams,
		Payload:           req.Payload,
		ExecuteAt:         req.Schedule.ExecuteAt,
		CronExpr:          req.Schedule.CronExpr,
		StartTime:         req.Schedule.StartTime,
		Timezone:          req.Schedule.Timezone,
		RetryEnabled:      req.RetryPolicy.Enabled,
		MaxAttempts:       req.RetryPolicy.MaxAttempts,
		RetryableStatuses: req.RetryPolicy.RetryableStatuses,
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidSchedule):
			ctx.JSON(http.StatusBadRequest, gin.H{"error": errInvalidSchedule})
		case errors.Is(err, domain.ErrInvalidCronExpr):
			ctx.JSON(http.StatusBadRequest, gin.H{"error": errInvalidCron})
		default:
			h.logger.Error("create job", "error", err)
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		}
		return
	}

	ctx.JSON(http.StatusCreated, toJobResponse(job))
}

func (h *JobHandler) List(ctx *gin.Context) {
	jobs, err := h.jobUsecase.ListJobs(ctx.Request.Context())
	if err != nil {
		h.logger.Error("list jobs", "error", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		return
	}

	items := make([]jobResponse, 0, len(jobs))
	for _, j := range jobs {
		items = append(items, toJobResponse(j))
	}
	ctx.JSON(http.StatusOK, gin.H{"jobs": items})
}

func (h *JobHandler) GetByID(ctx *gin.Context) {
	jobID := ctx.Param("id")

	job, err := h.jobUsecase.GetByID(ctx.Request.Context(), jobID)
	if err != nil {
		if errors.Is(err, domain.ErrJobNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": errJobNotFound})
			return
		}
		h.logger.Error("get job by id", "job_id", jobID, "error", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		return
	}

	ctx.JSON(http.StatusOK, toJobResponse(job))
}

func (h *JobHandler) Delete(ctx *gin.Context) {
	jobID := ctx.Param("id")

	if err := h.jobUsecase.RemoveJob(ctx.Request.Context(), jobID); err != nil {
		if errors.Is(err, domain.ErrJobNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": errJobNotFound})
			return
		}
		h.logger.Error("delete job", "job_id", jobID, "error", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		return
	}

	ctx.Status(http.StatusNoContent)
}

func (h *JobHandler) DeleteAll(ctx *gin.Context) {
	if err := h.jobUsecase.RemoveAllJobs(ctx.Request.Context()); err != nil {
		h.logger.Error("delete all jobs", "error", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		return
	}

	ctx.Status(http.StatusNoContent)
}
