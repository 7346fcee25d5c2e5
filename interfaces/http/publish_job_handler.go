package http

import (
	"net/http"

	"social-publisher/domain/dto"
	"social-publisher/infrastructure/logger"
	"social-publisher/usecase"

	"github.com/gin-gonic/gin"
)

type IPublishJobHandler interface {
	Create(ctx *gin.Context)
	Get(ctx *gin.Context)
	PublishNow(ctx *gin.Context)
	AppendMetadata(ctx *gin.Context)
}

type PublishJobHandler struct {
	jobUsecase usecase.IPublishJobUsecase
}

func NewPublishJobHandler(uc usecase.IPublishJobUsecase) IPublishJobHandler {
	return &PublishJobHandler{jobUsecase: uc}
}

func (h *PublishJobHandler) Create(ctx *gin.Context) {
	userID := ctx.GetString("user_id")
	var req dto.CreatePublishJobRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	job, err := h.jobUsecase.Create(ctx.Request.Context(), userID, &req)
	if err != nil {
		logger.GetLogger().WithField("user_id", userID).WithField("error", err.Error()).Warn("create publish job failed")
		writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, job)
}

func (h *PublishJobHandler) Get(ctx *gin.Context) {
	job, err := h.jobUsecase.Get(ctx.Request.Context(), ctx.GetString("user_id"), ctx.Param("jobId"))
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, job)
}

// PublishNow runs the job synchronously and returns the per-platform outcome.
func (h *PublishJobHandler) PublishNow(ctx *gin.Context) {
	out, err := h.jobUsecase.PublishNow(ctx.Request.Context(), ctx.GetString("user_id"), ctx.Param("jobId"))
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, out)
}

func (h *PublishJobHandler) AppendMetadata(ctx *gin.Context) {
	var req dto.AppendMetadataRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if err := h.jobUsecase.AppendMetadata(ctx.Request.Context(), ctx.GetString("user_id"), ctx.Param("jobId"), &req); err != nil {
		writeError(ctx, err)
		return
	}
	ctx.Status(http.StatusNoContent)
}
