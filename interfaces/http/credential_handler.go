package http

import (
	"net/http"

	"social-publisher/domain/model"
	"social-publisher/usecase"

	"github.com/gin-gonic/gin"
)

type ICredentialHandler interface {
	Status(ctx *gin.Context)
	Disconnect(ctx *gin.Context)
	Permissions(ctx *gin.Context)
}

type CredentialHandler struct {
	credentialUsecase usecase.ICredentialUsecase
}

func NewCredentialHandler(uc usecase.ICredentialUsecase) ICredentialHandler {
	return &CredentialHandler{credentialUsecase: uc}
}

func (h *CredentialHandler) Status(ctx *gin.Context) {
	list, err := h.credentialUsecase.Status(ctx.Request.Context(), ctx.GetString("user_id"))
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"credentials": list})
}

func (h *CredentialHandler) Disconnect(ctx *gin.Context) {
	provider := model.Provider(ctx.Param("provider"))
	if err := h.credentialUsecase.Disconnect(ctx.Request.Context(), ctx.GetString("user_id"), provider); err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"provider": provider, "disconnected": true})
}

func (h *CredentialHandler) Permissions(ctx *gin.Context) {
	provider := model.Provider(ctx.Param("provider"))
	res, err := h.credentialUsecase.CheckPermissions(ctx.Request.Context(), ctx.GetString("user_id"), provider)
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"provider": provider, "permission": res.Permission, "detail": res.Detail})
}
