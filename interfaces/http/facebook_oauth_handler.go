package http

import (
	"net/http"

	"social-publisher/infrastructure/logger"
	"social-publisher/usecase"

	"github.com/gin-gonic/gin"
)

type IFacebookOAuthHandler interface {
	GetAuthURL(ctx *gin.Context)
	Callback(ctx *gin.Context)
}

type facebookOAuthHandler struct {
	credentialUsecase usecase.ICredentialUsecase
}

func NewFacebookOAuthHandler(uc usecase.ICredentialUsecase) IFacebookOAuthHandler {
	return &facebookOAuthHandler{credentialUsecase: uc}
}

// GetAuthURL builds the Facebook consent URL (user must approve in browser).
// The state is bound to the caller so the unauthenticated callback knows the owner.
func (h *facebookOAuthHandler) GetAuthURL(c *gin.Context) {
	authURL, state, err := h.credentialUsecase.BeginFacebookConnect(c.Request.Context(), c.GetString("user_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"auth_url": authURL, "state": state})
}

// Callback exchanges the code and stores page and Instagram credentials.
func (h *facebookOAuthHandler) Callback(c *gin.Context) {
	lg := logger.GetLogger()
	if reason := c.Query("error"); reason != "" {
		lg.WithField("error", reason).WithField("description", c.Query("error_description")).Warn("facebook consent declined")
		c.JSON(http.StatusBadRequest, gin.H{"error": reason, "description": c.Query("error_description")})
		return
	}
	code := c.Query("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing code"})
		return
	}
	res, err := h.credentialUsecase.CompleteFacebookConnect(c.Request.Context(), c.Query("state"), code, c.Query("page_id"))
	if err != nil {
		lg.WithField("error", err.Error()).Warn("facebook connect failed")
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"connected": true, "page_id": res.Page, "providers": res.Providers})
}
