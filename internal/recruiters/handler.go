package recruiters

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"applicant-tracker/internal/shared/server/middleware"
	"applicant-tracker/internal/shared/server/respond"
	"applicant-tracker/internal/shared/telemetry"
)

type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches /me.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/me", h.me)
}

func (h *Handler) me(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	if userID == "" {
		respond.Error(c, http.StatusUnauthorized, respond.CodeUnauthorized, "missing or invalid token", nil)
		return
	}
	p, err := h.Svc.Current(c.Request.Context(), Profile{
		ID:         userID,
		Email:      middleware.UserEmailFromContext(c),
		Name:       middleware.UserNameFromContext(c),
		PictureURL: middleware.UserPictureFromContext(c),
	})
	if err != nil {
		telemetry.Error("recruiters.me_failed", map[string]any{"userId": userID, "error": err.Error()})
		respond.Error(c, http.StatusInternalServerError, respond.CodeInternal, "failed to load profile", nil)
		return
	}
	respond.OK(c, p)
}
