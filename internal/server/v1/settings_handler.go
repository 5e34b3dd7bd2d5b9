package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nulzo/model-registry/internal/core/domain"
	"github.com/nulzo/model-registry/internal/server/validator"
)

type SettingsHandler struct {
	service Registry
}

func NewSettingsHandler(service Registry) *SettingsHandler {
	return &SettingsHandler{service: service}
}

// GET /api/v1/admin/settings
func (h *SettingsHandler) Get(c *gin.Context) {
	settings, err := h.service.GetSettings(c.Request.Context(), caller(c))
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, settings)
}

// PUT /api/v1/admin/settings
func (h *SettingsHandler) Update(c *gin.Context) {
	var req SettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(domain.ValidationError(validator.ParseValidationError(err)))
		return
	}

	err := h.service.UpdateSettings(c.Request.Context(), caller(c), domain.Settings{
		HideDefaultModels: *req.HideDefaultModels,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, success)
}
