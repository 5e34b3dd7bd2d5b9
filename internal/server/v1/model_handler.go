package v1

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/nulzo/model-registry/internal/core/domain"
	"github.com/nulzo/model-registry/internal/core/services/registry"
	"github.com/nulzo/model-registry/internal/server/validator"
)

type ModelHandler struct {
	service Registry
}

func NewModelHandler(service Registry) *ModelHandler {
	return &ModelHandler{service: service}
}

// ListCatalog returns every active model, hidden ones included.
// ?hide_defaults overrides the persisted setting. ?provider narrows the
// listing to the given provider kinds; it repeats or takes a comma list.
//
// GET /api/v1/admin/models
func (h *ModelHandler) ListCatalog(c *gin.Context) {
	ctx := c.Request.Context()
	who := caller(c)

	var hideDefaults bool
	if raw, ok := c.GetQuery("hide_defaults"); ok {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			_ = c.Error(domain.ValidationError(map[string]string{"hide_defaults": "must be a boolean"}))
			return
		}
		hideDefaults = v
	} else {
		settings, err := h.service.GetSettings(ctx, who)
		if err != nil {
			_ = c.Error(err)
			return
		}
		hideDefaults = settings.HideDefaultModels
	}

	catalog, err := h.service.ListCatalog(ctx, who, hideDefaults, providerQuery(c)...)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, catalog)
}

func providerQuery(c *gin.Context) []string {
	var out []string
	for _, raw := range c.QueryArray("provider") {
		for _, p := range strings.Split(raw, ",") {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

// ListVisible is the catalog shown to every authenticated caller.
//
// GET /api/v1/models
func (h *ModelHandler) ListVisible(c *gin.Context) {
	catalog, err := h.service.ListVisible(c.Request.Context(), caller(c))
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, catalog)
}

// Fetch lists the models a remote endpoint offers.
//
// POST /api/v1/admin/models/fetch
func (h *ModelHandler) Fetch(c *gin.Context) {
	var req FetchModelsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(domain.ValidationError(validator.ParseValidationError(err)))
		return
	}

	apiType := domain.APIType(req.APIType)
	url := req.URL
	if apiType == domain.APITypeOllama && req.OllamaURL != "" {
		url = req.OllamaURL
	}

	models, err := h.service.DiscoverRemote(c.Request.Context(), caller(c), apiType, domain.ConnectionConfig{
		BaseURL: url,
		APIKey:  req.APIKey,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": models})
}

// RegisterChat adds a chat model.
//
// POST /api/v1/admin/models
func (h *ModelHandler) RegisterChat(c *gin.Context) {
	var req RegisterChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(domain.ValidationError(validator.ParseValidationError(err)))
		return
	}

	err := h.service.RegisterChatModel(c.Request.Context(), caller(c), registry.RegisterChatInput{
		APIType:         domain.APIType(req.APIType),
		ModelID:         req.ModelID,
		Name:            req.Name,
		APIKey:          req.APIKey,
		URL:             req.URL,
		StreamAvailable: req.StreamAvailable,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, success)
}

// RegisterEmbedding adds an embedding model.
//
// POST /api/v1/admin/models/embedding
func (h *ModelHandler) RegisterEmbedding(c *gin.Context) {
	var req RegisterEmbeddingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(domain.ValidationError(validator.ParseValidationError(err)))
		return
	}

	err := h.service.RegisterEmbeddingModel(c.Request.Context(), caller(c), registry.RegisterEmbeddingInput{
		APIType:   domain.APIType(req.APIType),
		ModelID:   req.ModelID,
		ModelName: req.ModelName,
		APIKey:    req.APIKey,
		URL:       req.URL,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, success)
}

// Hide flips the visibility of a model.
//
// POST /api/v1/admin/models/hide
func (h *ModelHandler) Hide(c *gin.Context) {
	var req ModelIDRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(domain.ValidationError(validator.ParseValidationError(err)))
		return
	}

	if err := h.service.ToggleVisibility(c.Request.Context(), caller(c), req.ID); err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, success)
}

// Delete removes a local model.
//
// POST /api/v1/admin/models/delete
func (h *ModelHandler) Delete(c *gin.Context) {
	var req ModelIDRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(domain.ValidationError(validator.ParseValidationError(err)))
		return
	}

	if err := h.service.Delete(c.Request.Context(), caller(c), req.ID); err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, success)
}
