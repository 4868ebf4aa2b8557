package api

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"stylegenie/pkg/conversation"
	"stylegenie/pkg/models"
	"stylegenie/pkg/repository/image"
	"stylegenie/pkg/search"
)

// Conversations hosts chat sessions.
type Conversations interface {
	Create(ctx context.Context, first *conversation.Submit) (conversation.Snapshot, error)
	Get(ctx context.Context, id string) (conversation.Snapshot, error)
	Delete(ctx context.Context, id string) error
	Submit(ctx context.Context, id, text, imageRef string) (conversation.Snapshot, error)
	SelectQuickReply(ctx context.Context, id, action string) (conversation.Snapshot, error)
}

// Marketplaces is the editable marketplace registry.
type Marketplaces interface {
	List() []models.Marketplace
	ListEnabled() []models.Marketplace
	Add(ctx context.Context, name, baseURL string) (models.Marketplace, error)
	SetEnabled(ctx context.Context, id string, enabled bool) error
	Remove(ctx context.Context, id string)
}

// Searcher runs a one-shot aggregated search.
type Searcher interface {
	Search(ctx context.Context, q search.Query) (search.Result, error)
}

type ImageOptions struct {
	TTL      time.Duration
	MaxBytes int64
}

// Handlers serves the HTTP API.
type Handlers struct {
	sessions     Conversations
	marketplaces Marketplaces
	searcher     Searcher
	images       image.Repository
	imageOpts    ImageOptions
	validate     *validator.Validate
}

// NewHandlers constructs Handlers with provided dependencies.
func NewHandlers(sessions Conversations, marketplaces Marketplaces, searcher Searcher, images image.Repository, imageOpts ImageOptions) *Handlers {
	return &Handlers{
		sessions:     sessions,
		marketplaces: marketplaces,
		searcher:     searcher,
		images:       images,
		imageOpts:    imageOpts,
		validate:     validator.New(),
	}
}

type submitRequest struct {
	Text     string `json:"text"`
	ImageRef string `json:"imageRef"`
}

type quickReplyRequest struct {
	Action string `json:"action" validate:"required"`
}

type addMarketplaceRequest struct {
	Name string `json:"name" validate:"required"`
	URL  string `json:"url" validate:"required"`
}

type toggleMarketplaceRequest struct {
	Enabled *bool `json:"enabled" validate:"required"`
}

type searchRequest struct {
	Prompt       string `json:"prompt"`
	ImageRef     string `json:"imageRef"`
	PriceSegment string `json:"priceSegment" validate:"omitempty,oneof=budget mid premium_mid premium discounts"`
	Occasion     string `json:"occasion" validate:"omitempty,oneof=casual office party formal any"`
}

// CreateSession handles POST /api/v1/sessions
func (h *Handlers) CreateSession(c echo.Context) error {
	var req submitRequest
	if err := h.bind(c, &req); err != nil {
		return err
	}
	var first *conversation.Submit
	if req.Text != "" || req.ImageRef != "" {
		first = &conversation.Submit{Text: req.Text, ImageRef: req.ImageRef}
	}
	snap, err := h.sessions.Create(c.Request().Context(), first)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusCreated, newSnapshotResponse(snap))
}

// GetSession handles GET /api/v1/sessions/:id
func (h *Handlers) GetSession(c echo.Context) error {
	snap, err := h.sessions.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, newSnapshotResponse(snap))
}

// DeleteSession handles DELETE /api/v1/sessions/:id
func (h *Handlers) DeleteSession(c echo.Context) error {
	if err := h.sessions.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return toHTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// PostMessage handles POST /api/v1/sessions/:id/messages
func (h *Handlers) PostMessage(c echo.Context) error {
	var req submitRequest
	if err := h.bind(c, &req); err != nil {
		return err
	}
	snap, err := h.sessions.Submit(c.Request().Context(), c.Param("id"), req.Text, req.ImageRef)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, newSnapshotResponse(snap))
}

// PostQuickReply handles POST /api/v1/sessions/:id/quick-replies
func (h *Handlers) PostQuickReply(c echo.Context) error {
	var req quickReplyRequest
	if err := h.bind(c, &req); err != nil {
		return err
	}
	snap, err := h.sessions.SelectQuickReply(c.Request().Context(), c.Param("id"), req.Action)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, newSnapshotResponse(snap))
}

// UploadImage handles POST /api/v1/images (multipart field "image")
func (h *Handlers) UploadImage(c echo.Context) error {
	fh, err := c.FormFile("image")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "multipart field \"image\" is required")
	}
	if h.imageOpts.MaxBytes > 0 && fh.Size > h.imageOpts.MaxBytes {
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, "image is too large")
	}
	f, err := fh.Open()
	if err != nil {
		return err
	}
	defer f.Close()

	limit := h.imageOpts.MaxBytes
	if limit <= 0 {
		limit = fh.Size
	}
	data, err := io.ReadAll(io.LimitReader(f, limit+1))
	if err != nil {
		return err
	}
	if int64(len(data)) > limit {
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, "image is too large")
	}

	ref, err := h.images.Save(c.Request().Context(), data, h.imageOpts.TTL)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusCreated, map[string]string{"imageRef": ref})
}

// ListMarketplaces handles GET /api/v1/marketplaces
func (h *Handlers) ListMarketplaces(c echo.Context) error {
	list := h.marketplaces.List()
	if v := c.QueryParam("enabled"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "enabled must be a boolean")
		}
		if enabled {
			list = h.marketplaces.ListEnabled()
		} else {
			list = disabledOnly(list)
		}
	}
	return c.JSON(http.StatusOK, map[string]any{"marketplaces": list})
}

// AddMarketplace handles POST /api/v1/marketplaces
func (h *Handlers) AddMarketplace(c echo.Context) error {
	var req addMarketplaceRequest
	if err := h.bind(c, &req); err != nil {
		return err
	}
	m, err := h.marketplaces.Add(c.Request().Context(), req.Name, req.URL)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusCreated, m)
}

// ToggleMarketplace handles PATCH /api/v1/marketplaces/:id
func (h *Handlers) ToggleMarketplace(c echo.Context) error {
	var req toggleMarketplaceRequest
	if err := h.bind(c, &req); err != nil {
		return err
	}
	if err := h.marketplaces.SetEnabled(c.Request().Context(), c.Param("id"), *req.Enabled); err != nil {
		return toHTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// RemoveMarketplace handles DELETE /api/v1/marketplaces/:id
func (h *Handlers) RemoveMarketplace(c echo.Context) error {
	h.marketplaces.Remove(c.Request().Context(), c.Param("id"))
	return c.NoContent(http.StatusNoContent)
}

// Search handles POST /api/v1/search
func (h *Handlers) Search(c echo.Context) error {
	var req searchRequest
	if err := h.bind(c, &req); err != nil {
		return err
	}
	if req.Prompt == "" && req.ImageRef == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "prompt or imageRef is required")
	}
	res, err := h.searcher.Search(c.Request().Context(), search.Query{
		Text:     req.Prompt,
		ImageRef: req.ImageRef,
		Filters: models.Filters{
			PriceSegment: models.PriceSegment(req.PriceSegment),
			Occasion:     models.Occasion(req.Occasion),
		},
	})
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, newSearchResponse(res))
}

// ListAteliers handles GET /api/v1/ateliers
func (h *Handlers) ListAteliers(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{"ateliers": conversation.Masters()})
}

// Health handles GET /health
func (h *Handlers) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handlers) bind(c echo.Context, v any) error {
	if err := c.Bind(v); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid JSON body")
	}
	if err := h.validate.Struct(v); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "validation failed: "+err.Error())
	}
	return nil
}

func disabledOnly(list []models.Marketplace) []models.Marketplace {
	out := make([]models.Marketplace, 0, len(list))
	for _, m := range list {
		if !m.Enabled {
			out = append(out, m)
		}
	}
	return out
}
