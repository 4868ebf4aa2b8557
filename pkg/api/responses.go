package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"stylegenie/pkg/conversation"
	"stylegenie/pkg/marketplace"
	"stylegenie/pkg/models"
	"stylegenie/pkg/repository/image"
	"stylegenie/pkg/search"
)

type messageResponse struct {
	models.Message
	ProductGroups []models.ProductGroup `json:"productGroups,omitempty"`
}

type snapshotResponse struct {
	ID           string              `json:"id"`
	Step         conversation.Step   `json:"step"`
	Filters      models.Filters      `json:"filters"`
	Messages     []messageResponse   `json:"messages"`
	QuickReplies []models.QuickReply `json:"quickReplies"`
	InputEnabled bool                `json:"inputEnabled"`
}

func newSnapshotResponse(s conversation.Snapshot) snapshotResponse {
	msgs := make([]messageResponse, 0, len(s.Messages))
	for _, m := range s.Messages {
		msgs = append(msgs, messageResponse{Message: m, ProductGroups: models.GroupByMarketplace(m.Products)})
	}
	return snapshotResponse{
		ID:           s.ID,
		Step:         s.Step,
		Filters:      s.Filters,
		Messages:     msgs,
		QuickReplies: s.QuickReplies,
		InputEnabled: s.InputEnabled,
	}
}

type searchResponse struct {
	Message      string                `json:"message"`
	Products     []models.Product      `json:"products"`
	Groups       []models.ProductGroup `json:"groups"`
	Total        int                   `json:"total"`
	Marketplaces []models.Marketplace  `json:"marketplaces"`
}

func newSearchResponse(r search.Result) searchResponse {
	products := r.Products
	if products == nil {
		products = []models.Product{}
	}
	groups := r.Groups()
	if groups == nil {
		groups = []models.ProductGroup{}
	}
	return searchResponse{
		Message:      r.Summary(),
		Products:     products,
		Groups:       groups,
		Total:        r.Total,
		Marketplaces: r.Marketplaces,
	}
}

// toHTTPError maps domain errors onto HTTP statuses. Unknown errors are passed
// through and end up as 500.
func toHTTPError(err error) error {
	var aggErr *search.AggregationError
	switch {
	case errors.Is(err, conversation.ErrSessionNotFound),
		errors.Is(err, marketplace.ErrNotFound),
		errors.Is(err, image.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error()).SetInternal(err)
	case errors.Is(err, conversation.ErrEmptySubmission),
		errors.Is(err, marketplace.ErrValidation),
		errors.Is(err, image.ErrEmpty):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error()).SetInternal(err)
	case errors.Is(err, image.ErrNotImage):
		return echo.NewHTTPError(http.StatusUnsupportedMediaType, err.Error()).SetInternal(err)
	case errors.Is(err, conversation.ErrSessionBusy),
		errors.Is(err, conversation.ErrUnexpectedReply),
		errors.Is(err, conversation.ErrUnexpectedEvent):
		return echo.NewHTTPError(http.StatusConflict, err.Error()).SetInternal(err)
	case errors.Is(err, search.ErrNoMarketplaces):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error()).SetInternal(err)
	case errors.As(err, &aggErr):
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error()).SetInternal(err)
	default:
		return err
	}
}
