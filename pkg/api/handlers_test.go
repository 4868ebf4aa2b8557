package api_test

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"stylegenie/pkg/api"
	"stylegenie/pkg/conversation"
	"stylegenie/pkg/marketplace"
	"stylegenie/pkg/metrics"
	"stylegenie/pkg/repository/image"
	"stylegenie/pkg/search"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

type testServer struct {
	e        *echo.Echo
	registry *marketplace.Registry
}

// newServer wires the API with no search provider, so every marketplace
// answers with fallback products.
func newServer(t *testing.T) *testServer {
	t.Helper()
	reg := metrics.NewRegistry()
	registry := marketplace.NewDefaultRegistry()
	agg := search.NewAggregator(registry, nil, search.Options{Metrics: reg})
	engine := conversation.NewEngine(conversation.NewMemoryStore(0), agg, nil, reg)
	images := image.NewMemoryRepository(reg)

	h := api.NewHandlers(engine, registry, agg, images, api.ImageOptions{MaxBytes: 1024})
	e := echo.New()
	api.RegisterRoutes(e, h, reg)
	return &testServer{e: e, registry: registry}
}

func (s *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

type snapshot struct {
	ID       string `json:"id"`
	Step     string `json:"step"`
	Messages []struct {
		Role          string `json:"role"`
		Text          string `json:"text"`
		Products      []any  `json:"products"`
		ProductGroups []struct {
			Marketplace string `json:"marketplace"`
			Products    []any  `json:"products"`
		} `json:"productGroups"`
		Masters []any `json:"masters"`
	} `json:"messages"`
	QuickReplies []struct {
		Label  string `json:"label"`
		Action string `json:"action"`
	} `json:"quickReplies"`
	InputEnabled bool `json:"inputEnabled"`
}

func decodeSnapshot(t *testing.T, rec *httptest.ResponseRecorder) snapshot {
	t.Helper()
	var s snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &s), rec.Body.String())
	return s
}

func TestSessionFlow(t *testing.T) {
	srv := newServer(t)

	rec := srv.do(t, http.MethodPost, "/api/v1/sessions", map[string]string{"text": "Хочу вечернее платье"})
	require.Equal(t, http.StatusCreated, rec.Code)
	snap := decodeSnapshot(t, rec)
	require.Equal(t, "clarify_price", snap.Step)
	require.Len(t, snap.QuickReplies, 5)

	base := "/api/v1/sessions/" + snap.ID

	rec = srv.do(t, http.MethodPost, base+"/quick-replies", map[string]string{"action": "premium_mid"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "clarify_occasion", decodeSnapshot(t, rec).Step)

	rec = srv.do(t, http.MethodPost, base+"/quick-replies", map[string]string{"action": "party"})
	require.Equal(t, http.StatusOK, rec.Code)
	snap = decodeSnapshot(t, rec)
	require.Equal(t, "follow_up", snap.Step)
	require.True(t, snap.InputEnabled)

	results := snap.Messages[len(snap.Messages)-2]
	require.Len(t, results.Products, search.DefaultDisplayBudget)
	require.NotEmpty(t, results.ProductGroups)
	grouped := 0
	for _, g := range results.ProductGroups {
		grouped += len(g.Products)
	}
	require.Equal(t, search.DefaultDisplayBudget, grouped)
	require.True(t, strings.HasPrefix(results.Text, "Найдено 12 товаров на 4 маркетплейсах"))

	rec = srv.do(t, http.MethodPost, base+"/quick-replies", map[string]string{"action": "no"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "not_found", decodeSnapshot(t, rec).Step)

	rec = srv.do(t, http.MethodPost, base+"/quick-replies", map[string]string{"action": "find_master"})
	require.Equal(t, http.StatusOK, rec.Code)
	snap = decodeSnapshot(t, rec)
	require.Equal(t, "welcome", snap.Step)
	require.Len(t, snap.Messages[len(snap.Messages)-1].Masters, 3)

	rec = srv.do(t, http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "welcome", decodeSnapshot(t, rec).Step)

	rec = srv.do(t, http.MethodDelete, base, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	rec = srv.do(t, http.MethodGet, base, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSessionErrors(t *testing.T) {
	srv := newServer(t)

	rec := srv.do(t, http.MethodPost, "/api/v1/sessions", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	snap := decodeSnapshot(t, rec)
	require.Equal(t, "welcome", snap.Step)
	base := "/api/v1/sessions/" + snap.ID

	rec = srv.do(t, http.MethodPost, base+"/messages", map[string]string{"text": "  "})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = srv.do(t, http.MethodPost, base+"/quick-replies", map[string]string{"action": "yes"})
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = srv.do(t, http.MethodPost, base+"/quick-replies", map[string]string{})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = srv.do(t, http.MethodPost, "/api/v1/sessions/missing/messages", map[string]string{"text": "платье"})
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMarketplaces(t *testing.T) {
	srv := newServer(t)

	rec := srv.do(t, http.MethodPost, "/api/v1/marketplaces", map[string]string{"name": "Shop", "url": "https://shop.example"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var added struct {
		ID      string `json:"id"`
		Enabled bool   `json:"enabled"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &added))
	require.Equal(t, "custom-1", added.ID)
	require.True(t, added.Enabled)

	rec = srv.do(t, http.MethodPost, "/api/v1/marketplaces", map[string]string{"name": "No URL"})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = srv.do(t, http.MethodPatch, "/api/v1/marketplaces/ozon", map[string]bool{"enabled": false})
	require.Equal(t, http.StatusNoContent, rec.Code)
	rec = srv.do(t, http.MethodPatch, "/api/v1/marketplaces/nope", map[string]bool{"enabled": false})
	require.Equal(t, http.StatusNotFound, rec.Code)
	rec = srv.do(t, http.MethodPatch, "/api/v1/marketplaces/ozon", map[string]string{})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var list struct {
		Marketplaces []struct {
			ID string `json:"id"`
		} `json:"marketplaces"`
	}
	rec = srv.do(t, http.MethodGet, "/api/v1/marketplaces?enabled=true", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list.Marketplaces, 4)

	rec = srv.do(t, http.MethodDelete, "/api/v1/marketplaces/custom-1", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Len(t, srv.registry.List(), 4)
}

func TestDirectSearch(t *testing.T) {
	srv := newServer(t)

	rec := srv.do(t, http.MethodPost, "/api/v1/search", map[string]string{"prompt": "платье", "priceSegment": "budget"})
	require.Equal(t, http.StatusOK, rec.Code)
	var res struct {
		Message  string `json:"message"`
		Products []any  `json:"products"`
		Groups   []any  `json:"groups"`
		Total    int    `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.Len(t, res.Products, 6)
	require.NotEmpty(t, res.Groups)
	require.Equal(t, 12, res.Total)

	rec = srv.do(t, http.MethodPost, "/api/v1/search", map[string]string{"prompt": "платье", "priceSegment": "cheap"})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = srv.do(t, http.MethodPost, "/api/v1/search", map[string]string{})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	for _, id := range []string{"lamoda", "tsum", "wildberries", "ozon"} {
		srv.registry.Remove(t.Context(), id)
	}
	rec = srv.do(t, http.MethodPost, "/api/v1/search", map[string]string{"prompt": "платье"})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestUploadImage(t *testing.T) {
	srv := newServer(t)

	upload := func(data []byte) *httptest.ResponseRecorder {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		fw, err := mw.CreateFormFile("image", "dress.png")
		require.NoError(t, err)
		_, err = fw.Write(data)
		require.NoError(t, err)
		require.NoError(t, mw.Close())

		req := httptest.NewRequest(http.MethodPost, "/api/v1/images", &buf)
		req.Header.Set(echo.HeaderContentType, mw.FormDataContentType())
		rec := httptest.NewRecorder()
		srv.e.ServeHTTP(rec, req)
		return rec
	}

	rec := upload(pngBytes)
	require.Equal(t, http.StatusCreated, rec.Code)
	var out map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.True(t, image.IsRef(out["imageRef"]))

	rec = srv.do(t, http.MethodPost, "/api/v1/sessions", map[string]string{"imageRef": out["imageRef"]})
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, "clarify_price", decodeSnapshot(t, rec).Step)

	require.Equal(t, http.StatusUnsupportedMediaType, upload([]byte("plain text, not a picture")).Code)
	require.Equal(t, http.StatusRequestEntityTooLarge, upload(bytes.Repeat(pngBytes, 100)).Code)
}

func TestAteliersAndHealth(t *testing.T) {
	srv := newServer(t)

	rec := srv.do(t, http.MethodGet, "/api/v1/ateliers", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var out struct {
		Ateliers []struct {
			ID string `json:"id"`
		} `json:"ateliers"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Len(t, out.Ateliers, 3)

	rec = srv.do(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = srv.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}
