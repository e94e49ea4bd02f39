package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/DoyleJ11/hoops-draft-backend/internal/catalog"
	"github.com/DoyleJ11/hoops-draft-backend/internal/engine"
	"github.com/DoyleJ11/hoops-draft-backend/internal/hub"
	"github.com/DoyleJ11/hoops-draft-backend/pkg/types"
)

func newTestRouter(t *testing.T) (http.Handler, *hub.Hub, *catalog.Catalog) {
	t.Helper()
	cat, err := catalog.Load("")
	require.NoError(t, err)

	logger := zaptest.NewLogger(t)
	h := hub.NewHub(context.Background(), hub.Config{
		Rules:   engine.DefaultRules(),
		Catalog: cat,
		Logger:  logger,
	})
	t.Cleanup(func() { _ = h.Shutdown(context.Background()) })
	return SetupRoutes(Deps{Hub: h, Catalog: cat, Logger: logger}), h, cat
}

func get(t *testing.T, router http.Handler, path string, out any) int {
	t.Helper()
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	if out != nil {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out), rec.Body.String())
	}
	return rec.Code
}

func TestHealthz(t *testing.T) {
	router, h, _ := newTestRouter(t)

	var body healthResponse
	assert.Equal(t, http.StatusOK, get(t, router, "/healthz", &body))
	assert.Equal(t, healthResponse{Status: "ok", Rooms: 0}, body)

	_, _, err := h.Create(context.Background(), "c1", "Alice", make(chan types.ServerMessage, 8))
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, get(t, router, "/healthz", &body))
	assert.Equal(t, 1, body.Rooms)
}

func TestResources(t *testing.T) {
	router, _, cat := newTestRouter(t)

	var resources []catalog.Resource
	assert.Equal(t, http.StatusOK, get(t, router, "/api/resources", &resources))
	assert.Equal(t, cat.Resources(), resources)

	id := resources[0].ID
	var cands []types.CandidateData
	assert.Equal(t, http.StatusOK, get(t, router, "/api/resources/"+id+"/candidates", &cands))
	require.Len(t, cands, len(cat.CandidatesByResource(id)))
	for _, c := range cands {
		assert.Equal(t, id, c.ResourceID)
		assert.NotEmpty(t, c.Slots)
	}

	var apiErr errorResponse
	assert.Equal(t, http.StatusNotFound, get(t, router, "/api/resources/NOPE/candidates", &apiErr))
}

func TestGetRoom(t *testing.T) {
	router, h, _ := newTestRouter(t)

	lb, _, err := h.Create(context.Background(), "c1", "Alice", make(chan types.ServerMessage, 8))
	require.NoError(t, err)

	var room types.RoomState
	assert.Equal(t, http.StatusOK, get(t, router, "/api/rooms/"+lb.Code(), &room))
	assert.Equal(t, lb.Code(), room.RoomID)
	assert.Equal(t, string(engine.PhaseLobby), room.Phase)
	assert.Equal(t, "Alice", room.Seats[1].Name)

	var apiErr errorResponse
	assert.Equal(t, http.StatusNotFound, get(t, router, "/api/rooms/ZZZZZZ", &apiErr))
	assert.Equal(t, types.CodeRoomNotFound, apiErr.Code)
}
