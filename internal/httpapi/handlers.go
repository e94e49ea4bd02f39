package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/DoyleJ11/hoops-draft-backend/internal/catalog"
	"github.com/DoyleJ11/hoops-draft-backend/internal/engine"
	"github.com/DoyleJ11/hoops-draft-backend/internal/hub"
	"github.com/DoyleJ11/hoops-draft-backend/internal/lobby"
	"github.com/DoyleJ11/hoops-draft-backend/pkg/types"
)

type healthResponse struct {
	Status string `json:"status"`
	Rooms  int    `json:"rooms"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}

func Healthz(h *hub.Hub, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n, err := h.Count(r.Context())
		if err != nil {
			logger.Warn("health check", zap.Error(err))
			writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "unavailable"})
			return
		}
		writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Rooms: n})
	}
}

func ListResources(c catalog.Provider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, c.Resources())
	}
}

func ListCandidates(c catalog.Provider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if _, ok := c.Resource(id); !ok {
			writeError(w, http.StatusNotFound, types.CodeBadRequest, "unknown resource "+id)
			return
		}

		cands := c.CandidatesByResource(id)
		out := make([]*types.CandidateData, 0, len(cands))
		for _, cand := range cands {
			out = append(out, lobby.CandidateView(engine.NewPick(cand)))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func GetRoom(h *hub.Hub, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lb, err := h.Get(r.Context(), chi.URLParam(r, "code"))
		if err == nil {
			var v lobby.View
			v, err = lb.Snapshot(r.Context())
			if err == nil {
				writeJSON(w, http.StatusOK, v.Room)
				return
			}
		}

		if errors.Is(err, lobby.ErrRoomNotFound) {
			writeError(w, http.StatusNotFound, types.CodeRoomNotFound, "room not found")
			return
		}
		logger.Error("room snapshot", zap.Error(err))
		writeError(w, http.StatusInternalServerError, types.CodeInternal, "internal error")
	}
}
