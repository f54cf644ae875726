package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/heliawallet/vault-server-go/internal/middleware"
	"github.com/heliawallet/vault-server-go/internal/service"
)

type PortabilityHandler struct {
	portabilityService *service.PortabilityService
	authService        *service.AuthService
}

func NewPortabilityHandler(portabilityService *service.PortabilityService, authService *service.AuthService) *PortabilityHandler {
	return &PortabilityHandler{
		portabilityService: portabilityService,
		authService:        authService,
	}
}

func (h *PortabilityHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/export", h.Export)
	r.Post("/import", h.Import)
	r.Get("/stats", h.Stats)
	r.Delete("/data", h.DeleteAllData)
	r.Delete("/account", h.DeleteAccount)
	return r
}

// GET /portability/export
func (h *PortabilityHandler) Export(w http.ResponseWriter, r *http.Request) {
	account := middleware.GetAccount(r.Context())
	if account == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
		return
	}

	doc, err := h.portabilityService.Export(r.Context(), account.ID)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Disposition", "attachment; filename=vault-export.json")
	writeJSON(w, http.StatusOK, doc)
}

// POST /portability/import
func (h *PortabilityHandler) Import(w http.ResponseWriter, r *http.Request) {
	account := middleware.GetAccount(r.Context())
	if account == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
		return
	}

	var doc service.ExportDocument
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
		return
	}

	result, err := h.portabilityService.Import(r.Context(), account.ID, &doc)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// GET /portability/stats
func (h *PortabilityHandler) Stats(w http.ResponseWriter, r *http.Request) {
	account := middleware.GetAccount(r.Context())
	if account == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
		return
	}

	stats, err := h.portabilityService.Stats(r.Context(), account.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// DELETE /portability/data wipes everything the account owns but keeps
// the account and its sessions.
func (h *PortabilityHandler) DeleteAllData(w http.ResponseWriter, r *http.Request) {
	account := middleware.GetAccount(r.Context())
	if account == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
		return
	}

	if err := h.portabilityService.DeleteAllAccountData(r.Context(), account.ID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// DELETE /portability/account requires the current password before the
// account and all owned data are removed.
func (h *PortabilityHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	account := middleware.GetAccount(r.Context())
	if account == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
		return
	}

	var req struct {
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
		return
	}

	if err := h.authService.VerifyPassword(r.Context(), account.ID, req.Password); err != nil {
		writeError(w, err)
		return
	}

	if err := h.portabilityService.DeleteAccount(r.Context(), account.ID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
