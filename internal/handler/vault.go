package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/heliawallet/vault-server-go/internal/middleware"
	"github.com/heliawallet/vault-server-go/internal/model"
	"github.com/heliawallet/vault-server-go/internal/service"
)

type VaultHandler struct {
	vaultService *service.VaultService
}

func NewVaultHandler(vaultService *service.VaultService) *VaultHandler {
	return &VaultHandler{vaultService: vaultService}
}

func (h *VaultHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Route("/conversations", func(r chi.Router) {
		r.Get("/", h.ListConversations)
		r.Post("/", h.CreateConversation)
		r.Get("/{id}", h.GetConversation)
		r.Patch("/{id}", h.UpdateConversation)
		r.Delete("/{id}", h.DeleteConversation)
		r.Post("/{id}/messages", h.AppendMessage)
	})

	r.Route("/contacts", func(r chi.Router) {
		r.Get("/", h.ListContacts)
		r.Post("/", h.CreateContact)
		r.Get("/{id}", h.GetContact)
		r.Put("/{id}", h.UpdateContact)
		r.Delete("/{id}", h.DeleteContact)
		r.Post("/{id}/touch", h.TouchContact)
	})

	r.Route("/labels", func(r chi.Router) {
		r.Get("/", h.ListLabels)
		r.Post("/", h.CreateLabel)
		r.Get("/by-tx/{txHash}", h.GetLabelByTxHash)
		r.Put("/{id}", h.UpdateLabel)
		r.Delete("/{id}", h.DeleteLabel)
	})

	r.Route("/settings", func(r chi.Router) {
		r.Get("/", h.GetSettings)
		r.Put("/", h.UpdateSettings)
	})

	r.Route("/snapshots", func(r chi.Router) {
		r.Get("/", h.ListSnapshots)
		r.Post("/", h.CreateSnapshot)
		r.Delete("/{id}", h.DeleteSnapshot)
	})

	r.Route("/tokens", func(r chi.Router) {
		r.Get("/", h.ListTokens)
		r.Post("/", h.TrackToken)
		r.Delete("/{id}", h.UntrackToken)
	})

	return r
}

// Conversations

// GET /vault/conversations
func (h *VaultHandler) ListConversations(w http.ResponseWriter, r *http.Request) {
	account := middleware.GetAccount(r.Context())
	if account == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	conversations, err := h.vaultService.ListConversations(r.Context(), account.ID, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"conversations": conversations})
}

// POST /vault/conversations
func (h *VaultHandler) CreateConversation(w http.ResponseWriter, r *http.Request) {
	account := middleware.GetAccount(r.Context())
	if account == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
		return
	}

	var req struct {
		Title    string          `json:"title"`
		Messages []model.Message `json:"messages"`
		Tags     []string        `json:"tags"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
		return
	}

	conversation, err := h.vaultService.CreateConversation(r.Context(), model.CreateConversationParams{
		AccountID: account.ID,
		Title:     req.Title,
		Messages:  req.Messages,
		Tags:      req.Tags,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, conversation)
}

// GET /vault/conversations/{id}
func (h *VaultHandler) GetConversation(w http.ResponseWriter, r *http.Request) {
	account := middleware.GetAccount(r.Context())
	if account == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
		return
	}

	conversation, err := h.vaultService.GetConversation(r.Context(), account.ID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, conversation)
}

// PATCH /vault/conversations/{id}
func (h *VaultHandler) UpdateConversation(w http.ResponseWriter, r *http.Request) {
	account := middleware.GetAccount(r.Context())
	if account == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
		return
	}

	var req struct {
		Title string   `json:"title"`
		Tags  []string `json:"tags"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
		return
	}

	conversation, err := h.vaultService.UpdateConversation(r.Context(), account.ID, chi.URLParam(r, "id"), req.Title, req.Tags)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, conversation)
}

// DELETE /vault/conversations/{id}
func (h *VaultHandler) DeleteConversation(w http.ResponseWriter, r *http.Request) {
	account := middleware.GetAccount(r.Context())
	if account == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
		return
	}

	if err := h.vaultService.DeleteConversation(r.Context(), account.ID, chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// POST /vault/conversations/{id}/messages
func (h *VaultHandler) AppendMessage(w http.ResponseWriter, r *http.Request) {
	account := middleware.GetAccount(r.Context())
	if account == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
		return
	}

	var message model.Message
	if err := json.NewDecoder(r.Body).Decode(&message); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
		return
	}
	if message.Timestamp.IsZero() {
		message.Timestamp = time.Now()
	}

	conversation, err := h.vaultService.AppendMessage(r.Context(), account.ID, chi.URLParam(r, "id"), message)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, conversation)
}

// Contacts

// GET /vault/contacts?q=<name prefix>&address=<addr>
func (h *VaultHandler) ListContacts(w http.ResponseWriter, r *http.Request) {
	account := middleware.GetAccount(r.Context())
	if account == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
		return
	}

	var (
		contacts []model.Contact
		err      error
	)
	switch {
	case r.URL.Query().Get("q") != "":
		contacts, err = h.vaultService.SearchContacts(r.Context(), account.ID, r.URL.Query().Get("q"))
	case r.URL.Query().Get("address") != "":
		contacts, err = h.vaultService.FindContactsByAddress(r.Context(), account.ID, r.URL.Query().Get("address"))
	default:
		contacts, err = h.vaultService.ListContacts(r.Context(), account.ID)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"contacts": contacts})
}

// POST /vault/contacts
func (h *VaultHandler) CreateContact(w http.ResponseWriter, r *http.Request) {
	account := middleware.GetAccount(r.Context())
	if account == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
		return
	}

	var req struct {
		Name    string   `json:"name"`
		Address string   `json:"address"`
		Alias   string   `json:"alias"`
		Tags    []string `json:"tags"`
		Notes   string   `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
		return
	}

	contact, err := h.vaultService.CreateContact(r.Context(), model.CreateContactParams{
		AccountID: account.ID,
		Name:      req.Name,
		Address:   req.Address,
		Alias:     req.Alias,
		Tags:      req.Tags,
		Notes:     req.Notes,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, contact)
}

// GET /vault/contacts/{id}
func (h *VaultHandler) GetContact(w http.ResponseWriter, r *http.Request) {
	account := middleware.GetAccount(r.Context())
	if account == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
		return
	}

	contact, err := h.vaultService.GetContact(r.Context(), account.ID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, contact)
}

// PUT /vault/contacts/{id}
func (h *VaultHandler) UpdateContact(w http.ResponseWriter, r *http.Request) {
	account := middleware.GetAccount(r.Context())
	if account == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
		return
	}

	var contact model.Contact
	if err := json.NewDecoder(r.Body).Decode(&contact); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
		return
	}
	contact.ID = chi.URLParam(r, "id")

	updated, err := h.vaultService.UpdateContact(r.Context(), account.ID, &contact)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// DELETE /vault/contacts/{id}
func (h *VaultHandler) DeleteContact(w http.ResponseWriter, r *http.Request) {
	account := middleware.GetAccount(r.Context())
	if account == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
		return
	}

	if err := h.vaultService.DeleteContact(r.Context(), account.ID, chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// POST /vault/contacts/{id}/touch
func (h *VaultHandler) TouchContact(w http.ResponseWriter, r *http.Request) {
	account := middleware.GetAccount(r.Context())
	if account == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
		return
	}

	if err := h.vaultService.TouchContact(r.Context(), account.ID, chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "touched"})
}

// Labels

// GET /vault/labels
func (h *VaultHandler) ListLabels(w http.ResponseWriter, r *http.Request) {
	account := middleware.GetAccount(r.Context())
	if account == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
		return
	}

	labels, err := h.vaultService.ListLabels(r.Context(), account.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"labels": labels})
}

// POST /vault/labels
func (h *VaultHandler) CreateLabel(w http.ResponseWriter, r *http.Request) {
	account := middleware.GetAccount(r.Context())
	if account == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
		return
	}

	var req struct {
		TxHash   string   `json:"txHash"`
		Label    string   `json:"label"`
		Category string   `json:"category"`
		Amount   *float64 `json:"amount"`
		Notes    string   `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
		return
	}

	label, err := h.vaultService.CreateLabel(r.Context(), model.CreateTxLabelParams{
		AccountID: account.ID,
		TxHash:    req.TxHash,
		Label:     req.Label,
		Category:  req.Category,
		Amount:    req.Amount,
		Notes:     req.Notes,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, label)
}

// GET /vault/labels/by-tx/{txHash}
func (h *VaultHandler) GetLabelByTxHash(w http.ResponseWriter, r *http.Request) {
	account := middleware.GetAccount(r.Context())
	if account == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
		return
	}

	label, err := h.vaultService.GetLabelByTxHash(r.Context(), account.ID, chi.URLParam(r, "txHash"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, label)
}

// PUT /vault/labels/{id}
func (h *VaultHandler) UpdateLabel(w http.ResponseWriter, r *http.Request) {
	account := middleware.GetAccount(r.Context())
	if account == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
		return
	}

	var label model.TxLabel
	if err := json.NewDecoder(r.Body).Decode(&label); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
		return
	}
	label.ID = chi.URLParam(r, "id")

	updated, err := h.vaultService.UpdateLabel(r.Context(), account.ID, &label)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// DELETE /vault/labels/{id}
func (h *VaultHandler) DeleteLabel(w http.ResponseWriter, r *http.Request) {
	account := middleware.GetAccount(r.Context())
	if account == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
		return
	}

	if err := h.vaultService.DeleteLabel(r.Context(), account.ID, chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// Settings

// GET /vault/settings
func (h *VaultHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	account := middleware.GetAccount(r.Context())
	if account == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
		return
	}

	settings, err := h.vaultService.GetSettings(r.Context(), account.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

// PUT /vault/settings
func (h *VaultHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	account := middleware.GetAccount(r.Context())
	if account == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
		return
	}

	var settings model.Settings
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
		return
	}

	updated, err := h.vaultService.UpdateSettings(r.Context(), account.ID, &settings)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// Snapshots

// GET /vault/snapshots?from=<RFC3339>&to=<RFC3339>&desc=true&limit=N
func (h *VaultHandler) ListSnapshots(w http.ResponseWriter, r *http.Request) {
	account := middleware.GetAccount(r.Context())
	if account == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
		return
	}

	var from, to time.Time
	if v := r.URL.Query().Get("from"); v != "" {
		from, _ = time.Parse(time.RFC3339, v)
	}
	if v := r.URL.Query().Get("to"); v != "" {
		to, _ = time.Parse(time.RFC3339, v)
	}
	desc := r.URL.Query().Get("desc") == "true"
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	snapshots, err := h.vaultService.ListSnapshots(r.Context(), account.ID, from, to, desc, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"snapshots": snapshots})
}

// POST /vault/snapshots
func (h *VaultHandler) CreateSnapshot(w http.ResponseWriter, r *http.Request) {
	account := middleware.GetAccount(r.Context())
	if account == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
		return
	}

	var req struct {
		CapturedAt time.Time            `json:"capturedAt"`
		TotalValue float64              `json:"totalValue"`
		Assets     []model.AssetBalance `json:"assets"`
		Network    string               `json:"network"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
		return
	}

	snapshot, err := h.vaultService.CreateSnapshot(r.Context(), model.CreateSnapshotParams{
		AccountID:  account.ID,
		CapturedAt: req.CapturedAt,
		TotalValue: req.TotalValue,
		Assets:     req.Assets,
		Network:    req.Network,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, snapshot)
}

// DELETE /vault/snapshots/{id}
func (h *VaultHandler) DeleteSnapshot(w http.ResponseWriter, r *http.Request) {
	account := middleware.GetAccount(r.Context())
	if account == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
		return
	}

	if err := h.vaultService.DeleteSnapshot(r.Context(), account.ID, chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// Tracked tokens

// GET /vault/tokens
func (h *VaultHandler) ListTokens(w http.ResponseWriter, r *http.Request) {
	account := middleware.GetAccount(r.Context())
	if account == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
		return
	}

	tokens, err := h.vaultService.ListTokens(r.Context(), account.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tokens": tokens})
}

// POST /vault/tokens
func (h *VaultHandler) TrackToken(w http.ResponseWriter, r *http.Request) {
	account := middleware.GetAccount(r.Context())
	if account == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
		return
	}

	var req struct {
		Address  string `json:"address"`
		Symbol   string `json:"symbol"`
		Name     string `json:"name"`
		Decimals int    `json:"decimals"`
		Network  string `json:"network"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
		return
	}

	token, err := h.vaultService.TrackToken(r.Context(), model.CreateTrackedTokenParams{
		AccountID: account.ID,
		Address:   req.Address,
		Symbol:    req.Symbol,
		Name:      req.Name,
		Decimals:  req.Decimals,
		Network:   req.Network,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, token)
}

// DELETE /vault/tokens/{id}
func (h *VaultHandler) UntrackToken(w http.ResponseWriter, r *http.Request) {
	account := middleware.GetAccount(r.Context())
	if account == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
		return
	}

	if err := h.vaultService.UntrackToken(r.Context(), account.ID, chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "untracked"})
}
