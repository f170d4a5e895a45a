package connect

import (
	"encoding/json"
	"errors"
	"net/http"
)

// Handler is a drop-in HTTP surface over the manager for hosts that don't
// need custom routing. DecryptedTokens is deliberately not routed: plaintext
// credentials must never be reachable from a public surface.
type Handler struct {
	manager *Manager
}

// NewHandler creates an HTTP handler for the manager.
func NewHandler(manager *Manager) *Handler {
	return &Handler{manager: manager}
}

// Routes returns a mux with all public endpoints registered:
//
//	GET  /connect/url?tenant_id=...
//	GET  /connect/callback?code=...&state=...
//	GET  /connections?tenant_id=...
//	GET  /connections/status?tenant_id=...&external_org_id=...
//	POST /connections/refresh?tenant_id=...&external_org_id=...
//	POST /connections/disconnect?tenant_id=...&external_org_id=...
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /connect/url", h.ServeAuthURL)
	mux.HandleFunc("GET /connect/callback", h.ServeCallback)
	mux.HandleFunc("GET /connections", h.ServeConnections)
	mux.HandleFunc("GET /connections/status", h.ServeStatus)
	mux.HandleFunc("POST /connections/refresh", h.ServeRefresh)
	mux.HandleFunc("POST /connections/disconnect", h.ServeDisconnect)
	return mux
}

// ServeAuthURL starts a consent flow and returns the URL to redirect to.
func (h *Handler) ServeAuthURL(w http.ResponseWriter, r *http.Request) {
	result, err := h.manager.GenerateAuthURL(r.Context(), r.URL.Query().Get("tenant_id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

// ServeCallback completes the consent flow from the provider redirect.
func (h *Handler) ServeCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	info, err := h.manager.HandleCallback(r.Context(), CallbackParams{
		Code:             q.Get("code"),
		State:            q.Get("state"),
		Error:            q.Get("error"),
		ErrorDescription: q.Get("error_description"),
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, info)
}

// ServeConnections lists the tenant's connections.
func (h *Handler) ServeConnections(w http.ResponseWriter, r *http.Request) {
	infos, err := h.manager.GetConnections(r.Context(), r.URL.Query().Get("tenant_id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, infos)
}

// ServeStatus reports the connection's current state. Absent connections
// return 200 with a null body, matching the manager's nil result.
func (h *Handler) ServeStatus(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	info, err := h.manager.GetConnectionStatus(r.Context(), q.Get("tenant_id"), q.Get("external_org_id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, info)
}

// ServeRefresh triggers an explicit token refresh.
func (h *Handler) ServeRefresh(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	result, err := h.manager.RefreshTokens(r.Context(), q.Get("tenant_id"), q.Get("external_org_id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

// ServeDisconnect severs the connection.
func (h *Handler) ServeDisconnect(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	result, err := h.manager.Disconnect(r.Context(), q.Get("tenant_id"), q.Get("external_org_id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var ce *ConnectError
	if !errors.As(err, &ce) {
		ce = ErrInternal("internal error")
	}
	h.writeJSON(w, ce.Status, map[string]string{
		"error":             ce.Code,
		"error_description": ce.Description,
	})
}
