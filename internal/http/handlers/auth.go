package handlers

import (
	"net/http"
	"strings"
)

type authenticateRequest struct {
	Token string `json:"token"`
}

// Authenticate exchanges a GitHub token for a service cookie.
func (a *App) Authenticate(w http.ResponseWriter, r *http.Request) {
	var req authenticateRequest
	if !a.decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Token) == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "token required")
		return
	}
	reply, err := a.Sessions.Authenticate(r.Context(), req.Token)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, reply)
}
