package handlers

import (
	"net/http"

	"ceiba/internal/domain"
)

type collectionsResponse struct {
	Collections []domain.CollectionInfo `json:"collections"`
}

// ListCollections returns the property collections with their sizes.
func (a *App) ListCollections(w http.ResponseWriter, r *http.Request) {
	items, err := a.Queries.Collections(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, collectionsResponse{Collections: items})
}
