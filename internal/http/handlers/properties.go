package handlers

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"ceiba/internal/domain"
	"ceiba/internal/jobs"
)

type updatePropertyRequest struct {
	Cookie         string `json:"cookie"`
	CollectionName string `json:"collection_name"`
	domain.PropertyFields
}

type propertiesResponse struct {
	Properties []domain.Property `json:"properties"`
}

// UpdateProperty writes the computed fields of a property.
func (a *App) UpdateProperty(w http.ResponseWriter, r *http.Request) {
	propID, err := idParam(r, "property_id")
	if err != nil {
		a.fail(w, r, err)
		return
	}
	var req updatePropertyRequest
	if !a.decode(w, r, &req) {
		return
	}
	reply, err := a.Controller.UpdateProperty(r.Context(), jobs.UpdatePropertyInput{
		Cookie: credential(r, req.Cookie),
		Property: domain.PropertyUpdate{
			ID:             propID,
			CollectionName: req.CollectionName,
			PropertyFields: req.PropertyFields,
		},
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, reply)
}

// ListProperties returns the properties of a collection.
func (a *App) ListProperties(w http.ResponseWriter, r *http.Request) {
	limit, err := intQuery(r, "limit")
	if err != nil {
		a.fail(w, r, err)
		return
	}
	items, err := a.Queries.Properties(r.Context(), chi.URLParam(r, "collection"), limit)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, propertiesResponse{Properties: items})
}

func requiredErr(field string) error {
	return fmt.Errorf("%s is required: %w", field, domain.ErrInvalidInput)
}
