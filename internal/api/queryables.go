package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/robert-malhotra/inpe-stac-search/internal/catalog"
)

// Queryables returns the JSON schema of the fields accepted by the query and
// sortby extensions.
// GET /queryables
// GET /collections/{collectionId}/queryables
func (h *Handlers) Queryables(w http.ResponseWriter, r *http.Request) {
	collectionID := chi.URLParam(r, "collectionId")

	title := "Queryables for the scene catalog"
	id := h.cfg.STAC.BaseURL + "/queryables"

	if collectionID != "" {
		if _, err := h.catalog.Collection(r.Context(), collectionID); err != nil {
			WriteSearchError(w, r, h.logger, err)
			return
		}
		title = "Queryables for " + collectionID
		id = h.cfg.STAC.BaseURL + "/collections/" + collectionID + "/queryables"
	}

	properties := make(map[string]any)
	for _, f := range catalog.Queryables() {
		prop := map[string]any{
			"description": f.Description,
			"type":        f.Kind.String(),
		}
		if f.Kind == catalog.KindInstant {
			prop["format"] = "date-time"
		}
		properties[f.Name] = prop
	}

	if collectionID != "" {
		if prop, ok := properties["collection"].(map[string]any); ok {
			prop["enum"] = []string{collectionID}
		}
	}

	queryables := map[string]any{
		"$schema":              "https://json-schema.org/draft/2019-09/schema",
		"$id":                  id,
		"type":                 "object",
		"title":                title,
		"description":          "Queryable properties for STAC API search",
		"properties":           properties,
		"additionalProperties": false,
	}

	WriteJSON(w, http.StatusOK, queryables)
}
