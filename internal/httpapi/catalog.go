package httpapi

import (
	"fmt"
	"net/http"
	"sort"

	"github.com/book-expert/tts-gateway/internal/core"
	"github.com/book-expert/tts-gateway/internal/voices"
)

// handleVoices lists the voice catalog of the configured models. An optional
// `model` query parameter narrows the response to one model.
func (r *Router) handleVoices(w http.ResponseWriter, req *http.Request) {
	modelIDs, err := r.requestedModels(req)
	if err != nil {
		r.writeError(w, err)

		return
	}

	catalog := make(map[string][]voices.Voice, len(modelIDs))
	for _, modelID := range modelIDs {
		catalog[modelID] = voices.ByModel(modelID)
	}

	writeJSON(w, http.StatusOK, map[string]any{"voices": catalog})
}

// handleLanguages lists the distinct languages covered by the configured
// models, with native names.
func (r *Router) handleLanguages(w http.ResponseWriter, req *http.Request) {
	modelIDs, err := r.requestedModels(req)
	if err != nil {
		r.writeError(w, err)

		return
	}

	seen := make(map[string]voices.Language)

	for _, modelID := range modelIDs {
		for _, language := range voices.Languages(modelID) {
			seen[language.Code] = language
		}
	}

	languages := make([]voices.Language, 0, len(seen))
	for _, language := range seen {
		languages = append(languages, language)
	}

	sort.Slice(languages, func(i, j int) bool {
		return languages[i].Code < languages[j].Code
	})

	writeJSON(w, http.StatusOK, map[string]any{"languages": languages})
}

func (r *Router) requestedModels(req *http.Request) ([]string, error) {
	if modelID := req.URL.Query().Get("model"); modelID != "" {
		if !r.cfg.AllowsModel(modelID) {
			return nil, fmt.Errorf("%w: model %q is not allowed", core.ErrInvalidInput, modelID)
		}

		return []string{modelID}, nil
	}

	modelIDs := make([]string, 0, len(r.cfg.Models))
	for _, model := range r.cfg.Models {
		modelIDs = append(modelIDs, model.ID)
	}

	return modelIDs, nil
}
