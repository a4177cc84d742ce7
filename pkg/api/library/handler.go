// Package library serves saved models and their scenarios.
package library

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/clenisa/discounted-cashflow-analysis/pkg/api/respond"
	"github.com/clenisa/discounted-cashflow-analysis/pkg/core/dataset"
	"github.com/clenisa/discounted-cashflow-analysis/pkg/core/store"
	dcf "github.com/clenisa/discounted-cashflow-analysis/pkg/core/valuation"
	"github.com/clenisa/discounted-cashflow-analysis/pkg/models"
)

const maxBodyBytes = 1 << 20

// Handler exposes a store.Store over HTTP.
type Handler struct {
	store store.Store
}

func NewHandler(s store.Store) *Handler {
	return &Handler{store: s}
}

// Routes registers the handler under r.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/models", func(r chi.Router) {
		r.Get("/", h.ListModels)
		r.Post("/", h.CreateModel)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.GetModel)
			r.Put("/", h.UpdateModel)
			r.Delete("/", h.DeleteModel)
			r.Get("/scenarios", h.ListScenarios)
			r.Post("/scenarios", h.CreateScenario)
			r.Put("/scenarios/order", h.ReorderScenarios)
			r.Get("/compare", h.CompareScenarios)
		})
	})
	r.Route("/scenarios/{id}", func(r chi.Router) {
		r.Get("/", h.GetScenario)
		r.Put("/", h.UpdateScenario)
		r.Delete("/", h.DeleteScenario)
	})
}

func (h *Handler) ListModels(w http.ResponseWriter, r *http.Request) {
	list, err := h.store.ListModels(r.Context())
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	if list == nil {
		list = []*models.Model{}
	}
	respond.JSON(w, r, http.StatusOK, list)
}

func (h *Handler) CreateModel(w http.ResponseWriter, r *http.Request) {
	var m models.Model
	if !decodeJSON(w, r, &m) {
		return
	}
	m.ID = ""
	h.saveModel(w, r, &m, http.StatusCreated)
}

func (h *Handler) GetModel(w http.ResponseWriter, r *http.Request) {
	m, err := h.store.LoadModel(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, r, http.StatusOK, m)
}

func (h *Handler) UpdateModel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := h.store.LoadModel(r.Context(), id); err != nil {
		respond.Error(w, r, err)
		return
	}
	var m models.Model
	if !decodeJSON(w, r, &m) {
		return
	}
	m.ID = id
	h.saveModel(w, r, &m, http.StatusOK)
}

func (h *Handler) DeleteModel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.store.DeleteModel(r.Context(), id); err != nil {
		respond.Error(w, r, err)
		return
	}
	zerolog.Ctx(r.Context()).Info().Str("model_id", id).Msg("model deleted")
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := h.store.LoadModel(r.Context(), id); err != nil {
		respond.Error(w, r, err)
		return
	}
	list, err := h.store.ListScenarios(r.Context(), id)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	if list == nil {
		list = []*models.Scenario{}
	}
	respond.JSON(w, r, http.StatusOK, list)
}

func (h *Handler) CreateScenario(w http.ResponseWriter, r *http.Request) {
	modelID := chi.URLParam(r, "id")
	if _, err := h.store.LoadModel(r.Context(), modelID); err != nil {
		respond.Error(w, r, err)
		return
	}
	var sc models.Scenario
	if !decodeJSON(w, r, &sc) {
		return
	}
	sc.ID = ""
	sc.ModelID = modelID
	h.saveScenario(w, r, &sc, http.StatusCreated)
}

type OrderRequest struct {
	IDs []string `json:"ids"`
}

// ReorderScenarios sets the scenario order; ids must name every scenario of
// the model once.
func (h *Handler) ReorderScenarios(w http.ResponseWriter, r *http.Request) {
	modelID := chi.URLParam(r, "id")
	if _, err := h.store.LoadModel(r.Context(), modelID); err != nil {
		respond.Error(w, r, err)
		return
	}
	var req OrderRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.store.ReorderScenarios(r.Context(), modelID, req.IDs); err != nil {
		respond.Error(w, r, err)
		return
	}
	h.ListScenarios(w, r)
}

// CompareScenarios compares every scenario of a model against its base
// scenario (the one flagged IsBaseScenario, else the first in order).
func (h *Handler) CompareScenarios(w http.ResponseWriter, r *http.Request) {
	modelID := chi.URLParam(r, "id")
	if _, err := h.store.LoadModel(r.Context(), modelID); err != nil {
		respond.Error(w, r, err)
		return
	}
	list, err := h.store.ListScenarios(r.Context(), modelID)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	if len(list) == 0 {
		respond.JSON(w, r, http.StatusOK, []*dcf.Comparison{})
		return
	}

	base := list[0]
	for _, sc := range list {
		if sc.IsBaseScenario {
			base = sc
			break
		}
	}
	others := make([]models.DataSet, 0, len(list)-1)
	for _, sc := range list {
		if sc.ID != base.ID {
			others = append(others, labelled(sc))
		}
	}
	cmps, err := dcf.CompareAll(labelled(base), others...)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, r, http.StatusOK, cmps)
}

func (h *Handler) GetScenario(w http.ResponseWriter, r *http.Request) {
	sc, err := h.store.LoadScenario(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, r, http.StatusOK, sc)
}

func (h *Handler) UpdateScenario(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	prev, err := h.store.LoadScenario(r.Context(), id)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	var sc models.Scenario
	if !decodeJSON(w, r, &sc) {
		return
	}
	// Ownership and position only change through their own endpoints.
	sc.ID = id
	sc.ModelID = prev.ModelID
	sc.SortOrder = prev.SortOrder
	h.saveScenario(w, r, &sc, http.StatusOK)
}

func (h *Handler) DeleteScenario(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DeleteScenario(r.Context(), chi.URLParam(r, "id")); err != nil {
		respond.Error(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) saveModel(w http.ResponseWriter, r *http.Request, m *models.Model, status int) {
	results, err := value(m.DataSet)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	m.Results = results
	if _, err := h.store.SaveModel(r.Context(), m); err != nil {
		respond.Error(w, r, err)
		return
	}
	zerolog.Ctx(r.Context()).Info().Str("model_id", m.ID).Str("name", m.ModelName).Msg("model saved")
	respond.JSON(w, r, status, m)
}

func (h *Handler) saveScenario(w http.ResponseWriter, r *http.Request, sc *models.Scenario, status int) {
	results, err := value(sc.DataSet)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	sc.Results = results
	if _, err := h.store.SaveScenario(r.Context(), sc); err != nil {
		respond.Error(w, r, err)
		return
	}
	zerolog.Ctx(r.Context()).Info().
		Str("scenario_id", sc.ID).
		Str("model_id", sc.ModelID).
		Msg("scenario saved")
	respond.JSON(w, r, status, sc)
}

// value validates ds and computes the results stored alongside it.
func value(ds models.DataSet) (*models.Results, error) {
	if err := dataset.Validate(ds); err != nil {
		return nil, err
	}
	return dcf.CalculateFromDataSet(ds)
}

func labelled(sc *models.Scenario) models.DataSet {
	ds := sc.DataSet
	if ds.Label == "" {
		ds.Label = sc.ScenarioName
	}
	return ds
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(v); err != nil {
		respond.BadRequest(w, r, fmt.Errorf("invalid request body: %w", err))
		return false
	}
	return true
}
