package v1

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"medcatalog-backend/config"
	"medcatalog-backend/internal/domain"
	"medcatalog-backend/internal/usecase"
	"medcatalog-backend/pkg/cursor"
	"medcatalog-backend/pkg/logger"
	"medcatalog-backend/pkg/utils"
)

type CatalogHandler struct {
	catalogUC *usecase.CatalogUsecase
	facetUC   *usecase.FacetUsecase
	cfg       *config.Config
}

func NewCatalogHandler(catalogUC *usecase.CatalogUsecase, facetUC *usecase.FacetUsecase, cfg *config.Config) *CatalogHandler {
	return &CatalogHandler{
		catalogUC: catalogUC,
		facetUC:   facetUC,
		cfg:       cfg,
	}
}

// ListMedicines serves the catalog query endpoint in both pagination modes.
func (h *CatalogHandler) ListMedicines(w http.ResponseWriter, r *http.Request) {
	q := parseSearchQuery(r.URL.Query(), h.cfg.DefaultRadiusMeters)

	res, err := h.catalogUC.List(r.Context(), q)
	if err != nil {
		if errors.Is(err, cursor.ErrInvalid) {
			utils.WriteError(w, http.StatusBadRequest, "Invalid cursor")
			return
		}
		h.serverError(w, r, err, "Server error fetching medicines")
		return
	}

	w.Header().Set("X-Cache", cacheStatus(res.CacheHit))
	w.Header().Set("X-Execution-Time", fmt.Sprintf("%dms", res.ExecutionTime.Milliseconds()))
	if res.OffsetMode {
		w.Header().Set("X-Total-Count", strconv.FormatInt(res.Total, 10))
	}
	utils.WriteRaw(w, http.StatusOK, res.Payload)
}

// GetMedicine serves a single catalog item by id.
func (h *CatalogHandler) GetMedicine(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		utils.WriteError(w, http.StatusBadRequest, "Medicine ID required")
		return
	}

	med, hit, err := h.catalogUC.GetMedicine(r.Context(), id)
	if err != nil {
		h.serverError(w, r, err, "Server error fetching medicine")
		return
	}
	if med == nil {
		utils.WriteError(w, http.StatusNotFound, "Medicine not found")
		return
	}

	w.Header().Set("X-Cache", cacheStatus(hit))
	utils.WriteJSON(w, http.StatusOK, domain.Response{Success: true, Data: med})
}

// GetFilterOptions serves the facet snapshot backing the filter UI.
func (h *CatalogHandler) GetFilterOptions(w http.ResponseWriter, r *http.Request) {
	snap, hit, err := h.facetUC.GetFilterOptions(r.Context())
	if err != nil {
		h.serverError(w, r, err, "Server error fetching filter options")
		return
	}

	w.Header().Set("X-Cache", cacheStatus(hit))
	utils.WriteJSON(w, http.StatusOK, domain.Response{Success: true, Data: snap})
}

// serverError hides store failure detail unless running outside production.
func (h *CatalogHandler) serverError(w http.ResponseWriter, r *http.Request, err error, message string) {
	logger.WithContext(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("Catalog query failed")
	if !h.cfg.IsProduction() {
		message = fmt.Sprintf("%s: %v", message, err)
	}
	utils.WriteError(w, http.StatusInternalServerError, message)
}

func cacheStatus(hit bool) string {
	if hit {
		return "HIT"
	}
	return "MISS"
}
