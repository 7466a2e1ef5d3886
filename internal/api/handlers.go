package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ignite/workforce-monitor/internal/ingest"
	"github.com/ignite/workforce-monitor/internal/repository/postgres"
	"github.com/ignite/workforce-monitor/internal/service/dataset"
	"github.com/ignite/workforce-monitor/internal/timenorm"
)

// maxUploadBytes caps upload size; attendance exports are small but the
// occasional multi-year backfill is not.
const maxUploadBytes = 256 << 20

// ImportLister serves the import history endpoint. Nil when the server runs
// without a database.
type ImportLister interface {
	List(ctx context.Context, limit int) ([]postgres.ImportEntry, error)
}

// Handlers holds the HTTP handlers for the workforce API.
type Handlers struct {
	datasets *dataset.Service
	imports  ImportLister
	watcher  *ingest.Watcher
}

func NewHandlers(datasets *dataset.Service, imports ImportLister, watcher *ingest.Watcher) *Handlers {
	return &Handlers{datasets: datasets, imports: imports, watcher: watcher}
}

// HealthCheck reports service liveness and watcher state.
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{
		"status": "ok",
	}
	if h.watcher != nil {
		status["watcher_running"] = h.watcher.IsRunning()
		if last := h.watcher.LastRunAt(); !last.IsZero() {
			status["watcher_last_run_at"] = last
		}
	}
	writeJSON(w, http.StatusOK, status)
}

// HandleUpload accepts a timesheet export (multipart field "file", or the
// raw request body) and processes it into a new dataset. Uploads never fail
// normalization; a file we cannot make sense of produces a synthetic dataset
// flagged as such in the response.
func (h *Handlers) HandleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	name := "upload.csv"
	var table timenorm.Table
	var err error

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		file, header, ferr := r.FormFile("file")
		if ferr != nil {
			writeError(w, http.StatusBadRequest, `multipart form must carry a "file" field`)
			return
		}
		defer file.Close()
		name = header.Filename
		table, err = ingest.ReadStream(name, file)
	} else {
		if q := r.URL.Query().Get("name"); q != "" {
			name = q
		}
		table, err = ingest.ReadStream(name, r.Body)
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, "unreadable file: "+err.Error())
		return
	}

	id, err := h.datasets.Process(r.Context(), name, table)
	if err != nil {
		log.Printf("[api] process upload %s: %v", name, err)
		writeError(w, http.StatusInternalServerError, "processing failed")
		return
	}

	sum, err := h.datasets.Get(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "processing failed")
		return
	}
	writeJSON(w, http.StatusCreated, sum)
}

// HandleListDatasets lists stored datasets, newest first.
func (h *Handlers) HandleListDatasets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.datasets.List(r.Context()))
}

// HandleGetDataset returns one dataset summary.
func (h *Handlers) HandleGetDataset(w http.ResponseWriter, r *http.Request) {
	sum, err := h.datasets.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDatasetErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

// HandleAggregated returns the aggregated (period, role, contractor, count)
// view, filtered by repeatable period/role/contractor query params.
func (h *Handlers) HandleAggregated(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	records, err := h.datasets.Aggregated(r.Context(), chi.URLParam(r, "id"), dataset.Filter{
		Periods:     q["period"],
		Roles:       q["role"],
		Contractors: q["contractor"],
	})
	if err != nil {
		writeDatasetErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

// HandleNormalized returns the per-clock-in normalized records.
func (h *Handlers) HandleNormalized(w http.ResponseWriter, r *http.Request) {
	records, err := h.datasets.Normalized(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDatasetErr(w, err)
		return
	}
	if records == nil {
		records = []timenorm.NormalizedRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

// HandlePeriods returns the dataset's period labels in chronological order.
func (h *Handlers) HandlePeriods(w http.ResponseWriter, r *http.Request) {
	periods, err := h.datasets.Periods(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDatasetErr(w, err)
		return
	}
	if periods == nil {
		periods = []string{}
	}
	writeJSON(w, http.StatusOK, periods)
}

// HandleContractorStats returns per-contractor workforce statistics.
func (h *Handlers) HandleContractorStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.datasets.ContractorStats(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDatasetErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// HandleRoleTotals returns worker totals per role, optionally scoped to one
// contractor.
func (h *Handlers) HandleRoleTotals(w http.ResponseWriter, r *http.Request) {
	totals, err := h.datasets.RoleTotals(r.Context(), chi.URLParam(r, "id"), r.URL.Query().Get("contractor"))
	if err != nil {
		writeDatasetErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, totals)
}

// HandleAreaBreakdown returns the per-area duration split (Site vs Welfare
// in the common exports).
func (h *Handlers) HandleAreaBreakdown(w http.ResponseWriter, r *http.Request) {
	areas, err := h.datasets.AreaBreakdown(r.Context(), chi.URLParam(r, "id"), r.URL.Query().Get("contractor"))
	if err != nil {
		writeDatasetErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, areas)
}

// HandlePalette returns the chart color palette the dashboard cycles
// through.
func (h *Handlers) HandlePalette(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, timenorm.ColorPalette())
}

// HandleImports returns recent import log entries from the watcher.
func (h *Handlers) HandleImports(w http.ResponseWriter, r *http.Request) {
	if h.imports == nil {
		writeError(w, http.StatusServiceUnavailable, "import log not configured")
		return
	}
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	entries, err := h.imports.List(r.Context(), limit)
	if err != nil {
		log.Printf("[api] list imports: %v", err)
		writeError(w, http.StatusInternalServerError, "import log unavailable")
		return
	}
	if entries == nil {
		entries = []postgres.ImportEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func writeDatasetErr(w http.ResponseWriter, err error) {
	if errors.Is(err, dataset.ErrNotFound) {
		writeError(w, http.StatusNotFound, "dataset not found")
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
