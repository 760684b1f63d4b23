package restserver

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/chrissnell/thermalcomfort/internal/evaluator"
	"github.com/chrissnell/thermalcomfort/internal/storage"
	"github.com/chrissnell/thermalcomfort/pkg/comfort"
	"github.com/chrissnell/thermalcomfort/pkg/jos3"
	"github.com/chrissnell/thermalcomfort/pkg/responseformat"
)

// healthMaxAge is how stale a backend check may be before /health fails
const healthMaxAge = 5 * time.Minute

// Handlers contains all HTTP handlers for the REST server
type Handlers struct {
	controller *Controller
	formatter  *responseformat.Formatter
}

// NewHandlers creates a new handlers instance
func NewHandlers(ctrl *Controller) *Handlers {
	return &Handlers{
		controller: ctrl,
		formatter:  responseformat.NewFormatter(),
	}
}

// statusFor maps domain errors onto HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, storage.ErrRunNotFound):
		return http.StatusNotFound
	case errors.Is(err, comfort.ErrShapeMismatch),
		errors.Is(err, comfort.ErrMissingSegment),
		errors.Is(err, comfort.ErrNonFinite),
		errors.Is(err, jos3.ErrMissingZone),
		errors.Is(err, jos3.ErrTimeOrder),
		errors.Is(err, jos3.ErrTooFewRecords):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handlers) writeError(w http.ResponseWriter, req *http.Request, status int, err error) {
	if status >= http.StatusInternalServerError {
		h.controller.logger.Errorf("%s %s: %v", req.Method, req.URL.Path, err)
	}
	h.formatter.WriteError(w, req, status, err)
}

func (h *Handlers) write(w http.ResponseWriter, req *http.Request, status int, data any) {
	if err := h.formatter.WriteResponse(w, req, status, data); err != nil {
		h.controller.logger.Errorf("error encoding response: %v", err)
	}
}

func runID(req *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(mux.Vars(req)["id"])
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid run id: %w", err)
	}
	return id, nil
}

// GetHealth reports storage backend health
func (h *Handlers) GetHealth(w http.ResponseWriter, req *http.Request) {
	backends := h.controller.health.GetAllHealth()

	resp := HealthResponse{Status: storage.StatusHealthy, Backends: backends}
	status := http.StatusOK
	if len(backends) == 0 {
		resp.Status = storage.StatusUnhealthy
		resp.Message = "no storage health check has completed yet"
		status = http.StatusServiceUnavailable
	}
	for name := range backends {
		if !h.controller.health.IsHealthy(name, healthMaxAge) {
			resp.Status = storage.StatusUnhealthy
			status = http.StatusServiceUnavailable
		}
	}

	h.write(w, req, status, resp)
}

// GetSegments lists the canonical segments with their coefficients
func (h *Handlers) GetSegments(w http.ResponseWriter, req *http.Request) {
	ev, err := h.controller.evaluatorFor(req.URL.Query().Get("variant"))
	if err != nil {
		h.writeError(w, req, http.StatusBadRequest, err)
		return
	}
	t := ev.Tables()

	resp := SegmentsResponse{
		Variant:      t.Variant,
		MeanSetPoint: t.MeanSetPoint(),
		Segments:     make([]SegmentInfo, 0, t.SetPoints.Len()),
	}

	for _, seg := range t.SetPoints.Segments() {
		info, err := segmentInfo(t, seg)
		if err != nil {
			h.writeError(w, req, http.StatusInternalServerError, err)
			return
		}
		resp.Segments = append(resp.Segments, info)
	}

	h.write(w, req, http.StatusOK, resp)
}

func segmentInfo(t *comfort.Tables, seg comfort.Segment) (SegmentInfo, error) {
	info := SegmentInfo{Segment: seg}
	info.Zone, _ = jos3.ZoneFor(seg)

	var err error
	if info.SetPoint, err = t.SetPoints.Lookup(seg); err != nil {
		return info, err
	}
	if info.Static, err = t.Static.Lookup(seg); err != nil {
		return info, err
	}
	if info.Dynamic, err = t.Dynamic.Lookup(seg); err != nil {
		return info, err
	}
	if info.Overall, err = t.Overall.Lookup(seg); err != nil {
		return info, err
	}
	info.Transfer, err = t.Transfer.Lookup(seg)
	return info, err
}

// PostEvaluate evaluates one snapshot
func (h *Handlers) PostEvaluate(w http.ResponseWriter, req *http.Request) {
	ev, err := h.controller.evaluatorFor(req.URL.Query().Get("variant"))
	if err != nil {
		h.writeError(w, req, http.StatusBadRequest, err)
		return
	}

	var in comfort.Input
	if err := h.formatter.DecodeRequest(req, &in); err != nil {
		h.writeError(w, req, http.StatusBadRequest, err)
		return
	}

	res, err := comfort.Evaluate(ev.Tables(), in)
	if err != nil {
		h.writeError(w, req, statusFor(err), err)
		return
	}

	h.write(w, req, http.StatusOK, res)
}

// PostRun evaluates a JOS-3 record series and stores the run
func (h *Handlers) PostRun(w http.ResponseWriter, req *http.Request) {
	var body CreateRunRequest
	if err := h.formatter.DecodeRequest(req, &body); err != nil {
		h.writeError(w, req, http.StatusBadRequest, err)
		return
	}

	body.Name = strings.TrimSpace(body.Name)
	if body.Name == "" {
		h.writeError(w, req, http.StatusUnprocessableEntity, errors.New("run name is required"))
		return
	}

	ev, err := h.controller.evaluatorFor(body.Variant)
	if err != nil {
		h.writeError(w, req, http.StatusUnprocessableEntity, err)
		return
	}

	results, err := ev.EvaluateRecords(req.Context(), body.Records)
	if err != nil {
		h.writeError(w, req, statusFor(err), err)
		return
	}

	run := storage.NewRun(body.Name, string(ev.Tables().Variant))
	if err := h.controller.store.SaveRun(req.Context(), run, body.Records, results); err != nil {
		h.writeError(w, req, http.StatusInternalServerError, err)
		return
	}

	h.controller.logger.Infow("stored run", "id", run.ID, "name", run.Name, "variant", run.Variant, "steps", run.Steps)
	h.write(w, req, http.StatusCreated, RunResponse{Run: run, Summary: evaluator.Summarize(results)})
}

// GetRuns lists stored runs
func (h *Handlers) GetRuns(w http.ResponseWriter, req *http.Request) {
	runs, err := h.controller.store.ListRuns(req.Context())
	if err != nil {
		h.writeError(w, req, http.StatusInternalServerError, err)
		return
	}
	h.write(w, req, http.StatusOK, runs)
}

// GetRun returns one stored run
func (h *Handlers) GetRun(w http.ResponseWriter, req *http.Request) {
	id, err := runID(req)
	if err != nil {
		h.writeError(w, req, http.StatusBadRequest, err)
		return
	}

	run, err := h.controller.store.GetRun(req.Context(), id)
	if err != nil {
		h.writeError(w, req, statusFor(err), err)
		return
	}
	h.write(w, req, http.StatusOK, run)
}

// GetRunResults returns the per-step results of a stored run
func (h *Handlers) GetRunResults(w http.ResponseWriter, req *http.Request) {
	id, err := runID(req)
	if err != nil {
		h.writeError(w, req, http.StatusBadRequest, err)
		return
	}

	results, err := h.controller.store.LoadResults(req.Context(), id)
	if err != nil {
		h.writeError(w, req, statusFor(err), err)
		return
	}
	h.write(w, req, http.StatusOK, results)
}

// GetRunSummary returns the time-weighted summary of a stored run
func (h *Handlers) GetRunSummary(w http.ResponseWriter, req *http.Request) {
	id, err := runID(req)
	if err != nil {
		h.writeError(w, req, http.StatusBadRequest, err)
		return
	}

	run, err := h.controller.store.GetRun(req.Context(), id)
	if err != nil {
		h.writeError(w, req, statusFor(err), err)
		return
	}
	results, err := h.controller.store.LoadResults(req.Context(), id)
	if err != nil {
		h.writeError(w, req, statusFor(err), err)
		return
	}
	h.write(w, req, http.StatusOK, RunResponse{Run: run, Summary: evaluator.Summarize(results)})
}
