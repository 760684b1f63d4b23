package restserver

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap/zaptest"

	"github.com/chrissnell/thermalcomfort/internal/evaluator"
	"github.com/chrissnell/thermalcomfort/internal/storage"
	"github.com/chrissnell/thermalcomfort/internal/storage/sqlite"
	"github.com/chrissnell/thermalcomfort/pkg/comfort"
	"github.com/chrissnell/thermalcomfort/pkg/config"
	"github.com/chrissnell/thermalcomfort/pkg/jos3"
)

type testServer struct {
	handler http.Handler
	health  *storage.HealthManager
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	return newTestServerWith(t, func(s storage.Store) storage.Store { return s })
}

// newTestServerWith serves a fresh SQLite store through wrap
func newTestServerWith(t *testing.T, wrap func(storage.Store) storage.Store) *testServer {
	t.Helper()
	logger := zaptest.NewLogger(t).Sugar()

	sqliteStore, err := sqlite.New(context.Background(), filepath.Join(t.TempDir(), "runs.db"), logger)
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { sqliteStore.Close() })
	store := wrap(sqliteStore)

	health := storage.NewHealthManager()
	var wg sync.WaitGroup
	ctrl, err := NewController(context.Background(), &wg, config.RESTServerData{}, Options{
		Store:   store,
		Health:  health,
		Variant: comfort.VariantCalibrated,
		Workers: 2,
	}, logger)
	if err != nil {
		t.Fatalf("NewController: %v", err)
	}
	return &testServer{handler: ctrl.Handler(), health: health}
}

func (s *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encoding body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decoding %q: %v", rec.Body.String(), err)
	}
}

func coldInput() comfort.Input {
	in := comfort.Input{
		Skin: map[comfort.Segment]float64{
			comfort.Head: 24.6, comfort.Face: 26, comfort.Neck: 27, comfort.BreathZone: 26,
			comfort.Chest: 28.5, comfort.Back: 28.5, comfort.Pelvis: 28,
			comfort.LUArm: 29, comfort.RUArm: 29, comfort.LLArm: 29, comfort.RLArm: 29,
			comfort.LHand: 24, comfort.RHand: 24,
			comfort.LThigh: 28, comfort.RThigh: 28, comfort.LCalf: 28, comfort.RCalf: 28,
			comfort.LFoot: 28, comfort.RFoot: 28,
		},
		MeanSkin:        27.5,
		SkinRate:        make(map[comfort.Segment]float64),
		CoreRateUniform: 0,
	}
	for seg := range in.Skin {
		in.SkinRate[seg] = 1e-5
	}
	return in
}

func records(n int) []jos3.Record {
	out := make([]jos3.Record, 0, n)
	for i := 0; i < n; i++ {
		skin := 33 - 0.2*float64(i)
		r := jos3.Record{
			Time:     float64(i) * 60,
			MeanSkin: skin,
			Skin:     make(map[jos3.Zone]float64),
			Core:     make(map[jos3.Zone]float64),
		}
		for _, z := range jos3.Zones() {
			r.Skin[z] = skin
			r.Core[z] = 37
		}
		out = append(out, r)
	}
	return out
}

func TestGetSegments(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/segments", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	var resp SegmentsResponse
	decode(t, rec, &resp)

	if resp.Variant != comfort.VariantCalibrated {
		t.Errorf("variant = %q", resp.Variant)
	}
	if len(resp.Segments) != len(comfort.Segments()) {
		t.Fatalf("got %d segments, expected %d", len(resp.Segments), len(comfort.Segments()))
	}
	if resp.Segments[1].Segment != comfort.Face || resp.Segments[1].Zone != jos3.Head {
		t.Errorf("second segment = %+v", resp.Segments[1])
	}

	rec = s.do(t, http.MethodGet, "/segments?variant=baseline", nil)
	decode(t, rec, &resp)
	if resp.Variant != comfort.VariantBaseline {
		t.Errorf("variant = %q, expected baseline", resp.Variant)
	}

	if rec := s.do(t, http.MethodGet, "/segments?variant=fanger", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("unknown variant status = %d", rec.Code)
	}
}

func TestPostEvaluate(t *testing.T) {
	s := newTestServer(t)
	in := coldInput()

	want, err := comfort.Evaluate(comfort.ReferenceTables(), in)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}

	rec := s.do(t, http.MethodPost, "/evaluate", in)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	var got comfort.Result
	decode(t, rec, &got)

	if got.OverallSensation != want.OverallSensation || got.OverallComfort != want.OverallComfort {
		t.Errorf("got (%g, %g), expected (%g, %g)",
			got.OverallSensation, got.OverallComfort, want.OverallSensation, want.OverallComfort)
	}
	if got.Regime != want.Regime || len(got.LocalComfort) != 19 {
		t.Errorf("regime = %v, %d local values", got.Regime, len(got.LocalComfort))
	}
}

func TestPostEvaluateErrors(t *testing.T) {
	s := newTestServer(t)

	bad := coldInput()
	delete(bad.SkinRate, comfort.RFoot)
	if rec := s.do(t, http.MethodPost, "/evaluate", bad); rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("shape mismatch status = %d", rec.Code)
	}

	unknown := coldInput()
	unknown.Skin["tail"] = 30
	unknown.SkinRate["tail"] = 0
	if rec := s.do(t, http.MethodPost, "/evaluate", unknown); rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("unknown segment status = %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/evaluate", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("malformed body status = %d", rec.Code)
	}
}

func TestRunLifecycle(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/runs", CreateRunRequest{Name: "cooldown", Records: records(4)})
	if rec.Code != http.StatusCreated {
		t.Fatalf("POST /runs status = %d: %s", rec.Code, rec.Body)
	}
	var created RunResponse
	decode(t, rec, &created)

	if created.Run.Steps != 3 || created.Run.Variant != "calibrated" {
		t.Errorf("created run = %+v", created.Run)
	}
	if created.Summary.Steps != 3 || created.Summary.Duration != 120 {
		t.Errorf("summary = %+v", created.Summary)
	}

	id := created.Run.ID.String()

	rec = s.do(t, http.MethodGet, "/runs/"+id, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET run status = %d", rec.Code)
	}
	var run storage.Run
	decode(t, rec, &run)
	if run.Name != "cooldown" || run.Steps != 3 {
		t.Errorf("run = %+v", run)
	}

	rec = s.do(t, http.MethodGet, "/runs/"+id+"/results", nil)
	var results []evaluator.StepResult
	decode(t, rec, &results)
	if len(results) != 3 || results[0].Time != 60 || results[0].Result == nil {
		t.Fatalf("results = %+v", results)
	}

	rec = s.do(t, http.MethodGet, "/runs/"+id+"/summary", nil)
	var summary RunResponse
	decode(t, rec, &summary)
	if summary.Summary.IntegralComfort != created.Summary.IntegralComfort {
		t.Errorf("stored summary %+v differs from %+v", summary.Summary, created.Summary)
	}

	rec = s.do(t, http.MethodGet, "/runs", nil)
	var runs []storage.Run
	decode(t, rec, &runs)
	if len(runs) != 1 || runs[0].ID != created.Run.ID {
		t.Errorf("runs = %+v", runs)
	}
}

func TestRunErrors(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
	}{
		{"unknown run", http.MethodGet, "/runs/" + uuid.NewString(), nil, http.StatusNotFound},
		{"unknown run results", http.MethodGet, "/runs/" + uuid.NewString() + "/results", nil, http.StatusNotFound},
		{"bad id", http.MethodGet, "/runs/not-a-uuid", nil, http.StatusBadRequest},
		{"one record", http.MethodPost, "/runs", CreateRunRequest{Name: "short", Records: records(1)}, http.StatusUnprocessableEntity},
		{"no name", http.MethodPost, "/runs", CreateRunRequest{Records: records(3)}, http.StatusUnprocessableEntity},
		{"bad variant", http.MethodPost, "/runs", CreateRunRequest{Name: "x", Variant: "fanger", Records: records(3)}, http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rec := s.do(t, tt.method, tt.path, tt.body); rec.Code != tt.status {
				t.Errorf("status = %d, expected %d: %s", rec.Code, tt.status, rec.Body)
			}
		})
	}
}

func TestGetHealth(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/health", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status before any check = %d, expected 503", rec.Code)
	}
	var resp HealthResponse
	decode(t, rec, &resp)
	if resp.Status != storage.StatusUnhealthy {
		t.Errorf("health before any check = %+v", resp)
	}

	s.health.UpdateHealth("sqlite", storage.Health{LastCheck: time.Now(), Status: storage.StatusHealthy})
	if rec := s.do(t, http.MethodGet, "/health", nil); rec.Code != http.StatusOK {
		t.Errorf("status with healthy backend = %d", rec.Code)
	}

	s.health.UpdateHealth("sqlite", storage.Health{LastCheck: time.Now(), Status: storage.StatusUnhealthy})
	rec = s.do(t, http.MethodGet, "/health", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status with failing backend = %d", rec.Code)
	}
	resp = HealthResponse{}
	decode(t, rec, &resp)
	if resp.Status != storage.StatusUnhealthy {
		t.Errorf("health = %+v", resp)
	}
}

func TestGzipResponses(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/segments", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	if got := rec.Header().Get("Content-Encoding"); got != "gzip" {
		t.Fatalf("Content-Encoding = %q, expected gzip", got)
	}
	zr, err := gzip.NewReader(rec.Body)
	if err != nil {
		t.Fatalf("gzip.NewReader: %v", err)
	}
	var resp SegmentsResponse
	if err := json.NewDecoder(zr).Decode(&resp); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if len(resp.Segments) != len(comfort.Segments()) {
		t.Errorf("got %d segments", len(resp.Segments))
	}
}

// saveFailingStore refuses to persist runs
type saveFailingStore struct {
	storage.Store
}

func (saveFailingStore) SaveRun(context.Context, *storage.Run, []jos3.Record, []evaluator.StepResult) error {
	return errors.New("disk full")
}

func TestPostRunSaveFailureLeavesNoRun(t *testing.T) {
	s := newTestServerWith(t, func(st storage.Store) storage.Store { return saveFailingStore{st} })

	rec := s.do(t, http.MethodPost, "/runs", CreateRunRequest{Name: "x", Records: records(3)})
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, expected 500: %s", rec.Code, rec.Body)
	}

	rec = s.do(t, http.MethodGet, "/runs", nil)
	var runs []storage.Run
	decode(t, rec, &runs)
	if len(runs) != 0 {
		t.Errorf("failed save left %d runs behind: %+v", len(runs), runs)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{fmt.Errorf("x: %w", storage.ErrRunNotFound), http.StatusNotFound},
		{fmt.Errorf("x: %w", comfort.ErrShapeMismatch), http.StatusUnprocessableEntity},
		{fmt.Errorf("step 2: %w", comfort.ErrNonFinite), http.StatusUnprocessableEntity},
		{fmt.Errorf("x: %w", jos3.ErrTooFewRecords), http.StatusUnprocessableEntity},
		{errors.New("disk full"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.status {
			t.Errorf("statusFor(%v) = %d, expected %d", tt.err, got, tt.status)
		}
	}
}
