package restserver

import (
	"github.com/chrissnell/thermalcomfort/internal/evaluator"
	"github.com/chrissnell/thermalcomfort/internal/storage"
	"github.com/chrissnell/thermalcomfort/pkg/comfort"
	"github.com/chrissnell/thermalcomfort/pkg/jos3"
)

// SegmentInfo is one segment with the coefficients the model reads for it
type SegmentInfo struct {
	Segment  comfort.Segment              `json:"segment"`
	Zone     jos3.Zone                    `json:"zone"`
	SetPoint float64                      `json:"set_point"`
	Static   comfort.StaticSlopes         `json:"static"`
	Dynamic  comfort.DynamicGains         `json:"dynamic"`
	Overall  comfort.OverallWeights       `json:"overall"`
	Transfer comfort.TransferCoefficients `json:"transfer"`
}

// SegmentsResponse lists the coefficient tables of one variant
type SegmentsResponse struct {
	Variant      comfort.Variant `json:"variant"`
	MeanSetPoint float64         `json:"mean_set_point"`
	Segments     []SegmentInfo   `json:"segments"`
}

// CreateRunRequest is the body of POST /runs
type CreateRunRequest struct {
	Name    string        `json:"name"`
	Variant string        `json:"variant,omitempty"`
	Records []jos3.Record `json:"records"`
}

// RunResponse pairs a stored run with its summary
type RunResponse struct {
	Run     *storage.Run      `json:"run"`
	Summary evaluator.Summary `json:"summary"`
}

// HealthResponse reports the state of every storage backend
type HealthResponse struct {
	Status   string                    `json:"status"`
	Message  string                    `json:"message,omitempty"`
	Backends map[string]storage.Health `json:"backends"`
}
