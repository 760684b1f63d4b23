package database

import (
	"time"

	"github.com/google/uuid"

	"github.com/chrissnell/thermalcomfort/internal/storage"
)

// Run is one stored evaluation
type Run struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Name      string    `gorm:"column:name;not null"`
	Variant   string    `gorm:"column:variant;not null"`
	CreatedAt time.Time `gorm:"column:created_at;not null;index"`
	Steps     int       `gorm:"column:steps;not null;default:0"`
}

// TableName specifies the table name for Run
func (Run) TableName() string {
	return "comfort_runs"
}

// Sample is the scalar part of one simulator record
type Sample struct {
	RunID             uuid.UUID `gorm:"column:run_id;type:uuid;primaryKey"`
	storage.SampleRow `gorm:"embedded"`
}

// TableName specifies the table name for Sample
func (Sample) TableName() string {
	return "comfort_samples"
}

// SampleZone holds one body zone's temperatures within a record
type SampleZone struct {
	RunID           uuid.UUID `gorm:"column:run_id;type:uuid;primaryKey"`
	storage.ZoneRow `gorm:"embedded"`
}

// TableName specifies the table name for SampleZone
func (SampleZone) TableName() string {
	return "comfort_sample_zones"
}

// Result is the whole-body part of one step result
type Result struct {
	RunID             uuid.UUID `gorm:"column:run_id;type:uuid;primaryKey"`
	storage.ResultRow `gorm:"embedded"`
}

// TableName specifies the table name for Result
func (Result) TableName() string {
	return "comfort_results"
}

// ResultSegment holds one segment's local values within a result
type ResultSegment struct {
	RunID              uuid.UUID `gorm:"column:run_id;type:uuid;primaryKey"`
	storage.SegmentRow `gorm:"embedded"`
}

// TableName specifies the table name for ResultSegment
func (ResultSegment) TableName() string {
	return "comfort_result_segments"
}

// Models lists every model in migration order
func Models() []any {
	return []any{&Run{}, &Sample{}, &SampleZone{}, &Result{}, &ResultSegment{}}
}

// FromRun converts a storage run to its model
func FromRun(r *storage.Run) Run {
	return Run{ID: r.ID, Name: r.Name, Variant: r.Variant, CreatedAt: r.CreatedAt, Steps: r.Steps}
}

// ToRun converts the model back to a storage run
func (m Run) ToRun() *storage.Run {
	return &storage.Run{ID: m.ID, Name: m.Name, Variant: m.Variant, CreatedAt: m.CreatedAt.UTC(), Steps: m.Steps}
}
