// Package config loads thermalcomfort configuration from pluggable sources.
package config

import (
	"fmt"
	"runtime"

	"github.com/chrissnell/thermalcomfort/pkg/comfort"
)

// ConfigProvider defines the interface for configuration data sources
type ConfigProvider interface {
	// Load complete configuration
	LoadConfig() (*ConfigData, error)

	// Get specific configuration sections
	GetModelConfig() (*ModelData, error)
	GetStorageConfig() (*StorageData, error)
	GetRESTServerConfig() (*RESTServerData, error)

	IsReadOnly() bool
	Close() error
}

// ConfigData represents the complete configuration structure
type ConfigData struct {
	Model     ModelData      `json:"model"`
	Evaluator EvaluatorData  `json:"evaluator"`
	Storage   StorageData    `json:"storage,omitempty"`
	REST      RESTServerData `json:"rest,omitempty"`
}

// ModelData selects the comfort model calibration
type ModelData struct {
	Variant string `json:"variant,omitempty"`
}

// EvaluatorData tunes batch evaluation
type EvaluatorData struct {
	// Workers bounds how many time steps are evaluated in parallel
	Workers int `json:"workers,omitempty"`
}

// StorageData holds the configuration for the result store. At most one
// backend may be configured.
type StorageData struct {
	SQLite      *SQLiteData      `json:"sqlite,omitempty"`
	TimescaleDB *TimescaleDBData `json:"timescaledb,omitempty"`
}

type SQLiteData struct {
	Path string `json:"path"`
}

type TimescaleDBData struct {
	ConnectionString string `json:"connection_string"`
}

// RESTServerData configures the HTTP API
type RESTServerData struct {
	ListenAddr  string `json:"listen_addr,omitempty"`
	Port        int    `json:"port,omitempty"`
	TLSCertPath string `json:"tls_cert,omitempty"`
	TLSKeyPath  string `json:"tls_key,omitempty"`
}

const (
	DefaultListenAddr = "0.0.0.0"
	DefaultPort       = 8080
	DefaultSQLitePath = "thermalcomfort.db"
)

// ApplyDefaults fills unset fields with their defaults
func (c *ConfigData) ApplyDefaults() {
	if c.Model.Variant == "" {
		c.Model.Variant = string(comfort.VariantCalibrated)
	}
	if c.Evaluator.Workers <= 0 {
		c.Evaluator.Workers = runtime.NumCPU()
	}
	if c.Storage.SQLite == nil && c.Storage.TimescaleDB == nil {
		c.Storage.SQLite = &SQLiteData{Path: DefaultSQLitePath}
	}
	if c.REST.ListenAddr == "" {
		c.REST.ListenAddr = DefaultListenAddr
	}
	if c.REST.Port == 0 {
		c.REST.Port = DefaultPort
	}
}

// Validate checks the configuration for contradictions
func (c *ConfigData) Validate() error {
	if _, err := comfort.ParseVariant(c.Model.Variant); err != nil {
		return fmt.Errorf("model: %w", err)
	}
	if c.Storage.SQLite != nil && c.Storage.TimescaleDB != nil {
		return fmt.Errorf("storage: configure either sqlite or timescaledb, not both")
	}
	if c.Storage.SQLite != nil && c.Storage.SQLite.Path == "" {
		return fmt.Errorf("storage.sqlite.path must not be empty")
	}
	if c.Storage.TimescaleDB != nil && c.Storage.TimescaleDB.ConnectionString == "" {
		return fmt.Errorf("storage.timescaledb.connection_string must not be empty")
	}
	if c.REST.Port < 0 || c.REST.Port > 65535 {
		return fmt.Errorf("rest.port %d out of range", c.REST.Port)
	}
	if (c.REST.TLSCertPath == "") != (c.REST.TLSKeyPath == "") {
		return fmt.Errorf("rest: tls_cert and tls_key must be set together")
	}
	return nil
}
