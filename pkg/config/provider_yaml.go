package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// YAMLProvider implements ConfigProvider for YAML configuration files
type YAMLProvider struct {
	filename string
	config   *ConfigData
}

// NewYAMLProvider creates a new YAML configuration provider
func NewYAMLProvider(filename string) *YAMLProvider {
	return &YAMLProvider{
		filename: filename,
	}
}

type yamlConfig struct {
	Model struct {
		Variant string `yaml:"variant,omitempty"`
	} `yaml:"model,omitempty"`
	Evaluator struct {
		Workers int `yaml:"workers,omitempty"`
	} `yaml:"evaluator,omitempty"`
	Storage struct {
		SQLite *struct {
			Path string `yaml:"path"`
		} `yaml:"sqlite,omitempty"`
		TimescaleDB *struct {
			ConnectionString string `yaml:"connection_string"`
		} `yaml:"timescaledb,omitempty"`
	} `yaml:"storage,omitempty"`
	REST struct {
		ListenAddr  string `yaml:"listen_addr,omitempty"`
		Port        int    `yaml:"port,omitempty"`
		TLSCertPath string `yaml:"tls_cert,omitempty"`
		TLSKeyPath  string `yaml:"tls_key,omitempty"`
	} `yaml:"rest,omitempty"`
}

// LoadConfig loads the complete configuration from YAML file
func (y *YAMLProvider) LoadConfig() (*ConfigData, error) {
	if y.config != nil {
		return y.config, nil
	}

	cfgFile, err := os.ReadFile(y.filename)
	if err != nil {
		return nil, err
	}

	config, err := parseYAML(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("error parsing %s: %w", y.filename, err)
	}

	y.config = config
	return config, nil
}

func parseYAML(b []byte) (*ConfigData, error) {
	var yc yamlConfig
	if err := yaml.UnmarshalStrict(b, &yc); err != nil {
		return nil, err
	}

	// Convert to our internal format
	config := &ConfigData{
		Model:     ModelData{Variant: yc.Model.Variant},
		Evaluator: EvaluatorData{Workers: yc.Evaluator.Workers},
		REST: RESTServerData{
			ListenAddr:  yc.REST.ListenAddr,
			Port:        yc.REST.Port,
			TLSCertPath: yc.REST.TLSCertPath,
			TLSKeyPath:  yc.REST.TLSKeyPath,
		},
	}
	if yc.Storage.SQLite != nil {
		config.Storage.SQLite = &SQLiteData{Path: yc.Storage.SQLite.Path}
	}
	if yc.Storage.TimescaleDB != nil {
		config.Storage.TimescaleDB = &TimescaleDBData{
			ConnectionString: yc.Storage.TimescaleDB.ConnectionString,
		}
	}

	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// GetModelConfig returns the model section
func (y *YAMLProvider) GetModelConfig() (*ModelData, error) {
	config, err := y.LoadConfig()
	if err != nil {
		return nil, err
	}
	return &config.Model, nil
}

// GetStorageConfig returns the storage section
func (y *YAMLProvider) GetStorageConfig() (*StorageData, error) {
	config, err := y.LoadConfig()
	if err != nil {
		return nil, err
	}
	return &config.Storage, nil
}

// GetRESTServerConfig returns the REST server section
func (y *YAMLProvider) GetRESTServerConfig() (*RESTServerData, error) {
	config, err := y.LoadConfig()
	if err != nil {
		return nil, err
	}
	return &config.REST, nil
}

// IsReadOnly returns true since YAML files are read-only in this implementation
func (y *YAMLProvider) IsReadOnly() bool {
	return true
}

// Close is a no-op for YAML provider
func (y *YAMLProvider) Close() error {
	return nil
}
