// Package config loads and validates the service configuration: the HTTP
// server, logging, and the set of MongoDB connections (cluster and direct).
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"mongoquery/internal/logging"
	"mongoquery/internal/utils"
)

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Host         string `yaml:"host"`
	Port         int    `yaml:"port"`
	ReadTimeout  int    `yaml:"readTimeout"`
	WriteTimeout int    `yaml:"writeTimeout"`
}

// LoggingConfig holds logging-related configuration
type LoggingConfig struct {
	Level       string `yaml:"level"`       // Log level: debug, info, warn, error, fatal
	FileName    string `yaml:"fileName"`    // Path to the log file
	LoggerName  string `yaml:"loggerName"`  // Name identifier for the logger
	ServiceName string `yaml:"serviceName"` // Service name for structured logging
}

// ClusterConnectionConfig describes a connection to MongoDB running inside a
// Kubernetes namespace. The namespace doubles as the connection name.
type ClusterConnectionConfig struct {
	Namespace         string `yaml:"namespace"`
	Deployment        string `yaml:"deployment"`
	Database          string `yaml:"database"`
	DocumentationPath string `yaml:"documentationPath"`
}

// DirectConnectionConfig describes a direct MongoDB URL connection
type DirectConnectionConfig struct {
	Name              string `yaml:"name"`
	URL               string `yaml:"url"`
	Database          string `yaml:"database"`
	DocumentationPath string `yaml:"documentationPath"`
}

// Config holds the application configuration
type Config struct {
	Server         ServerConfig              `yaml:"server"`
	Logging        LoggingConfig             `yaml:"logging"`
	KubeconfigPath string                    `yaml:"kubeconfigPath"`
	DataDir        string                    `yaml:"dataDir"`
	Clusters       []ClusterConnectionConfig `yaml:"clusters"`
	Connections    []DirectConnectionConfig  `yaml:"connections"`
}

// DefaultConfig returns a configuration built from environment variables with
// sensible defaults. Connections can only come from the config file.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         utils.GetEnv("SERVER_HOST", "localhost"),
			Port:         utils.GetEnvInt("SERVER_PORT", 8480),
			ReadTimeout:  utils.GetEnvInt("SERVER_READ_TIMEOUT", 10),
			WriteTimeout: utils.GetEnvInt("SERVER_WRITE_TIMEOUT", 60),
		},
		Logging: LoggingConfig{
			Level:       utils.GetEnv("LOG_LEVEL", "info"),
			FileName:    utils.GetEnv("LOG_FILE_NAME", "/tmp/mongoquery.log"),
			LoggerName:  utils.GetEnv("LOG_LOGGER_NAME", "main"),
			ServiceName: utils.GetEnv("LOG_SERVICE_NAME", "mongoquery"),
		},
		KubeconfigPath: utils.GetEnv("KUBECONFIG_PATH", ""),
		DataDir:        utils.GetEnv("DATA_DIR", ""),
	}
}

// LoadFromFile loads configuration from a YAML file, applies environment
// variable overrides and path expansion, and validates it.
func LoadFromFile(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", configPath, err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("error parsing YAML config file %s: %w", configPath, err)
	}

	overrideWithEnvVars(config)
	config.expandPaths()

	if err := config.ValidateUniqueNames(); err != nil {
		return nil, err
	}

	return config, nil
}

// overrideWithEnvVars overrides config values with environment variables if they are set
func overrideWithEnvVars(config *Config) {
	if host := utils.GetEnv("SERVER_HOST", ""); host != "" {
		config.Server.Host = host
	}
	if port := utils.GetEnvInt("SERVER_PORT", -1); port != -1 {
		config.Server.Port = port
	}
	if level := utils.GetEnv("LOG_LEVEL", ""); level != "" {
		config.Logging.Level = level
	}
	if fileName := utils.GetEnv("LOG_FILE_NAME", ""); fileName != "" {
		config.Logging.FileName = fileName
	}
	if kubeconfig := utils.GetEnv("KUBECONFIG_PATH", ""); kubeconfig != "" {
		config.KubeconfigPath = kubeconfig
	}
	if dataDir := utils.GetEnv("DATA_DIR", ""); dataDir != "" {
		config.DataDir = dataDir
	}
}

// expandPaths expands tilde and environment references in all path fields
func (c *Config) expandPaths() {
	c.KubeconfigPath = utils.ExpandPath(c.KubeconfigPath)
	c.DataDir = utils.ExpandPath(c.DataDir)
	for i := range c.Clusters {
		c.Clusters[i].DocumentationPath = utils.ExpandPath(c.Clusters[i].DocumentationPath)
	}
	for i := range c.Connections {
		c.Connections[i].DocumentationPath = utils.ExpandPath(c.Connections[i].DocumentationPath)
	}
}

// ValidateUniqueNames checks that no two connections share a name. Cluster
// connections are named by their namespace.
func (c *Config) ValidateUniqueNames() error {
	seen := make(map[string]bool)

	for _, cluster := range c.Clusters {
		if seen[cluster.Namespace] {
			return fmt.Errorf("duplicate connection name '%s' found in clusters", cluster.Namespace)
		}
		seen[cluster.Namespace] = true
	}

	for _, conn := range c.Connections {
		if seen[conn.Name] {
			return fmt.Errorf("duplicate connection name '%s' found (conflicts with a cluster or another connection)", conn.Name)
		}
		seen[conn.Name] = true
	}

	return nil
}

// WarnMissingDocumentation logs a warning for every configured documentation
// file that does not exist. Missing files are not fatal - the documentation
// tool reports them per call.
func (c *Config) WarnMissingDocumentation(logger logging.Logger) {
	for _, cluster := range c.Clusters {
		warnIfMissing(logger, cluster.Namespace, cluster.DocumentationPath)
	}
	for _, conn := range c.Connections {
		warnIfMissing(logger, conn.Name, conn.DocumentationPath)
	}
}

func warnIfMissing(logger logging.Logger, name, path string) {
	if path == "" {
		return
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		logger.Warnf("Documentation file does not exist for connection '%s': %s", name, path)
	}
}

// ResolveDataDir returns the saved-query directory, creating it if needed.
// Falls back to <user config dir>/mongoquery when not configured.
func (c *Config) ResolveDataDir() (string, error) {
	dir := c.DataDir
	if dir == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			return "", fmt.Errorf("failed to resolve user config directory: %w", err)
		}
		dir = filepath.Join(base, "mongoquery")
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create data directory %s: %w", dir, err)
	}
	return dir, nil
}

// CreateExampleConfig writes a commented example configuration to the path.
// Used on first run so the operator has something to edit.
func CreateExampleConfig(configPath string) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	example := `# mongoquery configuration

server:
  host: localhost
  port: 8480
  readTimeout: 10
  writeTimeout: 60

logging:
  level: info
  fileName: /tmp/mongoquery.log
  loggerName: main
  serviceName: mongoquery

# Optional: path to a custom kubeconfig file. When omitted the in-cluster
# config and the default kubeconfig locations are tried in order.
# kubeconfigPath: ~/.kube/config

# Optional: directory for saved-query files (one YAML file per connection).
# dataDir: ~/.config/mongoquery

# Cluster connections: MongoDB running inside a Kubernetes namespace.
# Credentials are discovered from the pod environment variables
# MONGO_INITDB_ROOT_USERNAME_FILE and MONGO_INITDB_ROOT_PASSWORD_FILE.
clusters:
  - namespace: production
    deployment: mongodb
    database: myapp
    # documentationPath: /path/to/data-models/production.md

# Direct MongoDB URL connections (local, Atlas, anything with URL access).
# The URL may contain credentials - keep this file secure.
connections:
  - name: local-dev
    url: mongodb://localhost:27017
    database: dev_db
    # documentationPath: /path/to/schema.md
`

	if err := os.WriteFile(configPath, []byte(example), 0600); err != nil {
		return fmt.Errorf("failed to write example config file: %w", err)
	}
	return nil
}

// DefaultConfigPath returns <user config dir>/mongoquery/config.yaml
func DefaultConfigPath() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve user config directory: %w", err)
	}
	return filepath.Join(base, "mongoquery", "config.yaml"), nil
}

// ConvertToLoggerConfig converts LoggingConfig to logging.LoggerConfig
func (cfg LoggingConfig) ConvertToLoggerConfig() logging.LoggerConfig {
	return logging.LoggerConfig{
		Level:       logging.ParseLevel(cfg.Level),
		FilePath:    cfg.FileName,
		LoggerName:  cfg.LoggerName,
		ServiceName: cfg.ServiceName,
	}
}
