// Package setup registers the lite server with desktop MCP clients.
package setup

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
)

// ServerName is the key the server is registered under in the client config
const ServerName = "ascvd-risk"

// DataDirEnv is passed to the registered server to locate its data directory
const DataDirEnv = "ASCVD_DATA_DIR"

// ClientConfig represents the desktop client's configuration file structure.
type ClientConfig struct {
	MCPServers map[string]MCPServerConfig `json:"mcpServers"`
	// other top-level keys are preserved on save
	extra map[string]json.RawMessage
}

// MCPServerConfig represents a single MCP server configuration.
type MCPServerConfig struct {
	Command string            `json:"command"`
	Args    []string          `json:"args,omitempty"`
	Env     map[string]string `json:"env,omitempty"`
}

// Options contains options for the setup process.
type Options struct {
	ConfigPath  string // client config file, defaults to DefaultConfigPath
	BinaryPath  string // path to the server binary
	DataDir     string // data directory for the lite server
	AutoConfirm bool   // skip confirmation prompts
}

// Status represents the current setup status.
type Status struct {
	ConfigPath   string
	Configured   bool
	ServerPath   string
	BinaryExists bool
	DataDir      string
	HistoryDB    bool
}

// DefaultConfigPath returns the path to the desktop client's config file.
func DefaultConfigPath() (string, error) {
	var configDir string

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, "Library", "Application Support", "Claude")
	case "linux":
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			configDir = filepath.Join(xdg, "Claude")
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("failed to get home directory: %w", err)
			}
			configDir = filepath.Join(home, ".config", "Claude")
		}
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			return "", fmt.Errorf("APPDATA environment variable not set")
		}
		configDir = filepath.Join(appData, "Claude")
	default:
		return "", fmt.Errorf("unsupported operating system: %s", runtime.GOOS)
	}

	return filepath.Join(configDir, "claude_desktop_config.json"), nil
}

// DefaultDataDir returns the lite server's default data directory.
func DefaultDataDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".ascvd-risk")
}

// LoadClientConfig loads the client configuration. A missing file yields an empty config.
func LoadClientConfig(configPath string) (*ClientConfig, error) {
	config := &ClientConfig{MCPServers: make(map[string]MCPServerConfig)}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return config, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := json.Unmarshal(data, &config.extra); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if raw, ok := config.extra["mcpServers"]; ok {
		if err := json.Unmarshal(raw, &config.MCPServers); err != nil {
			return nil, fmt.Errorf("failed to parse mcpServers: %w", err)
		}
		delete(config.extra, "mcpServers")
	}
	if config.MCPServers == nil {
		config.MCPServers = make(map[string]MCPServerConfig)
	}

	return config, nil
}

// SaveClientConfig writes the configuration back, keeping unrelated keys.
func SaveClientConfig(configPath string, config *ClientConfig) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	doc := make(map[string]interface{}, len(config.extra)+1)
	for k, v := range config.extra {
		doc[k] = v
	}
	doc["mcpServers"] = config.MCPServers

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Configure adds or updates the server entry in the client config.
func Configure(opts Options) error {
	configPath, err := resolveConfigPath(opts.ConfigPath)
	if err != nil {
		return err
	}

	config, err := LoadClientConfig(configPath)
	if err != nil {
		return err
	}

	binaryPath := opts.BinaryPath
	if binaryPath == "" {
		if binaryPath, err = findBinary("mcp-server-lite"); err != nil {
			return fmt.Errorf("could not find server binary: %w", err)
		}
	}

	entry := MCPServerConfig{
		Command: binaryPath,
		Env:     make(map[string]string),
	}
	if opts.DataDir != "" {
		entry.Env[DataDirEnv] = opts.DataDir
	}
	config.MCPServers[ServerName] = entry

	return SaveClientConfig(configPath, config)
}

// GetStatus reports whether the server is registered and its files exist.
func GetStatus(configPath string) (*Status, error) {
	configPath, err := resolveConfigPath(configPath)
	if err != nil {
		return nil, err
	}

	config, err := LoadClientConfig(configPath)
	if err != nil {
		return nil, err
	}

	status := &Status{ConfigPath: configPath, DataDir: DefaultDataDir()}
	if entry, ok := config.MCPServers[ServerName]; ok {
		status.Configured = true
		status.ServerPath = entry.Command
		if _, err := os.Stat(entry.Command); err == nil {
			status.BinaryExists = true
		}
		if dir := entry.Env[DataDirEnv]; dir != "" {
			status.DataDir = dir
		}
	}

	if _, err := os.Stat(filepath.Join(status.DataDir, "history.db")); err == nil {
		status.HistoryDB = true
	}
	return status, nil
}

func resolveConfigPath(configPath string) (string, error) {
	if configPath != "" {
		return configPath, nil
	}
	return DefaultConfigPath()
}

// findBinary attempts to find the server binary in common locations.
func findBinary(binaryName string) (string, error) {
	if path, err := exec.LookPath(binaryName); err == nil {
		return path, nil
	}

	locations := []string{
		"./" + binaryName,
		"./build/" + binaryName,
		filepath.Join(os.Getenv("HOME"), ".local", "bin", binaryName),
		"/usr/local/bin/" + binaryName,
	}
	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			if abs, err := filepath.Abs(loc); err == nil {
				return abs, nil
			}
			return loc, nil
		}
	}

	return "", fmt.Errorf("binary '%s' not found in common locations", binaryName)
}
