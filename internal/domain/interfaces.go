package domain

// ConfigManager defines the interface for configuration management
type ConfigManager interface {
	GetConfig() *Config
	GetDatabaseConfig() *DatabaseConfig
	GetRemoteConfig() *RemoteConfig
	GetServerConfig() *ServerConfig
	Reload() error
	Validate() error
	GetRemoteConnectionString() string
	GetRedisConnectionString() string
	IsProduction() bool
	IsDevelopment() bool
}
