package config

type Config interface {
	EnvConfig
	TokenConfig
	StoreConfig
	SecurityConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetEnv() string
}

type mainConfig struct {
	EnvVars
	Token
	Store
	Security
}

func New() Config {
	return mainConfig{}
}
