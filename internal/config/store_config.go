package config

const (
	redisAddrEnvVar     = "REDIS_ADDR"
	redisPasswordEnvVar = "REDIS_PASSWORD"
)

type StoreConfig interface {
	GetRedisAddr() string
	GetRedisPassword() string
}

type Store struct{}

var _ StoreConfig = Store{}

// GetRedisAddr returns the address of the refresh token store. An empty
// address selects the in-memory store (single-process deployments and tests).
func (Store) GetRedisAddr() string {
	return GetEnv(redisAddrEnvVar, "")
}

func (Store) GetRedisPassword() string {
	return GetEnv(redisPasswordEnvVar, "")
}
