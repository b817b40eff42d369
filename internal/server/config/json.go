package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/shopkeeper/internal/flagx"
	"github.com/dmitrijs2005/shopkeeper/internal/timex"
)

// JsonConfig mirrors Config for JSON unmarshalling. Durations use
// timex.Duration so both "15m" and integer nanoseconds are accepted.
type JsonConfig struct {
	EndpointAddrHTTP            string         `json:"endpoint_addr_http"`
	DatabaseDSN                 string         `json:"database_dsn"`
	SecretKey                   string         `json:"secret_key"`
	AccessTokenValidityDuration timex.Duration `json:"access_token_validity_duration"`
	BcryptCost                  int            `json:"bcrypt_cost"`
	RedisAddr                   string         `json:"redis_addr"`
	RedisPassword               string         `json:"redis_password"`
	RedisDB                     int            `json:"redis_db"`
	RabbitURL                   string         `json:"rabbit_url"`
	LogLevel                    string         `json:"log_level"`
	LogBackend                  string         `json:"log_backend"`
	ExposeInternalErrors        bool           `json:"expose_internal_errors"`
	OrderNumberRetries          int            `json:"order_number_retries"`
	DefaultPageSize             int            `json:"default_page_size"`
	MaxPageSize                 int            `json:"max_page_size"`
	OTLPEndpoint                string         `json:"otlp_endpoint"`
	OTLPInsecure                bool           `json:"otlp_insecure"`
	SeedAdmin                   bool           `json:"seed_admin"`
	AdminEmail                  string         `json:"admin_email"`
	AdminPassword               string         `json:"admin_password"`
	ShutdownTimeout             timex.Duration `json:"shutdown_timeout"`
}

// parseJson loads the file named by -c/-config (or CONFIG) over config.
// Keys missing from the file keep their current values.
// If the file cannot be read or contains invalid JSON, the function panics.
func parseJson(config *Config) {
	jsonConfigFile := flagx.ConfigFile()

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	c := toJson(config)
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}
	c.apply(config)
}

func toJson(c *Config) *JsonConfig {
	return &JsonConfig{
		EndpointAddrHTTP:            c.EndpointAddrHTTP,
		DatabaseDSN:                 c.DatabaseDSN,
		SecretKey:                   c.SecretKey,
		AccessTokenValidityDuration: timex.Duration{Duration: c.AccessTokenValidityDuration},
		BcryptCost:                  c.BcryptCost,
		RedisAddr:                   c.RedisAddr,
		RedisPassword:               c.RedisPassword,
		RedisDB:                     c.RedisDB,
		RabbitURL:                   c.RabbitURL,
		LogLevel:                    c.LogLevel,
		LogBackend:                  c.LogBackend,
		ExposeInternalErrors:        c.ExposeInternalErrors,
		OrderNumberRetries:          c.OrderNumberRetries,
		DefaultPageSize:             c.DefaultPageSize,
		MaxPageSize:                 c.MaxPageSize,
		OTLPEndpoint:                c.OTLPEndpoint,
		OTLPInsecure:                c.OTLPInsecure,
		SeedAdmin:                   c.SeedAdmin,
		AdminEmail:                  c.AdminEmail,
		AdminPassword:               c.AdminPassword,
		ShutdownTimeout:             timex.Duration{Duration: c.ShutdownTimeout},
	}
}

func (j *JsonConfig) apply(c *Config) {
	c.EndpointAddrHTTP = j.EndpointAddrHTTP
	c.DatabaseDSN = j.DatabaseDSN
	c.SecretKey = j.SecretKey
	c.AccessTokenValidityDuration = j.AccessTokenValidityDuration.Duration
	c.BcryptCost = j.BcryptCost
	c.RedisAddr = j.RedisAddr
	c.RedisPassword = j.RedisPassword
	c.RedisDB = j.RedisDB
	c.RabbitURL = j.RabbitURL
	c.LogLevel = j.LogLevel
	c.LogBackend = j.LogBackend
	c.ExposeInternalErrors = j.ExposeInternalErrors
	c.OrderNumberRetries = j.OrderNumberRetries
	c.DefaultPageSize = j.DefaultPageSize
	c.MaxPageSize = j.MaxPageSize
	c.OTLPEndpoint = j.OTLPEndpoint
	c.OTLPInsecure = j.OTLPInsecure
	c.SeedAdmin = j.SeedAdmin
	c.AdminEmail = j.AdminEmail
	c.AdminPassword = j.AdminPassword
	c.ShutdownTimeout = j.ShutdownTimeout.Duration
}
