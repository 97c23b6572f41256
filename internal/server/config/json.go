package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/akarpov87/authkeeper/internal/flagx"
	"github.com/akarpov87/authkeeper/internal/timex"
)

// JsonConfig is an intermediate DTO used only for reading JSON configuration
// files. It uses timex.Duration for the token lifetime fields, which accepts
// both string values such as "30m" and integer nanoseconds. After
// unmarshalling, its fields are copied into the runtime Config.
type JsonConfig struct {
	EndpointAddrHTTP             string         `json:"endpoint_addr_http"`
	DatabaseDSN                  string         `json:"database_dsn"`
	SecretKey                    string         `json:"secret_key"`
	AccessTokenValidityDuration  timex.Duration `json:"access_token_validity_duration"`
	RefreshTokenValidityDuration timex.Duration `json:"refresh_token_validity_duration"`
	ReissueRefreshToken          bool           `json:"reissue_refresh_token"`
	RedisAddr                    string         `json:"redis_addr"`
}

// parseJson loads configuration values from the JSON file named by the -c or
// -config flags into the provided Config. When neither flag is set, nothing
// is loaded. An unreadable or invalid file panics: the process cannot start
// half-configured.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	config.EndpointAddrHTTP = c.EndpointAddrHTTP
	config.DatabaseDSN = c.DatabaseDSN
	config.SecretKey = c.SecretKey
	config.AccessTokenValidityDuration = time.Duration(c.AccessTokenValidityDuration.Duration)
	config.RefreshTokenValidityDuration = time.Duration(c.RefreshTokenValidityDuration.Duration)
	config.ReissueRefreshToken = c.ReissueRefreshToken
	config.RedisAddr = c.RedisAddr
}
