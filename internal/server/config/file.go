package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dmitrijs2005/consentkeeper/internal/flagx"
	"github.com/dmitrijs2005/consentkeeper/internal/timex"
	"gopkg.in/yaml.v2"
)

// FileConfig is the on-disk shape of the configuration. Durations use
// timex.Duration, so both "15m" and integer nanoseconds are accepted.
// Absent keys leave the current value untouched. Durations are pointers so an
// explicit zero (user_cache_ttl: 0 disables the cache) is told apart from a
// missing key.
type FileConfig struct {
	EndpointAddrHTTP             string          `json:"endpoint_addr_http" yaml:"endpoint_addr_http"`
	EndpointAddrHealth           string          `json:"endpoint_addr_health" yaml:"endpoint_addr_health"`
	DatabaseDSN                  string          `json:"database_dsn" yaml:"database_dsn"`
	SecretKey                    string          `json:"secret_key" yaml:"secret_key"`
	AccessTokenValidityDuration  *timex.Duration `json:"access_token_validity_duration" yaml:"access_token_validity_duration"`
	RefreshTokenValidityDuration *timex.Duration `json:"refresh_token_validity_duration" yaml:"refresh_token_validity_duration"`
	AdminEmail                   string          `json:"admin_email" yaml:"admin_email"`
	UserCacheTTL                 *timex.Duration `json:"user_cache_ttl" yaml:"user_cache_ttl"`
	HealthCheckInterval          *timex.Duration `json:"health_check_interval" yaml:"health_check_interval"`
	LogLevel                     string          `json:"log_level" yaml:"log_level"`
	S3RootUser                   string          `json:"s3_root_user" yaml:"s3_root_user"`
	S3RootPassword               string          `json:"s3_root_password" yaml:"s3_root_password"`
	S3Bucket                     string          `json:"s3_bucket" yaml:"s3_bucket"`
	S3Region                     string          `json:"s3_region" yaml:"s3_region"`
	S3BaseEndpoint               string          `json:"s3_base_endpoint" yaml:"s3_base_endpoint"`
}

// parseFile overlays the file named by -c / -config, if any. Files ending in
// .yaml or .yml are read as YAML, everything else as JSON.
func parseFile(config *Config) error {
	path := flagx.ConfigFile(os.Args[1:])
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	c := &FileConfig{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, c)
	default:
		err = json.Unmarshal(data, c)
	}
	if err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	c.apply(config)
	return nil
}

func (c *FileConfig) apply(config *Config) {
	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.EndpointAddrHealth, c.EndpointAddrHealth)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	setString(&config.AdminEmail, c.AdminEmail)
	setString(&config.LogLevel, c.LogLevel)
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)

	setDuration(&config.AccessTokenValidityDuration, c.AccessTokenValidityDuration)
	setDuration(&config.RefreshTokenValidityDuration, c.RefreshTokenValidityDuration)
	setDuration(&config.UserCacheTTL, c.UserCacheTTL)
	setDuration(&config.HealthCheckInterval, c.HealthCheckInterval)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v *timex.Duration) {
	if v != nil {
		*dst = v.Duration
	}
}
