package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dkorolev/slateboard/internal/flagx"
	"github.com/dkorolev/slateboard/internal/timex"
)

// JsonConfig is an intermediate DTO used only for reading JSON configuration
// files. It uses timex.Duration for interval fields, which allows parsing
// both string values such as "24h" and integer nanoseconds. After
// unmarshalling, its fields are copied into the runtime Config.
type JsonConfig struct {
	EndpointAddr            string         `json:"endpoint_addr"`
	DatabaseDSN             string         `json:"database_dsn"`
	SecretKey               string         `json:"secret_key"`
	SessionValidityDuration timex.Duration `json:"session_validity_duration"`
	KeyHashCost             int            `json:"key_hash_cost"`
	DataDir                 string         `json:"data_dir"`
	MediaDir                string         `json:"media_dir"`
	ViewsDir                string         `json:"views_dir"`
	PublicDir               string         `json:"public_dir"`
	MaxUploadBytes          int64          `json:"max_upload_bytes"`
	MaxFilesPerUpload       int            `json:"max_files_per_upload"`
	CorsAllowedOrigins      []string       `json:"cors_allowed_origins"`
	S3Bucket                string         `json:"s3_bucket"`
	S3Region                string         `json:"s3_region"`
	S3AccessKey             string         `json:"s3_access_key"`
	S3SecretKey             string         `json:"s3_secret_key"`
	S3BaseEndpoint          string         `json:"s3_base_endpoint"`
}

// parseJson loads configuration values from a JSON file into the provided
// Config instance. The file path is taken from the -c/-config flags; when
// neither is set, no JSON file is loaded. Only fields present in the file
// override the current values. If the file cannot be read or contains
// invalid JSON, the function panics: a requested-but-broken config file is
// not something to silently run past.
func parseJson(config *Config) {

	jsonConfigFile := flagx.JsonConfigFlags()

	// nothing to load
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

	overlayString(&config.EndpointAddr, c.EndpointAddr)
	overlayString(&config.DatabaseDSN, c.DatabaseDSN)
	overlayString(&config.SecretKey, c.SecretKey)
	overlayString(&config.DataDir, c.DataDir)
	overlayString(&config.MediaDir, c.MediaDir)
	overlayString(&config.ViewsDir, c.ViewsDir)
	overlayString(&config.PublicDir, c.PublicDir)
	overlayString(&config.S3Bucket, c.S3Bucket)
	overlayString(&config.S3Region, c.S3Region)
	overlayString(&config.S3AccessKey, c.S3AccessKey)
	overlayString(&config.S3SecretKey, c.S3SecretKey)
	overlayString(&config.S3BaseEndpoint, c.S3BaseEndpoint)

	if c.SessionValidityDuration.Duration != 0 {
		config.SessionValidityDuration = time.Duration(c.SessionValidityDuration.Duration)
	}
	if c.KeyHashCost != 0 {
		config.KeyHashCost = c.KeyHashCost
	}
	if c.MaxUploadBytes != 0 {
		config.MaxUploadBytes = c.MaxUploadBytes
	}
	if c.MaxFilesPerUpload != 0 {
		config.MaxFilesPerUpload = c.MaxFilesPerUpload
	}
	if len(c.CorsAllowedOrigins) > 0 {
		config.CorsAllowedOrigins = c.CorsAllowedOrigins
	}
}

func overlayString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
