// Package config handles configuration for the board server, applying
// defaults, environment variables (with optional .env), an optional JSON
// overlay, and command-line flags, in that order.
package config

import "time"

// Config holds runtime settings for the board server.
//
// Fields:
//   - EndpointAddr: bind address for the HTTP endpoint.
//   - DatabaseDSN: "postgres://..." selects PostgreSQL (pgx); any other value
//     is treated as an SQLite file path or URI.
//   - SecretKey: HMAC secret for signing session JWTs (HS256).
//   - SessionValidityDuration: lifetime of the session cookie.
//   - KeyHashCost: bcrypt cost used for private-key hashes; 12 keeps a
//     verification in the ~100ms range.
//   - DataDir: root for durable blob storage (uploads live under it).
//   - MediaDir: static media folder listed by /api/media/gifs.
//   - ViewsDir: directory holding auth.html and index.html page shells.
//   - PublicDir: directory served as static assets; empty disables it.
//   - MaxUploadBytes / MaxFilesPerUpload: attachment ceilings.
//   - CorsAllowedOrigins: origins allowed by the CORS middleware.
//   - S3Bucket et al.: object storage settings; a non-empty bucket switches
//     blob storage from local disk to S3.
type Config struct {
	EndpointAddr            string
	DatabaseDSN             string
	SecretKey               string
	SessionValidityDuration time.Duration
	KeyHashCost             int
	DataDir                 string
	MediaDir                string
	ViewsDir                string
	PublicDir               string
	MaxUploadBytes          int64
	MaxFilesPerUpload       int
	CorsAllowedOrigins      []string
	S3Bucket                string
	S3Region                string
	S3AccessKey             string
	S3SecretKey             string
	S3BaseEndpoint          string
}

// LoadDefaults populates Config with sensible development defaults.
// NOTE: SecretKey is insecure for production and should be overridden.
func (c *Config) LoadDefaults() {
	c.EndpointAddr = ":3000"
	c.DatabaseDSN = "file:db/board.sqlite"
	c.SecretKey = "board-dev-secret-key"
	c.SessionValidityDuration = 24 * time.Hour
	c.KeyHashCost = 12
	c.DataDir = "db"
	c.MediaDir = "public/media"
	c.ViewsDir = "views"
	c.PublicDir = "public"
	c.MaxUploadBytes = 50 << 20
	c.MaxFilesPerUpload = 5
	c.CorsAllowedOrigins = []string{"*"}
	c.S3Region = "us-east-1"
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from the environment (including an optional .env file), an optional JSON
// file and finally command-line flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseEnv(cfg)
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
