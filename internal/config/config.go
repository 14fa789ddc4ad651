// Package config loads chartup's configuration from the process environment.
// Configuration is environment-only: there is no config file, and the three
// credential variables are validated eagerly so that a misconfigured process
// terminates before it performs any network activity.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Provider names accepted in CHARTUP_PROVIDER.
const (
	ProviderS3   = "s3"
	ProviderGCS  = "gcs"
	ProviderDisk = "disk"
)

// ErrMissingCredential is returned by Load when one or more of the required
// credential variables is absent or empty.
var ErrMissingCredential = errors.New("config: missing required credential")

// Credentials is the credential triple sourced once from the environment at
// process start and passed explicitly to whatever needs it. For the gcs
// provider the access key carries the signer's Google access ID and the
// secret key its PEM-encoded private key.
type Credentials struct {
	AccessKey  string
	SecretKey  string
	BucketName string
}

// Validate reports an ErrMissingCredential naming every empty field's
// environment variable.
func (c Credentials) Validate() error {
	var missing []string
	if c.AccessKey == "" {
		missing = append(missing, "CHARTUP_ACCESS_KEY")
	}
	if c.SecretKey == "" {
		missing = append(missing, "CHARTUP_SECRET_KEY")
	}
	if c.BucketName == "" {
		missing = append(missing, "CHARTUP_BUCKET_NAME")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingCredential, strings.Join(missing, ", "))
	}
	return nil
}

// Config holds the full chartup configuration.
type Config struct {
	// Provider selects the storage backend: s3, gcs or disk.
	Provider string

	Credentials Credentials

	// Endpoint is the S3-compatible endpoint host, without a scheme.
	Endpoint string

	// Region is an optional bucket region hint for the s3 provider.
	Region string

	// Secure controls TLS towards the S3 endpoint.
	Secure bool

	// PublicHost is the static host that serves the bucket's contents. The
	// public URL printed after a successful upload is constructed from it.
	PublicHost string

	// DiskRoot is the destination root directory for the disk provider.
	DiskRoot string
}

// Load reads configuration from CHARTUP_-prefixed environment variables. A
// .env file in the working directory is loaded first when present; variables
// already set in the process environment always win.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("CHARTUP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("provider", ProviderS3)
	v.SetDefault("endpoint", "s3.amazonaws.com")
	v.SetDefault("region", "")
	v.SetDefault("secure", true)
	v.SetDefault("public_host", "charts.pingcap.org")
	v.SetDefault("disk_root", ".")

	// Bind explicitly: AutomaticEnv alone does not surface variables for keys
	// that have never been set or defaulted.
	envBindings := map[string]string{
		"provider":    "CHARTUP_PROVIDER",
		"access_key":  "CHARTUP_ACCESS_KEY",
		"secret_key":  "CHARTUP_SECRET_KEY",
		"bucket_name": "CHARTUP_BUCKET_NAME",
		"endpoint":    "CHARTUP_ENDPOINT",
		"region":      "CHARTUP_REGION",
		"secure":      "CHARTUP_SECURE",
		"public_host": "CHARTUP_PUBLIC_HOST",
		"disk_root":   "CHARTUP_DISK_ROOT",
	}
	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}

	cfg := &Config{
		Provider: v.GetString("provider"),
		Credentials: Credentials{
			AccessKey:  v.GetString("access_key"),
			SecretKey:  v.GetString("secret_key"),
			BucketName: v.GetString("bucket_name"),
		},
		Endpoint:   v.GetString("endpoint"),
		Region:     v.GetString("region"),
		Secure:     v.GetBool("secure"),
		PublicHost: v.GetString("public_host"),
		DiskRoot:   v.GetString("disk_root"),
	}

	switch cfg.Provider {
	case ProviderS3, ProviderGCS, ProviderDisk:
	default:
		return nil, fmt.Errorf("config: unknown provider %q", cfg.Provider)
	}

	if err := cfg.Credentials.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}
