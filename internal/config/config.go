// Package config resolves the s5bridge configuration once at startup.
//
// Sources, highest precedence first:
//   - command-line flags passed to Load
//   - process environment
//   - an explicit dotenv-style config file (--config)
//   - a .env file in the working directory
//   - built-in defaults
//
// The resulting Config is passed explicitly to every component constructor;
// no component reads the environment on its own.
package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Configuration keys. The names match the environment variables used by
// existing deployments.
const (
	KeyBucket          = "BUCKETNAME"
	KeyBucketSize      = "BUCKETSIZE"
	KeyEndpoint        = "ENDPOINT"
	KeyProfile         = "AWS_PROFILE"
	KeyWorkers         = "AWS_WORKERS"
	KeyRegion          = "AWS_REGION"
	KeyAccessKeyID     = "AWS_ACCESS_KEY_ID"
	KeySecretAccessKey = "AWS_SECRET_ACCESS_KEY"
	KeyS5cmdPath       = "S5CMD_PATH"
	KeyListingWorkers  = "LISTING_WORKERS"
	KeyLogFile         = "LOG_FILE"
	KeyRequestRate     = "REQUEST_RATE"
)

// FlagKeys maps CLI flag names to configuration keys.
var FlagKeys = map[string]string{
	"bucket":          KeyBucket,
	"bucket-size":     KeyBucketSize,
	"endpoint":        KeyEndpoint,
	"profile":         KeyProfile,
	"workers":         KeyWorkers,
	"region":          KeyRegion,
	"s5cmd":           KeyS5cmdPath,
	"listing-workers": KeyListingWorkers,
	"log-file":        KeyLogFile,
	"request-rate":    KeyRequestRate,
}

// Defaults
const (
	DefaultRegion         = "us-east-1"
	DefaultS5cmdPath      = "s5cmd"
	DefaultListingWorkers = 8
	MaxListingWorkers     = 64
)

// Config holds every setting the core components need.
type Config struct {
	// Bucket is the single bucket all remote paths live in.
	Bucket string

	// BucketSize is the configured bucket capacity as a human size string
	// ("500 GB"). Remote free space is BucketSize minus the stored bytes.
	BucketSize string

	// Endpoint is the S3-compatible endpoint URL.
	Endpoint string

	// Profile is the shared-credentials profile used by both the listing
	// client and s5cmd.
	Profile string

	// Workers is passed to s5cmd as --numworkers.
	Workers int

	// Region for request signing. Most S3-compatible stores ignore it.
	Region string

	// Optional static credentials for the listing client. When set they
	// take precedence over Profile.
	AccessKeyID     string
	SecretAccessKey string

	// S5cmdPath is the copy tool binary, resolved through PATH when not absolute.
	S5cmdPath string

	// ListingWorkers bounds the goroutines used per tree expansion.
	ListingWorkers int

	// LogFile enables rotating file logging when non-empty.
	LogFile string

	// RequestRate caps object store requests per second across all
	// listing and deletion clients. Zero disables the limit.
	RequestRate float64
}

// ConfigurationError reports missing or malformed required settings.
// It is fatal: no transfer can proceed without them.
type ConfigurationError struct {
	Missing []string
	Invalid map[string]string
}

func (e *ConfigurationError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing "+strings.Join(e.Missing, ", "))
	}
	for _, key := range sortedKeys(e.Invalid) {
		parts = append(parts, fmt.Sprintf("invalid %s: %s", key, e.Invalid[key]))
	}
	return "incomplete configuration: " + strings.Join(parts, "; ")
}

func (e *ConfigurationError) empty() bool {
	return len(e.Missing) == 0 && len(e.Invalid) == 0
}

// IsConfigurationError reports whether err is (or wraps) a ConfigurationError.
func IsConfigurationError(err error) bool {
	var cfgErr *ConfigurationError
	return errors.As(err, &cfgErr)
}

// Load resolves the configuration. file may be empty. flags may be nil; when
// given, every flag named in FlagKeys that the user set overrides the
// environment. Load does not validate; call Validate before use.
func Load(file string, flags *pflag.FlagSet) (*Config, error) {
	// A missing .env is normal.
	_ = godotenv.Load()

	v := viper.New()
	v.SetDefault(KeyRegion, DefaultRegion)
	v.SetDefault(KeyS5cmdPath, DefaultS5cmdPath)
	v.SetDefault(KeyListingWorkers, DefaultListingWorkers)

	if file != "" {
		v.SetConfigFile(file)
		v.SetConfigType("env")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", file, err)
		}
	}

	for _, key := range allKeys() {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}

	if flags != nil {
		for name, key := range FlagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("failed to bind flag --%s: %w", name, err)
				}
			}
		}
	}

	return fromViper(v), nil
}

// FromEnv is Load without a file or flags.
func FromEnv() (*Config, error) {
	return Load("", nil)
}

func fromViper(v *viper.Viper) *Config {
	return &Config{
		Bucket:          strings.TrimSpace(v.GetString(KeyBucket)),
		BucketSize:      strings.TrimSpace(v.GetString(KeyBucketSize)),
		Endpoint:        strings.TrimSpace(v.GetString(KeyEndpoint)),
		Profile:         strings.TrimSpace(v.GetString(KeyProfile)),
		Workers:         parseInt(v.GetString(KeyWorkers)),
		Region:          strings.TrimSpace(v.GetString(KeyRegion)),
		AccessKeyID:     strings.TrimSpace(v.GetString(KeyAccessKeyID)),
		SecretAccessKey: strings.TrimSpace(v.GetString(KeySecretAccessKey)),
		S5cmdPath:       strings.TrimSpace(v.GetString(KeyS5cmdPath)),
		ListingWorkers:  parseInt(v.GetString(KeyListingWorkers)),
		LogFile:         strings.TrimSpace(v.GetString(KeyLogFile)),
		RequestRate:     parseFloat(v.GetString(KeyRequestRate)),
	}
}

// parseInt returns -1 for non-numeric input so Validate can report it.
func parseInt(s string) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return -1
	}
	return n
}

// parseFloat returns -1 for non-numeric input so Validate can report it.
func parseFloat(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return -1
	}
	return f
}

// Validate checks every required key and returns a *ConfigurationError
// naming all problems at once.
func (c *Config) Validate() error {
	e := &ConfigurationError{Invalid: map[string]string{}}

	required := []struct {
		key   string
		value string
	}{
		{KeyBucket, c.Bucket},
		{KeyBucketSize, c.BucketSize},
	}
	for _, r := range required {
		if r.value == "" {
			e.Missing = append(e.Missing, r.key)
		}
	}
	if err := c.ValidateCopyTool(); err != nil {
		var cfgErr *ConfigurationError
		if errors.As(err, &cfgErr) {
			e.Missing = append(e.Missing, cfgErr.Missing...)
			for k, msg := range cfgErr.Invalid {
				e.Invalid[k] = msg
			}
		}
	}
	if c.ListingWorkers < 0 || c.ListingWorkers > MaxListingWorkers {
		e.Invalid[KeyListingWorkers] = fmt.Sprintf("must be between 1 and %d", MaxListingWorkers)
	}
	if c.RequestRate < 0 {
		e.Invalid[KeyRequestRate] = "must be a positive number of requests per second"
	}
	if (c.AccessKeyID == "") != (c.SecretAccessKey == "") {
		e.Invalid[KeyAccessKeyID] = "access key id and secret must be set together"
	}

	if e.empty() {
		return nil
	}
	return e
}

// ValidateCopyTool checks the settings s5cmd cannot run without:
// endpoint, profile and worker count.
func (c *Config) ValidateCopyTool() error {
	e := &ConfigurationError{Invalid: map[string]string{}}
	if c.Endpoint == "" {
		e.Missing = append(e.Missing, KeyEndpoint)
	}
	if c.Profile == "" {
		e.Missing = append(e.Missing, KeyProfile)
	}
	switch {
	case c.Workers == 0:
		e.Missing = append(e.Missing, KeyWorkers)
	case c.Workers < 0:
		e.Invalid[KeyWorkers] = "must be a positive integer"
	}
	if e.empty() {
		return nil
	}
	return e
}

// EffectiveListingWorkers returns the bounded worker count for tree expansion.
func (c *Config) EffectiveListingWorkers() int {
	if c.ListingWorkers <= 0 {
		return DefaultListingWorkers
	}
	if c.ListingWorkers > MaxListingWorkers {
		return MaxListingWorkers
	}
	return c.ListingWorkers
}

// Values returns every setting keyed by its configuration key, in the form
// Save writes them. Zero integers are left empty.
func (c *Config) Values() map[string]string {
	itoa := func(n int) string {
		if n == 0 {
			return ""
		}
		return strconv.Itoa(n)
	}
	return map[string]string{
		KeyBucket:          c.Bucket,
		KeyBucketSize:      c.BucketSize,
		KeyEndpoint:        c.Endpoint,
		KeyProfile:         c.Profile,
		KeyWorkers:         itoa(c.Workers),
		KeyRegion:          c.Region,
		KeyAccessKeyID:     c.AccessKeyID,
		KeySecretAccessKey: c.SecretAccessKey,
		KeyS5cmdPath:       c.S5cmdPath,
		KeyListingWorkers:  itoa(c.ListingWorkers),
		KeyLogFile:         c.LogFile,
		KeyRequestRate:     ftoa(c.RequestRate),
	}
}

func ftoa(f float64) string {
	if f == 0 {
		return ""
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Keys returns every configuration key in display order.
func Keys() []string {
	return allKeys()
}

// Save writes values as a dotenv file readable only by the owner. Empty
// values are omitted.
func Save(path string, values map[string]string) error {
	out := make(map[string]string, len(values))
	for k, v := range values {
		if v != "" {
			out[k] = v
		}
	}
	if err := godotenv.Write(out, path); err != nil {
		return fmt.Errorf("failed to write config file %s: %w", path, err)
	}
	return os.Chmod(path, 0600)
}

// Redacted returns printable key/value pairs with secrets masked.
func (c *Config) Redacted() [][2]string {
	secret := ""
	if c.SecretAccessKey != "" {
		secret = "********"
	}
	return [][2]string{
		{KeyBucket, c.Bucket},
		{KeyBucketSize, c.BucketSize},
		{KeyEndpoint, c.Endpoint},
		{KeyProfile, c.Profile},
		{KeyWorkers, strconv.Itoa(c.Workers)},
		{KeyRegion, c.Region},
		{KeyAccessKeyID, c.AccessKeyID},
		{KeySecretAccessKey, secret},
		{KeyS5cmdPath, c.S5cmdPath},
		{KeyListingWorkers, strconv.Itoa(c.EffectiveListingWorkers())},
		{KeyLogFile, c.LogFile},
		{KeyRequestRate, ftoa(c.RequestRate)},
	}
}

func allKeys() []string {
	return []string{
		KeyBucket, KeyBucketSize, KeyEndpoint, KeyProfile, KeyWorkers, KeyRegion,
		KeyAccessKeyID, KeySecretAccessKey, KeyS5cmdPath, KeyListingWorkers, KeyLogFile,
		KeyRequestRate,
	}
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
