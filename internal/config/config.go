// Package config holds the settings that shape a download: request headers,
// concurrency, slicing threshold, timeouts and retry budget.
//
// A Config is a plain value. Callers build one with Default or Load, adjust it
// and hand it to the downloader, which keeps its own copy; changes made after
// that point are not seen by downloads already constructed.
package config

import (
	"errors"
	"fmt"
	"maps"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const DefaultUserAgent = "rangedl/0.1.0"

const envPrefix = "RANGEDL"

// Config defines the download settings.
type Config struct {
	// UserAgent is sent as the "user-agent" header on every request.
	UserAgent string

	// Headers are merged into every request. Keys are lower-cased.
	Headers map[string]string

	// CoroutineLimit is both the number of concurrent chunk transfers and the
	// number of parts a sliced download is split into.
	CoroutineLimit int

	// SliceThreshold is in MiB. Resources at or below it use a single stream.
	SliceThreshold int64

	// Timeout bounds connecting, waiting for headers and each body read.
	Timeout time.Duration

	// RetryTimes is the total number of attempts per chunk.
	RetryTimes int

	// ChunkSize is the size in bytes of one read unit from a response body.
	ChunkSize int64

	// RetryBackoff is the fixed wait between attempts of one chunk.
	RetryBackoff time.Duration

	KATimeout    time.Duration
	ProxyURL     string
	VerifyRanges bool
}

// Default returns a Config with sensible defaults.
func Default() Config {
	cfg := Config{
		Headers:        map[string]string{},
		CoroutineLimit: 16,
		SliceThreshold: 50,
		Timeout:        30 * time.Second,
		RetryTimes:     5,
		ChunkSize:      1024 * 1024,
		RetryBackoff:   time.Second,
		KATimeout:      90 * time.Second,
	}
	cfg.SetUserAgent(DefaultUserAgent)
	return cfg
}

// SetUserAgent sets the user agent and the matching entry in Headers.
func (c *Config) SetUserAgent(userAgent string) {
	if c.Headers == nil {
		c.Headers = map[string]string{}
	}
	c.UserAgent = userAgent
	c.Headers["user-agent"] = userAgent
}

// SetHeaders merges headers into the configured set, lower-casing each key.
func (c *Config) SetHeaders(headers map[string]string) {
	if c.Headers == nil {
		c.Headers = map[string]string{}
	}
	for key, value := range headers {
		key = strings.ToLower(strings.TrimSpace(key))
		if key == "" {
			continue
		}
		c.Headers[key] = value
		if key == "user-agent" {
			c.UserAgent = value
		}
	}
}

// Clone returns a copy that shares no maps with c.
func (c Config) Clone() Config {
	out := c
	out.Headers = maps.Clone(c.Headers)
	if out.Headers == nil {
		out.Headers = map[string]string{}
	}
	return out
}

// Validate checks that every numeric setting is usable.
func (c Config) Validate() error {
	var errs []error
	if c.CoroutineLimit < 1 {
		errs = append(errs, fmt.Errorf("coroutine_limit must be at least 1, got %d", c.CoroutineLimit))
	}
	if c.SliceThreshold < 0 {
		errs = append(errs, fmt.Errorf("slice_threshold must not be negative, got %d", c.SliceThreshold))
	}
	if c.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("timeout must be positive, got %s", c.Timeout))
	}
	if c.RetryTimes < 1 {
		errs = append(errs, fmt.Errorf("retry_times must be at least 1, got %d", c.RetryTimes))
	}
	if c.ChunkSize < 1 {
		errs = append(errs, fmt.Errorf("chunk_size must be positive, got %d", c.ChunkSize))
	}
	if c.RetryBackoff < 0 {
		errs = append(errs, fmt.Errorf("retry_backoff must not be negative, got %s", c.RetryBackoff))
	}
	return errors.Join(errs...)
}

// Load builds a Config from defaults, an optional YAML file and RANGEDL_*
// environment variables, in increasing order of precedence.
func Load(path string) (Config, error) {
	v := viper.New()
	def := Default()
	v.SetDefault("user_agent", def.UserAgent)
	v.SetDefault("headers", map[string]string{})
	v.SetDefault("coroutine_limit", def.CoroutineLimit)
	v.SetDefault("slice_threshold", def.SliceThreshold)
	v.SetDefault("timeout", def.Timeout)
	v.SetDefault("retry_times", def.RetryTimes)
	v.SetDefault("chunk_size", fmt.Sprint(def.ChunkSize))
	v.SetDefault("retry_backoff", def.RetryBackoff)
	v.SetDefault("keep_alive_timeout", def.KATimeout)
	v.SetDefault("proxy", "")
	v.SetDefault("verify_ranges", false)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	chunkSize, err := ParseBytes(v.GetString("chunk_size"))
	if err != nil {
		return Config{}, fmt.Errorf("parse chunk_size: %w", err)
	}

	cfg := Config{
		Headers:        map[string]string{},
		CoroutineLimit: v.GetInt("coroutine_limit"),
		SliceThreshold: v.GetInt64("slice_threshold"),
		Timeout:        v.GetDuration("timeout"),
		RetryTimes:     v.GetInt("retry_times"),
		ChunkSize:      chunkSize,
		RetryBackoff:   v.GetDuration("retry_backoff"),
		KATimeout:      v.GetDuration("keep_alive_timeout"),
		ProxyURL:       v.GetString("proxy"),
		VerifyRanges:   v.GetBool("verify_ranges"),
	}
	cfg.SetUserAgent(v.GetString("user_agent"))
	cfg.SetHeaders(v.GetStringMapString("headers"))

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
