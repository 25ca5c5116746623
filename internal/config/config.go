package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds configuration values loaded from flags, env, or config file.
type Config struct {
	Addr         string
	PGDSN        string
	RedisAddr    string
	LogLevel     string
	Env          string
	CacheTTL     time.Duration
	CacheStale   time.Duration
	CallTimeout  time.Duration
	Fanout       int
	MaxRetries   int
	RetryBackoff time.Duration
	Location     string
	JWTSecret    string
	JWTPublicKey string
	JWTIssuer    string
	JWTAudience  string
	RateLimit    float64
	RateBurst    int
	AllowOrigins []string
	Chains       []Chain
}

// Production reports whether the service runs in the production environment.
func (c Config) Production() bool {
	return strings.EqualFold(c.Env, "production") || strings.EqualFold(c.Env, "prod")
}

// LoadLocation resolves the location used for date labels.
func (c Config) LoadLocation() (*time.Location, error) {
	if c.Location == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.Location)
	if err != nil {
		return nil, fmt.Errorf("load location %q: %w", c.Location, err)
	}
	return loc, nil
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v, err := newViper(cfgFile, flags)
	if err != nil {
		return Config{}, err
	}
	return fromViper(v)
}

func newViper(cfgFile string, flags *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix("POOLLENS")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("addr", ":8080")
	v.SetDefault("log-level", "info")
	v.SetDefault("env", "development")
	v.SetDefault("cache-ttl", 30*time.Second)
	v.SetDefault("cache-stale", 30*time.Second)
	v.SetDefault("call-timeout", 5*time.Second)
	v.SetDefault("fanout", 8)
	v.SetDefault("max-retries", 2)
	v.SetDefault("retry-backoff", 200*time.Millisecond)
	v.SetDefault("location", "UTC")
	v.SetDefault("rate-limit", 20.0)
	v.SetDefault("rate-burst", 40)

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}
	return v, nil
}

func fromViper(v *viper.Viper) (Config, error) {
	chains, err := getChains(v, "chains")
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Addr:         v.GetString("addr"),
		PGDSN:        v.GetString("pg-dsn"),
		RedisAddr:    v.GetString("redis-addr"),
		LogLevel:     v.GetString("log-level"),
		Env:          v.GetString("env"),
		CacheTTL:     v.GetDuration("cache-ttl"),
		CacheStale:   v.GetDuration("cache-stale"),
		CallTimeout:  v.GetDuration("call-timeout"),
		Fanout:       v.GetInt("fanout"),
		MaxRetries:   v.GetInt("max-retries"),
		RetryBackoff: v.GetDuration("retry-backoff"),
		Location:     v.GetString("location"),
		JWTSecret:    v.GetString("jwt-secret"),
		JWTPublicKey: v.GetString("jwt-public-key"),
		JWTIssuer:    v.GetString("jwt-issuer"),
		JWTAudience:  v.GetString("jwt-audience"),
		RateLimit:    v.GetFloat64("rate-limit"),
		RateBurst:    v.GetInt("rate-burst"),
		AllowOrigins: getStringSlice(v, "allow-origins"),
		Chains:       chains,
	}

	return cfg, nil
}

func getStringSlice(v *viper.Viper, key string) []string {
	if !v.IsSet(key) {
		return nil
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case []string:
		return cleanStrings(typed)
	case string:
		return splitAndClean(typed)
	case []interface{}:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			items = append(items, fmt.Sprintf("%v", item))
		}
		return cleanStrings(items)
	default:
		return nil
	}
}

func splitAndClean(input string) []string {
	if input == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	return cleanStrings(parts)
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}
