package main

import (
	"errors"
	"fmt"
	"math/big"
	"os"
	"strconv"
	"strings"

	"github.com/jellydator/validation"
	"github.com/joho/godotenv"

	"txtable-circuit/txtable"
)

// Config sizes one proof instance and the process around it.
type Config struct {
	MaxTxs           int
	MaxCallDataBytes int
	DigestCapacity   int
	ChainID          uint64
	LogLevel         string
}

func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.MaxTxs, validation.Required, validation.Min(1)),
		validation.Field(&c.MaxCallDataBytes, validation.Min(0)),
		validation.Field(&c.DigestCapacity, validation.Required, validation.Min(1)),
		validation.Field(&c.ChainID, validation.Required),
		validation.Field(&c.LogLevel, validation.In("trace", "debug", "info", "warn", "error", "disabled")),
	)
}

func (c Config) Params() txtable.Params {
	return txtable.Params{
		MaxTxs:           c.MaxTxs,
		MaxCallDataBytes: c.MaxCallDataBytes,
		ChainID:          new(big.Int).SetUint64(c.ChainID),
	}
}

type EnvSource interface {
	Lookup(key string) (string, bool)
}

type EnvMap map[string]string

func (e EnvMap) Lookup(key string) (string, bool) {
	value, ok := e[key]
	return value, ok
}

func FromEnviron() EnvSource {
	env := make(EnvMap)
	for _, entry := range os.Environ() {
		key, value, ok := strings.Cut(entry, "=")
		if !ok || key == "" {
			continue
		}
		env[key] = value
	}
	return env
}

// LoadConfig reads the optional .env file, then the environment.
func LoadConfig() (Config, error) {
	if err := loadDotEnv(); err != nil {
		return Config{}, err
	}
	return Load(FromEnviron())
}

func Load(source EnvSource) (Config, error) {
	if source == nil {
		return Config{}, errors.New("env source is required")
	}
	maxTxs, err := parseUintEnv(source, "TXTABLE_MAX_TXS", 4)
	if err != nil {
		return Config{}, err
	}
	maxCallData, err := parseUintEnv(source, "TXTABLE_MAX_CALLDATA_BYTES", 256)
	if err != nil {
		return Config{}, err
	}
	digestCapacity, err := parseUintEnv(source, "TXTABLE_DIGEST_CAPACITY", maxTxs)
	if err != nil {
		return Config{}, err
	}
	chainID, err := parseUintEnv(source, "TXTABLE_CHAIN_ID", 1337)
	if err != nil {
		return Config{}, err
	}
	logLevel := "info"
	if raw, ok := source.Lookup("TXTABLE_LOG_LEVEL"); ok && strings.TrimSpace(raw) != "" {
		logLevel = strings.ToLower(strings.TrimSpace(raw))
	}

	cfg := Config{
		MaxTxs:           int(maxTxs),
		MaxCallDataBytes: int(maxCallData),
		DigestCapacity:   int(digestCapacity),
		ChainID:          chainID,
		LogLevel:         logLevel,
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func loadDotEnv() error {
	if _, err := os.Stat(".env"); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return godotenv.Load(".env")
}

func parseUintEnv(source EnvSource, key string, defaultValue uint64) (uint64, error) {
	raw, ok := source.Lookup(key)
	if !ok || raw == "" {
		return defaultValue, nil
	}
	value, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return value, nil
}
