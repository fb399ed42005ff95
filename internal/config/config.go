package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// DefaultProgramID is the program identity pool addresses derive from when
// none is configured.
const DefaultProgramID = "0x00000000000000000000000000000000000a3300"

// Config holds configuration values loaded from flags, env, or config file.
type Config struct {
	StateFile    string
	PGDSN        string
	ProgramID    common.Address
	Journal      string
	RPCURL       string
	MaxRetries   int
	RetryBackoff time.Duration
	LogLevel     string
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("AMM")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("state-file", "./data/ledger.json")
	v.SetDefault("program-id", DefaultProgramID)
	v.SetDefault("journal", "./data/receipts.jsonl")
	v.SetDefault("max-retries", 5)
	v.SetDefault("retry-backoff", 500*time.Millisecond)
	v.SetDefault("log-level", "info")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	program, err := ParseAddress(v.GetString("program-id"))
	if err != nil {
		return Config{}, fmt.Errorf("program-id: %w", err)
	}

	cfg := Config{
		StateFile:    v.GetString("state-file"),
		PGDSN:        v.GetString("pg-dsn"),
		ProgramID:    program,
		Journal:      v.GetString("journal"),
		RPCURL:       v.GetString("rpc"),
		MaxRetries:   v.GetInt("max-retries"),
		RetryBackoff: v.GetDuration("retry-backoff"),
		LogLevel:     v.GetString("log-level"),
	}

	return cfg, nil
}
