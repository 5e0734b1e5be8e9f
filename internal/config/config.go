// Package config loads the faucet configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"solana-token-faucet/internal/solana"
)

// Storage backends.
const (
	StorageFile     = "file"
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
)

type Config struct {
	Solana       SolanaConfig
	Server       ServerConfig
	Storage      StorageConfig
	Distribution DistributionConfig
	Events       EventsConfig
	Log          LogConfig
}

type SolanaConfig struct {
	Network     string
	RPCEndpoint string
	WSEndpoint  string
	// PrivateKey is the base64 encoded 64-byte distributor secret key.
	PrivateKey string
}

type ServerConfig struct {
	Port        int
	AdminSecret string
}

type StorageConfig struct {
	Backend         string
	EligibilityFile string
	PostgresDSN     string
	ClickhouseDSN   string
}

type DistributionConfig struct {
	Cooldown      time.Duration
	BatchSize     int
	BatchDelay    time.Duration
	Tokens        uint64 // whole tokens per transfer
	Decimals      uint8
	MaxTokenTypes int
	DefaultMints  []string
}

type EventsConfig struct {
	NATSURL string
}

type LogConfig struct {
	Level  string
	Format string
}

// LoadDotEnv loads .env files into the environment. Missing files are ignored.
func LoadDotEnv(files ...string) error {
	err := godotenv.Load(files...)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

// Load reads the configuration from environment variables.
func Load() (Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("solana_network", solana.NetworkDevnet)
	v.SetDefault("solana_rpc_endpoint", "")
	v.SetDefault("solana_ws_endpoint", "")
	v.SetDefault("airdrop_wallet_private_key", "")
	v.SetDefault("admin_secret", "")
	v.SetDefault("port", 3000)
	v.SetDefault("storage_backend", StorageFile)
	v.SetDefault("eligibility_file", "airdrop-history.json")
	v.SetDefault("postgres_dsn", "")
	v.SetDefault("clickhouse_dsn", "")
	v.SetDefault("nats_url", "")
	v.SetDefault("cooldown", "24h")
	v.SetDefault("batch_size", 5)
	v.SetDefault("batch_delay", "2s")
	v.SetDefault("tokens_per_distribution", 1000)
	v.SetDefault("token_decimals", 9)
	v.SetDefault("max_token_types", 20)
	v.SetDefault("default_mints", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")

	network := strings.TrimSpace(v.GetString("solana_network"))
	if network != solana.NetworkDevnet && network != solana.NetworkMainnetBeta {
		return Config{}, fmt.Errorf("invalid SOLANA_NETWORK: %q (want devnet or mainnet-beta)", network)
	}
	rpcEndpoint, wsEndpoint := solana.Endpoints(network)
	if custom := strings.TrimSpace(v.GetString("solana_rpc_endpoint")); custom != "" {
		rpcEndpoint = custom
		wsEndpoint = wsFromHTTP(custom)
	}
	if custom := strings.TrimSpace(v.GetString("solana_ws_endpoint")); custom != "" {
		wsEndpoint = custom
	}

	port := v.GetInt("port")
	if port <= 0 || port > 65535 {
		return Config{}, fmt.Errorf("invalid PORT: %d", port)
	}

	backend := strings.ToLower(strings.TrimSpace(v.GetString("storage_backend")))
	switch backend {
	case StorageFile, StorageMemory, StoragePostgres:
	default:
		return Config{}, fmt.Errorf("invalid STORAGE_BACKEND: %q", backend)
	}
	postgresDSN := strings.TrimSpace(v.GetString("postgres_dsn"))
	if backend == StoragePostgres && postgresDSN == "" {
		return Config{}, fmt.Errorf("POSTGRES_DSN is required for the postgres storage backend")
	}

	cooldown := v.GetDuration("cooldown")
	if cooldown < 0 {
		return Config{}, fmt.Errorf("invalid COOLDOWN: %s", cooldown)
	}

	batchSize := v.GetInt("batch_size")
	if batchSize <= 0 {
		batchSize = 5
	}

	decimals := v.GetInt("token_decimals")
	if decimals < 0 || decimals > 19 {
		return Config{}, fmt.Errorf("invalid TOKEN_DECIMALS: %d", decimals)
	}

	tokens := v.GetInt64("tokens_per_distribution")
	if tokens <= 0 {
		return Config{}, fmt.Errorf("invalid TOKENS_PER_DISTRIBUTION: %d", tokens)
	}

	maxTokenTypes := v.GetInt("max_token_types")
	if maxTokenTypes <= 0 {
		maxTokenTypes = 20
	}

	return Config{
		Solana: SolanaConfig{
			Network:     network,
			RPCEndpoint: rpcEndpoint,
			WSEndpoint:  wsEndpoint,
			PrivateKey:  strings.TrimSpace(v.GetString("airdrop_wallet_private_key")),
		},
		Server: ServerConfig{
			Port:        port,
			AdminSecret: v.GetString("admin_secret"),
		},
		Storage: StorageConfig{
			Backend:         backend,
			EligibilityFile: strings.TrimSpace(v.GetString("eligibility_file")),
			PostgresDSN:     postgresDSN,
			ClickhouseDSN:   strings.TrimSpace(v.GetString("clickhouse_dsn")),
		},
		Distribution: DistributionConfig{
			Cooldown:      cooldown,
			BatchSize:     batchSize,
			BatchDelay:    v.GetDuration("batch_delay"),
			Tokens:        uint64(tokens),
			Decimals:      uint8(decimals),
			MaxTokenTypes: maxTokenTypes,
			DefaultMints:  splitList(v.GetString("default_mints")),
		},
		Events: EventsConfig{
			NATSURL: strings.TrimSpace(v.GetString("nats_url")),
		},
		Log: LogConfig{
			Level:  strings.ToLower(strings.TrimSpace(v.GetString("log_level"))),
			Format: strings.ToLower(strings.TrimSpace(v.GetString("log_format"))),
		},
	}, nil
}

// wsFromHTTP derives a WebSocket endpoint by swapping the URL scheme.
func wsFromHTTP(endpoint string) string {
	switch {
	case strings.HasPrefix(endpoint, "https://"):
		return "wss://" + strings.TrimPrefix(endpoint, "https://")
	case strings.HasPrefix(endpoint, "http://"):
		return "ws://" + strings.TrimPrefix(endpoint, "http://")
	}
	return endpoint
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
