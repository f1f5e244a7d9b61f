package config

import (
	"errors"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/viper"
)

// Config holds everything the swap core needs to run: RPC endpoints,
// commitment level, confirmation budget, venue endpoints, the platform fee
// destination and the wallet provider settings.
type Config struct {
	RPCList    []string `mapstructure:"rpc_list"`
	Commitment string   `mapstructure:"commitment"`

	ConfirmRetries  int `mapstructure:"confirm_retries"`
	ConfirmDelayMs  int `mapstructure:"confirm_delay_ms"`
	FollowUpChecks  int `mapstructure:"follow_up_checks"`
	HTTPRetries     int `mapstructure:"http_retries"`
	HTTPTimeoutSecs int `mapstructure:"http_timeout_seconds"`

	JupiterURL string `mapstructure:"jupiter_url"`
	RaydiumURL string `mapstructure:"raydium_url"`

	FeeRecipient string `mapstructure:"fee_recipient"`
	FeeRateBps   int64  `mapstructure:"fee_rate_bps"`

	// Wallet provider settings. Exactly one of the signer backends is
	// usually configured; resolution order lives in internal/wallet.
	WalletPrivateKey string `mapstructure:"wallet_private_key"`
	SessionAddress   string `mapstructure:"session_address"`
	SignerServiceURL string `mapstructure:"signer_service_url"`

	SlippageBps int `mapstructure:"slippage_bps"`

	PriorityFeeMicroLamports uint64 `mapstructure:"priority_fee_micro_lamports"`

	DebugLogging bool   `mapstructure:"debug_logging"`
	LogFile      string `mapstructure:"log_file"`
	MetricsAddr  string `mapstructure:"metrics_addr"`

	// DatabaseURL enables swap-history persistence when set.
	DatabaseURL string `mapstructure:"database_url"`
}

const (
	DefaultCommitment     = "confirmed"
	DefaultConfirmRetries = 3
	DefaultConfirmDelayMs = 2000
	DefaultFollowUpChecks = 2
	DefaultHTTPRetries    = 2
	DefaultHTTPTimeout    = 12
	DefaultFeeRateBps     = 50 // 0.5%
	DefaultSlippageBps    = 100
	DefaultJupiterURL     = "https://api.jup.ag/swap/v1"
	DefaultRaydiumURL     = "https://transaction-v1.raydium.io"
)

func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	defaults := map[string]interface{}{
		"commitment":           DefaultCommitment,
		"confirm_retries":      DefaultConfirmRetries,
		"confirm_delay_ms":     DefaultConfirmDelayMs,
		"follow_up_checks":     DefaultFollowUpChecks,
		"http_retries":         DefaultHTTPRetries,
		"http_timeout_seconds": DefaultHTTPTimeout,
		"fee_rate_bps":         DefaultFeeRateBps,
		"slippage_bps":         DefaultSlippageBps,
		"jupiter_url":          DefaultJupiterURL,
		"raydium_url":          DefaultRaydiumURL,
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := loadEnvironmentVariables(v, &cfg); err != nil {
		return nil, err
	}

	return &cfg, validateConfig(&cfg)
}

func validateConfig(cfg *Config) error {
	if len(cfg.RPCList) == 0 {
		return errors.New("rpc_list is empty")
	}
	for _, rpcURL := range cfg.RPCList {
		if err := validateURLWithCache(rpcURL, "http"); err != nil {
			return errors.New("invalid RPC URL protocol")
		}
	}
	switch cfg.Commitment {
	case "processed", "confirmed", "finalized":
	default:
		return errors.New("commitment must be processed, confirmed or finalized")
	}
	if cfg.FeeRecipient != "" {
		if _, err := solana.PublicKeyFromBase58(cfg.FeeRecipient); err != nil {
			return errors.New("fee_recipient is not a valid base58 public key")
		}
	}
	if err := validateNumericParams(cfg); err != nil {
		return err
	}
	if cfg.JupiterURL != "" {
		if err := validateURLWithCache(cfg.JupiterURL, "http"); err != nil {
			return errors.New("invalid jupiter_url")
		}
	}
	if cfg.RaydiumURL != "" {
		if err := validateURLWithCache(cfg.RaydiumURL, "http"); err != nil {
			return errors.New("invalid raydium_url")
		}
	}
	return nil
}

func validateNumericParams(cfg *Config) error {
	if cfg.ConfirmRetries <= 0 {
		return errors.New("invalid confirm_retries")
	}
	if cfg.ConfirmDelayMs <= 0 {
		return errors.New("invalid confirm_delay_ms")
	}
	if cfg.FollowUpChecks < 0 {
		return errors.New("invalid follow_up_checks")
	}
	if cfg.HTTPRetries < 0 {
		return errors.New("invalid http_retries")
	}
	if cfg.FeeRateBps < 0 || cfg.FeeRateBps > 10_000 {
		return errors.New("fee_rate_bps out of range")
	}
	if cfg.SlippageBps < 0 || cfg.SlippageBps > 10_000 {
		return errors.New("slippage_bps out of range")
	}
	return nil
}

// ConfirmDelay returns the wait between confirmation polls.
func (c *Config) ConfirmDelay() time.Duration {
	return time.Duration(c.ConfirmDelayMs) * time.Millisecond
}

// HTTPTimeout returns the per-request timeout for venue HTTP calls.
func (c *Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTPTimeoutSecs) * time.Second
}

var urlCache sync.Map

func validateURLWithCache(rawURL string, protocol string) error {
	if _, ok := urlCache.Load(rawURL); ok {
		return nil
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return errors.New("invalid URL format")
	}
	if !strings.HasPrefix(parsed.Scheme, protocol) {
		return errors.New("invalid URL protocol")
	}
	urlCache.Store(rawURL, parsed)
	return nil
}

func loadEnvironmentVariables(v *viper.Viper, cfg *Config) error {
	v.AutomaticEnv()
	v.SetEnvPrefix("SWAPCORE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if envKey := v.GetString("WALLET_PRIVATE_KEY"); envKey != "" {
		cfg.WalletPrivateKey = envKey
	}

	if envRPCList := v.GetString("RPC_LIST"); envRPCList != "" {
		rpcs := strings.Split(envRPCList, ",")
		var cleanRPCs []string
		for _, rpc := range rpcs {
			clean := strings.TrimSpace(rpc)
			if clean != "" {
				cleanRPCs = append(cleanRPCs, clean)
			}
		}
		if len(cleanRPCs) > 0 {
			cfg.RPCList = cleanRPCs
		}
	}

	if envRecipient := v.GetString("FEE_RECIPIENT"); envRecipient != "" {
		cfg.FeeRecipient = envRecipient
	}
	return nil
}
