package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Defaults point at the mainnet deployment.
const (
	DefaultNodeURL         = "https://api.mainnet.hiro.so"
	DefaultDeployer        = "SP12XVTT769QRMK2TA2EETR5G57Q3W5A4HPA67S86"
	DefaultGmContract      = DefaultDeployer + ".gm-unlimited"
	DefaultMessageContract = DefaultDeployer + ".post"
	DefaultVotingContract  = DefaultDeployer + ".votingv1"
)

// Config holds configuration values loaded from flags, env, or config file.
type Config struct {
	NodeURL         string
	GmContract      string
	MessageContract string
	VotingContract  string
	Sender          string
	WatchAddress    string
	StatsCacheURL   string

	Addr         string
	WebhookToken string
	StatsTTL     time.Duration

	StatsInterval time.Duration
	PollInterval  time.Duration
	KickDelay     time.Duration

	PgDSN string
	Out   string

	ChainhookURL    string
	ChainhookAPIKey string
	WebhookEndpoint string
	ReplaceHooks    bool

	MaxRetries   int
	RetryBackoff time.Duration
	Timeout      time.Duration
	LogLevel     string
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("CLICKSHIP")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("node-url", DefaultNodeURL)
	v.SetDefault("gm-contract", DefaultGmContract)
	v.SetDefault("message-contract", DefaultMessageContract)
	v.SetDefault("voting-contract", DefaultVotingContract)
	v.SetDefault("addr", ":8080")
	v.SetDefault("stats-ttl", 60*time.Second)
	v.SetDefault("stats-interval", 30*time.Second)
	v.SetDefault("poll-interval", 60*time.Second)
	v.SetDefault("kick-delay", 5*time.Second)
	v.SetDefault("out", "./data/snapshots.jsonl")
	v.SetDefault("max-retries", 3)
	v.SetDefault("retry-backoff", 250*time.Millisecond)
	v.SetDefault("timeout", 15*time.Second)
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

	cfg := Config{
		NodeURL:         v.GetString("node-url"),
		GmContract:      v.GetString("gm-contract"),
		MessageContract: v.GetString("message-contract"),
		VotingContract:  v.GetString("voting-contract"),
		Sender:          v.GetString("sender"),
		WatchAddress:    v.GetString("watch-address"),
		StatsCacheURL:   v.GetString("stats-cache-url"),
		Addr:            v.GetString("addr"),
		WebhookToken:    v.GetString("webhook-token"),
		StatsTTL:        v.GetDuration("stats-ttl"),
		StatsInterval:   v.GetDuration("stats-interval"),
		PollInterval:    v.GetDuration("poll-interval"),
		KickDelay:       v.GetDuration("kick-delay"),
		PgDSN:           v.GetString("pg-dsn"),
		Out:             v.GetString("out"),
		ChainhookURL:    v.GetString("chainhook-url"),
		ChainhookAPIKey: v.GetString("chainhook-api-key"),
		WebhookEndpoint: v.GetString("webhook-endpoint"),
		ReplaceHooks:    v.GetBool("replace"),
		MaxRetries:      v.GetInt("max-retries"),
		RetryBackoff:    v.GetDuration("retry-backoff"),
		Timeout:         v.GetDuration("timeout"),
		LogLevel:        v.GetString("log-level"),
	}

	return cfg, nil
}
