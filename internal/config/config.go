// Package config loads per-service configuration via pflag flags with
// environment-variable overrides, no viper.
package config

import (
	"os"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// fileDefaults holds key/value overrides loaded from --config-file by
// LoadFileDefaults, consulted by getenvOr between the environment and each
// flag's hardcoded default.
var fileDefaults map[string]string

// LoadFileDefaults reads path as a flat YAML mapping of environment-variable
// names to string values and installs it as the fallback tier getenvOr
// checks below the real environment. It must run before any NewXConfig
// call, since flag defaults are computed at registration time. A missing
// path is not an error — most deployments configure purely through
// environment variables or flags.
func LoadFileDefaults(path string) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	var m map[string]string
	if err := yaml.Unmarshal(data, &m); err != nil {
		return err
	}
	fileDefaults = m
	return nil
}

// PreloadConfigFile pre-scans args for --config-file (tolerating every
// other flag the real FlagSet will later recognize) and, if present, loads
// it via LoadFileDefaults. Call this before constructing any NewXConfig.
func PreloadConfigFile(args []string) error {
	fs := pflag.NewFlagSet("preload", pflag.ContinueOnError)
	fs.ParseErrorsWhitelist.UnknownFlags = true
	fs.Usage = func() {}
	path := fs.String("config-file", "", "path to a YAML config file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	return LoadFileDefaults(*path)
}

// getenvOr returns the environment variable value for key, falling back to
// the YAML file defaults loaded by LoadFileDefaults, then def.
func getenvOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	if v, ok := fileDefaults[key]; ok && v != "" {
		return v
	}
	return def
}

// Loader is a small per-service config base shared by every cmd/*. Each
// service embeds it and adds its own recognized options.
type Loader struct {
	ConfigFile            string
	PrometheusBindAddress string
}

// RegisterCommonFlags registers the flags common to every service binary:
// --config-file (all services) and the Prometheus bind address.
func (l *Loader) RegisterCommonFlags(fs *pflag.FlagSet) {
	fs.StringVar(&l.ConfigFile, "config-file", "", "path to a YAML config file")
	fs.StringVar(&l.PrometheusBindAddress, "prometheus-bind-address", getenvOr("PROMETHEUS_EXPORTER__BIND_ADDRESS", ":9090"), "Prometheus exporter bind address")
}

// LoaderConfig is cmd/loader's recognized option set.
type LoaderConfig struct {
	Loader

	EndpointURL                    string
	ContractKeys                   []string
	SignaturesResetStatusPeriodSec int
	NumberOfThreads                int
	LoadOnlySuccessfulTransactions bool
	SolanaClientType                string
	QueueStorageDatabaseURL         string
	DontLoadSignatures              bool
}

func NewLoaderConfig(fs *pflag.FlagSet) *LoaderConfig {
	c := &LoaderConfig{}
	c.RegisterCommonFlags(fs)
	fs.StringVar(&c.EndpointURL, "endpoint-url", getenvOr("ENDPOINT__URL", "https://api.mainnet-beta.solana.com"), "Solana JSON-RPC endpoint")
	fs.StringSliceVar(&c.ContractKeys, "contract-keys", splitNonEmpty(getenvOr("CONTRACTS__KEYS", "")), "account pubkeys to watch")
	fs.IntVar(&c.SignaturesResetStatusPeriodSec, "signatures-loading-reset-status-period", 300, "janitor reset period (s)")
	fs.IntVar(&c.NumberOfThreads, "transactions-loading-number-of-threads", 8, "number of fetcher pool workers")
	fs.BoolVar(&c.LoadOnlySuccessfulTransactions, "transactions-loading-load-only-successful-transactions", false, "claim only err='' signatures")
	fs.StringVar(&c.SolanaClientType, "solana-client-client-type", getenvOr("SOLANA_CLIENT__CLIENT_TYPE", "Rpc"), "Rpc or BigTable")
	fs.StringVar(&c.QueueStorageDatabaseURL, "queue-storage-database-url", getenvOr("QUEUE_STORAGE__DATABASE_URL", ""), "PostgreSQL-compatible queue DB URL")
	fs.BoolVar(&c.DontLoadSignatures, "dont-load-signatures", false, "disable the signature cursor")
	return c
}

// AnalyzerConfig is cmd/analyzer's recognized option set.
type AnalyzerConfig struct {
	Loader

	MainStorageDatabaseURL string
	QueueStorageURL        string
	QueueStorageType       string
}

func NewAnalyzerConfig(fs *pflag.FlagSet) *AnalyzerConfig {
	c := &AnalyzerConfig{}
	c.RegisterCommonFlags(fs)
	fs.StringVar(&c.MainStorageDatabaseURL, "main-storage-database-url", getenvOr("MAIN_STORAGE__DATABASE_URL", ""), "columnar store URL (tcp:// or http(s)://)")
	fs.StringVar(&c.QueueStorageURL, "queue-storage-storage-url", getenvOr("QUEUE_STORAGE__STORAGE_URL", ""), "relational queue URL")
	fs.StringVar(&c.QueueStorageType, "queue-storage-storage-type", "PostgreSQL", "relational queue driver")
	return c
}

// EpochTrackerConfig is cmd/epoch-tracker's recognized option set.
type EpochTrackerConfig struct {
	Loader

	EndpointURL      string
	StorageURL       string
	ValidatorVoteAccount string
	SetupEpochs      bool
}

func NewEpochTrackerConfig(fs *pflag.FlagSet) *EpochTrackerConfig {
	c := &EpochTrackerConfig{}
	c.RegisterCommonFlags(fs)
	fs.StringVar(&c.EndpointURL, "endpoint-url", getenvOr("ENDPOINT__URL", "https://api.mainnet-beta.solana.com"), "Solana JSON-RPC endpoint")
	fs.StringVar(&c.StorageURL, "storage-url", getenvOr("STORAGE__URL", ""), "epoch store URL")
	fs.StringVar(&c.ValidatorVoteAccount, "validator-vote-account", getenvOr("VALIDATOR__VOTE_ACCOUNT", ""), "vote account used for burn-in checks")
	fs.BoolVar(&c.SetupEpochs, "setup-epochs", false, "one-shot historical epoch backfill")
	return c
}

// RewardsAnalyzerConfig is cmd/rewards-analyzer's recognized option set.
type RewardsAnalyzerConfig struct {
	Loader

	MainStorageURL  string
	EpochStorageURL string
}

func NewRewardsAnalyzerConfig(fs *pflag.FlagSet) *RewardsAnalyzerConfig {
	c := &RewardsAnalyzerConfig{}
	c.RegisterCommonFlags(fs)
	fs.StringVar(&c.MainStorageURL, "main-storage-url", getenvOr("MAIN_STORAGE__URL", ""), "columnar store URL")
	fs.StringVar(&c.EpochStorageURL, "epoch-storage-url", getenvOr("EPOCH_STORAGE__URL", ""), "epoch store URL")
	return c
}

func splitNonEmpty(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ',' {
			if i > start {
				out = append(out, s[start:i])
			}
			start = i + 1
		}
	}
	return out
}
