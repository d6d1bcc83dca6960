// Package config loads the seeder's configuration: a TOML file on disk
// overridden by CLI flags, in the style of
// testnetkitchen-director/config's BaseConfig, bound through viper the
// way that package's mapstructure tags are meant to be unmarshaled.
package config

import (
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"github.com/kaseeder/kaseeder/internal/logging"
	"github.com/kaseeder/kaseeder/internal/netparams"
	"github.com/kaseeder/kaseeder/internal/store"
)

// Config is the top level configuration for one kaseeder process,
// spec.md §6's recognized option set plus the SOCKS proxy supplement.
type Config struct {
	Host       string `mapstructure:"host"`
	Nameserver string `mapstructure:"nameserver"`
	Listen     string `mapstructure:"listen"`
	GRPCListen string `mapstructure:"grpc_listen"`
	AppDir     string `mapstructure:"app_dir"`

	Seeder     string `mapstructure:"seeder"`
	KnownPeers string `mapstructure:"known_peers"`

	Threads int `mapstructure:"threads"`

	Testnet   bool   `mapstructure:"testnet"`
	NetSuffix uint16 `mapstructure:"net_suffix"`

	MinProtoVer uint32 `mapstructure:"min_proto_ver"`
	MinUAVer    string `mapstructure:"min_ua_ver"`

	LogLevel string `mapstructure:"log_level"`

	// Profile, if non-empty, binds an HTTP pprof/metrics endpoint on
	// this address. Off by default.
	Profile string `mapstructure:"profile"`

	// Proxy and ProxyUser/ProxyPass configure an optional SOCKS proxy
	// used for all outbound P2P dials, the supplement described in
	// SPEC_FULL.md's domain-stack section.
	Proxy     string `mapstructure:"proxy"`
	ProxyUser string `mapstructure:"proxy_user"`
	ProxyPass string `mapstructure:"proxy_pass"`

	// DevMode scales cooldown bands, stale timeouts, and seed intervals
	// down roughly 10x, per spec.md §6's development-mode dial. A single
	// flag, not a separate code path.
	DevMode bool `mapstructure:"dev_mode"`
}

// Default returns the baseline configuration before a file or CLI flags
// are applied.
func Default() *Config {
	return &Config{
		Host:        "seed.example.org.",
		Nameserver:  "ns.seed.example.org.",
		Listen:      "0.0.0.0:5354",
		GRPCListen:  "127.0.0.1:3737",
		AppDir:      ".kaseeder",
		Threads:     8,
		Testnet:     false,
		NetSuffix:   0,
		MinProtoVer: 1,
		LogLevel:    "info",
	}
}

// Load reads defaults, then an optional TOML file at path (if it
// exists), then environment variables prefixed KASEEDER_, via a fresh
// viper instance with no flags bound. Used where there is no cobra
// command in play (tests, one-off tools); cmd/dnsseeder instead builds
// its own viper via BindFlags and calls FromViper so CLI flags take
// precedence over file and environment, per spec.md §6's "CLI overrides
// file" rule.
func Load(path string) (*Config, error) {
	return FromViper(newViper(), path)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("toml")
	v.SetEnvPrefix("kaseeder")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}

// FromViper reads an optional TOML file at path into v (if it exists)
// and unmarshals the result into a Config. Values already bound onto v
// via BindFlags — and thus CLI flags the operator actually set — take
// precedence over the file, which is viper's normal precedence order.
func FromViper(v *viper.Viper, path string) (*Config, error) {
	def := Default()
	v.SetDefault("host", def.Host)
	v.SetDefault("nameserver", def.Nameserver)
	v.SetDefault("listen", def.Listen)
	v.SetDefault("grpc_listen", def.GRPCListen)
	v.SetDefault("app_dir", def.AppDir)
	v.SetDefault("threads", def.Threads)
	v.SetDefault("testnet", def.Testnet)
	v.SetDefault("net_suffix", def.NetSuffix)
	v.SetDefault("min_proto_ver", def.MinProtoVer)
	v.SetDefault("log_level", def.LogLevel)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			// An explicitly set path that does not exist surfaces as an
			// os-level not-exist error, not ConfigFileNotFoundError.
			if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound && !os.IsNotExist(err) {
				return nil, errors.Wrapf(err, "reading config file %s", path)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(err, "unmarshaling configuration")
	}
	return cfg, nil
}

// Validate checks param bounds, returning the first violation found, in
// the style of testnetkitchen-director/config's ValidateBasic.
func (c *Config) Validate() error {
	if c.Host == "" {
		return errors.New("host must not be empty")
	}
	if c.Threads < 1 || c.Threads > 32 {
		return errors.Errorf("threads must be between 1 and 32, got %d", c.Threads)
	}
	if _, err := netparams.Select(c.Testnet, c.NetSuffix); err != nil {
		return errors.Wrap(err, "invalid network selection")
	}
	if _, err := logging.ParseLevel(strings.ToLower(c.LogLevel)); err != nil {
		return errors.WithStack(err)
	}
	return nil
}

// LogLevelOrDefault resolves LogLevel into a logging.Level, falling back to
// LevelInfo if LogLevel is empty or unrecognized — Validate should already
// have rejected the latter case before this is called.
func (c *Config) LogLevelOrDefault() logging.Level {
	lvl, err := logging.ParseLevel(strings.ToLower(c.LogLevel))
	if err != nil {
		return logging.LevelInfo
	}
	return lvl
}

// NetParams resolves the network this configuration selects.
func (c *Config) NetParams() (netparams.Params, error) {
	return netparams.Select(c.Testnet, c.NetSuffix)
}

// KnownPeerList splits the comma-separated known_peers option, trimming
// whitespace and dropping empty entries, and prepends Seeder if set.
func (c *Config) KnownPeerList() []string {
	var out []string
	if c.Seeder != "" {
		out = append(out, strings.TrimSpace(c.Seeder))
	}
	for _, p := range strings.Split(c.KnownPeers, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// StoreTunables resolves the store timing constants this configuration
// selects: DefaultDev under DevMode, Default otherwise.
func (c *Config) StoreTunables() store.Tunables {
	if c.DevMode {
		return store.DefaultDev()
	}
	return store.Default()
}
