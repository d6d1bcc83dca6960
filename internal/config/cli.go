package config

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// BindFlags registers every config-file option as an equivalent CLI
// flag of the same name with a "--" prefix, per spec.md §6, and binds
// each to v so that a flag the operator actually set on the command
// line overrides the value loaded from file or environment. gombadi-
// dnsseeder's main.go used the stdlib flag package directly onto a
// package-level struct; this repo carries more options and multiple
// entry points (serve, plus future subcommands), so flags are bound
// through viper instead and unmarshaled into a Config the same way.
func BindFlags(cmd *cobra.Command, v *viper.Viper) error {
	flags := cmd.Flags()

	def := Default()
	flags.String("host", def.Host, "zone name this seeder is authoritative for")
	flags.String("nameserver", def.Nameserver, "NS record value")
	flags.String("listen", def.Listen, "UDP bind address for the DNS responder")
	flags.String("grpc_listen", def.GRPCListen, "TCP bind address for the inspection API")
	flags.String("app_dir", def.AppDir, "directory holding persisted peer state")
	flags.String("seeder", "", "one bootstrap peer, merged into known_peers")
	flags.String("known_peers", "", "comma-separated list of operator-trusted peers")
	flags.Int("threads", def.Threads, "crawler worker count (1-32)")
	flags.Bool("testnet", def.Testnet, "select a testnet network")
	flags.Uint16("net_suffix", def.NetSuffix, "testnet variant suffix (0=mainnet, 11=testnet-11)")
	flags.Uint32("min_proto_ver", def.MinProtoVer, "minimum protocol version accepted by the probe")
	flags.String("min_ua_ver", "", "optional minimum user-agent version accepted by the probe")
	flags.String("log_level", def.LogLevel, "trace/debug/info/warn/error")
	flags.String("profile", "", "if set, bind an HTTP pprof/metrics endpoint on this address")
	flags.String("proxy", "", "optional SOCKS proxy address for outbound P2P dials")
	flags.String("proxy_user", "", "SOCKS proxy username")
	flags.String("proxy_pass", "", "SOCKS proxy password")
	flags.Bool("dev_mode", false, "scale cooldowns and timeouts down ~10x for local development")

	return v.BindPFlags(flags)
}
