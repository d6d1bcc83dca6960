package main

import (
	"context"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kaseeder/kaseeder/internal/clock"
	"github.com/kaseeder/kaseeder/internal/config"
	"github.com/kaseeder/kaseeder/internal/crawler"
	"github.com/kaseeder/kaseeder/internal/dnsserver"
	"github.com/kaseeder/kaseeder/internal/inspect"
	"github.com/kaseeder/kaseeder/internal/logging"
	"github.com/kaseeder/kaseeder/internal/peeraddr"
	"github.com/kaseeder/kaseeder/internal/probe"
	"github.com/kaseeder/kaseeder/internal/profiling"
	"github.com/kaseeder/kaseeder/internal/seeddiscovery"
	"github.com/kaseeder/kaseeder/internal/store"
)

// exit codes, per spec.md §6.
const (
	exitOK           = 0
	exitConfigError  = 1
	exitRuntimeError = 2
)

// shutdownGrace bounds how long serve waits for the crawler's workers to
// drain and flush on shutdown, the "tens of seconds" cap spec.md §5's
// graceful-shutdown scenario names. In-flight probes bound themselves to
// well under this by their own connect/handshake/response timeouts.
const shutdownGrace = 30 * time.Second

func main() {
	os.Exit(run())
}

func run() int {
	var configFile string

	// logger is used only until a Config (and therefore a LogLevel) has
	// been loaded, so it always prints regardless of level.
	logger := logging.New(os.Stderr, logging.LevelTrace)

	rootCmd := &cobra.Command{
		Use:   "kaseeder",
		Short: "DNS seeder for a Kaspa-like peer-to-peer network",
	}
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "path to a TOML configuration file")

	v := viper.New()
	v.SetEnvPrefix("kaseeder")
	v.AutomaticEnv()
	if err := config.BindFlags(rootCmd, v); err != nil {
		logger.Errorf("error - binding flags: %v\n", err)
		return exitConfigError
	}

	exitCode := exitOK
	rootCmd.RunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := config.FromViper(v, configFile)
		if err != nil {
			logger.Errorf("error - loading configuration: %v\n", err)
			exitCode = exitConfigError
			return nil
		}
		if err := cfg.Validate(); err != nil {
			logger.Errorf("error - invalid configuration: %v\n", err)
			exitCode = exitConfigError
			return nil
		}
		exitCode = serve(cfg, logging.New(os.Stderr, cfg.LogLevelOrDefault()))
		return nil
	}

	if err := rootCmd.Execute(); err != nil {
		logger.Errorf("error - %v\n", err)
		return exitConfigError
	}
	return exitCode
}

// serve wires the Store, Probe, Crawler, Seed Discovery, DNS Responder
// and Inspection API together and runs until a termination signal
// arrives, in the style of gombadi-dnsseeder/main.go's signal/ticker
// select loop — generalized here across several long-running
// goroutines instead of one flat select.
func serve(cfg *config.Config, logger *logging.Logger) int {
	netp, err := cfg.NetParams()
	if err != nil {
		logger.Errorf("error - %v\n", err)
		return exitConfigError
	}
	logger.Infof("starting kaseeder for zone %s on network %s\n", cfg.Host, netp.Name)

	if err := os.MkdirAll(cfg.AppDir, 0o755); err != nil {
		logger.Errorf("error - creating app_dir %s: %v\n", cfg.AppDir, err)
		return exitConfigError
	}
	peersFile := filepath.Join(cfg.AppDir, "peers.json")

	clk := clock.RealClock{}
	mgr := store.New(netp.DefaultPort, cfg.StoreTunables(), clk, peersFile, logger)
	if err := mgr.Load(); err != nil {
		logger.Errorf("error - loading persisted peers: %v\n", err)
	}

	dial, err := probe.DialerFor(probe.ProxyOptions{
		Addr:     cfg.Proxy,
		Username: cfg.ProxyUser,
		Password: cfg.ProxyPass,
	})
	if err != nil {
		logger.Errorf("error - %v\n", err)
		return exitConfigError
	}

	probeCfg := probe.DefaultConfig()
	probeCfg.NetworkMagic = netp.Magic
	probeCfg.DefaultPort = netp.DefaultPort
	probeCfg.MinProtocolVersion = cfg.MinProtoVer
	probeCfg.MinUserAgentVersion = cfg.MinUAVer
	probeCfg.Dial = dial
	prober := probe.New(probeCfg)

	crawlerCfg := crawler.Default()
	crawlerCfg.Threads = cfg.Threads
	if cfg.DevMode {
		crawlerCfg.SeedInterval /= 10
	}

	seedRunner := seeddiscovery.New(netp.DNSSeeds, netp.DefaultPort, mgr, crawlerCfg.SeedTimeout, logger)

	knownPeers := parseKnownPeers(cfg.KnownPeerList(), netp.DefaultPort, logger)

	crawl := crawler.New(mgr, prober, seedRunner, clk, crawlerCfg, knownPeers, logger)

	dnsCfg := dnsserver.DefaultConfig(cfg.Host, cfg.Nameserver)
	dnsCfg.ListenAddr = cfg.Listen
	dnsSrv := dnsserver.New(dnsCfg, mgr, logger)

	inspectSrv := inspect.New(inspect.Config{
		ListenAddr:  cfg.GRPCListen,
		SampleSize:  16,
		DefaultPort: netp.DefaultPort,
	}, mgr, logger)

	var profileSrv *profiling.Server
	if cfg.Profile != "" {
		profileSrv = profiling.New(cfg.Profile, logger)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runtimeErr := make(chan error, 3)
	go func() {
		if err := dnsSrv.Start(); err != nil {
			runtimeErr <- err
		}
	}()
	go func() {
		if err := inspectSrv.Start(); err != nil {
			runtimeErr <- err
		}
	}()
	if profileSrv != nil {
		go func() {
			if err := profileSrv.Start(); err != nil {
				runtimeErr <- err
			}
		}()
	}
	crawlDone := make(chan struct{})
	go func() {
		defer close(crawlDone)
		crawl.Run(ctx)
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	exitCode := exitOK
	select {
	case s := <-sig:
		logger.Infof("received signal %v, shutting down\n", s)
	case err := <-runtimeErr:
		logger.Errorf("error - fatal runtime error: %v\n", err)
		exitCode = exitRuntimeError
	}

	cancel()
	if err := dnsSrv.Shutdown(); err != nil {
		logger.Errorf("error - shutting down dns server: %v\n", err)
	}
	if err := inspectSrv.Shutdown(); err != nil {
		logger.Errorf("error - shutting down inspection server: %v\n", err)
	}
	if profileSrv != nil {
		if err := profileSrv.Shutdown(); err != nil {
			logger.Errorf("error - shutting down profiling server: %v\n", err)
		}
	}

	// Wait for the crawler's own workers to drain and its final persist to
	// complete before this process exits; Crawler.Run already does the
	// flush, so there is nothing left for serve to persist itself.
	select {
	case <-crawlDone:
	case <-time.After(shutdownGrace):
		logger.Errorf("error - crawler did not finish shutting down within %s\n", shutdownGrace)
	}

	logger.Infof("kaseeder exiting\n")
	return exitCode
}

// parseKnownPeers resolves each operator-supplied "host:port" entry into
// a peeraddr.Address, logging and skipping anything that cannot be
// parsed rather than aborting startup over one bad entry.
func parseKnownPeers(entries []string, defaultPort uint16, logger *logging.Logger) []peeraddr.Address {
	out := make([]peeraddr.Address, 0, len(entries))
	for _, entry := range entries {
		host, portStr, err := net.SplitHostPort(entry)
		port := defaultPort
		if err != nil {
			host = entry
		} else if p, perr := strconv.ParseUint(portStr, 10, 16); perr == nil {
			port = uint16(p)
		}
		ip := net.ParseIP(host)
		if ip == nil {
			ips, lookupErr := net.LookupIP(host)
			if lookupErr != nil || len(ips) == 0 {
				logger.Warnf("known_peers: could not resolve %q: %v\n", entry, lookupErr)
				continue
			}
			ip = ips[0]
		}
		out = append(out, peeraddr.New(ip, port))
	}
	return out
}
