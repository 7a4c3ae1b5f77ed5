package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/haukened/lbdns/internal/dns/common/log"
	"github.com/haukened/lbdns/internal/dns/config"
)

const (
	// Version information
	version = "0.1.0-dev"
	appName = "lbdnsd"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// newRootCmd builds the command tree: the server itself and the query client.
func newRootCmd() *cobra.Command {
	var configFile string

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Load-distributing authoritative DNS server",
		Long: `Load-distributing authoritative DNS server.

Answers every query for one domain with the address of a backend
chosen from a fixed pool by round-robin, geographic proximity or
least reported load. The selection is refreshed after every reply.

Configuration is read from defaults, an optional YAML/JSON/TOML file,
DNS_* environment variables and finally the flags below.`,
		Example: `  lbdnsd --port 5053 --udp
  DNS_BALANCER_BACKENDS=10.0.0.1,10.0.0.2 lbdnsd --config /etc/lbdns.yaml`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		Version:      version,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, config.Options{File: configFile, Flags: flagOverrides(cmd)})
		},
	}

	cmd.Flags().StringVarP(&configFile, "config", "c", "", "config file (.yaml, .json or .toml); defaults to $"+config.ConfigEnv)
	cmd.Flags().IntP("port", "p", config.DEFAULT_APP_CONFIG.Server.Port, "port to listen on")
	cmd.Flags().Bool("udp", false, "serve over UDP")
	cmd.Flags().Bool("tcp", false, "serve over TCP")

	cmd.AddCommand(newQueryCmd())
	return cmd
}

// flagOverrides returns the flags set on the command line, keyed by
// configuration key. Passing only one of --udp and --tcp selects that
// transport alone.
func flagOverrides(cmd *cobra.Command) map[string]any {
	out := map[string]any{}
	flags := cmd.Flags()
	if flags.Changed("port") {
		port, _ := flags.GetInt("port")
		out["server.port"] = port
	}
	udpSet, tcpSet := flags.Changed("udp"), flags.Changed("tcp")
	if udpSet || tcpSet {
		udp, _ := flags.GetBool("udp")
		tcp, _ := flags.GetBool("tcp")
		out["server.udp"] = udp
		out["server.tcp"] = tcp
	}
	return out
}

// serve loads the configuration, builds the application and runs it until
// ctx is cancelled.
func serve(ctx context.Context, opts config.Options) error {
	cfg, err := config.Load(opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		return err
	}

	if err := log.Configure(cfg.Env, cfg.Log.Level); err != nil {
		fmt.Fprintf(os.Stderr, "Logging configuration error: %v\n", err)
		return err
	}
	defer func() { _ = log.Sync() }()

	log.Info(map[string]any{
		"version":   version,
		"env":       cfg.Env,
		"log_level": cfg.Log.Level,
		"port":      cfg.Server.Port,
		"udp":       cfg.Server.UDP,
		"tcp":       cfg.Server.TCP,
		"apex":      cfg.Zone.Apex,
		"backends":  cfg.Balancer.Backends,
		"policies":  cfg.Balancer.Policy,
	}, "Starting lbdns server")

	app, err := buildApplication(cfg, log.GetLogger())
	if err != nil {
		log.Error(map[string]any{"error": err}, "Failed to build application")
		return err
	}

	if err := app.Run(ctx); err != nil {
		log.Error(map[string]any{"error": err}, "Server failed")
		return err
	}

	log.Info(nil, "lbdns server stopped gracefully")
	return nil
}
