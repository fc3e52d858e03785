// Command tibokplug manages Tibok editor plugins: validation, approval,
// registry search, and installation.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/sturdy-barnacle/tibok-plugins/internal/approval"
	"github.com/sturdy-barnacle/tibok-plugins/internal/hostconfig"
	"github.com/sturdy-barnacle/tibok-plugins/internal/log"
	"github.com/sturdy-barnacle/tibok-plugins/internal/registry"
	"github.com/sturdy-barnacle/tibok-plugins/internal/signature"
)

// Version information (set via ldflags during build).
var version = "dev"

var (
	configPath string

	cfg    *hostconfig.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:           "tibokplug",
	Short:         "Manage Tibok editor plugins",
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = hostconfig.Load(configPath)
		if err != nil {
			return err
		}
		logger = log.New(os.Stderr, log.ParseLevel(cfg.Host.LogLevel))
		return nil
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", defaultConfigPath(), "path to host config file")
}

func defaultConfigPath() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return dir + "/tibok/host.toml"
	}
	return "host.toml"
}

// newValidator wires the policy engine against the durable approval store.
func newValidator() (*approval.Validator, error) {
	store, err := approval.OpenGormStore(cfg.Paths.ApprovalsDB)
	if err != nil {
		return nil, err
	}
	verifier := signature.NewVerifier()
	return approval.NewValidator(store, verifier,
		approval.WithHostVersion(cfg.Host.Version),
		approval.WithLogger(logger),
	), nil
}

func newRegistryClient() *registry.Client {
	fetcher := registry.NewHTTPFetcher(cfg.FetchTimeout())
	return registry.NewClient(cfg.Registry.URL, fetcher,
		registry.WithClientLogger(logger))
}

func newInstaller() *registry.Installer {
	fetcher := registry.NewHTTPFetcher(cfg.FetchTimeout())
	return registry.NewInstaller(fetcher, signature.NewVerifier(), cfg.Paths.PluginsDir, logger)
}
