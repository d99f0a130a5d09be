// Package corral is the root cobra command tree: config/daemon bootstrap,
// env/flag binding, and wiring of every operation-group subpackage,
// shaped exactly like the teacher's cmd/root.go.
package corral

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/projecteru2/core/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/corraldev/corral/cmd/corral/cmdcore"
	cmdinstance "github.com/corraldev/corral/cmd/instance"
	cmdmount "github.com/corraldev/corral/cmd/mount"
	cmdsettings "github.com/corraldev/corral/cmd/settings"
	"github.com/corraldev/corral/config"
	"github.com/corraldev/corral/daemon"
)

var (
	cfgFile string
	d       *daemon.Daemon
)

var rootCmd = func() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "corral",
		Short: "corral - local VM orchestrator control-plane daemon",
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return initDaemon(commandContext(cmd))
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path")
	cmd.PersistentFlags().String("root-dir", "", "data directory (authoritative state)")
	cmd.PersistentFlags().String("cache-dir", "", "cache directory (downloaded images, legacy state)")
	cmd.PersistentFlags().String("backend", "", "hypervisor backend name")

	_ = viper.BindPFlag("root_dir", cmd.PersistentFlags().Lookup("root-dir"))
	_ = viper.BindPFlag("cache_dir", cmd.PersistentFlags().Lookup("cache-dir"))
	_ = viper.BindPFlag("backend", cmd.PersistentFlags().Lookup("backend"))

	viper.SetEnvPrefix("CORRAL")
	viper.AutomaticEnv()
	// CORRAL_ROOT is named explicitly rather than left to AutomaticEnv's
	// prefix+key convention, which would otherwise expect CORRAL_ROOT_DIR.
	_ = viper.BindEnv("root_dir", "CORRAL_ROOT")

	base := cmdcore.BaseHandler{DaemonProvider: func() *daemon.Daemon { return d }}

	for _, c := range cmdinstance.Commands(cmdinstance.Handler{BaseHandler: base}) {
		cmd.AddCommand(c)
	}
	for _, c := range cmdmount.Commands(cmdmount.Handler{BaseHandler: base}) {
		cmd.AddCommand(c)
	}
	for _, c := range cmdsettings.Commands(cmdsettings.Handler{BaseHandler: base}) {
		cmd.AddCommand(c)
	}

	return cmd
}()

// initDaemon loads configuration (file plus CORRAL_-prefixed environment
// and flag overrides, per SPEC_FULL §2's "CORRAL_ROOT" mention), builds the
// daemon, and starts it — equivalent to the teacher's initConfig plus the
// collaborator construction cmd/core/helpers.go's InitBackends performs per
// invocation, except this daemon persists across the whole process instead
// of being rebuilt per command.
func initDaemon(ctx context.Context) error {
	conf, err := config.LoadConfig(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// config.Config's fields are JSON-tagged for the on-disk document, not
	// mapstructure-tagged for viper.Unmarshal, so overrides are applied
	// field-by-field rather than unmarshalling the whole struct as the
	// teacher's simpler config shape allows it to.
	if v := viper.GetString("root_dir"); v != "" {
		conf.DataDir = v
	}
	if v := viper.GetString("cache_dir"); v != "" {
		conf.CacheDir = v
	}
	if v := viper.GetString("backend"); v != "" {
		conf.Backend = v
	}
	if conf.PoolSize <= 0 {
		conf.PoolSize = runtime.NumCPU()
	}

	if err := log.SetupLog(ctx, &conf.Log, ""); err != nil {
		return fmt.Errorf("setup log: %w", err)
	}

	built, err := daemon.New(conf)
	if err != nil {
		return fmt.Errorf("build daemon: %w", err)
	}
	if err := built.Start(ctx); err != nil {
		return fmt.Errorf("start daemon: %w", err)
	}
	d = built
	return nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if cmd != nil && cmd.Context() != nil {
		return cmd.Context()
	}
	return context.Background()
}

// newCommandContext returns a context cancelled on SIGINT/SIGTERM, so a
// user's Ctrl-C unwinds deferred cleanup (terminal-mode restore, daemon
// Close) instead of killing the process mid-write.
func newCommandContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// Execute is the main entry point called from cmd/corral/main.
func Execute() error {
	ctx, cancel := newCommandContext()
	defer cancel()
	defer func() {
		if d != nil {
			d.Close()
		}
	}()
	return rootCmd.ExecuteContext(ctx)
}
