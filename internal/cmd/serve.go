package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/shampis/trialbot/internal/admin"
	"github.com/shampis/trialbot/internal/claim"
	"github.com/shampis/trialbot/internal/discord"
	"github.com/shampis/trialbot/internal/keepalive"
	"github.com/shampis/trialbot/internal/metrics"
	"github.com/shampis/trialbot/internal/style"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	GroupID: GroupBot,
	Short:   "Connect to Discord and start handing out trial keys",
	Long: `Connect to Discord and run the bot until interrupted.

The bot token is read from TRIALBOT_TOKEN or discord.token in the config file.
Unless disabled, a small HTTP server answers on keepalive.addr so uptime
monitors can ping the bot; it also serves Prometheus metrics at /metrics.

Examples:
  TRIALBOT_TOKEN=... trialbot serve
  trialbot serve --config /etc/trialbot/trialbot.toml --no-keepalive`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

var serveNoKeepAlive bool // --no-keepalive: skip the HTTP responder

func init() {
	serveCmd.Flags().BoolVar(&serveNoKeepAlive, "no-keepalive", false, "Do not start the keep-alive HTTP server")

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := newLogger(cfg.Log)
	pool, l := openStores(cfg, logger)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.New(reg, pool.Count, l.Len)

	bot, err := discord.New(cfg.Discord, cfg.Prompt, logger)
	if err != nil {
		return err
	}

	workflow := claim.New(pool, l, bot,
		claim.WithLogger(logger),
		claim.WithDeliveryTimeout(cfg.Claim.DeliveryTimeout),
		claim.WithObserver(collector),
	)
	svc := admin.NewService(pool, l, bot)
	router := admin.NewRouter(svc, cfg.Discord.CommandPrefix, cfg.Discord.TrialChannel, collector)
	bot.Attach(workflow, router)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.KeepAlive.Enabled && !serveNoKeepAlive {
		go keepalive.New(cfg.KeepAlive.Addr, reg, logger).Run(ctx)
	}

	logger.Info("starting",
		"keys_file", pool.Path(),
		"database_file", l.Path(),
		"keys_available", pool.Count(),
		"assignments", l.Len(),
	)
	fmt.Fprintf(cmd.ErrOrStderr(), "%s Bot starting with %s key(s) available\n", style.ArrowPrefix, style.Count(pool.Count()))

	return bot.Run(ctx)
}
