package cmd

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/skillsync/skillsync/internal/cache"
	"github.com/skillsync/skillsync/internal/logger"
	"github.com/skillsync/skillsync/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the match API over HTTP",
	Run: func(_ *cobra.Command, _ []string) {
		serve()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "", "listen address. Default is server.addr from the config")
	viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))
}

func serve() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}
	defer logger.Sync()

	cfg, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting skillsync", zap.String("version", resolveVersion()))

	c, err := newComponents(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("initializing", zap.Error(err))
	}
	defer c.Close()

	sweeper := cache.NewSweeper(c.cache, cfg.Cache.SweepSchedule, logger.Named("sweeper"))
	if err := sweeper.Start(); err != nil {
		logger.Fatal("starting cache sweeper", zap.Error(err))
	}
	defer sweeper.Stop()

	srv := server.New(server.Config{
		Addr:            cfg.Server.Addr,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		MaxBodyBytes:    cfg.Server.MaxBodyBytes,
	}, c.pipeline, c.certs, c.lexicon.Name, logger.Named("http"))

	if err := srv.Run(ctx); err != nil {
		logger.Error("server stopped with error", zap.Error(err))
	}
}
