package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	router "github.com/dkeye/Doubts/internal/adapters/http"
	"github.com/dkeye/Doubts/internal/app"
	"github.com/dkeye/Doubts/internal/app/orch"
	"github.com/dkeye/Doubts/internal/config"
	"github.com/dkeye/Doubts/internal/storage"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:          "doubts",
	Short:        "Anonymous live Q&A rooms over WebSocket",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd.Context())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is config/config.$CONFIG_ENV.yaml)")
	rootCmd.PersistentFlags().Int("port", 0, "HTTP listen port")
	rootCmd.PersistentFlags().String("store", "", "persistence backend: sqlite or memory")
	viper.BindPFlag("port", rootCmd.PersistentFlags().Lookup("port"))
	viper.BindPFlag("store", rootCmd.PersistentFlags().Lookup("store"))
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load(viper.GetViper(), cfgFile)
	if err != nil {
		log.Error().Err(err).Msg("failed to load config")
		return err
	}
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}
	if cfg.Mode == "release" {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}

	store, err := storage.Open(cfg.Store, cfg.DBPath)
	if err != nil {
		log.Error().Err(err).Msg("failed to open store")
		return err
	}
	defer store.Close()

	o := orch.New(store, app.PolicyByName(cfg.SlowPolicy))

	r := router.SetupRouter(ctx, cfg, o)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("Doubts server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		log.Error().Err(err).Msg("server error")
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited gracefully")
	return nil
}
