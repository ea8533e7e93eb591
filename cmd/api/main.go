package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/civicconnect/civicconnect-ai/internal/config"
	"github.com/civicconnect/civicconnect-ai/internal/handler"
	"github.com/civicconnect/civicconnect-ai/internal/logging"
	"github.com/civicconnect/civicconnect-ai/internal/service/ai"
	"github.com/civicconnect/civicconnect-ai/internal/service/chat"
	"github.com/civicconnect/civicconnect-ai/internal/service/imaging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		log.Error().Err(err).Msg("civicconnect exited")
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var (
		envFile  string
		logLevel string
	)

	cmd := &cobra.Command{
		Use:          "civicconnect",
		Short:        "HTTP gateway relaying chat messages and images to a generative model",
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), envFile, logLevel)
		},
	}

	cmd.Flags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	cmd.Flags().StringVar(&logLevel, "log-level", "", "log level override (trace, debug, info, warn, error)")
	return cmd
}

func run(ctx context.Context, envFile, logLevel string) error {
	if err := godotenv.Load(envFile); err != nil {
		log.Warn().Err(err).Str("file", envFile).Msg("failed to load .env file, continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if logLevel == "" {
		logLevel = cfg.Server.LogLevel
	}
	logger := logging.Init(logLevel, cfg.Server.Debug)

	instruction, err := ai.LoadSystemInstruction(cfg.AI.SystemPromptPath)
	if err != nil {
		return err
	}

	provider, err := ai.NewProvider(ctx, cfg.AI)
	if err != nil {
		return fmt.Errorf("failed to initialize AI provider: %w", err)
	}
	if closer, ok := provider.(io.Closer); ok {
		defer closer.Close()
	}
	logger.Info().Str("provider", cfg.AI.Provider).Msg("AI provider initialized")

	sessions := chat.NewService(provider, instruction)
	decoder := imaging.NewDecoder(cfg.Server.MaxImageBytes)
	router := handler.NewRouter(cfg.Server, logger, sessions, decoder)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	logger.Info().Str("addr", srv.Addr).Bool("debug", cfg.Server.Debug).Msg("civicconnect listening")
	return runServer(ctx, srv)
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
