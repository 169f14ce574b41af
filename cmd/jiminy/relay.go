package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/go-go-golems/jiminy/pkg/host"
)

func newRelayCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "relay",
		Short: "Serve a geometry relay that fans widget resize intents out to observers",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRelay(cmd.Context(), addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8765", "HTTP listen address")
	return cmd
}

func runRelay(ctx context.Context, addr string) error {
	relay := host.NewRelay(log.Logger)
	server := &http.Server{
		Addr:    addr,
		Handler: relay.Handler(),
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	eg, ctx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		log.Info().Str("addr", addr).Msg("starting geometry relay")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	eg.Go(func() error {
		<-ctx.Done()
		log.Info().Msg("shutting down relay")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}
