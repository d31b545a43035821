package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/coffersTech/topicview/internal/engine"
	"github.com/coffersTech/topicview/internal/model"
	"github.com/coffersTech/topicview/internal/registry"
	"github.com/coffersTech/topicview/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the message view over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		topic, _ := cmd.Flags().GetString("topic")
		partition, _ := cmd.Flags().GetString("partition")
		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		fetcher, closeFetcher, err := buildFetcher(cfg, logger)
		if err != nil {
			return err
		}
		defer closeFetcher()
		if fetcher == nil {
			logger.Warn("no message source configured, only pushed batches are shown")
		}

		exporter, err := buildExporter(ctx, cfg, logger)
		if err != nil {
			return err
		}
		loc, err := cfg.Location()
		if err != nil {
			return err
		}
		timeout, err := cfg.Timeout()
		if err != nil {
			return err
		}
		codec, err := cfg.Codec()
		if err != nil {
			return err
		}

		topics := registry.NewStore()
		topics.StartCleanupLoop(ctx, time.Minute, registry.DefaultTTL)

		ctrl := engine.NewController(model.BrowseContext{Topic: topic, Partition: partition},
			engine.WithLogger(logger), engine.WithLocation(loc))
		srv, err := server.NewViewServer(ctrl, server.Options{
			Fetcher:      fetcher,
			Exporter:     exporter,
			Topics:       topics,
			Codec:        codec,
			Logger:       logger,
			WebDir:       cfg.WebDir,
			FetchLimit:   cfg.FetchLimit,
			FetchTimeout: timeout,
		})
		if err != nil {
			return err
		}

		errCh := make(chan error, 1)
		go func() {
			errCh <- srv.Start(cfg.HTTPAddr)
		}()

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case err := <-errCh:
			return err
		case sig := <-quit:
			logger.Info("shutting down", "signal", sig.String())
		}

		shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
		defer stop()
		return srv.Shutdown(shutdownCtx)
	},
}

func init() {
	serveCmd.Flags().String("topic", "", "initial topic (empty browses every topic)")
	serveCmd.Flags().String("partition", "", "initial partition")
}
