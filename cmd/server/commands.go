package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"technews/internal/middleware"
	"technews/internal/router"
	"technews/internal/services"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var cfgFile string

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "technews",
		Short: "Tech news ingestion and summarization pipeline",
		Long: `technews polls RSS sources, summarizes and tags new articles with a
text generation service, and serves the results over a JSON API.

Examples:
  # serve the API, optionally running the pipeline on a schedule
  technews serve --config config.yaml

  # run a single pipeline action
  technews run full
  technews run summarize`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context())
		},
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML)")

	root.AddCommand(newServeCmd(), newRunCmd(), newStatusCmd(), newSeedCmd())
	return root
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context())
		},
	}
}

func serve(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(cfgFile)
	if err != nil {
		return err
	}
	defer a.Close()

	if a.cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(), gzip.Gzip(gzip.DefaultCompression))
	router.RegisterRoutes(r, router.Deps{
		Server:     a.cfg.Server,
		Store:      a.store,
		Automation: a.automation,
		News:       a.newsDeps(),
		Inspector:  a.inspector,
		Catalog:    a.catalog,
		Cache:      a.cache,
	})

	a.automation.StartSchedule(ctx, a.cfg.Pipeline.Schedule)

	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(a.cfg.Server.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("server starting")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "run <action>",
		Short:     "Run one pipeline action (fetch, summarize, tag, insights, full)",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"fetch", "summarize", "tag", "insights", services.ActionFull},
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cfgFile)
			if err != nil {
				return err
			}
			defer a.Close()

			run, err := a.automation.Dispatch(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if err := printJSON(run); err != nil {
				return err
			}
			if !run.Success {
				return fmt.Errorf("action %s failed: %s", args[0], run.Message)
			}
			return nil
		},
	}
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print today's pipeline activity",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cfgFile)
			if err != nil {
				return err
			}
			defer a.Close()

			report, err := a.automation.Status(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(report)
		},
	}
}

func newSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load the default categories, sources and tags",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cfgFile)
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.catalog.InitializeSources(a.store)
			if err != nil {
				return err
			}
			tags, err := a.catalog.SeedTags(a.store)
			if err != nil {
				return err
			}
			return printJSON(map[string]any{"sources": res, "tags": tags})
		},
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
