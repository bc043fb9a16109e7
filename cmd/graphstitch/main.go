package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/hanpama/graphstitch/internal/config"
	"github.com/hanpama/graphstitch/internal/directives"
	"github.com/hanpama/graphstitch/internal/eventbus"
	"github.com/hanpama/graphstitch/internal/logging"
	"github.com/hanpama/graphstitch/internal/otel"
	"github.com/hanpama/graphstitch/internal/server"
	"github.com/hanpama/graphstitch/internal/stitch"
	"github.com/hanpama/graphstitch/internal/subschema"
)

var version = "v0.0.0-dev"

const shutdownTimeout = 5 * time.Second

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "graphstitch",
		Short:        "GraphQL schema stitching gateway",
		SilenceUsage: true,
	}
	root.AddCommand(newVersionCmd(), newServeCmd(), newComposeCmd(), newValidateCmd(), newTypeDefsCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of graphstitch",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "graphstitch "+version)
		},
	}
}

func newServeCmd() *cobra.Command {
	var configPath, addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the gateway HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}
			return serve(cmd.Context(), cfg, filepath.Dir(configPath))
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "gateway.yaml", "gateway configuration file")
	cmd.Flags().StringVar(&addr, "addr", "", "listen address, overrides server.addr")
	return cmd
}

func serve(ctx context.Context, cfg *config.Config, baseDir string) error {
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	eventbus.Use(eventbus.New())
	defer logging.Register(logger)()

	shutdownTracing, err := otel.Setup(ctx, cfg.Tracing.Endpoint, cfg.Tracing.Service)
	if err != nil {
		return fmt.Errorf("otel setup: %w", err)
	}
	defer func() { _ = shutdownTracing(context.Background()) }()
	tracing := cfg.Tracing.Endpoint != ""

	g, err := gateway(ctx, cfg, baseDir, tracing)
	if err != nil {
		return err
	}

	timeout, _ := cfg.Server.TimeoutDuration()
	opts := []server.Option{
		server.WithTimeout(timeout),
		server.WithGraphiQL(cfg.Server.GraphiQLEnabled()),
		server.WithMaxBodyBytes(cfg.Server.MaxBodyBytes),
	}
	if cfg.Server.Pretty {
		opts = append(opts, server.WithPretty())
	}
	if len(cfg.Server.ForwardHeaders) > 0 {
		opts = append(opts, server.WithForwardHeaders(cfg.Server.ForwardHeaders...))
	}
	if len(cfg.Server.CORSOrigins) > 0 {
		opts = append(opts, server.WithCORS(cfg.Server.CORSOrigins...))
	}

	var handler http.Handler = server.New(g, opts...)
	if tracing {
		handler = otelhttp.NewHandler(handler, "graphql")
	}
	mux := http.NewServeMux()
	mux.Handle("/graphql", handler)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	srv := &http.Server{Addr: cfg.Server.Addr, Handler: mux}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGTERM, os.Interrupt)
	defer stop()

	errc := make(chan error, 1)
	go func() {
		logger.WithFields(log.Fields{
			"addr":       cfg.Server.Addr,
			"subschemas": len(g.Subschemas()),
		}).Info("gateway listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(sctx)
}

// gateway builds the subschemas of cfg and stitches them.
func gateway(ctx context.Context, cfg *config.Config, baseDir string, tracing bool) (*stitch.Gateway, error) {
	configs, err := cfg.Build(ctx, config.BuildOptions{BaseDir: baseDir, Tracing: tracing})
	if err != nil {
		return nil, err
	}
	return stitch.New(configs, stitch.WithDirectives(cfg.DirectiveOptions()))
}

func newComposeCmd() *cobra.Command {
	var configPath, out string
	cmd := &cobra.Command{
		Use:   "compose",
		Short: "Print the stitched gateway SDL",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			g, err := gateway(cmd.Context(), cfg, filepath.Dir(configPath), false)
			if err != nil {
				return err
			}
			if out == "" {
				_, err = io.WriteString(cmd.OutOrStdout(), g.SDL())
				return err
			}
			return os.WriteFile(out, []byte(g.SDL()), 0o644)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "gateway.yaml", "gateway configuration file")
	cmd.Flags().StringVarP(&out, "out", "o", "", "write the SDL to a file instead of stdout")
	return cmd
}

func newValidateCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check the stitching directives of every subschema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			configs, err := cfg.Build(cmd.Context(), config.BuildOptions{BaseDir: filepath.Dir(configPath)})
			if err != nil {
				return err
			}
			return validate(cmd.OutOrStdout(), configs, cfg.DirectiveOptions())
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "gateway.yaml", "gateway configuration file")
	return cmd
}

// validate reports the violations of every subschema and fails if any
// subschema has one.
func validate(w io.Writer, configs []*subschema.Config, opts directives.Options) error {
	failed := 0
	for _, cfg := range configs {
		_, err := directives.Transform(cfg, opts)
		if err == nil {
			fmt.Fprintf(w, "%s: ok\n", cfg.Name)
			continue
		}
		failed++
		var verr directives.ValidationError
		if !errors.As(err, &verr) {
			fmt.Fprintf(w, "%s: %v\n", cfg.Name, err)
			continue
		}
		for _, v := range verr {
			if v.File != "" {
				fmt.Fprintf(w, "%s: %s:%d:%d: %s\n", cfg.Name, v.File, v.Line, v.Column, v.Message)
				continue
			}
			fmt.Fprintf(w, "%s: %s\n", cfg.Name, v.Message)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d subschemas failed validation", failed, len(configs))
	}
	return nil
}

func newTypeDefsCmd() *cobra.Command {
	var opts directives.Options
	cmd := &cobra.Command{
		Use:   "typedefs",
		Short: "Print the stitching directive definitions",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), opts.TypeDefs())
		},
	}
	cmd.Flags().StringVar(&opts.KeyDirectiveName, "key", "", "name of the key directive")
	cmd.Flags().StringVar(&opts.ComputedDirectiveName, "computed", "", "name of the computed directive")
	cmd.Flags().StringVar(&opts.MergeDirectiveName, "merge", "", "name of the merge directive")
	cmd.Flags().StringVar(&opts.CanonicalDirectiveName, "canonical", "", "name of the canonical directive")
	return cmd
}
