package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mentesana/offgate"
	"github.com/mentesana/offgate/internal/config"
	statsprom "github.com/mentesana/offgate/internal/stats/prometheus"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the gateway in front of the app origin",
	Long: `Run the offline cache gateway as an HTTP server. Every incoming request
is classified and served through the configured caching strategy against
the app origin. The control channel is exposed at POST /offgate/message
and Prometheus metrics at /metrics.`,
	RunE: runServe,
}

var skipWaiting bool

func init() {
	serveCmd.Flags().BoolVar(&skipWaiting, "skip-waiting", false, "activate immediately instead of leaving the install pending")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	log, err := newLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ctx := cmd.Context()

	extra := []offgate.Option{
		offgate.WithStats(statsprom.New(nil)),
	}
	if skipWaiting {
		extra = append(extra, offgate.WithImmediateTakeover())
	}

	gw, err := newGateway(ctx, log, extra...)
	if err != nil {
		return err
	}
	defer gw.Close()

	if err := gw.Install(ctx); err != nil {
		return fmt.Errorf("install: %w", err)
	}
	if !skipWaiting {
		if err := gw.Activate(ctx); err != nil {
			return fmt.Errorf("activate: %w", err)
		}
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/offgate/message", handleMessage(gw, log))
	mux.HandleFunc("/", handleFetch(gw, cfg.Server.Origin, log))

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: mux,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("gateway listening",
			zap.Int("port", cfg.Server.Port),
			zap.String("origin", cfg.Server.Origin),
		)
		errCh <- srv.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case sig := <-stop:
		log.Info("shutting down", zap.String("signal", sig.String()))
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
	}
	return nil
}

// handleFetch routes every incoming request through the gateway against
// the configured origin.
func handleFetch(gw *offgate.Gateway, origin string, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out, err := http.NewRequestWithContext(r.Context(), r.Method, origin+r.URL.RequestURI(), r.Body)
		if err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		out.Header = r.Header.Clone()

		resp, err := gw.HandleFetch(r.Context(), out)
		if err != nil {
			http.Error(w, "gateway unavailable", http.StatusServiceUnavailable)
			return
		}
		if err := resp.Write(w); err != nil {
			log.Debug("writing response failed", zap.Error(err))
		}
	}
}

// handleMessage exposes the control channel over HTTP: one Message in,
// one optional Reply out.
func handleMessage(gw *offgate.Gateway, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
		if err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}

		var msg offgate.Message
		if err := json.Unmarshal(body, &msg); err != nil {
			http.Error(w, "invalid message", http.StatusBadRequest)
			return
		}

		reply, err := gw.HandleMessage(r.Context(), msg)
		if err != nil {
			log.Warn("control message failed", zap.String("type", msg.Type), zap.Error(err))
			http.Error(w, "command failed", http.StatusInternalServerError)
			return
		}
		if reply == nil {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(reply); err != nil {
			log.Debug("writing reply failed", zap.Error(err))
		}
	}
}
