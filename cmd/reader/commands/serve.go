package commands

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"voicereader/agent/internal/api"
	"voicereader/agent/internal/clientws"
	"voicereader/agent/internal/health"
	"voicereader/agent/internal/logging"
	"voicereader/agent/internal/session"
	"voicereader/agent/internal/store"
)

const (
	shutdownTimeout = 5 * time.Second
	healthInterval  = 10 * time.Second
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the reader for a browser client",
	Long: `Run the reader for a browser client.

The client attaches at /v1/ws, runs the speech engines and streams recognition
results; the reader answers with engine commands and state snapshots.

Listeners:
  PORT          HTTP API and client websocket (default 8080)
  METRICS_PORT  /metrics, /healthz (default 8082, empty disables)
  GRPC_PORT     grpc.health.v1 (default 9090, empty disables)`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		log, err := logging.New(cfg.Server.LogLevel, false)
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()

		cat, err := loadCatalog(cfg)
		if err != nil {
			return err
		}

		st := store.New(cfg.Events.Max)
		reg := clientws.NewRegistry(cfg.Client.SendQueue)
		sessionID := uuid.New().String()
		remote := clientws.NewRemote(reg, sessionID)
		wss := clientws.NewServer(cfg.Client.TokenSecret, st, reg, nil, log)
		wss.Skew = cfg.TokenSkew()

		opts := sessionOptions(cfg)
		opts.ID = sessionID
		opts.Publish = wss.Publish
		sess, err := session.New(cat, remote, remote, st, opts, log)
		if err != nil {
			return err
		}
		wss.Session = sess

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		loopDone := make(chan struct{})
		go func() {
			defer close(loopDone)
			_ = sess.Run(ctx)
		}()

		checks := []health.Check{health.Catalog(cat), health.Session(sess, time.Second)}
		h := api.NewHandlers(cfg, cat, sess, log, checks...)
		srv := &http.Server{
			Addr:              ":" + cfg.Server.Port,
			Handler:           api.NewRouter(h, http.HandlerFunc(wss.HandleClientWS)),
			ReadHeaderTimeout: 5 * time.Second,
		}

		errc := make(chan error, 3)
		go func() {
			log.Info("server starting", zap.String("addr", srv.Addr), zap.String("session_id", sessionID))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errc <- err
			}
		}()

		var metricsSrv *http.Server
		if cfg.Server.MetricsPort != "" {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte("ok\n")) })
			metricsSrv = &http.Server{Addr: ":" + cfg.Server.MetricsPort, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
			go func() {
				log.Info("metrics listening", zap.String("addr", metricsSrv.Addr))
				if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errc <- err
				}
			}()
		}

		stopGRPC := func() {}
		if cfg.Server.GRPCPort != "" {
			lis, err := net.Listen("tcp", ":"+cfg.Server.GRPCPort)
			if err != nil {
				return err
			}
			gs, hs := health.NewGRPCServer()
			go health.Watch(ctx, hs, healthInterval, log, checks...)
			go func() {
				log.Info("grpc health listening", zap.String("addr", lis.Addr().String()))
				if err := gs.Serve(lis); err != nil {
					errc <- err
				}
			}()
			stopGRPC = gs.GracefulStop
		}

		var runErr error
		select {
		case <-ctx.Done():
			log.Info("shutdown signal received; stopping server")
		case runErr = <-errc:
			log.Error("server error", zap.Error(runErr))
			stop()
		}

		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(sctx)
		if metricsSrv != nil {
			_ = metricsSrv.Shutdown(sctx)
		}
		stopGRPC()
		<-loopDone
		return runErr
	},
}
