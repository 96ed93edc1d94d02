package health

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"intraday_trader/internal/modules/config"
	"intraday_trader/internal/modules/health/service"
	"intraday_trader/pkg/logger"

	"github.com/bytedance/sonic"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
)

type Config struct {
	Addr string // e.g. ":8080"
}

func NewConfig(cfg *config.Config) Config {
	return Config{Addr: cfg.Service.HealthAddr}
}

type report struct {
	Ready        bool   `json:"ready"`
	WSConnected  bool   `json:"wsConnected"`
	EngineState  string `json:"engineState"`
	LastOutcome  string `json:"lastOutcome,omitempty"`
	LastTickUnix int64  `json:"lastTickUnix"`
	Restarts     int64  `json:"restarts"`
	UptimeSec    int64  `json:"uptimeSec"`
}

func NewMux(state *service.State) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/livez", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if !state.Ready() {
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		resp := report{
			Ready:       state.Ready(),
			WSConnected: state.WSConnected(),
			EngineState: state.EngineState(),
			LastOutcome: state.LastOutcome(),
			Restarts:    state.Restarts(),
			UptimeSec:   int64(state.Uptime().Seconds()),
		}
		if t := state.LastTick(); !t.IsZero() {
			resp.LastTickUnix = t.Unix()
		}
		body, err := sonic.Marshal(resp)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(body)
	})

	mux.Handle("/metrics", promhttp.Handler())

	return mux
}

func RunHTTP(lc fx.Lifecycle, cfg Config, mux *http.ServeMux) {
	if cfg.Addr == "" {
		return
	}
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := net.Listen("tcp", cfg.Addr)
			if err != nil {
				return err
			}
			logger.Info("[HEALTH] listening on %s", ln.Addr())
			go func() {
				if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("[HEALTH] serve: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}

func Module() fx.Option {
	return fx.Module("health",
		fx.Provide(
			service.NewState,
			NewConfig,
			NewMux,
		),
		fx.Invoke(RunHTTP),
	)
}
