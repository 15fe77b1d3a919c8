package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	StatusOK     = "ok"
	StatusEmpty  = "empty"
	StatusFailed = "failed"
)

// Generation tracks a data generation run.
type Generation struct {
	Games        *prometheus.CounterVec
	Positions    prometheus.Counter
	Dropped      prometheus.Counter
	EngineStarts *prometheus.CounterVec
	DatasetBytes prometheus.Gauge
	GameSeconds  prometheus.Histogram
}

func NewGeneration(reg prometheus.Registerer) *Generation {
	var m = &Generation{
		Games: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "halfkp_games_total",
			Help: "Self-play games by result status.",
		}, []string{"status"}),
		Positions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "halfkp_positions_total",
			Help: "Records appended to the dataset.",
		}),
		Dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "halfkp_dropped_positions_total",
			Help: "Captured positions rejected by the encoder.",
		}),
		EngineStarts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "halfkp_engine_starts_total",
			Help: "Engine process launches by status.",
		}, []string{"status"}),
		DatasetBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "halfkp_dataset_bytes",
			Help: "Size of the dataset file.",
		}),
		GameSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "halfkp_game_seconds",
			Help:    "Wall time of one self-play game.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Games, m.Positions, m.Dropped, m.EngineStarts, m.DatasetBytes, m.GameSeconds)
	}
	return m
}

// Serve exposes /metrics until ctx is done.
func Serve(ctx context.Context, addr string, gatherer prometheus.Gatherer) error {
	var mux = http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	var server = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	var errc = make(chan error, 1)
	go func() {
		errc <- server.ListenAndServe()
	}()
	select {
	case <-ctx.Done():
		var shutdownCtx, cancel = context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
