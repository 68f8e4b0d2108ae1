// Package health serves the liveness endpoint with basic system stats.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"runtime"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/kingsrock/kingsbot/internal/version"
)

type status struct {
	Status     string  `json:"status"`
	App        string  `json:"app"`
	Version    string  `json:"version"`
	Uptime     string  `json:"uptime"`
	CPUPercent float64 `json:"cpu_percent"`
	MemPercent float64 `json:"mem_percent"`
	Goroutines int     `json:"goroutines"`
}

// Serve runs the health listener until the context ends.
func Serve(ctx context.Context, addr string, log zerolog.Logger) {
	logger := log.With().Str("component", "health").Logger()
	started := time.Now()

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		st := status{
			Status:     "ok",
			App:        version.AppName,
			Version:    version.AppVersion,
			Uptime:     time.Since(started).Round(time.Second).String(),
			Goroutines: runtime.NumGoroutine(),
		}
		if percentages, err := cpu.Percent(0, false); err == nil && len(percentages) > 0 {
			st.CPUPercent = percentages[0]
		}
		if vm, err := mem.VirtualMemory(); err == nil {
			st.MemPercent = vm.UsedPercent
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(st); err != nil {
			logger.Warn().Err(err).Msg("failed to write health response")
		}
	})

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info().Str("addr", addr).Msg("health endpoint listening")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("health listener failed")
	}
}
