package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"time"

	"github.com/grafana/pyroscope-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/yanun0323/logs"
	"github.com/yanun0323/pkg/sys"

	"msgbus/internal/actor"
	"msgbus/internal/bus"
	"msgbus/internal/data"
	"msgbus/internal/execution"
	"msgbus/internal/obs"
	"msgbus/internal/ops"
	"msgbus/internal/strategy"
)

const tag = "MAIN"

func main() {
	os.Exit(runMain())
}

func runMain() int {
	configPath := flag.String("config", "", "Path to JSON or YAML config")
	duration := flag.Duration("duration", 0, "Run duration, overrides the config (0=use config)")
	configReload := flag.Duration("config-reload-debounce", 200*time.Millisecond, "Debounce for config reloads (0=disable watching)")
	metricsAddr := flag.String("metrics-addr", "", "Serve prometheus metrics on this address (empty=disable)")
	pyroscopeAddr := flag.String("pyroscope-addr", "", "Pyroscope server address (empty=disable)")
	flag.Parse()

	loaded, err := ops.Load(*configPath)
	if err != nil {
		logs.Errorf("[%s] config load failed, err: %+v", tag, err)
		return 1
	}
	if *duration > 0 {
		loaded.RunDuration = *duration
	}

	if *pyroscopeAddr != "" {
		profiler, err := startProfiler(*pyroscopeAddr)
		if err != nil {
			logs.Errorf("[%s] pyroscope start failed, err: %+v", tag, err)
			return 1
		}
		defer func() {
			if err := profiler.Stop(); err != nil {
				logs.Warnf("[%s] pyroscope stop, err: %+v", tag, err)
			}
		}()
	}

	if err := run(context.Background(), loaded, *configPath, *configReload, *metricsAddr); err != nil {
		logs.Errorf("[%s] run failed, err: %+v", tag, err)
		return 1
	}
	return 0
}

func run(ctx context.Context, loaded ops.Loaded, configPath string, reloadDebounce time.Duration, metricsAddr string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	metrics := obs.NewMetrics()
	b := bus.New(loaded.BusCapacity, bus.WithObserver(metrics))

	if metricsAddr != "" {
		srv, err := serveMetrics(metricsAddr, metrics)
		if err != nil {
			return err
		}
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Second)
			defer shutdownCancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	feed := data.NewEngine(b, loaded.Data)
	trend := strategy.NewTrendFollower(b, loaded.Strategy)
	exec := execution.NewEngine(b, loaded.Risk)

	if configPath != "" && reloadDebounce > 0 {
		err := ops.Watch(ctx, configPath, reloadDebounce, func(l ops.Loaded) {
			exec.UpdateRisk(l.Risk)
		})
		if err != nil {
			logs.Warnf("[%s] config watcher disabled, err: %+v", tag, err)
		}
	}

	logs.Infof("[%s] system starting up, bus capacity: %d", tag, b.Capacity())
	// consumers subscribe before the feed publishes its first bar
	tasks := actor.StartAll(ctx, exec, trend, feed)

	logs.Infof("[%s] all actors started, running for %s", tag, loaded.RunDuration)
	timer := time.NewTimer(loaded.RunDuration)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-sys.Shutdown():
		logs.Infof("[%s] shutdown signal received", tag)
	}

	logs.Infof("[%s] shutting down", tag)
	actor.AbortAll(tasks)
	waitCtx, waitCancel := context.WithTimeout(ctx, 5*time.Second)
	defer waitCancel()
	if pending := actor.WaitAll(waitCtx, tasks); len(pending) != 0 {
		logs.Warnf("[%s] tasks still running: %v", tag, pending)
	}
	b.Close()

	logSummary(b.Topics(), metrics.Snapshot(), trend, exec)
	logs.Infof("[%s] system shut down gracefully", tag)
	return nil
}

func serveMetrics(addr string, metrics *obs.Metrics) (*http.Server, error) {
	reg := prometheus.NewRegistry()
	if err := reg.Register(metrics); err != nil {
		return nil, err
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logs.Errorf("[%s] metrics server, err: %+v", tag, err)
		}
	}()
	logs.Infof("[%s] metrics served on %s/metrics", tag, addr)
	return srv, nil
}

func logSummary(topics []string, snapshot obs.Snapshot, trend *strategy.TrendFollower, exec *execution.Engine) {
	logs.Infof("[%s] metrics: channels=%d topics=%v", tag, snapshot.Channels, topics)
	for _, t := range snapshot.Topics {
		logs.Infof("[%s] topic=%s published=%d delivered=%d unrouted=%d lagged=%d",
			tag, t.Topic, t.Published, t.Delivered, t.Unrouted, t.Lagged)
	}
	logs.Infof("[%s] orders=%d fills=%d rejects=%d position=%d",
		tag, trend.Orders(), exec.Fills(), exec.Rejects(), trend.Position())
	for _, p := range exec.Positions() {
		logs.Infof("[%s] executed position symbol=%s qty=%d", tag, p.Symbol, p.Qty)
	}
}

func startProfiler(addr string) (*pyroscope.Profiler, error) {
	return pyroscope.Start(pyroscope.Config{
		ApplicationName: "msgbus.trader",
		ServerAddress:   addr,
		Tags: map[string]string{
			"env": "local",
		},
		Logger: profilerLogger{},
		ProfileTypes: []pyroscope.ProfileType{
			pyroscope.ProfileCPU,
			pyroscope.ProfileAllocObjects,
			pyroscope.ProfileAllocSpace,
			pyroscope.ProfileInuseObjects,
			pyroscope.ProfileInuseSpace,
		},
	})
}

type profilerLogger struct{}

func (profilerLogger) Infof(format string, args ...interface{})  { logs.Debugf(format, args...) }
func (profilerLogger) Debugf(format string, args ...interface{}) { logs.Debugf(format, args...) }
func (profilerLogger) Errorf(format string, args ...interface{}) { logs.Errorf(format, args...) }
