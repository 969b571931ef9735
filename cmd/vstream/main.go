// Copyright 2024 Gustavo C. Viegas. All rights reserved.

// Command vstream runs the vertex streaming demo.
//
// It draws frames at a fixed rate, streaming the animated
// vertices through a small set of frame slots, until it
// is interrupted or renders the requested number of frames.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/gviegas/vstream/driver"
	"github.com/gviegas/vstream/driver/soft"
	"github.com/gviegas/vstream/internal/config"
	"github.com/gviegas/vstream/internal/ctxt"
	"github.com/gviegas/vstream/internal/logx"
	"github.com/gviegas/vstream/internal/metrics"
	"github.com/gviegas/vstream/render"
)

const shutdownTimeout = 5 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "vstream:", err)
		os.Exit(1)
	}
}

func run() error {
	cfgPath := flag.String("config", "", "path of a TOML configuration file")
	frames := flag.Int("frames", 0, "stop after this many frames (0 runs until interrupted)")
	capture := flag.String("capture", "", "write the last presented frame to this WebP file")
	drvName := flag.String("driver", "", "name of the driver to use (overrides the configuration)")
	flag.Parse()

	cfg := config.Default()
	if *cfgPath != "" {
		var err error
		if cfg, err = config.Load(*cfgPath); err != nil {
			return err
		}
	}
	if *drvName != "" {
		cfg.Driver.Name = *drvName
	}

	log, err := logx.New(cfg.LogConfig())
	if err != nil {
		return err
	}
	defer log.Sync()
	zap.ReplaceGlobals(log)

	// Replace the default soft driver with a configured one.
	driver.Register(soft.New(cfg.SoftOptions(log)))
	drv, gpu, err := ctxt.Load(cfg.Driver.Name)
	if err != nil {
		return err
	}
	defer drv.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	r, err := render.New(gpu, cfg.RenderConfig(), render.Options{
		Logger:   log,
		Observer: metrics.NewFrame(reg),
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	grp, gctx := errgroup.WithContext(ctx)
	loopDone := make(chan struct{})
	grp.Go(func() error {
		defer close(loopDone)
		return loop(gctx, r, cfg.TickInterval(), *frames, log)
	})
	if cfg.Metrics.Addr != "" {
		srv := metrics.NewServer(cfg.Metrics.Addr, reg)
		grp.Go(func() error {
			log.Info("serving metrics", zap.String("addr", cfg.Metrics.Addr))
			if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		grp.Go(func() error {
			select {
			case <-gctx.Done():
			case <-loopDone:
			}
			sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(sctx)
		})
	}
	err = grp.Wait()

	dctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	errs := []error{err}
	if err := r.Drain(dctx); err != nil {
		errs = append(errs, fmt.Errorf("drain: %w", err))
	} else if *capture != "" {
		errs = append(errs, captureFrame(r, *capture, log))
	}
	errs = append(errs, r.Close(dctx))
	return errors.Join(errs...)
}

// loop calls r.Frame at every tick until ctx is done or
// n frames are drawn (n <= 0 means no limit).
func loop(ctx context.Context, r *render.Renderer, tick time.Duration, n int, log *zap.Logger) error {
	ticker := time.NewTicker(tick)
	defer ticker.Stop()
	report := time.Now()
	var dropped int
	for i := 0; n <= 0 || i < n; i++ {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
		sub, err := r.Frame(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if sub.Completed() && sub.Err() != nil {
			dropped++
		}
		if time.Since(report) >= 5*time.Second {
			log.Info("frame loop",
				zap.Uint64("frames", r.Frames()),
				zap.Int("outstanding", r.Outstanding()),
				zap.Int("dropped", dropped))
			report = time.Now()
		}
	}
	log.Info("frame limit reached", zap.Int("frames", n))
	return nil
}
