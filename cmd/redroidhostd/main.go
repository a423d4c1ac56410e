// Command redroidhostd is the host-side daemon: it prepares a guest
// rootfs, launches the guest's init process, and serves the virtual
// input, gralloc, framebuffer-stream, ADB-forward, and control endpoints
// described in SPEC_FULL.md. CLI flag parsing is kept on the standard
// library's flag package, matching the teacher and the explicit "thin
// collaborator" scoping of the CLI surface.
package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/twoyi/redroidhostd/internal/adbforward"
	"github.com/twoyi/redroidhostd/internal/config"
	"github.com/twoyi/redroidhostd/internal/control"
	"github.com/twoyi/redroidhostd/internal/gralloc"
	"github.com/twoyi/redroidhostd/internal/logging"
	"github.com/twoyi/redroidhostd/internal/metrics"
	"github.com/twoyi/redroidhostd/internal/preview"
	"github.com/twoyi/redroidhostd/internal/streamer"
	"github.com/twoyi/redroidhostd/internal/supervisor"
	"github.com/twoyi/redroidhostd/internal/virtualinput"
)

func main() {
	cfg := config.Default()

	rootfs := flag.String("rootfs", cfg.RootFS, "path to the guest rootfs directory (required)")
	loader := flag.String("loader", cfg.Loader, "path to the guest loader passed as TYLOADER")
	controlAddr := flag.String("control-addr", cfg.ControlAddr, "control endpoint bind address")
	adbAddr := flag.String("adb-addr", cfg.ADBAddr, "ADB forward bind address")
	width := flag.Int("width", cfg.Width, "display width")
	height := flag.Int("height", cfg.Height, "display height")
	dpi := flag.Int("dpi", cfg.DPI, "display DPI")
	verbose := flag.Bool("verbose", cfg.Verbose, "enable debug logging and line-piped guest stdio")
	setupOnly := flag.Bool("setup", false, "prepare the rootfs skeleton and validate init, then exit without launching a container")
	flag.Parse()

	if err := config.ApplyEnv(&cfg); err != nil {
		fmt.Fprintf(os.Stderr, "redroidhostd: applying environment overlay: %v\n", err)
		os.Exit(1)
	}

	cfg.RootFS = *rootfs
	cfg.Loader = *loader
	cfg.ControlAddr = *controlAddr
	cfg.ADBAddr = *adbAddr
	cfg.Width = *width
	cfg.Height = *height
	cfg.DPI = *dpi
	cfg.Verbose = *verbose

	log := logging.New(cfg.Verbose)

	if cfg.RootFS == "" {
		log.Error().Msg("--rootfs is required")
		os.Exit(1)
	}

	sup := supervisor.New(supervisor.Config{
		RootFS: cfg.RootFS, Loader: cfg.Loader,
		Width: cfg.Width, Height: cfg.Height, DPI: cfg.DPI,
		GrallocEnabled: cfg.GrallocEnabled, GrallocSocket: cfg.ResolvedGrallocSocket(),
		Verbose: cfg.Verbose,
	}, log)

	sup.PrepareRootFS()
	if err := sup.ValidateInit(); err != nil {
		log.Error().Err(err).Msg("guest init validation failed")
		os.Exit(1)
	}
	if *setupOnly {
		log.Info().Msg("setup complete, exiting without launching a container")
		return
	}

	log.Info().
		Str("rootfs", cfg.RootFS).
		Int("width", cfg.Width).
		Int("height", cfg.Height).
		Bool("adb_forward", cfg.ADBEnabled).
		Bool("gralloc", cfg.GrallocEnabled).
		Bool("preview", cfg.PreviewEnabled).
		Msg("redroidhostd starting")

	reg := metrics.NewRegistry(prometheus.DefaultRegisterer)
	if cfg.MetricsAddr != "" {
		go func() {
			http.Handle("/metrics", promhttp.Handler())
			if err := http.ListenAndServe(cfg.MetricsAddr, nil); err != nil {
				log.Warn().Err(err).Msg("metrics server stopped")
			}
		}()
	}

	registry := virtualinput.NewRegistry()
	registry.Register(virtualinput.New("touch", cfg.TouchSocketPath(), virtualinput.TouchDescriptor(int32(cfg.Width), int32(cfg.Height)), log))
	registry.Register(virtualinput.New("key0", cfg.KeySocketPath(), virtualinput.KeyDescriptor(), log))

	touchDevice := registry.Get("touch")
	keyDevice := registry.Get("key0")
	touch := virtualinput.NewTouch(touchDevice)
	key := virtualinput.NewKey(keyDevice)

	go func() {
		if err := touchDevice.Serve(); err != nil {
			log.Error().Err(err).Msg("touch device stopped")
		}
	}()
	go func() {
		if err := keyDevice.Serve(); err != nil {
			log.Error().Err(err).Msg("key device stopped")
		}
	}()

	frameStreamer := streamer.New(cfg.Width, cfg.Height, cfg.FBDevicePath, log, reg)

	if cfg.GrallocEnabled {
		grallocServer := gralloc.New(cfg.ResolvedGrallocSocket(), log, reg)
		grallocServer.Callback.Set(func(data []byte, w, h int) {
			frameStreamer.Latest.Set(data, w, h)
		})
		go func() {
			if err := grallocServer.Serve(); err != nil {
				log.Error().Err(err).Msg("gralloc server stopped")
			}
		}()
	}

	frameStreamer.Start()

	if cfg.ADBEnabled {
		forwarder := adbforward.New(cfg.ADBAddr, cfg.ADBSocketPath(), "127.0.0.1:5037", log, reg)
		go func() {
			if err := forwarder.Serve(); err != nil {
				log.Error().Err(err).Msg("adb forwarder stopped")
			}
		}()
	}

	controlEndpoint := control.New(control.Config{
		ListenAddr: cfg.ControlAddr, Width: cfg.Width, Height: cfg.Height, RootFS: cfg.RootFS,
		ADBAddress: cfg.ADBAddr, DisplayMode: "mirror",
	}, touch, key, frameStreamer, log)
	go func() {
		if err := controlEndpoint.Serve(); err != nil {
			log.Error().Err(err).Msg("control endpoint stopped")
		}
	}()

	previewStop := make(chan struct{})
	if cfg.PreviewEnabled {
		previewWindow := preview.New(preview.Config{Width: cfg.Width, Height: cfg.Height, Title: "redroidhostd"}, touch, key, frameStreamer.Latest, log)
		go func() {
			// SDL2/OpenGL must run pinned to the goroutine that created
			// the window; spawning it here keeps main free to wait on the
			// guest process and the shutdown signal.
			runtime.LockOSThread()
			if err := previewWindow.Run(previewStop); err != nil {
				log.Error().Err(err).Msg("preview window stopped")
			}
		}()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info().Msg("shutdown signal received")
		close(previewStop)
		frameStreamer.Stop()
		touchDevice.Close()
		keyDevice.Close()
		controlEndpoint.Close()
	}()

	if err := sup.Run(); err != nil {
		log.Error().Err(err).Msg("guest init run failed")
	}
}
