package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/richinsley/goshadertoyvr/api"
	"github.com/richinsley/goshadertoyvr/assets"
	"github.com/richinsley/goshadertoyvr/gldevice"
	"github.com/richinsley/goshadertoyvr/glfwcontext"
	"github.com/richinsley/goshadertoyvr/inputs"
	"github.com/richinsley/goshadertoyvr/logger"
	"github.com/richinsley/goshadertoyvr/metrics"
	"github.com/richinsley/goshadertoyvr/options"
	"github.com/richinsley/goshadertoyvr/overlay"
	"github.com/richinsley/goshadertoyvr/renderer"
	"github.com/richinsley/goshadertoyvr/shader"
	"github.com/richinsley/goshadertoyvr/translator"
	"github.com/richinsley/goshadertoyvr/watch"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func init() {
	runtime.LockOSThread()
}

func main() {
	opts, err := options.Parse(os.Args[0], os.Args[1:], os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	log, err := logger.New(logger.Config{Level: opts.LogLevel, File: opts.LogFile, Development: opts.Development})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(opts, log); err != nil {
		log.Error("Exiting with error", zap.Error(err))
		_ = log.Sync()
		os.Exit(1)
	}
}

func run(opts options.Options, log *zap.Logger) error {
	if opts.ConfigPath != "" {
		log.Info("Loaded config", zap.String("path", opts.ConfigPath))
	}
	m := metrics.New()

	if err := glfwcontext.InitGraphics(log); err != nil {
		return fmt.Errorf("failed to initialize GLFW: %w", err)
	}
	defer glfwcontext.TerminateGraphics(log)

	session := renderer.NewSession(log, m)
	defer session.Close()

	win, err := glfwcontext.New(glfwcontext.Config{
		Width: opts.Width, Height: opts.Height, Title: "goshadertoyvr", Visible: true,
	}, nil)
	if err != nil {
		return fmt.Errorf("failed to create window: %w", err)
	}
	session.OnClose("window", win.Shutdown)

	// The UI thread draws into a hidden window whose context shares
	// textures with the main one.
	uiContext, err := glfwcontext.New(glfwcontext.Config{Width: 1, Height: 1, Title: "goshadertoyvr ui"}, win)
	if err != nil {
		return fmt.Errorf("failed to create ui context: %w", err)
	}
	session.OnClose("ui context", uiContext.Shutdown)

	win.MakeCurrent()
	if err := gldevice.Init(log); err != nil {
		return err
	}
	if opts.VSync {
		glfwcontext.SetSwapInterval(1)
	} else {
		glfwcontext.SetSwapInterval(0)
	}

	catalog, err := assets.Catalog()
	if err != nil {
		return fmt.Errorf("failed to read bundled catalog: %w", err)
	}
	presets, err := assets.NewPresets()
	if err != nil {
		return err
	}
	loader := &inputs.Loader{Bundle: assets.FS}
	resolver := inputs.NewResolver(loader, gldevice.Uploader{Sampler: gldevice.DefaultSampler}, log, m)
	resolver.Aliases.RegisterCatalog(catalog)
	session.OnClose("textures", resolver.Release)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	dialect, err := shader.ParseDialect(opts.Dialect)
	if err != nil {
		return err
	}
	builderOpts := []shader.Option{shader.WithDialect(dialect), shader.WithMetrics(m)}
	if dialect == shader.DialectWebGL2 {
		builderOpts = append(builderOpts, shader.WithTranslator(translator.New(ctx)))
	}
	builder, err := shader.NewBuilder(gldevice.Compiler{}, log, builderOpts...)
	if err != nil {
		return err
	}
	session.OnClose("shaders", builder.Release)

	cursor, err := loader.LoadImage(assets.CursorID, inputs.LoadOptions{PadCentered: true})
	if err != nil {
		return fmt.Errorf("failed to load cursor: %w", err)
	}
	backend, err := gldevice.NewBackend(win, log, gldevice.BackendConfig{
		UIWidth: opts.UIWidth, UIHeight: opts.UIHeight, Cursor: cursor,
	})
	if err != nil {
		return err
	}
	session.OnClose("backend", backend.Destroy)

	display := renderer.NewDesktopDisplay(win.GetFramebufferSize)
	hud := overlay.NewHUD("goshadertoyvr")
	r := renderer.New(session, backend, display, builder, inputs.NewChannels(resolver, log), hud, presets, renderer.Config{
		ResolutionScale: float32(opts.ResolutionScale),
		PositionScale:   float32(opts.PositionScale),
		UIAspect:        float32(opts.UIWidth) / float32(opts.UIHeight),
		ShaderDir:       opts.ShaderDir,
	})
	bindKeys(win, r, display, hud, presets, log)
	win.OnCursor(session.Cursor.Store)

	var watcher *watch.Watcher
	if opts.Shader != "" {
		watcher, err = watch.New(opts.Shader, r, log)
		if err != nil {
			return err
		}
		if err := watcher.Reload(); err != nil {
			return fmt.Errorf("failed to load shader: %w", err)
		}
		hud.SetTitle(opts.Shader)
	} else if opts.Shadertoy != "" {
		client := api.NewClient(opts.ShadertoyKey, opts.CacheDir, log)
		doc, err := client.Fetch(ctx, opts.Shadertoy)
		if err != nil {
			return fmt.Errorf("failed to fetch shader %s: %w", opts.Shadertoy, err)
		}
		r.LoadDocument(doc)
		hud.SetTitle(doc.Name)
	} else {
		if err := r.LoadPreset(opts.Preset); err != nil {
			return err
		}
		hud.SetTitle(presets.Name(opts.Preset))
	}

	g, gctx := errgroup.WithContext(ctx)
	drained := make(chan struct{})
	producer := overlay.NewProducer(overlay.Config{
		Width:           opts.UIWidth,
		Height:          opts.UIHeight,
		Interval:        opts.UIInterval(),
		ReleaseInterval: opts.ReleaseInterval(),
	}, log, m, hud, gldevice.NewUITextures(opts.UIWidth, opts.UIHeight), uiContext,
		session.UI, session.Release, session.UIVisible.Load)
	g.Go(func() error { return producer.Run(gctx, drained) })

	if watcher != nil && opts.Watch {
		g.Go(func() error { return watcher.Run(gctx) })
	}
	if opts.MetricsAddr != "" {
		srv := metrics.NewServer(opts.MetricsAddr, m)
		g.Go(func() error {
			log.Info("Serving metrics", zap.String("addr", opts.MetricsAddr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
			defer done()
			return srv.Shutdown(shutdownCtx)
		})
	}

	log.Info("Starting render loop")
	for !win.ShouldClose() && gctx.Err() == nil {
		r.RenderFrame()
	}
	log.Info("Render loop stopped")

	// Stop the UI thread first so it stops publishing, then hand back every
	// texture the render thread held before the UI thread deletes them.
	cancel()
	r.Shutdown()
	close(drained)
	err = g.Wait()

	session.Close()
	return err
}
