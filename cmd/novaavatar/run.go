package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/normanking/novaavatar/internal/animator"
	"github.com/normanking/novaavatar/internal/audio"
	"github.com/normanking/novaavatar/internal/bus"
	"github.com/normanking/novaavatar/internal/classifier"
	"github.com/normanking/novaavatar/internal/config"
	"github.com/normanking/novaavatar/internal/feed"
	"github.com/normanking/novaavatar/internal/logging"
	"github.com/normanking/novaavatar/internal/render"
	"github.com/normanking/novaavatar/internal/rig"
	"github.com/normanking/novaavatar/internal/session"
	"github.com/normanking/novaavatar/internal/signals"
	"github.com/normanking/novaavatar/internal/stage"
)

var busEvents = []bus.EventType{
	bus.EventTypeStateChanged,
	bus.EventTypeInterrupted,
	bus.EventTypeTranscript,
	bus.EventTypeConnected,
	bus.EventTypeDisconnected,
	bus.EventTypeError,
	bus.EventTypeWakeChanged,
	bus.EventTypeGestureChanged,
	bus.EventTypeExpressionChanged,
	bus.EventTypeSpeakingChanged,
	bus.EventTypeThemeReloaded,
	bus.EventTypeViewerJoined,
	bus.EventTypeViewerLeft,
}

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the animation loop, stage server and signal feed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("config")
			cfg, err := config.Load(path)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("addr") {
				cfg.Stage.Addr, _ = cmd.Flags().GetString("addr")
			}
			if cmd.Flags().Changed("feed") {
				cfg.Feed.URL, _ = cmd.Flags().GetString("feed")
				cfg.Feed.Enabled = true
			}
			if cmd.Flags().Changed("log-level") {
				cfg.Log.Level, _ = cmd.Flags().GetString("log-level")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, cfg)
		},
	}
	cmd.Flags().String("addr", "", "stage listen address")
	cmd.Flags().String("feed", "", "signal producer websocket URL (enables the feed)")
	cmd.Flags().String("log-level", "", "debug, info, warn or error")
	return cmd
}

func run(ctx context.Context, cfg *config.Config) error {
	syslog, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	defer syslog.Close()

	syslog.Info("main", "novaavatar starting", map[string]any{
		"version": version,
		"logFile": syslog.LogPath(),
	})

	eventBus := bus.NewEventBus()
	eventBus.SubscribeMultiple(busEvents, func(e bus.Event) {
		syslog.Debug("bus", string(e.Type), e.Data)
	})
	defer eventBus.Wait()

	theme := render.DefaultTheme()
	if cfg.Theme.Path != "" {
		if theme, err = render.LoadTheme(cfg.Theme.Path); err != nil {
			return err
		}
	}
	renderer := render.NewRenderer(theme)

	if cfg.Theme.Path != "" && cfg.Theme.Watch {
		watcher, err := render.NewThemeWatcher(cfg.Theme.Path, renderer, syslog.Component("theme"))
		if err != nil {
			syslog.Warn("theme", "hot reload disabled", map[string]any{"error": err.Error()})
		} else {
			watcher.OnReload(func(th render.Theme) {
				eventBus.Publish(bus.Event{Type: bus.EventTypeThemeReloaded, Data: map[string]any{
					"path":   cfg.Theme.Path,
					"accent": th.Accent,
				}})
			})
			defer watcher.Close()
		}
	}

	handle := signals.NewHandle()
	r := rig.New(handle, cfg.ToRig())
	loop := animator.New(r, renderer,
		animator.WithBus(eventBus),
		animator.WithLogger(syslog.Component("animator")),
		animator.WithFPS(cfg.Animator.FPS),
	)

	sess := session.New(session.Config{
		SpeakOn:  cfg.Session.SpeakOn,
		SpeakOff: cfg.Session.SpeakOff,
	}, handle, eventBus, syslog.Component("session"))

	dispatch := &feed.Dispatcher{
		Session:    sess,
		Handle:     handle,
		Meter:      audio.NewMeter(audio.MeterConfig{FloorDB: cfg.Audio.FloorDB, Smoothing: cfg.Audio.Smoothing}),
		Classifier: classifier.New(),
		Filter:     classifier.NewFilter(nil),
		Bus:        eventBus,
		Log:        syslog.Component("feed"),
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return loop.Run(ctx) })

	if cfg.Feed.Enabled {
		client := feed.NewClient(feed.Config{
			URL:               cfg.Feed.URL,
			DialTimeout:       cfg.Feed.DialTimeout,
			ReconnectDelay:    cfg.Feed.ReconnectDelay,
			MaxReconnectDelay: cfg.Feed.MaxReconnectDelay,
		}, dispatch, syslog.Component("feed"))
		g.Go(func() error { return client.Run(ctx) })
	}

	if cfg.Stage.Enabled {
		srv := stage.New(stage.Config{
			Addr:        cfg.Stage.Addr,
			ViewerFPS:   cfg.Stage.ViewerFPS,
			SignalRate:  cfg.Stage.SignalRate,
			SignalBurst: cfg.Stage.SignalBurst,
		}, loop, dispatch, syslog, eventBus, syslog.Component("stage"))
		g.Go(func() error { return srv.Start(ctx) })
	}

	err = g.Wait()
	if err != nil {
		syslog.Error("main", "stopped with error", err, nil)
	} else {
		syslog.Info("main", "novaavatar stopped", map[string]any{"frames": loop.Stats().Frames})
	}
	return err
}
