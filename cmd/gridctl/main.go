package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"periph.io/x/host/v3"

	"github.com/coreman2200/grid40h/internal/config"
	"github.com/coreman2200/grid40h/internal/grid"
	"github.com/coreman2200/grid40h/internal/mqttbridge"
	"github.com/coreman2200/grid40h/internal/poller"
	"github.com/coreman2200/grid40h/internal/ws"
	"github.com/coreman2200/grid40h/monome"
	"github.com/coreman2200/grid40h/proto40h"
	"github.com/coreman2200/grid40h/transport"
)

const usage = `usage: gridctl [flags] <command> [args]

commands:
  clear                 blank the grid
  on X Y | off X Y      switch one LED
  row I V | col I V     set a row or column bitmap
  intensity N           set brightness
  frame V0 .. V7        send a full frame (a 0 row ends it)
  watch                 log key events
  serve                 poll events, serve websocket/health, bridge MQTT
`

func main() {
	fs := newFlagSet()
	fs.Parse(os.Args[1:])
	configPath := fs.Lookup("config").Value.String()

	// ---- Logging ----
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})

	// ---- Load config.yaml (optional); explicit flags win ----
	cfg := config.Default()
	if c, err := config.Load(configPath); err != nil {
		log.Debug().Err(err).Str("path", configPath).Msg("config load failed; proceeding with flags")
	} else {
		cfg = c
	}
	applyFlags(cfg, fs)

	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}

	args := fs.Args()
	if len(args) == 0 {
		fs.Usage()
		os.Exit(2)
	}

	if _, err := host.Init(); err != nil {
		log.Warn().Err(err).Msg("periph host init failed; uart ports may be missing")
	}

	tr, err := transport.New(cfg.Transport, transport.Options{Baud: cfg.Baud, ReadTimeout: cfg.ReadTimeout()})
	if err != nil {
		log.Fatal().Err(err).Msg("transport")
	}
	dev, err := monome.New(cfg.Protocol, tr)
	if err != nil {
		log.Fatal().Err(err).Strs("known", monome.List()).Msg("protocol")
	}
	defer dev.Release()

	if err := dev.Open(cfg.Device); err != nil {
		log.Fatal().Err(err).Str("device", cfg.Device).Str("transport", cfg.Transport).Msg("open failed")
	}
	log.Info().Str("device", cfg.Device).Str("transport", cfg.Transport).Str("protocol", dev.String()).Msg("device open")

	g := grid.New(dev)
	if cfg.Intensity >= 0 {
		if err := g.Apply(grid.Command{Op: "intensity", Value: uint(cfg.Intensity)}); err != nil {
			log.Warn().Err(err).Msg("initial intensity")
		}
	}

	switch args[0] {
	case "watch", "serve":
		err = run(args[0], cfg, tr, g)
	default:
		var cmd grid.Command
		if cmd, err = parseCommand(args); err == nil {
			err = g.Apply(cmd)
		}
	}

	if cerr := dev.Close(); cerr != nil {
		log.Debug().Err(cerr).Msg("close")
	}
	if err != nil {
		log.Error().Err(err).Str("command", args[0]).Msg("failed")
		dev.Release()
		os.Exit(1)
	}
}

func newFlagSet() *flag.FlagSet {
	fs := flag.NewFlagSet("gridctl", flag.ExitOnError)
	fs.String("config", "grid.yaml", "path to config yaml")
	fs.String("protocol", proto40h.Name, "protocol generation")
	fs.String("transport", "serial", "transport: serial | uart | sim")
	fs.String("device", "/dev/ttyUSB0", "serial device, uart port name or sim label")
	fs.Int("baud", transport.DefaultBaud, "line rate")
	fs.Int("intensity", -1, "brightness sent after open; -1 leaves it alone")
	fs.String("addr", "", "HTTP listen address for serve (e.g. :8080)")
	fs.String("mqtt", "", "MQTT broker URL for serve (e.g. tcp://localhost:1883)")
	fs.String("log-level", "info", "debug | info | warn | error")
	fs.Usage = func() { fmt.Fprint(fs.Output(), usage); fs.PrintDefaults() }
	return fs
}

// applyFlags copies the flags given on the command line over cfg.
func applyFlags(cfg *config.Config, fs *flag.FlagSet) {
	fs.Visit(func(f *flag.Flag) {
		v := f.Value.(flag.Getter).Get()
		switch f.Name {
		case "protocol":
			cfg.Protocol = v.(string)
		case "transport":
			cfg.Transport = v.(string)
		case "device":
			cfg.Device = v.(string)
		case "baud":
			cfg.Baud = v.(int)
		case "intensity":
			cfg.Intensity = v.(int)
		case "addr":
			cfg.HTTP.Addr = v.(string)
		case "mqtt":
			cfg.MQTT.Broker = v.(string)
		case "log-level":
			cfg.LogLevel = v.(string)
		}
	})
}

func parseCommand(args []string) (grid.Command, error) {
	nums := make([]uint, 0, len(args)-1)
	for _, a := range args[1:] {
		v, err := strconv.ParseUint(a, 0, 16)
		if err != nil {
			return grid.Command{}, fmt.Errorf("bad argument %q: %w", a, err)
		}
		nums = append(nums, uint(v))
	}
	need := func(n int) error {
		if len(nums) != n {
			return fmt.Errorf("%s takes %d arguments, got %d", args[0], n, len(nums))
		}
		return nil
	}

	switch args[0] {
	case "clear":
		return grid.Command{Op: "clear"}, need(0)
	case "on", "off":
		if err := need(2); err != nil {
			return grid.Command{}, err
		}
		return grid.Command{Op: "led_" + args[0], X: nums[0], Y: nums[1]}, nil
	case "row", "col":
		if err := need(2); err != nil {
			return grid.Command{}, err
		}
		return grid.Command{Op: "led_" + args[0], Index: nums[0], Value: nums[1]}, nil
	case "intensity":
		if err := need(1); err != nil {
			return grid.Command{}, err
		}
		return grid.Command{Op: "intensity", Value: nums[0]}, nil
	case "frame":
		if err := need(proto40h.Rows); err != nil {
			return grid.Command{}, err
		}
		return grid.Command{Op: "led_frame", Rows: nums}, nil
	}
	return grid.Command{}, fmt.Errorf("%w: %q", grid.ErrUnknownOp, args[0])
}

func run(mode string, cfg *config.Config, tr monome.Transport, g *grid.Controller) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p := poller.New(tr, g, proto40h.FrameSize)
	p.HandleAll(func(ev monome.Event) {
		log.Info().Str("event", ev.Type.String()).Uint("x", ev.X).Uint("y", ev.Y).Msg("key")
	})

	var srv *http.Server
	if mode == "serve" {
		if cfg.MQTT.Broker != "" {
			b, err := mqttbridge.Connect(cfg.MQTT, g)
			if err != nil {
				return err
			}
			defer b.Close()
			p.HandleAll(b.Publish)
		}
		if cfg.HTTP.Addr != "" {
			state := ws.NewState(g)
			p.HandleAll(state.Publish)
			srv = &http.Server{
				Addr:         cfg.HTTP.Addr,
				Handler:      state.Routes(),
				ReadTimeout:  5 * time.Second,
				WriteTimeout: 10 * time.Second,
				IdleTimeout:  60 * time.Second,
			}
			go func() {
				log.Info().Str("addr", cfg.HTTP.Addr).Msg("HTTP server starting")
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Error().Err(err).Msg("http server crashed")
					cancel()
				}
			}()
		}
	}

	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	// ---- Graceful shutdown ----
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(ch)

	var err error
	stopped := false
	select {
	case s := <-ch:
		log.Info().Str("signal", s.String()).Msg("shutting down")
	case <-ctx.Done():
	case err = <-done:
		stopped = true
	}
	cancel()
	if srv != nil {
		_ = srv.Close()
	}
	if stopped {
		return err
	}
	// closing the transport unblocks the poller's read
	if cerr := tr.Close(); cerr != nil {
		log.Debug().Err(cerr).Msg("close")
	}
	select {
	case err = <-done:
	case <-time.After(2 * time.Second):
		log.Warn().Msg("poller still blocked in read; exiting anyway")
	}
	return err
}
