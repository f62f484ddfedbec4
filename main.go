package main

import (
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"capstan/cmd"
	"capstan/internal/analysis"
	"capstan/internal/audio"
	"capstan/internal/config"
	"capstan/internal/control"
	"capstan/internal/engine"
	"capstan/internal/log"
	"capstan/internal/monitor"
	"capstan/internal/tui"
	"capstan/pkg/build"
)

// main is the entry point for the audio graph engine.
// The program flow is divided into three distinct phases:
//
// 1. Startup Phase (Cold Path):
//   - Initialize build information
//   - Configure runtime settings
//   - Parse command line arguments and load configuration
//   - Execute one-off commands if requested
//
// 2. Concurrent Phase (Hot Path):
//   - Compile and install the initial graph
//   - Open the output stream; from the first callback on, the
//     engine's block loop is live
//   - Run the control console, draining engine events
//
// 3. Shutdown Phase (Cold Path):
//   - Drain the engine, stop the stream, close the monitor
func main() {
	// ==================== STARTUP PHASE (Cold Path) ====================

	build.Initialize()

	// Limit OS threads to optimize for real-time audio processing:
	// - One thread dedicated to the audio callback (time-critical)
	// - One thread for the console, monitor, and I/O
	runtime.GOMAXPROCS(2)

	opts, err := cmd.ParseArgs()
	if err != nil {
		log.Fatalf("%v", err)
	}
	if opts.Command == "version" {
		flags := build.GetBuildFlags()
		fmt.Printf("%s %s (%s, built %s)\n", flags.Name, flags.Version, flags.Commit, flags.Time)
		return
	}

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		log.Fatalf("%v", err)
	}
	applyFlagOverrides(cfg, opts)

	if level, ok := log.ParseLevel(cfg.LogLevel); ok {
		log.SetLevel(level)
	}
	if cfg.Debug || opts.Verbose {
		log.SetLevel(log.LevelDebug)
	}

	// Offline rendering needs no audio device.
	if opts.Command == "render" {
		if err := render(cfg, opts); err != nil {
			log.Fatalf("%v", err)
		}
		return
	}

	if err := audio.Initialize(); err != nil {
		log.Fatalf("%v", err)
	}
	defer audio.Terminate()

	switch opts.Command {
	case "devices":
		if err := audio.ListDevices(); err != nil {
			log.Fatalf("%v", err)
		}
		return
	case "pick":
		sel, ok, err := tui.PickOutputDevice()
		if err != nil {
			log.Fatalf("%v", err)
		}
		if ok {
			fmt.Printf("Selected device %d at %.0f Hz.\n", sel.DeviceID, sel.SampleRate)
			fmt.Printf("Run with: %s -d %d -s %.0f\n", build.GetBuildFlags().Name, sel.DeviceID, sel.SampleRate)
		}
		return
	}

	if err := runLive(cfg); err != nil {
		log.Fatalf("%v", err)
	}
}

// runLive is the interactive session: initial graph from config, live
// output stream, stdin console, optional websocket monitor.
func runLive(cfg *config.Config) error {
	g, err := cfg.BuildGraph(audio.LoadClip)
	if err != nil {
		return err
	}

	e, ctrl := engine.New(cfg.Engine.BlockSize, cfg.Engine.SampleRate, cfg.Engine.ChannelCapacity)

	if g.Len() > 0 {
		plan, err := g.Compile(cfg.Engine.BlockSize)
		if err != nil {
			return fmt.Errorf("initial graph: %w", err)
		}
		if err := ctrl.InstallPlan(plan); err != nil {
			return err
		}
		log.Infof("installed initial graph with %d nodes", plan.Nodes())
	} else {
		g = nil
		log.Infof("no initial graph configured, output is silent until a graph command")
	}

	var sink control.EventSink
	var mon *monitor.Monitor
	if cfg.Monitor.Enabled {
		mon = monitor.New(cfg.Monitor.Addr)
		defer mon.Close()
		sink = mon.Publish
	}

	// ==================== CONCURRENT PHASE (Hot Path) ====================

	stream, err := audio.NewStream(&cfg.Engine, e)
	if err != nil {
		return err
	}
	if err := stream.Start(); err != nil {
		return err
	}
	log.Infof("stream running: %d frames per block at %.0f Hz", cfg.Engine.BlockSize, cfg.Engine.SampleRate)

	// A signal asks the console to shut down; the console stays the
	// only goroutine that touches the Controller.
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	console := control.New(ctrl, g, cfg.Engine.BlockSize, cfg.Engine.SampleRate, os.Stdin, os.Stdout, sink)
	stop := make(chan struct{})
	done := make(chan error, 1)
	go func() { done <- console.Run(stop) }()

	var runErr error
	select {
	case runErr = <-done:
	case <-sig:
		fmt.Println()
		log.Infof("signal received, draining")
		close(stop)
		runErr = <-done
	}

	// ==================== SHUTDOWN PHASE (Cold Path) ====================

	if err := stream.Stop(); err != nil {
		log.Errorf("error stopping stream: %v", err)
	}
	console.DrainEvents()
	return runErr
}

// render drives the engine offline and reports the dominant frequency
// of the result.
func render(cfg *config.Config, opts *cmd.Options) error {
	g, err := cfg.BuildGraph(audio.LoadClip)
	if err != nil {
		return err
	}
	if g.Len() == 0 {
		return fmt.Errorf("nothing to render: config declares no graph")
	}
	plan, err := g.Compile(cfg.Engine.BlockSize)
	if err != nil {
		return err
	}

	e, ctrl := engine.New(cfg.Engine.BlockSize, cfg.Engine.SampleRate, cfg.Engine.ChannelCapacity)
	if err := ctrl.InstallPlan(plan); err != nil {
		return err
	}

	samples, err := audio.Render(e, cfg.Engine.BlockSize, cfg.Engine.SampleRate, opts.Duration, opts.OutputFile)
	if err != nil {
		return err
	}
	log.Infof("rendered %d samples to %s", len(samples), opts.OutputFile)

	const fftSize = 4096
	if len(samples) >= fftSize {
		spectrum, err := analysis.NewSpectrum(fftSize, cfg.Engine.SampleRate)
		if err != nil {
			return err
		}
		spectrum.Analyze(samples[:fftSize])
		freq, mag := spectrum.Peak()
		log.Infof("dominant frequency %.1f Hz (magnitude %.4f)", freq, mag)
	}
	return nil
}

// applyFlagOverrides lets explicit command line flags win over the
// config file.
func applyFlagOverrides(cfg *config.Config, opts *cmd.Options) {
	if opts.DeviceSet {
		cfg.Engine.OutputDevice = opts.DeviceID
	}
	if opts.SampleRateSet {
		cfg.Engine.SampleRate = opts.SampleRate
	}
	if opts.BlockSizeSet {
		cfg.Engine.BlockSize = opts.BlockSize
	}
}
