package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/joho/godotenv"
)

// Version is set at build time via -ldflags
var Version = "dev"

// AppOptions holds the parsed command line
type AppOptions struct {
	ConfigFile   string
	MqttMode     bool
	HttpMode     bool
	HttpPort     int
	Seed         uint64
	Once         bool
	Render       bool
	OutputFile   string
	Format       string
	X, Y, Yaw    float64
	PoseFromArgs bool // any of --x, --y, --yaw was given
}

// Runner is the set of modes main can dispatch to
type Runner interface {
	ApplyOptions(opts AppOptions)
	RunService() error
	RunOnce() error
	RunRender() error
}

func main() {
	// .env is optional; real environment variables take precedence
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("Warning: could not load .env: %v", err)
	}

	if err := run(os.Args[1:], os.Stdout, NewApp()); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		log.Fatalf("planebox: %v", err)
	}
}

// run parses args and dispatches to the selected mode
func run(args []string, out io.Writer, app Runner) error {
	fs := flag.NewFlagSet("planebox", flag.ContinueOnError)
	fs.SetOutput(out)

	var opts AppOptions
	fs.StringVar(&opts.ConfigFile, "config", "config.yaml", "Path to configuration file")
	fs.BoolVar(&opts.MqttMode, "mqtt", false, "Publish frames to MQTT")
	fs.BoolVar(&opts.HttpMode, "http", false, "Enable HTTP inspection server")
	fs.IntVar(&opts.HttpPort, "http-port", 8080, "HTTP server port")
	fs.Uint64Var(&opts.Seed, "seed", 0, "Random seed (0 = time-seeded, overrides config)")
	fs.BoolVar(&opts.Once, "once", false, "Generate a single frame, write it and exit")
	fs.BoolVar(&opts.Render, "render", false, "Render a top-down preview of one scene and exit")
	fs.StringVar(&opts.OutputFile, "output", "", "Output file for --once / --render (default frame.pcd / preview.png, - for stdout)")
	fs.StringVar(&opts.Format, "format", "", "Output format: pcd, json, binary (--once); png, svg, vector-png (--render)")
	fs.Float64Var(&opts.X, "x", 0, "Fixed box x for --once / --render")
	fs.Float64Var(&opts.Y, "y", 0, "Fixed box y for --once / --render")
	fs.Float64Var(&opts.Yaw, "yaw", 0, "Fixed box yaw in radians for --once / --render")

	if err := fs.Parse(args); err != nil {
		return err
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "x", "y", "yaw":
			opts.PoseFromArgs = true
		}
	})

	_, _ = fmt.Fprintf(out, "planebox version: %s\n", Version)
	app.ApplyOptions(opts)

	switch {
	case opts.Once && opts.Render:
		return errors.New("--once and --render are mutually exclusive")
	case opts.Once:
		return app.RunOnce()
	case opts.Render:
		return app.RunRender()
	}

	if !opts.MqttMode && !opts.HttpMode {
		_, _ = fmt.Fprintln(out, "No output selected; frames are generated and counted only")
		_, _ = fmt.Fprintln(out, "Use --mqtt to publish frames, --http to serve the latest frame")
		_, _ = fmt.Fprintln(out, "Use --once or --render for a single scene")
	}
	return app.RunService()
}
