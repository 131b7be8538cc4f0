package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/kwv/planebox/scene"
)

const defaultConfigFile = "config.yaml"

// App encapsulates the application state and dependencies
type App struct {
	Config       *scene.Config
	Generator    *scene.Generator
	StateTracker *scene.StateTracker
	MQTTClient   *scene.MQTTClient
	Publisher    *scene.Publisher

	// CLI flags
	ConfigFile string
	Seed       uint64
	OutputFile string
	Format     string
	HttpPort   int
	MqttMode   bool
	HttpMode   bool
	FixedPose  *scene.Pose

	Out io.Writer
}

// NewApp creates a new App instance
func NewApp() *App {
	return &App{
		StateTracker: scene.NewStateTracker(),
		ConfigFile:   defaultConfigFile,
		Out:          os.Stdout,
	}
}

// ApplyOptions applies CLI options to the App instance
func (a *App) ApplyOptions(opts AppOptions) {
	a.ConfigFile = opts.ConfigFile
	a.Seed = opts.Seed
	a.OutputFile = opts.OutputFile
	a.Format = opts.Format
	a.HttpPort = opts.HttpPort
	a.MqttMode = opts.MqttMode
	a.HttpMode = opts.HttpMode
	a.FixedPose = nil
	if opts.PoseFromArgs {
		a.FixedPose = &scene.Pose{X: opts.X, Y: opts.Y, Yaw: opts.Yaw}
	}
}

// loadConfig reads the config file. A missing default config.yaml falls back
// to built-in defaults; an explicitly named file must exist.
func (a *App) loadConfig() (*scene.Config, error) {
	path := a.ConfigFile
	if path == "" {
		path = defaultConfigFile
	}

	var config *scene.Config
	if _, err := os.Stat(path); path == defaultConfigFile && errors.Is(err, os.ErrNotExist) {
		log.Printf("No %s found, using built-in defaults", path)
		cfg := scene.DefaultConfig()
		config = &cfg
	} else {
		loaded, err := scene.LoadConfig(path)
		if err != nil {
			return nil, fmt.Errorf("loading config %s: %w", path, err)
		}
		log.Printf("Loaded config from %s", path)
		config = loaded
	}

	if a.Seed != 0 {
		config.Seed = a.Seed
	}
	a.Config = config
	return config, nil
}

// newGenerator loads the config and builds the generator
func (a *App) newGenerator() (*scene.Generator, error) {
	config, err := a.loadConfig()
	if err != nil {
		return nil, err
	}
	gen, err := scene.NewGenerator(*config)
	if err != nil {
		return nil, fmt.Errorf("creating generator: %w", err)
	}
	a.Generator = gen
	return gen, nil
}

// buildScene produces one scene at the fixed pose, or a random one
func (a *App) buildScene(gen *scene.Generator) *scene.Scene {
	if a.FixedPose != nil {
		return gen.RegenerateAt(*a.FixedPose)
	}
	return gen.Regenerate()
}

// openOutput returns the writer for --output; "-" means stdout
func (a *App) openOutput(fallback string) (io.Writer, func() error, error) {
	path := a.OutputFile
	if path == "" {
		path = fallback
	}
	if path == "-" {
		return a.Out, func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("creating %s: %w", path, err)
	}
	log.Printf("Writing %s", path)
	return f, f.Close, nil
}

// RunOnce generates a single noisy frame and writes it out
func (a *App) RunOnce() error {
	gen, err := a.newGenerator()
	if err != nil {
		return err
	}
	s := a.buildScene(gen)
	frame, _ := gen.NextFrame()

	format := strings.ToLower(a.Format)
	if format == "" {
		format = "pcd"
	}

	var payload []byte
	switch format {
	case "pcd":
	case scene.EncodingJSON, scene.EncodingBinary:
		if payload, err = scene.EncodeFrame(frame, format, gen.RunID()); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown --once format %q (want pcd, json or binary)", a.Format)
	}

	w, closeFn, err := a.openOutput("frame." + format)
	if err != nil {
		return err
	}
	if payload != nil {
		_, err = w.Write(payload)
	} else {
		err = scene.WritePCD(w, frame)
	}
	if cerr := closeFn(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("writing frame: %w", err)
	}

	log.Printf("Frame %d: %d points, box (%.3f, %.3f) yaw=%.1f°, %d plane points removed",
		frame.Seq, frame.Len(), s.Pose.X, s.Pose.Y, s.Pose.YawDegrees(), s.Removed)
	return nil
}

// RunRender renders a top-down preview of one scene
func (a *App) RunRender() error {
	gen, err := a.newGenerator()
	if err != nil {
		return err
	}
	s := a.buildScene(gen)
	frame, _ := gen.NextFrame()

	format := strings.ToLower(a.Format)
	if format == "" {
		format = "png"
	}

	ext := ".png"
	if format == "svg" {
		ext = ".svg"
	}
	var render func(io.Writer) error
	switch format {
	case "png", "raster":
		render = func(w io.Writer) error { return scene.NewTopDownRenderer().WritePNG(w, frame, s) }
	case "svg":
		render = func(w io.Writer) error { return scene.NewVectorRenderer().RenderToSVG(w, frame, s) }
	case "vector-png":
		render = func(w io.Writer) error { return scene.NewVectorRenderer().RenderToPNG(w, frame, s) }
	default:
		return fmt.Errorf("unknown --render format %q (want png, svg or vector-png)", a.Format)
	}

	w, closeFn, err := a.openOutput("preview" + ext)
	if err != nil {
		return err
	}
	err = render(w)
	if cerr := closeFn(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("rendering preview: %w", err)
	}

	log.Printf("Rendered box (%.3f, %.3f) yaw=%.1f°, %d points", s.Pose.X, s.Pose.Y, s.Pose.YawDegrees(), frame.Len())
	return nil
}

// RunService runs the generator until interrupted
func (a *App) RunService() error {
	_, _ = fmt.Fprintln(a.Out, "Starting planebox service...")

	gen, err := a.newGenerator()
	if err != nil {
		return err
	}
	config := a.Config

	sinks := scene.MultiSink{a.StateTracker}

	if a.MqttMode {
		mqttClient, err := scene.InitMQTT(config.MQTT, gen.SetNextPose)
		if err != nil {
			return fmt.Errorf("initializing MQTT: %w", err)
		}
		if mqttClient == nil {
			return errors.New("MQTT broker not configured (set mqtt.broker or MQTT_BROKER)")
		}
		a.MQTTClient = mqttClient
		a.Publisher = scene.NewPublisher(mqttClient.GetClient(), config.MQTT, gen.RunID())
		sinks = append(sinks, a.Publisher)
		_, _ = fmt.Fprintln(a.Out, "MQTT frame publisher initialized")
	}

	var server *http.Server
	if a.HttpMode {
		server = &http.Server{
			Addr:              fmt.Sprintf("0.0.0.0:%d", a.HttpPort),
			Handler:           newHTTPServer(a.StateTracker, gen.RunID()),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			log.Printf("[HTTP] Starting server on %s", server.Addr)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Fatalf("[HTTP] Server error: %v", err)
			}
		}()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- gen.Run(ctx, sinks) }()

	a.printServiceInfo()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case <-sigChan:
	case err := <-done:
		if err != nil {
			return err
		}
	}

	_, _ = fmt.Fprintln(a.Out, "\nShutting down service...")
	cancel()
	<-done

	if server != nil {
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancelShutdown()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("[HTTP] Shutdown error: %v", err)
		}
	}
	if a.MQTTClient != nil {
		a.MQTTClient.Disconnect()
	}
	_, _ = fmt.Fprintln(a.Out, "Service stopped")
	return nil
}

func (a *App) printServiceInfo() {
	out := a.Out
	_, _ = fmt.Fprintln(out, "\nService Running")
	_, _ = fmt.Fprintln(out, "===============")
	_, _ = fmt.Fprintf(out, "  Run ID: %s\n", a.Generator.RunID())
	_, _ = fmt.Fprintf(out, "  Box every %v, frame every %v\n", a.Config.Timing.BoxInterval, a.Config.Timing.PublishInterval)

	if a.Publisher != nil {
		_, _ = fmt.Fprintln(out, "\nMQTT:")
		_, _ = fmt.Fprintf(out, "  Frames:       %s (%s)\n", a.Publisher.CloudTopic(), a.MQTTClient.Config().Encoding)
		_, _ = fmt.Fprintf(out, "  Ground truth: %s (retained)\n", a.Publisher.BoxTopic())
		if topic := a.MQTTClient.ControlTopic(); topic != "" {
			_, _ = fmt.Fprintf(out, "  Pose control: %s\n", topic)
		}
	}

	if a.HttpMode {
		_, _ = fmt.Fprintf(out, "\nHTTP endpoints (port %d):\n", a.HttpPort)
		_, _ = fmt.Fprintln(out, "  GET /health            - Health check")
		_, _ = fmt.Fprintln(out, "  GET /frame.json        - Latest frame")
		_, _ = fmt.Fprintln(out, "  GET /frame.pcd         - Latest frame as ASCII PCD")
		_, _ = fmt.Fprintln(out, "  GET /scene.json        - Current box pose and merge stats")
		_, _ = fmt.Fprintln(out, "  GET /footprint.geojson - Box footprint and cloud extent")
		_, _ = fmt.Fprintln(out, "  GET /preview.png       - Top-down raster preview")
		_, _ = fmt.Fprintln(out, "  GET /preview.svg       - Top-down vector preview")
	}

	_, _ = fmt.Fprintln(out, "\nPress Ctrl+C to stop")
}
