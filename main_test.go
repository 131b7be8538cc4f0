package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

type mockApp struct {
	opts   AppOptions
	called map[string]bool
	err    error
}

func newMockApp() *mockApp {
	return &mockApp{
		called: make(map[string]bool),
	}
}

func (m *mockApp) ApplyOptions(opts AppOptions) { m.opts = opts }
func (m *mockApp) RunService() error            { m.called["RunService"] = true; return m.err }
func (m *mockApp) RunOnce() error               { m.called["RunOnce"] = true; return m.err }
func (m *mockApp) RunRender() error             { m.called["RunRender"] = true; return m.err }

func TestRun_Flags(t *testing.T) {
	tests := []struct {
		name           string
		args           []string
		expectedCalled string
		verifyOpts     func(*testing.T, AppOptions)
	}{
		{
			name:           "Once",
			args:           []string{"--once", "--output", "cloud.pcd", "--seed", "42"},
			expectedCalled: "RunOnce",
			verifyOpts: func(t *testing.T, opts AppOptions) {
				if opts.OutputFile != "cloud.pcd" {
					t.Errorf("expected OutputFile cloud.pcd, got %s", opts.OutputFile)
				}
				if opts.Seed != 42 {
					t.Errorf("expected Seed 42, got %d", opts.Seed)
				}
				if opts.PoseFromArgs {
					t.Error("expected PoseFromArgs false without --x/--y/--yaw")
				}
			},
		},
		{
			name:           "OnceFixedPose",
			args:           []string{"--once", "--format", "json", "--x", "1.5", "--yaw", "0.7"},
			expectedCalled: "RunOnce",
			verifyOpts: func(t *testing.T, opts AppOptions) {
				if !opts.PoseFromArgs {
					t.Error("expected PoseFromArgs true")
				}
				if opts.X != 1.5 || opts.Y != 0 || opts.Yaw != 0.7 {
					t.Errorf("expected pose (1.5, 0, 0.7), got (%f, %f, %f)", opts.X, opts.Y, opts.Yaw)
				}
				if opts.Format != "json" {
					t.Errorf("expected Format json, got %s", opts.Format)
				}
			},
		},
		{
			name:           "ExplicitZeroYawFixesPose",
			args:           []string{"--render", "--yaw", "0"},
			expectedCalled: "RunRender",
			verifyOpts: func(t *testing.T, opts AppOptions) {
				if !opts.PoseFromArgs {
					t.Error("expected an explicit --yaw 0 to fix the pose")
				}
			},
		},
		{
			name:           "Render",
			args:           []string{"--render", "--format", "svg", "--config", "lab.yaml"},
			expectedCalled: "RunRender",
			verifyOpts: func(t *testing.T, opts AppOptions) {
				if !opts.Render {
					t.Error("expected Render true")
				}
				if opts.Format != "svg" {
					t.Errorf("expected Format svg, got %s", opts.Format)
				}
				if opts.ConfigFile != "lab.yaml" {
					t.Errorf("expected ConfigFile lab.yaml, got %s", opts.ConfigFile)
				}
			},
		},
		{
			name:           "MqttMode",
			args:           []string{"--mqtt", "--http", "--http-port", "9090"},
			expectedCalled: "RunService",
			verifyOpts: func(t *testing.T, opts AppOptions) {
				if !opts.MqttMode || !opts.HttpMode {
					t.Error("expected MqttMode and HttpMode true")
				}
				if opts.HttpPort != 9090 {
					t.Errorf("expected HttpPort 9090, got %d", opts.HttpPort)
				}
			},
		},
		{
			name:           "Defaults",
			args:           []string{},
			expectedCalled: "RunService",
			verifyOpts: func(t *testing.T, opts AppOptions) {
				if opts.ConfigFile != "config.yaml" {
					t.Errorf("expected ConfigFile config.yaml, got %s", opts.ConfigFile)
				}
				if opts.HttpPort != 8080 {
					t.Errorf("expected HttpPort 8080, got %d", opts.HttpPort)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newMockApp()
			var out bytes.Buffer
			err := run(tt.args, &out, app)
			if err != nil {
				t.Fatalf("run failed: %v", err)
			}

			if !app.called[tt.expectedCalled] {
				t.Errorf("expected %s to be called", tt.expectedCalled)
			}
			if len(app.called) != 1 {
				t.Errorf("expected exactly one mode, got %v", app.called)
			}

			if tt.verifyOpts != nil {
				tt.verifyOpts(t, app.opts)
			}
		})
	}
}

func TestRun_Help(t *testing.T) {
	app := newMockApp()
	var out bytes.Buffer
	err := run([]string{"--help"}, &out, app)
	if err == nil {
		t.Error("expected error from --help, got nil")
	}
	if !strings.Contains(out.String(), "Usage of planebox") {
		t.Errorf("expected usage info in output, got: %s", out.String())
	}
	if len(app.called) != 0 {
		t.Errorf("expected no mode to run, got %v", app.called)
	}
}

func TestRun_UnknownFlag(t *testing.T) {
	var out bytes.Buffer
	if err := run([]string{"--rotate-all", "90"}, &out, newMockApp()); err == nil {
		t.Error("expected error for unknown flag")
	}
}

func TestRun_OnceAndRenderConflict(t *testing.T) {
	app := newMockApp()
	var out bytes.Buffer
	err := run([]string{"--once", "--render"}, &out, app)
	if err == nil {
		t.Fatal("expected error for --once with --render")
	}
	if len(app.called) != 0 {
		t.Errorf("expected no mode to run, got %v", app.called)
	}
}

func TestRun_PropagatesModeError(t *testing.T) {
	app := newMockApp()
	app.err = errors.New("boom")
	var out bytes.Buffer
	if err := run([]string{"--once"}, &out, app); !errors.Is(err, app.err) {
		t.Errorf("expected mode error, got %v", err)
	}
}

func TestRun_Default(t *testing.T) {
	app := newMockApp()
	var out bytes.Buffer
	err := run([]string{}, &out, app)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	expectedPrefix := "planebox version: " + Version
	if !strings.Contains(out.String(), expectedPrefix) {
		t.Errorf("expected output to contain version, got: %s", out.String())
	}

	if !strings.Contains(out.String(), "Use --mqtt to publish frames") {
		t.Errorf("expected output to contain mode hints, got: %s", out.String())
	}
}

func TestMain_Execute(t *testing.T) {
	// Smoke test to ensure version is set
	if Version == "" {
		t.Error("expected Version to be set")
	}
}
