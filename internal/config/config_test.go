package config

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/signalsfoundry/ambulance-tracker/internal/geo"
	"github.com/signalsfoundry/ambulance-tracker/internal/tracker"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

func TestDefaultsMatchTrackerDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got, want := cfg.TrackerConfig(), tracker.DefaultConfig(); !reflect.DeepEqual(got, want) {
		t.Fatalf("TrackerConfig() =\n%+v\nwant\n%+v", got, want)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeFile(t, "tracker.yaml", `
server:
  grpc_addr: ":6000"
tracker:
  tick_period: 250ms
  ambulances:
    - id: 7
      distance: "1 km"
      eta: "2 mins"
location:
  provider: denied
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.GRPCAddr != ":6000" || cfg.Server.HTTPAddr != ":8080" {
		t.Fatalf("server = %+v", cfg.Server)
	}
	tc := cfg.TrackerConfig()
	if tc.TickPeriod != 250*time.Millisecond {
		t.Fatalf("tick period = %v", tc.TickPeriod)
	}
	if len(tc.Entities) != 1 || tc.Entities[0].ID != 7 || tc.Entities[0].ETALabel != "2 mins" {
		t.Fatalf("entities = %+v", tc.Entities)
	}

	p, err := cfg.Provider()
	if err != nil {
		t.Fatalf("Provider: %v", err)
	}
	sp, ok := p.(*geo.StaticProvider)
	if !ok || sp.Permission != geo.PermissionDenied {
		t.Fatalf("provider = %#v", p)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := map[string]string{
		"duplicate ids": `
tracker:
  ambulances:
    - {id: 1, distance: a, eta: b}
    - {id: 1, distance: c, eta: d}
`,
		"no ambulances": `
tracker:
  ambulances: []
`,
		"latitude out of range": `
tracker:
  default_location: {latitude: 91, longitude: 0}
`,
		"zero tick": `
tracker:
  tick_period: 0s
`,
		"unknown provider": `
location:
  provider: gps
`,
		"bad yaml": `tracker: [`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeFile(t, "bad.yaml", body))
			if !errors.Is(err, ErrInvalid) {
				t.Fatalf("Load error = %v, want ErrInvalid", err)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("Load error = %v, want not-exist", err)
	}
}

func TestFromEnvAppliesOverrides(t *testing.T) {
	t.Setenv(EnvConfigPath, "")
	t.Setenv(EnvGRPCAddr, "127.0.0.1:7000")
	t.Setenv(EnvTickPeriod, "50ms")
	t.Setenv(EnvLocationProvider, "unavailable")

	cfg, err := FromEnv(filepath.Join(t.TempDir(), "absent.env"))
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if cfg.Server.GRPCAddr != "127.0.0.1:7000" || cfg.Tracker.TickPeriod != 50*time.Millisecond {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if cfg.Location.Provider != string(geo.ProviderUnavailable) {
		t.Fatalf("provider = %q", cfg.Location.Provider)
	}
}

func TestFromEnvAppliesTracingOverrides(t *testing.T) {
	t.Setenv(EnvConfigPath, "")
	t.Setenv(EnvTracingEnabled, "true")
	t.Setenv(EnvTracingExporter, "OTLP")
	t.Setenv(EnvTracingEndpoint, "collector:4317")
	t.Setenv(EnvTracingSampleRatio, "0.25")
	t.Setenv(EnvTracingServiceName, "dispatch")

	cfg, err := FromEnv(filepath.Join(t.TempDir(), "absent.env"))
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	want := Tracing{Enabled: true, ServiceName: "dispatch", Exporter: TracingExporterOTLP, Endpoint: "collector:4317", SampleRatio: 0.25}
	if cfg.Tracing != want {
		t.Fatalf("tracing = %+v, want %+v", cfg.Tracing, want)
	}
}

func TestFromEnvRejectsBadTracing(t *testing.T) {
	tests := map[string][2]string{
		"ratio above one":  {EnvTracingSampleRatio, "7"},
		"ratio not number": {EnvTracingSampleRatio, "most"},
		"enabled not bool": {EnvTracingEnabled, "sometimes"},
		"unknown exporter": {EnvTracingExporter, "zipkin"},
		"endpoint no port": {EnvTracingEndpoint, "collector"},
	}
	for name, kv := range tests {
		t.Run(name, func(t *testing.T) {
			t.Setenv(EnvConfigPath, "")
			t.Setenv(kv[0], kv[1])
			if _, err := FromEnv(filepath.Join(t.TempDir(), "absent.env")); !errors.Is(err, ErrInvalid) {
				t.Fatalf("FromEnv error = %v, want ErrInvalid", err)
			}
		})
	}
}

func TestLoadTracingBlock(t *testing.T) {
	path := writeFile(t, "tracker.yaml", `
tracing:
  enabled: true
  exporter: otlp
  endpoint: "otel.internal:4317"
  sample_ratio: 0.5
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.Tracing.Enabled || cfg.Tracing.Exporter != TracingExporterOTLP || cfg.Tracing.SampleRatio != 0.5 {
		t.Fatalf("tracing = %+v", cfg.Tracing)
	}
	if cfg.Tracing.ServiceName != "ambulance-tracker" {
		t.Fatalf("service name default lost: %q", cfg.Tracing.ServiceName)
	}

	bad := writeFile(t, "bad.yaml", "tracing:\n  sample_ratio: -0.1\n")
	if _, err := Load(bad); !errors.Is(err, ErrInvalid) {
		t.Fatalf("Load negative ratio error = %v, want ErrInvalid", err)
	}
}

func TestFromEnvReadsDotEnv(t *testing.T) {
	yamlPath := writeFile(t, "tracker.yaml", "server:\n  http_addr: \":9999\"\n")
	envPath := writeFile(t, ".env", "TRACKER_CONFIG="+yamlPath+"\n")
	t.Setenv(EnvConfigPath, "")
	os.Unsetenv(EnvConfigPath)

	cfg, err := FromEnv(envPath)
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if cfg.Server.HTTPAddr != ":9999" {
		t.Fatalf("http addr = %q", cfg.Server.HTTPAddr)
	}
}

func TestFromEnvRejectsBadTick(t *testing.T) {
	t.Setenv(EnvConfigPath, "")
	t.Setenv(EnvTickPeriod, "fast")
	if _, err := FromEnv(filepath.Join(t.TempDir(), "absent.env")); !errors.Is(err, ErrInvalid) {
		t.Fatalf("FromEnv error = %v, want ErrInvalid", err)
	}
}

func TestShippedConfigMatchesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "configs", "tracker.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got, want := cfg.TrackerConfig(), tracker.DefaultConfig(); !reflect.DeepEqual(got, want) {
		t.Fatalf("shipped tracker config drifted from defaults:\n%+v\nwant\n%+v", got, want)
	}
	if got, want := cfg.Tracing, Default().Tracing; got != want {
		t.Fatalf("shipped tracing block = %+v, want %+v", got, want)
	}
}
