// Package config loads the tracker's YAML configuration, applies
// environment overrides and validates the result.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/signalsfoundry/ambulance-tracker/core"
	"github.com/signalsfoundry/ambulance-tracker/internal/geo"
	"github.com/signalsfoundry/ambulance-tracker/internal/tracker"
	"github.com/signalsfoundry/ambulance-tracker/model"
)

// ErrInvalid wraps every validation and parse failure.
var ErrInvalid = errors.New("invalid configuration")

// Environment variables read by FromEnv.
const (
	EnvConfigPath       = "TRACKER_CONFIG"
	EnvGRPCAddr         = "TRACKER_GRPC_ADDR"
	EnvHTTPAddr         = "TRACKER_HTTP_ADDR"
	EnvTickPeriod       = "TRACKER_TICK"
	EnvLocationProvider = "TRACKER_LOCATION_PROVIDER"

	EnvTracingEnabled     = "TRACKER_TRACING_ENABLED"
	EnvTracingExporter    = "TRACKER_TRACING_EXPORTER"
	EnvTracingServiceName = "TRACKER_TRACING_SERVICE_NAME"
	EnvTracingEndpoint    = "TRACKER_TRACING_ENDPOINT"
	EnvTracingSampleRatio = "TRACKER_TRACING_SAMPLE_RATIO"
)

// Span exporters accepted in the tracing block.
const (
	TracingExporterStdout = "stdout"
	TracingExporterOTLP   = "otlp"
)

// Config is the whole file.
type Config struct {
	Server   Server   `yaml:"server"`
	Tracker  Tracker  `yaml:"tracker"`
	Location Location `yaml:"location"`
	Tracing  Tracing  `yaml:"tracing"`
}

// Server holds listener addresses.
type Server struct {
	GRPCAddr string `yaml:"grpc_addr" validate:"required"`
	HTTPAddr string `yaml:"http_addr" validate:"required"`
}

// Coordinate is a latitude/longitude pair in degrees.
type Coordinate struct {
	Latitude  float64 `yaml:"latitude" validate:"gte=-90,lte=90"`
	Longitude float64 `yaml:"longitude" validate:"gte=-180,lte=180"`
}

// Span is a viewport size in degrees.
type Span struct {
	Latitude  float64 `yaml:"latitude" validate:"gt=0"`
	Longitude float64 `yaml:"longitude" validate:"gt=0"`
}

// Motion mirrors core.MotionConfig.
type Motion struct {
	BaseRadius         float64 `yaml:"base_radius" validate:"gt=0"`
	RadiusStep         float64 `yaml:"radius_step" validate:"gte=0"`
	PhaseOffsetDegrees float64 `yaml:"phase_offset_degrees"`
	ReferenceOffset    float64 `yaml:"reference_offset"`
}

// Ambulance is one tracked entity and its placeholder labels.
type Ambulance struct {
	ID       int    `yaml:"id" validate:"gt=0"`
	Distance string `yaml:"distance" validate:"required"`
	ETA      string `yaml:"eta" validate:"required"`
}

// Tracker configures the map view.
type Tracker struct {
	TickPeriod        time.Duration `yaml:"tick_period" validate:"gt=0"`
	RecenterDuration  time.Duration `yaml:"recenter_duration" validate:"gte=0"`
	DefaultLocation   Coordinate    `yaml:"default_location"`
	InitialSpan       Span          `yaml:"initial_span"`
	RecenterSpan      Span          `yaml:"recenter_span"`
	Motion            Motion        `yaml:"motion"`
	Ambulances        []Ambulance   `yaml:"ambulances" validate:"required,min=1,unique=ID,dive"`
	MarkerTitle       string        `yaml:"marker_title" validate:"required"`
	MarkerDescription string        `yaml:"marker_description"`
}

// Location selects the position provider.
type Location struct {
	Provider string        `yaml:"provider" validate:"oneof=static denied unavailable"`
	Position Coordinate    `yaml:"position"`
	Latency  time.Duration `yaml:"latency" validate:"gte=0"`
	Timeout  time.Duration `yaml:"timeout" validate:"gte=0"`
}

// Tracing configures OpenTelemetry export. Endpoint is the OTLP gRPC
// collector address; the stdout exporter ignores it and an empty endpoint
// leaves the exporter's own default in place.
type Tracing struct {
	Enabled     bool    `yaml:"enabled"`
	ServiceName string  `yaml:"service_name" validate:"required"`
	Exporter    string  `yaml:"exporter" validate:"oneof=stdout otlp"`
	Endpoint    string  `yaml:"endpoint" validate:"omitempty,hostname_port"`
	SampleRatio float64 `yaml:"sample_ratio" validate:"gte=0,lte=1"`
}

// Default reproduces the stock app: three ambulances around the centre of
// India and a static provider answering from Bengaluru.
func Default() Config {
	tc := tracker.DefaultConfig()
	ambulances := make([]Ambulance, len(tc.Entities))
	for i, e := range tc.Entities {
		ambulances[i] = Ambulance{ID: e.ID, Distance: e.DistanceLabel, ETA: e.ETALabel}
	}
	return Config{
		Server: Server{GRPCAddr: ":50051", HTTPAddr: ":8080"},
		Tracker: Tracker{
			TickPeriod:       tc.TickPeriod,
			RecenterDuration: tc.RecenterDuration,
			DefaultLocation:  Coordinate{Latitude: tc.DefaultLocation.Latitude, Longitude: tc.DefaultLocation.Longitude},
			InitialSpan:      Span{Latitude: tc.InitialRegion.LatitudeDelta, Longitude: tc.InitialRegion.LongitudeDelta},
			RecenterSpan:     Span{Latitude: tc.RecenterLatitudeDelta, Longitude: tc.RecenterLongitudeDelta},
			Motion: Motion{
				BaseRadius:         tc.Motion.BaseRadius,
				RadiusStep:         tc.Motion.RadiusStep,
				PhaseOffsetDegrees: tc.Motion.PhaseOffsetDegrees,
				ReferenceOffset:    tc.Motion.ReferenceOffset,
			},
			Ambulances:        ambulances,
			MarkerTitle:       tc.MarkerTitle,
			MarkerDescription: tc.MarkerDescription,
		},
		Location: Location{
			Provider: string(geo.ProviderStatic),
			Position: Coordinate{Latitude: 12.97, Longitude: 77.59},
			Timeout:  10 * time.Second,
		},
		Tracing: Tracing{
			ServiceName: "ambulance-tracker",
			Exporter:    TracingExporterStdout,
			Endpoint:    "localhost:4317",
			SampleRatio: 1,
		},
	}
}

// Load reads path over the defaults and validates the result. An empty path
// yields the validated defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("%w: parse %s: %v", ErrInvalid, path, err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// FromEnv loads .env files from the working directory if present, reads
// the file named by TRACKER_CONFIG and applies the TRACKER_* overrides.
func FromEnv(envFiles ...string) (Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load env file: %w", err)
	}

	cfg, err := Load(os.Getenv(EnvConfigPath))
	if err != nil {
		return Config{}, err
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvGRPCAddr); ok && v != "" {
		c.Server.GRPCAddr = v
	}
	if v, ok := lookup(EnvHTTPAddr); ok && v != "" {
		c.Server.HTTPAddr = v
	}
	if v, ok := lookup(EnvTickPeriod); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q: %v", ErrInvalid, EnvTickPeriod, v, err)
		}
		c.Tracker.TickPeriod = d
	}
	if v, ok := lookup(EnvLocationProvider); ok && v != "" {
		c.Location.Provider = v
	}
	return c.Tracing.applyEnv(lookup)
}

func (t *Tracing) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvTracingEnabled); ok && v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q: %v", ErrInvalid, EnvTracingEnabled, v, err)
		}
		t.Enabled = enabled
	}
	if v, ok := lookup(EnvTracingExporter); ok && v != "" {
		t.Exporter = strings.ToLower(v)
	}
	if v, ok := lookup(EnvTracingServiceName); ok && v != "" {
		t.ServiceName = v
	}
	if v, ok := lookup(EnvTracingEndpoint); ok && v != "" {
		t.Endpoint = v
	}
	if v, ok := lookup(EnvTracingSampleRatio); ok && v != "" {
		ratio, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%w: %s=%q: %v", ErrInvalid, EnvTracingSampleRatio, v, err)
		}
		t.SampleRatio = ratio
	}
	return nil
}

// Validate checks struct tags.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}

// TrackerConfig converts the file's tracker block.
func (c Config) TrackerConfig() tracker.Config {
	t := c.Tracker
	def := model.LocationPoint{Latitude: t.DefaultLocation.Latitude, Longitude: t.DefaultLocation.Longitude}
	entities := make([]model.TrackedEntity, len(t.Ambulances))
	for i, a := range t.Ambulances {
		entities[i] = model.TrackedEntity{ID: a.ID, DistanceLabel: a.Distance, ETALabel: a.ETA}
	}
	return tracker.Config{
		Motion: core.MotionConfig{
			BaseRadius:         t.Motion.BaseRadius,
			RadiusStep:         t.Motion.RadiusStep,
			PhaseOffsetDegrees: t.Motion.PhaseOffsetDegrees,
			ReferenceOffset:    t.Motion.ReferenceOffset,
		},
		Entities:               entities,
		DefaultLocation:        def,
		InitialRegion:          model.RegionAround(def, t.InitialSpan.Latitude, t.InitialSpan.Longitude),
		RecenterLatitudeDelta:  t.RecenterSpan.Latitude,
		RecenterLongitudeDelta: t.RecenterSpan.Longitude,
		RecenterDuration:       t.RecenterDuration,
		TickPeriod:             t.TickPeriod,
		MarkerTitle:            t.MarkerTitle,
		MarkerDescription:      t.MarkerDescription,
	}
}

// Provider builds the configured location provider.
func (c Config) Provider() (geo.Provider, error) {
	loc := model.LocationPoint{Latitude: c.Location.Position.Latitude, Longitude: c.Location.Position.Longitude}
	p, err := geo.NewProvider(geo.ProviderKind(c.Location.Provider), loc, c.Location.Latency)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return p, nil
}
