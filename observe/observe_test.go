package observe

import (
	"bytes"
	"context"
	"errors"
	"testing"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr error
	}{
		{
			name: "all enabled",
			cfg: Config{
				ServiceName: "fragcache",
				Version:     "1.0.0",
				Tracing:     TracingConfig{Enabled: true, Exporter: "stdout", SamplePct: 1.0},
				Metrics:     MetricsConfig{Enabled: true, Exporter: "stdout"},
				Logging:     LoggingConfig{Enabled: true, Level: "info"},
			},
		},
		{
			name:    "missing service name",
			cfg:     Config{Version: "1.0.0"},
			wantErr: ErrMissingServiceName,
		},
		{
			name: "unknown tracing exporter",
			cfg: Config{
				ServiceName: "fragcache",
				Tracing:     TracingConfig{Enabled: true, Exporter: "unknown"},
			},
			wantErr: ErrInvalidTracingExporter,
		},
		{
			name: "unknown metrics exporter",
			cfg: Config{
				ServiceName: "fragcache",
				Metrics:     MetricsConfig{Enabled: true, Exporter: "badvalue"},
			},
			wantErr: ErrInvalidMetricsExporter,
		},
		{
			name: "sample pct above range",
			cfg: Config{
				ServiceName: "fragcache",
				Tracing:     TracingConfig{Enabled: true, Exporter: "stdout", SamplePct: 1.5},
			},
			wantErr: ErrInvalidSamplePct,
		},
		{
			name: "sample pct negative",
			cfg: Config{
				ServiceName: "fragcache",
				Tracing:     TracingConfig{Enabled: true, Exporter: "stdout", SamplePct: -0.1},
			},
			wantErr: ErrInvalidSamplePct,
		},
		{
			name: "unknown log level",
			cfg: Config{
				ServiceName: "fragcache",
				Logging:     LoggingConfig{Enabled: true, Level: "verbose"},
			},
			wantErr: ErrInvalidLogLevel,
		},
		{
			name: "disabled subsystems skip validation",
			cfg: Config{
				ServiceName: "fragcache",
				Tracing:     TracingConfig{Exporter: "bogus"},
				Logging:     LoggingConfig{Level: "bogus"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewObserver_Disabled(t *testing.T) {
	obs, err := NewObserver(context.Background(), Config{ServiceName: "fragcache"})
	if err != nil {
		t.Fatalf("NewObserver: %v", err)
	}
	if obs.Tracer() == nil || obs.Meter() == nil || obs.Logger() == nil {
		t.Fatal("disabled observer must still return usable handles")
	}
	if err := obs.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
}

func TestNewObserver_Enabled(t *testing.T) {
	var logs bytes.Buffer
	cfg := Config{
		ServiceName: "fragcache",
		Version:     "1.0.0",
		Tracing:     TracingConfig{Enabled: true, Exporter: "none", SamplePct: 0.5},
		Metrics:     MetricsConfig{Enabled: true, Exporter: "none"},
		Logging:     LoggingConfig{Enabled: true, Level: "debug", Writer: &logs},
	}

	obs, err := NewObserver(context.Background(), cfg)
	if err != nil {
		t.Fatalf("NewObserver: %v", err)
	}

	obs.Logger().Debug(context.Background(), "hello")
	if logs.Len() == 0 {
		t.Error("expected logger to write to configured writer")
	}

	if err := obs.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
}

func TestNewObserver_InvalidConfig(t *testing.T) {
	_, err := NewObserver(context.Background(), Config{})
	if !errors.Is(err, ErrMissingServiceName) {
		t.Fatalf("NewObserver() = %v, want ErrMissingServiceName", err)
	}
}

func TestInstrumentsFromObserver(t *testing.T) {
	if _, err := InstrumentsFromObserver(nil); !errors.Is(err, ErrNilObserver) {
		t.Fatalf("InstrumentsFromObserver(nil) = %v, want ErrNilObserver", err)
	}

	obs, err := NewObserver(context.Background(), Config{ServiceName: "fragcache"})
	if err != nil {
		t.Fatalf("NewObserver: %v", err)
	}
	inst, err := InstrumentsFromObserver(obs)
	if err != nil {
		t.Fatalf("InstrumentsFromObserver: %v", err)
	}
	if inst.Tracer == nil || inst.Metrics == nil || inst.Logger == nil {
		t.Fatalf("incomplete instruments: %+v", inst)
	}
}

func TestInstruments_Fill(t *testing.T) {
	inst := Instruments{}.Fill()
	if inst.Tracer == nil || inst.Metrics == nil || inst.Logger == nil {
		t.Fatalf("Fill left nil handles: %+v", inst)
	}

	ctx, span := inst.Tracer.StartSpan(context.Background(), FragmentMeta{Namespace: "ns"})
	inst.Metrics.RecordRun(ctx, FragmentMeta{Namespace: "ns"}, OutcomeMiss, 0, nil)
	inst.Tracer.EndSpan(span, OutcomeMiss, nil)
}
