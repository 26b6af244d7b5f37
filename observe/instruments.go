package observe

// Instruments bundles the telemetry handles a fragment run reports to.
// The zero value is not usable; call NopInstruments or InstrumentsFromObserver.
type Instruments struct {
	Tracer  Tracer
	Metrics Metrics
	Logger  Logger
}

// NopInstruments returns instruments that discard everything.
func NopInstruments() Instruments {
	return Instruments{
		Tracer:  newNoopTracer(),
		Metrics: noopMetrics{},
		Logger:  NopLogger(),
	}
}

// InstrumentsFromObserver builds instruments backed by obs.
func InstrumentsFromObserver(obs Observer) (Instruments, error) {
	if obs == nil {
		return Instruments{}, ErrNilObserver
	}

	m, err := NewMetrics(obs.Meter())
	if err != nil {
		return Instruments{}, err
	}

	return Instruments{
		Tracer:  NewTracer(obs.Tracer()),
		Metrics: m,
		Logger:  obs.Logger(),
	}, nil
}

// Fill replaces nil handles with no-op implementations.
func (i Instruments) Fill() Instruments {
	if i.Tracer == nil {
		i.Tracer = newNoopTracer()
	}
	if i.Metrics == nil {
		i.Metrics = noopMetrics{}
	}
	if i.Logger == nil {
		i.Logger = NopLogger()
	}
	return i
}
