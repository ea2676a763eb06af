package metrics

// MultiSink fans out events to multiple sinks.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordAllocation forwards the event to all sinks, returning the first error encountered.
func (m *MultiSink) RecordAllocation(ev AllocationEvent) error {
	for _, s := range m.Sinks {
		if err := s.RecordAllocation(ev); err != nil {
			return err
		}
	}
	return nil
}

// RecordProposal forwards proposal events to sinks that support them.
func (m *MultiSink) RecordProposal(ev ProposalEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(ProposalRecorder); ok {
			if err := rec.RecordProposal(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordCompletion forwards completion events.
func (m *MultiSink) RecordCompletion(ev CompletionEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(CompletionRecorder); ok {
			if err := rec.RecordCompletion(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordStall forwards stall events.
func (m *MultiSink) RecordStall(ev StallEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(StallRecorder); ok {
			if err := rec.RecordStall(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordGatewayAction forwards gateway actions.
func (m *MultiSink) RecordGatewayAction(ev GatewayEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(GatewayRecorder); ok {
			if err := rec.RecordGatewayAction(ev); err != nil {
				return err
			}
		}
	}
	return nil
}
