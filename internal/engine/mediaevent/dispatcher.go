package mediaevent

// Sink receives an already-serialized Media Event, tagged with its
// delivery target. The Dispatcher never talks to a transport directly: it
// hands off to whatever Sink the Engine wired it to (almost always the
// Registry, spec.md §4.7), which fans the message out to every registered
// observer. "Converting broadcast into per-observer delivery" (spec.md
// §4.6) means every observer receives the same (to, data) tuple and decides
// for itself which peer connection(s) to write to — the Dispatcher's job
// ends at producing that one unambiguous tuple.
type Sink interface {
	PublishMediaEvent(to string, data []byte)
}

// Dispatcher serializes outbound Media Events and publishes them to a Sink.
type Dispatcher struct {
	sink Sink
}

func NewDispatcher(sink Sink) *Dispatcher {
	return &Dispatcher{sink: sink}
}

// Dispatch encodes ev and publishes it. A marshal failure indicates a bug
// in the Engine (an outbound payload that isn't JSON-serializable) rather
// than a caller error, so it is returned rather than silently dropped.
func (d *Dispatcher) Dispatch(ev Outbound) error {
	raw, err := Encode(ev)
	if err != nil {
		return err
	}

	d.sink.PublishMediaEvent(ev.To, raw)
	return nil
}
