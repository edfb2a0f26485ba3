package routing

import (
	"fmt"
	"sync"
)

// EncodingSwitched is emitted whenever a SimulcastTee changes which encoding
// a given subscriber receives — including the very first assignment. The
// Engine relays this as the outbound `encodingSwitched` Media Event
// (spec.md §4.4, "Encoding switched (notification in)").
type EncodingSwitched struct {
	TrackID    TrackID
	Receiver   SubscriberID
	Encoding   string
}

// SimulcastTee fans out a simulcast track, picking one encoding per
// subscriber. Selection defaults to the subscription's
// default_simulcast_encoding (spec.md §4.4 "Subscribe") and can later be
// changed via SelectEncoding (spec.md §4.4 "Select encoding").
type SimulcastTee struct {
	baseTee

	mutex      sync.Mutex
	encodings  map[string]struct{} // encodings the publisher currently offers
	selected   map[SubscriberID]string
	onSwitched func(EncodingSwitched)
}

// NewSimulcastTee creates a tee for a track whose offered encodings are
// known in advance. onSwitched is invoked (never blocking the caller of
// SelectEncoding/Link) every time a subscriber's active encoding changes.
func NewSimulcastTee(trackID TrackID, encodings []string, onSwitched func(EncodingSwitched)) *SimulcastTee {
	set := make(map[string]struct{}, len(encodings))
	for _, e := range encodings {
		set[e] = struct{}{}
	}

	return &SimulcastTee{
		baseTee:    newBaseTee(trackID),
		encodings:  set,
		selected:   make(map[SubscriberID]string),
		onSwitched: onSwitched,
	}
}

func (t *SimulcastTee) Kind() Kind { return KindSimulcast }

// LinkWithDefault attaches a subscriber and picks its initial encoding. An
// empty defaultEncoding means "no preference"; the tee then picks the
// lexicographically smallest offered encoding name deterministically.
func (t *SimulcastTee) LinkWithDefault(subscriberID SubscriberID, defaultEncoding string) error {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	encoding := defaultEncoding
	if encoding == "" {
		encoding = t.anyEncodingLocked()
	} else if _, ok := t.encodings[encoding]; !ok {
		return fmt.Errorf("encoding %q is not offered by track %s", encoding, t.trackID)
	}

	t.subscribers[subscriberID] = struct{}{}
	t.selected[subscriberID] = encoding

	t.notify(subscriberID, encoding)
	return nil
}

func (t *SimulcastTee) Link(subscriberID SubscriberID) error {
	return t.LinkWithDefault(subscriberID, "")
}

func (t *SimulcastTee) Unlink(subscriberID SubscriberID) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	delete(t.subscribers, subscriberID)
	delete(t.selected, subscriberID)
}

// SelectEncoding changes the encoding forwarded to subscriberID. Returns an
// error if the subscriber isn't attached or the encoding isn't offered.
func (t *SimulcastTee) SelectEncoding(subscriberID SubscriberID, encoding string) error {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	if _, ok := t.subscribers[subscriberID]; !ok {
		return ErrUnknownSubscriber
	}
	if _, ok := t.encodings[encoding]; !ok {
		return fmt.Errorf("encoding %q is not offered by track %s", encoding, t.trackID)
	}

	t.selected[subscriberID] = encoding
	t.notify(subscriberID, encoding)
	return nil
}

// SetEncodings replaces the set of encodings the publisher currently offers
// (new simulcast layers may show up after track-ready, one at a time).
func (t *SimulcastTee) SetEncodings(encodings []string) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	set := make(map[string]struct{}, len(encodings))
	for _, e := range encodings {
		set[e] = struct{}{}
	}
	t.encodings = set
}

// ActiveEncoding reports what a given subscriber currently receives.
func (t *SimulcastTee) ActiveEncoding(subscriberID SubscriberID) (string, bool) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	encoding, ok := t.selected[subscriberID]
	return encoding, ok
}

// notify must be called with t.mutex held.
func (t *SimulcastTee) notify(subscriberID SubscriberID, encoding string) {
	if t.onSwitched == nil {
		return
	}
	event := EncodingSwitched{TrackID: t.trackID, Receiver: subscriberID, Encoding: encoding}
	// Never block the routing graph on a slow consumer.
	go t.onSwitched(event)
}

// anyEncodingLocked deterministically picks the first offered encoding in
// insertion-independent (sorted) order. Called with t.mutex held.
func (t *SimulcastTee) anyEncodingLocked() string {
	best := ""
	for e := range t.encodings {
		if best == "" || e < best {
			best = e
		}
	}
	return best
}
