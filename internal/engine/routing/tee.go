// Package routing implements the Routing Graph Builder (spec.md §4.5): for
// each active track it maintains exactly one fan-out node ("Tee"), plus an
// optional one-time raw-format branch. The media itself never flows through
// this package — a Tee only tracks which subscribers are attached and, for
// simulcast tracks, which encoding each subscriber currently wants. Actual
// packet forwarding is the data plane's job (an external collaborator, per
// spec.md §1).
package routing

import "fmt"

type TrackID = string

// SubscriberID identifies whoever is attached to a Tee branch — always an
// endpoint ID in practice, but kept generic so routing has no dependency on
// the engine package (matching the teacher's layering, leaves first).
type SubscriberID = string

// Kind is the fan-out node variant chosen per spec.md §4.5's table.
type Kind int

const (
	// KindPush is a plain broadcast fan-out, used for non-simulcast tracks
	// when the Display Manager is not enabled.
	KindPush Kind = iota
	// KindFilter throttles per-subscriber output under bandwidth pressure.
	// The throttling mechanism itself is out of scope (spec.md §3); the
	// Engine only ever picks this Kind, never drives the throttling logic.
	KindFilter
	// KindSimulcast selects one encoding per subscriber among the layers the
	// publisher is sending.
	KindSimulcast
)

func (k Kind) String() string {
	switch k {
	case KindPush:
		return "push"
	case KindFilter:
		return "filter"
	case KindSimulcast:
		return "simulcast"
	default:
		return "unknown"
	}
}

var ErrUnknownSubscriber = fmt.Errorf("subscriber not attached to this tee")

// Tee is a per-track fan-out node. Exactly one exists per active track
// (spec.md §3, "Tee" invariant).
type Tee interface {
	Kind() Kind
	TrackID() TrackID
	// Link attaches subscriberID's branch to this tee.
	Link(subscriberID SubscriberID) error
	// Unlink detaches a subscriber's branch, a no-op if not attached.
	Unlink(subscriberID SubscriberID)
	// Subscribers lists every currently-linked subscriber, for diagnostics
	// and for testable-property assertions.
	Subscribers() []SubscriberID
}

type baseTee struct {
	trackID     TrackID
	subscribers map[SubscriberID]struct{}
}

func newBaseTee(trackID TrackID) baseTee {
	return baseTee{trackID: trackID, subscribers: make(map[SubscriberID]struct{})}
}

func (b *baseTee) TrackID() TrackID { return b.trackID }

func (b *baseTee) Link(subscriberID SubscriberID) error {
	b.subscribers[subscriberID] = struct{}{}
	return nil
}

func (b *baseTee) Unlink(subscriberID SubscriberID) {
	delete(b.subscribers, subscriberID)
}

func (b *baseTee) Subscribers() []SubscriberID {
	ids := make([]SubscriberID, 0, len(b.subscribers))
	for id := range b.subscribers {
		ids = append(ids, id)
	}
	return ids
}

// PushTee is a broadcast fan-out with no per-subscriber state.
type PushTee struct{ baseTee }

func NewPushTee(trackID TrackID) *PushTee {
	return &PushTee{newBaseTee(trackID)}
}

func (t *PushTee) Kind() Kind { return KindPush }

// FilterTee is selected instead of PushTee when the session's Display
// Manager is enabled. The Engine only distinguishes its Kind from PushTee;
// the throttling policy is driven externally.
type FilterTee struct{ baseTee }

func NewFilterTee(trackID TrackID) *FilterTee {
	return &FilterTee{newBaseTee(trackID)}
}

func (t *FilterTee) Kind() Kind { return KindFilter }
