package engine

import (
	"github.com/pion/webrtc/v3"
)

type (
	PeerID     = string
	EndpointID = string
	TrackID    = string
)

// Peer is a participant identity admitted by the application (spec.md §3).
type Peer struct {
	ID       PeerID
	Metadata map[string]any
}

func (p Peer) clone() Peer {
	return Peer{ID: p.ID, Metadata: cloneMetadata(p.Metadata)}
}

// Endpoint is a media-processing unit that publishes and/or subscribes to
// tracks (spec.md §3). A Peer Endpoint has PeerID == ID; a Standalone
// Endpoint's PeerID is empty.
type Endpoint struct {
	ID     EndpointID
	PeerID PeerID // empty for a Standalone Endpoint
	Node   string // deployment locality hint, opaque to the Engine

	// InboundTrackIDs and OfferedTrackIDs are created empty and are not
	// filled by the Engine: the tracks an endpoint publishes are found via
	// Track.Owner, and the tracks sent to it in NewTracks are not recorded.
	InboundTrackIDs map[TrackID]struct{}
	OfferedTrackIDs map[TrackID]struct{}
}

func newEndpoint(id EndpointID, peerID PeerID, node string) *Endpoint {
	return &Endpoint{
		ID:              id,
		PeerID:          peerID,
		Node:            node,
		InboundTrackIDs: make(map[TrackID]struct{}),
		OfferedTrackIDs: make(map[TrackID]struct{}),
	}
}

func (e *Endpoint) IsPeerEndpoint() bool { return e.PeerID != "" }

// MediaKind mirrors spec.md's `audio | video` media type.
type MediaKind int

const (
	MediaKindAudio MediaKind = iota
	MediaKindVideo
)

func (k MediaKind) String() string {
	if k == MediaKindAudio {
		return "audio"
	}
	return "video"
}

// FormatRaw is the reserved "raw" delivery format every track implicitly
// accepts in addition to whatever remote formats it lists (spec.md §3).
const FormatRaw = "raw"

// DepayloadingFilter names the depayloading filter the data plane should
// instantiate for a track's raw-format branch; supplied by the publishing
// endpoint at track-ready time (spec.md §4.4).
type DepayloadingFilter struct {
	Name string
}

// Track is a uniquely identified media stream published by one endpoint
// (spec.md §3).
type Track struct {
	ID      TrackID
	Owner   EndpointID
	Kind    MediaKind
	Codec   webrtc.RTPCodecCapability
	Formats []string // accepted delivery formats, beyond the implicit "raw"

	// SimulcastEncodings is non-empty only for a simulcast track.
	SimulcastEncodings []string

	Active   bool
	Metadata map[string]any

	// Filter is set once the owner reports track-ready.
	Filter *DepayloadingFilter
	// Encoding is the track's primary encoding (codec tag), refreshed on
	// track-ready.
	Encoding string
}

func (t Track) IsSimulcast() bool { return len(t.SimulcastEncodings) > 0 }

func (t Track) acceptsFormat(format string) bool {
	if format == FormatRaw {
		return true
	}
	for _, f := range t.Formats {
		if f == format {
			return true
		}
	}
	return false
}

func (t Track) hasEncoding(encoding string) bool {
	for _, e := range t.SimulcastEncodings {
		if e == encoding {
			return true
		}
	}
	return false
}

func (t Track) clone() Track {
	c := t
	c.Formats = append([]string(nil), t.Formats...)
	c.SimulcastEncodings = append([]string(nil), t.SimulcastEncodings...)
	c.Metadata = cloneMetadata(t.Metadata)
	return c
}

// SubscriptionStatus is a Subscription's lifecycle state (spec.md §3).
type SubscriptionStatus int

const (
	SubscriptionPending SubscriptionStatus = iota
	SubscriptionActive
)

// SubscriptionOpts carries the optional knobs a caller may pass to
// Subscribe (spec.md §6).
type SubscriptionOpts struct {
	DefaultSimulcastEncoding string
}

// Subscription is an endpoint's desire — pending or active — to receive a
// specific track in a specific format (spec.md §3).
type Subscription struct {
	EndpointID EndpointID
	TrackID    TrackID
	Format     string
	Opts       SubscriptionOpts
	Status     SubscriptionStatus

	// reply, when non-nil, is signaled exactly once: nil when this
	// subscription is fulfilled (immediately or on track-ready), or the
	// error if fulfillment fails. Subscribe's synchronous 5s wait reads
	// from it.
	reply chan error
}

func cloneMetadata(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	c := make(map[string]any, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}
