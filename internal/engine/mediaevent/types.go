// Package mediaevent implements the Media Event Codec & Dispatcher
// (spec.md §4.6): parsing inbound control messages, serializing outbound
// ones, and fanning the latter out by target (a specific peer, or
// broadcast). Per spec.md, the wire format is "opaque binary at the
// transport edge" — callers only ever see already-serialized []byte: the
// codec's job is purely to produce/consume that, never to hand a parsed
// struct across the Engine's public boundary.
package mediaevent

import "encoding/json"

// InboundType enumerates the Media Event types the Engine accepts.
type InboundType string

const (
	InboundJoin                InboundType = "join"
	InboundLeave               InboundType = "leave"
	InboundUpdatePeerMetadata  InboundType = "updatePeerMetadata"
	InboundUpdateTrackMetadata InboundType = "updateTrackMetadata"
	InboundSelectEncoding      InboundType = "selectEncoding"
	InboundCustom              InboundType = "custom"
)

// OutboundType enumerates the Media Event types the Engine emits.
type OutboundType string

const (
	OutboundPeerAccepted     OutboundType = "peerAccepted"
	OutboundPeerDenied       OutboundType = "peerDenied"
	OutboundPeerJoined       OutboundType = "peerJoined"
	OutboundPeerLeft         OutboundType = "peerLeft"
	OutboundPeerUpdated      OutboundType = "peerUpdated"
	OutboundPeerRemoved      OutboundType = "peerRemoved"
	OutboundTracksAdded      OutboundType = "tracksAdded"
	OutboundTracksRemoved    OutboundType = "tracksRemoved"
	OutboundTrackUpdated     OutboundType = "trackUpdated"
	OutboundTracksPriority   OutboundType = "tracksPriority"
	OutboundEncodingSwitched OutboundType = "encodingSwitched"
	OutboundCustom           OutboundType = "custom"
)

// Inbound is a decoded inbound Media Event: a type tag plus its
// type-specific payload, still opaque (raw JSON) until the caller that
// knows the expected shape unmarshals it.
type Inbound struct {
	Type InboundType     `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Broadcast is the wildcard recipient for an outbound event's target.
const Broadcast = ""

// Outbound is an outbound Media Event together with its delivery target:
// Broadcast ("") or a specific peer ID (spec.md §4.6, "{to: :broadcast |
// peer_id}").
type Outbound struct {
	To   string
	Type OutboundType
	Data any
}

// Payload shapes for the type-specific `data` field, named after the
// fields documented in spec.md §6.

type JoinData struct {
	Metadata map[string]any `json:"metadata"`
}

type UpdatePeerMetadataData struct {
	Metadata map[string]any `json:"metadata"`
}

type UpdateTrackMetadataData struct {
	TrackID  string         `json:"trackId"`
	Metadata map[string]any `json:"metadata"`
}

type SelectEncodingData struct {
	PeerID   string `json:"peerId"`
	TrackID  string `json:"trackId"`
	Encoding string `json:"encoding"`
}

type PeerInRoom struct {
	ID                string                    `json:"id"`
	Metadata          map[string]any            `json:"metadata"`
	TrackIDToMetadata map[string]map[string]any `json:"trackIdToMetadata"`
}

type PeerAcceptedData struct {
	ID           string       `json:"id"`
	PeersInRoom  []PeerInRoom `json:"peersInRoom"`
}

type PeerDeniedData struct {
	Data json.RawMessage `json:"data,omitempty"`
}

type PeerRef struct {
	ID       string         `json:"id"`
	Metadata map[string]any `json:"metadata"`
}

type PeerJoinedData struct {
	Peer PeerRef `json:"peer"`
}

type PeerLeftData struct {
	PeerID string `json:"peerId"`
}

type PeerUpdatedData struct {
	Peer PeerRef `json:"peer"`
}

type PeerRemovedData struct {
	PeerID string `json:"peerId"`
	Reason string `json:"reason"`
}

type TracksAddedData struct {
	PeerID            string                    `json:"peerId"`
	TrackIDToMetadata map[string]map[string]any `json:"trackIdToMetadata"`
}

type TracksRemovedData struct {
	PeerID   string   `json:"peerId"`
	TrackIDs []string `json:"trackIds"`
}

type TrackUpdatedData struct {
	PeerID   string         `json:"peerId"`
	TrackID  string         `json:"trackId"`
	Metadata map[string]any `json:"metadata"`
}

type EncodingSwitchedData struct {
	PeerID   string `json:"peerId"`
	TrackID  string `json:"trackId"`
	Encoding string `json:"encoding"`
}
