// Package registry implements the process-level observer pub/sub described
// in spec.md §4.7: external code registers to receive every message the
// Engine emits (NewPeer, PeerLeft, EndpointCrashed, MediaEvent), and
// delivery to a slow observer must never back-pressure the Engine actor
// (spec.md §5, "Shared resources").
package registry

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/relaymesh/engine/internal/common"
)

// Observer receives every message an Engine dispatches.
type Observer interface {
	Notify(Message)
}

// Message is the tagged union of everything an Engine publishes to
// observers (spec.md §6, "Engine → observers", plus the endpoint controls
// of §4.3/§4.4 — NewTracks/RemoveTracks/SetDisplayManager — which reuse the
// same fan-out-then-filter-by-target pattern as MediaEvent).
type Message struct {
	Kind Kind

	NewPeer           *NewPeer
	PeerLeft          *PeerLeft
	EndpointCrash     *EndpointCrashed
	MediaEvent        *MediaEvent
	NewTracks         *NewTracks
	RemoveTracks      *RemoveTracks
	SetDisplayManager *SetDisplayManager
	KeyFrameRequest   *KeyFrameRequest
}

type Kind int

const (
	KindNewPeer Kind = iota
	KindPeerLeft
	KindEndpointCrashed
	KindMediaEvent
	KindNewTracks
	KindRemoveTracks
	KindSetDisplayManager
	KindKeyFrameRequest
)

// KeyFrameRequestKind names which RTCP hint the owning endpoint should act
// on (spec.md §4.8); the Engine never builds the packet itself, only the
// hint of which one to send.
type KeyFrameRequestKind int

const (
	PictureLossIndicator KeyFrameRequestKind = iota
	FullIntraRequest
)

// KeyFrameRequest targets the endpoint owning a track with a request to
// emit a keyframe (spec.md §4.8).
type KeyFrameRequest struct {
	To      string
	TrackID string
	Kind    KeyFrameRequestKind
}

type NewPeer struct{ PeerID string }
type PeerLeft struct{ PeerID string }
type EndpointCrashed struct{ EndpointID string }
type MediaEvent struct {
	To   string
	Data []byte
}

// TrackSnapshot is the endpoint-facing view of a track carried by a
// NewTracks control — deliberately a plain data struct so this package
// doesn't need to import the engine package's Track type.
type TrackSnapshot struct {
	ID                 string
	OwnerEndpointID    string
	Kind               string
	Formats            []string
	SimulcastEncodings []string
	Metadata           map[string]any
}

// NewTracks targets a single endpoint with the tracks it should now know
// about (spec.md §4.3 "Add endpoint", §4.4 "Publish (new tracks)").
type NewTracks struct {
	To     string
	Tracks []TrackSnapshot
}

// RemoveTracks targets a single endpoint with tracks it should tear down
// (spec.md §4.3 "Remove endpoint", §4.4 "Publish (removed tracks)").
type RemoveTracks struct {
	To       string
	TrackIDs []string
}

// SetDisplayManager targets a single endpoint with its display-manager
// flag at admission time (spec.md §4.3 "Add endpoint").
type SetDisplayManager struct {
	To      string
	Enabled bool
}

const (
	observerQueueSize = 64
	observerIdleTime  = time.Hour
)

// Registry owns one Engine's observer set. Registration is idempotent per
// (engine, observer): registering the same Observer twice is a no-op, so
// delivery is never duplicated (spec.md §8, testable property 6).
type Registry struct {
	engineID string
	logger   *logrus.Entry

	mutex   sync.Mutex
	workers map[Observer]*common.Worker[Message]
}

func NewRegistry(engineID string) *Registry {
	return &Registry{
		engineID: engineID,
		logger:   logrus.WithFields(logrus.Fields{"engine_id": engineID, "component": "registry"}),
		workers:  make(map[Observer]*common.Worker[Message]),
	}
}

// Register adds observer to the set that receives future messages. Safe to
// call more than once for the same observer.
func (r *Registry) Register(observer Observer) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, exists := r.workers[observer]; exists {
		return
	}

	worker := common.StartWorker(common.WorkerConfig[Message]{
		ChannelSize: observerQueueSize,
		Timeout:     observerIdleTime,
		OnTimeout:   func() {},
		OnTask:      observer.Notify,
	})

	r.workers[observer] = worker
}

// Unregister removes observer; a no-op if it was never registered.
func (r *Registry) Unregister(observer Observer) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if worker, exists := r.workers[observer]; exists {
		worker.Stop()
		delete(r.workers, observer)
	}
}

// Dispatch fans msg out to every registered observer. Delivery is
// non-blocking per-observer: a saturated observer queue drops the message
// for that observer (logged) rather than stalling the others or the caller.
func (r *Registry) Dispatch(msg Message) {
	r.mutex.Lock()
	workers := make([]*common.Worker[Message], 0, len(r.workers))
	for _, w := range r.workers {
		workers = append(workers, w)
	}
	r.mutex.Unlock()

	for _, worker := range workers {
		if err := worker.Send(msg); err != nil {
			r.logger.WithError(err).Warn("dropped message for a slow observer")
		}
	}
}

// PublishMediaEvent implements mediaevent.Sink.
func (r *Registry) PublishMediaEvent(to string, data []byte) {
	r.Dispatch(Message{Kind: KindMediaEvent, MediaEvent: &MediaEvent{To: to, Data: data}})
}

func (r *Registry) PublishNewPeer(peerID string) {
	r.Dispatch(Message{Kind: KindNewPeer, NewPeer: &NewPeer{PeerID: peerID}})
}

func (r *Registry) PublishPeerLeft(peerID string) {
	r.Dispatch(Message{Kind: KindPeerLeft, PeerLeft: &PeerLeft{PeerID: peerID}})
}

func (r *Registry) PublishEndpointCrashed(endpointID string) {
	r.Dispatch(Message{Kind: KindEndpointCrashed, EndpointCrash: &EndpointCrashed{EndpointID: endpointID}})
}

func (r *Registry) PublishNewTracks(to string, tracks []TrackSnapshot) {
	r.Dispatch(Message{Kind: KindNewTracks, NewTracks: &NewTracks{To: to, Tracks: tracks}})
}

func (r *Registry) PublishRemoveTracks(to string, trackIDs []string) {
	r.Dispatch(Message{Kind: KindRemoveTracks, RemoveTracks: &RemoveTracks{To: to, TrackIDs: trackIDs}})
}

func (r *Registry) PublishSetDisplayManager(to string, enabled bool) {
	r.Dispatch(Message{Kind: KindSetDisplayManager, SetDisplayManager: &SetDisplayManager{To: to, Enabled: enabled}})
}

func (r *Registry) PublishKeyFrameRequest(to, trackID string, kind KeyFrameRequestKind) {
	r.Dispatch(Message{Kind: KindKeyFrameRequest, KeyFrameRequest: &KeyFrameRequest{To: to, TrackID: trackID, Kind: kind}})
}
