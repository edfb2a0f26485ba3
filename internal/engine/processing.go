package engine

import (
	"time"

	"github.com/relaymesh/engine/internal/engine/registry"
)

// run is the Engine's single-threaded cooperative actor loop (spec.md §5):
// exactly one message is processed to completion before the next is taken
// off the mailbox, so none of the components above need their own locking.
func (e *Engine) run() {
	defer close(e.done)
	defer e.trace.End()

	for msg := range e.mailbox {
		e.process(msg)
		if _, stopping := msg.(stopReq); stopping {
			return
		}
	}
}

//nolint:gocyclo // a single dispatch switch over the mailbox's message catalogue is the idiomatic shape for this actor.
func (e *Engine) process(msg any) {
	switch m := msg.(type) {
	case addPeerReq:
		e.handleAddPeer(m)
	case removePeerReq:
		e.removePeer(m.id)
		close(m.reply)
	case acceptPeerReq:
		e.handleAcceptPeer(m)
	case denyPeerReq:
		e.handleDenyPeer(m)
	case addEndpointReq:
		e.handleAddEndpoint(m)
	case removeEndpointReq:
		e.handleRemoveEndpoint(m)
	case registerReq:
		e.registry.Register(m.observer)
		close(m.reply)
	case unregisterReq:
		e.registry.Unregister(m.observer)
		close(m.reply)
	case subscribeReq:
		e.handleSubscribe(m)
	case receiveMediaEventReq:
		e.handleReceiveMediaEvent(m)
	case requestKeyFrameReq:
		e.handleRequestKeyFrame(m)
	case trackReadyMsg:
		e.handleTrackReady(m)
	case publishNewTracksMsg:
		e.handlePublishNewTracks(m)
	case publishRemovedTracksMsg:
		e.handlePublishRemovedTracks(m)
	case customMediaEventMsg:
		e.handlePublishedCustomEvent(m)
	case encodingSwitchedMsg:
		e.handleEncodingSwitched(m)
	case endpointCrashedMsg:
		e.handleEndpointCrashed(m)
	case stopReq:
		if m.done != nil {
			close(m.done)
		}
	default:
		e.logger.WithField("type", m).Warn("unrecognized actor message, dropping")
	}
}

// handleAddPeer inserts a peer outside the admission handshake — used by
// callers (e.g. a Standalone Endpoint's controlling process) that already
// hold an admission decision made elsewhere. Duplicate IDs are a no-op,
// per spec.md §4.1.
func (e *Engine) handleAddPeer(req addPeerReq) {
	e.store.AddPeer(req.peer)
	req.reply <- nil
}

// handleRequestKeyFrame forwards a keyframe request hint to the owning
// endpoint, rate-limited to once per keyFrameRequestInterval per track
// (spec.md §4.8). The actual RTCP PLI/FIR generation is the data plane's
// job (spec.md §1); the Engine only needs to know which endpoint to tell
// and which hint to send.
func (e *Engine) handleRequestKeyFrame(req requestKeyFrameReq) {
	track, ok := e.store.GetTrack(req.trackID)
	if !ok {
		e.logger.WithField("track_id", req.trackID).Warn("RequestKeyFrame for unknown track")
		return
	}

	if last, seen := e.lastKeyFrameRequest[req.trackID]; seen && time.Since(last) < keyFrameRequestInterval {
		return
	}
	e.lastKeyFrameRequest[req.trackID] = time.Now()

	kind := registry.PictureLossIndicator
	if track.IsSimulcast() {
		kind = registry.FullIntraRequest
	}
	e.registry.PublishKeyFrameRequest(track.Owner, req.trackID, kind)
}
