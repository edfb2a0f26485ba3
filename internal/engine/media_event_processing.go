package engine

import (
	"github.com/relaymesh/engine/internal/engine/mediaevent"
)

// handleReceiveMediaEvent implements the inbound half of the Media Event
// Codec & Dispatcher (spec.md §4.6): decode, reject unknown peers (except
// join), and route by type. A decode failure is ProtocolError: logged and
// dropped, never torn down.
func (e *Engine) handleReceiveMediaEvent(req receiveMediaEventReq) {
	ev, typeTag, err := mediaevent.Decode(req.raw)
	if err != nil {
		e.logger.WithError(err).WithField("peer_id", req.peerID).Warn("dropping malformed media event")
		return
	}

	_, known := e.store.GetPeer(req.peerID)
	if !known && typeTag != mediaevent.InboundJoin {
		e.logger.WithFields(map[string]any{"peer_id": req.peerID, "type": typeTag}).Warn("media event from an unknown peer, dropping")
		return
	}

	switch typeTag {
	case mediaevent.InboundJoin:
		var data mediaevent.JoinData
		if err := mediaevent.DecodeData(ev, &data); err != nil {
			e.logger.WithError(err).Warn("dropping malformed join event")
			return
		}
		e.handleJoin(req.peerID, data)

	case mediaevent.InboundLeave:
		e.handleLeave(req.peerID)

	case mediaevent.InboundUpdatePeerMetadata:
		var data mediaevent.UpdatePeerMetadataData
		if err := mediaevent.DecodeData(ev, &data); err != nil {
			e.logger.WithError(err).Warn("dropping malformed updatePeerMetadata event")
			return
		}
		e.handleUpdatePeerMetadata(req.peerID, data)

	case mediaevent.InboundUpdateTrackMetadata:
		var data mediaevent.UpdateTrackMetadataData
		if err := mediaevent.DecodeData(ev, &data); err != nil {
			e.logger.WithError(err).Warn("dropping malformed updateTrackMetadata event")
			return
		}
		e.handleUpdateTrackMetadata(req.peerID, data)

	case mediaevent.InboundSelectEncoding:
		var data mediaevent.SelectEncodingData
		if err := mediaevent.DecodeData(ev, &data); err != nil {
			e.logger.WithError(err).Warn("dropping malformed selectEncoding event")
			return
		}
		e.handleSelectEncoding(req.peerID, data.PeerID, data.TrackID, data.Encoding)

	case mediaevent.InboundCustom:
		e.handleCustomMediaEvent(req.peerID, ev.Data)

	default:
		e.logger.WithField("type", typeTag).Warn("dropping media event of unrecognized type")
	}
}

// handleLeave implements a peer's voluntary departure (spec.md §8 S5): same
// teardown as RemovePeer.
func (e *Engine) handleLeave(peerID PeerID) {
	e.removePeer(peerID)
}

func (e *Engine) handleUpdatePeerMetadata(peerID PeerID, data mediaevent.UpdatePeerMetadataData) {
	if err := e.store.UpdatePeerMetadata(peerID, data.Metadata); err != nil {
		e.logger.WithError(err).WithField("peer_id", peerID).Warn("updatePeerMetadata for unknown peer")
		return
	}

	e.dispatchOutbound(mediaevent.Outbound{
		To:   mediaevent.Broadcast,
		Type: mediaevent.OutboundPeerUpdated,
		Data: mediaevent.PeerUpdatedData{Peer: mediaevent.PeerRef{ID: peerID, Metadata: data.Metadata}},
	})
}

// handleUpdateTrackMetadata accepts updates only for tracks owned by the
// requesting peer's own endpoint; referencing another endpoint's track is
// rejected with a warning log, leaving the metadata unchanged and sending
// no event (spec.md §9 Open Questions, resolved this way since the source
// left it unspecified).
func (e *Engine) handleUpdateTrackMetadata(peerID PeerID, data mediaevent.UpdateTrackMetadataData) {
	track, ok := e.store.GetTrack(data.TrackID)
	if !ok {
		e.logger.WithField("track_id", data.TrackID).Warn("updateTrackMetadata for unknown track")
		return
	}
	if track.Owner != EndpointID(peerID) {
		e.logger.WithFields(map[string]any{"peer_id": peerID, "track_id": data.TrackID}).
			Warn("updateTrackMetadata rejected: track is not owned by the requesting peer's endpoint")
		return
	}

	if err := e.store.UpdateTrackMetadata(data.TrackID, data.Metadata); err != nil {
		e.logger.WithError(err).WithField("track_id", data.TrackID).Warn("updateTrackMetadata failed")
		return
	}

	e.dispatchOutbound(mediaevent.Outbound{
		To:   mediaevent.Broadcast,
		Type: mediaevent.OutboundTrackUpdated,
		Data: mediaevent.TrackUpdatedData{PeerID: peerID, TrackID: data.TrackID, Metadata: data.Metadata},
	})
}

// handleCustomMediaEvent passes a custom event through to the owning
// endpoint unmodified (spec.md §4.6 "custom (pass-through to the owning
// endpoint)").
func (e *Engine) handleCustomMediaEvent(peerID PeerID, raw []byte) {
	ep, ok := e.store.GetEndpoint(EndpointID(peerID))
	if !ok {
		e.logger.WithField("peer_id", peerID).Warn("custom media event from a peer with no attached endpoint")
		return
	}
	e.registry.PublishMediaEvent(ep.ID, raw)
}

// handlePublishedCustomEvent relays a custom event an endpoint sent back
// toward its peer.
func (e *Engine) handlePublishedCustomEvent(msg customMediaEventMsg) {
	ep, ok := e.store.GetEndpoint(msg.endpointID)
	if !ok || !ep.IsPeerEndpoint() {
		return
	}
	e.dispatchOutbound(mediaevent.Outbound{To: ep.PeerID, Type: mediaevent.OutboundCustom, Data: msg.raw})
}

// removePeer implements the common teardown for explicit RemovePeer and a
// voluntary `leave` (spec.md §8 S5).
func (e *Engine) removePeer(peerID PeerID) {
	endpointID, removedTracks, subscribersByTrack, ok := e.store.RemovePeer(peerID)
	if !ok {
		e.logger.WithField("peer_id", peerID).Warn("removing an already-gone peer, ignoring")
		return
	}

	if endpointID != "" {
		e.fanRemoveTracks(endpointID, subscribersByTrack)
		for _, trackID := range removedTracks {
			e.graph.RemoveTrack(trackID)
		}
		if len(removedTracks) > 0 {
			e.dispatchOutbound(mediaevent.Outbound{
				To:   mediaevent.Broadcast,
				Type: mediaevent.OutboundTracksRemoved,
				Data: mediaevent.TracksRemovedData{PeerID: peerID, TrackIDs: removedTracks},
			})
		}
	}

	e.dispatchOutbound(mediaevent.Outbound{
		To:   mediaevent.Broadcast,
		Type: mediaevent.OutboundPeerLeft,
		Data: mediaevent.PeerLeftData{PeerID: peerID},
	})
	e.registry.PublishPeerLeft(peerID)
}

// dispatchOutbound encodes and fans out ev, logging (never panicking) on a
// marshal failure — that would indicate an internal bug, not a caller
// error, so the session stays up.
func (e *Engine) dispatchOutbound(ev mediaevent.Outbound) {
	if err := e.dispatch.Dispatch(ev); err != nil {
		e.logger.WithError(err).WithField("type", ev.Type).Error("failed to encode outbound media event")
	}
}
