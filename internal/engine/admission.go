package engine

import "github.com/relaymesh/engine/internal/engine/mediaevent"

// handleJoin implements the Peer Admission Controller's entry point
// (spec.md §4.2). It never blocks the actor: it records the pending join
// and publishes NewPeer, then returns. AcceptPeer/DenyPeer arrive later as
// ordinary mailbox messages and consume the entry (spec.md §9).
func (e *Engine) handleJoin(peerID PeerID, data mediaevent.JoinData) {
	if _, exists := e.awaitingDecision[peerID]; exists {
		e.logger.WithField("peer_id", peerID).Warn("duplicate join while awaiting admission decision, ignoring")
		return
	}
	if _, exists := e.store.GetPeer(peerID); exists {
		e.logger.WithField("peer_id", peerID).Warn("join from an already-admitted peer, ignoring")
		return
	}

	e.awaitingDecision[peerID] = pendingJoin{peer: Peer{ID: peerID, Metadata: data.Metadata}}
	e.registry.PublishNewPeer(peerID)
}

// handleAcceptPeer fulfills a pending join (spec.md §4.2). A mismatched
// peer_id — one with no pending decision — is logged, changes no state
// (other pending joins keep waiting), and is reported to the caller as
// ErrNotFound.
func (e *Engine) handleAcceptPeer(req acceptPeerReq) {
	pending, ok := e.awaitingDecision[req.id]
	if !ok {
		e.logger.WithField("peer_id", req.id).Warn("AcceptPeer for a peer with no pending admission decision")
		req.reply <- errNotFoundf("peer %s", req.id)
		return
	}
	delete(e.awaitingDecision, req.id)

	e.store.AddPeer(pending.peer)

	// peerAccepted must precede the peerJoined broadcast (spec.md §5(c)).
	e.dispatchOutbound(e.buildPeerAcceptedEvent(pending.peer))
	e.dispatchOutbound(mediaevent.Outbound{
		To:   mediaevent.Broadcast,
		Type: mediaevent.OutboundPeerJoined,
		Data: mediaevent.PeerJoinedData{Peer: mediaevent.PeerRef{ID: pending.peer.ID, Metadata: pending.peer.Metadata}},
	})

	req.reply <- nil
}

// handleDenyPeer rejects a pending join; state is left unchanged
// (spec.md §4.2 S2).
func (e *Engine) handleDenyPeer(req denyPeerReq) {
	_, ok := e.awaitingDecision[req.id]
	if !ok {
		e.logger.WithField("peer_id", req.id).Warn("DenyPeer for a peer with no pending admission decision")
		req.reply <- errNotFoundf("peer %s", req.id)
		return
	}
	delete(e.awaitingDecision, req.id)

	e.dispatchOutbound(mediaevent.Outbound{
		To:   req.id,
		Type: mediaevent.OutboundPeerDenied,
		Data: mediaevent.PeerDeniedData{Data: req.data},
	})

	req.reply <- nil
}

// buildPeerAcceptedEvent assembles the snapshot of the room handed to a
// newly accepted peer (spec.md §4.2: "carrying snapshot of other peers and
// their active tracks").
func (e *Engine) buildPeerAcceptedEvent(newPeer Peer) mediaevent.Outbound {
	var peersInRoom []mediaevent.PeerInRoom
	e.store.ForEachPeer(func(p Peer) {
		if p.ID == newPeer.ID {
			return
		}
		peersInRoom = append(peersInRoom, mediaevent.PeerInRoom{
			ID:                p.ID,
			Metadata:          p.Metadata,
			TrackIDToMetadata: e.activeTrackMetadataFor(p.ID),
		})
	})

	return mediaevent.Outbound{
		To:   newPeer.ID,
		Type: mediaevent.OutboundPeerAccepted,
		Data: mediaevent.PeerAcceptedData{ID: newPeer.ID, PeersInRoom: peersInRoom},
	}
}

// activeTrackMetadataFor returns trackId -> metadata for every active track
// whose owning endpoint is peerID's Peer Endpoint.
func (e *Engine) activeTrackMetadataFor(peerID PeerID) map[string]map[string]any {
	result := make(map[string]map[string]any)
	e.store.ForEachActiveTrack(func(t Track) {
		if t.Owner == EndpointID(peerID) {
			result[t.ID] = t.Metadata
		}
	})
	if len(result) == 0 {
		return nil
	}
	return result
}
