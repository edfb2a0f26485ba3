package engine

import "github.com/relaymesh/engine/internal/engine/mediaevent"

// handleAddEndpoint implements the Endpoint Lifecycle Manager's Add
// endpoint operation (spec.md §4.3). The endpoint and peer options are
// mutually exclusive by construction of addEndpointReq — api.go rejects
// specifying both before this ever reaches the mailbox.
func (e *Engine) handleAddEndpoint(req addEndpointReq) {
	if req.peerID != "" {
		if _, exists := e.store.GetPeer(req.peerID); !exists {
			e.logger.WithField("peer_id", req.peerID).Warn("AddEndpoint referenced a nonexistent peer, dropping")
			req.reply <- addEndpointResult{err: errNotFoundf("peer %s", req.peerID)}
			return
		}
	}

	id := req.endpointID
	if id == "" {
		id = req.peerID
	}
	if _, exists := e.store.GetEndpoint(id); exists {
		e.logger.WithField("endpoint_id", id).Warn("endpoint already exists, ignoring duplicate add")
		req.reply <- addEndpointResult{endpointID: id}
		return
	}

	ep := newEndpoint(id, req.peerID, req.node)
	e.store.AddEndpoint(ep)

	// SetDisplayManager and NewTracks are endpoint controls, not Media
	// Events; they travel through the Registry the same way (spec.md §4.3
	// "Add endpoint") so an endpoint only needs to register once to
	// receive both kinds of message.
	e.registry.PublishSetDisplayManager(ep.ID, e.config.DisplayManager)

	var activeTracks []Track
	e.store.ForEachActiveTrack(func(t Track) { activeTracks = append(activeTracks, t) })
	if len(activeTracks) > 0 {
		e.registry.PublishNewTracks(ep.ID, toTrackSnapshots(activeTracks))
	}

	req.reply <- addEndpointResult{endpointID: id}
}

// handleRemoveEndpoint implements Remove endpoint (spec.md §4.3).
func (e *Engine) handleRemoveEndpoint(req removeEndpointReq) {
	e.removeEndpoint(req.id, false)
	close(req.reply)
}

// handleEndpointCrashed implements Crash containment (spec.md §4.3).
func (e *Engine) handleEndpointCrashed(msg endpointCrashedMsg) {
	ep, ok := e.store.GetEndpoint(msg.endpointID)
	if !ok {
		return
	}

	if ep.IsPeerEndpoint() {
		e.dispatchOutbound(mediaevent.Outbound{
			To:   ep.PeerID,
			Type: mediaevent.OutboundPeerRemoved,
			Data: mediaevent.PeerRemovedData{PeerID: ep.PeerID, Reason: "Internal server error"},
		})
	}
	e.registry.PublishEndpointCrashed(msg.endpointID)

	e.removeEndpoint(msg.endpointID, true)
}

// removeEndpoint is the shared teardown path for explicit removal and crash
// containment (peer leave goes through removePeer): fan RemoveTracks to subscribers, broadcast
// tracksRemoved, tear down the endpoint's Tees, and finally drop its
// record. crashed only affects logging.
func (e *Engine) removeEndpoint(id EndpointID, crashed bool) {
	ep, ok := e.store.GetEndpoint(id)
	if !ok {
		reason := "explicit removal"
		if crashed {
			reason = "crash"
		}
		e.logger.WithField("endpoint_id", id).WithField("reason", reason).Warn("removing an already-gone endpoint, ignoring")
		return
	}

	removedTrackIDs, subscribersByTrack, _ := e.store.RemoveEndpoint(id)

	e.fanRemoveTracks(id, subscribersByTrack)
	for _, trackID := range removedTrackIDs {
		e.graph.RemoveTrack(trackID)
	}
	if len(removedTrackIDs) > 0 {
		e.dispatchOutbound(mediaevent.Outbound{
			To:   mediaevent.Broadcast,
			Type: mediaevent.OutboundTracksRemoved,
			Data: mediaevent.TracksRemovedData{PeerID: ep.PeerID, TrackIDs: removedTrackIDs},
		})
	}

	if ep.IsPeerEndpoint() {
		e.dispatchOutbound(mediaevent.Outbound{
			To:   mediaevent.Broadcast,
			Type: mediaevent.OutboundPeerLeft,
			Data: mediaevent.PeerLeftData{PeerID: ep.PeerID},
		})
	}
}

// fanRemoveTracks notifies every other endpoint with an active subscription
// to a removed track, per spec.md §4.3 ("only for those tracks to which
// each other endpoint has an active subscription"). subscribersByTrack must
// be captured by the caller before the store tears the tracks down —
// store.RemoveEndpoint/MergeRemovedTracks already delete each track's
// active-subscription set as part of removal, so querying it afterward
// would always come back empty.
func (e *Engine) fanRemoveTracks(owner EndpointID, subscribersByTrack map[TrackID][]EndpointID) {
	targets := make(map[EndpointID][]TrackID)
	for trackID, subscribers := range subscribersByTrack {
		for _, subscriberID := range subscribers {
			if subscriberID == owner {
				continue
			}
			targets[subscriberID] = append(targets[subscriberID], trackID)
		}
	}
	for subscriberID, ids := range targets {
		e.registry.PublishRemoveTracks(subscriberID, ids)
	}
}
