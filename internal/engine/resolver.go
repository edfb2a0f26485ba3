package engine

import (
	"time"

	"github.com/relaymesh/engine/internal/engine/mediaevent"
	"github.com/relaymesh/engine/internal/engine/registry"
	"github.com/relaymesh/engine/internal/engine/routing"
)

// handlePublishNewTracks implements "Publish (new tracks)" (spec.md §4.4).
func (e *Engine) handlePublishNewTracks(msg publishNewTracksMsg) {
	added := e.store.MergeNewTracks(msg.tracks)
	if len(added) == 0 {
		return
	}

	for _, otherID := range e.otherEndpointIDs(msg.endpointID) {
		e.registry.PublishNewTracks(otherID, toTrackSnapshots(added))
	}

	owner, _ := e.store.GetEndpoint(msg.endpointID)
	e.dispatchOutbound(mediaevent.Outbound{
		To:   mediaevent.Broadcast,
		Type: mediaevent.OutboundTracksAdded,
		Data: mediaevent.TracksAddedData{PeerID: owner.PeerID, TrackIDToMetadata: activeMetadataMap(e.activeOnly(added))},
	})
}

// handlePublishRemovedTracks implements "Publish (removed tracks)"
// (spec.md §4.4).
func (e *Engine) handlePublishRemovedTracks(msg publishRemovedTracksMsg) {
	removed, subscribersByTrack := e.store.MergeRemovedTracks(msg.trackIDs)
	if len(removed) == 0 {
		return
	}

	var removedIDs []TrackID
	for _, t := range removed {
		removedIDs = append(removedIDs, t.ID)
		e.graph.RemoveTrack(t.ID)
	}

	e.fanRemoveTracks(msg.endpointID, subscribersByTrack)

	owner, _ := e.store.GetEndpoint(msg.endpointID)
	e.dispatchOutbound(mediaevent.Outbound{
		To:   mediaevent.Broadcast,
		Type: mediaevent.OutboundTracksRemoved,
		Data: mediaevent.TracksRemovedData{PeerID: owner.PeerID, TrackIDs: removedIDs},
	})
}

// handleTrackReady implements "Track-ready" (spec.md §4.4): records the
// filter/encoding, builds or reuses the track's Tee, drains pending
// subscriptions in FIFO order, and installs the resulting graph edits as
// one atomic spec (spec.md §9 "Graph edits as specs").
func (e *Engine) handleTrackReady(msg trackReadyMsg) {
	if msg.rid != "" {
		e.store.AddSimulcastEncoding(msg.trackID, msg.rid)
	}

	track, err := e.store.MarkTrackReady(msg.trackID, msg.encoding, msg.filter)
	if err != nil {
		e.logger.WithError(err).WithField("track_id", msg.trackID).Warn("track-ready for unknown track")
		return
	}

	desc := routing.TrackDescriptor{
		Simulcast:      track.IsSimulcast(),
		Encodings:      track.SimulcastEncodings,
		DisplayManager: e.config.DisplayManager,
	}
	_, _ = e.graph.EnsureTee(msg.trackID, desc, e.onEncodingSwitched(msg.trackID))

	for _, sub := range e.store.DrainPendingForTrack(msg.trackID) {
		if err := e.fulfillSubscription(sub); err != nil {
			e.logger.WithError(err).WithField("track_id", msg.trackID).Warn("failed to fulfill drained subscription")
			if sub.reply != nil {
				sub.reply <- err
			}
			continue
		}
		if sub.reply != nil {
			sub.reply <- nil
		}
	}
}

func (e *Engine) onEncodingSwitched(trackID TrackID) func(routing.EncodingSwitched) {
	return func(ev routing.EncodingSwitched) {
		e.mailbox <- encodingSwitchedMsg{trackID: trackID, receiverID: EndpointID(ev.Receiver), encoding: ev.Encoding}
	}
}

// handleSubscribe implements "Subscribe" (spec.md §4.4) including its
// short-circuit validation order.
func (e *Engine) handleSubscribe(req subscribeReq) {
	track, exists := e.store.GetTrack(req.trackID)
	if !exists {
		req.reply <- errTrackInvalid(req.trackID)
		return
	}
	if !track.acceptsFormat(req.format) {
		req.reply <- errFormatInvalid(req.format)
		return
	}
	if track.IsSimulcast() && req.opts.DefaultSimulcastEncoding != "" && !track.hasEncoding(req.opts.DefaultSimulcastEncoding) {
		req.reply <- errSimulcastEncodingInvalid(req.opts.DefaultSimulcastEncoding)
		return
	}

	sub := &Subscription{
		EndpointID: req.endpointID,
		TrackID:    req.trackID,
		Format:     req.format,
		Opts:       req.opts,
		Status:     SubscriptionPending,
		reply:      make(chan error, 1),
	}

	if e.graph.Exists(req.trackID) {
		if err := e.fulfillSubscription(sub); err != nil {
			req.reply <- err
			return
		}
		go waitForReply(sub.reply, req.reply, subscribeTimeout)
		sub.reply <- nil
		return
	}

	e.store.AddPendingSubscription(sub)
	go waitForReply(sub.reply, req.reply, subscribeTimeout)
}

// waitForReply relays the actor's eventual fulfillment signal to the
// original caller, surfacing ErrTimeout if none arrives in time
// (spec.md §4.4 "acceptance waits synchronously with a 5-second timeout").
func waitForReply(internal <-chan error, caller chan<- error, timeout time.Duration) {
	select {
	case err := <-internal:
		caller <- err
	case <-time.After(timeout):
		caller <- ErrTimeout
	}
}

// fulfillSubscription links the subscriber into the routing graph,
// materializing the raw branch first if requested and not yet built
// (spec.md §4.5 "Tie-breaks / edge cases").
func (e *Engine) fulfillSubscription(sub *Subscription) error {
	raw := sub.Format == FormatRaw
	if raw {
		track, _ := e.store.GetTrack(sub.TrackID)
		filterName := ""
		if track.Filter != nil {
			filterName = track.Filter.Name
		}
		if _, _, err := e.graph.EnsureRawBranch(sub.TrackID, filterName); err != nil {
			return err
		}
	}

	if _, err := e.graph.Link(sub.TrackID, routing.SubscriberID(sub.EndpointID), raw, sub.Opts.DefaultSimulcastEncoding); err != nil {
		return err
	}

	e.store.AddActiveSubscription(sub)
	return nil
}

// handleSelectEncoding implements "Select encoding" (spec.md §4.4).
// subscriberPeerID is the peer that sent the selectEncoding Media Event
// (the subscriber); ownerPeerID is the wire payload's peer field, which
// names the track's owner and must be validated against it.
func (e *Engine) handleSelectEncoding(subscriberPeerID PeerID, ownerPeerID PeerID, trackID TrackID, encoding string) {
	subscriberID := EndpointID(subscriberPeerID)

	track, ok := e.store.GetTrack(trackID)
	if !ok || !track.hasEncoding(encoding) {
		e.logger.WithFields(map[string]any{"peer_id": subscriberPeerID, "track_id": trackID, "encoding": encoding}).Warn("selectEncoding for an encoding the track doesn't offer")
		return
	}
	if track.Owner != EndpointID(ownerPeerID) {
		e.logger.WithFields(map[string]any{"peer_id": ownerPeerID, "track_id": trackID}).Warn("selectEncoding rejected: peer does not own the track")
		return
	}

	if _, ok := e.store.GetActiveSubscription(trackID, subscriberID); !ok {
		e.logger.WithFields(map[string]any{"peer_id": subscriberPeerID, "track_id": trackID}).Warn("selectEncoding from a subscriber with no active subscription")
		return
	}

	tee, ok := e.graph.SimulcastTeeFor(trackID)
	if !ok {
		e.logger.WithField("track_id", trackID).Warn("selectEncoding for a non-simulcast track")
		return
	}
	if err := tee.SelectEncoding(routing.SubscriberID(subscriberID), encoding); err != nil {
		e.logger.WithError(err).WithField("track_id", trackID).Warn("selectEncoding rejected by simulcast tee")
	}
}

// handleEncodingSwitched implements "Encoding switched (notification in)"
// (spec.md §4.4).
func (e *Engine) handleEncodingSwitched(msg encodingSwitchedMsg) {
	track, ok := e.store.GetTrack(msg.trackID)
	if !ok {
		return
	}

	e.dispatchOutbound(mediaevent.Outbound{
		To:   PeerID(msg.receiverID),
		Type: mediaevent.OutboundEncodingSwitched,
		Data: mediaevent.EncodingSwitchedData{PeerID: track.Owner, TrackID: msg.trackID, Encoding: msg.encoding},
	})
}

func (e *Engine) otherEndpointIDs(exclude EndpointID) []EndpointID {
	var ids []EndpointID
	e.store.ForEachEndpoint(func(ep *Endpoint) {
		if ep.ID != exclude {
			ids = append(ids, ep.ID)
		}
	})
	return ids
}

func (e *Engine) activeOnly(tracks []Track) []Track {
	var active []Track
	for _, t := range tracks {
		if t.Active {
			active = append(active, t)
		}
	}
	return active
}

func activeMetadataMap(tracks []Track) map[string]map[string]any {
	if len(tracks) == 0 {
		return nil
	}
	m := make(map[string]map[string]any, len(tracks))
	for _, t := range tracks {
		m[t.ID] = t.Metadata
	}
	return m
}

func toTrackSnapshots(tracks []Track) []registry.TrackSnapshot {
	out := make([]registry.TrackSnapshot, 0, len(tracks))
	for _, t := range tracks {
		out = append(out, registry.TrackSnapshot{
			ID:                 t.ID,
			OwnerEndpointID:    t.Owner,
			Kind:               t.Kind.String(),
			Formats:            t.Formats,
			SimulcastEncodings: t.SimulcastEncodings,
			Metadata:           t.Metadata,
		})
	}
	return out
}
