package engine

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// store is the Session State Store (spec.md §4.1): the single authoritative
// in-memory record of peers, endpoints, tracks, and subscriptions. It is
// mutated exclusively from the Engine actor's goroutine, so none of its
// methods take a lock — the single-consumer discipline described in
// spec.md §5 is what makes that safe.
type store struct {
	logger *logrus.Entry

	peers     map[PeerID]*Peer
	endpoints map[EndpointID]*Endpoint
	tracks    map[TrackID]*Track

	// active subscriptions, keyed by track then subscriber.
	active map[TrackID]map[EndpointID]*Subscription
	// pending subscriptions, in insertion order across the whole session;
	// draining a track filters this slice and preserves relative order.
	pending []*Subscription
}

func newStore(logger *logrus.Entry) *store {
	return &store{
		logger:    logger,
		peers:     make(map[PeerID]*Peer),
		endpoints: make(map[EndpointID]*Endpoint),
		tracks:    make(map[TrackID]*Track),
		active:    make(map[TrackID]map[EndpointID]*Subscription),
	}
}

// AddPeer inserts a new peer. A duplicate ID is a no-op (spec.md §4.1).
func (s *store) AddPeer(peer Peer) {
	if _, exists := s.peers[peer.ID]; exists {
		s.logger.WithField("peer_id", peer.ID).Warn("peer already exists, ignoring duplicate add")
		return
	}
	s.peers[peer.ID] = &peer
}

func (s *store) GetPeer(id PeerID) (Peer, bool) {
	p, ok := s.peers[id]
	if !ok {
		return Peer{}, false
	}
	return p.clone(), true
}

func (s *store) ForEachPeer(fn func(Peer)) {
	for _, p := range s.peers {
		fn(p.clone())
	}
}

func (s *store) UpdatePeerMetadata(id PeerID, metadata map[string]any) error {
	p, ok := s.peers[id]
	if !ok {
		return fmt.Errorf("%w: peer %s", ErrNotFound, id)
	}
	p.Metadata = metadata
	return nil
}

// RemovePeer removes a peer along with its attached endpoint and every
// track that endpoint owned, atomically (spec.md §4.1). It returns the
// endpoint ID that was attached (if any), the set of track IDs removed,
// and each removed track's subscriber set captured before teardown (so
// the caller can still notify them — see RemoveEndpoint).
func (s *store) RemovePeer(id PeerID) (endpointID EndpointID, removedTracks []TrackID, subscribersByTrack map[TrackID][]EndpointID, ok bool) {
	if _, exists := s.peers[id]; !exists {
		return "", nil, nil, false
	}
	delete(s.peers, id)

	// A Peer Endpoint always shares the peer's ID (spec.md §3).
	if _, hasEndpoint := s.endpoints[id]; hasEndpoint {
		removed, subs, _ := s.RemoveEndpoint(id)
		return id, removed, subs, true
	}

	return "", nil, nil, true
}

// AddEndpoint inserts a new endpoint. A duplicate ID is a no-op.
func (s *store) AddEndpoint(ep *Endpoint) bool {
	if _, exists := s.endpoints[ep.ID]; exists {
		s.logger.WithField("endpoint_id", ep.ID).Warn("endpoint already exists, ignoring duplicate add")
		return false
	}
	s.endpoints[ep.ID] = ep
	return true
}

func (s *store) GetEndpoint(id EndpointID) (*Endpoint, bool) {
	ep, ok := s.endpoints[id]
	return ep, ok
}

func (s *store) ForEachEndpoint(fn func(*Endpoint)) {
	for _, ep := range s.endpoints {
		fn(ep)
	}
}

func (s *store) HasEndpoints() bool { return len(s.endpoints) != 0 }

// RemoveEndpoint removes an endpoint and every track it owns, along with
// any subscriptions (pending or active) that reference it as either
// subscriber or owner. Returns the set of track IDs that were removed,
// plus each one's subscriber set as it stood immediately before teardown —
// removeTrackLocked deletes s.active[trackID] as part of removing the
// track, so a caller that queried SubscribersOf afterward would always
// see none; capturing it here is the only way the caller can still fan
// RemoveTracks out to them (spec.md §4.3).
func (s *store) RemoveEndpoint(id EndpointID) ([]TrackID, map[TrackID][]EndpointID, bool) {
	if _, exists := s.endpoints[id]; !exists {
		return nil, nil, false
	}
	delete(s.endpoints, id)

	var removedTracks []TrackID
	subscribersByTrack := make(map[TrackID][]EndpointID)
	for trackID, track := range s.tracks {
		if track.Owner == id {
			removedTracks = append(removedTracks, trackID)
			subscribersByTrack[trackID] = s.SubscribersOf(trackID)
			s.removeTrackLocked(trackID)
		}
	}

	// Cancel this endpoint's own subscriptions (pending and active),
	// wherever else they point (spec.md §5 "Cancellation").
	s.cancelSubscriptionsForEndpoint(id)

	return removedTracks, subscribersByTrack, true
}

// GetTrack returns a copy of a track record.
func (s *store) GetTrack(id TrackID) (Track, bool) {
	t, ok := s.tracks[id]
	if !ok {
		return Track{}, false
	}
	return t.clone(), true
}

func (s *store) ForEachActiveTrack(fn func(Track)) {
	for _, t := range s.tracks {
		if t.Active {
			fn(t.clone())
		}
	}
}

func (s *store) UpdateTrackMetadata(id TrackID, metadata map[string]any) error {
	t, ok := s.tracks[id]
	if !ok {
		return fmt.Errorf("%w: track %s", ErrNotFound, id)
	}
	t.Metadata = metadata
	return nil
}

// MergeNewTracks inserts tracks as inactive placeholders the first time
// they're seen (spec.md §4.4 "Publish (new tracks)"). Returns only the
// tracks that were newly inserted.
func (s *store) MergeNewTracks(tracks []Track) []Track {
	var added []Track
	for _, t := range tracks {
		if _, exists := s.tracks[t.ID]; exists {
			continue
		}
		copyT := t.clone()
		copyT.Active = false
		s.tracks[t.ID] = &copyT
		added = append(added, copyT)
	}
	return added
}

// MergeRemovedTracks removes the named tracks (and their Tees belong to the
// caller to tear down), returning which ones actually existed along with
// each one's subscriber set as it stood immediately before removal (see
// RemoveEndpoint for why this must be captured here rather than queried
// afterward).
func (s *store) MergeRemovedTracks(trackIDs []TrackID) ([]Track, map[TrackID][]EndpointID) {
	var removed []Track
	subscribersByTrack := make(map[TrackID][]EndpointID)
	for _, id := range trackIDs {
		if t, ok := s.tracks[id]; ok {
			removed = append(removed, t.clone())
			subscribersByTrack[id] = s.SubscribersOf(id)
			s.removeTrackLocked(id)
		}
	}
	return removed, subscribersByTrack
}

func (s *store) removeTrackLocked(id TrackID) {
	delete(s.tracks, id)
	delete(s.active, id)
	s.removePendingForTrack(id)
}

// MarkTrackReady activates a track and records its runtime encoding and
// depayloading filter (spec.md §4.4 "Track-ready").
func (s *store) MarkTrackReady(id TrackID, encoding string, filter *DepayloadingFilter) (Track, error) {
	t, ok := s.tracks[id]
	if !ok {
		return Track{}, fmt.Errorf("%w: track %s", ErrNotFound, id)
	}
	t.Active = true
	t.Encoding = encoding
	t.Filter = filter
	return t.clone(), nil
}

// AddSimulcastEncoding appends a newly observed simulcast layer if not
// already known (tracks may receive their layers one RID at a time).
func (s *store) AddSimulcastEncoding(id TrackID, encoding string) {
	t, ok := s.tracks[id]
	if !ok || encoding == "" {
		return
	}
	for _, e := range t.SimulcastEncodings {
		if e == encoding {
			return
		}
	}
	t.SimulcastEncodings = append(t.SimulcastEncodings, encoding)
}

// --- Subscriptions ---

func (s *store) AddPendingSubscription(sub *Subscription) {
	s.pending = append(s.pending, sub)
}

// DrainPendingForTrack removes and returns every pending subscription for
// trackID, in the order they were added (spec.md §3 "Pending subscription
// set").
func (s *store) DrainPendingForTrack(trackID TrackID) []*Subscription {
	var drained []*Subscription
	kept := s.pending[:0]
	for _, sub := range s.pending {
		if sub.TrackID == trackID {
			drained = append(drained, sub)
		} else {
			kept = append(kept, sub)
		}
	}
	s.pending = kept
	return drained
}

func (s *store) removePendingForTrack(trackID TrackID) []*Subscription {
	return s.DrainPendingForTrack(trackID)
}

// cancelSubscriptionsForEndpoint removes (without fulfilling) every pending
// and every active subscription belonging to endpointID, returning them —
// used on endpoint removal/crash (spec.md §5 "Cancellation").
func (s *store) cancelSubscriptionsForEndpoint(endpointID EndpointID) []*Subscription {
	var canceled []*Subscription

	kept := s.pending[:0]
	for _, sub := range s.pending {
		if sub.EndpointID == endpointID {
			canceled = append(canceled, sub)
		} else {
			kept = append(kept, sub)
		}
	}
	s.pending = kept

	for trackID, subs := range s.active {
		if sub, ok := subs[endpointID]; ok {
			canceled = append(canceled, sub)
			delete(subs, endpointID)
			if len(subs) == 0 {
				delete(s.active, trackID)
			}
		}
	}

	return canceled
}

func (s *store) AddActiveSubscription(sub *Subscription) {
	if s.active[sub.TrackID] == nil {
		s.active[sub.TrackID] = make(map[EndpointID]*Subscription)
	}
	sub.Status = SubscriptionActive
	s.active[sub.TrackID][sub.EndpointID] = sub
}

func (s *store) GetActiveSubscription(trackID TrackID, endpointID EndpointID) (*Subscription, bool) {
	subs, ok := s.active[trackID]
	if !ok {
		return nil, false
	}
	sub, ok := subs[endpointID]
	return sub, ok
}

// SubscribersOf returns the endpoint IDs with an active subscription to
// trackID.
func (s *store) SubscribersOf(trackID TrackID) []EndpointID {
	subs, ok := s.active[trackID]
	if !ok {
		return nil
	}
	ids := make([]EndpointID, 0, len(subs))
	for id := range subs {
		ids = append(ids, id)
	}
	return ids
}
