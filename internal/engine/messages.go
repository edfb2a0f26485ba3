package engine

// This file enumerates every message the Engine actor's mailbox accepts.
// Control-API calls (AddPeer, Subscribe, ...) and endpoint notifications
// (track-ready, publish, ...) all funnel through the same channel so that
// the single-consumer ordering guarantees in spec.md §5 hold across both.

// --- Control API requests (caller blocks on reply) ---

type addPeerReq struct {
	peer  Peer
	reply chan error
}

type removePeerReq struct {
	id     PeerID
	reason string
	reply  chan struct{}
}

type acceptPeerReq struct {
	id    PeerID
	reply chan error
}

type denyPeerReq struct {
	id    PeerID
	data  []byte
	reply chan error
}

type addEndpointReq struct {
	endpointID EndpointID
	peerID     PeerID
	node       string
	reply      chan addEndpointResult
}

type addEndpointResult struct {
	endpointID EndpointID
	err        error
}

type removeEndpointReq struct {
	id    EndpointID
	reply chan struct{}
}

type registerReq struct {
	observer Observer
	reply    chan struct{}
}

type unregisterReq struct {
	observer Observer
	reply    chan struct{}
}

type subscribeReq struct {
	endpointID EndpointID
	trackID    TrackID
	format     string
	opts       SubscriptionOpts
	reply      chan error
}

type receiveMediaEventReq struct {
	peerID PeerID
	raw    []byte
}

type requestKeyFrameReq struct {
	trackID TrackID
}

// --- Endpoint -> Engine notifications (fire and forget) ---

type trackReadyMsg struct {
	endpointID EndpointID
	trackID    TrackID
	rid        string // simulcast layer identifier, empty if not simulcast
	encoding   string
	filter     *DepayloadingFilter
}

type publishNewTracksMsg struct {
	endpointID EndpointID
	tracks     []Track
}

type publishRemovedTracksMsg struct {
	endpointID EndpointID
	trackIDs   []TrackID
}

type customMediaEventMsg struct {
	endpointID EndpointID
	raw        []byte
}

type encodingSwitchedMsg struct {
	trackID    TrackID
	receiverID EndpointID
	encoding   string
}

type endpointCrashedMsg struct {
	endpointID EndpointID
}

// stopReq asks the actor loop to exit once it has drained its mailbox.
type stopReq struct {
	done chan struct{}
}
