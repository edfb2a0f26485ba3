package engine

// This file is the Engine's External Interfaces surface (spec.md §6): every
// exported method builds a request/reply pair, sends it into the actor's
// mailbox, and blocks on the reply — the actor itself never blocks on any
// of these callers (spec.md §5).

// AddPeer inserts a peer outside the normal join/accept handshake. Most
// callers should use the Media Event `join` flow (§4.2) plus AcceptPeer
// instead; this exists for callers that perform admission out of band.
func (e *Engine) AddPeer(peer Peer) error {
	reply := make(chan error, 1)
	e.mailbox <- addPeerReq{peer: peer, reply: reply}
	return <-reply
}

// RemovePeer removes a peer, its attached endpoint, and all of its tracks
// (spec.md §4.1, §8 S5). reason is currently unused by the Engine itself;
// it is accepted for API symmetry with a future audit trail.
func (e *Engine) RemovePeer(id PeerID, reason string) {
	reply := make(chan struct{})
	e.mailbox <- removePeerReq{id: id, reason: reason, reply: reply}
	<-reply
}

// AcceptPeer fulfills a pending join (spec.md §4.2).
func (e *Engine) AcceptPeer(id PeerID) error {
	reply := make(chan error, 1)
	e.mailbox <- acceptPeerReq{id: id, reply: reply}
	return <-reply
}

// DenyPeer rejects a pending join, optionally carrying opaque data back to
// the applicant (spec.md §4.2).
func (e *Engine) DenyPeer(id PeerID, data []byte) error {
	reply := make(chan error, 1)
	e.mailbox <- denyPeerReq{id: id, data: data, reply: reply}
	return <-reply
}

// AddEndpoint creates an endpoint record (spec.md §4.3). Specifying both
// endpointID and peerID is invalid; specifying neither assigns no implicit
// identity relationship (a Standalone Endpoint) but still requires a
// non-empty endpointID.
func (e *Engine) AddEndpoint(endpointID EndpointID, peerID PeerID, node string) (EndpointID, error) {
	if endpointID != "" && peerID != "" {
		return "", errInvalidArgumentsf("both endpoint_id and peer_id given")
	}
	if endpointID == "" && peerID == "" {
		return "", errInvalidArgumentsf("one of endpoint_id or peer_id is required")
	}

	reply := make(chan addEndpointResult, 1)
	e.mailbox <- addEndpointReq{endpointID: endpointID, peerID: peerID, node: node, reply: reply}
	result := <-reply
	return result.endpointID, result.err
}

// RemoveEndpoint tears down an endpoint and its tracks (spec.md §4.3).
func (e *Engine) RemoveEndpoint(id EndpointID) {
	reply := make(chan struct{})
	e.mailbox <- removeEndpointReq{id: id, reply: reply}
	<-reply
}

// Register adds observer to the set that receives every Engine-published
// message (spec.md §4.7). Idempotent.
func (e *Engine) Register(observer Observer) {
	reply := make(chan struct{})
	e.mailbox <- registerReq{observer: observer, reply: reply}
	<-reply
}

// Unregister removes observer; a no-op if it was never registered.
func (e *Engine) Unregister(observer Observer) {
	reply := make(chan struct{})
	e.mailbox <- unregisterReq{observer: observer, reply: reply}
	<-reply
}

// ReceiveMediaEvent hands an inbound wire frame to the Media Event Codec &
// Dispatcher (spec.md §4.6). Fire-and-forget: malformed frames are logged
// and dropped, never surfaced to the caller (spec.md §7 ProtocolError).
func (e *Engine) ReceiveMediaEvent(peerID PeerID, raw []byte) {
	e.mailbox <- receiveMediaEventReq{peerID: peerID, raw: raw}
}

// Subscribe requests that endpointID receive trackID in format, waiting up
// to 5 seconds for fulfillment (spec.md §4.4, §5).
func (e *Engine) Subscribe(endpointID EndpointID, trackID TrackID, format string, opts SubscriptionOpts) error {
	reply := make(chan error, 1)
	e.mailbox <- subscribeReq{endpointID: endpointID, trackID: trackID, format: format, opts: opts, reply: reply}
	return <-reply
}

// RequestKeyFrame asks the owning endpoint to emit a keyframe for trackID
// (SPEC_FULL.md §4.8). Fire-and-forget and rate-limited internally.
func (e *Engine) RequestKeyFrame(trackID TrackID) {
	e.mailbox <- requestKeyFrameReq{trackID: trackID}
}

// --- Endpoint -> Engine notifications (spec.md §6) ---

// NotifyTrackReady reports that a published track is ready to route
// (spec.md §4.4 "Track-ready"). rid is the simulcast layer identifier, or
// empty for a non-simulcast track.
func (e *Engine) NotifyTrackReady(endpointID EndpointID, trackID TrackID, rid, encoding string, filter *DepayloadingFilter) {
	e.mailbox <- trackReadyMsg{endpointID: endpointID, trackID: trackID, rid: rid, encoding: encoding, filter: filter}
}

// NotifyNewTracks reports newly published tracks (spec.md §4.4 "Publish
// (new tracks)").
func (e *Engine) NotifyNewTracks(endpointID EndpointID, tracks []Track) {
	e.mailbox <- publishNewTracksMsg{endpointID: endpointID, tracks: tracks}
}

// NotifyRemovedTracks reports track removal (spec.md §4.4 "Publish
// (removed tracks)").
func (e *Engine) NotifyRemovedTracks(endpointID EndpointID, trackIDs []TrackID) {
	e.mailbox <- publishRemovedTracksMsg{endpointID: endpointID, trackIDs: trackIDs}
}

// NotifyCustomMediaEvent relays a custom event an endpoint wants delivered
// back to its peer (spec.md §4.6 "custom").
func (e *Engine) NotifyCustomMediaEvent(endpointID EndpointID, raw []byte) {
	e.mailbox <- customMediaEventMsg{endpointID: endpointID, raw: raw}
}

// NotifyEndpointCrashed triggers crash containment for endpointID
// (spec.md §4.3 "Crash containment"). Callers are expected to be a
// completion watcher per-endpoint (spec.md §9 "Crash groups"), not the
// endpoint itself.
func (e *Engine) NotifyEndpointCrashed(endpointID EndpointID) {
	e.mailbox <- endpointCrashedMsg{endpointID: endpointID}
}
