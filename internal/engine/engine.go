// Package engine implements the real-time media routing Engine described
// in spec.md: a single long-lived control actor per session that tracks
// peers, endpoints, tracks, and subscriptions, and maintains the routing
// graph that connects publishers to subscribers.
package engine

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/relaymesh/engine/internal/engine/mediaevent"
	"github.com/relaymesh/engine/internal/engine/registry"
	"github.com/relaymesh/engine/internal/engine/routing"
	"github.com/relaymesh/engine/internal/telemetry"
)

const subscribeTimeout = 5 * time.Second

// Observer is re-exported so callers of Register/Unregister don't need to
// import the registry package directly.
type Observer = registry.Observer

// Engine is the single-threaded actor coordinating one session ("room").
// Every field below is touched exclusively from the actor goroutine started
// by run(); the only exception is mailbox itself, which is safe for
// concurrent sends by design (it's a Go channel).
type Engine struct {
	id     string
	config Config
	logger *logrus.Entry
	trace  *telemetry.Telemetry

	store    *store
	graph    *routing.Graph
	registry *registry.Registry
	dispatch *mediaevent.Dispatcher

	// awaitingDecision holds join requests that have published NewPeer and
	// are waiting for AcceptPeer/DenyPeer (spec.md §4.2, §9). Keyed by
	// peer ID; never touched by a blocking receive — AcceptPeer/DenyPeer
	// arrive as ordinary mailbox messages.
	awaitingDecision map[PeerID]pendingJoin

	// lastKeyFrameRequest rate-limits RequestKeyFrame to once per track per
	// keyFrameRequestInterval (spec.md §4.8).
	lastKeyFrameRequest map[TrackID]time.Time

	mailbox chan any
	done    chan struct{}
}

// keyFrameRequestInterval matches the teacher's own keyframe rate limit.
const keyFrameRequestInterval = 500 * time.Millisecond

type pendingJoin struct {
	peer Peer
}

// Start creates a new Engine and launches its actor loop. The returned
// Engine is immediately usable; the actor loop runs until Stop is called.
// Removing the last peer or endpoint does not end the session.
func Start(config Config) *Engine {
	logger := logrus.WithFields(logrus.Fields{"engine_id": config.ID})

	traceCtx := config.TraceCtx
	if traceCtx == nil {
		traceCtx = context.Background()
	}

	e := &Engine{
		id:               config.ID,
		config:           config,
		logger:           logger,
		trace:            telemetry.NewTelemetry(traceCtx, "engine_session", config.TelemetryLabel...),
		store:            newStore(logger),
		graph:            routing.NewGraph(),
		registry:         registry.NewRegistry(config.ID),
		awaitingDecision:    make(map[PeerID]pendingJoin),
		lastKeyFrameRequest: make(map[TrackID]time.Time),
		mailbox:             make(chan any, 128),
		done:                make(chan struct{}),
	}
	e.dispatch = mediaevent.NewDispatcher(e.registry)

	go e.run()

	return e
}

// Stop requests the actor loop to exit. Safe to call more than once.
func (e *Engine) Stop() {
	reply := make(chan struct{})
	select {
	case e.mailbox <- stopReq{done: reply}:
		<-reply
	case <-e.done:
	}
}

// Done is closed once the actor loop has exited.
func (e *Engine) Done() <-chan struct{} { return e.done }
