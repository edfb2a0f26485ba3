package engine_test

import (
	"errors"
	"testing"
	"time"

	"github.com/relaymesh/engine/internal/engine"
	"github.com/relaymesh/engine/internal/engine/mediaevent"
	"github.com/relaymesh/engine/internal/engine/registry"
)

func setUpTwoEndpoints(t *testing.T, e *engine.Engine, obs *recordingObserver) {
	t.Helper()
	joinAndAccept(t, e, obs, "publisher")
	joinAndAccept(t, e, obs, "subscriber")
	if _, err := e.AddEndpoint("", "publisher", ""); err != nil {
		t.Fatalf("AddEndpoint(publisher): %v", err)
	}
	if _, err := e.AddEndpoint("", "subscriber", ""); err != nil {
		t.Fatalf("AddEndpoint(subscriber): %v", err)
	}
}

func TestSubscribeToUnknownTrackIsRejectedImmediately(t *testing.T) {
	e := engine.Start(engine.Config{ID: "room-1"})
	defer e.Stop()

	err := e.Subscribe("subscriber", "no-such-track", engine.FormatRaw, engine.SubscriptionOpts{})
	if !errors.Is(err, engine.ErrInvalidTrackID) {
		t.Fatalf("err = %v, want ErrInvalidTrackID", err)
	}
}

func TestSubscribeWithUnacceptedFormatIsRejected(t *testing.T) {
	e := engine.Start(engine.Config{ID: "room-1"})
	defer e.Stop()

	obs := newRecordingObserver()
	e.Register(obs)
	setUpTwoEndpoints(t, e, obs)

	e.NotifyNewTracks("publisher", []engine.Track{newTrack("track-1", "publisher")})

	err := e.Subscribe("subscriber", "track-1", "some-unsupported-format", engine.SubscriptionOpts{})
	if !errors.Is(err, engine.ErrInvalidFormat) {
		t.Fatalf("err = %v, want ErrInvalidFormat", err)
	}
}

func TestSubscribeWithInvalidDefaultSimulcastEncodingIsRejected(t *testing.T) {
	e := engine.Start(engine.Config{ID: "room-1"})
	defer e.Stop()

	obs := newRecordingObserver()
	e.Register(obs)
	setUpTwoEndpoints(t, e, obs)

	e.NotifyNewTracks("publisher", []engine.Track{newTrack("track-1", "publisher", "low", "high")})

	opts := engine.SubscriptionOpts{DefaultSimulcastEncoding: "ultra"}
	err := e.Subscribe("subscriber", "track-1", engine.FormatRaw, opts)
	if !errors.Is(err, engine.ErrInvalidDefaultSimulcastEncoding) {
		t.Fatalf("err = %v, want ErrInvalidDefaultSimulcastEncoding", err)
	}
}

func TestSubscribeBeforeTrackReadyPendsThenFulfillsOnTrackReady(t *testing.T) {
	e := engine.Start(engine.Config{ID: "room-1"})
	defer e.Stop()

	obs := newRecordingObserver()
	e.Register(obs)
	setUpTwoEndpoints(t, e, obs)

	e.NotifyNewTracks("publisher", []engine.Track{newTrack("track-1", "publisher")})

	subscribeDone := make(chan error, 1)
	go func() {
		subscribeDone <- e.Subscribe("subscriber", "track-1", engine.FormatRaw, engine.SubscriptionOpts{})
	}()

	// Give Subscribe a moment to reach the actor and land in the pending
	// set before the track becomes ready, so this actually exercises the
	// pending path rather than the immediate-fulfillment one.
	time.Sleep(20 * time.Millisecond)

	e.NotifyTrackReady("publisher", "track-1", "", "vp8", nil)

	select {
	case err := <-subscribeDone:
		if err != nil {
			t.Fatalf("Subscribe = %v, want nil once the track becomes ready", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Subscribe never returned after NotifyTrackReady")
	}
}

func TestPublishNewTracksNotifiesOtherEndpointsOnly(t *testing.T) {
	e := engine.Start(engine.Config{ID: "room-1"})
	defer e.Stop()

	obs := newRecordingObserver()
	e.Register(obs)
	setUpTwoEndpoints(t, e, obs)

	e.NotifyNewTracks("publisher", []engine.Track{newTrack("track-1", "publisher")})

	waitFor(t, time.Second, func() bool {
		for _, m := range obs.snapshot() {
			if m.Kind == registry.KindNewTracks && m.NewTracks.To == "subscriber" {
				return true
			}
		}
		return false
	})

	for _, m := range obs.snapshot() {
		if m.Kind == registry.KindNewTracks && m.NewTracks.To == "publisher" {
			t.Fatal("the publisher should not be notified of its own new track")
		}
	}
}

func TestSimulcastSelectEncodingSwitchesActiveLayer(t *testing.T) {
	e := engine.Start(engine.Config{ID: "room-1"})
	defer e.Stop()

	obs := newRecordingObserver()
	e.Register(obs)
	setUpTwoEndpoints(t, e, obs)

	// A raw-format subscriber is served by the raw branch's Push Tee, so the
	// subscription uses a remote format to attach to the Simulcast Tee itself.
	track := newTrack("track-1", "publisher", "low", "high")
	track.Formats = []string{"rtp"}
	e.NotifyNewTracks("publisher", []engine.Track{track})
	e.NotifyTrackReady("publisher", "track-1", "low", "vp8", nil)
	e.NotifyTrackReady("publisher", "track-1", "high", "vp8", nil)

	if err := e.Subscribe("subscriber", "track-1", "rtp", engine.SubscriptionOpts{DefaultSimulcastEncoding: "low"}); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	waitFor(t, time.Second, func() bool {
		for _, m := range obs.snapshot() {
			if m.Kind != registry.KindMediaEvent {
				continue
			}
			var data mediaevent.EncodingSwitchedData
			if decodeMediaEvent(t, m, &data) == mediaevent.OutboundEncodingSwitched && data.Encoding == "low" {
				return true
			}
		}
		return false
	})

	selectRaw := encodeInbound(t, mediaevent.InboundSelectEncoding, mediaevent.SelectEncodingData{
		PeerID: "publisher", TrackID: "track-1", Encoding: "high",
	})
	e.ReceiveMediaEvent("subscriber", selectRaw)

	waitFor(t, time.Second, func() bool {
		for _, m := range obs.snapshot() {
			if m.Kind != registry.KindMediaEvent {
				continue
			}
			var data mediaevent.EncodingSwitchedData
			if decodeMediaEvent(t, m, &data) == mediaevent.OutboundEncodingSwitched && data.Encoding == "high" {
				return true
			}
		}
		return false
	})
}

func TestSelectEncodingRejectsWhenPeerDoesNotOwnTheTrack(t *testing.T) {
	e := engine.Start(engine.Config{ID: "room-1"})
	defer e.Stop()

	obs := newRecordingObserver()
	e.Register(obs)
	setUpTwoEndpoints(t, e, obs)

	track := newTrack("track-1", "publisher", "low", "high")
	track.Formats = []string{"rtp"}
	e.NotifyNewTracks("publisher", []engine.Track{track})
	e.NotifyTrackReady("publisher", "track-1", "low", "vp8", nil)
	e.NotifyTrackReady("publisher", "track-1", "high", "vp8", nil)

	if err := e.Subscribe("subscriber", "track-1", "rtp", engine.SubscriptionOpts{DefaultSimulcastEncoding: "low"}); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	flush(e)

	// subscriber claims to own track-1, which it does not; the
	// selectEncoding must be rejected rather than switching the layer.
	selectRaw := encodeInbound(t, mediaevent.InboundSelectEncoding, mediaevent.SelectEncodingData{
		PeerID: "subscriber", TrackID: "track-1", Encoding: "high",
	})
	e.ReceiveMediaEvent("subscriber", selectRaw)
	flush(e)

	for _, m := range obs.snapshot() {
		if m.Kind != registry.KindMediaEvent {
			continue
		}
		var data mediaevent.EncodingSwitchedData
		if decodeMediaEvent(t, m, &data) == mediaevent.OutboundEncodingSwitched && data.Encoding == "high" {
			t.Fatal("selectEncoding with a non-owning peer_id should have been rejected, not switched the layer")
		}
	}
}

func TestRequestKeyFrameIsRateLimited(t *testing.T) {
	e := engine.Start(engine.Config{ID: "room-1"})
	defer e.Stop()

	obs := newRecordingObserver()
	e.Register(obs)
	joinAndAccept(t, e, obs, "publisher")
	if _, err := e.AddEndpoint("", "publisher", ""); err != nil {
		t.Fatalf("AddEndpoint: %v", err)
	}
	e.NotifyNewTracks("publisher", []engine.Track{newTrack("track-1", "publisher")})
	e.NotifyTrackReady("publisher", "track-1", "", "vp8", nil)
	flush(e)

	count := func() int {
		n := 0
		for _, m := range obs.snapshot() {
			if m.Kind == registry.KindKeyFrameRequest {
				n++
			}
		}
		return n
	}

	e.RequestKeyFrame("track-1")
	e.RequestKeyFrame("track-1")
	waitFor(t, time.Second, func() bool { return count() >= 1 })
	time.Sleep(100 * time.Millisecond) // let any spurious second delivery land
	if got := count(); got != 1 {
		t.Fatalf("key frame requests delivered = %d, want exactly 1 within the rate-limit window", got)
	}

	time.Sleep(600 * time.Millisecond)
	e.RequestKeyFrame("track-1")
	waitFor(t, time.Second, func() bool { return count() >= 2 })
	time.Sleep(100 * time.Millisecond)
	if got := count(); got != 2 {
		t.Fatalf("key frame requests delivered after the rate-limit window = %d, want 2", got)
	}
}

func TestRequestKeyFrameForUnknownTrackIsIgnored(t *testing.T) {
	e := engine.Start(engine.Config{ID: "room-1"})
	defer e.Stop()

	obs := newRecordingObserver()
	e.Register(obs)

	e.RequestKeyFrame("no-such-track")
	flush(e)
	time.Sleep(50 * time.Millisecond)

	for _, m := range obs.snapshot() {
		if m.Kind == registry.KindKeyFrameRequest {
			t.Fatal("expected no key frame request for an unknown track")
		}
	}
}
