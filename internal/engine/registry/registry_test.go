package registry

import (
	"sync"
	"testing"
	"time"
)

type recordingObserver struct {
	mu       sync.Mutex
	messages []Message
}

func (o *recordingObserver) Notify(msg Message) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.messages = append(o.messages, msg)
}

func (o *recordingObserver) count() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.messages)
}

func waitForCount(t *testing.T, o *recordingObserver, want int) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if o.count() >= want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d messages, got %d", want, o.count())
}

func TestDispatchFansOutToEveryObserver(t *testing.T) {
	r := NewRegistry("engine-1")
	a, b := &recordingObserver{}, &recordingObserver{}
	r.Register(a)
	r.Register(b)

	r.PublishNewPeer("peer-1")

	waitForCount(t, a, 1)
	waitForCount(t, b, 1)
}

func TestRegisterIsIdempotent(t *testing.T) {
	r := NewRegistry("engine-1")
	o := &recordingObserver{}

	r.Register(o)
	r.Register(o)

	r.PublishNewPeer("peer-1")

	waitForCount(t, o, 1)
	// Give any duplicate delivery a moment to land before asserting there
	// wasn't one.
	time.Sleep(20 * time.Millisecond)
	if o.count() != 1 {
		t.Fatalf("count = %d, want exactly 1 (no duplicate delivery)", o.count())
	}
}

func TestUnregisterStopsDelivery(t *testing.T) {
	r := NewRegistry("engine-1")
	o := &recordingObserver{}
	r.Register(o)
	r.Unregister(o)

	r.PublishNewPeer("peer-1")

	time.Sleep(20 * time.Millisecond)
	if o.count() != 0 {
		t.Fatalf("count = %d, want 0 after Unregister", o.count())
	}
}

func TestUnregisterUnknownObserverIsNoOp(t *testing.T) {
	r := NewRegistry("engine-1")
	o := &recordingObserver{}
	r.Unregister(o) // never registered
}

func TestPublishHelpersTagKindAndPayload(t *testing.T) {
	r := NewRegistry("engine-1")
	o := &recordingObserver{}
	r.Register(o)

	r.PublishMediaEvent("peer-1", []byte(`{}`))
	r.PublishNewTracks("peer-1", []TrackSnapshot{{ID: "track-1"}})
	r.PublishRemoveTracks("peer-1", []string{"track-1"})
	r.PublishSetDisplayManager("peer-1", true)
	r.PublishKeyFrameRequest("peer-1", "track-1", FullIntraRequest)
	r.PublishPeerLeft("peer-1")
	r.PublishEndpointCrashed("endpoint-1")

	waitForCount(t, o, 7)

	o.mu.Lock()
	defer o.mu.Unlock()

	wantKinds := []Kind{
		KindMediaEvent, KindNewTracks, KindRemoveTracks,
		KindSetDisplayManager, KindKeyFrameRequest, KindPeerLeft, KindEndpointCrashed,
	}
	for i, want := range wantKinds {
		if o.messages[i].Kind != want {
			t.Fatalf("messages[%d].Kind = %v, want %v", i, o.messages[i].Kind, want)
		}
	}

	if o.messages[1].NewTracks.To != "peer-1" || o.messages[1].NewTracks.Tracks[0].ID != "track-1" {
		t.Fatalf("NewTracks payload = %+v", o.messages[1].NewTracks)
	}
	if o.messages[4].KeyFrameRequest.Kind != FullIntraRequest {
		t.Fatalf("KeyFrameRequest.Kind = %v, want FullIntraRequest", o.messages[4].KeyFrameRequest.Kind)
	}
}
