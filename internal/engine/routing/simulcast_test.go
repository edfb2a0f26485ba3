package routing

import (
	"sync"
	"testing"
	"time"
)

func TestSimulcastTeeLinkWithDefaultEncoding(t *testing.T) {
	var mu sync.Mutex
	var events []EncodingSwitched

	tee := NewSimulcastTee("track-1", []string{"low", "mid", "high"}, func(ev EncodingSwitched) {
		mu.Lock()
		events = append(events, ev)
		mu.Unlock()
	})

	if err := tee.LinkWithDefault("sub-a", "mid"); err != nil {
		t.Fatalf("LinkWithDefault: %v", err)
	}

	encoding, ok := tee.ActiveEncoding("sub-a")
	if !ok || encoding != "mid" {
		t.Fatalf("ActiveEncoding = (%q, %v), want (mid, true)", encoding, ok)
	}

	waitForEvents(t, &mu, &events, 1)
	if events[0].Encoding != "mid" || events[0].Receiver != "sub-a" {
		t.Fatalf("unexpected event %+v", events[0])
	}
}

func TestSimulcastTeeLinkWithoutPreferencePicksLowest(t *testing.T) {
	tee := NewSimulcastTee("track-1", []string{"high", "low", "mid"}, nil)

	if err := tee.LinkWithDefault("sub-a", ""); err != nil {
		t.Fatalf("LinkWithDefault: %v", err)
	}

	encoding, ok := tee.ActiveEncoding("sub-a")
	if !ok || encoding != "high" {
		// "high" < "low" < "mid" lexicographically — deterministic choice.
		t.Fatalf("ActiveEncoding = (%q, %v), want (high, true)", encoding, ok)
	}
}

func TestSimulcastTeeLinkWithDefaultRejectsUnofferedEncoding(t *testing.T) {
	tee := NewSimulcastTee("track-1", []string{"low"}, nil)

	if err := tee.LinkWithDefault("sub-a", "high"); err == nil {
		t.Fatal("expected an error for an unoffered default encoding")
	}
}

func TestSimulcastTeeSelectEncoding(t *testing.T) {
	var mu sync.Mutex
	var events []EncodingSwitched

	tee := NewSimulcastTee("track-1", []string{"low", "high"}, func(ev EncodingSwitched) {
		mu.Lock()
		events = append(events, ev)
		mu.Unlock()
	})

	if err := tee.LinkWithDefault("sub-a", "low"); err != nil {
		t.Fatalf("LinkWithDefault: %v", err)
	}
	waitForEvents(t, &mu, &events, 1)

	if err := tee.SelectEncoding("sub-a", "high"); err != nil {
		t.Fatalf("SelectEncoding: %v", err)
	}
	waitForEvents(t, &mu, &events, 2)

	encoding, _ := tee.ActiveEncoding("sub-a")
	if encoding != "high" {
		t.Fatalf("ActiveEncoding = %q, want high", encoding)
	}
}

func TestSimulcastTeeSelectEncodingErrors(t *testing.T) {
	tee := NewSimulcastTee("track-1", []string{"low", "high"}, nil)

	if err := tee.SelectEncoding("sub-a", "low"); err != ErrUnknownSubscriber {
		t.Fatalf("SelectEncoding for unlinked subscriber = %v, want ErrUnknownSubscriber", err)
	}

	if err := tee.LinkWithDefault("sub-a", "low"); err != nil {
		t.Fatalf("LinkWithDefault: %v", err)
	}
	if err := tee.SelectEncoding("sub-a", "ultra"); err == nil {
		t.Fatal("expected an error for an unoffered encoding")
	}
}

func TestSimulcastTeeUnlinkClearsSelection(t *testing.T) {
	tee := NewSimulcastTee("track-1", []string{"low"}, nil)
	if err := tee.LinkWithDefault("sub-a", "low"); err != nil {
		t.Fatalf("LinkWithDefault: %v", err)
	}

	tee.Unlink("sub-a")

	if _, ok := tee.ActiveEncoding("sub-a"); ok {
		t.Fatal("expected no active encoding after Unlink")
	}
}

func TestSimulcastTeeSetEncodings(t *testing.T) {
	tee := NewSimulcastTee("track-1", []string{"low"}, nil)
	tee.SetEncodings([]string{"low", "high"})

	if err := tee.SelectEncoding("sub-a", "high"); err != ErrUnknownSubscriber {
		// Not linked yet, but this confirms "high" is now a recognized
		// encoding: the failure mode changed from "unoffered" to
		// "unknown subscriber", which only happens once it's offered.
		t.Fatalf("SelectEncoding = %v, want ErrUnknownSubscriber", err)
	}
}

func waitForEvents(t *testing.T, mu *sync.Mutex, events *[]EncodingSwitched, want int) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		n := len(*events)
		mu.Unlock()
		if n >= want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d events", want)
}
