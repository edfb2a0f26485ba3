package routing

import (
	"fmt"
	"sync"
)

// EditKind names one step of a graph mutation. A caller that wants to know
// exactly what the Builder did (for telemetry or for asserting testable
// properties) can inspect the Edit slice every mutating method returns.
type EditKind int

const (
	EditCreateTee EditKind = iota
	EditRemoveTee
	EditCreateRawBranch
	EditLink
	EditUnlink
)

func (k EditKind) String() string {
	switch k {
	case EditCreateTee:
		return "create_tee"
	case EditRemoveTee:
		return "remove_tee"
	case EditCreateRawBranch:
		return "create_raw_branch"
	case EditLink:
		return "link"
	case EditUnlink:
		return "unlink"
	default:
		return "unknown"
	}
}

// Edit describes one atomic step applied to the graph. A slice of Edits
// returned from a single Builder call is always the complete, already-
// committed result of that call — spec.md §4.4/§9 call this "installing the
// graph edits as one atomic spec"; since the Builder runs exclusively on the
// single-threaded Engine actor, every mutating call here already executes to
// completion (or not at all, on validation failure) before the actor
// processes anything else, which is what makes the batch atomic.
type Edit struct {
	Kind         EditKind
	TrackID      TrackID
	SubscriberID SubscriberID
}

// TrackDescriptor carries what the Builder needs to decide a Tee's Kind
// (spec.md §4.5's table) without depending on the engine package's Track
// type.
type TrackDescriptor struct {
	Simulcast      bool
	Encodings      []string
	DisplayManager bool
}

type teeSet struct {
	tee Tee
	raw *RawBranch
}

// Graph owns every Tee and raw branch in one session. It is exercised
// exclusively by the Engine actor, so internal state never needs guarding
// against concurrent mutation — the mutex here only protects reads made
// from diagnostic/telemetry goroutines.
type Graph struct {
	mutex sync.RWMutex
	tees  map[TrackID]*teeSet
}

func NewGraph() *Graph {
	return &Graph{tees: make(map[TrackID]*teeSet)}
}

// EnsureTee returns the existing Tee for trackID, creating one per the Kind
// table in spec.md §4.5 if none exists yet. onSwitched is only used for a
// newly-created SimulcastTee.
func (g *Graph) EnsureTee(trackID TrackID, desc TrackDescriptor, onSwitched func(EncodingSwitched)) (Tee, []Edit) {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	if set, ok := g.tees[trackID]; ok {
		return set.tee, nil
	}

	var tee Tee
	switch {
	case desc.Simulcast:
		tee = NewSimulcastTee(trackID, desc.Encodings, onSwitched)
	case desc.DisplayManager:
		tee = NewFilterTee(trackID)
	default:
		tee = NewPushTee(trackID)
	}

	g.tees[trackID] = &teeSet{tee: tee}
	return tee, []Edit{{Kind: EditCreateTee, TrackID: trackID}}
}

// Exists reports whether a Tee has already been built for trackID —
// used by the Resolver to decide between immediate fulfillment and pending
// subscription (spec.md §4.4 "Subscribe").
func (g *Graph) Exists(trackID TrackID) bool {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	_, ok := g.tees[trackID]
	return ok
}

// Tee returns the Tee for trackID, or nil.
func (g *Graph) Tee(trackID TrackID) Tee {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	set, ok := g.tees[trackID]
	if !ok {
		return nil
	}
	return set.tee
}

// EnsureRawBranch materializes the one-time raw-format branch for trackID.
// The primary Tee must already exist. Returns the (possibly pre-existing)
// branch's Tee, which raw-format subscribers link to instead of the
// primary one.
func (g *Graph) EnsureRawBranch(trackID TrackID, filter string) (*RawBranch, []Edit, error) {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	set, ok := g.tees[trackID]
	if !ok {
		return nil, nil, fmt.Errorf("no tee for track %s, cannot build raw branch", trackID)
	}

	if set.raw != nil {
		return set.raw, nil, nil
	}

	set.raw = newRawBranch(trackID, filter)
	return set.raw, []Edit{{Kind: EditCreateRawBranch, TrackID: trackID}}, nil
}

// Link attaches subscriberID to the track's current routing target: the raw
// branch's Tee if one exists and raw is true, otherwise the primary Tee.
func (g *Graph) Link(trackID TrackID, subscriberID SubscriberID, raw bool, defaultSimulcastEncoding string) ([]Edit, error) {
	g.mutex.RLock()
	set, ok := g.tees[trackID]
	g.mutex.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no tee for track %s", trackID)
	}

	var target Tee
	if raw && set.raw != nil {
		target = set.raw.pushTee
	} else {
		target = set.tee
	}

	if simulcast, ok := target.(*SimulcastTee); ok {
		if err := simulcast.LinkWithDefault(subscriberID, defaultSimulcastEncoding); err != nil {
			return nil, err
		}
	} else if err := target.Link(subscriberID); err != nil {
		return nil, err
	}

	return []Edit{{Kind: EditLink, TrackID: trackID, SubscriberID: subscriberID}}, nil
}

// Unlink detaches subscriberID from both the primary Tee and the raw
// branch's Tee, if present.
func (g *Graph) Unlink(trackID TrackID, subscriberID SubscriberID) []Edit {
	g.mutex.RLock()
	set, ok := g.tees[trackID]
	g.mutex.RUnlock()
	if !ok {
		return nil
	}

	set.tee.Unlink(subscriberID)
	if set.raw != nil {
		set.raw.pushTee.Unlink(subscriberID)
	}

	return []Edit{{Kind: EditUnlink, TrackID: trackID, SubscriberID: subscriberID}}
}

// RemoveTrack tears down the Tee and raw branch for trackID, if any
// (spec.md §4.5 "Removing a track removes the Tee, raw filter, and raw Tee
// atomically if present").
func (g *Graph) RemoveTrack(trackID TrackID) []Edit {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	if _, ok := g.tees[trackID]; !ok {
		return nil
	}

	delete(g.tees, trackID)
	return []Edit{{Kind: EditRemoveTee, TrackID: trackID}}
}

// SimulcastTeeFor is a convenience accessor used by the Resolver's
// select-encoding handling.
func (g *Graph) SimulcastTeeFor(trackID TrackID) (*SimulcastTee, bool) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	set, ok := g.tees[trackID]
	if !ok {
		return nil, false
	}
	tee, ok := set.tee.(*SimulcastTee)
	return tee, ok
}
