package routing

// RawBranch is the one-time depayloading branch spawned the first time a
// subscriber requests the "raw" format on a track (spec.md §4.5): the
// primary Tee feeds a depayloading filter, whose output feeds a dedicated
// Push Tee that raw-format subscribers attach to instead of the primary Tee.
//
// The depayloading filter itself is an external collaborator (spec.md §1);
// here it is only a descriptor carried through from track-ready
// (spec.md §4.4) so the data plane knows which filter to instantiate.
type RawBranch struct {
	trackID  TrackID
	filter   string
	pushTee  *PushTee
}

func newRawBranch(trackID TrackID, filter string) *RawBranch {
	return &RawBranch{trackID: trackID, filter: filter, pushTee: NewPushTee(trackID)}
}

func (r *RawBranch) Filter() string  { return r.filter }
func (r *RawBranch) Tee() *PushTee   { return r.pushTee }
