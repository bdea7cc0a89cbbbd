package media

import "sync"

// Resource is an owned capture handle. Only the Manager creates or releases it.
type Resource struct {
	stream Stream

	mu       sync.Mutex
	sink     Sink
	released bool
}

func newResource(s Stream) *Resource {
	return &Resource{stream: s}
}

func (r *Resource) ID() string {
	if r == nil || r.stream == nil {
		return ""
	}
	return r.stream.ID()
}

// Live reports whether at least one track exists and none has ended.
func (r *Resource) Live() bool {
	if r == nil || r.stream == nil {
		return false
	}
	r.mu.Lock()
	released := r.released
	r.mu.Unlock()
	if released {
		return false
	}

	tracks := r.stream.Tracks()
	if len(tracks) == 0 {
		return false
	}
	for _, t := range tracks {
		if t.State() == TrackEnded {
			return false
		}
	}
	return true
}

func (r *Resource) Released() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.released
}

func (r *Resource) SinkID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sink == nil {
		return ""
	}
	return r.sink.ID()
}

func (r *Resource) bind(s Sink) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sink != nil {
		if r.sink.ID() == s.ID() {
			return nil
		}
		r.sink.Unbind()
		r.sink = nil
	}
	if err := s.Bind(r.stream); err != nil {
		return err
	}
	r.sink = s
	return nil
}

// release reports whether this call did the work.
func (r *Resource) release() bool {
	r.mu.Lock()
	if r.released {
		r.mu.Unlock()
		return false
	}
	r.released = true
	sink := r.sink
	r.sink = nil
	r.mu.Unlock()

	if sink != nil {
		sink.Unbind()
	}
	stopStream(r.stream)
	return true
}

func stopStream(s Stream) {
	if s == nil {
		return
	}
	for _, t := range s.Tracks() {
		t.Stop()
	}
}
