package store

import (
	"context"
	"sync"
)

// Handle is the shared lazily-initialized connection to the data file. The
// first caller triggers the open; callers arriving while that open is in
// flight join it instead of issuing a second one. A failed open clears the
// in-flight state so a later caller can retry; Close returns the handle to
// the uninitialized state.
type Handle struct {
	path string

	mu   sync.Mutex
	st   *Store
	wait chan struct{}
	err  error
}

func NewHandle(path string) *Handle {
	return &Handle{path: path}
}

// Open returns the ready store, initializing it on first use. Concurrent
// callers during initialization all receive the same outcome.
func (h *Handle) Open(ctx context.Context) (*Store, error) {
	for {
		h.mu.Lock()
		if h.st != nil {
			st := h.st
			h.mu.Unlock()
			return st, nil
		}

		if h.wait == nil {
			break
		}

		wait := h.wait
		h.mu.Unlock()

		select {
		case <-wait:
		case <-ctx.Done():
			return nil, ctx.Err()
		}

		h.mu.Lock()
		st, err := h.st, h.err
		h.mu.Unlock()
		if st != nil {
			return st, nil
		}
		if err != nil {
			return nil, err
		}
		// The attempt was superseded before we woke; go around again.
	}

	wait := make(chan struct{})
	h.wait = wait
	h.err = nil
	h.mu.Unlock()

	st, err := open(h.path)

	h.mu.Lock()
	h.st, h.err = st, err
	h.wait = nil
	h.mu.Unlock()
	close(wait)

	return st, err
}

// Close tears down the store. Subsequent Open calls re-initialize.
func (h *Handle) Close() error {
	h.mu.Lock()
	st := h.st
	h.st = nil
	h.err = nil
	h.mu.Unlock()

	if st == nil {
		return nil
	}
	return st.Close()
}
