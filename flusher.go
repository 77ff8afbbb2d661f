package chrometrace

import "time"

// flusher periodically moves buffered events to the trace file.
type flusher struct {
	stopCh chan struct{}
	done   chan struct{}
}

// startFlusher launches the background loop when an interval is configured.
func (s *Session) startFlusher() {
	if s.flushInterval <= 0 {
		return
	}
	s.flusherMu.Lock()
	defer s.flusherMu.Unlock()

	if s.flusher != nil {
		return
	}
	f := &flusher{
		stopCh: make(chan struct{}),
		done:   make(chan struct{}),
	}
	s.flusher = f
	go s.runFlusher(f, s.flushInterval)
}

// runFlusher is the flusher's main loop.
func (s *Session) runFlusher(f *flusher, interval time.Duration) {
	defer close(f.done)

	for {
		select {
		case <-f.stopCh:
			return
		case <-s.clock.After(interval):
			if err := s.Flush(); err != nil {
				s.log.WithError(err).Warn("chrometrace: background flush failed")
			}
		}
	}
}

// stopFlusher stops the loop and waits for an in-flight flush to finish.
// Must not be called while holding ctl.
func (s *Session) stopFlusher() {
	s.flusherMu.Lock()
	f := s.flusher
	s.flusher = nil
	s.flusherMu.Unlock()

	if f == nil {
		return
	}
	close(f.stopCh)
	<-f.done
}
