package chrometrace

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/zoobzio/clockz"
)

// Session is one trace recording: the enabled flag, the event buffer and the
// destination file. Safe for concurrent use by multiple goroutines.
//
// A session that observes a new process id at record time assumes it runs
// in a duplicated process: it drops the inherited buffer, gives up file
// ownership, registers its own exit hook and becomes record-only.
//
//nolint:govet // Field order optimized for functionality over memory
type Session struct {
	clock    clockz.Clock
	identity IdentityProbe
	log      logrus.FieldLogger
	buf      *buffer

	// Guarded by ctl.
	handle           Handle
	name             string
	owner            bool
	firstEventOffset int64

	flushInterval   time.Duration
	flusher         *flusher
	flusherMu       sync.Mutex
	processMetadata bool

	ctl        sync.Mutex
	enabled    atomic.Bool
	restricted atomic.Bool
}

// Option configures a Session.
type Option func(*Session)

// WithClock sets the clock used for event timestamps and background flushes.
// Enables clock injection for deterministic testing.
func WithClock(clock clockz.Clock) Option {
	return func(s *Session) {
		s.clock = clock
	}
}

// WithIdentity replaces the process/goroutine identity probe.
func WithIdentity(probe IdentityProbe) Option {
	return func(s *Session) {
		s.identity = probe
	}
}

// WithLogger sets the logger for lifecycle messages.
func WithLogger(log logrus.FieldLogger) Option {
	return func(s *Session) {
		s.log = log
	}
}

// WithFlushInterval flushes buffered events every d while enabled.
// Zero disables background flushing.
func WithFlushInterval(d time.Duration) Option {
	return func(s *Session) {
		s.flushInterval = d
	}
}

// WithProcessMetadata records a process_name metadata event on Enable so
// viewers label the process with its executable name.
func WithProcessMetadata() Option {
	return func(s *Session) {
		s.processMetadata = true
	}
}

// New creates a disabled session.
// Uses the real clock and the runtime identity for production behavior.
func New(opts ...Option) *Session {
	s := &Session{
		clock:    clockz.RealClock,
		identity: RuntimeIdentity{},
		log:      logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.buf = newBuffer(s.identity.PID())
	return s
}

// IsEnabled reports whether events are being recorded.
func (s *Session) IsEnabled() bool {
	return s.enabled.Load()
}

// Restrict makes the session record-only: Enable and Disable fail with
// ErrControlNotPermitted from now on. Use it in workers that must not toggle
// a trace that someone else controls.
func (s *Session) Restrict() {
	s.restricted.Store(true)
}

// Restricted reports whether Restrict was called or a new process was observed.
func (s *Session) Restricted() bool {
	return s.restricted.Load()
}

// Owner reports whether this session wrote the file header and will write
// the footer on Disable.
func (s *Session) Owner() bool {
	s.ctl.Lock()
	defer s.ctl.Unlock()
	return s.owner
}

// Buffered returns the number of events not yet flushed.
func (s *Session) Buffered() int {
	return s.buf.count()
}

// Now returns the current trace timestamp in microseconds.
func (s *Session) Now() float64 {
	return Microseconds(s.clock.Now())
}

// Enable starts recording into dest.
//
// Under the file lock the session seeks to the end of the file. An empty
// file gets the header and makes this session the owner. A file that ends
// with the footer of a finished trace is reopened: the footer is cut off and
// this session becomes the owner again. Otherwise another session owns the
// file and this one only appends.
func (s *Session) Enable(dest Destination) error {
	s.ctl.Lock()
	defer s.ctl.Unlock()

	if s.restricted.Load() {
		return ErrControlNotPermitted
	}
	if s.enabled.Load() {
		return ErrAlreadyEnabled
	}

	h, err := dest.open()
	if err != nil {
		return err
	}

	if err := lockFile(h); err != nil {
		dest.release(h)
		return err
	}
	owner, first, err := prepareFile(h)
	if unlockErr := unlockFile(h); err == nil {
		err = unlockErr
	}
	if err != nil {
		dest.release(h)
		return err
	}

	pid := s.identity.PID()
	s.handle = h
	s.name = dest.String()
	s.owner = owner
	s.firstEventOffset = first
	if stale := s.buf.reset(pid); stale > 0 {
		s.log.WithField("events", stale).Debug("chrometrace: discarded events recorded after disable")
	}
	s.enabled.Store(true)
	exits.register(pid, s, s.exitHook)

	s.log.WithFields(logrus.Fields{
		"file":  s.name,
		"owner": owner,
		"pid":   pid,
	}).Debug("chrometrace: tracing enabled")

	if s.processMetadata {
		s.recordProcessName(pid)
	}
	s.startFlusher()
	return nil
}

// prepareFile positions h for appending and reports ownership and the offset
// past which the file holds events. Caller holds the file lock.
func prepareFile(h Handle) (owner bool, first int64, err error) {
	end, err := h.Seek(0, io.SeekEnd)
	if err != nil {
		return false, 0, fmt.Errorf("seek trace file: %w", err)
	}
	if end == 0 {
		if _, err := io.WriteString(h, fileHeader); err != nil {
			return false, 0, fmt.Errorf("write trace header: %w", err)
		}
		return true, int64(len(fileHeader)), nil
	}

	// A file we cannot read back, such as one opened write-only, is treated
	// as another session's document once it is long enough to hold a header.
	unread := end
	if end >= int64(len(fileHeader)) {
		unread = int64(len(fileHeader))
	}
	ra, ok := h.(io.ReaderAt)
	if !ok {
		return false, unread, nil
	}
	head, err := readHeader(ra)
	if err != nil {
		return false, unread, nil
	}
	if head != fileHeader {
		return false, end, nil
	}

	if t, ok := h.(interface{ Truncate(int64) error }); ok {
		if cut, found := footerOffset(ra, end); found {
			if err := t.Truncate(cut); err != nil {
				return false, 0, fmt.Errorf("reopen trace file: %w", err)
			}
			if _, err := h.Seek(0, io.SeekEnd); err != nil {
				return false, 0, fmt.Errorf("seek trace file: %w", err)
			}
			return true, int64(len(fileHeader)), nil
		}
	}
	return false, int64(len(fileHeader)), nil
}

// readHeader returns the leading bytes of the file where the header would be.
func readHeader(ra io.ReaderAt) (string, error) {
	head := make([]byte, len(fileHeader))
	n, err := ra.ReadAt(head, 0)
	if err == io.EOF && n < len(head) {
		return string(head[:n]), nil
	}
	if err != nil {
		return "", err
	}
	return string(head), nil
}

// footerOffset finds a trailing footer and returns the offset it starts at.
func footerOffset(ra io.ReaderAt, end int64) (int64, bool) {
	const window = 64
	start := end - window
	if start < int64(len(fileHeader)) {
		start = int64(len(fileHeader))
	}
	if start >= end {
		return 0, false
	}
	tail := make([]byte, end-start)
	if _, err := ra.ReadAt(tail, start); err != nil && err != io.EOF {
		return 0, false
	}
	trimmed := bytes.TrimRight(tail, " \t\r\n")
	if !bytes.HasSuffix(trimmed, []byte(fileFooter)) {
		return 0, false
	}
	return start + int64(len(trimmed)-len(fileFooter)), true
}

// RecordEvent appends one event. It is a no-op while disabled.
// This is the primitive every Begin/End goes through.
func (s *Session) RecordEvent(ph Phase, ts float64, category, name string, args Args) {
	if !s.enabled.Load() {
		return
	}
	pid := s.identity.PID()
	ev := Event{
		Phase:     ph,
		Timestamp: ts,
		Category:  category,
		ProcessID: pid,
		ThreadID:  s.identity.TID(),
		Name:      name,
		Args:      args,
	}
	if dropped, forked := s.buf.add(pid, ev); forked {
		s.adoptProcess(pid, dropped)
	}
}

// adoptProcess reacts to the session running under a new process id.
func (s *Session) adoptProcess(pid, dropped int) {
	s.restricted.Store(true)

	s.ctl.Lock()
	s.owner = false
	s.ctl.Unlock()

	if exits.register(pid, s, s.exitHook) {
		s.log.WithFields(logrus.Fields{
			"pid":     pid,
			"dropped": dropped,
		}).Debug("chrometrace: new process observed, inherited events discarded")
	}
}

// Flush writes buffered events to the file under the file lock.
// It is a no-op while disabled. The file stays open.
func (s *Session) Flush() error {
	s.ctl.Lock()
	defer s.ctl.Unlock()

	if !s.enabled.Load() {
		return nil
	}
	return s.flushLocked()
}

// flushLocked drains the buffer into the file. Caller holds ctl.
func (s *Session) flushLocked() error {
	if s.buf.count() == 0 {
		return nil
	}
	// Events stay buffered until the lock is held.
	if err := lockFile(s.handle); err != nil {
		return err
	}
	defer func() {
		_ = unlockFile(s.handle)
	}()

	payload, err := encodeEvents(s.buf.drain())
	if err != nil {
		return err
	}

	end, err := s.handle.Seek(0, io.SeekEnd)
	if err != nil {
		return fmt.Errorf("seek trace file: %w", err)
	}
	if len(payload) == 0 {
		return nil
	}
	if end > s.firstEventOffset {
		if _, err := io.WriteString(s.handle, ","); err != nil {
			return fmt.Errorf("write trace events: %w", err)
		}
	}
	if _, err := s.handle.Write(payload); err != nil {
		return fmt.Errorf("write trace events: %w", err)
	}
	return nil
}

// encodeEvents serializes events comma-joined.
func encodeEvents(events []Event) ([]byte, error) {
	var buf bytes.Buffer
	for i := range events {
		if i > 0 {
			buf.WriteByte(',')
		}
		b, err := json.Marshal(&events[i])
		if err != nil {
			return nil, fmt.Errorf("encode trace event %q: %w", events[i].Name, err)
		}
		buf.Write(b)
	}
	return buf.Bytes(), nil
}

// Disable flushes remaining events, writes the footer if this session owns
// the file, and closes it. It is a no-op while disabled.
func (s *Session) Disable() error {
	if !s.enabled.Load() {
		return nil
	}
	if s.restricted.Load() {
		return ErrControlNotPermitted
	}
	return s.shutdown()
}

// shutdown finalizes the session regardless of restriction.
func (s *Session) shutdown() error {
	s.stopFlusher()

	s.ctl.Lock()
	defer s.ctl.Unlock()

	if !s.enabled.Load() {
		return nil
	}
	s.enabled.Store(false)
	exits.unregister(s.identity.PID(), s)

	err := s.flushLocked()
	if err == nil && s.owner {
		err = s.writeFooter()
	}
	if closeErr := s.handle.Close(); err == nil && closeErr != nil {
		err = fmt.Errorf("close trace file: %w", closeErr)
	}

	s.log.WithFields(logrus.Fields{
		"file":  s.name,
		"owner": s.owner,
	}).Debug("chrometrace: tracing disabled")

	s.handle = nil
	s.owner = false
	return err
}

// writeFooter closes the JSON document. Caller holds ctl.
func (s *Session) writeFooter() error {
	if err := lockFile(s.handle); err != nil {
		return err
	}
	defer func() {
		_ = unlockFile(s.handle)
	}()

	if _, err := s.handle.Seek(0, io.SeekEnd); err != nil {
		return fmt.Errorf("seek trace file: %w", err)
	}
	if _, err := io.WriteString(s.handle, fileFooter); err != nil {
		return fmt.Errorf("write trace footer: %w", err)
	}
	return nil
}

func (s *Session) exitHook() {
	if err := s.shutdown(); err != nil {
		s.log.WithError(err).Warn("chrometrace: failed to finalize trace at exit")
	}
}

// recordProcessName labels the process in trace viewers. Caller holds ctl.
func (s *Session) recordProcessName(pid int) {
	name := processName(pid)
	if name == "" {
		name = ProgramName()
	}
	s.buf.add(pid, Event{
		Phase:     PhaseMetadata,
		Timestamp: s.Now(),
		Category:  "__metadata",
		ProcessID: pid,
		ThreadID:  s.identity.TID(),
		Name:      "process_name",
		Args:      Args{{Key: "name", Value: name}},
	})
}
