package session

import (
	"sync"
	"sync/atomic"

	"github.com/morganstanley/binlog-sub000/wire"
)

// Site is the once-per-call-site registration handle (C6, §4.6): the Go
// analogue of the static EventSource instance a source-language macro would
// allocate at the call site. A package-level var of this type next to each
// log statement plays the role the original's program-load-time address
// trick played; Register is idempotent and safe under a first-caller race
// (at most one registration reaches the session per process, because
// sync.Once — not a bare CAS — guards it).
type Site struct {
	once sync.Once
	id   atomic.Uint64
	src  wire.EventSource
}

// NewSite describes a call site once; Register against a Session assigns
// it an id lazily on first use.
func NewSite(severity wire.Severity, category, function, file string, line uint64, format, argTags string) *Site {
	return &Site{
		src: wire.EventSource{
			Severity:     severity,
			Category:     category,
			Function:     function,
			File:         file,
			Line:         line,
			FormatString: format,
			ArgumentTags: argTags,
		},
	}
}

// Register returns the id this call site is known by, registering it with
// sess on first call. Concurrent first calls race harmlessly: sync.Once
// guarantees exactly one of them actually calls AddEventSource. Only the
// first call registers; later calls, with any Session, return the id the
// first Session assigned.
func (s *Site) Register(sess *Session) uint64 {
	s.once.Do(func() {
		src := s.src
		id := sess.AddEventSource(&src)
		s.id.Store(id)
	})
	return s.id.Load()
}
