package workspace

import (
	"sync"
	"time"
)

// Session is the explicit per-session record: the current spec, the current region file,
// the time of last use and the operation lock that serialises pipeline operations for
// one workspace. The reclamation sweep skips a workspace whose lock is held.
type Session struct {
	id  string
	dir string

	op sync.Mutex

	mu         sync.Mutex
	specPath   string
	regionPath string
	lastUsed   time.Time
}

func newSession(id, dir string, now time.Time) *Session {
	return &Session{
		id:       id,
		dir:      dir,
		lastUsed: now,
	}
}

// ID returns the session identity.
func (s *Session) ID() string {
	return s.id
}

// Dir returns the workspace directory.
func (s *Session) Dir() string {
	return s.dir
}

// Lock acquires the operation lock.
func (s *Session) Lock() {
	s.op.Lock()
}

// Unlock releases the operation lock.
func (s *Session) Unlock() {
	s.op.Unlock()
}

// TryLock acquires the operation lock if it is free.
func (s *Session) TryLock() bool {
	return s.op.TryLock()
}

// SpecPath returns the current spec file, or "" if none was built or imported.
func (s *Session) SpecPath() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.specPath
}

// SetSpecPath records p as the current spec file.
func (s *Session) SetSpecPath(p string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.specPath = p
}

// RegionPath returns the staged region file, or "" if none was uploaded.
func (s *Session) RegionPath() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.regionPath
}

// SetRegionPath records p as the staged region file.
func (s *Session) SetRegionPath(p string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.regionPath = p
}

// LastUsed returns the last time the session was resolved by a pipeline operation.
func (s *Session) LastUsed() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastUsed
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if now.After(s.lastUsed) {
		s.lastUsed = now
	}
}
