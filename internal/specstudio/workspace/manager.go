// Package workspace owns the per-session directory lifecycle: identity issuance, lazy
// workspace creation, the per-session record and time-based reclamation of stale files.
package workspace

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tansive/specstudio/internal/common/apperrors"
	"github.com/tansive/specstudio/internal/common/uuid"
	"github.com/tansive/specstudio/internal/specstudio/artifacts"
	"github.com/tansive/specstudio/internal/specstudio/studiocommon"
)

// DefaultRetention is the file age after which reclamation deletes workspace files.
const DefaultRetention = 5 * time.Hour

var (
	// ErrWorkspace is returned when a workspace directory cannot be created or read.
	ErrWorkspace apperrors.Error = studiocommon.ErrStudioError.New("workspace error")
)

// Option configures a Manager.
type Option func(*Manager)

// WithRetention sets the reclamation threshold.
func WithRetention(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.retention = d
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// Manager creates and resolves session workspaces below one uploads root.
type Manager struct {
	store     artifacts.Store
	retention time.Duration
	now       func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
	reaper   *Reaper
}

// NewManager returns a Manager rooted at root. The root directory is created on first use.
func NewManager(root string, opts ...Option) *Manager {
	m := &Manager{
		store:     artifacts.New(root),
		retention: DefaultRetention,
		now:       time.Now,
		sessions:  make(map[string]*Session),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Store returns the artifact naming store for this manager's root.
func (m *Manager) Store() artifacts.Store {
	return m.store
}

// Root returns the uploads root.
func (m *Manager) Root() string {
	return m.store.Root
}

// Retention returns the reclamation threshold.
func (m *Manager) Retention() time.Duration {
	return m.retention
}

// Resolve returns the workspace directory for id. No existence check is performed.
func (m *Manager) Resolve(id string) string {
	return m.store.WorkspaceDir(id)
}

// EnsureSession returns the session record for id, issuing a fresh identity when id is
// empty or not a valid session identity. The workspace directory is created if missing,
// and the reaper is nudged without waiting for it. created reports whether a new
// identity was issued.
func (m *Manager) EnsureSession(ctx context.Context, id string) (sess *Session, created bool, err apperrors.Error) {
	if !uuid.IsSessionID(id) {
		newID, genErr := uuid.NewSessionID()
		if genErr != nil {
			return nil, false, ErrWorkspace.MsgErr("unable to generate session identity", genErr)
		}
		if id != "" {
			log.Ctx(ctx).Debug().Str("presented", id).Msg("discarding malformed session identity")
		}
		id = newID
		created = true
	}

	dir := m.Resolve(id)
	if mkErr := os.MkdirAll(dir, 0o750); mkErr != nil {
		log.Ctx(ctx).Error().Err(mkErr).Str("dir", dir).Msg("unable to create workspace")
		return nil, false, ErrWorkspace.MsgErr("unable to create workspace", mkErr)
	}

	m.mu.Lock()
	sess, ok := m.sessions[id]
	if !ok {
		sess = m.rehydrate(id, dir)
		m.sessions[id] = sess
	}
	m.mu.Unlock()
	sess.touch(m.now())

	if created {
		log.Ctx(ctx).Info().Str("session_id", id).Msg("created session")
	}
	m.nudge()
	return sess, created, nil
}

// Session returns the record for an existing workspace. It fails with MissingWorkspace
// when id is not a valid identity or its directory does not exist. After a restart the
// record is rebuilt from the files found in the workspace.
func (m *Manager) Session(id string) (*Session, apperrors.Error) {
	if !uuid.IsSessionID(id) {
		return nil, studiocommon.ErrMissingWorkspace.Msg("no session identity")
	}
	dir := m.Resolve(id)
	fi, err := os.Stat(dir)
	if err != nil || !fi.IsDir() {
		m.mu.Lock()
		delete(m.sessions, id)
		m.mu.Unlock()
		return nil, studiocommon.ErrMissingWorkspace.Msg("workspace for session " + id + " does not exist")
	}

	m.mu.Lock()
	sess, ok := m.sessions[id]
	if !ok {
		sess = m.rehydrate(id, dir)
		m.sessions[id] = sess
	}
	m.mu.Unlock()
	sess.touch(m.now())
	return sess, nil
}

// Sessions returns the identities of all known session records, sorted.
func (m *Manager) Sessions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// rehydrate builds a record for a workspace whose record was lost, for example after a
// restart. The canonical spec becomes the current spec and the newest uploaded region
// file becomes the staged region.
func (m *Manager) rehydrate(id, dir string) *Session {
	sess := newSession(id, dir, m.now())

	if p, err := m.store.Path(id, artifacts.KindSpec); err == nil {
		if fi, err := os.Stat(p); err == nil && fi.Mode().IsRegular() {
			sess.specPath = p
		}
	}

	decomposed, _ := m.store.FileName(id, artifacts.KindDecomposed)
	var newest time.Time
	_ = filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if p != dir {
				return filepath.SkipDir
			}
			return nil
		}
		name := d.Name()
		if !strings.HasSuffix(name, ".regions") || name == decomposed {
			return nil
		}
		fi, err := d.Info()
		if err != nil {
			return nil
		}
		if fi.ModTime().After(newest) {
			newest = fi.ModTime()
			sess.regionPath = p
		}
		return nil
	})
	return sess
}

func (m *Manager) lookup(id string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[id]
}

func (m *Manager) forget(id string, sess *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sessions[id] == sess {
		delete(m.sessions, id)
	}
}

func (m *Manager) setReaper(r *Reaper) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reaper = r
}

func (m *Manager) nudge() {
	m.mu.Lock()
	r := m.reaper
	m.mu.Unlock()
	if r != nil {
		r.Trigger()
	}
}

func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
