package workspace

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
	"go.uber.org/multierr"
)

// Report summarises one reclamation sweep.
type Report struct {
	Root              string   `json:"root" yaml:"root"`
	Retention         string   `json:"retention" yaml:"retention"`
	DryRun            bool     `json:"dry_run" yaml:"dry_run"`
	DeletedFiles      []string `json:"deleted_files" yaml:"deleted_files"`
	RemovedWorkspaces []string `json:"removed_workspaces" yaml:"removed_workspaces"`
	SkippedWorkspaces []string `json:"skipped_workspaces" yaml:"skipped_workspaces"`
	Errors            []string `json:"errors,omitempty" yaml:"errors,omitempty"`
}

// Reclaim deletes every workspace file last modified more than the retention threshold
// before now, regardless of which session owns it. Workspaces left empty whose session
// has been idle for longer than the threshold are removed together with their record.
// A workspace whose operation lock is held is skipped for this sweep. Filesystem errors
// are logged and listed in the report, never returned.
func (m *Manager) Reclaim(ctx context.Context, now time.Time) *Report {
	return m.reclaim(ctx, now, false)
}

// PlanReclaim reports what Reclaim would delete at now without touching the filesystem.
func (m *Manager) PlanReclaim(ctx context.Context, now time.Time) *Report {
	return m.reclaim(ctx, now, true)
}

func (m *Manager) reclaim(ctx context.Context, now time.Time, dryRun bool) *Report {
	logger := log.Ctx(ctx).With().Str("component", "reaper").Logger()
	rpt := &Report{
		Root:              m.Root(),
		Retention:         m.retention.String(),
		DryRun:            dryRun,
		DeletedFiles:      []string{},
		RemovedWorkspaces: []string{},
		SkippedWorkspaces: []string{},
	}

	entries, err := os.ReadDir(m.Root())
	if err != nil {
		if !isNotExist(err) {
			logger.Error().Err(err).Msg("unable to read uploads root")
			rpt.Errors = append(rpt.Errors, err.Error())
		}
		return rpt
	}

	var errs error
	for _, e := range entries {
		p := filepath.Join(m.Root(), e.Name())
		if !e.IsDir() {
			errs = multierr.Append(errs, m.reclaimFile(p, now, dryRun, rpt))
			continue
		}
		errs = multierr.Append(errs, m.reclaimWorkspace(e.Name(), p, now, dryRun, rpt))
	}

	if errs != nil {
		all := multierr.Errors(errs)
		for _, e := range all {
			rpt.Errors = append(rpt.Errors, e.Error())
		}
		logger.Warn().Err(errs).Int("error_count", len(all)).Msg("reclamation completed with errors")
	}
	logger.Debug().
		Int("deleted_files", len(rpt.DeletedFiles)).
		Int("removed_workspaces", len(rpt.RemovedWorkspaces)).
		Int("skipped_workspaces", len(rpt.SkippedWorkspaces)).
		Bool("dry_run", dryRun).
		Msg("reclamation sweep")
	return rpt
}

func (m *Manager) expired(mtime, now time.Time) bool {
	return now.Sub(mtime) > m.retention
}

func (m *Manager) reclaimFile(p string, now time.Time, dryRun bool, rpt *Report) error {
	fi, err := os.Lstat(p)
	if err != nil {
		if isNotExist(err) {
			return nil
		}
		return err
	}
	if !m.expired(fi.ModTime(), now) {
		return nil
	}
	if !dryRun {
		if err := os.Remove(p); err != nil && !isNotExist(err) {
			return err
		}
	}
	rpt.DeletedFiles = append(rpt.DeletedFiles, p)
	return nil
}

func (m *Manager) reclaimWorkspace(id, dir string, now time.Time, dryRun bool, rpt *Report) error {
	sess := m.lookup(id)
	if sess != nil {
		if !sess.TryLock() {
			rpt.SkippedWorkspaces = append(rpt.SkippedWorkspaces, dir)
			return nil
		}
		defer sess.Unlock()
	}

	dirInfo, err := os.Stat(dir)
	if err != nil {
		if isNotExist(err) {
			return nil
		}
		return err
	}

	var errs error
	remaining := 0
	walkErr := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			errs = multierr.Append(errs, err)
			remaining++
			if d != nil && d.IsDir() && p != dir {
				return filepath.SkipDir
			}
			return nil
		}
		if p == dir {
			return nil
		}
		if d.IsDir() {
			remaining++
			return nil
		}
		before := len(rpt.DeletedFiles)
		if err := m.reclaimFile(p, now, dryRun, rpt); err != nil {
			errs = multierr.Append(errs, err)
		}
		if len(rpt.DeletedFiles) == before {
			remaining++
			return nil
		}
		if sess != nil {
			if sess.SpecPath() == p {
				sess.SetSpecPath("")
			}
			if sess.RegionPath() == p {
				sess.SetRegionPath("")
			}
		}
		return nil
	})
	errs = multierr.Append(errs, walkErr)

	idleSince := dirInfo.ModTime()
	if sess != nil {
		idleSince = sess.LastUsed()
	}
	if remaining == 0 && m.expired(idleSince, now) {
		if !dryRun {
			if err := os.Remove(dir); err != nil && !isNotExist(err) {
				return multierr.Append(errs, err)
			}
			if sess != nil {
				m.forget(id, sess)
			}
		}
		rpt.RemovedWorkspaces = append(rpt.RemovedWorkspaces, dir)
	}
	return errs
}
