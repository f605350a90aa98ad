package workspace

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	t    *testing.T
	root string
	now  time.Time
	m    *Manager
}

func newFixture(t *testing.T, retention time.Duration) *fixture {
	f := &fixture{
		t:    t,
		root: t.TempDir(),
		now:  time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	f.m = NewManager(f.root, WithRetention(retention), WithClock(func() time.Time { return f.now }))
	return f
}

func (f *fixture) file(rel string, age time.Duration) string {
	p := filepath.Join(f.root, rel)
	require.NoError(f.t, os.MkdirAll(filepath.Dir(p), 0o750))
	require.NoError(f.t, os.WriteFile(p, []byte(rel), 0o600))
	mtime := f.now.Add(-age)
	require.NoError(f.t, os.Chtimes(p, mtime, mtime))
	return p
}

func (f *fixture) ageDir(rel string, age time.Duration) {
	mtime := f.now.Add(-age)
	require.NoError(f.t, os.Chtimes(filepath.Join(f.root, rel), mtime, mtime))
}

func TestReclaimDeletesOnlyExpiredFiles(t *testing.T) {
	f := newFixture(t, 5*time.Hour)
	a := "0b7c1a6e-7b1f-4d2e-9a3c-5f8e2d1c4b6a"
	b := "5d41402a-bc4b-4a76-b971-9d911017c592"

	oldA := f.file(a+"/"+a+".spec", 6*time.Hour)
	newA := f.file(a+"/floor.regions", time.Hour)
	oldB := f.file(b+"/"+b+".aut", 5*time.Hour+time.Second)
	edgeB := f.file(b+"/"+b+".ltl", 5*time.Hour)

	rpt := f.m.Reclaim(context.Background(), f.now)

	assert.NoFileExists(t, oldA)
	assert.NoFileExists(t, oldB)
	assert.FileExists(t, newA)
	assert.FileExists(t, edgeB)
	assert.ElementsMatch(t, []string{oldA, oldB}, rpt.DeletedFiles)
	assert.Empty(t, rpt.RemovedWorkspaces)
	assert.Empty(t, rpt.Errors)
}

func TestReclaimRemovesIdleEmptyWorkspaces(t *testing.T) {
	f := newFixture(t, time.Hour)
	idle := "0b7c1a6e-7b1f-4d2e-9a3c-5f8e2d1c4b6a"
	f.file(idle+"/"+idle+".spec", 2*time.Hour)
	f.ageDir(idle, 2*time.Hour)

	rpt := f.m.Reclaim(context.Background(), f.now)
	assert.NoDirExists(t, filepath.Join(f.root, idle))
	assert.Equal(t, []string{filepath.Join(f.root, idle)}, rpt.RemovedWorkspaces)
}

func TestReclaimKeepsActiveSessionWorkspace(t *testing.T) {
	f := newFixture(t, time.Hour)
	sess, _, err := f.m.EnsureSession(context.Background(), "")
	require.NoError(t, err)
	spec := f.file(sess.ID()+"/"+sess.ID()+".spec", 2*time.Hour)
	sess.SetSpecPath(spec)
	f.ageDir(sess.ID(), 2*time.Hour)

	rpt := f.m.Reclaim(context.Background(), f.now)
	assert.Equal(t, []string{spec}, rpt.DeletedFiles)
	assert.Empty(t, rpt.RemovedWorkspaces)
	assert.DirExists(t, sess.Dir())
	assert.Equal(t, "", sess.SpecPath())

	// once idle past the threshold the empty workspace and its record go away
	f.now = f.now.Add(2 * time.Hour)
	rpt = f.m.Reclaim(context.Background(), f.now)
	assert.Equal(t, []string{sess.Dir()}, rpt.RemovedWorkspaces)
	assert.NotContains(t, f.m.Sessions(), sess.ID())
}

func TestReclaimSkipsLockedWorkspace(t *testing.T) {
	f := newFixture(t, time.Hour)
	sess, _, err := f.m.EnsureSession(context.Background(), "")
	require.NoError(t, err)
	spec := f.file(sess.ID()+"/"+sess.ID()+".spec", 3*time.Hour)

	sess.Lock()
	rpt := f.m.Reclaim(context.Background(), f.now)
	sess.Unlock()

	assert.FileExists(t, spec)
	assert.Equal(t, []string{sess.Dir()}, rpt.SkippedWorkspaces)

	rpt = f.m.Reclaim(context.Background(), f.now)
	assert.NoFileExists(t, spec)
	assert.Empty(t, rpt.SkippedWorkspaces)
}

func TestPlanReclaimIsDryRun(t *testing.T) {
	f := newFixture(t, time.Hour)
	id := "0b7c1a6e-7b1f-4d2e-9a3c-5f8e2d1c4b6a"
	old := f.file(id+"/"+id+".zip", 2*time.Hour)
	f.ageDir(id, 2*time.Hour)

	rpt := f.m.PlanReclaim(context.Background(), f.now)
	assert.True(t, rpt.DryRun)
	assert.Equal(t, []string{old}, rpt.DeletedFiles)
	assert.Equal(t, []string{filepath.Join(f.root, id)}, rpt.RemovedWorkspaces)
	assert.FileExists(t, old)
}

func TestReclaimMissingRoot(t *testing.T) {
	m := NewManager(filepath.Join(t.TempDir(), "absent"))
	rpt := m.Reclaim(context.Background(), time.Now())
	assert.Empty(t, rpt.DeletedFiles)
	assert.Empty(t, rpt.Errors)
}
