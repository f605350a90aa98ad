package pipeline

import (
	"bytes"
	"context"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tansive/specstudio/internal/common/apperrors"
	"github.com/tansive/specstudio/internal/specstudio/artifacts"
	"github.com/tansive/specstudio/internal/specstudio/compiler"
	"github.com/tansive/specstudio/internal/specstudio/compiler/compilertest"
	"github.com/tansive/specstudio/internal/specstudio/orchestrator"
	"github.com/tansive/specstudio/internal/specstudio/regions"
	"github.com/tansive/specstudio/internal/specstudio/regions/regionstest"
	"github.com/tansive/specstudio/internal/specstudio/studiocommon"
	"github.com/tansive/specstudio/internal/specstudio/workspace"
)

type env struct {
	root string
	m    *workspace.Manager
	fake *compilertest.Fake
	f    *Facade
}

func newEnv(t *testing.T) *env {
	t.Helper()
	root := t.TempDir()
	m := workspace.NewManager(root)
	fake := compilertest.New()
	return &env{
		root: root,
		m:    m,
		fake: fake,
		f:    New(m, regions.NewParser(), fake, []string{"*.regions", "*.spec", "*.aut"}),
	}
}

func regionUpload(name string, regionNames ...string) *Upload {
	return &Upload{
		Filename: name,
		Body:     strings.NewReader(regionstest.Content(regionstest.RegionsJSON(regionNames...))),
	}
}

func readAll(t *testing.T, d *Download) string {
	t.Helper()
	defer d.Body.Close()
	b, err := io.ReadAll(d.Body)
	require.NoError(t, err)
	return string(b)
}

func dirCount(t *testing.T, dir string) int {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	return len(entries)
}

func TestUploadBuildCompileBundle(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	c := &Caller{}

	up, err := e.f.UploadRegions(ctx, c, regionUpload("floor.regions", "kitchen", "hall"))
	require.Nil(t, err)
	require.NotEmpty(t, c.SessionID)
	require.Len(t, up.Regions, 2)
	assert.Equal(t, "kitchen", up.Regions[0].Name)
	assert.Equal(t, "hall", up.Regions[1].Name)
	assert.Equal(t, filepath.Base(e.root)+"/"+c.SessionID+"/floor.regions", up.Path)

	build, err := e.f.BuildSpec(ctx, c, url.Values{
		"specText":    {"go to kitchen"},
		"all_sensors": {"s1"},
		"synthesizer": {"jtlv"},
		"regionPath":  {up.Path},
	})
	require.Nil(t, err)
	assert.Equal(t, "True", build.Success)

	res, err := e.f.Compile(ctx, c)
	require.Nil(t, err)
	assert.NotEmpty(t, res.CompilerLog)
	assert.True(t, res.Realizable)

	bundle, err := e.f.Download(ctx, c, artifacts.KindBundle)
	require.Nil(t, err)
	assert.Equal(t, c.SessionID+".zip", bundle.Name)
	assert.Equal(t, "application/zip", bundle.ContentType)
	bundle.Body.Close()

	entries, zerr := orchestrator.BundleEntries(e.m.Store().MustPath(c.SessionID, artifacts.KindBundle))
	require.NoError(t, zerr)
	id := c.SessionID
	assert.ElementsMatch(t, []string{
		"floor.regions", id + ".spec", id + ".aut", id + ".ltl", id + ".smv", id + "_decomposed.regions",
	}, entries)

	for _, kind := range artifacts.DerivedKinds() {
		d, err := e.f.Download(ctx, c, kind)
		require.Nil(t, err, string(kind))
		assert.Equal(t, string(kind)+" output\n", readAll(t, d))
	}

	logDownload, err := e.f.Download(ctx, c, artifacts.KindCompileLog)
	require.Nil(t, err)
	assert.Equal(t, id+".log", logDownload.Name)
	assert.Equal(t, res.CompilerLog, readAll(t, logDownload))

	region, err := e.f.Download(ctx, c, artifacts.KindRegion)
	require.Nil(t, err)
	assert.Equal(t, "floor.regions", region.Name)
	assert.Contains(t, readAll(t, region), "kitchen")
}

func TestAnalyzeBeforeBuild(t *testing.T) {
	e := newEnv(t)
	c := &Caller{}

	_, err := e.f.Analyze(context.Background(), c)
	require.Error(t, err)
	assert.Equal(t, studiocommon.KindSpecNotLoaded, apperrors.KindOf(err))
	assert.Empty(t, c.SessionID)
	assert.Equal(t, 0, dirCount(t, e.root))

	_, err = e.f.Compile(context.Background(), &Caller{SessionID: "0b8e2c5e-3f4c-4a57-9d1e-6f7a8b9c0d1e"})
	assert.Equal(t, studiocommon.KindSpecNotLoaded, apperrors.KindOf(err))
	assert.Equal(t, 0, dirCount(t, e.root))
	assert.Empty(t, e.fake.Calls())
}

func TestAnalyzeAfterBuild(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	c := &Caller{}

	_, err := e.f.BuildSpec(ctx, c, url.Values{"specText": {"always not person"}})
	require.Nil(t, err)
	before := dirCount(t, e.m.Resolve(c.SessionID))

	res, err := e.f.Analyze(ctx, c)
	require.Nil(t, err)
	assert.True(t, res.Realizable)
	assert.JSONEq(t, "[]", string(res.Highlights))
	assert.Equal(t, before, dirCount(t, e.m.Resolve(c.SessionID)))

	// a region-less spec cannot be compiled
	_, err = e.f.Compile(ctx, c)
	assert.Equal(t, studiocommon.KindRegionNotLoaded, apperrors.KindOf(err))
}

func TestUploadRejectedBeforeSessionCreation(t *testing.T) {
	tests := []struct {
		name string
		up   func() *Upload
	}{
		{"disallowed extension", func() *Upload { return &Upload{Filename: "plan.txt", Body: strings.NewReader("hello")} }},
		{"no file", func() *Upload { return nil }},
		{"empty name", func() *Upload { return &Upload{Filename: "", Body: strings.NewReader("x")} }},
		{"png content", func() *Upload {
			return &Upload{Filename: "floor.regions", Body: bytes.NewReader([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"))}
		}},
		{"zip content", func() *Upload {
			return &Upload{Filename: "floor.spec", Body: bytes.NewReader([]byte("PK\x03\x04\x14\x00\x00\x00\x08\x00"))}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv(t)
			c := &Caller{}
			_, err := e.f.UploadRegions(context.Background(), c, tt.up())
			require.Error(t, err)
			assert.ErrorIs(t, err, studiocommon.ErrInvalidUpload)
			assert.Empty(t, c.SessionID)
			assert.Equal(t, 0, dirCount(t, e.root))

			_, err = e.f.ImportSpec(context.Background(), c, tt.up())
			assert.ErrorIs(t, err, studiocommon.ErrInvalidUpload)
			assert.Equal(t, 0, dirCount(t, e.root))
		})
	}
}

func TestUploadUnparseableRegionFile(t *testing.T) {
	e := newEnv(t)
	c := &Caller{}
	_, err := e.f.UploadRegions(context.Background(), c, &Upload{Filename: "floor.regions", Body: strings.NewReader("Regions:\nnot json\n")})
	assert.ErrorIs(t, err, studiocommon.ErrInvalidUpload)
	require.NotEmpty(t, c.SessionID)

	sess, serr := e.m.Session(c.SessionID)
	require.Nil(t, serr)
	assert.Empty(t, sess.RegionPath())
	assert.Equal(t, 0, dirCount(t, sess.Dir()))
}

func TestUploadSanitisesName(t *testing.T) {
	e := newEnv(t)
	c := &Caller{}
	up, err := e.f.UploadRegions(context.Background(), c, regionUpload("../../my floor.regions", "a"))
	require.Nil(t, err)
	assert.True(t, strings.HasSuffix(up.Path, "/"+c.SessionID+"/my_floor.regions"), up.Path)
	assert.FileExists(t, e.m.Resolve(c.SessionID)+"/my_floor.regions")
}

func TestUploadRejectsCanonicalName(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	c := &Caller{}
	_, err := e.f.UploadRegions(ctx, c, regionUpload("floor.regions", "a"))
	require.Nil(t, err)
	staged := e.m.Resolve(c.SessionID) + "/floor.regions"

	_, err = e.f.UploadRegions(ctx, c, regionUpload(c.SessionID+"_decomposed.regions", "b"))
	require.Error(t, err)
	assert.ErrorIs(t, err, studiocommon.ErrInvalidUpload)
	assert.NoFileExists(t, e.m.Store().MustPath(c.SessionID, artifacts.KindDecomposed))

	sess, serr := e.m.Session(c.SessionID)
	require.Nil(t, serr)
	assert.Equal(t, staged, sess.RegionPath())
}

func TestImportRequiresRegion(t *testing.T) {
	e := newEnv(t)
	c := &Caller{}
	_, err := e.f.ImportSpec(context.Background(), c, &Upload{Filename: "old.spec", Body: strings.NewReader("Spec:\ngo\n")})
	require.Error(t, err)
	assert.Equal(t, studiocommon.KindRegionRequired, apperrors.KindOf(err))
}

func TestSaveSpecThenImport(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	author := &Caller{}
	up, err := e.f.UploadRegions(ctx, author, regionUpload("floor.regions", "kitchen", "hall"))
	require.Nil(t, err)
	spec, err := e.f.SaveSpec(ctx, author, url.Values{
		"specText":          {"go to kitchen\nvisit hall"},
		"all_sensors":       {"s1", "s2"},
		"enabled_sensors":   {"s2"},
		"all_actuators":     {"a1"},
		"enabled_actuators": {"a1"},
		"all_customs":       {"p1"},
		"convexify":         {"true"},
		"synthesizer":       {"slugs"},
		"parser":            {"slurp"},
		"regionPath":        {up.Path},
	})
	require.Nil(t, err)
	assert.Equal(t, author.SessionID+".spec", spec.Name)
	exported := readAll(t, spec)

	other := &Caller{}
	_, err = e.f.UploadRegions(ctx, other, regionUpload("floor.regions", "kitchen", "hall"))
	require.Nil(t, err)
	require.NotEqual(t, author.SessionID, other.SessionID)

	view, err := e.f.ImportSpec(ctx, other, &Upload{Filename: author.SessionID + ".spec", Body: strings.NewReader(exported)})
	require.Nil(t, err)
	assert.Equal(t, "go to kitchen\nvisit hall", view.SpecText)
	assert.True(t, view.Convexify)
	assert.False(t, view.FastSlow)
	assert.Equal(t, "slugs", view.Synthesizer)
	assert.Equal(t, "slurp", view.Parser)
	assert.Equal(t, []string{"s1", "s2"}, view.AllSensors)
	assert.Equal(t, []string{"s2"}, view.EnabledSensors)
	assert.Equal(t, []string{"a1"}, view.AllActuators)
	assert.Equal(t, []string{"a1"}, view.EnabledActuators)
	assert.Equal(t, []string{"p1"}, view.AllCustoms)
	assert.Equal(t, []string{"kitchen", "hall"}, view.RegionList)
	assert.True(t, strings.HasSuffix(view.RegionPath, "/"+other.SessionID+"/floor.regions"))

	// the import became the session's spec and compiles
	res, err := e.f.Compile(ctx, other)
	require.Nil(t, err)
	assert.True(t, res.Realizable)
	calls := e.fake.Calls()
	require.NotEmpty(t, calls)
	assert.Equal(t, e.m.Store().MustPath(other.SessionID, artifacts.KindSpec), calls[len(calls)-1].SpecPath)
}

func TestDownloadsBeforeBuild(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	unknown := &Caller{SessionID: "0b8e2c5e-3f4c-4a57-9d1e-6f7a8b9c0d1e"}
	for _, kind := range []artifacts.Kind{artifacts.KindSpec, artifacts.KindBundle, artifacts.KindRegion, artifacts.KindCompileLog} {
		_, err := e.f.Download(ctx, unknown, kind)
		assert.Equal(t, studiocommon.KindArtifactNotFound, apperrors.KindOf(err), string(kind))
	}
	assert.Equal(t, 0, dirCount(t, e.root))

	c := &Caller{}
	_, err := e.f.UploadRegions(ctx, c, regionUpload("floor.regions", "kitchen"))
	require.Nil(t, err)
	for _, kind := range []artifacts.Kind{artifacts.KindSpec, artifacts.KindAut, artifacts.KindLTL, artifacts.KindSMV, artifacts.KindDecomposed, artifacts.KindBundle, artifacts.KindCompileLog} {
		_, err := e.f.Download(ctx, c, kind)
		assert.Equal(t, studiocommon.KindArtifactNotFound, apperrors.KindOf(err), string(kind))
	}
}

func TestCompileHoldsSessionLock(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	c := &Caller{}
	up, err := e.f.UploadRegions(ctx, c, regionUpload("floor.regions", "kitchen"))
	require.Nil(t, err)
	_, err = e.f.BuildSpec(ctx, c, url.Values{"specText": {"go"}, "regionPath": {up.Path}})
	require.Nil(t, err)

	other := &Caller{}
	_, err = e.f.BuildSpec(ctx, other, url.Values{"specText": {"go"}})
	require.Nil(t, err)

	var locked, otherFree bool
	e.fake.Before = func(ctx context.Context, mode compiler.Mode) {
		sess, serr := e.m.Session(c.SessionID)
		require.Nil(t, serr)
		locked = !sess.TryLock()
		if !locked {
			sess.Unlock()
		}
		o, serr := e.m.Session(other.SessionID)
		require.Nil(t, serr)
		otherFree = o.TryLock()
		if otherFree {
			o.Unlock()
		}
	}
	_, err = e.f.Compile(ctx, c)
	require.Nil(t, err)
	assert.True(t, locked, "compile runs under the session lock")
	assert.True(t, otherFree, "other sessions are not blocked")
}
