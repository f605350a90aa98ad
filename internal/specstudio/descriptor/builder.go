package descriptor

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/tansive/specstudio/internal/common/apperrors"
	"github.com/tansive/specstudio/internal/common/fsutil"
	"github.com/tansive/specstudio/internal/specstudio/artifacts"
	"github.com/tansive/specstudio/internal/specstudio/regions"
	"github.com/tansive/specstudio/internal/specstudio/studiocommon"
	"github.com/tansive/specstudio/internal/specstudio/workspace"
)

// Builder assembles descriptors for a session and stages them as spec files.
type Builder struct {
	store   artifacts.Store
	regions regions.Parser
}

// NewBuilder returns a Builder that names files through store and loads region files
// through parser.
func NewBuilder(store artifacts.Store, parser regions.Parser) *Builder {
	return &Builder{
		store:   store,
		regions: parser,
	}
}

func requireWorkspace(sess *workspace.Session) apperrors.Error {
	if sess == nil {
		return studiocommon.ErrMissingWorkspace.Msg("no session")
	}
	fi, err := os.Stat(sess.Dir())
	if err != nil || !fi.IsDir() {
		return studiocommon.ErrMissingWorkspace.Msg("workspace for session " + sess.ID() + " does not exist")
	}
	return nil
}

// FromForm decodes request fields into a descriptor for sess. Missing optional fields
// take their empty values and unknown fields are ignored. The region reference is kept
// in RegionFile and not yet loaded; see AttachRegion.
func (b *Builder) FromForm(ctx context.Context, sess *workspace.Session, values url.Values) (*ProjectDescriptor, apperrors.Error) {
	if err := requireWorkspace(sess); err != nil {
		return nil, err
	}
	d, unused, err := DecodeForm(values)
	if err != nil {
		return nil, err
	}
	logIgnoredFields(ctx, unused)
	return d, nil
}

// AttachRegion loads the region file named by regionPath into d. An empty path leaves d
// region-less. Only the base name of regionPath is used; the file must be staged in the
// session workspace.
func (b *Builder) AttachRegion(ctx context.Context, sess *workspace.Session, d *ProjectDescriptor, regionPath string) apperrors.Error {
	if regionPath == "" {
		d.Region = nil
		d.RegionFile = ""
		return nil
	}
	if err := requireWorkspace(sess); err != nil {
		return err
	}
	p := filepath.Join(sess.Dir(), filepath.Base(regionPath))
	if _, err := os.Stat(p); err != nil {
		return studiocommon.ErrRegionNotLoaded.Msg("region file " + filepath.Base(regionPath) + " is not staged in this workspace")
	}
	return b.load(ctx, d, p)
}

func (b *Builder) load(ctx context.Context, d *ProjectDescriptor, p string) apperrors.Error {
	rd, err := b.regions.Load(p)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("region_file", p).Msg("unable to load region file")
		return studiocommon.ErrInvalidUpload.MsgErr("unable to parse region file "+filepath.Base(p), err)
	}
	d.Region = rd
	d.RegionFile = filepath.Base(p)
	return nil
}

// Serialize writes d to the session's canonical spec file, replacing any previous one,
// and records it as the session's current spec.
func (b *Builder) Serialize(ctx context.Context, sess *workspace.Session, d *ProjectDescriptor) (string, apperrors.Error) {
	if err := requireWorkspace(sess); err != nil {
		return "", err
	}
	d.normalize()
	if err := d.Options.Validate(); err != nil {
		return "", err
	}
	if err := d.ValidateNames(); err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := Encode(&buf, d); err != nil {
		return "", studiocommon.ErrStudioError.MsgErr("unable to encode spec", err)
	}
	p, err := b.store.Path(sess.ID(), artifacts.KindSpec)
	if err != nil {
		return "", studiocommon.ErrStudioError.MsgErr("unable to name spec file", err)
	}
	if err := fsutil.WriteFileAtomic(p, buf.Bytes(), 0o640); err != nil {
		log.Ctx(ctx).Error().Err(err).Str("spec_file", p).Msg("unable to write spec file")
		return "", studiocommon.ErrStudioError.MsgErr("unable to write spec file", err)
	}
	sess.SetSpecPath(p)
	log.Ctx(ctx).Debug().Str("spec_file", p).Str("region_file", d.RegionFile).Msg("spec written")
	return p, nil
}

// Deserialize reads the spec file at path. A region file must already be staged for the
// session. The spec's region reference is resolved next to the spec file; when that file
// is not in the workspace the session's staged region is attached instead.
func (b *Builder) Deserialize(ctx context.Context, sess *workspace.Session, path string) (*ProjectDescriptor, apperrors.Error) {
	if err := requireWorkspace(sess); err != nil {
		return nil, err
	}
	staged := sess.RegionPath()
	if staged == "" {
		return nil, studiocommon.ErrRegionRequired
	}

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, studiocommon.ErrArtifactNotFound.Msg("spec file " + filepath.Base(path) + " does not exist")
		}
		return nil, studiocommon.ErrStudioError.MsgErr("unable to open spec file", err)
	}
	defer f.Close()

	d, err := Decode(f)
	if err != nil {
		return nil, studiocommon.ErrInvalidUpload.MsgErr("unable to read spec file "+filepath.Base(path), err)
	}
	if verr := d.Options.Validate(); verr != nil {
		return nil, verr
	}

	regionPath := staged
	if d.RegionFile != "" {
		candidate := filepath.Join(filepath.Dir(path), filepath.Base(d.RegionFile))
		if fsutil.IsRegularFile(candidate) {
			regionPath = candidate
		} else {
			log.Ctx(ctx).Debug().
				Str("referenced", d.RegionFile).
				Str("staged", staged).
				Msg("referenced region file not in workspace, using staged region")
		}
	}
	if err := b.load(ctx, d, regionPath); err != nil {
		return nil, err
	}
	return d, nil
}

// ReadFile decodes a spec file without a session; the region reference is left unresolved.
func ReadFile(path string) (*ProjectDescriptor, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Decode(f)
}
