package pipeline

import (
	"bytes"
	"context"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/h2non/filetype"
	"github.com/tansive/specstudio/internal/common/apperrors"
	"github.com/tansive/specstudio/internal/common/fsutil"
	"github.com/tansive/specstudio/internal/specstudio/artifacts"
	"github.com/tansive/specstudio/internal/specstudio/regions"
	"github.com/tansive/specstudio/internal/specstudio/studiocommon"
)

// sniffLen is the number of leading bytes inspected to recognise binary formats.
const sniffLen = 261

// Upload is a file received from the client.
type Upload struct {
	Filename string
	Body     io.Reader
}

// checkedUpload is an upload whose name and leading bytes were accepted.
type checkedUpload struct {
	name string
	body io.Reader
}

// checkUpload verifies the file name against the allow-list and rejects content that is
// recognisably binary. It runs before any session is created.
func (f *Facade) checkUpload(up *Upload) (*checkedUpload, apperrors.Error) {
	if up == nil || up.Body == nil || up.Filename == "" {
		return nil, studiocommon.ErrInvalidUpload.Msg("no file was uploaded")
	}
	base := path.Base(strings.ReplaceAll(up.Filename, `\`, "/"))
	if !f.allowedName(base) {
		return nil, studiocommon.ErrInvalidUpload.Msg("file type not allowed: " + base)
	}
	if artifacts.SanitizeFilename(base) == "" {
		return nil, studiocommon.ErrInvalidUpload.Msg("invalid file name: " + base)
	}

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(up.Body, head)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return nil, studiocommon.ErrInvalidUpload.MsgErr("unable to read upload", err)
	}
	head = head[:n]
	if kind, _ := filetype.Match(head); kind != filetype.Unknown {
		return nil, studiocommon.ErrInvalidUpload.Msg("unexpected " + kind.MIME.Value + " content in " + base)
	}
	return &checkedUpload{
		name: base,
		body: io.MultiReader(bytes.NewReader(head), up.Body),
	}, nil
}

func (f *Facade) allowedName(name string) bool {
	for _, pattern := range f.allowed {
		if ok, err := doublestar.Match(pattern, name); err == nil && ok {
			return true
		}
	}
	return false
}

func saveUpload(p string, body io.Reader) error {
	return fsutil.WriteAtomic(p, 0o640, func(w io.Writer) error {
		_, err := io.Copy(w, body)
		return err
	})
}

// UploadResponse is returned by UploadRegions.
type UploadResponse struct {
	Regions []regions.Region `json:"theList"`
	Path    string           `json:"thePath"`
}

// UploadRegions stages a region file in the caller's workspace and makes it the
// session's current region.
func (f *Facade) UploadRegions(ctx context.Context, c *Caller, up *Upload) (*UploadResponse, apperrors.Error) {
	checked, err := f.checkUpload(up)
	if err != nil {
		return nil, err
	}
	sess, err := f.ensure(ctx, c)
	if err != nil {
		return nil, err
	}
	defer sess.Unlock()
	l := logger(ctx, sess, "upload-regions")

	p, perr := f.workspaces.Store().RegionPath(sess.ID(), checked.name)
	if perr != nil {
		return nil, studiocommon.ErrInvalidUpload.MsgErr("invalid file name", perr)
	}
	if serr := saveUpload(p, checked.body); serr != nil {
		l.Error().Err(serr).Str("file", p).Msg("unable to save upload")
		return nil, studiocommon.ErrStudioError.MsgErr("unable to save upload", serr)
	}
	summary, rerr := f.regions.ExtractSummary(p)
	if rerr != nil {
		l.Info().Err(rerr).Str("file", p).Msg("rejected region file")
		os.Remove(p)
		return nil, studiocommon.ErrInvalidUpload.MsgErr("unable to parse region file "+filepath.Base(p), rerr)
	}
	sess.SetRegionPath(p)
	l.Info().Str("file", filepath.Base(p)).Int("regions", len(summary)).Msg("region file staged")

	return &UploadResponse{
		Regions: summary,
		Path:    f.displayPath(sess, p),
	}, nil
}

// ImportResponse is the descriptor view returned by ImportSpec.
type ImportResponse struct {
	SpecText             string   `json:"specText"`
	Convexify            bool     `json:"convexify"`
	FastSlow             bool     `json:"fastslow"`
	UseRegionBitEncoding bool     `json:"use_region_bit_encoding"`
	Symbolic             bool     `json:"symbolic"`
	Parser               string   `json:"parser"`
	Synthesizer          string   `json:"synthesizer"`
	AllSensors           []string `json:"all_sensors"`
	EnabledSensors       []string `json:"enabled_sensors"`
	AllActuators         []string `json:"all_actuators"`
	EnabledActuators     []string `json:"enabled_actuators"`
	AllCustoms           []string `json:"all_customs"`
	RegionPath           string   `json:"regionPath"`
	RegionList           []string `json:"regionList"`
}

// ImportSpec reads a previously exported spec file, makes it the session's current spec
// and returns its contents. A region file must have been uploaded first.
func (f *Facade) ImportSpec(ctx context.Context, c *Caller, up *Upload) (*ImportResponse, apperrors.Error) {
	checked, err := f.checkUpload(up)
	if err != nil {
		return nil, err
	}
	sess, err := f.ensure(ctx, c)
	if err != nil {
		return nil, err
	}
	defer sess.Unlock()
	l := logger(ctx, sess, "import-spec")

	if sess.RegionPath() == "" {
		return nil, studiocommon.ErrRegionRequired
	}

	tmp, terr := os.CreateTemp(sess.Dir(), ".import-*.spec")
	if terr != nil {
		return nil, studiocommon.ErrStudioError.MsgErr("unable to stage imported spec", terr)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)
	_, cerr := io.Copy(tmp, checked.body)
	if closeErr := tmp.Close(); cerr == nil {
		cerr = closeErr
	}
	if cerr != nil {
		return nil, studiocommon.ErrStudioError.MsgErr("unable to stage imported spec", cerr)
	}

	d, err := f.builder.Deserialize(ctx, sess, tmpPath)
	if err != nil {
		return nil, err
	}
	if _, err := f.builder.Serialize(ctx, sess, d); err != nil {
		return nil, err
	}
	l.Info().Str("file", checked.name).Str("region_file", d.RegionFile).Msg("spec imported")

	return &ImportResponse{
		SpecText:             d.SpecText,
		Convexify:            d.Options.Convexify,
		FastSlow:             d.Options.FastSlow,
		UseRegionBitEncoding: d.Options.UseRegionBitEncoding,
		Symbolic:             d.Options.Symbolic,
		Parser:               d.Options.Parser,
		Synthesizer:          d.Options.Synthesizer,
		AllSensors:           d.AllSensors,
		EnabledSensors:       d.EnabledSensors,
		AllActuators:         d.AllActuators,
		EnabledActuators:     d.EnabledActuators,
		AllCustoms:           d.AllCustoms,
		RegionPath:           f.displayPath(sess, d.RegionPath()),
		RegionList:           d.RegionNames(),
	}, nil
}
