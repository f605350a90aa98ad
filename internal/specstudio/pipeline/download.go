package pipeline

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/tansive/specstudio/internal/common/apperrors"
	"github.com/tansive/specstudio/internal/specstudio/artifacts"
	"github.com/tansive/specstudio/internal/specstudio/studiocommon"
)

// Download is an open workspace file. The receiver must close Body.
type Download struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.ReadCloser
}

func openDownload(p, contentType string) (*Download, apperrors.Error) {
	f, err := os.Open(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, studiocommon.ErrArtifactNotFound.Msg(filepath.Base(p) + " does not exist")
		}
		return nil, studiocommon.ErrStudioError.MsgErr("unable to open "+filepath.Base(p), err)
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, studiocommon.ErrStudioError.MsgErr("unable to open "+filepath.Base(p), err)
	}
	return &Download{
		Name:        filepath.Base(p),
		ContentType: contentType,
		Size:        fi.Size(),
		Body:        f,
	}, nil
}

// Download opens the session's artifact of the given kind. The region kind returns the
// currently staged region file and the compile-log kind the decompressed compile log.
func (f *Facade) Download(ctx context.Context, c *Caller, kind artifacts.Kind) (*Download, apperrors.Error) {
	sess, err := f.existing(c, studiocommon.ErrArtifactNotFound)
	if err != nil {
		return nil, err
	}
	defer sess.Unlock()

	switch kind {
	case artifacts.KindRegion:
		p := sess.RegionPath()
		if p == "" {
			return nil, studiocommon.ErrArtifactNotFound.Msg("no region file has been uploaded")
		}
		return openDownload(p, "text/plain")
	case artifacts.KindCompileLog:
		text, err := f.orch.CompileLog(sess)
		if err != nil {
			return nil, err
		}
		return &Download{
			Name:        sess.ID() + ".log",
			ContentType: "text/plain",
			Size:        int64(len(text)),
			Body:        io.NopCloser(strings.NewReader(text)),
		}, nil
	case artifacts.KindBundle:
		return openDownload(f.workspaces.Store().MustPath(sess.ID(), kind), "application/zip")
	case artifacts.KindSpec, artifacts.KindAut, artifacts.KindLTL, artifacts.KindSMV, artifacts.KindDecomposed:
		return openDownload(f.workspaces.Store().MustPath(sess.ID(), kind), "text/plain")
	}
	return nil, studiocommon.ErrArtifactNotFound.Msg("unknown artifact kind: " + string(kind))
}
