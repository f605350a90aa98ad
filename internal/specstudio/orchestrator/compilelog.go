package orchestrator

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/golang/snappy"
	"github.com/tansive/specstudio/internal/common/apperrors"
	"github.com/tansive/specstudio/internal/common/fsutil"
	"github.com/tansive/specstudio/internal/specstudio/artifacts"
	"github.com/tansive/specstudio/internal/specstudio/studiocommon"
	"github.com/tansive/specstudio/internal/specstudio/workspace"
)

// persistLog stores the compile log as a snappy framed stream.
func (o *Orchestrator) persistLog(sess *workspace.Session, compileLog string) apperrors.Error {
	p := o.store.MustPath(sess.ID(), artifacts.KindCompileLog)
	err := fsutil.WriteAtomic(p, 0o640, func(w io.Writer) error {
		sw := snappy.NewBufferedWriter(w)
		if _, err := io.Copy(sw, strings.NewReader(compileLog)); err != nil {
			return err
		}
		return sw.Close()
	})
	if err != nil {
		return studiocommon.ErrStudioError.MsgErr("unable to persist compile log", err)
	}
	return nil
}

// CompileLog returns the log of the session's last compile.
func (o *Orchestrator) CompileLog(sess *workspace.Session) (string, apperrors.Error) {
	if sess == nil {
		return "", studiocommon.ErrArtifactNotFound.Msg("no compile log for this session")
	}
	p := o.store.MustPath(sess.ID(), artifacts.KindCompileLog)
	f, err := os.Open(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", studiocommon.ErrArtifactNotFound.Msg("the spec has not been compiled")
		}
		return "", studiocommon.ErrStudioError.MsgErr("unable to open compile log", err)
	}
	defer f.Close()

	var b strings.Builder
	if _, err := io.Copy(&b, snappy.NewReader(f)); err != nil {
		return "", studiocommon.ErrStudioError.MsgErr("unable to decompress compile log", err)
	}
	return b.String(), nil
}
