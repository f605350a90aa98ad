package orchestrator

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"

	"github.com/tansive/specstudio/internal/common/apperrors"
	"github.com/tansive/specstudio/internal/common/fsutil"
	"github.com/tansive/specstudio/internal/specstudio/artifacts"
	"github.com/tansive/specstudio/internal/specstudio/studiocommon"
	"github.com/tansive/specstudio/internal/specstudio/workspace"
)

// writeBundle archives files into the session's bundle, each under its base name.
func (o *Orchestrator) writeBundle(sess *workspace.Session, files []string) (string, apperrors.Error) {
	p := o.store.MustPath(sess.ID(), artifacts.KindBundle)
	err := fsutil.WriteAtomic(p, 0o640, func(w io.Writer) error {
		zw := zip.NewWriter(w)
		for _, f := range files {
			if err := addFile(zw, f); err != nil {
				return err
			}
		}
		return zw.Close()
	})
	if err != nil {
		return "", studiocommon.ErrStudioError.MsgErr("unable to write bundle", err)
	}
	return p, nil
}

func addFile(zw *zip.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	fi, err := f.Stat()
	if err != nil {
		return err
	}
	hdr, err := zip.FileInfoHeader(fi)
	if err != nil {
		return err
	}
	hdr.Name = artifacts.EntryName(path)
	hdr.Method = zip.Deflate
	w, err := zw.CreateHeader(hdr)
	if err != nil {
		return err
	}
	_, err = io.Copy(w, f)
	return err
}

// BundleEntries lists the entry names of the bundle at path.
func BundleEntries(path string) ([]string, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	names := make([]string, 0, len(r.File))
	for _, f := range r.File {
		names = append(names, filepath.Base(f.Name))
	}
	return names, nil
}
