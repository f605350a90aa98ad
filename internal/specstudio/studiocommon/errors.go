// Package studiocommon holds the failure taxonomy shared by the specstudio components.
// Every component error derives from one of the base errors below so that the HTTP
// layer can map it to a status code and a machine-readable kind.
package studiocommon

import (
	"net/http"

	"github.com/tansive/specstudio/internal/common/apperrors"
)

const (
	KindInvalidUpload           apperrors.Kind = "InvalidUpload"
	KindInvalidOptions          apperrors.Kind = "InvalidOptions"
	KindMissingWorkspace        apperrors.Kind = "MissingWorkspace"
	KindSpecNotLoaded           apperrors.Kind = "SpecNotLoaded"
	KindRegionNotLoaded         apperrors.Kind = "RegionNotLoaded"
	KindRegionRequired          apperrors.Kind = "RegionRequired"
	KindCompilerInvocationError apperrors.Kind = "CompilerInvocationError"
	KindArtifactNotFound        apperrors.Kind = "ArtifactNotFound"
)

var (
	// ErrStudioError is the base error for all pipeline errors.
	ErrStudioError apperrors.Error = apperrors.New("error in spec pipeline").SetStatusCode(http.StatusInternalServerError)

	// ErrInvalidUpload is returned for a missing upload, a disallowed file name or content
	// that cannot be parsed.
	ErrInvalidUpload apperrors.Error = ErrStudioError.New("invalid upload").SetStatusCode(http.StatusBadRequest).SetKind(KindInvalidUpload)

	// ErrInvalidOptions is returned when a compile option holds an unrecognised value.
	ErrInvalidOptions apperrors.Error = ErrStudioError.New("invalid compile options").SetStatusCode(http.StatusBadRequest).SetKind(KindInvalidOptions)

	// ErrMissingWorkspace is returned when an operation needs a workspace that does not exist.
	ErrMissingWorkspace apperrors.Error = ErrStudioError.New("workspace does not exist").SetStatusCode(http.StatusConflict).SetKind(KindMissingWorkspace)

	// ErrSpecNotLoaded is returned by analyze and compile before any spec was built.
	ErrSpecNotLoaded apperrors.Error = ErrStudioError.New("no spec has been built for this session").SetStatusCode(http.StatusConflict).SetKind(KindSpecNotLoaded)

	// ErrRegionNotLoaded is returned by compile when no region file is staged.
	ErrRegionNotLoaded apperrors.Error = ErrStudioError.New("no region file has been loaded for this session").SetStatusCode(http.StatusConflict).SetKind(KindRegionNotLoaded)

	// ErrRegionRequired is returned by import before a region file was uploaded.
	ErrRegionRequired apperrors.Error = ErrStudioError.New("a region file must be uploaded before importing a spec").SetStatusCode(http.StatusConflict).SetKind(KindRegionRequired)

	// ErrCompilerInvocation is returned when the external compiler could not be run or did
	// not produce its expected outputs.
	ErrCompilerInvocation apperrors.Error = ErrStudioError.New("compiler invocation failed").SetStatusCode(http.StatusBadGateway).SetKind(KindCompilerInvocationError)

	// ErrArtifactNotFound is returned when a download is requested before the step that
	// produces the file has run.
	ErrArtifactNotFound apperrors.Error = ErrStudioError.New("artifact not found").SetStatusCode(http.StatusNotFound).SetKind(KindArtifactNotFound)
)
