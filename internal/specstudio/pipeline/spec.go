package pipeline

import (
	"context"
	"net/url"

	"github.com/tansive/specstudio/internal/common/apperrors"
	"github.com/tansive/specstudio/internal/specstudio/workspace"
)

// BuildResponse is returned by BuildSpec.
type BuildResponse struct {
	Success string `json:"theBool"`
}

// BuildSpec assembles a descriptor from the request fields and writes it as the
// session's spec, replacing any previous one.
func (f *Facade) BuildSpec(ctx context.Context, c *Caller, values url.Values) (*BuildResponse, apperrors.Error) {
	sess, err := f.ensure(ctx, c)
	if err != nil {
		return nil, err
	}
	defer sess.Unlock()

	if _, err := f.buildSpec(ctx, sess, values); err != nil {
		return nil, err
	}
	return &BuildResponse{Success: "True"}, nil
}

// SaveSpec builds the spec like BuildSpec and returns it for download.
func (f *Facade) SaveSpec(ctx context.Context, c *Caller, values url.Values) (*Download, apperrors.Error) {
	sess, err := f.ensure(ctx, c)
	if err != nil {
		return nil, err
	}
	defer sess.Unlock()

	p, err := f.buildSpec(ctx, sess, values)
	if err != nil {
		return nil, err
	}
	return openDownload(p, "text/plain")
}

func (f *Facade) buildSpec(ctx context.Context, sess *workspace.Session, values url.Values) (string, apperrors.Error) {
	d, err := f.builder.FromForm(ctx, sess, values)
	if err != nil {
		return "", err
	}
	if err := f.builder.AttachRegion(ctx, sess, d, d.RegionFile); err != nil {
		return "", err
	}
	p, err := f.builder.Serialize(ctx, sess, d)
	if err != nil {
		return "", err
	}
	l := logger(ctx, sess, "build-spec")
	l.Info().Str("region_file", d.RegionFile).Int("spec_bytes", len(d.SpecText)).Msg("spec built")
	return p, nil
}
