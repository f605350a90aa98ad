package descriptor

import (
	"context"
	"net/url"
	"reflect"
	"sort"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/rs/zerolog/log"
	"github.com/tansive/specstudio/internal/common/apperrors"
	"github.com/tansive/specstudio/internal/specstudio/studiocommon"
)

// formFields is the set of recognised request fields.
type formFields struct {
	SpecText             string   `mapstructure:"specText"`
	AllSensors           []string `mapstructure:"all_sensors"`
	EnabledSensors       []string `mapstructure:"enabled_sensors"`
	AllActuators         []string `mapstructure:"all_actuators"`
	EnabledActuators     []string `mapstructure:"enabled_actuators"`
	AllCustoms           []string `mapstructure:"all_customs"`
	Convexify            bool     `mapstructure:"convexify"`
	FastSlow             bool     `mapstructure:"fastslow"`
	Symbolic             bool     `mapstructure:"symbolic"`
	UseRegionBitEncoding bool     `mapstructure:"use_region_bit_encoding"`
	Synthesizer          string   `mapstructure:"synthesizer"`
	Parser               string   `mapstructure:"parser"`
	RegionPath           string   `mapstructure:"regionPath"`
}

var stringSliceType = reflect.TypeOf([]string{})

// formValueHook narrows multi-valued form entries to scalar targets. Strings take the
// first value; booleans are true only for a first value equal to "true", ignoring case.
func formValueHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if from != stringSliceType {
		return data, nil
	}
	values := data.([]string)
	first := ""
	if len(values) > 0 {
		first = values[0]
	}
	switch to.Kind() {
	case reflect.String:
		return first, nil
	case reflect.Bool:
		return strings.EqualFold(first, "true"), nil
	}
	return data, nil
}

// normalizeForm merges "name[]" keys into "name".
func normalizeForm(values url.Values) map[string]any {
	merged := make(map[string][]string, len(values))
	for k, v := range values {
		key := strings.TrimSuffix(k, "[]")
		merged[key] = append(merged[key], v...)
	}
	out := make(map[string]any, len(merged))
	for k, v := range merged {
		out[k] = v
	}
	return out
}

// DecodeForm converts raw request fields into a descriptor without touching the
// filesystem. The second return value lists the ignored field names.
func DecodeForm(values url.Values) (*ProjectDescriptor, []string, apperrors.Error) {
	var f formFields
	var md mapstructure.Metadata
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.DecodeHookFuncType(formValueHook),
		Metadata:   &md,
		Result:     &f,
	})
	if err != nil {
		return nil, nil, studiocommon.ErrStudioError.MsgErr("unable to create form decoder", err)
	}
	if err := dec.Decode(normalizeForm(values)); err != nil {
		return nil, nil, studiocommon.ErrInvalidOptions.MsgErr("unable to decode request fields", err)
	}

	d := &ProjectDescriptor{
		SpecText:         f.SpecText,
		AllSensors:       f.AllSensors,
		EnabledSensors:   f.EnabledSensors,
		AllActuators:     f.AllActuators,
		EnabledActuators: f.EnabledActuators,
		AllCustoms:       f.AllCustoms,
		Options: CompileOptions{
			Convexify:            f.Convexify,
			FastSlow:             f.FastSlow,
			Symbolic:             f.Symbolic,
			UseRegionBitEncoding: f.UseRegionBitEncoding,
			Synthesizer:          f.Synthesizer,
			Parser:               f.Parser,
		},
		RegionFile: f.RegionPath,
	}
	d.normalize()
	if verr := d.Options.Validate(); verr != nil {
		return nil, nil, verr
	}
	if verr := d.ValidateNames(); verr != nil {
		return nil, nil, verr
	}

	sort.Strings(md.Unused)
	return d, md.Unused, nil
}

func logIgnoredFields(ctx context.Context, unused []string) {
	if len(unused) == 0 {
		return
	}
	log.Ctx(ctx).Debug().Strs("fields", unused).Msg("ignoring unrecognised request fields")
}
