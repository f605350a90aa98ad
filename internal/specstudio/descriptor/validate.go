package descriptor

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/tansive/specstudio/internal/common/apperrors"
	"github.com/tansive/specstudio/internal/specstudio/studiocommon"
)

var optionsValidator = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.RegisterValidation("propname", isPropositionName); err != nil {
		panic(err)
	}
	return v
}

// V returns the validator shared by the package.
func V() *validator.Validate {
	return optionsValidator
}

// isPropositionName accepts names the spec file can carry unchanged. A name must be a
// single line without surrounding blanks that the decoder cannot mistake for a section
// header or a comment.
func isPropositionName(fl validator.FieldLevel) bool {
	return validName(fl.Field().String())
}

func validName(name string) bool {
	if name == "" || strings.TrimSpace(name) != name {
		return false
	}
	if strings.ContainsRune(name, ':') || strings.HasPrefix(name, "#") || strings.HasPrefix(name, "====") {
		return false
	}
	return strings.IndexFunc(name, unicode.IsControl) < 0
}

// Validate checks the enumerated string options.
func (o CompileOptions) Validate() apperrors.Error {
	err := V().Struct(o)
	if err == nil {
		return nil
	}
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) {
		return studiocommon.ErrInvalidOptions.MsgErr("unable to validate compile options", err)
	}
	var msgs []string
	for _, fe := range ves {
		msgs = append(msgs, fmt.Sprintf("%s: unsupported value %q (expected one of %s)",
			strings.ToLower(fe.Field()), fe.Value(), fe.Param()))
	}
	return studiocommon.ErrInvalidOptions.Msg(strings.Join(msgs, "; "))
}

// ValidateNames checks every proposition list of d.
func (d *ProjectDescriptor) ValidateNames() apperrors.Error {
	lists := []struct {
		field string
		names []string
	}{
		{"all_sensors", d.AllSensors},
		{"enabled_sensors", d.EnabledSensors},
		{"all_actuators", d.AllActuators},
		{"enabled_actuators", d.EnabledActuators},
		{"all_customs", d.AllCustoms},
	}
	var msgs []string
	for _, l := range lists {
		err := V().Var(l.names, "dive,propname")
		if err == nil {
			continue
		}
		var ves validator.ValidationErrors
		if !errors.As(err, &ves) {
			return studiocommon.ErrInvalidOptions.MsgErr("unable to validate "+l.field, err)
		}
		for _, fe := range ves {
			msgs = append(msgs, fmt.Sprintf("%s: invalid proposition name %q", l.field, fe.Value()))
		}
	}
	if len(msgs) > 0 {
		return studiocommon.ErrInvalidOptions.Msg(strings.Join(msgs, "; "))
	}
	return nil
}
