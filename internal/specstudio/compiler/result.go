package compiler

import (
	"encoding/json"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/tansive/specstudio/internal/common/apperrors"
	"github.com/tidwall/gjson"
)

const compileResultSchemaJSON = `{
  "type": "object",
  "required": ["realizable", "log"],
  "properties": {
    "realizable": {"type": "boolean"},
    "realizable_fastslow": {"type": "boolean"},
    "log": {"type": "string"}
  }
}`

const analyzeResultSchemaJSON = `{
  "type": "object",
  "required": ["realizable", "unsat", "nontrivial", "log"],
  "properties": {
    "realizable": {"type": "boolean"},
    "unsat": {"type": "boolean"},
    "nontrivial": {"type": "boolean"},
    "highlights": {"type": "array"},
    "log": {"type": "string"}
  }
}`

var resultSchemas = map[Mode]*jsonschema.Schema{
	ModeCompile: mustCompileSchema("specstudio://compile-result.json", compileResultSchemaJSON),
	ModeAnalyze: mustCompileSchema("specstudio://analyze-result.json", analyzeResultSchemaJSON),
}

func mustCompileSchema(url, schema string) *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(url, strings.NewReader(schema)); err != nil {
		panic(err)
	}
	return compiler.MustCompile(url)
}

// validateResult checks data against the result schema of mode and returns it parsed.
func validateResult(mode Mode, data []byte) (gjson.Result, apperrors.Error) {
	if !gjson.ValidBytes(data) {
		return gjson.Result{}, ErrInvalidResult.Msg("result document is not valid JSON")
	}
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return gjson.Result{}, ErrInvalidResult.MsgErr("result document is not valid JSON", err)
	}
	if err := resultSchemas[mode].Validate(doc); err != nil {
		return gjson.Result{}, ErrInvalidResult.MsgErr("result document does not match schema: "+err.Error(), err)
	}
	return gjson.ParseBytes(data), nil
}

func compileOutcome(r gjson.Result, output string) *CompileOutcome {
	return &CompileOutcome{
		Realizable:         r.Get("realizable").Bool(),
		RealizableFastSlow: r.Get("realizable_fastslow").Bool(),
		Log:                logOrOutput(r, output),
	}
}

func analysisOutcome(r gjson.Result, output string) *AnalysisOutcome {
	highlights := json.RawMessage("[]")
	if h := r.Get("highlights"); h.Exists() {
		highlights = json.RawMessage(h.Raw)
	}
	return &AnalysisOutcome{
		Realizable: r.Get("realizable").Bool(),
		Unsat:      r.Get("unsat").Bool(),
		NonTrivial: r.Get("nontrivial").Bool(),
		Highlights: highlights,
		Log:        logOrOutput(r, output),
	}
}

// logOrOutput returns the log reported by the toolchain, or its console output when the
// toolchain reported none.
func logOrOutput(r gjson.Result, output string) string {
	if l := r.Get("log").String(); l != "" {
		return l
	}
	return output
}
