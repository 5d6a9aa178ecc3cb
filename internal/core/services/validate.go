package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/chimeralabs/chimera/internal/core/domain"
)

// ArgumentValidator checks parsed arguments against the tool table and, when
// available, the tool's advertised JSON schema. Validation is advisory: a
// failed check routes through Repair rather than aborting the call.
type ArgumentValidator struct {
	logger *slog.Logger
	table  *ToolTable
}

func NewArgumentValidator(logger *slog.Logger, table *ToolTable) *ArgumentValidator {
	return &ArgumentValidator{logger: logger, table: table}
}

// Validate reports whether args satisfy the tool's requirements. Unknown
// tools validate vacuously, schema problems are collected, not fatal.
func (v *ArgumentValidator) Validate(tool *domain.ToolDescriptor, args domain.ParsedArguments) domain.ValidationResult {
	result := domain.ValidationResult{IsValid: true}
	if tool == nil {
		return result
	}

	spec, known := v.table.Lookup(tool.Name)
	if known {
		for _, field := range spec.Required {
			val, present := args[field.Name]
			if !present || isEmptyValue(val) {
				result.IsValid = false
				result.Errors = append(result.Errors,
					fmt.Sprintf("missing required field %q", field.Name))
			}
		}
	}

	if schema := compileInputSchema(tool.InputSchema); schema != nil {
		if err := schema.VisitJSON(map[string]interface{}(args),
			openapi3.MultiErrors(), openapi3.VisitAsRequest()); err != nil {
			result.IsValid = false
			result.Errors = append(result.Errors, schemaErrorMessages(err)...)
		}
	}
	return result
}

// Repair rewrites args toward satisfying Validate. Alias fields are renamed
// to their canonical name, missing required fields are filled from defaults
// or salvaged from stray values, and obvious type mismatches are coerced.
// Repair never fails; at worst the result carries the tool's documented
// defaults.
func (v *ArgumentValidator) Repair(tool *domain.ToolDescriptor, args domain.ParsedArguments) domain.ParsedArguments {
	if tool == nil {
		return args.Clone()
	}
	spec, known := v.table.Lookup(tool.Name)
	if !known {
		return args.Clone()
	}

	canonicalOf := aliasIndex(spec)
	repaired := domain.ParsedArguments{}
	for key, val := range args {
		canonical := key
		if target, ok := canonicalOf[strings.ToLower(key)]; ok {
			canonical = target
		}
		if _, taken := repaired[canonical]; taken && canonical != key {
			continue
		}
		repaired[canonical] = val
	}

	for _, field := range spec.Required {
		if val, present := repaired[field.Name]; present && !isEmptyValue(val) {
			continue
		}
		if def, ok := spec.Defaults[field.Name]; ok && !isEmptyValue(def) {
			repaired[field.Name] = def
			v.logger.Debug("filled missing argument from defaults",
				"tool", tool.Name, "field", field.Name)
			continue
		}
		// No usable default: salvage the first non-empty string value so
		// the call still carries the user's intent.
		if salvaged := firstStringValue(args); salvaged != "" {
			repaired[field.Name] = salvaged
			v.logger.Debug("salvaged required argument from stray field",
				"tool", tool.Name, "field", field.Name)
			continue
		}
		// Nothing salvageable either: fall back to the documented default
		// even when it is empty, so the field is at least present.
		if def, ok := spec.Defaults[field.Name]; ok {
			repaired[field.Name] = def
		}
	}

	coerceFieldTypes(spec, repaired)
	repairURLSchemes(spec, repaired)
	return repaired
}

// repairURLSchemes prefixes bare hostnames with https so URL-taking tools do
// not reject model output like "example.com/page".
func repairURLSchemes(spec ToolSpec, args domain.ParsedArguments) {
	for _, field := range spec.Required {
		if field.Name != "url" {
			continue
		}
		s, ok := args[field.Name].(string)
		if !ok || s == "" {
			continue
		}
		trimmed := strings.TrimSpace(s)
		if strings.HasPrefix(trimmed, "//") {
			args[field.Name] = "https:" + trimmed
			continue
		}
		if !strings.Contains(trimmed, "://") {
			args[field.Name] = "https://" + trimmed
		}
	}
}

// aliasIndex inverts a spec's alias table into lowercased emitted name →
// canonical field name.
func aliasIndex(spec ToolSpec) map[string]string {
	idx := make(map[string]string, len(spec.Aliases))
	for canonical, emitted := range spec.Aliases {
		for _, name := range emitted {
			idx[strings.ToLower(name)] = canonical
		}
	}
	return idx
}

func compileInputSchema(raw map[string]interface{}) *openapi3.Schema {
	if len(raw) == 0 {
		return nil
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return nil
	}
	schema := openapi3.NewSchema()
	if err := schema.UnmarshalJSON(data); err != nil {
		return nil
	}
	return schema
}

func schemaErrorMessages(err error) []string {
	var multi openapi3.MultiError
	if errors.As(err, &multi) {
		msgs := make([]string, 0, len(multi))
		for _, e := range multi {
			msgs = append(msgs, e.Error())
		}
		return msgs
	}
	return []string{err.Error()}
}

func coerceFieldTypes(spec ToolSpec, args domain.ParsedArguments) {
	for _, field := range spec.Required {
		val, ok := args[field.Name]
		if !ok {
			continue
		}
		args[field.Name] = coerceToKind(field.Kind, val)
	}
	// maxResults shows up on search tools without being required.
	if spec.Search {
		if val, ok := args["maxResults"]; ok {
			args["maxResults"] = coerceToKind(FieldNumber, val)
		}
	}
}

func coerceToKind(kind FieldKind, val interface{}) interface{} {
	switch kind {
	case FieldString:
		if _, isStr := val.(string); !isStr {
			return stringify(val)
		}
	case FieldNumber:
		if s, isStr := val.(string); isStr {
			if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
				return f
			}
		}
	case FieldBool:
		if s, isStr := val.(string); isStr {
			if b, err := strconv.ParseBool(strings.TrimSpace(s)); err == nil {
				return b
			}
		}
	case FieldArray:
		if _, isList := val.([]interface{}); !isList {
			return wrapInArray(val)
		}
	}
	return val
}

// wrapInArray turns a scalar into a singleton list, splitting comma-separated
// strings along the way.
func wrapInArray(val interface{}) []interface{} {
	s, isStr := val.(string)
	if !isStr || !strings.Contains(s, ",") {
		return []interface{}{val}
	}
	parts := strings.Split(s, ",")
	out := make([]interface{}, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func isEmptyValue(v interface{}) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && strings.TrimSpace(s) == ""
}

func firstStringValue(args domain.ParsedArguments) string {
	for _, v := range args {
		if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
			return s
		}
	}
	return ""
}

func stringify(v interface{}) string {
	switch tv := v.(type) {
	case string:
		return tv
	case float64:
		return strconv.FormatFloat(tv, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(tv)
	case nil:
		return ""
	default:
		data, err := json.Marshal(tv)
		if err != nil {
			return fmt.Sprintf("%v", tv)
		}
		return string(data)
	}
}
