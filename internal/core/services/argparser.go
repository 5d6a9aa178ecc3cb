package services

import (
	"encoding/json"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/chimeralabs/chimera/internal/core/domain"
)

// ArgumentParser turns the raw argument text of a tool-call directive into a
// structured object. It never fails: the strategies below are tried in order
// and the first success wins, with the tool's documented defaults as the
// terminal fallback.
type ArgumentParser struct {
	logger *slog.Logger
	table  *ToolTable
}

// NewArgumentParser creates a parser over the given tool table.
func NewArgumentParser(logger *slog.Logger, table *ToolTable) *ArgumentParser {
	return &ArgumentParser{logger: logger, table: table}
}

// parseStrategy is one independent attempt at recovering arguments.
// ok=false means "this strategy does not apply", not an error.
type parseStrategy struct {
	name string
	fn   func(p *ArgumentParser, toolName, text string) (domain.ParsedArguments, bool)
}

var parseStrategies = []parseStrategy{
	{"defaults-on-empty", (*ArgumentParser).parseEmpty},
	{"strict-json", (*ArgumentParser).parseStrictJSON},
	{"wrapped-json", (*ArgumentParser).parseWrappedJSON},
	{"key-value-pairs", (*ArgumentParser).parseKeyValuePairs},
	{"single-field", (*ArgumentParser).parseSingleField},
	{"generic-fallback", (*ArgumentParser).parseGenericFallback},
}

// Parse recovers arguments from raw directive text. Nested object-valued
// fields survive only the JSON strategies; the later ones are last-resort
// and may flatten structure, which validation and repair tolerate downstream.
func (p *ArgumentParser) Parse(toolName, raw string) domain.ParsedArguments {
	text := normalizeArgumentText(raw)
	for _, s := range parseStrategies {
		if args, ok := s.fn(p, toolName, text); ok {
			if s.name != "strict-json" && s.name != "defaults-on-empty" {
				p.logger.Debug("argument parse used lossy strategy",
					"tool", toolName, "strategy", s.name)
			}
			return args
		}
	}
	// Unreachable: generic-fallback always succeeds.
	return p.table.Defaults(toolName)
}

var (
	reUnquotedKey    = regexp.MustCompile(`([{,]\s*)([A-Za-z_][A-Za-z0-9_]*)\s*:`)
	reTrailingComma  = regexp.MustCompile(`,\s*([}\]])`)
	reMissingComma   = regexp.MustCompile(`"(\s+)"([A-Za-z_][A-Za-z0-9_]*)"\s*:`)
	reRepeatedCommas = regexp.MustCompile(`,{2,}`)
)

// normalizeArgumentText repairs the punctuation slop models habitually emit:
// stray commas, single quotes, unquoted keys, missing separators.
func normalizeArgumentText(raw string) string {
	text := strings.TrimSpace(raw)
	text = strings.Trim(text, ",")
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}

	// Single quotes → double quotes. Done before key quoting so 'key': 'v'
	// normalizes in one pass. Apostrophes inside values are a known loss
	// the key-value strategy recovers from.
	if !strings.Contains(text, `"`) && strings.Contains(text, `'`) {
		text = strings.ReplaceAll(text, `'`, `"`)
	}

	// Quote bare keys in object position: {key: → {"key":
	text = reUnquotedKey.ReplaceAllString(text, `$1"$2":`)
	// Also the leading key of a bare property list: key: v, ...
	if !strings.HasPrefix(text, "{") {
		text = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_]*)\s*:`).ReplaceAllString(text, `"$1":`)
	}

	// "a": "b" "c": → "a": "b", "c":
	text = reMissingComma.ReplaceAllString(text, `",$1"$2":`)
	text = reRepeatedCommas.ReplaceAllString(text, ",")
	text = reTrailingComma.ReplaceAllString(text, "$1")
	return text
}

func (p *ArgumentParser) parseEmpty(toolName, text string) (domain.ParsedArguments, bool) {
	if text != "" {
		return nil, false
	}
	return p.table.Defaults(toolName), true
}

func (p *ArgumentParser) parseStrictJSON(_, text string) (domain.ParsedArguments, bool) {
	if !strings.HasPrefix(text, "{") || !strings.HasSuffix(text, "}") {
		return nil, false
	}
	var args domain.ParsedArguments
	if err := json.Unmarshal([]byte(text), &args); err != nil {
		return nil, false
	}
	return args, true
}

func (p *ArgumentParser) parseWrappedJSON(_, text string) (domain.ParsedArguments, bool) {
	if strings.HasPrefix(text, "{") {
		return nil, false
	}
	var args domain.ParsedArguments
	if err := json.Unmarshal([]byte("{"+text+"}"), &args); err != nil {
		return nil, false
	}
	return args, true
}

var pairPatterns = []*regexp.Regexp{
	regexp.MustCompile(`([A-Za-z_][A-Za-z0-9_]*)\s*:\s*"([^"]*)"`),
	regexp.MustCompile(`([A-Za-z_][A-Za-z0-9_]*)\s*:\s*'([^']*)'`),
	regexp.MustCompile(`"([A-Za-z_][A-Za-z0-9_]*)"\s*:\s*"([^"]*)"`),
	regexp.MustCompile(`([A-Za-z_][A-Za-z0-9_]*)\s*:\s*([^,{}"'\s][^,{}]*)`),
}

func (p *ArgumentParser) parseKeyValuePairs(_, text string) (domain.ParsedArguments, bool) {
	args := domain.ParsedArguments{}
	for _, re := range pairPatterns {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			key := m[1]
			if _, seen := args[key]; seen {
				continue
			}
			args[key] = coerceScalar(strings.TrimSpace(m[2]))
		}
	}
	if len(args) == 0 {
		return nil, false
	}
	return args, true
}

var reAnyKey = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*\s*:`)

// parseSingleField treats the whole text as the tool's primary field when no
// recognizable key is present at all ("query"/"url"/"path"/"expression" tools).
func (p *ArgumentParser) parseSingleField(toolName, text string) (domain.ParsedArguments, bool) {
	spec, ok := p.table.Lookup(toolName)
	if !ok || spec.Primary == "" {
		return nil, false
	}
	if reAnyKey.MatchString(text) {
		return nil, false
	}
	value := strings.Trim(strings.TrimSpace(text), `"'`)
	value = strings.Trim(value, "{}")
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, false
	}
	return domain.ParsedArguments{spec.Primary: value}, true
}

// parseGenericFallback maps whatever is left onto the primary field or the
// tool defaults. It always succeeds; a directive never aborts on parsing.
func (p *ArgumentParser) parseGenericFallback(toolName, text string) (domain.ParsedArguments, bool) {
	spec, ok := p.table.Lookup(toolName)
	if ok && spec.Primary != "" {
		value := strings.Trim(strings.TrimSpace(text), `"'{}`)
		if value != "" {
			return domain.ParsedArguments{spec.Primary: value}, true
		}
	}
	return p.table.Defaults(toolName), true
}

// coerceScalar interprets an unquoted value the way JSON would.
func coerceScalar(v string) interface{} {
	switch v {
	case "true":
		return true
	case "false":
		return false
	case "null":
		return nil
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		return f
	}
	return v
}
