package services

import "github.com/chimeralabs/chimera/internal/core/domain"

// FieldKind is the expected primitive type of a tool argument field.
type FieldKind string

const (
	FieldString FieldKind = "string"
	FieldNumber FieldKind = "number"
	FieldBool   FieldKind = "boolean"
	FieldArray  FieldKind = "array"
	FieldObject FieldKind = "object"
)

// FieldSpec is one required field of a tool's arguments.
type FieldSpec struct {
	Name string
	Kind FieldKind
}

// ToolSpec captures what the kernel knows statically about a tool: its
// required fields, documented defaults, accepted aliases, and how the
// reasoning loop routes its results.
type ToolSpec struct {
	Name     string
	Required []FieldSpec
	// Primary names the single field the whole argument text maps to when
	// no key can be recognized at all (query/url/path/expression tools).
	Primary string
	// Defaults are the tool's documented default arguments, used when the
	// directive carries no usable arguments and as the repairer's last resort.
	Defaults domain.ParsedArguments
	// Aliases maps a canonical field name to names models commonly emit
	// instead.
	Aliases map[string][]string
	// Search marks search-classified tools whose results route through the
	// intent/relevance/fallback pipeline.
	Search bool
	// Slow marks tools backed by browser automation; they get the long
	// dispatch timeout.
	Slow bool
	// Idempotent marks tools that are safe to re-invoke (reads, searches).
	// Retry policy never touches non-idempotent tools.
	Idempotent bool
}

// ToolTable is the static per-tool rule set consulted by the parser,
// validator and repairer.
type ToolTable struct {
	specs map[string]ToolSpec
}

// NewToolTable builds the table for the kernel's known tool surface.
// Unknown tools fall through to permissive generic handling.
func NewToolTable() *ToolTable {
	t := &ToolTable{specs: make(map[string]ToolSpec)}
	for _, spec := range builtinToolSpecs() {
		t.specs[spec.Name] = spec
	}
	return t
}

// Lookup returns the spec for a tool and whether one is registered.
func (t *ToolTable) Lookup(name string) (ToolSpec, bool) {
	spec, ok := t.specs[name]
	return spec, ok
}

// IsSearchTool reports whether a tool's results route through the fallback
// pipeline.
func (t *ToolTable) IsSearchTool(name string) bool {
	spec, ok := t.specs[name]
	return ok && spec.Search
}

// IsSlowTool reports whether a tool needs the long dispatch timeout.
func (t *ToolTable) IsSlowTool(name string) bool {
	spec, ok := t.specs[name]
	return ok && spec.Slow
}

// IsIdempotent reports whether re-invoking a tool is semantically safe.
func (t *ToolTable) IsIdempotent(name string) bool {
	spec, ok := t.specs[name]
	return ok && spec.Idempotent
}

// Defaults returns a fresh copy of a tool's documented default arguments.
// Unknown tools get an empty object.
func (t *ToolTable) Defaults(name string) domain.ParsedArguments {
	spec, ok := t.specs[name]
	if !ok || spec.Defaults == nil {
		return domain.ParsedArguments{}
	}
	return spec.Defaults.Clone()
}

func builtinToolSpecs() []ToolSpec {
	return []ToolSpec{
		{
			Name:       "calculator",
			Required:   []FieldSpec{{Name: "expression", Kind: FieldString}},
			Primary:    "expression",
			Defaults:   domain.ParsedArguments{"expression": "1+1"},
			Aliases:    map[string][]string{"expression": {"expr", "equation", "math", "input"}},
			Idempotent: true,
		},
		{
			Name:       "video_search",
			Required:   []FieldSpec{{Name: "query", Kind: FieldString}},
			Primary:    "query",
			Defaults:   domain.ParsedArguments{"query": "", "maxResults": float64(10)},
			Aliases:    map[string][]string{"query": {"q", "search", "term", "keywords", "text"}},
			Search:     true,
			Slow:       true,
			Idempotent: true,
		},
		{
			// Dispatched like any other tool; only video_search routes
			// through the scored fallback pipeline.
			Name:       "web_search",
			Required:   []FieldSpec{{Name: "query", Kind: FieldString}},
			Primary:    "query",
			Defaults:   domain.ParsedArguments{"query": ""},
			Aliases:    map[string][]string{"query": {"q", "search", "term", "keywords", "text"}},
			Idempotent: true,
		},
		{
			Name:       "view_text_website",
			Required:   []FieldSpec{{Name: "url", Kind: FieldString}},
			Primary:    "url",
			Defaults:   domain.ParsedArguments{"url": ""},
			Aliases:    map[string][]string{"url": {"link", "website", "address", "site", "page"}},
			Idempotent: true,
		},
		{
			Name:       "fs_read",
			Required:   []FieldSpec{{Name: "path", Kind: FieldString}},
			Primary:    "path",
			Defaults:   domain.ParsedArguments{"path": ""},
			Aliases:    map[string][]string{"path": {"file", "filename", "filepath", "file_path"}},
			Idempotent: true,
		},
		{
			Name:       "fs_list",
			Required:   nil,
			Primary:    "path",
			Defaults:   domain.ParsedArguments{"path": "."},
			Aliases:    map[string][]string{"path": {"dir", "directory", "folder"}},
			Idempotent: true,
		},
		{
			Name:     "save_note",
			Required: []FieldSpec{{Name: "title", Kind: FieldString}, {Name: "content", Kind: FieldString}},
			Defaults: domain.ParsedArguments{"title": "Untitled", "content": ""},
			Aliases: map[string][]string{
				"title":   {"name", "subject"},
				"content": {"body", "text", "note"},
			},
		},
		{
			Name:       "read_notes",
			Defaults:   domain.ParsedArguments{},
			Idempotent: true,
		},
	}
}
