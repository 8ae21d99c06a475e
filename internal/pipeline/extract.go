package pipeline

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
)

// stripCodeFences removes a surrounding markdown code fence, with or
// without a language tag. Models wrap JSON in fences often enough that
// every parser here has to tolerate it.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.Index(s, "\n"); i >= 0 {
		// Drop the language tag line, e.g. "json".
		if !strings.Contains(s[:i], "{") {
			s = s[i+1:]
		}
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// parseRoute turns raw router output into a Route. Parsing is defensive:
// a well-formed JSON label wins; otherwise the raw text is scanned for
// class keywords in priority order find > web/search > greet >
// vectorstore; anything still unrecognized fails open to web search.
func parseRoute(raw string) Route {
	cleaned := stripCodeFences(raw)

	var parsed struct {
		Datasource string `json:"datasource"`
	}
	if err := json.Unmarshal([]byte(cleaned), &parsed); err == nil {
		switch Route(strings.ToLower(strings.TrimSpace(parsed.Datasource))) {
		case RouteGreet:
			return RouteGreet
		case RouteFindBooks:
			return RouteFindBooks
		case RouteVectorstore:
			return RouteVectorstore
		case RouteWebSearch:
			return RouteWebSearch
		}
	}

	lower := strings.ToLower(raw)
	switch {
	case strings.Contains(lower, "find"):
		return RouteFindBooks
	case strings.Contains(lower, "web") || strings.Contains(lower, "search"):
		return RouteWebSearch
	case strings.Contains(lower, "greet"):
		return RouteGreet
	case strings.Contains(lower, "vectorstore"):
		return RouteVectorstore
	}
	return RouteWebSearch
}

// parseGrade reads the grader's verdict. Only an output containing "yes"
// counts as relevant; everything else, including garbage, votes for the
// web-search fallback.
func parseGrade(raw string) bool {
	return strings.Contains(strings.ToLower(raw), "yes")
}

// BookFields is the structured filter the extraction call produces.
type BookFields struct {
	Genres   []string `json:"genres,omitempty"`
	Authors  []string `json:"authors,omitempty"`
	Title    string   `json:"title,omitempty"`
	YearFrom int      `json:"year_from,omitempty"`
	YearTo   int      `json:"year_to,omitempty"`
	Summary  string   `json:"summary,omitempty"`
}

// Empty reports whether no field was extracted.
func (f BookFields) Empty() bool {
	return len(f.Genres) == 0 && len(f.Authors) == 0 && f.Title == "" &&
		f.YearFrom == 0 && f.YearTo == 0 && f.Summary == ""
}

var bookFieldsSchema = mustResolveSchema[BookFields]()

func mustResolveSchema[T any]() *jsonschema.Resolved {
	schema, err := jsonschema.For[T](nil)
	if err != nil {
		panic(err)
	}
	resolved, err := schema.Resolve(nil)
	if err != nil {
		panic(err)
	}
	return resolved
}

// parseBookFields validates and decodes the extraction output. A single
// year is normalized into a closed range.
func parseBookFields(raw string) (BookFields, error) {
	cleaned := stripCodeFences(raw)

	var generic any
	if err := json.Unmarshal([]byte(cleaned), &generic); err != nil {
		return BookFields{}, fmt.Errorf("parse extraction output: %w", err)
	}
	if err := bookFieldsSchema.Validate(generic); err != nil {
		return BookFields{}, fmt.Errorf("validate extraction output: %w", err)
	}

	var fields BookFields
	if err := json.Unmarshal([]byte(cleaned), &fields); err != nil {
		return BookFields{}, fmt.Errorf("decode extraction output: %w", err)
	}

	if fields.YearFrom != 0 && fields.YearTo == 0 {
		fields.YearTo = fields.YearFrom
	}
	if fields.YearTo != 0 && fields.YearFrom == 0 {
		fields.YearFrom = fields.YearTo
	}
	return fields, nil
}
