package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// DefaultRelevance is assumed for records written without a relevance_score.
const DefaultRelevance = 50.0

// Source is one provenance record. Sources are append-only.
type Source struct {
	Title     string `json:"title,omitempty"`
	URL       string `json:"url"`
	Date      string `json:"date,omitempty"`
	FetchedAt string `json:"fetched_at,omitempty"`
}

// Node is one content record from data/nodes/<id>.json. Fields this engine
// does not interpret (domain, type, metadata, ...) are kept in extra and
// written back unchanged.
type Node struct {
	ID             string            `json:"id" validate:"required,max=200,urlsafe"`
	Title          string            `json:"title" validate:"max=500"`
	Text           string            `json:"text,omitempty"`
	FullText       string            `json:"full_text,omitempty"`
	Summary        string            `json:"summary,omitempty"`
	Keywords       []string          `json:"keywords"`
	TrustScore     float64           `json:"trust_score" validate:"gte=0,lte=100"`
	RelevanceScore float64           `json:"relevance_score" validate:"gte=0"`
	LastUpdated    string            `json:"last_updated,omitempty"`
	Relations      []json.RawMessage `json:"relations"`
	Examples       []json.RawMessage `json:"examples"`
	Sources        []Source          `json:"sources"`

	extra map[string]json.RawMessage
	path  string
}

// nodeFields aliases Node without its methods so encoding/json does not recurse.
type nodeFields Node

var knownKeys = map[string]bool{
	"id": true, "title": true, "text": true, "full_text": true, "summary": true,
	"keywords": true, "trust_score": true, "relevance_score": true, "last_updated": true,
	"relations": true, "examples": true, "sources": true,
}

// UnmarshalJSON decodes the known fields, keeps the rest, and applies the
// storage-boundary defaults.
func (n *Node) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	var f nodeFields
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*n = Node(f)

	if _, ok := raw["relevance_score"]; !ok {
		n.RelevanceScore = DefaultRelevance
	}
	for k, v := range raw {
		if knownKeys[k] {
			continue
		}
		if n.extra == nil {
			n.extra = make(map[string]json.RawMessage)
		}
		n.extra[k] = v
	}
	n.applyDefaults()
	return nil
}

// MarshalJSON writes known fields over the preserved extras. Keys come out
// sorted, so rewriting an unchanged node is byte-stable.
func (n Node) MarshalJSON() ([]byte, error) {
	n.applyDefaults()
	known, err := encodeRaw(nodeFields(n))
	if err != nil {
		return nil, err
	}
	var out map[string]json.RawMessage
	if err := json.Unmarshal(known, &out); err != nil {
		return nil, err
	}
	for k, v := range n.extra {
		if _, ok := out[k]; !ok {
			out[k] = v
		}
	}
	return encodeRaw(out)
}

// encodeRaw is json.Marshal without HTML escaping, so URLs keep their '&'.
func encodeRaw(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func (n *Node) applyDefaults() {
	n.TrustScore = clamp(n.TrustScore, 0, 100)
	if n.RelevanceScore < 0 {
		n.RelevanceScore = 0
	}
	if n.Keywords == nil {
		n.Keywords = []string{}
	}
	if n.Relations == nil {
		n.Relations = []json.RawMessage{}
	}
	if n.Examples == nil {
		n.Examples = []json.RawMessage{}
	}
	if n.Sources == nil {
		n.Sources = []Source{}
	}
}

// Content is the text used for similarity: text, then full_text, then summary.
func (n *Node) Content() string {
	for _, s := range []string{n.Text, n.FullText, n.Summary} {
		if strings.TrimSpace(s) != "" {
			return s
		}
	}
	return ""
}

// Extra returns a preserved field that this engine does not interpret.
func (n *Node) Extra(key string) (json.RawMessage, bool) {
	v, ok := n.extra[key]
	return v, ok
}

// Path is the file the node was loaded from, empty for new nodes.
func (n *Node) Path() string {
	return n.path
}

// lastUpdatedLayouts covers what the mapper stages have written over time:
// RFC 3339 with Z, naive ISO timestamps, and bare dates.
var lastUpdatedLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// LastUpdatedTime parses last_updated. Naive timestamps are read as UTC.
func (n *Node) LastUpdatedTime() (time.Time, error) {
	s := strings.TrimSpace(n.LastUpdated)
	if s == "" {
		return time.Time{}, fmt.Errorf("last_updated missing")
	}
	for _, layout := range lastUpdatedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("last_updated %q: unrecognized format", s)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

var (
	validate   = validator.New()
	urlSafeRe  = regexp.MustCompile(`^[A-Za-z0-9._~-]+$`)
	errDotName = errors.New("id must not be . or ..")
)

func init() {
	validate.RegisterValidation("urlsafe", func(fl validator.FieldLevel) bool {
		return urlSafeRe.MatchString(fl.Field().String())
	})
}

// Validate checks the node at the storage boundary.
func (n *Node) Validate() error {
	if n.ID == "." || n.ID == ".." {
		return errDotName
	}
	if err := validate.Struct(n); err != nil {
		return fmt.Errorf("invalid node %q: %w", n.ID, err)
	}
	return nil
}
