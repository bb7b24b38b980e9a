package graph

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// Location identifies where an endpoint argument is placed in the request.
type Location string

const (
	InPath   Location = "path"
	InQuery  Location = "query"
	InHeader Location = "header"
	InBody   Location = "body"
)

// Param describes a single named endpoint argument.
type Param struct {
	// Name is the argument key supplied by callers.
	Name string `json:"name"`
	// Wire is the query key, header name or body field; defaults to Name.
	Wire        string   `json:"wire,omitempty"`
	In          Location `json:"in"`
	Type        string   `json:"type,omitempty"`
	Description string   `json:"description,omitempty"`
	Required    bool     `json:"required,omitempty"`
	// Format renders header values, e.g. `outlook.timezone="%s"`.
	Format string `json:"format,omitempty"`
	// Spread merges the keys of an object argument into the request body.
	Spread bool `json:"spread,omitempty"`
}

func (p *Param) wire() string {
	if p.Wire != "" {
		return p.Wire
	}
	return p.Name
}

// Endpoint is a declarative description of one Graph REST operation.
type Endpoint struct {
	Name        string   `json:"name"`
	Segment     string   `json:"segment"`
	Method      string   `json:"method"`
	Path        string   `json:"path"`
	Description string   `json:"description"`
	Params      []*Param `json:"params,omitempty"`

	pathParams []string
}

// PathParams returns placeholder names in template order.
func (e *Endpoint) PathParams() []string {
	if e.pathParams == nil {
		e.pathParams, _ = templateParams(e.Path)
	}
	return e.pathParams
}

// Param returns a declared parameter by name.
func (e *Endpoint) Param(name string) *Param {
	for _, p := range e.Params {
		if p.Name == name {
			return p
		}
	}
	return nil
}

// Required lists every argument that must be supplied: path parameters first,
// then required query, header and body parameters.
func (e *Endpoint) Required() []string {
	out := append([]string{}, e.PathParams()...)
	for _, p := range e.Params {
		if p.Required && p.In != InPath {
			out = append(out, p.Name)
		}
	}
	return out
}

// Validate checks the descriptor itself (not call arguments).
func (e *Endpoint) Validate() error {
	if e.Name == "" {
		return fmt.Errorf("endpoint name was empty")
	}
	switch e.Method {
	case http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete:
	default:
		return fmt.Errorf("endpoint %v: unsupported method %q", e.Name, e.Method)
	}
	names, err := templateParams(e.Path)
	if err != nil {
		return fmt.Errorf("endpoint %v: %w", e.Name, err)
	}
	e.pathParams = names
	seen := map[string]bool{}
	for _, n := range names {
		seen[n] = true
	}
	for _, p := range e.Params {
		switch p.In {
		case InQuery, InHeader, InBody:
		case InPath:
			return fmt.Errorf("endpoint %v: path param %v must come from the template", e.Name, p.Name)
		default:
			return fmt.Errorf("endpoint %v: param %v has no location", e.Name, p.Name)
		}
		if seen[p.Name] {
			return fmt.Errorf("endpoint %v: duplicate param %v", e.Name, p.Name)
		}
		seen[p.Name] = true
		if p.In == InBody && (e.Method == http.MethodGet || e.Method == http.MethodDelete) {
			return fmt.Errorf("endpoint %v: body param %v on %v", e.Name, p.Name, e.Method)
		}
		if p.Spread && p.In != InBody {
			return fmt.Errorf("endpoint %v: spread param %v must be in body", e.Name, p.Name)
		}
	}
	return nil
}

// Usage renders a compact, human/LLM readable parameter listing.
func (e *Endpoint) Usage() string {
	var sb strings.Builder
	sb.WriteString(e.Description)
	sb.WriteString("\n")
	sb.WriteString(e.Method + " " + e.Path + "\n")
	if names := e.PathParams(); len(names) > 0 {
		sb.WriteString("path (required): " + strings.Join(names, ", ") + "\n")
	}
	groups := map[Location][]string{}
	for _, p := range e.Params {
		entry := p.Name
		if p.Type != "" {
			entry += " (" + p.Type + ")"
		}
		if p.Required {
			entry += " required"
		}
		if p.Description != "" {
			entry += ": " + p.Description
		}
		groups[p.In] = append(groups[p.In], entry)
	}
	for _, loc := range []Location{InQuery, InHeader, InBody} {
		if len(groups[loc]) == 0 {
			continue
		}
		sb.WriteString(string(loc) + ":\n")
		for _, entry := range groups[loc] {
			sb.WriteString("  - " + entry + "\n")
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

// Catalog indexes endpoints by name.
type Catalog struct {
	byName map[string]*Endpoint
	order  []*Endpoint
}

// NewCatalog validates and indexes endpoints; names must be unique.
func NewCatalog(endpoints ...[]*Endpoint) (*Catalog, error) {
	c := &Catalog{byName: map[string]*Endpoint{}}
	for _, group := range endpoints {
		for _, e := range group {
			if err := e.Validate(); err != nil {
				return nil, err
			}
			if _, ok := c.byName[e.Name]; ok {
				return nil, fmt.Errorf("duplicate endpoint %v", e.Name)
			}
			c.byName[e.Name] = e
			c.order = append(c.order, e)
		}
	}
	return c, nil
}

// Lookup returns an endpoint by name.
func (c *Catalog) Lookup(name string) (*Endpoint, bool) {
	e, ok := c.byName[name]
	return e, ok
}

// Endpoints returns endpoints in registration order.
func (c *Catalog) Endpoints() []*Endpoint {
	return append([]*Endpoint{}, c.order...)
}

// names returns sorted endpoint names.
func (c *Catalog) names() []string {
	out := make([]string, 0, len(c.order))
	for _, e := range c.order {
		out = append(out, e.Name)
	}
	sort.Strings(out)
	return out
}
