package graph

import "net/http"

var odataOptions = map[string]Param{
	"top":     {Type: "integer", Description: "maximum number of items to return"},
	"skip":    {Type: "integer", Description: "number of items to skip"},
	"filter":  {Type: "string", Description: "OData $filter expression"},
	"select":  {Type: "array", Description: "properties to return"},
	"expand":  {Type: "string", Description: "related entities to expand"},
	"search":  {Type: "string", Description: `search expression, quoted, e.g. "subject:hello"`},
	"count":   {Type: "boolean", Description: "include @odata.count"},
	"orderby": {Type: "array", Description: "sort order, e.g. receivedDateTime DESC"},
}

// odata declares an OData system query option ($top, $filter ...).
func odata(name string) *Param {
	p := odataOptions[name]
	p.Name = name
	p.Wire = "$" + name
	p.In = InQuery
	return &p
}

// listOptions is the full set of collection query options.
func listOptions(extra ...*Param) []*Param {
	out := []*Param{odata("top"), odata("skip"), odata("filter"), odata("select"), odata("orderby"), odata("expand"), odata("search"), odata("count")}
	return append(out, extra...)
}

// pageOptions omits $search and $skip for collections that do not support them.
func pageOptions(extra ...*Param) []*Param {
	out := []*Param{odata("top"), odata("filter"), odata("select"), odata("orderby")}
	return append(out, extra...)
}

// itemOptions is the query option set for single-entity reads.
func itemOptions(extra ...*Param) []*Param {
	return append([]*Param{odata("select"), odata("expand")}, extra...)
}

func query(name, typ, description string) *Param {
	return &Param{Name: name, In: InQuery, Type: typ, Description: description}
}

func requiredQuery(name, typ, description string) *Param {
	p := query(name, typ, description)
	p.Required = true
	return p
}

func body(name, typ, description string) *Param {
	return &Param{Name: name, In: InBody, Type: typ, Description: description}
}

func requiredBody(name, typ, description string) *Param {
	p := body(name, typ, description)
	p.Required = true
	return p
}

// odataType declares the "@odata.type" discriminator body field.
func odataType(required bool, description string) *Param {
	return &Param{Name: "odata_type", Wire: "@odata.type", In: InBody, Type: "string", Required: required, Description: description}
}

// spread declares an object argument merged into the request body.
func spread(name, description string) *Param {
	return &Param{Name: name, In: InBody, Type: "object", Spread: true, Description: description}
}

func preferTimeZone() *Param {
	return &Param{Name: "time_zone", Wire: "Prefer", In: InHeader, Type: "string", Format: `outlook.timezone="%s"`, Description: "time zone for returned date-times, e.g. Pacific Standard Time"}
}

func preferBodyType() *Param {
	return &Param{Name: "body_content_type", Wire: "Prefer", In: InHeader, Type: "string", Format: `outlook.body-content-type="%s"`, Description: "text or html"}
}

func consistencyLevel() *Param {
	return &Param{Name: "consistency_level", Wire: "ConsistencyLevel", In: InHeader, Type: "string", Description: "eventual, required with $count or $search on groups"}
}

func params(groups ...[]*Param) []*Param {
	var out []*Param
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

func one(p ...*Param) []*Param { return p }

func get(segment, name, path, description string, ps ...[]*Param) *Endpoint {
	return &Endpoint{Segment: segment, Name: name, Method: http.MethodGet, Path: path, Description: description, Params: params(ps...)}
}

func post(segment, name, path, description string, ps ...[]*Param) *Endpoint {
	return &Endpoint{Segment: segment, Name: name, Method: http.MethodPost, Path: path, Description: description, Params: params(ps...)}
}

func patch(segment, name, path, description string, ps ...[]*Param) *Endpoint {
	return &Endpoint{Segment: segment, Name: name, Method: http.MethodPatch, Path: path, Description: description, Params: params(ps...)}
}

func del(segment, name, path, description string, ps ...[]*Param) *Endpoint {
	return &Endpoint{Segment: segment, Name: name, Method: http.MethodDelete, Path: path, Description: description, Params: params(ps...)}
}

// as sets the wire name of a parameter.
func (p *Param) as(wire string) *Param {
	p.Wire = wire
	return p
}
