package graph

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

// Args holds endpoint arguments keyed by parameter name.
type Args map[string]any

// request is an endpoint call resolved against its arguments.
type request struct {
	method string
	path   string
	query  url.Values
	header http.Header
	body   map[string]any
}

// resolve validates args against the descriptor and builds the request parts.
// Nothing is sent; a *ValidationError is returned for any missing, unknown or
// malformed argument.
func (e *Endpoint) resolve(args Args) (*request, error) {
	verr := &ValidationError{Endpoint: e.Name}
	for _, name := range e.Required() {
		if v, ok := args[name]; !ok || isUnset(v) {
			verr.Missing = append(verr.Missing, name)
		}
	}
	pathValues := map[string]string{}
	known := map[string]bool{}
	for _, name := range e.PathParams() {
		known[name] = true
		v, ok := args[name]
		if !ok || isUnset(v) {
			continue
		}
		s, ok := scalarString(v)
		if !ok {
			verr.Invalid = append(verr.Invalid, name)
			continue
		}
		pathValues[name] = s
	}
	for _, p := range e.Params {
		known[p.Name] = true
	}
	for name := range args {
		if !known[name] {
			verr.Unknown = append(verr.Unknown, name)
		}
	}
	sort.Strings(verr.Unknown)

	req := &request{method: e.Method, query: url.Values{}, header: http.Header{}}
	for _, p := range e.Params {
		v, ok := args[p.Name]
		if !ok || v == nil {
			continue
		}
		switch p.In {
		case InQuery, InHeader:
			if isUnset(v) {
				continue
			}
			s, err := formatValue(v)
			if err != nil {
				verr.Invalid = append(verr.Invalid, p.Name)
				continue
			}
			if p.In == InQuery {
				req.query.Set(p.wire(), s)
				continue
			}
			if p.Format != "" {
				s = fmt.Sprintf(p.Format, s)
			}
			req.header.Add(p.wire(), s)
		case InBody:
			if req.body == nil {
				req.body = map[string]any{}
			}
			if p.Spread {
				obj, ok := v.(map[string]any)
				if !ok {
					verr.Invalid = append(verr.Invalid, p.Name)
					continue
				}
				for k, item := range obj {
					if item != nil {
						req.body[k] = item
					}
				}
				continue
			}
			req.body[p.wire()] = v
		}
	}
	if !verr.empty() {
		return nil, verr
	}
	path, err := expandPath(e.Path, pathValues)
	if err != nil {
		return nil, err
	}
	req.path = path
	return req, nil
}

// isUnset reports values that count as "not supplied".
func isUnset(v any) bool {
	switch actual := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(actual) == ""
	case []any:
		return len(actual) == 0
	case []string:
		return len(actual) == 0
	}
	return false
}

// scalarString renders strings, numbers and booleans, including named and
// sized variants such as int32 or float32.
func scalarString(v any) (string, bool) {
	switch actual := v.(type) {
	case string:
		return actual, true
	case json.Number:
		return actual.String(), true
	case float64:
		return strconv.FormatFloat(actual, 'f', -1, 64), true
	case int:
		return strconv.Itoa(actual), true
	case bool:
		return strconv.FormatBool(actual), true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String:
		return rv.String(), true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(rv.Uint(), 10), true
	case reflect.Float32:
		return strconv.FormatFloat(rv.Float(), 'f', -1, 32), true
	case reflect.Float64:
		return strconv.FormatFloat(rv.Float(), 'f', -1, 64), true
	case reflect.Bool:
		return strconv.FormatBool(rv.Bool()), true
	}
	return "", false
}

// formatValue renders a query or header value; arrays join with ','.
func formatValue(v any) (string, error) {
	if s, ok := scalarString(v); ok {
		return s, nil
	}
	switch actual := v.(type) {
	case []string:
		return strings.Join(actual, ","), nil
	case []any:
		items := make([]string, 0, len(actual))
		for _, item := range actual {
			s, ok := scalarString(item)
			if !ok {
				return "", fmt.Errorf("unsupported list item %T", item)
			}
			items = append(items, s)
		}
		return strings.Join(items, ","), nil
	case fmt.Stringer:
		return actual.String(), nil
	}
	return "", fmt.Errorf("unsupported value %T", v)
}

// encodeQuery writes keys in sorted order. OData system options keep their
// literal '$' prefix and spaces are sent as %20.
func encodeQuery(values url.Values) string {
	if len(values) == 0 {
		return ""
	}
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var sb strings.Builder
	for _, k := range keys {
		key := escapeQuery(k)
		if strings.HasPrefix(k, "$") {
			key = "$" + escapeQuery(k[1:])
		}
		for _, v := range values[k] {
			if sb.Len() > 0 {
				sb.WriteByte('&')
			}
			sb.WriteString(key)
			sb.WriteByte('=')
			sb.WriteString(escapeQuery(v))
		}
	}
	return sb.String()
}

func escapeQuery(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
