package graph

import (
	"fmt"
	"net/url"
	"strings"
)

// templateParams extracts {name} placeholders from a path template.
func templateParams(template string) ([]string, error) {
	if !strings.HasPrefix(template, "/") {
		return nil, fmt.Errorf("path %q must start with /", template)
	}
	names := []string{}
	rest := template
	for {
		open := strings.IndexByte(rest, '{')
		closing := strings.IndexByte(rest, '}')
		if open == -1 {
			if closing != -1 {
				return nil, fmt.Errorf("path %q: unbalanced '}'", template)
			}
			return names, nil
		}
		if closing < open {
			return nil, fmt.Errorf("path %q: unbalanced braces", template)
		}
		name := rest[open+1 : closing]
		if !isIdentifier(name) {
			return nil, fmt.Errorf("path %q: invalid placeholder %q", template, name)
		}
		for _, n := range names {
			if n == name {
				return nil, fmt.Errorf("path %q: repeated placeholder %q", template, name)
			}
		}
		names = append(names, name)
		rest = rest[closing+1:]
	}
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
		default:
			return false
		}
	}
	return true
}

// expandPath substitutes identifiers into the template. Each identifier is
// escaped as a single path segment so that an embedded '/' travels as %2F.
func expandPath(template string, values map[string]string) (string, error) {
	var sb strings.Builder
	rest := template
	for {
		open := strings.IndexByte(rest, '{')
		if open == -1 {
			sb.WriteString(rest)
			return sb.String(), nil
		}
		closing := strings.IndexByte(rest[open:], '}')
		if closing == -1 {
			return "", fmt.Errorf("path %q: unbalanced braces", template)
		}
		closing += open
		name := rest[open+1 : closing]
		value, ok := values[name]
		if !ok || value == "" {
			return "", fmt.Errorf("path %q: missing %v", template, name)
		}
		sb.WriteString(rest[:open])
		sb.WriteString(url.PathEscape(value))
		rest = rest[closing+1:]
	}
}

// joinURL appends an expanded path to the service root and parses the result,
// keeping the escaped form of the path intact.
func joinURL(base, path string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimRight(base, "/") + path)
	if err != nil {
		return nil, fmt.Errorf("invalid request url: %w", err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("invalid request url %q: no host", u.String())
	}
	return u, nil
}
