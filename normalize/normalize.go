// Package normalize turns user supplied text into the canonical values the
// store expects. The store compares names and urls as exact strings, so
// every caller passes its input through here first.
package normalize

import (
	"net/url"
	"strings"
	"unicode"
)

// Title trims surrounding whitespace.
func Title(raw string) string {
	return strings.TrimSpace(raw)
}

// URL trims the value and lower-cases the scheme and host of absolute urls.
// Path, query and fragment are kept as typed.
func URL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return raw
	}

	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return raw
	}

	// Replace the prefix only so escaping in the rest is untouched.
	prefix := strings.ToLower(u.Scheme + "://" + u.Host)
	if len(raw) >= len(prefix) && strings.EqualFold(raw[:len(prefix)], prefix) {
		return prefix + raw[len(prefix):]
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	return u.String()
}

// Tags splits a free-form tag string on commas and whitespace.
// "Go, web  Dev" gives ["go", "web", "dev"].
func Tags(raw string) []string {
	return TagList(split(raw))
}

// TagList lower-cases and trims names, dropping empties and duplicates.
func TagList(names []string) []string {
	return unique(names, strings.ToLower)
}

// Categories splits a free-form category string like Tags, keeping case.
func Categories(raw string) []string {
	return CategoryList(split(raw))
}

func CategoryList(names []string) []string {
	return unique(names, nil)
}

func split(raw string) []string {
	return strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || unicode.IsSpace(r)
	})
}

func unique(names []string, transform func(string) string) []string {
	seen := make(map[string]struct{}, len(names))
	result := make([]string, 0, len(names))

	for _, name := range names {
		name = strings.TrimSpace(name)
		if transform != nil {
			name = transform(name)
		}
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		result = append(result, name)
	}

	return result
}
