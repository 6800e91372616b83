// Package macro resolves build variable references in job configuration
// strings, following the rules CI hosts such as Jenkins apply to build step
// fields: $NAME, ${NAME} and $$ for a literal dollar sign.
package macro

import (
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strings"
)

var variable = regexp.MustCompile(`\$([A-Za-z0-9_]+|\{[A-Za-z0-9_.]+\}|\$)`)

// Env is a build-time variable mapping. Lookups fall back to a
// case-insensitive match, as build hosts treat variable names that way.
type Env map[string]string

// Lookup returns the value for key. When only names differing in case exist,
// the first in sorted order wins.
func (e Env) Lookup(key string) (string, bool) {
	if v, ok := e[key]; ok {
		return v, true
	}
	for _, k := range slices.Sorted(maps.Keys(e)) {
		if strings.EqualFold(k, key) {
			return e[k], true
		}
	}
	return "", false
}

// Replace substitutes every known variable reference in s. References to
// variables missing from env are left as written. Substituted values are not
// scanned again.
func (e Env) Replace(s string) string {
	if s == "" || !strings.Contains(s, "$") {
		return s
	}
	return variable.ReplaceAllStringFunc(s, func(ref string) string {
		key := ref[1:]
		if key == "$" {
			return "$"
		}
		key = strings.TrimSuffix(strings.TrimPrefix(key, "{"), "}")
		if v, ok := e.Lookup(key); ok {
			return v
		}
		return ref
	})
}

// Parse builds an Env from KEY=VALUE pairs. Later pairs win. Entries with an
// empty key, such as the "=C:" drive entries of a Windows environment, are
// skipped.
func Parse(pairs []string) (Env, error) {
	env := make(Env, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("invalid variable %q: expected KEY=VALUE", pair)
		}
		if key == "" {
			continue
		}
		env[key] = value
	}
	return env, nil
}

// Merge returns a new Env holding base overlaid with overrides.
func Merge(base, overrides Env) Env {
	merged := make(Env, len(base)+len(overrides))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range overrides {
		merged[k] = v
	}
	return merged
}
