// Copyright (c) 2026 EyeMouse Team
// EyeMouse - gaze-controlled cursor
// This source code is licensed under the MIT license found in the LICENSE file.

// i18n-lint compares the translation keys referenced by the Go sources with
// the flat YAML locale files. It exits non-zero when a locale lacks a key the
// code uses or the primary locale defines.
//
// Usage (from the repository root):
//
//	go run ./tools/i18n-lint
package main

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	localesDir    = "internal/i18n/locales"
	primaryLocale = "en.yaml"
	projectRoot   = "."
)

var (
	// i18n.T("dashboard.title", ...)
	staticKeyRe = regexp.MustCompile(`i18n\.T\("([a-z0-9_.]+)"`)
	// i18n.T("action." + string(a)) marks every key under the prefix as used.
	prefixKeyRe = regexp.MustCompile(`i18n\.T\("([a-z0-9_.]+\.)"\s*\+`)
	// key.WithHelp and similar helpers pass keys through string literals.
	literalKeyRe = regexp.MustCompile(`"([a-z0-9_]+\.[a-z0-9_.]+)"`)
)

// usage holds the keys found in the sources.
type usage struct {
	keys     map[string]struct{}
	prefixes map[string]struct{}
}

func (u usage) covers(key string) bool {
	if _, ok := u.keys[key]; ok {
		return true
	}
	for p := range u.prefixes {
		if strings.HasPrefix(key, p) {
			return true
		}
	}
	return false
}

// report is the outcome of one lint run.
type report struct {
	// Undefined keys are referenced in code but missing from the primary locale.
	Undefined []string
	// Orphaned keys exist in the primary locale but nothing references them.
	Orphaned []string
	// Missing maps a secondary locale file to the primary keys it lacks.
	Missing map[string][]string
}

func (r report) failed() bool {
	return len(r.Undefined) > 0 || len(r.Missing) > 0
}

func main() {
	r, err := lint(projectRoot, filepath.Join(projectRoot, localesDir))
	if err != nil {
		fmt.Fprintf(os.Stderr, "i18n-lint: %v\n", err)
		os.Exit(2)
	}
	r.print(os.Stdout)
	if r.failed() {
		os.Exit(1)
	}
}

func lint(root, locales string) (report, error) {
	used, err := findUsedKeys(root)
	if err != nil {
		return report{}, fmt.Errorf("scan sources: %w", err)
	}
	primary, err := loadKeysFromLocale(filepath.Join(locales, primaryLocale))
	if err != nil {
		return report{}, fmt.Errorf("load %s: %w", primaryLocale, err)
	}

	r := report{Missing: map[string][]string{}}
	for k := range used.keys {
		if _, ok := primary[k]; !ok {
			r.Undefined = append(r.Undefined, k)
		}
	}
	for k := range primary {
		if !used.covers(k) {
			r.Orphaned = append(r.Orphaned, k)
		}
	}
	sort.Strings(r.Undefined)
	sort.Strings(r.Orphaned)

	files, err := filepath.Glob(filepath.Join(locales, "*.yaml"))
	if err != nil {
		return report{}, err
	}
	for _, f := range files {
		if filepath.Base(f) == primaryLocale {
			continue
		}
		keys, err := loadKeysFromLocale(f)
		if err != nil {
			return report{}, fmt.Errorf("load %s: %w", filepath.Base(f), err)
		}
		var missing []string
		for k := range primary {
			if _, ok := keys[k]; !ok {
				missing = append(missing, k)
			}
		}
		if len(missing) > 0 {
			sort.Strings(missing)
			r.Missing[filepath.Base(f)] = missing
		}
	}
	return r, nil
}

func (r report) print(w io.Writer) {
	section := func(title string, keys []string) {
		_, _ = fmt.Fprintf(w, "%s:\n", title)
		if len(keys) == 0 {
			_, _ = fmt.Fprintln(w, "  none")
			return
		}
		for _, k := range keys {
			_, _ = fmt.Fprintf(w, "  - %s\n", k)
		}
	}
	section("Undefined keys (used in code, absent from "+primaryLocale+")", r.Undefined)
	section("Orphaned keys (unused in code)", r.Orphaned)

	names := make([]string, 0, len(r.Missing))
	for name := range r.Missing {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		section("Missing from "+name, r.Missing[name])
	}
	if r.failed() {
		_, _ = fmt.Fprintln(w, "FAIL")
		return
	}
	_, _ = fmt.Fprintln(w, "ok")
}

// findUsedKeys scans non-test .go files below root. The tools directory is
// skipped so the linter's own patterns do not count.
func findUsedKeys(root string) (usage, error) {
	u := usage{keys: map[string]struct{}{}, prefixes: map[string]struct{}{}}
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if path != root && (name == "tools" || strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_")) {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(path, ".go") || strings.HasSuffix(path, "_test.go") {
			return nil
		}
		content, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		src := string(content)
		for _, m := range prefixKeyRe.FindAllStringSubmatch(src, -1) {
			u.prefixes[m[1]] = struct{}{}
		}
		for _, m := range staticKeyRe.FindAllStringSubmatch(src, -1) {
			u.keys[m[1]] = struct{}{}
		}
		if strings.Contains(src, "i18n.T(") {
			for _, m := range literalKeyRe.FindAllStringSubmatch(src, -1) {
				if looksLikeKey(m[1]) {
					u.keys[m[1]] = struct{}{}
				}
			}
		}
		return nil
	})
	// Prefix literals are not keys themselves.
	for p := range u.prefixes {
		delete(u.keys, p)
	}
	return u, err
}

// looksLikeKey rejects file names and config paths that happen to match the
// literal pattern.
func looksLikeKey(s string) bool {
	if strings.HasSuffix(s, ".") {
		return false
	}
	for _, ext := range []string{".yaml", ".json", ".db", ".zst", ".log", ".go"} {
		if strings.HasSuffix(s, ext) {
			return false
		}
	}
	group := s[:strings.IndexByte(s, '.')]
	switch group {
	case "dashboard", "action", "quality", "keys", "calibrate", "record", "cameras",
		"config", "db", "doctor", "history", "update":
		return true
	}
	return false
}

// loadKeysFromLocale reads a locale file. Keys are flat dotted strings, but
// nested maps are flattened too so either layout lints the same.
func loadKeysFromLocale(path string) (map[string]struct{}, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var data map[string]any
	if err := yaml.Unmarshal(content, &data); err != nil {
		return nil, err
	}
	keys := make(map[string]struct{})
	flattenYAML("", data, keys)
	return keys, nil
}

func flattenYAML(prefix string, node any, keys map[string]struct{}) {
	switch v := node.(type) {
	case map[string]any:
		for k, val := range v {
			next := k
			if prefix != "" {
				next = prefix + "." + k
			}
			flattenYAML(next, val, keys)
		}
	default:
		if prefix != "" {
			keys[prefix] = struct{}{}
		}
	}
}
