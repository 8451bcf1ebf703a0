// Copyright (c) 2026 EyeMouse Team
// EyeMouse - gaze-controlled cursor
// This source code is licensed under the MIT license found in the LICENSE file.

// package update checks GitHub releases for a newer EyeMouse build.
package update // import "github.com/mehmetaltunel/eyemouse/internal/update"

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"runtime"
	"strings"
	"time"

	version "github.com/hashicorp/go-version"
)

// DefaultTimeout bounds a single check.
const DefaultTimeout = 5 * time.Second

var versionRe = regexp.MustCompile(`v?(\d+(\.\d+)+)`)

// Result describes the latest release.
type Result struct {
	Available   bool
	Latest      string
	DownloadURL string
}

type release struct {
	Name    string `json:"name"`
	TagName string `json:"tag_name"`
	HTMLURL string `json:"html_url"`
	Assets  []struct {
		Name               string `json:"name"`
		BrowserDownloadURL string `json:"browser_download_url"`
	} `json:"assets"`
}

// Checker queries a releases endpoint.
type Checker struct {
	URL    string
	Client *http.Client
	// GOOS selects the asset; empty means runtime.GOOS.
	GOOS string
}

// NewChecker returns a Checker for url with DefaultTimeout.
func NewChecker(url string) *Checker {
	return &Checker{URL: url, Client: &http.Client{Timeout: DefaultTimeout}}
}

// Check fetches the latest release and compares it with current. When a
// newer release exists, DownloadURL points at the platform asset (.exe on
// Windows, .dmg on macOS) or the release page.
func (c *Checker) Check(ctx context.Context, current string) (Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL, nil)
	if err != nil {
		return Result{}, fmt.Errorf("failed to build update request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	client := c.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("update check failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return Result{}, fmt.Errorf("update check failed: %s", resp.Status)
	}

	var rel release
	if err := json.NewDecoder(resp.Body).Decode(&rel); err != nil {
		return Result{}, fmt.Errorf("failed to decode release: %w", err)
	}
	latest := ParseVersion(rel.Name)
	if latest == "" {
		latest = ParseVersion(rel.TagName)
	}
	if latest == "" {
		return Result{}, fmt.Errorf("could not parse version from release %q", rel.Name)
	}

	res := Result{Latest: latest}
	if !IsNewer(latest, current) {
		return res, nil
	}
	res.Available = true
	res.DownloadURL = rel.HTMLURL

	goos := c.GOOS
	if goos == "" {
		goos = runtime.GOOS
	}
	ext := ".dmg"
	if goos == "windows" {
		ext = ".exe"
	}
	for _, a := range rel.Assets {
		if strings.HasSuffix(a.Name, ext) {
			res.DownloadURL = a.BrowserDownloadURL
			break
		}
	}
	return res, nil
}

// ParseVersion extracts "1.0.0.42" from strings like "Latest Build (v1.0.0.42)".
func ParseVersion(s string) string {
	m := versionRe.FindStringSubmatch(s)
	if m == nil {
		return ""
	}
	return m[1]
}

// IsNewer reports whether latest is greater than current. Missing segments
// count as zero; unparsable input is never newer.
func IsNewer(latest, current string) bool {
	l, err := version.NewVersion(latest)
	if err != nil {
		return false
	}
	c, err := version.NewVersion(strings.TrimPrefix(current, "v"))
	if err != nil {
		return false
	}
	return l.GreaterThan(c)
}
