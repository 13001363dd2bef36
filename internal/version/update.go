package version

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	RepoOwner = "khanglvm"
	RepoName  = "promptstruct"
	UpdateURL = "https://api.github.com/repos/" + RepoOwner + "/" + RepoName + "/releases/latest"

	// CheckInterval is how long a release lookup stays cached.
	CheckInterval = 24 * time.Hour
)

// Release is the subset of the GitHub release API response we read.
type Release struct {
	TagName string `json:"tag_name"`
	HTMLURL string `json:"html_url"`
}

// UpdateCache stores update check state between runs.
type UpdateCache struct {
	LastUpdateCheck  time.Time `json:"lastUpdateCheck"`
	LastKnownVersion string    `json:"lastKnownVersion"`
}

// Checker looks up the latest published release.
type Checker struct {
	URL       string
	CachePath string
	Client    *http.Client
	Now       func() time.Time
}

// NewChecker returns a checker against the GitHub releases API, caching in
// dir.
func NewChecker(dir string) *Checker {
	return &Checker{
		URL:       UpdateURL,
		CachePath: filepath.Join(dir, "update-cache.json"),
		Client:    &http.Client{Timeout: 10 * time.Second},
		Now:       time.Now,
	}
}

// Check returns the latest version when it differs from current, or "" when
// current is up to date. A cached answer younger than CheckInterval is reused.
func (c *Checker) Check(ctx context.Context, current string) (string, error) {
	cache := c.loadCache()
	if !cache.LastUpdateCheck.IsZero() && c.Now().Sub(cache.LastUpdateCheck) < CheckInterval {
		return newer(cache.LastKnownVersion, current), nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")

	resp, err := c.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to check for updates: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("GitHub API returned status %d", resp.StatusCode)
	}

	var release Release
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}

	latest := strings.TrimPrefix(release.TagName, "v")
	cache.LastUpdateCheck = c.Now()
	cache.LastKnownVersion = latest
	// A cache write failure only costs an extra lookup next time.
	_ = c.saveCache(cache)

	return newer(latest, current), nil
}

func newer(latest, current string) string {
	if latest == "" || latest == strings.TrimPrefix(current, "v") {
		return ""
	}
	return latest
}

func (c *Checker) loadCache() UpdateCache {
	var cache UpdateCache
	data, err := os.ReadFile(c.CachePath)
	if err != nil {
		return cache
	}
	if err := json.Unmarshal(data, &cache); err != nil {
		return UpdateCache{}
	}
	return cache
}

func (c *Checker) saveCache(cache UpdateCache) error {
	if err := os.MkdirAll(filepath.Dir(c.CachePath), 0700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cache, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(c.CachePath, data, 0644)
}
