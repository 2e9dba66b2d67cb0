package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/hashicorp/go-version"
)

// AppVersion is overridden at build time with -ldflags "-X".
var AppVersion = "v0.0.0"

var releasesURL = "https://api.github.com/repos/nulzo/gateway-analytics-api/releases/latest"

type GitHubRelease struct {
	TagName string `json:"tag_name"`
}

// Release describes the newest published version.
type Release struct {
	Current  string
	Latest   string
	Outdated bool
}

// CheckForUpdates compares AppVersion with the latest published release.
func CheckForUpdates(ctx context.Context) (*Release, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, releasesURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("release lookup returned %d", resp.StatusCode)
	}

	var release GitHubRelease
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return nil, err
	}

	current, err := version.NewVersion(AppVersion)
	if err != nil {
		return nil, fmt.Errorf("parse current version: %w", err)
	}
	latest, err := version.NewVersion(release.TagName)
	if err != nil {
		return nil, fmt.Errorf("parse latest version: %w", err)
	}

	return &Release{
		Current:  AppVersion,
		Latest:   release.TagName,
		Outdated: current.LessThan(latest),
	}, nil
}
