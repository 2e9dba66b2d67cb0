package cmd

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withRelease(t *testing.T, current, body string, status int) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	prevURL, prevVersion := releasesURL, AppVersion
	releasesURL, AppVersion = srv.URL, current
	t.Cleanup(func() { releasesURL, AppVersion = prevURL, prevVersion })
}

func TestCheckForUpdates(t *testing.T) {
	withRelease(t, "v1.2.0", `{"tag_name":"v1.10.0"}`, http.StatusOK)

	rel, err := CheckForUpdates(context.Background())
	require.NoError(t, err)
	assert.True(t, rel.Outdated)
	assert.Equal(t, "v1.10.0", rel.Latest)
}

func TestCheckForUpdates_UpToDate(t *testing.T) {
	withRelease(t, "v2.0.0", `{"tag_name":"v2.0.0"}`, http.StatusOK)

	rel, err := CheckForUpdates(context.Background())
	require.NoError(t, err)
	assert.False(t, rel.Outdated)
}

func TestCheckForUpdates_Errors(t *testing.T) {
	withRelease(t, "v1.0.0", `{}`, http.StatusNotFound)
	_, err := CheckForUpdates(context.Background())
	assert.Error(t, err)

	withRelease(t, "v1.0.0", `{"tag_name":"nightly"}`, http.StatusOK)
	_, err = CheckForUpdates(context.Background())
	assert.ErrorContains(t, err, "parse latest version")
}
