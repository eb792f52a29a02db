// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package run

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const remoteDefinition = "command: \"echo $ITEM\"\nworkers: 2\n"

func TestFetchDefinition_Empty(t *testing.T) {
	path, cleanup, err := fetchDefinition(t.Context(), "")
	require.NoError(t, err)
	defer cleanup()

	assert.Empty(t, path)
}

func TestFetchDefinition_LocalFileIsNotCopied(t *testing.T) {
	t.Chdir(t.TempDir())
	require.NoError(t, os.WriteFile("run.yaml", []byte(remoteDefinition), 0o600))

	wd, err := os.Getwd()
	require.NoError(t, err)

	path, cleanup, err := fetchDefinition(t.Context(), "run.yaml")
	require.NoError(t, err)
	defer cleanup()

	assert.Equal(t, filepath.Join(wd, "run.yaml"), path)
}

func TestFetchDefinition_Remote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/defs/run.yaml" {
			http.NotFound(w, r)
			return
		}

		_, _ = w.Write([]byte(remoteDefinition))
	}))
	defer srv.Close()

	path, cleanup, err := fetchDefinition(t.Context(), srv.URL+"/defs/run.yaml")
	require.NoError(t, err)

	assert.True(t, filepath.IsAbs(path))
	assert.Equal(t, "run.yaml", filepath.Base(path), "the extension selects the format")

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, remoteDefinition, string(got))

	cleanup()

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err), "cleanup removes the download")
}

func TestFetchDefinition_RemoteNotFound(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	_, cleanup, err := fetchDefinition(t.Context(), srv.URL+"/missing.yaml")
	defer cleanup()

	require.ErrorIs(t, err, ErrFetchConfig)
}

func TestSplitFileNameFromGetterURL(t *testing.T) {
	tests := []struct {
		url      string
		wantURL  string
		wantFile string
	}{
		{
			url:      "git::https://github.com/org/repo//defs/run.yaml?ref=main",
			wantURL:  "git::https://github.com/org/repo//defs?ref=main",
			wantFile: "run.yaml",
		},
		{
			url:      "https://github.com/org/repo//run.yaml",
			wantURL:  "https://github.com/org/repo",
			wantFile: "run.yaml",
		},
		{url: "https://example.com/run.yaml"},
		{url: "https://github.com/org/repo//"},
		{url: "https://github.com/org/repo//defs/"},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			gotURL, gotFile := splitFileNameFromGetterURL(tt.url)
			assert.Equal(t, tt.wantURL, gotURL)
			assert.Equal(t, tt.wantFile, gotFile)
		})
	}
}
