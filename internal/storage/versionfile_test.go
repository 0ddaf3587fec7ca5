package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liangyou/vodka/pkg/models"
)

func TestDecodeVersion(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		doc  string
		want models.Version
	}{
		{"string", `version: "9.21.0"`, models.Version{Major: 9, Minor: 21}},
		{"json", `{"version": "10.0.2"}`, models.Version{Major: 10, Patch: 2}},
		{"numeric", `version: 9.21`, models.Version{Major: 9, Minor: 21}},
		{"struct", "version:\n  major: 8\n  minor: 0\n  patch: 1\n", models.Version{Major: 8, Patch: 1}},
		{"bare struct", "major: 7\nminor: 22\npatch: 0\n", models.Version{Major: 7, Minor: 22}},
		{"bare scalar", "9.4.0\n", models.Version{Major: 9, Minor: 4}},
	}
	for _, tc := range cases {
		got, err := DecodeVersion([]byte(tc.doc))
		require.NoError(t, err, tc.name)
		assert.Equal(t, tc.want, got, tc.name)
	}

	for _, bad := range []string{
		"", "version: [1, 2]", "version: latest", "version:\n  major: -1\n",
		"{}", "name: wine\n", "version: {}\n", "version:\n  mjr: 9\n",
	} {
		_, err := DecodeVersion([]byte(bad))
		assert.Error(t, err, bad)
	}
}

func TestVersionFileRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "WineVersion.yaml")
	require.NoError(t, WriteVersionFile(path, models.Version{Major: 9, Minor: 21}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `version: 9.21.0`)

	got, err := ReadVersionFile(path)
	require.NoError(t, err)
	assert.Equal(t, models.Version{Major: 9, Minor: 21}, got)

	_, err = ReadVersionFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorIs(t, err, os.ErrNotExist)
}
