package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVersion(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want Version
	}{
		{"9.21", Version{9, 21, 0}},
		{"9.21.0", Version{9, 21, 0}},
		{"v9.21.0", Version{9, 21, 0}},
		{" 10.0.3 ", Version{10, 0, 3}},
		{"8.0.1-rc1", Version{8, 0, 1}},
	}
	for _, tc := range cases {
		got, err := ParseVersion(tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}

	for _, bad := range []string{"", "release", "wine-9.21", "9.x.1", "18446744073709551615.0", "1.18446744073709551615"} {
		_, err := ParseVersion(bad)
		assert.Error(t, err, bad)
	}
}

func TestVersionTotalOrder(t *testing.T) {
	t.Parallel()

	versions := []Version{
		{0, 0, 0}, {0, 0, 1}, {0, 1, 0}, {1, 0, 0},
		{9, 5, 0}, {9, 19, 0}, {9, 21, 0}, {9, 21, 1}, {10, 0, 0},
	}
	for i, a := range versions {
		for j, b := range versions {
			less, equal, greater := a.Less(b), a == b, b.Less(a)
			count := 0
			for _, ok := range []bool{less, equal, greater} {
				if ok {
					count++
				}
			}
			require.Equal(t, 1, count, "%s vs %s", a, b)
			switch {
			case i < j:
				assert.True(t, less, "%s < %s", a, b)
			case i == j:
				assert.Equal(t, 0, a.Compare(b))
			default:
				assert.True(t, greater, "%s > %s", a, b)
			}
		}
	}
}

func TestVersionString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "9.21.0", Version{9, 21, 0}.String())
	assert.True(t, Version{}.IsZero())
}
