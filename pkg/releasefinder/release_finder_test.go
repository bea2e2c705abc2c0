package releasefinder

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const releasesJSON = `[
  {
    "tag_name": "v1.2.0",
    "assets": [
      {"name": "secretsanta-linux-amd64", "browser_download_url": "https://example.com/linux-amd64"},
      {"name": "secretsanta-darwin-arm64", "browser_download_url": "https://example.com/darwin-arm64"}
    ]
  }
]`

func Test_findRelease(t *testing.T) {
	release, err := findRelease(strings.NewReader(releasesJSON), "linux", "amd64")
	require.NoError(t, err)
	assert.Equal(t, "v1.2.0", release.Tag)
	assert.Equal(t, "https://example.com/linux-amd64", release.URL)
}

func Test_findRelease_NotFound(t *testing.T) {
	_, err := findRelease(strings.NewReader(releasesJSON), "windows", "arm")
	var notFound FailedToFindReleaseError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "windows", notFound.OS)
}
