package version_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/AnCIity/importlyrical/pkg/version"
)

func TestGet(t *testing.T) {
	t.Parallel()

	info := version.Get()

	assert.Equal(t, version.Version, info.Version)
	assert.Equal(t, version.Date, info.Date)
	assert.NotEmpty(t, info.Commit)
	assert.NotEmpty(t, info.GoVersion)
}
