package repopath

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	t.Run("uri form with folder", func(t *testing.T) {
		p, err := Parse("s3://bucket1/repo1")
		require.NoError(t, err)
		assert.Equal(t, "bucket1", p.Bucket)
		assert.Equal(t, "repo1", p.Folder)
		assert.True(t, p.HasFolder())
	})

	t.Run("uri form bucket only", func(t *testing.T) {
		p, err := Parse("s3://bucket1")
		require.NoError(t, err)
		assert.Equal(t, "bucket1", p.Bucket)
		assert.False(t, p.HasFolder())
		assert.Empty(t, p.Prefix())
	})

	t.Run("path form", func(t *testing.T) {
		p, err := Parse("/bucket/some/nested/repo")
		require.NoError(t, err)
		assert.Equal(t, "bucket", p.Bucket)
		assert.Equal(t, "some/nested/repo", p.Folder)
	})

	t.Run("trailing separators trimmed", func(t *testing.T) {
		p, err := Parse("s3://bucket/repo1/")
		require.NoError(t, err)
		assert.Equal(t, "repo1", p.Folder)
	})

	t.Run("all-empty folder collapses", func(t *testing.T) {
		p, err := Parse("s3://bucket///")
		require.NoError(t, err)
		assert.False(t, p.HasFolder())
	})

	t.Run("unrecognized shape", func(t *testing.T) {
		_, err := Parse("http://bucket/repo")
		assert.ErrorIs(t, err, ErrMalformedLocation)
	})

	t.Run("empty bucket", func(t *testing.T) {
		_, err := Parse("s3:///repo")
		assert.ErrorIs(t, err, ErrMalformedLocation)
	})

	t.Run("empty string", func(t *testing.T) {
		_, err := Parse("")
		assert.ErrorIs(t, err, ErrMalformedLocation)
	})
}

func TestRepoRelative(t *testing.T) {
	p, err := Parse("s3://bucket/repo")
	require.NoError(t, err)

	assert.Equal(t, "path/to/file.rpm", p.RepoRelative("repo/path/to/file.rpm"))
	assert.Equal(t, "repo/path/to/file.rpm", p.Key("path/to/file.rpm"))

	noFolder, err := Parse("s3://bucket")
	require.NoError(t, err)
	assert.Equal(t, "path/to/file.rpm", noFolder.RepoRelative("path/to/file.rpm"))
	assert.Equal(t, "path/to/file.rpm", noFolder.Key("path/to/file.rpm"))
}

func TestString(t *testing.T) {
	p, err := Parse("/bucket/repo")
	require.NoError(t, err)
	assert.Equal(t, "s3://bucket/repo", p.String())
}
