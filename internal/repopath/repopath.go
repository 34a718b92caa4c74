// Package repopath parses repository location strings into a bucket and an
// optional bucket-relative folder.
package repopath

import (
	"errors"
	"fmt"
	"path"
	"strings"
)

const s3Scheme = "s3://"

var ErrMalformedLocation = errors.New("malformed repository location")

// RepositoryPath identifies the root of a repository inside a bucket.
// Folder is empty when the repository lives at the bucket root; otherwise it
// never carries leading or trailing slashes. Immutable after Parse.
type RepositoryPath struct {
	Bucket string
	Folder string
}

// Parse accepts either "s3://bucket/folder..." or "/bucket/folder...".
func Parse(location string) (RepositoryPath, error) {
	s := strings.TrimSpace(location)

	var rest string
	switch {
	case strings.HasPrefix(s, s3Scheme):
		rest = strings.TrimPrefix(s, s3Scheme)
	case strings.HasPrefix(s, "/"):
		rest = strings.TrimPrefix(s, "/")
	default:
		return RepositoryPath{}, fmt.Errorf("%w: %q", ErrMalformedLocation, location)
	}

	bucket, folder, _ := strings.Cut(rest, "/")
	if bucket == "" {
		return RepositoryPath{}, fmt.Errorf("%w: empty bucket in %q", ErrMalformedLocation, location)
	}

	folder = strings.Trim(folder, "/")
	if folder != "" {
		// collapse duplicate separators and dot segments
		folder = path.Clean(folder)
	}
	if folder == "." {
		folder = ""
	}

	return RepositoryPath{Bucket: bucket, Folder: folder}, nil
}

func (p RepositoryPath) HasFolder() bool {
	return p.Folder != ""
}

// Prefix returns the object listing prefix, "folder/" or "" at bucket root.
func (p RepositoryPath) Prefix() string {
	if !p.HasFolder() {
		return ""
	}
	return p.Folder + "/"
}

// RepoRelative strips the folder prefix from a bucket key. Identity when no
// folder is configured.
func (p RepositoryPath) RepoRelative(key string) string {
	if !p.HasFolder() {
		return key
	}
	return strings.TrimPrefix(key, p.Prefix())
}

// Key maps a repo-relative path back to a bucket key.
func (p RepositoryPath) Key(repoRelative string) string {
	if !p.HasFolder() {
		return repoRelative
	}
	return p.Folder + "/" + repoRelative
}

func (p RepositoryPath) String() string {
	if !p.HasFolder() {
		return s3Scheme + p.Bucket
	}
	return s3Scheme + p.Bucket + "/" + p.Folder
}
