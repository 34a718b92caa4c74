package rebuild

import (
	"errors"
	"os"
	"strings"
)

const DefaultWorkers = 8

// Config captures one rebuild invocation. Boolean switches default to the
// safe/full pipeline; each one skips a single stage.
type Config struct {
	// RepositoryPath locates the repository, "s3://bucket/folder" or
	// "/bucket/folder".
	RepositoryPath string
	// StagingDir is the local working copy root. Empty means a fresh temp
	// directory.
	StagingDir string

	AccessKey string
	SecretKey string
	Region    string
	Endpoint  string

	// CreateRepo is the createrepo executable to invoke.
	CreateRepo string
	// Excludes lists repo-relative paths that are neither downloaded nor
	// kept remotely.
	Excludes []string

	SkipValidate       bool
	RemoveOldSnapshots bool
	// DryRun logs every remote operation instead of executing it.
	DryRun bool
	// MetadataOnly restricts the upload scope to the regenerated index.
	MetadataOnly bool
	SkipPreClean bool

	// Workers bounds parallel object fetches during download.
	Workers int
}

func (c *Config) Validate() error {
	if c.RepositoryPath == "" {
		return errors.New("repository path is required")
	}
	if c.Workers <= 0 {
		c.Workers = DefaultWorkers
	}
	if c.StagingDir == "" {
		dir, err := os.MkdirTemp("", "reposync-*")
		if err != nil {
			return err
		}
		c.StagingDir = dir
	}
	return nil
}

// ParseExcludes splits a comma-delimited list of repo-relative paths,
// dropping empty entries.
func ParseExcludes(s string) []string {
	var excludes []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			excludes = append(excludes, part)
		}
	}
	return excludes
}
