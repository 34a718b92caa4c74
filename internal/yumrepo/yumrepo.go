// Package yumrepo wraps a local on-disk yum repository: querying its
// metadata and regenerating it with the external createrepo tool.
package yumrepo

import (
	"compress/gzip"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/rpmforge/reposync/internal/utils"
)

const (
	// DefaultCreateRepo is the createrepo executable resolved via PATH.
	DefaultCreateRepo = "createrepo"

	repoDataDirName  = "repodata"
	repoMetadataFile = "repomd.xml"
)

// Repo operates on the yum repository rooted at a local directory.
type Repo struct {
	root       string
	createrepo string
}

func New(root, createrepo string) *Repo {
	if createrepo == "" {
		createrepo = DefaultCreateRepo
	}
	return &Repo{root: root, createrepo: createrepo}
}

func (r *Repo) Root() string {
	return r.root
}

// RepoDataDir is the directory holding the generated metadata index.
func (r *Repo) RepoDataDir() string {
	return filepath.Join(r.root, repoDataDirName)
}

// Exists reports whether repository metadata is present.
func (r *Repo) Exists() bool {
	return utils.FileExists(filepath.Join(r.RepoDataDir(), repoMetadataFile))
}

// HasFile reports whether a repo-relative path exists as a regular file.
func (r *Repo) HasFile(repoRelative string) bool {
	return utils.FileExists(filepath.Join(r.root, filepath.FromSlash(repoRelative)))
}

// CreateRepo regenerates the metadata index over the current file tree by
// invoking the external createrepo executable.
func (r *Repo) CreateRepo(ctx context.Context) error {
	cmd := exec.CommandContext(ctx, r.createrepo, r.root)
	out, err := cmd.CombinedOutput()
	if len(out) > 0 {
		slog.Debug("createrepo output", "output", string(out))
	}
	if err != nil {
		return fmt.Errorf("createrepo failed: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}

// DeclaredFiles parses the metadata index and returns every repo-relative
// file path it declares.
func (r *Repo) DeclaredFiles() ([]string, error) {
	primaryHref, err := r.primaryLocation()
	if err != nil {
		return nil, err
	}
	return r.parsePrimary(primaryHref)
}

// repomd.xml shape, element namespaces ignored
type repoMetadata struct {
	XMLName xml.Name           `xml:"repomd"`
	Data    []repoMetadataData `xml:"data"`
}

type repoMetadataData struct {
	Type     string       `xml:"type,attr"`
	Location repoLocation `xml:"location"`
}

type repoLocation struct {
	Href string `xml:"href,attr"`
}

// primary.xml shape
type primaryMetadata struct {
	XMLName  xml.Name         `xml:"metadata"`
	Packages []primaryPackage `xml:"package"`
}

type primaryPackage struct {
	Type     string       `xml:"type,attr"`
	Location repoLocation `xml:"location"`
}

// primaryLocation finds the repo-relative href of the primary metadata file
// inside repomd.xml.
func (r *Repo) primaryLocation() (string, error) {
	path := filepath.Join(r.RepoDataDir(), repoMetadataFile)
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open repository metadata %s: %w", path, err)
	}
	defer f.Close()

	var md repoMetadata
	if err := xml.NewDecoder(f).Decode(&md); err != nil {
		return "", fmt.Errorf("failed to parse repository metadata %s: %w", path, err)
	}

	for _, data := range md.Data {
		if data.Type == "primary" && data.Location.Href != "" {
			return data.Location.Href, nil
		}
	}
	return "", fmt.Errorf("repository metadata %s declares no primary data", path)
}

func (r *Repo) parsePrimary(href string) ([]string, error) {
	path := filepath.Join(r.root, filepath.FromSlash(href))
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open primary metadata %s: %w", path, err)
	}
	defer f.Close()

	var reader io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("failed to decompress primary metadata %s: %w", path, err)
		}
		defer gz.Close()
		reader = gz
	}

	var primary primaryMetadata
	if err := xml.NewDecoder(reader).Decode(&primary); err != nil {
		return nil, fmt.Errorf("failed to parse primary metadata %s: %w", path, err)
	}

	files := make([]string, 0, len(primary.Packages))
	for _, pkg := range primary.Packages {
		if pkg.Location.Href != "" {
			files = append(files, pkg.Location.Href)
		}
	}
	return files, nil
}
