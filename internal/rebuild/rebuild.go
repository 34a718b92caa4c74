// Package rebuild drives the six-stage pipeline that mirrors an S3-backed
// yum repository locally, reconciles duplicate snapshots, regenerates the
// metadata index and propagates the result back to the bucket.
//
// Stage order is the central correctness property: the regenerated index is
// uploaded before any superseded artifact is deleted or renamed remotely, so
// a concurrent reader fetching the new index can always resolve every file
// it declares.
package rebuild

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"

	"github.com/rpmforge/reposync/internal/mirror"
	"github.com/rpmforge/reposync/internal/objectstore"
	"github.com/rpmforge/reposync/internal/repopath"
	"github.com/rpmforge/reposync/internal/snapshot"
	"github.com/rpmforge/reposync/internal/utils"
	"github.com/rpmforge/reposync/internal/yumrepo"
)

// Rebuilder owns the state of one pipeline run. It is not reusable: create a
// new one per invocation.
type Rebuilder struct {
	cfg   *Config
	store objectstore.Store

	repoPath repopath.RepositoryPath
	mirror   *mirror.Mirror
	repo     *yumrepo.Repo
	excluded map[string]struct{}

	// discovered during Download, consumed by Reconcile/Publish
	snapshots    []snapshot.Description
	deleteRemote []snapshot.Description
	renameRemote []snapshot.Rename
}

// New wires a Rebuilder against an already-validated config and a remote
// store. The repository location is parsed here; a bad location fails fast
// with repopath.ErrMalformedLocation.
func New(cfg *Config, store objectstore.Store) (*Rebuilder, error) {
	repoPath, err := repopath.Parse(cfg.RepositoryPath)
	if err != nil {
		return nil, err
	}

	m, err := mirror.New(cfg.StagingDir)
	if err != nil {
		return nil, err
	}

	repoRoot := m.Root()
	if repoPath.HasFolder() {
		repoRoot = m.Path(repoPath.Folder)
	}

	excluded := make(map[string]struct{}, len(cfg.Excludes))
	for _, e := range cfg.Excludes {
		excluded[e] = struct{}{}
	}

	return &Rebuilder{
		cfg:      cfg,
		store:    store,
		repoPath: repoPath,
		mirror:   m,
		repo:     yumrepo.New(repoRoot, cfg.CreateRepo),
		excluded: excluded,
	}, nil
}

// Run executes the stages strictly in order. Each stage's postconditions are
// the next stage's preconditions; there is no mid-stage rollback.
func (r *Rebuilder) Run(ctx context.Context) error {
	slog.Info("rebuilding repository", "location", r.repoPath, "staging", r.mirror.Root())

	if err := r.prepare(); err != nil {
		return err
	}
	defer r.mirror.Unlock()

	if err := r.download(ctx); err != nil {
		return err
	}
	if err := r.validate(); err != nil {
		return err
	}
	if err := r.reconcile(); err != nil {
		return err
	}
	if err := r.rebuildIndex(ctx); err != nil {
		return err
	}
	return r.publish(ctx)
}

func (r *Rebuilder) prepare() error {
	if err := r.mirror.Lock(); err != nil {
		return err
	}
	if r.cfg.SkipPreClean {
		slog.Warn("not cleaning staging directory, existing files will not be re-fetched")
		return nil
	}
	return r.mirror.PreClean()
}

// download lists the bucket under the folder prefix and mirrors it locally.
// Snapshot classification happens sequentially during the listing walk;
// only the independent, idempotent fetches run on the worker pool.
func (r *Rebuilder) download(ctx context.Context) error {
	objects, err := r.store.List(ctx, r.repoPath.Prefix())
	if err != nil {
		return fmt.Errorf("%w: list %s: %v", ErrDownloadFailure, r.repoPath, err)
	}
	slog.Debug("listed remote objects", "count", len(objects), "prefix", r.repoPath.Prefix())

	var toFetch []*objectstore.Object
	for _, obj := range objects {
		if obj.IsFolderMarker() {
			slog.Debug("skipping folder marker", "key", obj.Key)
			continue
		}
		if _, ok := r.excluded[r.repoPath.RepoRelative(obj.Key)]; ok {
			slog.Info("skipping excluded file, it will be removed from the bucket", "key", obj.Key)
			continue
		}
		if desc, ok := snapshot.Classify(obj.Key); ok {
			slog.Debug("noting snapshot", "key", desc.Key, "prefix", desc.Prefix, "ordinal", desc.Ordinal)
			r.snapshots = append(r.snapshots, desc)
		}
		if r.mirror.Exists(obj.Key) {
			slog.Info("skipping download, file already exists", "key", obj.Key)
			continue
		}
		toFetch = append(toFetch, obj)
	}

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(r.cfg.Workers)
	for _, obj := range toFetch {
		eg.Go(func() error {
			return r.fetch(egCtx, obj)
		})
	}
	if err := eg.Wait(); err != nil {
		return fmt.Errorf("%w: %v", ErrDownloadFailure, err)
	}
	return nil
}

func (r *Rebuilder) fetch(ctx context.Context, obj *objectstore.Object) error {
	body, err := r.store.Get(ctx, obj.Key)
	if err != nil {
		return fmt.Errorf("failed to fetch object %s: %w", obj.Key, err)
	}
	defer body.Close()

	target := r.mirror.Path(obj.Key)
	if err := utils.EnsureParent(target); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", target, err)
	}
	f, err := os.Create(target)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", target, err)
	}
	defer f.Close()

	if _, err := io.Copy(f, body); err != nil {
		return fmt.Errorf("failed to write %s: %w", target, err)
	}
	slog.Info("downloaded", "key", obj.Key, "size", humanize.Bytes(uint64(obj.Size)))
	return nil
}

// validate requires that a metadata index exists and that every file it
// declares is present in the mirror, before any destructive step runs.
func (r *Rebuilder) validate() error {
	if r.cfg.SkipValidate {
		slog.Debug("skipping repository validation")
		return nil
	}
	slog.Info("validating downloaded repository")

	if !r.repo.Exists() {
		return fmt.Errorf("%w: no repository metadata under %s", ErrValidationFailure, r.repo.Root())
	}
	declared, err := r.repo.DeclaredFiles()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrValidationFailure, err)
	}
	for _, repoRelative := range declared {
		if !r.repo.HasFile(repoRelative) {
			return fmt.Errorf("%w: metadata declares %s but the file does not exist", ErrValidationFailure, repoRelative)
		}
	}
	return nil
}

// reconcile applies the snapshot plan to the mirror. Local deletes are
// recorded for remote deletion later; local renames are mirrored remotely
// only after the rename itself succeeded. A failed rename is a warning, not
// an abort: the run proceeds with the canonical file under its old name.
func (r *Rebuilder) reconcile() error {
	if !r.cfg.RemoveOldSnapshots {
		return nil
	}
	slog.Info("removing old snapshots")

	plan := snapshot.Reconcile(r.snapshots)
	for _, desc := range plan.Delete {
		slog.Info("deleting old snapshot locally", "key", desc.Key)
		if err := r.mirror.Delete(desc.Key); err != nil {
			return fmt.Errorf("%w: %v", ErrLocalCleanupFailure, err)
		}
		// remote delete is deferred until the new index is live
		r.deleteRemote = append(r.deleteRemote, desc)
	}

	for _, ren := range plan.Rename {
		newName := path.Base(ren.NewKey)
		slog.Info("renaming kept snapshot", "key", ren.Source.Key, "to", newName)
		newKey, err := r.mirror.Rename(ren.Source.Key, newName)
		if err != nil {
			slog.Warn("failed to rename kept snapshot, keeping original name", "key", ren.Source.Key, "error", err)
			continue
		}
		r.renameRemote = append(r.renameRemote, snapshot.Rename{Source: ren.Source, NewKey: newKey})
	}
	return nil
}

// rebuildIndex regenerates the metadata strictly after local deletes and
// renames, so the new index never references a removed file.
func (r *Rebuilder) rebuildIndex(ctx context.Context) error {
	slog.Info("rebuilding repository metadata")
	return r.repo.CreateRepo(ctx)
}

// publish propagates in a fixed sub-order: upload first, then retire old
// keys. Any single failed operation aborts the remainder; completed
// operations stay (append-then-retire, not a transaction).
func (r *Rebuilder) publish(ctx context.Context) error {
	logPrefix := ""
	if r.cfg.DryRun {
		slog.Info("dry run: no remote operations will be performed")
		logPrefix = "SKIPPING: "
	}

	// (a) upload the chosen scope
	scope := r.mirror.Root()
	if r.cfg.MetadataOnly {
		scope = r.repo.RepoDataDir()
	}
	files, err := r.mirror.Files(scope)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPublishFailure, err)
	}
	for _, file := range files {
		key, err := r.mirror.Key(file)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrPublishFailure, err)
		}
		slog.Info(logPrefix+"uploading", "key", key)
		if r.cfg.DryRun {
			continue
		}
		if err := r.upload(ctx, file, key); err != nil {
			return fmt.Errorf("%w: upload %s: %v", ErrPublishFailure, key, err)
		}
	}

	// (b) delete excluded files remotely, whether or not they exist
	for _, repoRelative := range r.cfg.Excludes {
		key := r.repoPath.Key(repoRelative)
		slog.Info(logPrefix+"deleting excluded file from bucket", "key", key)
		if r.cfg.DryRun {
			continue
		}
		if err := r.store.Delete(ctx, key); err != nil {
			return fmt.Errorf("%w: delete %s: %v", ErrPublishFailure, key, err)
		}
	}

	// (c) retire superseded snapshots, now unreferenced by the live index
	for _, desc := range r.deleteRemote {
		slog.Info(logPrefix+"deleting old snapshot from bucket", "key", desc.Key)
		if r.cfg.DryRun {
			continue
		}
		if err := r.store.Delete(ctx, desc.Key); err != nil {
			return fmt.Errorf("%w: delete %s: %v", ErrPublishFailure, desc.Key, err)
		}
	}

	// (d) mirror committed local renames: copy to the new key, drop the old
	for _, ren := range r.renameRemote {
		slog.Info(logPrefix+"renaming key in bucket", "from", ren.Source.Key, "to", ren.NewKey)
		if r.cfg.DryRun {
			continue
		}
		if err := r.store.Copy(ctx, ren.Source.Key, ren.NewKey); err != nil {
			return fmt.Errorf("%w: copy %s to %s: %v", ErrPublishFailure, ren.Source.Key, ren.NewKey, err)
		}
		if err := r.store.Delete(ctx, ren.Source.Key); err != nil {
			return fmt.Errorf("%w: delete %s: %v", ErrPublishFailure, ren.Source.Key, err)
		}
	}
	return nil
}

func (r *Rebuilder) upload(ctx context.Context, file, key string) error {
	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	return r.store.Put(ctx, key, f, info.Size())
}
