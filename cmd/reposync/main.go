package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/rpmforge/reposync/internal/objectstore"
	"github.com/rpmforge/reposync/internal/rebuild"
	"github.com/rpmforge/reposync/internal/repopath"
	"github.com/rpmforge/reposync/internal/version"
)

var cyan = color.New(color.FgHiCyan, color.Bold).SprintFunc()

const rootLong = `Mirrors an S3-hosted yum repository into a local staging directory,
optionally collapses duplicate SNAPSHOT builds down to a single canonical
copy, reruns createrepo over the result and publishes the changes back to
the bucket without ever exposing an inconsistent repository.

The repository path takes the form "s3://bucket/folder" or "/bucket/folder".`

var rootCmd = &cobra.Command{
	Use:     "reposync <repository-path>",
	Short:   "Rebuild an S3-hosted yum repository",
	Long:    rootLong,
	Version: version.Detailed(),
	Args:    cobra.ExactArgs(1),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return bindConfig(cmd)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := &rebuild.Config{
			RepositoryPath:     args[0],
			StagingDir:         viper.GetString("staging_dir"),
			AccessKey:          viper.GetString("access_key"),
			SecretKey:          viper.GetString("secret_key"),
			Region:             viper.GetString("region"),
			Endpoint:           viper.GetString("endpoint"),
			CreateRepo:         viper.GetString("createrepo"),
			Excludes:           rebuild.ParseExcludes(viper.GetString("excludes")),
			SkipValidate:       viper.GetBool("no_validate"),
			RemoveOldSnapshots: viper.GetBool("remove_old_snapshots"),
			DryRun:             viper.GetBool("dry_run"),
			MetadataOnly:       viper.GetBool("metadata_only"),
			SkipPreClean:       viper.GetBool("no_pre_clean"),
			Workers:            viper.GetInt("workers"),
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		repoPath, err := repopath.Parse(cfg.RepositoryPath)
		if err != nil {
			return err
		}

		cmd.SilenceUsage = true
		fmt.Println(cyan(version.AppName), version.Short())

		store, err := objectstore.NewS3Store(cmd.Context(), &objectstore.S3Config{
			Bucket:    repoPath.Bucket,
			Region:    cfg.Region,
			AccessKey: cfg.AccessKey,
			SecretKey: cfg.SecretKey,
			Endpoint:  cfg.Endpoint,
		})
		if err != nil {
			return err
		}

		r, err := rebuild.New(cfg, store)
		if err != nil {
			return err
		}
		return r.Run(cmd.Context())
	},
}

func init() {
	rootCmd.Flags().SortFlags = false
	rootCmd.Flags().StringP("staging-dir", "d", "", "Local staging directory (default: fresh temp dir)")
	rootCmd.Flags().String("access-key", "", "S3 access key (default: ambient credentials)")
	rootCmd.Flags().String("secret-key", "", "S3 secret key")
	rootCmd.Flags().String("region", "", "S3 region")
	rootCmd.Flags().String("endpoint", "", "Custom S3 endpoint for S3-compatible stores")
	rootCmd.Flags().String("createrepo", "createrepo", "Path to the createrepo executable")
	rootCmd.Flags().StringP("excludes", "x", "", "Comma-delimited repo-relative paths to exclude and remove remotely")
	rootCmd.Flags().Bool("no-validate", false, "Skip validating the downloaded repository metadata")
	rootCmd.Flags().Bool("remove-old-snapshots", false, "Collapse duplicate SNAPSHOT builds to one canonical copy")
	rootCmd.Flags().Bool("dry-run", false, "Log remote operations instead of executing them")
	rootCmd.Flags().Bool("metadata-only", true, "Upload only the regenerated metadata index")
	rootCmd.Flags().Bool("no-pre-clean", false, "Keep existing staging files, skipping their download")
	rootCmd.Flags().Int("workers", rebuild.DefaultWorkers, "Parallel download workers")
	rootCmd.Flags().BoolP("verbose", "v", false, "Enable debug logging")
}

func bindConfig(cmd *cobra.Command) error {
	bindings := map[string]string{
		"staging_dir":          "staging-dir",
		"access_key":           "access-key",
		"secret_key":           "secret-key",
		"region":               "region",
		"endpoint":             "endpoint",
		"createrepo":           "createrepo",
		"excludes":             "excludes",
		"no_validate":          "no-validate",
		"remove_old_snapshots": "remove-old-snapshots",
		"dry_run":              "dry-run",
		"metadata_only":        "metadata-only",
		"no_pre_clean":         "no-pre-clean",
		"workers":              "workers",
	}
	for key, flag := range bindings {
		if err := viper.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
			return err
		}
	}

	viper.SetEnvPrefix("REPOSYNC")
	viper.AutomaticEnv()
	return nil
}

func setupLogger(verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	handler := tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
		NoColor:    !isatty.IsTerminal(os.Stderr.Fd()),
	})
	slog.SetDefault(slog.New(handler))
}

func main() {
	// flags are not parsed yet, peek for -v/--verbose by hand
	verbose := false
	for _, arg := range os.Args[1:] {
		if arg == "-v" || arg == "--verbose" {
			verbose = true
		}
	}
	setupLogger(verbose)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
