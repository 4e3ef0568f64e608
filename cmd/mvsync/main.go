package main

import (
	"context"
	"fmt"
	"os"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/yuya-takeyama/mvsync/internal/config"
	"github.com/yuya-takeyama/mvsync/internal/logging"
	"github.com/yuya-takeyama/mvsync/internal/runlock"
	"github.com/yuya-takeyama/mvsync/pkg/executor"
	"github.com/yuya-takeyama/mvsync/pkg/logger"
	"github.com/yuya-takeyama/mvsync/pkg/oracle"
	"github.com/yuya-takeyama/mvsync/pkg/planner"
	"github.com/yuya-takeyama/mvsync/pkg/protocol"
	"github.com/yuya-takeyama/mvsync/pkg/s3client"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
	builtBy = "unknown"
)

var (
	dryRun         bool
	verbose        bool
	quiet          bool
	noChecksums    bool
	sizeOnly       bool
	useExternal    bool
	sshPort        int
	sshCommand     string
	remoteCommand  string
	excludes       []string
	profile        string
	region         string
	planJSONFile   string
	resultJSONFile string
	configFile     string
	serverMode     bool
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "mvsync <SourceDir> <DestinationDir>",
		Short: "Replay renames between two copies of a directory tree",
		Long: `mvsync finds files that exist in both trees under different paths and
renames them in SourceDir so it matches the layout of DestinationDir,
without copying any data. Files are matched by size and modification time,
then verified by SHA-256 unless --no-checksums is given.

Either tree may live on another host (host:path, reached over ssh) or in
S3 (s3://bucket/prefix).`,
		Version: fmt.Sprintf("%s (commit: %s, built at: %s by %s)", version, commit, date, builtBy),
		Args: func(cmd *cobra.Command, args []string) error {
			if serverMode {
				return cobra.NoArgs(cmd, args)
			}
			return cobra.ExactArgs(2)(cmd, args)
		},
		RunE: run,
	}

	flags := rootCmd.Flags()
	flags.BoolVar(&dryRun, "dryrun", false, "Shows operations without executing")
	flags.BoolVar(&verbose, "verbose", false, "Enable debug logging")
	flags.BoolVar(&quiet, "quiet", false, "Suppress the summary and non-error logs")
	flags.BoolVar(&noChecksums, "no-checksums", false, "Match on size and modification time only")
	flags.BoolVar(&sizeOnly, "size-only", false, "Ignore modification times when matching")
	flags.BoolVar(&useExternal, "use-external-process", false, "Serve the source tree from a child process")
	flags.IntVar(&sshPort, "ssh-port", 22, "Port for host:path roots")
	flags.StringVar(&sshCommand, "ssh-command", "ssh", "Remote shell used for host:path roots")
	flags.StringVar(&remoteCommand, "remote-command", "mvsync", "mvsync executable on the remote host")
	flags.StringArrayVar(&excludes, "exclude", nil, "Exclude patterns (multiple allowed)")
	flags.StringVar(&profile, "profile", "", "AWS profile to use")
	flags.StringVar(&region, "region", "", "AWS region (uses default if not specified)")
	flags.StringVar(&planJSONFile, "plan-json-file", "", "Path to output plan as JSON file")
	flags.StringVar(&resultJSONFile, "result-json-file", "", "Path to output result as JSON file")
	flags.StringVar(&configFile, "config", config.DefaultPath, "Path to config file")
	flags.BoolVar(&serverMode, "server", false, "Serve the wire protocol on stdin/stdout")
	_ = flags.MarkHidden("server")

	flags.SetNormalizeFunc(func(f *pflag.FlagSet, name string) pflag.NormalizedName {
		if name == "dry-run" {
			name = "dryrun"
		}
		return pflag.NormalizedName(name)
	})

	return rootCmd
}

func run(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	cfg, err := config.Load(configFile, cmd.Flags().Changed("config"))
	if err != nil {
		return err
	}
	if err := cfg.Apply(cmd.Flags()); err != nil {
		return err
	}

	log := logging.NewLogger(verbose, quiet)
	ctx := cmd.Context()

	if serverMode {
		server := protocol.NewServer(oracle.NewLocal(excludes), log.With("mode", "server"))
		return server.Serve(ctx, cmd.InOrStdin(), cmd.OutOrStdout())
	}

	if sizeOnly && noChecksums {
		log.Warn("--size-only with --no-checksums matches files by size alone")
	}

	src, dst, err := oracle.OpenPair(ctx, args[0], args[1], oracle.Options{
		Excludes: excludes,
		External: useExternal,
		SSH: oracle.SSHOptions{
			Command:       sshCommand,
			Port:          sshPort,
			RemoteCommand: remoteCommand,
		},
		NewS3Client: newS3Client,
		Logger:      log,
	})
	if err != nil {
		return err
	}
	defer closeOracle(log, "source", src.Oracle)
	defer closeOracle(log, "destination", dst.Oracle)
	log.Debug("source %s (%s), destination %s (%s)", src.Location, src.Location.Kind, dst.Location, dst.Location.Kind)

	if !dryRun && src.Location.Kind == oracle.KindLocal {
		lock, err := runlock.Acquire(src.Root)
		if err != nil {
			return err
		}
		defer lock.Release()
	}

	out := cmd.OutOrStdout()
	log.SetOutput(out)
	syncLogger := logger.NewSyncLogger(out, log, dryRun)

	start := time.Now()
	items, err := planner.NewMatchResolver(syncLogger).Plan(ctx,
		planner.Source{Oracle: src.Oracle, Root: src.Root},
		planner.Destination{Oracle: dst.Oracle, Root: dst.Root},
		planner.Options{
			NoChecksums: noChecksums,
			SizeOnly:    sizeOnly,
			Logger:      syncLogger,
		})
	if err != nil {
		return fmt.Errorf("failed to generate plan: %w", err)
	}

	if planJSONFile != "" {
		if err := writePlanResult(planJSONFile, src, items); err != nil {
			return fmt.Errorf("failed to write plan JSON: %w", err)
		}
	}

	results, execErr := executor.NewExecutor(src.Oracle, src.Root, syncLogger, dryRun).Execute(ctx, items)
	syncResult := buildSyncResult(src, results)

	if resultJSONFile != "" && !dryRun {
		if err := writeSyncResult(resultJSONFile, syncResult); err != nil {
			return fmt.Errorf("failed to write result JSON: %w", err)
		}
	}

	var bytesRenamed int64
	for _, r := range results {
		if r.Error == nil && !r.Skipped {
			bytesRenamed += r.Item.Size
		}
	}
	copies := len(items) - len(planner.RenameItems(items))
	log.PrintSummary(syncResult.Summary.Renamed, copies, syncResult.Summary.Failed, bytesRenamed, time.Since(start))

	return execErr
}

func newS3Client(ctx context.Context) (s3client.Client, error) {
	var configOpts []func(*awsconfig.LoadOptions) error
	if profile != "" {
		configOpts = append(configOpts, awsconfig.WithSharedConfigProfile(profile))
	}
	if region != "" {
		configOpts = append(configOpts, awsconfig.WithRegion(region))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, configOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return s3client.NewAWSClient(cfg), nil
}

func closeOracle(log *logging.Logger, name string, o oracle.Oracle) {
	if err := o.Close(); err != nil {
		log.Warn("closing %s oracle: %v", name, err)
	}
}
