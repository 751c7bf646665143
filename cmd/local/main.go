// Package main provides a one-shot command line runner for the frame
// extractor. It executes the same pipeline as the Lambda function against
// a bucket/key pair or a saved S3 notification, which makes it useful for
// replaying events and for running against MinIO or a local directory.
//
// Examples:
//
//	frame-extractor run --bucket uploads --key videos/alpha/clip.mp4
//	frame-extractor run --event testdata/put.json --storage local --store-root ./data
//	frame-extractor run --env-file .env.minio --event put.json
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/aws/aws-lambda-go/events"
	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
	"github.com/spf13/cobra"

	"github.com/maauso/frame-extractor/internal/bootstrap"
	"github.com/maauso/frame-extractor/internal/config"
	"github.com/maauso/frame-extractor/internal/event"
)

// defaultEnvFile is loaded when present unless --env-file names another file.
const defaultEnvFile = ".env"

// CLI flags
var (
	envFileFlag     string
	bucketFlag      string
	keyFlag         string
	eventFlag       string
	destinationFlag string
	frameRateFlag   int
	storageFlag     string
	storeRootFlag   string
	scratchFlag     string
)

var rootCmd = &cobra.Command{
	Use:   "frame-extractor",
	Short: "Extract still frames from uploaded videos",
	Long: `frame-extractor runs the upload pipeline once: it validates the source key,
downloads the video, extracts frames with ffmpeg and uploads them to the
destination bucket. Configuration comes from the environment, an optional
.env file, and the flags below, in increasing order of precedence.`,
	SilenceUsage: true,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Process one uploaded video",
	Args:  cobra.NoArgs,
	RunE:  runPipeline,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFileFlag, "env-file", defaultEnvFile, "dotenv file to load before reading the environment")

	runCmd.Flags().StringVarP(&bucketFlag, "bucket", "b", "", "Source bucket")
	runCmd.Flags().StringVarP(&keyFlag, "key", "k", "", "Source object key, URL encoded as in an S3 notification")
	runCmd.Flags().StringVarP(&eventFlag, "event", "e", "", "Path to an S3 notification JSON file")
	runCmd.Flags().StringVar(&destinationFlag, "destination", "", "Destination bucket (overrides DESTINATION_BUCKET)")
	runCmd.Flags().IntVar(&frameRateFlag, "frame-rate", 0, "Frames per second (overrides FRAMERATE)")
	runCmd.Flags().StringVar(&storageFlag, "storage", "", "Storage provider: s3, minio or local (overrides STORAGE_PROVIDER)")
	runCmd.Flags().StringVar(&storeRootFlag, "store-root", "", "Root directory of the local store (overrides LOCAL_STORE_ROOT)")
	runCmd.Flags().StringVar(&scratchFlag, "scratch-dir", "", "Scratch directory (overrides SCRATCH_DIR)")
	runCmd.MarkFlagsMutuallyExclusive("event", "bucket")
	runCmd.MarkFlagsMutuallyExclusive("event", "key")
	runCmd.MarkFlagsRequiredTogether("bucket", "key")
	runCmd.MarkFlagsOneRequired("event", "bucket")

	rootCmd.AddCommand(runCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func runPipeline(cmd *cobra.Command, _ []string) error {
	if err := loadEnvFile(envFileFlag, cmd.Flags().Changed("env-file")); err != nil {
		return err
	}

	cfg, err := config.LoadWithLookuper(envconfig.MultiLookuper(
		envconfig.MapLookuper(flagOverrides()),
		envconfig.OsLookuper(),
	))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := cfg.NewLogger()
	slog.SetDefault(logger)

	s3Event, err := buildEvent(eventFlag, bucketFlag, keyFlag)
	if err != nil {
		return err
	}

	deps, err := bootstrap.NewDependencies(cmd.Context(), cfg, logger)
	if err != nil {
		return fmt.Errorf("initialize dependencies: %w", err)
	}

	resp, err := event.NewHandler(deps.Service, logger).Invoke(cmd.Context(), s3Event)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}

// loadEnvFile loads path into the process environment without overriding
// variables that are already set. A missing default file is not an error.
func loadEnvFile(path string, explicit bool) error {
	if path == "" {
		return nil
	}
	err := godotenv.Load(path)
	if err == nil {
		return nil
	}
	if !explicit && errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("load env file %s: %w", path, err)
}

// flagOverrides returns the configuration variables set by flags.
func flagOverrides() map[string]string {
	m := map[string]string{}
	if destinationFlag != "" {
		m["DESTINATION_BUCKET"] = destinationFlag
	}
	if frameRateFlag > 0 {
		m["FRAMERATE"] = strconv.Itoa(frameRateFlag)
	}
	if storageFlag != "" {
		m["STORAGE_PROVIDER"] = storageFlag
	}
	if storeRootFlag != "" {
		m["LOCAL_STORE_ROOT"] = storeRootFlag
	}
	if scratchFlag != "" {
		m["SCRATCH_DIR"] = scratchFlag
	}
	return m
}

// buildEvent reads a notification from path, or synthesizes a single
// record for bucket/key.
func buildEvent(path, bucket, key string) (events.S3Event, error) {
	if path == "" {
		return events.S3Event{
			Records: []events.S3EventRecord{{
				EventSource: "aws:s3",
				EventName:   "ObjectCreated:Put",
				S3: events.S3Entity{
					Bucket: events.S3Bucket{Name: bucket},
					Object: events.S3Object{Key: key},
				},
			}},
		}, nil
	}

	data, err := os.ReadFile(path) // #nosec G304 - path is supplied by the operator
	if err != nil {
		return events.S3Event{}, fmt.Errorf("read event file: %w", err)
	}
	var e events.S3Event
	if err := json.Unmarshal(data, &e); err != nil {
		return events.S3Event{}, fmt.Errorf("parse event file: %w", err)
	}
	return e, nil
}
