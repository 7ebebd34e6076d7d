// Package main provides the trickplay CLI: run any pipeline stage locally
// against real AWS resources, or start a local dev server mimicking the
// Lambda invoke API. Useful for exercising the pipeline without deploying.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/mediaops/trickplay-pipeline/internal/lambdaboot"
	"github.com/mediaops/trickplay-pipeline/internal/logging"
	"github.com/mediaops/trickplay-pipeline/internal/notify"
	"github.com/mediaops/trickplay-pipeline/internal/pipeline"
	"github.com/mediaops/trickplay-pipeline/internal/trickplay"
)

// CLI flags
var (
	envFile string

	mediaKey  string
	mediaPath string
	hlsURL    string

	smallThumbs []string
	bigThumbs   []string
	invPaths    []string

	portFlag int
)

var rootCmd = &cobra.Command{
	Use:   "trickplay",
	Short: "Run trick-play pipeline stages locally",
	Long: `Trickplay runs the scrub-preview thumbnail pipeline stages from the
command line: frame extraction, tile manifest composition, and CDN cache
invalidation. Stages talk to real S3/SQS/CloudFront; use --env-file to load
credentials and pipeline configuration from a .env file.

Examples:
  trickplay generate --media-key v1 --media-path content/v1/ --hls-url s3://bucket/content/v1/play.m3u8
  trickplay compose --media-key v1 --media-path content/v1/ --hls-url s3://bucket/content/v1/play.m3u8 \
      --small content/v1/thumbs/v1_small.00001.jpg
  trickplay invalidate --media-key v1 --media-path content/v1/
  trickplay serve --port 9000`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if envFile != "" {
			if err := godotenv.Load(envFile); err != nil {
				return fmt.Errorf("load env file %s: %w", envFile, err)
			}
		}
		logging.Init()
		return nil
	},
	SilenceUsage: true,
}

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Extract trick-play thumbnails for one asset",
	RunE: func(cmd *cobra.Command, args []string) error {
		p := buildPipeline()
		detail := trickplay.TranscodeCompleteDetail{
			MediaKey:  mediaKey,
			MediaPath: mediaPath,
			OutputGroupDetails: []trickplay.OutputGroupDetail{
				{OutputDetails: []trickplay.OutputDetail{{OutputFilePaths: []string{hlsURL}}}},
			},
		}
		result, err := p.HandleTranscodeComplete(cmd.Context(), detail, "cli-"+uuid.NewString())
		if err != nil {
			return err
		}
		return printJSON(result)
	},
}

var composeCmd = &cobra.Command{
	Use:   "compose",
	Short: "Build tile manifests and merge the master playlist",
	RunE: func(cmd *cobra.Command, args []string) error {
		p := buildPipeline()
		msg := trickplay.ManifestRequest{
			SchemaVersion:   trickplay.SchemaVersion,
			MediaKey:        mediaKey,
			MediaPath:       mediaPath,
			HLSURL:          hlsURL,
			SmallThumbnails: smallThumbs,
			BigThumbnails:   bigThumbs,
			RequestID:       "cli-" + uuid.NewString(),
		}
		result, err := p.HandleManifestRequest(cmd.Context(), msg)
		if err != nil {
			return err
		}
		return printJSON(result)
	},
}

var invalidateCmd = &cobra.Command{
	Use:   "invalidate",
	Short: "Invalidate an asset's CDN paths",
	RunE: func(cmd *cobra.Command, args []string) error {
		p := buildPipeline()
		paths := invPaths
		if len(paths) == 0 {
			paths = trickplay.InvalidationPaths(mediaPath, hlsURL, p.Cfg)
		}
		msg := trickplay.InvalidationMessage{
			SchemaVersion:     trickplay.SchemaVersion,
			MediaKey:          mediaKey,
			MediaPath:         mediaPath,
			PathsToInvalidate: paths,
			RequestID:         "cli-" + uuid.NewString(),
		}
		result, err := p.HandleInvalidation(cmd.Context(), msg)
		if err != nil {
			return err
		}
		return printJSON(result)
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start a local dev server mimicking the Lambda invoke API",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context(), buildPipeline(), portFlag)
	},
}

// buildPipeline wires all three stages against real AWS clients. The CLI
// always wires everything; stages the current command doesn't touch stay
// idle.
func buildPipeline() *pipeline.Pipeline {
	clients := lambdaboot.InitAWS()
	cfg := trickplay.LoadConfig()
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	cfg.DistributionID = lambdaboot.LoadDistributionID(clients.SSM)

	s3Client := lambdaboot.InitS3(clients.Config)
	return &pipeline.Pipeline{
		Gen:      trickplay.NewGenerator(s3Client, trickplay.NewFFmpegSampler(), cfg),
		Comp:     trickplay.NewComposer(s3Client, cfg),
		Inv:      trickplay.NewInvalidator(lambdaboot.InitCloudFront(clients.Config)),
		SQS:      lambdaboot.InitSQS(clients.Config),
		Events:   lambdaboot.InitEventBridge(clients.Config),
		Notifier: notify.NewSlackNotifier(cfg.SlackWebhookURL),
		Cfg:      cfg,
	}
}

func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "path to a .env file with AWS and pipeline configuration")

	for _, c := range []*cobra.Command{generateCmd, composeCmd, invalidateCmd} {
		c.Flags().StringVar(&mediaKey, "media-key", "", "unique media identifier")
		c.Flags().StringVar(&mediaPath, "media-path", "", "storage path prefix, trailing-slash-terminated")
		c.Flags().StringVar(&hlsURL, "hls-url", "", "storage URL of the master playlist")
		c.MarkFlagRequired("media-key")
		c.MarkFlagRequired("media-path")
	}
	generateCmd.MarkFlagRequired("hls-url")
	composeCmd.MarkFlagRequired("hls-url")

	composeCmd.Flags().StringSliceVar(&smallThumbs, "small", nil, "small thumbnail object keys, in order")
	composeCmd.Flags().StringSliceVar(&bigThumbs, "big", nil, "big thumbnail object keys, in order")
	invalidateCmd.Flags().StringSliceVar(&invPaths, "paths", nil, "explicit CDN paths (default: derived from media path)")

	serveCmd.Flags().IntVar(&portFlag, "port", 9000, "port for the local dev server")

	rootCmd.AddCommand(generateCmd, composeCmd, invalidateCmd, serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		// Cobra already printed the error; exit non-zero for scripts.
		if !strings.Contains(err.Error(), "unknown command") {
			log.Error().Err(err).Msg("Command failed")
		}
		os.Exit(1)
	}
}
