// Package main provides the CLI entry point for Scenecode.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	drapto "github.com/five82/scenecode"
	"github.com/five82/scenecode/internal/config"
	"github.com/five82/scenecode/internal/logging"
	"github.com/five82/scenecode/internal/reporter"
	"github.com/five82/scenecode/internal/util"
)

const appVersion = "0.2.0"

// encodeFlags holds the parsed flags for the encode command.
type encodeFlags struct {
	output          string
	logDir          string
	verbose         bool
	crf             string
	preset          uint8
	draptoPreset    string
	disableAutocrop bool
	responsive      bool
	noLog           bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "scenecode",
		Short:         "Parallel AV1 video encoding with SVT-AV1",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	root.AddCommand(newEncodeCmd())
	root.AddCommand(newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Printf("scenecode version %s\n", appVersion)
			return nil
		},
	}
}

func newEncodeCmd() *cobra.Command {
	var ef encodeFlags

	cmd := &cobra.Command{
		Use:   "encode <input>",
		Short: "Encode video files to AV1 format",
		Long: fmt.Sprintf(`Encode video files to AV1 format.

<input> may be a single video file or a directory containing video files.

Quality settings default to %d,%d,%d (SD,HD,UHD) and the SVT-AV1 preset
defaults to %d.`, config.DefaultQualitySD, config.DefaultQualityHD, config.DefaultQualityUHD, config.DefaultSVTAV1Preset),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEncode(args[0], ef)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&ef.output, "output", "o", "", "Output directory (or filename if input is a single file)")
	flags.StringVarP(&ef.logDir, "log-dir", "l", "", "Log directory (defaults to ~/.local/state/scenecode/logs)")
	flags.BoolVarP(&ef.verbose, "verbose", "v", false, "Enable verbose output for troubleshooting")
	flags.StringVar(&ef.crf, "crf", "", "CRF quality (0-63). Single value or SD,HD,UHD triple")
	flags.Uint8Var(&ef.preset, "preset", 0, "SVT-AV1 encoder preset (0-13). Lower is slower/better")
	flags.StringVar(&ef.draptoPreset, "scenecode-preset", "", "Apply grouped defaults (grain, clean, quick, resumable)")
	flags.BoolVar(&ef.disableAutocrop, "disable-autocrop", false, "Disable automatic black bar crop detection")
	flags.BoolVar(&ef.responsive, "responsive", false, "Reserve CPU threads for improved system responsiveness")
	flags.BoolVar(&ef.noLog, "no-log", false, "Disable log file creation")

	_ = cmd.MarkFlagRequired("output")
	return cmd
}

func runEncode(inputArg string, ef encodeFlags) error {
	inputPath, err := filepath.Abs(inputArg)
	if err != nil {
		return fmt.Errorf("invalid input path: %w", err)
	}

	inputInfo, err := os.Stat(inputPath)
	if err != nil {
		return fmt.Errorf("input path does not exist: %s", inputPath)
	}

	outputDir, targetFilename, err := resolveOutputPath(ef.output, inputInfo.IsDir())
	if err != nil {
		return err
	}
	if err := util.EnsureDirectory(outputDir); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	logDir := ef.logDir
	if logDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}
		logDir = filepath.Join(homeDir, ".local", "state", "scenecode", "logs")
	}

	logger, err := logging.Setup(logDir, ef.verbose, ef.noLog)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	if logger != nil {
		defer func() { _ = logger.Close() }()
	}

	var filesToProcess []string
	if inputInfo.IsDir() {
		filesToProcess, err = drapto.FindVideos(inputPath)
		if err != nil {
			return fmt.Errorf("failed to discover video files: %w", err)
		}
		if len(filesToProcess) == 0 {
			return fmt.Errorf("no video files found in %s", inputPath)
		}
		if logger != nil {
			logger.Info("Discovered %d video files in %s", len(filesToProcess), inputPath)
			for i, f := range filesToProcess {
				logger.Debug("  %d. %s", i+1, f)
			}
		}
	} else {
		filesToProcess = []string{inputPath}
		if logger != nil {
			logger.Info("Processing single file: %s", inputPath)
		}
	}

	opts, err := buildOptions(ef)
	if err != nil {
		return err
	}

	encoder, err := drapto.New(opts...)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if logger != nil {
		logger.Info("Output directory: %s", outputDir)
		logger.Info("Responsive encoding: %v", ef.responsive)
	}

	rep := reporter.NewTerminalReporter()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	return encodeAll(ctx, encoder, rep, filesToProcess, outputDir, targetFilename)
}

// encodeAll drives the discovered files through the encoder one at a time,
// reporting batch-level progress the way a multi-file run would even when
// a single target filename override applies only to the first (and only) file.
func encodeAll(ctx context.Context, encoder *drapto.Encoder, rep reporter.Reporter, inputs []string, outputDir, targetFilename string) error {
	rep.BatchStarted(reporter.BatchStartInfo{TotalFiles: len(inputs), FileList: inputs, OutputDir: outputDir})

	successful := 0
	var totalInput, totalOutput uint64
	for i, input := range inputs {
		rep.FileProgress(reporter.FileProgressContext{CurrentFile: i + 1, TotalFiles: len(inputs)})

		result, err := encoder.EncodeWithReporter(ctx, input, outputDir, rep)
		if err != nil {
			rep.Error(reporter.ReporterError{Title: "encode failed", Message: err.Error(), Context: input})
			continue
		}

		if targetFilename != "" && len(inputs) == 1 {
			renamed := filepath.Join(outputDir, targetFilename)
			if renamed != result.OutputFile {
				if err := os.Rename(result.OutputFile, renamed); err != nil {
					rep.Warning(fmt.Sprintf("failed to rename output to %s: %v", renamed, err))
				}
			}
		}

		successful++
		totalInput += result.OriginalSize
		totalOutput += result.EncodedSize
	}

	rep.BatchComplete(reporter.BatchSummary{
		SuccessfulCount:   successful,
		TotalFiles:        len(inputs),
		TotalOriginalSize: totalInput,
		TotalEncodedSize:  totalOutput,
	})

	if successful == 0 {
		return fmt.Errorf("all %d file(s) failed to encode", len(inputs))
	}
	return nil
}

func buildOptions(ef encodeFlags) ([]drapto.Option, error) {
	var opts []drapto.Option

	if ef.draptoPreset != "" {
		preset, err := drapto.ParsePreset(ef.draptoPreset)
		if err != nil {
			return nil, err
		}
		opts = append(opts, drapto.WithPreset(preset))
	}

	if ef.crf != "" {
		sd, hd, uhd, err := drapto.ParseCRF(ef.crf)
		if err != nil {
			return nil, fmt.Errorf("invalid --crf value: %w", err)
		}
		opts = append(opts, drapto.WithQualitySD(sd), drapto.WithQualityHD(hd), drapto.WithQualityUHD(uhd))
	}

	if ef.preset != 0 {
		opts = append(opts, drapto.WithSVTAV1Preset(ef.preset))
	}

	if ef.disableAutocrop {
		opts = append(opts, drapto.WithDisableAutocrop())
	}

	if ef.responsive {
		opts = append(opts, drapto.WithResponsive())
	}

	return opts, nil
}

// resolveOutputPath determines the output directory and optional target filename.
// If input is a file and output has a video extension, treat output as target filename.
func resolveOutputPath(outputPath string, isInputDir bool) (outputDir, targetFilename string, err error) {
	outputPath, err = filepath.Abs(outputPath)
	if err != nil {
		return "", "", fmt.Errorf("invalid output path: %w", err)
	}

	if isInputDir {
		return outputPath, "", nil
	}

	ext := filepath.Ext(outputPath)
	videoExtensions := map[string]bool{
		".mkv": true, ".mp4": true, ".webm": true,
		".avi": true, ".mov": true, ".m4v": true,
	}
	if videoExtensions[ext] {
		return filepath.Dir(outputPath), filepath.Base(outputPath), nil
	}

	return outputPath, "", nil
}
