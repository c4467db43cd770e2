package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/robottwo/exline/internal/cmdline"
	"github.com/robottwo/exline/internal/completion"
	"github.com/robottwo/exline/internal/config"
	"github.com/robottwo/exline/internal/core"
	"github.com/robottwo/exline/internal/history"
	"github.com/robottwo/exline/internal/styles"
	"github.com/samber/lo"
	"go.uber.org/zap"
	"golang.org/x/term"
)

var BUILD_VERSION = "dev"

var command = flag.String("c", "", "classify a single command line")
var cursorPos = flag.Int("pos", -1, "cursor byte offset for -c (default: end of the line)")
var listCandidates = flag.Bool("complete", false, "also list the completion candidates")
var jsonOutput = flag.Bool("json", false, "print one JSON object per result")
var configFile = flag.String("config", "", "use a custom config file instead of ~/.config/exline/config.yaml")
var setting = flag.String("set", "", "store a key=value setting in the config file and exit")
var showHistory = flag.Bool("history", false, "list the recorded command lines")
var recordLines = flag.Bool("record", false, "record lines classified from stdin in the history")
var historySince = flag.Duration("since", 0, "with -history, list only the lines recorded within this `duration`, e.g. 2h")
var deleteEntry = flag.Uint("history-delete", 0, "delete the history entry with this `id` and exit")
var resetHistory = flag.Bool("history-reset", false, "delete all recorded history and exit")
var cleanLogs = flag.Bool("clean-logs", false, "delete the log files and exit")

var helpFlag bool
var versionFlag bool

func init() {
	// Register help flags: -h and --help
	flag.BoolVar(&helpFlag, "h", false, "display help information")
	flag.BoolVar(&helpFlag, "help", false, "display help information")

	// Register version flags: -v and --version
	flag.BoolVar(&versionFlag, "v", false, "display build version")
	flag.BoolVar(&versionFlag, "version", false, "display build version")

	// Register custom zstd sink for compressed logging
	if err := zap.RegisterSink("zstd", newCompressedSink); err != nil {
		panic(fmt.Sprintf("failed to register zstd sink: %v", err))
	}
}

// modeFlags are the flags that select what exline does.
type modeFlags struct {
	command bool // -c was given, possibly with an empty line
	pos     int
	set     string
	history bool
	since   time.Duration
	record  bool
	// delete is set when -history-delete was given.
	delete    bool
	reset     bool
	cleanLogs bool
	args      []string
}

// maintenance returns the maintenance flags that were given.
func (f modeFlags) maintenance() []string {
	var given []string
	if f.delete {
		given = append(given, "-history-delete")
	}
	if f.reset {
		given = append(given, "-history-reset")
	}
	if f.cleanLogs {
		given = append(given, "-clean-logs")
	}
	return given
}

func (f modeFlags) validate() error {
	switch {
	case len(f.args) > 0:
		return fmt.Errorf("unexpected argument %q", f.args[0])
	case f.pos < -1:
		return errors.New("-pos must not be negative")
	case f.pos >= 0 && !f.command:
		return errors.New("-pos requires -c")
	case f.set != "" && !strings.Contains(f.set, "="):
		return fmt.Errorf("-set takes key=value, got %q", f.set)
	case f.set != "" && (f.command || f.history):
		return errors.New("-set cannot be combined with -c or -history")
	case f.history && f.command:
		return errors.New("-history cannot be combined with -c")
	case f.record && (f.command || f.history):
		return errors.New("-record only applies to lines read from stdin")
	case f.since < 0:
		return errors.New("-since must not be negative")
	case f.since > 0 && !f.history:
		return errors.New("-since requires -history")
	case len(f.maintenance()) > 1:
		return fmt.Errorf("%s cannot be combined with %s", f.maintenance()[0], f.maintenance()[1])
	case len(f.maintenance()) == 1 && (f.command || f.history || f.record || f.set != ""):
		return fmt.Errorf("%s cannot be combined with -c, -set, -history or -record", f.maintenance()[0])
	}
	return nil
}

func flagWasSet(name string) bool {
	set := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}

func fail(code int, err error) {
	fmt.Fprintln(os.Stderr, styles.ERROR("exline: "+err.Error()))
	os.Exit(code)
}

// main parses the flags, loads the configuration and runs one of:
//  1. Version or help display: exline -v, exline -h
//  2. Settings: exline -set key=value
//  3. One line: exline -c "edit foo" [-pos n] [-complete] [-json]
//  4. History listing: exline -history [-since 2h]
//  5. Maintenance: exline -history-delete 12, exline -history-reset, exline -clean-logs
//  6. Interactive prompt: exline (when stdin is a terminal)
//  7. Batch classification: exline < lines.txt
//
// Usage errors exit with status 2, runtime errors with status 1.
func main() {
	flag.Usage = printUsage
	flag.Parse()

	if versionFlag {
		fmt.Println(BUILD_VERSION)
		return
	}

	if helpFlag {
		printUsage()
		return
	}

	mode := modeFlags{
		command: flagWasSet("c"),
		pos:     *cursorPos,
		set:     *setting,
		history:   *showHistory,
		since:     *historySince,
		record:    *recordLines,
		delete:    flagWasSet("history-delete"),
		reset:     *resetHistory,
		cleanLogs: *cleanLogs,
		args:      flag.Args(),
	}
	if err := mode.validate(); err != nil {
		fmt.Fprintln(os.Stderr, styles.ERROR("exline: "+err.Error()))
		fmt.Fprintln(os.Stderr, "Run 'exline -h' for usage.")
		os.Exit(2)
	}

	configPath := *configFile
	if configPath == "" {
		configPath = config.DefaultPath()
	}

	// exline -set fuzzy_complete=true
	if mode.set != "" {
		key, value, _ := strings.Cut(mode.set, "=")
		if err := config.Set(configPath, strings.TrimSpace(key), value); err != nil {
			fail(1, err)
		}
		return
	}

	// exline -clean-logs, before a new log file is opened
	if mode.cleanLogs {
		if err := core.CleanLogFiles(); err != nil {
			fail(1, fmt.Errorf("failed to clean log files: %w", err))
		}
		return
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fail(1, err)
	}

	logger, err := initializeLogger(cfg)
	if err != nil {
		panic(err)
	}

	logger.Info("-------- new exline session --------", zap.Any("args", os.Args))

	err = run(context.Background(), mode, cfg, logger)
	if err != nil {
		logger.Error("unhandled error", zap.Error(err))
	}
	_ = logger.Sync() // Flush any buffered log entries

	if err != nil {
		fail(1, err)
	}
}

func run(ctx context.Context, mode modeFlags, cfg *config.Config, logger *zap.Logger) error {
	provider := newProvider(cfg, logger)

	// exline -c "edit foo"
	if mode.command {
		cursor := len(*command)
		if mode.pos >= 0 {
			cursor = mode.pos
		}
		c, err := completeLine(ctx, provider, *command, cursor, *listCandidates)
		if err != nil {
			return err
		}
		return printResult(os.Stdout, c, *listCandidates, *jsonOutput)
	}

	interactive := term.IsTerminal(int(os.Stdin.Fd()))
	if !mode.history && !mode.delete && !mode.reset && !interactive && !mode.record {
		return classifyStream(ctx, os.Stdin, os.Stdout, provider, nil, *listCandidates, *jsonOutput)
	}

	historyManager, err := initializeHistoryManager()
	if err != nil {
		return err
	}
	defer func() {
		if err := historyManager.Close(); err != nil {
			logger.Warn("failed to close history manager", zap.Error(err))
		}
	}()

	// exline -history-delete 12
	if mode.delete {
		if err := historyManager.DeleteEntry(*deleteEntry); err != nil {
			return fmt.Errorf("failed to delete history entry: %w", err)
		}
		logger.Info("deleted history entry", zap.Uint("id", *deleteEntry))
		return nil
	}

	// exline -history-reset
	if mode.reset {
		if err := historyManager.ResetHistory(); err != nil {
			return fmt.Errorf("failed to reset history: %w", err)
		}
		logger.Info("reset history")
		return nil
	}

	// exline -history [-since 2h]
	if mode.history {
		entries, err := listHistory(historyManager, mode.since, time.Now())
		if err != nil {
			return fmt.Errorf("failed to read history: %w", err)
		}
		return printHistory(os.Stdout, entries, time.Now(), *jsonOutput)
	}

	// exline
	if interactive {
		return core.RunInteractiveSession(ctx, provider, historyManager, cfg, logger)
	}

	// exline -record < lines.txt
	sessionID := uuid.New().String()
	record := func(line string, result cmdline.Result) error {
		_, err := historyManager.Add(line, result, sessionID)
		return err
	}
	if err := classifyStream(ctx, os.Stdin, os.Stdout, provider, record, *listCandidates, *jsonOutput); err != nil {
		return err
	}
	if _, err := historyManager.Trim(cfg.HistorySize); err != nil {
		logger.Warn("failed to trim history", zap.Error(err))
	}
	return nil
}

func newProvider(cfg *config.Config, logger *zap.Logger) *completion.Provider {
	return completion.NewProvider(completion.Options{
		Logger:        logger,
		Fuzzy:         cfg.FuzzyComplete,
		MaxCandidates: cfg.MaxCandidates,
		HelpTags:      cfg.HelpTags,
		TagFiles:      cfg.TagFiles,
		Path:          cfg.Path,
		PasswdFile:    cfg.PasswdFile,
		UserCommands: lo.Map(cfg.UserCommands, func(uc config.UserCommand, _ int) completion.UserCompletion {
			return completion.UserCompletion{Value: uc.Name, Description: uc.Description}
		}),
	})
}

func initializeLogger(cfg *config.Config) (*zap.Logger, error) {
	logLevel := zap.NewAtomicLevelAt(cfg.Level())
	if BUILD_VERSION == "dev" {
		logLevel = zap.NewAtomicLevelAt(zap.DebugLevel)
	}

	if err := core.RotateLogFiles(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to rotate log files: %v\n", err)
	}

	loggerConfig := zap.NewProductionConfig()
	loggerConfig.Level = logLevel
	loggerConfig.OutputPaths = []string{
		"zstd://" + core.LogFile(),
	}
	logger, err := loggerConfig.Build()
	if err != nil {
		return nil, err
	}

	return logger, nil
}

func initializeHistoryManager() (*history.HistoryManager, error) {
	historyManager, err := history.NewHistoryManager(core.HistoryFile())
	if err != nil {
		return nil, err
	}

	return historyManager, nil
}
