package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/abdul-hamid-achik/httpipe/packages/core/config"
	"github.com/abdul-hamid-achik/httpipe/packages/core/env"
	"github.com/abdul-hamid-achik/httpipe/packages/core/runner"
	"github.com/abdul-hamid-achik/httpipe/packages/output"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run <script|directory> [environment]",
	Short: "Run HTTP scripts",
	Long: `Run the blocks of .http scripts in order.

The optional environment names an entry of http-client.env.json next to
the script. Variables prefixed HTTPIPE_VAR_ in the process environment are
available as content variables.

Examples:
  httpipe run api.http
  httpipe run api.http staging
  httpipe run api.http --env-file .env --strict
  httpipe run ./scripts/ -o junit --output-file report.xml
  httpipe run api.http --watch`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runCommand,
}

var (
	envFlag        string
	envFileFlag    string
	configFlag     string
	nameFlag       string
	verboseFlag    bool
	logLevelFlag   string
	noColorFlag    bool
	strictFlag     bool
	outputFlag     string
	outputFileFlag string
	watchFlag      bool
	timeoutFlag    string
	insecureFlag   bool
	proxyFlag      string
	rateFlag       float64
)

func init() {
	addRunFlags(runCmd)
}

// addRunFlags registers the run flags on cmd. The root command accepts the
// same arguments as run, so both share the variables.
func addRunFlags(cmd *cobra.Command) {
	flags := cmd.Flags()

	// Core flags
	flags.StringVarP(&envFlag, "env", "e", getEnvString("HTTPIPE_ENV", ""), "Environment from http-client.env.json (env: HTTPIPE_ENV)")
	flags.StringVar(&envFileFlag, "env-file", getEnvString("HTTPIPE_ENV_FILE", ""), "Path to .env file with content variables (env: HTTPIPE_ENV_FILE)")
	flags.StringVar(&configFlag, "config", getEnvString("HTTPIPE_CONFIG", ""), "Path to config file (env: HTTPIPE_CONFIG)")
	flags.StringVarP(&nameFlag, "name", "n", "", "Run only blocks whose title matches the pattern")

	// Output flags
	flags.BoolVarP(&verboseFlag, "verbose", "v", getEnvBool("HTTPIPE_VERBOSE", false), "Verbose output and debug logging (env: HTTPIPE_VERBOSE)")
	flags.StringVar(&logLevelFlag, "log-level", getEnvString("HTTPIPE_LOG_LEVEL", ""), "Log level: debug, info, warn, error (env: HTTPIPE_LOG_LEVEL)")
	flags.BoolVar(&noColorFlag, "no-color", getEnvBool("HTTPIPE_NO_COLOR", false), "Disable colored output (env: HTTPIPE_NO_COLOR)")
	flags.StringVarP(&outputFlag, "output", "o", getEnvString("HTTPIPE_OUTPUT", ""), "Output format: console, json, junit, tap (env: HTTPIPE_OUTPUT)")
	flags.StringVar(&outputFileFlag, "output-file", getEnvString("HTTPIPE_OUTPUT_FILE", ""), "Write output to file (default: stdout) (env: HTTPIPE_OUTPUT_FILE)")

	// Execution flags
	flags.BoolVar(&strictFlag, "strict", getEnvBool("HTTPIPE_STRICT", false), "Exit 1 when any block fails (env: HTTPIPE_STRICT)")
	flags.BoolVarP(&watchFlag, "watch", "w", false, "Watch scripts for changes and re-run")
	flags.StringVar(&timeoutFlag, "timeout", getEnvString("HTTPIPE_TIMEOUT", ""), "Request timeout, e.g. 30s; empty for none (env: HTTPIPE_TIMEOUT)")
	flags.Float64Var(&rateFlag, "rate", getEnvFloat("HTTPIPE_RATE", 0), "Maximum requests per second, 0 for no pacing (env: HTTPIPE_RATE)")

	// Network flags
	flags.StringVar(&proxyFlag, "proxy", getEnvString("HTTPIPE_PROXY", ""), "Proxy URL for HTTP requests (env: HTTPIPE_PROXY)")
	flags.BoolVarP(&insecureFlag, "insecure", "k", getEnvBool("HTTPIPE_INSECURE", false), "Disable SSL certificate validation (env: HTTPIPE_INSECURE)")
}

// Environment variable helpers
func getEnvString(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		return val == "true" || val == "1" || val == "yes"
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

// runSettings is the merged view of the config file and the flags.
type runSettings struct {
	files     []string
	formatter func() (output.Formatter, error)
	runner    *runner.Runner
	strict    bool
	log       *logrus.Logger
}

func runCommand(cmd *cobra.Command, args []string) error {
	settings, closeOutput, err := prepareRun(cmd, args)
	if err != nil {
		return err
	}
	defer closeOutput()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	failed, err := runOnce(ctx, settings)
	if err != nil {
		return err
	}

	if watchFlag {
		return watchScripts(ctx, cmd.OutOrStdout(), settings, args[0])
	}

	if settings.strict && failed > 0 {
		return exitErrorf(ExitTestFailure, "%d block(s) failed", failed)
	}
	return nil
}

func prepareRun(cmd *cobra.Command, args []string) (*runSettings, func(), error) {
	noop := func() {}

	files, err := collectFiles(args[:1])
	if err != nil {
		return nil, noop, exitErrorf(ExitUsageError, "%v", err)
	}
	if len(files) == 0 {
		return nil, noop, exitErrorf(ExitUsageError, "no .http or .rest files found in %s", args[0])
	}

	fileConfig, err := config.LoadConfig(configFlag, filepath.Dir(files[0]), ".")
	if err != nil {
		return nil, noop, &ExitError{Code: ExitConfigError, Err: err}
	}
	fileConfig = fileConfig.Merge(flagConfig(cmd))

	log, err := newLogger(cmd.ErrOrStderr(), fileConfig.LogLevel, fileConfig.GetVerbose(), fileConfig.GetNoColor())
	if err != nil {
		return nil, noop, &ExitError{Code: ExitUsageError, Err: err}
	}

	timeout, err := fileConfig.GetTimeout()
	if err != nil {
		return nil, noop, &ExitError{Code: ExitConfigError, Err: err}
	}

	var variables map[string]string
	if envFileFlag != "" {
		variables, err = env.LoadDotEnv(envFileFlag)
		if err != nil {
			return nil, noop, &ExitError{Code: ExitConfigError, Err: err}
		}
	}

	environment := fileConfig.DefaultEnvironment
	if len(args) > 1 {
		environment = args[1]
	}

	var out io.Writer = cmd.OutOrStdout()
	closeOutput := noop
	if outputFileFlag != "" {
		f, err := os.Create(outputFileFlag)
		if err != nil {
			return nil, noop, exitErrorf(ExitUsageError, "cannot create output file: %w", err)
		}
		out = f
		closeOutput = func() { _ = f.Close() }
	}

	newFormatter := func() (output.Formatter, error) {
		return output.New(fileConfig.Output, out, fileConfig.GetVerbose(), fileConfig.GetNoColor())
	}
	if _, err := newFormatter(); err != nil {
		closeOutput()
		return nil, noop, &ExitError{Code: ExitUsageError, Err: err}
	}

	r := runner.NewRunner(&runner.Config{
		Environment:    environment,
		Verbose:        fileConfig.GetVerbose(),
		Timeout:        timeout,
		FollowRedirect: fileConfig.GetFollowRedirects(),
		MaxRedirects:   fileConfig.MaxRedirects,
		Insecure:       !fileConfig.GetValidateSSL(),
		Proxy:          fileConfig.Proxy,
		Headers:        fileConfig.Headers,
		RateLimit:      fileConfig.RateLimit,
		Variables:      variables,
		NameFilter:     nameFlag,
		Logger:         log,
	})

	return &runSettings{
		files:     files,
		formatter: newFormatter,
		runner:    r,
		strict:    fileConfig.GetStrict(),
		log:       log,
	}, closeOutput, nil
}

// flagConfig turns the flags set on the command line into a config layer.
// Flags left at their defaults do not override the config file.
func flagConfig(cmd *cobra.Command) *config.Config {
	cfg := &config.Config{
		DefaultEnvironment: envFlag,
		Timeout:            timeoutFlag,
		Proxy:              proxyFlag,
		RateLimit:          rateFlag,
		LogLevel:           logLevelFlag,
		Output:             outputFlag,
	}
	changed := func(name string) bool {
		return cmd.Flags().Changed(name) || os.Getenv(envNames[name]) != ""
	}
	if changed("insecure") {
		cfg.ValidateSSL = config.BoolPtr(!insecureFlag)
	}
	if changed("verbose") {
		cfg.Verbose = config.BoolPtr(verboseFlag)
	}
	if changed("no-color") {
		cfg.NoColor = config.BoolPtr(noColorFlag)
	}
	if changed("strict") {
		cfg.Strict = config.BoolPtr(strictFlag)
	}
	return cfg
}

var envNames = map[string]string{
	"insecure": "HTTPIPE_INSECURE",
	"verbose":  "HTTPIPE_VERBOSE",
	"no-color": "HTTPIPE_NO_COLOR",
	"strict":   "HTTPIPE_STRICT",
}

// runOnce runs every script and reports through a fresh formatter. It
// returns the number of failed blocks.
func runOnce(ctx context.Context, s *runSettings) (int, error) {
	formatter, err := s.formatter()
	if err != nil {
		return 0, err
	}
	formatter.FormatHeader(version)

	failed := 0
	start := time.Now()
	for _, file := range s.files {
		result, err := s.runner.RunFile(ctx, file)
		if result == nil {
			formatter.FormatError(fmt.Errorf("%s: %w", file, err))
			if flushable, ok := formatter.(output.Flushable); ok {
				_ = flushable.Flush(time.Since(start))
			}
			return failed, &ExitError{Code: ExitConfigError, Err: err}
		}

		formatter.FormatResult(result)
		failed += result.Failed

		if err != nil {
			s.log.WithError(err).Warn("run interrupted")
			break
		}
	}

	if flushable, ok := formatter.(output.Flushable); ok {
		if err := flushable.Flush(time.Since(start)); err != nil {
			return failed, fmt.Errorf("error writing output: %w", err)
		}
	}
	return failed, nil
}

func collectFiles(args []string) ([]string, error) {
	var files []string

	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("cannot access %s: %w", arg, err)
		}

		if info.IsDir() {
			err := filepath.Walk(arg, func(path string, info os.FileInfo, err error) error {
				if err != nil {
					return err
				}
				if !info.IsDir() && isScriptFile(path) {
					files = append(files, path)
				}
				return nil
			})
			if err != nil {
				return nil, err
			}
		} else {
			files = append(files, arg)
		}
	}

	return files, nil
}

func isScriptFile(path string) bool {
	ext := filepath.Ext(path)
	return ext == ".http" || ext == ".rest"
}
