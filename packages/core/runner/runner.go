package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/abdul-hamid-achik/httpipe/packages/builtin"
	"github.com/abdul-hamid-achik/httpipe/packages/core/env"
	"github.com/abdul-hamid-achik/httpipe/packages/core/parser"
	"github.com/abdul-hamid-achik/httpipe/packages/http"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// SystemEnvPrefix marks OS environment variables that become content
// variables: HTTPIPE_VAR_token is visible as content.token.
const SystemEnvPrefix = "HTTPIPE_VAR_"

type Runner struct {
	client   *http.Client
	renderer env.Renderer
	registry *builtin.Registry
	config   *Config
	log      logrus.FieldLogger
}

type Config struct {
	Environment    string
	Verbose        bool
	Timeout        time.Duration
	FollowRedirect bool
	MaxRedirects   int
	Insecure       bool
	Proxy          string
	Headers        map[string]string
	RateLimit      float64
	// Variables seed the content scope before the first block, after the
	// environment file and the HTTPIPE_VAR_ variables.
	Variables map[string]string
	// NameFilter runs only blocks whose title matches; "*" wildcards are
	// allowed at either end.
	NameFilter string
	Logger     logrus.FieldLogger
}

func NewRunner(cfg *Config) *Runner {
	if cfg == nil {
		cfg = &Config{}
	}

	clientOpts := []http.ClientOption{}
	if cfg.Timeout > 0 {
		clientOpts = append(clientOpts, http.WithTimeout(cfg.Timeout))
	}
	clientOpts = append(clientOpts,
		http.WithFollowRedirects(cfg.FollowRedirect),
		http.WithValidateSSL(!cfg.Insecure),
		http.WithDefaultHeaders(cfg.Headers),
	)
	if cfg.MaxRedirects > 0 {
		clientOpts = append(clientOpts, http.WithMaxRedirects(cfg.MaxRedirects))
	}
	if cfg.Proxy != "" {
		clientOpts = append(clientOpts, http.WithProxy(cfg.Proxy))
	}
	if cfg.RateLimit > 0 {
		clientOpts = append(clientOpts, http.WithRateLimit(cfg.RateLimit))
	}

	log := cfg.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}

	return &Runner{
		client:   http.NewClient(clientOpts...),
		renderer: env.NewLiquidRenderer(),
		registry: builtin.NewRegistry(),
		config:   cfg,
		log:      log,
	}
}

// Registry exposes the function table so callers can register their own.
func (r *Runner) Registry() *builtin.Registry {
	return r.registry
}

type RunResult struct {
	File     string
	RunID    string
	Results  []*BlockResult
	Duration time.Duration
	Passed   int
	Failed   int
	Skipped  int
	Timings  *Timings
	// Content is the content scope after the last block.
	Content map[string]string
}

type BlockResult struct {
	Index      int
	Title      string
	Line       int
	Method     string
	URL        string
	StatusCode int
	Reason     string
	Passed     bool
	Skipped    bool
	SkipReason string
	// Stopped is set when a function failed and the request was not sent.
	Stopped  bool
	Duration time.Duration
	Error    error
}

// Name is the block title, or its route when untitled.
func (b *BlockResult) Name() string {
	if b.Title != "" {
		return b.Title
	}
	if b.Method != "" {
		return b.Method + " " + b.URL
	}
	return fmt.Sprintf("Block#%d", b.Index)
}

// RunFile loads the environment next to path and runs the script.
func (r *Runner) RunFile(ctx context.Context, path string) (*RunResult, error) {
	script, err := parser.ParseFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading script: %w", err)
	}
	return r.Run(ctx, script)
}

// Run executes the blocks of script in order against one store. A block
// failure is recorded on its result and the next block runs. Only the
// cancellation of ctx stops the run early, in which case the partial result
// is returned with ctx.Err().
func (r *Runner) Run(ctx context.Context, script *parser.Script) (*RunResult, error) {
	start := time.Now()
	runID := uuid.New().String()

	store, err := r.newStore(script, runID)
	if err != nil {
		return nil, err
	}

	result := &RunResult{
		File:    script.Path,
		RunID:   runID,
		Timings: NewTimings(),
	}
	fn := &builtin.Env{
		Store:    store,
		Renderer: r.renderer,
		Dir:      scriptDir(script.Path),
		Log:      r.log.WithField("run", runID),
	}

	for _, raw := range script.Blocks {
		if err := ctx.Err(); err != nil {
			result.Duration = time.Since(start)
			return result, err
		}

		if r.config.NameFilter != "" && !matchesPattern(raw.Title, r.config.NameFilter) {
			result.Results = append(result.Results, &BlockResult{
				Index:      raw.Index,
				Title:      raw.Title,
				Line:       raw.Line,
				Skipped:    true,
				SkipReason: "filtered out",
			})
			result.Skipped++
			continue
		}

		store.Seed(env.SeedBlock, raw.Index)
		br := r.runBlock(ctx, store, fn, raw)
		result.Results = append(result.Results, br)
		result.Timings.Record(br.Duration)

		switch {
		case br.Skipped:
			result.Skipped++
		case br.Passed:
			result.Passed++
		default:
			result.Failed++
		}
	}

	result.Content = make(map[string]string)
	for _, name := range store.ContentNames() {
		result.Content[name], _ = store.Content(name)
	}
	result.Duration = time.Since(start)
	r.log.WithField("run", runID).Debugf("Run completed within %d ms", result.Duration.Milliseconds())
	return result, ctx.Err()
}

func (r *Runner) newStore(script *parser.Script, runID string) (*env.Store, error) {
	dir := scriptDir(script.Path)

	environment, err := env.LoadEnvironment(dir, r.config.Environment)
	if err != nil {
		return nil, fmt.Errorf("loading environment: %w", err)
	}

	cwd, _ := os.Getwd()
	scriptPath := script.Path
	if abs, err := filepath.Abs(script.Path); err == nil && script.Path != "" {
		scriptPath = abs
	}

	store := env.NewStore(map[string]any{
		env.SeedCurrentDirectory: cwd,
		env.SeedScriptPath:       scriptPath,
		env.SeedRunID:            runID,
		env.SeedEnvironment:      environment.Name,
		env.SeedBlock:            0,
	})
	store.SetContents(env.MergeVariables(
		environment.Variables,
		env.LoadSystemEnv(SystemEnvPrefix),
		r.config.Variables,
	))
	return store, nil
}

func (r *Runner) runBlock(ctx context.Context, store *env.Store, fn *builtin.Env, raw *parser.RawBlock) *BlockResult {
	start := time.Now()
	result := &BlockResult{
		Index: raw.Index,
		Title: raw.Title,
		Line:  raw.Line,
	}
	log := fn.Log.WithField("block", raw.Index)

	defer func() {
		result.Duration = time.Since(start)
		log.Debugf("Block#%d completed within %d ms", raw.Index, result.Duration.Milliseconds())
	}()

	block, parseErr := parser.ParseBlock(raw)
	if parseErr == nil && block.Request != nil {
		result.Method = block.Request.Method
		result.URL = block.Request.Target
	}

	if !r.runDirectives(store, fn, log, block.Directives, result) {
		return result
	}
	if parseErr != nil {
		log.WithError(parseErr).Error("block abandoned: malformed line")
		result.Error = parseErr
		return result
	}

	if block.Request == nil {
		result.Passed = true
		return result
	}

	req, err := http.BuildRequest(block.Request, func(tpl string) (string, error) {
		return store.Render(r.renderer, tpl)
	})
	if errors.Is(err, http.ErrInvalidTarget) {
		result.URL = req.URL
		result.Skipped = true
		result.SkipReason = err.Error()
		log.WithError(err).Warn("block skipped")
		return result
	}
	if err != nil {
		log.WithError(err).Error("block abandoned: request not rendered")
		result.Error = err
		return result
	}
	result.URL = req.URL
	if req.BodyDropped {
		log.WithField("content-type", req.DeclaredType).Warn("request body is not valid JSON and was dropped")
	}

	resp, err := r.client.Do(ctx, req)
	if err != nil {
		store.ClearResponse()
		log.WithError(err).Error("request failed")
		result.Error = fmt.Errorf("%s %s: %w", req.Method, req.URL, err)
		return result
	}

	body, err := http.Decode(resp)
	if err != nil {
		log.WithError(err).Warn("response body kept as text")
	}
	store.SetResponse(resp.StatusCode, resp.Reason, resp.Headers, body)

	result.StatusCode = resp.StatusCode
	result.Reason = resp.Reason
	result.Passed = true
	return result
}

// runDirectives applies variable declarations and function calls in order.
// It returns false when a function ended the block.
func (r *Runner) runDirectives(store *env.Store, fn *builtin.Env, log logrus.FieldLogger, directives []*parser.Directive, result *BlockResult) bool {
	for _, d := range directives {
		switch d.Kind {
		case parser.DirectiveVariable:
			if err := store.Declare(r.renderer, d.Name, d.Template); err != nil {
				log.WithError(err).WithField("variable", d.Name).Error("variable rendered empty")
			}

		case parser.DirectiveFunction:
			err := r.registry.Call(&builtin.Env{
				Store:    store,
				Renderer: fn.Renderer,
				Dir:      fn.Dir,
				Log:      log,
			}, d.Name, d.Raw, d.Line)
			if err == nil {
				continue
			}
			result.Error = fmt.Errorf("line %d: $%s: %w", d.Line, d.Name, err)
			if errors.Is(err, builtin.ErrUnknownFunction) {
				log.WithError(err).Error("block abandoned: unknown function")
				return false
			}
			log.WithError(err).Warn("block stopped before its request")
			result.Stopped = true
			return false
		}
	}
	return true
}

func scriptDir(path string) string {
	if path == "" {
		return "."
	}
	return filepath.Dir(path)
}

func matchesPattern(name, pattern string) bool {
	if pattern == "" || pattern == "*" {
		return true
	}

	if pattern[0] == '*' && pattern[len(pattern)-1] == '*' && len(pattern) > 1 {
		return strings.Contains(name, pattern[1:len(pattern)-1])
	}

	if pattern[0] == '*' {
		return strings.HasSuffix(name, pattern[1:])
	}

	if pattern[len(pattern)-1] == '*' {
		return strings.HasPrefix(name, pattern[:len(pattern)-1])
	}

	return name == pattern
}
