package hooks

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/vanderheijden86/pick/pkg/debug"
	"github.com/vanderheijden86/pick/pkg/metrics"
)

// ErrHookFailed is wrapped by errors from hooks configured with on_error: fail.
var ErrHookFailed = errors.New("hook failed")

// HookResult contains the result of running a hook
type HookResult struct {
	Hook     Hook
	Phase    HookPhase
	Success  bool
	Stdout   string
	Stderr   string
	Error    error
	Duration time.Duration
}

// Executor runs hooks with the selection context
type Executor struct {
	config  *Config
	context SelectContext
	results []HookResult
}

// NewExecutor creates a new hook executor
func NewExecutor(config *Config, ctx SelectContext) *Executor {
	if config == nil {
		config = &Config{}
	}
	return &Executor{
		config:  config,
		context: ctx,
	}
}

// RunOnSelect runs every on-select hook in order. A failing hook with
// on_error: fail makes the call return an error, but later hooks still run
// because the selection has already happened.
func (e *Executor) RunOnSelect(ctx context.Context) error {
	var firstErr error
	for _, hook := range e.config.Hooks.OnSelect {
		result := e.runHook(ctx, hook, OnSelect)
		e.results = append(e.results, result)

		if !result.Success {
			debug.Log("hook %q failed: %v", hook.Name, result.Error)
			if hook.OnError == OnErrorFail && firstErr == nil {
				firstErr = fmt.Errorf("%w: %s: %v", ErrHookFailed, hook.Name, result.Error)
			}
		}
	}
	return firstErr
}

// runHook executes a single hook with timeout
func (e *Executor) runHook(parent context.Context, hook Hook, phase HookPhase) HookResult {
	defer metrics.Timer(metrics.HookRun)()

	result := HookResult{
		Hook:  hook,
		Phase: phase,
	}

	timeout := hook.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "sh", "-c", hook.Command)

	// Start from the parent environment, then the selection, then hook env.
	env := append(os.Environ(), e.context.ToEnv()...)
	for k, v := range hook.Env {
		env = append(env, fmt.Sprintf("%s=%s", k, os.ExpandEnv(v)))
	}
	cmd.Env = env

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	// Children that keep the pipes open must not outlive the timeout.
	cmd.WaitDelay = time.Second

	start := time.Now()
	err := cmd.Run()
	result.Duration = time.Since(start)

	result.Stdout = strings.TrimSpace(stdout.String())
	result.Stderr = strings.TrimSpace(stderr.String())

	switch {
	case ctx.Err() == context.DeadlineExceeded:
		result.Error = fmt.Errorf("timed out after %v", timeout)
	case err != nil:
		result.Error = err
	default:
		result.Success = true
	}

	debug.LogTiming("hook "+hook.Name, result.Duration)
	return result
}

// Results returns the outcome of every hook run so far, in run order.
func (e *Executor) Results() []HookResult {
	return e.results
}

// Summarize renders results as a short report: one count line, then one line
// per hook with the stderr of failures.
func Summarize(results []HookResult) string {
	if len(results) == 0 {
		return ""
	}

	var succeeded int
	for _, r := range results {
		if r.Success {
			succeeded++
		}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Hooks: %d succeeded, %d failed\n", succeeded, len(results)-succeeded)
	for _, r := range results {
		if r.Success {
			fmt.Fprintf(&sb, "  ok   [%s] %s (%v)\n", r.Phase, r.Hook.Name, r.Duration.Round(time.Millisecond))
			continue
		}
		fmt.Fprintf(&sb, "  fail [%s] %s: %v\n", r.Phase, r.Hook.Name, r.Error)
		if r.Stderr != "" {
			fmt.Fprintf(&sb, "       stderr: %s\n", truncate(r.Stderr, 200))
		}
	}
	return sb.String()
}

// truncate shortens s to maxLen bytes, ending in "..." when cut.
func truncate(s string, maxLen int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}

// Resolve loads .pick/hooks.yaml from projectDir (the working directory when
// empty) and appends the global hooks. It returns a nil config when no hook
// is left, together with the warnings about skipped entries.
func Resolve(projectDir string, global HooksByPhase) (*Config, []string, error) {
	loader := NewLoader(WithProjectDir(projectDir))
	if err := loader.Load(); err != nil {
		return nil, nil, err
	}
	loader.Merge(global)
	if !loader.HasHooks() {
		return nil, loader.Warnings(), nil
	}
	return loader.Config(), loader.Warnings(), nil
}
