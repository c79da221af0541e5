package emotion

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Defaults applied by NewProcessClassifier.
const (
	DefaultTimeout   = 30 * time.Second
	DefaultWaitDelay = 2 * time.Second

	// MaxCapturedOutput bounds how much of each output stream is kept.
	// Past it only the most recent bytes survive.
	MaxCapturedOutput = 1 << 20
)

// ProcessConfig describes how to launch the external classifier. The input
// text is always appended as the last argument, never passed through a shell.
type ProcessConfig struct {
	Command  string
	Args     []string
	Dir      string
	Env      []string
	Timeout  time.Duration
	Protocol Protocol
}

func (c ProcessConfig) withDefaults() (ProcessConfig, error) {
	if strings.TrimSpace(c.Command) == "" {
		return c, errors.New("classifier command is required")
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.Protocol == "" {
		c.Protocol = ProtocolLenient
	}
	return c, nil
}

// ProcessClassifier spawns one classifier process per call.
type ProcessClassifier struct {
	cfg    ProcessConfig
	logger *zap.Logger
}

// NewProcessClassifier validates cfg and applies defaults.
func NewProcessClassifier(cfg ProcessConfig, logger *zap.Logger) (*ProcessClassifier, error) {
	cfg, err := cfg.withDefaults()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProcessClassifier{cfg: cfg, logger: logger.Named("classifier.process")}, nil
}

func (c *ProcessClassifier) Name() string { return "process" }

// Classify runs the classifier once. The child is killed when ctx ends or
// the configured timeout passes, whichever comes first.
func (c *ProcessClassifier) Classify(ctx context.Context, text string) (*Prediction, error) {
	text, err := NormalizeText(text, 0)
	if err != nil {
		return nil, err
	}

	inv, err := c.run(ctx, text)
	if err != nil {
		return nil, err
	}

	source := inv.Combined
	if c.cfg.Protocol == ProtocolStrict {
		source = inv.Stdout
	}
	rec, stage, err := Extract(source, text, c.cfg.Protocol)
	if err != nil {
		c.logger.Debug("classifier output not parseable",
			zap.String("stdout", inv.Stdout),
			zap.String("stderr", inv.Stderr))
		return nil, &InvocationError{Kind: ErrInference, Invocation: inv, Err: err}
	}

	pred, err := Shape(text, rec, ModeModel)
	if err != nil {
		return nil, &InvocationError{Kind: ErrInference, Invocation: inv, Err: err}
	}
	if pred.ReportedLabel != pred.Label {
		c.logger.Warn("classifier label disagrees with its distribution",
			zap.String("reported", pred.ReportedLabel),
			zap.String("argmax", pred.Label))
	}

	c.logger.Debug("classification done",
		zap.String("label", pred.Label),
		zap.Float64("confidence", pred.Confidence),
		zap.Stringer("stage", stage),
		zap.Duration("duration", inv.Duration))
	return pred, nil
}

func (c *ProcessClassifier) run(ctx context.Context, text string) (*Invocation, error) {
	runCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	args := make([]string, 0, len(c.cfg.Args)+1)
	args = append(args, c.cfg.Args...)
	args = append(args, text)

	cmd := exec.CommandContext(runCtx, c.cfg.Command, args...)
	cmd.Dir = c.cfg.Dir
	if len(c.cfg.Env) > 0 {
		cmd.Env = append(cmd.Environ(), c.cfg.Env...)
	}
	cmd.WaitDelay = DefaultWaitDelay
	setupProcessGroup(cmd)

	stdout := newTailBuffer(MaxCapturedOutput)
	stderr := newTailBuffer(MaxCapturedOutput)
	combined := newTailBuffer(MaxCapturedOutput)
	cmd.Stdout = io.MultiWriter(stdout, combined)
	cmd.Stderr = io.MultiWriter(stderr, combined)

	inv := &Invocation{Text: text}
	start := time.Now()

	if err := cmd.Start(); err != nil {
		inv.Duration = time.Since(start)
		return nil, &InvocationError{Kind: ErrProcessSpawn, Invocation: inv, Err: err}
	}

	waitErr := cmd.Wait()
	inv.Duration = time.Since(start)
	inv.Stdout = stdout.String()
	inv.Stderr = stderr.String()
	inv.Combined = combined.String()
	if cmd.ProcessState != nil {
		inv.ExitCode = cmd.ProcessState.ExitCode()
	}

	if ctxErr := runCtx.Err(); ctxErr != nil {
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			return nil, &InvocationError{
				Kind:       ErrTimeout,
				Invocation: inv,
				Err:        fmt.Errorf("no result after %v", inv.Duration.Round(time.Millisecond)),
			}
		}
		return nil, &InvocationError{Kind: ctxErr, Invocation: inv}
	}

	if waitErr != nil {
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			msg := strings.TrimSpace(inv.Stderr)
			if msg == "" {
				msg = "classifier exited with an error"
			}
			return nil, &InvocationError{Kind: ErrInference, Invocation: inv, Err: errors.New(msg)}
		}
		return nil, &InvocationError{Kind: ErrInference, Invocation: inv, Err: waitErr}
	}
	return inv, nil
}

// tailBuffer keeps the last max bytes written to it. It is safe for the
// concurrent stdout/stderr copy goroutines.
type tailBuffer struct {
	mu      sync.Mutex
	buf     []byte
	max     int
	dropped int64
}

func newTailBuffer(max int) *tailBuffer {
	return &tailBuffer{max: max}
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := len(p)
	if n >= b.max {
		b.dropped += int64(len(b.buf) + n - b.max)
		b.buf = append(b.buf[:0], p[n-b.max:]...)
		return n, nil
	}
	if over := len(b.buf) + n - b.max; over > 0 {
		b.dropped += int64(over)
		b.buf = append(b.buf[:0], b.buf[over:]...)
	}
	b.buf = append(b.buf, p...)
	return n, nil
}

func (b *tailBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.buf)
}

// Dropped reports how many leading bytes were discarded.
func (b *tailBuffer) Dropped() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}
