package emotion

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"time"

	"go.uber.org/zap"
)

var errPipeClosed = errors.New("pipe classifier is closed")

type pipeRequest struct {
	Text string `json:"text"`
}

type lineResult struct {
	line string
	err  error
}

// PipeClassifier keeps one classifier process alive and exchanges one JSON
// line per request over its stdin/stdout. Requests are serialised; a
// process that times out or breaks protocol is killed and restarted on the
// next call.
type PipeClassifier struct {
	cfg    ProcessConfig
	logger *zap.Logger

	// slot holds the single in-flight permit.
	slot chan struct{}

	cmd    *exec.Cmd
	stdin  io.WriteCloser
	lines  *bufio.Reader
	stderr *tailBuffer
	closed bool
}

// NewPipeClassifier validates cfg. The process starts lazily on the first
// Classify call.
func NewPipeClassifier(cfg ProcessConfig, logger *zap.Logger) (*PipeClassifier, error) {
	cfg, err := cfg.withDefaults()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PipeClassifier{
		cfg:    cfg,
		logger: logger.Named("classifier.pipe"),
		slot:   make(chan struct{}, 1),
	}, nil
}

func (c *PipeClassifier) Name() string { return "pipe" }

func (c *PipeClassifier) acquire(ctx context.Context) error {
	select {
	case c.slot <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *PipeClassifier) release() { <-c.slot }

// Classify sends text to the running process and waits for one reply line.
func (c *PipeClassifier) Classify(ctx context.Context, text string) (*Prediction, error) {
	text, err := NormalizeText(text, 0)
	if err != nil {
		return nil, err
	}

	if err := c.acquire(ctx); err != nil {
		return nil, contextFailure(err, nil)
	}
	defer c.release()

	if c.closed {
		return nil, &InvocationError{Kind: ErrProcessSpawn, Err: errPipeClosed}
	}
	if err := c.ensureStarted(); err != nil {
		return nil, &InvocationError{Kind: ErrProcessSpawn, Invocation: &Invocation{Text: text}, Err: err}
	}

	start := time.Now()
	inv := &Invocation{Text: text}

	payload, err := json.Marshal(pipeRequest{Text: text})
	if err != nil {
		return nil, invalidInput("encode text: %v", err)
	}
	if _, err := c.stdin.Write(append(payload, '\n')); err != nil {
		inv.Stderr = c.stopLocked()
		inv.Duration = time.Since(start)
		return nil, &InvocationError{Kind: ErrInference, Invocation: inv, Err: fmt.Errorf("write request: %w", err)}
	}

	// The reader goroutine always finishes: either a line arrives or the
	// pipe is closed by stopLocked.
	results := make(chan lineResult, 1)
	lines := c.lines
	go func() {
		line, err := readLine(lines, MaxCapturedOutput)
		results <- lineResult{line: line, err: err}
	}()

	timer := time.NewTimer(c.cfg.Timeout)
	defer timer.Stop()

	var res lineResult
	select {
	case res = <-results:
	case <-timer.C:
		inv.Stderr = c.stopLocked()
		<-results
		inv.Duration = time.Since(start)
		return nil, &InvocationError{Kind: ErrTimeout, Invocation: inv, Err: fmt.Errorf("no reply after %v", c.cfg.Timeout)}
	case <-ctx.Done():
		inv.Stderr = c.stopLocked()
		<-results
		inv.Duration = time.Since(start)
		return nil, contextFailure(ctx.Err(), inv)
	}

	inv.Duration = time.Since(start)
	inv.Stdout = res.line
	inv.Combined = res.line
	if res.err != nil {
		inv.Stderr = c.stopLocked()
		return nil, &InvocationError{Kind: ErrInference, Invocation: inv, Err: fmt.Errorf("read reply: %w", res.err)}
	}

	rec, _, err := Extract(res.line, "", ProtocolStrict)
	if err != nil {
		// A malformed reply means the stream can no longer be trusted.
		inv.Stderr = c.stopLocked()
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
	return pred, nil
}

// Close stops the process. Further calls fail with ErrProcessSpawn.
func (c *PipeClassifier) Close() error {
	c.slot <- struct{}{}
	defer c.release()
	c.closed = true
	c.stopLocked()
	return nil
}

func (c *PipeClassifier) ensureStarted() error {
	if c.cmd != nil {
		return nil
	}

	cmd := exec.Command(c.cfg.Command, c.cfg.Args...)
	cmd.Dir = c.cfg.Dir
	if len(c.cfg.Env) > 0 {
		cmd.Env = append(cmd.Environ(), c.cfg.Env...)
	}
	cmd.WaitDelay = DefaultWaitDelay
	setupProcessGroup(cmd)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		_ = stdin.Close()
		return err
	}
	stderr := newTailBuffer(MaxCapturedOutput)
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		return err
	}

	c.logger.Info("classifier process started", zap.Int("pid", cmd.Process.Pid))
	c.cmd = cmd
	c.stdin = stdin
	c.lines = bufio.NewReader(stdout)
	c.stderr = stderr
	return nil
}

// stopLocked kills the process and reaps it. It returns whatever the
// process wrote to stderr. Callers must hold the slot.
func (c *PipeClassifier) stopLocked() string {
	if c.cmd == nil {
		return ""
	}
	_ = c.stdin.Close()
	_ = killProcessGroup(c.cmd)
	_ = c.cmd.Wait()

	stderr := c.stderr.String()
	c.logger.Info("classifier process stopped", zap.Int("pid", c.cmd.Process.Pid))
	c.cmd = nil
	c.stdin = nil
	c.lines = nil
	c.stderr = nil
	return stderr
}

func contextFailure(err error, inv *Invocation) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &InvocationError{Kind: ErrTimeout, Invocation: inv, Err: err}
	}
	return &InvocationError{Kind: err, Invocation: inv}
}

var errReplyTooLong = errors.New("reply line too long")

// readLine reads up to and including '\n', failing once more than max bytes
// arrive without one.
func readLine(r *bufio.Reader, max int) (string, error) {
	var line []byte
	for {
		chunk, err := r.ReadSlice('\n')
		if len(line)+len(chunk) > max {
			return "", errReplyTooLong
		}
		line = append(line, chunk...)
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		return string(line), err
	}
}
