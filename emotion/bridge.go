package emotion

import (
	"context"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"
)

// Backend names accepted by New.
const (
	BackendProcess   = "process"
	BackendPipe      = "pipe"
	BackendSimulated = "simulated"
)

// DefaultMaxTextLen caps request text when the configuration leaves it unset.
const DefaultMaxTextLen = 5000

// Options configure a Bridge.
type Options struct {
	Backend       string
	Process       ProcessConfig
	MaxConcurrent int
	MaxTextLen    int
	AllowDegraded bool
}

// Bridge is what the HTTP layer and the CLI talk to: the configured backend
// behind the concurrency limiter, plus the optional degraded path.
type Bridge struct {
	classifier Classifier
	degraded   Classifier
	limiter    *Limiter
	maxTextLen int
	closer     io.Closer
	logger     *zap.Logger
}

// New builds the backend named by opts.Backend. metrics may be nil.
func New(opts Options, logger *zap.Logger, metrics *Metrics) (*Bridge, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var (
		backend Classifier
		closer  io.Closer
	)
	switch strings.ToLower(strings.TrimSpace(opts.Backend)) {
	case "", BackendProcess:
		pc, err := NewProcessClassifier(opts.Process, logger)
		if err != nil {
			return nil, err
		}
		backend = pc
	case BackendPipe:
		pc, err := NewPipeClassifier(opts.Process, logger)
		if err != nil {
			return nil, err
		}
		backend, closer = pc, pc
	case BackendSimulated:
		backend = NewKeywordClassifier()
	default:
		return nil, fmt.Errorf("unknown classifier backend %q", opts.Backend)
	}

	return newBridge(backend, closer, opts, logger, metrics), nil
}

func newBridge(backend Classifier, closer io.Closer, opts Options, logger *zap.Logger, metrics *Metrics) *Bridge {
	if opts.MaxTextLen == 0 {
		opts.MaxTextLen = DefaultMaxTextLen
	}
	limiter := NewLimiter(Instrument(backend, metrics), opts.MaxConcurrent, metrics)
	b := &Bridge{
		classifier: limiter,
		limiter:    limiter,
		maxTextLen: opts.MaxTextLen,
		closer:     closer,
		logger:     logger,
	}
	if opts.AllowDegraded {
		b.degraded = &Fallback{
			Primary:   limiter,
			Secondary: Instrument(NewKeywordClassifier(), metrics),
			Logger:    logger,
		}
	}
	return b
}

// Backend returns the name of the configured classifier.
func (b *Bridge) Backend() string { return b.classifier.Name() }

// DegradedAllowed reports whether callers may ask for degraded mode.
func (b *Bridge) DegradedAllowed() bool { return b.degraded != nil }

// Limiter exposes the concurrency limiter, mainly for readiness reporting.
func (b *Bridge) Limiter() *Limiter { return b.limiter }

// Predict classifies text. With degraded set, a failing backend is replaced
// by the keyword simulation and the result is marked as simulated; asking
// for degraded mode when it is disabled is a client error.
func (b *Bridge) Predict(ctx context.Context, text string, degraded bool) (*Prediction, error) {
	text, err := NormalizeText(text, b.maxTextLen)
	if err != nil {
		return nil, err
	}
	if !degraded {
		return b.classifier.Classify(ctx, text)
	}
	if b.degraded == nil {
		return nil, invalidInput("degraded mode is disabled")
	}
	return b.degraded.Classify(ctx, text)
}

// Close releases a long-lived classifier process, if any.
func (b *Bridge) Close() error {
	if b.closer == nil {
		return nil
	}
	return b.closer.Close()
}
