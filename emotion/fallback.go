package emotion

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

// Fallback tries Primary and, when it fails for a reason other than bad
// input or caller cancellation, answers with Secondary. It is only wired
// for requests that explicitly ask for degraded mode.
type Fallback struct {
	Primary   Classifier
	Secondary Classifier
	Logger    *zap.Logger
}

func (f *Fallback) Name() string {
	return f.Primary.Name() + "+" + f.Secondary.Name()
}

func (f *Fallback) Classify(ctx context.Context, text string) (*Prediction, error) {
	pred, err := f.Primary.Classify(ctx, text)
	if err == nil {
		return pred, nil
	}
	if errors.Is(err, ErrInvalidInput) || errors.Is(err, context.Canceled) {
		return nil, err
	}

	if f.Logger != nil {
		f.Logger.Warn("primary classifier failed, answering in degraded mode",
			zap.String("primary", f.Primary.Name()),
			zap.String("secondary", f.Secondary.Name()),
			zap.Error(err))
	}

	// The primary may have used up the caller's deadline; the secondary is
	// local and cheap, so it runs detached from that deadline.
	alt, altErr := f.Secondary.Classify(context.WithoutCancel(ctx), text)
	if altErr != nil {
		return nil, errors.Join(err, altErr)
	}
	alt.Mode = ModeSimulated
	alt.FallbackReason = err.Error()
	return alt, nil
}
