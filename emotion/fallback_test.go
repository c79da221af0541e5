package emotion

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestFallback_Classify(t *testing.T) {
	t.Run("primary success is returned untouched", func(t *testing.T) {
		primary := &stubClassifier{}
		secondary := &stubClassifier{}
		f := &Fallback{Primary: primary, Secondary: secondary, Logger: zap.NewNop()}

		pred, err := f.Classify(context.Background(), "hi")

		require.NoError(t, err)
		assert.Equal(t, ModeModel, pred.Mode)
		assert.Empty(t, pred.FallbackReason)
		assert.Equal(t, int64(0), secondary.calls.Load())
	})

	t.Run("primary failure answers in simulated mode", func(t *testing.T) {
		primary := &stubClassifier{err: &InvocationError{Kind: ErrInference, Err: errors.New("garbage output")}}
		f := &Fallback{Primary: primary, Secondary: NewKeywordClassifier()}

		pred, err := f.Classify(context.Background(), "I am so happy")

		require.NoError(t, err)
		assert.Equal(t, ModeSimulated, pred.Mode)
		assert.Equal(t, LabelJoy, pred.Label)
		assert.Contains(t, pred.FallbackReason, "garbage output")
	})

	t.Run("timeout still falls back", func(t *testing.T) {
		primary := &stubClassifier{err: &InvocationError{Kind: ErrTimeout}}
		f := &Fallback{Primary: primary, Secondary: NewKeywordClassifier()}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		pred, err := f.Classify(ctx, "wow")

		require.NoError(t, err)
		assert.Equal(t, LabelSurprise, pred.Label)
		assert.Contains(t, pred.FallbackReason, ErrTimeout.Error())
	})

	t.Run("invalid input is not masked", func(t *testing.T) {
		secondary := &stubClassifier{}
		f := &Fallback{Primary: &stubClassifier{err: invalidInput("text is required")}, Secondary: secondary}

		_, err := f.Classify(context.Background(), "")

		assert.True(t, errors.Is(err, ErrInvalidInput))
		assert.Equal(t, int64(0), secondary.calls.Load())
	})

	t.Run("caller cancellation is not masked", func(t *testing.T) {
		f := &Fallback{Primary: &stubClassifier{err: context.Canceled}, Secondary: &stubClassifier{}}

		_, err := f.Classify(context.Background(), "hi")

		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("both failing joins the errors", func(t *testing.T) {
		f := &Fallback{
			Primary:   &stubClassifier{err: &InvocationError{Kind: ErrProcessSpawn}},
			Secondary: &stubClassifier{err: errStubDown},
		}

		_, err := f.Classify(context.Background(), "hi")

		assert.True(t, errors.Is(err, ErrProcessSpawn))
		assert.True(t, errors.Is(err, errStubDown))
	})

	t.Run("name", func(t *testing.T) {
		f := &Fallback{Primary: &stubClassifier{name: "process"}, Secondary: NewKeywordClassifier()}
		assert.Equal(t, "process+simulated", f.Name())
	})
}
