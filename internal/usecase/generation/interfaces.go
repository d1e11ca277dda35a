package generation

import (
	"context"

	"github.com/futig/nelson-backend/internal/entity"
)

// LLMConnector is the text-generation backend.
type LLMConnector interface {
	Complete(ctx context.Context, req *entity.CompletionRequest) (*entity.Completion, error)
	// Stream calls onDelta for every text fragment as it arrives and returns
	// the accumulated completion. An error from onDelta aborts the stream.
	Stream(ctx context.Context, req *entity.CompletionRequest, onDelta func(string) error) (*entity.Completion, error)
}
