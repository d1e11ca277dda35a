package assistant

import (
	"context"
	"time"

	"github.com/futig/nelson-backend/internal/entity"
	"github.com/futig/nelson-backend/internal/pkg/logger"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

// AskQuestionStreaming runs the same pipeline as AskQuestion and reports it
// as progress markers and text deltas followed by exactly one final event.
// The channel is closed after the final event. Cancelling ctx stops the
// pipeline and closes the channel without a final event once the consumer
// is gone.
func (uc *AssistantUsecase) AskQuestionStreaming(ctx context.Context, req *entity.AskRequest) <-chan entity.StreamEvent {
	ctx = logger.WithAction(ctx, "ask_question_stream")
	events := make(chan entity.StreamEvent)

	emit := func(ev entity.StreamEvent) error {
		select {
		case events <- ev:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	go func() {
		defer close(events)

		start := time.Now()
		answer := uc.runRecovered(ctx, req, emit, start)
		if err := emit(entity.FinalEvent(answer)); err != nil {
			ctxzap.Info(ctx, "stream consumer gone before final answer", zap.Error(err))
		}
	}()

	return events
}

// runRecovered turns a panic in the pipeline into a failed answer so the
// stream still terminates with a final event.
func (uc *AssistantUsecase) runRecovered(ctx context.Context, req *entity.AskRequest, emit emitFunc, start time.Time) (answer *entity.GeneratedAnswer) {
	defer func() {
		if r := recover(); r != nil {
			ctxzap.Error(ctx, "panic in streaming pipeline", zap.Any("panic", r))
			sessionID := ""
			if req.SessionID != nil {
				sessionID = *req.SessionID
			}
			answer = uc.finish(uc.terminal(GenerationFailureMessage, entity.OutcomeFailed), sessionID, start)
		}
	}()
	return uc.run(ctx, req, emit)
}
