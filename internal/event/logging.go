package event

import (
	"context"
	"log/slog"
)

// SubscribeLogging attaches an audit log handler for every event type the
// engines publish. Handlers never fail, so logging subscribers cannot block
// or abort the publishing operation.
func SubscribeLogging(bus Bus, log *slog.Logger) {
	bus.Subscribe(ToolBroken, func(ctx context.Context, e Event) error {
		if p, ok := e.Payload.(ToolBrokenPayloadV1); ok {
			log.InfoContext(ctx, "Tool broken",
				"tool_id", p.ToolID,
				"tool_type", p.ToolType,
				"owner", p.Owner,
				"session_id", p.SessionID,
			)
		}
		return nil
	})

	bus.Subscribe(SessionPaused, func(ctx context.Context, e Event) error {
		if p, ok := e.Payload.(SessionPausedPayloadV1); ok {
			log.InfoContext(ctx, "Session paused",
				"session_id", p.SessionID,
				"user_id", p.UserID,
				"forced", p.Forced,
			)
		}
		return nil
	})

	bus.Subscribe(SessionCompleted, func(ctx context.Context, e Event) error {
		if p, ok := e.Payload.(SessionCompletedPayloadV1); ok {
			log.InfoContext(ctx, "Session completed",
				"session_id", p.SessionID,
				"user_id", p.UserID,
				"accumulated_output", p.AccumulatedOutput,
				"accumulated_tax", p.AccumulatedTax,
			)
		}
		return nil
	})

	bus.Subscribe(SynthesisCompleted, func(ctx context.Context, e Event) error {
		if p, ok := e.Payload.(SynthesisCompletedPayloadV1); ok {
			log.InfoContext(ctx, "Synthesis completed",
				"user_id", p.UserID,
				"output", p.Output,
				"attempted", p.Attempted,
				"succeeded", p.Succeeded,
			)
		}
		return nil
	})
}
