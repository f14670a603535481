package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/sse"
	"github.com/smazurov/livewatch/internal/events"
)

// registerSSERoutes registers the native Huma SSE endpoint.
func (s *Server) registerSSERoutes() {
	if s.options.EventBus == nil {
		return
	}

	sse.Register(s.api, huma.Operation{
		OperationID: "events-stream",
		Method:      http.MethodGet,
		Path:        "/api/events",
		Summary:     "Server-Sent Events Stream",
		Description: "Real-time supervisor lifecycle and FFmpeg progress events",
		Tags:        []string{"events"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, map[string]any{
		"state-changed":     events.StateChangedEvent{},
		"child-started":     events.ChildStartedEvent{},
		"child-exited":      events.ChildExitedEvent{},
		"restart-scheduled": events.RestartScheduledEvent{},
		"progress":          events.ProgressEvent{},
	}, func(ctx context.Context, _ *struct{}, send sse.Sender) {
		eventCh := make(chan any, 32)

		unsubscribers := []func(){
			events.SubscribeToChannel[events.StateChangedEvent](s.options.EventBus, eventCh),
			events.SubscribeToChannel[events.ChildStartedEvent](s.options.EventBus, eventCh),
			events.SubscribeToChannel[events.ChildExitedEvent](s.options.EventBus, eventCh),
			events.SubscribeToChannel[events.RestartScheduledEvent](s.options.EventBus, eventCh),
			events.SubscribeToChannel[events.ProgressEvent](s.options.EventBus, eventCh),
		}
		defer func() {
			for _, unsub := range unsubscribers {
				unsub()
			}
		}()

		// Current state first, so clients need not poll /api/status
		st := s.options.Supervisor.Status()
		if err := send.Data(events.StateChangedEvent{From: st.State.String(), To: st.State.String()}); err != nil {
			return
		}

		for {
			select {
			case <-ctx.Done():
				return
			case event := <-eventCh:
				if err := send.Data(event); err != nil {
					return
				}
			}
		}
	})
}
