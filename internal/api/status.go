package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/smazurov/livewatch/internal/api/models"
	"github.com/smazurov/livewatch/internal/metrics"
	"github.com/smazurov/livewatch/internal/process"
)

func (s *Server) registerStatusRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "get-status",
		Method:      http.MethodGet,
		Path:        "/api/status",
		Summary:     "Supervisor Status",
		Description: "Current state, counters, last exit and FFmpeg progress",
		Tags:        []string{"supervisor"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, func(_ context.Context, _ *struct{}) (*models.StatusResponse, error) {
		return &models.StatusResponse{Body: statusToAPI(s.options.Supervisor.Status(), time.Now())}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID:   "restart-child",
		Method:        http.MethodPost,
		Path:          "/api/restart",
		Summary:       "Restart FFmpeg",
		Description:   "Interrupt the running child; it is relaunched after the usual restart delay",
		Tags:          []string{"supervisor"},
		Security:      withAuth(),
		DefaultStatus: http.StatusAccepted,
		Errors:        []int{401, 409},
	}, func(_ context.Context, _ *struct{}) (*models.RestartResponse, error) {
		if err := s.options.Supervisor.RequestRestart(); err != nil {
			if errors.Is(err, process.ErrShuttingDown) {
				return nil, huma.Error409Conflict("supervisor is shutting down")
			}
			return nil, huma.Error500InternalServerError("restart request failed", err)
		}
		return &models.RestartResponse{
			Body: models.RestartData{Accepted: true, Message: "ffmpeg will be interrupted and relaunched"},
		}, nil
	})
}

func statusToAPI(st process.Status, now time.Time) models.StatusData {
	data := models.StatusData{
		State:    st.State.String(),
		PID:      st.PID,
		Launches: st.Launches,
		Restarts: st.Restarts,
	}
	if !st.StartedAt.IsZero() {
		started := st.StartedAt
		data.StartedAt = &started
		data.UptimeSeconds = now.Sub(started).Seconds()
	}
	if st.LastExit != nil {
		exit := &models.ExitData{
			Code:        st.LastExit.Code,
			Signal:      st.LastExit.Signal,
			SpawnFailed: st.LastExit.SpawnFailed,
			At:          st.LastExitAt,
		}
		if st.LastExit.Err != nil {
			exit.Error = st.LastExit.Err.Error()
		}
		data.LastExit = exit
	}
	if st.State == process.StateRunning {
		data.Progress = metrics.GetProgress()
	}
	return data
}
