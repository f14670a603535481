// Package models defines the request and response bodies of the HTTP API.
package models

import (
	"time"

	"github.com/smazurov/livewatch/internal/events"
)

// Health check models
type HealthData struct {
	Status  string `json:"status" example:"ok" doc:"Service status"`
	Message string `json:"message" example:"ffmpeg running" doc:"Status message"`
}

type HealthResponse struct {
	Body HealthData
}

// Supervisor status models
type ExitData struct {
	Code        int       `json:"code" example:"1" doc:"Exit code, -1 when killed by a signal or never started"`
	Signal      string    `json:"signal,omitempty" example:"killed" doc:"Terminating signal, if any"`
	SpawnFailed bool      `json:"spawn_failed" doc:"The process could not be started"`
	Error       string    `json:"error,omitempty" doc:"Spawn or wait error"`
	At          time.Time `json:"at" doc:"When the exit was observed"`
}

type StatusData struct {
	State         string                `json:"state" example:"running" enum:"idle,starting,running,restart_pending,shutting_down" doc:"Supervisor state"`
	PID           int                   `json:"pid,omitempty" example:"4242" doc:"PID of the live child"`
	Launches      int                   `json:"launches" example:"3" doc:"Launch attempts so far"`
	Restarts      int                   `json:"restarts" example:"2" doc:"Restarts scheduled so far"`
	StartedAt     *time.Time            `json:"started_at,omitempty" doc:"When the live child started"`
	UptimeSeconds float64               `json:"uptime_seconds" example:"3600" doc:"Seconds the live child has been running"`
	LastExit      *ExitData             `json:"last_exit,omitempty" doc:"Most recent child exit"`
	Progress      *events.ProgressEvent `json:"progress,omitempty" doc:"Latest FFmpeg progress report of the live child"`
}

type StatusResponse struct {
	Body StatusData
}

type RestartData struct {
	Accepted bool   `json:"accepted" example:"true" doc:"Whether the restart request was queued"`
	Message  string `json:"message" example:"ffmpeg will be interrupted and relaunched"`
}

type RestartResponse struct {
	Body RestartData
}

// Version models
type VersionData struct {
	Version   string `json:"version" example:"dev" doc:"Application version"`
	GitCommit string `json:"git_commit" example:"abc1234" doc:"Git commit SHA"`
	BuildDate string `json:"build_date" example:"2024-12-15 14:30" doc:"Build timestamp"`
	GoVersion string `json:"go_version" example:"go1.21.0" doc:"Go compiler version"`
	Platform  string `json:"platform" example:"linux/amd64" doc:"Platform"`
}

type VersionResponse struct {
	Body VersionData
}
