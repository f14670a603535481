package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/smazurov/livewatch/internal/api/models"
)

func (s *Server) registerSystemdRoutes() {
	if s.options.Systemd == nil || s.options.SystemdUnit == "" {
		return
	}

	unit := s.options.SystemdUnit

	huma.Register(s.api, huma.Operation{
		OperationID: "get-systemd-status",
		Method:      http.MethodGet,
		Path:        "/api/systemd/status",
		Summary:     "Unit Status",
		Description: "Get the systemd state of the livewatch unit",
		Tags:        []string{"systemd"},
		Security:    withAuth(),
		Errors:      []int{401, 500},
	}, func(ctx context.Context, _ *struct{}) (*models.SystemdUnitStatusResponse, error) {
		active, sub, err := s.options.Systemd.UnitStatus(ctx, unit)
		if err != nil {
			return nil, huma.Error500InternalServerError("Failed to get unit status", err)
		}
		return &models.SystemdUnitStatusResponse{
			Body: models.SystemdUnitStatus{
				Unit:     unit,
				Active:   active,
				SubState: sub,
			},
		}, nil
	})
}
