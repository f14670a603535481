package models

// SystemdUnitStatus contains the state of the unit livewatch runs under.
type SystemdUnitStatus struct {
	Unit     string `json:"unit" example:"livewatch.service" doc:"Unit name"`
	Active   string `json:"active" example:"active" doc:"ActiveState (active, inactive, failed, etc.)"`
	SubState string `json:"sub_state" example:"running" doc:"SubState"`
}

// SystemdUnitStatusResponse wraps SystemdUnitStatus for API responses.
type SystemdUnitStatusResponse struct {
	Body SystemdUnitStatus
}
