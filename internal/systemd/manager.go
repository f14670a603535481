package systemd

import (
	"context"

	"github.com/coreos/go-systemd/v22/dbus"
)

// Manager reads unit state over D-Bus.
type Manager struct {
	conn *dbus.Conn
}

// NewManager connects to the system bus, or the user bus when user is true.
func NewManager(ctx context.Context, user bool) (*Manager, error) {
	connect := dbus.NewSystemConnectionContext
	if user {
		connect = dbus.NewUserConnectionContext
	}
	conn, err := connect(ctx)
	if err != nil {
		return nil, err
	}
	return &Manager{conn: conn}, nil
}

// UnitStatus returns the ActiveState and SubState of a unit, e.g. "active" and "running".
func (m *Manager) UnitStatus(ctx context.Context, unit string) (active, sub string, err error) {
	props, err := m.conn.GetUnitPropertiesContext(ctx, unit)
	if err != nil {
		return "", "", err
	}
	active, _ = props["ActiveState"].(string)
	sub, _ = props["SubState"].(string)
	return active, sub, nil
}

// Close cleanly closes the D-Bus connection.
func (m *Manager) Close() {
	if m.conn != nil {
		m.conn.Close()
	}
}
