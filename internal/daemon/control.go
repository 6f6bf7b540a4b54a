package daemon

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"

	"marquee/internal/stack"
	"marquee/internal/store"
)

const (
	// ControlInterface is the daemon control interface name.
	ControlInterface = "dev.marquee.Control"
	// ControlPath is the control object path.
	ControlPath = "/dev/marquee/Control"
	// ControlBusName is the bus name the daemon claims.
	ControlBusName = "dev.marquee.Marqueed"
)

// Control exports the daemon's control surface on the session bus. The
// marquee CLI is its only intended client.
type Control struct {
	mu     sync.Mutex
	logger *slog.Logger

	daemon  *Daemon
	conn    *dbus.Conn
	running bool
}

// NewControl creates the control service for the daemon.
func NewControl(d *Daemon, logger *slog.Logger) *Control {
	if logger == nil {
		logger = slog.Default()
	}
	return &Control{logger: logger, daemon: d}
}

// Start connects to the session bus and exports the control object.
func (c *Control) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return fmt.Errorf("control service already running")
	}

	conn, err := dbus.SessionBus()
	if err != nil {
		return fmt.Errorf("failed to connect to session bus: %w", err)
	}
	c.conn = conn

	if err := conn.Export(c, ControlPath, ControlInterface); err != nil {
		return fmt.Errorf("failed to export control object: %w", err)
	}

	node := &introspect.Node{
		Name: ControlPath,
		Interfaces: []introspect.Interface{
			introspect.IntrospectData,
			{
				Name:    ControlInterface,
				Methods: controlMethods(),
			},
		},
	}
	if err := conn.Export(introspect.NewIntrospectable(node), ControlPath,
		"org.freedesktop.DBus.Introspectable"); err != nil {
		return fmt.Errorf("failed to export introspectable: %w", err)
	}

	reply, err := conn.RequestName(ControlBusName, dbus.NameFlagDoNotQueue)
	if err != nil {
		return fmt.Errorf("failed to request bus name: %w", err)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		return fmt.Errorf("bus name %s already taken, is marqueed already running?", ControlBusName)
	}

	c.running = true
	c.logger.Info("control service started", "interface", ControlInterface, "path", ControlPath)
	return nil
}

// Stop releases the bus name. The shared session connection stays open.
func (c *Control) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running {
		return nil
	}
	c.running = false

	if c.conn != nil {
		if _, err := c.conn.ReleaseName(ControlBusName); err != nil {
			c.logger.Warn("failed to release bus name", "error", err)
		}
	}
	return nil
}

// Dismiss force-closes the banner with the given id.
func (c *Control) Dismiss(id string) *dbus.Error {
	c.daemon.Dismiss(id)
	return nil
}

// DismissLast force-closes the newest banner.
func (c *Control) DismissLast() *dbus.Error {
	c.daemon.Dismiss(stack.DismissLast)
	return nil
}

// DismissAll force-closes every active banner.
func (c *Control) DismissAll() *dbus.Error {
	c.daemon.DismissAll()
	return nil
}

// SetDnD enables or disables do-not-disturb.
func (c *Control) SetDnD(enabled bool) *dbus.Error {
	reason := "dnd off"
	if enabled {
		reason = "dnd on"
	}
	c.daemon.SetDnD(enabled, store.DnDTriggerUser, reason, "dbus")
	return nil
}

// ToggleDnD flips do-not-disturb and returns the new state.
func (c *Control) ToggleDnD() (bool, *dbus.Error) {
	return c.daemon.ToggleDnD(store.DnDTriggerUser, "dnd toggle", "dbus"), nil
}

// GetDnD returns the current do-not-disturb state.
func (c *Control) GetDnD() (bool, *dbus.Error) {
	return c.daemon.DnDEnabled(), nil
}

// Send creates a banner from the given body text, for testing config and
// rules. scrolls > 0 overrides the configured scroll count.
func (c *Control) Send(body string, scrolls int32) *dbus.Error {
	if err := c.daemon.SendTest(body, int(scrolls)); err != nil {
		return dbus.MakeFailedError(err)
	}
	return nil
}

// ShowLast replays the most recent notification.
func (c *Control) ShowLast() *dbus.Error {
	if err := c.daemon.ShowLast(); err != nil {
		return dbus.MakeFailedError(err)
	}
	return nil
}

// Status returns the daemon status as a JSON document.
func (c *Control) Status() (string, *dbus.Error) {
	data, err := json.Marshal(c.daemon.Status())
	if err != nil {
		return "", dbus.MakeFailedError(err)
	}
	return string(data), nil
}

func controlMethods() []introspect.Method {
	return []introspect.Method{
		{
			Name: "Dismiss",
			Args: []introspect.Arg{{Name: "id", Type: "s", Direction: "in"}},
		},
		{Name: "DismissLast"},
		{Name: "DismissAll"},
		{
			Name: "SetDnD",
			Args: []introspect.Arg{{Name: "enabled", Type: "b", Direction: "in"}},
		},
		{
			Name: "ToggleDnD",
			Args: []introspect.Arg{{Name: "enabled", Type: "b", Direction: "out"}},
		},
		{
			Name: "GetDnD",
			Args: []introspect.Arg{{Name: "enabled", Type: "b", Direction: "out"}},
		},
		{
			Name: "Send",
			Args: []introspect.Arg{
				{Name: "body", Type: "s", Direction: "in"},
				{Name: "scrolls", Type: "i", Direction: "in"},
			},
		},
		{Name: "ShowLast"},
		{
			Name: "Status",
			Args: []introspect.Arg{{Name: "status", Type: "s", Direction: "out"}},
		},
	}
}
