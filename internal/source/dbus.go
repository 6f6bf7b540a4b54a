package source

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"

	"marquee/internal/model"
)

const notificationsInterface = "org.freedesktop.Notifications"

// DBusMonitor passively observes D-Bus notification traffic without
// claiming the org.freedesktop.Notifications name, so it runs alongside
// whatever notification daemon owns the desktop.
type DBusMonitor struct {
	mu     sync.Mutex
	logger *slog.Logger

	conn   *dbus.Conn
	title  string
	events chan model.Event

	done    chan struct{}
	stopped bool
}

// NewDBusMonitor creates a monitor filtered to the given title.
func NewDBusMonitor(title string, logger *slog.Logger) *DBusMonitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &DBusMonitor{
		logger: logger,
		title:  title,
		events: make(chan model.Event, eventBuffer),
		done:   make(chan struct{}),
	}
}

// Events returns the event channel.
func (m *DBusMonitor) Events() <-chan model.Event {
	return m.events
}

// SetTitle replaces the title filter.
func (m *DBusMonitor) SetTitle(title string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if title != m.title {
		m.logger.Info("title filter updated", "old", m.title, "new", title)
		m.title = title
	}
}

// Start connects to the session bus and begins monitoring Notify calls.
func (m *DBusMonitor) Start() error {
	conn, err := dbus.SessionBus()
	if err != nil {
		return fmt.Errorf("failed to connect to session bus: %w", err)
	}
	m.conn = conn

	rules := []string{
		"type='method_call',interface='" + notificationsInterface + "',member='Notify'",
	}
	err = conn.BusObject().Call(
		"org.freedesktop.DBus.Monitoring.BecomeMonitor",
		0,
		rules,
		uint32(0),
	).Err
	if err != nil {
		// BecomeMonitor needs a reasonably new dbus-daemon; fall back to
		// eavesdropping via match rules.
		m.logger.Warn("BecomeMonitor not available, trying AddMatch", "error", err)
		return m.startWithAddMatch()
	}

	m.logger.Info("monitoring notifications via BecomeMonitor")
	go m.processMessages()
	return nil
}

func (m *DBusMonitor) startWithAddMatch() error {
	matchRule := "type='method_call',interface='" + notificationsInterface + "',member='Notify',eavesdrop='true'"
	err := m.conn.BusObject().Call(
		"org.freedesktop.DBus.AddMatch",
		0,
		matchRule,
	).Err
	if err != nil {
		return fmt.Errorf("failed to add match rule (eavesdrop may require permissions): %w", err)
	}

	m.logger.Info("monitoring notifications via AddMatch with eavesdrop")
	go m.processMessages()
	return nil
}

// processMessages is the only goroutine that sends on events, so it
// owns the close.
func (m *DBusMonitor) processMessages() {
	defer close(m.events)

	ch := make(chan *dbus.Message, 100)
	m.conn.Eavesdrop(ch)

	for {
		select {
		case <-m.done:
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if msg.Type != dbus.TypeMethodCall {
				continue
			}
			if msg.Headers[dbus.FieldInterface].Value() != notificationsInterface {
				continue
			}
			if msg.Headers[dbus.FieldMember].Value() != "Notify" {
				continue
			}
			m.handleNotify(msg)
		}
	}
}

// handleNotify parses a Notify method call:
// Notify(app_name, replaces_id, app_icon, summary, body, actions, hints, expire_timeout)
func (m *DBusMonitor) handleNotify(msg *dbus.Message) {
	if len(msg.Body) < 8 {
		m.logger.Warn("malformed Notify call", "body_len", len(msg.Body))
		return
	}

	summary, ok := msg.Body[3].(string)
	if !ok {
		m.logger.Warn("invalid summary type")
		return
	}
	body, ok := msg.Body[4].(string)
	if !ok {
		m.logger.Warn("invalid body type")
		return
	}
	icon, _ := msg.Body[2].(string)

	if !m.matches(summary) {
		return
	}

	event := model.NewEvent(summary, body, icon, time.Now())
	if err := event.Validate(); err != nil {
		m.logger.Debug("dropping invalid notification", "error", err)
		return
	}

	m.logger.Debug("captured notification", "title", summary)
	m.emit(event)
}

func (m *DBusMonitor) matches(title string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.title == "" || m.title == title
}

// emit never blocks past Stop: with the buffer full and no consumer
// left, the send races the done signal instead of holding a lock.
func (m *DBusMonitor) emit(event model.Event) {
	select {
	case m.events <- event:
	case <-m.done:
	}
}

// Stop disconnects from the bus. The message goroutine closes the event
// channel on its way out.
func (m *DBusMonitor) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopped {
		return nil
	}
	m.stopped = true
	close(m.done)
	if m.conn != nil {
		return m.conn.Close()
	}
	return nil
}
