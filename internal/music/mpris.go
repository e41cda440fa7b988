package music

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/rs/zerolog"
)

const (
	mprisPath        = dbus.ObjectPath("/org/mpris/MediaPlayer2")
	mprisBusPrefix   = "org.mpris.MediaPlayer2."
	mprisPlayerIface = "org.mpris.MediaPlayer2.Player"
	propertiesIface  = "org.freedesktop.DBus.Properties"
	propertiesSignal = propertiesIface + ".PropertiesChanged"
)

// MPRISSource listens for MPRIS PropertiesChanged signals on the session
// bus and turns them into events.
type MPRISSource struct {
	player string // bus name suffix; empty follows any player
	logger zerolog.Logger
}

// NewMPRISSource creates a source for the player whose bus name is
// org.mpris.MediaPlayer2.<player>. An empty player follows any MPRIS player.
func NewMPRISSource(player string, logger zerolog.Logger) *MPRISSource {
	return &MPRISSource{
		player: player,
		logger: logger.With().Str("component", "mpris").Logger(),
	}
}

// Subscribe connects to the session bus, emits the player's current state
// and then one event per PropertiesChanged signal.
func (m *MPRISSource) Subscribe(ctx context.Context) (Subscription, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to session bus: %w", err)
	}

	opts := []dbus.MatchOption{
		dbus.WithMatchObjectPath(mprisPath),
		dbus.WithMatchInterface(propertiesIface),
		dbus.WithMatchMember("PropertiesChanged"),
	}
	if err := conn.AddMatchSignal(opts...); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to add match rule: %w", err)
	}

	signals := make(chan *dbus.Signal, 16)
	conn.Signal(signals)

	cleanup := func() error {
		conn.RemoveSignal(signals)
		_ = conn.RemoveMatchSignal(opts...)
		return conn.Close()
	}

	produce := func(ctx context.Context, emit func(Event) bool) {
		m.run(ctx, conn, signals, emit)
	}
	return startSubscription(ctx, 4, produce, cleanup), nil
}

func (m *MPRISSource) run(ctx context.Context, conn *dbus.Conn, signals <-chan *dbus.Signal, emit func(Event) bool) {
	var st mprisState

	// Initial snapshot so a track already playing is picked up.
	if name, err := m.findPlayer(conn); err != nil {
		m.logger.Debug().Err(err).Msg("No MPRIS player found")
	} else {
		st.busName = name
		if owner, err := nameOwner(conn, name); err == nil {
			st.owner = owner
		}
		if err := st.load(conn.Object(name, mprisPath)); err != nil {
			m.logger.Debug().Err(err).Str("player", name).Msg("Failed to read player properties")
		} else if !emit(st.event()) {
			return
		}
	}

	for {
		select {
		case <-ctx.Done():
			m.logger.Info().Msg("MPRIS listener stopped")
			return
		case sig, ok := <-signals:
			if !ok {
				return
			}
			changed, ok := playerProperties(sig)
			if !ok || !m.accept(conn, &st, sig.Sender) {
				continue
			}
			st.merge(changed)
			ev := st.event()
			m.logger.Debug().
				Str("track", ev.Title).
				Str("artist", ev.Artist).
				Str("state", ev.State.String()).
				Msg("Player update")
			if !emit(ev) {
				return
			}
		}
	}
}

// accept reports whether a signal from sender belongs to the followed
// player, adopting a new player when none is pinned.
func (m *MPRISSource) accept(conn *dbus.Conn, st *mprisState, sender string) bool {
	if st.owner != "" && sender == st.owner {
		return true
	}

	if m.player != "" {
		// The pinned player may have (re)started since the last check.
		owner, err := nameOwner(conn, mprisBusPrefix+m.player)
		if err != nil || owner != sender {
			return false
		}
		st.reset(mprisBusPrefix+m.player, owner)
		return true
	}

	name, err := busNameFor(conn, sender)
	if err != nil {
		return false
	}
	st.reset(name, sender)
	return true
}

// findPlayer resolves the bus name to follow.
func (m *MPRISSource) findPlayer(conn *dbus.Conn) (string, error) {
	if m.player != "" {
		return mprisBusPrefix + m.player, nil
	}

	var names []string
	if err := conn.BusObject().Call("org.freedesktop.DBus.ListNames", 0).Store(&names); err != nil {
		return "", fmt.Errorf("failed to list bus names: %w", err)
	}
	for _, n := range names {
		if strings.HasPrefix(n, mprisBusPrefix) {
			return n, nil
		}
	}
	return "", fmt.Errorf("no bus name with prefix %s", mprisBusPrefix)
}

// busNameFor finds the MPRIS well-known name owned by a unique name.
func busNameFor(conn *dbus.Conn, unique string) (string, error) {
	var names []string
	if err := conn.BusObject().Call("org.freedesktop.DBus.ListNames", 0).Store(&names); err != nil {
		return "", err
	}
	for _, n := range names {
		if !strings.HasPrefix(n, mprisBusPrefix) {
			continue
		}
		if owner, err := nameOwner(conn, n); err == nil && owner == unique {
			return n, nil
		}
	}
	return "", fmt.Errorf("%s owns no MPRIS name", unique)
}

func nameOwner(conn *dbus.Conn, name string) (string, error) {
	var owner string
	err := conn.BusObject().Call("org.freedesktop.DBus.GetNameOwner", 0, name).Store(&owner)
	return owner, err
}

// playerProperties extracts the changed properties from a
// PropertiesChanged signal for the Player interface.
func playerProperties(sig *dbus.Signal) (map[string]dbus.Variant, bool) {
	if sig == nil || sig.Name != propertiesSignal || sig.Path != mprisPath || len(sig.Body) < 2 {
		return nil, false
	}
	iface, ok := sig.Body[0].(string)
	if !ok || iface != mprisPlayerIface {
		return nil, false
	}
	changed, ok := sig.Body[1].(map[string]dbus.Variant)
	return changed, ok
}

// mprisState accumulates the last known properties of one player, since
// PropertiesChanged only carries what changed.
type mprisState struct {
	busName  string
	owner    string
	status   string
	metadata map[string]dbus.Variant
	position time.Duration
	hasPos   bool
}

func (s *mprisState) reset(busName, owner string) {
	*s = mprisState{busName: busName, owner: owner}
}

func (s *mprisState) load(obj dbus.BusObject) error {
	status, err := obj.GetProperty(mprisPlayerIface + ".PlaybackStatus")
	if err != nil {
		return err
	}
	changed := map[string]dbus.Variant{"PlaybackStatus": status}

	if md, err := obj.GetProperty(mprisPlayerIface + ".Metadata"); err == nil {
		changed["Metadata"] = md
	}
	if pos, err := obj.GetProperty(mprisPlayerIface + ".Position"); err == nil {
		changed["Position"] = pos
	}
	s.merge(changed)
	return nil
}

func (s *mprisState) merge(changed map[string]dbus.Variant) {
	if v, ok := changed["PlaybackStatus"]; ok {
		if status, ok := v.Value().(string); ok {
			s.status = status
		}
	}
	if v, ok := changed["Metadata"]; ok {
		if md, ok := v.Value().(map[string]dbus.Variant); ok {
			s.metadata = md
			// A new track starts from its own position.
			s.hasPos = false
		}
	}
	if v, ok := changed["Position"]; ok {
		if us, ok := int64Value(v.Value()); ok {
			s.position = time.Duration(us) * time.Microsecond
			s.hasPos = true
		}
	}
}

// event builds the current Event. A position is reported once: players do
// not announce Position in PropertiesChanged, so later events would
// otherwise repeat a stale value.
func (s *mprisState) event() Event {
	n := metadataNotification(s.metadata)
	n.PlayerState = s.status
	n.Position = s.position
	n.HasPosition = s.hasPos
	n.Player = s.busName
	s.hasPos = false
	return Normalize(n)
}

// metadataNotification maps xesam/mpris metadata onto a Notification.
func metadataNotification(md map[string]dbus.Variant) Notification {
	var n Notification
	if v, ok := md["xesam:title"]; ok {
		n.Name, _ = v.Value().(string)
	}
	if v, ok := md["xesam:artist"]; ok {
		switch a := v.Value().(type) {
		case []string:
			n.Artist = strings.Join(a, ", ")
		case string:
			n.Artist = a
		}
	}
	if v, ok := md["xesam:album"]; ok {
		n.Album, _ = v.Value().(string)
	}
	if v, ok := md["mpris:length"]; ok {
		if us, ok := int64Value(v.Value()); ok && us > 0 {
			n.TotalTimeMs = us / 1000
		}
	}
	return n
}

func int64Value(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case uint64:
		return int64(n), true
	case int32:
		return int64(n), true
	case uint32:
		return int64(n), true
	case float64:
		return int64(n), true
	}
	return 0, false
}
