package agora

import (
	"log/slog"
)

// DataHandler scopes document access to one guild. Features read and
// write scalar values inside their own namespace; every write routes
// through the Store, which marks the guild's cache record dirty.
//
// The namespace is an explicit parameter everywhere. Feature names
// double as namespace names, and uniqueness is validated when a
// guild's features are built (see newBot).
type DataHandler struct {
	guildID int64
	store   *Store
	logger  *slog.Logger
}

func NewDataHandler(guildID int64, store *Store, logger *slog.Logger) *DataHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &DataHandler{
		guildID: guildID,
		store:   store,
		logger:  logger.With(loggerNameKey, "data_handler", "guild_id", guildID),
	}
}

func (d *DataHandler) GuildID() int64 {
	return d.guildID
}

// Get returns the raw value at key within namespace, reporting false
// when either the namespace or the key is absent.
func (d *DataHandler) Get(namespace string, key string) (Value, bool) {
	return d.store.GetValue(d.guildID, namespace, key)
}

// Set writes a value into the namespace, creating it if needed, and
// marks the guild's document dirty.
func (d *DataHandler) Set(namespace string, key string, v Value) {
	d.store.SetValue(d.guildID, namespace, key, v)
}

// DeleteNamespace clears an entire namespace, for feature resets.
func (d *DataHandler) DeleteNamespace(namespace string) {
	d.store.DeleteNamespace(d.guildID, namespace)
}

// Int reads an integer value, tolerating numeric width changes from
// JSON round trips.
func (d *DataHandler) Int(namespace string, key string) (int64, bool) {
	v, ok := d.Get(namespace, key)
	if !ok {
		return 0, false
	}
	return v.AsInt()
}

// IntOr reads an integer value, falling back to def when the key is
// absent or holds a different shape.
func (d *DataHandler) IntOr(namespace string, key string, def int64) int64 {
	if n, ok := d.Int(namespace, key); ok {
		return n
	}
	return def
}

func (d *DataHandler) String(namespace string, key string) (string, bool) {
	v, ok := d.Get(namespace, key)
	if !ok {
		return "", false
	}
	return v.AsString()
}

func (d *DataHandler) StringOr(namespace string, key string, def string) string {
	if s, ok := d.String(namespace, key); ok {
		return s
	}
	return def
}

func (d *DataHandler) Bool(namespace string, key string) (bool, bool) {
	v, ok := d.Get(namespace, key)
	if !ok {
		return false, false
	}
	return v.AsBool()
}

func (d *DataHandler) BoolOr(namespace string, key string, def bool) bool {
	if b, ok := d.Bool(namespace, key); ok {
		return b
	}
	return def
}

func (d *DataHandler) StringSlice(namespace string, key string) []string {
	v, ok := d.Get(namespace, key)
	if !ok {
		return nil
	}
	s, _ := v.AsStringSlice()
	return s
}

func (d *DataHandler) IntMap(namespace string, key string) map[string]int64 {
	v, ok := d.Get(namespace, key)
	if !ok {
		return map[string]int64{}
	}
	m, ok := v.AsIntMap()
	if !ok {
		return map[string]int64{}
	}
	return m
}
