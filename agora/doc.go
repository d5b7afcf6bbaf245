// Package agora implements a per-guild Discord community bot. Each
// guild the bot joins gets an isolated set of features (slash
// commands, buttons, background schedules) backed by a single JSON
// document per guild, fronted by a dirty-tracking write-back cache.
package agora
