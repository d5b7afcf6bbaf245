package agora

// Feature is one self-contained unit of guild functionality. A
// feature's name doubles as its document namespace, so names must be
// unique within a guild; newBot panics on duplicates.
type Feature interface {
	// Name returns the feature's registration name and document
	// namespace.
	Name() string

	// Register wires the feature's slash commands, components and
	// event handlers into its Bot.
	Register() error

	// Close cancels any background work the feature owns. Called on
	// guild teardown and process shutdown.
	Close()
}

// FeatureBuilder pairs a feature name with its constructor. Builders
// run in order at guild startup; the explicit list replaces any
// reflection-driven discovery.
type FeatureBuilder struct {
	Name  string
	Build func(b *Bot) Feature
}

// DefaultFeatureBuilders returns the standard feature set, in
// registration order.
func DefaultFeatureBuilders() []FeatureBuilder {
	return []FeatureBuilder{
		{Name: beRealFeatureName, Build: func(b *Bot) Feature { return newBeRealFeature(b) }},
		{Name: pingFeatureName, Build: func(b *Bot) Feature { return newPingFeature(b) }},
		{Name: welcomeFeatureName, Build: func(b *Bot) Feature { return newWelcomeFeature(b) }},
		{Name: settingsFeatureName, Build: func(b *Bot) Feature { return newSettingsFeature(b) }},
	}
}
