package agora

import (
	"strconv"

	"github.com/bwmarrin/discordgo"
	"github.com/lmittmann/tint"
)

const settingsFeatureName = "settings"

// SettingsFeature exposes /settings for toggling features, writing
// raw namespace keys, resetting a feature's namespace, and switching
// the guild's language.
type SettingsFeature struct {
	bot *Bot
}

func newSettingsFeature(b *Bot) *SettingsFeature {
	return &SettingsFeature{bot: b}
}

func (f *SettingsFeature) Name() string {
	return settingsFeatureName
}

func (f *SettingsFeature) Close() {}

func (f *SettingsFeature) Register() error {
	lang := f.bot.Language()
	featureOption := &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        "feature",
		Description: "Feature name",
		Required:    true,
	}
	def := &discordgo.ApplicationCommand{
		Name:        settingsFeatureName,
		Description: lang.Translate("feature.settings.command.desc"),
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "enable",
				Description: "Enable a feature",
				Options:     []*discordgo.ApplicationCommandOption{featureOption},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "disable",
				Description: "Disable a feature",
				Options:     []*discordgo.ApplicationCommandOption{featureOption},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "set",
				Description: "Set a raw feature value",
				Options: []*discordgo.ApplicationCommandOption{
					featureOption,
					{
						Type:        discordgo.ApplicationCommandOptionString,
						Name:        "key",
						Description: "Key to set",
						Required:    true,
					},
					{
						Type:        discordgo.ApplicationCommandOptionString,
						Name:        "value",
						Description: "Value (bool, number or string)",
						Required:    true,
					},
				},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "reset",
				Description: "Reset a feature to defaults",
				Options:     []*discordgo.ApplicationCommandOption{featureOption},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "language",
				Description: "Set the server language",
				Options: []*discordgo.ApplicationCommandOption{
					{
						Type:        discordgo.ApplicationCommandOptionString,
						Name:        "lang",
						Description: "Language name",
						Required:    true,
					},
				},
			},
		},
	}
	return f.bot.RegisterSlashCommand(def, f.handleCommand)
}

// Enable flips a feature's enabled flag, reporting false for unknown
// feature names.
func (f *SettingsFeature) Enable(feature string, enabled bool) bool {
	if !f.bot.HasFeature(feature) {
		return false
	}
	f.bot.data.Set(feature, "enabled", BoolValue(enabled))
	return true
}

// SetRaw parses a scalar string into the closest Value shape and
// writes it to a feature's namespace.
func (f *SettingsFeature) SetRaw(feature string, key string, raw string) bool {
	if !f.bot.HasFeature(feature) {
		return false
	}
	f.bot.data.Set(feature, key, parseScalar(raw))
	return true
}

// Reset clears a feature's entire namespace.
func (f *SettingsFeature) Reset(feature string) bool {
	if !f.bot.HasFeature(feature) {
		return false
	}
	f.bot.data.DeleteNamespace(feature)
	return true
}

func (f *SettingsFeature) handleCommand(
	s DiscordSessionHandler,
	i *discordgo.InteractionCreate,
) {
	lang := f.bot.Language()
	data := i.ApplicationCommandData()
	if len(data.Options) == 0 {
		return
	}
	sub := data.Options[0]
	options := map[string]string{}
	for _, opt := range sub.Options {
		options[opt.Name] = opt.StringValue()
	}
	feature := options["feature"]

	var description string
	ok := true
	switch sub.Name {
	case "enable":
		ok = f.Enable(feature, true)
		description = lang.Translate("feature.settings.enable.success", feature)
	case "disable":
		ok = f.Enable(feature, false)
		description = lang.Translate("feature.settings.disable.success", feature)
	case "set":
		ok = f.SetRaw(feature, options["key"], options["value"])
		description = lang.Translate(
			"feature.settings.set.success", feature, options["key"],
		)
	case "reset":
		ok = f.Reset(feature)
		description = lang.Translate("feature.settings.reset.success", feature)
	case "language":
		f.bot.data.Set(languageNamespace, "lang", StringValue(options["lang"]))
		description = lang.Translate(
			"feature.settings.set.success", languageNamespace, "lang",
		)
	default:
		return
	}

	color := colorSuccess
	if !ok {
		color = colorDanger
		description = lang.Translate(
			"feature.settings.error.unknown_feature", feature,
		)
	}
	if err := respondEphemeralEmbed(s, i, color, "", description); err != nil {
		f.bot.logger.Warn("error responding to settings command", tint.Err(err))
	}
}

// parseScalar maps a raw option string to the closest document value:
// bools, then integers, then floats, then plain strings.
func parseScalar(raw string) Value {
	if raw == "true" {
		return BoolValue(true)
	}
	if raw == "false" {
		return BoolValue(false)
	}
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return IntValue(n)
	}
	if fl, err := strconv.ParseFloat(raw, 64); err == nil {
		return FloatValue(fl)
	}
	return StringValue(raw)
}
