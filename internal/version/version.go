// Package version holds build metadata, overridable with -ldflags.
package version

var (
	AppName     = "say-relay"
	Version     = "dev"
	Description = "Speak through the bot: relay messages, files and mentions, or run an interactive DM session bound to a channel."
	Repository  = "https://github.com/keshon/say-relay"
)
