package session

import (
	"github.com/foxseedlab/jimaku/internal/config"
	"github.com/foxseedlab/jimaku/internal/discord"
	"github.com/foxseedlab/jimaku/internal/listener"
	"github.com/foxseedlab/jimaku/internal/process"
	"github.com/foxseedlab/jimaku/internal/repository"
	"github.com/foxseedlab/jimaku/internal/transcriber"
	"github.com/foxseedlab/jimaku/internal/translator"
	"github.com/foxseedlab/jimaku/internal/webhook"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*Controller, error) {
		cfg := do.MustInvoke[*config.Config](i)
		deps := Dependencies{
			Runner:      do.MustInvoke[process.Runner](i),
			Transcriber: do.MustInvoke[transcriber.Service](i),
			Detector:    do.MustInvoke[translator.Detector](i),
			Translator:  do.MustInvoke[translator.Translator](i),
			Analyzer:    do.MustInvoke[translator.Analyzer](i),
			Refusals:    do.MustInvoke[translator.RefusalMatcher](i),
			Repository:  do.MustInvoke[repository.Repository](i),
			Webhook:     do.MustInvoke[webhook.Sender](i),
		}
		if cfg.DiscordMirrorEnabled() {
			conn := discord.NewMirrorConn(do.MustInvoke[discord.Client](i), cfg.DiscordMirrorChannelID)
			deps.Mirrors = append(deps.Mirrors, Mirror{
				Settings: listener.Settings{
					ConnectionID:   conn.ConnectionID(),
					TargetLanguage: cfg.DiscordMirrorTargetLanguage,
					Style:          translator.Style(cfg.DiscordMirrorStyle),
				},
				Conn: conn,
			})
		}
		return NewController(cfg, deps), nil
	})
}
