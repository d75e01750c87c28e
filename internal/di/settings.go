package di

import (
	"fmt"
	"regexp"

	"github.com/mikey/chatguard/internal/config"
	"github.com/mikey/chatguard/internal/core"
	"github.com/mikey/chatguard/internal/mute"
	"github.com/mikey/chatguard/internal/pipeline"
)

// NewPipelineSettings converts configuration into pipeline settings
func NewPipelineSettings(cfg *config.Config) (pipeline.Settings, error) {
	messages := cfg.GetMessages()

	applyOn := make(map[core.Category]bool, len(messages.ApplyOn))
	for _, name := range messages.ApplyOn {
		c, ok := core.ParseCategory(name)
		if !ok || !c.IsBroadcast() {
			return pipeline.Settings{}, fmt.Errorf("messages.apply_on: unknown message type %q", name)
		}
		applyOn[c] = true
	}

	colorsApplyOn := make(map[core.Surface]bool, len(messages.ColorsApplyOn))
	for _, name := range messages.ColorsApplyOn {
		switch s := core.Surface(name); s {
		case core.SurfaceChat, core.SurfaceSign, core.SurfaceAnvil:
			colorsApplyOn[s] = true
		default:
			return pipeline.Settings{}, fmt.Errorf("colors.apply_on: unknown surface %q", name)
		}
	}

	signCheckMode, err := cfg.GetSignCheckMode()
	if err != nil {
		return pipeline.Settings{}, err
	}
	sessionCfg, err := cfg.GetSession()
	if err != nil {
		return pipeline.Settings{}, err
	}

	antibot := cfg.GetAntibot()
	names := make([]*regexp.Regexp, 0, len(antibot.DisallowedUsernames))
	for _, pattern := range antibot.DisallowedUsernames {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return pipeline.Settings{}, fmt.Errorf("antibot.disallowed_usernames: %w", err)
		}
		names = append(names, re)
	}

	auth := cfg.GetAuth()
	return pipeline.Settings{
		ApplyOn:                    applyOn,
		ColorsApplyOn:              colorsApplyOn,
		SignCheckMode:              signCheckMode,
		DelayJoinUntilLogged:       auth.DelayJoinUntilLogged,
		HideQuitIfNotLogged:        auth.HideQuitIfNotLogged,
		ClearOnExit:                sessionCfg.ClearOnExit,
		DisallowedUsernames:        names,
		DisallowedUsernameCommands: antibot.DisallowedUsernameCommands,
		StuckLoadAfter:             sessionCfg.StuckLoadAfter,
	}, nil
}

// NewMuteSettings converts configuration into mute gate settings
func NewMuteSettings(cfg *config.Config) mute.Settings {
	m := cfg.GetMute()
	return mute.Settings{
		HideJoins:          m.HideJoins,
		HideQuits:          m.HideQuits,
		HideDeaths:         m.HideDeaths,
		PreventChat:        m.PreventChat,
		PreventSigns:       m.PreventSigns,
		PreventAnvil:       m.PreventAnvil,
		PreventMail:        m.PreventMail,
		SoftHide:           m.SoftHide,
		BlockSameTextSigns: cfg.GetAntibot().BlockSameTextSigns,
	}
}
