package di

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mikey/chatguard/internal/adapters/store"
	"github.com/mikey/chatguard/internal/adapters/transport"
	"github.com/mikey/chatguard/internal/config"
	"github.com/mikey/chatguard/internal/core"
	"github.com/mikey/chatguard/internal/pipeline"
	"github.com/mikey/chatguard/internal/rules"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) ConfigFile {
	t.Helper()
	file := filepath.Join(t.TempDir(), "chatguard.yaml")
	require.NoError(t, os.WriteFile(file, []byte(body), 0o600))
	return ConfigFile(file)
}

func TestBuildContainer(t *testing.T) {
	file := writeConfig(t, `
server:
  transport: stdio
metrics:
  enabled: false
rules:
  list:
    - name: swear
      match: darn
      replace: "****"
`)

	container, err := BuildContainer(file)
	require.NoError(t, err)

	err = container.Invoke(func(mod *pipeline.Moderator, tr transport.Transport, engine *rules.Engine, st store.Store, classifier core.Classifier) {
		defer st.Stop()

		assert.NotNil(t, mod)
		assert.IsType(t, &transport.LineTransport{}, tr)
		assert.Equal(t, 1, engine.RuleCount())
		assert.Nil(t, classifier)
	})
	require.NoError(t, err)
}

func TestBuildContainerRejectsBadRules(t *testing.T) {
	file := writeConfig(t, `
rules:
  list:
    - name: broken
      match: "("
`)

	container, err := BuildCheckContainer(file, false, false)
	require.NoError(t, err)

	err = container.Invoke(func(*rules.Engine) {})
	assert.ErrorContains(t, err, "failed to compile rules")
}

func TestClassifierRulesNeedProvider(t *testing.T) {
	file := writeConfig(t, `
rules:
  list:
    - name: toxic
      type: classifier
      prompt: the message insults another player
`)

	container, err := BuildCheckContainer(file, false, false)
	require.NoError(t, err)

	err = container.Invoke(func(*rules.Engine) {})
	assert.ErrorContains(t, err, "need an llm provider")
}

func TestNewPipelineSettings(t *testing.T) {
	v := config.NewEmptyViper()
	v.Set("messages.apply_on", []string{"join", "death"})
	v.Set("colors.apply_on", []string{"sign"})
	v.Set("antibot.disallowed_usernames", []string{"^bot"})
	v.Set("auth.delay_join_until_logged", true)

	settings, err := NewPipelineSettings(config.NewFromViper(v))
	require.NoError(t, err)
	assert.Equal(t, map[core.Category]bool{core.CategoryJoin: true, core.CategoryDeath: true}, settings.ApplyOn)
	assert.Equal(t, map[core.Surface]bool{core.SurfaceSign: true}, settings.ColorsApplyOn)
	assert.Equal(t, rules.SignCheckBoth, settings.SignCheckMode)
	require.Len(t, settings.DisallowedUsernames, 1)
	assert.True(t, settings.DisallowedUsernames[0].MatchString("bot_42"))
	assert.True(t, settings.DelayJoinUntilLogged)
	assert.True(t, settings.ClearOnExit)
}

func TestNewPipelineSettingsErrors(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  interface{}
		want string
	}{
		{"chat is not a message", "messages.apply_on", []string{"chat"}, "messages.apply_on"},
		{"unknown surface", "colors.apply_on", []string{"book"}, "colors.apply_on"},
		{"bad username pattern", "antibot.disallowed_usernames", []string{"["}, "antibot.disallowed_usernames"},
		{"bad sign mode", "rules.sign_check_mode", 7, "sign_check_mode"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := config.NewEmptyViper()
			v.Set(tt.key, tt.val)

			_, err := NewPipelineSettings(config.NewFromViper(v))
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestNewMuteSettings(t *testing.T) {
	v := config.NewEmptyViper()
	v.Set("mute.soft_hide", true)
	v.Set("antibot.block_same_text_signs", false)

	s := NewMuteSettings(config.NewFromViper(v))
	assert.True(t, s.SoftHide)
	assert.True(t, s.PreventChat)
	assert.False(t, s.BlockSameTextSigns)
}
