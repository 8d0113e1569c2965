package i18n

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalog(t *testing.T) {
	c := Default()
	assert.Equal(t, "Session Started", c.T("session.started.title"))
	assert.Equal(t, "I am not allowed to send messages in <#1>.", c.T("say.not_allowed", "<#1>"))
	assert.Equal(t, "no.such.key", c.T("no.such.key"))
}

func TestSessionKeysPresent(t *testing.T) {
	c := Default()
	for _, k := range []string{
		"session.timeout",
		"session.reference_failed",
		"session.reply_failed",
		"session.stop_button",
		"session.jump_message",
		"session.jump_top",
		"session.started.how.name",
		"session.started.stop.value",
		"session.stopped.title",
		"session.stopped.description",
	} {
		assert.True(t, c.Has(k), k)
	}
}

func TestLoadOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fr.yaml")
	require.NoError(t, os.WriteFile(path, []byte("session:\n  timeout: \"Session expirée.\"\n"), 0o644))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Session expirée.", c.T("session.timeout"))
	assert.Equal(t, "End Session", c.T("session.stop_button"))
	assert.Equal(t, "Request timed out. Session closed.", Default().T("session.timeout"))
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Parse([]byte("a: [unclosed"))
	assert.Error(t, err)
}
