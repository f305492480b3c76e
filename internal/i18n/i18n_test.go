package i18n

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/barsik-modbot-go/internal/config"
)

func newTestLocalizer(t *testing.T) *Localizer {
	t.Helper()
	loc, err := NewLocalizer(&config.I18nConfig{
		DefaultLanguage: "en",
		Languages:       []string{"en", "ru"},
		Directory:       filepath.Join("..", "..", "configs", "i18n"),
	})
	require.NoError(t, err)
	return loc
}

func TestGet(t *testing.T) {
	loc := newTestLocalizer(t)

	t.Run("formats template data", func(t *testing.T) {
		msg := loc.Get("en", MsgWarned, map[string]interface{}{
			"User": "@offender", "Warnings": 2, "Limit": 3,
		})
		assert.Contains(t, msg, "2/3")
		assert.Contains(t, msg, "@offender")
	})

	t.Run("unknown language falls back to default", func(t *testing.T) {
		msg := loc.Get("de", MsgDefaultBanReason, nil)
		assert.Equal(t, "Group rules violation", msg)
	})

	t.Run("russian bundle is loaded", func(t *testing.T) {
		msg := loc.Get("ru", MsgDefaultWarnReason, nil)
		assert.Equal(t, "Предупреждение", msg)
	})

	t.Run("unknown message id falls back to the id", func(t *testing.T) {
		assert.Equal(t, "nope", loc.Get("en", "nope", nil))
	})
}
