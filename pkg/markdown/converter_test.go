package markdown

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToTelegramHTML(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"plain text", "hello world", "hello world"},
		{"bold", "**banned**", "<b>banned</b>"},
		{"italic", "*muted*", "<i>muted</i>"},
		{"inline code", "`/ban`", "<code>/ban</code>"},
		{"list becomes bullets", "- one\n- two", "• one\n• two"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ToTelegramHTML(tt.in))
		})
	}
}

func TestToTelegramHTML_StripsUnsupportedTags(t *testing.T) {
	out := ToTelegramHTML("# Heading\n\ntext")
	assert.NotContains(t, out, "<h1>")
	assert.Contains(t, out, "Heading")
	assert.Contains(t, out, "text")
}
