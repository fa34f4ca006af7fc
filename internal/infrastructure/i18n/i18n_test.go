package i18n

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/text/language"
)

func TestNegotiate(t *testing.T) {
	tests := []struct {
		name     string
		explicit string
		accept   string
		want     language.Tag
	}{
		{"default is dutch", "", "", Dutch},
		{"cookie wins", "ar", "en-US,en;q=0.9", Arabic},
		{"accept language", "", "en-GB,en;q=0.8", English},
		{"regional dutch", "", "nl-BE", Dutch},
		{"weighted preference", "", "fr-FR;q=1.0, ar;q=0.9, en;q=0.5", Arabic},
		{"unsupported falls back", "", "de-DE", Dutch},
		{"malformed cookie ignored", "!!", "en", English},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Negotiate(tt.explicit, tt.accept))
		})
	}
}

func TestPrinter(t *testing.T) {
	assert.Equal(t, "Nieuwe bestelling ontvangen", NewPrinter(Dutch).T(OrderReceived))
	assert.Equal(t, "المخزون منخفض", NewPrinter(Arabic).T(InventoryLow))
	assert.Equal(t, "Synchronisation complete", NewPrinter(English).T(SyncComplete))
	assert.Equal(t, "Er is een fout opgetreden", NewPrinter(Dutch).T(ErrorOccurred))

	assert.Equal(t, "Order 1001 via bol_com", NewPrinter(English).T(OrderReceivedDetail, "1001", "bol_com"))
	assert.Equal(t, "Mug (MUG-01): nog 2 op voorraad", NewPrinter(Dutch).T(InventoryLowDetail, "Mug", "MUG-01", 2))
}

func TestEveryKeyHasAllLanguages(t *testing.T) {
	for key, byLang := range texts {
		for _, tag := range supported {
			assert.NotEmpty(t, byLang[tag], "%s missing %s", key, tag)
		}
	}
}

func TestHelpers(t *testing.T) {
	assert.True(t, IsRTL(Arabic))
	assert.False(t, IsRTL(Dutch))
	assert.Equal(t, "nl", Code(Dutch))
	assert.Equal(t, []string{"nl", "ar", "en"}, Languages())
}
