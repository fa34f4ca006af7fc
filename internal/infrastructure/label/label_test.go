package label

import (
	"bytes"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func shipment() Shipment {
	return Shipment{
		Reference: "1001",
		Channel:   "bol_com",
		Sender:    []string{"Stock It Up BV", "Industrieweg 12", "1234AB Amsterdam", "NL"},
		Recipient: []string{"Anna de Vries", "Dorpsstraat 1", "1234AB Utrecht", "NL"},
		Items:     []Item{{SKU: "MUG-01", Name: "Mok (blauw)", Quantity: 2}},
		Date:      time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	}
}

// plain renders s without stream compression so the page text can be inspected
func plain(t *testing.T, s Shipment) string {
	t.Helper()
	pdf, err := build(s)
	require.NoError(t, err)
	assert.Equal(t, 1, pdf.PageCount())
	pdf.SetCompression(false)
	var buf bytes.Buffer
	require.NoError(t, pdf.Output(&buf))
	return buf.String()
}

func TestRender(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, shipment()))
	assert.True(t, strings.HasPrefix(buf.String(), "%PDF-1."))
	assert.Contains(t, buf.String(), "%%EOF")

	pdf := plain(t, shipment())
	assert.Contains(t, pdf, "/Count 1")
	assert.Contains(t, pdf, "(Anna de Vries) Tj")
	assert.Contains(t, pdf, `(MUG-01  Mok \(blauw\)) Tj`)
	assert.Contains(t, pdf, "(2026-03-01) Tj")
	assert.Contains(t, pdf, "/BaseFont /Helvetica-Bold")
}

func TestRender_Validation(t *testing.T) {
	s := shipment()
	s.Reference = " "
	assert.Error(t, Render(&bytes.Buffer{}, s))

	s = shipment()
	s.Recipient = nil
	assert.Error(t, Render(&bytes.Buffer{}, s))
}

func TestWinAnsi(t *testing.T) {
	assert.Equal(t, "Caf\xe9", winAnsi("Café"), "latin characters map to WinAnsi")
	assert.Equal(t, "?", winAnsi("ب"), "unsupported runes are replaced")
	assert.Equal(t, "Damrak 1 Amsterdam", winAnsi("Damrak 1\nAmsterdam"))
}

func TestRender_TruncatesPackingList(t *testing.T) {
	s := shipment()
	s.Items = nil
	for i := 0; i < 12; i++ {
		s.Items = append(s.Items, Item{SKU: "SKU-" + strconv.Itoa(i), Quantity: 1})
	}
	pdf := plain(t, s)
	assert.Contains(t, pdf, "(+ 4 more) Tj")
	assert.Contains(t, pdf, "(SKU-7  ) Tj")
	assert.NotContains(t, pdf, "SKU-9")
}

func TestRender_BoundsRecipient(t *testing.T) {
	s := shipment()
	s.Recipient = []string{
		"Anna de Vries",
		"p/a Afdeling Inkoop",
		"Dorpsstraat 1",
		"Gebouw B",
		"1234AB Utrecht",
		"Provincie Utrecht",
		"NL",
	}
	pdf := plain(t, s)
	assert.Contains(t, pdf, "(Gebouw B) Tj")
	assert.Contains(t, pdf, "(1234AB Utrecht, Provincie Utrecht, NL) Tj", "extra lines fold into the last one")
	assert.NotContains(t, pdf, "(Provincie Utrecht) Tj")

	s = shipment()
	long := strings.Repeat("Heel lange straatnaam ", 10)
	s.Recipient = []string{"Anna de Vries", long}
	pdf = plain(t, s)
	assert.NotContains(t, pdf, long)
	assert.Contains(t, pdf, "(Heel lange straatnaam Heel")
}

func TestBoundLines(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, boundLines([]string{"a", "b"}, 3))
	assert.Equal(t, []string{"a", "b, c, d"}, boundLines([]string{"a", "b", "c", "d"}, 2))
}
