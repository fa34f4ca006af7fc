// Package label renders single-page A6 shipping labels as PDF.
package label

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

// ContentType is the MIME type of rendered labels
const ContentType = "application/pdf"

// A6 in millimetres
const (
	pageWidth  = 105.0
	pageHeight = 148.0
	margin     = 6.0
	textWidth  = pageWidth - 2*margin
)

// The recipient box and packing list are capped so the label stays on one page
const (
	maxRecipientLines = 5
	maxItemLines      = 8
)

const font = "Helvetica"

// Item is one packing-list line
type Item struct {
	SKU      string
	Name     string
	Quantity int
}

// Shipment holds everything printed on a label
type Shipment struct {
	Reference    string
	Channel      string
	Sender       []string
	Recipient    []string
	Items        []Item
	TrackingCode string
	Date         time.Time
}

// Render writes the label for s to w
func Render(w io.Writer, s Shipment) error {
	pdf, err := build(s)
	if err != nil {
		return err
	}
	return pdf.Output(w)
}

// build lays out the label page
func build(s Shipment) (*fpdf.Fpdf, error) {
	if strings.TrimSpace(s.Reference) == "" {
		return nil, errors.New("label: reference is required")
	}
	if len(s.Recipient) == 0 {
		return nil, errors.New("label: recipient is required")
	}
	if s.Date.IsZero() {
		s.Date = time.Now()
	}

	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "mm",
		Size:           fpdf.SizeType{Wd: pageWidth, Ht: pageHeight},
	})
	pdf.SetMargins(margin, margin, margin)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetCreationDate(s.Date)
	pdf.SetTitle("Shipping label "+s.Reference, true)
	pdf.AddPage()
	l := &layout{pdf: pdf, y: margin}

	l.text(margin, 5, 14, true, "SHIPPING LABEL")
	dateText := s.Date.Format("2006-01-02")
	pdf.SetFont(font, "", 8)
	l.text(pageWidth-margin-pdf.GetStringWidth(dateText), 0, 8, false, dateText)
	l.y += 3
	l.rule(0.3)

	l.y += 4
	l.text(margin, 0, 7, true, "FROM")
	for _, line := range s.Sender {
		l.y += 3.5
		l.text(margin, 0, 8, false, line)
	}

	recipient := boundLines(s.Recipient, maxRecipientLines)
	l.y += 5
	boxTop := l.y
	l.y += 5
	l.text(margin+2, 0, 7, true, "TO")
	for i, line := range recipient {
		size, bold := 11.0, false
		if i == 0 {
			size, bold = 12, true
		}
		l.y += 5
		l.fitted(margin+2, textWidth-4, size, bold, line)
	}
	l.y += 4
	pdf.SetLineWidth(0.5)
	pdf.Rect(margin, boxTop, textWidth, l.y-boxTop, "D")

	l.y += 6
	l.text(margin, 0, 7, true, "ORDER")
	l.fitted(margin+14, textWidth-14, 12, true, s.Reference)
	l.y += 4.5
	l.text(margin, 0, 7, true, "CHANNEL")
	l.fitted(margin+14, textWidth-14, 9, false, s.Channel)
	if s.TrackingCode != "" {
		l.y += 4.5
		l.text(margin, 0, 7, true, "TRACKING")
		l.fitted(margin+14, textWidth-14, 9, false, s.TrackingCode)
	}

	l.y += 3
	l.rule(0.3)
	for i, it := range s.Items {
		l.y += 4
		if i == maxItemLines {
			l.text(margin, 0, 8, false, fmt.Sprintf("+ %d more", len(s.Items)-maxItemLines))
			break
		}
		l.text(margin, 0, 8, true, fmt.Sprintf("%dx", it.Quantity))
		l.fitted(margin+8, textWidth-8, 8, false, it.SKU+"  "+it.Name)
	}

	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("label: %w", err)
	}
	return pdf, nil
}

// boundLines keeps at most n lines, folding the rest into the last one
func boundLines(lines []string, n int) []string {
	if len(lines) <= n {
		return lines
	}
	out := append([]string{}, lines[:n-1]...)
	return append(out, strings.Join(lines[n-1:], ", "))
}

// layout tracks the baseline of the next line
type layout struct {
	pdf *fpdf.Fpdf
	y   float64
}

func (l *layout) text(x, dy, size float64, bold bool, s string) {
	l.y += dy
	l.setFont(size, bold)
	l.pdf.Text(x, l.y, winAnsi(s))
}

// fitted prints s on the current line, cut short to fit width
func (l *layout) fitted(x, width, size float64, bold bool, s string) {
	l.setFont(size, bold)
	encoded := winAnsi(s)
	if l.pdf.GetStringWidth(encoded) > width {
		for len(encoded) > 0 && l.pdf.GetStringWidth(encoded+".") > width {
			encoded = encoded[:len(encoded)-1]
		}
		encoded += "."
	}
	l.pdf.Text(x, l.y, encoded)
}

func (l *layout) rule(width float64) {
	l.pdf.SetLineWidth(width)
	l.pdf.Line(margin, l.y, pageWidth-margin, l.y)
}

func (l *layout) setFont(size float64, bold bool) {
	style := ""
	if bold {
		style = "B"
	}
	l.pdf.SetFont(font, style, size)
}

// winAnsi encodes s for the core fonts. Line breaks become spaces and
// characters outside the code page become "?".
func winAnsi(s string) string {
	s = strings.NewReplacer("\r", " ", "\n", " ").Replace(s)
	encoded, err := encoding.ReplaceUnsupported(charmap.Windows1252.NewEncoder()).String(s)
	if err != nil {
		return s
	}
	return strings.ReplaceAll(encoded, "\x1a", "?")
}
