// Package i18n negotiates the user language and holds the notification texts
// for the supported languages (Dutch, Arabic and English).
package i18n

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// CookieName is the cookie carrying an explicit language choice
const CookieName = "lang"

// Supported languages; the first one is the default
var (
	Dutch   = language.Dutch
	Arabic  = language.Arabic
	English = language.English

	supported = []language.Tag{Dutch, Arabic, English}
	matcher   = language.NewMatcher(supported)
)

// Notification message keys
const (
	OrderReceived = "order_received"
	InventoryLow  = "inventory_low"
	SyncComplete  = "sync_complete"
	ErrorOccurred = "error_occurred"

	ActionView    = "action_view"
	ActionDismiss = "action_dismiss"
	ActionDetails = "action_details"

	// detail lines take arguments
	OrderReceivedDetail = "order_received_detail"
	InventoryLowDetail  = "inventory_low_detail"
	SyncCompleteDetail  = "sync_complete_detail"
	SyncFailedDetail    = "sync_failed_detail"
)

var texts = map[string]map[language.Tag]string{
	OrderReceived: {
		Dutch:   "Nieuwe bestelling ontvangen",
		Arabic:  "تم استلام طلب جديد",
		English: "New order received",
	},
	InventoryLow: {
		Dutch:   "Voorraad bijna op",
		Arabic:  "المخزون منخفض",
		English: "Stock running low",
	},
	SyncComplete: {
		Dutch:   "Synchronisatie voltooid",
		Arabic:  "تمت المزامنة بنجاح",
		English: "Synchronisation complete",
	},
	ErrorOccurred: {
		Dutch:   "Er is een fout opgetreden",
		Arabic:  "حدث خطأ",
		English: "An error occurred",
	},
	ActionView: {
		Dutch:   "Bekijken",
		Arabic:  "عرض",
		English: "View",
	},
	ActionDismiss: {
		Dutch:   "Sluiten",
		Arabic:  "إغلاق",
		English: "Dismiss",
	},
	ActionDetails: {
		Dutch:   "Details",
		Arabic:  "التفاصيل",
		English: "Details",
	},
	OrderReceivedDetail: {
		Dutch:   "Bestelling %s via %s",
		Arabic:  "الطلب %s عبر %s",
		English: "Order %s via %s",
	},
	InventoryLowDetail: {
		Dutch:   "%s (%s): nog %d op voorraad",
		Arabic:  "%s (%s): المتبقي %d",
		English: "%s (%s): %d left in stock",
	},
	SyncCompleteDetail: {
		Dutch:   "%s: %d bestellingen geïmporteerd, %d voorraadniveaus bijgewerkt",
		Arabic:  "%s: تم استيراد %d طلبات وتحديث %d مستويات المخزون",
		English: "%s: %d orders imported, %d stock levels updated",
	},
	SyncFailedDetail: {
		Dutch:   "Synchronisatie met %s mislukt: %s",
		Arabic:  "فشلت المزامنة مع %s: %s",
		English: "Synchronisation with %s failed: %s",
	},
}

var cat = buildCatalog()

func buildCatalog() *catalog.Builder {
	b := catalog.NewBuilder(catalog.Fallback(Dutch))
	for key, byLang := range texts {
		for tag, text := range byLang {
			if err := b.SetString(tag, key, text); err != nil {
				panic(err)
			}
		}
	}
	return b
}

// Negotiate picks the language from an explicit choice (cookie or query) or
// the Accept-Language header, falling back to Dutch.
func Negotiate(explicit, acceptLanguage string) language.Tag {
	if explicit = strings.TrimSpace(explicit); explicit != "" {
		if tag, err := language.Parse(explicit); err == nil {
			if t, _, conf := matcher.Match(tag); conf != language.No {
				return base(t)
			}
		}
	}
	if acceptLanguage != "" {
		tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
		if err == nil && len(tags) > 0 {
			if t, _, conf := matcher.Match(tags...); conf != language.No {
				return base(t)
			}
		}
	}
	return Dutch
}

// base strips the -u-rg extension the matcher adds for regional requests
func base(t language.Tag) language.Tag {
	b, _ := t.Base()
	for _, s := range supported {
		if sb, _ := s.Base(); sb == b {
			return s
		}
	}
	return Dutch
}

// IsRTL reports whether the language is written right to left
func IsRTL(tag language.Tag) bool {
	return tag == Arabic
}

// Code returns the two-letter code of a supported language
func Code(tag language.Tag) string {
	b, _ := tag.Base()
	return b.String()
}

// Printer formats catalogue messages for one language
type Printer struct {
	tag language.Tag
	p   *message.Printer
}

// NewPrinter returns a printer for tag
func NewPrinter(tag language.Tag) *Printer {
	return &Printer{tag: tag, p: message.NewPrinter(tag, message.Catalog(cat))}
}

// Tag returns the printer language
func (p *Printer) Tag() language.Tag {
	return p.tag
}

// T translates key, formatting args into the message
func (p *Printer) T(key string, args ...any) string {
	return p.p.Sprintf(key, args...)
}

// Languages returns the supported language codes, default first
func Languages() []string {
	out := make([]string, len(supported))
	for i, t := range supported {
		out[i] = Code(t)
	}
	return out
}
