package config

import (
	"fmt"
	"io/fs"
	"time"
)

// Fixed business settings.
const (
	DefaultCurrency             = "EUR"
	DuplicateDetectionThreshold = 0.85
	OrderBatchSize              = 100
	LabelFormatPDF              = "PDF"
	WebSocketHeartbeatInterval  = 30 * time.Second
	MaxUploadSize               = 10 * 1024 * 1024
	FileUploadPermissions       = fs.FileMode(0o644)
)

// SupportedCurrencies lists the currencies products and orders may use.
var SupportedCurrencies = []string{"EUR", "USD", "GBP"}

// BusinessConfig holds the business rules shared across services
type BusinessConfig struct {
	DefaultCurrency             string
	SupportedCurrencies         []string
	EANValidation               bool
	SKUValidation               bool
	DuplicateDetectionThreshold float64
	OrderBatchSize              int
	AutoFulfillment             bool
	LabelFormat                 string
	HeartbeatInterval           time.Duration
	MaxUploadSize               int64
	FileUploadPermissions       fs.FileMode
}

// DefaultBusiness returns the fixed business settings.
func DefaultBusiness() BusinessConfig {
	return BusinessConfig{
		DefaultCurrency:             DefaultCurrency,
		SupportedCurrencies:         append([]string(nil), SupportedCurrencies...),
		EANValidation:               true,
		SKUValidation:               true,
		DuplicateDetectionThreshold: DuplicateDetectionThreshold,
		OrderBatchSize:              OrderBatchSize,
		AutoFulfillment:             true,
		LabelFormat:                 LabelFormatPDF,
		HeartbeatInterval:           WebSocketHeartbeatInterval,
		MaxUploadSize:               MaxUploadSize,
		FileUploadPermissions:       FileUploadPermissions,
	}
}

// PWAIcon is one entry of the manifest icon set
type PWAIcon struct {
	Src   string `json:"src"`
	Sizes string `json:"sizes"`
	Type  string `json:"type"`
}

// PWAConfig holds the web app manifest fields
type PWAConfig struct {
	Name            string    `json:"name"`
	ShortName       string    `json:"short_name"`
	Description     string    `json:"description"`
	ThemeColor      string    `json:"theme_color"`
	BackgroundColor string    `json:"background_color"`
	Display         string    `json:"display"`
	Scope           string    `json:"scope"`
	Orientation     string    `json:"orientation"`
	StartURL        string    `json:"start_url"`
	Icons           []PWAIcon `json:"icons"`
}

// PWAIconSizes are the square icon sizes shipped with the manifest.
var PWAIconSizes = []int{72, 96, 128, 144, 152, 192, 384, 512}

// DefaultPWA returns the fixed manifest.
func DefaultPWA() PWAConfig {
	icons := make([]PWAIcon, 0, len(PWAIconSizes))
	for _, size := range PWAIconSizes {
		icons = append(icons, PWAIcon{
			Src:   fmt.Sprintf("/static/img/icons/icon-%dx%d.png", size, size),
			Sizes: fmt.Sprintf("%dx%d", size, size),
			Type:  "image/png",
		})
	}
	return PWAConfig{
		Name:            "Stock It Up Clone",
		ShortName:       "Stock It Up",
		Description:     "Multi-channel e-commerce management platform",
		ThemeColor:      "#007bff",
		BackgroundColor: "#ffffff",
		Display:         "standalone",
		Scope:           "/",
		Orientation:     "portrait",
		StartURL:        "/",
		Icons:           icons,
	}
}
