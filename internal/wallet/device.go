package wallet

import (
	"strings"

	"github.com/mssola/useragent"
)

// DeviceLabel renders a short "Browser on OS" label for a session.
func DeviceLabel(userAgent string) string {
	userAgent = strings.TrimSpace(userAgent)
	if userAgent == "" {
		return "Unknown Device"
	}

	ua := useragent.New(userAgent)
	browser, _ := ua.Browser()
	if browser == "" {
		browser = "Unknown Browser"
	}
	os := ua.OS()
	if os == "" {
		os = ua.Platform()
	}
	if os == "" {
		os = "Unknown OS"
	}
	if ua.Bot() {
		return "Bot (" + browser + ")"
	}
	return browser + " on " + os
}
