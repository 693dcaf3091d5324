package auth

import (
	"strings"

	"github.com/mssola/useragent"
)

// DescribeDevice turns a User-Agent header into the short label stored on
// sessions, e.g. "Chrome 120 on Windows 10".
func DescribeDevice(rawUA string) string {
	rawUA = strings.TrimSpace(rawUA)
	if rawUA == "" {
		return "Unknown Device"
	}

	ua := useragent.New(rawUA)
	name, version := ua.Browser()
	if name == "" {
		name = "Unknown Browser"
	}

	// major version only
	if idx := strings.Index(version, "."); idx != -1 {
		version = version[:idx]
	}

	os := ua.OS()
	if os == "" {
		os = "Unknown OS"
	}

	label := name
	if version != "" {
		label += " " + version
	}
	label += " on " + os

	if ua.Bot() {
		return "bot: " + label
	}
	if ua.Mobile() {
		return label + " (mobile)"
	}
	return label
}
