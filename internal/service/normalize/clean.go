package normalize

import (
	"net/url"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// CleanTitle drops a trailing locality ("X in Brighton" becomes "X") and spells out ampersands.
func CleanTitle(title string) string {
	if idx := strings.Index(title, " in "); idx >= 0 {
		title = title[:idx]
	}
	title = strings.ReplaceAll(title, " & ", " and ")
	return strings.TrimSpace(title)
}

// Hostname reduces a website URL to its lowercase host without scheme, www. prefix,
// path or trailing slash. It returns an empty string when no host can be found.
func Hostname(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" {
		fallback := strings.ToLower(raw)
		fallback = strings.TrimPrefix(strings.TrimPrefix(fallback, "https://"), "http://")
		fallback = strings.TrimPrefix(fallback, "www.")
		return strings.TrimRight(fallback, "/")
	}
	host := strings.ToLower(u.Hostname())
	host = strings.TrimPrefix(host, "www.")
	return strings.TrimSuffix(host, ".")
}

// NormalizePhone formats a number as E.164, keeping the trimmed input when it cannot be parsed.
func NormalizePhone(raw, region string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if region == "" {
		region = DefaultPhoneRegion
	}
	number, err := phonenumbers.Parse(raw, region)
	if err != nil {
		return raw
	}
	if !phonenumbers.IsPossibleNumber(number) || !phonenumbers.IsValidNumber(number) {
		return raw
	}
	return phonenumbers.Format(number, phonenumbers.E164)
}
