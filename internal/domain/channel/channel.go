// Package channel holds the acquisition-channel reference data and the UTM
// mapping that assigns an inbound lead to a channel.
package channel

import "strings"

// Channel is a static acquisition source with its monthly spend. Channels are
// the aggregation target for CAC/ROI/rating rollups.
type Channel struct {
	Name        string  `json:"name"`
	MonthlyCost float64 `json:"monthlyCost"`
	IsActive    bool    `json:"isActive"`
}

// Direct is where leads land when no UTM tags were captured; Other is the
// catch-all for unmapped tags.
const (
	Direct = "Direct"
	Other  = "Other"
)

// DefaultCosts seeds the per-channel monthly spend used until an operator
// adjusts the figures.
func DefaultCosts() map[string]float64 {
	return map[string]float64{
		"Yandex":      50000,
		"Google":      40000,
		"VKontakte":   20000,
		"Instagram":   15000,
		"Facebook":    15000,
		"Telegram":    5000,
		"2GIS":        10000,
		"Yandex Maps": 5000,
		Direct:        1000,
		Other:         1000,
	}
}

// utmMapping is evaluated in order; the first needle contained in either tag
// wins, so broader needles deliberately shadow narrower ones below them.
var utmMapping = []struct {
	needle  string
	channel string
}{
	{"yandex", "Yandex"},
	{"google", "Google"},
	{"instagram", "Instagram"},
	{"facebook", "Facebook"},
	{"vk", "VKontakte"},
	{"vkontakte", "VKontakte"},
	{"telegram", "Telegram"},
	{"2gis", "2GIS"},
	{"yandex.maps", "Yandex Maps"},
	{"maps", "Yandex Maps"},
	{"direct", Direct},
	{"organic", Direct},
}

// FromUTM maps the captured utm_source/utm_medium pair onto a channel name.
// Untagged leads are Direct; tagged but unrecognized leads are Other.
func FromUTM(utmSource, utmMedium string) string {
	src := strings.ToLower(strings.TrimSpace(utmSource))
	med := strings.ToLower(strings.TrimSpace(utmMedium))

	if src == "" && med == "" {
		return Direct
	}
	for _, m := range utmMapping {
		if strings.Contains(src, m.needle) || strings.Contains(med, m.needle) {
			return m.channel
		}
	}
	return Other
}

// Names lists every seeded channel in a stable order.
func Names() []string {
	return []string{
		"Yandex", "Google", "VKontakte", "Instagram", "Facebook",
		"Telegram", "2GIS", "Yandex Maps", Direct, Other,
	}
}
