package channel

import "testing"

func TestFromUTM(t *testing.T) {
	cases := []struct {
		source string
		medium string
		want   string
	}{
		{"", "", Direct},
		{"  ", "", Direct},
		{"yandex", "cpc", "Yandex"},
		{"Yandex_Direct", "cpc", "Yandex"},
		{"google", "cpc", "Google"},
		{"", "google-ads", "Google"},
		{"vk", "social", "VKontakte"},
		{"vkontakte", "", "VKontakte"},
		{"instagram", "stories", "Instagram"},
		{"telegram", "post", "Telegram"},
		{"2gis", "listing", "2GIS"},
		{"maps", "organic-card", "Yandex Maps"},
		{"newsletter", "email", Other},
	}
	for _, c := range cases {
		if got := FromUTM(c.source, c.medium); got != c.want {
			t.Errorf("FromUTM(%q, %q) = %q, want %q", c.source, c.medium, got, c.want)
		}
	}
}

func TestFromUTM_OrderShadowing(t *testing.T) {
	// "yandex" is matched before "yandex.maps" by table order.
	if got := FromUTM("yandex.maps", ""); got != "Yandex" {
		t.Errorf("FromUTM(yandex.maps) = %q, want Yandex (table order)", got)
	}
}

func TestDefaultCosts_CoverAllNames(t *testing.T) {
	costs := DefaultCosts()
	for _, name := range Names() {
		if _, ok := costs[name]; !ok {
			t.Errorf("no seeded cost for channel %q", name)
		}
	}
}
