package translation

import "testing"

func TestTranslateLabel(t *testing.T) {
	tests := []struct {
		name  string
		label string
		lang  string
		want  string
	}{
		{"known label", "cat", "id", "kucing"},
		{"multi-word label", "tiger cat", "id", "kucing belang"},
		{"case sensitive key", "Persian cat", "id", "kucing persia"},
		{"unknown label passes through", "zebra", "id", "zebra"},
		{"english keeps label", "cat", "en", "cat"},
		{"empty language keeps label", "dog", "", "dog"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := TranslateLabel(tc.label, tc.lang); got != tc.want {
				t.Errorf("TranslateLabel(%q, %q) = %q, want %q", tc.label, tc.lang, got, tc.want)
			}
		})
	}
}
