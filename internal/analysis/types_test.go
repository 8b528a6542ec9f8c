package analysis

import "testing"

func TestConfigLabelRoundTrip(t *testing.T) {
	c := Config{Width: 1280, Skip: 2, Quant: 30}
	if got := c.Label(); got != "1280x2x30" {
		t.Errorf("Label() = %q, want %q", got, "1280x2x30")
	}
	parsed, err := ParseConfigLabel(c.Label())
	if err != nil {
		t.Fatal(err)
	}
	if parsed != c {
		t.Errorf("round trip = %v, want %v", parsed, c)
	}
}

func TestParseConfigLabelRejectsBadInput(t *testing.T) {
	for _, s := range []string{"", "1280", "1280x2", "1280x2x30x1", "ax2x30", "1280x-1x30"} {
		if _, err := ParseConfigLabel(s); err == nil {
			t.Errorf("ParseConfigLabel(%q) accepted", s)
		}
	}
}

func TestConfigLess(t *testing.T) {
	ordered := []Config{
		{Width: 320, Skip: 5, Quant: 40},
		{Width: 640, Skip: 0, Quant: 40},
		{Width: 640, Skip: 1, Quant: 0},
		{Width: 640, Skip: 1, Quant: 20},
		{Width: 1280, Skip: 0, Quant: 0},
	}
	for i := 1; i < len(ordered); i++ {
		if !ordered[i-1].Less(ordered[i]) {
			t.Errorf("%v should be less than %v", ordered[i-1], ordered[i])
		}
		if ordered[i].Less(ordered[i-1]) {
			t.Errorf("%v should not be less than %v", ordered[i], ordered[i-1])
		}
	}
	c := Config{Width: 640, Skip: 1, Quant: 20}
	if c.Less(c) {
		t.Error("config must not be less than itself")
	}
}
