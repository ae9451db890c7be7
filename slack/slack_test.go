package slack

import (
	"regexp"
	"testing"
)

func TestRegex(t *testing.T) {
	regex := regexp.MustCompile(URL_REGEX)
	if !regex.MatchString("https://example.com") {
		t.Error("URL_REGEX failed to match a URL")
	}
}

func TestParseCommand(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		ok       bool
		expected Command
	}{
		{
			name:     "url only",
			text:     "<@U123> https://example.com",
			ok:       true,
			expected: Command{URL: "https://example.com", MaxLinks: DefaultMaxLinks},
		},
		{
			name:     "with links",
			text:     "<@U123> https://example.com links",
			ok:       true,
			expected: Command{URL: "https://example.com", ExtractLinks: true, MaxLinks: DefaultMaxLinks},
		},
		{
			name:     "with max",
			text:     "<@U123> https://example.com links max=3",
			ok:       true,
			expected: Command{URL: "https://example.com", ExtractLinks: true, MaxLinks: 3},
		},
		{
			name:     "max clamped high",
			text:     "https://example.com links max=50",
			ok:       true,
			expected: Command{URL: "https://example.com", ExtractLinks: true, MaxLinks: MaxLinksBound},
		},
		{
			name:     "max clamped low",
			text:     "https://example.com links max=0",
			ok:       true,
			expected: Command{URL: "https://example.com", ExtractLinks: true, MaxLinks: 1},
		},
		{
			name:     "links in URL path is not the option",
			text:     "https://example.com/links",
			ok:       true,
			expected: Command{URL: "https://example.com/links", MaxLinks: DefaultMaxLinks},
		},
		{
			name:     "max in URL query is not the option",
			text:     "https://example.com/search?max=3 links",
			ok:       true,
			expected: Command{URL: "https://example.com/search?max=3", ExtractLinks: true, MaxLinks: DefaultMaxLinks},
		},
		{
			name: "no url",
			text: "<@U123> analyze something",
			ok:   false,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			cmd, ok := ParseCommand(test.text)
			if ok != test.ok {
				t.Fatalf("unexpected ok: %v", ok)
			}
			if !ok {
				return
			}
			if cmd.URL != test.expected.URL || cmd.ExtractLinks != test.expected.ExtractLinks || cmd.MaxLinks != test.expected.MaxLinks {
				t.Errorf("unexpected command: %+v", cmd)
			}
		})
	}
}
