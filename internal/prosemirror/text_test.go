package prosemirror_test

import (
	"testing"

	"github.com/inkweld/mcp-server/internal/prosemirror"
)

func TestExtractText(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "paragraphs become lines",
			in:   `<doc><paragraph>First.</paragraph><paragraph>Second.</paragraph></doc>`,
			want: "First.\nSecond.",
		},
		{
			name: "inline marks are flattened",
			in:   `<doc><paragraph>A <strong>bold</strong> word</paragraph></doc>`,
			want: "A bold word",
		},
		{
			name: "headings and quotes",
			in:   `<doc><heading level="1">Title</heading><blockquote><paragraph>quoted</paragraph></blockquote></doc>`,
			want: "Title\nquoted",
		},
		{
			name: "empty document",
			in:   "",
			want: "",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := prosemirror.ExtractText(tc.in)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Errorf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestExtractText_malformed(t *testing.T) {
	if _, err := prosemirror.ExtractText("<doc><paragraph>unclosed"); err == nil {
		t.Fatal("expected error for malformed XML")
	}
}
