package render

import (
	"errors"
	"testing"
)

func TestParseFormat(t *testing.T) {
	cases := []struct {
		in   string
		want Format
	}{
		{"png", FormatPNG},
		{".png", FormatPNG},
		{"PNG", FormatPNG},
		{"jpg", FormatJPEG},
		{".jpg", FormatJPEG},
		{"jpeg", FormatJPEG},
	}

	for _, c := range cases {
		got, err := ParseFormat(c.in)
		if err != nil {
			t.Fatalf("ParseFormat(%q) error: %v", c.in, err)
		}

		if got != c.want {
			t.Fatalf("ParseFormat(%q) = %v, want %v", c.in, got, c.want)
		}
	}

	if _, err := ParseFormat("gif"); !errors.Is(err, ErrUnknownFormat) {
		t.Fatalf("err = %v, want ErrUnknownFormat", err)
	}
}

func TestFormatExt(t *testing.T) {
	if FormatPNG.Ext() != ".png" || FormatJPEG.Ext() != ".jpg" {
		t.Fatalf("ext = %q, %q", FormatPNG.Ext(), FormatJPEG.Ext())
	}
}
