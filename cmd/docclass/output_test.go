package main

import (
	"bytes"
	"testing"
)

func TestOutputTo(t *testing.T) {
	data := classifyOutput{Path: "a.pdf", Label: "INVOICE", Confidence: 0.75}
	tests := []struct {
		format string
		want   string
	}{
		{"yaml", "path: a.pdf\nlabel: INVOICE\nconfidence: 0.75\n"},
		{"json", "{\n  \"path\": \"a.pdf\",\n  \"label\": \"INVOICE\",\n  \"confidence\": 0.75\n}\n"},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			var buf bytes.Buffer
			if err := outputTo(&buf, tt.format, data); err != nil {
				t.Fatal(err)
			}
			if buf.String() != tt.want {
				t.Errorf("got %q, want %q", buf.String(), tt.want)
			}
		})
	}
	if err := outputTo(&bytes.Buffer{}, "xml", data); err == nil {
		t.Error("expected error for unknown format")
	}
}
