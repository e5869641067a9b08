package summary

import (
	"context"
	"testing"

	"github.com/scipunch/feedpipe/config"
)

func TestTrimIncompleteSentence(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "complete", in: "One. Two.", want: "One. Two."},
		{name: "trailing fragment dropped", in: "One. Two. And then", want: "One. Two."},
		{name: "no sentence boundary", in: "fragment without period", want: "fragment without period"},
		{name: "empty", in: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := trimIncompleteSentence(tt.in); got != tt.want {
				t.Errorf("trimIncompleteSentence(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestDisabledAgentPassesThrough(t *testing.T) {
	a := New(config.OpenAICredentials{})

	got, err := a.Process(context.Background(), "original content")
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if got != "original content" {
		t.Errorf("disabled agent returned %q, want the input unchanged", got)
	}
}
