package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWithTicker(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want []string
	}{
		{name: "empty", args: nil, want: nil},
		{name: "bare ticker", args: []string{"AAPL"}, want: []string{"analyze", "AAPL"}},
		{name: "bare ticker with flags", args: []string{"BHP.AU", "--pdf"}, want: []string{"analyze", "BHP.AU", "--pdf"}},
		{name: "subcommand", args: []string{"search", "rates"}, want: []string{"search", "rates"}},
		{name: "explicit analyze", args: []string{"analyze", "MSFT"}, want: []string{"analyze", "MSFT"}},
		{name: "global flag first", args: []string{"-v", "status"}, want: []string{"-v", "status"}},
		{name: "help", args: []string{"help"}, want: []string{"help"}},
		{name: "euro macro", args: []string{"euro-macro", "--collect-only"}, want: []string{"euro-macro", "--collect-only"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, withTicker(tt.args))
		})
	}
}

func TestFileOnly(t *testing.T) {
	assert.Equal(t, []string{"file"}, fileOnly([]string{"stdout", "file"}))
	assert.Empty(t, fileOnly([]string{"console"}))
}

func TestCommandsRegistered(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"analyze", "publish", "scrape", "download", "process", "search", "status", "schedule", "euro-macro", "mcp", "version"} {
		assert.True(t, names[want], want)
	}
}
