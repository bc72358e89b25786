package cmd

import (
	"bytes"
	"strings"
	"testing"
)

func TestRootCommand(t *testing.T) {
	t.Parallel()

	if rootCmd.Use != "mockbird" {
		t.Errorf("Use = %q, want %q", rootCmd.Use, "mockbird")
	}
	if rootCmd.Short == "" {
		t.Error("Short description is empty")
	}
	if !strings.Contains(rootCmd.Long, "mockbird") {
		t.Error("Long description does not mention the binary name")
	}

	want := []string{"serve", "new", "plan", "projects", "mcp", "version"}
	registered := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		registered[c.Name()] = true
	}
	for _, name := range want {
		if !registered[name] {
			t.Errorf("command %q is not registered", name)
		}
	}
}

func TestBanner(t *testing.T) {
	t.Parallel()

	got := banner()
	if got == "" {
		t.Fatal("banner() returned empty string")
	}
	if lines := strings.Count(got, "\n"); lines != len(bannerArt) {
		t.Errorf("banner has %d lines, want %d", lines, len(bannerArt))
	}
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	versionCmd.SetOut(&out)
	versionCmd.Run(versionCmd, nil)

	got := out.String()
	for _, want := range []string{"mockbird", Version, GitCommit, BuildTime} {
		if !strings.Contains(got, want) {
			t.Errorf("version output missing %q:\n%s", want, got)
		}
	}
}
