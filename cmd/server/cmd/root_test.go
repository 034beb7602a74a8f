package cmd

import (
	"strings"
	"testing"
)

func TestRootHelpAndFlagErrors(t *testing.T) {
	cases := map[string]struct {
		args    []string
		want    string
		wantErr bool
	}{
		"long help":    {args: []string{"--help"}, want: "confdir serves a directory of conferences"},
		"short help":   {args: []string{"-h"}, want: "confdir serves a directory of conferences"},
		"unknown flag": {args: []string{"--invalid-flag"}, want: "unknown flag: --invalid-flag", wantErr: true},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			stdout, stderr, err := runCLIBoth(t, tc.args...)
			if (err != nil) != tc.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tc.wantErr)
			}
			if combined := stdout + stderr; !strings.Contains(combined, tc.want) {
				t.Errorf("output missing %q:\n%s", tc.want, combined)
			}
		})
	}
}

func TestRootFlags(t *testing.T) {
	root := newRootCmd()
	for _, name := range []string{"log-level", "log-format"} {
		if root.PersistentFlags().Lookup(name) == nil {
			t.Errorf("persistent flag %q not defined", name)
		}
	}
	// Running the bare binary serves, so it accepts serve's flags.
	for _, name := range []string{"host", "port"} {
		if root.Flags().Lookup(name) == nil {
			t.Errorf("root flag %q not defined", name)
		}
	}
}

func TestRootSubcommands(t *testing.T) {
	registered := map[string]bool{}
	for _, sub := range newRootCmd().Commands() {
		registered[sub.Name()] = true
	}
	for _, name := range []string{"serve", "migrate", "seed", "calendar", "version", "healthcheck"} {
		if !registered[name] {
			t.Errorf("subcommand %q not registered", name)
		}
	}
}

func TestLoadConfigAppliesLogOverrides(t *testing.T) {
	t.Setenv("LOG_LEVEL", "info")
	t.Setenv("LOG_FORMAT", "json")

	cfg, err := (&rootOptions{logLevel: "debug", logFormat: "console"}).loadConfig()
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "console" {
		t.Errorf("flag overrides not applied: level=%q format=%q", cfg.Logging.Level, cfg.Logging.Format)
	}
}
