package cli

import (
	"bytes"
	"strings"
	"testing"
)

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	versionCmd.SetOut(&out)
	versionCmd.Run(versionCmd, nil)

	if !strings.HasPrefix(out.String(), "ragline ") {
		t.Errorf("unexpected output: %q", out.String())
	}
}

func TestEnvironment_FlagWins(t *testing.T) {
	old := envFlag
	defer func() { envFlag = old }()

	envFlag = "prod"
	t.Setenv("ENV", "dev")
	if got := environment(); got != "prod" {
		t.Errorf("got %q, want prod", got)
	}

	envFlag = ""
	if got := environment(); got != "dev" {
		t.Errorf("got %q, want dev", got)
	}
}
