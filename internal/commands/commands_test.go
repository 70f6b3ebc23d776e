// internal/commands/commands_test.go
package klimax

import (
	"bytes"
	"strings"
	"testing"
)

// TestCommandsCmdListsTree verifies the two-column listing covers the whole
// command tree and hides cobra's built-ins.
func TestCommandsCmdListsTree(t *testing.T) {
	b := new(bytes.Buffer)
	rootCmd.SetOut(b)

	commandsCmd.Run(commandsCmd, []string{})

	out := b.String()
	if !strings.Contains(out, "Commands and Subcommands:") {
		t.Fatalf("expected listing header, got:\n%s", out)
	}
	for _, want := range []string{"klimax sweep", "klimax check", "klimax analyze sweep", "klimax show config", "klimax commands"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in listing, got:\n%s", want, out)
		}
	}
	if strings.Contains(out, "klimax completion") || strings.Contains(out, "klimax help") {
		t.Fatalf("expected built-in commands to be filtered, got:\n%s", out)
	}
}

// TestListCommandsAlignsColumns checks the description column starts at the
// same offset for every row.
func TestListCommandsAlignsColumns(t *testing.T) {
	b := new(bytes.Buffer)
	ListCommands(b, []CommandInfo{
		{Path: "klimax", Description: "root"},
		{Path: "klimax sweep", Description: "run the sweep"},
	})

	lines := strings.Split(strings.TrimSpace(b.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header plus two rows, got %d lines", len(lines))
	}
	first := strings.Index(lines[1], "root")
	second := strings.Index(lines[2], "run the sweep")
	if first != second {
		t.Fatalf("expected aligned description columns, got offsets %d and %d:\n%s", first, second, b.String())
	}
}
