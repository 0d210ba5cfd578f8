package protocol

import "testing"

func TestParseLowercasesCommand(t *testing.T) {
	cmd := Parse("GpioSet 3 active")
	if cmd.Name != "gpioset" {
		t.Fatalf("Name = %q, want gpioset", cmd.Name)
	}
	if len(cmd.Args) != 2 || cmd.Args[0] != "3" || cmd.Args[1] != "active" {
		t.Fatalf("Args = %#v", cmd.Args)
	}
}

func TestParseEmptyLine(t *testing.T) {
	cmd := Parse("   ")
	if cmd.Name != "" || len(cmd.Args) != 0 {
		t.Fatalf("expected empty command, got %#v", cmd)
	}
}

func TestTokenizeQuotedArgument(t *testing.T) {
	tokens := tokenize(`system "echo hello world"`)
	if len(tokens) != 2 {
		t.Fatalf("tokens = %#v, want 2", tokens)
	}
	if tokens[1] != "echo hello world" {
		t.Fatalf("tokens[1] = %q", tokens[1])
	}
}

func TestTokenizeMultipleSpaces(t *testing.T) {
	tokens := tokenize("a   b\tc")
	if len(tokens) != 3 || tokens[0] != "a" || tokens[1] != "b" || tokens[2] != "c" {
		t.Fatalf("tokens = %#v", tokens)
	}
}
