package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func write(t *testing.T, name, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(src), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestExitCodes(t *testing.T) {
	good := write(t, "good.eli", "fn main() -> Int { 42 }")
	syntax := write(t, "syntax.eli", "let 1 = 2")
	typeErr := write(t, "type.eli", "let x: Int = 1.5")

	tests := []struct {
		args []string
		want int
	}{
		{[]string{"-print-ir", good}, exitOK},
		{[]string{"-version"}, exitOK},
		{[]string{}, exitUsage},
		{[]string{"-overflow", "banana", good}, exitUsage},
		{[]string{"-print-ir", syntax}, exitSyntax},
		{[]string{"-print-ir", typeErr}, exitSema},
		{[]string{"-print-ir", filepath.Join(t.TempDir(), "absent.eli")}, exitIO},
	}
	for _, tt := range tests {
		if got := run(tt.args); got != tt.want {
			t.Errorf("run(%v) = %d, want %d", tt.args, got, tt.want)
		}
	}
}

func TestWritesArtifactNextToSource(t *testing.T) {
	good := write(t, "prog.eli", "fn main() -> Int { 7 }")
	if code := run([]string{good}); code != exitOK {
		t.Fatalf("exit %d", code)
	}
	out := strings.TrimSuffix(good, ".eli") + ".ll"
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("artifact not written: %v", err)
	}
	if !strings.Contains(string(data), "define i64 @main()") {
		t.Fatalf("artifact content:\n%s", data)
	}
}

func TestNoArtifactOnFailure(t *testing.T) {
	bad := write(t, "bad.eli", "fn main() -> Int { true }")
	if code := run([]string{bad}); code != exitSema {
		t.Fatalf("exit %d", code)
	}
	out := strings.TrimSuffix(bad, ".eli") + ".ll"
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Fatalf("artifact written despite failure (err=%v)", err)
	}
}

func TestExplicitOutputPath(t *testing.T) {
	good := write(t, "prog.eli", "let x = 1")
	out := filepath.Join(t.TempDir(), "out.ll")
	if code := run([]string{"-o", out, good}); code != exitOK {
		t.Fatalf("exit %d", code)
	}
	if _, err := os.Stat(out); err != nil {
		t.Fatal(err)
	}
}
