package main

import "testing"

func TestSplitCSV(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"a,b,c", []string{"a", "b", "c"}},
		{" a , b , c ", []string{"a", "b", "c"}},
		{"a,,c", []string{"a", "c"}},
		{"", nil},
	}
	for _, c := range cases {
		got := splitCSV(c.in)
		if len(got) != len(c.want) {
			t.Fatalf("%q -> %v, want %v", c.in, got, c.want)
		}
		for i := range got {
			if got[i] != c.want[i] {
				t.Fatalf("%q -> %v, want %v", c.in, got, c.want)
			}
		}
	}
}

func TestEnvOr(t *testing.T) {
	t.Setenv("STEMD_TEST_KEY", "from-env")
	if got := envOr("STEMD_TEST_KEY", "fallback"); got != "from-env" {
		t.Fatalf("got %q", got)
	}
	if got := envOr("STEMD_TEST_KEY_UNSET", "fallback"); got != "fallback" {
		t.Fatalf("got %q", got)
	}
}

func TestRootCmd_RejectsPositionalArgs(t *testing.T) {
	root := newRootCmd()
	root.SetArgs([]string{"unexpected"})
	if err := root.Execute(); err == nil {
		t.Fatal("expected an error for positional args")
	}
}

func TestRootCmd_RejectsBadConfigPath(t *testing.T) {
	root := newRootCmd()
	root.SetArgs([]string{"--config", "/does/not/exist.yaml"})
	if err := root.Execute(); err == nil {
		t.Fatal("expected an error for missing config file")
	}
}
