package postgres

import "testing"

func TestOrEnv(t *testing.T) {
	t.Setenv("PGHOST", "db.internal")

	if got := orEnv("explicit", "PGHOST", "127.0.0.1"); got != "explicit" {
		t.Errorf("explicit value: got %q", got)
	}
	if got := orEnv("", "PGHOST", "127.0.0.1"); got != "db.internal" {
		t.Errorf("env value: got %q", got)
	}
	t.Setenv("PGHOST", "")
	if got := orEnv("", "PGHOST", "127.0.0.1"); got != "127.0.0.1" {
		t.Errorf("default value: got %q", got)
	}
}

func TestClampLimit(t *testing.T) {
	cases := map[int]int{0: 200, -3: 200, 50: 50, 10000: 10000, 20000: 10000}
	for in, want := range cases {
		if got := clampLimit(in); got != want {
			t.Errorf("clampLimit(%d) = %d, want %d", in, got, want)
		}
	}
}

func TestNewFailsWithoutServer(t *testing.T) {
	_, err := New(Options{Host: "127.0.0.1", Port: "1", Dataset: "test"})
	if err == nil {
		t.Fatal("expected an error when no server listens")
	}
}

func TestErrorLoggedFlag(t *testing.T) {
	c := &Client{}
	if c.HasLoggedError() {
		t.Fatal("fresh client reports a logged error")
	}
	c.MarkErrorLogged()
	if !c.HasLoggedError() {
		t.Fatal("flag not set")
	}
}
