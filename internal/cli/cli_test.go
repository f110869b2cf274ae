package cli

import (
	"bytes"
	"context"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/me/mlfq/internal/config"
	"github.com/me/mlfq/internal/kernel"
	"github.com/me/mlfq/internal/mlfq"
	"github.com/me/mlfq/internal/program"
	"github.com/me/mlfq/internal/server"
	"github.com/me/mlfq/internal/store"
)

type testEnv struct {
	url    string
	kernel *kernel.Kernel
	sched  *mlfq.State
}

// startTestServer starts a server over a fresh kernel and an in-memory
// journal. No CPU loops run, so processes stay where exec put them.
func startTestServer(t *testing.T) *testEnv {
	t.Helper()
	srvLogger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelError}))
	st, err := store.NewSQLiteStore(":memory:", srvLogger)
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	if err := st.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate test store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	clock := &kernel.Clock{}
	sched := mlfq.New(mlfq.DefaultConfig(), clock, nil, srvLogger)
	k := kernel.New(sched, clock, program.NewRegistry(), kernel.DefaultConfig(), srvLogger)
	k.SetEventSink(st)

	srv := server.New(config.DefaultServerConfig(), k, st, srvLogger, server.WithQueues(sched, clock))
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return &testEnv{url: ts.URL, kernel: k, sched: sched}
}

func runCLI(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()

	var buf bytes.Buffer
	root.SetIn(strings.NewReader(stdin))
	root.SetOut(&buf)
	root.SetErr(&buf)
	root.SetArgs(args)

	err := root.Execute()
	return buf.String(), err
}

func TestExecuteAndList(t *testing.T) {
	env := startTestServer(t)

	out, err := runCLI(t, "", "--server", env.url, "execute", "/bin/cpu", "3")
	if err != nil {
		t.Fatalf("execute error: %v\noutput: %s", err, out)
	}
	if !strings.Contains(out, "Process 1 (cpu) started") {
		t.Errorf("execute output = %q", out)
	}

	out, err = runCLI(t, "", "--server", env.url, "list")
	if err != nil {
		t.Fatalf("list error: %v", err)
	}
	for _, want := range []string{"NAME", "cpu", "RUNNABLE", "20 KiB", "unlimited"} {
		if !strings.Contains(out, want) {
			t.Errorf("list output missing %q:\n%s", want, out)
		}
	}
}

func TestList_Empty(t *testing.T) {
	env := startTestServer(t)
	out, err := runCLI(t, "", "--server", env.url, "list")
	if err != nil {
		t.Fatalf("list error: %v", err)
	}
	if !strings.Contains(out, "No processes.") {
		t.Errorf("output = %q", out)
	}
}

func TestExecute_Invalid(t *testing.T) {
	env := startTestServer(t)

	if _, err := runCLI(t, "", "--server", env.url, "execute", "cpu", "0"); err == nil {
		t.Error("expected error for stack size 0")
	}
	if _, err := runCLI(t, "", "--server", env.url, "execute", "missing", "1"); err == nil {
		t.Error("expected error for unknown program")
	}
	if _, err := runCLI(t, "", "--server", env.url, "execute", "cpu", "lots"); err == nil {
		t.Error("expected error for non-numeric stack size")
	}
}

func TestKillCommand(t *testing.T) {
	env := startTestServer(t)
	if _, err := env.kernel.Exec("cpu", 1); err != nil {
		t.Fatal(err)
	}

	out, err := runCLI(t, "", "--server", env.url, "kill", "1")
	if err != nil {
		t.Fatalf("kill error: %v", err)
	}
	if !strings.Contains(out, "Process 1 killed") {
		t.Errorf("output = %q", out)
	}
	if env.kernel.Live() != 0 {
		t.Errorf("live = %d, want 0", env.kernel.Live())
	}

	_, err = runCLI(t, "", "--server", env.url, "kill", "1")
	if err == nil || !strings.Contains(err.Error(), "NOT_FOUND") {
		t.Errorf("second kill error = %v, want NOT_FOUND", err)
	}
}

func TestMemlimCommand(t *testing.T) {
	env := startTestServer(t)
	if _, err := env.kernel.Exec("cpu", 1); err != nil {
		t.Fatal(err)
	}

	out, err := runCLI(t, "", "--server", env.url, "memlim", "1", "64KiB")
	if err != nil {
		t.Fatalf("memlim error: %v", err)
	}
	if !strings.Contains(out, "64 KiB") {
		t.Errorf("output = %q", out)
	}
	info, _ := env.kernel.Get(1)
	if info.MemLimit != 65536 {
		t.Errorf("MemLimit = %d, want 65536", info.MemLimit)
	}

	if _, err := runCLI(t, "", "--server", env.url, "memlim", "1", "100"); err == nil {
		t.Error("expected error for limit below current size")
	}

	_, err = runCLI(t, "", "--server", env.url, "memlim", "1", "9EiB")
	if err == nil || !strings.Contains(err.Error(), "exceeds") {
		t.Errorf("memlim 9EiB error = %v, want range error", err)
	}
	info, _ = env.kernel.Get(1)
	if info.MemLimit != 65536 {
		t.Errorf("MemLimit after rejected limit = %d, want 65536", info.MemLimit)
	}
}

func TestPriorityCommand(t *testing.T) {
	env := startTestServer(t)
	if _, err := env.kernel.Exec("cpu", 1); err != nil {
		t.Fatal(err)
	}
	if _, err := runCLI(t, "", "--server", env.url, "priority", "1", "0"); err != nil {
		t.Fatalf("priority error: %v", err)
	}
	info, _ := env.kernel.Get(1)
	if info.Priority != 0 {
		t.Errorf("Priority = %d, want 0", info.Priority)
	}
}

func TestStatusCommand(t *testing.T) {
	env := startTestServer(t)
	for i := 0; i < 2; i++ {
		if _, err := env.kernel.Exec("cpu", 1); err != nil {
			t.Fatal(err)
		}
	}

	out, err := runCLI(t, "", "--server", env.url, "status")
	if err != nil {
		t.Fatalf("status error: %v", err)
	}
	for _, want := range []string{"Tick: 0", "Tier 0: 2 queued", "pids: 1 2", "Tier 2: 0 queued"} {
		if !strings.Contains(out, want) {
			t.Errorf("status output missing %q:\n%s", want, out)
		}
	}
}

func TestEventsCommand(t *testing.T) {
	env := startTestServer(t)
	if _, err := env.kernel.Exec("short", 1); err != nil {
		t.Fatal(err)
	}
	env.sched.DispatchTier0(&mlfq.CPU{})

	out, err := runCLI(t, "", "--server", env.url, "events", "--pid", "1")
	if err != nil {
		t.Fatalf("events error: %v", err)
	}
	for _, want := range []string{"exec", "exit"} {
		if !strings.Contains(out, want) {
			t.Errorf("events output missing %q:\n%s", want, out)
		}
	}

	out, err = runCLI(t, "", "--server", env.url, "events", "--kind", "kill")
	if err != nil {
		t.Fatalf("events error: %v", err)
	}
	if !strings.Contains(out, "No events.") {
		t.Errorf("output = %q", out)
	}
}

func TestShell(t *testing.T) {
	env := startTestServer(t)

	script := strings.Join([]string{
		"execute cpu 2",
		"execute cpu x",
		"execute missing 1",
		"list",
		"memlim 1 1048576",
		"memlim 1 -5",
		"memlim 9 1048576",
		"kill 1",
		"kill 1",
		"kill",
		"bogus",
		"",
		"exit",
		"list",
	}, "\n") + "\n"

	out, err := runCLI(t, script, "--server", env.url, "shell")
	if err != nil {
		t.Fatalf("shell error: %v\noutput: %s", err, out)
	}

	for _, want := range []string{"exec failed", "memlim succeed", "memlim failed", "kill succeed", "kill failed", "cpu"} {
		if !strings.Contains(out, want) {
			t.Errorf("shell output missing %q:\n%s", want, out)
		}
	}
	// execute cpu x, memlim 1 -5, kill, bogus and the empty line.
	if n := strings.Count(out, "undefined command"); n != 5 {
		t.Errorf("undefined command count = %d, want 5\n%s", n, out)
	}
	if n := strings.Count(out, "exec failed"); n != 1 {
		t.Errorf("exec failed count = %d, want 1", n)
	}
	// The list after exit never runs, so the table header appears once.
	if n := strings.Count(out, "NAME"); n != 1 {
		t.Errorf("list ran %d times, want 1", n)
	}
	if env.kernel.Live() != 0 {
		t.Errorf("live = %d, want 0", env.kernel.Live())
	}
}

func TestShell_EOF(t *testing.T) {
	env := startTestServer(t)
	out, err := runCLI(t, "execute short 1\n", "--server", env.url, "shell")
	if err != nil {
		t.Fatalf("shell error: %v", err)
	}
	if strings.Count(out, "- ") != 2 {
		t.Errorf("prompts = %q, want two", out)
	}
	if env.kernel.Live() != 1 {
		t.Errorf("live = %d, want 1", env.kernel.Live())
	}
}

func TestShellArg(t *testing.T) {
	tests := []struct {
		in   string
		want int
		ok   bool
	}{
		{"0", 0, true},
		{"42", 42, true},
		{"-1", 0, false},
		{"+1", 0, false},
		{"4k", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		got, ok := shellArg([]string{"cmd", tt.in}, 1)
		if got != tt.want || ok != tt.ok {
			t.Errorf("shellArg(%q) = %d, %v; want %d, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
	if _, ok := shellArg([]string{"cmd"}, 1); ok {
		t.Error("missing argument accepted")
	}
}

func TestDefaultServer_Env(t *testing.T) {
	t.Setenv("PMANAGER_SERVER", "http://example:9999")
	if got := defaultServer(); got != "http://example:9999" {
		t.Errorf("defaultServer() = %q", got)
	}
}
