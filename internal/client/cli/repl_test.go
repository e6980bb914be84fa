package cli

import (
	"bufio"
	"context"
	"strings"
	"testing"
)

type fakeExec struct {
	unlocked bool

	calls []string
	args  []string
}

func (f *fakeExec) isUnlocked() bool { return f.unlocked }
func (f *fakeExec) Register(ctx context.Context) error {
	f.calls = append(f.calls, "register")
	return nil
}
func (f *fakeExec) Login(ctx context.Context) error {
	f.calls = append(f.calls, "login")
	f.unlocked = true
	return nil
}
func (f *fakeExec) Logout(ctx context.Context) error {
	f.calls = append(f.calls, "logout")
	f.unlocked = false
	return nil
}
func (f *fakeExec) Contacts(ctx context.Context) error {
	f.calls = append(f.calls, "contacts")
	return nil
}
func (f *fakeExec) Chats(ctx context.Context, args []string) error {
	f.calls = append(f.calls, "chats")
	f.args = args
	return nil
}
func (f *fakeExec) History(ctx context.Context, args []string) error {
	f.calls = append(f.calls, "history")
	return nil
}
func (f *fakeExec) Note(ctx context.Context, args []string) error {
	f.calls = append(f.calls, "note")
	return nil
}
func (f *fakeExec) Invite(ctx context.Context, args []string) error {
	f.calls = append(f.calls, "invite")
	f.args = args
	return nil
}
func (f *fakeExec) Respond(ctx context.Context) error {
	f.calls = append(f.calls, "respond")
	return nil
}
func (f *fakeExec) Pin(ctx context.Context, args []string) error {
	f.calls = append(f.calls, "pin")
	return nil
}

func TestRunREPL_LoginFlowAndCommands(t *testing.T) {
	origPrint := printlnFn
	printlnFn = func(...any) (int, error) { return 0, nil }
	t.Cleanup(func() { printlnFn = origPrint })

	input := strings.NewReader(strings.Join([]string{
		"help",
		"contacts", // locked: unknown command, must not dispatch
		"login",
		"help",
		"contacts",
		"invite bob#2 hi there",
		"respond",
		"pin bob#2",
		"foobar",
		"exit",
	}, "\n"))

	exec := &fakeExec{unlocked: false}
	sc := bufio.NewScanner(input)

	runREPL(context.Background(), exec, func() string { return "status" }, sc)

	wantOrder := []string{"login", "contacts", "invite", "respond", "pin"}
	if len(exec.calls) != len(wantOrder) {
		t.Fatalf("calls mismatch: got %v, want %v", exec.calls, wantOrder)
	}
	for i, c := range exec.calls {
		if c != wantOrder[i] {
			t.Fatalf("commands order mismatch: got %v, want %v", exec.calls, wantOrder)
		}
	}
}

func TestRunREPL_ArgsArePassedThrough(t *testing.T) {
	origPrint := printlnFn
	printlnFn = func(...any) (int, error) { return 0, nil }
	t.Cleanup(func() { printlnFn = origPrint })

	input := strings.NewReader("invite bob#2 hello there\nquit\n")
	exec := &fakeExec{unlocked: true}
	sc := bufio.NewScanner(input)

	runREPL(context.Background(), exec, func() string { return "s" }, sc)

	if len(exec.args) != 3 || exec.args[0] != "bob#2" {
		t.Fatalf("unexpected args: %v", exec.args)
	}
}

func TestRunREPL_LockedRejectsVaultCommands(t *testing.T) {
	origPrint := printlnFn
	printlnFn = func(...any) (int, error) { return 0, nil }
	t.Cleanup(func() { printlnFn = origPrint })

	input := strings.NewReader("contacts\ninvite bob#2\nquit\n")
	exec := &fakeExec{unlocked: false}
	sc := bufio.NewScanner(input)

	runREPL(context.Background(), exec, func() string { return "s" }, sc)

	if len(exec.calls) != 0 {
		t.Fatalf("unexpected calls: %v", exec.calls)
	}
}
