package program

import (
	"fmt"
	"strconv"
	"strings"
)

// ActionKind is what a process does with one tick of CPU time.
type ActionKind string

const (
	ActionRun   ActionKind = "run"
	ActionSleep ActionKind = "sleep"
	ActionGrow  ActionKind = "grow"
	ActionExit  ActionKind = "exit"
)

// Action is one decoded step. N is the tick count for run and sleep, and the
// byte count for grow.
type Action struct {
	Kind ActionKind
	N    int
}

func (a Action) String() string {
	if a.Kind == ActionExit || (a.Kind == ActionRun && a.N <= 1) {
		return string(a.Kind)
	}
	return fmt.Sprintf("%s:%d", a.Kind, a.N)
}

// ParseAction decodes "run", "run:N", "sleep:N", "grow:N" or "exit".
func ParseAction(s string) (Action, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	name, arg, hasArg := strings.Cut(s, ":")
	kind := ActionKind(name)

	switch kind {
	case ActionExit:
		if hasArg {
			return Action{}, fmt.Errorf("action %q: exit takes no argument", s)
		}
		return Action{Kind: ActionExit}, nil
	case ActionRun, ActionSleep, ActionGrow:
	default:
		return Action{}, fmt.Errorf("unknown action %q", s)
	}

	n := 1
	if hasArg {
		v, err := strconv.Atoi(arg)
		if err != nil || v < 1 {
			return Action{}, fmt.Errorf("action %q: argument must be a positive integer", s)
		}
		n = v
	} else if kind != ActionRun {
		return Action{}, fmt.Errorf("action %q: %s needs an argument", s, kind)
	}
	return Action{Kind: kind, N: n}, nil
}
