package cluster

import (
	"context"
	"errors"
	"fmt"
	"strings"

	cerrdefs "github.com/containerd/errdefs"

	"github.com/schmitthub/settle/pkg/check"
	"github.com/schmitthub/settle/pkg/whail"
)

// IsRunning holds while the container reports State.Running.
func IsRunning(rt whail.Runtime, id string) check.Predicate {
	label := fmt.Sprintf("container %s is running", id)
	return check.NewPredicate(label, func(ctx context.Context) check.PredicateResult {
		st, err := rt.InspectContainer(ctx, id)
		if err != nil {
			return check.PredicateResult{Result: check.Failure[bool](err), Message: err.Error()}
		}
		msg := fmt.Sprintf("container %s is %s", id, st.Status)
		if !st.Running && st.Status == "exited" {
			msg += fmt.Sprintf(" (exit code %d)", st.ExitCode)
		}
		return check.PredicateResult{Result: check.Success(st.Running), Message: msg}
	})
}

// IsStopped holds once the container is no longer running. A container
// that does not exist counts as stopped; any other inspect failure is an
// evaluation error.
func IsStopped(rt whail.Runtime, id string) check.Predicate {
	label := fmt.Sprintf("container %s is not running", id)
	return check.NewPredicate(label, func(ctx context.Context) check.PredicateResult {
		st, err := rt.InspectContainer(ctx, id)
		if cerrdefs.IsNotFound(err) {
			return check.PredicateResult{Result: check.Success(true), Message: fmt.Sprintf("container %s does not exist", id)}
		}
		if err != nil {
			return check.PredicateResult{Result: check.Failure[bool](err), Message: err.Error()}
		}
		return check.PredicateResult{
			Result:  check.Success(!st.Running),
			Message: fmt.Sprintf("container %s is %s", id, st.Status),
		}
	})
}

// IsHealthy holds once the container health check reports "healthy".
func IsHealthy(rt whail.Runtime, id string) check.Predicate {
	label := fmt.Sprintf("container %s is healthy", id)
	return check.NewPredicate(label, func(ctx context.Context) check.PredicateResult {
		st, err := rt.InspectContainer(ctx, id)
		if err != nil {
			return check.PredicateResult{Result: check.Failure[bool](err), Message: err.Error()}
		}
		health := st.Health
		if health == "" {
			health = "none"
		}
		return check.PredicateResult{
			Result:  check.Success(st.Health == "healthy"),
			Message: fmt.Sprintf("container %s health is %s", id, health),
		}
	})
}

// LogContains holds once the container's logs contain text.
func LogContains(rt whail.Runtime, id, text string) check.Predicate {
	label := fmt.Sprintf("logs of %s contain %q", id, text)
	return check.NewPredicate(label, func(ctx context.Context) check.PredicateResult {
		logs, err := rt.Logs(ctx, id)
		if err != nil {
			return check.PredicateResult{Result: check.Failure[bool](err), Message: err.Error()}
		}
		if strings.Contains(logs, text) {
			return check.PredicateResult{Result: check.Success(true), Message: label}
		}
		return check.PredicateResult{
			Result:  check.Success(false),
			Message: fmt.Sprintf("%q not yet in logs of %s (last line: %q)", text, id, lastLine(logs)),
		}
	})
}

// ExecSucceeds holds once argv exits 0 inside the container. A non-zero
// exit is "not satisfied"; failing to run the command at all is an
// evaluation error.
func ExecSucceeds(rt whail.Runtime, id string, argv ...string) check.Predicate {
	label := fmt.Sprintf("%q succeeds in %s", strings.Join(argv, " "), id)
	return check.NewPredicate(label, func(ctx context.Context) check.PredicateResult {
		_, err := rt.Exec(ctx, id, argv)
		if err == nil {
			return check.PredicateResult{Result: check.Success(true), Message: label}
		}
		var pe *whail.ProcessError
		if errors.As(err, &pe) {
			return check.PredicateResult{Result: check.Success(false), Message: pe.Error()}
		}
		return check.PredicateResult{Result: check.Failure[bool](err), Message: err.Error()}
	})
}

func lastLine(s string) string {
	s = strings.TrimRight(s, "\n")
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}
