package builtin

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/loomcode/loom/internal/task"
	"github.com/loomcode/loom/internal/tool"
)

// backgroundSysProcAttr puts a background command in its own process
// group so task.BashTask.Stop/Kill can signal every descendant it
// spawns, not just the immediate bash process.
func backgroundSysProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setpgid: true}
}

const (
	defaultBashTimeout = 120 * time.Second
	maxBashTimeout      = 600 * time.Second
	maxBashOutput       = 30000
)

// BashTool executes a shell command in the turn's working directory
// (spec.md §6 representative tool "bash"). Its declared Sensitivity is
// Destructive — the Permission Gate further distinguishes an
// ordinary command from a known-irreversible one via
// permission.IsDestructiveBash, which always forces a prompt
// regardless of trust (spec.md §4.3). A run_in_background command is
// handed to Tasks instead of run inline, so it can outlive this one
// Orchestrator dispatch (SPEC_FULL.md §C.2).
type BashTool struct {
	Tasks *task.Manager
}

func (t *BashTool) Name() string { return "bash" }

func (t *BashTool) Description() string {
	return "Execute a shell command in the working directory, optionally in the background"
}

func (t *BashTool) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"command":           map[string]any{"type": "string"},
			"description":       map[string]any{"type": "string"},
			"timeout_ms":        map[string]any{"type": "integer", "minimum": 1},
			"run_in_background": map[string]any{"type": "boolean"},
		},
		"required":             []any{"command"},
		"additionalProperties": false,
	}
}

func (t *BashTool) RequiresConfirmation() bool   { return true }
func (t *BashTool) Sensitivity() tool.Sensitivity { return tool.Destructive }
func (t *BashTool) IsTransparentWrapper() bool    { return false }
func (t *BashTool) VisibleInChat() bool           { return true }

func (t *BashTool) Execute(ctx context.Context, args map[string]any, ec tool.ExecContext) tool.Result {
	command, _ := args["command"].(string)
	if command == "" {
		return tool.Result{Error: "command is required", ErrorKind: "invalid_argument"}
	}
	description, _ := args["description"].(string)

	if runBackground, _ := args["run_in_background"].(bool); runBackground {
		return t.executeBackground(command, description, ec)
	}

	timeout := defaultBashTimeout
	if ms := intArg(args, "timeout_ms", 0); ms > 0 {
		timeout = time.Duration(ms) * time.Millisecond
		if timeout > maxBashTimeout {
			timeout = maxBashTimeout
		}
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, "bash", "-c", command)
	cmd.Dir = ec.Cwd

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	output := stdout.String()
	if stderr.Len() > 0 {
		if output != "" {
			output += "\n"
		}
		output += stderr.String()
	}
	if len(output) > maxBashOutput {
		output = output[:maxBashOutput] + "\n... (output truncated)"
	}

	if err != nil {
		if runCtx.Err() == context.DeadlineExceeded {
			return tool.Result{Output: output, Error: "command timed out after " + timeout.String(), ErrorKind: "timeout"}
		}
		errorMsg := err.Error()
		if exitErr, ok := err.(*exec.ExitError); ok {
			errorMsg = "exit code " + strconv.Itoa(exitErr.ExitCode())
		}
		return tool.Result{Output: output, Error: errorMsg, ErrorKind: "exec_error"}
	}

	return tool.Result{Success: true, Output: output}
}

// executeBackground starts command in its own process group and
// returns immediately with a tracked task id, for a caller that later
// polls it via the "task-output"/"task-stop" tools.
func (t *BashTool) executeBackground(command, description string, ec tool.ExecContext) tool.Result {
	if t.Tasks == nil {
		return tool.Result{Error: "background tasks are not supported here", ErrorKind: "system_error"}
	}

	runCtx, cancel := context.WithCancel(context.Background())
	cmd := exec.CommandContext(runCtx, "bash", "-c", command)
	cmd.Dir = ec.Cwd
	cmd.SysProcAttr = backgroundSysProcAttr()

	id := task.NewID()
	var bt *task.BashTask

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return tool.Result{Error: err.Error(), ErrorKind: "system_error"}
	}
	cmd.Stderr = cmd.Stdout

	if err := cmd.Start(); err != nil {
		cancel()
		return tool.Result{Error: err.Error(), ErrorKind: "exec_error"}
	}

	bt = task.NewBashTask(id, command, description, cmd, cancel)
	t.Tasks.Add(bt)

	go func() {
		defer cancel()
		buf := make([]byte, 4096)
		for {
			n, readErr := stdout.Read(buf)
			if n > 0 {
				bt.AppendOutput(string(buf[:n]))
			}
			if readErr != nil {
				break
			}
		}
		err := cmd.Wait()
		exitCode := 0
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
			err = nil
		}
		bt.Complete(exitCode, err)
	}()

	return tool.Result{
		Success: true,
		Output:  fmt.Sprintf("Started background task %s", id),
	}
}

func (t *BashTool) Subtext(args map[string]any) string {
	if d, _ := args["description"].(string); d != "" {
		return d
	}
	cmd, _ := args["command"].(string)
	if len(cmd) > 60 {
		cmd = cmd[:60] + "..."
	}
	return cmd
}

func (t *BashTool) Preview(args map[string]any, r tool.Result) string {
	if !r.Success {
		return strings.TrimSpace(r.Output + "\n" + r.Error)
	}
	return r.Output
}

