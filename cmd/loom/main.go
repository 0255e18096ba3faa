// Command loom is the CLI entry point: cobra root plus chat/run/sessions
// subcommands. Grounded on the teacher's cmd/gen/main.go (root command,
// stdin/arg/flag input resolution, provider bootstrap), trimmed to the
// engine's own Turn Controller instead of the teacher's TUI, and
// extended with a `sessions` subcommand over internal/session.Persister.
package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/loomcode/loom/internal/config"
	"github.com/loomcode/loom/internal/log"
	"github.com/loomcode/loom/internal/provider"
	"github.com/loomcode/loom/internal/session"
)

// snapshotAndSave is the opportunistic, fire-and-forget checkpoint the
// CLI performs after each exchange: failures are logged, never
// propagated into the turn loop, per the Session Snapshot adapter's
// own contract.
func (e *engine) snapshotAndSave() {
	snap := session.New(e.history, e.controller)
	id, err := e.persister.Save(e.sessionID, snap, session.Metadata{
		Provider: e.settings.Provider,
		Model:    e.settings.Model,
	})
	if err != nil {
		log.Logger().Sugar().Warnw("session snapshot failed", "error", err)
		return
	}
	e.sessionID = id
}

const version = "0.1.0"

func init() {
	config.LoadDotEnv(".env")
	_ = log.Init()
}

func main() {
	defer log.Sync()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "loom",
	Version: version,
	Short:   "loom - an AI coding assistant's agent execution engine",
	Long: `loom drives a multi-turn conversation with an LLM, dispatches
tool calls, gates sensitive actions behind a permission protocol, and
broadcasts activity events to any observer.

  loom chat "message"       send one message non-interactively
  echo "message" | loom chat   read the message from stdin
  loom run                     start an interactive REPL
  loom sessions                list persisted sessions`,
}

var chatCmd = &cobra.Command{
	Use:   "chat [message]",
	Short: "Send one message and print the final assistant reply",
	Args:  cobra.ArbitraryArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		msg := resolveMessage(args)
		if msg == "" {
			return fmt.Errorf("no message given: pass it as an argument or pipe it on stdin")
		}
		return runOnce(cmd.Context(), msg)
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start an interactive REPL turn loop",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runREPL(cmd.Context())
	},
}

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List persisted sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := session.NewPersister()
		if err != nil {
			return err
		}
		metas, err := p.List()
		if err != nil {
			return err
		}
		if len(metas) == 0 {
			fmt.Println("no sessions yet")
			return nil
		}
		for _, m := range metas {
			fmt.Printf("%s  %-30s  %s  (%d messages)\n", m.ID, m.Title, m.UpdatedAt.Format("2006-01-02 15:04"), m.MessageCount)
		}
		return nil
	},
}

var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "List the LLM backends this build has a binding for",
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, meta := range provider.KnownProviders() {
			fmt.Printf("%-10s auth=%-8s env=%s\n", meta.Provider, meta.AuthMethod, strings.Join(meta.EnvVars, ","))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(chatCmd, runCmd, sessionsCmd, providersCmd)
}

// resolveMessage mirrors the teacher's getInputMessage: positional args
// win, otherwise read a piped stdin.
func resolveMessage(args []string) string {
	if len(args) > 0 {
		return strings.Join(args, " ")
	}
	stat, _ := os.Stdin.Stat()
	if (stat.Mode() & os.ModeCharDevice) == 0 {
		data, err := io.ReadAll(bufio.NewReader(os.Stdin))
		if err == nil && len(data) > 0 {
			return strings.TrimSpace(string(data))
		}
	}
	return ""
}

func runOnce(ctx context.Context, msg string) error {
	eng, err := newEngine()
	if err != nil {
		return err
	}
	reply, err := eng.controller.SendMessage(ctx, msg)
	if err != nil {
		return err
	}
	eng.snapshotAndSave()
	fmt.Println(reply)
	return nil
}

func runREPL(ctx context.Context) error {
	eng, err := newEngine()
	if err != nil {
		return err
	}
	scanner := bufio.NewScanner(os.Stdin)
	fmt.Println("loom interactive — Ctrl+D to exit")
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return nil
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "/compact" {
			if err := eng.compact(ctx); err != nil {
				fmt.Fprintf(os.Stderr, "compact failed: %v\n", err)
			}
			continue
		}
		reply, err := eng.controller.SendMessage(ctx, line)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			continue
		}
		eng.snapshotAndSave()
		fmt.Println(reply)
	}
}
