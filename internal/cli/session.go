package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/aretw0/sluice"
	"github.com/aretw0/sluice/internal/presentation/tui"
	"github.com/aretw0/sluice/pkg/domain"
	"github.com/aretw0/sluice/pkg/session"
)

// SessionOptions contains all the configuration for the session command.
type SessionOptions struct {
	ModelPath string
	Seed      uint64
	Run       int
	Debug     bool
}

// RunSession starts one interactive run and drives it from stdin commands
// until the user quits or the input is interrupted.
func RunSession(opts SessionOptions) error {
	logger := createLogger(opts.Debug)

	tui.PrintBanner(sluice.Version)

	sys, err := sluice.Load(opts.ModelPath)
	if err != nil {
		return fmt.Errorf("load model: %w", err)
	}

	sigCtx := NewSignalContext(context.Background())
	defer sigCtx.Cancel()

	manager := session.NewManager(session.WithLogger(logger))
	sess, err := manager.Start(sigCtx, sys,
		session.WithSeed(opts.Seed),
		session.WithRun(opts.Run))
	if err != nil {
		// Ctrl+C during start is a clean exit, not a failure.
		return handleExecutionError(fmt.Errorf("start session: %w", err))
	}
	defer func() {
		// The signal context may already be cancelled here.
		_ = manager.Close(context.Background(), sess.ID)
	}()

	printSystemMessage("Session '%s' active on system '%s'. Type 'help' for commands.", sess.ID, sess.System)
	printStatus(sess)

	scanner := bufio.NewScanner(NewInterruptibleReader(os.Stdin, sigCtx.Done()))
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		fields := strings.Fields(strings.TrimSpace(scanner.Text()))
		if len(fields) == 0 {
			continue
		}
		cmd, args := fields[0], fields[1:]

		switch cmd {
		case "q", "quit", "exit":
			printSystemMessage("Session closed at t=%g.", sess.Now())
			return nil
		case "help", "h":
			printHelp()
		case "ls":
			printFireable(sess)
		case "step", "s":
			doStep(sigCtx, sess)
		case "fire", "f":
			if len(args) != 1 {
				printSystemMessage("Usage: fire <transition-id>")
				continue
			}
			doFire(sigCtx, sess, args[0])
		case "goto", "g":
			if len(args) != 1 {
				printSystemMessage("Usage: goto <time>")
				continue
			}
			at, err := strconv.ParseFloat(args[0], 64)
			if err != nil {
				printSystemMessage("Invalid time '%s'.", args[0])
				continue
			}
			doGoto(sigCtx, sess, at)
		case "state":
			printState(sess, sys)
		case "seq":
			printSequence(sess)
		default:
			printSystemMessage("Unknown command '%s'. Type 'help' for commands.", cmd)
		}
	}

	if sigCtx.Signal() == os.Interrupt {
		fmt.Printf("[CTRL+C]\n")
	} else {
		fmt.Printf("\n")
	}
	printSystemMessage("Session interrupted at t=%g.", sess.Now())
	return nil
}

func printHelp() {
	fmt.Print(`  ls              list armed transitions
  step            fire the next scheduled transition
  fire <id>       force an armed transition at the current clock
  goto <t>        advance the clock to t, firing everything on the way
  state           show automaton states and fed inputs
  seq             show the monitored firing sequence
  q               close the session
`)
}

func printStatus(sess *session.Session) {
	status := fmt.Sprintf("t=%g", sess.Now())
	if sess.Frozen() {
		status += fmt.Sprintf(", frozen at t=%g", sess.FrozenAt())
	}
	if reached := sess.ReachedTargets(); len(reached) > 0 {
		status += fmt.Sprintf(", targets reached: %s", strings.Join(reached, ", "))
	}
	printSystemMessage("%s", status)
}

func printFireable(sess *session.Session) {
	refs := sess.Fireable()
	if len(refs) == 0 {
		printSystemMessage("No armed transitions.")
		return
	}
	for _, ref := range refs {
		fmt.Printf("  %-44s t=%g\n", ref.ID(), ref.Time)
	}
}

func printFired(fired *domain.FiredTransition) {
	fmt.Printf("  t=%-8g %s: %s -> %s\n", fired.Time, fired.ID(), fired.From, fired.To)
}

func doStep(ctx context.Context, sess *session.Session) {
	fired, err := sess.StepForward(ctx)
	if err != nil {
		reportStepError(err)
		return
	}
	if fired == nil {
		printSystemMessage("No more scheduled events.")
		return
	}
	printFired(fired)
	printStatus(sess)
}

func doFire(ctx context.Context, sess *session.Session, id string) {
	fired, err := sess.Fire(ctx, id)
	if err != nil {
		reportStepError(err)
		return
	}
	printFired(fired)
	printStatus(sess)
}

func doGoto(ctx context.Context, sess *session.Session, at float64) {
	fired, err := sess.Advance(ctx, at)
	for _, f := range fired {
		printFired(&f)
	}
	if err != nil {
		reportStepError(err)
		return
	}
	printStatus(sess)
}

func reportStepError(err error) {
	switch {
	case errors.Is(err, domain.ErrRunFrozen):
		printSystemMessage("Run is frozen; only 'goto' advances the clock.")
	case errors.Is(err, domain.ErrUnknownTransition):
		printSystemMessage("%v. Use 'ls' to list armed transitions.", err)
	default:
		printSystemMessage("Step failed: %v", err)
	}
}

func printState(sess *session.Session, sys *domain.System) {
	for _, comp := range sys.Components {
		for _, atm := range comp.Automata {
			st, err := sess.State(comp.Name, atm.Name)
			if err != nil {
				continue
			}
			fmt.Printf("  %s.%s = %s\n", comp.Name, atm.Name, st)
		}
		for _, in := range comp.FlowsIn {
			name := domain.VarName(in.Name, domain.SuffixFedIn)
			fed, err := sess.Value(comp.Name, name)
			if err != nil {
				continue
			}
			fmt.Printf("  %s.%s = %t\n", comp.Name, name, fed)
		}
	}
	printStatus(sess)
}

func printSequence(sess *session.Session) {
	seq := sess.Sequence()
	if len(seq) == 0 {
		printSystemMessage("No monitored firings yet.")
		return
	}
	for _, f := range seq {
		printFired(&f)
	}
}
