package main

import (
	"bufio"
	"context"
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/pocketomega/omega-workflow/internal/config"
	"github.com/pocketomega/omega-workflow/internal/events"
	"github.com/pocketomega/omega-workflow/internal/execution"
	"github.com/pocketomega/omega-workflow/internal/transport"
	"github.com/pocketomega/omega-workflow/internal/workflow"
	"github.com/pocketomega/omega-workflow/internal/xjson"
)

// runner submits one workflow and answers its interaction pauses from in.
type runner struct {
	client *transport.Client
	store  *execution.Store
	in     *bufio.Scanner
	out    io.Writer
}

func newRunner(cfg *config.BackendConfig, in io.Reader, out io.Writer) *runner {
	return &runner{
		client: transport.New(cfg),
		store:  execution.NewStore(cfg.RunTTL),
		in:     bufio.NewScanner(in),
		out:    out,
	}
}

func (r *runner) handler(runID string) transport.Handler {
	return func(ev events.Event) error {
		r.store.Apply(runID, ev)
		switch e := ev.(type) {
		case events.Status:
			mark := color.CyanString("→")
			if e.Status == events.StatusFinished {
				mark = color.GreenString("✓")
			}
			fmt.Fprintf(r.out, "%s %s %s\n", mark, e.Node, e.Status)
		case events.Error:
			fmt.Fprintf(r.out, "%s %s\n", color.RedString("✗"), e.Message)
		case events.AwaitingInteraction:
			fmt.Fprintf(r.out, "%s %s: %s\n", color.YellowString("?"), e.Node, e.AgentMessage)
			return transport.ErrStop
		case events.FinalResult:
			fmt.Fprintf(r.out, "%s final result received\n", color.GreenString("✓"))
		}
		return nil
	}
}

func (r *runner) run(ctx context.Context, w *workflow.Workflow) error {
	defer r.store.Close()

	runID := r.store.Start(w)
	handler := r.handler(runID)
	if err := r.client.Execute(ctx, w.Serialize(), handler); err != nil {
		return err
	}

	for {
		pending, ok := r.store.Resume(runID)
		if !ok {
			break
		}
		fmt.Fprintf(r.out, "%s > ", pending.Node)
		if !r.in.Scan() {
			return fmt.Errorf("run: no reply for node %q", pending.Node)
		}
		if err := r.client.Reply(ctx, pending.SessionID, r.in.Text(), handler); err != nil {
			return err
		}
	}

	fmt.Fprint(r.out, r.store.Render(runID))
	run, _ := r.store.Get(runID)
	switch run.State {
	case execution.RunFailed:
		return fmt.Errorf("run %s failed: %s", runID, run.Error)
	case execution.RunCompleted:
		return r.printResult(run.Result)
	default:
		return fmt.Errorf("run %s: stream ended while %s", runID, run.State)
	}
}

func (r *runner) printResult(raw xjson.RawMessage) error {
	var v any
	if err := xjson.Unmarshal(raw, &v); err != nil {
		return fmt.Errorf("run: decode final result: %w", err)
	}
	pretty, err := xjson.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("run: format final result: %w", err)
	}
	fmt.Fprintln(r.out, string(pretty))
	return nil
}
