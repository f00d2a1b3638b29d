package execution

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pocketomega/omega-workflow/internal/builder"
	"github.com/pocketomega/omega-workflow/internal/events"
	"github.com/pocketomega/omega-workflow/internal/workflow"
)

func twoStepWorkflow(t *testing.T) *workflow.Workflow {
	t.Helper()
	b := builder.New()
	b.AddNode("Auditor").MarkEntryPoint().EndNode()
	b.AddNode("Relator").SetPrompt("{auditoria}").AddInput(workflow.FromNode("auditoria", "Auditor")).EndNode()
	b.AddEdge("Auditor", "Relator")
	w, err := b.BuildValidated()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	return w
}

func TestStart_AllNodesPending(t *testing.T) {
	s := NewStore(time.Minute)
	defer s.Close()

	id := s.Start(twoStepWorkflow(t))
	run, ok := s.Get(id)
	if !ok {
		t.Fatal("run not found after Start")
	}
	if run.State != RunRunning {
		t.Errorf("State = %q, want running", run.State)
	}
	if len(run.Nodes) != 2 {
		t.Fatalf("expected 2 nodes, got %d", len(run.Nodes))
	}
	for _, n := range run.Nodes {
		if n.State != NodePending {
			t.Errorf("node %s: state %q, want pending", n.Name, n.State)
		}
	}
	if s.Count() != 1 {
		t.Errorf("Count = %d, want 1", s.Count())
	}
}

func TestApply_Lifecycle(t *testing.T) {
	s := NewStore(time.Minute)
	defer s.Close()
	id := s.Start(twoStepWorkflow(t))

	steps := []events.Event{
		events.Status{Node: "Auditor", Status: events.StatusStarted},
		events.Status{Node: "Auditor", Status: events.StatusFinished},
		events.Status{Node: "Relator", Status: events.StatusStarted},
		events.AwaitingInteraction{SessionID: "s-1", Node: "Relator", AgentMessage: "Incluo os anexos?"},
	}
	for _, ev := range steps {
		if !s.Apply(id, ev) {
			t.Fatalf("Apply(%T) returned false", ev)
		}
	}

	run, _ := s.Get(id)
	if run.State != RunAwaiting {
		t.Fatalf("State = %q, want awaiting_interaction", run.State)
	}
	if run.Pending == nil || run.Pending.SessionID != "s-1" {
		t.Fatalf("Pending = %+v", run.Pending)
	}
	if run.Nodes[0].State != NodeDone || run.Nodes[1].State != NodeRunning {
		t.Errorf("node states = %q, %q", run.Nodes[0].State, run.Nodes[1].State)
	}

	in, ok := s.Resume(id)
	if !ok || in.Node != "Relator" {
		t.Fatalf("Resume = %+v, %v", in, ok)
	}
	if _, ok := s.Resume(id); ok {
		t.Error("second Resume should report nothing pending")
	}

	s.Apply(id, events.Status{Node: "Relator", Status: events.StatusFinished})
	s.Apply(id, events.FinalResult{Data: []byte(`{"Relator":"ok"}`)})

	run, _ = s.Get(id)
	if run.State != RunCompleted || !run.State.Finished() {
		t.Errorf("State = %q, want completed", run.State)
	}
	if string(run.Result) != `{"Relator":"ok"}` {
		t.Errorf("Result = %s", run.Result)
	}
}

func TestApply_StatusClearsPendingInteraction(t *testing.T) {
	s := NewStore(time.Minute)
	defer s.Close()
	id := s.Start(twoStepWorkflow(t))

	s.Apply(id, events.AwaitingInteraction{SessionID: "s-1", Node: "Relator", AgentMessage: "?"})
	s.Apply(id, events.Status{Node: "Relator", Status: events.StatusFinished})

	run, _ := s.Get(id)
	if run.State != RunRunning || run.Pending != nil {
		t.Errorf("State = %q, Pending = %+v", run.State, run.Pending)
	}
}

func TestApply_ErrorAndUnknownNodes(t *testing.T) {
	s := NewStore(time.Minute)
	defer s.Close()
	id := s.Start(twoStepWorkflow(t))

	s.Apply(id, events.Status{Node: "Auditor#2", Status: events.StatusStarted})
	s.Apply(id, events.Error{Message: "limite de tokens"})

	run, _ := s.Get(id)
	if len(run.Nodes) != 3 || run.Nodes[2].Name != "Auditor#2" {
		t.Errorf("expected fan-out node appended, got %+v", run.Nodes)
	}
	if run.State != RunFailed || run.Error != "limite de tokens" {
		t.Errorf("State = %q, Error = %q", run.State, run.Error)
	}

	if s.Apply("nao-existe", events.Error{Message: "x"}) {
		t.Error("Apply on unknown run should return false")
	}
}

func TestGet_ReturnsCopy(t *testing.T) {
	s := NewStore(time.Minute)
	defer s.Close()
	id := s.Start(twoStepWorkflow(t))

	run, _ := s.Get(id)
	run.Nodes[0].State = NodeDone
	again, _ := s.Get(id)
	if again.Nodes[0].State != NodePending {
		t.Error("mutating a snapshot changed the store")
	}
}

func TestRender(t *testing.T) {
	s := NewStore(time.Minute)
	defer s.Close()
	id := s.Start(twoStepWorkflow(t))

	if got := s.Render("nao-existe"); got != "" {
		t.Errorf("Render(unknown) = %q, want empty", got)
	}

	s.Apply(id, events.Status{Node: "Auditor", Status: events.StatusFinished})
	s.Apply(id, events.Status{Node: "Relator", Status: events.StatusStarted})
	s.Apply(id, events.AwaitingInteraction{SessionID: "s", Node: "Relator", AgentMessage: "Confirma?"})

	out := s.Render(id)
	for _, want := range []string{
		"## Execution " + id,
		"- [x] Auditor",
		"- [→] Relator",
		"1/2 nodes done, awaiting_interaction",
		`Relator asks "Confirma?"`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Render missing %q:\n%s", want, out)
		}
	}
}

func TestDelete(t *testing.T) {
	s := NewStore(time.Minute)
	defer s.Close()
	id := s.Start(twoStepWorkflow(t))
	s.Delete(id)
	if _, ok := s.Get(id); ok {
		t.Error("run still present after Delete")
	}
}

func TestCleanup_TTLEviction(t *testing.T) {
	ttl := 50 * time.Millisecond
	s := NewStore(ttl)
	defer s.Close()
	s.Start(twoStepWorkflow(t))

	time.Sleep(ttl * 4)
	if n := s.Count(); n != 0 {
		t.Errorf("expected run evicted after TTL, Count = %d", n)
	}
}

func TestClose_Idempotent(t *testing.T) {
	s := NewStore(time.Minute)
	s.Close()
	s.Close()
}

func TestConcurrentApply(t *testing.T) {
	s := NewStore(time.Minute)
	defer s.Close()
	id := s.Start(twoStepWorkflow(t))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Apply(id, events.Status{Node: "Auditor", Status: events.StatusStarted})
			_ = s.Render(id)
		}()
	}
	wg.Wait()

	run, _ := s.Get(id)
	if run.Nodes[0].State != NodeRunning {
		t.Errorf("Auditor state = %q, want running", run.Nodes[0].State)
	}
}
