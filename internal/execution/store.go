// Package execution tracks workflow runs as their events arrive.
package execution

import (
	"fmt"
	"log"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pocketomega/omega-workflow/internal/events"
	"github.com/pocketomega/omega-workflow/internal/workflow"
	"github.com/pocketomega/omega-workflow/internal/xjson"
)

// minCleanupInterval keeps the ticker interval sane for tiny TTLs.
const minCleanupInterval = time.Millisecond

type NodeState string

const (
	NodePending NodeState = "pending"
	NodeRunning NodeState = "running"
	NodeDone    NodeState = "done"
)

type RunState string

const (
	RunRunning   RunState = "running"
	RunAwaiting  RunState = "awaiting_interaction"
	RunFailed    RunState = "failed"
	RunCompleted RunState = "completed"
)

// Finished reports whether no further events are expected.
func (s RunState) Finished() bool { return s == RunFailed || s == RunCompleted }

// NodeProgress is the last known state of one node.
type NodeProgress struct {
	Name     string
	State    NodeState
	Started  time.Time
	Finished time.Time
}

// Interaction is a pause waiting for the user.
type Interaction struct {
	SessionID    string
	Node         string
	AgentMessage string
}

// Run is a snapshot of one execution.
type Run struct {
	ID       string
	State    RunState
	Nodes    []NodeProgress
	Pending  *Interaction
	Result   xjson.RawMessage
	Error    string
	Started  time.Time
	LastUsed time.Time
}

func (r *Run) clone() Run {
	cp := *r
	cp.Nodes = slices.Clone(r.Nodes)
	if r.Pending != nil {
		p := *r.Pending
		cp.Pending = &p
	}
	cp.Result = slices.Clone(r.Result)
	return cp
}

// Store is a thread-safe in-memory run registry with TTL eviction.
// Runs live only as long as the process.
type Store struct {
	mu   sync.RWMutex
	runs map[string]*Run
	ttl  time.Duration // inactivity TTL
	done chan struct{} // closed by Close() to stop the cleanup goroutine
}

// NewStore starts a cleanup goroutine that evicts runs idle for longer
// than ttl. Call Close when the store is no longer needed.
func NewStore(ttl time.Duration) *Store {
	if ttl < minCleanupInterval {
		ttl = minCleanupInterval
	}
	s := &Store{
		runs: make(map[string]*Run),
		ttl:  ttl,
		done: make(chan struct{}),
	}
	go s.cleanupLoop()
	return s
}

// Start registers a run for w with every node pending and returns its id.
func (s *Store) Start(w *workflow.Workflow) string {
	now := time.Now()
	run := &Run{
		ID:       uuid.New().String(),
		State:    RunRunning,
		Nodes:    make([]NodeProgress, 0, len(w.Graph.Nodes)),
		Started:  now,
		LastUsed: now,
	}
	for _, n := range w.Graph.Nodes {
		run.Nodes = append(run.Nodes, NodeProgress{Name: n.Name, State: NodePending})
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[run.ID] = run
	log.Printf("[Execution] Run %s started (%s)", run.ID, w.Summary())
	return run.ID
}

// Apply records ev against the run. Returns false if the run is unknown.
// Status events for nodes the workflow did not declare are appended, since
// the backend may report fan-out copies of a parallel node.
func (s *Store) Apply(runID string, ev events.Event) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.runs[runID]
	if !ok {
		return false
	}
	now := time.Now()
	run.LastUsed = now

	switch e := ev.(type) {
	case events.Status:
		i := slices.IndexFunc(run.Nodes, func(n NodeProgress) bool { return n.Name == e.Node })
		if i < 0 {
			run.Nodes = append(run.Nodes, NodeProgress{Name: e.Node, State: NodePending})
			i = len(run.Nodes) - 1
		}
		switch e.Status {
		case events.StatusStarted:
			run.Nodes[i].State = NodeRunning
			run.Nodes[i].Started = now
		case events.StatusFinished:
			run.Nodes[i].State = NodeDone
			run.Nodes[i].Finished = now
		}
		if run.State == RunAwaiting && run.Pending != nil && run.Pending.Node == e.Node {
			run.State = RunRunning
			run.Pending = nil
		}
	case events.Error:
		run.State = RunFailed
		run.Error = e.Message
		log.Printf("[Execution] Run %s failed: %s", runID, e.Message)
	case events.FinalResult:
		run.State = RunCompleted
		run.Result = slices.Clone(e.Data)
		run.Pending = nil
		log.Printf("[Execution] Run %s completed", runID)
	case events.AwaitingInteraction:
		run.State = RunAwaiting
		run.Pending = &Interaction{SessionID: e.SessionID, Node: e.Node, AgentMessage: e.AgentMessage}
	}
	return true
}

// Resume clears the pending interaction once the user has replied and
// returns it. ok is false if the run is unknown or not waiting.
func (s *Store) Resume(runID string) (in Interaction, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, found := s.runs[runID]
	if !found || run.Pending == nil {
		return Interaction{}, false
	}
	in = *run.Pending
	run.Pending = nil
	run.State = RunRunning
	run.LastUsed = time.Now()
	return in, true
}

// Get returns a copy of the run.
func (s *Store) Get(runID string) (Run, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	run, ok := s.runs[runID]
	if !ok {
		return Run{}, false
	}
	return run.clone(), true
}

// Delete removes a run.
func (s *Store) Delete(runID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.runs, runID)
}

// Count returns the number of tracked runs.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.runs)
}

var stateIcons = map[NodeState]string{
	NodePending: "[ ]",
	NodeRunning: "[→]",
	NodeDone:    "[x]",
}

// Render formats the run as a markdown checklist followed by a one-line
// status. Returns "" for an unknown run.
func (s *Store) Render(runID string) string {
	run, ok := s.Get(runID)
	if !ok {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("## Execution " + run.ID + "\n")
	done := 0
	for _, n := range run.Nodes {
		icon := stateIcons[n.State]
		if icon == "" {
			icon = "[ ]"
		}
		sb.WriteString(fmt.Sprintf("- %s %s\n", icon, n.Name))
		if n.State == NodeDone {
			done++
		}
	}

	sb.WriteString(fmt.Sprintf("\n> %d/%d nodes done, %s", done, len(run.Nodes), run.State))
	switch {
	case run.State == RunAwaiting && run.Pending != nil:
		sb.WriteString(fmt.Sprintf(": %s asks %q", run.Pending.Node, run.Pending.AgentMessage))
	case run.State == RunFailed:
		sb.WriteString(": " + run.Error)
	}
	sb.WriteString("\n")
	return sb.String()
}

// Close stops the cleanup goroutine. Safe to call multiple times.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	select {
	case <-s.done:
	default:
		close(s.done)
	}
}

// cleanupLoop periodically removes runs idle past the TTL.
func (s *Store) cleanupLoop() {
	ticker := time.NewTicker(s.ttl / 2)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.mu.Lock()
			cutoff := time.Now().Add(-s.ttl)
			for id, run := range s.runs {
				if run.LastUsed.Before(cutoff) {
					delete(s.runs, id)
				}
			}
			s.mu.Unlock()
		}
	}
}
