package schema

import (
	"github.com/aretw0/signalbox/pkg/domain"
)

// Issue codes produced by Check.
const (
	CodeInvalidDefinition  = "invalid-definition"
	CodeUnreachableState   = "unreachable-state"
	CodeShadowedTransition = "shadowed-transition"
	CodeDeadToken          = "dead-token"
	CodeUnusedEvent        = "unused-event"
)

// CheckConfig builds the machine from its raw definition and checks it.
// Structural problems (unknown states, duplicate IDs) surface as
// error-severity issues instead of a plain error, so the caller gets
// one report covering everything.
func CheckConfig(cfg domain.MachineConfig) *Report {
	report := &Report{Machine: cfg.Name}

	m, err := domain.NewMachine(cfg)
	if err != nil {
		report.add(SeverityError, CodeInvalidDefinition, "%v", err)
		return report
	}
	return check(m, report)
}

// Check inspects an already-built machine for definitions that execute
// but probably do not behave as intended. It only ever produces
// warnings: a built machine is structurally sound by construction.
func Check(m *domain.Machine) *Report {
	return check(m, &Report{Machine: m.Name()})
}

func check(m *domain.Machine, report *Report) *Report {
	checkReachability(m, report)
	checkShadowing(m, report)
	checkTokens(m, report)
	checkEvents(m, report)
	return report
}

// checkReachability walks the transition graph from the initial state
// and flags states no event sequence can reach.
func checkReachability(m *domain.Machine, report *Report) {
	initial, _ := m.Initial()
	visited := map[domain.State]bool{initial: true}
	queue := []domain.State{initial}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, tr := range m.Transitions() {
			if tr.From != current || visited[tr.To] {
				continue
			}
			visited[tr.To] = true
			queue = append(queue, tr.To)
		}
	}

	for _, def := range m.States() {
		if !visited[def.ID] {
			report.add(SeverityWarning, CodeUnreachableState,
				"state %q cannot be reached from the initial state %q", def.ID, initial)
		}
	}
}

// checkShadowing flags transitions declared after an unguarded one for
// the same (state, event) pair. Resolution picks the first passing
// transition in declaration order, so the later one never fires.
func checkShadowing(m *domain.Machine, report *Report) {
	unguarded := make(map[domain.State]map[domain.Event]bool)

	for _, tr := range m.Transitions() {
		if unguarded[tr.From][tr.On] {
			report.add(SeverityWarning, CodeShadowedTransition,
				"transition %s --%s--> %s is shadowed by an earlier unguarded transition for the same pair",
				tr.From, tr.On, tr.To)
			continue
		}
		if tr.Guard.IsZero() {
			if unguarded[tr.From] == nil {
				unguarded[tr.From] = make(map[domain.Event]bool)
			}
			unguarded[tr.From][tr.On] = true
		}
	}
}

// checkTokens flags input tokens mapped to events no transition
// consumes. Pressing such a token always hits the identity policy.
func checkTokens(m *domain.Machine, report *Report) {
	consumed := consumedEvents(m)
	for _, tok := range m.Tokens() {
		if !consumed[tok.Event] {
			report.add(SeverityWarning, CodeDeadToken,
				"token %q raises event %q which no transition consumes", string(tok.Key), tok.Event)
		}
	}
}

// checkEvents flags explicitly declared events that never trigger a
// transition and have no token either.
func checkEvents(m *domain.Machine, report *Report) {
	consumed := consumedEvents(m)
	tokenized := make(map[domain.Event]bool)
	for _, tok := range m.Tokens() {
		tokenized[tok.Event] = true
	}

	for _, ev := range m.Events() {
		if !consumed[ev] && !tokenized[ev] {
			report.add(SeverityWarning, CodeUnusedEvent,
				"event %q triggers no transition", ev)
		}
	}
}

func consumedEvents(m *domain.Machine) map[domain.Event]bool {
	consumed := make(map[domain.Event]bool)
	for _, tr := range m.Transitions() {
		consumed[tr.On] = true
	}
	return consumed
}
