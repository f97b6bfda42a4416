package domain_test

import (
	"testing"
	"time"

	"github.com/aretw0/signalbox/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func twoStateConfig() domain.MachineConfig {
	return domain.MachineConfig{
		Name:    "blinker",
		Initial: "on",
		States: []domain.StateDef{
			{ID: "on"},
			{ID: "off"},
		},
		Transitions: []domain.Transition{
			{From: "on", On: domain.Timeout, To: "off"},
			{From: "off", On: domain.Timeout, To: "on"},
		},
	}
}

func TestNewMachineValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*domain.MachineConfig)
		wantErr error
	}{
		{
			name:   "valid",
			mutate: func(cfg *domain.MachineConfig) {},
		},
		{
			name: "missing initial",
			mutate: func(cfg *domain.MachineConfig) {
				cfg.Initial = ""
			},
			wantErr: domain.ErrNoInitialState,
		},
		{
			name: "initial not declared",
			mutate: func(cfg *domain.MachineConfig) {
				cfg.Initial = "standby"
			},
			wantErr: domain.ErrUnknownState,
		},
		{
			name: "duplicate state",
			mutate: func(cfg *domain.MachineConfig) {
				cfg.States = append(cfg.States, domain.StateDef{ID: "on"})
			},
			wantErr: domain.ErrDuplicateState,
		},
		{
			name: "transition from undeclared state",
			mutate: func(cfg *domain.MachineConfig) {
				cfg.Transitions = append(cfg.Transitions, domain.Transition{From: "ghost", On: "Kick", To: "on"})
			},
			wantErr: domain.ErrUnknownState,
		},
		{
			name: "transition to undeclared state",
			mutate: func(cfg *domain.MachineConfig) {
				cfg.Transitions = append(cfg.Transitions, domain.Transition{From: "on", On: "Kick", To: "ghost"})
			},
			wantErr: domain.ErrUnknownState,
		},
		{
			name: "duplicate token key",
			mutate: func(cfg *domain.MachineConfig) {
				cfg.Tokens = []domain.Token{
					{Key: 'k', Event: "Kick"},
					{Key: 'k', Event: "Kick"},
				}
			},
			wantErr: domain.ErrDuplicateToken,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := twoStateConfig()
			tc.mutate(&cfg)

			m, err := domain.NewMachine(cfg)
			if tc.wantErr == nil {
				assert.NoError(t, err)
				assert.NotNil(t, m)
				return
			}
			assert.ErrorIs(t, err, tc.wantErr)
			assert.Nil(t, m)
		})
	}
}

func TestResolveMatchedTransition(t *testing.T) {
	m, err := domain.NewMachine(twoStateConfig())
	require.NoError(t, err)

	out := m.Resolve("on", domain.Timeout)
	assert.True(t, out.Matched)
	assert.Equal(t, domain.State("off"), out.To)
	assert.Equal(t, domain.State("on"), out.From)
	assert.Equal(t, domain.Timeout, out.On)
}

func TestResolveIdentityOnUnmatchedPair(t *testing.T) {
	m, err := domain.NewMachine(twoStateConfig())
	require.NoError(t, err)

	// No transition declared for this pair: the machine stays put and
	// produces no actions. This is policy, not an error.
	out := m.Resolve("on", "Nonsense")
	assert.False(t, out.Matched)
	assert.Equal(t, domain.State("on"), out.To)
	assert.Empty(t, out.Actions)
}

func TestResolveIsDeterministic(t *testing.T) {
	m, err := domain.NewMachine(twoStateConfig())
	require.NoError(t, err)

	first := m.Resolve("off", domain.Timeout)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, m.Resolve("off", domain.Timeout))
	}
}

func TestResolveGuardOrder(t *testing.T) {
	pass := domain.Guard{Name: "pass", Allow: func(domain.Event) bool { return true }}
	block := domain.Guard{Name: "block", Allow: func(domain.Event) bool { return false }}

	cfg := domain.MachineConfig{
		Name:    "gated",
		Initial: "a",
		States:  []domain.StateDef{{ID: "a"}, {ID: "b"}, {ID: "c"}},
		Transitions: []domain.Transition{
			{From: "a", On: "Go", To: "b", Guard: block},
			{From: "a", On: "Go", To: "c", Guard: pass},
		},
	}
	m, err := domain.NewMachine(cfg)
	require.NoError(t, err)

	// First declared transition is blocked; the second wins.
	out := m.Resolve("a", "Go")
	assert.True(t, out.Matched)
	assert.Equal(t, domain.State("c"), out.To)
}

func TestResolveAllGuardsBlockedFallsBackToIdentity(t *testing.T) {
	block := domain.Guard{Name: "block", Allow: func(domain.Event) bool { return false }}

	cfg := domain.MachineConfig{
		Name:    "gated",
		Initial: "a",
		States:  []domain.StateDef{{ID: "a"}, {ID: "b"}},
		Transitions: []domain.Transition{
			{From: "a", On: "Go", To: "b", Guard: block},
		},
	}
	m, err := domain.NewMachine(cfg)
	require.NoError(t, err)

	out := m.Resolve("a", "Go")
	assert.False(t, out.Matched)
	assert.Equal(t, domain.State("a"), out.To)
}

func TestInternalTransitionStaysInState(t *testing.T) {
	cfg := domain.MachineConfig{
		Name:    "counter",
		Initial: "idle",
		States:  []domain.StateDef{{ID: "idle"}},
		Transitions: []domain.Transition{
			{From: "idle", On: "Tick", Internal: true, Actions: []domain.Action{domain.ArmTimer(time.Second)}},
		},
	}
	m, err := domain.NewMachine(cfg)
	require.NoError(t, err)

	out := m.Resolve("idle", "Tick")
	assert.True(t, out.Matched)
	assert.True(t, out.Internal)
	assert.Equal(t, domain.State("idle"), out.To)
	assert.Len(t, out.Actions, 1)
}

func TestEventSetIsUnionOfSources(t *testing.T) {
	cfg := twoStateConfig()
	cfg.Events = []domain.Event{"Declared"}
	cfg.Tokens = []domain.Token{{Key: 'x', Event: "FromToken"}}

	m, err := domain.NewMachine(cfg)
	require.NoError(t, err)

	assert.True(t, m.HasEvent("Declared"))
	assert.True(t, m.HasEvent(domain.Timeout))
	assert.True(t, m.HasEvent("FromToken"))
	assert.False(t, m.HasEvent("Nonsense"))
}

func TestLabelFallsBackToID(t *testing.T) {
	cfg := twoStateConfig()
	cfg.States[0].Label = "Powered On"

	m, err := domain.NewMachine(cfg)
	require.NoError(t, err)

	assert.Equal(t, "Powered On", m.Label("on"))
	assert.Equal(t, "off", m.Label("off"))
	assert.Equal(t, "ghost", m.Label("ghost"), "unknown states fall back to the raw ID")
}

func TestTokenLookup(t *testing.T) {
	cfg := twoStateConfig()
	cfg.Tokens = []domain.Token{{Key: 'b', Event: "Break", Notice: "--- broke it"}}

	m, err := domain.NewMachine(cfg)
	require.NoError(t, err)

	tok, ok := m.Token('b')
	assert.True(t, ok)
	assert.Equal(t, domain.Event("Break"), tok.Event)
	assert.Equal(t, "--- broke it", tok.Notice)

	_, ok = m.Token('z')
	assert.False(t, ok)
}
