package runner

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSignalManager_StopCancelsContext(t *testing.T) {
	sm := NewSignalManager(context.Background())
	assert.False(t, sm.Interrupted())

	sm.Stop()
	assert.True(t, sm.Interrupted())
}

func TestSignalManager_ParentCancellationPropagates(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	sm := NewSignalManager(parent)
	defer sm.Stop()

	cancel()
	assert.True(t, sm.CheckRace())
	assert.True(t, sm.Interrupted())
}

func TestSignalManager_CheckRaceTimesOut(t *testing.T) {
	sm := NewSignalManager(context.Background())
	defer sm.Stop()

	start := time.Now()
	raced := sm.CheckRace()
	assert.False(t, raced)
	assert.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)
}
