package memory_test

import (
	"context"
	"testing"

	"github.com/aretw0/signalbox/pkg/adapters/memory"
	"github.com/aretw0/signalbox/pkg/machines/traffic"
	"github.com/aretw0/signalbox/pkg/ports/tests"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLoader_Contract(t *testing.T) {
	m, err := traffic.Machine()
	require.NoError(t, err)

	loader, err := memory.NewLoader(m)
	require.NoError(t, err)

	tests.MachineLoaderContractTest(t, loader, []string{"traffic"})
}

func TestMemoryLoader_DuplicateName(t *testing.T) {
	m1, err := traffic.Machine()
	require.NoError(t, err)
	m2, err := traffic.Machine()
	require.NoError(t, err)

	_, err = memory.NewLoader(m1, m2)
	assert.ErrorContains(t, err, "duplicate machine name")
}

func TestMemoryLoader_NilMachine(t *testing.T) {
	_, err := memory.NewLoader(nil)
	assert.Error(t, err)
}

func TestMemoryLoader_NotFound(t *testing.T) {
	loader, err := memory.NewLoader()
	require.NoError(t, err)

	_, err = loader.LoadMachine(context.Background(), "ghost")
	assert.ErrorContains(t, err, "machine not found")
}
