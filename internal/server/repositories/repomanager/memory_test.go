package repomanager

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRepositoryManager_SharesInstances(t *testing.T) {
	m := NewMemoryRepositoryManager()

	assert.Same(t, m.Users(nil), m.Users(nil))
	assert.Same(t, m.Mailbox(nil), m.Mailbox(nil))
	assert.Same(t, m.RefreshTokens(nil), m.RefreshTokens(nil))
	assert.NoError(t, m.RunMigrations(context.Background(), nil))
}

func TestNew(t *testing.T) {
	m, err := New(DriverMemory)
	require.NoError(t, err)
	assert.IsType(t, &MemoryRepositoryManager{}, m)

	m, err = New(DriverPostgres)
	require.NoError(t, err)
	assert.IsType(t, &PostgresRepositoryManager{}, m)

	_, err = New("mongo")
	assert.Error(t, err)
}
