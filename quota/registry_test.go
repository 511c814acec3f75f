package quota

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	r := NewRegistry()

	_, err := r.Get("missing")
	assert.Error(t, err)

	ledger := NewLocalLedger(DefaultConfig())
	r.Set("cred-a", ledger)

	got, err := r.Get("cred-a")
	require.NoError(t, err)
	assert.Same(t, ledger, got)
}

func TestRegistry_SeparateLedgersPerCredential(t *testing.T) {
	r := NewRegistry()
	r.Set("cred-a", NewLocalLedger(DefaultConfig()))
	r.Set("cred-b", NewLocalLedger(AutoConfig(100)))

	a, err := r.Get("cred-a")
	require.NoError(t, err)
	b, err := r.Get("cred-b")
	require.NoError(t, err)

	assert.NotSame(t, a, b)
}
