package fetch

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUserAgentPool_NoRotation(t *testing.T) {
	t.Parallel()

	p := NewUserAgentPool(false, []string{"agent-a", "agent-b"})
	require.Equal(t, "agent-a", p.Next())
	require.Equal(t, "agent-a", p.Next())
}

func TestUserAgentPool_RotatesRoundRobin(t *testing.T) {
	t.Parallel()

	p := NewUserAgentPool(true, []string{"agent-a", "agent-b", "agent-c"})
	require.Equal(t, "agent-a", p.Next())
	require.Equal(t, "agent-b", p.Next())
	require.Equal(t, "agent-c", p.Next())
	require.Equal(t, "agent-a", p.Next())
}

func TestUserAgentPool_PrimaryDoesNotAdvanceRotation(t *testing.T) {
	t.Parallel()

	p := NewUserAgentPool(true, []string{"agent-a", "agent-b"})
	require.Equal(t, "agent-a", p.Primary())
	require.Equal(t, "agent-a", p.Primary())
	// Rotation is untouched by Primary lookups.
	require.Equal(t, "agent-a", p.Next())
	require.Equal(t, "agent-b", p.Next())
}

func TestUserAgentPool_DefaultsWhenEmpty(t *testing.T) {
	t.Parallel()

	p := NewUserAgentPool(true, nil)
	require.NotEmpty(t, p.Next())
}
