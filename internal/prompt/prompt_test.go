package prompt

import (
	"testing"

	"github.com/comigor/filechat/internal/session"
	"github.com/stretchr/testify/require"
)

func TestAssembleWithoutContext(t *testing.T) {
	turns := []session.Turn{
		{Role: session.RoleUser, Content: "hi"},
		{Role: session.RoleAssistant, Content: "hello"},
	}

	out := Assemble("", false, turns)
	require.Equal(t, turns, out)
}

func TestAssemblePrependsSingleSystemTurn(t *testing.T) {
	turns := []session.Turn{{Role: session.RoleUser, Content: "What is the capital of France?"}}

	out := Assemble("Paris is the capital of France.", true, turns)
	require.Len(t, out, 2)
	require.Equal(t, session.RoleSystem, out[0].Role)
	require.Contains(t, out[0].Content, "Paris is the capital of France.")
	require.Equal(t, turns[0], out[1])
}

func TestAssembleIsPure(t *testing.T) {
	turns := []session.Turn{
		{Role: session.RoleUser, Content: "a"},
		{Role: session.RoleAssistant, Content: "b"},
	}

	first := Assemble("ctx", true, turns)
	second := Assemble("ctx", true, turns)
	require.Equal(t, first, second)

	// The input slice must not have been touched.
	require.Equal(t, session.RoleUser, turns[0].Role)
	require.Len(t, turns, 2)
}

func TestAssembleDoesNotAliasInput(t *testing.T) {
	turns := []session.Turn{{Role: session.RoleUser, Content: "a"}}
	out := Assemble("", false, turns)
	out[0].Content = "mutated"
	require.Equal(t, "a", turns[0].Content)
}

func TestNewContextReplacesOld(t *testing.T) {
	turns := []session.Turn{{Role: session.RoleUser, Content: "q"}}

	afterB := Assemble("content of file B", true, turns)
	require.NotContains(t, afterB[0].Content, "file A")
	require.Contains(t, afterB[0].Content, "content of file B")
}
