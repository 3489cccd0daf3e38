// Package prompt builds the message sequence dispatched to the model.
package prompt

import "github.com/comigor/filechat/internal/session"

const contextPreamble = "Use the following text as context:\n\n"
const contextPostamble = "\n\nAnswer the user's questions based on this context."

// Assemble projects the context blob and the transcript into the dispatch
// payload. When a context is present exactly one synthetic system turn is
// prepended; it is built fresh on every call and never stored in the
// transcript. The inputs are never mutated and the output is deterministic.
func Assemble(contextText string, hasContext bool, turns []session.Turn) []session.Turn {
	if !hasContext {
		out := make([]session.Turn, len(turns))
		copy(out, turns)
		return out
	}
	out := make([]session.Turn, 0, len(turns)+1)
	out = append(out, session.Turn{
		Role:    session.RoleSystem,
		Content: contextPreamble + contextText + contextPostamble,
	})
	return append(out, turns...)
}
