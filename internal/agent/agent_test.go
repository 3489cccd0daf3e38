package agent

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/comigor/filechat/internal/contextfile"
	"github.com/comigor/filechat/internal/llm"
	"github.com/comigor/filechat/internal/session"
)

// mockStream replays scripted fragments; after they are drained it returns
// failErr when set, io.EOF otherwise.
type mockStream struct {
	fragments []string
	failErr   error
	closed    bool
}

func (m *mockStream) Recv() (string, error) {
	if len(m.fragments) == 0 {
		if m.failErr != nil {
			return "", m.failErr
		}
		return "", io.EOF
	}
	f := m.fragments[0]
	m.fragments = m.fragments[1:]
	return f, nil
}

func (m *mockStream) Close() error {
	m.closed = true
	return nil
}

type mockLLM struct {
	streams  []*mockStream
	openErr  error
	payloads [][]session.Turn
}

func (m *mockLLM) StreamChat(ctx context.Context, turns []session.Turn) (llm.Stream, error) {
	m.payloads = append(m.payloads, turns)
	if m.openErr != nil {
		return nil, &llm.InferenceError{Err: m.openErr}
	}
	if len(m.streams) == 0 {
		panic("mockLLM: no more streams configured")
	}
	s := m.streams[0]
	m.streams = m.streams[1:]
	return s, nil
}

func TestProcess_StreamsFragmentsAndCommitsTurn(t *testing.T) {
	stream := &mockStream{fragments: []string{"Hel", "lo", ""}}
	loop := New(&mockLLM{streams: []*mockStream{stream}})
	sess := &session.Session{ID: "s1"}

	var seen []string
	reply, err := loop.Process(context.Background(), sess, "hi", func(f string) {
		seen = append(seen, f)
	})
	require.NoError(t, err)
	require.Equal(t, "Hello", reply)
	require.Equal(t, []string{"Hel", "lo"}, seen, "empty fragments are not relayed")
	require.True(t, stream.closed)

	turns := sess.Turns()
	require.Len(t, turns, 2)
	require.Equal(t, session.Turn{Role: session.RoleUser, Content: "hi"}, turns[0])
	require.Equal(t, session.Turn{Role: session.RoleAssistant, Content: "Hello"}, turns[1])
}

func TestProcess_TranscriptAlternatesOverManySubmissions(t *testing.T) {
	const n = 4
	mock := &mockLLM{}
	for i := 0; i < n; i++ {
		mock.streams = append(mock.streams, &mockStream{fragments: []string{fmt.Sprintf("reply %d", i)}})
	}
	loop := New(mock)
	sess := &session.Session{ID: "s1"}

	for i := 0; i < n; i++ {
		_, err := loop.Process(context.Background(), sess, fmt.Sprintf("question %d", i), nil)
		require.NoError(t, err)
	}

	turns := sess.Turns()
	require.Len(t, turns, 2*n)
	for i, turn := range turns {
		if i%2 == 0 {
			require.Equal(t, session.RoleUser, turn.Role)
		} else {
			require.Equal(t, session.RoleAssistant, turn.Role)
		}
	}
}

func TestProcess_OpenFailureKeepsUserTurnOnly(t *testing.T) {
	loop := New(&mockLLM{openErr: errors.New("connection refused")})
	sess := &session.Session{ID: "s1"}

	_, err := loop.Process(context.Background(), sess, "hi", nil)
	require.Error(t, err)

	var infErr *llm.InferenceError
	require.True(t, errors.As(err, &infErr))

	turns := sess.Turns()
	require.Len(t, turns, 1, "the user turn only")
	require.Equal(t, session.RoleUser, turns[0].Role)
}

func TestProcess_MidStreamFailureDiscardsPartialTurn(t *testing.T) {
	stream := &mockStream{
		fragments: []string{"par", "tial"},
		failErr:   &llm.InferenceError{Err: errors.New("stream interrupted")},
	}
	loop := New(&mockLLM{streams: []*mockStream{stream}})
	sess := &session.Session{ID: "s1"}
	sess.Append(session.RoleUser, "earlier")
	sess.Append(session.RoleAssistant, "earlier reply")
	before := sess.Len()

	var seen []string
	_, err := loop.Process(context.Background(), sess, "hi", func(f string) {
		seen = append(seen, f)
	})
	require.Error(t, err)
	require.Equal(t, []string{"par", "tial"}, seen, "partial text is still displayed best-effort")
	require.Equal(t, before+1, sess.Len(), "user turn only, no assistant turn")
	require.True(t, stream.closed)
}

func TestLoadContext_DecodeErrorLeavesStateUntouched(t *testing.T) {
	loop := New(&mockLLM{})
	sess := &session.Session{ID: "s1"}
	sess.SetContext("prior context")
	sess.Append(session.RoleUser, "hi")

	err := loop.LoadContext(sess, []byte{0x00, 0x01, 0x02})
	require.Error(t, err)

	var decodeErr *contextfile.DecodeError
	require.True(t, errors.As(err, &decodeErr))

	txt, ok := sess.Context()
	require.True(t, ok)
	require.Equal(t, "prior context", txt)
	require.Equal(t, 1, sess.Len())
}

func TestLoadContext_ReplacesBlobWithoutTouchingTranscript(t *testing.T) {
	loop := New(&mockLLM{})
	sess := &session.Session{ID: "s1"}
	sess.Append(session.RoleUser, "hi")
	sess.Append(session.RoleAssistant, "hello")

	require.NoError(t, loop.LoadContext(sess, []byte("file A")))
	require.NoError(t, loop.LoadContext(sess, []byte("file B")))

	txt, ok := sess.Context()
	require.True(t, ok)
	require.Equal(t, "file B", txt)
	require.Equal(t, 2, sess.Len())
}

// End-to-end: upload, ask, verify dispatch payload and committed turn.
func TestProcess_FileContextScenario(t *testing.T) {
	mock := &mockLLM{streams: []*mockStream{{fragments: []string{"Paris", ".", ""}}}}
	loop := New(mock)
	sess := &session.Session{ID: "s1"}

	require.NoError(t, loop.LoadContext(sess, []byte("Paris is the capital of France.")))

	reply, err := loop.Process(context.Background(), sess, "What is the capital of France?", nil)
	require.NoError(t, err)
	require.Equal(t, "Paris.", reply)

	require.Len(t, mock.payloads, 1)
	payload := mock.payloads[0]
	require.Len(t, payload, 2)
	require.Equal(t, session.RoleSystem, payload[0].Role)
	require.Contains(t, payload[0].Content, "Paris is the capital of France.")
	require.Equal(t, session.Turn{Role: session.RoleUser, Content: "What is the capital of France?"}, payload[1])

	turns := sess.Turns()
	require.Len(t, turns, 2)
	require.Equal(t, session.Turn{Role: session.RoleAssistant, Content: "Paris."}, turns[1])
}
