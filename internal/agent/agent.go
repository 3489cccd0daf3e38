package agent

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"

	"github.com/qmuntal/stateless"

	"github.com/comigor/filechat/internal/contextfile"
	"github.com/comigor/filechat/internal/llm"
	"github.com/comigor/filechat/internal/logger"
	"github.com/comigor/filechat/internal/prompt"
	"github.com/comigor/filechat/internal/session"
)

// FSM States
type FSMState stateless.State

var (
	StateIdle      FSMState = "Idle"
	StateStreaming FSMState = "Streaming"
)

// FSM Triggers
type FSMTrigger stateless.Trigger

var (
	TriggerSubmit          FSMTrigger = "Submit"
	TriggerStreamCompleted FSMTrigger = "StreamCompleted"
	TriggerStreamFailed    FSMTrigger = "StreamFailed"
)

// Loop is the render loop driving one session's conversation. Submissions
// within a session are serialized; uploads are accepted at any time and never
// touch the transcript.
type Loop struct {
	llmClient llm.Client

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New creates a render loop backed by the given inference client.
func New(llmClient llm.Client) *Loop {
	return &Loop{
		llmClient: llmClient,
		locks:     make(map[string]*sync.Mutex),
	}
}

// LoadContext decodes an uploaded file and replaces the session's context
// blob. On decode failure the previous blob and the transcript are untouched.
func (l *Loop) LoadContext(sess *session.Session, data []byte) error {
	text, err := contextfile.Load(data)
	if err != nil {
		logger.L.Warn("context upload rejected", "session", sess.ID, "error", err)
		return err
	}
	sess.SetContext(text)
	logger.L.Info("context replaced", "session", sess.ID, "bytes", len(data))
	return nil
}

// Process runs one submission through the Idle -> Streaming -> Idle machine:
// append the user turn, assemble the payload, stream the completion, and on
// success commit the concatenated fragments as the assistant turn. Each
// fragment is handed to onFragment in arrival order before the turn is
// committed. On failure no assistant turn is appended; the transcript keeps
// the user turn only and the error is returned for display.
func (l *Loop) Process(ctx context.Context, sess *session.Session, input string, onFragment func(string)) (string, error) {
	lock := l.sessionLock(sess.ID)
	lock.Lock()
	defer lock.Unlock()

	// FSM context data
	type fsmContext struct {
		reply     strings.Builder
		lastError error
	}
	fsmCtx := &fsmContext{}

	fsm := stateless.NewStateMachine(StateIdle)

	fsm.Configure(StateIdle).
		Permit(TriggerSubmit, StateStreaming)

	// State: Streaming
	// Action: dispatch the assembled payload, relay fragments, commit the
	// assistant turn on terminal.
	// Transitions: StreamCompleted -> Idle, StreamFailed -> Idle.
	fsm.Configure(StateStreaming).
		OnEntry(func(ctx context.Context, args ...any) error {
			sess.Append(session.RoleUser, input)

			contextText, hasContext := sess.Context()
			payload := prompt.Assemble(contextText, hasContext, sess.Turns())

			stream, err := l.llmClient.StreamChat(ctx, payload)
			if err != nil {
				logger.L.Error("stream open failed", "session", sess.ID, "error", err)
				fsmCtx.lastError = err
				return fsm.FireCtx(ctx, TriggerStreamFailed)
			}
			defer func() {
				if cerr := stream.Close(); cerr != nil {
					logger.L.Warn("stream close error", "session", sess.ID, "error", cerr)
				}
			}()

			for {
				fragment, err := stream.Recv()
				if errors.Is(err, io.EOF) {
					break
				}
				if err != nil {
					// Fragments already relayed stay on screen, but the
					// transcript gets no assistant turn.
					logger.L.Error("stream interrupted", "session", sess.ID, "error", err)
					fsmCtx.lastError = err
					return fsm.FireCtx(ctx, TriggerStreamFailed)
				}
				if fragment == "" {
					continue
				}
				fsmCtx.reply.WriteString(fragment)
				if onFragment != nil {
					onFragment(fragment)
				}
			}

			sess.Append(session.RoleAssistant, fsmCtx.reply.String())
			return fsm.FireCtx(ctx, TriggerStreamCompleted)
		}).
		Permit(TriggerStreamCompleted, StateIdle).
		Permit(TriggerStreamFailed, StateIdle)

	if err := fsm.FireCtx(ctx, TriggerSubmit); err != nil {
		return "", err
	}
	if fsmCtx.lastError != nil {
		return "", fsmCtx.lastError
	}
	return fsmCtx.reply.String(), nil
}

// sessionLock returns the per-session submission lock, creating it on first
// use. One in-flight submission per session.
func (l *Loop) sessionLock(id string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	lock, ok := l.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		l.locks[id] = lock
	}
	return lock
}
