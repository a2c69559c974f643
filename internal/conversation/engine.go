// Package conversation drives multi-step chat dialogues such as registration
// or adding a contact. At most one flow is active per chat.
package conversation

import (
	"context"
	"fmt"

	"github.com/puzpuzpuz/xsync/v3"
	"go.uber.org/zap"

	"contact-reminder/internal/keylock"
	"contact-reminder/internal/messenger"
)

// ErrorHandler reports err to the chat and returns true to keep the flow at its
// current step.
type ErrorHandler func(ctx context.Context, chatID int64, kind Kind, err error) (keep bool)

// Engine keeps the active flow of every chat. Calls for one chat are serialized.
type Engine struct {
	sender  messenger.Messenger
	onError ErrorHandler
	log     *zap.Logger
	states  *xsync.MapOf[int64, session]
	locks   *keylock.Map[int64]
}

func NewEngine(sender messenger.Messenger, onError ErrorHandler, log *zap.Logger) *Engine {
	return &Engine{
		sender:  sender,
		onError: onError,
		log:     log,
		states:  xsync.NewMapOf[int64, session](),
		locks:   keylock.New[int64](),
	}
}

// Start replaces any active flow of the chat with def and sends its first prompt.
// When def's entry guard fails, the active flow is left as it was.
func (e *Engine) Start(ctx context.Context, chatID int64, def Definition) error {
	unlock := e.locks.Lock(chatID)
	defer unlock()

	sess, err := def.begin(ctx, chatID)
	if err != nil {
		e.report(ctx, chatID, def.FlowKind(), err)
		return fmt.Errorf("start %s: %w", def.FlowKind(), err)
	}

	if old, loaded := e.states.LoadAndStore(chatID, sess); loaded {
		e.log.Debug("flow replaced", zap.Int64("chat_id", chatID), zap.String("flow", string(old.definition().FlowKind())))
	}
	e.log.Debug("flow started", zap.Int64("chat_id", chatID), zap.String("flow", string(def.FlowKind())))

	if err := sess.prompt(ctx, chatID); err != nil {
		return e.fail(ctx, chatID, sess, err)
	}
	return nil
}

// Handle feeds text to the active flow of the chat. It returns false when no
// flow is active.
func (e *Engine) Handle(ctx context.Context, chatID int64, text string) (bool, error) {
	unlock := e.locks.Lock(chatID)
	defer unlock()

	sess, ok := e.states.Load(chatID)
	if !ok {
		return false, nil
	}

	out, err := sess.handle(ctx, chatID, text)
	if err != nil {
		return true, e.fail(ctx, chatID, sess, err)
	}

	kind := sess.definition().FlowKind()
	switch out.kind {
	case outcomeAdvance:
		if !sess.moveTo(out.next) {
			e.states.Delete(chatID)
			return true, fmt.Errorf("%s: step %d out of range", kind, out.next)
		}
		if err := sess.prompt(ctx, chatID); err != nil {
			return true, e.fail(ctx, chatID, sess, err)
		}
	case outcomeRepeat:
		if out.message == "" {
			err = sess.prompt(ctx, chatID)
		} else {
			err = e.sender.SendMessage(ctx, chatID, out.message, nil)
		}
		if err != nil {
			return true, e.fail(ctx, chatID, sess, err)
		}
	case outcomeComplete:
		if err := sess.complete(ctx, chatID); err != nil {
			return true, e.fail(ctx, chatID, sess, err)
		}
		e.states.Delete(chatID)
		e.log.Debug("flow completed", zap.Int64("chat_id", chatID), zap.String("flow", string(kind)))
	case outcomeAbort:
		e.states.Delete(chatID)
		e.log.Debug("flow aborted", zap.Int64("chat_id", chatID), zap.String("flow", string(kind)))
		if out.message != "" {
			if err := e.sender.SendMessage(ctx, chatID, out.message, nil); err != nil {
				return true, fmt.Errorf("%s: send abort message: %w", kind, err)
			}
		}
	}
	return true, nil
}

// Cancel drops the active flow of the chat and confirms it. It returns false
// when nothing was active.
func (e *Engine) Cancel(ctx context.Context, chatID int64) (bool, error) {
	unlock := e.locks.Lock(chatID)
	defer unlock()

	sess, ok := e.states.LoadAndDelete(chatID)
	if !ok {
		return false, nil
	}
	def := sess.definition()
	e.log.Debug("flow cancelled", zap.Int64("chat_id", chatID), zap.String("flow", string(def.FlowKind())))

	msg := fmt.Sprintf("Okay, I stopped the %s. Nothing was saved.\nSend /help to see what else I can do.", def.FlowName())
	if err := e.sender.SendMessage(ctx, chatID, msg, nil); err != nil {
		return true, fmt.Errorf("send cancel message: %w", err)
	}
	return true, nil
}

// Active returns the kind and step of the chat's flow.
func (e *Engine) Active(chatID int64) (kind Kind, step int, ok bool) {
	sess, ok := e.states.Load(chatID)
	if !ok {
		return "", 0, false
	}
	return sess.definition().FlowKind(), sess.stepIndex(), true
}

// Scratch returns a copy of the scratch data of the chat's flow when it has type S.
func Scratch[S any](e *Engine, chatID int64) (S, bool) {
	var zero S
	sess, ok := e.states.Load(chatID)
	if !ok {
		return zero, false
	}
	r, ok := sess.(*run[S])
	if !ok {
		return zero, false
	}
	return r.scratch, true
}

func (e *Engine) fail(ctx context.Context, chatID int64, sess session, err error) error {
	kind := sess.definition().FlowKind()
	if !e.report(ctx, chatID, kind, err) {
		e.states.Delete(chatID)
	}
	return fmt.Errorf("%s step %d: %w", kind, sess.stepIndex(), err)
}

func (e *Engine) report(ctx context.Context, chatID int64, kind Kind, err error) bool {
	if e.onError == nil {
		return false
	}
	return e.onError(ctx, chatID, kind, err)
}
