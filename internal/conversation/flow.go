package conversation

import "context"

// Kind identifies a flow, e.g. "register".
type Kind string

type outcomeKind int

const (
	outcomeAdvance outcomeKind = iota
	outcomeRepeat
	outcomeComplete
	outcomeAbort
)

// Outcome tells the engine what to do after a step handled input.
type Outcome struct {
	kind    outcomeKind
	next    int
	message string
}

// Advance moves to step next and sends its prompt.
func Advance(next int) Outcome { return Outcome{kind: outcomeAdvance, next: next} }

// Repeat stays at the current step. An empty prompt re-sends the step prompt.
func Repeat(prompt string) Outcome { return Outcome{kind: outcomeRepeat, message: prompt} }

// Complete runs the flow's terminal action and ends the conversation.
func Complete() Outcome { return Outcome{kind: outcomeComplete} }

// Abort sends message and ends the conversation without completing it.
func Abort(message string) Outcome { return Outcome{kind: outcomeAbort, message: message} }

// Step is one question of a flow.
type Step[S any] struct {
	Prompt func(ctx context.Context, chatID int64, s *S) error
	Handle func(ctx context.Context, chatID int64, text string, s *S) (Outcome, error)
}

// Flow is a multi-step dialogue carrying scratch data of type S.
type Flow[S any] struct {
	Kind Kind
	// Name is how the flow is called towards the user.
	Name string
	// Init guards entry and seeds the scratch. Nil means a zero S.
	Init     func(ctx context.Context, chatID int64) (S, error)
	Steps    []Step[S]
	Complete func(ctx context.Context, chatID int64, s *S) error
}

// Definition is implemented by every *Flow.
type Definition interface {
	FlowKind() Kind
	FlowName() string
	begin(ctx context.Context, chatID int64) (session, error)
}

func (f *Flow[S]) FlowKind() Kind   { return f.Kind }
func (f *Flow[S]) FlowName() string { return f.Name }

func (f *Flow[S]) begin(ctx context.Context, chatID int64) (session, error) {
	var scratch S
	if f.Init != nil {
		var err error
		if scratch, err = f.Init(ctx, chatID); err != nil {
			return nil, err
		}
	}
	return &run[S]{flow: f, scratch: scratch}, nil
}

// session is the type-erased state of one running flow.
type session interface {
	definition() Definition
	stepIndex() int
	moveTo(step int) bool
	prompt(ctx context.Context, chatID int64) error
	handle(ctx context.Context, chatID int64, text string) (Outcome, error)
	complete(ctx context.Context, chatID int64) error
}

type run[S any] struct {
	flow    *Flow[S]
	step    int
	scratch S
}

func (r *run[S]) definition() Definition { return r.flow }
func (r *run[S]) stepIndex() int         { return r.step }

func (r *run[S]) moveTo(step int) bool {
	if step < 0 || step >= len(r.flow.Steps) {
		return false
	}
	r.step = step
	return true
}

func (r *run[S]) prompt(ctx context.Context, chatID int64) error {
	if p := r.flow.Steps[r.step].Prompt; p != nil {
		return p(ctx, chatID, &r.scratch)
	}
	return nil
}

func (r *run[S]) handle(ctx context.Context, chatID int64, text string) (Outcome, error) {
	return r.flow.Steps[r.step].Handle(ctx, chatID, text, &r.scratch)
}

func (r *run[S]) complete(ctx context.Context, chatID int64) error {
	if r.flow.Complete == nil {
		return nil
	}
	return r.flow.Complete(ctx, chatID, &r.scratch)
}
