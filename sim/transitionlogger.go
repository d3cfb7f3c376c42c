package sim

import "log"

// A LogHook is a hook that is responsible for recording information
// from the simulation
type LogHook interface {
	Hook
}

// LogHookBase provides the common logic for all LogHooks
type LogHookBase struct {
	*log.Logger
}

// TransitionLogger is a hook that prints every realized transition.
type TransitionLogger struct {
	LogHookBase
}

// NewTransitionLogger returns a TransitionLogger which will write
// into the given logger.
func NewTransitionLogger(logger *log.Logger) *TransitionLogger {
	l := new(TransitionLogger)
	l.Logger = logger
	return l
}

// Func writes the transition information into the logger
func (l *TransitionLogger) Func(ctx HookCtx) {
	if ctx.Pos != HookPosAfterTransition {
		return
	}

	trans, ok := ctx.Item.(Transition)
	if !ok {
		return
	}

	l.Printf("%.10f, nucleosome %d, %s -> %s",
		trans.Time, trans.Index, trans.From, trans.To)
}
