package vm

import (
	"github.com/rs/zerolog"
)

// TraceObserver logs execution events: steps at trace level, calls and
// returns at debug level.
type TraceObserver struct {
	logger zerolog.Logger
	config ObserverConfig
}

// NewTraceObserver returns an observer that logs every instruction to the
// given logger.
func NewTraceObserver(logger zerolog.Logger) *TraceObserver {
	return &TraceObserver{logger: logger, config: NewObserverConfig(StepAll)}
}

// WithConfig returns a copy of the observer using cfg, for example to sample
// steps instead of logging each one.
func (t *TraceObserver) WithConfig(cfg ObserverConfig) *TraceObserver {
	return &TraceObserver{logger: t.logger, config: cfg}
}

func (t *TraceObserver) Config() ObserverConfig {
	return t.config
}

func (t *TraceObserver) OnStep(event StepEvent) bool {
	t.logger.Trace().
		Str("fn", event.Function).
		Int("ip", event.IP).
		Str("op", event.OpcodeName).
		Int("operand", event.Operand).
		Int("stack", event.StackDepth).
		Int("depth", event.FrameDepth).
		Msg("step")
	return true
}

func (t *TraceObserver) OnCall(event CallEvent) bool {
	t.logger.Debug().
		Str("fn", event.FunctionName).
		Ints64("args", event.Args).
		Int("depth", event.FrameDepth).
		Msg("call")
	return true
}

func (t *TraceObserver) OnReturn(event ReturnEvent) bool {
	t.logger.Debug().
		Str("fn", event.FunctionName).
		Int64("result", event.Result).
		Int("depth", event.FrameDepth).
		Msg("return")
	return true
}

var _ Observer = (*TraceObserver)(nil)
