package vm

import (
	"errors"

	"github.com/toi-lang/toi/op"
)

// ErrHalted is returned when an observer callback stops execution.
var ErrHalted = errors.New("execution halted by observer")

// StepMode controls when OnStep callbacks are triggered.
type StepMode uint8

const (
	// StepAll calls OnStep for every instruction.
	// Use for: detailed tracing, instruction-level debugging.
	StepAll StepMode = iota

	// StepNone never calls OnStep.
	// Use for: profilers that only need Call/Return events.
	StepNone

	// StepSampled calls OnStep every N instructions.
	// Use for: statistical profiling.
	StepSampled
)

// ObserverConfig specifies what events an observer wants to receive.
// Use NewObserverConfig() to create configs with safe defaults.
type ObserverConfig struct {
	// StepMode controls OnStep callback frequency.
	StepMode StepMode

	// SampleInterval is the number of instructions between OnStep calls
	// when StepMode is StepSampled. Values <= 0 are treated as 1.
	// Ignored for other modes.
	SampleInterval int

	// ObserveCalls enables OnCall callbacks.
	ObserveCalls bool

	// ObserveReturns enables OnReturn callbacks.
	ObserveReturns bool
}

// NewObserverConfig creates a config with safe defaults.
// ObserveCalls and ObserveReturns default to true.
func NewObserverConfig(mode StepMode) ObserverConfig {
	return ObserverConfig{
		StepMode:       mode,
		SampleInterval: 1000,
		ObserveCalls:   true,
		ObserveReturns: true,
	}
}

// NormalizeConfig validates and clamps config values.
func NormalizeConfig(cfg ObserverConfig) ObserverConfig {
	if cfg.StepMode == StepSampled && cfg.SampleInterval <= 0 {
		cfg.SampleInterval = 1
	}
	return cfg
}

// Observer is an interface for observing VM execution events. It can be
// used for profiling, debugging or tracing without modifying the dispatch
// loop.
//
// Implementations can embed NoOpObserver to provide default no-op
// implementations for methods they don't need.
//
// Observer methods are called synchronously during execution.
type Observer interface {
	// Config returns the observer's configuration.
	// Called once when a run starts.
	Config() ObserverConfig

	// OnStep is called before an instruction executes, based on the
	// StepMode in the observer's config. Returns false to halt execution.
	OnStep(event StepEvent) bool

	// OnCall is called when a function frame is entered (if ObserveCalls
	// is true). Returns false to halt execution.
	OnCall(event CallEvent) bool

	// OnReturn is called when a function frame completes (if
	// ObserveReturns is true). Returns false to halt execution.
	OnReturn(event ReturnEvent) bool
}

// StepEvent contains information about a single instruction step.
type StepEvent struct {
	// Function is the name of the function whose stream is executing.
	Function string

	// IP is the offset of the opcode in the instruction stream.
	IP int

	// Opcode is the operation being executed.
	Opcode op.Code

	// OpcodeName is the human-readable name of the opcode.
	OpcodeName string

	// Operand is the decoded operand, zero for opcodes without one.
	Operand int

	// StackDepth is the current depth of the frame's evaluation stack.
	StackDepth int

	// FrameDepth is the current depth of the call stack.
	FrameDepth int
}

// CallEvent contains information about a function call.
type CallEvent struct {
	// FunctionName is the name of the function being called.
	FunctionName string

	// Args are the argument values in declaration order.
	Args []int64

	// FrameDepth is the call stack depth after the call.
	FrameDepth int
}

// ReturnEvent contains information about a function return.
type ReturnEvent struct {
	// FunctionName is the name of the function returning.
	FunctionName string

	// Result is the value handed back to the caller.
	Result int64

	// FrameDepth is the call stack depth after returning.
	FrameDepth int
}

// NoOpObserver is an Observer implementation that does nothing.
// Embed this in your observer to provide default implementations
// for methods you don't need.
//
// NoOpObserver uses StepAll mode with ObserveCalls and ObserveReturns
// enabled. Override Config() in your observer to use a different mode.
type NoOpObserver struct{}

func (NoOpObserver) Config() ObserverConfig {
	return NewObserverConfig(StepAll)
}

func (NoOpObserver) OnStep(StepEvent) bool     { return true }
func (NoOpObserver) OnCall(CallEvent) bool     { return true }
func (NoOpObserver) OnReturn(ReturnEvent) bool { return true }

var _ Observer = NoOpObserver{}

// observerState caches an observer's normalized config for the duration of
// a run.
type observerState struct {
	observer Observer
	config   ObserverConfig
	steps    int
}

func newObserverState(o Observer) *observerState {
	if o == nil {
		return nil
	}
	return &observerState{observer: o, config: NormalizeConfig(o.Config())}
}

func (s *observerState) wantStep() bool {
	switch s.config.StepMode {
	case StepAll:
		return true
	case StepSampled:
		s.steps++
		if s.steps >= s.config.SampleInterval {
			s.steps = 0
			return true
		}
	}
	return false
}
