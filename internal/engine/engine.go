// SPDX-License-Identifier: MIT
/*
Package engine implements the audio-side runner and the control
channel between it and the rest of the program.

Thread Safety:
- OnBlock is called by exactly one thread, the audio callback
- The Controller lives on exactly one control goroutine
- The two sides share nothing but the SPSC rings and plan pointers;
  plans are immutable, so no locks exist anywhere on the hot path
*/
package engine

import (
	"errors"
	"time"

	"capstan/internal/dsp"
	"capstan/internal/graph"
	"capstan/pkg/spsc"
)

// ErrChannelFull is returned by Controller methods when the command
// ring has no free slot. The engine is never made to wait; the caller
// retries or drops.
var ErrChannelFull = errors.New("engine: control channel full")

// State is the engine lifecycle phase.
type State uint8

const (
	// StateRunning executes the installed plan every callback.
	StateRunning State = iota
	// StateDraining plays one faded-out block after a Quit.
	StateDraining
	// StateStopped emits silence forever; commands are still drained
	// so the channel never backs up.
	StateStopped
)

// Engine owns all audio-side state. Everything it touches inside
// OnBlock is preallocated at construction; the callback performs no
// allocation, takes no locks, and never waits on the control side.
type Engine struct {
	cmds   *spsc.Consumer[Command]
	events *spsc.Producer[Event]

	state State
	plan  *graph.Plan

	blockSize int
	// budget is the wall-clock duration one block represents; a
	// callback that takes longer counts as an underrun.
	budget time.Duration

	underruns     uint64
	sentUnderruns uint64

	// retired holds plans waiting for a PlanRetired event slot, so the
	// exactly-once retirement guarantee survives a full event channel.
	// When the buffer itself is full, the next install is parked in
	// held and the command drain pauses until a retirement flushes, so
	// no notification is ever dropped.
	retired     []*graph.Plan
	retiredHead int
	retiredLen  int

	held    Command
	hasHeld bool

	fatalPending FatalCode
	stopPending  bool
}

// Controller is the control-side handle: the only legal way to talk
// to a running engine. Its methods never block; on a full channel the
// caller gets ErrChannelFull and decides whether to retry.
type Controller struct {
	cmds   *spsc.Producer[Command]
	events *spsc.Consumer[Event]
}

// New wires an Engine and its Controller with command/event rings of
// the given capacity (rounded up to a power of two). blockSize and
// sampleRate size the deadline budget for underrun accounting.
func New(blockSize int, sampleRate float64, channelCapacity int) (*Engine, *Controller) {
	cmdTx, cmdRx := spsc.New[Command](channelCapacity)
	evtTx, evtRx := spsc.New[Event](channelCapacity)

	e := &Engine{
		cmds:      cmdRx,
		events:    evtTx,
		blockSize: blockSize,
		budget:    time.Duration(float64(blockSize) / sampleRate * float64(time.Second)),
		retired:   make([]*graph.Plan, cmdRx.Cap()+1),
	}
	c := &Controller{cmds: cmdTx, events: evtRx}
	return e, c
}

// OnBlock is the per-callback entry point. It drains pending commands,
// then renders one block into out (or silence when stopped or no plan
// is installed), and accounts the elapsed time against the deadline.
func (e *Engine) OnBlock(out []float32) {
	start := time.Now()

	e.flushDeferred()
	e.drainCommands()

	switch e.state {
	case StateStopped:
		dsp.Silence(out)
		return
	case StateDraining:
		e.render(out)
		fadeOut(out)
		e.state = StateStopped
		if !e.tryEmit(Event{Kind: EvStopped}) {
			e.stopPending = true
		}
	default:
		e.render(out)
	}

	if time.Since(start) > e.budget {
		e.underruns++
	}
	if e.underruns != e.sentUnderruns {
		if e.tryEmit(Event{Kind: EvUnderrun, Count: e.underruns}) {
			e.sentUnderruns = e.underruns
		}
	}
}

// State returns the current lifecycle phase. Audio-thread only.
func (e *Engine) State() State {
	return e.state
}

// drainCommands applies every queued command in send order. An
// install that would need a retirement slot while the retired buffer
// is full parks in held and stops the drain; send order is preserved
// because nothing behind it is received until it applies.
func (e *Engine) drainCommands() {
	for {
		var cmd Command
		if e.hasHeld {
			cmd = e.held
		} else {
			var ok bool
			cmd, ok = e.cmds.TryRecv()
			if !ok {
				return
			}
		}
		if cmd.Kind == CmdInstallPlan && e.plan != nil && e.retiredLen == len(e.retired) {
			e.held = cmd
			e.hasHeld = true
			return
		}
		e.hasHeld = false
		e.apply(cmd)
	}
}

func (e *Engine) apply(cmd Command) {
	switch cmd.Kind {
	case CmdInstallPlan:
		if cmd.Plan == nil || cmd.Plan.BlockSize() != e.blockSize {
			e.fatal(FatalBadPlan)
			return
		}
		prev := e.plan
		e.plan = cmd.Plan
		if prev != nil {
			e.retire(prev)
		}
	case CmdSetParam:
		if e.plan == nil {
			return
		}
		proc, ok := e.plan.Processor(cmd.Node)
		if !ok {
			return
		}
		if proc.SetParam(cmd.Param, cmd.Value) {
			e.emit(Event{Kind: EvParamAck, Node: cmd.Node})
		}
	case CmdQuit:
		if e.state == StateRunning {
			e.state = StateDraining
		}
	}
}

func (e *Engine) render(out []float32) {
	if e.plan == nil {
		dsp.Silence(out)
		return
	}
	if !e.runPlan(out) {
		e.fatal(FatalPanic)
		dsp.Silence(out)
	}
}

// runPlan isolates the recover so a panicking node turns into a fatal
// event instead of tearing down the audio thread.
func (e *Engine) runPlan(out []float32) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
		}
	}()
	e.plan.Run(out)
	return true
}

func (e *Engine) fatal(code FatalCode) {
	e.state = StateStopped
	e.plan = nil
	if !e.tryEmit(Event{Kind: EvFatal, Code: code}) && e.fatalPending == 0 {
		e.fatalPending = code
	}
}

// retire queues prev for a PlanRetired event, buffering locally when
// the event channel is full so the event is delivered exactly once.
func (e *Engine) retire(prev *graph.Plan) {
	if e.retiredLen == 0 && e.tryEmit(Event{Kind: EvPlanRetired, Plan: prev}) {
		return
	}
	if e.retiredLen < len(e.retired) {
		e.retired[(e.retiredHead+e.retiredLen)%len(e.retired)] = prev
		e.retiredLen++
	}
}

// flushDeferred resends notifications that found the event channel
// full earlier: buffered retirements first (their order matters),
// then a pending fatal or stop.
func (e *Engine) flushDeferred() {
	for e.retiredLen > 0 {
		if !e.tryEmit(Event{Kind: EvPlanRetired, Plan: e.retired[e.retiredHead]}) {
			break
		}
		e.retired[e.retiredHead] = nil
		e.retiredHead = (e.retiredHead + 1) % len(e.retired)
		e.retiredLen--
	}
	if e.fatalPending != 0 {
		if e.tryEmit(Event{Kind: EvFatal, Code: e.fatalPending}) {
			e.fatalPending = 0
		}
	}
	if e.stopPending {
		if e.tryEmit(Event{Kind: EvStopped}) {
			e.stopPending = false
		}
	}
}

func (e *Engine) emit(ev Event) {
	_ = e.events.TrySend(ev)
}

func (e *Engine) tryEmit(ev Event) bool {
	return e.events.TrySend(ev) == nil
}

// fadeOut applies a linear ramp to silence across one block, so a
// Quit lands without a click.
func fadeOut(out []float32) {
	n := float32(len(out))
	for i := range out {
		out[i] *= (n - float32(i)) / n
	}
}

// InstallPlan sends a compiled plan to the engine. It takes effect no
// later than the next callback after a successful send.
func (c *Controller) InstallPlan(p *graph.Plan) error {
	return c.send(Command{Kind: CmdInstallPlan, Plan: p})
}

// SetParam sends one parameter change for a live node.
func (c *Controller) SetParam(node graph.NodeID, key dsp.ParamKey, value float32) error {
	return c.send(Command{Kind: CmdSetParam, Node: node, Param: key, Value: value})
}

// Quit asks the engine to drain and stop. Cooperative: the engine
// observes it at the top of its next callback.
func (c *Controller) Quit() error {
	return c.send(Command{Kind: CmdQuit})
}

func (c *Controller) send(cmd Command) error {
	if err := c.cmds.TrySend(cmd); err != nil {
		return ErrChannelFull
	}
	return nil
}

// NextEvent returns the oldest pending engine event, if any.
func (c *Controller) NextEvent() (Event, bool) {
	return c.events.TryRecv()
}
