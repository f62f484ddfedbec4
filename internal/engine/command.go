// SPDX-License-Identifier: MIT
package engine

import (
	"capstan/internal/dsp"
	"capstan/internal/graph"
)

// CommandKind tags the closed set of control→audio instructions.
type CommandKind uint8

const (
	// CmdInstallPlan swaps in a newly compiled plan.
	CmdInstallPlan CommandKind = iota
	// CmdSetParam updates one parameter of one live node.
	CmdSetParam
	// CmdQuit asks the engine to drain and stop.
	CmdQuit
)

// Command is one control→audio instruction. The struct is fixed-size
// and carries no heap data of its own (the plan travels by pointer),
// so sending and receiving never allocate.
type Command struct {
	Kind  CommandKind
	Node  graph.NodeID
	Param dsp.ParamKey
	Value float32
	Plan  *graph.Plan
}

// EventKind tags the closed set of audio→control notifications.
type EventKind uint8

const (
	// EvPlanRetired hands a replaced plan back to the control side,
	// which owns dropping the last reference.
	EvPlanRetired EventKind = iota
	// EvUnderrun reports the cumulative count of missed deadlines.
	EvUnderrun
	// EvParamAck confirms a parameter change was applied to a node.
	EvParamAck
	// EvFatal reports an unrecoverable audio-side failure; the engine
	// has already gone silent.
	EvFatal
	// EvStopped marks the Draining→Stopped transition after a Quit.
	EvStopped
)

// FatalCode classifies EvFatal events.
type FatalCode uint8

const (
	// FatalPanic: a node panicked during Run.
	FatalPanic FatalCode = iota + 1
	// FatalBadPlan: an installed plan was nil or compiled for a
	// different block size than the callback delivers.
	FatalBadPlan
)

// Event is one audio→control notification. Fixed-size, like Command.
type Event struct {
	Kind  EventKind
	Node  graph.NodeID
	Count uint64
	Code  FatalCode
	Plan  *graph.Plan
}
