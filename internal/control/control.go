// SPDX-License-Identifier: MIT
/*
Package control implements the interactive stdin console that drives a
live engine: it edits and compiles graphs, installs plans, sends
parameter changes, and drains the engine's event channel.

Thread Safety:
- One Control instance owns the control side of exactly one engine;
  Run must be called from a single goroutine
- Events are polled, never pushed; the audio thread is never touched
*/
package control

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"capstan/internal/dsp"
	"capstan/internal/engine"
	"capstan/internal/graph"
	"capstan/internal/log"
)

// sendTimeout bounds retries when the command channel is full. The
// engine drains the channel every callback, so a full ring clears in
// a block or two unless the stream is dead.
const sendTimeout = 500 * time.Millisecond

// EventSink receives every drained engine event, e.g. for the
// websocket monitor. May be nil.
type EventSink func(engine.Event)

// Control is the interactive console session.
type Control struct {
	ctrl       *engine.Controller
	blockSize  int
	sampleRate float64
	in         io.Reader
	out        io.Writer
	sink       EventSink

	// graph is the last installed editable graph; gainNode is its
	// primary gain stage, the target of the bare "gain" command.
	graph    *graph.Graph
	gainNode graph.NodeID
}

// New creates a console session over the given controller. g is the
// initially installed graph (may be nil); its node named "gain", if
// any, becomes the target of the gain command.
func New(ctrl *engine.Controller, g *graph.Graph, blockSize int, sampleRate float64, in io.Reader, out io.Writer, sink EventSink) *Control {
	c := &Control{
		ctrl:       ctrl,
		blockSize:  blockSize,
		sampleRate: sampleRate,
		in:         in,
		out:        out,
		sink:       sink,
	}
	c.adopt(g)
	return c
}

// Run reads commands until quit, EOF, or stop closing; on exit it
// sends Quit and waits for the engine to report it has stopped. The
// session is the sole owner of the Controller for its whole lifetime:
// external shutdown requests arrive through stop, never as direct
// Controller calls, so the command ring keeps a single producer. stop
// may be nil.
func (c *Control) Run(stop <-chan struct{}) error {
	fmt.Fprintln(c.out, "capstan console. Commands: gain <0-1> | set <node> <param> <value> | graph [freq] [gain] | graph mix [f1] [f2] [g1] [g2] | nodes | quit | help")

	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(c.in)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		scanErr <- scanner.Err()
		close(lines)
	}()

	for {
		select {
		case <-stop:
			return c.shutdown()
		case line, ok := <-lines:
			if !ok {
				if err := <-scanErr; err != nil {
					return err
				}
				return c.shutdown()
			}
			c.DrainEvents()

			fields := strings.Fields(line)
			if len(fields) == 0 {
				continue
			}
			if fields[0] == "quit" || fields[0] == "q" {
				return c.shutdown()
			}
			c.dispatch(fields)
		}
	}
}

func (c *Control) dispatch(fields []string) {
	switch fields[0] {
	case "gain", "g":
		if len(fields) != 2 {
			fmt.Fprintln(c.out, "Usage: gain <number>")
			return
		}
		v, err := parseFloat(fields[1])
		if err != nil {
			fmt.Fprintln(c.out, "Usage: gain <number>")
			return
		}
		if c.gainNode == 0 {
			fmt.Fprintln(c.out, "No gain node in the current graph.")
			return
		}
		if err := c.send(func() error { return c.ctrl.SetParam(c.gainNode, dsp.ParamGain, v) }); err != nil {
			fmt.Fprintf(c.out, "gain: %v\n", err)
		}

	case "set":
		c.cmdSet(fields[1:])

	case "graph":
		c.cmdGraph(fields[1:])

	case "nodes":
		c.cmdNodes()

	case "help", "h", "?":
		c.printHelp()

	default:
		fmt.Fprintf(c.out, "Unknown command %q, try help.\n", fields[0])
	}
}

// cmdSet routes one parameter change to a named node.
func (c *Control) cmdSet(args []string) {
	if len(args) != 3 {
		fmt.Fprintln(c.out, "Usage: set <node> <param> <value>")
		return
	}
	if c.graph == nil {
		fmt.Fprintln(c.out, "No graph installed.")
		return
	}
	id, ok := c.graph.Find(args[0])
	if !ok {
		fmt.Fprintf(c.out, "Unknown node %q.\n", args[0])
		return
	}
	key, ok := parseParam(args[1])
	if !ok {
		fmt.Fprintf(c.out, "Unknown parameter %q.\n", args[1])
		return
	}
	v, err := parseFloat(args[2])
	if err != nil {
		fmt.Fprintln(c.out, "Usage: set <node> <param> <value>")
		return
	}
	if err := c.send(func() error { return c.ctrl.SetParam(id, key, v) }); err != nil {
		fmt.Fprintf(c.out, "set: %v\n", err)
	}
}

// cmdGraph swaps in one of the built-in graphs.
func (c *Control) cmdGraph(args []string) {
	switch {
	case len(args) == 0:
		c.swapDefault(440, 0.5)

	case args[0] == "mix":
		params := []float32{440, 660, 0.5, 0.5}
		rest := args[1:]
		if len(rest) != 0 && len(rest) != 2 && len(rest) != 4 {
			fmt.Fprintln(c.out, "Usage: graph mix [freq1] [freq2] [gain1] [gain2]")
			return
		}
		for i, a := range rest {
			v, err := parseFloat(a)
			if err != nil {
				fmt.Fprintln(c.out, "Usage: graph mix [freq1] [freq2] [gain1] [gain2]")
				return
			}
			params[i] = v
		}
		c.swapMixer(params[0], params[1], params[2], params[3])

	case len(args) <= 2:
		freq, err := parseFloat(args[0])
		if err != nil {
			fmt.Fprintln(c.out, "Usage: graph [freq] [gain]  or  graph mix [f1] [f2] [g1] [g2]")
			return
		}
		gain := float32(0.5)
		if len(args) == 2 {
			gain, err = parseFloat(args[1])
			if err != nil {
				fmt.Fprintln(c.out, "Usage: graph [freq] [gain]")
				return
			}
		}
		c.swapDefault(freq, gain)

	default:
		fmt.Fprintln(c.out, "Usage: graph [freq] [gain]  or  graph mix [f1] [f2] [g1] [g2]")
	}
}

func (c *Control) cmdNodes() {
	if c.graph == nil || c.graph.Len() == 0 {
		fmt.Fprintln(c.out, "No graph installed.")
		return
	}
	for _, name := range c.graph.Names() {
		fmt.Fprintf(c.out, "  %s\n", name)
	}
}

func (c *Control) printHelp() {
	fmt.Fprintln(c.out, "  gain <n>  (g <n>)    Set the gain stage of the current graph")
	fmt.Fprintln(c.out, "  set <node> <param> <value>")
	fmt.Fprintln(c.out, "                       Set a named parameter on a named node")
	fmt.Fprintln(c.out, "  graph [freq] [gain]  Swap in sine -> gain (default 440, 0.5)")
	fmt.Fprintln(c.out, "  graph mix [f1] [f2] [g1] [g2]")
	fmt.Fprintln(c.out, "                       Two sines -> mixer (default 440, 660, 0.5, 0.5)")
	fmt.Fprintln(c.out, "  nodes                List nodes of the current graph")
	fmt.Fprintln(c.out, "  quit (q)             Stop the engine and exit")
}

// swapDefault compiles and installs the sine -> gain chain.
func (c *Control) swapDefault(freq, gain float32) {
	g := graph.New()
	osc := g.AddNode("osc", dsp.NewSine(freq, c.sampleRate))
	gn := g.AddNode("gain", dsp.NewGain(gain))
	if err := g.AddEdge(osc, gn, 0); err != nil {
		fmt.Fprintf(c.out, "graph: %v\n", err)
		return
	}
	if c.install(g) {
		fmt.Fprintf(c.out, "Swapped graph (%g Hz sine -> gain %g).\n", freq, gain)
	}
}

// swapMixer compiles and installs two sines into a mixer.
func (c *Control) swapMixer(f1, f2, g1, g2 float32) {
	g := graph.New()
	oscA := g.AddNode("osc-a", dsp.NewSine(f1, c.sampleRate))
	oscB := g.AddNode("osc-b", dsp.NewSine(f2, c.sampleRate))
	mix := g.AddNode("mix", dsp.NewMixer(2))
	if err := g.AddEdge(oscA, mix, 0); err != nil {
		fmt.Fprintf(c.out, "graph: %v\n", err)
		return
	}
	if err := g.AddEdge(oscB, mix, 1); err != nil {
		fmt.Fprintf(c.out, "graph: %v\n", err)
		return
	}
	if c.install(g) {
		if id, ok := g.Find("mix"); ok {
			if err := c.send(func() error { return c.ctrl.SetParam(id, dsp.ParamMix0, g1) }); err != nil {
				fmt.Fprintf(c.out, "set: %v\n", err)
			}
			if err := c.send(func() error { return c.ctrl.SetParam(id, dsp.ParamMix1, g2) }); err != nil {
				fmt.Fprintf(c.out, "set: %v\n", err)
			}
		}
		fmt.Fprintf(c.out, "Swapped mixer graph (%g Hz + %g Hz -> mixer %g, %g).\n", f1, f2, g1, g2)
	}
}

// install compiles g and sends the plan, adopting g as the current
// graph on success.
func (c *Control) install(g *graph.Graph) bool {
	plan, err := g.Compile(c.blockSize)
	if err != nil {
		fmt.Fprintf(c.out, "Failed to compile graph: %v\n", err)
		return false
	}
	if err := c.send(func() error { return c.ctrl.InstallPlan(plan) }); err != nil {
		fmt.Fprintf(c.out, "install: %v\n", err)
		return false
	}
	c.adopt(g)
	return true
}

func (c *Control) adopt(g *graph.Graph) {
	c.graph = g
	c.gainNode = 0
	if g != nil {
		if id, ok := g.Find("gain"); ok {
			c.gainNode = id
		}
	}
}

// send retries a non-blocking controller call while the command ring
// is full, up to sendTimeout.
func (c *Control) send(try func() error) error {
	deadline := time.Now().Add(sendTimeout)
	for {
		err := try()
		if err == nil || err != engine.ErrChannelFull {
			return err
		}
		if time.Now().After(deadline) {
			return err
		}
		time.Sleep(time.Millisecond)
	}
}

// shutdown sends Quit and waits for the stop notification so retired
// plans are observed before the stream is torn down.
func (c *Control) shutdown() error {
	if err := c.send(c.ctrl.Quit); err != nil {
		return fmt.Errorf("quit: %w", err)
	}
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		ev, ok := c.ctrl.NextEvent()
		if !ok {
			time.Sleep(time.Millisecond)
			continue
		}
		c.handleEvent(ev)
		if ev.Kind == engine.EvStopped {
			c.DrainEvents()
			return nil
		}
	}
	log.Warnf("control: engine did not confirm stop")
	return nil
}

// DrainEvents empties the event channel, logging each event and
// forwarding it to the sink.
func (c *Control) DrainEvents() {
	for {
		ev, ok := c.ctrl.NextEvent()
		if !ok {
			return
		}
		c.handleEvent(ev)
	}
}

func (c *Control) handleEvent(ev engine.Event) {
	switch ev.Kind {
	case engine.EvPlanRetired:
		log.Debugf("control: plan retired (%d nodes)", ev.Plan.Nodes())
	case engine.EvUnderrun:
		log.Warnf("control: underrun count now %d", ev.Count)
	case engine.EvParamAck:
		log.Debugf("control: param applied on node %d", ev.Node)
	case engine.EvFatal:
		log.Errorf("control: engine fatal (%s), output is silent", fatalName(ev.Code))
	case engine.EvStopped:
		log.Infof("control: engine stopped")
	}
	if c.sink != nil {
		c.sink(ev)
	}
}

func fatalName(code engine.FatalCode) string {
	switch code {
	case engine.FatalPanic:
		return "node panic"
	case engine.FatalBadPlan:
		return "plan block size mismatch"
	default:
		return "unknown"
	}
}

func parseFloat(s string) (float32, error) {
	v, err := strconv.ParseFloat(s, 32)
	return float32(v), err
}

// parseParam maps console parameter names to keys.
func parseParam(name string) (dsp.ParamKey, bool) {
	switch strings.ToLower(name) {
	case "gain", "mix":
		return dsp.ParamGain, true
	case "frequency", "freq":
		return dsp.ParamFrequency, true
	case "level":
		return dsp.ParamLevel, true
	case "mix0":
		return dsp.ParamMix0, true
	case "mix1":
		return dsp.ParamMix1, true
	case "mix2":
		return dsp.ParamMix2, true
	case "mix3":
		return dsp.ParamMix3, true
	case "delay":
		return dsp.ParamDelay, true
	case "feedback":
		return dsp.ParamFeedback, true
	case "cutoff":
		return dsp.ParamCutoff, true
	default:
		return 0, false
	}
}
