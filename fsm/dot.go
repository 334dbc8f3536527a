package fsm

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// DotOption configures WriteDot.
type DotOption func(*dotConfig)

type dotConfig struct {
	labeler func(Label) string
	name    string
}

// WithLabeler renders edge labels with fn instead of the raw encoding.
func WithLabeler(fn func(Label) string) DotOption {
	return func(c *dotConfig) { c.labeler = fn }
}

// WithGraphName sets the digraph name. Default: finite_state_machine.
func WithGraphName(name string) DotOption {
	return func(c *dotConfig) { c.name = name }
}

// WriteDot writes a Graphviz description of the states reachable from the
// start, visited depth-first. Each transition is one line
//
//	src -> dst [label="..."];
//
// with double quotes in labels escaped, and final states are drawn as
// double circles.
func WriteDot(w io.Writer, a *Automaton, opts ...DotOption) error {
	cfg := dotConfig{
		labeler: Label.String,
		name:    "finite_state_machine",
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "digraph %s {\n", cfg.name)
	bw.WriteString("rankdir=LR;\n")
	bw.WriteString("node [shape=circle]\n")

	visited := make([]bool, len(a.states))
	var visit func(id StateID)
	visit = func(id StateID) {
		if visited[id] {
			return
		}
		visited[id] = true
		st := &a.states[id]
		for _, t := range st.transitions {
			fmt.Fprintf(bw, "%d -> %d [label=\"%s\"];\n", id, t.Target, escapeDot(cfg.labeler(t.Label)))
		}
		for _, t := range st.transitions {
			visit(t.Target)
		}
		if st.IsFinal() {
			fmt.Fprintf(bw, "%d [shape=doublecircle];\n", id)
		}
	}
	visit(a.start)

	bw.WriteString("}\n")
	return bw.Flush()
}

// escapeDot escapes characters that would end a quoted dot string.
func escapeDot(s string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`).Replace(s)
}
