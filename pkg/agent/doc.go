// Package agent drives one conversation turn: it sends the transcript to a
// model client, executes the tool calls the model emits, feeds the results
// back, and repeats until the model produces a final answer or the turn's
// tool budget runs out.
package agent
