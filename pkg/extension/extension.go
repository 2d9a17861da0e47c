// Package extension loads tool sets into a registry. A source is any grouped
// collection of tool specs; loading collects per-tool failures instead of
// aborting, so one bad declaration never blocks the rest of a source.
package extension

import (
	"github.com/rs/zerolog/log"

	"github.com/golemcli/golem/pkg/tool"
)

// Source is a named provider of tool specs.
type Source interface {
	Name() string
	Tools() ([]tool.Spec, error)
}

// Failure records one tool that could not be registered.
type Failure struct {
	Source string `json:"source"`
	Tool   string `json:"tool,omitempty"`
	Reason string `json:"reason"`
}

// Report summarizes one load pass.
type Report struct {
	Loaded   int       `json:"loaded"`
	Failures []Failure `json:"failures,omitempty"`
}

// OK reports whether every declaration loaded.
func (r Report) OK() bool {
	return len(r.Failures) == 0
}

// Load registers every tool of every source. Failures are collected per
// declaration; tools that load stay loaded.
func Load(registry *tool.Registry, sources ...Source) Report {
	var report Report

	for _, source := range sources {
		specs, err := source.Tools()
		if err != nil {
			log.Error().Str("source", source.Name()).Err(err).Msg("Tool source failed to build")
			report.Failures = append(report.Failures, Failure{
				Source: source.Name(),
				Reason: err.Error(),
			})
			continue
		}

		for _, spec := range specs {
			if err := registry.Register(spec); err != nil {
				log.Error().
					Str("source", source.Name()).
					Str("tool", spec.Name).
					Err(err).
					Msg("Tool failed to register")
				report.Failures = append(report.Failures, Failure{
					Source: source.Name(),
					Tool:   spec.Name,
					Reason: err.Error(),
				})
				continue
			}
			report.Loaded++
		}
	}

	return report
}

// Static is a Source over a fixed spec list.
type Static struct {
	SourceName string
	Specs      []tool.Spec
	Err        error
}

func (s Static) Name() string {
	return s.SourceName
}

func (s Static) Tools() ([]tool.Spec, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	return s.Specs, nil
}

// FuncSource adapts a builder function into a Source.
func FuncSource(name string, build func() ([]tool.Spec, error)) Source {
	return funcSource{name: name, build: build}
}

type funcSource struct {
	name  string
	build func() ([]tool.Spec, error)
}

func (f funcSource) Name() string {
	return f.name
}

func (f funcSource) Tools() ([]tool.Spec, error) {
	return f.build()
}
