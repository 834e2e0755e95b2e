// Package transform rewrites registry file content into the form a project
// would have installed, so it can be compared with the files on disk.
//
// The shipped rules are deliberately small. Embedders plug their own rules
// in through the Transformer interface and compose them with Chain.
package transform

import (
	"context"

	"github.com/harmonyui/harmonycn/internal/config"
	"github.com/harmonyui/harmonycn/internal/registry"
)

// Input is one registry file and the project settings it is rendered for.
type Input struct {
	Filename  string
	Raw       string
	Style     string
	BaseColor *registry.BaseColor
	Aliases   config.AliasConfig
}

// Transformer renders registry content for a project.
type Transformer interface {
	Transform(ctx context.Context, in Input) (string, error)
}

// Func adapts a function to the Transformer interface.
type Func func(ctx context.Context, in Input) (string, error)

// Transform calls f.
func (f Func) Transform(ctx context.Context, in Input) (string, error) {
	return f(ctx, in)
}

// Identity returns the raw content unchanged.
var Identity Transformer = Func(func(_ context.Context, in Input) (string, error) {
	return in.Raw, nil
})

// Chain applies transformers in order, feeding each one the previous
// output. An empty chain is Identity.
func Chain(ts ...Transformer) Transformer {
	return Func(func(ctx context.Context, in Input) (string, error) {
		for _, t := range ts {
			out, err := t.Transform(ctx, in)
			if err != nil {
				return "", err
			}
			in.Raw = out
		}
		return in.Raw, nil
	})
}

// Default is the transformer used when none is configured.
func Default() Transformer {
	return Chain(ImportAliases())
}
