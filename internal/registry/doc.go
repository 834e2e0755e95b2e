// Package registry fetches and validates the component registry.
//
// The registry is a set of JSON documents served from a content host:
//
//	<registry>/index.json                       item list
//	<registry>/styles/<style>/<name>.json       item with file contents
//	<registry>/colors/<baseColor>.json          base color tokens
//
// Components are distributed as source code that developers copy into their
// projects and own completely, so the registry is only ever read here and
// written back through pull requests (see BuildStyles).
//
// Every payload is decoded into wire structs, checked against a strict shape
// and converted to Item values before anything else sees it. A single
// malformed entry fails the whole fetch with a validation error (E101);
// transport and decode failures are reported as E100.
//
// # Usage
//
//	src, err := registry.NewSource(cfg.Registry, cfg.Publish.Branch)
//	if err != nil {
//	    return err
//	}
//	reg := registry.New(src, registry.WithLogger(logger))
//
//	index, err := reg.FetchIndex(ctx)
//	tree, err := reg.FetchTree(ctx, cfg.Style, index[:1])
package registry
