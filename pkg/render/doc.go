// Package render exports dependency trees as Graphviz documents.
//
// # Overview
//
// This package walks a [tree.Model] into DOT source and renders it to
// SVG. It backs the export command and produces output suitable for
// embedding in web views or further Graphviz processing.
//
// # DOT Generation
//
// [ToDOT] emits a left-to-right digraph. The project manifest becomes a
// bold root node and each declared dependency hangs off it; installed
// packages expand through their own node_modules copies up to
// [Options.Depth] levels. Packages resolved to the same install
// location collapse into a single node so shared dependencies show
// their fan-in.
//
//	dot := render.ToDOT(model, render.Options{Depth: 3})
//
// # SVG Rendering
//
// [ToSVG] feeds DOT through Graphviz and normalizes the resulting
// viewBox to a zero origin with explicit pixel dimensions.
//
//	svg, err := render.ToSVG(ctx, dot)
//
// Node styling encodes state: dev and peer dependencies get tinted
// fills, and dependencies that are declared but not installed render
// dashed and gray.
package render
