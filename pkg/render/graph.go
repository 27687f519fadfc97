package render

import (
	"bytes"
	"context"
	"fmt"

	"github.com/goccy/go-graphviz"

	"github.com/wardline/wardline/pkg/block"
	"github.com/wardline/wardline/pkg/district"
	apperrors "github.com/wardline/wardline/pkg/errors"
	"github.com/wardline/wardline/pkg/geo"
)

// AdjacencyDOT builds the district adjacency graph in Graphviz DOT
// form. Two districts are adjacent when any unit of one touches any
// unit of the other.
func AdjacencyDOT(districts []*district.District) (string, error) {
	if len(districts) == 0 {
		return "", apperrors.New(apperrors.ErrCodeInvalidConfig, "no districts to graph")
	}

	var all []*block.Unit
	var owner []int
	for i, d := range districts {
		for _, u := range d.Units {
			all = append(all, u)
			owner = append(owner, i)
		}
	}
	ix, err := geo.NewIndex(all)
	if err != nil {
		return "", err
	}

	type pair struct{ a, b int }
	edges := make(map[pair]bool)
	for i := range all {
		for _, j := range ix.Neighbors(i) {
			a, b := owner[i], owner[j]
			if a == b {
				continue
			}
			if a > b {
				a, b = b, a
			}
			edges[pair{a, b}] = true
		}
	}

	var buf bytes.Buffer
	buf.WriteString("graph districts {\n")
	buf.WriteString("  layout=neato;\n")
	buf.WriteString("  overlap=false;\n")
	buf.WriteString("  node [shape=circle, style=filled, fontsize=12, margin=0.1];\n")
	buf.WriteString("\n")

	for i, d := range districts {
		fmt.Fprintf(&buf, "  %q [label=\"District %d\\n%d\", fillcolor=%q];\n",
			fmt.Sprint(i+1), i+1, d.Pop, categorical[i%len(categorical)])
	}

	buf.WriteString("\n")
	for a := 0; a < len(districts); a++ {
		for b := a + 1; b < len(districts); b++ {
			if edges[pair{a, b}] {
				fmt.Fprintf(&buf, "  %q -- %q;\n", fmt.Sprint(a+1), fmt.Sprint(b+1))
			}
		}
	}

	buf.WriteString("}\n")
	return buf.String(), nil
}

// GraphSVG renders a DOT graph to SVG using Graphviz.
func GraphSVG(ctx context.Context, dot string) ([]byte, error) {
	return renderDOT(ctx, dot, graphviz.SVG)
}

// GraphPNG renders a DOT graph to PNG using Graphviz.
func GraphPNG(ctx context.Context, dot string) ([]byte, error) {
	return renderDOT(ctx, dot, graphviz.PNG)
}

func renderDOT(ctx context.Context, dot string, format graphviz.Format) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInternal, err, "init graphviz")
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInternal, err, "parse DOT")
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, format, &buf); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInternal, err, "render graph")
	}
	return buf.Bytes(), nil
}
