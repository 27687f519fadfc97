// Package render draws district maps and adjacency diagrams.
//
// # Choropleth map
//
// [MapSVG] draws dissolved district polygons as plain SVG text. Fills
// cycle a categorical palette, or encode the population-weighted
// partisan share on a diverging red-blue ramp:
//
//	svg, err := render.MapSVG(districts,
//		render.WithColorMode(render.ColorByPartisan),
//		render.WithTitle("California, 52 seats"))
//
// # Adjacency diagram
//
// [AdjacencyDOT] reduces a plan to its district adjacency graph in
// Graphviz DOT form; [GraphSVG] and [GraphPNG] rasterize it:
//
//	dot, err := render.AdjacencyDOT(districts)
//	png, err := render.GraphPNG(ctx, dot)
package render
