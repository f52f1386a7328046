package scene

import (
	"encoding/xml"
	"math"
	"strconv"
	"strings"
)

// Attr atributo SVG; el orden se conserva al serializar
type Attr struct {
	Name  string
	Value string
}

// Shape un elemento SVG simple
type Shape struct {
	Tag   string
	Attrs []Attr
	Text  string
}

// Attr devuelve el valor del atributo name, o "" si no está
func (s Shape) Attr(name string) string {
	for _, a := range s.Attrs {
		if a.Name == name {
			return a.Value
		}
	}
	return ""
}

// Layer agrupa las figuras de un mismo origen (fondo, un toggle, actores, clima)
type Layer struct {
	Name   string
	Shapes []Shape
}

// Drawing ilustración completa lista para serializar
type Drawing struct {
	Width  int
	Height int
	Layers []Layer
}

// Layer devuelve la capa con ese nombre
func (d Drawing) Layer(name string) (Layer, bool) {
	for _, l := range d.Layers {
		if l.Name == name {
			return l, true
		}
	}
	return Layer{}, false
}

// ShapeCount total de figuras en todas las capas
func (d Drawing) ShapeCount() int {
	n := 0
	for _, l := range d.Layers {
		n += len(l.Shapes)
	}
	return n
}

// SVG serializa el dibujo
func (d Drawing) SVG() string {
	var b strings.Builder
	b.WriteString(`<svg xmlns="http://www.w3.org/2000/svg" width="100%" height="100%" viewBox="0 0 `)
	b.WriteString(strconv.Itoa(d.Width))
	b.WriteByte(' ')
	b.WriteString(strconv.Itoa(d.Height))
	b.WriteString(`" id="simulationCanvas">`)
	for _, l := range d.Layers {
		if len(l.Shapes) == 0 {
			continue
		}
		b.WriteString(`<g data-layer="`)
		escape(&b, l.Name)
		b.WriteString(`">`)
		for _, s := range l.Shapes {
			writeShape(&b, s)
		}
		b.WriteString(`</g>`)
	}
	b.WriteString(`</svg>`)
	return b.String()
}

func writeShape(b *strings.Builder, s Shape) {
	b.WriteByte('<')
	b.WriteString(s.Tag)
	for _, a := range s.Attrs {
		b.WriteByte(' ')
		b.WriteString(a.Name)
		b.WriteString(`="`)
		escape(b, a.Value)
		b.WriteByte('"')
	}
	if s.Text == "" {
		b.WriteString("/>")
		return
	}
	b.WriteByte('>')
	escape(b, s.Text)
	b.WriteString("</")
	b.WriteString(s.Tag)
	b.WriteByte('>')
}

func escape(b *strings.Builder, s string) {
	_ = xml.EscapeText(b, []byte(s))
}

// num formatea coordenadas con un decimal como máximo
func num(v float64) string {
	return strconv.FormatFloat(math.Round(v*10)/10, 'f', -1, 64)
}

func rect(x, y, w, h float64, fill string, extra ...Attr) Shape {
	attrs := []Attr{{"x", num(x)}, {"y", num(y)}, {"width", num(w)}, {"height", num(h)}, {"fill", fill}}
	return Shape{Tag: "rect", Attrs: append(attrs, extra...)}
}

func circle(cx, cy, r float64, fill string) Shape {
	return Shape{Tag: "circle", Attrs: []Attr{{"cx", num(cx)}, {"cy", num(cy)}, {"r", num(r)}, {"fill", fill}}}
}

func ellipse(cx, cy, rx, ry float64, fill string) Shape {
	return Shape{Tag: "ellipse", Attrs: []Attr{{"cx", num(cx)}, {"cy", num(cy)}, {"rx", num(rx)}, {"ry", num(ry)}, {"fill", fill}}}
}

func line(x1, y1, x2, y2 float64, stroke string, width float64) Shape {
	return Shape{Tag: "line", Attrs: []Attr{
		{"x1", num(x1)}, {"y1", num(y1)}, {"x2", num(x2)}, {"y2", num(y2)},
		{"stroke", stroke}, {"stroke-width", num(width)},
	}}
}

func path(d, stroke string, width float64, extra ...Attr) Shape {
	attrs := []Attr{{"d", d}, {"stroke", stroke}, {"stroke-width", num(width)}, {"fill", "none"}}
	return Shape{Tag: "path", Attrs: append(attrs, extra...)}
}

func polygon(points, fill string) Shape {
	return Shape{Tag: "polygon", Attrs: []Attr{{"points", points}, {"fill", fill}}}
}

func text(x, y float64, size int, content string) Shape {
	return Shape{Tag: "text", Attrs: []Attr{
		{"x", num(x)}, {"y", num(y)}, {"font-family", "Arial"}, {"font-size", strconv.Itoa(size)},
		{"text-anchor", "middle"}, {"fill", "#fff"},
	}, Text: content}
}
