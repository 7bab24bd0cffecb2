// Package render draws a rig pose as a layered SVG figure: a torso with two
// jointed arms, a neck and a head carrying the face, hair and headset.
package render

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/beevik/etree"
	"github.com/go-gl/mathgl/mgl64"

	"github.com/normanking/novaavatar/internal/rig"
)

// Frame is one rendered pose.
type Frame struct {
	Time     float64  `json:"time"`
	Skeleton Skeleton `json:"skeleton"`
	SVG      []byte   `json:"-"`
}

func (f Frame) String() string {
	return string(f.SVG)
}

// Renderer turns poses into frames. It is safe for concurrent use; the theme
// can be swapped while frames are being rendered.
type Renderer struct {
	theme atomic.Pointer[Theme]
}

func NewRenderer(th Theme) *Renderer {
	r := &Renderer{}
	r.SetTheme(th)
	return r
}

func (r *Renderer) SetTheme(th Theme) {
	r.theme.Store(&th)
}

func (r *Renderer) Theme() Theme {
	return *r.theme.Load()
}

// Render draws p. The same pose and theme always produce the same bytes.
// Non-finite values are drawn as 0.
func (r *Renderer) Render(p rig.Pose) Frame {
	th := r.theme.Load()
	p = sanitize(p)
	b := poseBones(p)
	c := canvas{theme: th}

	doc := etree.NewDocument()
	svg := doc.CreateElement("svg")
	svg.CreateAttr("xmlns", "http://www.w3.org/2000/svg")
	svg.CreateAttr("viewBox", c.f("0 0 %s %s", th.Width, th.Height))
	svg.CreateAttr("width", c.n(th.Width))
	svg.CreateAttr("height", c.n(th.Height))

	c.defs(svg)

	aura := svg.CreateElement("circle")
	aura.CreateAttr("id", "aura")
	aura.CreateAttr("cx", c.n(torsoX))
	aura.CreateAttr("cy", c.n(torsoY+p.FloatY))
	aura.CreateAttr("r", c.n(400))
	aura.CreateAttr("fill", "url(#aura)")
	aura.CreateAttr("opacity", c.n(p.Glow*0.4))

	body := c.group(svg, "body", b.torso)
	c.wings(body, p)
	c.torso(body, p)
	c.arm(body, "left", b.leftShoulder, b.leftElbow)
	c.arm(body, "right", b.rightShoulder, b.rightElbow)
	c.path(body, "neck", "M -20,-130 L -20,-170 L 20,-170 L 20,-130 Z", "fill", "url(#grad-skin)")
	c.head(c.group(body, "head", b.head), p)

	if th.Scanlines {
		rect := svg.CreateElement("rect")
		rect.CreateAttr("id", "scanlines")
		rect.CreateAttr("width", c.n(th.Width))
		rect.CreateAttr("height", c.n(th.Height))
		rect.CreateAttr("fill", "url(#scanlines)")
		rect.CreateAttr("opacity", "0.1")
	}

	// writing into a bytes.Buffer cannot fail
	out, _ := doc.WriteToBytes()
	return Frame{Time: p.Time, Skeleton: b.skeleton(), SVG: out}
}

// canvas formats numbers at the theme precision and emits figure parts.
type canvas struct {
	theme *Theme
}

func (c canvas) n(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		v = 0
	}
	s := strconv.FormatFloat(v, 'f', c.theme.Precision, 64)
	if strings.ContainsRune(s, '.') {
		s = strings.TrimRight(strings.TrimRight(s, "0"), ".")
	}
	if s == "-0" {
		return "0"
	}
	return s
}

// f is fmt.Sprintf over formatted numbers; verbs must be %s.
func (c canvas) f(format string, vals ...float64) string {
	args := make([]any, len(vals))
	for i, v := range vals {
		args[i] = c.n(v)
	}
	return fmt.Sprintf(format, args...)
}

func (c canvas) matrix(m mgl64.Mat3) string {
	return c.f("matrix(%s,%s,%s,%s,%s,%s)", m[0], m[1], m[3], m[4], m[6], m[7])
}

func (c canvas) group(parent *etree.Element, id string, m mgl64.Mat3) *etree.Element {
	g := parent.CreateElement("g")
	if id != "" {
		g.CreateAttr("id", id)
	}
	g.CreateAttr("transform", c.matrix(m))
	return g
}

// path adds a path with d and alternating attribute key/value pairs.
func (c canvas) path(parent *etree.Element, id, d string, attrs ...string) *etree.Element {
	el := parent.CreateElement("path")
	if id != "" {
		el.CreateAttr("id", id)
	}
	el.CreateAttr("d", d)
	for i := 0; i+1 < len(attrs); i += 2 {
		el.CreateAttr(attrs[i], attrs[i+1])
	}
	return el
}

func (c canvas) circle(parent *etree.Element, id string, cx, cy, r float64, attrs ...string) *etree.Element {
	el := parent.CreateElement("circle")
	if id != "" {
		el.CreateAttr("id", id)
	}
	el.CreateAttr("cx", c.n(cx))
	el.CreateAttr("cy", c.n(cy))
	el.CreateAttr("r", c.n(r))
	for i := 0; i+1 < len(attrs); i += 2 {
		el.CreateAttr(attrs[i], attrs[i+1])
	}
	return el
}

func (c canvas) defs(svg *etree.Element) {
	th := c.theme
	defs := svg.CreateElement("defs")

	gradient := func(id, x2, y2 string, stops []string) {
		g := defs.CreateElement("linearGradient")
		g.CreateAttr("id", id)
		g.CreateAttr("x1", "0")
		g.CreateAttr("y1", "0")
		g.CreateAttr("x2", x2)
		g.CreateAttr("y2", y2)
		for i, color := range stops {
			offset := 0.0
			if len(stops) > 1 {
				offset = float64(i) / float64(len(stops)-1) * 100
			}
			s := g.CreateElement("stop")
			s.CreateAttr("offset", c.n(offset)+"%")
			s.CreateAttr("stop-color", color)
		}
	}
	gradient("grad-skin", "1", "1", th.SkinStops)
	gradient("grad-suit", "0", "1", th.SuitStops)

	aura := defs.CreateElement("radialGradient")
	aura.CreateAttr("id", "aura")
	for _, stop := range [][2]string{{"0%", "1"}, {"70%", "0"}} {
		s := aura.CreateElement("stop")
		s.CreateAttr("offset", stop[0])
		s.CreateAttr("stop-color", th.Accent)
		s.CreateAttr("stop-opacity", stop[1])
	}

	filter := defs.CreateElement("filter")
	filter.CreateAttr("id", "glow-blur")
	blur := filter.CreateElement("feGaussianBlur")
	blur.CreateAttr("stdDeviation", "2.5")
	blur.CreateAttr("result", "coloredBlur")
	merge := filter.CreateElement("feMerge")
	merge.CreateElement("feMergeNode").CreateAttr("in", "coloredBlur")
	merge.CreateElement("feMergeNode").CreateAttr("in", "SourceGraphic")

	if !th.Scanlines {
		return
	}
	pattern := defs.CreateElement("pattern")
	pattern.CreateAttr("id", "scanlines")
	pattern.CreateAttr("patternUnits", "userSpaceOnUse")
	pattern.CreateAttr("width", "10")
	pattern.CreateAttr("height", "4")
	line := pattern.CreateElement("line")
	line.CreateAttr("x1", "0")
	line.CreateAttr("y1", "2")
	line.CreateAttr("x2", "10")
	line.CreateAttr("y2", "2")
	line.CreateAttr("stroke", "white")
	line.CreateAttr("stroke-width", "0.5")
	line.CreateAttr("opacity", "0.5")
}

func (c canvas) wings(body *etree.Element, p rig.Pose) {
	g := body.CreateElement("g")
	g.CreateAttr("id", "wings")
	g.CreateAttr("opacity", c.n(p.Glow))
	g.CreateAttr("stroke", c.theme.Accent)
	g.CreateAttr("stroke-width", "1")
	g.CreateAttr("fill", "none")
	for _, side := range []float64{1, -1} {
		c.path(g, "", "M 60,-100 L 250,-200 L 280,-50 L 100,50",
			"transform", c.matrix(mgl64.Scale2D(side, 1)),
			"stroke-dasharray", "4 4",
			"opacity", "0.3")
	}
}

func (c canvas) torso(body *etree.Element, p rig.Pose) {
	accent := c.theme.Accent
	c.path(body, "torso",
		"M -50,-130 C -80,-100 -90,100 -60,200 L -80,500 L 80,500 L 60,200 C 90,100 80,-100 50,-130",
		"fill", "url(#grad-suit)",
		"stroke", accent,
		"stroke-width", "1",
		"transform", c.matrix(mgl64.Scale2D(1+p.Breath, 1)))
	c.path(body, "", "M 0,-130 L 0,200", "stroke", accent, "stroke-width", "2", "opacity", "0.5")
	c.path(body, "", "M -40,-80 L 40,-80", "stroke", accent, "stroke-width", "1", "opacity", "0.5")
	c.circle(body, "core", 0, -40, 5,
		"fill", c.theme.AccentGlow,
		"filter", "url(#glow-blur)",
		"opacity", c.n(0.8+p.Breath))
}

func (c canvas) arm(body *etree.Element, side string, shoulder, elbow mgl64.Mat3) {
	th := c.theme
	upper := c.group(body, "arm-"+side, shoulder)
	c.path(upper, "", "M 0,0 L -10,120 L 10,120 Z", "fill", "url(#grad-suit)", "stroke", th.Accent, "stroke-width", "1")
	c.circle(upper, "", 0, 0, 15, "fill", th.Dark, "stroke", th.Accent)

	fore := c.group(upper, "forearm-"+side, elbow)
	c.path(fore, "", "M -8,0 L -5,100 L 5,100 L 8,0 Z", "fill", "url(#grad-suit)", "stroke", th.Accent, "stroke-width", "1")
	c.circle(fore, "", 0, 0, 12, "fill", th.Dark, "stroke", th.Accent)
	c.circle(fore, "hand-"+side, 0, forearm, 10, "fill", "url(#grad-skin)", "opacity", "0.8")
}

func (c canvas) head(head *etree.Element, p rig.Pose) {
	th := c.theme
	c.path(head, "hair-back",
		"M -70,-80 C -100,0 -100,160 -40,190 L 40,190 C 100,160 100,0 70,-80 C 50,-140 -50,-140 -70,-80",
		"fill", th.Hair, "stroke", th.Accent, "stroke-width", "1")
	c.path(head, "face",
		"M -50,-70 C -55,0 -40,110 0,140 C 40,110 55,0 50,-70 C 45,-120 -45,-120 -50,-70",
		"fill", "url(#grad-skin)")

	features := c.group(head, "features", mgl64.Translate2D(0, 10))

	c.path(features, "brow-left",
		c.f("M -40,%s Q -20,%s -5,%s", -30+p.BrowLeft, -35+p.BrowLeft, -30+p.BrowLeft),
		"fill", "none", "stroke", th.Brow, "stroke-width", "2.5")
	c.path(features, "brow-right",
		c.f("M 5,%s Q 20,%s 40,%s", -30+p.BrowRight, -35+p.BrowRight, -30+p.BrowRight),
		"fill", "none", "stroke", th.Brow, "stroke-width", "2.5")

	c.eye(features, "left", -22, p)
	c.eye(features, "right", 22, p)

	c.path(features, "nose", "M -2,40 Q 0,45 2,40",
		"fill", "none", "stroke", th.Iris, "stroke-width", "1.5", "opacity", "0.3")

	mouth := c.group(features, "", mgl64.Translate2D(0, 60))
	half := 12 + p.MouthWidth + p.Smile
	corner := -p.Smile * 2
	c.path(mouth, "mouth",
		c.f("M %s,%s Q 0,%s %s,%s Q 0,%s %s,%s",
			-half, corner,
			-4-p.MouthHeight/2+p.Smile*2, half, corner,
			4+p.MouthHeight+p.Smile*5, -half, corner),
		"fill", th.Mouth)

	c.path(head, "bangs",
		"M -55,-70 C -55,-20 -20,-10 0,-30 C 20,-10 55,-20 55,-70 C 40,-100 -40,-100 -55,-70",
		"fill", th.Bangs, "opacity", "0.85",
		"transform", c.matrix(mgl64.Translate2D(p.HairSway, 0)))

	c.path(head, "headset", "M -60,-60 L -65,-90 L -30,-100 L 30,-100 L 65,-90 L 60,-60",
		"fill", "none", "stroke", th.Accent, "stroke-width", "2")
	for _, x := range []float64{-65, 65} {
		c.circle(head, "", x, -60, 4, "fill", th.AccentGlow, "filter", "url(#glow-blur)")
	}
}

func (c canvas) eye(features *etree.Element, side string, x float64, p rig.Pose) {
	th := c.theme
	eye := c.group(features, "eye-"+side, mgl64.Translate2D(x, -5))
	c.path(eye, "", "M -16,0 Q 0,-14 16,0 Q 0,14 -16,0", "fill", "#fff")

	pupil := c.group(eye, "pupil-"+side, mgl64.Translate2D(p.PupilX*8, p.PupilY*5))
	c.circle(pupil, "", 0, 0, 7, "fill", th.Iris)
	c.circle(pupil, "", 0, 0, 3, "fill", "#000")
	c.circle(pupil, "", 2, -2, 2.5, "fill", "#fff", "opacity", "0.8")

	upper := -8 + 25*(1-p.EyeOpen+p.EyeSquint)
	c.path(eye, "lid-upper-"+side,
		c.f("M -18,-8 L 18,-8 L 18,%s L -18,%s Z", upper, upper), "fill", th.Lid)
	lower := 8 - 25*p.EyeSquint
	c.path(eye, "lid-lower-"+side,
		c.f("M -18,8 L 18,8 L 18,%s L -18,%s Z", lower, lower), "fill", th.Lid)
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// sanitize zeroes every non-finite field of a copy of p.
func sanitize(p rig.Pose) rig.Pose {
	for _, v := range []*float64{
		&p.Time,
		&p.HeadTilt, &p.HeadTurn, &p.HeadNod,
		&p.LeftShoulder, &p.LeftElbow, &p.RightShoulder, &p.RightElbow,
		&p.EyeOpen, &p.EyeSquint, &p.PupilX, &p.PupilY,
		&p.BrowLeft, &p.BrowRight,
		&p.MouthWidth, &p.MouthHeight, &p.Smile,
		&p.BreathPhase, &p.Breath, &p.HairSway, &p.Glow, &p.FloatY,
		&p.SaccadeX, &p.SaccadeY,
	} {
		*v = finite(*v)
	}
	return p
}
