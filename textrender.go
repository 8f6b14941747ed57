package layers

import (
	"bytes"
	"image"
	"strings"
	"unicode/utf8"

	"github.com/go-text/typesetting/di"
	tsfont "github.com/go-text/typesetting/font"
	tslang "github.com/go-text/typesetting/language"
	"github.com/go-text/typesetting/shaping"
	xfont "golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
	"golang.org/x/text/language"
)

// FontProvider resolves font file data (TTF/OTF) for a family and style.
// The returned bytes are parsed once and cached per (family, style).
type FontProvider interface {
	FontData(family string, bold, italic bool) ([]byte, error)
}

type fontKey struct {
	family string
	bold   bool
	italic bool
}

// fontEntry pairs the two parsed views of one font file: the typesetting
// font used for HarfBuzz shaping and measurement, and the x/image
// opentype font used for rasterization.
type fontEntry struct {
	ts *tsfont.Font
	ot *opentype.Font
}

// TextRenderer lays out and rasterizes text runs. Shaping (kerning,
// ligatures, script handling) goes through go-text/typesetting; glyph
// rasterization goes through x/image's opentype drawer.
//
// A nil FontProvider renders every run as a neutral placeholder block,
// never an error.
type TextRenderer struct {
	provider FontProvider
	shaper   shaping.HarfbuzzShaper
	cache    map[fontKey]*fontEntry
}

// NewTextRenderer creates a renderer backed by the given provider.
func NewTextRenderer(p FontProvider) *TextRenderer {
	return &TextRenderer{
		provider: p,
		cache:    map[fontKey]*fontEntry{},
	}
}

// font is nil-receiver safe so content rendering can run without a text
// renderer (thumbnails), falling back to placeholders.
func (tr *TextRenderer) font(run *TextRun) *fontEntry {
	if tr == nil || tr.provider == nil {
		return nil
	}
	key := fontKey{family: run.FontFamily, bold: run.Bold, italic: run.Italic}
	if e, ok := tr.cache[key]; ok {
		return e
	}
	data, err := tr.provider.FontData(run.FontFamily, run.Bold, run.Italic)
	if err != nil || len(data) == 0 {
		Logger().Warn("font resolution failed", "family", run.FontFamily, "err", err)
		tr.cache[key] = nil
		return nil
	}
	tsFace, err := tsfont.ParseTTF(bytes.NewReader(data))
	if err != nil {
		Logger().Warn("font parse (typesetting) failed", "family", run.FontFamily, "err", err)
		tr.cache[key] = nil
		return nil
	}
	ot, err := opentype.Parse(data)
	if err != nil {
		Logger().Warn("font parse (opentype) failed", "family", run.FontFamily, "err", err)
		tr.cache[key] = nil
		return nil
	}
	e := &fontEntry{ts: tsFace.Font, ot: ot}
	tr.cache[key] = e
	return e
}

// measure returns the shaped advance width of text in pixels.
func (tr *TextRenderer) measure(e *fontEntry, run *TextRun, text string) float64 {
	runes := []rune(text)
	if len(runes) == 0 {
		return 0
	}
	input := shaping.Input{
		Text:      runes,
		RunStart:  0,
		RunEnd:    len(runes),
		Direction: di.DirectionLTR,
		Face:      tsfont.NewFace(e.ts),
		Size:      floatToFixed(run.FontSize),
		Script:    detectScript(runes),
		Language:  runLanguage(run),
	}
	out := tr.shaper.Shape(input)
	var adv fixed.Int26_6
	for _, g := range out.Glyphs {
		adv += g.XAdvance
	}
	return fixedToFloat(adv)
}

// lineHeight returns the run's line height in pixels.
func lineHeight(run *TextRun) float64 {
	mult := run.LineHeight
	if mult <= 0 {
		mult = 1.2
	}
	return run.FontSize * mult
}

// estimateRunSize approximates a run's block size from its font size
// before the first composition pass measures it with real metrics, so
// the run is hit-testable as soon as it is added. The composition pass
// replaces the estimate with the shaped measurement.
func estimateRunSize(run *TextRun) Point {
	longest, lines := 0, 0
	for _, line := range strings.Split(run.Text, "\n") {
		lines++
		if n := utf8.RuneCountInString(line); n > longest {
			longest = n
		}
	}
	w := float64(longest) * run.FontSize * 0.55
	if run.MaxWidth > 0 && w > run.MaxWidth {
		w = run.MaxWidth
	}
	return Point{X: w, Y: float64(lines) * lineHeight(run)}
}

// wrap splits text into lines with greedy word wrap at maxWidth pixels.
// Explicit newlines always break. maxWidth <= 0 disables wrapping.
func (tr *TextRenderer) wrap(e *fontEntry, run *TextRun, maxWidth float64) []string {
	paragraphs := strings.Split(run.Text, "\n")
	if maxWidth <= 0 {
		return paragraphs
	}
	var lines []string
	for _, para := range paragraphs {
		words := strings.Fields(para)
		if len(words) == 0 {
			lines = append(lines, "")
			continue
		}
		cur := words[0]
		for _, w := range words[1:] {
			candidate := cur + " " + w
			if tr.measure(e, run, candidate) > maxWidth {
				lines = append(lines, cur)
				cur = w
			} else {
				cur = candidate
			}
		}
		lines = append(lines, cur)
	}
	return lines
}

// DrawRun renders a text run onto dst and returns the drawn pixel
// bounds. Without a resolvable font it draws a neutral placeholder
// sized to the placement and returns those bounds.
func (tr *TextRenderer) DrawRun(dst *Surface, run *TextRun, m Mapper) Rect {
	e := tr.font(run)
	if e == nil {
		b := run.Placement.Bounds()
		if b.W <= 0 || b.H <= 0 {
			b.W, b.H = 120, lineHeight(run)
		}
		dst.FillRect(b, RGBA{R: 0.6, G: 0.6, B: 0.6, A: 0.4})
		return b
	}

	lines := tr.wrap(e, run, run.MaxWidth)
	lh := lineHeight(run)
	widths := make([]float64, len(lines))
	var blockW float64
	for i, line := range lines {
		widths[i] = tr.measure(e, run, line)
		if widths[i] > blockW {
			blockW = widths[i]
		}
	}
	blockH := lh * float64(len(lines))
	origin := run.Placement.Pixel

	target := dst
	offset := origin
	if run.Rotation != 0 {
		// Render into a scratch block and composite rotated about the
		// block center.
		target = NewSurface(int(blockW)+2, int(blockH)+2)
		offset = Point{}
	}

	face, err := opentype.NewFace(e.ot, &opentype.FaceOptions{
		Size:    run.FontSize,
		DPI:     72,
		Hinting: xfont.HintingFull,
	})
	if err != nil {
		Logger().Warn("face creation failed", "family", run.FontFamily, "err", err)
		b := run.Placement.Bounds()
		dst.FillRect(b, RGBA{R: 0.6, G: 0.6, B: 0.6, A: 0.4})
		return b
	}
	defer func() { _ = face.Close() }()

	metrics := face.Metrics()
	ascent := fixedToFloat(metrics.Ascent)
	drawer := &xfont.Drawer{
		Dst:  target,
		Src:  image.NewUniform(run.Color.Color()),
		Face: face,
	}
	for i, line := range lines {
		var indent float64
		switch run.Align {
		case AlignCenter:
			indent = (blockW - widths[i]) / 2
		case AlignRight:
			indent = blockW - widths[i]
		}
		x := offset.X + indent
		baseline := offset.Y + ascent + lh*float64(i)
		drawer.Dot = fixed.Point26_6{X: floatToFixed(x), Y: floatToFixed(baseline)}
		drawer.DrawString(line)

		if run.Underline {
			target.FillRect(Rect{X: x, Y: baseline + 2, W: widths[i], H: maxFloat(1, run.FontSize/14)}, run.Color)
		}
		if run.Strike {
			target.FillRect(Rect{X: x, Y: baseline - ascent*0.3, W: widths[i], H: maxFloat(1, run.FontSize/14)}, run.Color)
		}
	}

	if run.Rotation != 0 {
		center := Point{X: blockW / 2, Y: blockH / 2}
		t := Translation(origin.X+center.X, origin.Y+center.Y).
			Multiply(Rotation(run.Rotation)).
			Multiply(Translation(-center.X, -center.Y))
		dst.DrawSurface(target, DrawOptions{Opacity: 1, Transform: t})
	}

	return Rect{X: origin.X, Y: origin.Y, W: blockW, H: blockH}
}

// runLanguage maps the run's BCP-47 tag to a typesetting language,
// defaulting to English on parse failure.
func runLanguage(run *TextRun) tslang.Language {
	if run.Language == "" {
		return tslang.NewLanguage("en")
	}
	tag, err := language.Parse(run.Language)
	if err != nil {
		Logger().Debug("invalid language tag", "tag", run.Language, "err", err)
		return tslang.NewLanguage("en")
	}
	return tslang.NewLanguage(tag.String())
}

// detectScript returns the script of the first non-space rune. Mixed
// scripts should be split into separate runs before shaping.
func detectScript(runes []rune) tslang.Script {
	for _, r := range runes {
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' {
			continue
		}
		return tslang.LookupScript(r)
	}
	return tslang.Latin
}

func floatToFixed(v float64) fixed.Int26_6 {
	return fixed.Int26_6(v * 64)
}

func fixedToFloat(v fixed.Int26_6) float64 {
	return float64(v) / 64
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
