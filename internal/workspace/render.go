package workspace

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"github.com/muesli/reflow/truncate"
	"github.com/muesli/reflow/wordwrap"
	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/theirongolddev/panefresh/internal/host"
)

type rect struct {
	x, y, w, h int
}

func (r rect) contains(x, y int) bool {
	return x >= r.x && x < r.x+r.w && y >= r.y && y < r.y+r.h
}

// paneRects splits the body area into n columns of equal width.
func paneRects(n int, area rect) []rect {
	if n <= 0 {
		return nil
	}
	rects := make([]rect, n)
	w := area.w / n
	x := area.x
	for i := range rects {
		cw := w
		if i == n-1 {
			cw = area.x + area.w - x
		}
		rects[i] = rect{x: x, y: area.y, w: cw, h: area.h}
		x += cw
	}
	return rects
}

// inner is the content area of a bordered pane: header line plus body.
func (r rect) inner() rect {
	return rect{x: r.x + 1, y: r.y + 1, w: max(r.w-2, 0), h: max(r.h-2, 0)}
}

func buttonLabel(b Button) string {
	return "[" + b.Icon + "]"
}

// buttonRects returns the header hit boxes of buttons, laid out right to
// left from the header's end.
func buttonRects(pane rect, buttons []Button) []rect {
	in := pane.inner()
	rects := make([]rect, len(buttons))
	x := in.x + in.w
	for i, b := range buttons {
		w := runewidth.StringWidth(buttonLabel(b))
		x -= w
		rects[i] = rect{x: x, y: in.y, w: w, h: 1}
		x--
	}
	return rects
}

func paneTitle(p PaneView) string {
	name := p.Type
	if p.File != "" {
		name = filepath.Base(p.File) + " · " + p.Type
	}
	if p.Doc != nil {
		name += " · " + p.Mode.String()
	}
	if p.Dirty {
		name = "● " + name
	}
	if p.Lazy {
		name += " (not loaded)"
	}
	return name
}

// renderHeader draws the title, truncated to leave room for the buttons.
func renderHeader(s styles, p PaneView, width int) string {
	var btns []string
	used := 0
	for i := len(p.Buttons) - 1; i >= 0; i-- {
		l := buttonLabel(p.Buttons[i])
		btns = append(btns, s.button.Render(l))
		used += runewidth.StringWidth(l) + 1
	}
	room := max(width-used, 0)
	title := truncate.StringWithTail(paneTitle(p), uint(room), "…")
	style := s.headerDim
	if p.Focused {
		style = s.header
	}
	pad := max(room-runewidth.StringWidth(title), 0)
	return style.Render(title) + strings.Repeat(" ", pad) + strings.Join(btns, " ")
}

// renderDocument draws the visible lines of an editor pane with the cursor
// and the selection.
func renderDocument(s styles, doc *Document, width, height, tabWidth int, showCursor bool) []string {
	lines := doc.Lines()
	sel := doc.Selection()
	scroll := doc.Scroll()
	from, to := sel.Ordered()

	// Keep the cursor on screen.
	top := scroll.Top
	if showCursor {
		if sel.Head.Line >= top+height {
			top = sel.Head.Line - height + 1
		}
		if sel.Head.Line < top {
			top = sel.Head.Line
		}
	}

	out := make([]string, 0, height)
	for ln := top; ln < len(lines) && len(out) < height; ln++ {
		runes := []rune(lines[ln])
		var b strings.Builder
		cells := 0
		for col := 0; col <= len(runes); col++ {
			pos := host.Position{Line: ln, Col: col}
			ch := " "
			if col < len(runes) {
				ch = string(runes[col])
				if ch == "\t" {
					ch = strings.Repeat(" ", max(tabWidth, 1))
				}
			} else if !(showCursor && pos == sel.Head) {
				break
			}
			w := runewidth.StringWidth(ch)
			if cells+w > width {
				break
			}
			cells += w
			switch {
			case showCursor && pos == sel.Head:
				b.WriteString(s.cursor.Render(ch))
			case !sel.Empty() && !pos.Before(from) && pos.Before(to):
				b.WriteString(s.selection.Render(ch))
			default:
				b.WriteString(ch)
			}
		}
		out = append(out, b.String())
	}
	return out
}

// renderMarkdown renders a preview pane with glamour.
func renderMarkdown(src string, width int, style string) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(max(width-2, 10)),
	)
	if err != nil {
		return "", err
	}
	return r.Render(src)
}

// diffLines compares two texts line by line.
func diffLines(s styles, baseline, current string) []string {
	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(baseline, current)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	var out []string
	for _, d := range diffs {
		text := strings.TrimSuffix(d.Text, "\n")
		for _, line := range strings.Split(text, "\n") {
			switch d.Type {
			case diffmatchpatch.DiffInsert:
				out = append(out, s.added.Render("+ "+line))
			case diffmatchpatch.DiffDelete:
				out = append(out, s.removed.Render("- "+line))
			default:
				out = append(out, "  "+line)
			}
		}
	}
	if len(out) == 0 {
		out = append(out, s.dim.Render("(no changes)"))
	}
	return out
}

// scrolled shows content in a viewport of the given size.
func scrolled(content string, width, height, offset int) string {
	vp := viewport.New(width, height)
	vp.SetContent(content)
	vp.SetYOffset(offset)
	return vp.View()
}

// fitLines pads or cuts lines to exactly width x height cells.
func fitLines(lines []string, width, height int) string {
	out := make([]string, height)
	for i := range out {
		if i < len(lines) {
			l := truncate.String(lines[i], uint(width))
			out[i] = l + strings.Repeat(" ", max(width-lipgloss.Width(l), 0))
		} else {
			out[i] = strings.Repeat(" ", width)
		}
	}
	return strings.Join(out, "\n")
}

func wrapError(s styles, err error, width int) []string {
	return strings.Split(s.err.Render(wordwrap.String(fmt.Sprintf("error: %v", err), max(width, 10))), "\n")
}
