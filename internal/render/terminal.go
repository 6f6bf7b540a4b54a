package render

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"marquee/internal/transform"
)

// pxPerCell maps engine pixel coordinates onto terminal cells for the
// preview. Only proportions matter here, not exact sizes.
const pxPerCell = 16

// frameInterval is the preview redraw rate.
const frameInterval = 50 * time.Millisecond

var (
	defaultBarStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("25")).
			Padding(0, 1)
	warningBarStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("220")).
			Padding(0, 1)
	faintStyle = lipgloss.NewStyle().Faint(true)
	helpStyle  = lipgloss.NewStyle().Faint(true).MarginTop(1)
)

// Terminal is a Surface that previews banners inside the terminal. It
// exists for trying out config (scroll speed, timings, rules) without a
// graphical surface; the engine drives it exactly like a real one.
type Terminal struct {
	logger *slog.Logger
	prog   *tea.Program

	// OnClick receives banner ids for presses of the 1-9 keys, mapped to
	// the banner in that on-screen position.
	OnClick func(id string)
}

// NewTerminal creates a terminal preview surface.
func NewTerminal(logger *slog.Logger) *Terminal {
	if logger == nil {
		logger = slog.Default()
	}
	t := &Terminal{logger: logger}
	t.prog = tea.NewProgram(newTermModel(t), tea.WithAltScreen())
	return t
}

// Run blocks running the preview UI until the user quits.
func (t *Terminal) Run() error {
	_, err := t.prog.Run()
	return err
}

// Quit stops the preview UI.
func (t *Terminal) Quit() {
	t.prog.Quit()
}

func (t *Terminal) CreateBanner(id string, opts BannerOptions) error {
	t.prog.Send(createMsg{id: id, opts: opts})
	return nil
}

func (t *Terminal) SetText(id string, text transform.RichText) error {
	t.prog.Send(textMsg{id: id, text: text.Plain()})
	return nil
}

func (t *Terminal) SetPosition(id string, x, y int) error {
	t.prog.Send(positionMsg{id: id, x: x, y: y})
	return nil
}

func (t *Terminal) SetOpacity(id string, opacity float64) error {
	t.prog.Send(opacityMsg{id: id, opacity: opacity})
	return nil
}

func (t *Terminal) StartScrollPass(id string, fromX, toX int, duration time.Duration) error {
	t.prog.Send(scrollMsg{id: id, fromX: fromX, toX: toX, duration: duration, startedAt: time.Now()})
	return nil
}

func (t *Terminal) DestroyBanner(id string) error {
	t.prog.Send(destroyMsg{id: id})
	return nil
}

type createMsg struct {
	id   string
	opts BannerOptions
}

type textMsg struct {
	id   string
	text string
}

type positionMsg struct {
	id   string
	x, y int
}

type opacityMsg struct {
	id      string
	opacity float64
}

type scrollMsg struct {
	id        string
	fromX     int
	toX       int
	duration  time.Duration
	startedAt time.Time
}

type destroyMsg struct {
	id string
}

type frameMsg time.Time

type termBanner struct {
	opts    BannerOptions
	text    string
	x, y    int
	opacity float64

	scrolling bool
	scroll    scrollMsg
}

// scrollX returns the current horizontal text offset in px.
func (b *termBanner) scrollX(now time.Time) int {
	if !b.scrolling {
		return 0
	}
	elapsed := now.Sub(b.scroll.startedAt)
	if elapsed >= b.scroll.duration {
		return b.scroll.toX
	}
	f := float64(elapsed) / float64(b.scroll.duration)
	return b.scroll.fromX + int(f*float64(b.scroll.toX-b.scroll.fromX))
}

type termModel struct {
	surface *Terminal
	banners map[string]*termBanner
}

func newTermModel(surface *Terminal) termModel {
	return termModel{
		surface: surface,
		banners: make(map[string]*termBanner),
	}
}

func (m termModel) Init() tea.Cmd {
	return tea.Tick(frameInterval, func(t time.Time) tea.Msg { return frameMsg(t) })
}

func (m termModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case createMsg:
		m.banners[msg.id] = &termBanner{opts: msg.opts, opacity: 0}
	case textMsg:
		if b, ok := m.banners[msg.id]; ok {
			b.text = msg.text
		}
	case positionMsg:
		if b, ok := m.banners[msg.id]; ok {
			b.x, b.y = msg.x, msg.y
		}
	case opacityMsg:
		if b, ok := m.banners[msg.id]; ok {
			b.opacity = msg.opacity
		}
	case scrollMsg:
		if b, ok := m.banners[msg.id]; ok {
			b.scrolling = true
			b.scroll = msg
		}
	case destroyMsg:
		delete(m.banners, msg.id)
	case frameMsg:
		return m, tea.Tick(frameInterval, func(t time.Time) tea.Msg { return frameMsg(t) })
	case tea.KeyMsg:
		switch key := msg.String(); key {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "1", "2", "3", "4", "5", "6", "7", "8", "9":
			if m.surface.OnClick != nil {
				if id, ok := m.bannerAt(int(key[0] - '1')); ok {
					m.surface.OnClick(id)
				}
			}
		}
	}
	return m, nil
}

// bannerAt maps an on-screen position (top to bottom) to a banner id.
func (m termModel) bannerAt(pos int) (string, bool) {
	ids := m.sortedIDs()
	if pos < 0 || pos >= len(ids) {
		return "", false
	}
	return ids[pos], true
}

func (m termModel) sortedIDs() []string {
	ids := make([]string, 0, len(m.banners))
	for id := range m.banners {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return m.banners[ids[i]].y < m.banners[ids[j]].y
	})
	return ids
}

func (m termModel) View() string {
	now := time.Now()
	var sb strings.Builder
	sb.WriteString(faintStyle.Render("marquee preview") + "\n\n")

	ids := m.sortedIDs()
	for i, id := range ids {
		b := m.banners[id]
		sb.WriteString(fmt.Sprintf("%d ", i+1))
		sb.WriteString(m.renderBanner(b, now))
		sb.WriteString("\n")
	}
	if len(ids) == 0 {
		sb.WriteString(faintStyle.Render("(no active banners)") + "\n")
	}

	sb.WriteString(helpStyle.Render("1-9: click banner  q: quit"))
	return sb.String()
}

// renderBanner draws one banner as a fixed-width bar with the visible
// slice of its text at the current scroll offset.
func (m termModel) renderBanner(b *termBanner, now time.Time) string {
	width := b.opts.Width / pxPerCell
	if width < 10 {
		width = 10
	}

	window := visibleSlice(b.text, b.scrollX(now)/pxPerCell, width)

	style := defaultBarStyle
	if b.opts.Style == StyleWarning {
		style = warningBarStyle
	}
	style = style.Width(width)
	if b.opacity < 0.5 {
		style = style.Faint(true)
	}
	return style.Render(window)
}

// visibleSlice returns the text as seen through a window of the given
// cell width with the text's left edge at offset cells.
func visibleSlice(text string, offset, width int) string {
	runes := []rune(text)
	var sb strings.Builder
	for col := 0; col < width; col++ {
		idx := col - offset
		if idx >= 0 && idx < len(runes) {
			sb.WriteRune(runes[idx])
		} else {
			sb.WriteRune(' ')
		}
	}
	return sb.String()
}
