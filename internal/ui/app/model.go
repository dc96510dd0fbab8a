package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	sessiondto "mentorpay/internal/modules/session/dto"
	"mentorpay/internal/ui/components"
	"mentorpay/internal/ui/theme"
)

// ─── ports ───────────────────────────────────────────────────────────────────

// SnapshotSource yields snapshots of the watched session in order. It
// returns io.EOF once the stream ends normally.
type SnapshotSource interface {
	Next() (sessiondto.SnapshotOutput, error)
}

// Controller runs a session action on the server.
type Controller interface {
	Control(ctx context.Context, sessionID, action string) (sessiondto.SnapshotOutput, error)
}

// Actions the palette accepts, in suggestion order.
var Actions = []string{"pause", "resume", "release", "complete", "cancel", "fee", "tick", "start"}

const (
	controlTimeout = 10 * time.Second
	timelineLimit  = 8
)

// ─── async messages ───────────────────────────────────────────────────────────

type snapshotMsg struct {
	snap sessiondto.SnapshotOutput
	err  error
}

type controlDoneMsg struct {
	action string
	snap   sessiondto.SnapshotOutput
	err    error
}

// ─── key bindings ─────────────────────────────────────────────────────────────

type keyMap struct {
	Pause   key.Binding
	Resume  key.Binding
	Release key.Binding
	Palette key.Binding
	Help    key.Binding
	Quit    key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Pause:   key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "pause")),
		Resume:  key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "resume")),
		Release: key.NewBinding(key.WithKeys("R"), key.WithHelp("R", "release now")),
		Palette: key.NewBinding(key.WithKeys(":"), key.WithHelp(":", "action")),
		Help:    key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:    key.NewBinding(key.WithKeys("ctrl+c", "q"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Palette, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Pause, k.Resume, k.Release},
		{k.Palette, k.Help, k.Quit},
	}
}

// ─── model ───────────────────────────────────────────────────────────────────

// Model is the watch dashboard of a single session. Snapshots arrive from
// the source; actions go to the controller.
type Model struct {
	sessionID string
	source    SnapshotSource
	control   Controller

	snap     sessiondto.SnapshotOutput
	hasSnap  bool
	timeline []string
	closed   bool
	pending  string

	bar      progress.Model
	spin     spinner.Model
	keys     keyMap
	help     help.Model
	showHelp bool
	palette  components.Palette
	status   string
	width    int
}

func NewModel(sessionID string, source SnapshotSource, control Controller) Model {
	return Model{
		sessionID: sessionID,
		source:    source,
		control:   control,
		bar:       progress.New(progress.WithGradient(string(theme.Sapphire), string(theme.Green))),
		spin:      spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(theme.Hot)),
		keys:      defaultKeys(),
		help:      help.New(),
		palette:   components.NewPalette(Actions),
		status:    "connecting",
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spin.Tick, m.waitCmd())
}

func (m Model) waitCmd() tea.Cmd {
	source := m.source
	return func() tea.Msg {
		snap, err := source.Next()
		return snapshotMsg{snap: snap, err: err}
	}
}

func (m Model) controlCmd(action string) tea.Cmd {
	control, sessionID := m.control, m.sessionID
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), controlTimeout)
		defer cancel()
		snap, err := control.Control(ctx, sessionID, action)
		return controlDoneMsg{action: action, snap: snap, err: err}
	}
}

// ─── update ───────────────────────────────────────────────────────────────────

// Update lets the open palette own key input; everything else keeps flowing
// so the snapshot stream is never dropped.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if !m.palette.Visible() {
		return m.update(msg)
	}
	var paletteCmd tea.Cmd
	m.palette, paletteCmd = m.palette.Update(msg)
	if _, ok := msg.(tea.KeyMsg); ok {
		return m, paletteCmd
	}
	next, cmd := m.update(msg)
	return next, tea.Batch(paletteCmd, cmd)
}

func (m Model) update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.bar.Width = max(min(msg.Width-12, 64), 10)
		m.palette.SetWidth(min(msg.Width-4, 48))
		m.help.Width = msg.Width
		return m, nil

	case snapshotMsg:
		if msg.err != nil {
			m.closed = true
			if errors.Is(msg.err, io.EOF) {
				m.status = "stream closed"
			} else {
				m.status = "stream error: " + msg.err.Error()
			}
			return m, nil
		}
		m.apply(msg.snap)
		if msg.snap.Final && !msg.snap.SettlementPending {
			m.closed = true
			m.status = "session finished: " + msg.snap.Status
			return m, nil
		}
		m.status = "live"
		return m, m.waitCmd()

	case controlDoneMsg:
		m.pending = ""
		if msg.err != nil {
			m.status = msg.action + " failed: " + msg.err.Error()
			return m, nil
		}
		m.status = msg.action + " ok"
		m.apply(msg.snap)
		return m, nil

	case components.PaletteSubmitMsg:
		return m.runAction(msg.Input)

	case components.PaletteCancelMsg:
		m.status = "live"
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if m.showHelp {
			if key.Matches(msg, m.keys.Help) || msg.String() == "esc" {
				m.showHelp = false
			}
			return m, nil
		}
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Help):
			m.showHelp = true
		case key.Matches(msg, m.keys.Palette):
			return m, m.palette.Open()
		case key.Matches(msg, m.keys.Pause):
			return m.runAction("pause")
		case key.Matches(msg, m.keys.Resume):
			return m.runAction("resume")
		case key.Matches(msg, m.keys.Release):
			return m.runAction("release")
		}
	}
	return m, nil
}

func (m Model) runAction(input string) (tea.Model, tea.Cmd) {
	action := strings.ToLower(strings.TrimSpace(input))
	if action == "" {
		return m, nil
	}
	if !knownAction(action) {
		m.status = fmt.Sprintf("unknown action %q", action)
		return m, nil
	}
	if m.control == nil {
		m.status = "actions unavailable"
		return m, nil
	}
	if m.pending != "" {
		m.status = m.pending + " still running"
		return m, nil
	}
	m.pending = action
	m.status = action + "…"
	return m, m.controlCmd(action)
}

func knownAction(action string) bool {
	for _, a := range Actions {
		if a == action {
			return true
		}
	}
	return false
}

// apply records status changes in the timeline before replacing the snapshot.
func (m *Model) apply(snap sessiondto.SnapshotOutput) {
	if snap.SessionID == "" {
		return
	}
	if !m.hasSnap || snap.Status != m.snap.Status {
		line := snap.At.Format("15:04:05") + " " + snap.Status
		if snap.StatusReason != "" {
			line += " (" + snap.StatusReason + ")"
		}
		m.timeline = append(m.timeline, line)
		if len(m.timeline) > timelineLimit {
			m.timeline = m.timeline[len(m.timeline)-timelineLimit:]
		}
	}
	m.snap = snap
	m.hasSnap = true
}

// ─── view ────────────────────────────────────────────────────────────────────

func (m Model) View() string {
	header := theme.Title.Render("mentorpay") + theme.Muted.Render(" · session "+m.sessionID)

	var body string
	if !m.hasSnap {
		body = theme.Pane.Render(m.spin.View() + " waiting for first snapshot")
	} else {
		body = lipgloss.JoinVertical(lipgloss.Left, m.renderSummary(), m.renderTimeline())
	}

	parts := []string{header, body}
	if m.palette.Visible() {
		parts = append(parts, m.palette.View())
	}
	parts = append(parts, m.renderStatusBar())
	if m.showHelp {
		parts = append(parts, m.help.FullHelpView(m.keys.FullHelp()))
	} else {
		parts = append(parts, m.help.ShortHelpView(m.keys.ShortHelp()))
	}
	return theme.App.Render(lipgloss.JoinVertical(lipgloss.Left, parts...))
}

func (m Model) renderSummary() string {
	s := m.snap
	var sb strings.Builder
	sb.WriteString(theme.Status(s.Status).Render(strings.ToUpper(s.Status)))
	if s.StatusReason != "" {
		sb.WriteString(theme.Muted.Render("  " + s.StatusReason))
	}
	sb.WriteString("\n\n")
	sb.WriteString(m.bar.ViewAs(float64(s.ProgressPercentage) / 100))
	sb.WriteString("\n\n")

	row := func(label, value string) {
		sb.WriteString(theme.Label.Render(fmt.Sprintf("%-10s", label)) + " " + value + "\n")
	}
	row("released", fmt.Sprintf("%s / %s %s (ceiling %s)", s.ReleasedAmount, s.TotalAmount, s.Token, s.Ceiling))
	row("earned", fmt.Sprintf("%s, %s available", s.TargetAmount, s.AvailableForRelease))
	row("method", s.PaymentMethod)
	row("elapsed", fmt.Sprintf("%.1f of %d min (%.0f%%)", s.ElapsedMinutes, s.ScheduledMinutes, s.CompletionPercent))
	presence := "absent"
	if s.PayerPresent {
		presence = "present"
	}
	row("payer", fmt.Sprintf("%s, %.1f min (%.0f%%)", presence, s.PayerPresenceMinutes, s.PayerPresencePercent))

	var flags []string
	if s.MilestoneReached {
		flags = append(flags, "milestone reached")
	}
	if s.RefundRequested {
		flags = append(flags, "refund requested")
	}
	if s.OnHold {
		flags = append(flags, "security hold")
	}
	if s.SettlementPending {
		flags = append(flags, "final release pending")
	}
	if len(flags) > 0 {
		sb.WriteString(theme.Hot.Render(strings.Join(flags, " · ")) + "\n")
	}

	pane := theme.Pane
	if s.OnHold {
		pane = theme.PaneAlert
	}
	return pane.Render(strings.TrimRight(sb.String(), "\n"))
}

func (m Model) renderTimeline() string {
	lines := append([]string{theme.Title.Render("Timeline")}, m.timeline...)
	return theme.Pane.Render(strings.Join(lines, "\n"))
}

func (m Model) renderStatusBar() string {
	indicator := ""
	if m.pending != "" || (!m.closed && m.snap.Processing) {
		indicator = m.spin.View() + " "
	}
	return theme.Muted.Render(indicator + m.status)
}
