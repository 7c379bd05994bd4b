// Package ui is the terminal viewer for the broadcast stream.
package ui

import (
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/cannedoxygen/mainframe/internal/event"
	"github.com/cannedoxygen/mainframe/internal/wsclient"
)

const paneColumns = 4

// Viewer is a grid of per-agent panes fed by a reconnecting client.
// 'r' issues a reset command, 'q' quits.
type Viewer struct {
	app    *tview.Application
	root   *tview.Flex
	grid   *tview.Flex
	status *tview.TextView
	system *tview.TextView
	panes  map[string]*tview.TextView

	client   *wsclient.Client
	logger   *slog.Logger
	started  time.Time
	received int
}

func NewViewer(client *wsclient.Client, logger *slog.Logger) *Viewer {
	v := &Viewer{
		app:    tview.NewApplication(),
		client: client,
		logger: logger,
		panes:  make(map[string]*tview.TextView),
	}

	v.status = tview.NewTextView().SetDynamicColors(true)
	v.status.SetBackgroundColor(ColorBackground)
	v.status.SetTextColor(ColorTextMuted)

	v.system = tview.NewTextView().SetDynamicColors(true)
	v.system.SetBorder(true).SetTitle(" SYSTEM ").SetBorderColor(ColorBorder)
	v.system.SetBackgroundColor(ColorBackground)
	v.system.SetTextColor(ColorTextMuted)
	v.system.SetScrollable(true)

	v.grid = tview.NewFlex().SetDirection(tview.FlexRow)

	v.root = tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(v.grid, 0, 5, false).
		AddItem(v.system, 6, 0, false).
		AddItem(v.status, 1, 0, false)

	v.app.SetRoot(v.root, true)
	v.app.SetInputCapture(func(ev *tcell.EventKey) *tcell.EventKey {
		switch ev.Rune() {
		case 'q':
			v.app.Stop()
			return nil
		case 'r':
			if err := v.client.Send(event.Command{Command: event.CommandReset}); err != nil {
				v.appendSystem("reset not sent: not connected")
			}
			return nil
		}
		if ev.Key() == tcell.KeyCtrlC {
			v.app.Stop()
			return nil
		}
		return ev
	})

	return v
}

// Run connects the client and blocks until the viewer exits.
func (v *Viewer) Run() error {
	v.client.OnStateChange(func(s wsclient.State) {
		v.app.QueueUpdateDraw(func() { v.refreshStatus(s) })
	})
	v.client.OnGiveUp(func() {
		v.app.QueueUpdateDraw(func() {
			v.appendSystem("connection lost: gave up reconnecting (press q to quit)")
		})
	})

	go v.consume()
	v.client.Connect()
	v.refreshStatus(v.client.State())

	defer v.client.Close()
	return v.app.Run()
}

// consume decodes frames off the client and applies them to the UI.
func (v *Viewer) consume() {
	for data := range v.client.Frames() {
		frame, err := event.ParseFrame(data)
		if err != nil {
			v.logger.Debug("viewer: unknown frame", "err", err)
			continue
		}
		v.app.QueueUpdateDraw(func() { v.apply(frame) })
	}
}

func (v *Viewer) apply(frame any) {
	switch f := frame.(type) {
	case event.AgentStatusFrame:
		v.buildPanes(f)
	case event.AgentMessageFrame:
		v.received++
		if pane, ok := v.panes[f.AgentID]; ok {
			fmt.Fprintln(pane, tview.Escape(FormatMessage(f)))
			pane.ScrollToEnd()
		}
	case event.SystemStatusFrame:
		if f.Status.Reset {
			v.clearPanes()
			v.appendSystem("system reset")
		}
	case event.SystemMessageFrame:
		v.appendSystem(fmt.Sprintf("[%s] %s", f.Level, f.Content))
	case event.CriticalErrorFrame:
		v.system.SetTextColor(ColorError)
		v.appendSystem("CRITICAL: " + f.Error)
	}
	v.refreshStatus(v.client.State())
}

// buildPanes lays out one bordered pane per agent, in id order.
func (v *Viewer) buildPanes(f event.AgentStatusFrame) {
	v.grid.Clear()
	v.panes = make(map[string]*tview.TextView)
	v.started = time.Now()

	ids := make([]string, 0, len(f.Agents))
	for id := range f.Agents {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var row *tview.Flex
	for i, id := range ids {
		if i%paneColumns == 0 {
			row = tview.NewFlex()
			v.grid.AddItem(row, 0, 1, false)
		}
		a := f.Agents[id]
		pane := tview.NewTextView().SetDynamicColors(false).SetScrollable(true)
		pane.SetBorder(true).SetTitle(fmt.Sprintf(" %s ", a.Name)).SetBorderColor(ColorBorder)
		pane.SetBackgroundColor(ColorBackground)
		pane.SetTextColor(HexColor(a.Color))
		v.panes[id] = pane
		row.AddItem(pane, 0, 1, false)
	}
}

func (v *Viewer) clearPanes() {
	for _, pane := range v.panes {
		pane.Clear()
	}
}

func (v *Viewer) appendSystem(line string) {
	fmt.Fprintln(v.system, tview.Escape(line))
	v.system.ScrollToEnd()
}

func (v *Viewer) refreshStatus(s wsclient.State) {
	v.status.SetText(FormatStatus(s, v.received, v.started) + " · [r]eset [q]uit")
}
