package formatter

import (
	"fmt"
	"strconv"
	"time"

	"github.com/harunnryd/voxd/internal/dictionary"
	"github.com/harunnryd/voxd/internal/ipc"

	"charm.land/lipgloss/v2"
	"charm.land/lipgloss/v2/table"
)

type TableFormatter struct {
	headerStyle  lipgloss.Style
	cellStyle    lipgloss.Style
	oddRowStyle  lipgloss.Style
	evenRowStyle lipgloss.Style
	borderStyle  lipgloss.Style
}

func NewTableFormatter() *TableFormatter {
	purple := lipgloss.Color("99")
	gray := lipgloss.Color("245")
	lightGray := lipgloss.Color("241")

	return &TableFormatter{
		headerStyle: lipgloss.NewStyle().
			Foreground(purple).
			Bold(true).
			Align(lipgloss.Center).
			Padding(0, 1),
		cellStyle: lipgloss.NewStyle().
			Padding(0, 1),
		oddRowStyle: lipgloss.NewStyle().
			Foreground(gray).
			Padding(0, 1),
		evenRowStyle: lipgloss.NewStyle().
			Foreground(lightGray).
			Padding(0, 1),
		borderStyle: lipgloss.NewStyle().
			Foreground(purple),
	}
}

func (f *TableFormatter) rows(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(f.borderStyle).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return f.headerStyle
			case row%2 == 0:
				return f.evenRowStyle
			default:
				return f.oddRowStyle
			}
		}).
		Headers(headers...)
}

func (f *TableFormatter) FormatStacks(list ipc.StackListPayload) (string, error) {
	if !list.Enabled {
		return "Stack mode is disabled", nil
	}
	if len(list.Stacks) == 0 {
		return "No stacks saved", nil
	}

	t := f.rows("ID", "Preview", "Chars", "Saved")
	for _, s := range list.Stacks {
		t.Row(
			strconv.FormatUint(uint64(s.ID), 10),
			truncateString(s.Preview, 48),
			strconv.Itoa(s.Characters),
			s.CreatedAt.Local().Format(time.Kitchen),
		)
	}
	return t.String(), nil
}

func (f *TableFormatter) FormatDictionary(entries []dictionary.Entry) (string, error) {
	if len(entries) == 0 {
		return "Dictionary is empty", nil
	}

	t := f.rows("Surface", "Replacement", "Hits", "Status")
	for _, e := range entries {
		status := e.Status
		if status == "" {
			status = dictionary.StatusActive
		}
		t.Row(
			truncateString(e.Surface, 30),
			truncateString(e.Replacement, 30),
			strconv.FormatUint(uint64(e.Hit), 10),
			string(status),
		)
	}
	return t.String(), nil
}

func (f *TableFormatter) FormatStatus(status ipc.StatusPayload) (string, error) {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(f.borderStyle).
		StyleFunc(func(row, col int) lipgloss.Style {
			if col == 0 {
				return f.headerStyle
			}
			return f.cellStyle
		})

	t.Row("State", status.Session.State)
	if status.Session.StartedAt != nil {
		t.Row("Since", status.Session.StartedAt.Local().Format(time.TimeOnly))
	}
	if status.Session.Deadline != nil {
		t.Row("Auto-stop", status.Session.Deadline.Local().Format(time.TimeOnly))
	}
	if status.Session.PasteMode != "" {
		t.Row("Paste mode", string(status.Session.PasteMode))
	}
	t.Row("Stack mode", onOff(status.StackMode))
	t.Row("Stacks", fmt.Sprintf("%d / %d", status.Stacks, status.StackCapacity))
	t.Row("Shortcuts", onOff(status.ShortcutActive))
	if o := status.LastOutcome; o != nil {
		result := o.Message
		if !o.OK {
			result = fmt.Sprintf("%s (%s)", o.Message, o.ErrorKind)
		}
		t.Row("Last result", truncateString(result, 60))
	}

	return t.String(), nil
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

func truncateString(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen-3]) + "..."
}

func (f *TableFormatter) FormatDevices(list ipc.DeviceListPayload) (string, error) {
	if len(list.Devices) == 0 {
		return "No input devices detected", nil
	}

	t := f.rows("Device", "Description", "Default")
	for _, d := range list.Devices {
		def := ""
		if d.Default {
			def = "*"
		}
		t.Row(d.Name, truncateString(d.Description, 48), def)
	}
	return t.String(), nil
}
