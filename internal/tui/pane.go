package tui

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/nao1215/onionboard/internal/manager"
)

// pane is one resource list on the settings tab.
type pane interface {
	name() string
	reload() tea.Cmd
	handle(msg resultMsg)
	update(key tea.KeyMsg) tea.Cmd
	render(width, height int) string
	capturing() bool
}

type paneOp string

const (
	opReload paneOp = "reload"
	opCreate paneOp = "create"
	opUpdate paneOp = "update"
	opDelete paneOp = "delete"
)

// form edits the schema fields of one item.
type form struct {
	names  []string
	labels []string
	inputs []textinput.Model
	focus  int
}

func newForm[T any](schema manager.Schema[T], item T) *form {
	f := &form{}
	for _, field := range schema.Fields {
		in := newInput(field.Label, 512)
		in.SetValue(field.Get(item))
		f.names = append(f.names, field.Name)
		label := field.Label
		if field.Required {
			label += " *"
		}
		f.labels = append(f.labels, label)
		f.inputs = append(f.inputs, in)
	}
	f.inputs[0].Focus()
	return f
}

func (f *form) move(delta int) {
	f.inputs[f.focus].Blur()
	f.focus = (f.focus + delta + len(f.inputs)) % len(f.inputs)
	f.inputs[f.focus].Focus()
}

func (f *form) update(key tea.KeyMsg) tea.Cmd {
	var cmd tea.Cmd
	f.inputs[f.focus], cmd = f.inputs[f.focus].Update(key)
	return cmd
}

// apply copies every input into set.
func (f *form) apply(set func(name, value string) error) error {
	for i, name := range f.names {
		if err := set(name, f.inputs[i].Value()); err != nil {
			return err
		}
	}
	return nil
}

func (f *form) render(width int) string {
	lines := make([]string, 0, len(f.inputs))
	for i, in := range f.inputs {
		label := pad(f.labels[i], 16)
		if i == f.focus {
			label = selectedStyle.Render(label)
		}
		lines = append(lines, label+" "+truncate(in.View(), width-17))
	}
	return strings.Join(lines, "\n")
}

// resourcePane drives a manager.Manager from the keyboard. All manager
// calls block, so they run inside commands.
type resourcePane[T any] struct {
	base    *base
	mgr     *manager.Manager[T]
	cursor  int
	form    *form
	editing bool
	busy    bool
	err     error
}

func newResourcePane[T any](b *base, mgr *manager.Manager[T]) *resourcePane[T] {
	return &resourcePane[T]{base: b, mgr: mgr}
}

func (p *resourcePane[T]) name() string {
	return p.mgr.Schema().Name
}

func (p *resourcePane[T]) run(op paneOp, fn func(ctx context.Context) error) tea.Cmd {
	p.busy = true
	return p.base.request(p.base.gen, p.name(), func(ctx context.Context) (any, error) {
		return op, fn(ctx)
	})
}

func (p *resourcePane[T]) reload() tea.Cmd {
	return p.run(opReload, p.mgr.Reload)
}

func (p *resourcePane[T]) handle(msg resultMsg) {
	p.busy = false
	op, _ := msg.value.(paneOp)
	if msg.err != nil {
		if op == opReload {
			// Already logged by the manager; the list is empty now.
			p.err = nil
		} else {
			// The form or draft stays open for a retry.
			p.err = msg.err
		}
	} else {
		p.err = nil
		if op == opCreate || op == opUpdate {
			p.form = nil
			p.editing = false
		}
	}
	p.cursor = clampCursor(p.cursor, len(p.mgr.Items()))
}

func (p *resourcePane[T]) capturing() bool { return p.form != nil }

func (p *resourcePane[T]) update(key tea.KeyMsg) tea.Cmd {
	if p.form != nil {
		return p.updateForm(key)
	}
	if p.busy {
		return nil
	}

	items := p.mgr.Items()
	switch key.String() {
	case "j", "down":
		p.cursor = clampCursor(p.cursor+1, len(items))
	case "k", "up":
		p.cursor = clampCursor(p.cursor-1, len(items))
	case "a":
		p.err = nil
		p.editing = false
		p.form = newForm(p.mgr.Schema(), p.mgr.Form())
	case "e", "enter":
		if len(items) == 0 {
			return nil
		}
		id := p.mgr.Schema().Key(items[p.cursor])
		if err := p.mgr.StartEdit(id); err != nil {
			p.err = err
			return nil
		}
		draft, _ := p.mgr.Draft()
		p.err = nil
		p.editing = true
		p.form = newForm(p.mgr.Schema(), draft)
	case "d":
		if len(items) == 0 {
			return nil
		}
		id := p.mgr.Schema().Key(items[p.cursor])
		return p.run(opDelete, func(ctx context.Context) error {
			return p.mgr.Delete(ctx, id)
		})
	}
	return nil
}

func (p *resourcePane[T]) updateForm(key tea.KeyMsg) tea.Cmd {
	if p.busy {
		return nil
	}
	switch key.String() {
	case "esc":
		if p.editing {
			p.mgr.CancelEdit()
		} else {
			// Keep what was typed for the next "a".
			_ = p.form.apply(p.mgr.SetNewField)
		}
		p.form = nil
		p.editing = false
		p.err = nil
		return nil
	case "tab", "down":
		p.form.move(1)
		return nil
	case "shift+tab", "up":
		p.form.move(-1)
		return nil
	case "enter":
		return p.submit()
	}
	return p.form.update(key)
}

func (p *resourcePane[T]) submit() tea.Cmd {
	if p.editing {
		if err := p.form.apply(p.mgr.SetEditField); err != nil {
			p.err = err
			return nil
		}
		return p.run(opUpdate, p.mgr.SaveEdit)
	}

	if err := p.form.apply(p.mgr.SetNewField); err != nil {
		p.err = err
		return nil
	}
	if !p.mgr.CanCreate() {
		p.err = p.mgr.Schema().Validate(p.mgr.Form())
		return nil
	}
	return p.run(opCreate, p.mgr.Create)
}

func (p *resourcePane[T]) render(width, height int) string {
	schema := p.mgr.Schema()
	var lines []string

	if p.form != nil {
		title := "New entry"
		if p.editing {
			id, _ := p.mgr.Editing()
			title = "Editing #" + strconv.FormatInt(id, 10)
		}
		lines = append(lines, headerStyle.Render(title), p.form.render(width), "")
		height -= len(p.form.inputs) + 2
	}
	if p.err != nil {
		lines = append(lines, errorStyle.Render(truncate(errorText(p.err), width)))
		height--
	}

	items := p.mgr.Items()
	switch {
	case p.mgr.State() == manager.StateLoading:
		lines = append(lines, mutedStyle.Render("Loading "+schema.Name+"..."))
	case len(items) == 0:
		lines = append(lines, mutedStyle.Render("No "+schema.Name+"."))
	default:
		lines = append(lines, p.renderTable(items, width, height)...)
	}
	return strings.Join(lines, "\n")
}

func (p *resourcePane[T]) renderTable(items []T, width, height int) []string {
	schema := p.mgr.Schema()
	n := len(schema.Fields)
	col := max((width-10)/n, 8)
	widths := []int{2, 6}
	header := []string{"", "ID"}
	for _, f := range schema.Fields {
		widths = append(widths, col)
		header = append(header, f.Label)
	}

	lines := []string{mutedStyle.Render(row(header, widths))}
	start, end := window(len(items), p.cursor, height-1)
	for i := start; i < end; i++ {
		item := items[i]
		cells := []string{" ", strconv.FormatInt(schema.Key(item), 10)}
		if i == p.cursor {
			cells[0] = "▸"
		}
		for _, f := range schema.Fields {
			cells = append(cells, f.Get(item))
		}
		line := row(cells, widths)
		if i == p.cursor {
			line = selectedStyle.Render(line)
		}
		lines = append(lines, line)
	}
	return lines
}

// errorText labels request failures. Validation errors read fine as they
// are.
func errorText(err error) string {
	switch {
	case errors.Is(err, manager.ErrMissingField), errors.Is(err, manager.ErrInvalidValue):
		return err.Error()
	}
	return "Request failed: " + err.Error()
}
