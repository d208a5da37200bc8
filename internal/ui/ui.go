package ui

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"

	"taskflow/internal/config"
	"taskflow/internal/store"
	"taskflow/internal/view"
)

type mode int

const (
	modeLoading mode = iota
	modeList
	modeSearch
	modeForm
	modeConfirmDelete
	modeConfirmBulkDelete
	modeError
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#8B5CF6"))
	statsStyle    = lipgloss.NewStyle().Faint(true)
	overdueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444"))
	dueTodayStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B"))
	dueStyle      = lipgloss.NewStyle().Faint(true)
	errStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444")).Bold(true)
	doneStyle     = lipgloss.NewStyle().Faint(true).Strikethrough(true)
)

type formState struct {
	editingID string
	title     string
	category  string
	priority  string
	due       string
	index     int
}

type Model struct {
	tasks   store.TaskStore
	cats    store.CategoryStore
	actions view.Actions
	cfg     config.Config
	log     zerolog.Logger

	rawTasks   []store.Task
	categories []store.Category

	query    string
	filter   string
	selected map[string]struct{}
	bulk     bool

	cursor     int
	mode       mode
	form       *formState
	pendingDel *store.Task
	loadErr    error
	status     string
	input      textinput.Model
	spin       spinner.Model
}

func Run(tasks store.TaskStore, cats store.CategoryStore, cfg config.Config, log zerolog.Logger) error {
	ti := textinput.New()
	ti.Placeholder = "Task title"
	ti.CharLimit = 256
	ti.Width = 40

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	filter := initialFilter(cfg.DefaultFilter)

	m := Model{
		tasks:    tasks,
		cats:     cats,
		actions:  view.Actions{Tasks: tasks, Log: log},
		cfg:      cfg,
		log:      log,
		filter:   filter,
		selected: make(map[string]struct{}),
		mode:     modeLoading,
		status:   "Loading tasks...",
		input:    ti,
		spin:     sp,
	}

	program := tea.NewProgram(m)
	_, err := program.Run()
	return err
}

// messages produced by store commands

type dataLoadedMsg struct {
	tasks      []store.Task
	categories []store.Category
}

type loadFailedMsg struct{ err error }

type taskSavedMsg struct {
	task    store.Task
	created bool
}

type taskToggledMsg struct{ task store.Task }

type taskDeletedMsg struct{ id string }

type bulkCompletedMsg struct {
	succeeded   []string
	completedAt time.Time
	err         error
}

type bulkDeletedMsg struct {
	succeeded []string
	err       error
}

type opFailedMsg struct {
	op  string
	err error
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.loadCmd(), m.spin.Tick)
}

// loadCmd fetches tasks and categories concurrently, like the original
// full-page load. Either failure puts the UI in the error state.
func (m Model) loadCmd() tea.Cmd {
	tasks, cats := m.tasks, m.cats
	return func() tea.Msg {
		ctx := context.Background()
		var (
			ts   []store.Task
			cs   []store.Category
			terr error
			cerr error
			wg   sync.WaitGroup
		)
		wg.Add(2)
		go func() { defer wg.Done(); ts, terr = tasks.ListTasks(ctx) }()
		go func() { defer wg.Done(); cs, cerr = cats.ListCategories(ctx) }()
		wg.Wait()
		if terr != nil {
			return loadFailedMsg{err: terr}
		}
		if cerr != nil {
			return loadFailedMsg{err: cerr}
		}
		return dataLoadedMsg{tasks: ts, categories: cs}
	}
}

func (m Model) toggleCmd(t store.Task) tea.Cmd {
	actions := m.actions
	return func() tea.Msg {
		updated, err := actions.ToggleComplete(context.Background(), t)
		if err != nil {
			return opFailedMsg{op: "update", err: err}
		}
		return taskToggledMsg{task: updated}
	}
}

func (m Model) deleteCmd(id string) tea.Cmd {
	tasks := m.tasks
	return func() tea.Msg {
		if err := tasks.DeleteTask(context.Background(), id); err != nil {
			return opFailedMsg{op: "delete", err: err}
		}
		return taskDeletedMsg{id: id}
	}
}

func (m Model) submitCmd(form view.TaskForm, editingID string) tea.Cmd {
	actions := m.actions
	return func() tea.Msg {
		t, created, err := actions.Submit(context.Background(), form, editingID)
		if err != nil {
			return opFailedMsg{op: "save", err: err}
		}
		return taskSavedMsg{task: t, created: created}
	}
}

func (m Model) bulkCompleteCmd(ids []string) tea.Cmd {
	actions := m.actions
	return func() tea.Msg {
		now := time.Now()
		succeeded, err := actions.BulkComplete(context.Background(), ids, now)
		return bulkCompletedMsg{succeeded: succeeded, completedAt: now, err: err}
	}
}

func (m Model) bulkDeleteCmd(ids []string) tea.Cmd {
	actions := m.actions
	return func() tea.Msg {
		succeeded, err := actions.BulkDelete(context.Background(), ids)
		return bulkDeletedMsg{succeeded: succeeded, err: err}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		if m.mode != modeLoading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case dataLoadedMsg:
		m.rawTasks = msg.tasks
		m.categories = msg.categories
		m.loadErr = nil
		m.mode = modeList
		m.cursor = clampCursor(m.cursor, len(m.rows()))
		m.status = fmt.Sprintf("Loaded %d tasks", len(m.rawTasks))
		return m, nil

	case loadFailedMsg:
		m.loadErr = msg.err
		m.mode = modeError
		m.status = "Failed to load tasks"
		m.log.Error().Err(msg.err).Msg("load failed")
		return m, nil

	case taskSavedMsg:
		if msg.created {
			m.rawTasks = append([]store.Task{msg.task}, m.rawTasks...)
			m.status = "Task created"
		} else {
			m.replaceTask(msg.task)
			m.status = "Task updated"
		}
		return m, nil

	case taskToggledMsg:
		m.replaceTask(msg.task)
		if msg.task.Completed {
			m.status = "Task completed!"
		} else {
			m.status = "Task reopened"
		}
		return m, nil

	case taskDeletedMsg:
		m.removeTasks(map[string]struct{}{msg.id: {}})
		m.cursor = clampCursor(m.cursor, len(m.rows()))
		m.status = "Task deleted"
		return m, nil

	case bulkCompletedMsg:
		done := make(map[string]struct{}, len(msg.succeeded))
		for _, id := range msg.succeeded {
			done[id] = struct{}{}
		}
		for i := range m.rawTasks {
			if _, ok := done[m.rawTasks[i].ID]; ok {
				m.rawTasks[i].Completed = true
				m.rawTasks[i].CompletedAt.Time = msg.completedAt
				m.rawTasks[i].CompletedAt.Valid = true
				delete(m.selected, m.rawTasks[i].ID)
			}
		}
		if msg.err != nil {
			m.status = "Failed to complete some tasks"
			return m, nil
		}
		m.selected = make(map[string]struct{})
		m.bulk = false
		m.status = fmt.Sprintf("%d tasks completed!", len(msg.succeeded))
		return m, nil

	case bulkDeletedMsg:
		gone := make(map[string]struct{}, len(msg.succeeded))
		for _, id := range msg.succeeded {
			gone[id] = struct{}{}
			delete(m.selected, id)
		}
		m.removeTasks(gone)
		m.cursor = clampCursor(m.cursor, len(m.rows()))
		if msg.err != nil {
			m.status = "Failed to delete some tasks"
			return m, nil
		}
		m.selected = make(map[string]struct{})
		m.bulk = false
		m.status = fmt.Sprintf("%d tasks deleted", len(msg.succeeded))
		return m, nil

	case opFailedMsg:
		m.status = fmt.Sprintf("Failed to %s task: %v", msg.op, msg.err)
		return m, nil

	case tea.WindowSizeMsg:
		m.input.Width = msg.Width - 10
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if key == "ctrl+c" {
		return m, tea.Quit
	}
	switch m.mode {
	case modeLoading:
		return m, nil
	case modeError:
		return m.updateErrorMode(key)
	case modeSearch:
		return m.updateSearchMode(key, msg)
	case modeForm:
		return m.updateFormMode(key, msg)
	case modeConfirmDelete:
		return m.updateDeleteConfirm(key)
	case modeConfirmBulkDelete:
		return m.updateBulkDeleteConfirm(key)
	default:
		return m.updateListMode(key)
	}
}

func (m Model) updateErrorMode(key string) (tea.Model, tea.Cmd) {
	switch key {
	case m.cfg.Keys.Retry:
		m.mode = modeLoading
		m.status = "Retrying..."
		return m, tea.Batch(m.loadCmd(), m.spin.Tick)
	case m.cfg.Keys.Quit:
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) updateSearchMode(key string, msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key {
	case m.cfg.Keys.Cancel, "esc":
		m.query = ""
		m.input.SetValue("")
		m.input.Blur()
		m.mode = modeList
		m.status = "Search cleared"
		return m, nil
	case m.cfg.Keys.Confirm, "enter":
		m.input.Blur()
		m.mode = modeList
		m.cursor = clampCursor(m.cursor, len(m.rows()))
		return m, nil
	default:
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		m.query = m.input.Value()
		m.cursor = clampCursor(m.cursor, len(m.rows()))
		return m, cmd
	}
}

func (m Model) updateListMode(key string) (tea.Model, tea.Cmd) {
	rows := m.rows()
	if m.bulk {
		if model, cmd, handled := m.updateBulkKeys(key, rows); handled {
			return model, cmd
		}
	}
	switch key {
	case m.cfg.Keys.Quit:
		return m, tea.Quit
	case m.cfg.Keys.Down, "down":
		if len(rows) == 0 {
			return m, nil
		}
		m.cursor = clampCursor(m.cursor+1, len(rows))
	case m.cfg.Keys.Up, "up":
		if m.cursor > 0 {
			m.cursor = clampCursor(m.cursor-1, len(rows))
		}
	case m.cfg.Keys.Add:
		m.form = &formState{priority: string(store.PriorityMedium)}
		m.startFormField()
		m.status = "New task: fill each field, Enter to advance"
	case m.cfg.Keys.Edit:
		if len(rows) == 0 {
			m.status = "No tasks to edit"
			return m, nil
		}
		t := rows[m.cursor]
		m.form = &formState{
			editingID: t.ID,
			title:     t.Title,
			category:  t.Category,
			priority:  string(t.Priority),
			due:       formatDue(t),
		}
		m.startFormField()
		m.status = "Edit task: Enter to advance, Esc to cancel"
	case m.cfg.Keys.Search:
		m.mode = modeSearch
		m.input.SetValue(m.query)
		m.input.Placeholder = "Search tasks"
		m.input.Focus()
		m.status = "Search: type to filter, Enter to keep, Esc to clear"
	case m.cfg.Keys.Filter:
		m.filter = m.nextFilter()
		m.cursor = clampCursor(m.cursor, len(m.rows()))
		m.status = "Filter: " + m.filter
	case m.cfg.Keys.Bulk:
		m.bulk = !m.bulk
		if !m.bulk {
			m.selected = make(map[string]struct{})
			m.status = "Bulk mode off"
		} else {
			m.status = "Bulk mode: space select, A all, c complete, d delete"
		}
	case m.cfg.Keys.Toggle:
		if len(rows) == 0 {
			return m, nil
		}
		t := rows[m.cursor]
		m.cursor = clampCursor(m.cursor+1, len(rows))
		return m, m.toggleCmd(t)
	case m.cfg.Keys.Delete:
		if len(rows) == 0 {
			return m, nil
		}
		t := rows[m.cursor]
		m.pendingDel = &t
		m.mode = modeConfirmDelete
		m.status = fmt.Sprintf("Delete %q? y/n", t.Title)
	}
	return m, nil
}

// updateBulkKeys handles the keys that only exist in bulk mode. The
// last return reports whether the key was consumed.
func (m Model) updateBulkKeys(key string, rows []store.Task) (tea.Model, tea.Cmd, bool) {
	switch key {
	case m.cfg.Keys.Select:
		if len(rows) == 0 {
			return m, nil, true
		}
		id := rows[m.cursor].ID
		if _, ok := m.selected[id]; ok {
			delete(m.selected, id)
		} else {
			m.selected[id] = struct{}{}
		}
		return m, nil, true
	case m.cfg.Keys.SelectAll:
		for _, t := range rows {
			m.selected[t.ID] = struct{}{}
		}
		m.status = fmt.Sprintf("%d tasks selected", len(m.selected))
		return m, nil, true
	case m.cfg.Keys.BulkComplete:
		ids := m.selectedIDs()
		if len(ids) == 0 {
			m.status = "Nothing selected"
			return m, nil, true
		}
		m.status = fmt.Sprintf("Completing %d tasks...", len(ids))
		return m, m.bulkCompleteCmd(ids), true
	case m.cfg.Keys.Delete:
		ids := m.selectedIDs()
		if len(ids) == 0 {
			m.status = "Nothing selected"
			return m, nil, true
		}
		m.mode = modeConfirmBulkDelete
		m.status = fmt.Sprintf("Delete %d selected tasks? y/n", len(ids))
		return m, nil, true
	}
	return m, nil, false
}

func (m Model) updateFormMode(key string, msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key {
	case m.cfg.Keys.Cancel, "esc":
		m.form = nil
		m.input.Blur()
		m.mode = modeList
		m.status = "Cancelled"
		return m, nil
	case m.cfg.Keys.Confirm, "enter":
		if m.form == nil {
			return m, nil
		}
		m.form.setCurrent(m.input.Value())
		if m.form.index >= len(formFields())-1 {
			return m.submitForm()
		}
		m.form.index++
		m.startFormField()
		return m, nil
	case "tab":
		if m.form == nil {
			return m, nil
		}
		m.form.setCurrent(m.input.Value())
		m.form.index = (m.form.index + 1) % len(formFields())
		m.startFormField()
		return m, nil
	default:
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
}

func (m Model) submitForm() (tea.Model, tea.Cmd) {
	f := m.form
	form := view.TaskForm{
		Title:    f.title,
		Category: f.category,
		Priority: f.priority,
		DueDate:  f.due,
	}
	if strings.TrimSpace(form.Title) == "" {
		m.form.index = 0
		m.startFormField()
		m.status = "Title cannot be empty"
		return m, nil
	}
	m.form = nil
	m.input.Blur()
	m.mode = modeList
	m.status = "Saving..."
	return m, m.submitCmd(form, f.editingID)
}

func (m Model) updateDeleteConfirm(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "n", "N", m.cfg.Keys.Cancel, "esc":
		m.status = "Delete cancelled"
		m.pendingDel = nil
		m.mode = modeList
		return m, nil
	case "y", "Y":
		if m.pendingDel == nil {
			m.mode = modeList
			return m, nil
		}
		id := m.pendingDel.ID
		m.pendingDel = nil
		m.mode = modeList
		m.status = "Deleting..."
		return m, m.deleteCmd(id)
	default:
		return m, nil
	}
}

func (m Model) updateBulkDeleteConfirm(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "n", "N", m.cfg.Keys.Cancel, "esc":
		m.status = "Delete cancelled"
		m.mode = modeList
		return m, nil
	case "y", "Y":
		ids := m.selectedIDs()
		m.mode = modeList
		m.status = fmt.Sprintf("Deleting %d tasks...", len(ids))
		return m, m.bulkDeleteCmd(ids)
	default:
		return m, nil
	}
}

func (m *Model) startFormField() {
	m.mode = modeForm
	m.input.SetValue(m.form.current())
	m.input.Placeholder = formFields()[m.form.index]
	m.input.Focus()
}

func (m *Model) replaceTask(t store.Task) {
	for i := range m.rawTasks {
		if m.rawTasks[i].ID == t.ID {
			m.rawTasks[i] = t
			return
		}
	}
}

func (m *Model) removeTasks(ids map[string]struct{}) {
	kept := m.rawTasks[:0]
	for _, t := range m.rawTasks {
		if _, ok := ids[t.ID]; !ok {
			kept = append(kept, t)
		}
	}
	m.rawTasks = kept
}

func (m Model) rows() []store.Task {
	return view.Sort(view.Filter(m.rawTasks, m.query, m.filter))
}

func (m Model) selectedIDs() []string {
	ids := make([]string, 0, len(m.selected))
	for id := range m.selected {
		ids = append(ids, id)
	}
	return ids
}

func (m Model) nextFilter() string {
	names := []string{view.AllCategories}
	for _, c := range m.categories {
		names = append(names, c.Name)
	}
	for i, n := range names {
		if n == m.filter {
			return names[(i+1)%len(names)]
		}
	}
	return view.AllCategories
}

// initialFilter resolves the configured default filter. Only the "all"
// sentinel is case-insensitive; category names match exactly, so a
// configured name is kept verbatim.
func initialFilter(v string) string {
	if v == "" || strings.EqualFold(v, view.AllCategories) {
		return view.AllCategories
	}
	return v
}

func formFields() []string {
	return []string{"title", "category", "priority (low/medium/high)", "due date (YYYY-MM-DD, blank for none)"}
}

func (f formState) current() string {
	switch f.index {
	case 0:
		return f.title
	case 1:
		return f.category
	case 2:
		return f.priority
	case 3:
		return f.due
	default:
		return ""
	}
}

func (f *formState) setCurrent(v string) {
	switch f.index {
	case 0:
		f.title = v
	case 1:
		f.category = v
	case 2:
		f.priority = v
	case 3:
		f.due = v
	}
}

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("TaskFlow"))
	b.WriteString("\n")

	switch m.mode {
	case modeLoading:
		b.WriteString("\n" + m.spin.View() + " " + m.status + "\n")
		return b.String()
	case modeError:
		b.WriteString("\n")
		b.WriteString(errStyle.Render("Could not load tasks"))
		b.WriteString(fmt.Sprintf("\n%v\n\nPress %q to retry, %q to quit.\n", m.loadErr, m.cfg.Keys.Retry, m.cfg.Keys.Quit))
		return b.String()
	}

	stats := view.Summarize(m.rawTasks, time.Now())
	b.WriteString(statsStyle.Render(fmt.Sprintf("%d tasks • %d completed today • %d%% completion rate",
		stats.TotalTasks, stats.CompletedToday, stats.CompletionRate)))
	b.WriteString("\n")

	filterLine := "Filter: " + m.filter
	if m.query != "" {
		filterLine += fmt.Sprintf(" • Search: %q", m.query)
	}
	if m.bulk {
		filterLine += fmt.Sprintf(" • Bulk: %d selected", len(m.selected))
	}
	b.WriteString(statsStyle.Render(filterLine))
	b.WriteString("\n\n")

	rows := m.rows()
	if len(rows) == 0 {
		if m.query != "" || m.filter != view.AllCategories {
			b.WriteString("No tasks match the current filter.\n")
		} else {
			b.WriteString(fmt.Sprintf("No tasks yet. Press %q to add one.\n", m.cfg.Keys.Add))
		}
	} else {
		for i, t := range rows {
			b.WriteString(m.renderRow(t, i == m.cursor && m.mode == modeList))
			b.WriteString("\n")
		}
	}

	if m.mode == modeSearch {
		b.WriteString("\nSearch: " + m.input.View() + "\n")
	}
	if m.mode == modeForm && m.form != nil {
		b.WriteString("\n" + m.renderForm())
	}

	b.WriteString("\n")
	b.WriteString(m.status)
	b.WriteString("\n")
	b.WriteString(statsStyle.Render(m.helpLine()))
	return b.String()
}

func (m Model) renderRow(t store.Task, cursorHere bool) string {
	cursor := " "
	if cursorHere {
		cursor = ">"
	}

	marker := ""
	if m.bulk {
		if _, ok := m.selected[t.ID]; ok {
			marker = "[*] "
		} else {
			marker = "[ ] "
		}
	}

	checkbox := "[ ]"
	title := t.Title
	if t.Completed {
		checkbox = "[x]"
		title = doneStyle.Render(title)
	}

	badges := []string{
		view.PriorityStyle(t.Priority).Render(string(t.Priority)),
	}
	if t.Category != "" {
		color := view.CategoryColor(t.Category, m.categories)
		badges = append(badges, lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Render(t.Category))
	}
	if t.DueDate.Valid {
		badges = append(badges, m.renderDue(t))
	}

	return fmt.Sprintf("%s %s%s %s  %s", cursor, marker, checkbox, title, strings.Join(badges, " "))
}

func (m Model) renderDue(t store.Task) string {
	date := t.DueDate.Time.Format("2006-01-02")
	switch view.Urgency(t.DueDate.Time, t.Completed, time.Now()) {
	case view.UrgencyOverdue:
		return overdueStyle.Render("overdue " + date)
	case view.UrgencyDueToday:
		return dueTodayStyle.Render("due today")
	default:
		return dueStyle.Render("due " + date)
	}
}

func (m Model) renderForm() string {
	f := m.form
	values := []string{f.title, f.category, f.priority, f.due}
	header := "New Task"
	if f.editingID != "" {
		header = "Edit Task"
	}
	var b strings.Builder
	b.WriteString(header + "\n")
	for i, name := range formFields() {
		prefix := " "
		if i == f.index {
			prefix = ">"
		}
		val := values[i]
		if strings.TrimSpace(val) == "" {
			val = "(empty)"
		}
		b.WriteString(fmt.Sprintf("%s %-38s : %s\n", prefix, name, val))
	}
	b.WriteString(m.input.View())
	b.WriteString("\n")
	return b.String()
}

func (m Model) helpLine() string {
	k := m.cfg.Keys
	if m.bulk {
		return fmt.Sprintf("%s/%s move • space select • %s all • %s complete • %s delete • %s exit bulk • %s quit",
			k.Up, k.Down, k.SelectAll, k.BulkComplete, k.Delete, k.Bulk, k.Quit)
	}
	return fmt.Sprintf("%s/%s move • %s add • %s edit • space toggle • %s delete • %s search • %s filter • %s bulk • %s quit",
		k.Up, k.Down, k.Add, k.Edit, k.Delete, k.Search, k.Filter, k.Bulk, k.Quit)
}

func formatDue(t store.Task) string {
	if !t.DueDate.Valid {
		return ""
	}
	return t.DueDate.Time.Format("2006-01-02")
}

func clampCursor(cur, n int) int {
	if n <= 0 {
		return 0
	}
	if cur < 0 {
		return 0
	}
	if cur >= n {
		return n - 1
	}
	return cur
}
