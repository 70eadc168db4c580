package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/docqa/internal/adapters/driving/fileset"
	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/components/input"
	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/components/transcript"
	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/docqa/internal/core/domain"
)

// IndexCommand prefixes input that indexes documents instead of asking.
const IndexCommand = ":index"

// Messages shown in the status bar and transcript.
const (
	msgBusy         = "Still working, wait for the current request to finish"
	msgCleared      = "History cleared"
	msgIndexUsage   = "Usage: :index <files|dirs|globs>"
	msgCountFailure = "Could not count chunks: "
)

// Rows used by everything except the transcript: title, blank line,
// bordered input (3 rows) and status bar.
const chromeHeight = 6

// App is the chat TUI following the Elm architecture.
// It implements tea.Model for use with Bubbletea.
type App struct {
	ports  *Ports
	ctx    context.Context
	styles *styles.Styles
	keymap *keymap.KeyMap

	input      *input.QuestionInput
	transcript *transcript.Transcript
	status     *status.Bar
	spinner    spinner.Model

	// busy is set while a question or :index command runs.
	// Requests are serialized: input is refused until it clears.
	busy bool

	width  int
	height int
	ready  bool
}

// Ensure App implements tea.Model.
var _ tea.Model = (*App)(nil)

// NewApp creates the chat TUI. The transcript starts from recorded history.
func NewApp(ports *Ports) (*App, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("creating app: %w", err)
	}

	s := styles.DefaultStyles()
	km := keymap.DefaultKeyMap()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = s.Spinner

	tr := transcript.New(s)
	tr.SetEntries(transcript.FromTurns(ports.History.History()))

	return &App{
		ports:      ports,
		ctx:        context.Background(),
		styles:     s,
		keymap:     km,
		input:      input.NewQuestionInput(s),
		transcript: tr,
		status:     status.NewBar(s, km),
		spinner:    sp,
	}, nil
}

// WithContext sets the context passed to the core services.
func (a *App) WithContext(ctx context.Context) *App {
	a.ctx = ctx
	return a
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return tea.Batch(
		a.input.Init(),
		a.loadCount(),
		tea.SetWindowTitle("docqa"),
	)
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.SetDimensions(msg.Width, msg.Height)
		return a, nil

	case tea.KeyMsg:
		return a.handleKey(msg)

	case tea.MouseMsg:
		var cmd tea.Cmd
		a.transcript, cmd = a.transcript.Update(msg)
		return a, cmd

	case spinner.TickMsg:
		if !a.busy {
			return a, nil
		}
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		a.status.SetSpinner(a.spinner.View())
		return a, cmd

	case messages.QueryCompleted:
		a.busy = false
		a.handleAnswer(msg.Result)
		return a, nil

	case messages.IndexCompleted:
		a.busy = false
		a.handleIndexed(msg)
		return a, a.loadCount()

	case messages.CountLoaded:
		if msg.Err != nil {
			a.status.SetMessage(msgCountFailure + msg.Err.Error())
			return a, nil
		}
		a.status.SetCount(msg.Count)
		return a, nil

	case messages.Notice:
		a.transcript.Append(transcript.Entry{Notice: msg.Text})
		return a, nil
	}

	return a, nil
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	keyStr := msg.String()
	switch {
	case keymap.Matches(keyStr, a.keymap.Quit):
		return a, tea.Quit

	case keymap.Matches(keyStr, a.keymap.Ask):
		return a, a.submit()

	case keymap.Matches(keyStr, a.keymap.ClearHistory):
		if a.busy {
			a.status.SetMessage(msgBusy)
			return a, nil
		}
		a.ports.History.ResetHistory()
		a.transcript.Clear()
		a.status.SetState(status.StateReady)
		a.status.SetMessage(msgCleared)
		return a, nil

	case keymap.Matches(keyStr, a.keymap.Index):
		a.input.SetValue(IndexCommand + " ")
		return a, nil

	case keymap.Matches(keyStr, a.keymap.ScrollUp):
		a.transcript.PageUp()
		return a, nil

	case keymap.Matches(keyStr, a.keymap.ScrollDown):
		a.transcript.PageDown()
		return a, nil
	}

	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)
	return a, cmd
}

// submit starts a question or an :index command for the current input.
func (a *App) submit() tea.Cmd {
	value := strings.TrimSpace(a.input.Value())
	if value == "" {
		return nil
	}
	if a.busy {
		a.status.SetMessage(msgBusy)
		return nil
	}

	if args, ok := ParseIndexCommand(value); ok {
		a.input.Reset()
		if len(args) == 0 {
			a.transcript.Append(transcript.Entry{Notice: msgIndexUsage})
			return nil
		}
		return a.start(status.StateIndexing, a.indexDocuments(args))
	}

	a.input.Reset()
	return a.start(status.StateThinking, a.ask(value))
}

func (a *App) start(state status.State, work tea.Cmd) tea.Cmd {
	a.busy = true
	a.status.SetState(state)
	a.status.SetMessage("")
	a.status.SetSpinner(a.spinner.View())
	return tea.Batch(work, a.spinner.Tick)
}

// ParseIndexCommand splits ":index a b" into its arguments.
// ok is false when value is not an index command.
func ParseIndexCommand(value string) (args []string, ok bool) {
	fields := strings.Fields(value)
	if len(fields) == 0 || fields[0] != IndexCommand {
		return nil, false
	}
	return fields[1:], true
}

func (a *App) ask(question string) tea.Cmd {
	ctx, query := a.ctx, a.ports.Query
	return func() tea.Msg {
		return messages.QueryCompleted{Result: query.Ask(ctx, question)}
	}
}

func (a *App) indexDocuments(args []string) tea.Cmd {
	ctx, index, supports := a.ctx, a.ports.Index, a.ports.Supports
	return func() tea.Msg {
		paths, err := fileset.Expand(args, supports)
		if err != nil {
			return messages.IndexCompleted{Err: err}
		}
		report, err := index.Index(ctx, paths)
		return messages.IndexCompleted{Report: report, Err: err}
	}
}

func (a *App) loadCount() tea.Cmd {
	ctx, index := a.ctx, a.ports.Index
	return func() tea.Msg {
		n, err := index.Count(ctx)
		return messages.CountLoaded{Count: n, Err: err}
	}
}

func (a *App) handleAnswer(result *domain.QueryResult) {
	if result == nil {
		a.status.SetState(status.StateError)
		a.status.SetMessage("no result")
		return
	}

	a.transcript.Append(transcript.Entry{
		Question: result.Question,
		Answer:   result.Formatted,
		Status:   result.Status.TurnStatus(),
	})

	if result.Status == domain.QueryFailed {
		a.status.SetState(status.StateError)
		a.status.SetMessage(result.Formatted)
		return
	}
	a.status.SetState(status.StateReady)
	if result.Status == domain.QueryEmpty {
		a.status.SetMessage(result.Formatted)
		return
	}
	a.status.SetMessage(fmt.Sprintf("✅ Answered from %d source(s)", len(result.Sources)))
}

func (a *App) handleIndexed(msg messages.IndexCompleted) {
	text := ""
	switch {
	case msg.Report != nil:
		text = msg.Report.Status()
	case msg.Err != nil:
		text = "❌ Error indexing documents: " + msg.Err.Error()
	default:
		text = domain.StatusNoFiles
	}
	a.transcript.Append(transcript.Entry{Notice: text})

	if msg.Err != nil || (msg.Report != nil && msg.Report.Err != nil) {
		a.status.SetState(status.StateError)
	} else {
		a.status.SetState(status.StateReady)
	}
	a.status.SetMessage(text)
}

// View implements tea.Model.
func (a *App) View() string {
	if !a.ready {
		return "Initialising..."
	}

	title := a.styles.Title.Render("docqa") + a.styles.Muted.Render(" · ask your documents")
	return strings.Join([]string{
		title,
		a.transcript.View(),
		"",
		a.input.View(),
		a.status.View(),
	}, "\n")
}

// SetDimensions lays out the components for the terminal size.
func (a *App) SetDimensions(width, height int) {
	a.width = width
	a.height = height
	a.ready = true
	a.transcript.SetSize(width, height-chromeHeight)
	a.input.SetWidth(width)
	a.status.SetWidth(width)
}

// Busy reports whether a request is running.
func (a *App) Busy() bool {
	return a.busy
}

// Width returns the terminal width.
func (a *App) Width() int {
	return a.width
}

// Height returns the terminal height.
func (a *App) Height() int {
	return a.height
}

// Ready returns whether the app has received the terminal size.
func (a *App) Ready() bool {
	return a.ready
}
