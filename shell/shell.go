// Package shell implements an interactive terminal front end for Whisper:
// component K of the spec. It accepts S-expression forms, compiles the
// accumulated session to C, and can hand the result to ccrun to actually
// build and execute it.
//
// Grounded on the teacher's repl package: the same Bubble Tea
// Model/Update/View loop, textinput, spinner, and lipgloss styling,
// generalized from Monkey's persistent-environment evaluation to Whisper's
// stateless, whole-program recompilation model (Whisper has no runtime
// environment to mutate, so each accepted entry grows a session source
// buffer that is recompiled from scratch).
package shell

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/PeBraz/whisper/ccrun"
	"github.com/PeBraz/whisper/compiler"
	"github.com/PeBraz/whisper/lexer"
	"github.com/PeBraz/whisper/parser"
	"github.com/PeBraz/whisper/token"
)

const (
	// Prompt is the default prompt for the shell.
	Prompt = "ws> "

	// ContPrompt is the continuation prompt used in multiline input mode.
	ContPrompt = "... "

	// runCommand, entered alone, builds and runs the session's current
	// compiled unit through ccrun instead of adding a new form.
	runCommand = ":run"

	// resetCommand clears the accumulated session source.
	resetCommand = ":reset"
)

// Run starts the interactive shell and blocks until the user exits.
func Run() error {
	p := tea.NewProgram(initialModel())
	_, err := p.Run()
	return err
}

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7D56F4")).
			Bold(true)

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#04B575"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5F87"))

	historyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#767676"))

	keywordStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF79C6")).
			Bold(true)

	literalStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F1FA8C"))

	stringStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#50FA7B"))

	delimiterStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#BD93F9"))
)

// builtinForms are the leading identifiers highlighted as keywords.
var builtinForms = map[string]bool{
	"add": true, "sub": true, "mul": true, "div": true, "mod": true,
	"neg": true, "lt": true, "le": true, "ge": true, "gt": true,
	"eq": true, "ne": true, "and": true, "or": true, "not": true,
	"set": true, "seq": true, "if": true, "while": true, "print": true,
	"readi": true, "reads": true, "def": true,
}

type evalResultMsg struct {
	compiled string
	ran      string
	isError  bool
	elapsed  time.Duration
}

type historyEntry struct {
	input          string
	compiled       string
	ran            string
	isError        bool
	evaluationTime time.Duration
}

type model struct {
	textInput   textinput.Model
	spinner     spinner.Model
	history     []historyEntry
	session     string // accumulated, successfully-compiled Whisper source
	evaluating  bool
	currentIn   string
	multiline   string
	isMultiline bool
}

func initialModel() model {
	ti := textinput.New()
	ti.Placeholder = "Enter a Whisper form"
	ti.Focus()
	ti.Width = 80
	ti.Prompt = promptStyle.Render(Prompt)

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF79C6"))

	return model{textInput: ti, spinner: s}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick)
}

// isBalanced reports whether input's parentheses are balanced, the signal
// the shell uses to decide whether to keep collecting continuation lines.
func isBalanced(input string) bool {
	depth := 0
	for _, ch := range input {
		switch ch {
		case '(':
			depth++
		case ')':
			depth--
			if depth < 0 {
				return false
			}
		}
	}
	return depth == 0
}

// evalCmd compiles session+input as a whole program. A successful compile
// both reports the emitted unit and (for :run) executes it; a failure
// leaves session untouched so the caller can retype the offending entry.
func evalCmd(session, input string) tea.Cmd {
	return func() tea.Msg {
		start := time.Now()

		if strings.TrimSpace(input) == resetCommand {
			return evalResultMsg{compiled: "(session cleared)", elapsed: time.Since(start)}
		}

		runRequested := strings.TrimSpace(input) == runCommand
		source := session
		if !runRequested {
			source = strings.TrimSpace(session + "\n" + input)
		}

		l := lexer.New(source)
		p := parser.New(l)
		program := p.ParseProgram()
		if len(p.Errors()) != 0 {
			return evalResultMsg{
				compiled: formatParseErrors(p.Errors()),
				isError:  true,
				elapsed:  time.Since(start),
			}
		}

		unit, err := compiler.New().Compile(program)
		if err != nil {
			return evalResultMsg{
				compiled: fmt.Sprintf("compile error: %s", err),
				isError:  true,
				elapsed:  time.Since(start),
			}
		}

		var ran string
		if runRequested {
			res, err := ccrun.BuildAndRun(unit, "")
			switch {
			case err != nil:
				ran = fmt.Sprintf("run error: %s", err)
			case res.ExitCode != 0:
				ran = fmt.Sprintf("exited %d\n%s%s", res.ExitCode, res.Stdout, res.Stderr)
			default:
				ran = res.Stdout
			}
		}

		return evalResultMsg{compiled: unit, ran: ran, elapsed: time.Since(start)}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case spinner.TickMsg:
		if m.evaluating {
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}

	case evalResultMsg:
		m.evaluating = false
		if msg.compiled == "(session cleared)" {
			m.session = ""
		} else if !msg.isError {
			if strings.TrimSpace(m.currentIn) != runCommand {
				m.session = strings.TrimSpace(m.session + "\n" + m.currentIn)
			}
		}
		m.history = append(m.history, historyEntry{
			input:          m.currentIn,
			compiled:       msg.compiled,
			ran:            msg.ran,
			isError:        msg.isError,
			evaluationTime: msg.elapsed,
		})
		m.currentIn = ""
		return m, nil

	case tea.KeyMsg:
		if m.evaluating && msg.Type != tea.KeyCtrlC {
			return m, m.spinner.Tick
		}

		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc, tea.KeyCtrlD:
			return m, tea.Quit
		case tea.KeyEnter:
			input := m.textInput.Value()
			if input == "" {
				if m.isMultiline && m.multiline != "" {
					buffer := m.multiline
					m.evaluating, m.currentIn, m.isMultiline, m.multiline = true, buffer, false, ""
					m.textInput.SetValue("")
					return m, evalCmd(m.session, buffer)
				}
				return m, nil
			}

			if m.isMultiline {
				m.multiline += "\n" + input
				m.textInput.SetValue("")
				if isBalanced(m.multiline) {
					buffer := m.multiline
					m.evaluating, m.currentIn, m.isMultiline, m.multiline = true, buffer, false, ""
					return m, evalCmd(m.session, buffer)
				}
				return m, nil
			}

			if !isBalanced(input) {
				m.isMultiline, m.multiline = true, input
				m.textInput.SetValue("")
				return m, nil
			}

			m.evaluating, m.currentIn = true, input
			m.textInput.SetValue("")
			return m, evalCmd(m.session, input)
		}
	}

	if !m.evaluating {
		m.textInput, cmd = m.textInput.Update(msg)
	}
	if m.evaluating {
		return m, m.spinner.Tick
	}
	return m, cmd
}

func (m model) View() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render(" Whisper Shell "))
	s.WriteString("\n\nEnter Whisper forms; a blank line submits an unfinished one. :run runs the session, :reset clears it.\n\n")

	for _, entry := range m.history {
		for i, line := range strings.Split(entry.input, "\n") {
			if i == 0 {
				s.WriteString(promptStyle.Render(Prompt))
			} else {
				s.WriteString(promptStyle.Render(ContPrompt))
			}
			s.WriteString(highlightCode(line))
			s.WriteString("\n")
		}

		if entry.isError {
			s.WriteString(errorStyle.Render(entry.compiled))
		} else {
			s.WriteString(resultStyle.Render(entry.compiled))
			if entry.ran != "" {
				s.WriteString("\n")
				s.WriteString(historyStyle.Render(entry.ran))
			}
		}

		if entry.evaluationTime > 10*time.Millisecond {
			s.WriteString(historyStyle.Render(fmt.Sprintf(" (%.2fs)", entry.evaluationTime.Seconds())))
		}
		s.WriteString("\n\n")
	}

	if m.evaluating {
		s.WriteString(promptStyle.Render(Prompt))
		s.WriteString(highlightCode(m.currentIn))
		s.WriteString("\n")
		s.WriteString(m.spinner.View())
		s.WriteString(" compiling...\n\n")
	}

	if m.isMultiline && !m.evaluating {
		s.WriteString(historyStyle.Render("current form:\n"))
		s.WriteString(highlightCode(m.multiline))
		s.WriteString("\n")
	}

	if !m.evaluating {
		if m.isMultiline {
			m.textInput.Prompt = promptStyle.Render(ContPrompt)
		} else {
			m.textInput.Prompt = promptStyle.Render(Prompt)
		}
		s.WriteString(m.textInput.View())
		s.WriteString("\n")
	}

	s.WriteString(historyStyle.Render("\nEsc/Ctrl+C to exit"))
	return s.String()
}

func formatParseErrors(errors []string) string {
	var s strings.Builder
	s.WriteString("parse errors:\n")
	for _, msg := range errors {
		s.WriteString("  " + msg + "\n")
	}
	return s.String()
}

// highlightCode applies syntax highlighting to a single line of Whisper
// source, keying off its much smaller token set than Monkey's.
func highlightCode(code string) string {
	l := lexer.New(code)
	var s strings.Builder

	first := true
	for {
		tok := l.NextToken()
		if tok.Type == token.EOF {
			break
		}
		switch {
		case tok.Type == token.Lparen || tok.Type == token.Rparen:
			s.WriteString(delimiterStyle.Render(tok.Literal))
			first = tok.Type == token.Lparen
			continue
		case tok.Type == token.Int:
			s.WriteString(literalStyle.Render(tok.Literal))
		case tok.Type == token.String:
			s.WriteString(stringStyle.Render(`"` + tok.Literal + `"`))
		case tok.Type == token.Ident && first && builtinForms[tok.Literal]:
			s.WriteString(keywordStyle.Render(tok.Literal))
		default:
			s.WriteString(tok.Literal)
		}
		s.WriteString(" ")
		first = false
	}
	return strings.TrimRight(s.String(), " ")
}
