package terminal

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
	"golang.org/x/term"

	"MediChat/internal/session"
)

// Color codes
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorBlue   = "\033[34m"
	colorCyan   = "\033[36m"
	colorGray   = "\033[90m"
	clearLine   = "\r\033[2K"
	timeLayout  = "15:04"
	typingLabel = "Dr. AI is typing..."
)

// Options controls how the view renders
type Options struct {
	Color     bool // emit ANSI colors
	Markdown  bool // render assistant replies with glamour
	AssumeYes bool // answer every confirmation with yes
	Width     int  // word wrap for Markdown, 0 picks the terminal width
}

// View renders the chat on a terminal and reads user input from it
type View struct {
	mu        sync.Mutex
	in        *bufio.Reader
	out       io.Writer
	opts      Options
	renderer  *glamour.TermRenderer
	count     int
	sessionID string
	pending   string // last line read, not yet rendered back
	busy      bool
}

// IsTerminal reports whether f is attached to a terminal
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// NewView creates a view reading from in and writing to out
func NewView(in io.Reader, out io.Writer, opts Options) (*View, error) {
	v := &View{
		in:   bufio.NewReader(in),
		out:  out,
		opts: opts,
	}

	if opts.Markdown {
		width := opts.Width
		if width <= 0 {
			width = terminalWidth(out)
		}
		renderer, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(width),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create markdown renderer: %w", err)
		}
		v.renderer = renderer
	}

	return v, nil
}

func terminalWidth(out io.Writer) int {
	if f, ok := out.(*os.File); ok {
		if width, _, err := term.GetSize(int(f.Fd())); err == nil && width > 20 {
			return width - 4
		}
	}
	return 80
}

func (v *View) paint(color, text string) string {
	if !v.opts.Color {
		return text
	}
	return color + text + colorReset
}

// ShowSessionID prints the session id whenever it changes
func (v *View) ShowSessionID(id string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if id == v.sessionID {
		return
	}
	v.sessionID = id
	fmt.Fprintln(v.out, v.paint(colorGray, "Session: "+id))
}

// ShowMessageCount records the count shown in the input prompt
func (v *View) ShowMessageCount(n int) {
	v.mu.Lock()
	v.count = n
	v.mu.Unlock()
}

// RenderMessage prints one message. A user message that echoes the line the
// user just typed is not printed again.
func (v *View) RenderMessage(msg session.Message) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if msg.Sender == session.SenderUser {
		if v.pending != "" && strings.TrimSpace(v.pending) == msg.Content {
			v.pending = ""
			return
		}
		fmt.Fprintf(v.out, "%s %s\n", v.paint(colorGreen, "You ["+msg.Timestamp.Format(timeLayout)+"]:"), msg.Content)
		return
	}

	if v.busy {
		fmt.Fprint(v.out, clearLine)
		v.busy = false
	}
	fmt.Fprintf(v.out, "%s\n%s\n", v.paint(colorBlue, "Dr. AI ["+msg.Timestamp.Format(timeLayout)+"]:"), v.renderContent(msg.Content))
}

func (v *View) renderContent(content string) string {
	if v.renderer == nil {
		return content
	}
	rendered, err := v.renderer.Render(content)
	if err != nil {
		return content
	}
	return strings.TrimRight(rendered, "\n")
}

// SetBusy shows or hides the typing indicator
func (v *View) SetBusy(busy bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if busy == v.busy {
		return
	}
	v.busy = busy
	if busy {
		fmt.Fprint(v.out, v.paint(colorGray, typingLabel))
		return
	}
	fmt.Fprint(v.out, clearLine)
}

// Reset prints the greeting placeholder in place of the cleared conversation
func (v *View) Reset(greeting string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.count = 0
	v.pending = ""
	fmt.Fprintf(v.out, "\n%s\n%s\n\n", v.paint(colorCyan, strings.Repeat("─", 40)), v.paint(colorCyan, greeting))
}

// Confirm asks a yes/no question; anything but y or yes is a no
func (v *View) Confirm(prompt string) bool {
	if v.opts.AssumeYes {
		return true
	}

	v.mu.Lock()
	fmt.Fprintf(v.out, "%s [y/N]: ", prompt)
	v.mu.Unlock()

	answer, err := v.readLine()
	if err != nil && answer == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}

// ReadLine prompts for and returns the next input line
func (v *View) ReadLine() (string, error) {
	v.mu.Lock()
	fmt.Fprintf(v.out, "%s ", v.paint(colorGreen, fmt.Sprintf("[%d] You:", v.count)))
	v.mu.Unlock()

	line, err := v.readLine()
	if err != nil && line == "" {
		return "", err
	}

	v.mu.Lock()
	v.pending = line
	v.mu.Unlock()
	return line, nil
}

func (v *View) readLine() (string, error) {
	line, err := v.in.ReadString('\n')
	line = strings.TrimRight(line, "\r\n")
	if errors.Is(err, io.EOF) && line != "" {
		return line, nil
	}
	return line, err
}

// Printf writes informational output
func (v *View) Printf(format string, args ...interface{}) {
	v.mu.Lock()
	defer v.mu.Unlock()
	fmt.Fprintf(v.out, format, args...)
}

// Error prints an error
func (v *View) Error(err error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	fmt.Fprintln(v.out, v.paint(colorRed, "✗ Error: "+err.Error()))
}
