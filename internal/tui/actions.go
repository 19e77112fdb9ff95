package tui

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/starford/awesomeview/internal/library"
)

// ReloadedMsg carries the outcome of a regenerate, whether it was started
// from the browser or by the source watcher.
type ReloadedMsg struct {
	Report *library.Report
	Err    error
}

type noticeMsg struct {
	text string
	err  bool
}

type editorFinishedMsg struct{ err error }

func regenerateCmd(lib Library) tea.Cmd {
	return func() tea.Msg {
		report, err := lib.Regenerate()
		return ReloadedMsg{Report: report, Err: err}
	}
}

func openCmd(open func(string) error, url string) tea.Cmd {
	return func() tea.Msg {
		if err := open(url); err != nil {
			return noticeMsg{text: fmt.Sprintf("open %s: %v", url, err), err: true}
		}
		return noticeMsg{text: "Opened " + url}
	}
}

// OpenURL opens url with the platform's default handler.
func OpenURL(url string) error {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux", "freebsd", "openbsd":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}

	return cmd.Start()
}

// editor returns $VISUAL or $EDITOR.
func editor() string {
	for _, env := range []string{"VISUAL", "EDITOR"} {
		if v := os.Getenv(env); v != "" {
			return v
		}
	}
	return ""
}

// editCmd suspends the browser and opens file at line in the editor. The
// editor may carry arguments, as in "code -w".
func editCmd(editor, file string, line int) tea.Cmd {
	args := strings.Fields(editor)
	args = append(args, "+"+strconv.Itoa(line), file)
	c := exec.Command(args[0], args[1:]...)
	return tea.ExecProcess(c, func(err error) tea.Msg {
		return editorFinishedMsg{err: err}
	})
}
