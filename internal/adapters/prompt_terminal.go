package adapters

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"xpkg/internal/ports"
)

// TerminalPrompterAdapter asks yes/no questions on a line-oriented
// terminal. Anything other than an explicit yes is a no.
type TerminalPrompterAdapter struct {
	In  io.Reader
	Out io.Writer
}

func NewTerminalPrompterAdapter(in io.Reader, out io.Writer) *TerminalPrompterAdapter {
	return &TerminalPrompterAdapter{In: in, Out: out}
}

func (a *TerminalPrompterAdapter) Confirm(prompt string) bool {
	bold := color.New(color.Bold)
	bold.Fprint(a.Out, prompt)
	fmt.Fprint(a.Out, " [y/N] ")

	scanner := bufio.NewScanner(a.In)
	if !scanner.Scan() {
		fmt.Fprintln(a.Out)
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(scanner.Text()))
	return answer == "y" || answer == "yes"
}

var _ ports.PrompterPort = (*TerminalPrompterAdapter)(nil)
