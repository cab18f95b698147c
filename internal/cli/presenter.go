package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"plantdoc/internal/model"
	"plantdoc/internal/wizard"

	"github.com/fatih/color"
)

// LineReader reads one line of user input (bufio.Reader satisfies it)
type LineReader interface {
	ReadString(delim byte) (string, error)
}

// Presenter drives a wizard from a terminal
type Presenter struct {
	wiz    *wizard.Wizard
	in     LineReader
	out    io.Writer
	outDir string
	search string

	bold  *color.Color
	cyan  *color.Color
	green *color.Color
	red   *color.Color
	dim   *color.Color
}

// NewPresenter creates a presenter reading from in and writing to out.
// Exported PDFs are written to outDir.
func NewPresenter(wiz *wizard.Wizard, in LineReader, out io.Writer, outDir string) *Presenter {
	if in == nil {
		in = bufio.NewReader(os.Stdin)
	}
	return &Presenter{
		wiz:    wiz,
		in:     in,
		out:    out,
		outDir: outDir,
		bold:   color.New(color.Bold),
		cyan:   color.New(color.FgCyan),
		green:  color.New(color.FgGreen),
		red:    color.New(color.FgRed),
		dim:    color.New(color.Faint),
	}
}

var errQuit = errors.New("quit")

// Run loops until the user quits or input ends
func (p *Presenter) Run(ctx context.Context) error {
	if err := p.wiz.LoadPlantTypes(ctx); err != nil {
		p.showError(err)
	}
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		v := p.wiz.View()
		p.render(v)

		line, err := p.in.ReadString('\n')
		line = strings.TrimSpace(line)
		if errors.Is(err, io.EOF) && line == "" {
			return nil
		}
		if err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		if err := p.handle(ctx, v, line); err != nil {
			if errors.Is(err, errQuit) {
				return nil
			}
			p.showError(err)
		}
	}
}

func (p *Presenter) showError(err error) {
	var werr *wizard.Error
	if errors.As(err, &werr) {
		p.red.Fprintln(p.out, werr.Message)
		return
	}
	p.red.Fprintln(p.out, err.Error())
}

func (p *Presenter) render(v wizard.View) {
	fmt.Fprintln(p.out)
	switch v.State {
	case wizard.StateBrowsing:
		p.renderBrowsing()
	case wizard.StateAnswering:
		p.renderAnswering(v)
	case wizard.StateReviewing:
		p.renderReviewing(v)
	case wizard.StateResult:
		p.renderResult(v)
	default:
		p.dim.Fprintln(p.out, "Working...")
	}
}

func (p *Presenter) renderBrowsing() {
	plants := p.wiz.SearchPlants(p.search)
	p.bold.Fprintln(p.out, "Select Your Plant Type")
	if p.search != "" {
		p.dim.Fprintf(p.out, "Filter: %q\n", p.search)
	}
	if len(plants) == 0 {
		p.dim.Fprintln(p.out, "No plant types found.")
	}
	for i, pl := range plants {
		fmt.Fprintf(p.out, "  %2d. %s\n", i+1, pl.Name)
	}
	p.cyan.Fprint(p.out, "\nNumber to select, /term to search, r to reload, q to quit: ")
}

func (p *Presenter) renderAnswering(v wizard.View) {
	if v.DiscardPending {
		p.red.Fprint(p.out, "Discard your answers and go back? (y/n): ")
		return
	}
	if v.Current == nil {
		p.dim.Fprintln(p.out, "This plant has no questions.")
		p.cyan.Fprint(p.out, "c to continue, b to go back, q to quit: ")
		return
	}

	p.bold.Fprintf(p.out, "%s: question %d of %d\n", plantName(v.SelectedPlant), v.Pointer+1, v.Total)
	fmt.Fprintln(p.out, v.Current.Text)
	chosen := ""
	for _, r := range v.Responses {
		if r.QuestionIndex == v.Pointer {
			chosen = r.AnswerText
		}
	}
	for i, a := range v.Current.Answers {
		marker := " "
		if a.Text == chosen {
			marker = "*"
		}
		fmt.Fprintf(p.out, " %s%2d. %s\n", marker, i+1, a.Text)
	}
	p.cyan.Fprint(p.out, "\nNumber to answer, c to continue, b to go back, q to quit: ")
}

func (p *Presenter) renderReviewing(v wizard.View) {
	p.bold.Fprintf(p.out, "Review your answers for %s\n", plantName(v.SelectedPlant))
	for _, r := range v.Responses {
		fmt.Fprintf(p.out, "  %2d. %s\n      %s\n", r.QuestionIndex+1, r.QuestionText, p.green.Sprint(r.AnswerText))
	}
	p.cyan.Fprint(p.out, "\ns to submit, e N to edit, b to go back, q to quit: ")
}

func (p *Presenter) renderResult(v wizard.View) {
	p.bold.Fprintf(p.out, "Health analysis for %s\n\n", plantName(v.SelectedPlant))
	if v.Diagnosis != nil {
		fmt.Fprintln(p.out, *v.Diagnosis)
	}
	p.cyan.Fprint(p.out, "\nx to export PDF, r to start over, q to quit: ")
}

func plantName(pl *model.PlantType) string {
	if pl == nil {
		return ""
	}
	return pl.Name
}

func (p *Presenter) handle(ctx context.Context, v wizard.View, line string) error {
	if line == "q" {
		return errQuit
	}
	switch v.State {
	case wizard.StateBrowsing:
		return p.handleBrowsing(ctx, line)
	case wizard.StateAnswering:
		return p.handleAnswering(ctx, v, line)
	case wizard.StateReviewing:
		return p.handleReviewing(ctx, line)
	case wizard.StateResult:
		return p.handleResult(ctx, line)
	}
	return nil
}

func (p *Presenter) handleBrowsing(ctx context.Context, line string) error {
	switch {
	case line == "r":
		return p.wiz.LoadPlantTypes(ctx)
	case strings.HasPrefix(line, "/"):
		p.search = strings.TrimSpace(line[1:])
		return nil
	}
	plants := p.wiz.SearchPlants(p.search)
	n, err := strconv.Atoi(line)
	if err != nil || n < 1 || n > len(plants) {
		return fmt.Errorf("invalid selection: %q", line)
	}
	p.search = ""
	return p.wiz.SelectPlant(ctx, plants[n-1])
}

func (p *Presenter) handleAnswering(ctx context.Context, v wizard.View, line string) error {
	if v.DiscardPending {
		if line == "y" {
			return p.wiz.ConfirmDiscard()
		}
		p.wiz.CancelDiscard()
		return nil
	}
	switch line {
	case "c":
		return p.wiz.Continue()
	case "b":
		return p.wiz.Back()
	}
	if v.Current == nil {
		return fmt.Errorf("invalid choice: %q", line)
	}
	n, err := strconv.Atoi(line)
	if err != nil || n < 1 || n > len(v.Current.Answers) {
		return fmt.Errorf("invalid choice: %q", line)
	}
	return p.wiz.ChooseAnswer(ctx, v.Current.Answers[n-1].Text)
}

func (p *Presenter) handleReviewing(ctx context.Context, line string) error {
	switch {
	case line == "s":
		p.dim.Fprintln(p.out, "Analyzing...")
		return p.wiz.Submit(ctx)
	case line == "b":
		return p.wiz.Back()
	case strings.HasPrefix(line, "e"):
		n, err := strconv.Atoi(strings.TrimSpace(line[1:]))
		if err != nil {
			return fmt.Errorf("invalid edit: %q", line)
		}
		return p.wiz.EditQuestion(n - 1)
	}
	return fmt.Errorf("invalid choice: %q", line)
}

func (p *Presenter) handleResult(ctx context.Context, line string) error {
	switch line {
	case "r":
		p.wiz.Restart()
		return nil
	case "x":
		art, err := p.wiz.Export(ctx)
		if err != nil {
			return err
		}
		path := filepath.Join(p.outDir, art.Filename)
		if err := os.WriteFile(path, art.Data, 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
		p.green.Fprintf(p.out, "Saved %s (%d pages)\n", path, art.Pages)
		return nil
	}
	return fmt.Errorf("invalid choice: %q", line)
}
