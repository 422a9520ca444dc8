// Package ui renders karelc's build output with lipgloss, the same
// library and palette shape as the teacher's pkg/ui/styles.go, adapted
// from "transpile Dingo to Go" status lines to "compile SRC to TGT"
// ones: per-file steps become the pipeline's own phases (resolve
// dialect, parse, compile, warnings, write output, sourcemap).
package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

var (
	colorPrimary   = lipgloss.Color("#7D56F4")
	colorSecondary = lipgloss.Color("#56C3F4")
	colorSuccess   = lipgloss.Color("#5AF78E")
	colorWarning   = lipgloss.Color("#F7DC6F")
	colorError     = lipgloss.Color("#FF6B9D")
	colorMuted     = lipgloss.Color("#6C7086")
	colorText      = lipgloss.Color("#CDD6F4")
	colorHighlight = lipgloss.Color("#F5E0DC")
)

var (
	styleHeader = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorPrimary).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(colorPrimary).
			Padding(0, 2).
			MarginBottom(1)

	styleVersion = lipgloss.NewStyle().Foreground(colorMuted).Italic(true)
	styleSection = lipgloss.NewStyle().Bold(true).Foreground(colorSecondary).MarginTop(1)

	styleFileInput  = lipgloss.NewStyle().Foreground(colorText)
	styleFileOutput = lipgloss.NewStyle().Foreground(colorSuccess)

	styleSuccess = lipgloss.NewStyle().Foreground(colorSuccess).Bold(true)
	styleWarning = lipgloss.NewStyle().Foreground(colorWarning).Bold(true)
	styleError   = lipgloss.NewStyle().Foreground(colorError).Bold(true)
	styleMuted   = lipgloss.NewStyle().Foreground(colorMuted).Italic(true)

	styleStepLabel = lipgloss.NewStyle().Foreground(colorText).Width(14)
	styleStepTime  = lipgloss.NewStyle().Foreground(colorMuted).Italic(true)

	styleSummary = lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderTop(true).
			BorderForeground(colorMuted).
			MarginTop(1).
			PaddingTop(1)

	styleIndent = lipgloss.NewStyle().PaddingLeft(2)
	styleFile   = lipgloss.NewStyle().Foreground(colorHighlight).Bold(true)
)

// StepStatus is the outcome of one pipeline phase.
type StepStatus int

const (
	StepSuccess StepStatus = iota
	StepSkipped
	StepWarning
	StepError
)

// Step is one reported pipeline phase: resolve dialect, parse, compile,
// warnings, write output, or sourcemap.
type Step struct {
	Name     string
	Status   StepStatus
	Duration time.Duration
	Message  string
}

// BuildOutput renders the progress of a single karelc build invocation.
type BuildOutput struct {
	start time.Time
}

// NewBuildOutput starts timing a build.
func NewBuildOutput() *BuildOutput {
	return &BuildOutput{start: time.Now()}
}

// PrintHeader prints the karelc banner and version.
func (b *BuildOutput) PrintHeader(version string) {
	fmt.Println(styleHeader.Render("karelc") + " " + styleVersion.Render("v"+version))
}

// PrintFile announces the source/output pair about to be compiled.
func (b *BuildOutput) PrintFile(inputs []string, output string) {
	fmt.Println(styleSection.Render("Compiling"))
	for _, in := range inputs {
		fmt.Printf("  %s\n", styleFileInput.Render(in))
	}
	fmt.Printf("  %s %s\n\n", styleMuted.Render("→"), styleFileOutput.Render(output))
}

// PrintStep reports one pipeline phase's outcome.
func (b *BuildOutput) PrintStep(step Step) {
	var icon, status string
	switch step.Status {
	case StepSuccess:
		icon, status = "✓", styleSuccess.Render("done")
	case StepSkipped:
		icon, status = "○", styleMuted.Render("skipped")
	case StepWarning:
		icon, status = "⚠", styleWarning.Render("warning")
	case StepError:
		icon, status = "✗", styleError.Render("failed")
	}

	line := fmt.Sprintf("  %s %s %s", icon, styleStepLabel.Render(step.Name), status)
	if step.Duration > 0 {
		line += " " + styleStepTime.Render("("+formatDuration(step.Duration)+")")
	}
	fmt.Println(line)
	if step.Message != "" {
		fmt.Println(styleMuted.Render("    " + step.Message))
	}
}

// PrintSummary prints the final pass/fail line.
func (b *BuildOutput) PrintSummary(success bool, errMsg string) {
	elapsed := time.Since(b.start)
	fmt.Println()
	var line string
	if success {
		line = fmt.Sprintf("%s Built in %s", styleSuccess.Render("Success!"), styleStepTime.Render(formatDuration(elapsed)))
	} else {
		line = styleError.Render("Build failed")
		if errMsg != "" {
			line += "\n" + styleError.Render("  Error: ") + errMsg
		}
	}
	fmt.Println(styleSummary.Render(line))
}

// PrintWarnings prints every accumulated warning line, already
// rustc-style formatted by pkg/diag.
func (b *BuildOutput) PrintWarnings(rendered string) {
	if rendered == "" {
		return
	}
	fmt.Print(styleIndent.Render(rendered))
}

// PrintVersionInfo prints the version subcommand's output.
func PrintVersionInfo(version string) {
	fmt.Println(styleHeader.Render("karelc"))
	fmt.Printf("  %s %s\n", styleMuted.Render("Version:"), styleSuccess.Render(version))
	fmt.Printf("  %s %s\n", styleMuted.Render("Default dialect:"), styleFile.Render("PyKarel/Kvm"))
}

func formatDuration(d time.Duration) string {
	switch {
	case d < time.Millisecond:
		return fmt.Sprintf("%dµs", d.Microseconds())
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	default:
		return fmt.Sprintf("%.2fs", d.Seconds())
	}
}

// Divider renders a horizontal rule, used to separate -vv registry dumps.
func Divider() string {
	return styleMuted.Render(strings.Repeat("─", 60))
}
