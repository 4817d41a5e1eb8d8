package provisioner

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

// printer writes the colored progress lines users see.
type printer struct {
	w io.Writer
}

func (p printer) step(format string, args ...any) {
	color.New(color.FgCyan).Fprintf(p.w, "→ "+format+"\n", args...)
}

func (p printer) success(format string, args ...any) {
	color.New(color.FgGreen).Fprintf(p.w, "✓ "+format+"\n", args...)
}

func (p printer) warn(format string, args ...any) {
	color.New(color.FgYellow).Fprintf(p.w, "⚠ "+format+"\n", args...)
}

func (p printer) fail(format string, args ...any) {
	color.New(color.FgRed).Fprintf(p.w, "✗ "+format+"\n", args...)
}

func (p printer) plain(format string, args ...any) {
	fmt.Fprintf(p.w, format+"\n", args...)
}
