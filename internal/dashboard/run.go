package dashboard

import (
	"context"

	tea "github.com/charmbracelet/bubbletea/v2"
)

// Run shows the dashboard until the user quits or ctx is cancelled.
func Run(ctx context.Context, opts Options) error {
	m := New(opts)
	defer m.Close()

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		if ctx.Err() != nil {
			// Interrupted by a signal; not a failure.
			return nil
		}
		return err
	}
	return nil
}
