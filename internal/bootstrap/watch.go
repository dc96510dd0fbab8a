package bootstrap

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	uiapp "mentorpay/internal/ui/app"
	"mentorpay/internal/ui/remote"
)

// RunWatch attaches the dashboard to a session served by `mentorpay serve`.
func RunWatch(ctx context.Context, serverAddr, sessionID string) error {
	client, err := remote.NewClient(serverAddr)
	if err != nil {
		return err
	}
	stream, err := client.Watch(ctx, sessionID)
	if err != nil {
		return err
	}
	defer stream.Close()

	program := tea.NewProgram(uiapp.NewModel(sessionID, stream, client), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err = program.Run()
	return err
}
