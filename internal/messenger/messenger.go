// Package messenger defines the outbound chat capability shared by the
// conversation engine, the reminder service and the Telegram bot.
package messenger

import "context"

// Keyboard is a reply keyboard shown under a message.
type Keyboard struct {
	Rows    [][]string
	OneTime bool
}

// Messenger sends a text message to a chat. A nil keyboard removes any keyboard
// currently shown to the user.
type Messenger interface {
	SendMessage(ctx context.Context, chatID int64, text string, kb *Keyboard) error
}

// Column builds a one-time keyboard with one button per row.
func Column(labels ...string) *Keyboard {
	rows := make([][]string, 0, len(labels))
	for _, l := range labels {
		rows = append(rows, []string{l})
	}
	return &Keyboard{Rows: rows, OneTime: true}
}
