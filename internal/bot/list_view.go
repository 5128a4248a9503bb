package bot

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Callback data is "<scope>:<action>:<id>".
const (
	scopeCategory = "c"
	scopeItem     = "i"

	actionOpen   = "open"
	actionToggle = "tog"
	actionRename = "ren"
	actionDelete = "del"
)

// rowButton is one inline button shown next to every row. An empty Text
// shows the row's own button label.
type rowButton struct {
	Action string
	Text   string
}

// listView renders a list of T as an HTML message with one keyboard row per
// entry. It is shared by the categories and the items screens.
type listView[T any] struct {
	scope   string
	id      func(T) string
	line    func(index int, v T) string
	button  func(v T) string
	actions []rowButton
}

func (v listView[T]) render(header string, values []T, empty string) (string, tgbotapi.InlineKeyboardMarkup) {
	var sb strings.Builder
	sb.WriteString(header)
	sb.WriteString("\n\n")

	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(values))
	if len(values) == 0 {
		sb.WriteString(empty)
	}
	for i, value := range values {
		sb.WriteString(v.line(i, value))
		sb.WriteByte('\n')

		id := v.id(value)
		label := v.button(value)
		row := make([]tgbotapi.InlineKeyboardButton, 0, len(v.actions))
		for _, a := range v.actions {
			text := a.Text
			if text == "" {
				text = label
			}
			row = append(row, tgbotapi.NewInlineKeyboardButtonData(text, callbackData(v.scope, a.Action, id)))
		}
		rows = append(rows, row)
	}

	return strings.TrimSpace(sb.String()), tgbotapi.InlineKeyboardMarkup{InlineKeyboard: rows}
}

func callbackData(scope, action, id string) string {
	return fmt.Sprintf("%s:%s:%s", scope, action, id)
}

// parseCallback splits callback data into its parts.
func parseCallback(data string) (scope, action, id string, ok bool) {
	parts := strings.SplitN(data, ":", 3)
	if len(parts) != 3 || parts[2] == "" {
		return "", "", "", false
	}
	return parts[0], parts[1], parts[2], true
}
