package gateway

import (
	"testing"
)

func commandNames(handles func(string) bool) map[string]bool {
	names := make(map[string]bool)
	for _, c := range botCommands(handles) {
		names[c.Name] = true
	}
	return names
}

func TestBotCommands_OptionalCommandsFollowHandlers(t *testing.T) {
	// Без обработчика translate команда не публикуется.
	names := commandNames(func(command string) bool {
		return command != "translate"
	})

	if names["translate"] {
		t.Fatalf("translate must not be published without a handler")
	}
	if !names["remind"] {
		t.Fatalf("remind must be published when its handler is registered")
	}
	for _, want := range []string{"point-check", "point-draw", "point-items", "point-exchange",
		"candy-check", "candy-draw", "candy-items", "candy-exchange"} {
		if !names[want] {
			t.Fatalf("command %s must always be published", want)
		}
	}

	names = commandNames(func(string) bool { return true })
	if !names["translate"] {
		t.Fatalf("translate must be published when its handler is registered")
	}
}
