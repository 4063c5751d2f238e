package handler

import (
	"context"
	"errors"
	"testing"
)

type stubHandler struct {
	names   []string
	handled []string
}

func (h *stubHandler) Names() []string { return h.names }

func (h *stubHandler) IsHandle(command string) bool {
	for _, name := range h.names {
		if name == command {
			return true
		}
	}
	return false
}

func (h *stubHandler) Handle(ctx context.Context, ic *Interaction) error {
	h.handled = append(h.handled, ic.Command)
	return nil
}

type stubResponder struct {
	replies []string
	edits   []string
	err     error
}

func (r *stubResponder) Reply(ctx context.Context, content string) error {
	if r.err != nil {
		return r.err
	}
	r.replies = append(r.replies, content)
	return nil
}

func (r *stubResponder) EditReply(ctx context.Context, content string) error {
	if r.err != nil {
		return r.err
	}
	r.edits = append(r.edits, content)
	return nil
}

func TestRouter_DispatchesToSingleHandler(t *testing.T) {
	r := NewRouter()

	point := &stubHandler{names: []string{"point-check", "point-draw"}}
	candy := &stubHandler{names: []string{"candy-check"}}
	if err := r.Register(point); err != nil {
		t.Fatalf("Register error: %v", err)
	}
	if err := r.Register(candy); err != nil {
		t.Fatalf("Register error: %v", err)
	}

	ic := NewInteraction("candy-check", "123456789", "987654321", &stubResponder{})
	if err := r.Dispatch(context.Background(), ic); err != nil {
		t.Fatalf("Dispatch error: %v", err)
	}

	if len(point.handled) != 0 {
		t.Fatalf("point handler must not receive candy command")
	}
	if len(candy.handled) != 1 || candy.handled[0] != "candy-check" {
		t.Fatalf("candy handler calls = %v, want [candy-check]", candy.handled)
	}
}

func TestRouter_RejectsDuplicateName(t *testing.T) {
	r := NewRouter()

	if err := r.Register(&stubHandler{names: []string{"point-check"}}); err != nil {
		t.Fatalf("Register error: %v", err)
	}
	if err := r.Register(&stubHandler{names: []string{"point-check", "point-draw"}}); err == nil {
		t.Fatalf("second registration of point-check must fail")
	}

	// Отказ должен быть атомарным: point-draw не зарегистрирована.
	ic := NewInteraction("point-draw", "123456789", "987654321", &stubResponder{})
	err := r.Dispatch(context.Background(), ic)
	if !errors.Is(err, ErrUnhandledCommand) {
		t.Fatalf("Dispatch error = %v, want ErrUnhandledCommand", err)
	}
}

func TestRouter_Handles(t *testing.T) {
	r := NewRouter()
	if err := r.Register(&stubHandler{names: []string{"point-check"}}); err != nil {
		t.Fatalf("Register error: %v", err)
	}

	if !r.Handles("point-check") {
		t.Fatalf("Handles(point-check) = false, want true")
	}
	if r.Handles("translate") {
		t.Fatalf("Handles(translate) = true for unregistered command")
	}
}

func TestRouter_UnhandledCommand(t *testing.T) {
	r := NewRouter()
	if err := r.Register(&stubHandler{names: []string{"point-check"}}); err != nil {
		t.Fatalf("Register error: %v", err)
	}

	ic := NewInteraction("unknown", "123456789", "987654321", &stubResponder{})
	err := r.Dispatch(context.Background(), ic)
	if !errors.Is(err, ErrUnhandledCommand) {
		t.Fatalf("Dispatch error = %v, want ErrUnhandledCommand", err)
	}
}

func TestInteraction_RepliesExactlyOnce(t *testing.T) {
	responder := &stubResponder{}
	ic := NewInteraction("point-check", "123456789", "987654321", responder)

	if err := ic.Reply(context.Background(), "первый"); err != nil {
		t.Fatalf("Reply error: %v", err)
	}
	if err := ic.Reply(context.Background(), "второй"); !errors.Is(err, ErrAlreadyReplied) {
		t.Fatalf("second Reply error = %v, want ErrAlreadyReplied", err)
	}
	if err := ic.EditReply(context.Background(), "третий"); !errors.Is(err, ErrAlreadyReplied) {
		t.Fatalf("EditReply after Reply error = %v, want ErrAlreadyReplied", err)
	}

	if len(responder.replies) != 1 || responder.replies[0] != "первый" {
		t.Fatalf("replies = %v, want exactly the first one", responder.replies)
	}
	if !ic.Replied() {
		t.Fatalf("Replied() must report true after a reply")
	}
}

func TestInteraction_FailedReplyAllowsRetry(t *testing.T) {
	responder := &stubResponder{err: errors.New("network down")}
	ic := NewInteraction("point-check", "123456789", "987654321", responder)

	if err := ic.Reply(context.Background(), "текст"); err == nil {
		t.Fatalf("Reply must propagate responder error")
	}
	if ic.Replied() {
		t.Fatalf("failed reply must not mark interaction as replied")
	}

	responder.err = nil
	if err := ic.Reply(context.Background(), "текст"); err != nil {
		t.Fatalf("retry after transport error: %v", err)
	}
}
