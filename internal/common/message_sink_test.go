package common

import "testing"

func TestMessageSinkTagsSender(t *testing.T) {
	ch := make(chan Message[string, int], 4)
	sink := NewMessageSink[string, int]("peer-1", ch)

	if err := sink.Send(42); err != nil {
		t.Fatalf("Send: %v", err)
	}

	got := <-ch
	if got.Sender != "peer-1" || got.Content != 42 {
		t.Fatalf("got %+v, want Sender=peer-1 Content=42", got)
	}
}

func TestMessageSinkTrySendFull(t *testing.T) {
	ch := make(chan Message[string, int], 1)
	sink := NewMessageSink[string, int]("peer-1", ch)

	if err := sink.TrySend(1); err != nil {
		t.Fatalf("first TrySend: %v", err)
	}
	if err := sink.TrySend(2); err != ErrSinkFull {
		t.Fatalf("second TrySend = %v, want ErrSinkFull", err)
	}
}

func TestMessageSinkSealed(t *testing.T) {
	ch := make(chan Message[string, int], 1)
	sink := NewMessageSink[string, int]("peer-1", ch)

	sink.Seal()

	if err := sink.Send(1); err != ErrSinkSealed {
		t.Fatalf("Send after Seal = %v, want ErrSinkSealed", err)
	}
	if err := sink.TrySend(1); err != ErrSinkSealed {
		t.Fatalf("TrySend after Seal = %v, want ErrSinkSealed", err)
	}
}
