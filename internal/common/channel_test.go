package common

import "testing"

func TestChannelSendReceive(t *testing.T) {
	sender, receiver := NewChannel[int]()

	if leftover := sender.Send(7); leftover != nil {
		t.Fatalf("Send returned leftover %v before receiver closed", *leftover)
	}

	got := <-receiver.Channel
	if got != 7 {
		t.Fatalf("got %d, want 7", got)
	}
}

func TestChannelSendAfterReceiverClosed(t *testing.T) {
	sender, receiver := NewChannel[int]()
	receiver.Close()

	leftover := sender.Send(9)
	if leftover == nil || *leftover != 9 {
		t.Fatalf("Send after Close = %v, want leftover 9", leftover)
	}
}
