package mailbox

import (
	"sync"
	"testing"
)

func TestReadAndClearEmptiesSlot(t *testing.T) {
	mb := New()
	mb.Write("bonjour")

	if got := mb.ReadAndClear(); got != "bonjour" {
		t.Errorf("first read = %q, want %q", got, "bonjour")
	}
	if got := mb.ReadAndClear(); got != "" {
		t.Errorf("second read = %q, want empty", got)
	}
}

func TestLastWriteWins(t *testing.T) {
	mb := New()
	mb.Write("A")
	mb.Write("B")

	if got := mb.ReadAndClear(); got != "B" {
		t.Errorf("read = %q, want %q", got, "B")
	}
	if got := mb.ReadAndClear(); got != "" {
		t.Errorf("superseded message resurfaced: %q", got)
	}
}

func TestNewMailboxIsEmpty(t *testing.T) {
	mb := New()
	if got := mb.ReadAndClear(); got != "" {
		t.Errorf("fresh mailbox read = %q, want empty", got)
	}
}

func TestConcurrentWritersLeaveOneCompleteMessage(t *testing.T) {
	mb := New()
	messages := []string{"un", "deux", "trois", "quatre"}

	var wg sync.WaitGroup
	for _, msg := range messages {
		wg.Add(1)
		go func(m string) {
			defer wg.Done()
			mb.Write(m)
		}(msg)
	}
	wg.Wait()

	got := mb.ReadAndClear()
	found := false
	for _, msg := range messages {
		if got == msg {
			found = true
			break
		}
	}
	if !found {
		t.Errorf("read %q, want one complete message from %v", got, messages)
	}
}
