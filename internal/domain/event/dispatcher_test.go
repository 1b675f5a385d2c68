package event

import (
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestInMemoryDispatcher_RoutesByName(t *testing.T) {
	d := NewInMemoryDispatcher(nil)

	var skipped, all []string
	d.Subscribe(HandlerFunc{
		Names: []string{NameAttachmentSkipped},
		Fn: func(e DomainEvent) error {
			skipped = append(skipped, e.EventName())
			return nil
		},
	})
	d.Subscribe(HandlerFunc{
		Names: []string{"*"},
		Fn: func(e DomainEvent) error {
			all = append(all, e.EventName())
			return nil
		},
	})

	d.Dispatch(NewAttachmentDownloaded("1", "https://x/a", "a.txt", "attachments/a.txt", 3, "session-same-origin", time.Millisecond))
	d.Dispatch(NewAttachmentSkipped("https://x/b", "b.txt", "all strategies failed"))
	d.Dispatch(NewBatchCompleted(1, 1, 0, time.Second))

	if len(skipped) != 1 || skipped[0] != NameAttachmentSkipped {
		t.Errorf("expected one skipped event, got %v", skipped)
	}
	want := []string{NameAttachmentDownloaded, NameAttachmentSkipped, NameBatchCompleted}
	if len(all) != len(want) {
		t.Fatalf("expected %d events, got %v", len(want), all)
	}
	for i := range want {
		if all[i] != want[i] {
			t.Errorf("event %d: expected %s, got %s", i, want[i], all[i])
		}
	}
}

func TestInMemoryDispatcher_ReportsHandlerErrors(t *testing.T) {
	var reported error
	d := NewInMemoryDispatcher(func(e DomainEvent, err error) {
		reported = err
	})

	boom := errors.New("boom")
	d.Subscribe(HandlerFunc{
		Names: []string{NameBatchCompleted},
		Fn:    func(DomainEvent) error { return boom },
	})
	d.Subscribe(NewLoggingHandler(zap.NewNop()))

	d.Dispatch(NewBatchCompleted(0, 0, 0, 0))

	if !errors.Is(reported, boom) {
		t.Errorf("expected handler error to be reported, got %v", reported)
	}
}

func TestNullDispatcher(t *testing.T) {
	var d EventDispatcher = NullDispatcher{}
	d.Subscribe(HandlerFunc{Names: []string{"*"}, Fn: func(DomainEvent) error {
		t.Fatal("null dispatcher must not deliver events")
		return nil
	}})
	d.Dispatch(NewBatchCompleted(0, 0, 0, 0))
}
