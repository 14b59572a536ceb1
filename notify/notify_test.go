package notify

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestQueueDrain(t *testing.T) {
	q := NewQueue(0)
	q.Notify(Notification{Title: "a"})
	q.Notify(Notification{Title: "b", Variant: VariantDestructive})

	if q.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", q.Len())
	}

	got := q.Drain()
	if len(got) != 2 || got[0].Title != "a" || got[1].Title != "b" {
		t.Fatalf("Drain() = %+v, want [a b]", got)
	}
	if rest := q.Drain(); len(rest) != 0 {
		t.Errorf("second Drain() = %+v, want empty", rest)
	}
}

func TestQueueDropsOldest(t *testing.T) {
	q := NewQueue(2)
	for _, title := range []string{"1", "2", "3"} {
		q.Notify(Notification{Title: title})
	}

	got := q.Drain()
	if len(got) != 2 || got[0].Title != "2" || got[1].Title != "3" {
		t.Fatalf("Drain() = %+v, want [2 3]", got)
	}
}

func TestLoggerAndMulti(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, nil))
	q := NewQueue(4)

	n := Multi(Logger(log), nil, q)
	n.Notify(Notification{Title: "Empty Input", Description: "Please enter some text or a URL first.", Variant: VariantDestructive})
	n.Notify(Notification{Title: "Success", Description: "QR code downloaded successfully!"})

	out := buf.String()
	if !strings.Contains(out, "level=WARN") || !strings.Contains(out, "Empty Input") {
		t.Errorf("warn line missing from log output: %s", out)
	}
	if !strings.Contains(out, "level=INFO") || !strings.Contains(out, "Success") {
		t.Errorf("info line missing from log output: %s", out)
	}
	if q.Len() != 2 {
		t.Errorf("queue Len() = %d, want 2", q.Len())
	}
}
