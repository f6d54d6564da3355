package broker

import (
	"fmt"
	"testing"
)

func TestFrameQueueFIFO(t *testing.T) {
	q := newFrameQueue(4)
	q.Push([]byte("a"))
	q.Push([]byte("b"))
	q.Push([]byte("c"))

	for _, want := range []string{"a", "b", "c"} {
		got, ok := q.Pop()
		if !ok {
			t.Fatalf("Pop() empty, want %q", want)
		}
		if string(got) != want {
			t.Errorf("Pop() = %q, want %q", got, want)
		}
	}
	if _, ok := q.Pop(); ok {
		t.Error("Pop() on drained queue returned a frame")
	}
}

func TestFrameQueueOldestDrop(t *testing.T) {
	tests := []struct {
		name         string
		capacity     int
		pushes       int
		wantRetained []string
		wantOverflow uint64
	}{
		{
			name:         "no overflow below capacity",
			capacity:     4,
			pushes:       3,
			wantRetained: []string{"m0", "m1", "m2"},
			wantOverflow: 0,
		},
		{
			name:         "exactly full",
			capacity:     3,
			pushes:       3,
			wantRetained: []string{"m0", "m1", "m2"},
			wantOverflow: 0,
		},
		{
			name:         "overflow keeps newest",
			capacity:     3,
			pushes:       7,
			wantRetained: []string{"m4", "m5", "m6"},
			wantOverflow: 4,
		},
		{
			name:         "capacity one always holds latest",
			capacity:     1,
			pushes:       5,
			wantRetained: []string{"m4"},
			wantOverflow: 4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := newFrameQueue(tt.capacity)
			for i := 0; i < tt.pushes; i++ {
				q.Push([]byte(fmt.Sprintf("m%d", i)))
			}

			if got := q.Overflow(); got != tt.wantOverflow {
				t.Errorf("Overflow() = %d, want %d", got, tt.wantOverflow)
			}

			drained := q.Drain()
			if len(drained) != len(tt.wantRetained) {
				t.Fatalf("Drain() returned %d frames, want %d", len(drained), len(tt.wantRetained))
			}
			for i, want := range tt.wantRetained {
				if string(drained[i]) != want {
					t.Errorf("Drain()[%d] = %q, want %q", i, drained[i], want)
				}
			}
		})
	}
}

func TestFrameQueueUtilization(t *testing.T) {
	q := newFrameQueue(10)
	if got := q.Utilization(); got != 0 {
		t.Errorf("Utilization() on empty = %v, want 0", got)
	}
	for i := 0; i < 8; i++ {
		q.Push([]byte("x"))
	}
	if got := q.Utilization(); got != 0.8 {
		t.Errorf("Utilization() = %v, want 0.8", got)
	}
	q.Pop()
	q.Pop()
	q.Pop()
	if got := q.Utilization(); got != 0.5 {
		t.Errorf("Utilization() = %v, want 0.5", got)
	}
}

func TestFrameQueuePushPopInterleaved(t *testing.T) {
	q := newFrameQueue(2)
	q.Push([]byte("a"))
	q.Push([]byte("b"))
	q.Push([]byte("c")) // drops a
	if got, _ := q.Pop(); string(got) != "b" {
		t.Errorf("Pop() = %q, want b", got)
	}
	q.Push([]byte("d"))
	q.Push([]byte("e")) // drops c
	if got, _ := q.Pop(); string(got) != "d" {
		t.Errorf("Pop() = %q, want d", got)
	}
	if got, _ := q.Pop(); string(got) != "e" {
		t.Errorf("Pop() = %q, want e", got)
	}
	if got := q.Overflow(); got != 2 {
		t.Errorf("Overflow() = %d, want 2", got)
	}
}
