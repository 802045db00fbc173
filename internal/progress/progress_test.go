package progress

import (
	"testing"
)

// drain reads all currently buffered events from ch without blocking
// on an open channel.
func drain(ch <-chan Event) []Event {
	var events []Event
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return events
			}
			events = append(events, ev)
		default:
			return events
		}
	}
}

func TestAdvancePercentages(t *testing.T) {
	r := NewReporter()
	r.StartSession("s1", 4)
	ch, cancel := r.Subscribe("s1")
	defer cancel()

	r.Advance("s1", StepProcessing, 1, "file-1.png")
	r.Advance("s1", StepProcessing, 1, "file-2.png")

	events := drain(ch)
	if len(events) != 2 {
		t.Fatalf("received %d events, want 2", len(events))
	}
	if events[0].PercentComplete != 25 {
		t.Errorf("first percent = %v, want 25", events[0].PercentComplete)
	}
	if events[1].PercentComplete != 50 {
		t.Errorf("second percent = %v, want 50", events[1].PercentComplete)
	}
	if events[0].Step != StepProcessing {
		t.Errorf("step = %q, want %q", events[0].Step, StepProcessing)
	}
	if events[0].ElapsedSeconds < 0 {
		t.Errorf("elapsed = %v, want >= 0", events[0].ElapsedSeconds)
	}
	if events[0].EstimatedRemainingSeconds < 0 {
		t.Errorf("estimated remaining = %v, want >= 0", events[0].EstimatedRemainingSeconds)
	}
}

func TestPercentMonotonic(t *testing.T) {
	r := NewReporter()
	r.StartSession("s1", 3)
	ch, cancel := r.Subscribe("s1")
	defer cancel()

	r.Emit("s1", StepDuplicateCheck, "seeding index")
	r.Advance("s1", StepProcessing, 1, "a.png")
	r.Emit("s1", StepProcessing, "between files")
	r.Advance("s1", StepProcessing, 2, "rest")
	r.Emit("s1", StepMockupTrigger, "triggering mockups")

	last := -1.0
	for _, ev := range drain(ch) {
		if ev.PercentComplete < last {
			t.Errorf("percent regressed from %v to %v at step %q", last, ev.PercentComplete, ev.Step)
		}
		last = ev.PercentComplete
	}
	if last != 100 {
		t.Errorf("final observed percent = %v, want 100", last)
	}
}

func TestFinishClosesSubscribers(t *testing.T) {
	r := NewReporter()
	r.StartSession("s1", 1)
	ch, cancel := r.Subscribe("s1")
	defer cancel()

	r.Advance("s1", StepProcessing, 1, "only.png")
	r.Finish("s1", "session completed")

	var sawFinal bool
	for ev := range ch {
		if ev.Final {
			sawFinal = true
			if ev.Step != StepFinalizing {
				t.Errorf("final step = %q, want %q", ev.Step, StepFinalizing)
			}
		}
	}
	if !sawFinal {
		t.Error("never received final event before channel close")
	}
}

func TestSlowSubscriberDoesNotBlock(t *testing.T) {
	r := NewReporter()
	r.StartSession("s1", 1000)
	_, cancel := r.Subscribe("s1")
	defer cancel()

	// Far more events than the subscriber buffer holds; the test
	// passes by not deadlocking.
	for i := 0; i < 200; i++ {
		r.Advance("s1", StepProcessing, 1, "f")
	}
	r.Finish("s1", "done")
}

func TestSubscribeUnknownSession(t *testing.T) {
	r := NewReporter()

	ch, cancel := r.Subscribe("never-started")
	defer cancel()

	select {
	case _, ok := <-ch:
		if ok {
			t.Error("received event from unknown session, want closed channel")
		}
	default:
		t.Error("channel for unknown session is open, want closed")
	}
}

func TestSubscribeAfterFinish(t *testing.T) {
	r := NewReporter()
	r.StartSession("s1", 1)
	r.Finish("s1", "done")

	ch, cancel := r.Subscribe("s1")
	defer cancel()

	if _, ok := <-ch; ok {
		t.Error("subscription after finish delivered an event, want closed channel")
	}
}

func TestCancelUnsubscribes(t *testing.T) {
	r := NewReporter()
	r.StartSession("s1", 2)

	ch, cancel := r.Subscribe("s1")
	cancel()

	if _, ok := <-ch; ok {
		t.Error("cancelled subscription channel still open")
	}

	// Publishing after cancel must not panic or deliver.
	r.Advance("s1", StepProcessing, 1, "a.png")
	r.Finish("s1", "done")
}

func TestUnknownSessionOpsAreNoops(t *testing.T) {
	r := NewReporter()

	// None of these should panic.
	r.Advance("ghost", StepProcessing, 1, "x")
	r.Emit("ghost", StepProcessing, "x")
	r.Finish("ghost", "x")
}
