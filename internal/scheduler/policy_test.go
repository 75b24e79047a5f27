package scheduler

import (
	"testing"
	"time"
)

var base = time.Date(2026, time.March, 10, 9, 30, 0, 0, time.UTC)

func TestEvaluateInterval(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		minutes  uint32
		strategy Strategy
		elapsed  uint64
		want     EventKind
		finished bool
		progress Progress
	}{
		{name: "arming pass is silent", minutes: 2, strategy: Once, elapsed: 0, want: 0},
		{name: "arming pass is silent for one minute", minutes: 1, strategy: Forever, elapsed: 0, want: 0},
		{name: "not due ticks", minutes: 3, strategy: Once, elapsed: 1, want: EventTick, progress: Progress{1, 3}},
		{name: "once due finishes", minutes: 2, strategy: Once, elapsed: 2, want: EventFinish, finished: true, progress: Progress{2, 2}},
		{name: "daily due cycles", minutes: 2, strategy: Daily, elapsed: 4, want: EventFinishCycle, progress: Progress{2, 2}},
		{name: "forever between cycles ticks", minutes: 2, strategy: Forever, elapsed: 5, want: EventTick, progress: Progress{1, 2}},
		{name: "monthly interval cycles", minutes: 5, strategy: Monthly, elapsed: 10, want: EventFinishCycle, progress: Progress{5, 5}},
		{name: "zero interval never fires", minutes: 0, strategy: Once, elapsed: 7, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			st := taskState{trigger: Interval{Minutes: tt.minutes}, strategy: tt.strategy}
			got := evaluate(st, tt.elapsed, base)

			if got.kind != tt.want {
				t.Fatalf("kind = %v, want %v", got.kind, tt.want)
			}
			if got.finished != tt.finished {
				t.Errorf("finished = %v, want %v", got.finished, tt.finished)
			}
			if got.trigger != nil {
				t.Errorf("interval trigger rewritten to %v", got.trigger)
			}
			if !got.next.IsZero() {
				t.Errorf("next = %v, want zero", got.next)
			}
			if got.kind != 0 && got.progress != tt.progress {
				t.Errorf("progress = %+v, want %+v", got.progress, tt.progress)
			}
		})
	}
}

func TestEvaluateDate_NotDue(t *testing.T) {
	t.Parallel()

	st := taskState{
		trigger:    AbsoluteDate{At: base.Add(2 * time.Minute)},
		strategy:   Once,
		cycleStart: base,
	}

	got := evaluate(st, 0, base.Add(30*time.Second))
	if got.kind != EventTick {
		t.Fatalf("kind = %v, want tick", got.kind)
	}
	if want := (Progress{Current: 30, Total: 120}); got.progress != want {
		t.Errorf("progress = %+v, want %+v", got.progress, want)
	}
	if got.finished {
		t.Error("tick must not finish the task")
	}
}

func TestEvaluateDate_Once(t *testing.T) {
	t.Parallel()

	st := taskState{trigger: AbsoluteDate{At: base}, strategy: Once, cycleStart: base.Add(-time.Minute)}

	got := evaluate(st, 3, base)
	if got.kind != EventFinish || !got.finished {
		t.Fatalf("got kind=%v finished=%v, want finish", got.kind, got.finished)
	}

	st.pastDue = true
	got = evaluate(st, 0, base)
	if got.kind != EventExpired || !got.finished {
		t.Fatalf("got kind=%v finished=%v, want expired", got.kind, got.finished)
	}
}

func TestEvaluateDate_DailyAndForever(t *testing.T) {
	t.Parallel()

	for _, strategy := range []Strategy{Daily, Forever} {
		t.Run(strategy.String(), func(t *testing.T) {
			t.Parallel()

			st := taskState{trigger: AbsoluteDate{At: base}, strategy: strategy, cycleStart: base.Add(-time.Hour)}
			got := evaluate(st, 60, base)

			want := base.Add(24 * time.Hour)
			if got.kind != EventFinishCycle {
				t.Fatalf("kind = %v, want finish_cycle", got.kind)
			}
			if got.finished {
				t.Error("daily task must stay armed")
			}
			if !got.next.Equal(want) {
				t.Errorf("next = %v, want %v", got.next, want)
			}
			if d, ok := got.trigger.(AbsoluteDate); !ok || !d.At.Equal(want) {
				t.Errorf("trigger = %v, want date %v", got.trigger, want)
			}
		})
	}
}

func TestEvaluateDate_DailyLateStepsOneDay(t *testing.T) {
	t.Parallel()

	// The process slept through three occurrences.
	target := base.Add(-72*time.Hour - time.Minute)
	st := taskState{trigger: AbsoluteDate{At: target}, strategy: Daily, cycleStart: target.Add(-time.Hour)}

	got := evaluate(st, 1, base)
	want := target.AddDate(0, 0, 1)
	if got.kind != EventFinishCycle {
		t.Fatalf("kind = %v, want finish_cycle", got.kind)
	}
	if !got.next.Equal(want) {
		t.Errorf("next = %v, want %v", got.next, want)
	}

	// The rewritten trigger is still due: the next pass cycles again.
	st.trigger = got.trigger
	st.cycleStart = base
	again := evaluate(st, 2, base)
	if again.kind != EventFinishCycle || !again.next.Equal(target.AddDate(0, 0, 2)) {
		t.Errorf("second pass = %v next %v, want finish_cycle %v", again.kind, again.next, target.AddDate(0, 0, 2))
	}
}

func TestEvaluateDate_Monthly(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		target   time.Time
		want     time.Time
		finished bool
	}{
		{
			name:   "mid month",
			target: time.Date(2026, time.January, 15, 10, 0, 0, 0, time.UTC),
			want:   time.Date(2026, time.February, 15, 10, 0, 0, 0, time.UTC),
		},
		{
			name:   "december rolls into next year",
			target: time.Date(2026, time.December, 31, 23, 0, 0, 0, time.UTC),
			want:   time.Date(2027, time.January, 31, 23, 0, 0, 0, time.UTC),
		},
		{
			name:     "31st before a 30-day month",
			target:   time.Date(2026, time.March, 31, 8, 0, 0, 0, time.UTC),
			finished: true,
		},
		{
			name:     "30th before february",
			target:   time.Date(2026, time.January, 30, 8, 0, 0, 0, time.UTC),
			finished: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			st := taskState{trigger: AbsoluteDate{At: tt.target}, strategy: Monthly, cycleStart: tt.target.Add(-time.Minute)}
			got := evaluate(st, 1, tt.target)

			if got.kind != EventFinishCycle {
				t.Fatalf("kind = %v, want finish_cycle", got.kind)
			}
			if got.finished != tt.finished {
				t.Fatalf("finished = %v, want %v", got.finished, tt.finished)
			}
			if tt.finished {
				if !got.next.IsZero() || got.trigger != nil {
					t.Errorf("invalid rollover carried next=%v trigger=%v", got.next, got.trigger)
				}
				return
			}
			if !got.next.Equal(tt.want) {
				t.Errorf("next = %v, want %v", got.next, tt.want)
			}
		})
	}
}

func TestNextDay_KeepsWallClock(t *testing.T) {
	t.Parallel()

	loc, err := time.LoadLocation("Europe/Paris")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}

	// Night of the spring-forward transition.
	at := time.Date(2026, time.March, 28, 13, 23, 52, 0, loc)
	next, ok := nextDay(at)
	if !ok {
		t.Fatal("nextDay reported failure")
	}

	if h, m, s := next.Clock(); h != 13 || m != 23 || s != 52 {
		t.Errorf("clock = %02d:%02d:%02d, want 13:23:52", h, m, s)
	}
	if next.Day() != 29 {
		t.Errorf("day = %d, want 29", next.Day())
	}
}

func TestSecondsBetween(t *testing.T) {
	t.Parallel()

	if got := secondsBetween(base, base.Add(90*time.Second)); got != 90 {
		t.Errorf("forward = %d, want 90", got)
	}
	if got := secondsBetween(base, base.Add(-time.Minute)); got != 0 {
		t.Errorf("backward = %d, want 0", got)
	}
}
