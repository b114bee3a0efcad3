package progress

import (
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestRegistry_Lifecycle(t *testing.T) {
	r := NewRegistry(time.Minute, zap.NewNop())

	id := r.Create()
	rec, ok := r.Get(id)
	if !ok {
		t.Fatal("job must exist after Create")
	}
	if rec.Status != StatusRunning || rec.Step != "queued" {
		t.Errorf("unexpected initial record %+v", rec)
	}

	r.Update(id, "resolve", 40, "Поиск признаков")
	rec, _ = r.Get(id)
	if rec.Step != "resolve" || rec.Progress != 40 || rec.Message != "Поиск признаков" {
		t.Errorf("unexpected record after update %+v", rec)
	}

	r.Done(id, map[string]any{"answer": "ответ"})
	rec, _ = r.Get(id)
	if rec.Status != StatusDone || rec.Progress != 100 {
		t.Errorf("unexpected finished record %+v", rec)
	}
	if rec.Result == nil {
		t.Error("result must be attached")
	}
}

func TestRegistry_Fail(t *testing.T) {
	r := NewRegistry(time.Minute, zap.NewNop())
	id := r.Create()

	r.Fail(id, "Не удалось обработать запрос")
	rec, _ := r.Get(id)
	if rec.Status != StatusError || rec.Error == "" {
		t.Errorf("unexpected failed record %+v", rec)
	}
}

func TestRegistry_LateUpdatesIgnored(t *testing.T) {
	r := NewRegistry(time.Minute, zap.NewNop())
	id := r.Create()
	r.Done(id, nil)

	r.Update(id, "resolve", 40, "поздно")
	r.Fail(id, "тоже поздно")

	rec, _ := r.Get(id)
	if rec.Status != StatusDone || rec.Step == "resolve" || rec.Error != "" {
		t.Errorf("finished record must be immutable, got %+v", rec)
	}
}

func TestRegistry_UnknownJob(t *testing.T) {
	r := NewRegistry(time.Minute, zap.NewNop())
	if _, ok := r.Get("нет-такого"); ok {
		t.Error("unknown id must report absence")
	}
	// Операции по несуществующему id не паникуют.
	r.Update("нет-такого", "s", 1, "m")
	r.Done("нет-такого", nil)
}

func TestRegistry_SweepDropsOnlyExpiredFinished(t *testing.T) {
	r := NewRegistry(time.Minute, zap.NewNop())

	running := r.Create()
	finished := r.Create()
	r.Done(finished, nil)

	if n := r.Sweep(time.Now()); n != 0 {
		t.Fatalf("fresh jobs must survive, removed %d", n)
	}

	if n := r.Sweep(time.Now().Add(2 * time.Minute)); n != 1 {
		t.Fatalf("expected 1 expired job removed, got %d", n)
	}
	if _, ok := r.Get(finished); ok {
		t.Error("expired finished job must be gone")
	}
	if _, ok := r.Get(running); !ok {
		t.Error("running job must never be swept")
	}
}
