package observability

import (
	"context"
	"testing"
)

func TestStartSpanWithoutProvider(t *testing.T) {
	ctx, span := StartSpan(context.Background(), "test.op")
	if ctx == nil {
		t.Fatal("nil context")
	}
	span.End()
}

func TestServiceHealthAggregation(t *testing.T) {
	sh := NewServiceHealth("voicediag", "1.0.0")
	if sh.Status != HealthStatusUp {
		t.Fatalf("initial status = %s", sh.Status)
	}

	sh.AddComponent(Health{Name: "database", Status: HealthStatusUp})
	if sh.Status != HealthStatusUp {
		t.Errorf("status after up component = %s", sh.Status)
	}

	sh.AddComponent(Health{Name: "llm", Status: HealthStatusDegraded})
	if sh.Status != HealthStatusDegraded {
		t.Errorf("status after degraded component = %s", sh.Status)
	}

	sh.AddComponent(Health{Name: "classifier", Status: HealthStatusDown})
	if sh.Status != HealthStatusDown {
		t.Errorf("status after down component = %s", sh.Status)
	}

	// Down is sticky even if later components are healthy.
	sh.AddComponent(Health{Name: "storage", Status: HealthStatusUp})
	if sh.Status != HealthStatusDown {
		t.Errorf("status lost down state: %s", sh.Status)
	}
}
