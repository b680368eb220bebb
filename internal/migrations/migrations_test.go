package migrations

import (
	"strings"
	"testing"
)

func TestNames_Ordered(t *testing.T) {
	names, err := Names()
	if err != nil {
		t.Fatalf("names: %v", err)
	}
	if len(names) < 3 {
		t.Fatalf("expected at least 3 migrations, got %v", names)
	}
	for i := 1; i < len(names); i++ {
		if names[i-1] >= names[i] {
			t.Fatalf("migrations out of order: %v", names)
		}
	}
}

func TestNotifyTriggerUsesListenerChannel(t *testing.T) {
	sql, err := Read("002_tasks_notify.sql")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(sql, "pg_notify('tasks_changed'") {
		t.Fatalf("trigger does not notify tasks_changed")
	}
}
