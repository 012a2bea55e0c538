package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/hibiken/asynq"
)

type testSchedulerConfig struct {
	redisURL string
}

func (c testSchedulerConfig) GetRedisURL() string                     { return c.redisURL }
func (c testSchedulerConfig) GetRedisTLSInsecure() bool               { return false }
func (c testSchedulerConfig) GetAsynqQueueName() string               { return "test" }
func (c testSchedulerConfig) GetAsynqConcurrency() int                { return 1 }
func (c testSchedulerConfig) GetRerouteSweepInterval() time.Duration  { return time.Hour }
func (c testSchedulerConfig) GetReminderSweepInterval() time.Duration { return time.Minute }
func (c testSchedulerConfig) GetSLASweepInterval() time.Duration      { return time.Hour }

func TestEnqueueSweepDeduplicatesPerTaskType(t *testing.T) {
	srv := miniredis.RunT(t)
	cfg := testSchedulerConfig{redisURL: "redis://" + srv.Addr()}

	client, err := NewClient(cfg)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	defer client.Close()

	ctx := context.Background()
	if err := client.EnqueueSweep(ctx, TaskRerouteSweep); err != nil {
		t.Fatalf("EnqueueSweep() error = %v", err)
	}
	// Same sweep again while the first is still queued must be a silent no-op.
	if err := client.EnqueueSweep(ctx, TaskRerouteSweep); err != nil {
		t.Fatalf("EnqueueSweep() second call error = %v", err)
	}

	opt, err := redisClientOpt(cfg.redisURL, false)
	if err != nil {
		t.Fatalf("redisClientOpt() error = %v", err)
	}
	inspector := asynq.NewInspector(opt)
	defer inspector.Close()

	tasks, err := inspector.ListPendingTasks("test")
	if err != nil {
		t.Fatalf("ListPendingTasks() error = %v", err)
	}
	if len(tasks) != 1 {
		t.Fatalf("got %d pending tasks, want 1", len(tasks))
	}
	if tasks[0].Type != TaskRerouteSweep {
		t.Errorf("task type = %q, want %q", tasks[0].Type, TaskRerouteSweep)
	}
}

func TestNewClientRequiresRedisURL(t *testing.T) {
	if _, err := NewClient(testSchedulerConfig{}); err == nil {
		t.Fatal("NewClient() with empty redis url, want error")
	}
}
