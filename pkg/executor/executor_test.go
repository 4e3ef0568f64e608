package executor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/yuya-takeyama/mvsync/pkg/oracle"
	"github.com/yuya-takeyama/mvsync/pkg/phase"
	"github.com/yuya-takeyama/mvsync/pkg/planner"
)

type mockRenamer struct {
	renameFunc func(ctx context.Context, from, to string) error
	calls      []string
}

func (m *mockRenamer) Rename(ctx context.Context, from, to string) error {
	m.calls = append(m.calls, from+" -> "+to)
	if m.renameFunc != nil {
		return m.renameFunc(ctx, from, to)
	}
	return nil
}

func (m *mockRenamer) Join(root, rel string) string {
	return root + "/" + rel
}

type mockLogger struct {
	renames []string
	copies  []string
	errors  []string
}

func (m *mockLogger) Rename(source, target string) {
	m.renames = append(m.renames, source+" -> "+target)
}

func (m *mockLogger) Copy(source, target string) {
	m.copies = append(m.copies, source+" -> "+target)
}

func (m *mockLogger) Error(operation, path string, err error) {
	m.errors = append(m.errors, fmt.Sprintf("%s %s: %v", operation, path, err))
}

func (m *mockLogger) Debug(format string, args ...interface{}) {}

func (m *mockLogger) PhaseStart(phase string, totalItems int) {}

func (m *mockLogger) PhaseComplete(phase string, processedItems int) {}

func TestExecute(t *testing.T) {
	items := []planner.Item{
		{Action: planner.ActionRename, Source: "a", Target: "x/a"},
		{Action: planner.ActionRename, Source: "b", Target: "y/b"},
		{Action: planner.ActionCopy, Source: "a", Target: "z/a"},
	}

	tests := []struct {
		name      string
		dryRun    bool
		wantCalls []string
	}{
		{
			name:      "live",
			wantCalls: []string{"root/a -> root/x/a", "root/b -> root/y/b"},
		},
		{
			name:   "dry run",
			dryRun: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			renamer := &mockRenamer{}
			log := &mockLogger{}

			results, err := NewExecutor(renamer, "root", log, tt.dryRun).Execute(context.Background(), items)
			if err != nil {
				t.Fatalf("Execute() error = %v", err)
			}
			if !reflect.DeepEqual(renamer.calls, tt.wantCalls) {
				t.Errorf("rename calls = %v, want %v", renamer.calls, tt.wantCalls)
			}
			if len(results) != 2 {
				t.Errorf("got %d results, want 2", len(results))
			}
			wantRenames := []string{"a -> x/a", "b -> y/b"}
			if !reflect.DeepEqual(log.renames, wantRenames) {
				t.Errorf("reported renames = %v, want %v", log.renames, wantRenames)
			}
			if !reflect.DeepEqual(log.copies, []string{"a -> z/a"}) {
				t.Errorf("reported copies = %v", log.copies)
			}
		})
	}
}

func TestExecuteStopsAtFirstFailure(t *testing.T) {
	boom := errors.New("disk full")
	renamer := &mockRenamer{
		renameFunc: func(ctx context.Context, from, to string) error {
			if from == "root/b" {
				return boom
			}
			return nil
		},
	}
	log := &mockLogger{}
	items := []planner.Item{
		{Action: planner.ActionRename, Source: "a", Target: "a2"},
		{Action: planner.ActionRename, Source: "b", Target: "b2"},
		{Action: planner.ActionRename, Source: "c", Target: "c2"},
		{Action: planner.ActionCopy, Source: "a", Target: "a3"},
	}

	results, err := NewExecutor(renamer, "root", log, false).Execute(context.Background(), items)
	if !errors.Is(err, boom) {
		t.Fatalf("Execute() error = %v, want %v", err, boom)
	}
	if phase.Of(err) != phase.Rename {
		t.Errorf("phase = %q, want %q", phase.Of(err), phase.Rename)
	}

	wantCalls := []string{"root/a -> root/a2", "root/b -> root/b2"}
	if !reflect.DeepEqual(renamer.calls, wantCalls) {
		t.Errorf("rename calls = %v, want %v", renamer.calls, wantCalls)
	}
	if len(results) != 3 || results[0].Error != nil || results[1].Error == nil || !results[2].Skipped {
		t.Errorf("results = %+v", results)
	}
	if len(log.errors) != 1 || len(log.copies) != 0 {
		t.Errorf("errors = %v, copies = %v", log.errors, log.copies)
	}
}

// sizeLimitedRenamer refuses renames above limit
type sizeLimitedRenamer struct {
	mockRenamer
	limit int64
}

func (m *sizeLimitedRenamer) CheckRenameSize(size int64) error {
	if size > m.limit {
		return oracle.ErrTooLargeToRename
	}
	return nil
}

func TestExecuteChecksSizesFirst(t *testing.T) {
	items := []planner.Item{
		{Action: planner.ActionRename, Source: "a", Target: "a2", Size: 10},
		{Action: planner.ActionRename, Source: "big", Target: "big2", Size: 100},
		{Action: planner.ActionCopy, Source: "a", Target: "a3", Size: 10},
		{Action: planner.ActionRename, Source: "c", Target: "c2", Size: 10},
	}

	for _, dryRun := range []bool{false, true} {
		t.Run(fmt.Sprintf("dryRun=%v", dryRun), func(t *testing.T) {
			renamer := &sizeLimitedRenamer{limit: 50}
			log := &mockLogger{}

			results, err := NewExecutor(renamer, "root", log, dryRun).Execute(context.Background(), items)
			if !errors.Is(err, oracle.ErrTooLargeToRename) {
				t.Fatalf("Execute() error = %v, want ErrTooLargeToRename", err)
			}
			if phase.Of(err) != phase.Rename {
				t.Errorf("phase = %q, want %q", phase.Of(err), phase.Rename)
			}
			if len(renamer.calls) != 0 {
				t.Errorf("rename calls = %v, want none", renamer.calls)
			}
			if len(results) != 3 || !results[0].Skipped || results[1].Error == nil || !results[2].Skipped {
				t.Errorf("results = %+v", results)
			}
			if len(log.errors) != 1 || len(log.renames) != 0 || len(log.copies) != 0 {
				t.Errorf("errors = %v, renames = %v, copies = %v", log.errors, log.renames, log.copies)
			}
		})
	}
}

func TestExecuteLocalCollision(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"a", "b"} {
		if err := os.WriteFile(filepath.Join(root, name), []byte(name), 0644); err != nil {
			t.Fatal(err)
		}
	}

	items := []planner.Item{{Action: planner.ActionRename, Source: "a", Target: "b"}}
	_, err := NewExecutor(oracle.NewLocal(nil), root, &mockLogger{}, false).Execute(context.Background(), items)
	if !errors.Is(err, oracle.ErrTargetExists) {
		t.Fatalf("Execute() error = %v, want ErrTargetExists", err)
	}

	data, _ := os.ReadFile(filepath.Join(root, "b"))
	if string(data) != "b" {
		t.Errorf("target overwritten: %q", data)
	}
}
