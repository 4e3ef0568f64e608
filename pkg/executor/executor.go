package executor

import (
	"context"

	"github.com/yuya-takeyama/mvsync/pkg/logger"
	"github.com/yuya-takeyama/mvsync/pkg/oracle"
	"github.com/yuya-takeyama/mvsync/pkg/phase"
	"github.com/yuya-takeyama/mvsync/pkg/planner"
)

// Renamer is the part of an oracle the executor mutates
type Renamer interface {
	Rename(ctx context.Context, from, to string) error
	Join(root, rel string) string
}

// SizeChecker is implemented by renamers that cannot move files above some size
type SizeChecker interface {
	CheckRenameSize(size int64) error
}

// Executor applies a plan to the source tree, one rename at a time.
// The first failure stops the run; renames already applied stay applied.
type Executor struct {
	renamer Renamer
	root    string
	logger  logger.Logger
	dryRun  bool
}

func NewExecutor(renamer Renamer, root string, logger logger.Logger, dryRun bool) *Executor {
	return &Executor{
		renamer: renamer,
		root:    root,
		logger:  logger,
		dryRun:  dryRun,
	}
}

type Result struct {
	Item    planner.Item
	Error   error
	Skipped bool
}

// Execute reports every item and applies the renames in plan order.
// One Result is returned per rename item. A rename the store cannot perform
// fails the run before anything is touched.
func (e *Executor) Execute(ctx context.Context, items []planner.Item) ([]Result, error) {
	var results []Result
	var failed error

	renames := planner.RenameItems(items)
	e.logger.PhaseStart("rename", len(renames))
	if bad, err := e.checkSizes(renames); err != nil {
		e.logger.Error("rename", renames[bad].Source, err)
		for i, item := range renames {
			if i == bad {
				results = append(results, Result{Item: item, Error: err})
			} else {
				results = append(results, Result{Item: item, Skipped: true})
			}
		}
		e.logger.PhaseComplete("rename", len(results))
		return results, err
	}

	for _, item := range items {
		if failed != nil {
			if item.Action == planner.ActionRename {
				results = append(results, Result{Item: item, Skipped: true})
			}
			continue
		}

		switch item.Action {
		case planner.ActionCopy:
			e.logger.Copy(item.Source, item.Target)

		case planner.ActionRename:
			if err := e.rename(ctx, item); err != nil {
				e.logger.Error("rename", item.Source, err)
				results = append(results, Result{Item: item, Error: err})
				failed = err
				continue
			}
			e.logger.Rename(item.Source, item.Target)
			results = append(results, Result{Item: item})
		}
	}
	e.logger.PhaseComplete("rename", len(results))

	return results, failed
}

// checkSizes returns the index of the first rename the renamer refuses by size
func (e *Executor) checkSizes(renames []planner.Item) (int, error) {
	checker, ok := e.renamer.(SizeChecker)
	if !ok {
		return -1, nil
	}
	for i, item := range renames {
		if err := checker.CheckRenameSize(item.Size); err != nil {
			return i, phase.Wrap(phase.Rename, item.Source, err)
		}
	}
	return -1, nil
}

func (e *Executor) rename(ctx context.Context, item planner.Item) error {
	if e.dryRun {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return phase.Wrap(phase.Rename, item.Source, err)
	}

	from := e.renamer.Join(e.root, item.Source)
	to := e.renamer.Join(e.root, item.Target)
	return phase.Wrap(phase.Rename, from, e.renamer.Rename(ctx, from, to))
}

var (
	_ Renamer     = (oracle.Oracle)(nil)
	_ SizeChecker = (*oracle.S3)(nil)
)
