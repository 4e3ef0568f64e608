package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/yuya-takeyama/mvsync/pkg/executor"
	"github.com/yuya-takeyama/mvsync/pkg/oracle"
	"github.com/yuya-takeyama/mvsync/pkg/planner"
)

// PlanResult represents the planned operations before execution
type PlanResult struct {
	Files   []PlanFile  `json:"files"`
	Summary PlanSummary `json:"summary"`
}

type PlanFile struct {
	Action string `json:"action"` // "rename", "copy"
	Source string `json:"source"`
	Target string `json:"target"`
	Reason string `json:"reason"`
}

type PlanSummary struct {
	Rename int `json:"rename"`
	Copy   int `json:"copy"`
}

// SyncResult represents the actual execution results
type SyncResult struct {
	Files   []ResultFile  `json:"files"`
	Errors  []ErrorFile   `json:"errors"`
	Summary ResultSummary `json:"summary"`
}

type ResultFile struct {
	Action string `json:"action"` // "renamed"
	Source string `json:"source"`
	Target string `json:"target"`
}

type ErrorFile struct {
	Action string `json:"action"` // "rename"
	Source string `json:"source"`
	Target string `json:"target"`
	Error  string `json:"error"`
}

type ResultSummary struct {
	Renamed int `json:"renamed"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
}

func writePlanResult(path string, src *oracle.Endpoint, items []planner.Item) error {
	plan := PlanResult{Files: []PlanFile{}}

	for _, item := range items {
		plan.Files = append(plan.Files, PlanFile{
			Action: string(item.Action),
			Source: src.Oracle.Join(src.Root, item.Source),
			Target: src.Oracle.Join(src.Root, item.Target),
			Reason: item.Reason,
		})
		switch item.Action {
		case planner.ActionRename:
			plan.Summary.Rename++
		case planner.ActionCopy:
			plan.Summary.Copy++
		}
	}

	return writeJSON(path, plan)
}

func buildSyncResult(src *oracle.Endpoint, results []executor.Result) SyncResult {
	result := SyncResult{
		Files:  []ResultFile{},
		Errors: []ErrorFile{},
	}

	for _, r := range results {
		source := src.Oracle.Join(src.Root, r.Item.Source)
		target := src.Oracle.Join(src.Root, r.Item.Target)

		switch {
		case r.Skipped:
			result.Summary.Skipped++
		case r.Error != nil:
			result.Errors = append(result.Errors, ErrorFile{
				Action: string(planner.ActionRename),
				Source: source,
				Target: target,
				Error:  r.Error.Error(),
			})
			result.Summary.Failed++
		default:
			result.Files = append(result.Files, ResultFile{
				Action: "renamed",
				Source: source,
				Target: target,
			})
			result.Summary.Renamed++
		}
	}

	return result
}

func writeSyncResult(path string, result SyncResult) error {
	return writeJSON(path, result)
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	return nil
}
