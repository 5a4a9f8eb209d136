package main

import (
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"github.com/davidahmann/specgate/pkg/types"
)

func levelColor(level types.Level) *color.Color {
	switch level {
	case types.LevelHigh:
		return color.New(color.FgHiGreen, color.Bold)
	case types.LevelMedium:
		return color.New(color.FgHiYellow, color.Bold)
	default:
		return color.New(color.FgHiRed, color.Bold)
	}
}

func statusColor(status types.WorkflowStatus) *color.Color {
	switch status {
	case types.StatusAutoApprove, types.StatusApproved, types.StatusFixed:
		return color.New(color.FgHiGreen)
	case types.StatusHITLReviewPending, types.StatusMandatoryFixPending:
		return color.New(color.FgHiYellow)
	default:
		return color.New(color.FgHiRed)
	}
}

func renderResult(w io.Writer, result types.QualityResult) error {
	verdict := levelColor(result.Level).Sprintf("score=%d level=%s", result.Score, result.Level)
	fmt.Fprintf(w, "%s action=%s\n", verdict, result.Metadata.ProcessingResult.Action)
	if msg := result.Metadata.ProcessingResult.Message; msg != "" {
		fmt.Fprintln(w, msg)
	}

	if len(result.Violations) > 0 {
		fmt.Fprintln(w)
		table := tablewriter.NewWriter(w)
		if err := table.Append([]string{"TYPE", "PENALTY", "MESSAGE"}); err != nil {
			return err
		}
		for _, v := range result.Violations {
			if err := table.Append([]string{v.Type, strconv.Itoa(v.Penalty), v.Message}); err != nil {
				return err
			}
		}
		if err := table.Render(); err != nil {
			return err
		}
	}

	fmt.Fprintln(w)
	for _, s := range result.Suggestions {
		fmt.Fprintf(w, "- %s\n", s)
	}
	return nil
}

func renderRecord(w io.Writer, rec types.WorkflowRecord) {
	fmt.Fprintf(w, "workflow_id=%s status=%s score=%d level=%s\n",
		rec.ID, statusColor(rec.Status).Sprint(rec.Status), rec.Score, rec.Level)
	if rec.TicketURL != nil {
		fmt.Fprintf(w, "ticket=%s\n", *rec.TicketURL)
	}
	if rec.Message != "" {
		fmt.Fprintln(w, rec.Message)
	}
}

func renderSummary(w io.Writer, summary types.WorkflowSummary) error {
	fmt.Fprintf(w, "total_workflows=%d\n", summary.TotalWorkflows)

	statuses := make([]string, 0, len(summary.CountsByStatus))
	for st := range summary.CountsByStatus {
		statuses = append(statuses, string(st))
	}
	sort.Strings(statuses)

	table := tablewriter.NewWriter(w)
	if err := table.Append([]string{"STATUS", "COUNT"}); err != nil {
		return err
	}
	for _, st := range statuses {
		n := summary.CountsByStatus[types.WorkflowStatus(st)]
		if err := table.Append([]string{st, strconv.Itoa(n)}); err != nil {
			return err
		}
	}
	if err := table.Render(); err != nil {
		return err
	}

	if len(summary.RecentRecords) > 0 {
		fmt.Fprintln(w, "recent:")
		for _, rec := range summary.RecentRecords {
			fmt.Fprintf(w, "  %s %s %d\n", rec.ID, rec.Status, rec.Score)
		}
	}
	return nil
}
