package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/Krive/spbatch/internal/tui"
	"github.com/Krive/spbatch/pkg/spbatch"
)

// batchRequestSpec is the file format accepted by `batch get`/`batch
// console`: one entry per GET to queue, addressed to either family.
type batchRequestSpec struct {
	Family string `json:"family"` // "rest" or "graph"
	URL    string `json:"url"`
}

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Queue and execute a batch of GET requests",
}

var batchGetCmd = &cobra.Command{
	Use:   "get [file]",
	Short: "Execute the GET requests listed in a JSON spec file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		specs, err := loadBatchSpecs(args[0])
		if err != nil {
			return err
		}

		client, err := newClient()
		if err != nil {
			return err
		}

		b := client.EnsureBatch("")
		for _, s := range specs {
			if _, err := queueGet(b, s); err != nil {
				return err
			}
		}

		if err := client.ExecuteBatch(context.Background(), b); err != nil {
			return fmt.Errorf("batch execution failed: %w", err)
		}

		for _, r := range b.Requests() {
			fmt.Printf("[%s] %s -> %d\n%s\n\n", r.ID(), r.Primary.RequestURL, r.ResponseStatus, r.ResponseJSON)
		}
		return nil
	},
}

var batchConsoleCmd = &cobra.Command{
	Use:   "console [file]",
	Short: "Execute the GET requests listed in a JSON spec file with a live progress console",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		specs, err := loadBatchSpecs(args[0])
		if err != nil {
			return err
		}

		client, err := newClient()
		if err != nil {
			return err
		}

		b := client.EnsureBatch("")
		summaries := make([]tui.RequestSummary, 0, len(specs))
		for _, s := range specs {
			req, err := queueGet(b, s)
			if err != nil {
				return err
			}
			summaries = append(summaries, tui.RequestSummary{
				ID:     req.ID(),
				Method: req.Method,
				Family: req.Family,
				Label:  req.Primary.RequestURL,
			})
		}

		events := make(chan spbatch.ProgressEvent, len(specs))
		client.SetProgressChannel(events)

		errCh := make(chan error, 1)
		go func() {
			errCh <- client.ExecuteBatch(context.Background(), b)
			close(events)
		}()

		p := tea.NewProgram(tui.NewConsole(summaries, events))
		if _, err := p.Run(); err != nil {
			return fmt.Errorf("console failed: %w", err)
		}

		return <-errCh
	},
}

func queueGet(b *spbatch.Batch, s batchRequestSpec) (*spbatch.Request, error) {
	call := spbatch.Call{RequestURL: s.URL}
	switch s.Family {
	case "graph":
		return b.AddGraph(nil, spbatch.EntityInfo{}, spbatch.MethodGET, call, nil, nil, nil)
	case "rest", "":
		return b.AddREST(nil, spbatch.EntityInfo{}, spbatch.MethodGET, call, nil, nil)
	default:
		return nil, fmt.Errorf("unknown family %q (want \"rest\" or \"graph\")", s.Family)
	}
}

func loadBatchSpecs(path string) ([]batchRequestSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading spec file: %w", err)
	}
	var specs []batchRequestSpec
	if err := json.Unmarshal(data, &specs); err != nil {
		return nil, fmt.Errorf("parsing spec file: %w", err)
	}
	return specs, nil
}

func init() {
	batchCmd.AddCommand(batchGetCmd, batchConsoleCmd)
	rootCmd.AddCommand(batchCmd)
}
