// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Riddlegate Contributors

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/riddlegate/riddlegate/internal/config"
)

// ServerStatus holds the health information reported by a running server.
type ServerStatus struct {
	Addr  string `json:"addr"`
	Alive bool   `json:"alive"`
	Ready bool   `json:"ready"`
	Error string `json:"error,omitempty"`
}

// statusConfig holds configuration for the status command.
type statusConfig struct {
	jsonOutput bool
}

// NewStatusCmd creates the status subcommand.
func NewStatusCmd() *cobra.Command {
	cfg := &statusConfig{}

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show status of the running Riddlegate server",
		Long:  `Query the health probes of a running server over its observability address.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStatus(cmd, cfg)
		},
	}

	cmd.Flags().String("observability.addr", "", "observability address of the server to query")
	cmd.Flags().BoolVar(&cfg.jsonOutput, "json", false, "output status as JSON")

	return cmd
}

// runStatus executes the status command.
func runStatus(cmd *cobra.Command, statusCfg *statusConfig) error {
	cfg, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		return err
	}

	status := queryServerStatus(cfg.Observability.Addr)

	var output string
	if statusCfg.jsonOutput {
		output, err = formatStatusJSON(status)
		if err != nil {
			return fmt.Errorf("failed to format JSON: %w", err)
		}
	} else {
		output = formatStatusTable(status)
	}

	cmd.Println(output)
	return nil
}

// queryServerStatus probes the liveness and readiness endpoints.
func queryServerStatus(addr string) ServerStatus {
	status := ServerStatus{Addr: addr}

	client := &http.Client{Timeout: 2 * time.Second}

	resp, err := client.Get("http://" + addr + "/healthz/liveness")
	if err != nil {
		status.Error = fmt.Sprintf("failed to connect: %v", err)
		return status
	}
	drainAndClose(resp.Body)
	status.Alive = resp.StatusCode == http.StatusOK

	resp, err = client.Get("http://" + addr + "/healthz/readiness")
	if err != nil {
		status.Error = fmt.Sprintf("readiness probe failed: %v", err)
		return status
	}
	drainAndClose(resp.Body)
	status.Ready = resp.StatusCode == http.StatusOK

	return status
}

// drainAndClose empties and closes a response body so the connection can
// be reused.
func drainAndClose(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, body)
	_ = body.Close()
}

// formatStatusTable formats the status as a human-readable table.
func formatStatusTable(status ServerStatus) string {
	var sb strings.Builder
	w := tabwriter.NewWriter(&sb, 0, 0, 2, ' ', 0)

	_, _ = fmt.Fprintln(w, "ADDR\tALIVE\tREADY")
	_, _ = fmt.Fprintln(w, "----\t-----\t-----")

	if status.Error != "" {
		_, _ = fmt.Fprintf(w, "%s\tdown\t-\n", status.Addr)
	} else {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n",
			status.Addr, yesNo(status.Alive), yesNo(status.Ready))
	}

	_ = w.Flush()

	if status.Error != "" {
		sb.WriteString("error: " + status.Error + "\n")
	}
	return sb.String()
}

// formatStatusJSON formats the status as JSON.
func formatStatusJSON(status ServerStatus) (string, error) {
	data, err := json.MarshalIndent(status, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal status: %w", err)
	}
	return string(data), nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
