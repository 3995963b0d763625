// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkwell Contributors

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/inkwell/inkwell/internal/observability"
)

const probeTimeout = 2 * time.Second

// ProbeStatus holds the result of querying a running instance.
type ProbeStatus struct {
	Endpoint string `json:"endpoint"`
	Live     bool   `json:"live"`
	Ready    bool   `json:"ready"`
	Error    string `json:"error,omitempty"`
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
		Short: "Show status of a running Inkwell instance",
		Long: `Show the health of a running Inkwell instance by querying the liveness
and readiness probes on its observability address (metrics.addr).`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStatus(cmd, cfg)
		},
	}

	cmd.Flags().BoolVar(&cfg.jsonOutput, "json", false, "output status as JSON")
	cmd.Flags().String("metrics-addr", "", "observability address of the instance to query")

	return cmd
}

func runStatus(cmd *cobra.Command, cfg *statusConfig) error {
	appCfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if appCfg.Metrics.Addr == "" {
		return oops.Code("CONFIG_INVALID").
			With("key", "metrics.addr").
			Errorf("metrics.addr is empty; the observability server is disabled")
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	status := queryStatus(ctx, &http.Client{Timeout: probeTimeout}, probeBaseURL(appCfg.Metrics.Addr))

	if cfg.jsonOutput {
		data, err := json.MarshalIndent(status, "", "  ")
		if err != nil {
			return oops.Code("STATUS_FORMAT_FAILED").Wrap(err)
		}
		cmd.Println(string(data))
		return nil
	}
	cmd.Print(formatStatusTable(status))
	return nil
}

// probeBaseURL turns a listen address into a URL a local client can dial.
// Unspecified hosts ("", 0.0.0.0, ::) become loopback.
func probeBaseURL(addr string) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "http://" + addr
	}
	switch host {
	case "", "0.0.0.0", "::":
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, port)
}

func queryStatus(ctx context.Context, client *http.Client, baseURL string) ProbeStatus {
	status := ProbeStatus{Endpoint: baseURL}

	live, err := probe(ctx, client, baseURL+"/healthz/liveness")
	if err != nil {
		status.Error = fmt.Sprintf("failed to connect: %v", err)
		return status
	}
	status.Live = live.ok

	ready, err := probe(ctx, client, baseURL+"/healthz/readiness")
	if err != nil {
		status.Error = fmt.Sprintf("readiness probe failed: %v", err)
		return status
	}
	status.Ready = ready.ok
	if !ready.ok && ready.reason != "" {
		status.Error = "not ready: " + ready.reason
	}
	return status
}

type probeResult struct {
	ok     bool
	reason string
}

// probe GETs a health endpoint. The reason comes from the JSON probe body
// when the server sends one.
func probe(ctx context.Context, client *http.Client, url string) (probeResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return probeResult{}, err //nolint:wrapcheck // rendered into status output
	}
	resp, err := client.Do(req)
	if err != nil {
		return probeResult{}, err //nolint:wrapcheck // rendered into status output
	}
	defer func() { _ = resp.Body.Close() }()

	var body observability.Probe
	_ = json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&body)
	return probeResult{ok: resp.StatusCode == http.StatusOK, reason: body.Reason}, nil
}

// formatStatusTable formats the status as a human-readable table.
func formatStatusTable(s ProbeStatus) string {
	var buf strings.Builder
	w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)

	_, _ = fmt.Fprintln(w, "ENDPOINT\tLIVE\tREADY\tDETAIL")
	_, _ = fmt.Fprintln(w, "--------\t----\t-----\t------")

	detail := "-"
	if s.Error != "" {
		detail = s.Error
	}
	_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", s.Endpoint, yesNo(s.Live), yesNo(s.Ready), detail)

	_ = w.Flush()
	return buf.String()
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
