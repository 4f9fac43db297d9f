package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/spf13/cobra"
	"pkt.systems/pslog"

	"LiveBoard/internal/export"
	lbnet "LiveBoard/internal/net"
)

func newExportCmd() *cobra.Command {
	var addr, out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Save a running board's committed strokes as a PDF",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()

			history, err := fetchHistory(ctx, addr)
			if err != nil {
				return err
			}
			f, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("create %s: %w", out, err)
			}
			if err := export.WritePDF(f, history.CommittedHistory); err != nil {
				_ = f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return fmt.Errorf("close %s: %w", out, err)
			}
			pslog.Ctx(cmd.Context()).Info("board exported", "file", out, "strokes", len(history.CommittedHistory))
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "localhost:8888", "host address")
	cmd.Flags().StringVar(&out, "out", "liveboard.pdf", "output file")
	return cmd
}

func fetchHistory(ctx context.Context, addr string) (lbnet.HistoryResponse, error) {
	u := url.URL{Scheme: "http", Host: addr, Path: "/history"}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return lbnet.HistoryResponse{}, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return lbnet.HistoryResponse{}, fmt.Errorf("fetch history: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return lbnet.HistoryResponse{}, fmt.Errorf("fetch history: %s", resp.Status)
	}
	var h lbnet.HistoryResponse
	if err := json.NewDecoder(resp.Body).Decode(&h); err != nil {
		return lbnet.HistoryResponse{}, fmt.Errorf("decode history: %w", err)
	}
	return h, nil
}
