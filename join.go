package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"pkt.systems/pslog"

	"LiveBoard/internal/config"
	lbnet "LiveBoard/internal/net"
	"LiveBoard/internal/relay"
	"LiveBoard/internal/state"
	"LiveBoard/internal/ui"
)

func newJoinCmd() *cobra.Command {
	var discover bool
	cmd := &cobra.Command{
		Use:   "join [host:port]",
		Short: "Open a board hosted elsewhere",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadJoin()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			logger := pslog.Ctx(ctx)

			var addr string
			switch {
			case len(args) == 1:
				addr = args[0]
			case discover:
				logger.Info("looking for a board on the local network", "timeout", cfg.DiscoverTimeout)
				if addr, err = lbnet.Discover(ctx, cfg.DiscoverTimeout); err != nil {
					return err
				}
			default:
				return fmt.Errorf("need a host address or --discover")
			}
			return runJoin(ctx, addr, cfg, logger)
		},
	}
	cmd.Flags().BoolVar(&discover, "discover", false, "find a host over mDNS")
	return cmd
}

func runJoin(ctx context.Context, addr string, cfg config.Join, logger pslog.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	conn, err := lbnet.Dial(ctx, addr)
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close() }()
	logger.Info("connected", "host", addr)

	win := ui.NewWindow("LiveBoard - "+addr, logger)
	board := state.NewBoard(win.Canvas(), nil)
	dispatcher := relay.NewDispatcher(board, conn, logger.With("component", "dispatcher"))
	win.Bind(board, dispatcher)
	win.OnClosed(cancel)

	go func() {
		err := conn.Receive(ctx, dispatcher.Handle, func(err error) {
			logger.Debug("frame dropped", "err", err)
		})
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			logger.Warn("connection lost", "err", err)
			win.SetStatus("Disconnected: " + err.Error())
			return
		}
		win.SetStatus("The host closed the board")
	}()
	go ui.RunCursorLoop(ctx, cfg.CursorFPS, board, win.Canvas())
	go func() {
		<-ctx.Done()
		win.Quit()
	}()

	win.SetStatus("Connected to " + addr)
	win.ShowAndRun()
	return nil
}
