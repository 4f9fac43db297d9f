package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"pkt.systems/pslog"

	"LiveBoard/internal/config"
	lbnet "LiveBoard/internal/net"
	"LiveBoard/internal/relay"
	"LiveBoard/internal/state"
)

func newHostCmd() *cobra.Command {
	var addr string
	var noAdvertise bool
	cmd := &cobra.Command{
		Use:   "host",
		Short: "Host a board that others on the network can join",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadHost()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("addr") {
				cfg.HTTPAddr = addr
			}
			if noAdvertise {
				cfg.Advertise = false
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runHost(ctx, cfg, pslog.Ctx(ctx))
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8888", "listen address (overrides LIVEBOARD_HTTP_ADDR)")
	cmd.Flags().BoolVar(&noAdvertise, "no-advertise", false, "do not announce the board over mDNS")
	return cmd
}

func runHost(ctx context.Context, cfg config.Host, logger pslog.Logger) error {
	ln, err := net.Listen("tcp", cfg.HTTPAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.HTTPAddr, err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	rel := relay.New(state.NewHistory(), state.NewRegistry(nil), logger.With("component", "relay"))
	relayDone := make(chan error, 1)
	go func() { relayDone <- rel.Run(ctx) }()

	endpoint := lbnet.NewEndpoint(rel, lbnet.EndpointConfig{
		MaxFrameBytes: cfg.MaxFrameBytes,
		FrameCeiling:  cfg.FrameCeiling,
		PeerQueue:     cfg.PeerQueue,
	}, logger.With("component", "ws"))
	srv := lbnet.NewServer(cfg.HTTPAddr, lbnet.NewRouter(rel, endpoint, logger.With("component", "http")), cfg.ShutdownTimeout, logger)

	if share, err := lbnet.ShareAddress(ln.Addr().String()); err == nil {
		logger.Info("board is ready", "join", "liveboard join "+share)
	}

	if cfg.Advertise {
		port := ln.Addr().(*net.TCPAddr).Port
		mdnsServer, err := lbnet.Advertise(cfg.ServiceName, port)
		if err != nil {
			logger.Warn("mdns advertise failed, join by address instead", "err", err)
		} else {
			defer func() { _ = mdnsServer.Shutdown() }()
			logger.Info("advertising board over mdns", "service", cfg.ServiceName, "port", port)
		}
	}

	serveErr := srv.Serve(ctx, ln)
	cancel()
	return errors.Join(serveErr, <-relayDone)
}
