package net

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/hashicorp/mdns"
)

const serviceType = "_liveboard._tcp"

// ErrNoHost is returned when discovery finds nobody advertising a board.
var ErrNoHost = errors.New("no board host found")

// Advertise announces a board host on the local network. Shut the returned
// server down when the host stops.
func Advertise(instance string, port int) (*mdns.Server, error) {
	host, err := os.Hostname()
	if err != nil {
		return nil, fmt.Errorf("could not get hostname: %w", err)
	}
	if instance == "" {
		instance = host
	}

	service, err := mdns.NewMDNSService(
		instance,
		serviceType,
		"",
		"",
		port,
		nil,
		[]string{"LiveBoard"},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS service: %w", err)
	}

	server, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		return nil, fmt.Errorf("failed to start mDNS server: %w", err)
	}
	return server, nil
}

// Discover browses the local network for timeout and returns the address of
// the first board host that answers.
func Discover(ctx context.Context, timeout time.Duration) (string, error) {
	entries := make(chan *mdns.ServiceEntry, 8)
	found := make(chan string, 1)
	scanned := make(chan struct{})
	go func() {
		defer close(scanned)
		for e := range entries {
			if e.AddrV4 == nil || e.Port == 0 {
				continue
			}
			select {
			case found <- fmt.Sprintf("%s:%d", e.AddrV4.String(), e.Port):
			default:
			}
		}
	}()

	params := mdns.DefaultParams(serviceType)
	params.Entries = entries
	params.Timeout = timeout
	params.DisableIPv6 = true
	params.Logger = log.New(io.Discard, "", 0)

	queryErr := make(chan error, 1)
	go func() {
		queryErr <- mdns.Query(params)
		close(entries)
	}()

	select {
	case addr := <-found:
		return addr, nil
	case err := <-queryErr:
		<-scanned
		select {
		case addr := <-found:
			return addr, nil
		default:
		}
		if err != nil {
			return "", fmt.Errorf("mDNS query: %w", err)
		}
		return "", ErrNoHost
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
