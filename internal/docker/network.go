package docker

import (
	"context"
	"fmt"
	"sync"

	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/client"

	"github.com/blackwell-systems/wpenv/internal/logger"
)

// NetworkAPI is the part of the engine API used to manage the shared network.
// *client.Client satisfies it.
type NetworkAPI interface {
	NetworkInspect(ctx context.Context, networkID string, options network.InspectOptions) (network.Inspect, error)
	NetworkCreate(ctx context.Context, name string, options network.CreateOptions) (network.CreateResponse, error)
}

// NewClient creates an engine API client from the DOCKER_* environment.
// The caller closes it.
func NewClient() (*client.Client, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("create docker client: %w", err)
	}

	return cli, nil
}

// EnsureNetwork creates the named bridge network unless inspecting it succeeds.
// Any inspection error counts as "absent". It reports whether a network was created.
func EnsureNetwork(ctx context.Context, api NetworkAPI, name string) (bool, error) {
	_, err := api.NetworkInspect(ctx, name, network.InspectOptions{})
	if err == nil {
		logger.DebugKV(ctx, "network exists", "network", name)

		return false, nil
	}

	logger.DebugKV(ctx, "network inspection failed, creating", "network", name, "error", err)

	if _, err := api.NetworkCreate(ctx, name, network.CreateOptions{Driver: "bridge"}); err != nil {
		return false, fmt.Errorf("create network %s: %w", name, err)
	}

	return true, nil
}

// LazyNetwork is a NetworkAPI that connects to the engine on first use, so
// runs that stop before touching the network never need a reachable daemon.
type LazyNetwork struct {
	open func() (NetworkAPI, func(), error)

	once    sync.Once
	api     NetworkAPI
	closeFn func()
	err     error
}

// NewLazyNetwork returns a LazyNetwork that calls open at most once.
func NewLazyNetwork(open func() (NetworkAPI, func(), error)) *LazyNetwork {
	return &LazyNetwork{open: open}
}

func (l *LazyNetwork) connect() (NetworkAPI, error) {
	l.once.Do(func() {
		l.api, l.closeFn, l.err = l.open()
	})

	return l.api, l.err
}

// NetworkInspect implements NetworkAPI.
func (l *LazyNetwork) NetworkInspect(ctx context.Context, networkID string, options network.InspectOptions) (network.Inspect, error) {
	api, err := l.connect()
	if err != nil {
		return network.Inspect{}, err
	}

	return api.NetworkInspect(ctx, networkID, options)
}

// NetworkCreate implements NetworkAPI.
func (l *LazyNetwork) NetworkCreate(ctx context.Context, name string, options network.CreateOptions) (network.CreateResponse, error) {
	api, err := l.connect()
	if err != nil {
		return network.CreateResponse{}, err
	}

	return api.NetworkCreate(ctx, name, options)
}

// Close releases the connection if one was opened.
func (l *LazyNetwork) Close() {
	if l.closeFn != nil {
		l.closeFn()
	}
}
