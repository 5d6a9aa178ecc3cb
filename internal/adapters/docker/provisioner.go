// Package docker provisions headless browser containers for the
// browser-automation search backend when it runs in docker mode.
package docker

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
	"github.com/docker/go-connections/nat"
	"github.com/google/uuid"
)

const (
	devtoolsPort   = "9222/tcp"
	managedLabel   = "chimera.managed"
	readyTimeout   = 30 * time.Second
	readyInterval  = 500 * time.Millisecond
	defaultBrowser = "chromedp/headless-shell:latest"
)

// Provisioner starts and tears down browser containers through the
// Docker API.
type Provisioner struct {
	cli    *client.Client
	logger *slog.Logger
	image  string
}

func NewProvisioner(browserImage string, logger *slog.Logger) (*Provisioner, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create docker client: %w", err)
	}
	if browserImage == "" {
		browserImage = defaultBrowser
	}
	return &Provisioner{cli: cli, logger: logger, image: browserImage}, nil
}

// ControlURL starts a fresh browser container and returns its DevTools
// endpoint once it answers version probes.
func (p *Provisioner) ControlURL(ctx context.Context) (string, error) {
	id := uuid.New().String()
	name := "chimera-browser-" + id

	cfg := &container.Config{
		Image: p.image,
		Labels: map[string]string{
			managedLabel:      "true",
			"chimera.browser": id,
		},
		ExposedPorts: nat.PortSet{
			nat.Port(devtoolsPort): struct{}{},
		},
	}
	hostCfg := &container.HostConfig{
		PortBindings: nat.PortMap{
			nat.Port(devtoolsPort): []nat.PortBinding{
				{HostIP: "127.0.0.1", HostPort: ""},
			},
		},
		AutoRemove: true,
	}

	resp, err := p.cli.ContainerCreate(ctx, cfg, hostCfg, nil, nil, name)
	if client.IsErrNotFound(err) {
		reader, pullErr := p.cli.ImagePull(ctx, p.image, image.PullOptions{})
		if pullErr != nil {
			return "", fmt.Errorf("failed to pull image %s: %w", p.image, pullErr)
		}
		io.Copy(io.Discard, reader)
		reader.Close()
		resp, err = p.cli.ContainerCreate(ctx, cfg, hostCfg, nil, nil, name)
	}
	if err != nil {
		return "", fmt.Errorf("failed to create container: %w", err)
	}

	if err := p.cli.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		_ = p.cli.ContainerRemove(ctx, resp.ID, container.RemoveOptions{Force: true})
		return "", fmt.Errorf("failed to start container: %w", err)
	}

	hostPort, err := p.mappedPort(ctx, resp.ID)
	if err != nil {
		_ = p.cli.ContainerRemove(ctx, resp.ID, container.RemoveOptions{Force: true})
		return "", err
	}

	controlURL := fmt.Sprintf("http://127.0.0.1:%s", hostPort)
	if err := p.waitReady(ctx, controlURL); err != nil {
		_ = p.cli.ContainerRemove(ctx, resp.ID, container.RemoveOptions{Force: true})
		return "", err
	}

	p.logger.Info("browser container ready", "container", name, "url", controlURL)
	return controlURL, nil
}

func (p *Provisioner) mappedPort(ctx context.Context, containerID string) (string, error) {
	inspect, err := p.cli.ContainerInspect(ctx, containerID)
	if err != nil {
		return "", fmt.Errorf("failed to inspect container: %w", err)
	}
	bindings := inspect.NetworkSettings.Ports[nat.Port(devtoolsPort)]
	if len(bindings) == 0 {
		return "", fmt.Errorf("devtools port not published")
	}
	return bindings[0].HostPort, nil
}

// waitReady polls the DevTools version endpoint until the browser inside
// the container accepts connections.
func (p *Provisioner) waitReady(ctx context.Context, controlURL string) error {
	deadline := time.Now().Add(readyTimeout)
	httpClient := &http.Client{Timeout: readyInterval}

	for time.Now().Before(deadline) {
		req, err := http.NewRequestWithContext(ctx, "GET", controlURL+"/json/version", nil)
		if err != nil {
			return err
		}
		resp, err := httpClient.Do(req)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(readyInterval):
		}
	}
	return fmt.Errorf("browser container not ready after %s", readyTimeout)
}

// Shutdown removes every container this provisioner's label marks as ours.
func (p *Provisioner) Shutdown(ctx context.Context) error {
	args := filters.NewArgs()
	args.Add("label", managedLabel+"=true")

	containers, err := p.cli.ContainerList(ctx, container.ListOptions{All: true, Filters: args})
	if err != nil {
		return fmt.Errorf("failed to list containers: %w", err)
	}

	for _, c := range containers {
		if err := p.cli.ContainerRemove(ctx, c.ID, container.RemoveOptions{Force: true}); err != nil && !client.IsErrNotFound(err) {
			p.logger.Warn("failed to remove browser container", "id", c.ID, "error", err)
		}
	}
	return nil
}
