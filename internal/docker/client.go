// Package docker talks to the local container engine over its control socket.
// It resolves service containers by name, tails their logs and restarts them.
package docker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/rs/zerolog"
)

const (
	// DefaultTailLines is the number of log lines fetched per container.
	DefaultTailLines = 200

	// DefaultCallTimeout bounds a single engine API call.
	DefaultCallTimeout = 10 * time.Second

	// DefaultSocketPath is the engine socket mounted into the orchestrator container.
	DefaultSocketPath = "/var/run/docker.sock"

	// restartTimeout covers the engine's stop grace period plus start.
	restartTimeout = 60 * time.Second
)

// ErrEmptyName is returned when a container lookup is attempted without a name.
var ErrEmptyName = errors.New("container name must not be empty")

// EngineAPI is the subset of the engine client used by the orchestrator.
// *client.Client satisfies it.
type EngineAPI interface {
	ContainerList(ctx context.Context, options container.ListOptions) ([]container.Summary, error)
	ContainerInspect(ctx context.Context, containerID string) (container.InspectResponse, error)
	ContainerLogs(ctx context.Context, containerID string, options container.LogsOptions) (io.ReadCloser, error)
	ContainerRestart(ctx context.Context, containerID string, options container.StopOptions) error
	Close() error
}

// ClientConfig holds configuration for the runtime client.
type ClientConfig struct {
	// Host is the engine address. Empty uses DOCKER_HOST, then SocketPath.
	Host string

	// SocketPath is used when Host is empty and DOCKER_HOST is unset.
	SocketPath string

	// TailLines caps how many log lines are fetched per container.
	TailLines int

	// CallTimeout bounds every engine call.
	CallTimeout time.Duration

	// Engine overrides the engine client (tests).
	Engine EngineAPI

	Logger zerolog.Logger
}

// Client is the container runtime client.
type Client struct {
	engine      EngineAPI
	tailLines   int
	callTimeout time.Duration
	logger      zerolog.Logger
}

// NewClient creates a runtime client. The engine connection is lazy; no call is
// made until the first operation.
func NewClient(cfg ClientConfig) (*Client, error) {
	engine := cfg.Engine
	if engine == nil {
		opts := []client.Opt{client.FromEnv, client.WithAPIVersionNegotiation()}
		switch {
		case cfg.Host != "":
			opts = append(opts, client.WithHost(cfg.Host))
		case !hasDockerHostEnv():
			socket := cfg.SocketPath
			if socket == "" {
				socket = DefaultSocketPath
			}
			opts = append(opts, client.WithHost("unix://"+socket))
		}

		cli, err := client.NewClientWithOpts(opts...)
		if err != nil {
			return nil, fmt.Errorf("creating engine client: %w", err)
		}
		engine = cli
	}

	tail := cfg.TailLines
	if tail <= 0 {
		tail = DefaultTailLines
	}
	timeout := cfg.CallTimeout
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}

	return &Client{
		engine:      engine,
		tailLines:   tail,
		callTimeout: timeout,
		logger:      cfg.Logger,
	}, nil
}

// Close releases the engine connection.
func (c *Client) Close() error {
	return c.engine.Close()
}

// ListByName returns every container, running or not, whose name is exactly name.
// No match yields an empty slice and a nil error.
func (c *Client) ListByName(ctx context.Context, name string) ([]Ref, error) {
	if strings.TrimSpace(name) == "" {
		return nil, ErrEmptyName
	}

	ctx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	// The engine name filter is a substring match; exactness is enforced below.
	summaries, err := c.engine.ContainerList(ctx, container.ListOptions{
		All:     true,
		Filters: filters.NewArgs(filters.Arg("name", name)),
	})
	if err != nil {
		return nil, fmt.Errorf("listing containers named %q: %w", name, err)
	}

	refs := make([]Ref, 0, len(summaries))
	for _, s := range summaries {
		if !hasExactName(s.Names, name) {
			continue
		}
		refs = append(refs, Ref{
			ID:    s.ID,
			Name:  name,
			Image: s.Image,
			State: s.State,
		})
	}
	return refs, nil
}

// TailLogs returns the last lines of combined stdout and stderr for the named
// service, prefixed with a header naming it. Lookup or transport failures are
// reported in the returned text rather than as an error.
func (c *Client) TailLogs(ctx context.Context, name string) string {
	refs, err := c.ListByName(ctx, name)
	if err != nil {
		return fmt.Sprintf("Error fetching logs for %s: %v", name, err)
	}
	if len(refs) == 0 {
		return fmt.Sprintf("No container found for %s", name)
	}

	text, err := c.Logs(ctx, refs[0])
	if err != nil {
		c.logger.Warn().Err(err).Str("service", name).Msg("log fetch failed")
		return fmt.Sprintf("Error fetching logs for %s: %v", name, err)
	}
	return fmt.Sprintf("== logs for %s ==\n%s", name, text)
}

// Logs fetches the tail of a container's combined output.
func (c *Client) Logs(ctx context.Context, ref Ref) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	tty := false
	if info, err := c.engine.ContainerInspect(ctx, ref.ID); err == nil && info.Config != nil {
		tty = info.Config.Tty
	}

	rc, err := c.engine.ContainerLogs(ctx, ref.ID, container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Tail:       strconv.Itoa(c.tailLines),
	})
	if err != nil {
		return "", fmt.Errorf("requesting logs: %w", err)
	}
	defer rc.Close()

	var buf bytes.Buffer
	if tty {
		_, err = io.Copy(&buf, rc)
	} else {
		// Non-TTY containers multiplex stdout and stderr into framed chunks.
		_, err = stdcopy.StdCopy(&buf, &buf, rc)
	}
	if err != nil {
		return "", fmt.Errorf("reading logs: %w", err)
	}

	return lastLines(buf.String(), c.tailLines), nil
}

// CollectLogs tails logs for each name in order. One entry is returned per name.
func (c *Client) CollectLogs(ctx context.Context, names []string) []string {
	logs := make([]string, 0, len(names))
	for _, name := range names {
		logs = append(logs, c.TailLogs(ctx, name))
	}
	return logs
}

// Restart restarts the first container named name. Failures are captured in
// the result; no retry is attempted.
func (c *Client) Restart(ctx context.Context, name string) RestartResult {
	refs, err := c.ListByName(ctx, name)
	if err != nil {
		return RestartResult{Service: name, OK: false, Error: err.Error()}
	}
	if len(refs) == 0 {
		return RestartResult{Service: name, OK: false, Reason: ReasonNotFound}
	}

	ctx, cancel := context.WithTimeout(ctx, restartTimeout)
	defer cancel()

	if err := c.engine.ContainerRestart(ctx, refs[0].ID, container.StopOptions{}); err != nil {
		c.logger.Error().Err(err).Str("service", name).Str("container_id", refs[0].ShortID()).Msg("container restart failed")
		return RestartResult{Service: name, OK: false, Error: err.Error()}
	}

	c.logger.Info().Str("service", name).Str("container_id", refs[0].ShortID()).Msg("container restarted")
	return RestartResult{Service: name, OK: true}
}

func hasDockerHostEnv() bool {
	return os.Getenv("DOCKER_HOST") != ""
}

func hasExactName(names []string, name string) bool {
	for _, n := range names {
		if strings.TrimPrefix(n, "/") == name {
			return true
		}
	}
	return false
}

func lastLines(text string, n int) string {
	trimmed := strings.TrimRight(text, "\n")
	if trimmed == "" {
		return ""
	}
	lines := strings.Split(trimmed, "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n") + "\n"
}
