package docker_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timbercraft/orchestrator/internal/docker"
)

// fakeEngine is an in-memory EngineAPI keyed by container name.
type fakeEngine struct {
	mu         sync.Mutex
	containers []container.Summary
	logs       map[string]string // container ID -> stdout text
	stderr     map[string]string
	tty        map[string]bool
	listErr    error
	logsErr    error
	restartErr error
	restarted  []string
	lastTail   string
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{
		logs:   make(map[string]string),
		stderr: make(map[string]string),
		tty:    make(map[string]bool),
	}
}

func (f *fakeEngine) add(id, name, stdout string) {
	f.containers = append(f.containers, container.Summary{
		ID:    id,
		Names: []string{"/" + name},
		Image: name + ":latest",
		State: "running",
	})
	f.logs[id] = stdout
}

func (f *fakeEngine) ContainerList(_ context.Context, options container.ListOptions) ([]container.Summary, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	names := options.Filters.Get("name")
	var out []container.Summary
	for _, c := range f.containers {
		for _, n := range c.Names {
			for _, want := range names {
				if strings.Contains(n, want) {
					out = append(out, c)
				}
			}
		}
	}
	return out, nil
}

func (f *fakeEngine) ContainerInspect(_ context.Context, containerID string) (container.InspectResponse, error) {
	resp := container.InspectResponse{Config: &container.Config{Tty: f.tty[containerID]}}
	return resp, nil
}

func (f *fakeEngine) ContainerLogs(_ context.Context, containerID string, options container.LogsOptions) (io.ReadCloser, error) {
	if f.logsErr != nil {
		return nil, f.logsErr
	}
	f.mu.Lock()
	f.lastTail = options.Tail
	f.mu.Unlock()

	if f.tty[containerID] {
		return io.NopCloser(strings.NewReader(f.logs[containerID])), nil
	}

	var buf bytes.Buffer
	if out := f.logs[containerID]; out != "" {
		_, _ = stdcopy.NewStdWriter(&buf, stdcopy.Stdout).Write([]byte(out))
	}
	if errOut := f.stderr[containerID]; errOut != "" {
		_, _ = stdcopy.NewStdWriter(&buf, stdcopy.Stderr).Write([]byte(errOut))
	}
	return io.NopCloser(&buf), nil
}

func (f *fakeEngine) ContainerRestart(_ context.Context, containerID string, _ container.StopOptions) error {
	if f.restartErr != nil {
		return f.restartErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.restarted = append(f.restarted, containerID)
	return nil
}

func (f *fakeEngine) Close() error { return nil }

func newTestClient(t *testing.T, engine *fakeEngine, tail int) *docker.Client {
	t.Helper()
	c, err := docker.NewClient(docker.ClientConfig{
		Engine:    engine,
		TailLines: tail,
		Logger:    zerolog.Nop(),
	})
	require.NoError(t, err)
	return c
}

func TestListByName_ExactMatchOnly(t *testing.T) {
	engine := newFakeEngine()
	engine.add("aaa111", "web", "")
	engine.add("bbb222", "web_admin", "")

	c := newTestClient(t, engine, 0)

	refs, err := c.ListByName(context.Background(), "web")
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Equal(t, "aaa111", refs[0].ID)
	assert.Equal(t, "running", refs[0].State)
}

func TestListByName_NoMatchIsEmpty(t *testing.T) {
	c := newTestClient(t, newFakeEngine(), 0)

	refs, err := c.ListByName(context.Background(), "ghost")
	require.NoError(t, err)
	assert.Empty(t, refs)
}

func TestListByName_EmptyName(t *testing.T) {
	c := newTestClient(t, newFakeEngine(), 0)

	_, err := c.ListByName(context.Background(), "  ")
	assert.ErrorIs(t, err, docker.ErrEmptyName)
}

func TestTailLogs_CombinesStreams(t *testing.T) {
	engine := newFakeEngine()
	engine.add("aaa111", "rag_service", "booting\nready\n")
	engine.stderr["aaa111"] = "warning: slow disk\n"

	c := newTestClient(t, engine, 0)

	text := c.TailLogs(context.Background(), "rag_service")
	assert.True(t, strings.HasPrefix(text, "== logs for rag_service ==\n"))
	assert.Contains(t, text, "ready")
	assert.Contains(t, text, "warning: slow disk")
	assert.Equal(t, "200", engine.lastTail)
}

func TestTailLogs_TTYContainer(t *testing.T) {
	engine := newFakeEngine()
	engine.add("aaa111", "web", "plain tty output\n")
	engine.tty["aaa111"] = true

	c := newTestClient(t, engine, 0)

	assert.Equal(t, "== logs for web ==\nplain tty output\n", c.TailLogs(context.Background(), "web"))
}

func TestTailLogs_TruncatesToTail(t *testing.T) {
	var lines []string
	for i := 0; i < 10; i++ {
		lines = append(lines, fmt.Sprintf("line %d", i))
	}
	engine := newFakeEngine()
	engine.add("aaa111", "web", strings.Join(lines, "\n")+"\n")

	c := newTestClient(t, engine, 3)

	text := c.TailLogs(context.Background(), "web")
	assert.Equal(t, "== logs for web ==\nline 7\nline 8\nline 9\n", text)
	assert.Equal(t, "3", engine.lastTail)
}

func TestTailLogs_NotFound(t *testing.T) {
	c := newTestClient(t, newFakeEngine(), 0)

	assert.Equal(t, "No container found for ghost", c.TailLogs(context.Background(), "ghost"))
}

func TestTailLogs_TransportError(t *testing.T) {
	engine := newFakeEngine()
	engine.listErr = errors.New("dial unix /var/run/docker.sock: connect: no such file")

	c := newTestClient(t, engine, 0)

	text := c.TailLogs(context.Background(), "web")
	assert.True(t, strings.HasPrefix(text, "Error fetching logs for web:"))
	assert.Contains(t, text, "no such file")
}

func TestCollectLogs_OneEntryPerServiceInOrder(t *testing.T) {
	engine := newFakeEngine()
	engine.add("aaa111", "web", "web up\n")
	engine.add("ccc333", "docling_service", "docling up\n")

	c := newTestClient(t, engine, 0)

	logs := c.CollectLogs(context.Background(), []string{"web", "rag_service", "docling_service"})
	require.Len(t, logs, 3)
	assert.Contains(t, logs[0], "== logs for web ==")
	assert.Equal(t, "No container found for rag_service", logs[1])
	assert.Contains(t, logs[2], "docling up")
}

func TestRestart(t *testing.T) {
	engine := newFakeEngine()
	engine.add("aaa111", "web", "")

	c := newTestClient(t, engine, 0)

	result := c.Restart(context.Background(), "web")
	assert.Equal(t, docker.RestartResult{Service: "web", OK: true}, result)
	assert.Equal(t, []string{"aaa111"}, engine.restarted)
}

func TestRestart_NotFound(t *testing.T) {
	c := newTestClient(t, newFakeEngine(), 0)

	result := c.Restart(context.Background(), "ghost")
	assert.False(t, result.OK)
	assert.Equal(t, docker.ReasonNotFound, result.Reason)
	assert.Empty(t, result.Error)
}

func TestRestart_EngineFailure(t *testing.T) {
	engine := newFakeEngine()
	engine.add("aaa111", "web", "")
	engine.restartErr = errors.New("container is marked for removal")

	c := newTestClient(t, engine, 0)

	result := c.Restart(context.Background(), "web")
	assert.False(t, result.OK)
	assert.Equal(t, "container is marked for removal", result.Error)
}

func TestRef_ShortID(t *testing.T) {
	assert.Equal(t, "0123456789ab", docker.Ref{ID: "0123456789abcdef"}.ShortID())
	assert.Equal(t, "abc", docker.Ref{ID: "abc"}.ShortID())
}
