package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MimeLyc/srt-translator/internal/config"
	"github.com/MimeLyc/srt-translator/internal/service"
)

type fakeCron struct {
	mu      sync.Mutex
	started bool
	stopped bool
}

func (f *fakeCron) Start() {
	f.mu.Lock()
	f.started = true
	f.mu.Unlock()
}

func (f *fakeCron) Stop() context.Context {
	f.mu.Lock()
	f.stopped = true
	f.mu.Unlock()
	return context.Background()
}

type fakeHTTP struct {
	listenErr    error
	listenCalled chan string
	shutdownOnce sync.Once
	shutdownCh   chan struct{}
}

func newFakeHTTP() *fakeHTTP {
	return &fakeHTTP{
		listenCalled: make(chan string, 1),
		shutdownCh:   make(chan struct{}),
	}
}

func (f *fakeHTTP) ListenAndServe(addr string) error {
	f.listenCalled <- addr
	if f.listenErr != nil {
		return f.listenErr
	}
	<-f.shutdownCh
	return http.ErrServerClosed
}

func (f *fakeHTTP) Shutdown(context.Context) error {
	f.shutdownOnce.Do(func() { close(f.shutdownCh) })
	return nil
}

func TestRunWithComponents_StartsCronAndHTTP(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cronEngine := &fakeCron{}
	httpSrv := newFakeHTTP()

	doneCh := make(chan error, 1)
	go func() {
		doneCh <- runWithComponents(ctx, "127.0.0.1:0", cronEngine, httpSrv)
	}()

	select {
	case addr := <-httpSrv.listenCalled:
		assert.Equal(t, "127.0.0.1:0", addr)
	case <-time.After(2 * time.Second):
		t.Fatal("http server did not start")
	}

	cancel()

	select {
	case err := <-doneCh:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("runWithComponents did not exit after cancellation")
	}

	assert.True(t, cronEngine.started)
	assert.True(t, cronEngine.stopped)
}

func TestRunWithComponents_WithoutCron(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	httpSrv := newFakeHTTP()

	doneCh := make(chan error, 1)
	go func() {
		doneCh <- runWithComponents(ctx, ":8080", nil, httpSrv)
	}()
	<-httpSrv.listenCalled
	cancel()

	select {
	case err := <-doneCh:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("runWithComponents did not exit after cancellation")
	}
}

func TestRunWithComponents_ListenError(t *testing.T) {
	httpSrv := newFakeHTTP()
	httpSrv.listenErr = errors.New("address already in use")
	cronEngine := &fakeCron{}

	err := runWithComponents(context.Background(), ":8080", cronEngine, httpSrv)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "address already in use")
	assert.True(t, cronEngine.stopped)
}

func TestRunServe_StopsOnCancel(t *testing.T) {
	dataDir := t.TempDir()
	watchDir := t.TempDir()

	cfg := config.Default()
	cfg.Server.Addr = "127.0.0.1:0"
	cfg.Store.DataDir = dataDir
	cfg.Watch.Dir = watchDir
	cfg.Log.Level = "error"

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	err := runServe(ctx, cfg, service.NewLLMClient, "")
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(dataDir, "srt-translator.db"))
	assert.NoError(t, err)
}

func TestRunServe_LoadsSavedSettings(t *testing.T) {
	dataDir := t.TempDir()
	cfg := config.Default()
	cfg.Server.Addr = "127.0.0.1:0"
	cfg.Store.DataDir = dataDir
	cfg.Log.Level = "error"

	data := []byte(`{"llm_api_url":"http://localhost","llm_model":"m","cron_expr":"not a cron","source_language":"auto","target_language":"fr"}`)
	require.NoError(t, os.WriteFile(cfg.SettingsPath(), data, 0o600))

	err := runServe(context.Background(), cfg, service.NewLLMClient, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cron_expr")
}
