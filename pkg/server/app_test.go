package server

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) add(e string) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

type event struct{ rec *recorder }

type fakeComponent struct {
	event
	name     string
	startErr error
}

func (f *fakeComponent) Name() string { return f.name }

func (f *fakeComponent) Start(context.Context) error {
	f.rec.add("start " + f.name)
	return f.startErr
}

func (f *fakeComponent) Stop(context.Context) error {
	f.rec.add("stop " + f.name)
	return nil
}

type fakeCloser struct {
	event
	name string
}

func (f *fakeCloser) Close() error {
	f.rec.add("close " + f.name)
	return nil
}

func TestRunStopsInOrder(t *testing.T) {
	rec := &recorder{}
	ev := event{rec: rec}

	app := New(nil, nil).
		AddComponent(&fakeComponent{event: ev, name: "pipeline"}).
		AddComponent(&fakeComponent{event: ev, name: "simulator"}).
		AddCloser("producer", &fakeCloser{event: ev, name: "producer"}).
		AddCloser("cache", &fakeCloser{event: ev, name: "cache"})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	require.Eventually(t, func() bool { return len(rec.snapshot()) >= 2 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("app did not stop")
	}

	assert.Equal(t, []string{
		"start pipeline",
		"start simulator",
		"stop simulator",
		"stop pipeline",
		"close producer",
		"close cache",
	}, rec.snapshot())
}

func TestRunUnwindsOnStartFailure(t *testing.T) {
	rec := &recorder{}
	ev := event{rec: rec}

	app := New(nil, nil).
		AddComponent(&fakeComponent{event: ev, name: "a"}).
		AddComponent(&fakeComponent{event: ev, name: "b", startErr: errors.New("boom")}).
		AddCloser("cache", &fakeCloser{event: ev, name: "cache"})

	err := app.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "start b")
	assert.Equal(t, []string{"start a", "start b", "stop a", "close cache"}, rec.snapshot())
}
