package http

import (
	"context"
	"net"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tzrikka/slashroute/pkg/deferred"
)

func TestServeDrainsInFlightRequests(t *testing.T) {
	scheduler := deferred.New()
	started := make(chan struct{})
	var persisted atomic.Bool

	s := &httpServer{
		scheduler: scheduler,
		handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			close(started)
			time.Sleep(300 * time.Millisecond)
			w.WriteHeader(http.StatusOK)
			scheduler.Submit(r.Context(), "persist", func(context.Context) error {
				time.Sleep(50 * time.Millisecond)
				persisted.Store(true)
				return nil
			})
		}),
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errc := make(chan error, 1)
	go func() { errc <- s.serve(ctx, ln) }()

	go func() {
		req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, "http://"+ln.Addr().String(), http.NoBody)
		if err != nil {
			return
		}
		if resp, err := http.DefaultClient.Do(req); err == nil {
			_ = resp.Body.Close()
		}
	}()

	<-started
	cancel()

	require.NoError(t, <-errc)
	assert.True(t, persisted.Load(), "post-response task should complete before serve returns")
}
