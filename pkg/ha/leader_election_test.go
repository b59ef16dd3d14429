package ha

import (
	"context"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes/fake"
)

func fastConfig() *HAConfig {
	return &HAConfig{
		LeaderElectionEnabled: true,
		LeaseName:             "test-lease",
		LeaseNamespace:        "default",
		LeaseDuration:         2 * time.Second,
		RenewDeadline:         1 * time.Second,
		RetryPeriod:           100 * time.Millisecond,
		Identity:              "pod-a",
	}
}

func TestLeaderElector_IsLeaderDefault(t *testing.T) {
	le := NewLeaderElector(fastConfig(), nil, "pod-a", slog.Default())
	assert.False(t, le.IsLeader())
}

func TestNewLeaderElector_NilLogger(t *testing.T) {
	le := NewLeaderElector(fastConfig(), nil, "pod-a", nil)
	assert.NotNil(t, le.logger)
}

func TestLeaderElector_AcquiresLease(t *testing.T) {
	client := fake.NewSimpleClientset()
	le := NewLeaderElector(fastConfig(), client, "pod-a", nil)

	started := make(chan struct{})
	var stopped atomic.Bool
	le.OnStartLeading(func(ctx context.Context) {
		close(started)
		<-ctx.Done()
	})
	le.OnStopLeading(func() { stopped.Store(true) })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		le.Run(ctx)
		close(done)
	}()

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		cancel()
		t.Fatal("did not become leader")
	}
	assert.True(t, le.IsLeader())

	lease, err := client.CoordinationV1().Leases("default").Get(context.Background(), "test-lease", metav1.GetOptions{})
	require.NoError(t, err)
	require.NotNil(t, lease.Spec.HolderIdentity)
	assert.Equal(t, "pod-a", *lease.Spec.HolderIdentity)

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("leader election did not stop")
	}
	assert.False(t, le.IsLeader())
	assert.True(t, stopped.Load())
}

func TestRunAsLeader_Disabled(t *testing.T) {
	cfg := fastConfig()
	cfg.LeaderElectionEnabled = false

	called := false
	RunAsLeader(context.Background(), cfg, nil, nil, func(ctx context.Context) {
		called = true
	})
	assert.True(t, called)
}

func TestRunAsLeader_Enabled(t *testing.T) {
	client := fake.NewSimpleClientset()
	ctx, cancel := context.WithCancel(context.Background())

	var runs atomic.Int32
	done := make(chan struct{})
	go func() {
		RunAsLeader(ctx, fastConfig(), client, nil, func(leaderCtx context.Context) {
			runs.Add(1)
			cancel()
			<-leaderCtx.Done()
		})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		cancel()
		t.Fatal("RunAsLeader did not return after cancel")
	}
	assert.Equal(t, int32(1), runs.Load())
}
