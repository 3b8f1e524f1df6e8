//go:build unix

package spawn

import (
	"errors"
	"os/exec"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRun_SignalIsAbnormalTermination(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}

	r, _, _ := newTestRunner()

	p, err := r.Run("sh", ArgList{"-c", "kill -9 $$"})
	require.NoError(t, err)

	res := waitResult(t, p)
	require.Equal(t, AbnormalTermination, res.Kind)
	require.Equal(t, "SIGKILL", res.Signal)
	require.Nil(t, res.ExitCode)
	require.ErrorIs(t, res.Err, ErrSignaled)

	var perr *ProcessError
	require.True(t, errors.As(res.Err, &perr))
	require.Equal(t, "SIGKILL", perr.Signal)
	require.Equal(t, 9, perr.SignalNumber())
	require.Contains(t, perr.Error(), "terminated by signal SIGKILL")
}

func TestRun_OutputBeforeSignalIsKept(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}

	r, stdout, _ := newTestRunner()

	p, err := r.Run("sh", ArgList{"-c", "echo partial; kill -TERM $$"})
	require.NoError(t, err)

	res := waitResult(t, p)
	require.Equal(t, AbnormalTermination, res.Kind)
	require.Equal(t, "SIGTERM", res.Signal)
	require.Equal(t, "partial\n", stdout.String())
}

func TestPending_EveryWaiterSeesTheFailure(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}

	r, _, _ := newTestRunner()

	p, err := r.Run("sh", ArgList{"-c", "exit 7"})
	require.NoError(t, err)

	select {
	case <-p.Done():
	case <-time.After(20 * time.Second):
		t.Fatal("run did not settle")
	}

	const waiters = 4
	results := make([]Result, waiters)
	var wg sync.WaitGroup
	for i := 0; i < waiters; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = p.Wait()
		}(i)
	}
	wg.Wait()

	for _, res := range results {
		require.Equal(t, NonZeroExit, res.Kind)
		require.Equal(t, 7, *res.ExitCode)
		require.ErrorIs(t, res.Err, ErrNonZeroExit)
	}
	require.Equal(t, NonZeroExit, p.Wait().Kind)
}

func TestPending_ConcurrentWaitersBeforeSettling(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}

	r, _, _ := newTestRunner()

	p, err := r.Run("sh", ArgList{"-c", "sleep 0.1; exit 7"})
	require.NoError(t, err)

	kinds := make(chan Kind, 2)
	for i := 0; i < 2; i++ {
		go func() { kinds <- p.Wait().Kind }()
	}
	for i := 0; i < 2; i++ {
		select {
		case k := <-kinds:
			require.Equal(t, NonZeroExit, k)
		case <-time.After(20 * time.Second):
			t.Fatal("waiter did not return")
		}
	}
}
