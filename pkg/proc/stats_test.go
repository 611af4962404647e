package proc

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseProcStat(t *testing.T) {
	line := "1234 (my (odd) proc) S 1 1234 1234 0 -1 4194560 100 0 0 0 250 50 0 0 20 0 7 0 12345 1000000 300 18446744073709551615"
	ps, err := parseProcStat(line)
	require.NoError(t, err)
	require.Equal(t, byte('S'), ps.state)
	require.Equal(t, uint64(250), ps.utime)
	require.Equal(t, uint64(50), ps.stime)
	require.Equal(t, 7, ps.threads)
	require.Equal(t, int64(300), ps.rss)

	_, err = parseProcStat("1234 (x) S 1 2")
	require.Error(t, err)
}

func TestSampler_Self(t *testing.T) {
	if _, err := os.Stat("/proc/self/stat"); err != nil {
		t.Skip("no /proc")
	}
	s := NewSampler()
	st, err := s.Sample(os.Getpid())
	require.NoError(t, err)
	require.Greater(t, st.MemoryRSS, int64(0))
	require.Greater(t, st.Threads, 0)

	_, err = s.Sample(os.Getpid())
	require.NoError(t, err)
	s.Forget(nil)
	require.Empty(t, s.prev)

	_, err = s.Sample(0)
	require.Error(t, err)
}
