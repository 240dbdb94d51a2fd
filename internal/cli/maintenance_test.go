package cli

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPartitionEnsureIsSubcommand(t *testing.T) {
	cmd := PartitionCmd()

	ensure, _, err := cmd.Find([]string{"ensure"})
	require.NoError(t, err)
	require.Equal(t, "ensure", ensure.Name())

	require.Error(t, ensure.Args(ensure, []string{"audit_logs_archive", "2026"}))
	require.Error(t, ensure.Args(ensure, []string{"audit_logs_archive", "2026", "8", "extra"}))
	require.NoError(t, ensure.Args(ensure, []string{"audit_logs_archive", "2026", "8"}))
}
