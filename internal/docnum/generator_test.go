package docnum

import (
	"context"
	"sync"
	"testing"

	"golang.org/x/sync/errgroup"

	"github.com/stretchr/testify/require"
)

func TestFormat(t *testing.T) {
	require.Equal(t, "GRN-000001", Format(KindReceipt, 1))
	require.Equal(t, "GIN-000042", Format(KindIssue, 42))
	require.Equal(t, "GRN-1000000", Format(KindReceipt, 1000000))
}

func TestMemoryGeneratorSequencesPerKind(t *testing.T) {
	gen := NewMemoryGenerator()
	ctx := context.Background()

	first, err := gen.Next(ctx, KindReceipt)
	require.NoError(t, err)
	require.Equal(t, "GRN-000001", first)

	second, err := gen.Next(ctx, KindReceipt)
	require.NoError(t, err)
	require.Equal(t, "GRN-000002", second)

	// The issue sequence is independent of the receipt sequence.
	issue, err := gen.Next(ctx, KindIssue)
	require.NoError(t, err)
	require.Equal(t, "GIN-000001", issue)
}

func TestMemoryGeneratorConcurrentUniqueness(t *testing.T) {
	gen := NewMemoryGenerator()
	ctx := context.Background()

	const allocations = 1000
	var mu sync.Mutex
	seen := make(map[string]struct{}, allocations)

	var g errgroup.Group
	for i := 0; i < allocations; i++ {
		g.Go(func() error {
			number, err := gen.Next(ctx, KindReceipt)
			if err != nil {
				return err
			}
			mu.Lock()
			seen[number] = struct{}{}
			mu.Unlock()
			return nil
		})
	}
	require.NoError(t, g.Wait())
	require.Len(t, seen, allocations)
}
