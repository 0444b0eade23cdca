package docnumber

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedSeq struct{ n int64 }

func (s *fixedSeq) Next(_ context.Context, _, _ string) (int64, error) {
	s.n++
	return s.n, nil
}

func TestFormat(t *testing.T) {
	day := time.Date(2024, 12, 17, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, "FF20241217004821", Format(PrefixFulfillment, day, 4821))
	assert.Equal(t, "OB20241217000001", Format(PrefixOutbound, day, 1))
}

func TestNext_UsesSequence(t *testing.T) {
	day := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	seq := &fixedSeq{n: 41}

	no, err := Next(context.Background(), seq, PrefixInbound, day)
	require.NoError(t, err)
	assert.Equal(t, "IB20250102000042", no)
}
