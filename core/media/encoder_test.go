package media

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeExecutor scripts encode outcomes per attempt.
type fakeExecutor struct {
	probe    ProbeResult
	probeErr error
	// sizes holds the produced byte length for each successive encode
	// attempt; a negative value simulates a tool timeout.
	sizes []int64
	// durs optionally scripts the measured output duration per attempt;
	// attempts past its end report three seconds.
	durs     []time.Duration
	requests []EncodeRequest
}

func (f *fakeExecutor) Probe(ctx context.Context, path string) (ProbeResult, error) {
	if f.probeErr != nil {
		return ProbeResult{}, f.probeErr
	}
	return f.probe, nil
}

func (f *fakeExecutor) Encode(ctx context.Context, req EncodeRequest) (EncodeResult, error) {
	attempt := len(f.requests)
	f.requests = append(f.requests, req)
	if attempt >= len(f.sizes) {
		return EncodeResult{}, ErrToolRejectedInput
	}
	size := f.sizes[attempt]
	if size < 0 {
		return EncodeResult{}, ErrToolTimeout
	}
	if err := os.WriteFile(req.OutputPath, make([]byte, size), 0o644); err != nil {
		return EncodeResult{}, err
	}
	dur := 3 * time.Second
	if attempt < len(f.durs) {
		dur = f.durs[attempt]
	}
	return EncodeResult{
		OutputPath: req.OutputPath,
		ByteLength: size,
		Width:      512,
		Height:     512,
		Duration:   dur,
	}, nil
}

func newTestEncoder(t *testing.T, exec Executor) *Encoder {
	t.Helper()
	return NewEncoder(EncoderOptions{
		Executor:    exec,
		SizeBudget:  256 * 1024,
		MaxDuration: 3 * time.Second,
		CRFLadder:   []int{30, 40, 50, 63},
		WorkDir:     t.TempDir(),
	})
}

func TestEncodeFirstAttemptFits(t *testing.T) {
	exec := &fakeExecutor{
		probe: ProbeResult{Width: 800, Height: 600, Duration: 2 * time.Second},
		sizes: []int64{100_000},
	}
	enc := newTestEncoder(t, exec)

	out, err := enc.Encode(context.Background(), []byte("source"))
	require.NoError(t, err)
	assert.Equal(t, FormatAnimatedWebM, out.Format)
	assert.Len(t, out.Payload, 100_000)
	assert.Equal(t, 512, out.Width)
	assert.Equal(t, 512, out.Height)

	require.Len(t, exec.requests, 1)
	assert.Equal(t, 30, exec.requests[0].CRF)
}

func TestEncodeWalksLadderUntilFit(t *testing.T) {
	exec := &fakeExecutor{
		probe: ProbeResult{Width: 512, Height: 512, Duration: time.Second},
		sizes: []int64{400_000, 300_000, 200_000},
	}
	enc := newTestEncoder(t, exec)

	out, err := enc.Encode(context.Background(), []byte("source"))
	require.NoError(t, err)
	assert.Len(t, out.Payload, 200_000)

	require.Len(t, exec.requests, 3)
	assert.Equal(t, []int{30, 40, 50}, []int{
		exec.requests[0].CRF, exec.requests[1].CRF, exec.requests[2].CRF,
	})
}

func TestEncodeSizeBudgetExceeded(t *testing.T) {
	exec := &fakeExecutor{
		probe: ProbeResult{Width: 512, Height: 512, Duration: time.Second},
		sizes: []int64{500_000, 400_000, 350_000, 300_000},
	}
	enc := newTestEncoder(t, exec)

	_, err := enc.Encode(context.Background(), []byte("source"))
	require.ErrorIs(t, err, ErrSizeBudgetExceeded)
	assert.Len(t, exec.requests, 4)
}

func TestEncodeTimeoutBurnsLadderStep(t *testing.T) {
	exec := &fakeExecutor{
		probe: ProbeResult{Width: 512, Height: 512, Duration: time.Second},
		sizes: []int64{-1, 100_000},
	}
	enc := newTestEncoder(t, exec)

	out, err := enc.Encode(context.Background(), []byte("source"))
	require.NoError(t, err)
	assert.Len(t, out.Payload, 100_000)

	require.Len(t, exec.requests, 2)
	assert.Equal(t, 40, exec.requests[1].CRF)
}

func TestEncodeProbeFailure(t *testing.T) {
	exec := &fakeExecutor{probeErr: ErrToolRejectedInput}
	enc := newTestEncoder(t, exec)

	_, err := enc.Encode(context.Background(), []byte("source"))
	require.ErrorIs(t, err, ErrEncodingFailure)
	assert.Empty(t, exec.requests)
}

func TestEncodeCancelled(t *testing.T) {
	exec := &fakeExecutor{
		probe: ProbeResult{Width: 512, Height: 512, Duration: time.Second},
		sizes: []int64{400_000},
	}
	enc := newTestEncoder(t, exec)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := enc.Encode(ctx, []byte("source"))
	require.ErrorIs(t, err, context.Canceled)
}

func TestEncodeChainShortSourcePassesThrough(t *testing.T) {
	exec := &fakeExecutor{
		probe: ProbeResult{Width: 800, Height: 600, Duration: 2 * time.Second},
		sizes: []int64{1_000},
	}
	enc := newTestEncoder(t, exec)

	_, err := enc.Encode(context.Background(), []byte("source"))
	require.NoError(t, err)

	chain := exec.requests[0].Chain.String()
	assert.Equal(t,
		"scale=512:512:force_original_aspect_ratio=decrease,"+
			"format=yuva420p,"+
			"pad=512:512:(ow-iw)/2:(oh-ih)/2:color=0x00000000,"+
			"fps=30",
		chain)
}

func TestEncodeChainClampsLongSource(t *testing.T) {
	exec := &fakeExecutor{
		probe: ProbeResult{Width: 1000, Height: 200, Duration: 5 * time.Second},
		sizes: []int64{1_000},
	}
	enc := newTestEncoder(t, exec)

	_, err := enc.Encode(context.Background(), []byte("source"))
	require.NoError(t, err)

	// 3000ms / 5000ms speed-up factor before the fps stage.
	chain := exec.requests[0].Chain.String()
	assert.Contains(t, chain, "setpts=0.600000*PTS")
	assert.Contains(t, chain, "fps=30")
}

func TestEncodeReplansClampWhenSourceDurationUnknown(t *testing.T) {
	// GIF and some WebM containers report no duration, so the first
	// chain carries no clamp. A long measured output must trigger a
	// second pass planned from that measurement, never a long result.
	exec := &fakeExecutor{
		probe: ProbeResult{Width: 512, Height: 512, Duration: 0},
		sizes: []int64{1_000, 1_000},
		durs:  []time.Duration{5 * time.Second, 3 * time.Second},
	}
	enc := newTestEncoder(t, exec)

	out, err := enc.Encode(context.Background(), []byte("source"))
	require.NoError(t, err)
	assert.Equal(t, 3*time.Second, out.Duration)

	require.Len(t, exec.requests, 2)
	assert.NotContains(t, exec.requests[0].Chain.String(), "setpts")
	assert.Contains(t, exec.requests[1].Chain.String(), "setpts=0.600000*PTS")
}

func TestEncodeRejectsLongOutputAfterReplan(t *testing.T) {
	exec := &fakeExecutor{
		probe: ProbeResult{Width: 512, Height: 512, Duration: 0},
		sizes: []int64{1_000, 1_000},
		durs:  []time.Duration{5 * time.Second, 5 * time.Second},
	}
	enc := newTestEncoder(t, exec)

	_, err := enc.Encode(context.Background(), []byte("source"))
	require.ErrorIs(t, err, ErrEncodingFailure)
	assert.Len(t, exec.requests, 2)
}

func TestEncodeRejectsLongOutputDespiteClamp(t *testing.T) {
	exec := &fakeExecutor{
		probe: ProbeResult{Width: 512, Height: 512, Duration: 5 * time.Second},
		sizes: []int64{1_000},
		durs:  []time.Duration{5 * time.Second},
	}
	enc := newTestEncoder(t, exec)

	_, err := enc.Encode(context.Background(), []byte("source"))
	require.ErrorIs(t, err, ErrEncodingFailure)
	// The chain already clamped; there is nothing better to re-plan.
	assert.Len(t, exec.requests, 1)
}
