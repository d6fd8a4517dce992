package media

import "errors"

// Sentinel errors describing why an incoming media item could not be
// turned into a sticker-ready file. Callers map these to user-facing
// replies, so they stay coarse on purpose.
var (
	// ErrUnsupportedMedia marks content the classifier refuses outright.
	ErrUnsupportedMedia = errors.New("media: unsupported media kind")

	// ErrFetchFailure marks a failed download of the source file.
	ErrFetchFailure = errors.New("media: fetch failed")

	// ErrDecodeFailure marks source bytes the image decoder rejected.
	ErrDecodeFailure = errors.New("media: decode failed")

	// ErrEncodingFailure marks a conversion that failed for reasons other
	// than the size budget.
	ErrEncodingFailure = errors.New("media: encoding failed")

	// ErrSizeBudgetExceeded is returned when every quality step still
	// produced an output above the configured byte budget.
	ErrSizeBudgetExceeded = errors.New("media: size budget exceeded")
)

// Tool-boundary errors reported by the external encoder executor.
var (
	// ErrToolUnavailable means the ffmpeg or ffprobe binary could not be
	// started, or the breaker guarding it is open.
	ErrToolUnavailable = errors.New("media: tool unavailable")

	// ErrToolTimeout means the tool ran past its deadline and was killed.
	ErrToolTimeout = errors.New("media: tool timed out")

	// ErrToolRejectedInput means the tool exited non-zero on the given
	// input, typically a corrupt or truncated file.
	ErrToolRejectedInput = errors.New("media: tool rejected input")
)
