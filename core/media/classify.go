package media

import "strings"

// Kind is the processing route chosen for an incoming media item.
type Kind string

const (
	// KindStillImage goes through the in-process image normalizer.
	KindStillImage Kind = "still_image"
	// KindAnimation goes through the external animated encoder.
	KindAnimation Kind = "animation"
	// KindUnsupported is everything the pipeline cannot convert.
	KindUnsupported Kind = "unsupported"
)

// Classify maps a MIME content type onto a processing route.
//
// GIFs are treated as animations even though their MIME type is image/*:
// flattening them to a single frame would silently drop the motion the
// user sent. Unknown and empty types are unsupported rather than guessed.
func Classify(contentType string) Kind {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	switch {
	case ct == "image/gif":
		return KindAnimation
	case strings.HasPrefix(ct, "image/"):
		return KindStillImage
	case strings.HasPrefix(ct, "video/"):
		return KindAnimation
	default:
		return KindUnsupported
	}
}
