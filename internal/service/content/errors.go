package content

import "errors"

// ErrGenerationUnavailable is returned by GenerateContentHandler when no
// generator is configured.
var ErrGenerationUnavailable = errors.New("content generation is not configured")

// ErrGenerationFailed marks a generator that was reached but could not
// produce a usable draft: the model call failed or its answer was
// malformed. It is an upstream failure, not bad input.
var ErrGenerationFailed = errors.New("content generation failed")
