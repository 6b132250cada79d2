package cmd

import (
	"github.com/Aman-CERP/epimem/internal/engerr"
)

// Exit codes per spec.md §6.4. main.go maps a returned error to one of
// these via ExitCodeFor; a nil error is always 0.
const (
	ExitSuccess              = 0
	ExitGenericError         = 1
	ExitInvalidConfig        = 2
	ExitNotInitialized       = 3
	ExitContentStoreIO       = 4
	ExitVectorIndexError     = 5
	ExitEmbeddingUnavailable = 6
)

// ExitCodeFor maps a facade error to its spec §6.4 exit code. Errors that
// are not an *engerr.Error (e.g. cobra's own flag-parsing errors) fall
// back to the generic code.
func ExitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}

	code := engerr.GetCode(err)
	if code == "" {
		return ExitGenericError
	}

	switch engerr.GetKind(err) {
	case engerr.KindNotInitialized:
		return ExitNotInitialized
	case engerr.KindInvalidInput:
		if code == engerr.CodeInvalidConfig {
			return ExitInvalidConfig
		}
		return ExitGenericError
	case engerr.KindStoreIOError:
		return ExitContentStoreIO
	case engerr.KindIndexError:
		return ExitVectorIndexError
	case engerr.KindEmbeddingUnavailable:
		return ExitEmbeddingUnavailable
	default:
		return ExitGenericError
	}
}
