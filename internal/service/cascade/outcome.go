package cascade

import (
	"errors"
	"fmt"

	"github.com/vertextoedge/issue-exporter/internal/domain"
	"github.com/vertextoedge/issue-exporter/internal/port"
)

// Outcome is the tagged result of one strategy: a payload on success, or the
// reason it failed. Strategies never signal failure by returning an error.
type Outcome struct {
	Payload     []byte
	ContentType string
	Failure     *domain.FetchError
}

// OK returns true for a successful outcome
func (o Outcome) OK() bool {
	return o.Failure == nil
}

func success(payload []byte, contentType string) Outcome {
	return Outcome{Payload: payload, ContentType: contentType}
}

func failure(kind domain.ErrorKind, format string, args ...any) Outcome {
	return Outcome{Failure: domain.NewFetchError(kind, fmt.Sprintf(format, args...))}
}

func failed(err error) Outcome {
	var fe *domain.FetchError
	if errors.As(err, &fe) {
		return Outcome{Failure: fe}
	}
	return Outcome{Failure: &domain.FetchError{Kind: domain.KindOf(err), Err: err}}
}

func notApplicable(reason string) Outcome {
	return failure(domain.KindNotApplicable, "%s", reason)
}

// fromResponse classifies an executor result
func fromResponse(resp *port.Response, err error) Outcome {
	switch {
	case err != nil:
		return Outcome{Failure: &domain.FetchError{Kind: domain.KindNetworkFailure, Err: err}}
	case resp.IsOpaque():
		return failure(domain.KindCORSBlocked, "response withheld by cross-origin policy")
	case !resp.OK():
		return Outcome{Failure: domain.NewStatusError(resp.Status)}
	default:
		return success(resp.Body, resp.ContentType)
	}
}
