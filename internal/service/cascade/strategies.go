package cascade

import (
	"context"
	"errors"

	"github.com/vertextoedge/issue-exporter/internal/domain"
	"github.com/vertextoedge/issue-exporter/internal/port"
	"github.com/vertextoedge/issue-exporter/internal/transfer"
)

// Strategy names, in cascade order
const (
	StrategyLocalHandle       = "local-handle"
	StrategyAuthHeader        = "auth-header"
	StrategySessionSameOrigin = "session-same-origin"
	StrategySessionAnyOrigin  = "session-cross-origin"
	StrategyPrivilegedOneShot = "privileged-oneshot"
	StrategyLowLevel          = "lowlevel-request"
	StrategyPrivilegedStream  = "privileged-stream"
)

// attempt carries per-resource state between strategies
type attempt struct {
	desc domain.ResourceDescriptor

	// sawOpaque is set once an in-context strategy was blocked by
	// cross-origin policy rather than failing cleanly
	sawOpaque bool
}

type strategy struct {
	name string
	// network strategies require an absolute http(s) URL
	network bool
	run     func(ctx context.Context, a *attempt) Outcome
}

func (c *Cascade) buildStrategies() []strategy {
	return []strategy{
		{name: StrategyLocalHandle, run: c.localHandle},
		{name: StrategyAuthHeader, network: true, run: c.authHeader},
		{name: StrategySessionSameOrigin, network: true, run: c.sessionSameOrigin},
		{name: StrategySessionAnyOrigin, network: true, run: c.sessionAnyOrigin},
		{name: StrategyPrivilegedOneShot, network: true, run: c.privilegedOneShot},
		{name: StrategyLowLevel, network: true, run: c.lowLevel},
		{name: StrategyPrivilegedStream, network: true, run: c.privilegedStream},
	}
}

func (c *Cascade) localHandle(ctx context.Context, a *attempt) Outcome {
	if !a.desc.HasSourceHandle() || c.local == nil {
		return notApplicable("no source handle")
	}
	payload, contentType, err := c.local.Materialize(ctx, a.desc.SourceHandle)
	if err != nil {
		return failed(err)
	}
	return success(payload, contentType)
}

func (c *Cascade) authHeader(ctx context.Context, a *attempt) Outcome {
	if !a.desc.HasAuthHeader() || !a.desc.IsAPIPath() {
		return notApplicable("no auth header or not an api path")
	}
	return fromResponse(c.page.Do(ctx, &port.Request{
		URL:         a.desc.URL,
		Headers:     map[string]string{"Authorization": a.desc.AuthHeader},
		Credentials: port.CredentialsOmit,
	}))
}

func (c *Cascade) sessionSameOrigin(ctx context.Context, a *attempt) Outcome {
	return fromResponse(c.page.Do(ctx, &port.Request{
		URL:         a.desc.URL,
		Credentials: port.CredentialsSameOrigin,
	}))
}

func (c *Cascade) sessionAnyOrigin(ctx context.Context, a *attempt) Outcome {
	return fromResponse(c.page.Do(ctx, &port.Request{
		URL:         a.desc.URL,
		Credentials: port.CredentialsInclude,
	}))
}

func (c *Cascade) privilegedOneShot(ctx context.Context, a *attempt) Outcome {
	if c.privileged == nil {
		return notApplicable("no privileged fetcher")
	}
	if !a.sawOpaque {
		return notApplicable("requester was not blocked")
	}

	req := port.OneShotRequest{URL: a.desc.URL}
	if a.desc.HasAuthHeader() {
		req.Headers = map[string]string{"Authorization": a.desc.AuthHeader}
	}
	res, err := c.privileged.FetchOnce(ctx, req)
	if err != nil {
		return Outcome{Failure: &domain.FetchError{Kind: domain.KindNetworkFailure, Err: err}}
	}
	if !res.Success {
		if res.Status != 0 {
			fe := domain.NewStatusError(res.Status)
			fe.Detail = res.Error
			return Outcome{Failure: fe}
		}
		return failure(domain.KindNetworkFailure, "%s", res.Error)
	}
	payload, err := res.Payload()
	if err != nil {
		return Outcome{Failure: &domain.FetchError{Kind: domain.KindNetworkFailure, Err: err}}
	}
	return success(payload, res.ContentType)
}

// lowLevel uses the low-level request primitive with credentials, and again
// without them only if the first attempt failed at the transport level.
func (c *Cascade) lowLevel(ctx context.Context, a *attempt) Outcome {
	resp, err := c.page.Do(ctx, &port.Request{
		URL:         a.desc.URL,
		Credentials: port.CredentialsInclude,
		Primitive:   port.PrimitiveLowLevel,
	})
	if err == nil || ctx.Err() != nil {
		return fromResponse(resp, err)
	}

	c.logger.Debug("low-level request failed, retrying without credentials")
	return fromResponse(c.page.Do(ctx, &port.Request{
		URL:         a.desc.URL,
		Credentials: port.CredentialsOmit,
		Primitive:   port.PrimitiveLowLevel,
	}))
}

// privilegedStream opens a fresh channel for a single transfer session and
// closes it when the session ends, whatever the outcome.
func (c *Cascade) privilegedStream(ctx context.Context, a *attempt) Outcome {
	if c.privileged == nil {
		return notApplicable("no privileged fetcher")
	}

	ctx, cancel := context.WithTimeout(ctx, c.config.SessionTimeout)
	defer cancel()

	conn, err := c.privileged.OpenChannel(ctx)
	if err != nil {
		return Outcome{Failure: &domain.FetchError{Kind: domain.KindChannelDisconnected, Detail: "open channel", Err: err}}
	}
	defer conn.Close()

	requestID := c.newRequestID()
	if err := conn.Send(ctx, transfer.StreamRequest{URL: a.desc.URL, RequestID: requestID}); err != nil {
		kind := domain.KindChannelDisconnected
		if errors.Is(err, context.DeadlineExceeded) {
			kind = domain.KindSessionTimeout
		}
		return Outcome{Failure: &domain.FetchError{Kind: kind, Detail: "send stream request", Err: err}}
	}

	session, err := transfer.Assemble(ctx, conn, requestID)
	if err != nil {
		return failed(err)
	}
	return success(session.Bytes(), session.ContentType)
}
