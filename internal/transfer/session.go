package transfer

import (
	"context"
	"errors"

	"github.com/vertextoedge/issue-exporter/internal/domain"
)

// Assemble drives one TransferSession to a terminal state by reading from conn.
// Messages for other request ids are ignored. On timeout or cancellation the
// channel is force-closed so the fetcher aborts its request.
func Assemble(ctx context.Context, conn Conn, requestID string) (*domain.TransferSession, error) {
	session := domain.NewTransferSession(requestID)

	for !session.State.IsTerminal() {
		msg, err := conn.Receive(ctx)
		if err != nil {
			return session, abortSession(ctx, conn, session, err)
		}

		if msg.ID() != requestID {
			continue
		}

		switch m := msg.(type) {
		case Chunk:
			if err := session.AppendChunk(m.Data); err != nil {
				return session, err
			}
		case Complete:
			if err := session.Complete(m.ContentType); err != nil {
				return session, err
			}
		case Failure:
			session.Fail(domain.NewFetchError(domain.KindNetworkFailure, m.Error))
		}
	}
	return session, session.Err
}

func abortSession(ctx context.Context, conn Conn, session *domain.TransferSession, err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		conn.Close()
		session.Fail(&domain.FetchError{Kind: domain.KindSessionTimeout, Err: err})
	case errors.Is(err, context.Canceled):
		conn.Close()
		session.Cancel(&domain.FetchError{Kind: domain.KindChannelDisconnected, Detail: "cancelled", Err: err})
	default:
		session.Cancel(&domain.FetchError{Kind: domain.KindChannelDisconnected, Err: err})
	}
	return session.Err
}
