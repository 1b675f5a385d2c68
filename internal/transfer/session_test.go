package transfer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vertextoedge/issue-exporter/internal/domain"
)

func TestAssemble_IgnoresOtherRequestIDs(t *testing.T) {
	requester, fetcher := NewPipe(Config{Buffer: 32})
	defer requester.Close()
	ctx := context.Background()

	frames := []Message{
		Chunk{RequestID: "active", Data: []byte("hello ")},
		Chunk{RequestID: "stale", Data: []byte("GARBAGE")},
		Failure{RequestID: "stale", Error: "boom"},
		Chunk{RequestID: "active", Data: []byte("world")},
		Complete{RequestID: "stale", ContentType: "text/html"},
		Complete{RequestID: "active", ContentType: "text/plain"},
	}
	for _, f := range frames {
		require.NoError(t, fetcher.Send(ctx, f))
	}

	session, err := Assemble(ctx, requester, "active")
	require.NoError(t, err)
	assert.Equal(t, domain.SessionCompleted, session.State)
	assert.Equal(t, "hello world", string(session.Bytes()))
	assert.Equal(t, "text/plain", session.ContentType)
	assert.Equal(t, 2, session.ChunkCount())
}

func TestAssemble_StopsAtTerminalMessage(t *testing.T) {
	requester, fetcher := NewPipe(Config{Buffer: 8})
	defer requester.Close()
	ctx := context.Background()

	require.NoError(t, fetcher.Send(ctx, Chunk{RequestID: "r", Data: []byte("body")}))
	require.NoError(t, fetcher.Send(ctx, Complete{RequestID: "r", ContentType: "text/plain"}))
	require.NoError(t, fetcher.Send(ctx, Chunk{RequestID: "r", Data: []byte("late")}))

	session, err := Assemble(ctx, requester, "r")
	require.NoError(t, err)
	assert.True(t, session.State.IsTerminal())
	assert.Equal(t, "body", string(session.Bytes()))

	// frames after the terminal message stay on the channel
	next, err := requester.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, Chunk{RequestID: "r", Data: []byte("late")}, next)
}

func TestAssemble_ErrorMessageFailsSession(t *testing.T) {
	requester, fetcher := NewPipe(Config{})
	defer requester.Close()
	ctx := context.Background()

	require.NoError(t, fetcher.Send(ctx, Chunk{RequestID: "r", Data: []byte("x")}))
	require.NoError(t, fetcher.Send(ctx, Failure{RequestID: "r", Error: "HTTP 500"}))

	session, err := Assemble(ctx, requester, "r")
	require.Error(t, err)
	assert.Equal(t, domain.SessionFailed, session.State)
	assert.Empty(t, session.Bytes())
	assert.Contains(t, err.Error(), "HTTP 500")
}

func TestAssemble_Timeout(t *testing.T) {
	requester, fetcher := NewPipe(Config{})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	session, err := Assemble(ctx, requester, "r")
	require.Error(t, err)
	assert.Equal(t, domain.SessionFailed, session.State)
	assert.Equal(t, domain.KindSessionTimeout, domain.KindOf(err))

	// the channel was force-closed, so the fetcher observes the teardown
	_, err = fetcher.Receive(context.Background())
	assert.ErrorIs(t, err, ErrDisconnected)
}

func TestAssemble_PeerDisconnect(t *testing.T) {
	requester, fetcher := NewPipe(Config{})
	ctx := context.Background()

	require.NoError(t, fetcher.Send(ctx, Chunk{RequestID: "r", Data: []byte("partial")}))
	require.NoError(t, fetcher.Close())

	session, err := Assemble(ctx, requester, "r")
	require.Error(t, err)
	assert.Equal(t, domain.SessionCancelled, session.State)
	assert.Equal(t, domain.KindChannelDisconnected, domain.KindOf(err))
}

func TestPipe_RejectsOversizedChunk(t *testing.T) {
	requester, fetcher := NewPipe(Config{MaxChunkSize: 4})
	defer requester.Close()

	err := fetcher.Send(context.Background(), Chunk{RequestID: "r", Data: []byte("12345")})
	require.ErrorIs(t, err, ErrMessageTooLarge)
}

func TestPipe_SendAfterCloseFails(t *testing.T) {
	requester, fetcher := NewPipe(Config{})
	require.NoError(t, requester.Close())

	err := fetcher.Send(context.Background(), Chunk{RequestID: "r", Data: []byte("x")})
	require.ErrorIs(t, err, ErrDisconnected)
}
