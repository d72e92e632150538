package bus

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hammamikhairi/deskmate/internal/domain"
	"github.com/hammamikhairi/deskmate/internal/engine"
	"github.com/hammamikhairi/deskmate/internal/logger"
)

type fakeSubmitter struct {
	mu    sync.Mutex
	texts []string
	err   error
}

func (f *fakeSubmitter) Submit(_ context.Context, source engine.Source, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.texts = append(f.texts, string(source)+":"+text)
	return nil
}

func (f *fakeSubmitter) got() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.texts...)
}

func setup(t *testing.T, sub *fakeSubmitter) (*Server, *websocket.Conn) {
	t.Helper()
	srv := New("", sub, logger.New(logger.LevelOff, nil))
	ts := httptest.NewServer(srv.Handler())

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)

	t.Cleanup(func() {
		conn.Close()
		srv.Close()
		ts.Close()
	})
	require.Eventually(t, func() bool { return srv.Clients() == 1 }, 2*time.Second, 10*time.Millisecond)
	return srv, conn
}

func readFrame(t *testing.T, conn *websocket.Conn) Frame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var f Frame
	require.NoError(t, conn.ReadJSON(&f))
	return f
}

func TestCommandFramesAreSubmitted(t *testing.T) {
	sub := &fakeSubmitter{}
	_, conn := setup(t, sub)

	require.NoError(t, conn.WriteJSON(Frame{Type: KindCommand, Text: " open chrome "}))
	require.NoError(t, conn.WriteJSON(Frame{Type: KindPing}))

	// The pong proves the command frame before it was handled.
	assert.Equal(t, KindPong, readFrame(t, conn).Type)
	assert.Equal(t, []string{"bus:open chrome"}, sub.got())
}

func TestBadFramesGetErrors(t *testing.T) {
	sub := &fakeSubmitter{}
	_, conn := setup(t, sub)

	tests := []struct {
		raw  string
		want string
	}{
		{`not json`, "invalid JSON frame"},
		{`{"type":"command","text":"  "}`, "command text is empty"},
		{`{"type":"dance"}`, `unknown frame type "dance"`},
	}
	for _, tt := range tests {
		require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(tt.raw)))
		f := readFrame(t, conn)
		assert.Equal(t, KindError, f.Type)
		assert.Equal(t, tt.want, f.Message)
	}
	assert.Empty(t, sub.got())
}

func TestSubmitErrorIsReported(t *testing.T) {
	sub := &fakeSubmitter{err: errors.New("dispatch: queue closed")}
	_, conn := setup(t, sub)

	require.NoError(t, conn.WriteJSON(Frame{Type: KindCommand, Text: "open chrome"}))
	f := readFrame(t, conn)
	assert.Equal(t, KindError, f.Type)
	assert.Equal(t, "dispatch: queue closed", f.Message)
}

func TestBroadcastReplyAndNotice(t *testing.T) {
	srv, conn := setup(t, &fakeSubmitter{})

	srv.Broadcast(engine.Reply{
		ID:      "abc",
		Source:  engine.SourceVoice,
		Command: domain.Command{Action: "open_app"},
		Result:  domain.OK("Opened chrome"),
		Text:    "On it! I opened chrome.",
	})
	f := readFrame(t, conn)
	assert.Equal(t, KindReply, f.Type)
	assert.Equal(t, "abc", f.ID)
	assert.Equal(t, "voice", f.Source)
	assert.Equal(t, "open_app", f.Action)
	require.NotNil(t, f.Success)
	assert.True(t, *f.Success)
	assert.Equal(t, "Opened chrome", f.Message)

	require.NoError(t, srv.NotifyUrgent(context.Background(), "Reminder: stretch."))
	n := readFrame(t, conn)
	assert.Equal(t, KindNotice, n.Type)
	assert.Equal(t, "Reminder: stretch.", n.Text)
}

func TestCloseDisconnectsClients(t *testing.T) {
	srv, conn := setup(t, &fakeSubmitter{})

	srv.Close()
	assert.Zero(t, srv.Clients())

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)
}

func TestCheckOrigin(t *testing.T) {
	srv := New("", &fakeSubmitter{}, logger.New(logger.LevelOff, nil), WithAllowedOrigins("http://editor.local"))

	req := func(origin string) *http.Request {
		r := httptest.NewRequest(http.MethodGet, "http://127.0.0.1:8765/ws", nil)
		if origin != "" {
			r.Header.Set("Origin", origin)
		}
		return r
	}
	assert.True(t, srv.checkOrigin(req("")))
	assert.True(t, srv.checkOrigin(req("http://127.0.0.1:8765")))
	assert.True(t, srv.checkOrigin(req("http://editor.local")))
	assert.False(t, srv.checkOrigin(req("https://evil.example")))
}

func TestHealthz(t *testing.T) {
	srv := New("", &fakeSubmitter{}, logger.New(logger.LevelOff, nil))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
