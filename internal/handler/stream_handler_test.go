package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type streamMessage struct {
	Revision uint64    `json:"revision"`
	Groups   []string  `json:"groups"`
	Draft    testDraft `json:"draft"`
}

func dialStream(t *testing.T, api *testAPI, id string, header http.Header) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	srv := httptest.NewServer(api.router)
	t.Cleanup(srv.Close)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/sessions/" + id + "/stream"
	return websocket.DefaultDialer.Dial(url, header)
}

func newStreamAPI(t *testing.T, origins []string) *testAPI {
	api := newTestAPI(t, "")
	NewStreamHandler(api.sessions, origins, zap.NewNop()).RegisterRoutes(&api.router.RouterGroup)
	return api
}

func readStream(t *testing.T, conn *websocket.Conn) streamMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg streamMessage
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestStreamHandler_PushesChanges(t *testing.T) {
	api := newStreamAPI(t, nil)
	id := api.createSession()

	conn, _, err := dialStream(t, api, id, nil)
	require.NoError(t, err)
	defer conn.Close()

	first := readStream(t, conn)
	assert.Empty(t, first.Groups)
	assert.Empty(t, first.Draft.Items)

	sess, err := api.sessions.Get(uuid.MustParse(id))
	require.NoError(t, err)
	_, err = sess.Store().AddItem("Sofa")
	require.NoError(t, err)

	next := readStream(t, conn)
	assert.Greater(t, next.Revision, first.Revision)
	assert.Contains(t, next.Groups, "items")
	require.Len(t, next.Draft.Items, 1)
	assert.Equal(t, "Sofa", next.Draft.Items[0].Name)
}

func TestStreamHandler_UnknownSession(t *testing.T) {
	api := newStreamAPI(t, nil)

	_, resp, err := dialStream(t, api, uuid.NewString(), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	_, resp, err = dialStream(t, api, "not-a-uuid", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestStreamHandler_RejectsForeignOrigin(t *testing.T) {
	api := newStreamAPI(t, []string{"https://quote.example.com"})
	id := api.createSession()

	_, resp, err := dialStream(t, api, id, http.Header{"Origin": {"https://evil.example.com"}})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	conn, _, err := dialStream(t, api, id, http.Header{"Origin": {"https://quote.example.com"}})
	require.NoError(t, err)
	defer conn.Close()
	readStream(t, conn)
}
