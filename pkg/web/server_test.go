package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-spotter/pkg/alert"
	"github.com/teslashibe/go-spotter/pkg/camera"
	"github.com/teslashibe/go-spotter/pkg/detection"
)

func newTestServer(opts ...Option) *Server {
	return NewServer(Config{Addr: "127.0.0.1:0"}, nil, opts...)
}

func doJSON(t *testing.T, s *Server, method, path string, body any, out any) int {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := s.App().Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestStatus(t *testing.T) {
	s := newTestServer()
	s.UpdateState(func(st *State) {
		st.Message = "Loading model"
		st.Alert.Indicator = alert.IndicatorWarning
	})

	var got State
	assert.Equal(t, http.StatusOK, doJSON(t, s, "GET", "/api/status", nil, &got))
	assert.Equal(t, "Loading model", got.Message)
	assert.False(t, got.Loaded)
	assert.Equal(t, alert.IndicatorWarning, got.Alert.Indicator)
}

func TestDetections(t *testing.T) {
	s := newTestServer()

	var empty []detection.ObjectDetection
	assert.Equal(t, http.StatusOK, doJSON(t, s, "GET", "/api/detections", nil, &empty))
	assert.Empty(t, empty)

	s.SetDetections([]detection.ObjectDetection{{ClassID: 0, ClassName: "person"}})
	var got []map[string]any
	doJSON(t, s, "GET", "/api/detections", nil, &got)
	require.Len(t, got, 1)
	assert.Equal(t, "person", got[0]["class"])
}

func TestDetect(t *testing.T) {
	s := newTestServer()
	req := httptest.NewRequest("POST", "/api/detect", bytes.NewReader([]byte{0xFF}))
	resp, err := s.App().Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	s.OnDetect = func(jpeg []byte) ([]detection.ObjectDetection, error) {
		if len(jpeg) < 2 {
			return nil, errors.New("bad image")
		}
		return []detection.ObjectDetection{{ClassName: "cup"}}, nil
	}

	req = httptest.NewRequest("POST", "/api/detect", bytes.NewReader([]byte{0xFF}))
	resp, err = s.App().Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	req = httptest.NewRequest("POST", "/api/detect", bytes.NewReader([]byte{0xFF, 0xD8}))
	resp, err = s.App().Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAlerts(t *testing.T) {
	history := alert.NewHistory(10)
	history.Add(alert.Record{Event: alert.Event{ID: "1", Label: "person"}, Results: map[string]string{"speech": "ok"}})
	s := newTestServer(WithHistory(history))

	var got []map[string]any
	assert.Equal(t, http.StatusOK, doJSON(t, s, "GET", "/api/alerts", nil, &got))
	require.Len(t, got, 1)
	assert.Equal(t, "person", got[0]["label"])

	assert.Equal(t, http.StatusServiceUnavailable, doJSON(t, s, "POST", "/api/alerts/rearm", nil, nil))

	rearmed := false
	s.OnRearm = func() { rearmed = true }
	assert.Equal(t, http.StatusOK, doJSON(t, s, "POST", "/api/alerts/rearm", nil, nil))
	assert.True(t, rearmed)
}

func TestTarget(t *testing.T) {
	s := newTestServer()
	var target string
	s.OnTarget = func(class string) error {
		target = class
		return nil
	}

	assert.Equal(t, http.StatusBadRequest, doJSON(t, s, "PUT", "/api/alerts/target", TargetRequest{Class: "dragon"}, nil))
	assert.Equal(t, http.StatusOK, doJSON(t, s, "PUT", "/api/alerts/target", TargetRequest{Class: "dog"}, nil))
	assert.Equal(t, "dog", target)
}

func TestCamera(t *testing.T) {
	mgr := camera.NewManager(camera.DefaultConfig())
	var applied camera.Config
	mgr.OnConfigChange = func(cfg camera.Config) error {
		applied = cfg
		return nil
	}
	s := newTestServer(WithCameraManager(mgr))

	var got map[string]any
	assert.Equal(t, http.StatusOK, doJSON(t, s, "PUT", "/api/camera", map[string]any{"preset": "720p", "quality": 60}, &got))
	assert.EqualValues(t, 1280, got["width"])
	assert.EqualValues(t, 60, got["quality"])
	assert.Equal(t, 1280, applied.Width)
	assert.Equal(t, 1280, s.State().Camera.Width)

	assert.Equal(t, http.StatusBadRequest, doJSON(t, s, "PUT", "/api/camera", map[string]any{"preset": "8k"}, nil))
	assert.Equal(t, http.StatusBadRequest, doJSON(t, s, "PUT", "/api/camera", map[string]any{"width": 10}, nil))

	var presets map[string]camera.Config
	assert.Equal(t, http.StatusOK, doJSON(t, s, "GET", "/api/camera/presets", nil, &presets))
	assert.Contains(t, presets, "selfie")
}

func TestCamera_NotConfigured(t *testing.T) {
	s := newTestServer()
	assert.Equal(t, http.StatusServiceUnavailable, doJSON(t, s, "GET", "/api/camera", nil, nil))
}

func TestClasses(t *testing.T) {
	var got []string
	assert.Equal(t, http.StatusOK, doJSON(t, newTestServer(), "GET", "/api/classes", nil, &got))
	assert.Len(t, got, 80)
}

func TestMetricsEndpoint(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("spotter_frames_total 3\n"))
	})
	s := newTestServer(WithMetrics(h))

	resp, err := s.App().Test(httptest.NewRequest("GET", "/metrics", nil), -1)
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "spotter_frames_total 3")
}

func TestWebSocketRequiresUpgrade(t *testing.T) {
	resp, err := newTestServer().App().Test(httptest.NewRequest("GET", "/ws/events", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUpgradeRequired, resp.StatusCode)
}

func TestWebSockets(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := newTestServer()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	base := "ws://" + ln.Addr().String()

	t.Run("events", func(t *testing.T) {
		conn, _, err := websocket.DefaultDialer.Dial(base+"/ws/events", nil)
		require.NoError(t, err)
		defer conn.Close()

		require.Eventually(t, func() bool { return s.Events().ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)
		require.NoError(t, s.Events().BroadcastJSON(alert.VibrateMessage{Type: "vibrate", Duration: 500}))

		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var msg alert.VibrateMessage
		require.NoError(t, conn.ReadJSON(&msg))
		assert.Equal(t, "vibrate", msg.Type)
		assert.EqualValues(t, 500, msg.Duration)
	})

	t.Run("status replays last state", func(t *testing.T) {
		s.UpdateState(func(st *State) { st.Message = "Starting Webcam" })
		time.Sleep(50 * time.Millisecond)

		conn, _, err := websocket.DefaultDialer.Dial(base+"/ws/status", nil)
		require.NoError(t, err)
		defer conn.Close()

		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var st State
		require.NoError(t, conn.ReadJSON(&st))
		assert.Equal(t, "Starting Webcam", st.Message)
	})

	t.Run("camera frames are binary", func(t *testing.T) {
		conn, _, err := websocket.DefaultDialer.Dial(base+"/ws/camera", nil)
		require.NoError(t, err)
		defer conn.Close()

		require.Eventually(t, s.Watching, 2*time.Second, 10*time.Millisecond)
		s.SendCameraFrame([]byte{0xFF, 0xD8, 0xFF, 0xD9})

		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		mt, data, err := conn.ReadMessage()
		require.NoError(t, err)
		assert.Equal(t, websocket.BinaryMessage, mt)
		assert.Equal(t, []byte{0xFF, 0xD8, 0xFF, 0xD9}, data)
	})

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
