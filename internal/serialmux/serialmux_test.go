package serialmux

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/tofmotion/internal/monitoring"
)

const frameA = "#Obj,0,0,0,0,0,150,200,0,0,150,200,0,0,0,0,0,0,0,0,0,0,0,0"

// localHostRequest creates an httptest request that appears to come from localhost.
// This bypasses tsweb.AllowDebugAccess which checks for loopback IPs.
func localHostRequest(method, path string, body io.Reader) *http.Request {
	req := httptest.NewRequest(method, path, body)
	req.RemoteAddr = "127.0.0.1:12345"
	return req
}

func drain(ch chan string) []string {
	var out []string
	for {
		select {
		case line, ok := <-ch:
			if !ok {
				return out
			}
			out = append(out, line)
		default:
			return out
		}
	}
}

func TestMonitor_FansOutLines(t *testing.T) {
	port := NewTestableSerialPort()
	port.AddReadData([]byte(frameA + "\r\nboot ok\n#Err,inter,3,but no data\n"))
	mux := NewSerialMux(port)

	_, a := mux.Subscribe()
	_, b := mux.Subscribe()

	// the testable port returns EOF once drained, ending Monitor cleanly
	require.NoError(t, mux.Monitor(context.Background()))

	// bufio.ScanLines drops the carriage return
	want := []string{frameA, "boot ok", "#Err,inter,3,but no data"}
	assert.Equal(t, want, drain(a))
	assert.Equal(t, want, drain(b))
	assert.Equal(t, MonitorStats{Lines: 3, Frames: 1, DeviceErrors: 1, Unknown: 1}, mux.Stats())
}

func TestMonitor_ContextCancel(t *testing.T) {
	port := NewTestableSerialPort()
	port.BlockReads = true
	mux := NewSerialMux(port)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- mux.Monitor(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Monitor did not return after cancel")
	}
	require.NoError(t, mux.Close())
}

func TestMonitor_ReadError(t *testing.T) {
	port := NewTestableSerialPort()
	port.ReadError = errors.New("device unplugged")
	mux := NewSerialMux(port)

	err := mux.Monitor(context.Background())
	assert.EqualError(t, err, "device unplugged")
}

func TestMonitor_SlowSubscriberDoesNotBlock(t *testing.T) {
	port := NewTestableSerialPort()
	var sb strings.Builder
	for i := 0; i < subscriberBuffer*2; i++ {
		sb.WriteString(frameA + "\n")
	}
	port.AddReadData([]byte(sb.String()))
	mux := NewSerialMux(port)
	_, ch := mux.Subscribe()

	require.NoError(t, mux.Monitor(context.Background()))
	assert.Len(t, drain(ch), subscriberBuffer)
	assert.Equal(t, uint64(subscriberBuffer), mux.Stats().Dropped)
}

func TestMonitor_LogsDropStreakOnce(t *testing.T) {
	var logs []string
	monitoring.SetLogger(func(format string, v ...interface{}) {
		logs = append(logs, fmt.Sprintf(format, v...))
	})
	t.Cleanup(func() { monitoring.SetLogger(nil) })

	port := NewTestableSerialPort()
	port.AddReadData([]byte(strings.Repeat(frameA+"\n", subscriberBuffer+3)))
	mux := NewSerialMux(port)
	id, ch := mux.Subscribe()

	require.NoError(t, mux.Monitor(context.Background()))
	assert.Equal(t, []string{"subscriber " + id + " is full; dropping lines"}, logs)

	// once drained the subscriber receives again and the streak is reported
	drain(ch)
	port.AddReadData([]byte(frameA + "\n"))
	require.NoError(t, mux.Monitor(context.Background()))
	assert.Equal(t, []string{frameA}, drain(ch))
	require.Len(t, logs, 2)
	assert.Equal(t, "subscriber "+id+" caught up after 3 dropped lines", logs[1])

	stats := mux.Stats()
	assert.Equal(t, uint64(3), stats.Dropped)
	assert.Equal(t, uint64(subscriberBuffer+4), stats.Frames)
}

func TestSubscribeUnsubscribe(t *testing.T) {
	mux := NewSerialMux(NewTestableSerialPort())
	id, ch := mux.Subscribe()
	require.NotEmpty(t, id)

	mux.Unsubscribe(id)
	_, ok := <-ch
	assert.False(t, ok, "channel closed on unsubscribe")

	// unknown IDs are ignored
	mux.Unsubscribe("missing")
}

func TestClose_ClosesSubscribersAndPort(t *testing.T) {
	port := NewTestableSerialPort()
	mux := NewSerialMux(port)
	_, ch := mux.Subscribe()

	require.NoError(t, mux.Close())
	_, ok := <-ch
	assert.False(t, ok)
	assert.True(t, port.Closed)
}

func TestSendCommand(t *testing.T) {
	port := NewTestableSerialPort()
	mux := NewSerialMux(port)

	require.NoError(t, mux.SendCommand("m"))
	require.NoError(t, mux.SendCommand("s\n"))
	assert.Equal(t, "m\ns\n", string(port.GetWrittenData()))

	port.WriteError = errors.New("boom")
	assert.EqualError(t, mux.SendCommand("h"), "boom")
}

type shortWritePort struct{ *TestableSerialPort }

func (shortWritePort) Write(p []byte) (int, error) { return len(p) - 1, nil }

func TestSendCommand_ShortWrite(t *testing.T) {
	mux := NewSerialMux(shortWritePort{NewTestableSerialPort()})
	assert.ErrorIs(t, mux.SendCommand("m"), ErrWriteFailed)
}

func TestInitialise(t *testing.T) {
	port := NewTestableSerialPort()
	mux := NewSerialMux(port)

	require.NoError(t, mux.Initialise())
	assert.Equal(t, "E\nm\n", string(port.GetWrittenData()))

	port.WriteError = errors.New("tx fault")
	err := mux.Initialise()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"E"`)
}

func TestAttachAdminRoutes_SendCommandAPI(t *testing.T) {
	port := NewTestableSerialPort()
	mux := NewSerialMux(port)
	httpMux := http.NewServeMux()
	mux.AttachAdminRoutes(httpMux)

	tests := []struct {
		name   string
		method string
		form   url.Values
		status int
	}{
		{"valid", http.MethodPost, url.Values{"command": {"m"}}, http.StatusOK},
		{"empty", http.MethodPost, url.Values{"command": {"  "}}, http.StatusBadRequest},
		{"not allowed", http.MethodPost, url.Values{"command": {"q"}}, http.StatusBadRequest},
		{"wrong method", http.MethodGet, nil, http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := localHostRequest(tt.method, "/debug/send-command-api", strings.NewReader(tt.form.Encode()))
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			w := httptest.NewRecorder()
			httpMux.ServeHTTP(w, req)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
		})
	}
	assert.Equal(t, "m\n", string(port.GetWrittenData()))
}

func TestAttachAdminRoutes_TailMethod(t *testing.T) {
	mux := NewSerialMux(NewTestableSerialPort())
	httpMux := http.NewServeMux()
	mux.AttachAdminRoutes(httpMux)

	w := httptest.NewRecorder()
	httpMux.ServeHTTP(w, localHostRequest(http.MethodPost, "/debug/tail", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestAttachAdminRoutes_TailStreamsLines(t *testing.T) {
	mux := NewSerialMux(NewTestableSerialPort())
	httpMux := http.NewServeMux()
	mux.AttachAdminRoutes(httpMux)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req := localHostRequest(http.MethodGet, "/debug/tail", nil).WithContext(ctx)
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		defer close(done)
		httpMux.ServeHTTP(w, req)
	}()

	// wait for the handler to subscribe, then publish through the mux
	require.Eventually(t, func() bool {
		mux.subscriberMu.Lock()
		defer mux.subscriberMu.Unlock()
		return len(mux.subscribers) == 1
	}, 2*time.Second, 5*time.Millisecond)

	mux.subscriberMu.Lock()
	for _, ch := range mux.subscribers {
		ch <- frameA
	}
	mux.subscriberMu.Unlock()

	// closing the mux closes the subscriber channel and ends the stream
	require.NoError(t, mux.Close())
	<-done

	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), "data: "+frameA)
}
