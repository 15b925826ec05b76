package detection

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

type fakeDetector struct {
	closed atomic.Bool
}

func (f *fakeDetector) Detect(gocv.Mat) ([]ObjectDetection, error) { return nil, nil }

func (f *fakeDetector) Close() error {
	f.closed.Store(true)
	return nil
}

func TestLoadAsync(t *testing.T) {
	release := make(chan struct{})
	det := &fakeDetector{}

	p := loadAsync(context.Background(), func() (Detector, error) {
		<-release
		return det, nil
	})
	assert.False(t, p.Ready())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := p.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(release)
	got, err := p.Wait(context.Background())
	require.NoError(t, err)
	assert.Same(t, det, got)
	assert.True(t, p.Ready())
}

func TestPending_WaitPrefersFinishedLoad(t *testing.T) {
	det := &fakeDetector{}
	p := loadAsync(context.Background(), func() (Detector, error) { return det, nil })
	<-p.Done()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	for i := 0; i < 50; i++ {
		got, err := p.Wait(ctx)
		require.NoError(t, err)
		assert.Same(t, det, got)
	}
}

func TestLoadAsync_Error(t *testing.T) {
	p := loadAsync(context.Background(), func() (Detector, error) {
		return nil, ErrModelNotFound
	})
	_, err := p.Wait(context.Background())
	assert.ErrorIs(t, err, ErrModelNotFound)
}

func TestLoadAsync_CancelledClosesDetector(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	det := &fakeDetector{}

	p := loadAsync(ctx, func() (Detector, error) {
		cancel()
		return det, nil
	})
	<-p.Done()

	_, err := p.Wait(context.Background())
	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, det.closed.Load())
}

func TestPull(t *testing.T) {
	payload := []byte("onnx-weights")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/yolov8n.onnx" {
			http.NotFound(w, r)
			return
		}
		w.Write(payload)
	}))
	defer srv.Close()

	dir := t.TempDir()
	dst := filepath.Join(dir, "models", "yolov8n.onnx")

	err := pull(context.Background(), resty.New(), srv.URL+"/yolov8n.onnx", dst, io.Discard)
	require.NoError(t, err)

	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, payload, got)

	err = pull(context.Background(), resty.New(), srv.URL+"/missing.onnx", filepath.Join(dir, "missing.onnx"), io.Discard)
	assert.Error(t, err)
	_, statErr := os.Stat(filepath.Join(dir, "missing.onnx"))
	assert.True(t, errors.Is(statErr, os.ErrNotExist))

	leftovers, _ := filepath.Glob(filepath.Join(dir, "*.part"))
	assert.Empty(t, leftovers)
}

func TestPull_RequiresURL(t *testing.T) {
	assert.Error(t, Pull(context.Background(), "", filepath.Join(t.TempDir(), "x.onnx")))
}
