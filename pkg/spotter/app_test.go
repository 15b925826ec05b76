package spotter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestApp(t *testing.T) *App {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Alerters.Speech.Enabled = false
	cfg.Web.Addr = "127.0.0.1:0"

	a, err := New(cfg, zap.NewNop())
	require.NoError(t, err)
	return a
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Alert.Target = "unicorn"
	_, err := New(cfg, nil)

	var cerr *ConfigError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "alert", cerr.Field)
}

func TestApp_Wiring(t *testing.T) {
	a := newTestApp(t)
	require.NotNil(t, a.Web())

	names := make([]string, 0)
	for _, al := range a.alerts.Alerters() {
		names = append(names, al.Name())
	}
	assert.Equal(t, []string{"haptic"}, names)
	assert.NotNil(t, a.web.OnRearm)
	assert.NotNil(t, a.web.OnDetect)
	assert.NotNil(t, a.web.OnTarget)
}

func TestApp_SetTarget(t *testing.T) {
	a := newTestApp(t)

	require.NoError(t, a.setTarget("dog"))
	assert.Equal(t, "dog", a.debouncer.Config().Target)
	assert.Error(t, a.setTarget("unicorn"))
	assert.Equal(t, "dog", a.debouncer.Config().Target)
}

func TestApp_DetectBeforeModelLoaded(t *testing.T) {
	a := newTestApp(t)
	_, err := a.detectJPEG([]byte{0xFF, 0xD8})
	assert.EqualError(t, err, "model not loaded")
}

func TestApp_StatusUpdatesDashboard(t *testing.T) {
	a := newTestApp(t)
	a.status(StatusLoadingModel)
	assert.Equal(t, StatusLoadingModel, a.web.State().Message)

	a.fail("webcam unavailable", assert.AnError)
	st := a.web.State()
	assert.Equal(t, "webcam unavailable", st.Message)
	assert.Equal(t, assert.AnError.Error(), st.Error)
	assert.False(t, st.Running)
}

func TestApp_ShutdownWithoutRun(t *testing.T) {
	a := newTestApp(t)
	assert.NotPanics(t, a.Shutdown)
}
