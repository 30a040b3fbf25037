package cli

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prudhvinik1/kaucjaflow/internal/config"
	"github.com/prudhvinik1/kaucjaflow/internal/syncer"
)

// loginViaCLI runs login and verify against srv and returns the config path.
func loginViaCLI(t *testing.T, srv string, tokens interface{ Token(string) (string, bool) }) string {
	t.Helper()
	cfgPath := writeConfig(t, config.POSConfig{ServerURL: srv, DeviceID: "pos-1"})

	out, err := execute(t, "", "--config", cfgPath, "--lang", "en", "login", "kasa@sklep.pl", "--shop", "Kiosk")
	require.NoError(t, err)
	assert.Equal(t, "Login link for kasa@sklep.pl was written to the server log.\n", out)

	token, ok := tokens.Token("kasa@sklep.pl")
	require.True(t, ok)

	_, err = execute(t, "", "--config", cfgPath, "verify", token)
	require.NoError(t, err)
	return cfgPath
}

func TestLoginVerify_SavesSession(t *testing.T) {
	// ARRANGE
	srv, store := newServer(t)

	// ACT
	cfgPath := loginViaCLI(t, srv.URL, store)

	// ASSERT
	cfg, err := config.LoadPOSConfig(cfgPath)
	require.NoError(t, err)
	assert.NotEmpty(t, cfg.Token)
	assert.NotEmpty(t, cfg.ShopID)
	assert.Equal(t, "pos-1", cfg.DeviceID)
}

func TestVerify_InvalidToken(t *testing.T) {
	srv, _ := newServer(t)
	cfgPath := writeConfig(t, config.POSConfig{ServerURL: srv.URL})

	_, err := execute(t, "", "--config", cfgPath, "verify", "nope")

	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	var statusErr *syncer.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusBadRequest, statusErr.StatusCode)
	assert.Equal(t, "INVALID_TOKEN", statusErr.Code)
}

func TestSync_PushesAndIsIdempotent(t *testing.T) {
	// ARRANGE
	srv, store := newServer(t)
	cfgPath := loginViaCLI(t, srv.URL, store)
	recordAll(t, cfgPath, "plastic", "glass")

	// ACT
	out, err := execute(t, "", "--config", cfgPath, "--format", "json", "sync")

	// ASSERT
	require.NoError(t, err)
	var first syncer.CycleReport
	decodeData(t, out, &first)
	assert.Equal(t, 2, first.Pushed)
	assert.Equal(t, 2, first.Inserted)
	assert.Equal(t, 2, first.Pulled)

	out, err = execute(t, "", "--config", cfgPath, "--format", "json", "sync")
	require.NoError(t, err)
	var second syncer.CycleReport
	decodeData(t, out, &second)
	assert.Zero(t, second.Pushed)
	assert.Zero(t, second.Downloaded)

	out, err = execute(t, "", "--config", cfgPath, "--format", "json", "today")
	require.NoError(t, err)
	var view TodayView
	decodeData(t, out, &view)
	assert.Equal(t, int64(2), view.Summary.Total)
	assert.Zero(t, view.Unsynced)
}

func TestSync_OfflineKeepsEvents(t *testing.T) {
	// ARRANGE
	srv, store := newServer(t)
	cfgPath := loginViaCLI(t, srv.URL, store)
	recordAll(t, cfgPath, "aluminum")
	srv.Close()

	// ACT
	_, err := execute(t, "", "--config", cfgPath, "sync")

	// ASSERT
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.ErrorIs(t, err, syncer.ErrCycleAborted)

	out, err := execute(t, "", "--config", cfgPath, "--lang", "en", "today")
	require.NoError(t, err)
	assert.True(t, strings.Contains(out, "Pending: 1\n"), out)
}
