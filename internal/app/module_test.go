package app

import (
	"context"
	"net"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vedran77/relaychat/internal/client"
	"github.com/vedran77/relaychat/internal/config"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"
)

func testConfig(t *testing.T) *config.Config {
	return &config.Config{
		ServerPort:     "0",
		RelayPort:      "0",
		Store:          config.StoreMemory,
		JWTSecret:      "test-secret",
		UploadDir:      t.TempDir(),
		LogLevel:       "error",
		LogFormat:      "json",
		MaxUploadBytes: 1 << 20,
	}
}

func TestModuleServesAPI(t *testing.T) {
	var srv *Server
	app := fxtest.New(t, Module(testConfig(t)), fx.Populate(&srv))
	app.RequireStart()
	defer app.RequireStop()

	_, port, err := net.SplitHostPort(srv.Addr())
	require.NoError(t, err)
	base := "http://127.0.0.1:" + port

	resp, err := http.Get(base + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	c := client.New(base)
	res, err := c.Register(context.Background(), "Ana", "ana@example.com", "Passw0rd!")
	require.NoError(t, err)

	users, err := c.Users(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, res.User.ID, users[0].ID)
}
