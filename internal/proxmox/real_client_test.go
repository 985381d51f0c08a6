package proxmox

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/buildforever/farmctl/internal/config"
	"github.com/buildforever/farmctl/internal/fault"
)

// newTestClient points a RealClient at a TLS test server.
func newTestClient(t *testing.T, handler http.Handler, profile config.ConnectionProfile) *RealClient {
	t.Helper()

	srv := httptest.NewTLSServer(handler)
	t.Cleanup(srv.Close)

	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	port, err := strconv.Atoi(u.Port())
	require.NoError(t, err)

	profile.Host = u.Hostname()
	profile.Port = port
	return NewRealClient(profile)
}

func TestRealClient_TokenAuthHeader(t *testing.T) {
	t.Parallel()

	var gotAuth string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api2/json/access/ticket" {
			t.Error("token clients must not request a ticket")
		}
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"data":[{"node":"pve1","status":"online"}]}`)
	})

	client := newTestClient(t, handler, config.ConnectionProfile{
		User:        "farmctl@pve",
		TokenName:   "automation",
		TokenSecret: "s3cret",
	})

	nodes, err := client.ListNodes(context.Background())
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, "pve1", nodes[0].Name)
	assert.Equal(t, "PVEAPIToken=farmctl@pve!automation=s3cret", gotAuth)
}

func TestRealClient_PasswordTicketFlow(t *testing.T) {
	t.Parallel()

	tickets := 0
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api2/json/access/ticket":
			tickets++
			require.NoError(t, r.ParseForm())
			assert.Equal(t, "root@pam", r.FormValue("username"))
			assert.Equal(t, "hunter2", r.FormValue("password"))
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"data":{"ticket":"PVE:tkt","CSRFPreventionToken":"csrf-token"}}`)
		case "/api2/json/nodes":
			cookie, err := r.Cookie("PVEAuthCookie")
			require.NoError(t, err)
			assert.Equal(t, "PVE:tkt", cookie.Value)
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"data":[{"node":"pve1","status":"online"}]}`)
		default:
			http.NotFound(w, r)
		}
	})

	client := newTestClient(t, handler, config.ConnectionProfile{
		User:     "root@pam",
		Password: "hunter2",
	})

	_, err := client.ListNodes(context.Background())
	require.NoError(t, err)
	_, err = client.ListNodes(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, tickets, "ticket should be acquired once and reused")
}

func TestRealClient_BadPasswordIsAuthFault(t *testing.T) {
	t.Parallel()

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	client := newTestClient(t, handler, config.ConnectionProfile{
		User:     "root@pam",
		Password: "wrong",
	})

	_, err := client.ListNodes(context.Background())
	require.Error(t, err)
	assert.True(t, fault.IsKind(err, fault.Auth))
}

func TestRealClient_RejectedTokenIsAuthFault(t *testing.T) {
	t.Parallel()

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	client := newTestClient(t, handler, config.ConnectionProfile{
		User:        "farmctl@pve",
		TokenName:   "automation",
		TokenSecret: "expired",
	})

	_, err := client.ListNodes(context.Background())
	require.Error(t, err)
	assert.True(t, fault.IsKind(err, fault.Auth))
}

func TestRealClient_UnreachableHostIsConnectFault(t *testing.T) {
	t.Parallel()

	client := NewRealClient(config.ConnectionProfile{
		Host:        "127.0.0.1",
		Port:        1, // nothing listens here
		User:        "farmctl@pve",
		TokenName:   "automation",
		TokenSecret: "s3cret",
	})

	_, err := client.ListNodes(context.Background())
	require.Error(t, err)
	assert.True(t, fault.IsKind(err, fault.Connect))
}

func TestRealClient_CreateContainerReturnsTaskID(t *testing.T) {
	t.Parallel()

	var gotParams url.Values
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api2/json/nodes/pve1/lxc", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, r.ParseForm())
		gotParams = r.PostForm
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"data":"UPID:pve1:00001234:vzcreate"}`)
	})

	client := newTestClient(t, handler, config.ConnectionProfile{
		User:        "farmctl@pve",
		TokenName:   "automation",
		TokenSecret: "s3cret",
	})

	upid, err := client.CreateContainer(context.Background(), "pve1", map[string]string{
		"vmid":     "102",
		"hostname": "agent-debian",
	})
	require.NoError(t, err)
	assert.Equal(t, "UPID:pve1:00001234:vzcreate", upid)
	assert.Equal(t, "102", gotParams.Get("vmid"))
	assert.Equal(t, "agent-debian", gotParams.Get("hostname"))
}

func TestRealClient_ContainerIPStripsCIDR(t *testing.T) {
	t.Parallel()

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api2/json/nodes/pve1/lxc/102/interfaces", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"data":[{"name":"lo","inet":"127.0.0.1/8"},{"name":"eth0","inet":"192.168.1.50/24"}]}`)
	})

	client := newTestClient(t, handler, config.ConnectionProfile{
		User:        "farmctl@pve",
		TokenName:   "automation",
		TokenSecret: "s3cret",
	})

	ip, err := client.ContainerIP(context.Background(), "pve1", 102)
	require.NoError(t, err)
	assert.Equal(t, "192.168.1.50", ip)
}
