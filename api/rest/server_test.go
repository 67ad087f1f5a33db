package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/abcfe/abcfe-metadata/api"
	"github.com/abcfe/abcfe-metadata/api/client"
	"github.com/abcfe/abcfe-metadata/config"
	"github.com/abcfe/abcfe-metadata/metadata"
	prt "github.com/abcfe/abcfe-metadata/protocol"
	"github.com/abcfe/abcfe-metadata/storage"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

var testSeed = bytes.Repeat([]byte{0x42}, 64)

func newTestServer(t *testing.T, tweak func(*config.Config)) (*httptest.Server, *Server) {
	t.Helper()

	cfg := config.Default()
	cfg.Server.ReadsPerSecond = 1000
	cfg.Server.WritesPerSecond = 1000
	cfg.Server.BurstSize = 1000
	if tweak != nil {
		tweak(cfg)
	}

	db, err := storage.OpenDB(filepath.Join(t.TempDir(), "store.db"))
	require.NoError(t, err)

	srv := NewServer(cfg, db)
	go srv.GetWSHub().Run()

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		srv.Stop(context.Background())
		db.Close()
	})
	return ts, srv
}

func newTestService(ts *httptest.Server, seed []byte) *metadata.Service {
	return metadata.NewService(metadata.StaticSeed(seed), client.New(ts.URL, 5*time.Second),
		metadata.WithRetryDelay(10*time.Millisecond))
}

func TestStoreRoundTrip(t *testing.T) {
	ts, _ := newTestServer(t, nil)
	ctx := context.Background()
	svc := newTestService(ts, testSeed)

	_, found, err := svc.Load(ctx, prt.EntryTypeBitcoin)
	require.NoError(t, err)
	require.False(t, found)

	require.NoError(t, svc.Save(ctx, prt.EntryTypeBitcoin, `{"accounts":[]}`))
	require.NoError(t, svc.Save(ctx, prt.EntryTypeBitcoin, `{"accounts":["x"]}`))

	doc, found, err := svc.Load(ctx, prt.EntryTypeBitcoin)
	require.NoError(t, err)
	require.True(t, found)
	require.JSONEq(t, `{"accounts":["x"]}`, doc.String())

	// a second device with the same seed continues the chain
	device := newTestService(ts, testSeed)
	require.NoError(t, device.Save(ctx, prt.EntryTypeBitcoin, `{"accounts":["x","y"]}`))
	doc, _, err = svc.Load(ctx, prt.EntryTypeBitcoin)
	require.NoError(t, err)
	require.JSONEq(t, `{"accounts":["x","y"]}`, doc.String())
}

func TestMagicHashEndpoint(t *testing.T) {
	ts, _ := newTestServer(t, nil)
	ctx := context.Background()
	svc := newTestService(ts, testSeed)
	c := client.New(ts.URL, 5*time.Second)

	address, err := svc.Address(ctx, prt.EntryTypeContacts)
	require.NoError(t, err)

	_, err = c.MagicHash(ctx, address)
	require.ErrorIs(t, err, metadata.ErrNotFound)

	require.NoError(t, svc.Save(ctx, prt.EntryTypeContacts, `{"a":1}`))
	first, err := c.MagicHash(ctx, address)
	require.NoError(t, err)
	require.Len(t, first, 64)

	require.NoError(t, svc.Save(ctx, prt.EntryTypeContacts, `{"a":2}`))
	payload, err := c.Get(ctx, address)
	require.NoError(t, err)
	require.Equal(t, first, payload.PrevMagicHash)
}

func TestPutRejectsStaleWrite(t *testing.T) {
	ts, _ := newTestServer(t, nil)
	ctx := context.Background()
	svc := newTestService(ts, testSeed)
	c := client.New(ts.URL, 5*time.Second)

	require.NoError(t, svc.Save(ctx, prt.EntryTypeContacts, `{"a":1}`))
	address, err := svc.Address(ctx, prt.EntryTypeContacts)
	require.NoError(t, err)

	// replaying the first write is validly signed but no longer chains to the stored state
	stored, err := c.Get(ctx, address)
	require.NoError(t, err)
	_, err = c.Put(ctx, address, stored)
	require.ErrorIs(t, err, metadata.ErrNotFound)

	var status *client.StatusError
	require.ErrorAs(t, err, &status)
	require.Equal(t, http.StatusNotFound, status.Code)
}

func TestPutRejectsForeignSignature(t *testing.T) {
	ts, _ := newTestServer(t, nil)
	ctx := context.Background()
	svc := newTestService(ts, testSeed)
	c := client.New(ts.URL, 5*time.Second)

	require.NoError(t, svc.Save(ctx, prt.EntryTypeContacts, `{"a":1}`))
	from, err := svc.Address(ctx, prt.EntryTypeContacts)
	require.NoError(t, err)
	to, err := svc.Address(ctx, prt.EntryTypeEthereum)
	require.NoError(t, err)

	body, err := c.Get(ctx, from)
	require.NoError(t, err)
	_, err = c.Put(ctx, to, body)

	var status *client.StatusError
	require.ErrorAs(t, err, &status)
	require.Equal(t, http.StatusBadRequest, status.Code)
	require.NotErrorIs(t, err, metadata.ErrNotFound)
}

func TestPutRejectsMalformedBodies(t *testing.T) {
	ts, _ := newTestServer(t, func(cfg *config.Config) {
		cfg.Server.MaxPayloadBytes = 512
	})
	address := "1BgGZ9tcN4rm9KBzDn7KprQz87SZ26SAMH"

	cases := map[string]string{
		"not json":      `{"version":`,
		"bad version":   `{"version":2,"payload":"AA==","signature":"AA==","type_id":4}`,
		"unknown type":  `{"version":1,"payload":"AA==","signature":"AA==","type_id":99}`,
		"bad signature": `{"version":1,"payload":"AA==","signature":"AA==","type_id":4}`,
		"too large":     `{"version":1,"payload":"` + strings.Repeat("A", 1024) + `"}`,
	}
	for name, body := range cases {
		code, resp := doRequest(t, http.MethodPut, ts.URL+"/metadata/"+address, body)
		require.Equal(t, http.StatusBadRequest, code, name)
		require.False(t, resp.Success, name)
		require.NotEmpty(t, resp.Error, name)
	}

	code, _ := doRequest(t, http.MethodPut, ts.URL+"/metadata/not-an-address", `{}`)
	require.Equal(t, http.StatusBadRequest, code)

	code, _ = doRequest(t, http.MethodGet, ts.URL+"/metadata/not-an-address", "")
	require.Equal(t, http.StatusBadRequest, code)

	code, _ = doRequest(t, http.MethodDelete, ts.URL+"/metadata/"+address, "")
	require.Equal(t, http.StatusMethodNotAllowed, code)
}

// A wrong method must never look like a missing prior state to the client
func TestUnsupportedMethodIsNotNotFound(t *testing.T) {
	ts, _ := newTestServer(t, nil)
	address := "1BgGZ9tcN4rm9KBzDn7KprQz87SZ26SAMH"

	for _, req := range []struct{ method, path string }{
		{http.MethodDelete, "/metadata/" + address},
		{http.MethodPost, "/metadata/" + address},
		{http.MethodPut, "/metadata/" + address + "/magic"},
	} {
		code, resp := doRequest(t, req.method, ts.URL+req.path, "")
		require.Equal(t, http.StatusMethodNotAllowed, code, req.method+" "+req.path)
		require.False(t, resp.Success)
		require.Contains(t, resp.Error, "not allowed")
	}

	// a 405 never unwraps to the not-found class that triggers the retry path
	err := error(&client.StatusError{Method: http.MethodDelete, Code: http.StatusMethodNotAllowed})
	require.False(t, errors.Is(err, metadata.ErrNotFound))
}

func TestRateLimitedWrites(t *testing.T) {
	ts, _ := newTestServer(t, func(cfg *config.Config) {
		cfg.Server.WritesPerSecond = 1
	})
	address := "1BgGZ9tcN4rm9KBzDn7KprQz87SZ26SAMH"

	code, _ := doRequest(t, http.MethodPut, ts.URL+"/metadata/"+address, `{}`)
	require.Equal(t, http.StatusBadRequest, code)

	code, resp := doRequest(t, http.MethodPut, ts.URL+"/metadata/"+address, `{}`)
	require.Equal(t, http.StatusTooManyRequests, code)
	require.Contains(t, resp.Error, "rate limited")

	// reads have their own budget
	code, _ = doRequest(t, http.MethodGet, ts.URL+"/metadata/"+address, "")
	require.Equal(t, http.StatusNotFound, code)
}

func TestHomeHandler(t *testing.T) {
	ts, _ := newTestServer(t, nil)

	code, resp := doRequest(t, http.MethodGet, ts.URL+"/", "")
	require.Equal(t, http.StatusOK, code)
	require.True(t, resp.Success)
}

func TestStatsEndpoint(t *testing.T) {
	ts, _ := newTestServer(t, nil)
	ctx := context.Background()
	svc := newTestService(ts, testSeed)

	require.NoError(t, svc.Save(ctx, prt.EntryTypeContacts, `{"c":1}`))
	require.NoError(t, svc.Save(ctx, prt.EntryTypeContacts, `{"c":2}`))
	require.NoError(t, svc.Save(ctx, prt.EntryTypeLockbox, `{"l":1}`))

	resp, err := http.Get(ts.URL + "/stats")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Success bool      `json:"success"`
		Data    StatsResp `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.True(t, out.Success)
	require.Equal(t, 2, out.Data.Entries)
	require.Equal(t, uint64(3), out.Data.TotalWrites)

	contacts, err := svc.Address(ctx, prt.EntryTypeContacts)
	require.NoError(t, err)
	for _, e := range out.Data.List {
		if e.Address == contacts {
			require.Equal(t, uint64(2), e.WriteCount)
			require.Equal(t, int32(prt.EntryTypeContacts), e.TypeID)
			return
		}
	}
	t.Fatalf("contacts entry %s missing from stats", contacts)
}

func TestWebSocketUpdates(t *testing.T) {
	ts, _ := newTestServer(t, nil)
	ctx := context.Background()
	svc := newTestService(ts, testSeed)

	address, err := svc.Address(ctx, prt.EntryTypeWalletConnect)
	require.NoError(t, err)
	other, err := svc.Address(ctx, prt.EntryTypeStellar)
	require.NoError(t, err)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws?address=" + address
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var hello api.WSMessage
	require.NoError(t, conn.ReadJSON(&hello))
	require.Equal(t, api.EventConnected, hello.Event)

	// updates for other addresses are filtered out
	require.NoError(t, svc.Save(ctx, prt.EntryTypeStellar, `{"s":1}`))
	require.NotEqual(t, address, other)
	require.NoError(t, svc.Save(ctx, prt.EntryTypeWalletConnect, `{"w":1}`))

	var msg struct {
		Event api.WSEventType    `json:"event"`
		Data  api.MetadataUpdate `json:"data"`
	}
	require.NoError(t, conn.ReadJSON(&msg))
	require.Equal(t, api.EventMetadataUpdated, msg.Event)
	require.Equal(t, address, msg.Data.Address)
	require.Equal(t, int32(prt.EntryTypeWalletConnect), msg.Data.TypeID)
	require.Equal(t, uint64(1), msg.Data.WriteCount)

	magic, err := client.New(ts.URL, 5*time.Second).MagicHash(ctx, address)
	require.NoError(t, err)
	require.Equal(t, magic, msg.Data.MagicHash)
}

func doRequest(t *testing.T, method, url, body string) (int, RestResp) {
	t.Helper()

	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out RestResp
	json.NewDecoder(resp.Body).Decode(&out)
	return resp.StatusCode, out
}
