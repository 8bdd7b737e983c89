// Copyright (c) 2025 The Plume developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package staking

import (
	"bytes"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ethereum/go-ethereum/common/math"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plumenetwork/plume/kv"
	"github.com/plumenetwork/plume/plume"
	engine "github.com/plumenetwork/plume/staking"
	"github.com/plumenetwork/plume/staking/ledger"
	"github.com/plumenetwork/plume/staking/registry"
)

const year = uint64(365 * 24 * 3600)

var (
	admin = plume.BytesToAddress([]byte("admin"))
	alice = plume.BytesToAddress([]byte("alice"))
)

func tokens(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), plume.Precision)
}

type stubSource struct{}

func (stubSource) Validators() ([]registry.Validator, error) {
	return []registry.Validator{
		{ID: 1, TotalStaked: new(big.Int), Active: true, AddedAt: 1},
	}, nil
}

func newTestServer(t *testing.T) (*httptest.Server, *engine.Minter) {
	t.Helper()

	auth := engine.NewStaticAuthorizer([]plume.Address{admin}, nil)
	m, err := engine.New(kv.NewMem(), stubSource{}, auth)
	require.NoError(t, err)
	t.Cleanup(m.Close)

	require.NoError(t, m.SetLockupOptions(admin, []ledger.LockupOption{
		{Duration: year, APYBps: 500},
	}))
	_, err = m.SyncValidators(admin)
	require.NoError(t, err)
	require.NoError(t, m.AddBuckets(admin, 1, 2))
	require.NoError(t, m.MintPLUME(admin, alice, tokens(2000)))

	router := mux.NewRouter()
	New(m).Mount(router, "/staking")
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv, m
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	res, err := http.Post(url, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	return res
}

func decodeBody(t *testing.T, res *http.Response, v any) {
	t.Helper()
	defer res.Body.Close()
	require.NoError(t, json.NewDecoder(res.Body).Decode(v))
}

func TestStakeAndGetAccount(t *testing.T) {
	srv, _ := newTestServer(t)

	res := postJSON(t, srv.URL+"/staking/stake?now=0", &StakeRequest{
		User:         alice.String(),
		Validator:    1,
		Amount:       (*math.HexOrDecimal256)(tokens(1000)),
		LockDuration: year,
	})
	require.Equal(t, http.StatusOK, res.StatusCode)
	res.Body.Close()

	res, err := http.Get(srv.URL + "/staking/accounts/" + alice.String())
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.StatusCode)

	var acc Account
	decodeBody(t, res, &acc)
	require.NotNil(t, acc.Stake)
	assert.Equal(t, 0, (*big.Int)(acc.Stake.Amount).Cmp(tokens(1000)))
	assert.Equal(t, year, acc.Stake.LockDuration)
	assert.Nil(t, acc.PendingRequest)
}

func TestUnstakeRequestFlow(t *testing.T) {
	srv, _ := newTestServer(t)

	res := postJSON(t, srv.URL+"/staking/stake?now=0", &StakeRequest{
		User:         alice.String(),
		Validator:    1,
		Amount:       (*math.HexOrDecimal256)(tokens(1000)),
		LockDuration: year,
	})
	require.Equal(t, http.StatusOK, res.StatusCode)
	res.Body.Close()

	res = postJSON(t, srv.URL+"/staking/unstake/request?now=0", &AmountRequest{
		User:   alice.String(),
		Amount: (*math.HexOrDecimal256)(tokens(100)),
	})
	require.Equal(t, http.StatusOK, res.StatusCode)
	var out struct {
		ID        uint64 `json:"id"`
		ReadyTime uint64 `json:"readyTime"`
	}
	decodeBody(t, res, &out)
	assert.Equal(t, uint64(1), out.ID)
	assert.Equal(t, plume.DefaultCooldownPeriod, out.ReadyTime)

	res, err := http.Get(srv.URL + "/staking/requests")
	require.NoError(t, err)
	var ids []uint64
	decodeBody(t, res, &ids)
	assert.Equal(t, []uint64{1}, ids)

	res, err = http.Get(srv.URL + "/staking/requests/1")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.StatusCode)
	var req Request
	decodeBody(t, res, &req)
	assert.Equal(t, 0, (*big.Int)(req.Amount).Cmp(tokens(100)))
}

func TestErrorMapping(t *testing.T) {
	srv, _ := newTestServer(t)

	// Unknown validator.
	res := postJSON(t, srv.URL+"/staking/stake?now=0", &StakeRequest{
		User:         alice.String(),
		Validator:    9,
		Amount:       (*math.HexOrDecimal256)(tokens(10)),
		LockDuration: year,
	})
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
	res.Body.Close()

	// No active stake is a state conflict.
	res = postJSON(t, srv.URL+"/staking/unstake/request?now=0", &AmountRequest{
		User:   alice.String(),
		Amount: (*math.HexOrDecimal256)(tokens(10)),
	})
	assert.Equal(t, http.StatusConflict, res.StatusCode)
	res.Body.Close()

	// Malformed address.
	res = postJSON(t, srv.URL+"/staking/park", &AmountRequest{
		User:   "not-an-address",
		Amount: (*math.HexOrDecimal256)(tokens(10)),
	})
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	res.Body.Close()

	// Unknown request ID.
	res, err := http.Get(srv.URL + "/staking/requests/42")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
	res.Body.Close()

	// Unknown body fields are rejected.
	res, err = http.Post(srv.URL+"/staking/park", "application/json",
		bytes.NewReader([]byte(`{"user":"0x00","bogus":1}`)))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	res.Body.Close()
}

func TestGetConfig(t *testing.T) {
	srv, m := newTestServer(t)
	require.NoError(t, m.SetPenalty(admin, 500))

	res, err := http.Get(srv.URL + "/staking/config")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.StatusCode)

	var cfg map[string]any
	decodeBody(t, res, &cfg)
	assert.Equal(t, float64(500), cfg["penaltyBps"])
	assert.Equal(t, float64(plume.DefaultCooldownPeriod), cfg["cooldownPeriod"])
}

func TestGetBuffer(t *testing.T) {
	srv, m := newTestServer(t)
	require.NoError(t, m.SetWithholdRatio(admin, 1000))

	res := postJSON(t, srv.URL+"/staking/stake?now=0", &StakeRequest{
		User:         alice.String(),
		Validator:    1,
		Amount:       (*math.HexOrDecimal256)(tokens(1000)),
		LockDuration: year,
	})
	require.Equal(t, http.StatusOK, res.StatusCode)
	res.Body.Close()

	res, err := http.Get(srv.URL + "/staking/buffer")
	require.NoError(t, err)
	var state BufferState
	decodeBody(t, res, &state)
	assert.Equal(t, 0, (*big.Int)(state.Available).Cmp(tokens(100)))
	assert.Equal(t, 0, (*big.Int)(state.TotalOutstanding).Sign())
}
