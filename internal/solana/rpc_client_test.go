package solana

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newRPCServer returns a test server answering every call with result for the expected method.
func newRPCServer(t *testing.T, method string, result interface{}) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
			return
		}

		if req.Method != method {
			t.Errorf("expected method %s, got %s", method, req.Method)
		}

		resp := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result":  result,
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
}

func TestHTTPClient_GetLatestBlockhash(t *testing.T) {
	server := newRPCServer(t, "getLatestBlockhash", map[string]interface{}{
		"context": map[string]interface{}{"slot": 1},
		"value": map[string]interface{}{
			"blockhash":            "EkSnNWid2cvwEVnVx9aBqawnmiCNiDgp3gUdkDPTKN1N",
			"lastValidBlockHeight": uint64(3090),
		},
	})
	defer server.Close()

	client := NewHTTPClient(server.URL)

	bh, err := client.GetLatestBlockhash(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "EkSnNWid2cvwEVnVx9aBqawnmiCNiDgp3gUdkDPTKN1N", bh.Hash)
	assert.Equal(t, uint64(3090), bh.LastValidBlockHeight)
}

func TestHTTPClient_GetLatestBlockhash_Empty(t *testing.T) {
	server := newRPCServer(t, "getLatestBlockhash", map[string]interface{}{
		"value": map[string]interface{}{"blockhash": ""},
	})
	defer server.Close()

	client := NewHTTPClient(server.URL)

	_, err := client.GetLatestBlockhash(context.Background())
	assert.Error(t, err)
}

func TestHTTPClient_SendTransaction(t *testing.T) {
	payload := []byte{1, 2, 3, 4}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		json.NewDecoder(r.Body).Decode(&req)

		if req.Method != "sendTransaction" {
			t.Errorf("expected method sendTransaction, got %s", req.Method)
		}
		if len(req.Params) != 2 {
			t.Fatalf("expected 2 params, got %d", len(req.Params))
		}
		if req.Params[0] != base64.StdEncoding.EncodeToString(payload) {
			t.Errorf("unexpected encoded transaction: %v", req.Params[0])
		}
		opts, _ := req.Params[1].(map[string]interface{})
		if opts["encoding"] != "base64" {
			t.Errorf("expected base64 encoding, got %v", opts["encoding"])
		}

		json.NewEncoder(w).Encode(map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result":  "5VERv8NMvzbJMEkV8xnrLkEaWRtSz9CosKDYjCJjBRnbJLgp8uirBgmQpjKhoR4tjF3ZpRzrFmBV6UjKdiSZkQUW",
		})
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL)

	sig, err := client.SendTransaction(context.Background(), payload)
	require.NoError(t, err)
	assert.Equal(t, "5VERv8NMvzbJMEkV8xnrLkEaWRtSz9CosKDYjCJjBRnbJLgp8uirBgmQpjKhoR4tjF3ZpRzrFmBV6UjKdiSZkQUW", sig)
}

func TestHTTPClient_GetSignatureStatuses(t *testing.T) {
	server := newRPCServer(t, "getSignatureStatuses", map[string]interface{}{
		"value": []interface{}{
			map[string]interface{}{
				"slot":               int64(72),
				"confirmations":      uint64(10),
				"err":                nil,
				"confirmationStatus": "confirmed",
			},
			nil,
			map[string]interface{}{
				"slot":               int64(48),
				"confirmations":      nil,
				"err":                map[string]interface{}{"InstructionError": []interface{}{0, "Custom"}},
				"confirmationStatus": "finalized",
			},
		},
	})
	defer server.Close()

	client := NewHTTPClient(server.URL)

	statuses, err := client.GetSignatureStatuses(context.Background(), []string{"a", "b", "c"})
	require.NoError(t, err)
	require.Len(t, statuses, 3)

	require.NotNil(t, statuses[0])
	assert.Equal(t, int64(72), statuses[0].Slot)
	assert.True(t, statuses[0].Reached(CommitmentConfirmed))
	assert.False(t, statuses[0].Reached(CommitmentFinalized))
	assert.Nil(t, statuses[0].Err)

	assert.Nil(t, statuses[1])
	assert.False(t, statuses[1].Reached(CommitmentProcessed))

	require.NotNil(t, statuses[2])
	assert.Nil(t, statuses[2].Confirmations)
	assert.NotNil(t, statuses[2].Err)
	assert.True(t, statuses[2].Reached(CommitmentFinalized))
}

func TestHTTPClient_GetTokenAccountsByOwner(t *testing.T) {
	server := newRPCServer(t, "getTokenAccountsByOwner", map[string]interface{}{
		"value": []interface{}{
			map[string]interface{}{
				"pubkey": "C2gJg6tKpQs41PRS1nC8aw3ZKNZK3HQQZGVrDFDup5nx",
				"account": map[string]interface{}{
					"data": map[string]interface{}{
						"program": "spl-token",
						"parsed": map[string]interface{}{
							"info": map[string]interface{}{
								"mint":  "3wyAj7Rt1TWVPZVteFJPLa26JmLvdb1CAKEFZm3NY75E",
								"owner": "4Qkev8aNZcqFNSRhQzwyLMFSsi94jHqE8WNVTJzTP99F",
								"tokenAmount": map[string]interface{}{
									"amount":         "1000000000000",
									"decimals":       9,
									"uiAmountString": "1000",
								},
							},
						},
					},
				},
			},
		},
	})
	defer server.Close()

	client := NewHTTPClient(server.URL)

	accounts, err := client.GetTokenAccountsByOwner(context.Background(),
		"4Qkev8aNZcqFNSRhQzwyLMFSsi94jHqE8WNVTJzTP99F", "3wyAj7Rt1TWVPZVteFJPLa26JmLvdb1CAKEFZm3NY75E")
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, "C2gJg6tKpQs41PRS1nC8aw3ZKNZK3HQQZGVrDFDup5nx", accounts[0].Address)
	assert.Equal(t, uint64(1_000_000_000_000), accounts[0].Amount)
	assert.Equal(t, uint8(9), accounts[0].Decimals)
}

func TestHTTPClient_GetTokenAccountBalance(t *testing.T) {
	server := newRPCServer(t, "getTokenAccountBalance", map[string]interface{}{
		"value": map[string]interface{}{
			"amount":         "9864",
			"decimals":       2,
			"uiAmountString": "98.64",
		},
	})
	defer server.Close()

	client := NewHTTPClient(server.URL)

	bal, err := client.GetTokenAccountBalance(context.Background(), "acct")
	require.NoError(t, err)
	assert.Equal(t, uint64(9864), bal.Amount)
	assert.Equal(t, uint8(2), bal.Decimals)
	assert.Equal(t, "98.64", bal.UIAmountString)
}

func TestHTTPClient_GetBalance(t *testing.T) {
	server := newRPCServer(t, "getBalance", map[string]interface{}{
		"value": uint64(2 * LamportsPerSOL),
	})
	defer server.Close()

	client := NewHTTPClient(server.URL)

	lamports, err := client.GetBalance(context.Background(), "addr")
	require.NoError(t, err)
	assert.Equal(t, uint64(2*LamportsPerSOL), lamports)
}

func TestHTTPClient_Retry(t *testing.T) {
	var attempts atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		count := attempts.Add(1)
		if count < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}

		var req rpcRequest
		json.NewDecoder(r.Body).Decode(&req)

		resp := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result":  int64(999),
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL,
		WithMaxRetries(3),
		WithRetryDelay(10*time.Millisecond),
	)
	ctx := context.Background()

	height, err := client.GetBlockHeight(ctx)
	if err != nil {
		t.Fatalf("GetBlockHeight: %v", err)
	}

	if height != 999 {
		t.Errorf("expected block height 999, got %d", height)
	}

	if attempts.Load() != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts.Load())
	}
}

func TestHTTPClient_RPCError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		json.NewDecoder(r.Body).Decode(&req)

		resp := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"error": map[string]interface{}{
				"code":    -32002,
				"message": "Transaction simulation failed: Attempt to debit an account but found no record of a prior credit.",
			},
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL)

	_, err := client.SendTransaction(context.Background(), []byte{0})
	require.Error(t, err)

	var rpcErr *RPCError
	require.True(t, errors.As(err, &rpcErr), "expected *RPCError, got %T", err)
	assert.Equal(t, -32002, rpcErr.Code)
}

func TestHTTPClient_Observer(t *testing.T) {
	server := newRPCServer(t, "getBlockHeight", uint64(42))
	defer server.Close()

	var observed []string
	client := NewHTTPClient(server.URL, WithObserver(func(method string, _ time.Duration, err error) {
		if err == nil {
			observed = append(observed, method)
		}
	}))

	height, err := client.GetBlockHeight(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(42), height)
	assert.Equal(t, []string{"getBlockHeight"}, observed)
}

func TestHTTPClient_GetAccountInfo(t *testing.T) {
	server := newRPCServer(t, "getAccountInfo", map[string]interface{}{
		"value": map[string]interface{}{
			"lamports":   uint64(1000000),
			"owner":      "11111111111111111111111111111111",
			"data":       []string{"SGVsbG8gV29ybGQ=", "base64"},
			"executable": false,
			"rentEpoch":  uint64(100),
		},
	})
	defer server.Close()

	client := NewHTTPClient(server.URL)
	ctx := context.Background()

	info, err := client.GetAccountInfo(ctx, "testpubkey")
	if err != nil {
		t.Fatalf("GetAccountInfo: %v", err)
	}

	if info == nil {
		t.Fatal("expected account info, got nil")
	}

	if info.Lamports != 1000000 {
		t.Errorf("expected lamports 1000000, got %d", info.Lamports)
	}

	if info.Owner != "11111111111111111111111111111111" {
		t.Errorf("unexpected owner: %s", info.Owner)
	}

	if info.Data != "SGVsbG8gV29ybGQ=" {
		t.Errorf("unexpected data: %s", info.Data)
	}
}

func TestHTTPClient_GetAccountInfo_NotFound(t *testing.T) {
	server := newRPCServer(t, "getAccountInfo", map[string]interface{}{
		"value": nil,
	})
	defer server.Close()

	client := NewHTTPClient(server.URL)

	info, err := client.GetAccountInfo(context.Background(), "nonexistent")
	require.NoError(t, err)
	assert.Nil(t, info)
}

func TestHTTPClient_ContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(100 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL)
	ctx, cancel := context.WithCancel(context.Background())
	cancel() // Cancel immediately

	_, err := client.GetBlockHeight(ctx)
	if err == nil {
		t.Fatal("expected error from cancelled context")
	}
}

func TestEndpoints(t *testing.T) {
	rpc, ws := Endpoints(NetworkMainnetBeta)
	assert.Equal(t, "https://api.mainnet-beta.solana.com", rpc)
	assert.Equal(t, "wss://api.mainnet-beta.solana.com", ws)

	rpc, ws = Endpoints("anything-else")
	assert.Equal(t, "https://api.devnet.solana.com", rpc)
	assert.Equal(t, "wss://api.devnet.solana.com", ws)
}
