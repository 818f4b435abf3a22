package rpc

import (
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"stakedrop/core"
	"stakedrop/core/state"
	"stakedrop/crypto"
	"stakedrop/native/stake"
	"stakedrop/storage"
)

const testToken = "test-rpc-token"

type rpcFixture struct {
	server *Server
	alice  string
	owner  string
}

func newRPCFixture(t *testing.T) *rpcFixture {
	t.Helper()
	t.Setenv("STAKEDROP_RPC_TOKEN", testToken)
	t.Setenv("STAKEDROP_RPC_JWT_SECRET", "")

	aliceKey, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	ownerKey, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	alice := aliceKey.PubKey().Address().String()
	owner := ownerKey.PubKey().Address().String()

	genesis := &core.Genesis{
		Accounts: []core.GenesisAccount{
			{Address: alice, Native: "100000", LP: "1000"},
		},
		Roles:         core.GenesisRoles{Owner: owner, RewardsDistributor: owner},
		MintAuthority: core.MintAuthorityStakingModule,
	}
	node, err := core.NewNode(state.NewManager(storage.NewMemDB()), genesis, core.NodeConfig{
		ClaimPolicy:      stake.PolicyClaimAnytime,
		RewardsDuration:  100,
		CollectiblePrice: big.NewInt(100),
		SupplyCap:        10,
		BaseTokenURL:     "https://img.example.org/",
		TokenURLSuffix:   ".json",
		PlatformFeeBps:   250,
	}, nil)
	require.NoError(t, err)

	return &rpcFixture{server: NewServer(node), alice: alice, owner: owner}
}

func (fx *rpcFixture) post(t *testing.T, body, bearer string) (*httptest.ResponseRecorder, *RPCResponse) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	recorder := httptest.NewRecorder()
	fx.server.Handler().ServeHTTP(recorder, req)

	resp := &RPCResponse{}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), resp))
	return recorder, resp
}

func TestRejectsInvalidPayloads(t *testing.T) {
	fx := newRPCFixture(t)

	_, resp := fx.post(t, "{not json", "")
	require.NotNil(t, resp.Error)
	require.Equal(t, codeParseError, resp.Error.Code)

	_, resp = fx.post(t, `{"jsonrpc":"1.0","method":"stake_totalStaked","id":1}`, "")
	require.NotNil(t, resp.Error)
	require.Equal(t, codeInvalidRequest, resp.Error.Code)

	_, resp = fx.post(t, `{"jsonrpc":"2.0","id":1}`, "")
	require.NotNil(t, resp.Error)
	require.Equal(t, codeInvalidRequest, resp.Error.Code)
}

func TestMethodNotFound(t *testing.T) {
	fx := newRPCFixture(t)
	recorder, resp := fx.post(t, `{"jsonrpc":"2.0","method":"stake_unknown","id":1}`, "")
	require.Equal(t, http.StatusNotFound, recorder.Code)
	require.NotNil(t, resp.Error)
	require.Equal(t, codeMethodNotFound, resp.Error.Code)
}

func TestMutatingMethodsRequireAuth(t *testing.T) {
	fx := newRPCFixture(t)
	body := `{"jsonrpc":"2.0","method":"stake_stake","params":[{"caller":"` + fx.alice + `","amount":"100"}],"id":1}`

	recorder, resp := fx.post(t, body, "")
	require.Equal(t, http.StatusUnauthorized, recorder.Code)
	require.Equal(t, codeUnauthorized, resp.Error.Code)

	_, resp = fx.post(t, body, "wrong-token")
	require.NotNil(t, resp.Error)
	require.Equal(t, codeUnauthorized, resp.Error.Code)

	_, resp = fx.post(t, body, testToken)
	require.Nil(t, resp.Error)
}

func TestQueriesAreOpen(t *testing.T) {
	fx := newRPCFixture(t)

	_, resp := fx.post(t, `{"jsonrpc":"2.0","method":"stake_totalStaked","id":1}`, "")
	require.Nil(t, resp.Error)

	_, resp = fx.post(t, `{"jsonrpc":"2.0","method":"acct_balance","params":["`+fx.alice+`"],"id":2}`, "")
	require.Nil(t, resp.Error)

	raw, err := json.Marshal(resp.Result)
	require.NoError(t, err)
	var balance acctBalanceResult
	require.NoError(t, json.Unmarshal(raw, &balance))
	require.Equal(t, "100000", balance.BalanceNative)
	require.Equal(t, "1000", balance.BalanceLP)
}

func TestStakeFlowOverRPC(t *testing.T) {
	fx := newRPCFixture(t)

	body := `{"jsonrpc":"2.0","method":"stake_stake","params":[{"caller":"` + fx.alice + `","amount":"400"}],"id":1}`
	_, resp := fx.post(t, body, testToken)
	require.Nil(t, resp.Error)

	raw, err := json.Marshal(resp.Result)
	require.NoError(t, err)
	var pos stakePositionResult
	require.NoError(t, json.Unmarshal(raw, &pos))
	require.Equal(t, "400", pos.Balance)

	_, resp = fx.post(t, `{"jsonrpc":"2.0","method":"stake_balanceOf","params":["`+fx.alice+`"],"id":2}`, "")
	require.Nil(t, resp.Error)

	// A malformed amount never reaches the engine.
	bad := `{"jsonrpc":"2.0","method":"stake_stake","params":[{"caller":"` + fx.alice + `","amount":"-5"}],"id":3}`
	_, resp = fx.post(t, bad, testToken)
	require.NotNil(t, resp.Error)
	require.Equal(t, codeInvalidParams, resp.Error.Code)
}

func TestTokenURLQuery(t *testing.T) {
	fx := newRPCFixture(t)

	_, resp := fx.post(t, `{"jsonrpc":"2.0","method":"nft_tokenURL","params":[3],"id":1}`, "")
	require.Nil(t, resp.Error)
	raw, err := json.Marshal(resp.Result)
	require.NoError(t, err)
	var result struct {
		URL string `json:"url"`
	}
	require.NoError(t, json.Unmarshal(raw, &result))
	require.Equal(t, "https://img.example.org/3.json", result.URL)

	_, resp = fx.post(t, `{"jsonrpc":"2.0","method":"nft_tokenURL","params":[99],"id":2}`, "")
	require.NotNil(t, resp.Error)
}

func TestJWTAuth(t *testing.T) {
	fx := newRPCFixture(t)
	secret := "jwt-signing-secret"
	fx.server.authToken = ""
	fx.server.jwtSecret = []byte(secret)

	claims := jwt.MapClaims{"sub": "ops", "exp": time.Now().Add(time.Hour).Unix()}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)

	body := `{"jsonrpc":"2.0","method":"stake_stake","params":[{"caller":"` + fx.alice + `","amount":"10"}],"id":1}`
	_, resp := fx.post(t, body, signed)
	require.Nil(t, resp.Error)

	// Expired tokens are rejected.
	expired := jwt.MapClaims{"sub": "ops", "exp": time.Now().Add(-time.Hour).Unix()}
	signedExpired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, expired).SignedString([]byte(secret))
	require.NoError(t, err)
	_, resp = fx.post(t, body, signedExpired)
	require.NotNil(t, resp.Error)
	require.Equal(t, codeUnauthorized, resp.Error.Code)

	// Tokens signed with another secret are rejected.
	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("other-secret"))
	require.NoError(t, err)
	_, resp = fx.post(t, body, forged)
	require.NotNil(t, resp.Error)
}

func TestMetricsEndpointServed(t *testing.T) {
	fx := newRPCFixture(t)
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	recorder := httptest.NewRecorder()
	fx.server.Handler().ServeHTTP(recorder, req)
	require.Equal(t, http.StatusOK, recorder.Code)
}
