package rpc

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"stakedrop/core"
	"stakedrop/crypto"
)

const (
	jsonRPCVersion  = "2.0"
	maxRequestBytes = 1 << 20 // 1 MiB
)

const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeUnauthorized   = -32001
	codeServerError    = -32000
)

// Server exposes the node's module operations over JSON-RPC 2.0. Mutating
// methods require bearer authentication; queries are open.
type Server struct {
	node      *core.Node
	authToken string
	jwtSecret []byte
}

// NewServer builds a server around the node. Credentials come from the
// STAKEDROP_RPC_TOKEN and STAKEDROP_RPC_JWT_SECRET environment variables; at
// least one must be set for mutating methods to be callable.
func NewServer(node *core.Node) *Server {
	return &Server{
		node:      node,
		authToken: strings.TrimSpace(os.Getenv("STAKEDROP_RPC_TOKEN")),
		jwtSecret: []byte(strings.TrimSpace(os.Getenv("STAKEDROP_RPC_JWT_SECRET"))),
	}
}

// Handler returns the HTTP mux serving the RPC endpoint and /metrics.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handle)
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

// Start serves RPC traffic on addr until the listener fails.
func (s *Server) Start(addr string) error {
	fmt.Printf("Starting JSON-RPC server on %s\n", addr)
	return http.ListenAndServe(addr, s.Handler())
}

type RPCRequest struct {
	JSONRPC string            `json:"jsonrpc"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
	ID      int               `json:"id"`
}

type RPCResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *RPCError   `json:"error,omitempty"`
}

type RPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func writeError(w http.ResponseWriter, status int, id interface{}, code int, message string, data interface{}) {
	if status <= 0 {
		status = http.StatusBadRequest
	}
	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	errObj := &RPCError{Code: code, Message: message}
	if data != nil {
		errObj.Data = data
	}
	resp := RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Error: errObj}
	_ = json.NewEncoder(w).Encode(resp)
}

func writeResult(w http.ResponseWriter, id interface{}, result interface{}) {
	resp := RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Result: result}
	_ = json.NewEncoder(w).Encode(resp)
}

func decodeBech32(addr string) ([20]byte, error) {
	var out [20]byte
	decoded, err := crypto.DecodeAddress(strings.TrimSpace(addr))
	if err != nil {
		return out, err
	}
	copy(out[:], decoded.Bytes())
	return out, nil
}

func renderAddress(addr [20]byte) string {
	rendered, err := crypto.NewAddress(crypto.StakePrefix, addr[:])
	if err != nil {
		return ""
	}
	return rendered.String()
}

// handle is the main request handler that routes to specific handlers.
func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	reader := http.MaxBytesReader(w, r.Body, maxRequestBytes)
	defer func() {
		_ = reader.Close()
	}()

	w.Header().Set("Content-Type", "application/json")

	body, err := io.ReadAll(reader)
	if err != nil {
		status := http.StatusBadRequest
		message := "failed to read request body"
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			status = http.StatusRequestEntityTooLarge
			message = fmt.Sprintf("request body exceeds %d bytes", maxRequestBytes)
		}
		writeError(w, status, nil, codeInvalidRequest, message, err.Error())
		return
	}
	if len(bytes.TrimSpace(body)) == 0 {
		writeError(w, http.StatusBadRequest, nil, codeInvalidRequest, "request body required", nil)
		return
	}

	req := &RPCRequest{}
	if err := json.Unmarshal(body, req); err != nil {
		writeError(w, http.StatusBadRequest, nil, codeParseError, "invalid JSON payload", err.Error())
		return
	}
	if req.JSONRPC != "" && req.JSONRPC != jsonRPCVersion {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "unsupported jsonrpc version", req.JSONRPC)
		return
	}
	if req.Method == "" {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "method required", nil)
		return
	}

	switch req.Method {
	case "stake_stake":
		s.authorized(s.handleStakeStake)(w, r, req)
	case "stake_stakeFor":
		s.authorized(s.handleStakeStakeFor)(w, r, req)
	case "stake_withdraw":
		s.authorized(s.handleStakeWithdraw)(w, r, req)
	case "stake_getReward":
		s.authorized(s.handleStakeGetReward)(w, r, req)
	case "stake_exit":
		s.authorized(s.handleStakeExit)(w, r, req)
	case "stake_notifyRewardAmount":
		s.authorized(s.handleStakeNotifyRewardAmount)(w, r, req)
	case "stake_setRewardsDistribution":
		s.authorized(s.handleStakeSetRewardsDistribution)(w, r, req)
	case "stake_rescueRewards":
		s.authorized(s.handleStakeRescueRewards)(w, r, req)
	case "stake_claimNFT":
		s.authorized(s.handleStakeClaimNFT)(w, r, req)
	case "stake_buyNFT":
		s.authorized(s.handleStakeBuyNFT)(w, r, req)
	case "stake_earned":
		s.handleStakeEarned(w, r, req)
	case "stake_earnedByShare":
		s.handleStakeEarnedByShare(w, r, req)
	case "stake_rewardPerToken":
		s.handleStakeRewardPerToken(w, r, req)
	case "stake_balanceOf":
		s.handleStakeBalanceOf(w, r, req)
	case "stake_totalStaked":
		s.handleStakeTotalStaked(w, r, req)
	case "nft_createNewFor":
		s.authorized(s.handleNFTCreateNewFor)(w, r, req)
	case "nft_transferMintAuthority":
		s.authorized(s.handleNFTTransferMintAuthority)(w, r, req)
	case "nft_transfer":
		s.authorized(s.handleNFTTransfer)(w, r, req)
	case "nft_offerForSale":
		s.authorized(s.handleNFTOfferForSale)(w, r, req)
	case "nft_offerForSaleToAddress":
		s.authorized(s.handleNFTOfferForSaleToAddress)(w, r, req)
	case "nft_buy":
		s.authorized(s.handleNFTBuy)(w, r, req)
	case "nft_tokenURL":
		s.handleNFTTokenURL(w, r, req)
	case "nft_ownerOf":
		s.handleNFTOwnerOf(w, r, req)
	case "nft_balanceOf":
		s.handleNFTBalanceOf(w, r, req)
	case "nft_tokensOf":
		s.handleNFTTokensOf(w, r, req)
	case "nft_mintedCount":
		s.handleNFTMintedCount(w, r, req)
	case "nft_offer":
		s.handleNFTOffer(w, r, req)
	case "acct_balance":
		s.handleAcctBalance(w, r, req)
	case "drop_events":
		s.handleEvents(w, r, req)
	default:
		writeError(w, http.StatusNotFound, req.ID, codeMethodNotFound, "method not found", req.Method)
	}
}

type handlerFunc func(http.ResponseWriter, *http.Request, *RPCRequest)

// authorized wraps a mutating handler behind bearer authentication.
func (s *Server) authorized(next handlerFunc) handlerFunc {
	return func(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
		if authErr := s.requireAuth(r); authErr != nil {
			writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
			return
		}
		next(w, r, req)
	}
}
