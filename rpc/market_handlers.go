package rpc

import (
	"encoding/json"
	"net/http"

	"stakedrop/core/types"
)

type nftMintParams struct {
	Caller string `json:"caller"`
	Owner  string `json:"owner"`
}

type nftAuthorityParams struct {
	Caller    string `json:"caller"`
	Authority string `json:"authority"`
}

type nftTransferParams struct {
	Caller  string `json:"caller"`
	To      string `json:"to"`
	TokenID uint64 `json:"tokenId"`
}

type nftOfferParams struct {
	Caller   string `json:"caller"`
	TokenID  uint64 `json:"tokenId"`
	MinPrice string `json:"minPrice"`
	Buyer    string `json:"buyer,omitempty"`
}

type nftBuyParams struct {
	Caller  string `json:"caller"`
	TokenID uint64 `json:"tokenId"`
	Value   string `json:"value"`
}

type nftOfferResult struct {
	TokenID    uint64 `json:"tokenId"`
	Active     bool   `json:"active"`
	MinPrice   string `json:"minPrice,omitempty"`
	Restricted bool   `json:"restricted,omitempty"`
	Buyer      string `json:"buyer,omitempty"`
}

func parseTokenIDParam(params []json.RawMessage) (uint64, error) {
	var wrapper struct {
		TokenID uint64 `json:"tokenId"`
	}
	if len(params) != 1 {
		return 0, errTokenIDRequired
	}
	if err := json.Unmarshal(params[0], &wrapper.TokenID); err == nil {
		return wrapper.TokenID, nil
	}
	if err := json.Unmarshal(params[0], &wrapper); err != nil {
		return 0, errTokenIDRequired
	}
	return wrapper.TokenID, nil
}

var errTokenIDRequired = jsonParamError("tokenId parameter required")

type jsonParamError string

func (e jsonParamError) Error() string { return string(e) }

func (s *Server) handleNFTCreateNewFor(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params nftMintParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	caller, err := decodeBech32(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller address", err.Error())
		return
	}
	owner, err := decodeBech32(params.Owner)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid owner address", err.Error())
		return
	}
	id, err := s.node.CreateCollectible(caller, owner)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "failed to mint collectible", err.Error())
		return
	}
	writeResult(w, req.ID, map[string]interface{}{"tokenId": id, "owner": params.Owner})
}

func (s *Server) handleNFTTransferMintAuthority(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params nftAuthorityParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	caller, err := decodeBech32(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller address", err.Error())
		return
	}
	next, err := decodeBech32(params.Authority)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid authority address", err.Error())
		return
	}
	if err := s.node.TransferMintAuthority(caller, next); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "failed to transfer mint authority", err.Error())
		return
	}
	writeResult(w, req.ID, map[string]interface{}{"authority": params.Authority})
}

func (s *Server) handleNFTTransfer(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params nftTransferParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	caller, err := decodeBech32(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller address", err.Error())
		return
	}
	to, err := decodeBech32(params.To)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid recipient address", err.Error())
		return
	}
	if err := s.node.TransferCollectible(caller, to, params.TokenID); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "failed to transfer collectible", err.Error())
		return
	}
	writeResult(w, req.ID, map[string]interface{}{"tokenId": params.TokenID, "owner": params.To})
}

func (s *Server) handleNFTOfferForSale(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params nftOfferParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	caller, err := decodeBech32(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller address", err.Error())
		return
	}
	minPrice, err := parseAmount(params.MinPrice)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	if err := s.node.OfferForSale(caller, params.TokenID, minPrice); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "failed to post offer", err.Error())
		return
	}
	writeResult(w, req.ID, map[string]interface{}{"tokenId": params.TokenID, "minPrice": minPrice.String()})
}

func (s *Server) handleNFTOfferForSaleToAddress(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params nftOfferParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	caller, err := decodeBech32(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller address", err.Error())
		return
	}
	buyer, err := decodeBech32(params.Buyer)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid buyer address", err.Error())
		return
	}
	minPrice, err := parseAmount(params.MinPrice)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	if err := s.node.OfferForSaleToAddress(caller, params.TokenID, minPrice, buyer); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "failed to post restricted offer", err.Error())
		return
	}
	writeResult(w, req.ID, map[string]interface{}{
		"tokenId":  params.TokenID,
		"minPrice": minPrice.String(),
		"buyer":    params.Buyer,
	})
}

func (s *Server) handleNFTBuy(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params nftBuyParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	caller, err := decodeBech32(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller address", err.Error())
		return
	}
	value, err := parseAmount(params.Value)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	if err := s.node.BuyOffer(caller, params.TokenID, value); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "failed to buy collectible", err.Error())
		return
	}
	writeResult(w, req.ID, map[string]interface{}{"tokenId": params.TokenID, "owner": params.Caller})
}

// --- queries ---

func (s *Server) handleNFTTokenURL(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	id, err := parseTokenIDParam(req.Params)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	url, err := s.node.TokenURL(id)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "failed to derive token URL", err.Error())
		return
	}
	writeResult(w, req.ID, map[string]interface{}{"tokenId": id, "url": url})
}

func (s *Server) handleNFTOwnerOf(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	id, err := parseTokenIDParam(req.Params)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	owner, err := s.node.OwnerOf(id)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "failed to resolve owner", err.Error())
		return
	}
	writeResult(w, req.ID, map[string]interface{}{"tokenId": id, "owner": renderAddress(owner)})
}

func (s *Server) handleNFTBalanceOf(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	addrStr, addr, err := parseAddressParam(req.Params)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	count, err := s.node.CollectibleBalance(addr)
	if err != nil {
		writeError(w, http.StatusInternalServerError, req.ID, codeServerError, "failed to load collectible balance", err.Error())
		return
	}
	writeResult(w, req.ID, map[string]interface{}{"account": addrStr, "balance": count})
}

func (s *Server) handleNFTTokensOf(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	addrStr, addr, err := parseAddressParam(req.Params)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	ids, err := s.node.CollectiblesOf(addr)
	if err != nil {
		writeError(w, http.StatusInternalServerError, req.ID, codeServerError, "failed to list collectibles", err.Error())
		return
	}
	if ids == nil {
		ids = []uint64{}
	}
	writeResult(w, req.ID, map[string]interface{}{"account": addrStr, "tokens": ids})
}

func (s *Server) handleNFTMintedCount(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	count, err := s.node.MintedCount()
	if err != nil {
		writeError(w, http.StatusInternalServerError, req.ID, codeServerError, "failed to load minted count", err.Error())
		return
	}
	writeResult(w, req.ID, map[string]interface{}{"minted": count})
}

func (s *Server) handleNFTOffer(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	id, err := parseTokenIDParam(req.Params)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	offer, ok, err := s.node.OfferFor(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, req.ID, codeServerError, "failed to load offer", err.Error())
		return
	}
	result := nftOfferResult{TokenID: id, Active: ok}
	if ok {
		result.MinPrice = offer.MinPrice.String()
		result.Restricted = offer.Restricted
		if offer.Restricted {
			result.Buyer = renderAddress(offer.Buyer)
		}
	}
	writeResult(w, req.ID, result)
}

// --- accounts and events ---

type acctBalanceResult struct {
	Address       string `json:"address"`
	BalanceNative string `json:"balanceNative"`
	BalanceRWD    string `json:"balanceRWD"`
	BalanceLP     string `json:"balanceLP"`
	Nonce         uint64 `json:"nonce"`
}

func (s *Server) handleAcctBalance(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	addrStr, addr, err := parseAddressParam(req.Params)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	account, err := s.node.Account(addr)
	if err != nil {
		writeError(w, http.StatusInternalServerError, req.ID, codeServerError, "failed to load account", err.Error())
		return
	}
	writeResult(w, req.ID, acctBalanceResult{
		Address:       addrStr,
		BalanceNative: account.BalanceNative.String(),
		BalanceRWD:    account.BalanceRWD.String(),
		BalanceLP:     account.BalanceLP.String(),
		Nonce:         account.Nonce,
	})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	limit := 0
	if len(req.Params) == 1 {
		if err := json.Unmarshal(req.Params[0], &limit); err != nil {
			writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid limit parameter", err.Error())
			return
		}
	}
	recent := s.node.RecentEvents(limit)
	if recent == nil {
		recent = []*types.Event{}
	}
	writeResult(w, req.ID, recent)
}
