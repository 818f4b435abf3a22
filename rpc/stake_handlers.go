package rpc

import (
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"strings"

	"stakedrop/native/stake"
)

type stakeCallParams struct {
	Caller string `json:"caller"`
	Amount string `json:"amount"`
}

type stakeForParams struct {
	Caller      string `json:"caller"`
	Amount      string `json:"amount"`
	Beneficiary string `json:"beneficiary"`
}

type stakeCallerParams struct {
	Caller string `json:"caller"`
}

type stakeDistributionParams struct {
	Caller      string `json:"caller"`
	Distributor string `json:"distributor"`
}

type collectibleCallParams struct {
	Caller  string `json:"caller"`
	TokenID uint64 `json:"tokenId"`
	Value   string `json:"value,omitempty"`
}

type stakePositionResult struct {
	Account            string `json:"account"`
	Balance            string `json:"balance"`
	RewardPerTokenPaid string `json:"rewardPerTokenPaid"`
	RewardsAccrued     string `json:"rewardsAccrued"`
}

type stakeRewardResult struct {
	Account string `json:"account"`
	Paid    string `json:"paid"`
}

type stakeExitResult struct {
	Account   string `json:"account"`
	Withdrawn string `json:"withdrawn"`
	Paid      string `json:"paid"`
}

func parseAmount(amount string) (*big.Int, error) {
	trimmed := strings.TrimSpace(amount)
	if trimmed == "" {
		return nil, fmt.Errorf("amount is required")
	}
	value, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount")
	}
	if value.Sign() <= 0 {
		return nil, fmt.Errorf("amount must be positive")
	}
	return value, nil
}

func decodeParams(req *RPCRequest, out interface{}) error {
	if len(req.Params) != 1 {
		return fmt.Errorf("exactly one parameter object expected")
	}
	if err := json.Unmarshal(req.Params[0], out); err != nil {
		return fmt.Errorf("invalid parameter object")
	}
	return nil
}

func positionResult(account string, pos *stake.Position) stakePositionResult {
	pos.EnsureDefaults()
	return stakePositionResult{
		Account:            account,
		Balance:            pos.Balance.String(),
		RewardPerTokenPaid: pos.RewardPerTokenPaid.String(),
		RewardsAccrued:     pos.RewardsAccrued.String(),
	}
}

func (s *Server) handleStakeStake(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params stakeCallParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	caller, err := decodeBech32(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller address", err.Error())
		return
	}
	amount, err := parseAmount(params.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	pos, err := s.node.Stake(caller, amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "failed to stake", err.Error())
		return
	}
	writeResult(w, req.ID, positionResult(params.Caller, pos))
}

func (s *Server) handleStakeStakeFor(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params stakeForParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	caller, err := decodeBech32(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller address", err.Error())
		return
	}
	beneficiary, err := decodeBech32(params.Beneficiary)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid beneficiary address", err.Error())
		return
	}
	amount, err := parseAmount(params.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	pos, err := s.node.StakeFor(caller, beneficiary, amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "failed to stake for beneficiary", err.Error())
		return
	}
	writeResult(w, req.ID, positionResult(params.Beneficiary, pos))
}

func (s *Server) handleStakeWithdraw(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params stakeCallParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	caller, err := decodeBech32(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller address", err.Error())
		return
	}
	amount, err := parseAmount(params.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	pos, err := s.node.Withdraw(caller, amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "failed to withdraw", err.Error())
		return
	}
	writeResult(w, req.ID, positionResult(params.Caller, pos))
}

func (s *Server) handleStakeGetReward(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params stakeCallerParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	caller, err := decodeBech32(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller address", err.Error())
		return
	}
	paid, err := s.node.GetReward(caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "failed to claim reward", err.Error())
		return
	}
	writeResult(w, req.ID, stakeRewardResult{Account: params.Caller, Paid: paid.String()})
}

func (s *Server) handleStakeExit(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params stakeCallerParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	caller, err := decodeBech32(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller address", err.Error())
		return
	}
	withdrawn, paid, err := s.node.Exit(caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "failed to exit", err.Error())
		return
	}
	writeResult(w, req.ID, stakeExitResult{
		Account:   params.Caller,
		Withdrawn: withdrawn.String(),
		Paid:      paid.String(),
	})
}

func (s *Server) handleStakeNotifyRewardAmount(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params stakeCallParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	caller, err := decodeBech32(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller address", err.Error())
		return
	}
	amount, err := parseAmount(params.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	if err := s.node.NotifyRewardAmount(caller, amount); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "failed to notify reward amount", err.Error())
		return
	}
	writeResult(w, req.ID, map[string]interface{}{"funded": amount.String()})
}

func (s *Server) handleStakeSetRewardsDistribution(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params stakeDistributionParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	caller, err := decodeBech32(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller address", err.Error())
		return
	}
	distributor, err := decodeBech32(params.Distributor)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid distributor address", err.Error())
		return
	}
	if err := s.node.SetRewardsDistribution(caller, distributor); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "failed to set distributor", err.Error())
		return
	}
	writeResult(w, req.ID, map[string]interface{}{"distributor": params.Distributor})
}

func (s *Server) handleStakeRescueRewards(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params stakeCallerParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	caller, err := decodeBech32(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller address", err.Error())
		return
	}
	swept, err := s.node.RescueRewards(caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "failed to rescue rewards", err.Error())
		return
	}
	writeResult(w, req.ID, map[string]interface{}{"swept": swept.String()})
}

func (s *Server) handleStakeClaimNFT(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params collectibleCallParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	caller, err := decodeBech32(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller address", err.Error())
		return
	}
	if err := s.node.ClaimCollectible(caller, params.TokenID); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "failed to claim collectible", err.Error())
		return
	}
	writeResult(w, req.ID, map[string]interface{}{"tokenId": params.TokenID, "owner": params.Caller})
}

func (s *Server) handleStakeBuyNFT(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params collectibleCallParams
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
	if err := s.node.BuyCollectible(caller, params.TokenID, value); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "failed to buy collectible", err.Error())
		return
	}
	writeResult(w, req.ID, map[string]interface{}{"tokenId": params.TokenID, "owner": params.Caller})
}

// --- queries ---

func parseAddressParam(params []json.RawMessage) (string, [20]byte, error) {
	if len(params) != 1 {
		return "", [20]byte{}, fmt.Errorf("address parameter required")
	}
	var addrStr string
	if err := json.Unmarshal(params[0], &addrStr); err != nil {
		return "", [20]byte{}, fmt.Errorf("invalid address parameter")
	}
	addr, err := decodeBech32(addrStr)
	if err != nil {
		return "", [20]byte{}, fmt.Errorf("invalid address: %w", err)
	}
	return addrStr, addr, nil
}

func (s *Server) handleStakeEarned(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	addrStr, addr, err := parseAddressParam(req.Params)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	earned, err := s.node.Earned(addr)
	if err != nil {
		writeError(w, http.StatusInternalServerError, req.ID, codeServerError, "failed to compute earned", err.Error())
		return
	}
	writeResult(w, req.ID, map[string]interface{}{"account": addrStr, "earned": earned.String()})
}

func (s *Server) handleStakeEarnedByShare(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	if len(req.Params) != 1 {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "amount parameter required", nil)
		return
	}
	var amountStr string
	if err := json.Unmarshal(req.Params[0], &amountStr); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid amount parameter", err.Error())
		return
	}
	amount, err := parseAmount(amountStr)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	earned, err := s.node.EarnedByShare(amount)
	if err != nil {
		writeError(w, http.StatusInternalServerError, req.ID, codeServerError, "failed to project earnings", err.Error())
		return
	}
	writeResult(w, req.ID, map[string]interface{}{"share": amount.String(), "earned": earned.String()})
}

func (s *Server) handleStakeRewardPerToken(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	rpt, err := s.node.RewardPerToken()
	if err != nil {
		writeError(w, http.StatusInternalServerError, req.ID, codeServerError, "failed to compute reward per token", err.Error())
		return
	}
	writeResult(w, req.ID, map[string]interface{}{"rewardPerToken": rpt.String()})
}

func (s *Server) handleStakeBalanceOf(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	addrStr, addr, err := parseAddressParam(req.Params)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	balance, err := s.node.StakeBalanceOf(addr)
	if err != nil {
		writeError(w, http.StatusInternalServerError, req.ID, codeServerError, "failed to load stake balance", err.Error())
		return
	}
	writeResult(w, req.ID, map[string]interface{}{"account": addrStr, "balance": balance.String()})
}

func (s *Server) handleStakeTotalStaked(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	total, err := s.node.TotalStaked()
	if err != nil {
		writeError(w, http.StatusInternalServerError, req.ID, codeServerError, "failed to load total staked", err.Error())
		return
	}
	writeResult(w, req.ID, map[string]interface{}{"totalStaked": total.String()})
}
