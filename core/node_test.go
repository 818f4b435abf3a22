package core

import (
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"stakedrop/core/state"
	"stakedrop/crypto"
	"stakedrop/native/market"
	"stakedrop/native/stake"
	"stakedrop/storage"
)

type testActor struct {
	addr    [20]byte
	encoded string
}

func newActor(t *testing.T) testActor {
	t.Helper()
	key, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	address := key.PubKey().Address()
	var raw [20]byte
	copy(raw[:], address.Bytes())
	return testActor{addr: raw, encoded: address.String()}
}

type testClock struct {
	now int64
}

func (c *testClock) Now() int64        { return c.now }
func (c *testClock) Advance(sec int64) { c.now += sec }

type nodeFixture struct {
	node        *Node
	mgr         *state.Manager
	clock       *testClock
	owner       testActor
	distributor testActor
	alice       testActor
	bob         testActor
}

func newNodeFixture(t *testing.T) *nodeFixture {
	t.Helper()
	fx := &nodeFixture{
		mgr:         state.NewManager(storage.NewMemDB()),
		clock:       &testClock{now: 1_000},
		owner:       newActor(t),
		distributor: newActor(t),
		alice:       newActor(t),
		bob:         newActor(t),
	}
	genesis := &Genesis{
		Accounts: []GenesisAccount{
			{Address: fx.alice.encoded, Native: "100000", LP: "1000"},
			{Address: fx.bob.encoded, Native: "100000", LP: "1000"},
			{Address: fx.distributor.encoded, RWD: "10000"},
		},
		Roles: GenesisRoles{
			Owner:              fx.owner.encoded,
			RewardsDistributor: fx.distributor.encoded,
		},
		MintAuthority: MintAuthorityStakingModule,
	}
	cfg := NodeConfig{
		ClaimPolicy:            stake.PolicyClaimAnytime,
		RewardsDuration:        100,
		CollectiblePrice:       big.NewInt(100),
		CollectibleBeneficiary: fx.owner.addr,
		SupplyCap:              10,
		BaseTokenURL:           "https://img.example.org/",
		TokenURLSuffix:         ".json",
		Platform:               fx.owner.addr,
		PlatformFeeBps:         250,
	}
	node, err := NewNode(fx.mgr, genesis, cfg, nil)
	require.NoError(t, err)
	node.StakeEngine().SetNowFunc(fx.clock.Now)
	fx.node = node
	return fx
}

func TestGenesisSeedsState(t *testing.T) {
	fx := newNodeFixture(t)

	account, err := fx.node.Account(fx.alice.addr)
	require.NoError(t, err)
	require.Equal(t, big.NewInt(100000), account.BalanceNative)
	require.Equal(t, big.NewInt(1000), account.BalanceLP)

	roles, err := fx.node.StakeRoles()
	require.NoError(t, err)
	require.Equal(t, fx.owner.addr, roles.Owner)
	require.Equal(t, fx.distributor.addr, roles.RewardsDistributor)

	authority, err := fx.node.MintAuthority()
	require.NoError(t, err)
	require.Equal(t, StakeModuleAddress(), authority)
}

func TestGenesisAppliesOnce(t *testing.T) {
	fx := newNodeFixture(t)

	_, err := fx.node.Stake(fx.alice.addr, big.NewInt(400))
	require.NoError(t, err)

	// A restart re-runs NewNode over the same database; allocations must not
	// be re-applied on top of the mutated balances.
	rebooted := &Genesis{
		Accounts: []GenesisAccount{{Address: fx.alice.encoded, LP: "999999"}},
	}
	node, err := NewNode(fx.mgr, rebooted, NodeConfig{
		ClaimPolicy:     stake.PolicyClaimAnytime,
		RewardsDuration: 100,
		SupplyCap:       10,
	}, nil)
	require.NoError(t, err)

	account, err := node.Account(fx.alice.addr)
	require.NoError(t, err)
	require.Equal(t, big.NewInt(600), account.BalanceLP)

	balance, err := node.StakeBalanceOf(fx.alice.addr)
	require.NoError(t, err)
	require.Equal(t, big.NewInt(400), balance)
}

func TestRewardFlowThroughNode(t *testing.T) {
	fx := newNodeFixture(t)

	_, err := fx.node.Stake(fx.alice.addr, big.NewInt(1000))
	require.NoError(t, err)

	// The distributor funds the module account, then notifies.
	distAcc, err := fx.mgr.GetAccount(fx.distributor.addr)
	require.NoError(t, err)
	moduleAcc, err := fx.mgr.GetAccount(StakeModuleAddress())
	require.NoError(t, err)
	distAcc.BalanceRWD.Sub(distAcc.BalanceRWD, big.NewInt(10000))
	moduleAcc.BalanceRWD.Add(moduleAcc.BalanceRWD, big.NewInt(10000))
	require.NoError(t, fx.mgr.PutAccount(fx.distributor.addr, distAcc))
	require.NoError(t, fx.mgr.PutAccount(StakeModuleAddress(), moduleAcc))

	require.NoError(t, fx.node.NotifyRewardAmount(fx.distributor.addr, big.NewInt(10000)))

	fx.clock.Advance(100)
	earned, err := fx.node.Earned(fx.alice.addr)
	require.NoError(t, err)
	require.Equal(t, big.NewInt(10000), earned)

	paid, err := fx.node.GetReward(fx.alice.addr)
	require.NoError(t, err)
	require.Equal(t, big.NewInt(10000), paid)
}

func TestClaimAndTradeCollectible(t *testing.T) {
	fx := newNodeFixture(t)

	// Claims gate behind a live stake.
	err := fx.node.ClaimCollectible(fx.alice.addr, 0)
	require.ErrorIs(t, err, stake.ErrNoStake)

	_, err = fx.node.Stake(fx.alice.addr, big.NewInt(10))
	require.NoError(t, err)
	require.NoError(t, fx.node.ClaimCollectible(fx.alice.addr, 0))
	require.ErrorIs(t, fx.node.ClaimCollectible(fx.alice.addr, 1), stake.ErrAlreadyClaimed)

	owner, err := fx.node.OwnerOf(0)
	require.NoError(t, err)
	require.Equal(t, fx.alice.addr, owner)

	// The marketplace stays closed until the supply is minted out.
	require.ErrorIs(t, fx.node.OfferForSale(fx.alice.addr, 0, big.NewInt(10_000)), market.ErrMintingActive)
	for id := uint64(1); id < 10; id++ {
		require.NoError(t, fx.node.BuyCollectible(fx.bob.addr, id, big.NewInt(100)))
	}

	// Offer and settle against the second account.
	require.NoError(t, fx.node.OfferForSale(fx.alice.addr, 0, big.NewInt(10_000)))
	require.NoError(t, fx.node.BuyOffer(fx.bob.addr, 0, big.NewInt(10_000)))

	owner, err = fx.node.OwnerOf(0)
	require.NoError(t, err)
	require.Equal(t, fx.bob.addr, owner)

	require.ErrorIs(t, fx.node.BuyOffer(fx.bob.addr, 0, big.NewInt(10_000)), market.ErrInactiveOffer)

	seller, err := fx.node.Account(fx.alice.addr)
	require.NoError(t, err)
	// 250 bps platform fee off the 10000 sale.
	require.Equal(t, big.NewInt(109_750), seller.BalanceNative)
}

func TestBuyCollectibleDirect(t *testing.T) {
	fx := newNodeFixture(t)

	require.ErrorIs(t, fx.node.BuyCollectible(fx.bob.addr, 0, big.NewInt(99)), stake.ErrBelowPrice)
	require.NoError(t, fx.node.BuyCollectible(fx.bob.addr, 0, big.NewInt(100)))

	owner, err := fx.node.OwnerOf(0)
	require.NoError(t, err)
	require.Equal(t, fx.bob.addr, owner)

	beneficiary, err := fx.node.Account(fx.owner.addr)
	require.NoError(t, err)
	require.Equal(t, big.NewInt(100), beneficiary.BalanceNative)
}

func TestRecentEventsCaptured(t *testing.T) {
	fx := newNodeFixture(t)

	_, err := fx.node.Stake(fx.alice.addr, big.NewInt(50))
	require.NoError(t, err)

	events := fx.node.RecentEvents(0)
	require.NotEmpty(t, events)
	require.Equal(t, "stake.deposited", events[len(events)-1].Type)

	limited := fx.node.RecentEvents(1)
	require.Len(t, limited, 1)
}

func TestLoadGenesisFromYAML(t *testing.T) {
	actor := newActor(t)
	path := filepath.Join(t.TempDir(), "genesis.yaml")
	doc := `accounts:
  - address: ` + actor.encoded + `
    native: "500"
    lp: "10"
roles:
  owner: ` + actor.encoded + `
mintAuthority: staking-module
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	genesis, err := LoadGenesis(path)
	require.NoError(t, err)
	require.Len(t, genesis.Accounts, 1)
	require.Equal(t, "500", genesis.Accounts[0].Native)
	require.Equal(t, MintAuthorityStakingModule, genesis.MintAuthority)

	_, err = LoadGenesis(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestGenesisRejectsBadAmounts(t *testing.T) {
	actor := newActor(t)
	mgr := state.NewManager(storage.NewMemDB())
	genesis := &Genesis{
		Accounts: []GenesisAccount{{Address: actor.encoded, Native: "-5"}},
	}
	_, err := NewNode(mgr, genesis, NodeConfig{
		ClaimPolicy:     stake.PolicyClaimAnytime,
		RewardsDuration: 100,
		SupplyCap:       10,
	}, nil)
	require.Error(t, err)
}
