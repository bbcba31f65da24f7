package holders

import (
	"context"
	"encoding/json"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/AIAleph/token_risk/internal/cache"
	"github.com/AIAleph/token_risk/internal/logging"
	"github.com/AIAleph/token_risk/internal/scan"
	"github.com/AIAleph/token_risk/internal/score"
)

var token = common.HexToAddress("0x00000000000000000000000000000000000000aa")

type fakeScanner struct {
	res   *scan.Result
	calls int
}

func (f *fakeScanner) Scan(ctx context.Context, tok common.Address, from, to uint64) *scan.Result {
	f.calls++
	r := *f.res
	r.Token, r.From, r.To = tok, from, to
	return &r
}

type fakeBalances struct {
	mu    sync.Mutex
	bal   map[common.Address]*big.Int
	reads map[common.Address]int
}

func (f *fakeBalances) BalanceOf(ctx context.Context, tok, holder common.Address) *big.Int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.reads == nil {
		f.reads = map[common.Address]int{}
	}
	f.reads[holder]++
	if b, ok := f.bal[holder]; ok {
		return new(big.Int).Set(b)
	}
	return new(big.Int)
}

func addr(i int) common.Address { return common.BigToAddress(big.NewInt(int64(i))) }

func transfer(from, to common.Address) scan.Transfer {
	return scan.Transfer{From: from, To: to, Value: big.NewInt(1)}
}

func TestAnalyze_FortyEqualHolders(t *testing.T) {
	logging.DiscardLogging()
	var transfers []scan.Transfer
	bal := map[common.Address]*big.Int{}
	for i := 1; i <= 40; i++ {
		transfers = append(transfers, transfer(common.Address{}, addr(i)))
		bal[addr(i)] = big.NewInt(1_000)
	}
	b := New(&fakeScanner{res: &scan.Result{Transfers: transfers}}, &fakeBalances{bal: bal})
	c := b.Analyze(context.Background(), token, 0, 100)
	if c.TotalHolders != 40 || len(c.Top10) != 10 {
		t.Fatalf("holders=%d top=%d", c.TotalHolders, len(c.Top10))
	}
	if c.Top10Percentage != 25 || c.Score != 26.25 || c.RiskLevel != score.Medium {
		t.Fatalf("pct=%v score=%v risk=%s", c.Top10Percentage, c.Score, c.RiskLevel)
	}
	if c.TotalSupply.Int64() != 40_000 || c.Top10[0].Percentage != 2.5 {
		t.Fatalf("supply=%s first=%v", c.TotalSupply, c.Top10[0].Percentage)
	}
	if !c.Complete || c.FromCache {
		t.Fatalf("complete=%v fromCache=%v", c.Complete, c.FromCache)
	}
}

func TestAnalyze_EmptyHolderSet(t *testing.T) {
	logging.DiscardLogging()
	// Everyone transferred everything away: participants exist but all balances are zero.
	res := &scan.Result{Transfers: []scan.Transfer{transfer(addr(1), addr(2))}}
	c := New(&fakeScanner{res: res}, &fakeBalances{}).Analyze(context.Background(), token, 0, 1)
	if c.TotalHolders != 0 || c.Score != 0 || c.RiskLevel != score.Unknown || c.Error != NoHoldersMessage {
		t.Fatalf("unexpected empty result %+v", c)
	}
	b, _ := json.Marshal(c)
	var m map[string]interface{}
	_ = json.Unmarshal(b, &m)
	if m["total_holders"].(float64) != 0 || m["risk_level"] != "unknown" || m["score"].(float64) != 0 {
		t.Fatalf("json=%s", b)
	}
}

func TestAnalyze_ZeroAddressNeverAHolder(t *testing.T) {
	logging.DiscardLogging()
	zero := common.Address{}
	res := &scan.Result{Transfers: []scan.Transfer{
		transfer(zero, addr(1)),
		transfer(addr(1), zero),
	}}
	bals := &fakeBalances{bal: map[common.Address]*big.Int{zero: big.NewInt(1e9), addr(1): big.NewInt(5)}}
	c := New(&fakeScanner{res: res}, bals).Analyze(context.Background(), token, 0, 1)
	if bals.reads[zero] != 0 {
		t.Fatal("zero address balance must not be read")
	}
	if c.TotalHolders != 1 || c.Top10[0].Address != addr(1) || c.Top10Percentage != 100 {
		t.Fatalf("result=%+v", c)
	}
	if c.Score != 0 || c.RiskLevel != score.Extreme {
		t.Fatalf("score=%v risk=%s", c.Score, c.RiskLevel)
	}
}

func TestAnalyze_TopTenOrderingAndTies(t *testing.T) {
	logging.DiscardLogging()
	bal := map[common.Address]*big.Int{}
	var transfers []scan.Transfer
	for i := 1; i <= 12; i++ {
		transfers = append(transfers, transfer(addr(100), addr(i)))
		bal[addr(i)] = big.NewInt(int64(10 + i/2))
	}
	c := New(&fakeScanner{res: &scan.Result{Transfers: transfers}}, &fakeBalances{bal: bal}, WithWorkers(4)).
		Analyze(context.Background(), token, 0, 1)
	if c.TotalHolders != 12 {
		t.Fatalf("holders=%d", c.TotalHolders)
	}
	// 12 -> 16 is unique; 10 and 11 both hold 15 and tie-break by address.
	if c.Top10[0].Address != addr(12) || c.Top10[1].Address != addr(10) || c.Top10[2].Address != addr(11) {
		t.Fatalf("order=%v %v %v", c.Top10[0].Address, c.Top10[1].Address, c.Top10[2].Address)
	}
	for i := 1; i < len(c.Top10); i++ {
		if c.Top10[i].Balance.Cmp(c.Top10[i-1].Balance) > 0 {
			t.Fatal("top10 not sorted descending")
		}
	}
}

func TestAnalyze_CacheHitShortCircuits(t *testing.T) {
	logging.DiscardLogging()
	results := cache.NewResults(cache.NewMemoryStore(0), time.Hour)
	sc := &fakeScanner{res: &scan.Result{
		Transfers: []scan.Transfer{transfer(common.Address{}, addr(1))},
		Gaps:      []scan.Gap{{Range: scan.Range{Start: 5, End: 9}, Reason: scan.GapRPCError}},
	}}
	bals := &fakeBalances{bal: map[common.Address]*big.Int{addr(1): big.NewInt(7)}}
	b := New(sc, bals, WithResultCache(results))

	first := b.Analyze(context.Background(), token, 0, 10)
	second := b.Analyze(context.Background(), token, 0, 10)
	if sc.calls != 1 || bals.reads[addr(1)] != 1 {
		t.Fatalf("scans=%d reads=%d", sc.calls, bals.reads[addr(1)])
	}
	if first.FromCache || !second.FromCache {
		t.Fatalf("from_cache first=%v second=%v", first.FromCache, second.FromCache)
	}
	if second.TotalHolders != 1 || second.TotalSupply.Int64() != 7 || second.Complete || len(second.Gaps) != 1 {
		t.Fatalf("cached result=%+v", second)
	}
}

func TestAnalyze_EmptyResultNotCached(t *testing.T) {
	logging.DiscardLogging()
	store := cache.NewMemoryStore(0)
	sc := &fakeScanner{res: &scan.Result{}}
	b := New(sc, &fakeBalances{}, WithResultCache(cache.NewResults(store, time.Hour)))
	b.Analyze(context.Background(), token, 0, 10)
	b.Analyze(context.Background(), token, 0, 10)
	if store.Len() != 0 || sc.calls != 2 {
		t.Fatalf("entries=%d scans=%d", store.Len(), sc.calls)
	}
}

func TestBalances_DropsZeroAndReadsEachOnce(t *testing.T) {
	bals := &fakeBalances{bal: map[common.Address]*big.Int{addr(1): big.NewInt(3)}}
	b := New(nil, bals, WithWorkers(8))
	got := b.Balances(context.Background(), token, []common.Address{addr(1), addr(2), addr(3)})
	if len(got) != 1 || got[addr(1)].Int64() != 3 {
		t.Fatalf("balances=%v", got)
	}
	for _, a := range []common.Address{addr(1), addr(2), addr(3)} {
		if bals.reads[a] != 1 {
			t.Fatalf("reads[%s]=%d", a.Hex(), bals.reads[a])
		}
	}
}
