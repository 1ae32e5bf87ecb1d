package builtins

import (
	"math"
	"testing"

	"osaka/internal/strategy"
)

func baseInput() strategy.Input {
	return strategy.Input{
		Timestamp:    10,
		Price:        100,
		Inventory:    0,
		MaxInventory: 10,
		Aggressivity: 0.5,
		Indicators:   map[string]float64{},
	}
}

func TestTokyoSymmetricLadder(t *testing.T) {
	p := strategy.DefaultParams()
	p.MaxOrders = 3
	p.MinimalSpread = 0.01 // level spread = 1.0 at price 100
	tok := NewTokyo(p)

	out := tok.Quotes(0.5, baseInput())
	if out.ReservationPrice != 100 {
		t.Errorf("reservation = %v, want current price 100", out.ReservationPrice)
	}
	if len(out.BuyLevels) != 3 || len(out.SellLevels) != 3 {
		t.Fatalf("levels = %d buy / %d sell, want 3 / 3", len(out.BuyLevels), len(out.SellLevels))
	}

	wantBids := []float64{99.5, 98.5, 97.5}
	wantAsks := []float64{100.5, 101.5, 102.5}
	for i := range wantBids {
		if out.BuyLevels[i].Price != wantBids[i] {
			t.Errorf("bid[%d] = %v, want %v", i, out.BuyLevels[i].Price, wantBids[i])
		}
		if out.SellLevels[i].Price != wantAsks[i] {
			t.Errorf("ask[%d] = %v, want %v", i, out.SellLevels[i].Price, wantAsks[i])
		}
	}

	// Same size everywhere: max_inventory * aggressivity / max_orders.
	wantSize := 10 * 0.5 / 3.0
	for i, lvl := range out.BuyLevels {
		if math.Abs(lvl.Size-wantSize) > 1e-12 {
			t.Errorf("bid[%d] size = %v, want %v", i, lvl.Size, wantSize)
		}
	}
}

func TestTokyoOneSidedAtInventoryCap(t *testing.T) {
	p := strategy.DefaultParams()
	tok := NewTokyo(p)

	in := baseInput()
	in.Inventory = in.MaxInventory
	out := tok.Quotes(0.5, in)
	if len(out.BuyLevels) != 0 {
		t.Errorf("long at cap still quotes %d buy levels", len(out.BuyLevels))
	}
	if len(out.SellLevels) == 0 {
		t.Error("long at cap should still quote sells")
	}

	in.Inventory = -in.MaxInventory
	out = tok.Quotes(0.5, in)
	if len(out.SellLevels) != 0 {
		t.Errorf("short at cap still quotes %d sell levels", len(out.SellLevels))
	}
	if len(out.BuyLevels) == 0 {
		t.Error("short at cap should still quote buys")
	}
}

func TestStoikovFlatInventoryQuotesSymmetric(t *testing.T) {
	p := strategy.DefaultParams()
	p.MinimalSpread = 0.002
	st := NewStoikov(p)

	in := baseInput()
	in.Indicators["volatility"] = 0.02
	out := st.Quotes(0.001, in)

	if out.ReservationPrice != in.Price {
		t.Errorf("flat reservation = %v, want %v", out.ReservationPrice, in.Price)
	}
	if len(out.BuyLevels) != 1 || len(out.SellLevels) != 1 {
		t.Fatalf("levels = %d buy / %d sell, want 1 / 1", len(out.BuyLevels), len(out.SellLevels))
	}
	bid, ask := out.BuyLevels[0].Price, out.SellLevels[0].Price
	if bid >= in.Price || ask <= in.Price {
		t.Errorf("quotes do not straddle price: bid=%v ask=%v", bid, ask)
	}
	if math.Abs((in.Price-bid)-(ask-in.Price)) > 0.01 {
		t.Errorf("flat quotes not symmetric: bid=%v ask=%v", bid, ask)
	}
}

func TestStoikovLongInventoryShiftsDown(t *testing.T) {
	p := strategy.DefaultParams()
	p.RiskAversion = 0.5
	st := NewStoikov(p)

	in := baseInput()
	in.Indicators["volatility"] = 0.1
	in.Inventory = 5
	out := st.Quotes(0.001, in)

	if out.ReservationPrice >= in.Price {
		t.Errorf("long inventory reservation = %v, want below price %v", out.ReservationPrice, in.Price)
	}
}

func TestStoikovEnforcesMinimalSpreadFloor(t *testing.T) {
	p := strategy.DefaultParams()
	p.MinimalSpread = 0.01
	p.RiskAversion = 10 // push the reservation far below price
	st := NewStoikov(p)

	in := baseInput()
	in.Indicators["volatility"] = 0.5
	in.Inventory = 8
	out := st.Quotes(0.001, in)

	if ask := out.SellLevels[0].Price; ask < in.Price*(1+p.MinimalSpread)-0.001 {
		t.Errorf("ask %v inside the minimal spread floor %v", ask, in.Price*(1+p.MinimalSpread))
	}
	if bid := out.BuyLevels[0].Price; bid > in.Price*(1-p.MinimalSpread)+0.001 {
		t.Errorf("bid %v inside the minimal spread floor %v", bid, in.Price*(1-p.MinimalSpread))
	}
}

func TestMexicoLadderAndSpacingFloor(t *testing.T) {
	p := strategy.DefaultParams()
	p.MaxOrders = 2
	p.ConstantSpread = 0.001 // below the minimal spread
	p.MinimalSpread = 0.004
	p.VolatilityFactor = 0
	p.SpreadMomentumFactor = 0
	mx := NewMexico(p)

	out := mx.Quotes(0.001, baseInput())
	if len(out.BuyLevels) != 2 || len(out.SellLevels) != 2 {
		t.Fatalf("levels = %d buy / %d sell, want 2 / 2", len(out.BuyLevels), len(out.SellLevels))
	}
	// Spacing floored at the minimal spread.
	if want := 0.004 * 100; math.Abs(out.Spread-want) > 1e-9 {
		t.Errorf("spread = %v, want floored %v", out.Spread, want)
	}
	// Ladder moves away from the reservation price.
	if out.BuyLevels[1].Price >= out.BuyLevels[0].Price {
		t.Errorf("outer bid %v not below inner bid %v", out.BuyLevels[1].Price, out.BuyLevels[0].Price)
	}
	if out.SellLevels[1].Price <= out.SellLevels[0].Price {
		t.Errorf("outer ask %v not above inner ask %v", out.SellLevels[1].Price, out.SellLevels[0].Price)
	}
}

func TestMexicoReservationFactors(t *testing.T) {
	p := strategy.DefaultParams()
	mx := NewMexico(p)

	in := baseInput()
	in.Inventory = 5 // positive inventory pushes the reservation up via q_factor
	in.Indicators["momentum"] = 0.1
	out := mx.Quotes(0.001, in)

	wantDelta := p.QFactor*5/10 + p.MomentumFactor*0.1
	want := 100 * (1 + wantDelta)
	if math.Abs(out.ReservationPrice-want) > 1e-9 {
		t.Errorf("reservation = %v, want %v", out.ReservationPrice, want)
	}
}

func TestMexicoAdaptiveSizes(t *testing.T) {
	p := strategy.DefaultParams()
	p.MaxOrders = 2
	p.UseAdaptiveSizes = true
	mx := NewMexico(p)

	in := baseInput()
	in.Inventory = 6
	out := mx.Quotes(0.001, in)

	wantBuy := (10 - 6) * 0.5 / 2.0
	wantSell := (10 + 6) * 0.5 / 2.0
	if math.Abs(out.BuyLevels[0].Size-wantBuy) > 1e-12 {
		t.Errorf("adaptive buy size = %v, want %v", out.BuyLevels[0].Size, wantBuy)
	}
	if math.Abs(out.SellLevels[0].Size-wantSell) > 1e-12 {
		t.Errorf("adaptive sell size = %v, want %v", out.SellLevels[0].Size, wantSell)
	}
}

func TestRegisterAll(t *testing.T) {
	r := strategy.NewRegistry()
	RegisterAll(r)

	want := []string{"mexico", "stoikov", "tokyo"}
	got := r.List()
	if len(got) != len(want) {
		t.Fatalf("List = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("List = %v, want %v", got, want)
		}
	}
	for _, name := range want {
		s, err := r.New(name, strategy.DefaultParams())
		if err != nil {
			t.Fatalf("New(%q): %v", name, err)
		}
		if s.Name() != name {
			t.Errorf("Name() = %q, want %q", s.Name(), name)
		}
	}
}
