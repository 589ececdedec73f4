package combat

import "testing"

func TestEffectsApplyRefreshes(t *testing.T) {
	var list Effects
	first := NewWeak()
	first.Duration = 1
	list.Apply(first)
	list.Apply(NewWeak())

	if len(list) != 1 {
		t.Fatalf("Expected 1 effect after re-application, got %d", len(list))
	}
	if list[0].Duration != DefaultDuration {
		t.Errorf("Duration = %d, want %d", list[0].Duration, DefaultDuration)
	}
}

func TestEffectsTick(t *testing.T) {
	list := Effects{}
	short := NewBurn()
	short.Duration = 1
	list.Apply(short)
	list.Apply(NewPower())

	ticks := list.Tick()
	if len(ticks) != 2 {
		t.Fatalf("Expected 2 ticks, got %d", len(ticks))
	}
	if !ticks[0].Ended {
		t.Error("Burn with 1 turn left should have ended")
	}
	if ticks[1].Ended {
		t.Error("Power should not have ended yet")
	}
	if list.Has(EffectBurn) {
		t.Error("Expired burn should be dropped")
	}
	if list[0].Duration != DefaultDuration-1 {
		t.Errorf("Power duration = %d, want %d", list[0].Duration, DefaultDuration-1)
	}

	list.Tick()
	list.Tick()
	if len(list) != 0 {
		t.Errorf("Expected no effects left, got %d", len(list))
	}
}

func TestEffectsRemoveAndClone(t *testing.T) {
	list := Effects{NewWeak(), NewFragile()}
	clone := list.Clone()
	list.Remove(EffectWeak)

	if list.Has(EffectWeak) {
		t.Error("Remove should drop weak")
	}
	if !clone.Has(EffectWeak) {
		t.Error("Clone should be independent of the original")
	}
}

func TestMultipliers(t *testing.T) {
	tests := []struct {
		name    string
		effects Effects
		dealt   float64
		taken   float64
	}{
		{"none", nil, 1, 1},
		{"power", Effects{NewPower()}, 1.5, 1},
		{"weak", Effects{NewWeak()}, 0.5, 1},
		{"both", Effects{NewWeak(), NewPower()}, 0.75, 1},
		{"fragile", Effects{NewFragile()}, 1, 1.5},
	}

	for _, tt := range tests {
		if got := DamageDealtMultiplier(tt.effects); got != tt.dealt {
			t.Errorf("%s: DamageDealtMultiplier() = %v, want %v", tt.name, got, tt.dealt)
		}
		if got := DamageTakenMultiplier(tt.effects); got != tt.taken {
			t.Errorf("%s: DamageTakenMultiplier() = %v, want %v", tt.name, got, tt.taken)
		}
	}
}

func TestBurnDamagePerInstance(t *testing.T) {
	// Apply refreshes, so build the list by hand to check the per-instance formula.
	list := []StatusEffect{NewBurn(), NewBurn()}
	if got := BurnDamage(list, 200); got != 20 {
		t.Errorf("BurnDamage(2 stacks, 200) = %d, want 20", got)
	}
	if got := BurnDamage(nil, 200); got != 0 {
		t.Errorf("BurnDamage(none) = %d, want 0", got)
	}
}
