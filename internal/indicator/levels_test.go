package indicator

import "testing"

func TestSupportLevels_ShortSeries(t *testing.T) {
	lows := []float64{10, 9, 11, 8.5, 12}
	got := SupportLevels(lows)
	if len(got) != 1 || got[0] != 8.5 {
		t.Errorf("short series should yield global min, got %v", got)
	}
}

func TestResistanceLevels_ShortSeries(t *testing.T) {
	highs := []float64{10, 9, 11, 8.5, 12}
	got := ResistanceLevels(highs)
	if len(got) != 1 || got[0] != 12 {
		t.Errorf("short series should yield global max, got %v", got)
	}
}

func TestSupportLevels_LocalMinima(t *testing.T) {
	// flat series with one clear dip at index 10
	lows := make([]float64, 25)
	for i := range lows {
		lows[i] = 100
	}
	lows[10] = 90

	got := SupportLevels(lows)
	found := false
	for _, v := range got {
		if v == 90 {
			found = true
		}
	}
	if !found {
		t.Errorf("expected dip 90 among supports, got %v", got)
	}
	if len(got) > 3 {
		t.Errorf("at most 3 supports expected, got %d", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i] < got[i-1] {
			t.Errorf("supports not ascending: %v", got)
		}
	}
}

func TestResistanceLevels_LocalMaxima(t *testing.T) {
	highs := make([]float64, 25)
	for i := range highs {
		highs[i] = 100
	}
	highs[12] = 115

	got := ResistanceLevels(highs)
	found := false
	for _, v := range got {
		if v == 115 {
			found = true
		}
	}
	if !found {
		t.Errorf("expected peak 115 among resistances, got %v", got)
	}
	for i := 1; i < len(got); i++ {
		if got[i] > got[i-1] {
			t.Errorf("resistances not descending: %v", got)
		}
	}
}

func TestLevels_Empty(t *testing.T) {
	if got := SupportLevels(nil); got != nil {
		t.Errorf("expected nil for empty lows, got %v", got)
	}
	if got := ResistanceLevels(nil); got != nil {
		t.Errorf("expected nil for empty highs, got %v", got)
	}
}
