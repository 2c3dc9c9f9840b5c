package dedup

import (
	"math"
	"reflect"
	"testing"

	"crm_backend/internal/leads/domain"
)

func lead(id, name, phone string) domain.Lead {
	return domain.Lead{ID: id, Name: name, Phone: phone}
}

func approxEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func sampleLeads() []domain.Lead {
	return []domain.Lead{
		lead("1", "Giovanni Bianchi", "111"),
		lead("2", "Giovanna Bianchi", "222"),
		lead("3", "Marco Rossi", "3331234567"),
		lead("4", "Marco Rosi", "999"),
		lead("5", "M Rossi", "+39 333 123 4567"),
		lead("6", "Lucia Verdi", ""),
		lead("7", "Lucìa  Verdi", "0612345678"),
	}
}

func TestDetectPhoneMatchDominatesName(t *testing.T) {
	groups := Detect([]domain.Lead{
		lead("1", "Marco Rossi", "3331234567"),
		lead("2", "M. Rossi", "3331234567"),
	}, DefaultOptions())

	if len(groups) != 1 {
		t.Fatalf("expected 1 group, got %d", len(groups))
	}
	g := groups[0]
	if g.MasterID != "1" || len(g.DuplicateIDs) != 1 || g.DuplicateIDs[0] != "2" {
		t.Fatalf("unexpected group: %+v", g)
	}
	if !approxEqual(g.Similarity, 0.95) {
		t.Fatalf("expected similarity 0.95, got %v", g.Similarity)
	}
}

func TestDetectExactNameWithoutPhone(t *testing.T) {
	groups := Detect([]domain.Lead{
		lead("1", "Marco Rossi", ""),
		lead("2", "Marco Rossi", "3339999999"),
	}, DefaultOptions())

	if len(groups) != 1 || groups[0].MasterID != "1" {
		t.Fatalf("expected one group mastered by 1, got %+v", groups)
	}
	if !approxEqual(groups[0].Similarity, 0.90) {
		t.Fatalf("expected similarity 0.90, got %v", groups[0].Similarity)
	}
}

func TestDetectRejectsLooseNamesWithDifferentPhones(t *testing.T) {
	groups := Detect([]domain.Lead{
		lead("1", "Giovanni Bianchi", "111"),
		lead("2", "Giovanna Bianco", "222"),
	}, DefaultOptions())

	if len(groups) != 0 {
		t.Fatalf("expected no groups, got %+v", groups)
	}
}

func TestDetectEmptyInput(t *testing.T) {
	if groups := Detect(nil, DefaultOptions()); len(groups) != 0 {
		t.Fatalf("expected no groups, got %+v", groups)
	}
}

func TestDetectLinksNamelessRecordsThroughFuzzyRule(t *testing.T) {
	leads := []domain.Lead{
		lead("1", "", ""),
		lead("2", "", "111"),
		lead("3", "  ", "n/a"),
		lead("4", "Anna", ""),
	}

	groups := Detect(leads, DefaultOptions())
	if len(groups) != 1 {
		t.Fatalf("expected one group, got %+v", groups)
	}
	g := groups[0]
	if g.MasterID != "1" || !reflect.DeepEqual(g.DuplicateIDs, []string{"2", "3"}) || g.Similarity != fuzzyDiscount {
		t.Fatalf("unexpected group %+v", g)
	}

	if groups := Detect(leads, Options{Threshold: 0.86}); len(groups) != 0 {
		t.Fatalf("expected the discounted score to fall below 0.86, got %+v", groups)
	}
}

func TestDetectIsMasterCentric(t *testing.T) {
	// 2 and 3 share nothing with each other; both link to 1 through the phone.
	groups := Detect([]domain.Lead{
		lead("1", "Anna Verdi", "3331234567"),
		lead("2", "Paolo Neri", "+39 3331234567"),
		lead("3", "Anna Verdi", "0000000000"),
	}, DefaultOptions())

	if len(groups) != 1 {
		t.Fatalf("expected a single star-shaped group, got %+v", groups)
	}
	if got := groups[0].DuplicateIDs; len(got) != 2 || got[0] != "2" || got[1] != "3" {
		t.Fatalf("unexpected duplicates: %v", got)
	}
	if !approxEqual(groups[0].Similarity, 0.95) {
		t.Fatalf("expected max similarity 0.95, got %v", groups[0].Similarity)
	}
}

func TestDetectPartitionsInput(t *testing.T) {
	input := sampleLeads()
	inputIDs := make(map[string]bool, len(input))
	for _, l := range input {
		inputIDs[l.ID] = true
	}

	for _, threshold := range []float64{0, 0.3, 0.5, 0.77, 0.85, 0.95, 1} {
		seen := make(map[string]bool)
		for _, g := range Detect(input, Options{Threshold: threshold}) {
			if len(g.DuplicateIDs) == 0 {
				t.Fatalf("threshold %v: emitted group without duplicates", threshold)
			}
			for _, id := range g.Members() {
				if !inputIDs[id] {
					t.Fatalf("threshold %v: unknown id %q", threshold, id)
				}
				if seen[id] {
					t.Fatalf("threshold %v: id %q appears twice", threshold, id)
				}
				seen[id] = true
			}
		}
	}
}

func TestDetectThresholdMonotonicity(t *testing.T) {
	input := sampleLeads()
	thresholds := []float64{0, 0.3, 0.5, 0.7, 0.77, 0.8, 0.85, 0.9, 0.95, 1}

	previous := math.MaxInt
	for _, threshold := range thresholds {
		count := 0
		for _, g := range Detect(input, Options{Threshold: threshold}) {
			count += len(g.DuplicateIDs)
		}
		if count > previous {
			t.Fatalf("threshold %v found %d duplicates, more than %d at a lower threshold", threshold, count, previous)
		}
		previous = count
	}
}

func TestDetectFuzzyDiscountAndThreshold(t *testing.T) {
	input := sampleLeads()

	loose := Detect(input, Options{Threshold: 0.77})
	if len(loose) != 3 || loose[0].MasterID != "1" || !approxEqual(loose[0].Similarity, (1-1.0/15)*0.85) {
		t.Fatalf("unexpected groups at 0.77: %+v", loose)
	}

	strict := Detect(input, Options{Threshold: 0.85})
	if len(strict) != 2 || strict[0].MasterID != "3" || strict[1].MasterID != "6" {
		t.Fatalf("unexpected groups at 0.85: %+v", strict)
	}
	if got := strict[1].DuplicateIDs; len(got) != 1 || got[0] != "7" {
		t.Fatalf("expected accented name variant to match exactly, got %v", got)
	}
}

func TestPhoneEqualityDominatesAtAnyThreshold(t *testing.T) {
	a := lead("1", "Anna Verdi", "+39 333 123 4567")
	b := lead("2", "Luca Neri", "333-123-4567")

	for _, threshold := range []float64{0, 0.5, 0.85, 0.95} {
		score, linked := Compare(a, b, Options{Threshold: threshold})
		if !linked || !approxEqual(score, 0.95) {
			t.Fatalf("threshold %v: expected phone link at 0.95, got %v linked=%v", threshold, score, linked)
		}
	}
	if _, linked := Compare(a, b, Options{Threshold: 0.96}); linked {
		t.Fatalf("expected no link above the phone score")
	}
}

func TestExactOnlyIsStricterThanFuzzy(t *testing.T) {
	input := []domain.Lead{
		lead("1", "Marco Rossi", "3331234567"),
		lead("2", "marco  rossi", "+39 333 123 4567"),
		lead("3", "Marco Rossi", ""),
		lead("4", "Giulia Bianchi", "3470000000"),
		lead("5", "Giulia Bianchi", "3470000000"),
		lead("6", "Giulia B.", "3470000000"),
	}

	exact := Detect(input, Options{Threshold: DefaultThreshold, ExactOnly: true})
	if len(exact) != 2 {
		t.Fatalf("expected 2 exact groups, got %+v", exact)
	}
	for _, g := range exact {
		if !approxEqual(g.Similarity, 1) {
			t.Fatalf("exact groups score 1.0, got %v", g.Similarity)
		}
	}

	fuzzyGroupOf := make(map[string]string)
	for _, g := range Detect(input, Options{Threshold: DefaultThreshold}) {
		for _, id := range g.Members() {
			fuzzyGroupOf[id] = g.MasterID
		}
	}
	for _, g := range exact {
		for _, id := range g.DuplicateIDs {
			if fuzzyGroupOf[id] == "" || fuzzyGroupOf[id] != fuzzyGroupOf[g.MasterID] {
				t.Fatalf("exact pair %s/%s not grouped in fuzzy mode", g.MasterID, id)
			}
		}
	}
}

func TestExactOnlyRequiresPhone(t *testing.T) {
	_, linked := Compare(lead("1", "Marco Rossi", ""), lead("2", "Marco Rossi", ""), Options{Threshold: 0.5, ExactOnly: true})
	if linked {
		t.Fatalf("exact mode must not link records without phones")
	}
}

func TestDuplicatesOf(t *testing.T) {
	input := []domain.Lead{
		lead("1", "Marco Rossi", "3331234567"),
		lead("2", "Luca Neri", "3331234567"),
		lead("3", "Marco Rossi", ""),
		lead("4", "Giulia Bianchi", "3470000000"),
	}

	fromMaster := DuplicatesOf("1", input, DefaultOptions())
	if len(fromMaster) != 2 || fromMaster[0].ID != "2" || fromMaster[1].ID != "3" {
		t.Fatalf("unexpected duplicates of master: %+v", fromMaster)
	}

	fromDuplicate := DuplicatesOf("3", input, DefaultOptions())
	if len(fromDuplicate) != 2 || fromDuplicate[0].ID != "1" || fromDuplicate[1].ID != "2" {
		t.Fatalf("unexpected duplicates of duplicate: %+v", fromDuplicate)
	}

	if got := DuplicatesOf("4", input, DefaultOptions()); len(got) != 0 {
		t.Fatalf("expected unique lead to have no duplicates, got %+v", got)
	}
	if got := DuplicatesOf("missing", input, DefaultOptions()); got != nil {
		t.Fatalf("expected nil for unknown lead, got %+v", got)
	}
}
