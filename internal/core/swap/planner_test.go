package swap

import (
	"errors"
	"testing"

	"meal-engine/internal/core/food"
)

func kcal(v float64) *float64 { return &v }

func TestSuggestPreservesCalories(t *testing.T) {
	p := NewPlanner(nil)
	meal := MealEntry{
		Name: "Almoço",
		Ingredients: []food.LineItem{
			{Name: "Frango", Quantity: 120, Unit: food.Gram},
			{Name: "Arroz branco", Quantity: 100, Unit: food.Gram},
		},
	}

	plan, err := p.Suggest(meal, "carboidrato", []string{"Batata", "Batata doce"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if plan.Slot != 1 || plan.Current == nil || plan.Current.Name != "Arroz branco" {
		t.Fatalf("slot = %d, current = %+v", plan.Slot, plan.Current)
	}
	if plan.CurrentKcal != 130 {
		t.Fatalf("current kcal = %v, want 130", plan.CurrentKcal)
	}

	want := []SubstitutionCandidate{
		{Name: "Batata", Grams: 170, DeltaKcal: 1},
		{Name: "Batata doce", Grams: 150, DeltaKcal: -1},
	}
	if len(plan.Candidates) != len(want) {
		t.Fatalf("candidates = %+v", plan.Candidates)
	}
	for i, c := range plan.Candidates {
		if c != want[i] {
			t.Errorf("candidate %d = %+v, want %+v", i, c, want[i])
		}
	}
}

func TestSuggestUsesCatalogOrder(t *testing.T) {
	p := NewPlanner(nil)
	meal := MealEntry{Ingredients: []food.LineItem{{Name: "Frango", Quantity: 100, Unit: food.Gram}}}

	plan, err := p.Suggest(meal, "Proteína", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cat, _ := p.Catalog().Category("proteina")
	if len(plan.Candidates) != len(cat.Candidates) {
		t.Fatalf("got %d candidates, want %d", len(plan.Candidates), len(cat.Candidates))
	}
	for i, c := range plan.Candidates {
		if c.Name != cat.Candidates[i] {
			t.Fatalf("candidate %d = %s, want %s", i, c.Name, cat.Candidates[i])
		}
	}
}

func TestSuggestUnknownCategory(t *testing.T) {
	_, err := NewPlanner(nil).Suggest(MealEntry{}, "sobremesa", nil)
	if !errors.Is(err, ErrUnknownCategory) {
		t.Fatalf("err = %v, want ErrUnknownCategory", err)
	}
}

func TestSuggestEmptyCategory(t *testing.T) {
	plan, err := NewPlanner(nil).Suggest(MealEntry{Name: "Lanche"}, "outros", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(plan.Candidates) != 0 {
		t.Fatalf("expected no suggestions, got %+v", plan.Candidates)
	}
	if plan.HasSlot() {
		t.Fatalf("category without keywords must not find a slot")
	}
}

func TestPlanForClampsGrams(t *testing.T) {
	cheese := Category{ID: "teste", Keywords: []string{"salad", "queijo"}}

	low := PlanFor(MealEntry{Ingredients: []food.LineItem{{Name: "Salad", Quantity: 240, Unit: food.Gram}}},
		cheese, []string{"Queijo"})
	if got := low.Candidates[0]; got.Grams != MinGrams || got.DeltaKcal != 60 {
		t.Fatalf("low clamp = %+v", got)
	}

	high := PlanFor(MealEntry{Ingredients: []food.LineItem{{Name: "Queijo", Quantity: 225, Unit: food.Gram}}},
		cheese, []string{"Abacate"})
	if got := high.Candidates[0]; got.Grams != MaxGrams || got.DeltaKcal != -500 {
		t.Fatalf("high clamp = %+v", got)
	}
}

func TestCurrentKcalFallbacks(t *testing.T) {
	cases := []struct {
		name string
		meal MealEntry
		slot int
		want float64
	}{
		{"slot with quantity", MealEntry{Ingredients: []food.LineItem{{Name: "Ovo", Quantity: 50}}}, 0, 78},
		{"slot without quantity uses meal calories", MealEntry{CaloriesKcal: kcal(1000), Ingredients: []food.LineItem{{Name: "Ovo"}}}, 0, 350},
		{"no slot uses meal calories", MealEntry{CaloriesKcal: kcal(400)}, -1, 140},
		{"nothing known", MealEntry{}, -1, 300},
		{"zero calories treated as unknown", MealEntry{CaloriesKcal: kcal(0)}, -1, 300},
	}
	for _, tc := range cases {
		if got := CurrentKcal(tc.meal, tc.slot); got != tc.want {
			t.Errorf("%s: got %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestTargetGrams(t *testing.T) {
	cases := []struct {
		current, density, want float64
	}{
		{130, 0.77, 170},
		{300, 1.0, 300},
		{10, 1.0, 30},
		{5000, 1.0, 400},
		{102, 1.0, 100},
		{103, 1.0, 105},
		{100, 0, 100},
	}
	for _, tc := range cases {
		if got := TargetGrams(tc.current, tc.density); got != tc.want {
			t.Errorf("TargetGrams(%v, %v) = %v, want %v", tc.current, tc.density, got, tc.want)
		}
	}
}

func TestApplyReplacesSlotAndPinsCalories(t *testing.T) {
	p := NewPlanner(nil)
	meal := MealEntry{
		Name:         "Jantar",
		CaloriesKcal: kcal(650),
		Ingredients: []food.LineItem{
			{Name: "Arroz branco", Quantity: 100, Unit: food.Gram},
			{Name: "Frango", Quantity: 120, Unit: food.Gram},
		},
	}
	plan, err := p.Suggest(meal, "carboidrato", []string{"Batata"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := Apply(meal, plan, plan.Candidates[0])
	if *out.CaloriesKcal != 650 {
		t.Fatalf("calories = %v, want 650", *out.CaloriesKcal)
	}
	if len(out.Ingredients) != 2 {
		t.Fatalf("ingredients = %+v", out.Ingredients)
	}
	if got := out.Ingredients[0]; got.Name != "Batata" || got.Quantity != 170 || got.Unit != food.Gram {
		t.Fatalf("replaced ingredient = %+v", got)
	}
	if meal.Ingredients[0].Name != "Arroz branco" {
		t.Fatalf("Apply mutated the input meal")
	}
	if out.CaloriesKcal == meal.CaloriesKcal {
		t.Fatalf("Apply must not share the calories pointer")
	}
}

func TestApplyAppendsWithoutSlot(t *testing.T) {
	p := NewPlanner(nil)
	meal := MealEntry{Name: "Lanche", Ingredients: []food.LineItem{{Name: "Banana", Quantity: 100, Unit: food.Gram}}}

	plan, err := p.Suggest(meal, "proteina", []string{"Peixe"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if plan.HasSlot() {
		t.Fatalf("unexpected slot %d", plan.Slot)
	}

	out := Apply(meal, plan, plan.Candidates[0])
	if len(out.Ingredients) != 2 || out.Ingredients[1].Name != "Peixe" || out.Ingredients[1].Quantity != 300 {
		t.Fatalf("ingredients = %+v", out.Ingredients)
	}
	if out.CaloriesKcal == nil || *out.CaloriesKcal != 300 {
		t.Fatalf("calories = %v, want pinned 300", out.CaloriesKcal)
	}
}
