package main

import (
	"fmt"
	"strings"

	"meal-engine/internal/core/food"
	"meal-engine/internal/core/swap"

	"github.com/spf13/cobra"
)

func newSwapCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "swap",
		Short: "Suggest calorie-preserving substitutions for a meal",
		Example: `  foodctl swap --category carboidrato --ingredient "Arroz branco:100" --ingredient "Frango:120"
  foodctl swap --category proteina --calories 650 --candidate Ovo --apply`,
		Args: cobra.NoArgs,
		RunE: runSwap,
	}
	cmd.Flags().String("category", "", "swap category id")
	cmd.Flags().String("name", "Refeição", "meal name")
	cmd.Flags().StringArray("ingredient", nil, "meal ingredient, Name:grams")
	cmd.Flags().Float64("calories", 0, "stated meal calories (kcal)")
	cmd.Flags().StringArray("candidate", nil, "candidate to evaluate (defaults to the catalog list)")
	cmd.Flags().String("catalog", "", "TOML catalog file (defaults to the built-in catalog)")
	cmd.Flags().Bool("apply", false, "apply the first candidate and print the resulting meal")
	_ = cmd.MarkFlagRequired("category")
	return cmd
}

func runSwap(cmd *cobra.Command, _ []string) error {
	categoryID, _ := cmd.Flags().GetString("category")
	name, _ := cmd.Flags().GetString("name")
	rawIngredients, _ := cmd.Flags().GetStringArray("ingredient")
	calories, _ := cmd.Flags().GetFloat64("calories")
	candidates, _ := cmd.Flags().GetStringArray("candidate")
	catalogPath, _ := cmd.Flags().GetString("catalog")
	apply, _ := cmd.Flags().GetBool("apply")
	out := cmd.OutOrStdout()

	catalog, err := swap.LoadCatalog(catalogPath)
	if err != nil {
		return err
	}

	meal := swap.MealEntry{Name: name}
	if cmd.Flags().Changed("calories") {
		meal.CaloriesKcal = &calories
	}
	for _, raw := range rawIngredients {
		item, err := parseIngredient(raw)
		if err != nil {
			return err
		}
		meal.Ingredients = append(meal.Ingredients, item)
	}

	plan, err := swap.NewPlanner(catalog).Suggest(meal, categoryID, candidates)
	if err != nil {
		return fmt.Errorf("%w: %q (known: %s)", err, categoryID, strings.Join(catalog.IDs(), ", "))
	}

	current := "nothing matched, appending"
	if plan.Current != nil {
		current = fmt.Sprintf("%s %g %s", plan.Current.Name, plan.Current.Quantity, plan.Current.Unit)
	}
	fmt.Fprintf(out, "%s %s (%.0f kcal)\n", headerColor.Sprint("replacing:"), current, plan.CurrentKcal)

	if len(plan.Candidates) == 0 {
		fmt.Fprintln(out, dimColor.Sprint("no suggestions for this category"))
		return nil
	}
	for _, c := range plan.Candidates {
		delta := okColor.Sprintf("%+.0f kcal", c.DeltaKcal)
		if c.DeltaKcal != 0 {
			delta = warnColor.Sprintf("%+.0f kcal", c.DeltaKcal)
		}
		fmt.Fprintf(out, "  %-18s %5g g  %s\n", c.Name, c.Grams, delta)
	}

	if apply {
		updated := swap.Apply(meal, plan, plan.Candidates[0])
		fmt.Fprintf(out, "%s %s (%.0f kcal)\n", headerColor.Sprint("meal:"), updated.Name, *updated.CaloriesKcal)
		for _, ing := range updated.Ingredients {
			fmt.Fprintf(out, "  %s %g %s\n", ing.Name, ing.Quantity, ing.Unit)
		}
	}
	return nil
}

// parseIngredient 解析 "Name:grams"
func parseIngredient(raw string) (food.LineItem, error) {
	i := strings.LastIndex(raw, ":")
	if i <= 0 {
		return food.LineItem{}, fmt.Errorf("expected Name:grams, got %q", raw)
	}
	grams, err := parseAmount(strings.TrimSpace(raw[i+1:]))
	if err != nil {
		return food.LineItem{}, fmt.Errorf("invalid grams in %q: %w", raw, err)
	}
	return food.LineItem{Name: strings.TrimSpace(raw[:i]), Quantity: grams, Unit: food.Gram}, nil
}
