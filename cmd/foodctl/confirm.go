package main

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"meal-engine/internal/core/confirm"
	"meal-engine/internal/core/food"

	"github.com/spf13/cobra"
)

func newConfirmCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "confirm <label>...",
		Short: "Ingest labels, apply edits and print the outbound gram list",
		Long: `Ingest detected labels into a confirmation session, apply optional
quantity edits (--set Name=qty) and custom items (--add Name=qty[g|ml]), then
finalize and print the list sent to the nutrition service.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runConfirm,
	}
	cmd.Flags().StringArray("set", nil, "edit an item quantity, Name=qty")
	cmd.Flags().StringArray("add", nil, "add a custom item, Name=qty[g|ml]")
	cmd.Flags().StringArray("remove", nil, "remove an item by name")
	cmd.Flags().Bool("json", false, "print the outbound list as JSON")
	return cmd
}

func runConfirm(cmd *cobra.Command, args []string) error {
	sets, _ := cmd.Flags().GetStringArray("set")
	adds, _ := cmd.Flags().GetStringArray("add")
	removes, _ := cmd.Flags().GetStringArray("remove")
	asJSON, _ := cmd.Flags().GetBool("json")
	out := cmd.OutOrStdout()

	detections := make([]food.RawDetection, 0, len(args))
	for _, label := range args {
		detections = append(detections, food.RawDetection{Name: label})
	}

	s := confirm.NewSession()
	report := s.Ingest(detections)

	for _, raw := range adds {
		name, qty, unit, err := parseQuantity(raw)
		if err != nil {
			return err
		}
		if outcome := s.AddCustomItem(name, &qty, unit); outcome != confirm.AddApplied {
			fmt.Fprintf(out, "%s %s: %s\n", warnColor.Sprint("skip"), name, outcome.Message())
		}
	}
	for _, raw := range sets {
		name, qty, _, err := parseQuantity(raw)
		if err != nil {
			return err
		}
		if !s.EditQuantity(name, qty) {
			return fmt.Errorf("no item named %q in the session", name)
		}
	}
	for _, name := range removes {
		if !s.RemoveItem(name) {
			fmt.Fprintf(out, "%s %s: not in the session\n", dimColor.Sprint("skip"), name)
		}
	}

	items, err := s.Finalize()
	if err != nil {
		return err
	}

	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(items)
	}

	fmt.Fprintln(out, dimColor.Sprintf("accepted %d, ignored %d, salad %d", report.Accepted, report.Ignored, report.Salad))
	for _, item := range items {
		fmt.Fprintf(out, "%s %g g\n", okColor.Sprint(item.Name), item.Grams)
	}
	return nil
}

// parseQuantity 解析 "Name=qty"，qty 可帶 g 或 ml 後綴
func parseQuantity(raw string) (string, float64, food.Unit, error) {
	i := strings.LastIndex(raw, "=")
	if i <= 0 || i == len(raw)-1 {
		return "", 0, "", fmt.Errorf("expected Name=qty, got %q", raw)
	}
	name := strings.TrimSpace(raw[:i])
	value := strings.ToLower(strings.TrimSpace(raw[i+1:]))

	var unit food.Unit
	for _, suffix := range []string{"ml", "g"} {
		if strings.HasSuffix(value, suffix) {
			unit, _ = food.ParseUnit(suffix)
			value = strings.TrimSpace(strings.TrimSuffix(value, suffix))
			break
		}
	}
	qty, err := parseAmount(value)
	if err != nil {
		return "", 0, "", fmt.Errorf("invalid quantity in %q: %w", raw, err)
	}
	return name, qty, unit, nil
}

// parseAmount 只接受有限數值
func parseAmount(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%q is not a finite number", s)
	}
	return v, nil
}
