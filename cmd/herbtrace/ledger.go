package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"herbtrace/internal/ledger"
	"herbtrace/internal/model"
	"herbtrace/internal/scan"

	"github.com/spf13/cobra"
)

func coordinateFlags(cmd *cobra.Command) (model.Coordinate, error) {
	lat, err := cmd.Flags().GetFloat64("lat")
	if err != nil {
		return model.Coordinate{}, err
	}
	lon, err := cmd.Flags().GetFloat64("lon")
	if err != nil {
		return model.Coordinate{}, err
	}
	return model.Coordinate{Latitude: lat, Longitude: lon}, nil
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}

func printBatch(b *model.HarvestBatch) {
	fmt.Printf("%s  %-12s  %s  %-15s  bonus:%d  %s\n",
		shortID(b.ID),
		b.BotanicalName,
		b.Timestamp,
		b.ComplianceStatus,
		b.SustainabilityBonus,
		b.Farm.Name,
	)
}

var plantsCmd = &cobra.Command{
	Use:   "plants",
	Short: "List species with compliance rules",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("plants")
		if err != nil {
			return err
		}
		defer a.Close()

		for _, p := range a.Plants() {
			fmt.Println(p)
		}
		return nil
	},
}

var checkCmd = &cobra.Command{
	Use:   "check PLANT",
	Short: "Check whether a harvest would be compliant right now",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		coord, err := coordinateFlags(cmd)
		if err != nil {
			return err
		}

		a, err := newApp("check")
		if err != nil {
			return err
		}
		defer a.Close()

		v, err := a.CheckCompliance(args[0], coord)
		if err != nil {
			return err
		}
		fmt.Printf("%s: %s\n", v.Status, v.Message)
		return nil
	},
}

var harvestCmd = &cobra.Command{
	Use:   "harvest PLANT",
	Short: "Record a compliant harvest on the ledger",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		coord, err := coordinateFlags(cmd)
		if err != nil {
			return err
		}
		flags := cmd.Flags()
		farmName, _ := flags.GetString("farm")
		notes, _ := flags.GetString("notes")
		farmLat, _ := flags.GetFloat64("farm-lat")
		farmLon, _ := flags.GetFloat64("farm-lon")
		temperature, _ := flags.GetString("temperature")
		condition, _ := flags.GetString("condition")

		// The farm location defaults to where the harvest was checked.
		if !flags.Changed("farm-lat") {
			farmLat = coord.Latitude
		}
		if !flags.Changed("farm-lon") {
			farmLon = coord.Longitude
		}

		a, err := newApp("harvest", args[0])
		if err != nil {
			return err
		}
		defer a.Close()

		sub, err := a.SubmitHarvest(cmd.Context(), ledger.HarvestRequest{
			Plant:      args[0],
			Coordinate: coord,
			Farm:       model.Farm{Name: farmName, Notes: notes, Latitude: farmLat, Longitude: farmLon},
			Weather:    model.Weather{Temperature: temperature, Condition: condition},
		})
		if err != nil {
			return err
		}

		fmt.Printf("%s\n\n", sub.Verdict.Message)
		fmt.Printf("Batch:    %s\n", sub.Batch.ID)
		fmt.Printf("Previous: %s\n", sub.Batch.PreviousHash)
		fmt.Println("Serials:")
		for _, s := range sub.Serials {
			fmt.Printf("  %s\n", s)
		}
		return nil
	},
}

var batchesCmd = &cobra.Command{
	Use:   "batches",
	Short: "List recent harvest batches",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := newApp("batches")
		if err != nil {
			return err
		}
		defer a.Close()

		batches, err := a.ListBatches(cmd.Context(), limit)
		if err != nil {
			return err
		}
		if len(batches) == 0 {
			fmt.Println("No batches recorded.")
			return nil
		}
		for _, b := range batches {
			printBatch(b)
		}
		return nil
	},
}

var earningsCmd = &cobra.Command{
	Use:   "earnings",
	Short: "Show sustainability bonus earnings",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("earnings")
		if err != nil {
			return err
		}
		defer a.Close()

		e, err := a.Earnings(cmd.Context())
		if err != nil {
			return err
		}
		for _, b := range e.Batches {
			if b.SustainabilityBonus > 0 {
				printBatch(b)
			}
		}
		fmt.Printf("Total bonus: %d\n", e.Total)
		return nil
	},
}

var labelsCmd = &cobra.Command{
	Use:   "labels BATCH",
	Short: "Print product serials for a batch",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("labels")
		if err != nil {
			return err
		}
		defer a.Close()

		serials, err := a.Labels(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		for _, s := range serials {
			fmt.Println(s)
		}
		return nil
	},
}

// event command
var eventCmd = &cobra.Command{
	Use:   "event",
	Short: "Record supply chain events",
}

func recordEvent(cmd *cobra.Command, batchRef string, in ledger.EventInput) error {
	a, err := newApp("event", string(in.Type), batchRef)
	if err != nil {
		return err
	}
	defer a.Close()

	ev, err := a.RecordEvent(cmd.Context(), batchRef, in)
	if err != nil {
		return err
	}
	fmt.Printf("Recorded %s %s on batch %s\n", ev.Type, ev.ID, shortID(ev.BatchID))
	return nil
}

var eventLabTestCmd = &cobra.Command{
	Use:   "lab-test BATCH",
	Short: "Record a lab test result",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		analyst, _ := cmd.Flags().GetString("analyst")
		result, _ := cmd.Flags().GetString("result")
		return recordEvent(cmd, args[0], ledger.EventInput{
			Type:    model.EventLabTest,
			Analyst: analyst,
			Result:  result,
		})
	},
}

var eventMfgStepCmd = &cobra.Command{
	Use:   "mfg-step BATCH",
	Short: "Record a manufacturing step",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		facility, _ := cmd.Flags().GetString("facility")
		action, _ := cmd.Flags().GetString("action")
		return recordEvent(cmd, args[0], ledger.EventInput{
			Type:     model.EventMfgStep,
			Facility: facility,
			Action:   action,
		})
	},
}

func printHistory(h *model.FullHistory) {
	b := h.Harvest
	fmt.Printf("Harvest  %s\n", b.ID)
	fmt.Printf("  %s from %s at %s (%s)\n", b.BotanicalName, b.Farm.Name, b.Timestamp, b.ComplianceStatus)
	if b.Weather.Condition != "" || b.Weather.Temperature != "" {
		fmt.Printf("  weather: %s %s\n", b.Weather.Temperature, b.Weather.Condition)
	}
	for _, e := range h.Events {
		switch e.Type {
		case model.EventLabTest:
			fmt.Printf("%s  LAB_TEST  %s: %s\n", e.Timestamp, e.Analyst, e.Result)
		case model.EventMfgStep:
			fmt.Printf("%s  MFG_STEP  %s: %s\n", e.Timestamp, e.Facility, e.Action)
		}
	}
}

var traceCmd = &cobra.Command{
	Use:   "trace SERIAL",
	Short: "Show the provenance of a product",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("trace")
		if err != nil {
			return err
		}
		defer a.Close()

		h, err := a.Resolve(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		printHistory(h)
		return nil
	},
}

// readSerials reads one serial per line, skipping blanks and # comments.
func readSerials(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	var serials []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		serials = append(serials, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return serials, nil
}

var scanCmd = &cobra.Command{
	Use:   "scan [SERIAL]",
	Short: "Scan a product serial and reward its producer",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		file, _ := cmd.Flags().GetString("file")
		if file == "" && len(args) == 0 {
			return fmt.Errorf("provide a SERIAL or --file")
		}
		if file != "" && len(args) > 0 {
			return fmt.Errorf("SERIAL and --file are mutually exclusive")
		}

		if file != "" {
			serials, err := readSerials(file)
			if err != nil {
				return err
			}

			a, err := newApp("scan", "--file", file)
			if err != nil {
				return err
			}
			defer a.Close()

			results, err := a.ScanAll(cmd.Context(), serials)
			for _, r := range results {
				switch {
				case r.Err != nil:
					fmt.Printf("FAIL     %s  %s\n", r.Serial, r.Error)
				case r.Reward.Awarded:
					fmt.Printf("AWARDED  %s  bonus:%d\n", r.Serial, r.Reward.Bonus)
				default:
					fmt.Printf("SKIPPED  %s  %s\n", r.Serial, r.Reward.Reason)
				}
			}
			t := scan.Count(results)
			fmt.Printf("\n%d awarded, %d skipped, %d failed\n", t.Awarded, t.Skipped, t.Failed)
			return err
		}

		a, err := newApp("scan", args[0])
		if err != nil {
			return err
		}
		defer a.Close()

		out, err := a.Scan(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		printHistory(out.History)
		fmt.Println()
		if out.Reward.Awarded {
			fmt.Printf("Producer rewarded: bonus now %d\n", out.Reward.Bonus)
		} else {
			fmt.Printf("No reward: %s\n", out.Reward.Reason)
		}
		return nil
	},
}

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify the hash chain",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("verify")
		if err != nil {
			return err
		}
		defer a.Close()

		report, err := a.VerifyChain(cmd.Context())
		if err != nil {
			return err
		}
		if report.OK() {
			fmt.Printf("Chain OK: %d block(s), head %s\n", report.Blocks, shortID(report.Head))
			return nil
		}
		for _, issue := range report.Issues {
			fmt.Printf("%-20s %s  %s\n", issue.Kind, shortID(issue.BatchID), issue.Detail)
		}
		return fmt.Errorf("chain verification found %d issue(s)", len(report.Issues))
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View ledger operation history",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := newApp("history")
		if err != nil {
			return err
		}
		defer a.Close()

		ops, err := a.GetHistory(limit)
		if err != nil {
			return err
		}
		if len(ops) == 0 {
			fmt.Println("No operations recorded.")
			return nil
		}

		for _, op := range ops {
			duration := ""
			if op.FinishedAt != nil {
				duration = op.FinishedAt.Sub(op.StartedAt).String()
			}
			fmt.Printf("#%d  %-10s  %s  %-8s  %-10s  %s\n",
				op.ID,
				op.Operation,
				op.StartedAt.Format("2006-01-02 15:04:05"),
				op.Status,
				duration,
				op.Parameters,
			)
		}
		return nil
	},
}

func init() {
	checkCmd.Flags().Float64("lat", 0, "Latitude of the harvest site")
	checkCmd.Flags().Float64("lon", 0, "Longitude of the harvest site")
	_ = checkCmd.MarkFlagRequired("lat")
	_ = checkCmd.MarkFlagRequired("lon")

	harvestCmd.Flags().Float64("lat", 0, "Latitude of the harvest site")
	harvestCmd.Flags().Float64("lon", 0, "Longitude of the harvest site")
	_ = harvestCmd.MarkFlagRequired("lat")
	_ = harvestCmd.MarkFlagRequired("lon")
	harvestCmd.Flags().String("farm", "", "Farm name")
	harvestCmd.Flags().String("notes", "", "Farm notes")
	harvestCmd.Flags().Float64("farm-lat", 0, "Farm latitude (default: --lat)")
	harvestCmd.Flags().Float64("farm-lon", 0, "Farm longitude (default: --lon)")
	harvestCmd.Flags().String("temperature", "", "Temperature at harvest, e.g. 28C")
	harvestCmd.Flags().String("condition", "", "Weather condition at harvest")

	batchesCmd.Flags().IntP("limit", "n", 20, "Maximum number of batches to show")

	eventLabTestCmd.Flags().String("analyst", "", "Analyst name")
	eventLabTestCmd.Flags().String("result", "", "Test result")
	eventMfgStepCmd.Flags().String("facility", "", "Facility name")
	eventMfgStepCmd.Flags().String("action", "", "Processing step performed")
	eventCmd.AddCommand(eventLabTestCmd)
	eventCmd.AddCommand(eventMfgStepCmd)

	scanCmd.Flags().StringP("file", "f", "", "File with one serial per line")

	historyCmd.Flags().IntP("limit", "n", 50, "Maximum number of operations to show")

	rootCmd.AddCommand(plantsCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(harvestCmd)
	rootCmd.AddCommand(batchesCmd)
	rootCmd.AddCommand(earningsCmd)
	rootCmd.AddCommand(labelsCmd)
	rootCmd.AddCommand(eventCmd)
	rootCmd.AddCommand(traceCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(historyCmd)
}
