package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"dreamofone.ai/internal/sim/laws"
)

func newEvalCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "eval <utterance...>",
		Short: "Show which laws an utterance would break, without touching any state",
		Args:  cobra.ArbitraryArgs,
		RunE:  runEval,
	}
	cmd.Flags().String("act", "Comply", "speech act (Comply, Inquire, Break, Frame)")
	cmd.Flags().String("place", "", "place id for place-scoped laws and the station multiplier")
	return cmd
}

func runEval(cmd *cobra.Command, args []string) error {
	c, err := loadCatalogs(cmd)
	if err != nil {
		return err
	}
	actFlag, _ := cmd.Flags().GetString("act")
	place, _ := cmd.Flags().GetString("place")
	act, err := laws.ParseSpeechAct(actFlag)
	if err != nil {
		return err
	}
	text := strings.Join(args, " ")

	out := cmd.OutOrStdout()
	hits := laws.Evaluate(c.Laws.All(), act, text, place)
	if len(hits) == 0 {
		fmt.Fprintln(out, "no laws triggered")
		return nil
	}
	susp, expo := 0, 0
	for _, h := range hits {
		mult := ""
		if h.Multiplied {
			mult = " x1.5"
		}
		fmt.Fprintf(out, "%s via %s severity=%d suspicion=%+d exposure=%+d%s\n",
			h.Law.ID, h.DetectorID, h.Severity, h.SuspicionDelta, h.ExposureDelta, mult)
		susp += h.SuspicionDelta
		expo += h.ExposureDelta
	}
	fmt.Fprintf(out, "total: %d laws, suspicion %+d, exposure %+d\n", len(hits), susp, expo)
	return nil
}
