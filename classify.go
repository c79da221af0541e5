package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"eamhc/emotion"

	"github.com/spf13/cobra"
)

var classifyDegraded bool

var classifyCmd = &cobra.Command{
	Use:   "classify [text]",
	Short: "Classify one text with the configured backend and print the result",
	Long: `Runs a single classification through the same bridge the server uses
(limiter, timeout, extraction, shaping) and prints the prediction as JSON.

Example:
  eamhc classify "I am so worried about tomorrow"
  eamhc classify --degraded "everything is messed up"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runClassify,
}

func init() {
	classifyCmd.Flags().BoolVar(&classifyDegraded, "degraded", false, "fall back to the keyword simulation if the classifier fails")
}

func runClassify(cmd *cobra.Command, args []string) error {
	opts, err := bridgeOptions(conf)
	if err != nil {
		return err
	}
	if classifyDegraded {
		opts.AllowDegraded = true
	}
	bridge, err := emotion.New(opts, log, nil)
	if err != nil {
		return err
	}
	defer bridge.Close()

	pred, err := bridge.Predict(cmd.Context(), strings.Join(args, " "), classifyDegraded)
	if err != nil {
		var invErr *emotion.InvocationError
		if errors.As(err, &invErr) {
			if s := strings.TrimSpace(invErr.Stderr()); s != "" {
				fmt.Fprintln(cmd.ErrOrStderr(), s)
			}
		}
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(pred)
}
