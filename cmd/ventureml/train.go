package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/ventureml/dataset"
	"github.com/YuminosukeSato/ventureml/venture"
)

func newTrainCmd(root *rootOptions) *cobra.Command {
	var flowName string
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train one flow and print its evaluation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			flow, err := venture.ParseFlow(flowName)
			if err != nil {
				return err
			}
			cfg, logger, closer, err := root.setup()
			if err != nil {
				return err
			}
			defer closer.Close()

			ds, err := dataset.Load(cfg.Data.Path, dataset.WithLogger(logger))
			if err != nil {
				return err
			}
			flows, err := trainFlows(cmd.Context(), cfg, ds, []venture.Flow{flow}, logger)
			if err != nil {
				return err
			}
			printEvaluation(cmd.OutOrStdout(), flows[flow])
			return nil
		},
	}
	cmd.Flags().StringVarP(&flowName, "flow", "f", string(venture.FlowLogistic), "flow to train (logistic|neighbors)")
	return cmd
}

func printEvaluation(w io.Writer, vc *venture.Context) {
	eval := vc.Evaluation()
	fmt.Fprintf(w, "Exactitud del modelo: %.2f%%\n", eval.Accuracy*100)
	if len(eval.CVScores) > 0 {
		fmt.Fprintf(w, "Validación cruzada (%d particiones): %.2f%%\n", len(eval.CVScores), eval.CVMean()*100)
	}
	fmt.Fprintln(w, "Matriz de confusión:")
	for _, row := range eval.Confusion.Counts {
		fmt.Fprintln(w, row)
	}
	fmt.Fprintln(w, eval.Report.Format(2))
	fmt.Fprintf(w, "Imagen: %s\n", eval.ImagePath)
}
