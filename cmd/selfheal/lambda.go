package main

import (
	"fmt"
	"log/slog"

	awslambda "github.com/aws/aws-lambda-go/lambda"
	"github.com/spf13/cobra"

	"github.com/miradorstack/mirador-selfheal/internal/lambda"
)

const (
	fnAnomalyDetection = "anomaly-detection"
	fnLogAnalyzer      = "log-analyzer"
	fnRemediation      = "remediation"
)

func newLambdaCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:       "lambda <" + fnAnomalyDetection + "|" + fnLogAnalyzer + "|" + fnRemediation + ">",
		Short:     "Run one component as an AWS Lambda function",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{fnAnomalyDetection, fnLogAnalyzer, fnRemediation},
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(root)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			h := lambda.Handlers{Logger: a.logger}
			switch args[0] {
			case fnAnomalyDetection:
				scorer, err := a.scorer(ctx)
				if err != nil {
					return err
				}
				// Cold start: load once, before the first event.
				if err := scorer.Warm(ctx); err != nil {
					a.logger.Error("model unavailable at cold start", slog.Any("error", err))
				}
				h.Scorer = scorer
				awslambda.StartWithOptions(h.AnomalyDetection, awslambda.WithContext(ctx))
			case fnLogAnalyzer:
				analyzer, err := a.analyzer(ctx)
				if err != nil {
					return err
				}
				h.Analyzer = analyzer
				awslambda.StartWithOptions(h.LogAnalyzer, awslambda.WithContext(ctx))
			case fnRemediation:
				remediator, err := a.remediator(ctx)
				if err != nil {
					return err
				}
				h.Remediator = remediator
				awslambda.StartWithOptions(h.Remediation, awslambda.WithContext(ctx))
			default:
				return fmt.Errorf("%w: %s", errUnknownFunction, args[0])
			}
			return nil
		},
	}
}
