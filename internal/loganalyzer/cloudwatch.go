package loganalyzer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs/types"

	"github.com/miradorstack/mirador-selfheal/internal/models"
	"github.com/miradorstack/mirador-selfheal/internal/utils"
)

// CloudWatchAPI is the subset of the CloudWatch Logs client the querier calls.
type CloudWatchAPI interface {
	StartQuery(ctx context.Context, params *cloudwatchlogs.StartQueryInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.StartQueryOutput, error)
	GetQueryResults(ctx context.Context, params *cloudwatchlogs.GetQueryResultsInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.GetQueryResultsOutput, error)
	StopQuery(ctx context.Context, params *cloudwatchlogs.StopQueryInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.StopQueryOutput, error)
}

// CloudWatchQuerier runs Logs Insights queries.
type CloudWatchQuerier struct {
	client CloudWatchAPI
}

// NewCloudWatchQuerier constructs a querier over client.
func NewCloudWatchQuerier(client CloudWatchAPI) (*CloudWatchQuerier, error) {
	if client == nil {
		return nil, errors.New("cloudwatch logs client is required")
	}
	return &CloudWatchQuerier{client: client}, nil
}

// StartQuery submits q and returns its id.
func (c *CloudWatchQuerier) StartQuery(ctx context.Context, q Query) (string, error) {
	in := &cloudwatchlogs.StartQueryInput{
		LogGroupName: aws.String(q.LogGroup),
		StartTime:    aws.Int64(q.Start.Unix()),
		EndTime:      aws.Int64(q.End.Unix()),
		QueryString:  aws.String(q.QueryString),
	}
	if q.Limit > 0 {
		in.Limit = aws.Int32(int32(q.Limit))
	}
	out, err := c.client.StartQuery(ctx, in)
	if err != nil {
		return "", fmt.Errorf("start logs query on %s: %w", q.LogGroup, err)
	}
	return aws.ToString(out.QueryId), nil
}

// Results fetches the current state of a query.
func (c *CloudWatchQuerier) Results(ctx context.Context, queryID string) (Result, error) {
	out, err := c.client.GetQueryResults(ctx, &cloudwatchlogs.GetQueryResultsInput{QueryId: aws.String(queryID)})
	if err != nil {
		return Result{}, fmt.Errorf("get logs query %s: %w", queryID, err)
	}

	res := Result{Status: Status(out.Status)}
	if res.Status == "" {
		res.Status = StatusUnknown
	}
	for _, row := range out.Results {
		res.Matches = append(res.Matches, matchFromRow(row))
	}
	return res, nil
}

// StopQuery abandons a running query.
func (c *CloudWatchQuerier) StopQuery(ctx context.Context, queryID string) error {
	_, err := c.client.StopQuery(ctx, &cloudwatchlogs.StopQueryInput{QueryId: aws.String(queryID)})
	return err
}

func matchFromRow(row []types.ResultField) models.LogMatch {
	var m models.LogMatch
	for _, field := range row {
		switch aws.ToString(field.Field) {
		case "@timestamp":
			if ts, err := utils.ParseTimestamp(aws.ToString(field.Value)); err == nil {
				m.Timestamp = ts
			}
		case "@message":
			m.Message = strings.TrimRight(aws.ToString(field.Value), "\n")
		}
	}
	return m
}

var _ Stopper = (*CloudWatchQuerier)(nil)
