package aws

import (
	"context"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	cwltypes "github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs/types"

	"github.com/moorlabs/moor/core/logs"
	"github.com/moorlabs/moor/internal/errors"
)

// Sink reads run logs from CloudWatch Logs. Logical groups map to log groups
// namespaced by bucket so several backends can share one account.
type Sink struct {
	client *cloudwatchlogs.Client
	bucket string
}

func NewSink(client *cloudwatchlogs.Client, bucket string) *Sink {
	return &Sink{client: client, bucket: bucket}
}

func (s *Sink) groupName(group string) string {
	return "/moor/" + s.bucket + "/" + group
}

func (s *Sink) Query(ctx context.Context, q logs.Query) (logs.Page, error) {
	input := &cloudwatchlogs.GetLogEventsInput{
		LogGroupName:  aws.String(s.groupName(q.Group)),
		LogStreamName: aws.String(q.Stream),
		StartFromHead: aws.Bool(!q.Descending),
	}
	if !q.Start.IsZero() {
		input.StartTime = aws.Int64(q.Start.UnixMilli())
	}
	if !q.End.IsZero() {
		input.EndTime = aws.Int64(q.End.UnixMilli())
	}
	if q.Token != "" {
		input.NextToken = aws.String(q.Token)
	}

	out, err := s.client.GetLogEvents(ctx, input)
	if err != nil {
		var notFound *cwltypes.ResourceNotFoundException
		if errors.As(err, &notFound) {
			return logs.Page{}, errors.NotFound(logs.EntityLogs, q.Group+"/"+q.Stream)
		}
		return logs.Page{}, errors.InternalError(logs.EntityLogs, "unable to query "+q.Group, err)
	}

	source := logs.SourceStdout
	if strings.HasPrefix(q.Group, "runners/") {
		source = logs.SourceDiagnostic
	}
	page := logs.Page{}
	for _, e := range out.Events {
		page.Events = append(page.Events, logs.Event{
			Timestamp: time.UnixMilli(aws.ToInt64(e.Timestamp)).UTC(),
			Source:    source,
			Message:   aws.ToString(e.Message),
		})
	}

	next := aws.ToString(out.NextForwardToken)
	if q.Descending {
		next = aws.ToString(out.NextBackwardToken)
	}
	// CloudWatch signals exhaustion by echoing the token back
	if next == q.Token || len(out.Events) == 0 {
		next = ""
	}
	page.NextToken = next
	return page, nil
}

func (s *Sink) EnsureGroup(ctx context.Context, group string) error {
	_, err := s.client.CreateLogGroup(ctx, &cloudwatchlogs.CreateLogGroupInput{
		LogGroupName: aws.String(s.groupName(group)),
	})
	if err != nil {
		var exists *cwltypes.ResourceAlreadyExistsException
		if errors.As(err, &exists) {
			return nil
		}
		return errors.InternalError(logs.EntityLogs, "unable to create log group "+group, err)
	}
	return nil
}
