package cloudadapter

import (
	"context"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/cenkalti/backoff/v5"

	"github.com/fleetlab/corectl/pkg/ctlerrors"
	"github.com/fleetlab/corectl/pkg/types"
)

const fleetWorkerTagKey = "corectl:managed"

// Client is the EC2/CloudWatch-backed Cloud implementation. One Client
// serves every region; the AWS SDK resolves per-call region via the
// functional options passed to each request.
type Client struct {
	ec2        *ec2.Client
	cloudwatch *cloudwatch.Client

	controlTimeout time.Duration
	metricsTimeout time.Duration
	maxRetries     uint
}

// NewClient loads the default AWS credential chain (env vars, shared
// config, or instance role) and constructs a Client.
func NewClient(ctx context.Context, controlTimeout, metricsTimeout time.Duration) (*Client, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, ctlerrors.Wrap(ctlerrors.CodeIntegrationAuth, "load aws config", err)
	}
	return &Client{
		ec2:            ec2.NewFromConfig(cfg),
		cloudwatch:     cloudwatch.NewFromConfig(cfg),
		controlTimeout: controlTimeout,
		metricsTimeout: metricsTimeout,
		maxRetries:     3,
	}, nil
}

// retry runs op up to c.maxRetries times with exponential backoff,
// retrying only when classifyAWSError marks the error retryable.
func retry[T any](ctx context.Context, c *Client, op func() (T, error)) (T, error) {
	return backoff.Retry(ctx, func() (T, error) {
		v, err := op()
		if err != nil {
			return v, classifyAWSError(err)
		}
		return v, nil
	},
		backoff.WithMaxTries(c.maxRetries),
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithNotify(func(err error, d time.Duration) {}),
	)
}

// classifyAWSError maps a raw AWS SDK error into a *ctlerrors.Error.
// backoff.Retry only retries errors that are not wrapped in
// backoff.Permanent, so non-retryable codes are wrapped here.
func classifyAWSError(err error) error {
	msg := err.Error()
	var mapped *ctlerrors.Error
	switch {
	case strings.Contains(msg, "RequestLimitExceeded") || strings.Contains(msg, "Throttling"):
		mapped = ctlerrors.Wrap(ctlerrors.CodeIntegrationThrottled, "cloud API throttled", err)
	case strings.Contains(msg, "context deadline exceeded") || strings.Contains(msg, "RequestTimeout"):
		mapped = ctlerrors.Wrap(ctlerrors.CodeIntegrationTimeout, "cloud API timed out", err)
	case strings.Contains(msg, "UnauthorizedOperation") || strings.Contains(msg, "AuthFailure"):
		return backoff.Permanent(ctlerrors.Wrap(ctlerrors.CodeIntegrationAuth, "cloud API rejected credentials", err))
	case strings.Contains(msg, "InvalidInstanceID.NotFound"):
		return backoff.Permanent(ctlerrors.Wrap(ctlerrors.CodeIntegrationNotFound, "instance not found", err))
	default:
		return backoff.Permanent(ctlerrors.Wrap(ctlerrors.CodeIntegrationOther, "cloud API call failed", err))
	}
	return mapped
}

func (c *Client) withControlTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, c.controlTimeout)
}

func (c *Client) withMetricsTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, c.metricsTimeout)
}

func (c *Client) DescribeImageIDs(ctx context.Context, region, imageName string) (string, error) {
	ctx, cancel := c.withControlTimeout(ctx)
	defer cancel()

	out, err := retry(ctx, c, func() (*ec2.DescribeImagesOutput, error) {
		return c.ec2.DescribeImages(ctx, &ec2.DescribeImagesInput{
			Filters: []ec2types.Filter{{Name: aws.String("name"), Values: []string{imageName}}},
			Owners:  []string{"self"},
		}, func(o *ec2.Options) { o.Region = region })
	})
	if err != nil {
		return "", err
	}
	if len(out.Images) == 0 {
		return "", ctlerrors.NotFound("image", imageName)
	}
	return aws.ToString(out.Images[0].ImageId), nil
}

func (c *Client) ListInstances(ctx context.Context, region string) ([]types.VMFacts, error) {
	ctx, cancel := c.withControlTimeout(ctx)
	defer cancel()

	out, err := retry(ctx, c, func() (*ec2.DescribeInstancesOutput, error) {
		return c.ec2.DescribeInstances(ctx, &ec2.DescribeInstancesInput{
			Filters: []ec2types.Filter{{Name: aws.String("tag-key"), Values: []string{fleetWorkerTagKey}}},
		}, func(o *ec2.Options) { o.Region = region })
	})
	if err != nil {
		return nil, err
	}

	var facts []types.VMFacts
	for _, res := range out.Reservations {
		for _, inst := range res.Instances {
			facts = append(facts, vmFactsFromInstance(inst))
		}
	}
	return facts, nil
}

func vmFactsFromInstance(inst ec2types.Instance) types.VMFacts {
	tags := make(map[string]string, len(inst.Tags))
	for _, t := range inst.Tags {
		tags[aws.ToString(t.Key)] = aws.ToString(t.Value)
	}
	var sgs []string
	for _, g := range inst.SecurityGroups {
		sgs = append(sgs, aws.ToString(g.GroupId))
	}
	f := types.VMFacts{
		InstanceID:     aws.ToString(inst.InstanceId),
		InstanceType:   string(inst.InstanceType),
		ImageID:        aws.ToString(inst.ImageId),
		PublicAddress:  aws.ToString(inst.PublicIpAddress),
		PrivateAddress: aws.ToString(inst.PrivateIpAddress),
		Subnet:         aws.ToString(inst.SubnetId),
		SecurityGroups: sgs,
		Tags:           tags,
	}
	if inst.State != nil {
		f.State = string(inst.State.Name)
	}
	if inst.LaunchTime != nil {
		f.LaunchedAt = *inst.LaunchTime
	}
	return f
}

func (c *Client) DescribeStatus(ctx context.Context, region, instanceID string) (types.CloudStatusDetail, error) {
	ctx, cancel := c.withControlTimeout(ctx)
	defer cancel()

	out, err := retry(ctx, c, func() (*ec2.DescribeInstanceStatusOutput, error) {
		return c.ec2.DescribeInstanceStatus(ctx, &ec2.DescribeInstanceStatusInput{
			InstanceIds: []string{instanceID},
		}, func(o *ec2.Options) { o.Region = region })
	})
	if err != nil {
		return types.CloudStatusDetail{}, err
	}
	if len(out.InstanceStatuses) == 0 {
		return types.CloudStatusDetail{}, nil
	}
	st := out.InstanceStatuses[0]
	detail := types.CloudStatusDetail{}
	if st.InstanceState != nil {
		detail.InstanceStateDetail = string(st.InstanceState.Name)
	}
	if st.SystemStatus != nil {
		detail.SystemStatusDetail = string(st.SystemStatus.Status)
	}
	return detail, nil
}

func (c *Client) GetUtilization(ctx context.Context, region, instanceID string) (types.Utilization, error) {
	ctx, cancel := c.withMetricsTimeout(ctx)
	defer cancel()

	cpu, err := c.averageMetric(ctx, region, instanceID, "CPUUtilization")
	if err != nil {
		return types.Utilization{}, err
	}
	mem, err := c.averageMetric(ctx, region, instanceID, "MemoryUtilization")
	if err != nil {
		// Memory utilization requires the CloudWatch agent; its absence is
		// reported as 0 rather than failing the whole metrics cycle.
		mem = 0
	}
	return types.Utilization{CPUPercent: cpu, MemoryPercent: mem}, nil
}

func (c *Client) averageMetric(ctx context.Context, region, instanceID, metricName string) (float64, error) {
	end := time.Now()
	start := end.Add(-10 * time.Minute)

	out, err := retry(ctx, c, func() (*cloudwatch.GetMetricStatisticsOutput, error) {
		return c.cloudwatch.GetMetricStatistics(ctx, &cloudwatch.GetMetricStatisticsInput{
			Namespace:  aws.String("AWS/EC2"),
			MetricName: aws.String(metricName),
			Dimensions: []cwtypes.Dimension{{Name: aws.String("InstanceId"), Value: aws.String(instanceID)}},
			StartTime:  aws.Time(start),
			EndTime:    aws.Time(end),
			Period:     aws.Int32(300),
			Statistics: []cwtypes.Statistic{cwtypes.StatisticAverage},
		}, func(o *cloudwatch.Options) { o.Region = region })
	})
	if err != nil {
		return 0, err
	}
	if len(out.Datapoints) == 0 {
		return 0, nil
	}
	latest := out.Datapoints[0]
	for _, dp := range out.Datapoints[1:] {
		if dp.Timestamp.After(*latest.Timestamp) {
			latest = dp
		}
	}
	return aws.ToFloat64(latest.Average), nil
}

func (c *Client) RunInstance(ctx context.Context, spec types.RunInstanceSpec) (types.VMFacts, error) {
	ctx, cancel := c.withControlTimeout(ctx)
	defer cancel()

	tagSpecs := []ec2types.TagSpecification{{
		ResourceType: ec2types.ResourceTypeInstance,
		Tags:         toEC2Tags(mergeTags(spec.Tags, map[string]string{fleetWorkerTagKey: "true", "Name": spec.Name})),
	}}

	out, err := retry(ctx, c, func() (*ec2.RunInstancesOutput, error) {
		return c.ec2.RunInstances(ctx, &ec2.RunInstancesInput{
			ImageId:           aws.String(spec.ImageID),
			InstanceType:      ec2types.InstanceType(spec.InstanceType),
			MinCount:          aws.Int32(1),
			MaxCount:          aws.Int32(1),
			SecurityGroupIds:  spec.SecurityGroups,
			TagSpecifications: tagSpecs,
		}, func(o *ec2.Options) { o.Region = spec.Region })
	})
	if err != nil {
		return types.VMFacts{}, err
	}
	if len(out.Instances) == 0 {
		return types.VMFacts{}, ctlerrors.Internal("run_instance returned no instances", nil)
	}
	return vmFactsFromInstance(out.Instances[0]), nil
}

func mergeTags(base map[string]string, extra map[string]string) map[string]string {
	merged := make(map[string]string, len(base)+len(extra))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range extra {
		merged[k] = v
	}
	return merged
}

func toEC2Tags(tags map[string]string) []ec2types.Tag {
	out := make([]ec2types.Tag, 0, len(tags))
	for k, v := range tags {
		out = append(out, ec2types.Tag{Key: aws.String(k), Value: aws.String(v)})
	}
	return out
}

func (c *Client) Start(ctx context.Context, region, instanceID string) error {
	ctx, cancel := c.withControlTimeout(ctx)
	defer cancel()
	_, err := retry(ctx, c, func() (*ec2.StartInstancesOutput, error) {
		return c.ec2.StartInstances(ctx, &ec2.StartInstancesInput{InstanceIds: []string{instanceID}}, func(o *ec2.Options) { o.Region = region })
	})
	return err
}

func (c *Client) Stop(ctx context.Context, region, instanceID string) error {
	ctx, cancel := c.withControlTimeout(ctx)
	defer cancel()
	_, err := retry(ctx, c, func() (*ec2.StopInstancesOutput, error) {
		return c.ec2.StopInstances(ctx, &ec2.StopInstancesInput{InstanceIds: []string{instanceID}}, func(o *ec2.Options) { o.Region = region })
	})
	return err
}

func (c *Client) Terminate(ctx context.Context, region, instanceID string) error {
	ctx, cancel := c.withControlTimeout(ctx)
	defer cancel()
	_, err := retry(ctx, c, func() (*ec2.TerminateInstancesOutput, error) {
		return c.ec2.TerminateInstances(ctx, &ec2.TerminateInstancesInput{InstanceIds: []string{instanceID}}, func(o *ec2.Options) { o.Region = region })
	})
	return err
}

func (c *Client) SetTags(ctx context.Context, region, instanceID string, tags map[string]string) error {
	ctx, cancel := c.withControlTimeout(ctx)
	defer cancel()
	_, err := retry(ctx, c, func() (*ec2.CreateTagsOutput, error) {
		return c.ec2.CreateTags(ctx, &ec2.CreateTagsInput{
			Resources: []string{instanceID},
			Tags:      toEC2Tags(tags),
		}, func(o *ec2.Options) { o.Region = region })
	})
	return err
}

func (c *Client) setMonitoring(ctx context.Context, region, instanceID string, enable bool) error {
	ctx, cancel := c.withControlTimeout(ctx)
	defer cancel()
	if enable {
		_, err := retry(ctx, c, func() (*ec2.MonitorInstancesOutput, error) {
			return c.ec2.MonitorInstances(ctx, &ec2.MonitorInstancesInput{InstanceIds: []string{instanceID}}, func(o *ec2.Options) { o.Region = region })
		})
		return err
	}
	_, err := retry(ctx, c, func() (*ec2.UnmonitorInstancesOutput, error) {
		return c.ec2.UnmonitorInstances(ctx, &ec2.UnmonitorInstancesInput{InstanceIds: []string{instanceID}}, func(o *ec2.Options) { o.Region = region })
	})
	return err
}

func (c *Client) EnableDetailedMonitoring(ctx context.Context, region, instanceID string) error {
	return c.setMonitoring(ctx, region, instanceID, true)
}

func (c *Client) DisableDetailedMonitoring(ctx context.Context, region, instanceID string) error {
	return c.setMonitoring(ctx, region, instanceID, false)
}
