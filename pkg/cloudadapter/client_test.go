package cloudadapter

import (
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/cenkalti/backoff/v5"
	"github.com/stretchr/testify/assert"

	"github.com/fleetlab/corectl/pkg/ctlerrors"
)

func TestVMFactsFromInstance(t *testing.T) {
	inst := ec2types.Instance{
		InstanceId:      aws.String("i-123"),
		InstanceType:    ec2types.InstanceTypeT3Micro,
		ImageId:         aws.String("ami-456"),
		PublicIpAddress: aws.String("203.0.113.5"),
		State:           &ec2types.InstanceState{Name: ec2types.InstanceStateNameRunning},
		Tags:            []ec2types.Tag{{Key: aws.String("Name"), Value: aws.String("w-1")}},
	}

	facts := vmFactsFromInstance(inst)
	assert.Equal(t, "i-123", facts.InstanceID)
	assert.Equal(t, "t3.micro", facts.InstanceType)
	assert.Equal(t, "running", facts.State)
	assert.Equal(t, "w-1", facts.Tags["Name"])
}

func TestMergeTagsPrefersExtraOnConflict(t *testing.T) {
	merged := mergeTags(map[string]string{"Name": "original"}, map[string]string{"Name": "override", "Env": "prod"})
	assert.Equal(t, "override", merged["Name"])
	assert.Equal(t, "prod", merged["Env"])
}

func TestClassifyAWSErrorRetryableCodes(t *testing.T) {
	err := classifyAWSError(errors.New("api error Throttling: Rate exceeded"))
	var perm *backoff.PermanentError
	assert.False(t, errors.As(err, &perm), "throttled errors must not be wrapped permanent")

	ctlErr, ok := ctlerrors.As(err)
	assert.True(t, ok)
	assert.Equal(t, ctlerrors.CodeIntegrationThrottled, ctlErr.Code)
}

func TestClassifyAWSErrorPermanentCodes(t *testing.T) {
	err := classifyAWSError(errors.New("api error AuthFailure: credentials invalid"))
	var perm *backoff.PermanentError
	assert.True(t, errors.As(err, &perm), "auth errors must stop retrying")
}
