package commands

import (
	"context"

	"github.com/google/uuid"

	"github.com/fleetlab/corectl/pkg/ctlerrors"
	"github.com/fleetlab/corectl/pkg/domain"
	"github.com/fleetlab/corectl/pkg/log"
	"github.com/fleetlab/corectl/pkg/types"
)

// CreateWorkerInput is the CreateWorker command payload (spec §4.3).
type CreateWorkerInput struct {
	Name           string
	Region         string
	InstanceType   string
	ImageName      string
	SecurityGroups []string
	Tags           map[string]string
	CreatedBy      string
}

// CreateWorkerResult is returned on success.
type CreateWorkerResult struct {
	WorkerID        string
	CloudInstanceID string
}

// NewCreateWorkerHandler implements the two-phase provisioning saga (spec
// §4.3/§9): persist PENDING, call the cloud adapter's RunInstance, then
// either move to PROVISIONED or compensate with a Terminate call and mark
// the worker FAILED. Each phase's events are flushed only after its
// persistence succeeds, so subscribers never observe a state the store
// doesn't also have.
func NewCreateWorkerHandler(deps Deps) func(ctx context.Context, payload any) (any, error) {
	return func(ctx context.Context, payload any) (any, error) {
		in, ok := payload.(CreateWorkerInput)
		if !ok {
			return nil, ctlerrors.Validation("payload", "expected CreateWorkerInput")
		}
		if in.Name == "" || in.Region == "" || in.InstanceType == "" {
			return nil, ctlerrors.Validation("name/region/instance_type", "required")
		}

		worker := &types.Worker{ID: uuid.New().String(), Region: in.Region}
		agg := domain.NewWorkerAggregate(worker)
		agg.Raise(domain.WorkerCreated{CreatedBy: in.CreatedBy})
		worker.Name = in.Name

		if err := deps.Store.CreateWorker(worker); err != nil {
			return nil, ctlerrors.Internal("persist pending worker", err)
		}
		agg.Flush(deps.Events)

		imageID, err := deps.Cloud.DescribeImageIDs(ctx, in.Region, in.ImageName)
		if err != nil {
			return failProvisioning(deps, agg, "", err)
		}

		facts, err := deps.Cloud.RunInstance(ctx, types.RunInstanceSpec{
			Name:           in.Name,
			Region:         in.Region,
			InstanceType:   in.InstanceType,
			ImageID:        imageID,
			SecurityGroups: in.SecurityGroups,
			Tags:           in.Tags,
		})
		if err != nil {
			return failProvisioning(deps, agg, facts.InstanceID, err)
		}

		worker.ImageName = in.ImageName
		agg.Raise(domain.WorkerProvisioned{CloudInstanceID: facts.InstanceID})
		if err := deps.Store.UpdateWorker(worker); err != nil {
			return failProvisioning(deps, agg, facts.InstanceID, ctlerrors.Internal("persist provisioned worker", err))
		}
		agg.Flush(deps.Events)

		return CreateWorkerResult{WorkerID: worker.ID, CloudInstanceID: facts.InstanceID}, nil
	}
}

// failProvisioning runs the saga's compensating action: terminate the VM if
// one was created, mark the worker FAILED, persist, and flush once the
// FAILED state is persisted.
func failProvisioning(deps Deps, agg *domain.WorkerAggregate, cloudInstanceID string, cause error) (any, error) {
	compensated := ""
	if cloudInstanceID != "" {
		if tErr := deps.Cloud.Terminate(context.Background(), agg.State.Region, cloudInstanceID); tErr != nil {
			log.WithComponent("commands").Error().Err(tErr).Str("worker_id", agg.State.ID).
				Msg("compensating terminate failed during provisioning rollback")
		} else {
			compensated = cloudInstanceID
		}
	}

	agg.Raise(domain.WorkerProvisionFailed{Reason: cause.Error(), CompensatedInstance: compensated})
	if err := deps.Store.UpdateWorker(agg.State); err != nil {
		log.WithComponent("commands").Error().Err(err).Str("worker_id", agg.State.ID).
			Msg("failed to persist FAILED status after provisioning failure")
	} else {
		agg.Flush(deps.Events)
	}

	return nil, ctlerrors.Dependency("worker provisioning failed", cause)
}
