// Package cloudadapter talks to the cloud control-plane and metrics APIs
// backing a Worker's VM (spec §4.1, source A). The Cloud interface is the
// seam the command handlers and scheduler jobs depend on; Client is the
// AWS EC2-backed implementation, grounded on the aws-sdk-go-v2 config and
// credentials packages already present in the example pack (gardener's
// go.mod) and generalized with the ec2 service client this domain needs.
// Transient failures are retried with cenkalti/backoff/v5, also already an
// indirect dependency of the pack, before surfacing a ctlerrors.Error.
package cloudadapter
