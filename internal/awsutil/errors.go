package awsutil

import (
	"context"
	"errors"
	"net"

	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/smithy-go"
	"github.com/cloo-solutions/kbstrap/internal/domain"
)

var notFoundCodes = map[string]bool{
	"NotFound":                  true,
	"NoSuchBucket":              true,
	"NoSuchEntity":              true,
	"ResourceNotFoundException": true,
}

var transientCodes = map[string]bool{
	"ThrottlingException":         true,
	"Throttling":                  true,
	"TooManyRequestsException":    true,
	"SlowDown":                    true,
	"RequestTimeout":              true,
	"ServiceUnavailableException": true,
	"ServiceUnavailable":          true,
	"InternalServerException":     true,
	"InternalError":               true,
}

// IsNotFound reports whether err is a provider "does not exist" response
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && notFoundCodes[apiErr.ErrorCode()] {
		return true
	}
	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) && respErr.HTTPStatusCode() == 404 {
		return true
	}
	return false
}

// IsConflict reports whether err says the resource already exists
func IsConflict(err error) bool {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.ErrorCode() {
	case "ConflictException", "EntityAlreadyExists", "BucketAlreadyOwnedByYou":
		return true
	}
	return false
}

// IsTransient reports whether err is a network, throttling or server-side failure
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		if transientCodes[apiErr.ErrorCode()] {
			return true
		}
		if apiErr.ErrorFault() == smithy.FaultServer {
			return true
		}
	}
	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) && respErr.HTTPStatusCode() >= 500 {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// Classify wraps a provider error in a DomainError carrying the matching code.
// Errors that are already DomainErrors pass through unchanged.
func Classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var de *domain.DomainError
	if errors.As(err, &de) {
		return err
	}

	switch {
	case IsNotFound(err):
		return domain.NewDomainErrorWithCause(domain.ErrCodeNotFound, op, err)
	case IsTransient(err):
		return domain.NewDomainErrorWithCause(domain.ErrCodeTransientProvider, op, err)
	default:
		return domain.NewDomainErrorWithCause(domain.ErrCodeProvider, op, err)
	}
}
