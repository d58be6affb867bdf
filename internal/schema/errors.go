package schema

import "errors"

var (
	ErrProvisioningFailed   = errors.New("provisioning failed")
	ErrAlreadyProvisioned   = errors.New("tenant already provisioned")
	ErrConfirmationMismatch = errors.New("confirmation token does not match routing key")
)
