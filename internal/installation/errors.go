package installation

import "errors"

// Sentinel errors for installation and room operations.
var (
	ErrInstallationNotFound = errors.New("installation not found")
	ErrRoomNotFound         = errors.New("room not found")
	ErrNameRequired         = errors.New("name is required")
	ErrOwnerRequired        = errors.New("owner user id is required")
	ErrInstallationRequired = errors.New("installation id is required")
)
