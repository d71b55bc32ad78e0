package integration

import (
	"sync"

	"NYCU-SDC/playbook-builder-backend/test/testdata/setup"

	"go.uber.org/zap"
)

var (
	initOnce        sync.Once
	resourceManager *setup.ResourceManager
	sharedLogger    *zap.Logger
	initErr         error
)

// GetOrInitResource returns the resource manager shared by every test in the
// calling test binary.
func GetOrInitResource() (*setup.ResourceManager, *zap.Logger, error) {
	initOnce.Do(func() {
		sharedLogger, initErr = setup.NewTestLogger()
		if initErr != nil {
			return
		}
		resourceManager, initErr = setup.NewResourceManager(sharedLogger)
	})

	return resourceManager, sharedLogger, initErr
}
