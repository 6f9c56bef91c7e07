package services

import (
	"context"
	"testing"
	"time"

	"github.com/SAP-F-2025/lms-service/internal/storage"
	"github.com/SAP-F-2025/lms-service/pkg/encryption"
)

func TestServiceManager_Lifecycle(t *testing.T) {
	env := newTestEnv(t)
	blobs, err := storage.NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStore() error = %v", err)
	}
	enc, _ := encryption.NewEncrypter("manager-secret")

	sm := NewServiceManager(ServiceDependencies{
		Repo:      env.repo,
		Blobs:     blobs,
		Encrypter: enc,
		Publisher: env.publisher,
		Metrics:   env.metrics,
		Clock:     env.clock,
	}, env.logger, ServiceManagerConfig{
		QuotaCountsExpired:  true,
		ExpirySweepInterval: 10 * time.Millisecond,
	})

	if err := sm.HealthCheck(context.Background()); err == nil {
		t.Error("HealthCheck() passed before Initialize")
	}

	if err := sm.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if err := sm.Initialize(context.Background()); err != nil {
		t.Fatalf("second Initialize() error = %v", err)
	}
	if sm.Attempt() == nil || sm.SecureFile() == nil || sm.Material() == nil || sm.ImportExport() == nil ||
		sm.Assessment() == nil || sm.Question() == nil || sm.Grading() == nil || sm.Schedule() == nil {
		t.Fatal("a service is missing after Initialize")
	}
	if err := sm.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := sm.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	if err := sm.HealthCheck(context.Background()); err == nil {
		t.Error("HealthCheck() passed after Shutdown")
	}
}

func TestServiceManager_RequiresStorage(t *testing.T) {
	env := newTestEnv(t)
	sm := NewServiceManager(ServiceDependencies{Repo: env.repo}, env.logger, ServiceManagerConfig{})
	if err := sm.Initialize(context.Background()); err == nil {
		t.Fatal("Initialize() succeeded without a blob store")
	}

	defer func() {
		if recover() == nil {
			t.Error("getter did not panic before Initialize")
		}
	}()
	sm.Attempt()
}
