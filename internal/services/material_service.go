package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/SAP-F-2025/lms-service/internal/events"
	"github.com/SAP-F-2025/lms-service/internal/models"
	"github.com/SAP-F-2025/lms-service/internal/repositories"
	"github.com/SAP-F-2025/lms-service/internal/validator"
)

const (
	materialDirPrefix   = "materials"
	defaultMaterialPage = 20
	maxMaterialPage     = 100
	genericMimeType     = "application/octet-stream"
)

type materialService struct {
	repo      repositories.Repository
	files     SecureFileService
	logger    *slog.Logger
	validator *validator.Validator
	notifier  *eventNotifier
}

func NewMaterialService(repo repositories.Repository, files SecureFileService, logger *slog.Logger, validator *validator.Validator, publisher events.EventPublisher) MaterialService {
	return &materialService{
		repo:      repo,
		files:     files,
		logger:    logger,
		validator: validator,
		notifier:  newEventNotifier(publisher, logger),
	}
}

// Upload encrypts the file first and records the row second. A failed insert
// removes the blob again.
func (s *materialService) Upload(ctx context.Context, req *UploadMaterialRequest, file *UploadedFile, uploaderID string) (*models.TrainingMaterial, error) {
	s.logger.Info("Uploading training material",
		"course_id", req.CourseID,
		"file_name", file.Name,
		"size", len(file.Data),
		"uploader_id", uploaderID)

	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	if len(file.Data) == 0 {
		return nil, ValidationErrors{{
			Field:   "file",
			Message: "must not be empty",
			Rule:    "required",
		}}
	}

	name := filepath.Base(strings.ReplaceAll(file.Name, "\\", "/"))
	mimeType := detectMimeType(file)

	stored, err := s.files.Store(ctx, file.Data, name, mimeType, fmt.Sprintf("%s/%d", materialDirPrefix, req.CourseID))
	if err != nil {
		return nil, err
	}

	material := &models.TrainingMaterial{
		CourseID:     req.CourseID,
		Title:        strings.TrimSpace(req.Title),
		Description:  req.Description,
		FilePath:     stored.EncryptedPath,
		OriginalName: stored.OriginalName,
		MimeType:     stored.MimeType,
		FileSize:     stored.Size,
		UploadedBy:   uploaderID,
	}
	if err := s.repo.Material().Create(ctx, material); err != nil {
		if delErr := s.files.Delete(context.WithoutCancel(ctx), stored.EncryptedPath); delErr != nil {
			s.logger.Error("Failed to remove orphaned material blob",
				"encrypted_path", stored.EncryptedPath,
				"error", delErr)
		}
		return nil, fmt.Errorf("failed to create material: %w", err)
	}

	s.notifier.Notify(ctx, events.MaterialUploaded, &events.MaterialEventData{
		MaterialID: material.ID,
		CourseID:   material.CourseID,
		Title:      material.Title,
		UploadedBy: uploaderID,
	})
	return material, nil
}

func (s *materialService) GetByID(ctx context.Context, id uint, user *models.User) (*models.TrainingMaterial, error) {
	material, err := s.repo.Material().GetByID(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrMaterialNotFound
		}
		return nil, fmt.Errorf("failed to get material: %w", err)
	}
	if err := s.checkCourseAccess(ctx, material.CourseID, user); err != nil {
		return nil, err
	}
	return material, nil
}

func (s *materialService) ListByCourse(ctx context.Context, courseID uint, page, size int, user *models.User) (*MaterialListResponse, error) {
	if err := s.checkCourseAccess(ctx, courseID, user); err != nil {
		return nil, err
	}

	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = defaultMaterialPage
	}
	size = min(size, maxMaterialPage)

	materials, total, err := s.repo.Material().GetByCourse(ctx, courseID, repositories.MaterialFilters{
		Limit:  size,
		Offset: (page - 1) * size,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list materials: %w", err)
	}

	return &MaterialListResponse{
		Materials: materials,
		Total:     total,
		Page:      page,
		Size:      size,
	}, nil
}

// Open decrypts the material's blob. A row whose blob has gone missing is
// reported as ErrSecureFileNotFound.
func (s *materialService) Open(ctx context.Context, id uint, user *models.User) (*MaterialContent, error) {
	material, err := s.GetByID(ctx, id, user)
	if err != nil {
		return nil, err
	}

	data, err := s.files.Get(ctx, material.FilePath)
	if err != nil {
		if errors.Is(err, ErrSecureFileUndecryptable) {
			s.logger.Error("Training material is undecryptable", "material_id", material.ID)
		}
		return nil, err
	}
	return &MaterialContent{Material: material, Data: data}, nil
}

// Delete removes the row, then the blob. A blob that cannot be removed is
// logged and left for cleanup.
func (s *materialService) Delete(ctx context.Context, id uint, userID string) error {
	s.logger.Info("Deleting training material", "material_id", id, "user_id", userID)

	material, err := s.repo.Material().GetByID(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrMaterialNotFound
		}
		return fmt.Errorf("failed to get material: %w", err)
	}

	if err := s.repo.Material().Delete(ctx, id); err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrMaterialNotFound
		}
		return fmt.Errorf("failed to delete material: %w", err)
	}

	if err := s.files.Delete(ctx, material.FilePath); err != nil {
		s.logger.Warn("Failed to delete material blob",
			"material_id", id,
			"encrypted_path", material.FilePath,
			"error", err)
	}
	return nil
}

func (s *materialService) checkCourseAccess(ctx context.Context, courseID uint, user *models.User) error {
	if user.Role.IsStaff() {
		return nil
	}
	enrolled, err := s.repo.Enrollment().IsEnrolledInCourse(ctx, user.ID, courseID)
	if err != nil {
		return fmt.Errorf("failed to check enrollment: %w", err)
	}
	if !enrolled {
		return NewPermissionError(user.ID, courseID, "course", "read materials of", "not enrolled")
	}
	return nil
}

// detectMimeType sniffs the content and falls back to the declared type
// when the content is not recognized.
func detectMimeType(file *UploadedFile) string {
	detected := mimetype.Detect(file.Data).String()
	if detected == genericMimeType && file.MimeType != "" {
		return file.MimeType
	}
	return detected
}
