package services

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strconv"
	"strings"

	"github.com/SAP-F-2025/lms-service/internal/metrics"
	"github.com/SAP-F-2025/lms-service/internal/storage"
	"github.com/SAP-F-2025/lms-service/pkg/encryption"
)

const (
	encryptedSuffix = ".enc"
	maxExtLength    = 16
)

type secureFileService struct {
	store     storage.BlobStore
	encrypter *encryption.Encrypter
	metrics   *metrics.Metrics
	clock     Clock
	logger    *slog.Logger
}

func NewSecureFileService(store storage.BlobStore, encrypter *encryption.Encrypter, m *metrics.Metrics, clock Clock, logger *slog.Logger) SecureFileService {
	if clock == nil {
		clock = SystemClock()
	}
	return &secureFileService{
		store:     store,
		encrypter: encrypter,
		metrics:   m,
		clock:     clock,
		logger:    logger,
	}
}

// Store encrypts data and writes it under a name that cannot be derived
// from the original filename.
func (s *secureFileService) Store(ctx context.Context, data []byte, originalName, mimeType, directory string) (*StoredFile, error) {
	dir, err := storage.CleanPath(directory)
	if err != nil {
		return nil, ErrInvalidFilePath
	}

	name, err := s.storageName(originalName)
	if err != nil {
		return nil, err
	}
	encryptedPath := path.Join(dir, name)

	sealed, err := s.encrypter.Encrypt(data)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt file: %w", err)
	}

	if err := s.store.Put(ctx, encryptedPath, sealed); err != nil {
		return nil, fmt.Errorf("failed to write encrypted file: %w", err)
	}

	s.logger.Info("Secure file stored",
		"encrypted_path", encryptedPath,
		"size", len(data),
		"mime_type", mimeType)

	return &StoredFile{
		OriginalName:  originalName,
		StoredName:    name,
		EncryptedPath: encryptedPath,
		Size:          int64(len(data)),
		MimeType:      mimeType,
	}, nil
}

func (s *secureFileService) Get(ctx context.Context, encryptedPath string) ([]byte, error) {
	p, err := storage.CleanPath(encryptedPath)
	if err != nil {
		return nil, ErrInvalidFilePath
	}

	sealed, err := s.store.Get(ctx, p)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrSecureFileNotFound
		}
		return nil, fmt.Errorf("failed to read encrypted file: %w", err)
	}

	plaintext, err := s.encrypter.Decrypt(sealed)
	if err != nil {
		s.metrics.IntegrityFailure()
		s.logger.Error("Secure file failed decryption",
			"encrypted_path", p,
			"encrypted_size", len(sealed),
			"error", err)
		return nil, ErrSecureFileUndecryptable
	}
	return plaintext, nil
}

func (s *secureFileService) Delete(ctx context.Context, encryptedPath string) error {
	p, err := storage.CleanPath(encryptedPath)
	if err != nil {
		return ErrInvalidFilePath
	}
	if err := s.store.Delete(ctx, p); err != nil {
		return fmt.Errorf("failed to delete encrypted file: %w", err)
	}
	s.logger.Info("Secure file deleted", "encrypted_path", p)
	return nil
}

func (s *secureFileService) Exists(ctx context.Context, encryptedPath string) (bool, error) {
	p, err := storage.CleanPath(encryptedPath)
	if err != nil {
		return false, ErrInvalidFilePath
	}
	return s.store.Exists(ctx, p)
}

func (s *secureFileService) Info(ctx context.Context, encryptedPath string) (*SecureFileInfo, error) {
	p, err := storage.CleanPath(encryptedPath)
	if err != nil {
		return nil, ErrInvalidFilePath
	}

	info := &SecureFileInfo{EncryptedPath: p}
	size, err := s.store.Size(ctx, p)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return info, nil
		}
		return nil, fmt.Errorf("failed to stat encrypted file: %w", err)
	}

	info.Exists = true
	info.EncryptedSize = size
	info.PlaintextSize = max(size-int64(encryption.Overhead()), 0)
	return info, nil
}

// storageName hashes the original name, the current time and 32 random
// bytes, keeping a sanitized extension for operators.
func (s *secureFileService) storageName(originalName string) (string, error) {
	salt := make([]byte, 32)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("failed to generate storage name: %w", err)
	}

	h := sha256.New()
	h.Write([]byte(originalName))
	h.Write([]byte("|"))
	h.Write([]byte(strconv.FormatInt(s.clock.Now().UnixNano(), 10)))
	h.Write([]byte("|"))
	h.Write(salt)

	return hex.EncodeToString(h.Sum(nil)) + safeExtension(originalName) + encryptedSuffix, nil
}

func safeExtension(name string) string {
	ext := strings.ToLower(path.Ext(strings.ReplaceAll(name, "\\", "/")))
	if len(ext) < 2 || len(ext) > maxExtLength {
		return ""
	}
	for _, r := range ext[1:] {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return ""
		}
	}
	return ext
}
