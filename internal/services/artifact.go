package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/streamhub/flink-manager/internal/platform/apierr"
	"github.com/streamhub/flink-manager/internal/platform/gcp"
	"github.com/streamhub/flink-manager/internal/platform/logger"
	"github.com/streamhub/flink-manager/internal/repos"
	"github.com/streamhub/flink-manager/internal/types"
	"github.com/streamhub/flink-manager/internal/utils"
)

type RegisterArtifactInput struct {
	ArtifactName string
	Version      string
	EntryClasses []string
	UploadedBy   string
	Description  string
}

type ArtifactService interface {
	Register(ctx context.Context, input RegisterArtifactInput, file io.Reader) (*types.Artifact, error)
	Get(ctx context.Context, id uuid.UUID) (*types.Artifact, error)
	GetByNameVersion(ctx context.Context, name, version string) (*types.Artifact, error)
	List(ctx context.Context, nameFilter string, opts repos.ListOptions) ([]*types.Artifact, int64, error)
	ListVersions(ctx context.Context, name string) ([]string, error)
	Search(ctx context.Context, query string) ([]*types.Artifact, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Download(ctx context.Context, id uuid.UUID) (io.ReadCloser, string, error)
	PresignUpload(ctx context.Context, name, version string, ttl time.Duration) (string, error)
}

type artifactService struct {
	log          *logger.Logger
	bucket       gcp.BucketService
	artifactRepo repos.ArtifactRepo
}

func NewArtifactService(
	baseLog *logger.Logger,
	bucket gcp.BucketService,
	artifactRepo repos.ArtifactRepo,
) ArtifactService {
	return &artifactService{
		log:          baseLog.With("service", "ArtifactService"),
		bucket:       bucket,
		artifactRepo: artifactRepo,
	}
}

// Register uploads the jar first, then writes metadata. If the metadata
// insert fails the uploaded object is removed again (best effort).
func (s *artifactService) Register(ctx context.Context, input RegisterArtifactInput, file io.Reader) (*types.Artifact, error) {
	if err := validateJobName(input.ArtifactName); err != nil {
		return nil, err
	}
	if _, err := utils.ParseVersion(input.Version); err != nil {
		return nil, apierr.Validation("invalid_version", err)
	}
	if len(input.EntryClasses) == 0 {
		return nil, apierr.Validation("missing_entry_classes", fmt.Errorf("at least one entry class is required"))
	}
	if input.UploadedBy == "" {
		return nil, apierr.Validation("missing_uploaded_by", fmt.Errorf("uploaded_by is required"))
	}

	// Fast-path duplicate check; the unique index on (artifact_name, version)
	// still closes the race window.
	existing, err := s.artifactRepo.GetByNameVersion(ctx, nil, input.ArtifactName, input.Version)
	if err != nil {
		return nil, apierr.Storage(err)
	}
	if existing != nil {
		return nil, apierr.Conflict("artifact_version_exists",
			fmt.Errorf("artifact %s version %s already exists", input.ArtifactName, input.Version))
	}

	key := utils.ArtifactStorageKey(input.ArtifactName, input.Version)
	hash, written, err := s.bucket.Upload(ctx, key, file)
	if err != nil {
		return nil, apierr.Storage(err)
	}

	now := time.Now().UTC()
	artifact := &types.Artifact{
		ArtifactName: input.ArtifactName,
		Version:      input.Version,
		Hash:         hash,
		EntryClasses: stringSliceColumn(input.EntryClasses),
		UploadedBy:   input.UploadedBy,
		UploadedAt:   now,
		FileSize:     written,
		Description:  input.Description,
		StorageKey:   key,
	}
	created, err := s.artifactRepo.Create(ctx, nil, artifact)
	if err != nil {
		s.cleanupUpload(ctx, key)
		if errors.Is(err, repos.ErrDuplicateKey) {
			return nil, apierr.Conflict("artifact_version_exists",
				fmt.Errorf("artifact %s version %s already exists", input.ArtifactName, input.Version))
		}
		return nil, apierr.Storage(err)
	}

	s.log.Info("Registered artifact",
		"artifact_id", created.ID,
		"artifact_name", created.ArtifactName,
		"version", created.Version,
		"file_size", created.FileSize,
	)
	return created, nil
}

func (s *artifactService) cleanupUpload(ctx context.Context, key string) {
	if err := s.bucket.Delete(ctx, key); err != nil {
		s.log.Error("Compensating delete of uploaded artifact failed", "storage_key", key, "error", err)
	}
}

func (s *artifactService) Get(ctx context.Context, id uuid.UUID) (*types.Artifact, error) {
	artifact, err := s.artifactRepo.GetByID(ctx, nil, id)
	if err != nil {
		return nil, apierr.Storage(err)
	}
	if artifact == nil {
		return nil, apierr.NotFound("artifact_not_found", fmt.Errorf("artifact %s does not exist", id))
	}
	return artifact, nil
}

func (s *artifactService) GetByNameVersion(ctx context.Context, name, version string) (*types.Artifact, error) {
	artifact, err := s.artifactRepo.GetByNameVersion(ctx, nil, name, version)
	if err != nil {
		return nil, apierr.Storage(err)
	}
	if artifact == nil {
		return nil, apierr.NotFound("artifact_not_found", fmt.Errorf("artifact %s version %s does not exist", name, version))
	}
	return artifact, nil
}

func (s *artifactService) List(ctx context.Context, nameFilter string, opts repos.ListOptions) ([]*types.Artifact, int64, error) {
	items, total, err := s.artifactRepo.List(ctx, nil, repos.ArtifactFilter{ArtifactName: nameFilter}, opts)
	if err != nil {
		return nil, 0, apierr.Storage(err)
	}
	return items, total, nil
}

// ListVersions orders by parsed major/minor/patch, newest first. A plain
// string sort would put 2.0.0 ahead of 10.0.0.
func (s *artifactService) ListVersions(ctx context.Context, name string) ([]string, error) {
	versions, err := s.artifactRepo.ListVersions(ctx, nil, name)
	if err != nil {
		return nil, apierr.Storage(err)
	}
	return utils.SortVersionsDesc(versions), nil
}

func (s *artifactService) Search(ctx context.Context, query string) ([]*types.Artifact, error) {
	artifacts, err := s.artifactRepo.Search(ctx, nil, query)
	if err != nil {
		return nil, apierr.Storage(err)
	}
	return artifacts, nil
}

func (s *artifactService) Delete(ctx context.Context, id uuid.UUID) error {
	artifact, err := s.artifactRepo.GetByID(ctx, nil, id)
	if err != nil {
		return apierr.Storage(err)
	}
	if artifact == nil {
		return apierr.NotFound("artifact_not_found", fmt.Errorf("artifact %s does not exist", id))
	}

	if err := s.bucket.Delete(ctx, artifact.StorageKey); err != nil {
		return apierr.Storage(err)
	}
	deleted, err := s.artifactRepo.Delete(ctx, nil, id)
	if err != nil {
		// Binary is gone but the row remains; flagged rather than retried.
		s.log.Error("Artifact metadata delete failed after binary removal", "artifact_id", id, "error", err)
		return apierr.Storage(err)
	}
	if !deleted {
		return apierr.NotFound("artifact_not_found", fmt.Errorf("artifact %s does not exist", id))
	}

	s.log.Info("Deleted artifact", "artifact_id", id, "storage_key", artifact.StorageKey)
	return nil
}

func (s *artifactService) Download(ctx context.Context, id uuid.UUID) (io.ReadCloser, string, error) {
	artifact, err := s.artifactRepo.GetByID(ctx, nil, id)
	if err != nil {
		return nil, "", apierr.Storage(err)
	}
	if artifact == nil {
		return nil, "", apierr.NotFound("artifact_not_found", fmt.Errorf("artifact %s does not exist", id))
	}
	reader, err := s.bucket.Download(ctx, artifact.StorageKey)
	if err != nil {
		return nil, "", apierr.Storage(err)
	}
	return reader, utils.ArtifactFilename(artifact.ArtifactName, artifact.Version), nil
}

func (s *artifactService) PresignUpload(ctx context.Context, name, version string, ttl time.Duration) (string, error) {
	if err := validateJobName(name); err != nil {
		return "", err
	}
	if _, err := utils.ParseVersion(version); err != nil {
		return "", apierr.Validation("invalid_version", err)
	}
	url, err := s.bucket.SignedUploadURL(utils.ArtifactStorageKey(name, version), ttl)
	if err != nil {
		return "", apierr.Storage(err)
	}
	return url, nil
}
