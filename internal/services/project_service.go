package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/yukikurage/project-management-api/internal/models"
	"github.com/yukikurage/project-management-api/internal/policy"
	"github.com/yukikurage/project-management-api/internal/repository"
	"gorm.io/gorm"
)

var (
	ErrProjectNotFound  = errors.New("project not found")
	ErrPermissionDenied = errors.New("not enough permissions")
	ErrTitleRequired    = errors.New("title is required")
	ErrInvalidStatus    = errors.New("invalid status value")
)

// ProjectService provides business logic for project operations. Every read
// and write is gated by the ownership policy; a missing project is always
// reported before a permission failure.
type ProjectService struct {
	projectRepo repository.ProjectRepository
}

// NewProjectService creates a new ProjectService.
func NewProjectService(projectRepo repository.ProjectRepository) *ProjectService {
	return &ProjectService{
		projectRepo: projectRepo,
	}
}

// CreateProjectInput represents parameters to create a new project.
type CreateProjectInput struct {
	Title       string
	Description *string
	Status      models.ProjectStatus
}

// CreateProject creates a project owned by the principal. Any client-supplied
// owner is ignored; ownership cannot be spoofed at creation.
func (s *ProjectService) CreateProject(principal policy.Principal, input CreateProjectInput) (*models.Project, error) {
	if strings.TrimSpace(input.Title) == "" {
		return nil, ErrTitleRequired
	}

	if input.Status == "" {
		input.Status = models.ProjectStatusPlanning
	}
	if !input.Status.IsValid() {
		return nil, ErrInvalidStatus
	}

	project := &models.Project{
		Title:       input.Title,
		Description: input.Description,
		Status:      input.Status,
		OwnerID:     principal.ID,
	}

	if err := s.projectRepo.Create(project); err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}

	return project, nil
}

// GetProject returns a project with its owner embedded.
func (s *ProjectService) GetProject(principal policy.Principal, projectID uint64) (*models.Project, error) {
	project, err := s.projectRepo.FindByID(projectID, "Owner")
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to find project: %w", err)
	}

	if !policy.CanAccessProject(principal, project) {
		return nil, ErrPermissionDenied
	}

	return project, nil
}

// ListProjects returns the principal's own projects. Superusers get no
// global listing here; elevation applies only to per-item access.
func (s *ProjectService) ListProjects(principal policy.Principal, skip, limit int) ([]models.Project, error) {
	projects, err := s.projectRepo.ListByOwner(principal.ID, skip, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	return projects, nil
}

// UpdateProjectInput represents a partial update; nil fields are untouched.
type UpdateProjectInput struct {
	Title       *string
	Description *string
	Status      *models.ProjectStatus
}

// UpdateProject applies a partial update to a project.
func (s *ProjectService) UpdateProject(principal policy.Principal, projectID uint64, input UpdateProjectInput) (*models.Project, error) {
	project, err := s.projectRepo.FindByID(projectID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to find project: %w", err)
	}

	if !policy.CanAccessProject(principal, project) {
		return nil, ErrPermissionDenied
	}

	if input.Title != nil {
		if strings.TrimSpace(*input.Title) == "" {
			return nil, ErrTitleRequired
		}
		project.Title = *input.Title
	}
	if input.Description != nil {
		project.Description = input.Description
	}
	if input.Status != nil {
		if !input.Status.IsValid() {
			return nil, ErrInvalidStatus
		}
		project.Status = *input.Status
	}

	if err := s.projectRepo.Update(project); err != nil {
		return nil, fmt.Errorf("failed to update project: %w", err)
	}

	return s.projectRepo.FindByID(project.ID, "Owner")
}

// DeleteProject removes a project and all of its tasks.
func (s *ProjectService) DeleteProject(principal policy.Principal, projectID uint64) error {
	project, err := s.projectRepo.FindByID(projectID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrProjectNotFound
		}
		return fmt.Errorf("failed to find project: %w", err)
	}

	if !policy.CanAccessProject(principal, project) {
		return ErrPermissionDenied
	}

	if err := s.projectRepo.Delete(projectID); err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}

	return nil
}
