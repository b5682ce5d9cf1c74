package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/yukikurage/project-management-api/internal/models"
	"github.com/yukikurage/project-management-api/internal/policy"
	"github.com/yukikurage/project-management-api/internal/repository"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type TaskServiceTestSuite struct {
	suite.Suite
	db      *gorm.DB
	service *TaskService
}

func (suite *TaskServiceTestSuite) SetupTest() {
	var err error

	suite.db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	suite.Require().NoError(err)

	err = suite.db.AutoMigrate(&models.User{}, &models.Project{}, &models.Task{})
	suite.Require().NoError(err)

	suite.service = NewTaskService(
		repository.NewTaskRepository(suite.db),
		repository.NewProjectRepository(suite.db),
		repository.NewUserRepository(suite.db),
	)
}

func (suite *TaskServiceTestSuite) TearDownTest() {
	sqlDB, err := suite.db.DB()
	suite.Require().NoError(err)
	sqlDB.Close()
}

func (suite *TaskServiceTestSuite) createUser(email, username string, superuser bool) policy.Principal {
	user := &models.User{
		Email:          email,
		Username:       username,
		HashedPassword: "hashedpassword",
		IsActive:       true,
		IsSuperuser:    superuser,
	}
	suite.Require().NoError(suite.db.Create(user).Error)
	return policy.FromUser(user)
}

func (suite *TaskServiceTestSuite) createProject(title string, ownerID uint64) *models.Project {
	project := &models.Project{
		Title:   title,
		Status:  models.ProjectStatusPlanning,
		OwnerID: ownerID,
	}
	suite.Require().NoError(suite.db.Create(project).Error)
	return project
}

func (suite *TaskServiceTestSuite) createTask(title string, projectID uint64) *models.Task {
	task := &models.Task{
		Title:     title,
		Status:    models.TaskStatusTodo,
		Priority:  models.TaskPriorityMedium,
		ProjectID: projectID,
	}
	suite.Require().NoError(suite.db.Create(task).Error)
	return task
}

func (suite *TaskServiceTestSuite) TestCreateTask_Defaults() {
	alice := suite.createUser("alice@example.com", "alice", false)
	project := suite.createProject("Launch", alice.ID)

	task, err := suite.service.CreateTask(alice, CreateTaskInput{
		Title:     "Design",
		ProjectID: project.ID,
	})
	suite.NoError(err)
	suite.Equal(models.TaskStatusTodo, task.Status)
	suite.Equal(models.TaskPriorityMedium, task.Priority)
	suite.False(task.IsCompleted)
	suite.Nil(task.AssigneeID)
}

func (suite *TaskServiceTestSuite) TestCreateTask_ProjectNotFound() {
	alice := suite.createUser("alice@example.com", "alice", false)

	_, err := suite.service.CreateTask(alice, CreateTaskInput{
		Title:     "Design",
		ProjectID: 999,
	})
	suite.ErrorIs(err, ErrProjectNotFound)
}

func (suite *TaskServiceTestSuite) TestCreateTask_ForbiddenInForeignProject() {
	alice := suite.createUser("alice@example.com", "alice", false)
	bob := suite.createUser("bob@example.com", "bob", false)
	project := suite.createProject("Launch", alice.ID)

	_, err := suite.service.CreateTask(bob, CreateTaskInput{
		Title:     "Sneaky",
		ProjectID: project.ID,
	})
	suite.ErrorIs(err, ErrPermissionDenied)
}

func (suite *TaskServiceTestSuite) TestCreateTask_SuperuserAllowed() {
	alice := suite.createUser("alice@example.com", "alice", false)
	admin := suite.createUser("admin@example.com", "admin", true)
	project := suite.createProject("Launch", alice.ID)

	task, err := suite.service.CreateTask(admin, CreateTaskInput{
		Title:     "Review",
		ProjectID: project.ID,
	})
	suite.NoError(err)
	suite.Equal(project.ID, task.ProjectID)
}

func (suite *TaskServiceTestSuite) TestCreateTask_AssigneeNotFound() {
	alice := suite.createUser("alice@example.com", "alice", false)
	project := suite.createProject("Launch", alice.ID)

	missing := uint64(999)
	_, err := suite.service.CreateTask(alice, CreateTaskInput{
		Title:      "Design",
		ProjectID:  project.ID,
		AssigneeID: &missing,
	})
	suite.ErrorIs(err, ErrAssigneeNotFound)
}

func (suite *TaskServiceTestSuite) TestGetTask_AuthorizationDerivedFromProject() {
	alice := suite.createUser("alice@example.com", "alice", false)
	bob := suite.createUser("bob@example.com", "bob", false)
	admin := suite.createUser("admin@example.com", "admin", true)
	project := suite.createProject("Launch", alice.ID)
	task := suite.createTask("Design", project.ID)

	_, err := suite.service.GetTask(alice, task.ID)
	suite.NoError(err)

	_, err = suite.service.GetTask(bob, task.ID)
	suite.ErrorIs(err, ErrPermissionDenied)

	_, err = suite.service.GetTask(admin, task.ID)
	suite.NoError(err)
}

func (suite *TaskServiceTestSuite) TestGetTask_AssigneeGetsNoExtraRights() {
	alice := suite.createUser("alice@example.com", "alice", false)
	bob := suite.createUser("bob@example.com", "bob", false)
	project := suite.createProject("Launch", alice.ID)

	task, err := suite.service.CreateTask(alice, CreateTaskInput{
		Title:      "Design",
		ProjectID:  project.ID,
		AssigneeID: &bob.ID,
	})
	suite.Require().NoError(err)

	// Bob is the assignee but does not own the project.
	_, err = suite.service.GetTask(bob, task.ID)
	suite.ErrorIs(err, ErrPermissionDenied)
}

func (suite *TaskServiceTestSuite) TestGetTask_NotFound() {
	alice := suite.createUser("alice@example.com", "alice", false)

	_, err := suite.service.GetTask(alice, 999)
	suite.ErrorIs(err, ErrTaskNotFound)
}

func (suite *TaskServiceTestSuite) TestGetTask_EmbedsProjectAndAssignee() {
	alice := suite.createUser("alice@example.com", "alice", false)
	project := suite.createProject("Launch", alice.ID)

	created, err := suite.service.CreateTask(alice, CreateTaskInput{
		Title:      "Design",
		ProjectID:  project.ID,
		AssigneeID: &alice.ID,
	})
	suite.Require().NoError(err)

	task, err := suite.service.GetTask(alice, created.ID)
	suite.NoError(err)
	suite.Equal("Launch", task.Project.Title)
	suite.Require().NotNil(task.Assignee)
	suite.Equal("alice", task.Assignee.Username)
}

func (suite *TaskServiceTestSuite) TestListTasks_UnfilteredScopedToOwnedProjects() {
	alice := suite.createUser("alice@example.com", "alice", false)
	bob := suite.createUser("bob@example.com", "bob", false)
	p1 := suite.createProject("Alice's", alice.ID)
	p2 := suite.createProject("Bob's", bob.ID)
	suite.createTask("A1", p1.ID)
	suite.createTask("A2", p1.ID)
	suite.createTask("B1", p2.ID)

	tasks, err := suite.service.ListTasks(alice, ListTasksInput{Limit: 100})
	suite.NoError(err)
	suite.Len(tasks, 2)
}

func (suite *TaskServiceTestSuite) TestListTasks_SuperuserUnfilteredSeesOnlyOwnProjects() {
	alice := suite.createUser("alice@example.com", "alice", false)
	admin := suite.createUser("admin@example.com", "admin", true)
	project := suite.createProject("Launch", alice.ID)
	suite.createTask("Design", project.ID)

	// No implicit global visibility in the unfiltered path.
	tasks, err := suite.service.ListTasks(admin, ListTasksInput{Limit: 100})
	suite.NoError(err)
	suite.Empty(tasks)

	// Explicit filter elevates through the per-project check.
	tasks, err = suite.service.ListTasks(admin, ListTasksInput{ProjectID: &project.ID, Limit: 100})
	suite.NoError(err)
	suite.Len(tasks, 1)
}

func (suite *TaskServiceTestSuite) TestListTasks_FilterChecks() {
	alice := suite.createUser("alice@example.com", "alice", false)
	bob := suite.createUser("bob@example.com", "bob", false)
	project := suite.createProject("Launch", alice.ID)

	missing := uint64(999)
	_, err := suite.service.ListTasks(alice, ListTasksInput{ProjectID: &missing, Limit: 100})
	suite.ErrorIs(err, ErrProjectNotFound)

	_, err = suite.service.ListTasks(bob, ListTasksInput{ProjectID: &project.ID, Limit: 100})
	suite.ErrorIs(err, ErrPermissionDenied)
}

func (suite *TaskServiceTestSuite) TestListTasks_Pagination() {
	alice := suite.createUser("alice@example.com", "alice", false)
	project := suite.createProject("Launch", alice.ID)
	for _, title := range []string{"T1", "T2", "T3"} {
		suite.createTask(title, project.ID)
	}

	tasks, err := suite.service.ListTasks(alice, ListTasksInput{ProjectID: &project.ID, Skip: 1, Limit: 1})
	suite.NoError(err)
	suite.Len(tasks, 1)
}

func (suite *TaskServiceTestSuite) TestUpdateTask_PartialStatusOnly() {
	alice := suite.createUser("alice@example.com", "alice", false)
	project := suite.createProject("Launch", alice.ID)
	desc := "the description"
	due := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	task := &models.Task{
		Title:       "Design",
		Description: &desc,
		Status:      models.TaskStatusTodo,
		Priority:    models.TaskPriorityHigh,
		DueDate:     &due,
		ProjectID:   project.ID,
	}
	suite.Require().NoError(suite.db.Create(task).Error)

	status := models.TaskStatusDone
	updated, err := suite.service.UpdateTask(alice, task.ID, UpdateTaskInput{Status: &status})
	suite.NoError(err)
	suite.Equal(models.TaskStatusDone, updated.Status)
	suite.Equal("Design", updated.Title)
	suite.Require().NotNil(updated.Description)
	suite.Equal(desc, *updated.Description)
	suite.Equal(models.TaskPriorityHigh, updated.Priority)
	suite.Require().NotNil(updated.DueDate)
	suite.True(due.Equal(*updated.DueDate))
	suite.False(updated.IsCompleted)
}

func (suite *TaskServiceTestSuite) TestUpdateTask_ClearDueDate() {
	alice := suite.createUser("alice@example.com", "alice", false)
	project := suite.createProject("Launch", alice.ID)
	due := time.Now().Add(24 * time.Hour)
	task := &models.Task{
		Title:     "Design",
		Status:    models.TaskStatusTodo,
		Priority:  models.TaskPriorityMedium,
		DueDate:   &due,
		ProjectID: project.ID,
	}
	suite.Require().NoError(suite.db.Create(task).Error)

	updated, err := suite.service.UpdateTask(alice, task.ID, UpdateTaskInput{ClearDueDate: true})
	suite.NoError(err)
	suite.Nil(updated.DueDate)
}

func (suite *TaskServiceTestSuite) TestUpdateTask_ReparentToForeignProjectForbidden() {
	alice := suite.createUser("alice@example.com", "alice", false)
	bob := suite.createUser("bob@example.com", "bob", false)
	aliceProject := suite.createProject("Alice's", alice.ID)
	bobProject := suite.createProject("Bob's", bob.ID)
	task := suite.createTask("Design", aliceProject.ID)

	_, err := suite.service.UpdateTask(alice, task.ID, UpdateTaskInput{ProjectID: &bobProject.ID})
	suite.ErrorIs(err, ErrPermissionDenied)

	// Original task unchanged.
	var unchanged models.Task
	suite.Require().NoError(suite.db.First(&unchanged, task.ID).Error)
	suite.Equal(aliceProject.ID, unchanged.ProjectID)
}

func (suite *TaskServiceTestSuite) TestUpdateTask_ReparentToMissingProject() {
	alice := suite.createUser("alice@example.com", "alice", false)
	project := suite.createProject("Launch", alice.ID)
	task := suite.createTask("Design", project.ID)

	missing := uint64(999)
	_, err := suite.service.UpdateTask(alice, task.ID, UpdateTaskInput{ProjectID: &missing})
	suite.ErrorIs(err, ErrProjectNotFound)
}

func (suite *TaskServiceTestSuite) TestUpdateTask_ReparentToOwnProject() {
	alice := suite.createUser("alice@example.com", "alice", false)
	p1 := suite.createProject("One", alice.ID)
	p2 := suite.createProject("Two", alice.ID)
	task := suite.createTask("Design", p1.ID)

	updated, err := suite.service.UpdateTask(alice, task.ID, UpdateTaskInput{ProjectID: &p2.ID})
	suite.NoError(err)
	suite.Equal(p2.ID, updated.ProjectID)
	suite.Equal("Two", updated.Project.Title)

	// The stored row must move too; a save that writes the preloaded
	// association back would leave it under the old project.
	var stored models.Task
	suite.Require().NoError(suite.db.First(&stored, task.ID).Error)
	suite.Equal(p2.ID, stored.ProjectID)
}

func (suite *TaskServiceTestSuite) TestUpdateTask_Forbidden() {
	alice := suite.createUser("alice@example.com", "alice", false)
	bob := suite.createUser("bob@example.com", "bob", false)
	project := suite.createProject("Launch", alice.ID)
	task := suite.createTask("Design", project.ID)

	title := "Hijacked"
	_, err := suite.service.UpdateTask(bob, task.ID, UpdateTaskInput{Title: &title})
	suite.ErrorIs(err, ErrPermissionDenied)
}

func (suite *TaskServiceTestSuite) TestDeleteTask_AuthorizationDerivedFromProject() {
	alice := suite.createUser("alice@example.com", "alice", false)
	bob := suite.createUser("bob@example.com", "bob", false)
	project := suite.createProject("Launch", alice.ID)
	task := suite.createTask("Design", project.ID)

	suite.ErrorIs(suite.service.DeleteTask(bob, task.ID), ErrPermissionDenied)

	suite.NoError(suite.service.DeleteTask(alice, task.ID))

	_, err := suite.service.GetTask(alice, task.ID)
	suite.ErrorIs(err, ErrTaskNotFound)
}

func TestTaskServiceTestSuite(t *testing.T) {
	suite.Run(t, new(TaskServiceTestSuite))
}
