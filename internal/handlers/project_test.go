package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/suite"
	"github.com/yukikurage/project-management-api/internal/constants"
	"github.com/yukikurage/project-management-api/internal/dto"
	"github.com/yukikurage/project-management-api/internal/models"
	"github.com/yukikurage/project-management-api/internal/policy"
	"github.com/yukikurage/project-management-api/internal/repository"
	"github.com/yukikurage/project-management-api/internal/services"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type ProjectHandlerTestSuite struct {
	suite.Suite
	db        *gorm.DB
	router    *gin.Engine
	principal policy.Principal

	alice policy.Principal
	bob   policy.Principal
	admin policy.Principal
}

func (suite *ProjectHandlerTestSuite) SetupTest() {
	var err error

	suite.db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	suite.Require().NoError(err)

	err = suite.db.AutoMigrate(&models.User{}, &models.Project{}, &models.Task{})
	suite.Require().NoError(err)

	projectService := services.NewProjectService(repository.NewProjectRepository(suite.db))
	handler := NewProjectHandler(projectService)

	gin.SetMode(gin.TestMode)
	suite.router = gin.New()
	api := suite.router.Group("/api", func(c *gin.Context) {
		c.Set(constants.ContextKeyPrincipal, suite.principal)
	})
	api.POST("/projects", handler.CreateProject)
	api.GET("/projects", handler.ListProjects)
	api.GET("/projects/:id", handler.GetProject)
	api.PUT("/projects/:id", handler.UpdateProject)
	api.DELETE("/projects/:id", handler.DeleteProject)

	suite.alice = suite.createUser("alice@example.com", "alice", false)
	suite.bob = suite.createUser("bob@example.com", "bob", false)
	suite.admin = suite.createUser("admin@example.com", "admin", true)
	suite.principal = suite.alice
}

func (suite *ProjectHandlerTestSuite) TearDownTest() {
	sqlDB, err := suite.db.DB()
	suite.Require().NoError(err)
	sqlDB.Close()
}

func (suite *ProjectHandlerTestSuite) createUser(email, username string, superuser bool) policy.Principal {
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

func (suite *ProjectHandlerTestSuite) request(method, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	suite.router.ServeHTTP(w, req)
	return w
}

func (suite *ProjectHandlerTestSuite) createProject(title string) dto.ProjectDTO {
	w := suite.request("POST", "/api/projects", fmt.Sprintf(`{"title": %q}`, title))
	suite.Require().Equal(http.StatusCreated, w.Code)

	var project dto.ProjectDTO
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &project))
	return project
}

func (suite *ProjectHandlerTestSuite) TestCreateProject_OwnerForced() {
	// A client-supplied owner_id must be ignored in favor of the
	// authenticated user.
	w := suite.request("POST", "/api/projects",
		`{"title": "Launch", "owner_id": 999}`)
	suite.Equal(http.StatusCreated, w.Code)

	var project dto.ProjectDTO
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &project))
	suite.Equal(suite.alice.ID, project.OwnerID)
	suite.Equal(models.ProjectStatusPlanning, project.Status)
}

func (suite *ProjectHandlerTestSuite) TestCreateProject_InvalidStatus() {
	w := suite.request("POST", "/api/projects",
		`{"title": "Launch", "status": "bogus"}`)
	suite.Equal(http.StatusBadRequest, w.Code)
}

func (suite *ProjectHandlerTestSuite) TestGetProject_EmbedsOwner() {
	created := suite.createProject("Launch")

	w := suite.request("GET", fmt.Sprintf("/api/projects/%d", created.ID), "")
	suite.Equal(http.StatusOK, w.Code)

	var project dto.ProjectDTO
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &project))
	suite.Require().NotNil(project.Owner)
	suite.Equal("alice", project.Owner.Username)
}

func (suite *ProjectHandlerTestSuite) TestGetProject_ForbiddenForNonOwner() {
	created := suite.createProject("Launch")

	suite.principal = suite.bob
	w := suite.request("GET", fmt.Sprintf("/api/projects/%d", created.ID), "")
	suite.Equal(http.StatusForbidden, w.Code)
}

func (suite *ProjectHandlerTestSuite) TestGetProject_SuperuserAllowed() {
	created := suite.createProject("Launch")

	suite.principal = suite.admin
	w := suite.request("GET", fmt.Sprintf("/api/projects/%d", created.ID), "")
	suite.Equal(http.StatusOK, w.Code)

	var project dto.ProjectDTO
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &project))
	suite.Equal(suite.alice.ID, project.OwnerID)
}

func (suite *ProjectHandlerTestSuite) TestGetProject_NotFound() {
	w := suite.request("GET", "/api/projects/999", "")
	suite.Equal(http.StatusNotFound, w.Code)
}

func (suite *ProjectHandlerTestSuite) TestListProjects_OwnerScoped() {
	suite.createProject("Launch")

	suite.principal = suite.bob
	suite.createProject("Bob's project")

	suite.principal = suite.alice
	w := suite.request("GET", "/api/projects", "")
	suite.Equal(http.StatusOK, w.Code)

	var projects []dto.ProjectDTO
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &projects))
	suite.Require().Len(projects, 1)
	suite.Equal("Launch", projects[0].Title)
}

func (suite *ProjectHandlerTestSuite) TestListProjects_NoImplicitGlobalView() {
	suite.createProject("Launch")

	// Superusers can open any project by ID but the listing stays scoped
	// to their own.
	suite.principal = suite.admin
	w := suite.request("GET", "/api/projects", "")
	suite.Equal(http.StatusOK, w.Code)

	var projects []dto.ProjectDTO
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &projects))
	suite.Len(projects, 0)
}

func (suite *ProjectHandlerTestSuite) TestUpdateProject_Partial() {
	created := suite.createProject("Launch")

	w := suite.request("PUT", fmt.Sprintf("/api/projects/%d", created.ID),
		`{"status": "completed"}`)
	suite.Equal(http.StatusOK, w.Code)

	var project dto.ProjectDTO
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &project))
	suite.Equal(models.ProjectStatusCompleted, project.Status)
	suite.Equal("Launch", project.Title)
}

func (suite *ProjectHandlerTestSuite) TestUpdateProject_ForbiddenForNonOwner() {
	created := suite.createProject("Launch")

	suite.principal = suite.bob
	w := suite.request("PUT", fmt.Sprintf("/api/projects/%d", created.ID),
		`{"title": "Hijacked"}`)
	suite.Equal(http.StatusForbidden, w.Code)
}

func (suite *ProjectHandlerTestSuite) TestDeleteProject() {
	created := suite.createProject("Launch")

	w := suite.request("DELETE", fmt.Sprintf("/api/projects/%d", created.ID), "")
	suite.Equal(http.StatusNoContent, w.Code)

	w = suite.request("GET", fmt.Sprintf("/api/projects/%d", created.ID), "")
	suite.Equal(http.StatusNotFound, w.Code)
}

func (suite *ProjectHandlerTestSuite) TestDeleteProject_ForbiddenForNonOwner() {
	created := suite.createProject("Launch")

	suite.principal = suite.bob
	w := suite.request("DELETE", fmt.Sprintf("/api/projects/%d", created.ID), "")
	suite.Equal(http.StatusForbidden, w.Code)
}

func TestProjectHandlerTestSuite(t *testing.T) {
	suite.Run(t, new(ProjectHandlerTestSuite))
}
