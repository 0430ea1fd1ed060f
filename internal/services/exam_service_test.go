package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"gorm.io/gorm"

	"github.com/360-proctor/proctoring-service/internal/models"
)

func newExamServiceForTest(repo *MockRepository) ExamService {
	return NewExamService(repo, nil, testLogger(), testValidator())
}

func TestExamService_Create(t *testing.T) {
	tests := []struct {
		name        string
		request     *CreateExamRequest
		creatorRole models.UserRole
		expectError error
		expectCall  bool
	}{
		{
			name: "teacher can create",
			request: &CreateExamRequest{
				Title:    "Algorithms Final",
				Duration: 90,
			},
			creatorRole: models.RoleTeacher,
			expectCall:  true,
		},
		{
			name: "admin can create",
			request: &CreateExamRequest{
				Title:    "Makeup Exam",
				Duration: 60,
			},
			creatorRole: models.RoleAdmin,
			expectCall:  true,
		},
		{
			name: "student cannot create",
			request: &CreateExamRequest{
				Title:    "Sneaky Exam",
				Duration: 60,
			},
			creatorRole: models.RoleStudent,
			expectError: ErrForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newMockRepository()
			repo.userRepo.On("GetByID", mock.Anything, "user-1").Return(&models.User{
				ID:   "user-1",
				Role: tt.creatorRole,
			}, nil)
			if tt.expectCall {
				repo.examRepo.On("Create", mock.Anything, mock.MatchedBy(func(exam *models.Exam) bool {
					return exam.Title == tt.request.Title && exam.CreatedBy == "user-1"
				})).Return(nil)
			}

			service := newExamServiceForTest(repo)
			exam, err := service.Create(context.Background(), tt.request, "user-1")

			if tt.expectError != nil {
				assert.ErrorIs(t, err, tt.expectError)
				assert.Nil(t, exam)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.request.Title, exam.Title)
				assert.Equal(t, "user-1", exam.CreatedBy)
			}
			repo.examRepo.AssertExpectations(t)
		})
	}
}

func TestExamService_Create_ValidationFailure(t *testing.T) {
	repo := newMockRepository()
	service := newExamServiceForTest(repo)

	_, err := service.Create(context.Background(), &CreateExamRequest{
		Title:    "",
		Duration: 90,
	}, "user-1")

	assert.Error(t, err)
	assert.True(t, IsValidationError(err))
	repo.examRepo.AssertNotCalled(t, "Create")
}

func TestExamService_GetByID(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		repo := newMockRepository()
		repo.examRepo.On("GetByIDWithSettings", mock.Anything, uint(7)).Return(&models.Exam{
			ID:    7,
			Title: "Physics Midterm",
		}, nil)
		repo.sessionRepo.On("CountByExam", mock.Anything, uint(7)).Return(int64(3), nil)

		service := newExamServiceForTest(repo)
		exam, err := service.GetByID(context.Background(), 7)

		assert.NoError(t, err)
		assert.Equal(t, "Physics Midterm", exam.Title)
		assert.Equal(t, 3, exam.SessionCount)
	})

	t.Run("not found", func(t *testing.T) {
		repo := newMockRepository()
		repo.examRepo.On("GetByIDWithSettings", mock.Anything, uint(99)).Return(nil, gorm.ErrRecordNotFound)

		service := newExamServiceForTest(repo)
		_, err := service.GetByID(context.Background(), 99)

		assert.ErrorIs(t, err, ErrExamNotFound)
	})
}

func TestExamService_Update(t *testing.T) {
	t.Run("draft exam updated by owner", func(t *testing.T) {
		repo := newMockRepository()
		repo.examRepo.On("GetByID", mock.Anything, uint(5)).Return(&models.Exam{
			ID:        5,
			Title:     "Old Title",
			Duration:  60,
			Status:    models.ExamDraft,
			CreatedBy: "teacher-1",
		}, nil)
		repo.examRepo.On("Update", mock.Anything, mock.MatchedBy(func(exam *models.Exam) bool {
			return exam.Title == "New Title" && exam.Duration == 60
		})).Return(nil)

		service := newExamServiceForTest(repo)
		exam, err := service.Update(context.Background(), 5, &UpdateExamRequest{
			Title: stringPtr("New Title"),
		}, "teacher-1")

		assert.NoError(t, err)
		assert.Equal(t, "New Title", exam.Title)
		repo.examRepo.AssertExpectations(t)
	})

	t.Run("active exam is not editable", func(t *testing.T) {
		repo := newMockRepository()
		repo.examRepo.On("GetByID", mock.Anything, uint(5)).Return(&models.Exam{
			ID:        5,
			Status:    models.ExamActive,
			CreatedBy: "teacher-1",
		}, nil)

		service := newExamServiceForTest(repo)
		_, err := service.Update(context.Background(), 5, &UpdateExamRequest{
			Title: stringPtr("New Title"),
		}, "teacher-1")

		assert.ErrorIs(t, err, ErrExamNotEditable)
		repo.examRepo.AssertNotCalled(t, "Update")
	})

	t.Run("non owner is rejected", func(t *testing.T) {
		repo := newMockRepository()
		repo.examRepo.On("GetByID", mock.Anything, uint(5)).Return(&models.Exam{
			ID:        5,
			Status:    models.ExamDraft,
			CreatedBy: "teacher-1",
		}, nil)
		repo.userRepo.On("GetByID", mock.Anything, "teacher-2").Return(&models.User{
			ID:   "teacher-2",
			Role: models.RoleTeacher,
		}, nil)

		service := newExamServiceForTest(repo)
		_, err := service.Update(context.Background(), 5, &UpdateExamRequest{
			Title: stringPtr("New Title"),
		}, "teacher-2")

		assert.True(t, IsPermissionError(err))
	})

	t.Run("admin may edit another owner's draft", func(t *testing.T) {
		repo := newMockRepository()
		repo.examRepo.On("GetByID", mock.Anything, uint(5)).Return(&models.Exam{
			ID:        5,
			Status:    models.ExamDraft,
			CreatedBy: "teacher-1",
		}, nil)
		repo.userRepo.On("GetByID", mock.Anything, "admin-1").Return(&models.User{
			ID:   "admin-1",
			Role: models.RoleAdmin,
		}, nil)
		repo.examRepo.On("Update", mock.Anything, mock.Anything).Return(nil)

		service := newExamServiceForTest(repo)
		_, err := service.Update(context.Background(), 5, &UpdateExamRequest{
			Title: stringPtr("Corrected Title"),
		}, "admin-1")

		assert.NoError(t, err)
	})
}

func TestExamService_Delete(t *testing.T) {
	t.Run("exam without sessions is deleted", func(t *testing.T) {
		repo := newMockRepository()
		repo.examRepo.On("GetByID", mock.Anything, uint(4)).Return(&models.Exam{
			ID:        4,
			CreatedBy: "teacher-1",
		}, nil)
		repo.sessionRepo.On("CountByExam", mock.Anything, uint(4)).Return(int64(0), nil)
		repo.examRepo.On("Delete", mock.Anything, uint(4)).Return(nil)

		service := newExamServiceForTest(repo)
		err := service.Delete(context.Background(), 4, "teacher-1")

		assert.NoError(t, err)
		repo.examRepo.AssertExpectations(t)
	})

	t.Run("exam with sessions is protected", func(t *testing.T) {
		repo := newMockRepository()
		repo.examRepo.On("GetByID", mock.Anything, uint(4)).Return(&models.Exam{
			ID:        4,
			CreatedBy: "teacher-1",
		}, nil)
		repo.sessionRepo.On("CountByExam", mock.Anything, uint(4)).Return(int64(12), nil)

		service := newExamServiceForTest(repo)
		err := service.Delete(context.Background(), 4, "teacher-1")

		assert.ErrorIs(t, err, ErrExamNotDeletable)
		repo.examRepo.AssertNotCalled(t, "Delete")
	})
}

func TestExamService_Publish(t *testing.T) {
	t.Run("draft becomes active", func(t *testing.T) {
		repo := newMockRepository()
		repo.examRepo.On("GetByID", mock.Anything, uint(2)).Return(&models.Exam{
			ID:        2,
			Status:    models.ExamDraft,
			CreatedBy: "teacher-1",
		}, nil)
		repo.examRepo.On("UpdateStatus", mock.Anything, uint(2), models.ExamActive).Return(nil)

		service := newExamServiceForTest(repo)
		err := service.Publish(context.Background(), 2, "teacher-1")

		assert.NoError(t, err)
		repo.examRepo.AssertExpectations(t)
	})

	t.Run("archived exam cannot be published", func(t *testing.T) {
		repo := newMockRepository()
		repo.examRepo.On("GetByID", mock.Anything, uint(2)).Return(&models.Exam{
			ID:        2,
			Status:    models.ExamArchived,
			CreatedBy: "teacher-1",
		}, nil)

		service := newExamServiceForTest(repo)
		err := service.Publish(context.Background(), 2, "teacher-1")

		assert.ErrorIs(t, err, ErrExamInvalidStatus)
		repo.examRepo.AssertNotCalled(t, "UpdateStatus")
	})
}

func TestExamService_UpdateSettings(t *testing.T) {
	repo := newMockRepository()
	repo.examRepo.On("GetByID", mock.Anything, uint(3)).Return(&models.Exam{
		ID:        3,
		CreatedBy: "teacher-1",
	}, nil)
	repo.examRepo.On("GetSettings", mock.Anything, uint(3)).Return(&models.ExamProctoringSettings{
		ExamID:              3,
		EnableFaceDetection: true,
		EnableEyeTracking:   true,
	}, nil)
	repo.examRepo.On("UpdateSettings", mock.Anything, mock.MatchedBy(func(s *models.ExamProctoringSettings) bool {
		return !s.EnableEyeTracking && s.EnableFaceDetection
	})).Return(nil)

	service := newExamServiceForTest(repo)
	disabled := false
	settings, err := service.UpdateSettings(context.Background(), 3, &UpdateSettingsRequest{
		EnableEyeTracking: &disabled,
	}, "teacher-1")

	assert.NoError(t, err)
	assert.False(t, settings.EnableEyeTracking)
	assert.True(t, settings.EnableFaceDetection)
	repo.examRepo.AssertExpectations(t)
}

func TestExamService_RepositoryFailuresAreWrapped(t *testing.T) {
	repo := newMockRepository()
	repo.examRepo.On("GetByIDWithSettings", mock.Anything, uint(1)).Return(nil, errors.New("connection refused"))

	service := newExamServiceForTest(repo)
	_, err := service.GetByID(context.Background(), 1)

	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrExamNotFound)
	assert.Contains(t, err.Error(), "connection refused")
}
