package postgres

import (
	"gorm.io/gorm"

	"github.com/360-proctor/proctoring-service/internal/repositories"
)

// Repository bundles the PostgreSQL implementations behind the aggregate
// interface so services carry a single dependency.
type Repository struct {
	exam         repositories.ExamRepository
	session      repositories.SessionRepository
	alert        repositories.AlertRepository
	user         repositories.UserRepository
	notification repositories.NotificationRepository
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		exam:         NewExamPostgreSQL(db),
		session:      NewSessionPostgreSQL(db),
		alert:        NewAlertPostgreSQL(db),
		user:         NewUserPostgreSQL(db),
		notification: NewNotificationPostgreSQL(db),
	}
}

func (r *Repository) Exam() repositories.ExamRepository                 { return r.exam }
func (r *Repository) Session() repositories.SessionRepository           { return r.session }
func (r *Repository) Alert() repositories.AlertRepository               { return r.alert }
func (r *Repository) User() repositories.UserRepository                 { return r.user }
func (r *Repository) Notification() repositories.NotificationRepository { return r.notification }
