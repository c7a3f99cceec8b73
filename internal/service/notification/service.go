// Package notification sends appointment emails. Delivery is best-effort;
// a failed email never fails the booking that triggered it.
package notification

import (
	"context"
	"fmt"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/gomail.v2"

	"github.com/medcore/hospital-api/internal/model"
	"github.com/medcore/hospital-api/internal/repository"
	"github.com/medcore/hospital-api/pkg/logger"
)

// SMTPConfig is read from the environment (SMTP_HOST, SMTP_PORT, ...).
type SMTPConfig struct {
	Host     string `envconfig:"SMTP_HOST" default:"localhost"`
	Port     int    `envconfig:"SMTP_PORT" default:"587"`
	Username string `envconfig:"SMTP_USERNAME"`
	Password string `envconfig:"SMTP_PASSWORD"`
	From     string `envconfig:"SMTP_FROM" default:"no-reply@medcore.example"`
}

func LoadSMTPConfig() (*SMTPConfig, error) {
	var cfg SMTPConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load SMTP config: %w", err)
	}
	return &cfg, nil
}

type Service struct {
	dialer   *gomail.Dialer
	from     string
	patients repository.PatientRepository
	logger   *logger.Logger
}

func NewService(cfg *SMTPConfig, patients repository.PatientRepository, log *logger.Logger) *Service {
	return &Service{
		dialer:   gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:     cfg.From,
		patients: patients,
		logger:   log,
	}
}

func (s *Service) AppointmentBooked(ctx context.Context, apt *model.Appointment) {
	subject := "Appointment confirmed"
	body := fmt.Sprintf("Your appointment is confirmed for %s.", apt.StartTime.Format("Mon, 02 Jan 2006 15:04"))
	s.send(ctx, apt, subject, body)
}

func (s *Service) AppointmentCancelled(ctx context.Context, apt *model.Appointment) {
	subject := "Appointment cancelled"
	body := fmt.Sprintf("Your appointment on %s was cancelled.", apt.StartTime.Format("Mon, 02 Jan 2006 15:04"))
	s.send(ctx, apt, subject, body)
}

func (s *Service) send(ctx context.Context, apt *model.Appointment, subject, body string) {
	patient, err := s.patients.GetByUserID(ctx, apt.PatientID)
	if err != nil {
		s.logger.Warn("failed to resolve patient for notification",
			"patient_id", apt.PatientID.String(), "error", err.Error())
		return
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", s.from)
	msg.SetHeader("To", patient.Email)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	if err := s.dialer.DialAndSend(msg); err != nil {
		s.logger.Warn("failed to send notification email",
			"patient_id", apt.PatientID.String(), "error", err.Error())
	}
}
