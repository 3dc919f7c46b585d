package service

import (
	"context"
	"fmt"
	"strings"

	"localhire/internal/domain"
	"localhire/internal/notify"

	"github.com/rs/zerolog"
)

// SignupApplication is a contractor applying to join. Files are optional.
type SignupApplication struct {
	Name       string
	Age        string
	Contact    string
	Address    string
	Email      string
	Speciality string
	Degree     string
	Experience string
	Rate       string
	ProofFile  *notify.Attachment
	GovIDFile  *notify.Attachment
}

type SignupMailer interface {
	Send(mail notify.Mail) error
}

type SignupService struct {
	mailer SignupMailer
	to     string
	logger *zerolog.Logger
}

func NewSignupService(mailer SignupMailer, to string, logger *zerolog.Logger) *SignupService {
	return &SignupService{mailer: mailer, to: to, logger: logger}
}

// Apply e-mails the application to the operator address. Any delivery
// failure is reported as domain.ErrMailFailed.
func (s *SignupService) Apply(_ context.Context, app SignupApplication) error {
	if strings.TrimSpace(app.Name) == "" || !strings.Contains(app.Email, "@") {
		return domain.Validation("name and a valid email are required")
	}
	if s.to == "" {
		return fmt.Errorf("%w: signup address not configured", domain.ErrMailFailed)
	}

	var attachments []notify.Attachment
	for _, f := range []*notify.Attachment{app.ProofFile, app.GovIDFile} {
		if f != nil && len(f.Data) > 0 {
			attachments = append(attachments, *f)
		}
	}

	err := s.mailer.Send(notify.Mail{
		To:          []string{s.to},
		ReplyTo:     app.Email,
		Subject:     "New Contractor Signup: " + app.Name,
		Text:        signupText(app),
		Attachments: attachments,
	})
	if err != nil {
		s.logger.Error().Err(err).Str("email", app.Email).Msg("contractor signup mail failed")
		return fmt.Errorf("%w: %v", domain.ErrMailFailed, err)
	}
	s.logger.Info().Str("email", app.Email).Int("attachments", len(attachments)).Msg("contractor signup sent")
	return nil
}

func signupText(app SignupApplication) string {
	var b strings.Builder
	b.WriteString("New contractor application received:\n\n")
	for _, row := range [][2]string{
		{"Name", app.Name},
		{"Age", app.Age},
		{"Contact No.", app.Contact},
		{"Address", app.Address},
		{"Email", app.Email},
		{"Speciality", app.Speciality},
		{"Degree", app.Degree},
		{"Experience", app.Experience},
		{"Preferred Rate", app.Rate},
	} {
		fmt.Fprintf(&b, "%s: %s\n", row[0], row[1])
	}
	return b.String()
}
