package e2e

import "context"

// MemoryMailer keeps the last sent code so tests can read it back
type MemoryMailer struct {
	Email string
	Code  string
}

func (m *MemoryMailer) SendVerificationCode(_ context.Context, email string, code string) error {
	m.Email = email
	m.Code = code
	return nil
}
