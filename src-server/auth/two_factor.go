package auth

import (
	"fmt"
	"log/slog"
	"strings"

	"evhub/src-server/admin"
	"evhub/src-server/apperr"

	"github.com/google/uuid"
	"github.com/pquerna/otp/totp"
	"golang.org/x/crypto/bcrypt"
)

const (
	totpIssuer      = "EventHub"
	backupCodeCount = 10
)

// TwoFactorSetup is handed to the user once. The backup codes are only
// kept hashed afterwards.
type TwoFactorSetup struct {
	Secret      string   `json:"secret"`
	URL         string   `json:"qrCodeUrl"`
	BackupCodes []string `json:"backupCodes"`
}

type twoFactor struct {
	secret      string
	backupCodes [][]byte // bcrypt hashes, removed once used
	enabled     bool
}

// SetupTwoFactor creates a fresh TOTP secret and backup codes for user,
// replacing any earlier ones. It stays disabled until a code is verified.
func (s *Service) SetupTwoFactor(user admin.User) (TwoFactorSetup, error) {
	if user.ID == "" {
		return TwoFactorSetup{}, apperr.Permission("No user logged in")
	}
	account := user.Email
	if account == "" {
		account = user.ID
	}
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      totpIssuer,
		AccountName: account,
	})
	if err != nil {
		return TwoFactorSetup{}, fmt.Errorf("(*Service).SetupTwoFactor: %w", err)
	}

	setup := TwoFactorSetup{
		Secret:      key.Secret(),
		URL:         key.URL(),
		BackupCodes: make([]string, backupCodeCount),
	}
	state := &twoFactor{secret: key.Secret(), backupCodes: make([][]byte, backupCodeCount)}
	for i := range setup.BackupCodes {
		code := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
		hash, err := bcrypt.GenerateFromPassword([]byte(code), s.bcryptCost)
		if err != nil {
			return TwoFactorSetup{}, fmt.Errorf("(*Service).SetupTwoFactor: %w", err)
		}
		setup.BackupCodes[i] = code
		state.backupCodes[i] = hash
	}

	s.mu.Lock()
	s.twoFactor[user.ID] = state
	s.mu.Unlock()
	slog.Info("two-factor secret created", "user_id", user.ID)
	return setup, nil
}

// VerifyTwoFactor checks a TOTP code, or a backup code which then can't be
// used again. A good code enables two-factor sign-in for the user.
func (s *Service) VerifyTwoFactor(userID, code string) (bool, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return false, apperr.Validation("Code is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.twoFactor[userID]
	if !ok {
		return false, apperr.NotFound("Two-factor authentication isn't set up")
	}

	if totp.Validate(code, state.secret) {
		state.enabled = true
		return true, nil
	}
	upper := strings.ToUpper(code)
	for i, hash := range state.backupCodes {
		if bcrypt.CompareHashAndPassword(hash, []byte(upper)) == nil {
			state.backupCodes = append(state.backupCodes[:i], state.backupCodes[i+1:]...)
			state.enabled = true
			slog.Warn("backup code used", "user_id", userID, "remaining", len(state.backupCodes))
			return true, nil
		}
	}
	return false, nil
}

// TwoFactorEnabled reports whether userID has verified a code since the
// last setup.
func (s *Service) TwoFactorEnabled(userID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.twoFactor[userID]
	return ok && state.enabled
}
