package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Mb29661/LV418/internal/logger"
	"github.com/Mb29661/LV418/internal/mailer"
	"github.com/Mb29661/LV418/internal/models"
	"github.com/Mb29661/LV418/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const (
	minPasswordLen     = 6
	verifyTokenTTL     = 48 * time.Hour
	purposeVerifyEmail = "verify-email"
)

// Domain errors for the account flow. Handlers map these to rendered
// messages; none of them is fatal.
var (
	ErrMissingFields      = errors.New("all fields are required")
	ErrWeakPassword       = errors.New("password must be at least 6 characters")
	ErrEmailTaken         = errors.New("email is already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailNotVerified   = errors.New("email address not verified")
	ErrNotApproved        = errors.New("account awaiting admin approval")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidToken       = errors.New("invalid or expired token")
)

// AuthService implements the account lifecycle: register → verify (emailed
// token) → approve (emailed admin link) → login.
type AuthService struct {
	users         repository.Users
	mail          mailer.Mailer
	signingKey    []byte
	appURL        string
	adminEmail    string
	adminPassword string
	log           *logger.Logger
}

func NewAuthService(users repository.Users, mail mailer.Mailer, cfg Config, log *logger.Logger) *AuthService {
	return &AuthService{
		users:         users,
		mail:          mail,
		signingKey:    []byte(cfg.SigningKey),
		appURL:        strings.TrimRight(cfg.AppURL, "/"),
		adminEmail:    cfg.AdminEmail,
		adminPassword: cfg.AdminPassword,
		log:           log,
	}
}

var _ Authorization = (*AuthService)(nil)

// Register validates input, creates an unverified/unapproved account and
// sends the verification mail plus an approval request to the admin.
func (s *AuthService) Register(ctx context.Context, name, email, password string) (int, error) {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))
	if name == "" || email == "" || password == "" {
		return 0, ErrMissingFields
	}
	if len(password) < minPasswordLen {
		return 0, ErrWeakPassword
	}

	existing, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return 0, err
	}
	if existing != nil {
		return 0, ErrEmailTaken
	}

	hash, err := hashPassword(password)
	if err != nil {
		return 0, err
	}

	id, err := s.users.Create(ctx, models.User{
		Email:        email,
		PasswordHash: hash,
		Name:         name,
	})
	if err != nil {
		return 0, err
	}

	s.sendVerificationMail(id, email)
	s.sendApprovalRequest(id, name, email)
	return id, nil
}

// Authenticate checks credentials and the two lifecycle flags. The same
// ErrInvalidCredentials covers unknown email and wrong password.
func (s *AuthService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	if !u.EmailVerified {
		return nil, ErrEmailNotVerified
	}
	if !u.AdminApproved {
		return nil, ErrNotApproved
	}
	return u, nil
}

// VerifyEmail consumes a signed verification token and flips the flag.
func (s *AuthService) VerifyEmail(ctx context.Context, token string) (*models.User, error) {
	userID, err := s.parseLinkToken(token, purposeVerifyEmail)
	if err != nil {
		return nil, ErrInvalidToken
	}

	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrUserNotFound
	}
	if err := s.users.SetEmailVerified(ctx, u.ID); err != nil {
		return nil, err
	}
	u.EmailVerified = true
	return u, nil
}

// Approve flips the approval flag and notifies the user.
func (s *AuthService) Approve(ctx context.Context, userID int) (*models.User, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrUserNotFound
	}
	if err := s.users.SetAdminApproved(ctx, u.ID); err != nil {
		return nil, err
	}
	u.AdminApproved = true

	s.sendMail(u.Email, "Ditt konto har godkänts - Perifal LV-418", fmt.Sprintf(
		`<h2>Välkommen %s!</h2>
		<p>Ditt konto har nu godkänts av en administratör.</p>
		<p><a href="%s/login">Klicka här för att logga in</a></p>`,
		u.Name, s.appURL))
	return u, nil
}

// EnsureAdmin creates the bootstrap admin account when the user table is
// empty, already verified and approved.
func (s *AuthService) EnsureAdmin(ctx context.Context) error {
	n, err := s.users.Count(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	hash, err := hashPassword(s.adminPassword)
	if err != nil {
		return err
	}
	if _, err := s.users.Create(ctx, models.User{
		Email:         s.adminEmail,
		PasswordHash:  hash,
		Name:          "Admin",
		EmailVerified: true,
		AdminApproved: true,
		IsAdmin:       true,
	}); err != nil {
		return err
	}
	if s.log != nil {
		s.log.Infow("bootstrap_admin_created", "email", s.adminEmail)
	}
	return nil
}

// linkClaims signs the email-link actions; purpose scoping keeps a
// verification token from being replayed against any other endpoint.
type linkClaims struct {
	jwt.RegisteredClaims
	UserID  int    `json:"user_id"`
	Purpose string `json:"purpose"`
}

func (s *AuthService) issueLinkToken(userID int, purpose string) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &linkClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(verifyTokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		UserID:  userID,
		Purpose: purpose,
	})
	return token.SignedString(s.signingKey)
}

func (s *AuthService) parseLinkToken(accessToken, purpose string) (int, error) {
	token, err := jwt.ParseWithClaims(accessToken, &linkClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.signingKey, nil
	})
	if err != nil {
		return 0, err
	}
	claims, ok := token.Claims.(*linkClaims)
	if !ok || !token.Valid || claims.Purpose != purpose {
		return 0, ErrInvalidToken
	}
	return claims.UserID, nil
}

func (s *AuthService) sendVerificationMail(userID int, email string) {
	token, err := s.issueLinkToken(userID, purposeVerifyEmail)
	if err != nil {
		if s.log != nil {
			s.log.Errorw("verify_token_issue_failed", "err", err, "user_id", userID)
		}
		return
	}
	verifyURL := fmt.Sprintf("%s/verify/%s", s.appURL, token)
	s.sendMail(email, "Verifiera din e-post - Perifal LV-418", fmt.Sprintf(
		`<h2>Välkommen till Perifal LV-418 Dashboard!</h2>
		<p>Klicka på länken nedan för att verifiera din e-postadress:</p>
		<p><a href="%s">%s</a></p>
		<p>Efter verifiering måste en administratör godkänna ditt konto.</p>`,
		verifyURL, verifyURL))
}

func (s *AuthService) sendApprovalRequest(userID int, name, email string) {
	s.sendMail(s.adminEmail, "Ny användare väntar på godkännande - Perifal LV-418", fmt.Sprintf(
		`<h2>Ny registrering</h2>
		<p><strong>Namn:</strong> %s</p>
		<p><strong>E-post:</strong> %s</p>
		<p><a href="%s/admin/approve/%d">Klicka här för att godkänna</a></p>`,
		name, email, s.appURL, userID))
}

// sendMail is best-effort: a broken relay degrades to a log line, it never
// fails the account operation that triggered it.
func (s *AuthService) sendMail(to, subject, body string) {
	if s.mail == nil {
		return
	}
	if err := s.mail.Send(to, subject, body); err != nil && s.log != nil {
		s.log.Errorw("email_send_failed", "err", err, "to", to, "subject", subject)
	}
}

func hashPassword(password string) (string, error) {
	if strings.TrimSpace(password) == "" {
		return "", errors.New("password is empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}
