package user

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"courier-assistant/internal/models"
	"courier-assistant/pkg/notify"
	"courier-assistant/pkg/utils"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/oauth2"
)

// ServiceInterface defines methods for courier account business logic.
type ServiceInterface interface {
	GetClientOrigin() string

	Signup(ctx context.Context, req models.SignupRequest) (*models.User, error)
	Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error)
	ActivateUserAndLogin(ctx context.Context, token string) (*models.AuthResponse, error)
	ResendActivationEmail(ctx context.Context, email string) error
	RequestPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token string, newPassword string) (*models.AuthResponse, error)
	HandleGoogleLogin() (string, string, error)
	HandleGoogleCallback(ctx context.Context, code string) (*models.AuthResponse, error)

	GetUserProfile(ctx context.Context, userID string) (*models.User, error)
	UpdateUserProfile(ctx context.Context, userID string, data models.UserUpdateData) (*models.User, error)
}

type Service struct {
	userRepo          RepositoryInterface
	emailer           notify.EmailServiceInterface
	templateManager   *notify.TemplateManager
	jwtSecret         string
	clientOrigin      string // For activation and password reset links
	googleOAuthConfig *oauth2.Config
}

func NewService(
	userRepo RepositoryInterface,
	emailer notify.EmailServiceInterface,
	tm *notify.TemplateManager,
	jwtSecret string,
	clientOrigin string,
	googleOAuthConfig *oauth2.Config,
) ServiceInterface {
	return &Service{
		userRepo:          userRepo,
		emailer:           emailer,
		templateManager:   tm,
		jwtSecret:         jwtSecret,
		clientOrigin:      clientOrigin,
		googleOAuthConfig: googleOAuthConfig,
	}
}

// GoogleUserInfo is the shape of Google's userinfo response.
type GoogleUserInfo struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	Name          string `json:"name"`
}

// GetClientOrigin exposes the frontend URL for handler-level redirects.
func (s *Service) GetClientOrigin() string {
	return s.clientOrigin
}

func (s *Service) Signup(ctx context.Context, req models.SignupRequest) (*models.User, error) {
	_, err := s.userRepo.FindByEmail(ctx, req.Email)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		return nil, fmt.Errorf("service.Signup.FindByEmail: %w", err)
	}
	if err == nil {
		return nil, models.ErrConflict
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("service.Signup.HashPassword: %w", err)
	}

	activationToken, err := utils.GenerateSecureToken(32)
	if err != nil {
		return nil, fmt.Errorf("service.Signup.GenerateToken: %w", err)
	}
	expiresAt := time.Now().Add(30 * time.Minute)

	newUser := &models.User{
		Nickname: req.Nickname,
		Email:    req.Email,
	}
	createdUser, err := s.userRepo.CreateInactiveUser(ctx, newUser, string(hashedPassword), activationToken, expiresAt)
	if err != nil {
		return nil, fmt.Errorf("service.Signup.CreateUser: %w", err)
	}

	s.sendAccountEmail(createdUser,
		"Welcome! Please Activate Your Account",
		fmt.Sprintf("%s/activate?token=%s", s.clientOrigin, activationToken),
		"Thank you for signing up! Please use the following link within 30 minutes to activate your account: %s",
		s.templateManager.GenerateActivateAccountEmailHTML,
	)

	return createdUser, nil
}

// sendAccountEmail renders and pushes one account email in the background
// so the HTTP response never waits on SES.
func (s *Service) sendAccountEmail(u *models.User, subject, link, plainFormat string, render func(notify.TemplateData) (string, error)) {
	htmlContent, err := render(notify.TemplateData{Name: u.Nickname, Link: link})
	if err != nil {
		logrus.WithError(err).Error("failed to render account email")
		htmlContent = ""
	}
	plainText := fmt.Sprintf(plainFormat, link)

	go func() {
		if err := s.emailer.SendEmail(context.Background(), u.Email, subject, plainText, htmlContent); err != nil {
			logrus.WithError(err).Errorf("failed to send account email to %s", u.Email)
		}
	}()
}

// generateAuthResponse issues the JWT for a logged-in courier.
func (s *Service) generateAuthResponse(user *models.User) (*models.AuthResponse, error) {
	claims := &models.JwtCustomClaims{
		UserID: user.ID,
		Email:  user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour * 24 * 30)),
		},
	}

	accessToken := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenSignedString, err := accessToken.SignedString([]byte(s.jwtSecret))
	if err != nil {
		return nil, fmt.Errorf("failed to sign access token: %w", err)
	}

	user.PasswordHash = ""

	return &models.AuthResponse{
		AccessToken: tokenSignedString,
		User:        user,
	}, nil
}

func (s *Service) Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error) {
	userWithHash, err := s.userRepo.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("service.Login.FindByEmail: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(userWithHash.PasswordHash), []byte(req.Password)); err != nil {
		return nil, models.ErrInvalidCredentials
	}
	if !userWithHash.IsActive {
		return nil, models.ErrAccountNotActive
	}

	return s.generateAuthResponse(userWithHash)
}

func (s *Service) ActivateUserAndLogin(ctx context.Context, token string) (*models.AuthResponse, error) {
	activatedUser, err := s.userRepo.ActivateUser(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("service.ActivateUserAndLogin: %w", err)
	}
	return s.generateAuthResponse(activatedUser)
}

func (s *Service) ResendActivationEmail(ctx context.Context, email string) error {
	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		// Hide account existence from the caller.
		if errors.Is(err, models.ErrNotFound) {
			logrus.WithField("email", email).Info("activation resend requested for unknown email")
			return nil
		}
		return fmt.Errorf("service.ResendActivationEmail.FindByEmail: %w", err)
	}
	if user.IsActive {
		logrus.WithField("email", email).Info("activation resend requested for active account")
		return nil
	}

	activationToken, err := utils.GenerateSecureToken(32)
	if err != nil {
		return fmt.Errorf("service.ResendActivationEmail.GenerateToken: %w", err)
	}
	expiresAt := time.Now().Add(30 * time.Minute)

	if err := s.userRepo.UpdateActivationToken(ctx, user.ID, activationToken, expiresAt); err != nil {
		return fmt.Errorf("service.ResendActivationEmail.UpdateToken: %w", err)
	}

	s.sendAccountEmail(user,
		"Activate Your Account (New Link)",
		fmt.Sprintf("%s/activate?token=%s", s.clientOrigin, activationToken),
		"Please use the following link within 30 minutes to activate your account: %s",
		s.templateManager.GenerateActivateAccountEmailHTML,
	)
	return nil
}

func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		// Same response for unknown emails blocks enumeration.
		if errors.Is(err, models.ErrNotFound) {
			logrus.WithField("email", email).Info("password reset requested for unknown email")
			return nil
		}
		return fmt.Errorf("service.RequestPasswordReset.FindByEmail: %w", err)
	}

	token, err := utils.GenerateSecureToken(32)
	if err != nil {
		return fmt.Errorf("service.RequestPasswordReset.GenerateToken: %w", err)
	}
	expiresAt := time.Now().Add(15 * time.Minute)

	if err := s.userRepo.SetPasswordResetToken(ctx, user.ID, token, expiresAt); err != nil {
		return fmt.Errorf("service.RequestPasswordReset.SetToken: %w", err)
	}

	s.sendAccountEmail(user,
		"Reset Your Password",
		fmt.Sprintf("%s/reset-password?token=%s", s.clientOrigin, token),
		"Please use the following link within 15 minutes to reset your password: %s",
		s.templateManager.GenerateResetPasswordEmailHTML,
	)
	return nil
}

func (s *Service) ResetPassword(ctx context.Context, token string, newPassword string) (*models.AuthResponse, error) {
	user, err := s.userRepo.FindByPasswordResetToken(ctx, token)
	if err != nil {
		return nil, models.ErrInvalidToken
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("service.ResetPassword.HashPassword: %w", err)
	}

	if err := s.userRepo.UpdatePasswordAndClearResetToken(ctx, user.ID, string(hashedPassword)); err != nil {
		return nil, fmt.Errorf("service.ResetPassword.UpdatePassword: %w", err)
	}

	return s.generateAuthResponse(user)
}

// HandleGoogleLogin generates the Google consent URL and the CSRF state.
func (s *Service) HandleGoogleLogin() (string, string, error) {
	state, err := utils.GenerateSecureToken(16)
	if err != nil {
		return "", "", fmt.Errorf("failed to generate state for google login: %w", err)
	}
	return s.googleOAuthConfig.AuthCodeURL(state), state, nil
}

// HandleGoogleCallback completes the OAuth exchange, creating the courier
// account on first login.
func (s *Service) HandleGoogleCallback(ctx context.Context, code string) (*models.AuthResponse, error) {
	token, err := s.googleOAuthConfig.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("google code exchange failed: %w", err)
	}

	response, err := http.Get("https://www.googleapis.com/oauth2/v2/userinfo?access_token=" + token.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("failed getting user info from google: %w", err)
	}
	defer response.Body.Close()

	contents, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, fmt.Errorf("failed reading user info response body: %w", err)
	}

	var userInfo GoogleUserInfo
	if err := json.Unmarshal(contents, &userInfo); err != nil {
		return nil, fmt.Errorf("failed to unmarshal user info: %w", err)
	}
	if !userInfo.VerifiedEmail {
		return nil, fmt.Errorf("google email not verified")
	}

	user, err := s.userRepo.FindByEmail(ctx, userInfo.Email)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		return nil, fmt.Errorf("db error while finding user by email: %w", err)
	}

	if errors.Is(err, models.ErrNotFound) {
		newUser := &models.User{
			Nickname:       userInfo.Name,
			Email:          userInfo.Email,
			AuthProvider:   "google",
			AuthProviderID: userInfo.ID,
			IsActive:       true,
		}
		user, err = s.userRepo.CreateOAuthUser(ctx, newUser)
		if err != nil {
			return nil, err
		}
	}

	return s.generateAuthResponse(user)
}

func (s *Service) GetUserProfile(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service.GetUserProfile: %w", err)
	}
	return user, nil
}

// UpdateUserProfile changes the courier's nickname or links/relinks the
// Telegram chat used for call reminders.
func (s *Service) UpdateUserProfile(ctx context.Context, userID string, data models.UserUpdateData) (*models.User, error) {
	if data.TelegramChatID != nil && *data.TelegramChatID != 0 {
		existing, err := s.userRepo.FindByTelegramChatID(ctx, *data.TelegramChatID)
		if err != nil && !errors.Is(err, models.ErrNotFound) {
			return nil, fmt.Errorf("service.UpdateUserProfile: check telegram chat: %w", err)
		}
		if existing != nil && existing.ID != userID {
			return nil, models.ErrConflict
		}
	}

	updatedUser, err := s.userRepo.Update(ctx, userID, data)
	if err != nil {
		return nil, fmt.Errorf("service.UpdateUserProfile: %w", err)
	}
	return updatedUser, nil
}
