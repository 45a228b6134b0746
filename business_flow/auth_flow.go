package businessflow

import (
	"context"
	"fmt"

	"github.com/engageworks/drip-engine/app/dto"
	"github.com/engageworks/drip-engine/app/services"
	"github.com/engageworks/drip-engine/models"
	"github.com/engageworks/drip-engine/repository"
	"github.com/engageworks/drip-engine/utils"

	"golang.org/x/crypto/bcrypt"
)

// OperatorAuthFlow represents the operator authentication flow used by handlers
type OperatorAuthFlow interface {
	Login(ctx context.Context, req *dto.OperatorLoginRequest, metadata *ClientMetadata) (*dto.OperatorLoginResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*dto.OperatorLoginResponse, error)
}

// OperatorAuthFlowImpl verifies operator credentials and issues tokens
type OperatorAuthFlowImpl struct {
	operatorRepo repository.OperatorRepository
	auditRepo    repository.AuditLogRepository
	tokenService services.TokenService
}

func NewOperatorAuthFlow(
	operatorRepo repository.OperatorRepository,
	auditRepo repository.AuditLogRepository,
	tokenService services.TokenService,
) OperatorAuthFlow {
	return &OperatorAuthFlowImpl{
		operatorRepo: operatorRepo,
		auditRepo:    auditRepo,
		tokenService: tokenService,
	}
}

func (af *OperatorAuthFlowImpl) Login(ctx context.Context, req *dto.OperatorLoginRequest, metadata *ClientMetadata) (*dto.OperatorLoginResponse, error) {
	if req == nil || len(req.Username) == 0 || len(req.Password) == 0 {
		return nil, NewBusinessError("OPERATOR_LOGIN_VALIDATION_FAILED", "Operator login validation failed", ErrIncorrectPassword)
	}

	operator, err := af.operatorRepo.ByUsername(ctx, req.Username)
	if err != nil {
		return nil, NewBusinessError("OPERATOR_LOOKUP_FAILED", "Failed to lookup operator", err)
	}
	if operator == nil {
		af.auditLogin(ctx, req.Username, false, metadata)
		return nil, NewBusinessError("OPERATOR_NOT_FOUND", "Operator not found", ErrOperatorNotFound)
	}
	if !utils.IsTrue(operator.IsActive) {
		af.auditLogin(ctx, req.Username, false, metadata)
		return nil, NewBusinessError("OPERATOR_INACTIVE", "Operator account is inactive", ErrOperatorInactive)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(operator.PasswordHash), []byte(req.Password)); err != nil {
		af.auditLogin(ctx, req.Username, false, metadata)
		return nil, NewBusinessError("OPERATOR_INCORRECT_PASSWORD", "Incorrect password", ErrIncorrectPassword)
	}

	accessToken, refreshToken, err := af.tokenService.GenerateOperatorTokens(operator.ID)
	if err != nil {
		return nil, NewBusinessError("TOKEN_GENERATION_FAILED", "Failed to generate tokens", err)
	}

	if err := af.operatorRepo.UpdateLastLogin(ctx, operator.ID, utils.UTCNow()); err != nil {
		return nil, NewBusinessError("OPERATOR_UPDATE_FAILED", "Failed to record login time", err)
	}
	af.auditLogin(ctx, req.Username, true, metadata)

	return buildLoginResponse(operator, accessToken, refreshToken), nil
}

// Refresh exchanges a valid refresh token for a fresh token pair.
func (af *OperatorAuthFlowImpl) Refresh(ctx context.Context, refreshToken string) (*dto.OperatorLoginResponse, error) {
	if refreshToken == "" {
		return nil, NewBusinessError("OPERATOR_REFRESH_VALIDATION_FAILED", "Refresh token is required", services.ErrTokenInvalid)
	}

	claims, err := af.tokenService.ValidateOperatorToken(refreshToken)
	if err != nil {
		return nil, NewBusinessError("OPERATOR_REFRESH_FAILED", "Refresh token is invalid or expired", err)
	}

	operator, err := af.operatorRepo.ByID(ctx, claims.OperatorID)
	if err != nil {
		return nil, NewBusinessError("OPERATOR_LOOKUP_FAILED", "Failed to lookup operator", err)
	}
	if operator == nil {
		return nil, NewBusinessError("OPERATOR_NOT_FOUND", "Operator not found", ErrOperatorNotFound)
	}
	if !utils.IsTrue(operator.IsActive) {
		return nil, NewBusinessError("OPERATOR_INACTIVE", "Operator account is inactive", ErrOperatorInactive)
	}

	newAccess, newRefresh, err := af.tokenService.RefreshOperatorToken(refreshToken)
	if err != nil {
		return nil, NewBusinessError("OPERATOR_REFRESH_FAILED", "Failed to refresh tokens", err)
	}

	return buildLoginResponse(operator, newAccess, newRefresh), nil
}

func buildLoginResponse(operator *models.Operator, accessToken, refreshToken string) *dto.OperatorLoginResponse {
	return &dto.OperatorLoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    utils.AccessTokenTTLSeconds,
		Operator: dto.OperatorInfo{
			ID:       operator.ID,
			UUID:     operator.UUID.String(),
			Username: operator.Username,
		},
	}
}

func (af *OperatorAuthFlowImpl) auditLogin(ctx context.Context, username string, success bool, metadata *ClientMetadata) {
	action := models.AuditActionOperatorLogin
	desc := fmt.Sprintf("Operator %s logged in", username)
	if !success {
		action = models.AuditActionOperatorLoginFail
		desc = fmt.Sprintf("Failed login attempt for operator %s", username)
	}

	ipAddress := ""
	userAgent := ""
	if metadata != nil {
		ipAddress = metadata.IPAddress
		userAgent = metadata.UserAgent
	}
	entry := &models.AuditLog{
		Action:      action,
		Description: &desc,
		Success:     utils.ToPtr(success),
		IPAddress:   &ipAddress,
		UserAgent:   &userAgent,
	}
	_ = af.auditRepo.Save(ctx, entry)
}
