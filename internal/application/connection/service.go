package connection

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	appaudit "github.com/briefing/backend/internal/application/audit"
	"github.com/briefing/backend/internal/domain/audit"
	"github.com/briefing/backend/internal/domain/connection"
	"github.com/briefing/backend/internal/domain/provider"
	"github.com/briefing/backend/internal/domain/shared"
	"github.com/briefing/backend/internal/infrastructure/cache"
)

// Service manages provider connections for dashboard users. Connecting a
// provider seeds the credential cache; disconnecting clears it. Either change
// invalidates the user's cached briefing so the next load reflects it.
type Service struct {
	conns       connection.Repository
	registry    provider.Registry
	credentials cache.CredentialCache
	briefings   cache.BriefingCache
	audits      *appaudit.Service
	logger      *zap.Logger
}

// NewService creates a new connection service. registry, credentials,
// briefings and audits are optional.
func NewService(
	conns connection.Repository,
	registry provider.Registry,
	credentials cache.CredentialCache,
	briefings cache.BriefingCache,
	audits *appaudit.Service,
	logger *zap.Logger,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		conns:       conns,
		registry:    registry,
		credentials: credentials,
		briefings:   briefings,
		audits:      audits,
		logger:      logger,
	}
}

// List returns the connection state of every registered provider for a user.
// Providers the user never connected appear as disconnected entries so the
// dashboard can offer them.
func (s *Service) List(ctx context.Context, userID uuid.UUID) ([]ConnectionDTO, error) {
	stored, err := s.conns.FindByUser(ctx, userID)
	if err != nil {
		s.logger.Error("Failed to list connections", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to list connections")
	}

	byProvider := make(map[provider.Code]*connection.Connection, len(stored))
	for _, conn := range stored {
		byProvider[conn.Provider] = conn
	}

	if s.registry == nil {
		dtos := make([]ConnectionDTO, 0, len(stored))
		for _, conn := range stored {
			dtos = append(dtos, toConnectionDTO(conn.Provider, conn))
		}
		return dtos, nil
	}

	clients := s.registry.ListClients()
	dtos := make([]ConnectionDTO, 0, len(clients))
	for _, client := range clients {
		dtos = append(dtos, toConnectionDTO(client.Code(), byProvider[client.Code()]))
	}
	return dtos, nil
}

// Connect links a provider account to the user, or reactivates a previously
// disconnected link
func (s *Service) Connect(ctx context.Context, input ConnectInput) (*ConnectionDTO, error) {
	if !input.Provider.IsValid() {
		return nil, shared.NewDomainError("UNKNOWN_PROVIDER", "Unknown provider code")
	}
	if s.registry != nil {
		if _, err := s.registry.GetClient(input.Provider); err != nil {
			return nil, shared.NewDomainError("PROVIDER_NOT_CONFIGURED", "Provider is not configured")
		}
	}

	conn, err := s.conns.FindByUserAndProvider(ctx, input.UserID, input.Provider)
	if err != nil && err != shared.ErrNotFound {
		s.logger.Error("Failed to look up connection", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to look up connection")
	}

	if conn != nil {
		if err := conn.Reconnect(input.AccountEmail); err != nil {
			return nil, err
		}
	} else {
		conn, err = connection.New(input.OrgID, input.UserID, input.Provider, input.AccountEmail)
		if err != nil {
			return nil, err
		}
	}

	if err := s.conns.Save(ctx, conn); err != nil {
		s.logger.Error("Failed to save connection", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to save connection")
	}

	if s.credentials != nil && input.AccessToken != "" {
		cred := &cache.Credential{
			Provider:     input.Provider,
			AccessToken:  input.AccessToken,
			RefreshToken: input.RefreshToken,
			AccountEmail: input.AccountEmail,
			ExpiresAt:    input.ExpiresAt,
		}
		if err := s.credentials.Set(ctx, input.UserID, cred); err != nil {
			s.logger.Warn("Failed to cache provider credential",
				zap.String("provider", input.Provider.String()),
				zap.Error(err))
		}
	}

	s.invalidateBriefing(ctx, input.UserID)
	s.record(ctx, input.OrgID, input.Actor, audit.ActionConnectionAdded, conn,
		input.Provider.DisplayName()+" connected")

	s.logger.Info("Provider connected",
		zap.String("provider", input.Provider.String()),
		zap.String("user_id", input.UserID.String()))

	dto := toConnectionDTO(conn.Provider, conn)
	return &dto, nil
}

// Disconnect removes a provider link and drops any cached credential
func (s *Service) Disconnect(ctx context.Context, input DisconnectInput) error {
	conn, err := s.conns.FindByUserAndProvider(ctx, input.UserID, input.Provider)
	if err != nil {
		if err == shared.ErrNotFound {
			return shared.NewDomainError("CONNECTION_NOT_FOUND", "Connection not found")
		}
		s.logger.Error("Failed to look up connection", zap.Error(err))
		return shared.NewDomainError("INTERNAL_ERROR", "Failed to look up connection")
	}

	if err := conn.Disconnect(); err != nil {
		return err
	}

	if err := s.conns.Save(ctx, conn); err != nil {
		s.logger.Error("Failed to save connection", zap.Error(err))
		return shared.NewDomainError("INTERNAL_ERROR", "Failed to save connection")
	}

	if s.credentials != nil {
		if err := s.credentials.Delete(ctx, input.UserID, input.Provider); err != nil {
			s.logger.Warn("Failed to drop cached credential",
				zap.String("provider", input.Provider.String()),
				zap.Error(err))
		}
	}

	s.invalidateBriefing(ctx, input.UserID)
	s.record(ctx, input.OrgID, input.Actor, audit.ActionConnectionRemoved, conn,
		input.Provider.DisplayName()+" disconnected")

	s.logger.Info("Provider disconnected",
		zap.String("provider", input.Provider.String()),
		zap.String("user_id", input.UserID.String()))

	return nil
}

// RecordFetchResults updates connection sync state after a briefing assembly.
// Failures here never surface to the caller; sync health is advisory.
func (s *Service) RecordFetchResults(ctx context.Context, userID uuid.UUID, results []FetchResult) {
	for _, res := range results {
		conn, err := s.conns.FindByUserAndProvider(ctx, userID, res.Provider)
		if err != nil || conn == nil {
			continue
		}

		if res.Fetched {
			conn.MarkSynced()
		} else {
			conn.MarkError(res.Message)
		}

		if err := s.conns.Save(ctx, conn); err != nil {
			s.logger.Warn("Failed to record fetch result",
				zap.String("provider", res.Provider.String()),
				zap.Error(err))
		}
	}
}

// CountByProvider returns how many users of an organization have each
// provider connected
func (s *Service) CountByProvider(ctx context.Context, orgID uuid.UUID) ([]ProviderCountDTO, error) {
	counts, err := s.conns.CountByProvider(ctx, orgID)
	if err != nil {
		s.logger.Error("Failed to count connections", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to count connections")
	}

	codes := []provider.Code{provider.CodeOutlook, provider.CodeGmail, provider.CodeZendesk}
	dtos := make([]ProviderCountDTO, 0, len(codes))
	for _, code := range codes {
		dtos = append(dtos, ProviderCountDTO{
			Provider:    code.String(),
			DisplayName: code.DisplayName(),
			Count:       counts[code],
		})
	}
	return dtos, nil
}

func (s *Service) invalidateBriefing(ctx context.Context, userID uuid.UUID) {
	if s.briefings == nil {
		return
	}
	if err := s.briefings.Invalidate(ctx, userID); err != nil {
		s.logger.Warn("Failed to invalidate briefing cache", zap.Error(err))
	}
}

func (s *Service) record(ctx context.Context, orgID uuid.UUID, actor Actor, action audit.Action, conn *connection.Connection, detail string) {
	if s.audits == nil {
		return
	}
	err := s.audits.Record(ctx, appaudit.RecordInput{
		OrgID:      orgID,
		ActorID:    actor.ID,
		ActorEmail: actor.Email,
		Action:     action,
		TargetType: "connection",
		TargetID:   conn.ID.String(),
		Detail:     detail,
		IP:         actor.IP,
		UserAgent:  actor.UserAgent,
	})
	if err != nil {
		s.logger.Warn("Failed to record audit entry",
			zap.String("action", string(action)),
			zap.Error(err))
	}
}

func toConnectionDTO(code provider.Code, conn *connection.Connection) ConnectionDTO {
	dto := ConnectionDTO{
		Provider:    code.String(),
		DisplayName: code.DisplayName(),
		Status:      string(connection.StatusDisconnected),
	}
	if conn != nil {
		dto.Connected = conn.IsActive()
		dto.Status = string(conn.Status)
		dto.AccountEmail = conn.AccountEmail
		dto.LastSyncedAt = conn.LastSyncedAt
		dto.LastError = conn.LastError
	}
	return dto
}
