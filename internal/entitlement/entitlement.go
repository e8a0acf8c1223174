// entitlement.go
//
// Real-estate marketplace service: listings, demands, entitlements and matching
// Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC
//
// This file is part of propmarket.
// propmarket is free software: you can redistribute it and/or modify it
// under the terms of the GNU Affero General Public License as published by the Free Software
// Foundation, either version 3 of the License, or (at your option) any later version.
// propmarket is distributed in the hope that it will be useful, but WITHOUT ANY WARRANTY;
// without even the implied warranty of MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.
// See the GNU Affero General Public License for more details.
// You should have received a copy of the GNU Affero General Public License along with propmarket.
// If not, see <https://www.gnu.org/licenses/>.
// Additional terms under GNU AGPL version 3 section 7:
// a) The reasonable legal notice of original copyright and author attribution must be preserved
//    by including the string: "Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC"
//    in this material, copies, or source code of derived works.

// Package entitlement manages brokerage contracts and agent declarations,
// the two signatures that gate activation and listing creation.
package entitlement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/localnerve/propmarket/internal/access"
	"github.com/localnerve/propmarket/internal/audit"
	"github.com/localnerve/propmarket/internal/codes"
	"github.com/localnerve/propmarket/internal/metrics"
	"github.com/localnerve/propmarket/internal/models"
	"github.com/localnerve/propmarket/internal/notify"
	"github.com/localnerve/propmarket/internal/repository"
	"github.com/localnerve/propmarket/internal/types"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const (
	// ContractCodeTTL is how long a contract code can be used to sign
	ContractCodeTTL = 7 * 24 * time.Hour
	// DeclarationCodeTTL is how long a declaration code can be verified
	DeclarationCodeTTL = 24 * time.Hour
)

// ContractActivator moves an entity forward once its contract is signed.
// OnContractSigned runs inside the signing transaction, Activated after it
// commits.
type ContractActivator interface {
	OnContractSigned(ctx context.Context, tx *repository.Store, contract *models.BrokerageContract) error
	Activated(ctx context.Context, contract *models.BrokerageContract)
}

// Auditor records audit entries
type Auditor interface {
	Record(ctx context.Context, entry audit.Entry)
}

// Notifier sends notices, logging failures
type Notifier interface {
	Notify(ctx context.Context, notice notify.Notice)
}

// Service issues and verifies contract and declaration codes
type Service struct {
	store     *repository.Store
	activator ContractActivator
	audit     Auditor
	notifier  Notifier
	gen       codes.Generator
	now       func() time.Time
	log       *logrus.Entry
}

// NewService creates an entitlement service
func NewService(store *repository.Store, activator ContractActivator, auditor Auditor, notifier Notifier, log *logrus.Entry) *Service {
	return &Service{
		store:     store,
		activator: activator,
		audit:     auditor,
		notifier:  notifier,
		gen:       codes.RandomGenerator{},
		now:       time.Now,
		log:       log,
	}
}

// RequestContract creates or refreshes the contract slot of an approved
// entity with the commission set at approval, and mails the signing code.
func (s *Service) RequestContract(ctx context.Context, actor types.Actor, entityType models.EntityType, entityID string, client access.Client) (*models.BrokerageContract, error) {
	entity, err := s.store.FindEntity(ctx, entityType, entityID)
	if err != nil {
		return nil, err
	}
	if entity.OwnerID() != actor.ID {
		return nil, fmt.Errorf("%w: only the owner of %s %s can sign its contract", types.ErrForbidden, entityType, entityID)
	}
	if entity.CurrentStatus() != models.StatusApprovedPendingContract {
		return nil, fmt.Errorf("%w: %s %s is %s, not awaiting a contract",
			types.ErrInvalidTransition, entityType, entityID, entity.CurrentStatus())
	}

	contract, err := s.store.FindContract(ctx, actor.ID, entityType, entityID)
	if err != nil && !errors.Is(err, types.ErrNotFound) {
		return nil, err
	}
	if contract == nil {
		contract = &models.BrokerageContract{UserID: actor.ID, EntityType: entityType, EntityID: entityID}
	}

	rate, terms := commission(entity)
	contract.CommissionRate = rate
	contract.CommissionTerms = terms
	contract.ExpiresAt = s.now().Add(ContractCodeTTL)
	contract.SignedAt = nil
	contract.IsActive = true
	contract.IPAddress = client.IPAddress
	contract.UserAgent = client.UserAgent

	_, err = codes.Issue(s.gen, func(code string) error {
		contract.Code = code
		if contract.ID != "" {
			return s.store.Save(ctx, contract)
		}
		err := s.store.Create(ctx, contract)
		if repository.IsDuplicateKey(err) {
			// Another request may have opened the slot; continue on that row.
			contract.ID = ""
			if existing, findErr := s.store.FindContract(ctx, actor.ID, entityType, entityID); findErr == nil {
				contract.ID = existing.ID
				contract.CreatedAt = existing.CreatedAt
			}
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	metrics.CodesIssued.WithLabelValues("contract").Inc()

	s.audit.Record(ctx, audit.Entry{
		UserID:     actor.ID,
		Action:     models.ActionContractReq,
		EntityType: entityType,
		EntityID:   entityID,
		Details:    map[string]interface{}{"contract_id": contract.ID},
		IPAddress:  client.IPAddress,
	})

	vars := notify.Vars{
		Title:           entity.Heading(),
		EntityType:      string(entityType),
		Code:            contract.Code,
		ExpiresAt:       contract.ExpiresAt.UTC().Format("2006-01-02 15:04 MST"),
		CommissionTerms: terms,
	}
	if rate != nil {
		vars.CommissionRate = rate.String()
	}
	s.notifier.Notify(ctx, notify.Notice{
		UserID:     actor.ID,
		Template:   notify.ContractCode,
		EntityType: entityType,
		EntityID:   entityID,
		EmailOnly:  true,
		Vars:       vars,
	})
	return contract, nil
}

// SignContract signs the contract slot with its code and activates the
// entity in the same transaction. Signing an already signed contract with
// its code returns it unchanged.
func (s *Service) SignContract(ctx context.Context, actor types.Actor, entityType models.EntityType, entityID, code string, client access.Client) (*models.BrokerageContract, error) {
	contract, err := s.store.FindContract(ctx, actor.ID, entityType, entityID)
	if err != nil {
		return nil, err
	}

	code = codes.Normalize(code)
	if contract.Code != code || !contract.IsActive {
		metrics.CodeVerifications.WithLabelValues("contract", "failure").Inc()
		return nil, types.ErrInvalidOrExpiredCode
	}
	if contract.IsSigned() {
		return contract, nil
	}
	now := s.now()
	if !now.Before(contract.ExpiresAt) {
		metrics.CodeVerifications.WithLabelValues("contract", "failure").Inc()
		return nil, types.ErrInvalidOrExpiredCode
	}

	err = s.store.Transaction(ctx, func(tx *repository.Store) error {
		if err := tx.MarkContractSigned(ctx, contract.ID, code, now, client.IPAddress, client.UserAgent); err != nil {
			return err
		}
		contract.SignedAt = &now
		contract.IPAddress = client.IPAddress
		contract.UserAgent = client.UserAgent
		return s.activator.OnContractSigned(ctx, tx, contract)
	})
	if err != nil {
		contract.SignedAt = nil
		if errors.Is(err, types.ErrInvalidOrExpiredCode) {
			metrics.CodeVerifications.WithLabelValues("contract", "failure").Inc()
		}
		return nil, err
	}
	metrics.CodeVerifications.WithLabelValues("contract", "success").Inc()

	s.audit.Record(ctx, audit.Entry{
		UserID:     actor.ID,
		Action:     models.ActionContractSign,
		EntityType: entityType,
		EntityID:   entityID,
		Details:    map[string]interface{}{"contract_id": contract.ID},
		IPAddress:  client.IPAddress,
	})
	s.activator.Activated(ctx, contract)
	return contract, nil
}

// RequestDeclaration opens a new agent declaration and mails its code.
// Earlier unverified rows are left to expire.
func (s *Service) RequestDeclaration(ctx context.Context, actor types.Actor, client access.Client) (*models.AgentDeclaration, error) {
	if actor.Role == types.RoleClient {
		return nil, fmt.Errorf("%w: declarations are for agents", types.ErrForbidden)
	}

	decl := &models.AgentDeclaration{
		UserID:    actor.ID,
		ExpiresAt: s.now().Add(DeclarationCodeTTL),
		IPAddress: client.IPAddress,
	}
	_, err := codes.Issue(s.gen, func(code string) error {
		decl.ID = ""
		decl.Code = code
		return s.store.Create(ctx, decl)
	})
	if err != nil {
		return nil, err
	}
	metrics.CodesIssued.WithLabelValues("declaration").Inc()

	s.audit.Record(ctx, audit.Entry{
		UserID:    actor.ID,
		Action:    models.ActionDeclRequest,
		Details:   map[string]interface{}{"declaration_id": decl.ID},
		IPAddress: client.IPAddress,
	})
	s.notifier.Notify(ctx, notify.Notice{
		UserID:    actor.ID,
		Template:  notify.DeclarationCode,
		EmailOnly: true,
		Vars: notify.Vars{
			Code:      decl.Code,
			ExpiresAt: decl.ExpiresAt.UTC().Format("2006-01-02 15:04 MST"),
		},
	})
	return decl, nil
}

// VerifyDeclaration confirms a declaration with its code. Verifying an
// already verified declaration succeeds.
func (s *Service) VerifyDeclaration(ctx context.Context, actor types.Actor, code string, client access.Client) (*models.AgentDeclaration, error) {
	decl, err := s.store.FindDeclaration(ctx, actor.ID, codes.Normalize(code))
	if errors.Is(err, types.ErrNotFound) {
		metrics.CodeVerifications.WithLabelValues("declaration", "failure").Inc()
		return nil, types.ErrInvalidOrExpiredCode
	}
	if err != nil {
		return nil, err
	}
	if decl.VerifiedAt != nil {
		return decl, nil
	}

	now := s.now()
	if !now.Before(decl.ExpiresAt) {
		metrics.CodeVerifications.WithLabelValues("declaration", "failure").Inc()
		return nil, types.ErrInvalidOrExpiredCode
	}
	if err := s.store.MarkDeclarationVerified(ctx, decl.ID, now); err != nil {
		return nil, err
	}
	decl.VerifiedAt = &now
	metrics.CodeVerifications.WithLabelValues("declaration", "success").Inc()

	s.audit.Record(ctx, audit.Entry{
		UserID:    actor.ID,
		Action:    models.ActionDeclVerify,
		Details:   map[string]interface{}{"declaration_id": decl.ID},
		IPAddress: client.IPAddress,
	})
	return decl, nil
}

// HasVerifiedDeclaration reports whether the user has ever verified a
// declaration
func (s *Service) HasVerifiedDeclaration(ctx context.Context, userID string) (bool, error) {
	return s.store.HasVerifiedDeclaration(ctx, userID)
}

func commission(entity models.Entity) (*decimal.Decimal, string) {
	switch e := entity.(type) {
	case *models.Property:
		return e.CommissionRate, e.CommissionTerms
	case *models.Demand:
		return e.CommissionRate, e.CommissionTerms
	}
	return nil, ""
}
