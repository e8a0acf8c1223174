// auth_service.go
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

package services

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/authorizerdev/authorizer-go"
	"github.com/localnerve/propmarket/internal/config"
	"github.com/localnerve/propmarket/internal/types"
	"github.com/localnerve/propmarket/internal/utils"
	"github.com/sirupsen/logrus"
)

// Authorizer validates session cookies against the Authorizer server. The
// client is created on the first request, when the redirect origin is known.
type Authorizer struct {
	cfg    *config.Config
	log    *logrus.Entry
	mu     sync.Mutex
	client *authorizer.AuthorizerClient
}

// NewAuthorizer creates an uninitialized Authorizer
func NewAuthorizer(cfg *config.Config, log *logrus.Entry) *Authorizer {
	return &Authorizer{cfg: cfg, log: log}
}

// IsInitialized returns true if the Authorizer client is initialized
func (a *Authorizer) IsInitialized() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.client != nil
}

// init creates the client. A failed attempt is retried on the next request.
func (a *Authorizer) init(origin string) (*authorizer.AuthorizerClient, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.client != nil {
		return a.client, nil
	}

	// Ping the Authorizer service first
	if err := utils.PingAuthorizer(a.cfg.AuthzURL); err != nil {
		return nil, fmt.Errorf("authorizer ping failed: %w", err)
	}

	a.log.WithFields(logrus.Fields{
		"authorizer_url": a.cfg.AuthzURL,
		"client_id":      a.cfg.AuthzClientID,
		"redirect_url":   origin,
	}).Info("Initializing Authorizer")

	client, err := authorizer.NewAuthorizerClient(a.cfg.AuthzClientID, a.cfg.AuthzURL, origin, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create authorizer client: %w", err)
	}
	a.client = client
	return client, nil
}

// sessionUser is the part of the Authorizer user we rely on
type sessionUser struct {
	ID         string   `json:"id"`
	Email      string   `json:"email"`
	GivenName  *string  `json:"given_name"`
	FamilyName *string  `json:"family_name"`
	Nickname   *string  `json:"nickname"`
	Roles      []string `json:"roles"`
}

// ValidateSession validates a session cookie and returns the caller.
// origin is the scheme and host of the incoming request.
func (a *Authorizer) ValidateSession(cookie, origin string) (types.Actor, error) {
	client, err := a.init(origin)
	if err != nil {
		return types.Actor{}, err
	}

	// Validate session using the authorizer-go SDK
	res, err := client.ValidateSession(&authorizer.ValidateSessionInput{
		Cookie: cookie,
	})
	if err != nil {
		return types.Actor{}, fmt.Errorf("session validation failed: %w", err)
	}

	// Check if session is valid
	if res == nil || !res.IsValid || res.User == nil {
		return types.Actor{}, fmt.Errorf("session is not valid")
	}

	raw, err := json.Marshal(res.User)
	if err != nil {
		return types.Actor{}, fmt.Errorf("failed to read session user: %w", err)
	}
	var user sessionUser
	if err := json.Unmarshal(raw, &user); err != nil {
		return types.Actor{}, fmt.Errorf("failed to read session user: %w", err)
	}
	return user.actor(), nil
}

func (u sessionUser) actor() types.Actor {
	var name []string
	for _, part := range []*string{u.GivenName, u.FamilyName} {
		if part != nil && *part != "" {
			name = append(name, *part)
		}
	}
	if len(name) == 0 && u.Nickname != nil {
		name = append(name, *u.Nickname)
	}
	return types.Actor{
		ID:    u.ID,
		Email: u.Email,
		Name:  strings.Join(name, " "),
		Role:  RoleFrom(u.Roles),
	}
}

// RoleFrom picks the strongest marketplace role among Authorizer roles.
// Users without a marketplace role are clients.
func RoleFrom(roles []string) types.Role {
	role := types.RoleClient
	for _, r := range roles {
		switch types.Role(strings.ToLower(r)) {
		case types.RoleAdmin:
			return types.RoleAdmin
		case types.RoleAgent:
			role = types.RoleAgent
		}
	}
	return role
}
