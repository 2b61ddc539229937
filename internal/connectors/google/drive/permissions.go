package drive

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"

	"github.com/custodia-labs/gapps-cli/internal/connectors/google"
	"github.com/custodia-labs/gapps-cli/internal/connectors/google/batch"
	"github.com/custodia-labs/gapps-cli/internal/core/domain"
)

const permissionFields = "id, type, role, emailAddress, domain, displayName, allowFileDiscovery"

func toPermission(p *drive.Permission) domain.Permission {
	return domain.Permission{
		ID:                 p.Id,
		Type:               domain.PrincipalType(p.Type),
		Role:               domain.Role(p.Role),
		EmailAddress:       p.EmailAddress,
		Domain:             p.Domain,
		DisplayName:        p.DisplayName,
		AllowFileDiscovery: p.AllowFileDiscovery,
	}
}

func (c *Client) permissionsRequest(fileID string) batch.Request[domain.Permission] {
	return func(ctx context.Context, pageToken string) (batch.Page[domain.Permission], error) {
		call := c.files.Permissions.List(fileID).
			PageSize(100).
			Fields(googleapi.Field("nextPageToken, permissions(" + permissionFields + ")")).
			SupportsAllDrives(c.cfg.SupportsAllDrives).
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		list, err := call.Do()
		if err != nil {
			return batch.Page[domain.Permission]{}, err
		}

		page := batch.Page[domain.Permission]{NextPageToken: list.NextPageToken}
		for _, p := range list.Permissions {
			page.Items = append(page.Items, toPermission(p))
		}
		return page, nil
	}
}

// ListPermissions returns every permission on a file.
func (c *Client) ListPermissions(ctx context.Context, fileID string) ([]domain.Permission, error) {
	perms, err := batch.Collect(ctx, c.permissionsRequest(fileID), c.batchOptions())
	if err != nil {
		return nil, fmt.Errorf("list permissions of %s: %w", fileID, google.WrapError(err))
	}
	return perms, nil
}

// ListPermissionsBatch lists the permissions of several files in one batch.
// Files that failed are missing from the map and reported in the joined error.
func (c *Client) ListPermissionsBatch(ctx context.Context, fileIDs ...string) (map[string][]domain.Permission, error) {
	reqs := make([]batch.Request[domain.Permission], len(fileIDs))
	for i, id := range fileIDs {
		reqs[i] = c.permissionsRequest(id)
	}

	results, err := batch.Execute(ctx, reqs, c.batchOptions())
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	out := make(map[string][]domain.Permission, len(fileIDs))
	for i, res := range results {
		if res.Err == nil {
			out[fileIDs[i]] = res.Items
		}
	}
	if err != nil {
		return out, fmt.Errorf("list permissions: %w", err)
	}
	return out, nil
}

// Assign grants a role to a principal. An existing permission with an equal
// or stronger role is left alone and reported as unchanged; a weaker one is
// upgraded in place.
func (c *Client) Assign(ctx context.Context, fileID string, auth domain.Authorization) (*domain.Permission, bool, error) {
	if err := auth.Validate(); err != nil {
		return nil, false, err
	}

	perms, err := c.ListPermissions(ctx, fileID)
	if err != nil {
		return nil, false, err
	}

	for i := range perms {
		existing := &perms[i]
		if !existing.Matches(auth.Principal) {
			continue
		}
		if existing.Role.Covers(auth.Role) {
			return existing, false, nil
		}

		var updated *drive.Permission
		err := c.call(ctx, "permissions.update "+fileID, func() (err error) {
			updated, err = c.files.Permissions.Update(fileID, existing.ID, &drive.Permission{Role: string(auth.Role)}).
				TransferOwnership(auth.Role == domain.RoleOwner).
				Fields(googleapi.Field(permissionFields)).
				SupportsAllDrives(c.cfg.SupportsAllDrives).
				Context(ctx).
				Do()
			return err
		})
		if err != nil {
			return nil, false, fmt.Errorf("upgrade %s on %s: %w", auth.Principal, fileID, err)
		}
		p := toPermission(updated)
		return &p, true, nil
	}

	req := &drive.Permission{
		Type: string(auth.Principal.Type),
		Role: string(auth.Role),
	}
	switch auth.Principal.Type {
	case domain.PrincipalUser, domain.PrincipalGroup:
		req.EmailAddress = auth.Principal.Address
	case domain.PrincipalDomain:
		req.Domain = auth.Principal.Address
		req.AllowFileDiscovery = auth.Searchable
	case domain.PrincipalAnyone:
		req.AllowFileDiscovery = auth.Searchable
	}

	var created *drive.Permission
	err = c.call(ctx, "permissions.create "+fileID, func() (err error) {
		call := c.files.Permissions.Create(fileID, req).
			TransferOwnership(auth.Role == domain.RoleOwner).
			Fields(googleapi.Field(permissionFields)).
			SupportsAllDrives(c.cfg.SupportsAllDrives).
			Context(ctx)
		if req.EmailAddress != "" {
			call = call.SendNotificationEmail(auth.Notify)
		}
		created, err = call.Do()
		return err
	})
	if err != nil {
		return nil, false, fmt.Errorf("grant %s on %s: %w", auth.Principal, fileID, err)
	}
	p := toPermission(created)
	return &p, true, nil
}

// Revoke removes every permission matching the principal and returns how
// many were removed. A principal without access is not an error.
func (c *Client) Revoke(ctx context.Context, fileID string, principal domain.Principal) (int, error) {
	perms, err := c.ListPermissions(ctx, fileID)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, p := range perms {
		if !p.Matches(principal) {
			continue
		}
		err := c.call(ctx, "permissions.delete "+fileID, func() error {
			return c.files.Permissions.Delete(fileID, p.ID).
				SupportsAllDrives(c.cfg.SupportsAllDrives).
				Context(ctx).
				Do()
		})
		if errors.Is(err, google.ErrNotFound) {
			continue
		}
		if err != nil {
			return removed, fmt.Errorf("revoke %s on %s: %w", principal, fileID, err)
		}
		removed++
	}
	return removed, nil
}

// SummarizePermissions groups principals by role. Principals are sorted.
func SummarizePermissions(perms []domain.Permission) map[domain.Role][]string {
	out := make(map[domain.Role][]string)
	for _, p := range perms {
		out[p.Role] = append(out[p.Role], p.Principal().String())
	}
	for role := range out {
		sort.Strings(out[role])
	}
	return out
}
