package cli

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/gapps-cli/internal/core/domain"
)

var drivePermsCmd = &cobra.Command{
	Use:   "perms",
	Short: "Manage who can access files",
	Long: `List, grant and revoke file permissions.

Principals are written user:alice@example.com, group:team@example.com,
domain:example.com or anyone. A bare email address means a user.`,
}

var drivePermsListCmd = &cobra.Command{
	Use:   "list [file]...",
	Short: "List the permissions of one or more files",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runDrivePermsList,
}

var drivePermsGrantCmd = &cobra.Command{
	Use:   "grant [file] [principal]",
	Short: "Grant a role; existing equal or stronger access is kept",
	Args:  cobra.ExactArgs(2),
	RunE:  runDrivePermsGrant,
}

var drivePermsRevokeCmd = &cobra.Command{
	Use:   "revoke [file] [principal]",
	Short: "Remove every permission of a principal",
	Args:  cobra.ExactArgs(2),
	RunE:  runDrivePermsRevoke,
}

var drivePropsCmd = &cobra.Command{
	Use:   "props",
	Short: "Manage custom file properties",
}

var drivePropsListCmd = &cobra.Command{
	Use:   "list [file]",
	Short: "List the properties of a file",
	Args:  cobra.ExactArgs(1),
	RunE:  runDrivePropsList,
}

var drivePropsGetCmd = &cobra.Command{
	Use:   "get [file] [key]",
	Short: "Print one property value",
	Args:  cobra.ExactArgs(2),
	RunE:  runDrivePropsGet,
}

var drivePropsSetCmd = &cobra.Command{
	Use:   "set [file] [key] [value]",
	Short: "Set a property",
	Args:  cobra.ExactArgs(3),
	RunE:  runDrivePropsSet,
}

var drivePropsRmCmd = &cobra.Command{
	Use:   "rm [file] [key]",
	Short: "Delete a property",
	Args:  cobra.ExactArgs(2),
	RunE:  runDrivePropsRm,
}

// Flags.
var (
	permRole         string
	permNotify       bool
	permDiscoverable bool
	propPrivate      bool
)

func init() {
	drivePermsGrantCmd.Flags().StringVar(&permRole, "role", string(domain.RoleReader),
		"Role: reader, commenter, writer, fileOrganizer, organizer or owner")
	drivePermsGrantCmd.Flags().BoolVar(&permNotify, "notify", false, "Send the notification email")
	drivePermsGrantCmd.Flags().BoolVar(&permDiscoverable, "discoverable", false,
		"Let domain or anyone grants show up in search")

	for _, c := range []*cobra.Command{drivePropsListCmd, drivePropsGetCmd, drivePropsSetCmd, drivePropsRmCmd} {
		c.Flags().BoolVar(&propPrivate, "private", false, "Use app-private properties")
	}

	drivePermsCmd.AddCommand(drivePermsListCmd)
	drivePermsCmd.AddCommand(drivePermsGrantCmd)
	drivePermsCmd.AddCommand(drivePermsRevokeCmd)
	drivePropsCmd.AddCommand(drivePropsListCmd)
	drivePropsCmd.AddCommand(drivePropsGetCmd)
	drivePropsCmd.AddCommand(drivePropsSetCmd)
	drivePropsCmd.AddCommand(drivePropsRmCmd)
	driveCmd.AddCommand(drivePermsCmd)
	driveCmd.AddCommand(drivePropsCmd)
}

func runDrivePermsList(cmd *cobra.Command, args []string) error {
	ids, err := fileIDs(args)
	if err != nil {
		return err
	}
	ctx := context.Background()
	client, err := openDrive(ctx)
	if err != nil {
		return err
	}

	// A partial result is still printed; the error joins the failed files.
	byFile, listErr := client.ListPermissionsBatch(ctx, ids...)

	var rows [][]string
	for _, id := range ids {
		perms := byFile[id]
		// Strongest role first.
		sort.SliceStable(perms, func(i, j int) bool {
			return perms[i].Role != perms[j].Role && perms[i].Role.Covers(perms[j].Role)
		})
		for _, p := range perms {
			rows = append(rows, []string{id, string(p.Role), p.Principal().String(), p.DisplayName})
		}
	}
	if err := render(cmd, []string{"FILE", "ROLE", "PRINCIPAL", "NAME"}, rows, byFile); err != nil {
		return err
	}
	if listErr != nil {
		return fmt.Errorf("failed to list permissions: %w", listErr)
	}
	return nil
}

func runDrivePermsGrant(cmd *cobra.Command, args []string) error {
	id, err := fileID(args[0])
	if err != nil {
		return err
	}
	principal, err := domain.ParsePrincipal(args[1])
	if err != nil {
		return fmt.Errorf("invalid principal %q: %w", args[1], err)
	}
	auth := domain.Authorization{
		Principal:  principal,
		Role:       domain.Role(permRole),
		Searchable: permDiscoverable,
		Notify:     permNotify,
	}
	if err := auth.Validate(); err != nil {
		return fmt.Errorf("invalid grant %s to %s: %w", permRole, principal, err)
	}

	ctx := context.Background()
	client, err := openDrive(ctx)
	if err != nil {
		return err
	}

	perm, changed, err := client.Assign(ctx, id, auth)
	if err != nil {
		return fmt.Errorf("failed to grant: %w", err)
	}
	if changed {
		cmd.Printf("Granted %s to %s\n", perm.Role, principal)
	} else {
		cmd.Printf("%s already has %s access\n", principal, perm.Role)
	}
	return nil
}

func runDrivePermsRevoke(cmd *cobra.Command, args []string) error {
	id, err := fileID(args[0])
	if err != nil {
		return err
	}
	principal, err := domain.ParsePrincipal(args[1])
	if err != nil {
		return fmt.Errorf("invalid principal %q: %w", args[1], err)
	}

	ctx := context.Background()
	client, err := openDrive(ctx)
	if err != nil {
		return err
	}

	n, err := client.Revoke(ctx, id, principal)
	if err != nil {
		return fmt.Errorf("failed to revoke: %w", err)
	}
	if n == 0 {
		cmd.Printf("%s had no access\n", principal)
		return nil
	}
	cmd.Printf("Removed %d permission(s) of %s\n", n, principal)
	return nil
}

func visibility() domain.PropertyVisibility {
	if propPrivate {
		return domain.VisibilityPrivate
	}
	return domain.VisibilityPublic
}

func runDrivePropsList(cmd *cobra.Command, args []string) error {
	id, err := fileID(args[0])
	if err != nil {
		return err
	}
	ctx := context.Background()
	client, err := openDrive(ctx)
	if err != nil {
		return err
	}

	props, err := client.ListProperties(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to list properties: %w", err)
	}
	sort.Slice(props, func(i, j int) bool { return props[i].Key < props[j].Key })

	rows := make([][]string, len(props))
	for i, p := range props {
		rows[i] = []string{p.Key, p.Value, strings.ToLower(string(p.Visibility))}
	}
	return render(cmd, []string{"KEY", "VALUE", "VISIBILITY"}, rows, props)
}

func runDrivePropsGet(cmd *cobra.Command, args []string) error {
	id, err := fileID(args[0])
	if err != nil {
		return err
	}
	ctx := context.Background()
	client, err := openDrive(ctx)
	if err != nil {
		return err
	}

	prop, err := client.GetProperty(ctx, id, args[1], visibility())
	if errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("property %q not set", args[1])
	}
	if err != nil {
		return fmt.Errorf("failed to get property: %w", err)
	}
	cmd.Println(prop.Value)
	return nil
}

func runDrivePropsSet(cmd *cobra.Command, args []string) error {
	id, err := fileID(args[0])
	if err != nil {
		return err
	}
	ctx := context.Background()
	client, err := openDrive(ctx)
	if err != nil {
		return err
	}

	prop, err := client.SetProperty(ctx, id, domain.Property{
		Key:        args[1],
		Value:      args[2],
		Visibility: visibility(),
	})
	if err != nil {
		return fmt.Errorf("failed to set property: %w", err)
	}
	cmd.Printf("%s=%s\n", prop.Key, prop.Value)
	return nil
}

func runDrivePropsRm(cmd *cobra.Command, args []string) error {
	id, err := fileID(args[0])
	if err != nil {
		return err
	}
	ctx := context.Background()
	client, err := openDrive(ctx)
	if err != nil {
		return err
	}

	if err := client.DeleteProperty(ctx, id, args[1], visibility()); err != nil {
		return fmt.Errorf("failed to delete property: %w", err)
	}
	cmd.Printf("Deleted %s\n", args[1])
	return nil
}
