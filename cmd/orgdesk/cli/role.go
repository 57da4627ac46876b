package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/orgdesk/orgdesk/internal/model"
)

func newRoleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "role",
		Short: "Manage roles",
		Long:  "Create, list, and delete roles. Permission links are managed through the matrix commands or the HTTP API.",
	}

	cmd.AddCommand(newRoleListCmd())
	cmd.AddCommand(newRoleCreateCmd())
	cmd.AddCommand(newRoleDeleteCmd())

	return cmd
}

// ---------- role list ----------

func newRoleListCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List all roles",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRoleList(jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func runRoleList(jsonOutput bool) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	roles, err := st.ListRoles(cmdCtx())
	if err != nil {
		return err
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(roles)
	}

	if len(roles) == 0 {
		fmt.Println("No roles configured. Use 'orgdesk role create' or 'orgdesk matrix import'.")
		return nil
	}

	fmt.Printf("%-6s %-28s %-8s %-8s %-6s\n", "ID", "NAME", "SYSTEM", "WILDCARD", "PERMS")
	for _, r := range roles {
		system := ""
		if r.IsSystemRole {
			system = "yes"
		}
		wildcard := ""
		if r.Wildcard {
			wildcard = "yes"
		}
		fmt.Printf("%-6d %-28s %-8s %-8s %-6d\n", r.ID, r.Name, system, wildcard, len(r.Permissions))
	}
	return nil
}

// ---------- role create ----------

func newRoleCreateCmd() *cobra.Command {
	var (
		description string
		wildcard    bool
		system      bool
	)

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a new role",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRoleCreate(args[0], description, wildcard, system)
		},
	}

	cmd.Flags().StringVar(&description, "description", "", "Role description")
	cmd.Flags().BoolVar(&wildcard, "wildcard", false, "Grant access to every resource (subject to per-user overrides)")
	cmd.Flags().BoolVar(&system, "system", false, "Mark as a protected system role")

	return cmd
}

func runRoleCreate(name, description string, wildcard, system bool) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	role := &model.Role{
		Name:         name,
		Description:  description,
		Wildcard:     wildcard,
		IsSystemRole: system,
	}
	if err := st.CreateRole(cmdCtx(), role); err != nil {
		return err
	}
	fmt.Printf("Created role %q (id %d)\n", name, role.ID)
	return nil
}

// ---------- role delete ----------

func newRoleDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <role-id>",
		Short: "Delete a role",
		Long:  "Delete a role by ID. System roles are protected and cannot be deleted.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid role id %q", args[0])
			}
			return runRoleDelete(id)
		},
	}
	return cmd
}

func runRoleDelete(id int64) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.DeleteRole(cmdCtx(), id); err != nil {
		return err
	}
	fmt.Printf("Deleted role %d\n", id)
	return nil
}
