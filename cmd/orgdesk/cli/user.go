package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/orgdesk/orgdesk/internal/model"
	"github.com/orgdesk/orgdesk/internal/service"
)

func newUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage user accounts",
		Long:  "Create and list user accounts and assign roles without going through the HTTP API.",
	}

	cmd.AddCommand(newUserCreateCmd())
	cmd.AddCommand(newUserListCmd())
	cmd.AddCommand(newUserAssignCmd())

	return cmd
}

// ---------- user create ----------

func newUserCreateCmd() *cobra.Command {
	var (
		email     string
		password  string
		name      string
		locality  string
		specialty string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new user account",
		Example: `  orgdesk user create --email maria@example.org --name "Maria Silva"
  orgdesk user create --email maria@example.org --locality rio  # prompts for password`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUserCreate(email, password, name, locality, specialty)
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "User email address (required)")
	cmd.Flags().StringVar(&password, "password", "", "Password (prompted if omitted)")
	cmd.Flags().StringVar(&name, "name", "", "Display name")
	cmd.Flags().StringVar(&locality, "locality", "", "Locality identifier")
	cmd.Flags().StringVar(&specialty, "specialty", "", "Specialty identifier")
	cmd.MarkFlagRequired("email")

	return cmd
}

func runUserCreate(email, password, name, locality, specialty string) error {
	if !strings.Contains(email, "@") {
		return fmt.Errorf("invalid email address: %q", email)
	}

	if password == "" {
		var err error
		password, err = promptPassword()
		if err != nil {
			return err
		}
	}
	if len(password) < 8 {
		return fmt.Errorf("password must be at least 8 characters")
	}

	hash, err := service.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	user := &model.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		IsActive:     true,
	}
	if locality != "" {
		user.LocalityID = &locality
	}
	if specialty != "" {
		user.SpecialtyID = &specialty
	}

	if err := st.CreateUser(cmdCtx(), user); err != nil {
		return err
	}
	fmt.Printf("Created user %q (%s)\n", email, user.ID)
	return nil
}

// ---------- user list ----------

func newUserListCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List all user accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUserList(jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func runUserList(jsonOutput bool) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	users, err := st.ListUsers(cmdCtx())
	if err != nil {
		return err
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(users)
	}

	if len(users) == 0 {
		fmt.Println("No users configured. Use 'orgdesk user create' to create one.")
		return nil
	}

	fmt.Printf("%-36s %-30s %-24s %-8s\n", "ID", "EMAIL", "NAME", "ACTIVE")
	for _, u := range users {
		active := "yes"
		if !u.IsActive {
			active = "no"
		}
		fmt.Printf("%-36s %-30s %-24s %-8s\n", u.ID, u.Email, u.Name, active)
	}
	return nil
}

// ---------- user assign ----------

func newUserAssignCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "assign <email> <role-id> [role-id...]",
		Short: "Replace a user's role assignments",
		Long:  "Replace the user's role list. Order matters: the first role becomes the primary role.",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUserAssign(args[0], args[1:])
		},
	}
	return cmd
}

func runUserAssign(email string, roleArgs []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	user, err := st.GetUserByEmail(cmdCtx(), email)
	if err != nil {
		return fmt.Errorf("lookup user %q: %w", email, err)
	}

	roleIDs := make([]int64, 0, len(roleArgs))
	for _, arg := range roleArgs {
		id, err := strconv.ParseInt(arg, 10, 64)
		if err != nil {
			// Not numeric: resolve by role name.
			role, lookupErr := st.GetRoleByName(cmdCtx(), arg)
			if lookupErr != nil {
				return fmt.Errorf("unknown role %q: %w", arg, lookupErr)
			}
			id = role.ID
		} else if _, err := st.GetRole(cmdCtx(), id); err != nil {
			return fmt.Errorf("unknown role id %d: %w", id, err)
		}
		roleIDs = append(roleIDs, id)
	}

	if err := st.SetUserRoles(cmdCtx(), user.ID, roleIDs); err != nil {
		return err
	}
	fmt.Printf("Assigned %d role(s) to %q\n", len(roleIDs), email)
	return nil
}
