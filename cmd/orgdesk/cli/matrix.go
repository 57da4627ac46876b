package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/orgdesk/orgdesk/internal/rbac"
	"github.com/orgdesk/orgdesk/internal/service"
)

func newMatrixCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "matrix",
		Short: "Export, import, and simulate the role matrix",
		Long: `The role matrix is a reviewable document holding every role and its
permission links. Export it, edit or diff it, and import it back in
replace or merge mode.`,
	}

	cmd.AddCommand(newMatrixExportCmd())
	cmd.AddCommand(newMatrixImportCmd())
	cmd.AddCommand(newMatrixSimulateCmd())

	return cmd
}

func newMatrix() (*rbac.Matrix, func(), error) {
	st, err := openStore()
	if err != nil {
		return nil, nil, err
	}
	logger := newCLILogger()
	audit := service.NewAuditLogger(st, logger)
	return rbac.NewMatrix(st, audit), func() { st.Close() }, nil
}

// ---------- matrix export ----------

func newMatrixExportCmd() *cobra.Command {
	var (
		output string
		format string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the role matrix to a file or stdout",
		Example: `  orgdesk matrix export > matrix.json
  orgdesk matrix export --format yaml -o matrix.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMatrixExport(output, format)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default stdout)")
	cmd.Flags().StringVar(&format, "format", "json", "Output format: json or yaml")

	return cmd
}

func runMatrixExport(output, format string) error {
	matrix, cleanup, err := newMatrix()
	if err != nil {
		return err
	}
	defer cleanup()

	doc, err := matrix.Export(cmdCtx())
	if err != nil {
		return err
	}

	var data []byte
	switch format {
	case "yaml":
		data, err = yaml.Marshal(doc)
	case "json":
		data, err = json.MarshalIndent(doc, "", "  ")
	default:
		return fmt.Errorf("unknown format %q (want json or yaml)", format)
	}
	if err != nil {
		return fmt.Errorf("encode matrix: %w", err)
	}

	if output == "" {
		fmt.Println(string(data))
		return nil
	}
	if err := os.WriteFile(output, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", output, err)
	}
	fmt.Printf("Exported %d role(s) to %s\n", len(doc.Roles), output)
	return nil
}

// ---------- matrix import ----------

func newMatrixImportCmd() *cobra.Command {
	var (
		mode  string
		actor string
	)

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import a role matrix document",
		Long: `Import a matrix document in replace mode (each listed role's permission
links are rewritten to match the document) or merge mode (missing links
are added, nothing is removed). Validation is fail-closed: a document
referencing unknown permissions changes nothing.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMatrixImport(args[0], mode, actor)
		},
	}

	cmd.Flags().StringVar(&mode, "mode", "replace", "Import mode: replace or merge")
	cmd.Flags().StringVar(&actor, "actor", "cli", "Actor recorded in the audit trail")

	return cmd
}

func runMatrixImport(path, mode, actor string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	var doc rbac.MatrixDocument
	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		err = yaml.Unmarshal(data, &doc)
	} else {
		err = json.Unmarshal(data, &doc)
	}
	if err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	matrix, cleanup, err := newMatrix()
	if err != nil {
		return err
	}
	defer cleanup()

	result, err := matrix.Import(cmdCtx(), &doc, rbac.ImportMode(mode), actor)
	if err != nil {
		var verr *rbac.ValidationError
		if errors.As(err, &verr) {
			fmt.Fprintln(os.Stderr, "Import rejected; unknown permissions:")
			for _, e := range verr.Entries {
				fmt.Fprintf(os.Stderr, "  role %q: %s.%s scope=%s\n", e.Role, e.Resource, e.Action, e.Scope)
			}
		}
		return err
	}

	fmt.Printf("Import complete: %d role(s) created, %d updated\n", result.CreatedRoles, result.UpdatedRoles)
	return nil
}

// ---------- matrix simulate ----------

func newMatrixSimulateCmd() *cobra.Command {
	var (
		userEmail string
		roleName  string
	)

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Preview a user's or role's effective access",
		Example: `  orgdesk matrix simulate --user maria@example.org
  orgdesk matrix simulate --role "GSD Localidade"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if (userEmail == "") == (roleName == "") {
				return fmt.Errorf("exactly one of --user or --role is required")
			}
			return runMatrixSimulate(userEmail, roleName)
		},
	}

	cmd.Flags().StringVar(&userEmail, "user", "", "Simulate a user by email")
	cmd.Flags().StringVar(&roleName, "role", "", "Simulate a role by name")

	return cmd
}

func runMatrixSimulate(userEmail, roleName string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	matrix := rbac.NewMatrix(st, service.NewAuditLogger(st, newCLILogger()))

	var result *rbac.SimulationResult
	switch {
	case userEmail != "":
		user, err := st.GetUserByEmail(cmdCtx(), userEmail)
		if err != nil {
			return fmt.Errorf("lookup user %q: %w", userEmail, err)
		}
		result, err = matrix.SimulateUser(cmdCtx(), user.ID)
		if err != nil {
			return err
		}
	default:
		role, err := st.GetRoleByName(cmdCtx(), roleName)
		if err != nil {
			return fmt.Errorf("lookup role %q: %w", roleName, err)
		}
		result, err = matrix.SimulateRole(cmdCtx(), role.ID)
		if err != nil {
			return err
		}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
