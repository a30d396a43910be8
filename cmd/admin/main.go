package main

import (
	"fmt"
	"log"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/cordwell/shopapi/internal/auth"
	"github.com/cordwell/shopapi/internal/config"
	"github.com/cordwell/shopapi/internal/db"
	"github.com/cordwell/shopapi/internal/db/repository"
	"github.com/cordwell/shopapi/internal/models"
)

var (
	configPath string
	cfg        *config.Config
	database   *db.DB
)

var rootCmd = &cobra.Command{
	Use:   "admin",
	Short: "shopapi administration tool",
	Long:  "Administrative tool for managing shopapi users and audit logs",
}

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage users",
}

var userCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new user",
	RunE:  createUser,
}

var userListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all users",
	RunE:  listUsers,
}

var userSetRoleCmd = &cobra.Command{
	Use:   "set-role",
	Short: "Update a user's role",
	RunE:  setUserRole,
}

var userDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete a user",
	RunE:  deleteUser,
}

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Show recent audit log entries",
	RunE:  showAudit,
}

var (
	username   string
	email      string
	password   string
	firstName  string
	lastName   string
	role       string
	userID     string
	auditLimit int64
)

func init() {
	// Root flags
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "/etc/shopapi/config.yaml", "Config file path")

	// User create flags
	userCreateCmd.Flags().StringVarP(&username, "username", "u", "", "Display name (required)")
	userCreateCmd.Flags().StringVarP(&email, "email", "e", "", "Email (required)")
	userCreateCmd.Flags().StringVarP(&password, "password", "p", "", "Password (required)")
	userCreateCmd.Flags().StringVar(&firstName, "first-name", "", "First name")
	userCreateCmd.Flags().StringVar(&lastName, "last-name", "", "Last name")
	userCreateCmd.Flags().StringVarP(&role, "role", "r", models.RoleClient, "Role: admin or client")
	userCreateCmd.MarkFlagRequired("username")
	userCreateCmd.MarkFlagRequired("email")
	userCreateCmd.MarkFlagRequired("password")

	// User set-role flags
	userSetRoleCmd.Flags().StringVar(&userID, "id", "", "User ID (required)")
	userSetRoleCmd.Flags().StringVarP(&role, "role", "r", "", "Role: admin or client (required)")
	userSetRoleCmd.MarkFlagRequired("id")
	userSetRoleCmd.MarkFlagRequired("role")

	// User delete flags
	userDeleteCmd.Flags().StringVar(&userID, "id", "", "User ID (required)")
	userDeleteCmd.MarkFlagRequired("id")

	// Audit flags
	auditCmd.Flags().Int64VarP(&auditLimit, "limit", "n", 50, "Number of entries to show")

	userCmd.AddCommand(userCreateCmd, userListCmd, userSetRoleCmd, userDeleteCmd)
	rootCmd.AddCommand(userCmd, auditCmd)
}

func main() {
	cobra.OnInitialize(initApp)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}

	if database != nil {
		database.Close()
	}
}

func initApp() {
	var err error

	cfg, err = config.LoadWithEnv(configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	database, err = db.New(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if err := db.RunMigrations(database); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
}

func createUser(cmd *cobra.Command, args []string) error {
	if role != models.RoleAdmin && role != models.RoleClient {
		return fmt.Errorf("role must be 'admin' or 'client'")
	}

	passwordHash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}

	user := &models.User{
		ID:           uuid.NewString(),
		Username:     username,
		FirstName:    firstName,
		LastName:     lastName,
		Email:        email,
		PasswordHash: passwordHash,
		Role:         role,
	}

	users := repository.NewUserRepository(database.DB)
	if err := users.Create(user); err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	fmt.Printf("User created\n")
	fmt.Printf("  ID:    %s\n", user.ID)
	fmt.Printf("  Email: %s\n", user.Email)
	fmt.Printf("  Role:  %s\n", user.Role)

	return nil
}

func listUsers(cmd *cobra.Command, args []string) error {
	users := repository.NewUserRepository(database.DB)

	total, err := users.Count()
	if err != nil {
		return err
	}

	list, err := users.List(total, 0, "")
	if err != nil {
		return err
	}

	fmt.Printf("%-36s  %-24s  %-8s  %-6s\n", "ID", "EMAIL", "ROLE", "2FA")
	for _, user := range list {
		twoFA := "no"
		if user.OTPEnabled {
			twoFA = "yes"
		}
		fmt.Printf("%-36s  %-24s  %-8s  %-6s\n", user.ID, user.Email, user.Role, twoFA)
	}

	return nil
}

func setUserRole(cmd *cobra.Command, args []string) error {
	if role != models.RoleAdmin && role != models.RoleClient {
		return fmt.Errorf("role must be 'admin' or 'client'")
	}

	users := repository.NewUserRepository(database.DB)
	if err := users.UpdateRole(userID, role); err != nil {
		return fmt.Errorf("failed to update role: %w", err)
	}

	fmt.Printf("Role updated to %s\n", role)
	return nil
}

func deleteUser(cmd *cobra.Command, args []string) error {
	users := repository.NewUserRepository(database.DB)
	if err := users.Delete(userID); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	fmt.Printf("User deleted\n")
	return nil
}

func showAudit(cmd *cobra.Command, args []string) error {
	audit := repository.NewAuditRepository(database.DB)

	entries, err := audit.ListRecent(auditLimit)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		status := "ok"
		if !entry.Success {
			status = "FAIL"
		}
		fmt.Printf("%s  %-18s  %-4s  %-24s  %s\n",
			entry.Timestamp.Format("2006-01-02 15:04:05"),
			entry.Action,
			status,
			entry.Email,
			entry.ErrorMsg,
		)
	}

	return nil
}
