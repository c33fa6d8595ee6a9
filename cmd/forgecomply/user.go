package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/forgecomply/forgecomply360/internal/auth"
	"github.com/forgecomply/forgecomply360/internal/repository"
	"github.com/forgecomply/forgecomply360/internal/service"
)

func newUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage user accounts",
	}

	var input service.RegisterInput
	createOwner := &cobra.Command{
		Use:   "create-owner",
		Short: "Create an organization and its owner account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if input.Password == "" {
				input.Password = os.Getenv("FORGECOMPLY_OWNER_PASSWORD")
			}
			if input.Password == "" {
				fmt.Fprint(cmd.ErrOrStderr(), "password: ")
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("read password: %w", err)
				}
				input.Password = strings.TrimRight(line, "\r\n")
			}

			rt, err := openRuntime(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.Close()

			db := rt.db.Handle()
			users := repository.NewUserRepository(db)
			authService := service.NewAuthService(rt.cfg.Auth, service.AuthDependencies{
				OrgRepo:  repository.NewOrganizationRepository(db),
				UserRepo: users,
				Tokens:   auth.NewTokenManager(rt.cfg.Auth.JWTSecret, rt.cfg.Auth.AccessTokenTTLMinutes),
				Audit:    service.NewAuditService(repository.NewAuditRepository(db), rt.logger, nil),
				Logger:   rt.logger,
			})
			user, err := authService.CreateOwner(cmd.Context(), input)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created owner %s (%s) in organization %s\n", user.Email, user.ID, user.OrgID)
			return nil
		},
	}
	flags := createOwner.Flags()
	flags.StringVar(&input.OrganizationName, "org", "", "organization name")
	flags.StringVar(&input.Name, "name", "", "owner display name")
	flags.StringVar(&input.Email, "email", "", "owner email")
	flags.StringVar(&input.Password, "password", "", "owner password (or FORGECOMPLY_OWNER_PASSWORD, or stdin)")
	_ = createOwner.MarkFlagRequired("org")
	_ = createOwner.MarkFlagRequired("name")
	_ = createOwner.MarkFlagRequired("email")

	cmd.AddCommand(createOwner)
	return cmd
}
