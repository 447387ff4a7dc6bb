package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/spec-kit/crm-service/internal/domain"
	"github.com/spec-kit/crm-service/internal/persistence"
	"github.com/spec-kit/crm-service/internal/service"
	apperrors "github.com/spec-kit/crm-service/pkg/util/errorutil"
)

func newRootCmd(open backendOpener) *cobra.Command {
	root := &cobra.Command{
		Use:           "crmctl",
		Short:         "Operator tooling for the CRM service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newMigrateCmd(open),
		newSeedCmd(open),
		newSLACmd(open),
		newLeadsCmd(open),
	)
	return root
}

func newMigrateCmd(open backendOpener) *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending SQL migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			b, err := open(cmd.Context())
			if err != nil {
				return err
			}
			defer b.Close()

			if dir == "" {
				dir = b.cfg.Postgres.MigrationsDir
			}
			applied, err := persistence.RunMigrations(cmd.Context(), b.pg.Pool, dir, b.logger)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "applied %d migration(s) from %s\n", applied, dir)
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "migrations directory (defaults to POSTGRES_MIGRATIONS_DIR)")
	return cmd
}

func newSeedCmd(open backendOpener) *cobra.Command {
	var input service.RegisterInput
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create the initial admin user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			b, err := open(cmd.Context())
			if err != nil {
				return err
			}
			defer b.Close()

			input.Role = domain.UserRoleAdmin
			user, err := b.auth.Register(cmd.Context(), input)
			if apperrors.IsCode(err, apperrors.CodeConflict) {
				fmt.Fprintf(cmd.OutOrStdout(), "admin %q already exists\n", input.Username)
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created admin %s (id %d)\n", user.Username, user.ID)
			return nil
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&input.Username, "username", "admin", "admin username")
	flags.StringVar(&input.Email, "email", "", "admin email")
	flags.StringVar(&input.Password, "password", "", "admin password")
	flags.StringVar(&input.FirstName, "first-name", "", "admin first name")
	flags.StringVar(&input.LastName, "last-name", "", "admin last name")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func newSLACmd(open backendOpener) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sla",
		Short: "Case SLA maintenance",
	}

	var actor int64
	sweep := &cobra.Command{
		Use:   "sweep",
		Short: "Escalate every open case past its SLA due date",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var actorID *int64
			if cmd.Flags().Changed("actor") {
				if actor <= 0 {
					return errors.New("--actor must be a positive user id")
				}
				actorID = &actor
			}

			b, err := open(cmd.Context())
			if err != nil {
				return err
			}
			defer b.Close()

			escalated, err := b.escalation.SweepOverdueCases(cmd.Context(), actorID)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, c := range escalated {
				fmt.Fprintln(out, c.CaseNumber)
			}
			fmt.Fprintf(out, "escalated %d case(s)\n", len(escalated))
			return nil
		},
	}
	sweep.Flags().Int64Var(&actor, "actor", 0, "user id recorded on the audit entries (system when omitted)")
	cmd.AddCommand(sweep)
	return cmd
}

func newLeadsCmd(open backendOpener) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "leads",
		Short: "Lead workflows",
	}

	var (
		actor         int64
		owner         int64
		noAccount     bool
		noOpportunity bool
	)
	opts := service.DefaultConvertOptions()
	convert := &cobra.Command{
		Use:   "convert <lead-id>",
		Short: "Convert a lead into an account, contact and opportunity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			leadID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || leadID <= 0 {
				return fmt.Errorf("invalid lead id %q", args[0])
			}
			if actor <= 0 {
				return errors.New("--actor must be a positive user id")
			}
			opts.CreateAccount = !noAccount
			opts.CreateOpportunity = !noOpportunity
			if cmd.Flags().Changed("owner") {
				opts.OwnerID = &owner
			}

			b, err := open(cmd.Context())
			if err != nil {
				return err
			}
			defer b.Close()

			result, err := b.conversion.ConvertLead(cmd.Context(), leadID, opts, actor)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "lead %d converted\n", result.Lead.ID)
			if result.Account != nil {
				fmt.Fprintf(out, "account     %d %s\n", result.Account.ID, result.Account.Name)
			}
			fmt.Fprintf(out, "contact     %d %s\n", result.Contact.ID, result.Contact.FullName())
			if result.Opportunity != nil {
				fmt.Fprintf(out, "opportunity %d %s\n", result.Opportunity.ID, result.Opportunity.Name)
			}
			return nil
		},
	}
	flags := convert.Flags()
	flags.Int64Var(&actor, "actor", 0, "user id performing the conversion")
	flags.Int64Var(&owner, "owner", 0, "owner for the created records (defaults to the lead owner)")
	flags.BoolVar(&noAccount, "no-account", false, "skip account creation")
	flags.BoolVar(&noOpportunity, "no-opportunity", false, "skip opportunity creation")
	flags.StringVar(&opts.AccountName, "account-name", "", "account name (defaults to the lead company)")
	flags.StringVar(&opts.OpportunityName, "opportunity-name", "", "opportunity name")
	flags.Float64Var(&opts.OpportunityAmount, "amount", 0, "opportunity amount")
	_ = convert.MarkFlagRequired("actor")
	cmd.AddCommand(convert)
	return cmd
}
