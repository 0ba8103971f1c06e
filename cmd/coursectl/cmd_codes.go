package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/designengineer/course-api/internal/app"
	"github.com/designengineer/course-api/internal/config"
	"github.com/designengineer/course-api/internal/model"
	"github.com/designengineer/course-api/internal/service"
)

var (
	codeCount   int
	codeDays    int
	codeLevel   string
	codeMaxUses int
)

var codesCmd = &cobra.Command{
	Use:   "codes",
	Short: "Manage temporary access codes",
}

var codesCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create temporary access codes",
	Long: `Creates one or more eight-character codes that grant a temporary
enrollment when redeemed.

Example:
  coursectl codes create --count 10 --days 14 --level design_web --max 25`,
	RunE: runCodesCreate,
}

var codesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List temporary access codes, newest first",
	RunE:  runCodesList,
}

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Expire stale codes and temporary enrollments now",
	RunE:  runCleanup,
}

func init() {
	codesCreateCmd.Flags().IntVar(&codeCount, "count", 1, "Number of codes (1-50)")
	codesCreateCmd.Flags().IntVar(&codeDays, "days", 7, "Days until the codes expire (1-365)")
	codesCreateCmd.Flags().StringVar(&codeLevel, "level", string(model.AccessFull), "Access level granted on redemption")
	codesCreateCmd.Flags().IntVar(&codeMaxUses, "max", 0, "Maximum redemptions per code (0 = unlimited)")

	codesCmd.AddCommand(codesCreateCmd)
	codesCmd.AddCommand(codesListCmd)
}

func temporaryAccess(st app.Stores, cfg config.Config) *service.TemporaryAccess {
	ents := service.NewEntitlements(st.Enrollments, nil, nil, nil, logger)
	return service.NewTemporaryAccess(st.Codes, ents, cfg.TemporaryAccessDays, logger)
}

func runCodesCreate(cmd *cobra.Command, args []string) error {
	level, ok := model.NormalizeAccessLevel(codeLevel)
	if !ok {
		return fmt.Errorf("unknown access level %q", codeLevel)
	}
	in := service.CreateCodesInput{Count: codeCount, ExpiresInDays: codeDays, AccessLevel: level}
	if codeMaxUses > 0 {
		n := codeMaxUses
		in.MaxRedemptions = &n
	}
	return withStores(cmd, func(ctx context.Context, st app.Stores, cfg config.Config) error {
		codes, err := temporaryAccess(st, cfg).CreateCodes(ctx, in)
		if err != nil {
			return err
		}
		return printCodes(cmd.OutOrStdout(), codes)
	})
}

func runCodesList(cmd *cobra.Command, args []string) error {
	return withStores(cmd, func(ctx context.Context, st app.Stores, cfg config.Config) error {
		codes, err := temporaryAccess(st, cfg).List(ctx)
		if err != nil {
			return err
		}
		return printCodes(cmd.OutOrStdout(), codes)
	})
}

func runCleanup(cmd *cobra.Command, args []string) error {
	return withStores(cmd, func(ctx context.Context, st app.Stores, cfg config.Config) error {
		res, err := temporaryAccess(st, cfg).Cleanup(ctx)
		if err != nil {
			return err
		}
		if asJSON {
			return json.NewEncoder(cmd.OutOrStdout()).Encode(res)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "expired %d code(s) and %d temporary enrollment(s)\n",
			res.CodesCleaned, res.EnrollmentsCleaned)
		return nil
	})
}

func printCodes(w io.Writer, codes []model.TemporaryAccessCode) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(codes)
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CODE\tLEVEL\tSTATUS\tEXPIRES\tREDEEMED")
	for _, c := range codes {
		limit := "∞"
		if c.MaxRedemptions != nil {
			limit = fmt.Sprint(*c.MaxRedemptions)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d/%s\n", c.Code, c.AccessLevel, c.Status,
			c.ExpiresAt.UTC().Format(time.RFC3339), len(c.RedeemedBy), limit)
	}
	return tw.Flush()
}
