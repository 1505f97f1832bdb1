package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"ltgsite/internal/admin"
	"ltgsite/internal/errcode"
	"ltgsite/internal/preview"
)

const commandTimeout = 30 * time.Second

var confirmDelete bool

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "List, export and change job postings",
}

var jobsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all postings, newest first",
	Args:  cobra.NoArgs,
	RunE:  runJobsList,
}

var jobsExportCmd = &cobra.Command{
	Use:   "export [file]",
	Short: "Write all postings as JSON (default: jobs.json, - for stdout)",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runJobsExport,
}

var jobsPublishCmd = &cobra.Command{
	Use:   "publish <id>",
	Short: "Show a posting on the public site",
	Args:  cobra.ExactArgs(1),
	RunE:  func(cmd *cobra.Command, args []string) error { return setPublished(cmd, args[0], true) },
}

var jobsUnpublishCmd = &cobra.Command{
	Use:   "unpublish <id>",
	Short: "Turn a posting back into a draft",
	Args:  cobra.ExactArgs(1),
	RunE:  func(cmd *cobra.Command, args []string) error { return setPublished(cmd, args[0], false) },
}

var jobsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a posting (requires --yes)",
	Args:  cobra.ExactArgs(1),
	RunE:  runJobsDelete,
}

var jobsPreviewCmd = &cobra.Command{
	Use:   "preview <id>",
	Short: "Print the advertisement text of a posting",
	Args:  cobra.ExactArgs(1),
	RunE:  runJobsPreview,
}

func init() {
	jobsDeleteCmd.Flags().BoolVarP(&confirmDelete, "yes", "y", false, "confirm the deletion")
	jobsCmd.AddCommand(jobsListCmd, jobsExportCmd, jobsPublishCmd, jobsUnpublishCmd, jobsDeleteCmd, jobsPreviewCmd)
}

func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), commandTimeout)
}

// userError prefers the German message of classified errors.
func userError(err error) error {
	if errcode.KindOf(err) >= 0 {
		return errors.New(errcode.MessageOf(err))
	}
	return err
}

func runJobsList(cmd *cobra.Command, _ []string) error {
	repo, err := openRepository()
	if err != nil {
		return err
	}
	ctx, cancel := commandContext(cmd)
	defer cancel()

	postings, err := repo.List(ctx)
	if err != nil {
		return userError(err)
	}
	if len(postings) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), admin.ListEmpty)
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITEL\tDETAILS")
	for _, p := range postings {
		item := admin.NewListItem(p)
		fmt.Fprintf(w, "%s\t%s\t%s\n", item.ID, item.Title, item.Meta)
	}
	return w.Flush()
}

func runJobsExport(cmd *cobra.Command, args []string) error {
	repo, err := openRepository()
	if err != nil {
		return err
	}
	ctx, cancel := commandContext(cmd)
	defer cancel()

	out, err := admin.ExportJSON(ctx, repo)
	if err != nil {
		return userError(err)
	}

	target := admin.ExportFileName
	if len(args) == 1 {
		target = args[0]
	}
	if target == "-" {
		_, err = cmd.OutOrStdout().Write(append(out, '\n'))
		return err
	}
	if err := os.WriteFile(target, out, 0o644); err != nil {
		return fmt.Errorf("write export: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Export geschrieben: %s\n", target)
	return nil
}

func setPublished(cmd *cobra.Command, id string, published bool) error {
	repo, err := openRepository()
	if err != nil {
		return err
	}
	ctx, cancel := commandContext(cmd)
	defer cancel()

	if _, err := repo.SetPublished(ctx, id, published); err != nil {
		return userError(err)
	}
	if published {
		fmt.Fprintln(cmd.OutOrStdout(), "Job veröffentlicht.")
	} else {
		fmt.Fprintln(cmd.OutOrStdout(), "Job deaktiviert (Entwurf).")
	}
	return nil
}

func runJobsDelete(cmd *cobra.Command, args []string) error {
	if !confirmDelete {
		return errors.New("Löschen nicht bestätigt, mit --yes erneut ausführen")
	}
	repo, err := openRepository()
	if err != nil {
		return err
	}
	ctx, cancel := commandContext(cmd)
	defer cancel()

	if err := repo.Delete(ctx, args[0]); err != nil {
		return userError(err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Job gelöscht.")
	return nil
}

func runJobsPreview(cmd *cobra.Command, args []string) error {
	repo, err := openRepository()
	if err != nil {
		return err
	}
	ctx, cancel := commandContext(cmd)
	defer cancel()

	p, err := repo.Get(ctx, args[0])
	if err != nil {
		return userError(err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), preview.ForPosting(p))
	return nil
}
